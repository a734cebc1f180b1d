package agreement

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internship-placement/internal/common/logger"
	"internship-placement/internal/repository"
)

func newTestGate(t *testing.T) (*Gate, sqlmock.Sqlmock, redismock.ClientMock) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisClient, redisMock := redismock.NewClientMock()

	repo := repository.NewAgreementRepository(db, logger.NewNoOpLogger())
	return NewGate(repo, redisClient, logger.NewNoOpLogger()), dbMock, redisMock
}

func TestAssignedDirector_CacheHit(t *testing.T) {
	gate, _, redisMock := newTestGate(t)

	redisMock.ExpectGet("agreement:director:org-001").SetVal("director-001")

	directorID, err := gate.AssignedDirector(context.Background(), "org-001")
	require.NoError(t, err)
	assert.Equal(t, "director-001", directorID)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestAssignedDirector_CacheMissReadsDatabase(t *testing.T) {
	gate, dbMock, redisMock := newTestGate(t)

	redisMock.ExpectGet("agreement:director:org-001").RedisNil()
	dbMock.ExpectQuery(`SELECT director_id FROM agreement_requests`).
		WithArgs("org-001", "ACCEPTED").
		WillReturnRows(sqlmock.NewRows([]string{"director_id"}).AddRow("director-001"))
	redisMock.ExpectSet("agreement:director:org-001", "director-001", 5*time.Minute).SetVal("OK")

	directorID, err := gate.AssignedDirector(context.Background(), "org-001")
	require.NoError(t, err)
	assert.Equal(t, "director-001", directorID)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHasAcceptedAgreement_NoAgreement(t *testing.T) {
	gate, dbMock, redisMock := newTestGate(t)

	redisMock.ExpectGet("agreement:director:org-002").RedisNil()
	dbMock.ExpectQuery(`SELECT director_id FROM agreement_requests`).
		WithArgs("org-002", "ACCEPTED").
		WillReturnRows(sqlmock.NewRows([]string{"director_id"}))
	redisMock.ExpectSet("agreement:director:org-002", "__none__", 5*time.Minute).SetVal("OK")

	ok, err := gate.HasAcceptedAgreement(context.Background(), "org-002")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasAcceptedAgreement_CachedMiss(t *testing.T) {
	gate, _, redisMock := newTestGate(t)

	redisMock.ExpectGet("agreement:director:org-002").SetVal("__none__")

	ok, err := gate.HasAcceptedAgreement(context.Background(), "org-002")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	gate, _, redisMock := newTestGate(t)

	redisMock.ExpectDel("agreement:director:org-001").SetVal(1)

	gate.Invalidate(context.Background(), "org-001")
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
