package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internship-placement/internal/agreement"
	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/engine"
	"internship-placement/internal/placement"
	"internship-placement/internal/repository"
	"internship-placement/internal/search"
)

type captureDispatcher struct {
	mu      sync.Mutex
	batches [][]placement.NotificationIntent
}

func (d *captureDispatcher) Dispatch(_ string, intents []placement.NotificationIntent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, intents)
}

func (d *captureDispatcher) all() [][]placement.NotificationIntent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.batches
}

func newTestService(t *testing.T) (*ApplicationService, sqlmock.Sqlmock, redismock.ClientMock, *captureDispatcher) {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisClient, redisMock := redismock.NewClientMock()
	log := logger.NewNoOpLogger()

	dispatcher := &captureDispatcher{}
	svc := New(Options{
		Applications:  repository.NewApplicationRepository(db, log),
		Offers:        repository.NewOfferRepository(db, log),
		Agreements:    repository.NewAgreementRepository(db, log),
		Notifications: repository.NewNotificationRepository(db, log),
		Gate:          agreement.NewGate(repository.NewAgreementRepository(db, log), redisClient, log),
		Dispatcher:    dispatcher,
		Logger:        log,
	})
	return svc, dbMock, redisMock, dispatcher
}

var applicationRows = []string{
	"id", "offer_id", "student_id", "organization_id", "status",
	"evaluation", "interview", "attendance_confirmed", "student_acceptance",
	"acceptance_letter", "director_approval", "cover_letter", "cv_file_path",
	"applied_at", "reviewed_at", "updated_at", "version",
}

func applicationRow(id, status string, version int64, evaluation, letter []byte) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(applicationRows).AddRow(
		id, "offer-1", "student-1", "org-1", status,
		evaluation, nil, nil, []byte(`{"confirmed":false}`),
		letter, nil, "", "",
		now, nil, now, version,
	)
}

func offerRow(id, orgID, state string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "title", "description", "field", "location",
		"modality", "vacancies", "state", "published_at", "closed_at", "created_at",
	}).AddRow(id, orgID, "Backend internship", "", "", "", "", 2, state, nil, nil, time.Now().UTC())
}

func TestApply_CreatesPendingApplication(t *testing.T) {
	svc, dbMock, _, dispatcher := newTestService(t)

	dbMock.ExpectQuery(`FROM offers WHERE id = \$1`).
		WithArgs("offer-1").
		WillReturnRows(offerRow("offer-1", "org-1", "OPEN"))
	dbMock.ExpectExec(`INSERT INTO applications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	actor := placement.Actor{ID: "student-1", Role: placement.RoleStudent}
	app, err := svc.Apply(context.Background(), actor, ApplyInput{OfferID: "offer-1", CVFilePath: "/cv/student-1.pdf"})
	require.NoError(t, err)

	assert.Equal(t, placement.StatusPending, app.Status)
	assert.Equal(t, "org-1", app.OrganizationID)
	assert.Equal(t, int64(1), app.Version)
	assert.NotEmpty(t, app.ID)
	assert.Empty(t, dispatcher.all())
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestApply_ClosedOfferIsUnavailable(t *testing.T) {
	svc, dbMock, _, _ := newTestService(t)

	dbMock.ExpectQuery(`FROM offers WHERE id = \$1`).
		WithArgs("offer-1").
		WillReturnRows(offerRow("offer-1", "org-1", "CLOSED"))

	actor := placement.Actor{ID: "student-1", Role: placement.RoleStudent}
	_, err := svc.Apply(context.Background(), actor, ApplyInput{OfferID: "offer-1"})
	assert.Equal(t, apperrors.ErrCodeOfferUnavailable, apperrors.CodeOf(err))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestApply_DuplicateMapsToAlreadyApplied(t *testing.T) {
	svc, dbMock, _, _ := newTestService(t)

	dbMock.ExpectQuery(`FROM offers WHERE id = \$1`).
		WithArgs("offer-1").
		WillReturnRows(offerRow("offer-1", "org-1", "OPEN"))
	dbMock.ExpectExec(`INSERT INTO applications`).
		WillReturnError(&pq.Error{Code: "23505"})

	actor := placement.Actor{ID: "student-1", Role: placement.RoleStudent}
	_, err := svc.Apply(context.Background(), actor, ApplyInput{OfferID: "offer-1"})
	assert.Equal(t, apperrors.ErrCodeAlreadyApplied, apperrors.CodeOf(err))
}

func TestApply_RequiresStudentRole(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	actor := placement.Actor{ID: "org-1", Role: placement.RoleOrganization}
	_, err := svc.Apply(context.Background(), actor, ApplyInput{OfferID: "offer-1"})
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
}

func TestEvaluate_CommitsAndDispatches(t *testing.T) {
	svc, dbMock, _, dispatcher := newTestService(t)

	dbMock.ExpectQuery(`FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", "PENDING", 3, nil, nil))
	dbMock.ExpectExec(`UPDATE applications SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	actor := placement.Actor{ID: "org-1", Role: placement.RoleOrganization}
	app, err := svc.Evaluate(context.Background(), actor, "app-1", engine.EvaluatePayload{
		Decision: placement.DecisionApproved,
	})
	require.NoError(t, err)

	assert.Equal(t, placement.StatusApproved, app.Status)
	assert.Equal(t, int64(4), app.Version)

	batches := dispatcher.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, placement.KindApplicationEvaluated, batches[0][0].Kind)
	assert.Equal(t, "student-1", batches[0][0].UserID)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestEvaluate_ConcurrentWriterConflicts(t *testing.T) {
	svc, dbMock, _, dispatcher := newTestService(t)

	dbMock.ExpectQuery(`FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", "PENDING", 3, nil, nil))
	// another actor advanced the row between the read and the write
	dbMock.ExpectExec(`UPDATE applications SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	actor := placement.Actor{ID: "org-1", Role: placement.RoleOrganization}
	_, err := svc.Evaluate(context.Background(), actor, "app-1", engine.EvaluatePayload{
		Decision: placement.DecisionApproved,
	})
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))
	assert.Empty(t, dispatcher.all())
}

func TestEvaluate_EngineRejectionDoesNotWrite(t *testing.T) {
	svc, dbMock, _, dispatcher := newTestService(t)

	dbMock.ExpectQuery(`FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", "PENDING", 1, nil, nil))

	// student role cannot evaluate; no UPDATE is expected
	actor := placement.Actor{ID: "student-1", Role: placement.RoleStudent}
	_, err := svc.Evaluate(context.Background(), actor, "app-1", engine.EvaluatePayload{
		Decision: placement.DecisionApproved,
	})
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
	assert.Empty(t, dispatcher.all())
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestDecideApproval_ResolvesAssignedDirector(t *testing.T) {
	svc, dbMock, redisMock, dispatcher := newTestService(t)

	evaluation := []byte(`{"decision":"APPROVED","decidedAt":"2026-05-01T10:00:00Z"}`)
	letter := []byte(`{"filePath":"/letters/app-1.pdf","issuedAt":"2026-05-03T09:00:00Z"}`)
	dbMock.ExpectQuery(`FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", "UNDER_REVIEW", 6, evaluation, letter))
	redisMock.ExpectGet("agreement:director:org-1").SetVal("director-1")
	dbMock.ExpectExec(`UPDATE applications SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	actor := placement.Actor{ID: "director-1", Role: placement.RoleDirector}
	app, err := svc.DecideApproval(context.Background(), actor, "app-1", placement.DecisionApproved, "meets all requirements")
	require.NoError(t, err)

	assert.Equal(t, placement.StatusAccepted, app.Status)
	require.NotNil(t, app.DirectorApproval)
	assert.Equal(t, placement.DecisionApproved, app.DirectorApproval.Decision)

	batches := dispatcher.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, placement.AudienceStudent, batches[0][0].Audience)
	assert.Equal(t, placement.AudienceOrganization, batches[0][1].Audience)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestDecideApproval_UnassignedDirectorIsRejected(t *testing.T) {
	svc, dbMock, redisMock, _ := newTestService(t)

	evaluation := []byte(`{"decision":"APPROVED","decidedAt":"2026-05-01T10:00:00Z"}`)
	letter := []byte(`{"filePath":"/letters/app-1.pdf","issuedAt":"2026-05-03T09:00:00Z"}`)
	dbMock.ExpectQuery(`FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", "UNDER_REVIEW", 6, evaluation, letter))
	redisMock.ExpectGet("agreement:director:org-1").SetVal("director-1")

	actor := placement.Actor{ID: "director-2", Role: placement.RoleDirector}
	_, err := svc.DecideApproval(context.Background(), actor, "app-1", placement.DecisionApproved, "")
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
}

func TestPublishOffer_RequiresAcceptedAgreement(t *testing.T) {
	svc, dbMock, redisMock, _ := newTestService(t)

	dbMock.ExpectQuery(`FROM offers WHERE id = \$1`).
		WithArgs("offer-1").
		WillReturnRows(offerRow("offer-1", "org-1", "DRAFT"))
	redisMock.ExpectGet("agreement:director:org-1").SetVal("__none__")

	actor := placement.Actor{ID: "org-1", Role: placement.RoleOrganization}
	_, err := svc.PublishOffer(context.Background(), actor, "offer-1")
	assert.Equal(t, apperrors.ErrCodePreconditionFailed, apperrors.CodeOf(err))
}

func TestPublishOffer_OpensTheOffer(t *testing.T) {
	svc, dbMock, redisMock, _ := newTestService(t)

	dbMock.ExpectQuery(`FROM offers WHERE id = \$1`).
		WithArgs("offer-1").
		WillReturnRows(offerRow("offer-1", "org-1", "DRAFT"))
	redisMock.ExpectGet("agreement:director:org-1").SetVal("director-1")
	dbMock.ExpectExec(`UPDATE offers SET state`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	actor := placement.Actor{ID: "org-1", Role: placement.RoleOrganization}
	offer, err := svc.PublishOffer(context.Background(), actor, "offer-1")
	require.NoError(t, err)
	assert.Equal(t, placement.OfferOpen, offer.State)
	require.NotNil(t, offer.PublishedAt)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

type captureIndexer struct {
	indexed []string
	removed []string
}

func (i *captureIndexer) IndexOffer(_ context.Context, offer *placement.Offer) error {
	i.indexed = append(i.indexed, offer.ID)
	return nil
}

func (i *captureIndexer) RemoveOffer(_ context.Context, offerID string) error {
	i.removed = append(i.removed, offerID)
	return nil
}

func (i *captureIndexer) SearchOffers(_ context.Context, _ search.OfferQuery) ([]*placement.Offer, error) {
	return nil, nil
}

func TestCloseOffer_RemovesOfferFromSearchIndex(t *testing.T) {
	svc, dbMock, _, _ := newTestService(t)
	indexer := &captureIndexer{}
	svc.index = indexer

	dbMock.ExpectQuery(`FROM offers WHERE id = \$1`).
		WithArgs("offer-1").
		WillReturnRows(offerRow("offer-1", "org-1", "OPEN"))
	dbMock.ExpectExec(`UPDATE offers SET state`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	actor := placement.Actor{ID: "org-1", Role: placement.RoleOrganization}
	offer, err := svc.CloseOffer(context.Background(), actor, "offer-1")
	require.NoError(t, err)

	assert.Equal(t, placement.OfferClosed, offer.State)
	assert.Equal(t, []string{"offer-1"}, indexer.removed)
	assert.Empty(t, indexer.indexed)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestPublishOffer_OwnershipIsEnforced(t *testing.T) {
	svc, dbMock, _, _ := newTestService(t)

	dbMock.ExpectQuery(`FROM offers WHERE id = \$1`).
		WithArgs("offer-1").
		WillReturnRows(offerRow("offer-1", "org-2", "DRAFT"))

	actor := placement.Actor{ID: "org-1", Role: placement.RoleOrganization}
	_, err := svc.PublishOffer(context.Background(), actor, "offer-1")
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
}

func TestGetApplication_StudentCannotReadOthers(t *testing.T) {
	svc, dbMock, _, _ := newTestService(t)

	dbMock.ExpectQuery(`FROM applications WHERE id = \$1`).
		WithArgs("app-1").
		WillReturnRows(applicationRow("app-1", "PENDING", 1, nil, nil))

	actor := placement.Actor{ID: "student-2", Role: placement.RoleStudent}
	_, err := svc.GetApplication(context.Background(), actor, "app-1")
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
}

func TestDecideAgreement_InvalidatesGateCache(t *testing.T) {
	svc, dbMock, redisMock, _ := newTestService(t)

	requested := time.Now().UTC().Add(-time.Hour)
	dbMock.ExpectQuery(`FROM agreement_requests WHERE id = \$1`).
		WithArgs("agr-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "director_id", "status", "notes", "requested_at", "decided_at",
		}).AddRow("agr-1", "org-1", "director-1", "PENDING", "", requested, nil))
	dbMock.ExpectExec(`UPDATE agreement_requests`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	redisMock.ExpectDel("agreement:director:org-1").SetVal(1)

	actor := placement.Actor{ID: "director-1", Role: placement.RoleDirector}
	req, err := svc.DecideAgreement(context.Background(), actor, "agr-1", true)
	require.NoError(t, err)
	assert.Equal(t, placement.AgreementAccepted, req.Status)
	require.NotNil(t, req.DecidedAt)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
