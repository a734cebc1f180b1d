package notify

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internship-placement/internal/common/logger"
	"internship-placement/internal/common/metrics"
	"internship-placement/internal/placement"
	"internship-placement/internal/repository"
)

const insertNotificationSQL = `
		INSERT INTO notifications (
			id, user_id, title, message, kind, is_read,
			related_entity_id, related_entity_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, kind, related_entity_id) DO NOTHING`

type staticResolver struct {
	directorID string
	err        error
}

func (r staticResolver) AssignedDirector(_ context.Context, _ string) (string, error) {
	return r.directorID, r.err
}

type recordingChannel struct {
	mu   sync.Mutex
	sent []placement.NotificationKind
}

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Send(_ context.Context, n *placement.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n.Kind)
	return nil
}

func newTestDispatcher(t *testing.T, resolver DirectorResolver) (*Dispatcher, sqlmock.Sqlmock, *redis.Client) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewTestLogger(t)
	repo := repository.NewNotificationRepository(db, log)
	d := NewDispatcher(repo, resolver, NewRedisPusher(client), Config{
		QueueSize:   8,
		Workers:     1,
		PushTimeout: time.Second,
	}, log)
	return d, mock, client
}

func studentIntent() placement.NotificationIntent {
	return placement.NotificationIntent{
		Audience:          placement.AudienceStudent,
		UserID:            "student-1",
		Kind:              placement.KindInterviewScheduled,
		Title:             "Interview scheduled",
		Message:           "Your interview has been scheduled",
		RelatedEntityID:   "app-1",
		RelatedEntityType: "application",
	}
}

func TestDispatch_PersistsRowAndPushes(t *testing.T) {
	d, mock, client := newTestDispatcher(t, staticResolver{})

	mock.ExpectExec(regexp.QuoteMeta(insertNotificationSQL)).
		WithArgs(sqlmock.AnyArg(), "student-1", "Interview scheduled", "Your interview has been scheduled",
			"INTERVIEW_SCHEDULED", false, "app-1", "application", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sub := client.Subscribe(ctx, "user:student-1")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	d.Start()
	d.Dispatch("org-1", []placement.NotificationIntent{studentIntent()})
	d.Stop()

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var pushed placement.Notification
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &pushed))
	assert.Equal(t, "student-1", pushed.UserID)
	assert.Equal(t, placement.KindInterviewScheduled, pushed.Kind)
	assert.False(t, pushed.IsRead)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPushMetrics_LabelByChannelClass(t *testing.T) {
	// every user channel collapses into one series; role channels are a
	// bounded set and keep their names
	assert.Equal(t, "user", channelClass(userChannel("550e8400-e29b-41d4-a716-446655440000")))
	assert.Equal(t, "role:students", channelClass(roleChannel(placement.AudienceStudent)))
	assert.Equal(t, "role:directors", channelClass(roleChannel(placement.AudienceDirector)))

	d, mock, _ := newTestDispatcher(t, staticResolver{})
	mock.ExpectExec(regexp.QuoteMeta(insertNotificationSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	userBefore := testutil.ToFloat64(metrics.PushAttempts.WithLabelValues("user"))
	roleBefore := testutil.ToFloat64(metrics.PushAttempts.WithLabelValues("role:students"))

	d.Start()
	d.Dispatch("org-1", []placement.NotificationIntent{studentIntent()})
	d.Stop()

	assert.Equal(t, userBefore+1, testutil.ToFloat64(metrics.PushAttempts.WithLabelValues("user")))
	assert.Equal(t, roleBefore+1, testutil.ToFloat64(metrics.PushAttempts.WithLabelValues("role:students")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatch_SecondDeliveryIsDeduplicated(t *testing.T) {
	d, mock, _ := newTestDispatcher(t, staticResolver{})

	mock.ExpectExec(regexp.QuoteMeta(insertNotificationSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// conflict on (user_id, kind, related_entity_id) inserts nothing
	mock.ExpectExec(regexp.QuoteMeta(insertNotificationSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	d.Start()
	d.Dispatch("org-1", []placement.NotificationIntent{studentIntent()})
	d.Dispatch("org-1", []placement.NotificationIntent{studentIntent()})
	d.Stop()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatch_ResolvesDirectorAudience(t *testing.T) {
	d, mock, _ := newTestDispatcher(t, staticResolver{directorID: "director-9"})

	mock.ExpectExec(regexp.QuoteMeta(insertNotificationSQL)).
		WithArgs(sqlmock.AnyArg(), "director-9", sqlmock.AnyArg(), sqlmock.AnyArg(),
			"LETTER_ISSUED", false, "app-1", "application", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	intent := placement.NotificationIntent{
		Audience:          placement.AudienceDirector,
		Kind:              placement.KindLetterIssued,
		Title:             "Acceptance letter issued",
		Message:           "An application awaits your review",
		RelatedEntityID:   "app-1",
		RelatedEntityType: "application",
	}

	d.Start()
	d.Dispatch("org-1", []placement.NotificationIntent{intent})
	d.Stop()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatch_UnresolvedDirectorSkipsDelivery(t *testing.T) {
	d, mock, _ := newTestDispatcher(t, staticResolver{directorID: ""})

	intent := placement.NotificationIntent{
		Audience:        placement.AudienceDirector,
		Kind:            placement.KindLetterIssued,
		RelatedEntityID: "app-1",
	}

	d.Start()
	d.Dispatch("org-1", []placement.NotificationIntent{intent})
	d.Stop()

	// no insert was attempted
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatch_ChannelsRunAfterPersist(t *testing.T) {
	d, mock, _ := newTestDispatcher(t, staticResolver{})
	ch := &recordingChannel{}
	d.AddChannel(ch)

	mock.ExpectExec(regexp.QuoteMeta(insertNotificationSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	d.Start()
	d.Dispatch("org-1", []placement.NotificationIntent{studentIntent()})
	d.Stop()

	ch.mu.Lock()
	defer ch.mu.Unlock()
	require.Len(t, ch.sent, 1)
	assert.Equal(t, placement.KindInterviewScheduled, ch.sent[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatch_FullQueueProcessesInline(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	log := logger.NewTestLogger(t)
	repo := repository.NewNotificationRepository(db, log)
	d := NewDispatcher(repo, staticResolver{}, NewRedisPusher(client), Config{
		QueueSize: 1,
		Workers:   1,
	}, log)

	mock.ExpectExec(regexp.QuoteMeta(insertNotificationSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertNotificationSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// workers are not running yet, so the second dispatch overflows the queue
	d.Dispatch("org-1", []placement.NotificationIntent{studentIntent()})
	d.Dispatch("org-1", []placement.NotificationIntent{studentIntent()})

	d.Start()
	d.Stop()

	assert.NoError(t, mock.ExpectationsWereMet())
}
