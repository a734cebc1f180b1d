// Package notify turns the engine's declarative notification intents into
// durable rows and best-effort real-time pushes. The persisted row is the
// source of truth; the push is a cache-invalidation signal on top of it.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/common/metrics"
	"internship-placement/internal/common/observability"
	"internship-placement/internal/placement"
	"internship-placement/internal/repository"
)

// DirectorResolver resolves the agreement-assigned director for an
// organization. Satisfied by agreement.Gate.
type DirectorResolver interface {
	AssignedDirector(ctx context.Context, organizationID string) (string, error)
}

// Pusher publishes a serialized notification to a channel. Push failures are
// expected (no connected session) and never propagate.
type Pusher interface {
	Push(ctx context.Context, channel string, notification *placement.Notification) error
}

// Config tunes the dispatch queue and the bounded push attempt.
type Config struct {
	QueueSize   int
	Workers     int
	PushTimeout time.Duration
}

// batch carries the intents of one committed transition; they are processed
// in engine order.
type batch struct {
	organizationID string
	intents        []placement.NotificationIntent
}

// Dispatcher persists and fans out notification intents. Dispatch is
// fire-and-forget from the caller's perspective: a committed transition never
// waits on delivery.
type Dispatcher struct {
	repo      *repository.NotificationRepository
	resolver  DirectorResolver
	pusher    Pusher
	channels  []Channel
	obs       *observability.Observability
	logger    logger.Logger
	queue     chan batch
	wg        sync.WaitGroup
	closeOnce sync.Once
	cfg       Config
}

func NewDispatcher(repo *repository.NotificationRepository, resolver DirectorResolver, pusher Pusher, cfg Config, log logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 2 * time.Second
	}

	return &Dispatcher{
		repo:     repo,
		resolver: resolver,
		pusher:   pusher,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "notification-dispatcher"}),
		queue:    make(chan batch, cfg.QueueSize),
	}
}

// AddChannel registers an extra delivery channel (email, SMS). Channels are
// attempted after the row is persisted and their failures are logged only.
func (d *Dispatcher) AddChannel(ch Channel) {
	d.channels = append(d.channels, ch)
}

// SetObservability attaches the OTel recorder; delivery outcomes are then
// reported per notification kind.
func (d *Dispatcher) SetObservability(o *observability.Observability) {
	d.obs = o
}

// Start launches the background workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop drains the queue and waits for in-flight batches.
func (d *Dispatcher) Stop() {
	d.closeOnce.Do(func() { close(d.queue) })
	d.wg.Wait()
}

// Dispatch enqueues the intents of one transition. It never blocks: when the
// queue is full the batch is processed on a fresh goroutine instead.
func (d *Dispatcher) Dispatch(organizationID string, intents []placement.NotificationIntent) {
	if len(intents) == 0 {
		return
	}
	b := batch{organizationID: organizationID, intents: intents}

	select {
	case d.queue <- b:
		metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
	default:
		d.logger.Warn("dispatch queue full, processing inline", map[string]interface{}{
			"intents": len(intents),
		})
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.process(b)
		}()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for b := range d.queue {
		metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
		d.process(b)
	}
}

func (d *Dispatcher) process(b batch) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, intent := range b.intents {
		d.deliver(ctx, b.organizationID, intent)
	}
}

// deliver persists one intent and attempts the real-time push. Errors are
// logged, never returned: the triggering transition is already durable.
func (d *Dispatcher) deliver(ctx context.Context, organizationID string, intent placement.NotificationIntent) {
	userID := intent.UserID
	if intent.Audience == placement.AudienceDirector && userID == "" {
		resolved, err := d.resolver.AssignedDirector(ctx, organizationID)
		if err != nil || resolved == "" {
			d.logger.Error("could not resolve assigned director", map[string]interface{}{
				"organizationId": organizationID,
				"kind":           string(intent.Kind),
				"error":          errString(err),
			})
			return
		}
		userID = resolved
	}

	notification := &placement.Notification{
		ID:                uuid.New().String(),
		UserID:            userID,
		Title:             intent.Title,
		Message:           intent.Message,
		Kind:              intent.Kind,
		RelatedEntityID:   intent.RelatedEntityID,
		RelatedEntityType: intent.RelatedEntityType,
		CreatedAt:         time.Now().UTC(),
	}

	inserted, err := d.repo.InsertIdempotent(ctx, notification)
	if err != nil {
		d.logger.WithError(apperrors.NewDispatchError(err)).Error(
			"notification persist failed", map[string]interface{}{
				"userId": userID,
				"kind":   string(intent.Kind),
			})
		d.recordDispatch(ctx, intent.Kind, "failed")
		return
	}
	if !inserted {
		// the idempotency key matched an earlier dispatch of this transition
		metrics.NotificationsDeduplicated.WithLabelValues(string(intent.Kind)).Inc()
		d.recordDispatch(ctx, intent.Kind, "deduplicated")
		return
	}
	metrics.NotificationsPersisted.WithLabelValues(string(intent.Kind)).Inc()
	d.recordDispatch(ctx, intent.Kind, "persisted")

	d.push(notification, intent.Audience)

	for _, ch := range d.channels {
		if err := ch.Send(ctx, notification); err != nil {
			d.logger.Warn("notification channel failed", map[string]interface{}{
				"channel": ch.Name(),
				"userId":  userID,
				"error":   err.Error(),
			})
		}
	}
}

func (d *Dispatcher) recordDispatch(ctx context.Context, kind placement.NotificationKind, outcome string) {
	if d.obs != nil {
		d.obs.RecordDispatch(ctx, string(kind), outcome)
	}
}

// push attempts a single bounded real-time delivery to the user channel and
// the audience's role channel.
func (d *Dispatcher) push(n *placement.Notification, audience placement.Audience) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PushTimeout)
	defer cancel()

	for _, channel := range []string{userChannel(n.UserID), roleChannel(audience)} {
		metrics.PushAttempts.WithLabelValues(channelClass(channel)).Inc()
		if err := d.pusher.Push(ctx, channel, n); err != nil {
			metrics.PushFailures.WithLabelValues(channelClass(channel)).Inc()
			d.logger.WithError(apperrors.NewPushError(channel, err)).Warn(
				"real-time push failed, persisted row remains", map[string]interface{}{
					"channel": channel,
					"userId":  n.UserID,
				})
		}
	}
}

// channelClass collapses per-user channels into a single metric series; role
// channels are a bounded set and keep their names.
func channelClass(channel string) string {
	if strings.HasPrefix(channel, "user:") {
		return "user"
	}
	return channel
}

func userChannel(userID string) string {
	return "user:" + userID
}

func roleChannel(audience placement.Audience) string {
	switch audience {
	case placement.AudienceStudent:
		return "role:students"
	case placement.AudienceOrganization:
		return "role:organizations"
	case placement.AudienceDirector:
		return "role:directors"
	}
	return "role:unknown"
}

func errString(err error) string {
	if err == nil {
		return "no accepted agreement"
	}
	return err.Error()
}
