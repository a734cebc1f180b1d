// Package service orchestrates the placement lifecycle: it loads aggregates,
// runs the transition engine, commits with an optimistic concurrency check,
// and hands notification intents to the dispatcher. All authorization and
// state rules live in the engine; the service only sequences them.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"internship-placement/internal/agreement"
	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/common/metrics"
	"internship-placement/internal/common/observability"
	"internship-placement/internal/engine"
	"internship-placement/internal/placement"
	"internship-placement/internal/repository"
	"internship-placement/internal/search"
	"internship-placement/pkg/registry"
)

// Dispatcher receives the intents of a committed transition. Implementations
// must not block the caller.
type Dispatcher interface {
	Dispatch(organizationID string, intents []placement.NotificationIntent)
}

// OfferIndexer keeps the search view of offers in step with Postgres and
// answers faceted queries against it.
type OfferIndexer interface {
	IndexOffer(ctx context.Context, offer *placement.Offer) error
	RemoveOffer(ctx context.Context, offerID string) error
	SearchOffers(ctx context.Context, q search.OfferQuery) ([]*placement.Offer, error)
}

type ApplicationService struct {
	apps       *repository.ApplicationRepository
	offers     *repository.OfferRepository
	agreements *repository.AgreementRepository
	inbox      *repository.NotificationRepository
	engine     *engine.Engine
	gate       *agreement.Gate
	dispatcher Dispatcher
	index      OfferIndexer
	registry   *registry.ActionRegistry
	obs        *observability.Observability
	logger     logger.Logger
}

type Options struct {
	Applications  *repository.ApplicationRepository
	Offers        *repository.OfferRepository
	Agreements    *repository.AgreementRepository
	Notifications *repository.NotificationRepository
	Engine        *engine.Engine
	Gate          *agreement.Gate
	Dispatcher    Dispatcher
	OfferIndex    OfferIndexer
	Registry      *registry.ActionRegistry
	Observability *observability.Observability
	Logger        logger.Logger
}

func New(opts Options) *ApplicationService {
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	eng := opts.Engine
	if eng == nil {
		eng = engine.New()
	}
	return &ApplicationService{
		apps:       opts.Applications,
		offers:     opts.Offers,
		agreements: opts.Agreements,
		inbox:      opts.Notifications,
		engine:     eng,
		gate:       opts.Gate,
		dispatcher: opts.Dispatcher,
		index:      opts.OfferIndex,
		registry:   opts.Registry,
		obs:        opts.Observability,
		logger:     log.WithFields(map[string]interface{}{"component": "application-service"}),
	}
}

// ApplyInput is the student's application to one offer.
type ApplyInput struct {
	OfferID     string `json:"offerId"`
	CoverLetter string `json:"coverLetter"`
	CVFilePath  string `json:"cvFilePath"`
}

// Apply creates a PENDING application. The offer must be OPEN and the
// student must not already hold an application for it.
func (s *ApplicationService) Apply(ctx context.Context, actor placement.Actor, in ApplyInput) (*placement.Application, error) {
	if actor.Role != placement.RoleStudent {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "only students may apply to offers")
	}

	offer, err := s.offers.GetByID(ctx, in.OfferID)
	if err != nil {
		return nil, err
	}
	if !offer.AcceptsApplications() {
		return nil, apperrors.NewOfferUnavailableError(offer.ID)
	}

	now := time.Now().UTC()
	app := &placement.Application{
		ID:             uuid.New().String(),
		OfferID:        offer.ID,
		StudentID:      actor.ID,
		OrganizationID: offer.OrganizationID,
		Status:         placement.StatusPending,
		CoverLetter:    in.CoverLetter,
		CVFilePath:     in.CVFilePath,
		AppliedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}

	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	s.logger.Info("application created", map[string]interface{}{
		"applicationId": app.ID,
		"offerId":       offer.ID,
		"studentId":     actor.ID,
	})
	return app, nil
}

// ScheduleInterview moves a pending application into INTERVIEW.
func (s *ApplicationService) ScheduleInterview(ctx context.Context, actor placement.Actor, applicationID string, payload engine.ScheduleInterviewPayload) (*placement.Application, error) {
	return s.transition(ctx, actor, applicationID, engine.ActionScheduleInterview, payload)
}

// Evaluate records the organization's verdict from PENDING or INTERVIEW.
func (s *ApplicationService) Evaluate(ctx context.Context, actor placement.Actor, applicationID string, payload engine.EvaluatePayload) (*placement.Application, error) {
	return s.transition(ctx, actor, applicationID, engine.ActionEvaluate, payload)
}

// ConfirmAttendance records the student's answer for a scheduled interview.
func (s *ApplicationService) ConfirmAttendance(ctx context.Context, actor placement.Actor, applicationID string, payload engine.ConfirmAttendancePayload) (*placement.Application, error) {
	return s.transition(ctx, actor, applicationID, engine.ActionConfirmAttendance, payload)
}

// ConfirmAcceptance records the student's confirmation of an approval.
func (s *ApplicationService) ConfirmAcceptance(ctx context.Context, actor placement.Actor, applicationID string) (*placement.Application, error) {
	return s.transition(ctx, actor, applicationID, engine.ActionConfirmAcceptance, engine.ConfirmAcceptancePayload{})
}

// IssueAcceptanceLetter attaches the letter and sends the application to the
// director for review.
func (s *ApplicationService) IssueAcceptanceLetter(ctx context.Context, actor placement.Actor, applicationID string, payload engine.IssueLetterPayload) (*placement.Application, error) {
	return s.transition(ctx, actor, applicationID, engine.ActionIssueLetter, payload)
}

// DecideApproval applies the director's final ruling. The assigned director
// is resolved from the organization's accepted agreement so the engine can
// check the acting director against it.
func (s *ApplicationService) DecideApproval(ctx context.Context, actor placement.Actor, applicationID string, decision placement.Decision, notes string) (*placement.Application, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	assigned, err := s.gate.AssignedDirector(ctx, app.OrganizationID)
	if err != nil {
		return nil, err
	}

	payload := engine.DecideApprovalPayload{
		Decision:           decision,
		Notes:              notes,
		AssignedDirectorID: assigned,
	}
	return s.commit(ctx, actor, app, engine.ActionDecideApproval, payload)
}

// transition loads the aggregate and commits one engine-approved edge.
func (s *ApplicationService) transition(ctx context.Context, actor placement.Actor, applicationID string, action engine.Action, payload engine.Payload) (*placement.Application, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, actor, app, action, payload)
}

func (s *ApplicationService) commit(ctx context.Context, actor placement.Actor, app *placement.Application, action engine.Action, payload engine.Payload) (*placement.Application, error) {
	start := time.Now()

	res, err := s.engine.Apply(*app, actor, action, payload)
	if err != nil {
		metrics.TransitionsRejected.WithLabelValues(string(action), string(apperrors.CodeOf(err))).Inc()
		return nil, err
	}

	next := res.Application
	next.UpdatedAt = time.Now().UTC()

	// the version loaded above is the fencing token; a concurrent writer
	// surfaces here as CONFLICT, never as a lost update
	if err := s.apps.Update(ctx, &next, app.Version); err != nil {
		metrics.TransitionsRejected.WithLabelValues(string(action), string(apperrors.CodeOf(err))).Inc()
		return nil, err
	}

	metrics.TransitionsApplied.WithLabelValues(string(action)).Inc()
	metrics.TransitionDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
	if s.obs != nil {
		s.obs.RecordTransition(ctx, string(action), string(next.Status))
		s.obs.RecordTransitionDuration(ctx, time.Since(start), string(action))
	}

	if s.dispatcher != nil && len(res.Intents) > 0 {
		s.dispatcher.Dispatch(next.OrganizationID, res.Intents)
	}

	s.logger.Info("transition committed", map[string]interface{}{
		"applicationId": next.ID,
		"action":        string(action),
		"status":        string(next.Status),
		"version":       next.Version,
	})
	return &next, nil
}

// GetApplication returns the aggregate to a party involved in it. Directors
// see every application.
func (s *ApplicationService) GetApplication(ctx context.Context, actor placement.Actor, applicationID string) (*placement.Application, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case placement.RoleStudent:
		if app.StudentID != actor.ID {
			return nil, apperrors.NewUnauthorizedError(apperrors.GuardOwnership, "application belongs to another student")
		}
	case placement.RoleOrganization:
		if app.OrganizationID != actor.ID {
			return nil, apperrors.NewUnauthorizedError(apperrors.GuardOwnership, "application belongs to another organization")
		}
	}
	return app, nil
}

// ListMyApplications returns the student's applications.
func (s *ApplicationService) ListMyApplications(ctx context.Context, actor placement.Actor) ([]*placement.Application, error) {
	if actor.Role != placement.RoleStudent {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "only students list their own applications")
	}
	return s.apps.ListByStudent(ctx, actor.ID)
}

// ListOfferApplications returns the applications to one of the acting
// organization's offers.
func (s *ApplicationService) ListOfferApplications(ctx context.Context, actor placement.Actor, offerID string) ([]*placement.Application, error) {
	if actor.Role != placement.RoleOrganization {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "only organizations list offer applications")
	}
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.OrganizationID != actor.ID {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardOwnership, "offer belongs to another organization")
	}
	return s.apps.ListByOffer(ctx, offerID)
}
