// Package engine implements the internship-application lifecycle state
// machine. Apply is a pure function over the aggregate: it validates the
// requested edge, returns the next application state, and yields declarative
// notification intents. It never touches storage or transports.
package engine

import (
	"fmt"
	"time"

	"internship-placement/internal/common/errors"
	"internship-placement/internal/placement"
)

// Action names a lifecycle edge. Application creation is not an engine
// action; it is handled by the service against the offer's availability.
type Action string

const (
	ActionScheduleInterview Action = "SCHEDULE_INTERVIEW"
	ActionEvaluate          Action = "EVALUATE"
	ActionConfirmAttendance Action = "CONFIRM_ATTENDANCE"
	ActionConfirmAcceptance Action = "CONFIRM_ACCEPTANCE"
	ActionIssueLetter       Action = "ISSUE_ACCEPTANCE_LETTER"
	ActionDecideApproval    Action = "DECIDE_APPROVAL"
)

// ParseAction converts a raw string to an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := validSources[a]; ok {
		return a, nil
	}
	return "", fmt.Errorf("unknown lifecycle action %q", s)
}

// validSources lists every status an action may fire from. Terminal states
// appear nowhere, so nothing moves out of ACCEPTED or REJECTED.
var validSources = map[Action][]placement.Status{
	ActionScheduleInterview: {placement.StatusPending},
	ActionEvaluate:          {placement.StatusPending, placement.StatusInterview},
	ActionConfirmAttendance: {placement.StatusInterview},
	ActionConfirmAcceptance: {placement.StatusApproved},
	ActionIssueLetter:       {placement.StatusApproved},
	ActionDecideApproval:    {placement.StatusUnderReview},
}

// requiredRole maps each action to the single role allowed to fire it.
var requiredRole = map[Action]placement.Role{
	ActionScheduleInterview: placement.RoleOrganization,
	ActionEvaluate:          placement.RoleOrganization,
	ActionConfirmAttendance: placement.RoleStudent,
	ActionConfirmAcceptance: placement.RoleStudent,
	ActionIssueLetter:       placement.RoleOrganization,
	ActionDecideApproval:    placement.RoleDirector,
}

// Result is a successful transition: the next aggregate state and the
// intents to dispatch, in order.
type Result struct {
	Application placement.Application
	Intents     []placement.NotificationIntent
}

// Engine evaluates lifecycle transitions.
type Engine struct {
	now func() time.Time
}

func New() *Engine {
	return &Engine{now: func() time.Time { return time.Now().UTC() }}
}

// NewWithClock builds an engine with a fixed clock, used by tests.
func NewWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Apply validates and computes one transition. The input application is
// taken by value and never mutated; on success the returned Result holds
// the advanced copy.
func (e *Engine) Apply(app placement.Application, actor placement.Actor, action Action, payload Payload) (*Result, error) {
	if !e.actionValidFrom(action, app.Status) {
		return nil, errors.NewInvalidTransitionError(string(app.Status), string(action))
	}

	if err := guardRole(actor, requiredRole[action]); err != nil {
		return nil, err
	}

	switch action {
	case ActionScheduleInterview:
		return e.scheduleInterview(app, actor, payload)
	case ActionEvaluate:
		return e.evaluate(app, actor, payload)
	case ActionConfirmAttendance:
		return e.confirmAttendance(app, actor, payload)
	case ActionConfirmAcceptance:
		return e.confirmAcceptance(app, actor, payload)
	case ActionIssueLetter:
		return e.issueLetter(app, actor, payload)
	case ActionDecideApproval:
		return e.decideApproval(app, actor, payload)
	}
	return nil, errors.NewInvalidTransitionError(string(app.Status), string(action))
}

func (e *Engine) actionValidFrom(action Action, status placement.Status) bool {
	for _, s := range validSources[action] {
		if s == status {
			return true
		}
	}
	return false
}

func (e *Engine) scheduleInterview(app placement.Application, actor placement.Actor, payload Payload) (*Result, error) {
	p, ok := payload.(ScheduleInterviewPayload)
	if !ok {
		return nil, errors.NewValidationError("schedule interview requires a schedule payload")
	}
	if err := guardOrganizationOwner(&app, actor); err != nil {
		return nil, err
	}
	if err := validateSchedulePayload(p); err != nil {
		return nil, err
	}

	app.Status = placement.StatusInterview
	app.Interview = &placement.Interview{
		DateTime: p.DateTime,
		Mode:     p.Mode,
		Link:     p.Link,
		Address:  p.Address,
		Notes:    p.Notes,
	}
	app.UpdatedAt = e.now()

	intent := placement.NotificationIntent{
		Audience:          placement.AudienceStudent,
		UserID:            app.StudentID,
		Kind:              placement.KindInterviewScheduled,
		Title:             "Interview scheduled",
		Message:           interviewMessage(app.Interview),
		RelatedEntityID:   app.ID,
		RelatedEntityType: "application",
	}
	return &Result{Application: app, Intents: []placement.NotificationIntent{intent}}, nil
}

func (e *Engine) evaluate(app placement.Application, actor placement.Actor, payload Payload) (*Result, error) {
	p, ok := payload.(EvaluatePayload)
	if !ok {
		return nil, errors.NewValidationError("evaluate requires an evaluation payload")
	}
	if err := guardOrganizationOwner(&app, actor); err != nil {
		return nil, err
	}
	if err := guardAttendanceBeforeEvaluation(&app); err != nil {
		return nil, err
	}
	if err := validateDecision(p.Decision); err != nil {
		return nil, err
	}

	now := e.now()
	app.Evaluation = &placement.Evaluation{
		Decision:  p.Decision,
		Notes:     p.Notes,
		DecidedAt: now,
	}
	app.ReviewedAt = &now
	if p.Decision == placement.DecisionApproved {
		app.Status = placement.StatusApproved
	} else {
		app.Status = placement.StatusRejected
	}
	app.UpdatedAt = now

	intent := placement.NotificationIntent{
		Audience:          placement.AudienceStudent,
		UserID:            app.StudentID,
		Kind:              placement.KindApplicationEvaluated,
		Title:             "Application evaluated",
		Message:           fmt.Sprintf("Your application was %s by the organization.", decisionWord(p.Decision)),
		RelatedEntityID:   app.ID,
		RelatedEntityType: "application",
	}
	return &Result{Application: app, Intents: []placement.NotificationIntent{intent}}, nil
}

func (e *Engine) confirmAttendance(app placement.Application, actor placement.Actor, payload Payload) (*Result, error) {
	p, ok := payload.(ConfirmAttendancePayload)
	if !ok {
		return nil, errors.NewValidationError("confirm attendance requires an attendance payload")
	}
	if err := guardStudentOwner(&app, actor); err != nil {
		return nil, err
	}
	if err := guardAttendanceNotRecorded(&app); err != nil {
		return nil, err
	}

	// Status stays INTERVIEW; only the sub-state advances.
	confirmed := p.WillAttend
	app.AttendanceConfirmed = &confirmed
	app.UpdatedAt = e.now()

	return &Result{Application: app}, nil
}

func (e *Engine) confirmAcceptance(app placement.Application, actor placement.Actor, payload Payload) (*Result, error) {
	if _, ok := payload.(ConfirmAcceptancePayload); !ok {
		return nil, errors.NewValidationError("confirm acceptance takes no payload fields")
	}
	if err := guardStudentOwner(&app, actor); err != nil {
		return nil, err
	}
	if err := guardEvaluationApproved(&app); err != nil {
		return nil, err
	}
	if err := guardAcceptanceNotConfirmed(&app); err != nil {
		return nil, err
	}

	// Status stays APPROVED; the confirmation unlocks letter issuance.
	now := e.now()
	app.StudentAcceptance = placement.StudentAcceptance{
		Confirmed:   true,
		ConfirmedAt: &now,
	}
	app.UpdatedAt = now

	intent := placement.NotificationIntent{
		Audience:          placement.AudienceOrganization,
		UserID:            app.OrganizationID,
		Kind:              placement.KindAcceptanceConfirmed,
		Title:             "Student confirmed acceptance",
		Message:           "The student confirmed the internship placement. You may issue the acceptance letter.",
		RelatedEntityID:   app.ID,
		RelatedEntityType: "application",
	}
	return &Result{Application: app, Intents: []placement.NotificationIntent{intent}}, nil
}

func (e *Engine) issueLetter(app placement.Application, actor placement.Actor, payload Payload) (*Result, error) {
	p, ok := payload.(IssueLetterPayload)
	if !ok {
		return nil, errors.NewValidationError("issue letter requires a letter payload")
	}
	if err := guardOrganizationOwner(&app, actor); err != nil {
		return nil, err
	}
	if err := guardStudentConfirmedBeforeLetter(&app); err != nil {
		return nil, err
	}
	if err := validateLetterPayload(p); err != nil {
		return nil, err
	}

	now := e.now()
	app.Status = placement.StatusUnderReview
	app.AcceptanceLetter = &placement.AcceptanceLetter{
		FilePath: p.FilePath,
		Notes:    p.Notes,
		IssuedAt: now,
	}
	app.UpdatedAt = now

	// The assigned director is resolved at dispatch through the agreement.
	intent := placement.NotificationIntent{
		Audience:          placement.AudienceDirector,
		Kind:              placement.KindLetterIssued,
		Title:             "Acceptance letter issued",
		Message:           "An acceptance letter awaits your final approval.",
		RelatedEntityID:   app.ID,
		RelatedEntityType: "application",
	}
	return &Result{Application: app, Intents: []placement.NotificationIntent{intent}}, nil
}

func (e *Engine) decideApproval(app placement.Application, actor placement.Actor, payload Payload) (*Result, error) {
	p, ok := payload.(DecideApprovalPayload)
	if !ok {
		return nil, errors.NewValidationError("decide approval requires a decision payload")
	}
	if err := guardAssignedDirector(actor, p.AssignedDirectorID); err != nil {
		return nil, err
	}
	if err := guardLetterBeforeDecision(&app); err != nil {
		return nil, err
	}
	if err := validateDecision(p.Decision); err != nil {
		return nil, err
	}

	now := e.now()
	app.DirectorApproval = &placement.DirectorApproval{
		Decision:  p.Decision,
		Notes:     p.Notes,
		DecidedAt: now,
	}
	if p.Decision == placement.DecisionApproved {
		app.Status = placement.StatusAccepted
	} else {
		app.Status = placement.StatusRejected
	}
	app.UpdatedAt = now

	msg := fmt.Sprintf("The academic director %s the placement.", decisionWord(p.Decision))
	intents := []placement.NotificationIntent{
		{
			Audience:          placement.AudienceStudent,
			UserID:            app.StudentID,
			Kind:              placement.KindDecisionIssued,
			Title:             "Final decision issued",
			Message:           msg,
			RelatedEntityID:   app.ID,
			RelatedEntityType: "application",
		},
		{
			Audience:          placement.AudienceOrganization,
			UserID:            app.OrganizationID,
			Kind:              placement.KindDecisionIssued,
			Title:             "Final decision issued",
			Message:           msg,
			RelatedEntityID:   app.ID,
			RelatedEntityType: "application",
		},
	}
	return &Result{Application: app, Intents: intents}, nil
}

func interviewMessage(iv *placement.Interview) string {
	when := iv.DateTime.Format(time.RFC1123)
	if iv.Mode == placement.InterviewVirtual {
		return fmt.Sprintf("An interview was scheduled for %s. Join at: %s", when, iv.Link)
	}
	return fmt.Sprintf("An interview was scheduled for %s at %s.", when, iv.Address)
}

func decisionWord(d placement.Decision) string {
	if d == placement.DecisionApproved {
		return "approved"
	}
	return "rejected"
}
