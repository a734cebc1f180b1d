package engine

import (
	"time"

	"internship-placement/internal/placement"
)

// Payload carries the edge-specific input of a lifecycle action. Each action
// accepts exactly one payload type; the engine rejects mismatches with a
// validation error before touching the application.
type Payload interface {
	isPayload()
}

// ScheduleInterviewPayload schedules an interview for a pending application.
type ScheduleInterviewPayload struct {
	DateTime time.Time
	Mode     placement.InterviewMode
	Link     string
	Address  string
	Notes    string
}

// EvaluatePayload records the organization's verdict.
type EvaluatePayload struct {
	Decision placement.Decision
	Notes    string
}

// ConfirmAttendancePayload records whether the student will attend the
// scheduled interview.
type ConfirmAttendancePayload struct {
	WillAttend bool
}

// ConfirmAcceptancePayload confirms an approved application. It carries no
// fields; the actor and timestamp are everything.
type ConfirmAcceptancePayload struct{}

// IssueLetterPayload attaches the acceptance letter document.
type IssueLetterPayload struct {
	FilePath string
	Notes    string
}

// DecideApprovalPayload is the director's final ruling. AssignedDirectorID
// is resolved by the caller through the organization's accepted agreement
// and checked against the acting director.
type DecideApprovalPayload struct {
	Decision           placement.Decision
	Notes              string
	AssignedDirectorID string
}

func (ScheduleInterviewPayload) isPayload() {}
func (EvaluatePayload) isPayload()          {}
func (ConfirmAttendancePayload) isPayload() {}
func (ConfirmAcceptancePayload) isPayload() {}
func (IssueLetterPayload) isPayload()       {}
func (DecideApprovalPayload) isPayload()    {}
