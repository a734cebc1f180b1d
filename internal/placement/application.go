// Package placement defines the internship-application aggregate and the
// value types shared by the lifecycle engine, repositories, and dispatcher.
package placement

import (
	"fmt"
	"time"
)

// Status is the primary lifecycle field of an application.
//
// Valid status graph:
//
//	PENDING ──► INTERVIEW ──► APPROVED ──► UNDER_REVIEW ──► ACCEPTED
//	    │            │                          │
//	    └────────────┴──► REJECTED ◄────────────┘
//
// PENDING may also move straight to APPROVED/REJECTED when the organization
// evaluates without scheduling an interview. ACCEPTED and REJECTED are
// terminal.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusInterview   Status = "INTERVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusAccepted    Status = "ACCEPTED"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusInterview, StatusApproved, StatusRejected,
		StatusUnderReview, StatusAccepted:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Decision is the outcome of an evaluation or a director ruling. A single
// canonical APPROVED value is used everywhere.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// ParseDecision converts a raw string to a Decision.
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	switch d {
	case DecisionApproved, DecisionRejected:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

// InterviewMode distinguishes virtual from in-person interviews. Virtual
// interviews require a link, in-person ones an address.
type InterviewMode string

const (
	InterviewVirtual  InterviewMode = "VIRTUAL"
	InterviewInPerson InterviewMode = "IN_PERSON"
)

// ParseInterviewMode converts a raw string to an InterviewMode.
func ParseInterviewMode(s string) (InterviewMode, error) {
	m := InterviewMode(s)
	switch m {
	case InterviewVirtual, InterviewInPerson:
		return m, nil
	}
	return "", fmt.Errorf("unknown interview mode %q", s)
}

// Interview holds the schedule the organization set for an applicant.
type Interview struct {
	DateTime time.Time     `json:"dateTime"`
	Mode     InterviewMode `json:"mode"`
	Link     string        `json:"link,omitempty"`
	Address  string        `json:"address,omitempty"`
	Notes    string        `json:"notes,omitempty"`
}

// Evaluation records the organization's verdict. It is set once and kept
// even as the status keeps evolving toward UNDER_REVIEW/ACCEPTED.
type Evaluation struct {
	Decision  Decision  `json:"decision"`
	Notes     string    `json:"notes,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// StudentAcceptance records the student's confirmation of an approved
// application.
type StudentAcceptance struct {
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

// AcceptanceLetter is the document the organization issues once the student
// has confirmed. Settable once.
type AcceptanceLetter struct {
	FilePath string    `json:"filePath"`
	Notes    string    `json:"notes,omitempty"`
	IssuedAt time.Time `json:"issuedAt"`
}

// DirectorApproval is the academic director's final ruling.
type DirectorApproval struct {
	Decision  Decision  `json:"decision"`
	Notes     string    `json:"notes,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Application is the aggregate root governed by the lifecycle engine. It is
// mutated exclusively through engine-approved edges; Version backs the
// optimistic concurrency check on every write.
type Application struct {
	ID             string `json:"id"`
	OfferID        string `json:"offerId"`
	StudentID      string `json:"studentId"`
	OrganizationID string `json:"organizationId"`

	Status              Status             `json:"status"`
	Evaluation          *Evaluation        `json:"evaluation,omitempty"`
	Interview           *Interview         `json:"interview,omitempty"`
	AttendanceConfirmed *bool              `json:"attendanceConfirmed,omitempty"`
	StudentAcceptance   StudentAcceptance  `json:"studentAcceptance"`
	AcceptanceLetter    *AcceptanceLetter  `json:"acceptanceLetter,omitempty"`
	DirectorApproval    *DirectorApproval  `json:"directorApproval,omitempty"`

	CoverLetter string `json:"coverLetter,omitempty"`
	CVFilePath  string `json:"cvFilePath,omitempty"`

	AppliedAt  time.Time  `json:"appliedAt"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	Version int64 `json:"version"`
}

// EvaluationApproved reports whether the organization approved the
// application.
func (a *Application) EvaluationApproved() bool {
	return a.Evaluation != nil && a.Evaluation.Decision == DecisionApproved
}

// AttendanceIsConfirmed reports whether the student confirmed attendance
// with a positive answer.
func (a *Application) AttendanceIsConfirmed() bool {
	return a.AttendanceConfirmed != nil && *a.AttendanceConfirmed
}
