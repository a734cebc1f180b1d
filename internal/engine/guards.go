package engine

import (
	"fmt"

	"internship-placement/internal/common/errors"
	"internship-placement/internal/placement"
)

// Guards are evaluated per edge in a fixed order: role, ownership,
// prerequisite sub-state, payload shape. The first failure wins and names
// the guard so clients can explain the next required step.

func guardRole(actor placement.Actor, required placement.Role) error {
	if actor.Role != required {
		return errors.NewUnauthorizedError(errors.GuardRole,
			fmt.Sprintf("action requires role %s, actor has role %s", required, actor.Role))
	}
	return nil
}

func guardStudentOwner(app *placement.Application, actor placement.Actor) error {
	if actor.ID != app.StudentID {
		return errors.NewUnauthorizedError(errors.GuardOwnership,
			fmt.Sprintf("application %s does not belong to student %s", app.ID, actor.ID))
	}
	return nil
}

func guardOrganizationOwner(app *placement.Application, actor placement.Actor) error {
	if actor.ID != app.OrganizationID {
		return errors.NewUnauthorizedError(errors.GuardOwnership,
			fmt.Sprintf("offer %s does not belong to organization %s", app.OfferID, actor.ID))
	}
	return nil
}

// guardAssignedDirector checks the acting director against the director
// named by the organization's accepted agreement.
func guardAssignedDirector(actor placement.Actor, assignedDirectorID string) error {
	if assignedDirectorID == "" || actor.ID != assignedDirectorID {
		return errors.NewUnauthorizedError(errors.GuardOwnership,
			fmt.Sprintf("director %s is not assigned to this organization's agreement", actor.ID))
	}
	return nil
}

func guardAttendanceBeforeEvaluation(app *placement.Application) error {
	if app.Interview != nil && !app.AttendanceIsConfirmed() {
		return errors.NewPreconditionFailedError(
			"interview attendance must be confirmed before evaluation")
	}
	return nil
}

func guardAttendanceNotRecorded(app *placement.Application) error {
	if app.Interview == nil {
		return errors.NewPreconditionFailedError(
			"no interview is scheduled for this application")
	}
	if app.AttendanceConfirmed != nil {
		return errors.NewPreconditionFailedError(
			"interview attendance has already been recorded")
	}
	return nil
}

func guardEvaluationApproved(app *placement.Application) error {
	if !app.EvaluationApproved() {
		return errors.NewPreconditionFailedError(
			"application must be evaluated as approved first")
	}
	return nil
}

func guardAcceptanceNotConfirmed(app *placement.Application) error {
	if app.StudentAcceptance.Confirmed {
		return errors.NewPreconditionFailedError(
			"acceptance has already been confirmed")
	}
	return nil
}

func guardStudentConfirmedBeforeLetter(app *placement.Application) error {
	if err := guardEvaluationApproved(app); err != nil {
		return err
	}
	if !app.StudentAcceptance.Confirmed {
		return errors.NewPreconditionFailedError(
			"student must confirm acceptance before the letter is issued")
	}
	if app.AcceptanceLetter != nil {
		return errors.NewPreconditionFailedError(
			"acceptance letter has already been issued")
	}
	return nil
}

func guardLetterBeforeDecision(app *placement.Application) error {
	if app.AcceptanceLetter == nil {
		return errors.NewPreconditionFailedError(
			"acceptance letter must be issued before the director decides")
	}
	return nil
}

func validateSchedulePayload(p ScheduleInterviewPayload) error {
	if p.DateTime.IsZero() {
		return errors.NewValidationError("interview dateTime is required")
	}
	switch p.Mode {
	case placement.InterviewVirtual:
		if p.Link == "" {
			return errors.NewValidationError("virtual interviews require a link")
		}
	case placement.InterviewInPerson:
		if p.Address == "" {
			return errors.NewValidationError("in-person interviews require an address")
		}
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown interview mode %q", p.Mode))
	}
	return nil
}

func validateDecision(d placement.Decision) error {
	if d != placement.DecisionApproved && d != placement.DecisionRejected {
		return errors.NewValidationError(fmt.Sprintf("unknown decision %q", d))
	}
	return nil
}

func validateLetterPayload(p IssueLetterPayload) error {
	if p.FilePath == "" {
		return errors.NewValidationError("acceptance letter file path is required")
	}
	return nil
}
