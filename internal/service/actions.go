package service

import (
	"context"
	"time"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/engine"
	"internship-placement/internal/placement"
	"internship-placement/pkg/registry"
)

// ApplyAction is the dynamic entry point used by transport adapters: the
// action id and a raw JSON payload come off the wire, are checked against
// the action registry, and are decoded into the engine's typed payloads.
func (s *ApplicationService) ApplyAction(ctx context.Context, actor placement.Actor, applicationID, actionID string, raw map[string]interface{}) (*placement.Application, error) {
	if s.registry != nil {
		if err := s.registry.ValidatePayload(actionID, raw); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}

	action, err := engine.ParseAction(actionID)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	switch action {
	case engine.ActionScheduleInterview:
		payload, err := decodeSchedulePayload(raw)
		if err != nil {
			return nil, err
		}
		return s.ScheduleInterview(ctx, actor, applicationID, payload)
	case engine.ActionEvaluate:
		decision, err := decodeDecision(raw)
		if err != nil {
			return nil, err
		}
		return s.Evaluate(ctx, actor, applicationID, engine.EvaluatePayload{
			Decision: decision,
			Notes:    stringField(raw, "notes"),
		})
	case engine.ActionConfirmAttendance:
		willAttend, _ := raw["willAttend"].(bool)
		return s.ConfirmAttendance(ctx, actor, applicationID, engine.ConfirmAttendancePayload{
			WillAttend: willAttend,
		})
	case engine.ActionConfirmAcceptance:
		return s.ConfirmAcceptance(ctx, actor, applicationID)
	case engine.ActionIssueLetter:
		return s.IssueAcceptanceLetter(ctx, actor, applicationID, engine.IssueLetterPayload{
			FilePath: stringField(raw, "filePath"),
			Notes:    stringField(raw, "notes"),
		})
	case engine.ActionDecideApproval:
		decision, err := decodeDecision(raw)
		if err != nil {
			return nil, err
		}
		return s.DecideApproval(ctx, actor, applicationID, decision, stringField(raw, "notes"))
	}
	return nil, apperrors.NewValidationError("unknown action " + actionID)
}

// Registry exposes the loaded action catalog, for transports that list the
// available actions.
func (s *ApplicationService) Registry() *registry.ActionRegistry {
	return s.registry
}

func decodeSchedulePayload(raw map[string]interface{}) (engine.ScheduleInterviewPayload, error) {
	var payload engine.ScheduleInterviewPayload

	dateTime, err := time.Parse(time.RFC3339, stringField(raw, "dateTime"))
	if err != nil {
		return payload, apperrors.NewValidationError("dateTime must be RFC 3339")
	}
	mode, err := placement.ParseInterviewMode(stringField(raw, "mode"))
	if err != nil {
		return payload, apperrors.NewValidationError(err.Error())
	}

	payload.DateTime = dateTime
	payload.Mode = mode
	payload.Link = stringField(raw, "link")
	payload.Address = stringField(raw, "address")
	payload.Notes = stringField(raw, "notes")
	return payload, nil
}

func decodeDecision(raw map[string]interface{}) (placement.Decision, error) {
	decision, err := placement.ParseDecision(stringField(raw, "decision"))
	if err != nil {
		return "", apperrors.NewValidationError(err.Error())
	}
	return decision, nil
}

func stringField(raw map[string]interface{}, key string) string {
	s, _ := raw[key].(string)
	return s
}
