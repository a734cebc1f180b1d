package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/placement"
)

// RequestAgreement opens a pending agreement between the acting organization
// and the named director.
func (s *ApplicationService) RequestAgreement(ctx context.Context, actor placement.Actor, directorID, notes string) (*placement.AgreementRequest, error) {
	if actor.Role != placement.RoleOrganization {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "only organizations request agreements")
	}
	if directorID == "" {
		return nil, apperrors.NewValidationError("directorId is required")
	}

	req := &placement.AgreementRequest{
		ID:             uuid.New().String(),
		OrganizationID: actor.ID,
		DirectorID:     directorID,
		Status:         placement.AgreementPending,
		Notes:          notes,
		RequestedAt:    time.Now().UTC(),
	}
	if err := s.agreements.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("agreement requested", map[string]interface{}{
		"agreementId":    req.ID,
		"organizationId": actor.ID,
		"directorId":     directorID,
	})
	return req, nil
}

// DecideAgreement accepts or rejects a pending agreement addressed to the
// acting director. Acceptance makes the director the signing authority for
// the organization's placements.
func (s *ApplicationService) DecideAgreement(ctx context.Context, actor placement.Actor, agreementID string, accept bool) (*placement.AgreementRequest, error) {
	if actor.Role != placement.RoleDirector {
		return nil, apperrors.NewUnauthorizedError(apperrors.GuardRole, "only directors decide agreements")
	}

	req, err := s.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, err
	}

	status := placement.AgreementRejected
	if accept {
		status = placement.AgreementAccepted
	}
	now := time.Now().UTC()

	if err := s.agreements.Decide(ctx, agreementID, actor.ID, status, now); err != nil {
		return nil, err
	}

	req.Status = status
	req.DecidedAt = &now

	// the gate caches the assigned director per organization
	s.gate.Invalidate(ctx, req.OrganizationID)

	s.logger.Info("agreement decided", map[string]interface{}{
		"agreementId":    agreementID,
		"organizationId": req.OrganizationID,
		"status":         string(status),
	})
	return req, nil
}
