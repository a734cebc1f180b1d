package repository

import (
	"context"
	"database/sql"
	"time"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/placement"
)

// AgreementRepository persists the organization/director agreement requests
// backing the AgreementGate.
type AgreementRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewAgreementRepository(db *sql.DB, log logger.Logger) *AgreementRepository {
	return &AgreementRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "agreement-repository"}),
	}
}

func (r *AgreementRepository) Create(ctx context.Context, req *placement.AgreementRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agreement_requests (
			id, organization_id, director_id, status, notes, requested_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID,
		req.OrganizationID,
		req.DirectorID,
		string(req.Status),
		req.Notes,
		req.RequestedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("insert agreement request", err)
	}
	return nil
}

func (r *AgreementRepository) GetByID(ctx context.Context, id string) (*placement.AgreementRequest, error) {
	var (
		req       placement.AgreementRequest
		status    string
		decidedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, director_id, status, notes, requested_at, decided_at
		FROM agreement_requests WHERE id = $1`, id).Scan(
		&req.ID, &req.OrganizationID, &req.DirectorID, &status,
		&req.Notes, &req.RequestedAt, &decidedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFoundError("agreement request", id)
		}
		return nil, apperrors.NewDatabaseError("get agreement request", err)
	}

	parsed, err := placement.ParseAgreementStatus(status)
	if err != nil {
		return nil, apperrors.NewDatabaseError("parse agreement status", err)
	}
	req.Status = parsed
	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}
	return &req, nil
}

// Decide moves a PENDING request to ACCEPTED or REJECTED. Only the director
// the request names may decide, and only once: a non-pending row is not
// matched and surfaces as CONFLICT.
func (r *AgreementRepository) Decide(ctx context.Context, id, directorID string, status placement.AgreementStatus, at time.Time) error {
	if status != placement.AgreementAccepted && status != placement.AgreementRejected {
		return apperrors.NewValidationError("agreement decision must be ACCEPTED or REJECTED")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE agreement_requests
		SET status = $1, decided_at = $2
		WHERE id = $3 AND director_id = $4 AND status = $5`,
		string(status), at, id, directorID, string(placement.AgreementPending))
	if err != nil {
		return apperrors.NewDatabaseError("decide agreement request", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("decide agreement request", err)
	}
	if affected == 0 {
		return apperrors.NewConflictError(id, 0)
	}
	return nil
}

// AcceptedDirector returns the director named by the organization's accepted
// agreement, or "" when no accepted agreement exists.
func (r *AgreementRepository) AcceptedDirector(ctx context.Context, organizationID string) (string, error) {
	var directorID string
	err := r.db.QueryRowContext(ctx, `
		SELECT director_id FROM agreement_requests
		WHERE organization_id = $1 AND status = $2
		ORDER BY decided_at DESC LIMIT 1`,
		organizationID, string(placement.AgreementAccepted)).Scan(&directorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", apperrors.NewDatabaseError("resolve accepted director", err)
	}
	return directorID, nil
}
