package repository

import (
	"context"
	"database/sql"
	"time"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/placement"
)

// OfferRepository persists internship offers.
type OfferRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewOfferRepository(db *sql.DB, log logger.Logger) *OfferRepository {
	return &OfferRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "offer-repository"}),
	}
}

func (r *OfferRepository) Create(ctx context.Context, offer *placement.Offer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO offers (
			id, organization_id, title, description, field, location,
			modality, vacancies, state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		offer.ID,
		offer.OrganizationID,
		offer.Title,
		offer.Description,
		offer.Field,
		offer.Location,
		offer.Modality,
		offer.Vacancies,
		string(offer.State),
		offer.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("insert offer", err)
	}
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id string) (*placement.Offer, error) {
	var (
		offer       placement.Offer
		state       string
		publishedAt sql.NullTime
		closedAt    sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, title, description, field, location,
		       modality, vacancies, state, published_at, closed_at, created_at
		FROM offers WHERE id = $1`, id).Scan(
		&offer.ID, &offer.OrganizationID, &offer.Title, &offer.Description,
		&offer.Field, &offer.Location, &offer.Modality, &offer.Vacancies,
		&state, &publishedAt, &closedAt, &offer.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFoundError("offer", id)
		}
		return nil, apperrors.NewDatabaseError("get offer", err)
	}

	offer.State = placement.OfferState(state)
	if publishedAt.Valid {
		t := publishedAt.Time
		offer.PublishedAt = &t
	}
	if closedAt.Valid {
		t := closedAt.Time
		offer.ClosedAt = &t
	}
	return &offer, nil
}

// SetState moves an offer between DRAFT/OPEN/CLOSED and stamps the matching
// timestamp.
func (r *OfferRepository) SetState(ctx context.Context, offerID string, state placement.OfferState, at time.Time) error {
	column := ""
	switch state {
	case placement.OfferOpen:
		column = "published_at"
	case placement.OfferClosed:
		column = "closed_at"
	}

	var res sql.Result
	var err error
	if column == "" {
		res, err = r.db.ExecContext(ctx,
			`UPDATE offers SET state = $1 WHERE id = $2`, string(state), offerID)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE offers SET state = $1, `+column+` = $2 WHERE id = $3`,
			string(state), at, offerID)
	}
	if err != nil {
		return apperrors.NewDatabaseError("set offer state", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("set offer state", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("offer", offerID)
	}
	return nil
}

// ListByOrganization returns the organization's offers, newest first.
func (r *OfferRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*placement.Offer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, organization_id, title, description, field, location,
		       modality, vacancies, state, published_at, closed_at, created_at
		FROM offers WHERE organization_id = $1 ORDER BY created_at DESC`, organizationID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list offers", err)
	}
	defer rows.Close()

	var offers []*placement.Offer
	for rows.Next() {
		var (
			offer       placement.Offer
			state       string
			publishedAt sql.NullTime
			closedAt    sql.NullTime
		)
		if err := rows.Scan(
			&offer.ID, &offer.OrganizationID, &offer.Title, &offer.Description,
			&offer.Field, &offer.Location, &offer.Modality, &offer.Vacancies,
			&state, &publishedAt, &closedAt, &offer.CreatedAt,
		); err != nil {
			return nil, apperrors.NewDatabaseError("scan offer", err)
		}
		offer.State = placement.OfferState(state)
		if publishedAt.Valid {
			t := publishedAt.Time
			offer.PublishedAt = &t
		}
		if closedAt.Valid {
			t := closedAt.Time
			offer.ClosedAt = &t
		}
		offers = append(offers, &offer)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list offers", err)
	}
	return offers, nil
}
