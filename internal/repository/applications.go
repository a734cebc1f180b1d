// Package repository owns durable storage for applications, offers,
// notifications, and agreement requests.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/placement"
)

// uniqueViolation is the PostgreSQL error code raised by the
// (offer_id, student_id) unique index.
const uniqueViolation = "23505"

// ApplicationRepository persists the application aggregate. Every write goes
// through an optimistic version check so concurrent actors on the same row
// are linearized.
type ApplicationRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewApplicationRepository(db *sql.DB, log logger.Logger) *ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "application-repository"}),
	}
}

// Create inserts a new PENDING application. A duplicate (student, offer)
// pair maps to ALREADY_APPLIED.
func (r *ApplicationRepository) Create(ctx context.Context, app *placement.Application) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, offer_id, student_id, organization_id, status,
			cover_letter, cv_file_path, applied_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		app.ID,
		app.OfferID,
		app.StudentID,
		app.OrganizationID,
		string(app.Status),
		app.CoverLetter,
		app.CVFilePath,
		app.AppliedAt,
		app.UpdatedAt,
		app.Version,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return apperrors.NewAlreadyAppliedError(app.StudentID, app.OfferID)
		}
		return apperrors.NewDatabaseError("insert application", err)
	}
	return nil
}

const applicationColumns = `
	id, offer_id, student_id, organization_id, status,
	evaluation, interview, attendance_confirmed, student_acceptance,
	acceptance_letter, director_approval, cover_letter, cv_file_path,
	applied_at, reviewed_at, updated_at, version`

// GetByID loads one application row.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*placement.Application, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM applications WHERE id = $1`, applicationColumns), id)

	app, err := scanApplication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFoundError("application", id)
		}
		return nil, apperrors.NewDatabaseError("get application", err)
	}
	return app, nil
}

// ListByStudent returns the student's applications, newest first.
func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID string) ([]*placement.Application, error) {
	return r.list(ctx, `student_id`, studentID)
}

// ListByOffer returns every application against an offer, newest first.
func (r *ApplicationRepository) ListByOffer(ctx context.Context, offerID string) ([]*placement.Application, error) {
	return r.list(ctx, `offer_id`, offerID)
}

func (r *ApplicationRepository) list(ctx context.Context, column, value string) ([]*placement.Application, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM applications WHERE %s = $1 ORDER BY applied_at DESC`,
		applicationColumns, column), value)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list applications", err)
	}
	defer rows.Close()

	var apps []*placement.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan application", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list applications", err)
	}
	return apps, nil
}

// Update writes the advanced aggregate with a compare-and-swap on the
// version the caller read. Zero rows affected means another actor won the
// race; the caller gets CONFLICT and must re-read.
func (r *ApplicationRepository) Update(ctx context.Context, app *placement.Application, expectedVersion int64) error {
	evaluation, err := marshalNullable(app.Evaluation)
	if err != nil {
		return apperrors.NewDatabaseError("marshal evaluation", err)
	}
	interview, err := marshalNullable(app.Interview)
	if err != nil {
		return apperrors.NewDatabaseError("marshal interview", err)
	}
	acceptance, err := json.Marshal(app.StudentAcceptance)
	if err != nil {
		return apperrors.NewDatabaseError("marshal student acceptance", err)
	}
	letter, err := marshalNullable(app.AcceptanceLetter)
	if err != nil {
		return apperrors.NewDatabaseError("marshal acceptance letter", err)
	}
	approval, err := marshalNullable(app.DirectorApproval)
	if err != nil {
		return apperrors.NewDatabaseError("marshal director approval", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE applications SET
			status = $1,
			evaluation = $2,
			interview = $3,
			attendance_confirmed = $4,
			student_acceptance = $5,
			acceptance_letter = $6,
			director_approval = $7,
			reviewed_at = $8,
			updated_at = $9,
			version = version + 1
		WHERE id = $10 AND version = $11`,
		string(app.Status),
		evaluation,
		interview,
		nullableBool(app.AttendanceConfirmed),
		acceptance,
		letter,
		approval,
		nullableTime(app.ReviewedAt),
		app.UpdatedAt,
		app.ID,
		expectedVersion,
	)
	if err != nil {
		return apperrors.NewDatabaseError("update application", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("update application", err)
	}
	if affected == 0 {
		return apperrors.NewConflictError(app.ID, expectedVersion)
	}

	app.Version = expectedVersion + 1
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*placement.Application, error) {
	var (
		app        placement.Application
		status     string
		evaluation []byte
		interview  []byte
		attendance sql.NullBool
		acceptance []byte
		letter     []byte
		approval   []byte
		reviewedAt sql.NullTime
	)

	err := row.Scan(
		&app.ID, &app.OfferID, &app.StudentID, &app.OrganizationID, &status,
		&evaluation, &interview, &attendance, &acceptance,
		&letter, &approval, &app.CoverLetter, &app.CVFilePath,
		&app.AppliedAt, &reviewedAt, &app.UpdatedAt, &app.Version,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := placement.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	app.Status = parsed

	if err := unmarshalNullable(evaluation, &app.Evaluation); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(interview, &app.Interview); err != nil {
		return nil, err
	}
	if attendance.Valid {
		v := attendance.Bool
		app.AttendanceConfirmed = &v
	}
	if len(acceptance) > 0 {
		if err := json.Unmarshal(acceptance, &app.StudentAcceptance); err != nil {
			return nil, err
		}
	}
	if err := unmarshalNullable(letter, &app.AcceptanceLetter); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(approval, &app.DirectorApproval); err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		app.ReviewedAt = &t
	}

	return &app, nil
}

func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalNullable[T any](data []byte, target **T) error {
	if len(data) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*target = &v
	return nil
}

func nullableBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullableTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
