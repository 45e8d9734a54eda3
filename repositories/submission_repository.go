package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/alumni-network/models"
)

var (
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrSubmissionPendingExists = errors.New("owner already has a pending submission")
	// ErrSubmissionNotPending - условное обновление не нашло строку в состоянии PENDING.
	ErrSubmissionNotPending = errors.New("submission is not pending")
)

type ListSubmissionsFilter struct {
	Status *models.SubmissionStatus
	Field  *models.Field
	Limit  int
	Offset int
}

type SubmissionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, s *models.Submission) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Submission, error)
	FindPendingByOwner(ctx context.Context, ownerID int) (*models.Submission, error)
	ListByOwner(ctx context.Context, ownerID int) ([]models.Submission, error)
	List(ctx context.Context, filter ListSubmissionsFilter) ([]models.Submission, error)
	CountPending(ctx context.Context, field *models.Field) (int, error)
	MarkApproved(ctx context.Context, exec SQLExecutor, id, reviewerID int, at time.Time) error
	MarkRejected(ctx context.Context, exec SQLExecutor, id, reviewerID int, reason string, at time.Time) error
	// SetPhoto меняет фото, пока заявка ещё PENDING.
	SetPhoto(ctx context.Context, id int, url, key string) error
}

type sqlSubmissionRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLSubmissionRepository(db *sql.DB, dialect Dialect) SubmissionRepository {
	return &sqlSubmissionRepository{db: db, dialect: dialect}
}

func (r *sqlSubmissionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const submissionColumns = `id, owner_id, full_name, calling_name, nickname, field, country, address, workplace,
	phone, contact_email, batch, photo_url, photo_key, status, rejection_reason, reviewed_by, reviewed_at, created_at`

func (r *sqlSubmissionRepository) Create(ctx context.Context, exec SQLExecutor, s *models.Submission) error {
	query := r.dialect.Rebind(`
		INSERT INTO submissions (owner_id, full_name, calling_name, nickname, field, country, address, workplace,
			phone, contact_email, batch, photo_url, photo_key, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		s.OwnerID, s.FullName, s.CallingName, s.Nickname, s.Field, s.Country, s.Address, s.Workplace,
		s.Phone, s.ContactEmail, s.Batch, s.PhotoURL, s.PhotoKey, s.Status, s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSubmissionPendingExists
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *sqlSubmissionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Submission, error) {
	query := r.dialect.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE id = ?`)
	return r.scanSubmission(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *sqlSubmissionRepository) FindPendingByOwner(ctx context.Context, ownerID int) (*models.Submission, error) {
	query := r.dialect.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE owner_id = ? AND status = ?`)
	return r.scanSubmission(r.db.QueryRowContext(ctx, query, ownerID, models.SubmissionPending))
}

func (r *sqlSubmissionRepository) ListByOwner(ctx context.Context, ownerID int) ([]models.Submission, error) {
	query := r.dialect.Rebind(`SELECT ` + submissionColumns + ` FROM submissions WHERE owner_id = ? ORDER BY created_at DESC, id DESC`)
	return r.list(ctx, query, ownerID)
}

func (r *sqlSubmissionRepository) List(ctx context.Context, filter ListSubmissionsFilter) ([]models.Submission, error) {
	var queryBuilder strings.Builder
	args := []interface{}{}

	queryBuilder.WriteString(`SELECT ` + submissionColumns + ` FROM submissions WHERE 1=1`)
	if filter.Status != nil {
		queryBuilder.WriteString(" AND status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Field != nil {
		queryBuilder.WriteString(" AND field = ?")
		args = append(args, *filter.Field)
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")
	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}

	return r.list(ctx, r.dialect.Rebind(queryBuilder.String()), args...)
}

func (r *sqlSubmissionRepository) CountPending(ctx context.Context, field *models.Field) (int, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE status = ?`
	args := []interface{}{models.SubmissionPending}
	if field != nil {
		query += " AND field = ?"
		args = append(args, *field)
	}
	var count int
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending submissions: %w", err)
	}
	return count, nil
}

// MarkApproved - переход PENDING -> APPROVED условным обновлением.
func (r *sqlSubmissionRepository) MarkApproved(ctx context.Context, exec SQLExecutor, id, reviewerID int, at time.Time) error {
	query := r.dialect.Rebind(`
		UPDATE submissions SET status = ?, reviewed_by = ?, reviewed_at = ?
		WHERE id = ? AND status = ?`)
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		models.SubmissionApproved, reviewerID, at, id, models.SubmissionPending)
	if err != nil {
		return fmt.Errorf("failed to approve submission: %w", err)
	}
	return checkAffectedRows(result, ErrSubmissionNotPending)
}

// MarkRejected - переход PENDING -> REJECTED условным обновлением.
func (r *sqlSubmissionRepository) MarkRejected(ctx context.Context, exec SQLExecutor, id, reviewerID int, reason string, at time.Time) error {
	query := r.dialect.Rebind(`
		UPDATE submissions SET status = ?, rejection_reason = ?, reviewed_by = ?, reviewed_at = ?
		WHERE id = ? AND status = ?`)
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		models.SubmissionRejected, reason, reviewerID, at, id, models.SubmissionPending)
	if err != nil {
		return fmt.Errorf("failed to reject submission: %w", err)
	}
	return checkAffectedRows(result, ErrSubmissionNotPending)
}

func (r *sqlSubmissionRepository) SetPhoto(ctx context.Context, id int, url, key string) error {
	query := r.dialect.Rebind(`UPDATE submissions SET photo_url = ?, photo_key = ? WHERE id = ? AND status = ?`)
	result, err := r.db.ExecContext(ctx, query, url, key, id, models.SubmissionPending)
	if err != nil {
		return fmt.Errorf("failed to set submission photo: %w", err)
	}
	return checkAffectedRows(result, ErrSubmissionNotPending)
}

func (r *sqlSubmissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]models.Submission, 0)
	for rows.Next() {
		s, err := r.scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}
	return submissions, nil
}

func (r *sqlSubmissionRepository) scanSubmission(row rowScanner) (*models.Submission, error) {
	s := &models.Submission{}
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.FullName, &s.CallingName, &s.Nickname, &s.Field, &s.Country, &s.Address,
		&s.Workplace, &s.Phone, &s.ContactEmail, &s.Batch, &s.PhotoURL, &s.PhotoKey, &s.Status,
		&s.RejectionReason, &s.ReviewedBy, &s.ReviewedAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	return s, nil
}
