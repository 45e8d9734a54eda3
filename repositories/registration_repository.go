package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/alumni-network/models"
)

var (
	ErrRegistrationNotFound = errors.New("event registration not found")
	ErrRegistrationConflict = errors.New("user is already registered for this event")
	// ErrRegistrationNotCancelable - строка есть, но посещаемость уже отмечена.
	ErrRegistrationNotCancelable = errors.New("registration already has attendance marked")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.EventRegistration) error
	Get(ctx context.Context, exec SQLExecutor, eventID, userID int) (*models.EventRegistration, error)
	// DeleteRegistered удаляет строку, только пока она в статусе REGISTERED.
	DeleteRegistered(ctx context.Context, exec SQLExecutor, eventID, userID int) error
	UpdateAttendance(ctx context.Context, eventID, userID int, status models.AttendanceStatus, markedBy int, at time.Time) error
	ListByEvent(ctx context.Context, eventID int) ([]models.EventRegistration, error)
	ListByUser(ctx context.Context, userID int) ([]models.EventRegistration, error)
}

type sqlRegistrationRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLRegistrationRepository(db *sql.DB, dialect Dialect) RegistrationRepository {
	return &sqlRegistrationRepository{db: db, dialect: dialect}
}

func (r *sqlRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const registrationColumns = `event_id, user_id, attendance_status, registered_at, marked_at, marked_by`

func (r *sqlRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.EventRegistration) error {
	query := r.dialect.Rebind(`
		INSERT INTO event_registrations (event_id, user_id, attendance_status, registered_at)
		VALUES (?, ?, ?, ?)`)
	_, err := r.getExecutor(exec).ExecContext(ctx, query, reg.EventID, reg.UserID, reg.AttendanceStatus, reg.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRegistrationConflict
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *sqlRegistrationRepository) Get(ctx context.Context, exec SQLExecutor, eventID, userID int) (*models.EventRegistration, error) {
	query := r.dialect.Rebind(`SELECT ` + registrationColumns + ` FROM event_registrations WHERE event_id = ? AND user_id = ?`)
	reg := &models.EventRegistration{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, eventID, userID).Scan(
		&reg.EventID, &reg.UserID, &reg.AttendanceStatus, &reg.RegisteredAt, &reg.MarkedAt, &reg.MarkedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

func (r *sqlRegistrationRepository) DeleteRegistered(ctx context.Context, exec SQLExecutor, eventID, userID int) error {
	executor := r.getExecutor(exec)
	query := r.dialect.Rebind(`DELETE FROM event_registrations WHERE event_id = ? AND user_id = ? AND attendance_status = ?`)
	result, err := executor.ExecContext(ctx, query, eventID, userID, models.AttendanceRegistered)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	if err := checkAffectedRows(result, ErrRegistrationNotFound); err != nil {
		if !errors.Is(err, ErrRegistrationNotFound) {
			return err
		}
		if _, getErr := r.Get(ctx, executor, eventID, userID); getErr == nil {
			return ErrRegistrationNotCancelable
		}
		return ErrRegistrationNotFound
	}
	return nil
}

func (r *sqlRegistrationRepository) UpdateAttendance(ctx context.Context, eventID, userID int, status models.AttendanceStatus, markedBy int, at time.Time) error {
	query := r.dialect.Rebind(`
		UPDATE event_registrations SET attendance_status = ?, marked_by = ?, marked_at = ?
		WHERE event_id = ? AND user_id = ?`)
	result, err := r.db.ExecContext(ctx, query, status, markedBy, at, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *sqlRegistrationRepository) ListByEvent(ctx context.Context, eventID int) ([]models.EventRegistration, error) {
	query := r.dialect.Rebind(`
		SELECT r.event_id, r.user_id, r.attendance_status, r.registered_at, r.marked_at, r.marked_by,
			u.email, u.full_name, u.role, u.is_verified
		FROM event_registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = ?
		ORDER BY r.registered_at ASC, r.user_id ASC`)

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by event: %w", err)
	}
	defer rows.Close()

	out := make([]models.EventRegistration, 0)
	for rows.Next() {
		var reg models.EventRegistration
		var u models.User
		if err := rows.Scan(&reg.EventID, &reg.UserID, &reg.AttendanceStatus, &reg.RegisteredAt, &reg.MarkedAt, &reg.MarkedBy,
			&u.Email, &u.FullName, &u.Role, &u.IsVerified); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		u.ID = reg.UserID
		reg.User = &u
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return out, nil
}

func (r *sqlRegistrationRepository) ListByUser(ctx context.Context, userID int) ([]models.EventRegistration, error) {
	query := r.dialect.Rebind(`SELECT ` + registrationColumns + ` FROM event_registrations WHERE user_id = ? ORDER BY registered_at DESC`)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by user: %w", err)
	}
	defer rows.Close()

	out := make([]models.EventRegistration, 0)
	for rows.Next() {
		var reg models.EventRegistration
		if err := rows.Scan(&reg.EventID, &reg.UserID, &reg.AttendanceStatus, &reg.RegisteredAt, &reg.MarkedAt, &reg.MarkedBy); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return out, nil
}
