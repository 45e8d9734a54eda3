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
	ErrFieldAssignmentNotFound = errors.New("field assignment row not found")
	// ErrFieldAssignmentStale - строка реестра изменилась после чтения (конкурентное назначение).
	ErrFieldAssignmentStale = errors.New("field assignment changed concurrently")
)

type FieldAdminRepository interface {
	Get(ctx context.Context, exec SQLExecutor, field models.Field) (*models.FieldAdminAssignment, error)
	List(ctx context.Context) ([]models.FieldAdminAssignment, error)
	// CompareAndSet обновляет строку, только если version совпадает с expectedVersion.
	CompareAndSet(ctx context.Context, exec SQLExecutor, field models.Field, adminID *int, assignedAt *time.Time, expectedVersion int) error
	CountAssigned(ctx context.Context) (int, error)
}

type sqlFieldAdminRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLFieldAdminRepository(db *sql.DB, dialect Dialect) FieldAdminRepository {
	return &sqlFieldAdminRepository{db: db, dialect: dialect}
}

func (r *sqlFieldAdminRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *sqlFieldAdminRepository) Get(ctx context.Context, exec SQLExecutor, field models.Field) (*models.FieldAdminAssignment, error) {
	query := r.dialect.Rebind(`SELECT field, admin_id, assigned_at, version FROM field_admin_assignments WHERE field = ?`)
	a := &models.FieldAdminAssignment{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, field).Scan(&a.Field, &a.AdminID, &a.AssignedAt, &a.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFieldAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get field assignment: %w", err)
	}
	return a, nil
}

func (r *sqlFieldAdminRepository) List(ctx context.Context) ([]models.FieldAdminAssignment, error) {
	query := `
		SELECT a.field, a.admin_id, a.assigned_at, a.version,
			u.id, u.email, u.full_name, u.role, u.assigned_field, u.is_verified, u.created_at
		FROM field_admin_assignments a
		LEFT JOIN users u ON u.id = a.admin_id
		ORDER BY a.field`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list field assignments: %w", err)
	}
	defer rows.Close()

	out := make([]models.FieldAdminAssignment, 0)
	for rows.Next() {
		var a models.FieldAdminAssignment
		var (
			userID        sql.NullInt64
			email         sql.NullString
			fullName      sql.NullString
			role          sql.NullString
			assignedField *models.Field
			isVerified    sql.NullBool
			createdAt     sql.NullTime
		)
		if err := rows.Scan(&a.Field, &a.AdminID, &a.AssignedAt, &a.Version,
			&userID, &email, &fullName, &role, &assignedField, &isVerified, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan field assignment: %w", err)
		}
		if userID.Valid {
			a.Admin = &models.User{
				ID:            int(userID.Int64),
				Email:         email.String,
				FullName:      fullName.String,
				Role:          models.UserRole(role.String),
				AssignedField: assignedField,
				IsVerified:    isVerified.Bool,
				CreatedAt:     createdAt.Time,
			}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field assignment rows: %w", err)
	}
	return out, nil
}

func (r *sqlFieldAdminRepository) CompareAndSet(ctx context.Context, exec SQLExecutor, field models.Field, adminID *int, assignedAt *time.Time, expectedVersion int) error {
	query := r.dialect.Rebind(`
		UPDATE field_admin_assignments SET admin_id = ?, assigned_at = ?, version = version + 1
		WHERE field = ? AND version = ?`)
	result, err := r.getExecutor(exec).ExecContext(ctx, query, adminID, assignedAt, field, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update field assignment: %w", err)
	}
	return checkAffectedRows(result, ErrFieldAssignmentStale)
}

func (r *sqlFieldAdminRepository) CountAssigned(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM field_admin_assignments WHERE admin_id IS NOT NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assigned fields: %w", err)
	}
	return count, nil
}
