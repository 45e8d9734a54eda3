package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/alumni-network/models"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUserEmailConflict     = errors.New("user email conflict")
	ErrUserGoogleConflict    = errors.New("google account already linked to another user")
	ErrUserFieldTaken        = errors.New("another user already administers this field")
	ErrUserRoleInvariantFail = errors.New("role and assigned field are inconsistent")
	ErrUserRoleChanged       = errors.New("user role changed concurrently")
)

// RoleChange - условная смена роли: строка меняется, только если текущие
// роль и направление всё ещё равны FromRole и FromField.
type RoleChange struct {
	FromRole  models.UserRole
	FromField *models.Field
	Role      models.UserRole
	Field     *models.Field
	Verified  bool
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleSubject(ctx context.Context, subject string) (*models.User, error)
	LinkGoogleSubject(ctx context.Context, id int, subject string) error
	// UpdateRole меняет роль, направление и флаг верификации одной строкой.
	// ErrUserRoleChanged, если запись уже не в состоянии change.From*.
	UpdateRole(ctx context.Context, exec SQLExecutor, id int, change RoleChange) error
	ListByIDs(ctx context.Context, ids []int) ([]models.User, error)
}

type sqlUserRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLUserRepository(db *sql.DB, dialect Dialect) UserRepository {
	return &sqlUserRepository{db: db, dialect: dialect}
}

func (r *sqlUserRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `id, email, full_name, password_hash, google_subject, role, assigned_field, is_verified, created_at`

func (r *sqlUserRepository) Create(ctx context.Context, user *models.User) error {
	query := r.dialect.Rebind(`
		INSERT INTO users (email, full_name, password_hash, google_subject, role, assigned_field, is_verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	err := r.db.QueryRowContext(ctx, query,
		strings.ToLower(user.Email),
		user.FullName,
		passwordHash,
		user.GoogleSubject,
		user.Role,
		user.AssignedField,
		user.IsVerified,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return r.mapWriteError(err)
	}
	user.Email = strings.ToLower(user.Email)
	return nil
}

func (r *sqlUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	query := r.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	return r.scanUser(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *sqlUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := r.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	return r.scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

func (r *sqlUserRepository) GetByGoogleSubject(ctx context.Context, subject string) (*models.User, error) {
	query := r.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE google_subject = ?`)
	return r.scanUser(r.db.QueryRowContext(ctx, query, subject))
}

func (r *sqlUserRepository) LinkGoogleSubject(ctx context.Context, id int, subject string) error {
	query := r.dialect.Rebind(`UPDATE users SET google_subject = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, subject, id)
	if err != nil {
		return r.mapWriteError(err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *sqlUserRepository) UpdateRole(ctx context.Context, exec SQLExecutor, id int, change RoleChange) error {
	executor := r.getExecutor(exec)
	query := `UPDATE users SET role = ?, assigned_field = ?, is_verified = ? WHERE id = ? AND role = ?`
	args := []interface{}{change.Role, change.Field, change.Verified, id, change.FromRole}
	if change.FromField == nil {
		query += ` AND assigned_field IS NULL`
	} else {
		query += ` AND assigned_field = ?`
		args = append(args, *change.FromField)
	}

	result, err := executor.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return r.mapWriteError(err)
	}
	err = checkAffectedRows(result, ErrUserRoleChanged)
	if errors.Is(err, ErrUserRoleChanged) {
		if _, getErr := r.GetByID(ctx, executor, id); errors.Is(getErr, ErrUserNotFound) {
			return ErrUserNotFound
		}
	}
	return err
}

func (r *sqlUserRepository) ListByIDs(ctx context.Context, ids []int) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := r.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id IN (` + placeholders + `) ORDER BY id`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// scanUser - вспомогательный метод для сканирования одного пользователя
func (r *sqlUserRepository) scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var passwordHash sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&passwordHash,
		&user.GoogleSubject,
		&user.Role,
		&user.AssignedField,
		&user.IsVerified,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.PasswordHash = passwordHash.String
	return user, nil
}

func (r *sqlUserRepository) mapWriteError(err error) error {
	switch {
	case isUniqueViolation(err):
		msg := err.Error()
		switch {
		case strings.Contains(msg, "google_subject"):
			return ErrUserGoogleConflict
		case strings.Contains(msg, "assigned_field"):
			return ErrUserFieldTaken
		}
		return ErrUserEmailConflict
	case isCheckViolation(err):
		return ErrUserRoleInvariantFail
	}
	return err
}
