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
	ErrAlumniProfileNotFound = errors.New("alumni profile not found")
	ErrAlumniProfileExists   = errors.New("alumni profile already exists")
)

// AlumniQuery - фильтр справочника после применения области видимости.
// Пустой Fields означает все направления.
type AlumniQuery struct {
	Query   string
	Fields  []models.Field
	Country string
	Batch   *int
	Limit   int
	Offset  int
}

// ProfileChanges - изменяемые владельцем поля. nil - не менять.
type ProfileChanges struct {
	Nickname  *string
	Address   *string
	Country   *string
	Workplace *string
	Phone     *string
	PhotoURL  *string
	PhotoKey  *string
}

type AlumniRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.AlumniProfile) error
	GetByUserID(ctx context.Context, userID int) (*models.AlumniProfile, error)
	Update(ctx context.Context, userID int, changes ProfileChanges, at time.Time) error
	Search(ctx context.Context, q AlumniQuery) ([]models.AlumniProfile, int, error)
	CountBy(ctx context.Context, column string, q AlumniQuery) ([]models.CountBucket, error)
}

type sqlAlumniRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAlumniRepository(db *sql.DB, dialect Dialect) AlumniRepository {
	return &sqlAlumniRepository{db: db, dialect: dialect}
}

const alumniColumns = `user_id, submission_id, full_name, calling_name, nickname, field, country, address, workplace,
	phone, contact_email, batch, photo_url, photo_key, approved_at, updated_at`

func (r *sqlAlumniRepository) Create(ctx context.Context, exec SQLExecutor, p *models.AlumniProfile) error {
	if exec == nil {
		exec = r.db
	}
	query := r.dialect.Rebind(`
		INSERT INTO alumni_profiles (` + alumniColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exec.ExecContext(ctx, query,
		p.UserID, p.SubmissionID, p.FullName, p.CallingName, p.Nickname, p.Field, p.Country, p.Address,
		p.Workplace, p.Phone, p.ContactEmail, p.Batch, p.PhotoURL, p.PhotoKey, p.ApprovedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlumniProfileExists
		}
		return fmt.Errorf("failed to create alumni profile: %w", err)
	}
	return nil
}

func (r *sqlAlumniRepository) GetByUserID(ctx context.Context, userID int) (*models.AlumniProfile, error) {
	query := r.dialect.Rebind(`SELECT ` + alumniColumns + ` FROM alumni_profiles WHERE user_id = ?`)
	p, err := scanAlumni(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlumniProfileNotFound
		}
		return nil, fmt.Errorf("failed to get alumni profile: %w", err)
	}
	return p, nil
}

func (r *sqlAlumniRepository) Update(ctx context.Context, userID int, changes ProfileChanges, at time.Time) error {
	sets := []string{}
	args := []interface{}{}
	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("nickname", changes.Nickname)
	add("address", changes.Address)
	add("country", changes.Country)
	add("workplace", changes.Workplace)
	add("phone", changes.Phone)
	add("photo_url", changes.PhotoURL)
	add("photo_key", changes.PhotoKey)

	sets = append(sets, "updated_at = ?")
	args = append(args, at, userID)

	query := r.dialect.Rebind(`UPDATE alumni_profiles SET ` + strings.Join(sets, ", ") + ` WHERE user_id = ?`)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update alumni profile: %w", err)
	}
	return checkAffectedRows(result, ErrAlumniProfileNotFound)
}

func (r *sqlAlumniRepository) Search(ctx context.Context, q AlumniQuery) ([]models.AlumniProfile, int, error) {
	where, args := buildAlumniWhere(q)

	var total int
	countQuery := r.dialect.Rebind(`SELECT COUNT(*) FROM alumni_profiles` + where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alumni: %w", err)
	}

	query := `SELECT ` + alumniColumns + ` FROM alumni_profiles` + where + ` ORDER BY full_name ASC, user_id ASC`
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search alumni: %w", err)
	}
	defer rows.Close()

	profiles := make([]models.AlumniProfile, 0)
	for rows.Next() {
		p, err := scanAlumni(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alumni profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating alumni rows: %w", err)
	}
	return profiles, total, nil
}

var groupableColumns = map[string]bool{"field": true, "country": true}

// CountBy группирует отфильтрованные записи по field или country.
func (r *sqlAlumniRepository) CountBy(ctx context.Context, column string, q AlumniQuery) ([]models.CountBucket, error) {
	if !groupableColumns[column] {
		return nil, fmt.Errorf("cannot group alumni by %q", column)
	}
	where, args := buildAlumniWhere(q)
	query := r.dialect.Rebind(`SELECT ` + column + `, COUNT(*) FROM alumni_profiles` + where +
		` GROUP BY ` + column + ` ORDER BY ` + column)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count alumni by %s: %w", column, err)
	}
	defer rows.Close()

	buckets := make([]models.CountBucket, 0)
	for rows.Next() {
		var b models.CountBucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}
	return buckets, nil
}

func buildAlumniWhere(q AlumniQuery) (string, []interface{}) {
	var b strings.Builder
	args := []interface{}{}
	b.WriteString(" WHERE 1=1")

	if len(q.Fields) > 0 {
		b.WriteString(" AND field IN (")
		b.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(q.Fields)), ", "))
		b.WriteString(")")
		for _, f := range q.Fields {
			args = append(args, f)
		}
	}
	if q.Country != "" {
		b.WriteString(" AND LOWER(country) = ?")
		args = append(args, strings.ToLower(q.Country))
	}
	if q.Batch != nil {
		b.WriteString(" AND batch = ?")
		args = append(args, *q.Batch)
	}
	if term := strings.TrimSpace(q.Query); term != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		b.WriteString(` AND (LOWER(full_name) LIKE ? ESCAPE '\' OR LOWER(calling_name) LIKE ? ESCAPE '\'` +
			` OR LOWER(COALESCE(nickname, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(workplace, '')) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like, like)
	}
	return b.String(), args
}

// likeEscaper экранирует спецсимволы LIKE в пользовательском запросе.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanAlumni(row rowScanner) (*models.AlumniProfile, error) {
	p := &models.AlumniProfile{}
	err := row.Scan(
		&p.UserID, &p.SubmissionID, &p.FullName, &p.CallingName, &p.Nickname, &p.Field, &p.Country,
		&p.Address, &p.Workplace, &p.Phone, &p.ContactEmail, &p.Batch, &p.PhotoURL, &p.PhotoKey,
		&p.ApprovedAt, &p.UpdatedAt,
	)
	return p, err
}
