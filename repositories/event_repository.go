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
	ErrEventNotFound = errors.New("event not found")
	ErrEventFull     = errors.New("event has no free seats")
)

type ListEventsFilter struct {
	From   *time.Time
	Limit  int
	Offset int
}

type EventRepository interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error)
	List(ctx context.Context, filter ListEventsFilter) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id int) error
	// ReserveSeat увеличивает registered_count, если лимит не достигнут.
	ReserveSeat(ctx context.Context, exec SQLExecutor, id int) error
	ReleaseSeat(ctx context.Context, exec SQLExecutor, id int) error
	CountUpcoming(ctx context.Context, from time.Time) (int, error)
}

type sqlEventRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLEventRepository(db *sql.DB, dialect Dialect) EventRepository {
	return &sqlEventRepository{db: db, dialect: dialect}
}

func (r *sqlEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const eventColumns = `id, title, description, location, event_date, max_attendees, registered_count, created_by, created_at`

func (r *sqlEventRepository) Create(ctx context.Context, e *models.Event) error {
	query := r.dialect.Rebind(`
		INSERT INTO events (title, description, location, event_date, max_attendees, registered_count, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		RETURNING id`)
	err := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Location, e.EventDate, e.MaxAttendees, e.CreatedBy, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	e.RegisteredCount = 0
	return nil
}

func (r *sqlEventRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error) {
	query := r.dialect.Rebind(`SELECT ` + eventColumns + ` FROM events WHERE id = ?`)
	e, err := scanEvent(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *sqlEventRepository) List(ctx context.Context, filter ListEventsFilter) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []interface{}{}
	if filter.From != nil {
		query += " AND event_date >= ?"
		args = append(args, filter.From.UTC())
	}
	query += " ORDER BY event_date ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

func (r *sqlEventRepository) Update(ctx context.Context, e *models.Event) error {
	query := r.dialect.Rebind(`
		UPDATE events SET title = ?, description = ?, location = ?, event_date = ?, max_attendees = ?
		WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, e.Title, e.Description, e.Location, e.EventDate, e.MaxAttendees, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *sqlEventRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM events WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *sqlEventRepository) ReserveSeat(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := r.dialect.Rebind(`
		UPDATE events SET registered_count = registered_count + 1
		WHERE id = ? AND (max_attendees IS NULL OR registered_count < max_attendees)`)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reserve seat: %w", err)
	}
	if err := checkAffectedRows(result, ErrEventFull); err != nil {
		if !errors.Is(err, ErrEventFull) {
			return err
		}
		// различаем "нет мест" и "нет мероприятия"
		if _, getErr := r.GetByID(ctx, executor, id); getErr != nil {
			return getErr
		}
		return ErrEventFull
	}
	return nil
}

func (r *sqlEventRepository) ReleaseSeat(ctx context.Context, exec SQLExecutor, id int) error {
	query := r.dialect.Rebind(`UPDATE events SET registered_count = registered_count - 1 WHERE id = ? AND registered_count > 0`)
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *sqlEventRepository) CountUpcoming(ctx context.Context, from time.Time) (int, error) {
	var count int
	query := r.dialect.Rebind(`SELECT COUNT(*) FROM events WHERE event_date >= ?`)
	if err := r.db.QueryRowContext(ctx, query, from.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count upcoming events: %w", err)
	}
	return count, nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.EventDate, &e.MaxAttendees,
		&e.RegisteredCount, &e.CreatedBy, &e.CreatedAt)
	return e, err
}
