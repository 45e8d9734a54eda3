package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
)

var ErrEventAlreadyHeld = fmt.Errorf("%w: event already took place", ErrInvalidTransition)

type EventService interface {
	Create(ctx context.Context, actor authz.Principal, input EventInput) (*models.Event, error)
	Update(ctx context.Context, actor authz.Principal, id int, input EventInput) (*models.Event, error)
	Delete(ctx context.Context, actor authz.Principal, id int) error
	Get(ctx context.Context, actor authz.Principal, id int) (*models.Event, error)
	List(ctx context.Context, actor authz.Principal, upcomingOnly bool) ([]models.Event, error)

	Register(ctx context.Context, actor authz.Principal, eventID int) (*models.EventRegistration, error)
	Cancel(ctx context.Context, actor authz.Principal, eventID int) error
	MarkAttendance(ctx context.Context, actor authz.Principal, eventID, userID int, status models.AttendanceStatus) (*models.EventRegistration, error)
	ListRegistrations(ctx context.Context, actor authz.Principal, eventID int) ([]models.EventRegistration, error)
	ListOwnRegistrations(ctx context.Context, actor authz.Principal) ([]models.EventRegistration, error)
}

type EventInput struct {
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	Location     *string   `json:"location"`
	EventDate    time.Time `json:"event_date"`
	MaxAttendees *int      `json:"max_attendees"`
}

type eventService struct {
	db               *sql.DB
	eventRepo        repositories.EventRepository
	registrationRepo repositories.RegistrationRepository
	logger           *slog.Logger
	now              func() time.Time
}

func NewEventService(
	db *sql.DB,
	eventRepo repositories.EventRepository,
	registrationRepo repositories.RegistrationRepository,
	logger *slog.Logger,
) EventService {
	return &eventService{
		db:               db,
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		logger:           loggerOrDefault(logger),
		now:              time.Now,
	}
}

func validateEventInput(input EventInput) error {
	v := NewValidationError()
	v.Check(strings.TrimSpace(input.Title) != "", "title", "must be provided")
	v.Check(!input.EventDate.IsZero(), "event_date", "must be provided")
	if input.MaxAttendees != nil {
		v.Check(*input.MaxAttendees > 0, "max_attendees", "must be positive")
	}
	return v.Err()
}

func (s *eventService) authorizeManage(actor authz.Principal) error {
	decision := authz.Decide(actor, authz.ActionManageEvent, authz.Resource{})
	if !decision.Allowed {
		return forbidden(decision.Reason)
	}
	return nil
}

func (s *eventService) Create(ctx context.Context, actor authz.Principal, input EventInput) (*models.Event, error) {
	if err := s.authorizeManage(actor); err != nil {
		return nil, err
	}
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	event := &models.Event{
		Title:        strings.TrimSpace(input.Title),
		Description:  trimOptional(input.Description),
		Location:     trimOptional(input.Location),
		EventDate:    input.EventDate.UTC(),
		MaxAttendees: input.MaxAttendees,
		CreatedBy:    actor.UserID(),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.logger.Info("event created", slog.Int("event_id", event.ID), slog.Int("by", actor.UserID()))
	return event, nil
}

func (s *eventService) Update(ctx context.Context, actor authz.Principal, id int, input EventInput) (*models.Event, error) {
	if err := s.authorizeManage(actor); err != nil {
		return nil, err
	}
	if err := validateEventInput(input); err != nil {
		return nil, err
	}
	event, err := s.getEvent(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if input.MaxAttendees != nil && *input.MaxAttendees < event.RegisteredCount {
		return nil, validationFailed("max_attendees",
			fmt.Sprintf("must not be less than the %d existing registrations", event.RegisteredCount))
	}

	event.Title = strings.TrimSpace(input.Title)
	event.Description = trimOptional(input.Description)
	event.Location = trimOptional(input.Location)
	event.EventDate = input.EventDate.UTC()
	event.MaxAttendees = input.MaxAttendees

	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to update event %d: %w", id, err)
	}
	return event, nil
}

func (s *eventService) Delete(ctx context.Context, actor authz.Principal, id int) error {
	if err := s.authorizeManage(actor); err != nil {
		return err
	}
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	s.logger.Info("event deleted", slog.Int("event_id", id), slog.Int("by", actor.UserID()))
	return nil
}

func (s *eventService) Get(ctx context.Context, actor authz.Principal, id int) (*models.Event, error) {
	decision := authz.Decide(actor, authz.ActionViewEvents, authz.Resource{})
	if !decision.Allowed {
		return nil, forbidden(decision.Reason)
	}
	return s.getEvent(ctx, nil, id)
}

func (s *eventService) List(ctx context.Context, actor authz.Principal, upcomingOnly bool) ([]models.Event, error) {
	decision := authz.Decide(actor, authz.ActionViewEvents, authz.Resource{})
	if !decision.Allowed {
		return nil, forbidden(decision.Reason)
	}
	filter := repositories.ListEventsFilter{}
	if upcomingOnly {
		from := s.now().UTC()
		filter.From = &from
	}
	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *eventService) Register(ctx context.Context, actor authz.Principal, eventID int) (*models.EventRegistration, error) {
	decision := authz.Decide(actor, authz.ActionRegisterEvent, authz.Resource{TargetUserID: userIDOf(actor)})
	if !decision.Allowed {
		return nil, forbidden(decision.Reason)
	}

	now := s.now().UTC()
	reg := &models.EventRegistration{
		EventID:          eventID,
		UserID:           actor.UserID(),
		AttendanceStatus: models.AttendanceRegistered,
		RegisteredAt:     now,
	}
	err := repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		event, err := s.getEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !event.EventDate.After(now) {
			return ErrEventAlreadyHeld
		}
		if err := s.registrationRepo.Create(ctx, tx, reg); err != nil {
			if errors.Is(err, repositories.ErrRegistrationConflict) {
				return ErrAlreadyRegistered
			}
			return err
		}
		if err := s.eventRepo.ReserveSeat(ctx, tx, eventID); err != nil {
			switch {
			case errors.Is(err, repositories.ErrEventFull):
				return ErrEventFull
			case errors.Is(err, repositories.ErrEventNotFound):
				return ErrEventNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("event registration created", slog.Int("event_id", eventID), slog.Int("user_id", actor.UserID()))
	return reg, nil
}

func (s *eventService) Cancel(ctx context.Context, actor authz.Principal, eventID int) error {
	if actor == nil {
		return ErrForbidden
	}
	err := repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.registrationRepo.DeleteRegistered(ctx, tx, eventID, actor.UserID()); err != nil {
			switch {
			case errors.Is(err, repositories.ErrRegistrationNotFound):
				return ErrRegistrationNotFound
			case errors.Is(err, repositories.ErrRegistrationNotCancelable):
				return ErrAttendanceAlreadySet
			}
			return err
		}
		return s.eventRepo.ReleaseSeat(ctx, tx, eventID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("event registration cancelled", slog.Int("event_id", eventID), slog.Int("user_id", actor.UserID()))
	return nil
}

// MarkAttendance идемпотентна: повторная отметка тем же статусом ничего не меняет,
// другой статус исправляет предыдущую отметку.
func (s *eventService) MarkAttendance(ctx context.Context, actor authz.Principal, eventID, userID int, status models.AttendanceStatus) (*models.EventRegistration, error) {
	decision := authz.Decide(actor, authz.ActionMarkAttendance, authz.Resource{TargetUserID: userID})
	if !decision.Allowed {
		return nil, forbidden(decision.Reason)
	}
	if !status.Markable() {
		return nil, validationFailed("status", "must be ATTENDED or ABSENT")
	}

	event, err := s.getEvent(ctx, nil, eventID)
	if err != nil {
		return nil, err
	}
	reg, err := s.registrationRepo.Get(ctx, nil, eventID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	now := s.now().UTC()
	if now.Before(startOfDay(event.EventDate)) {
		return nil, ErrEventNotStarted
	}
	if reg.AttendanceStatus == status {
		return reg, nil
	}

	if err := s.registrationRepo.UpdateAttendance(ctx, eventID, userID, status, actor.UserID(), now); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to mark attendance: %w", err)
	}
	return s.registrationRepo.Get(ctx, nil, eventID, userID)
}

func (s *eventService) ListRegistrations(ctx context.Context, actor authz.Principal, eventID int) ([]models.EventRegistration, error) {
	decision := authz.Decide(actor, authz.ActionMarkAttendance, authz.Resource{})
	if !decision.Allowed {
		return nil, forbidden(decision.Reason)
	}
	if _, err := s.getEvent(ctx, nil, eventID); err != nil {
		return nil, err
	}
	list, err := s.registrationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return list, nil
}

func (s *eventService) ListOwnRegistrations(ctx context.Context, actor authz.Principal) ([]models.EventRegistration, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	list, err := s.registrationRepo.ListByUser(ctx, actor.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to list own registrations: %w", err)
	}
	return list, nil
}

func (s *eventService) getEvent(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return event, nil
}

func userIDOf(p authz.Principal) int {
	if p == nil {
		return 0
	}
	return p.UserID()
}

// startOfDay - полночь UTC дня события, с неё разрешена отметка посещения.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
