package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/notify"
	"github.com/Dosada05/alumni-network/repositories"
)

const defaultNotificationLimit = 50

// Pusher доставляет сообщение открытым соединениям пользователя.
type Pusher interface {
	PushToUser(userID int, msg notify.Message) int
}

type NotificationService interface {
	List(ctx context.Context, actor authz.Principal, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, actor authz.Principal, id int) error
	MarkAllRead(ctx context.Context, actor authz.Principal) (int, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	now              func() time.Time
}

func NewNotificationService(notificationRepo repositories.NotificationRepository) NotificationService {
	return &notificationService{notificationRepo: notificationRepo, now: time.Now}
}

func (s *notificationService) List(ctx context.Context, actor authz.Principal, unreadOnly bool) ([]models.Notification, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	list, err := s.notificationRepo.ListByUser(ctx, actor.UserID(), unreadOnly, defaultNotificationLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor authz.Principal, id int) error {
	if actor == nil {
		return ErrForbidden
	}
	err := s.notificationRepo.MarkRead(ctx, actor.UserID(), id, s.now().UTC())
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor authz.Principal) (int, error) {
	if actor == nil {
		return 0, ErrForbidden
	}
	n, err := s.notificationRepo.MarkAllRead(ctx, actor.UserID(), s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

// Notifier сохраняет уведомления внутри транзакции вызывающего и доставляет их после коммита.
type Notifier struct {
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	pusher           Pusher
	mailer           Mailer
	logger           *slog.Logger
}

// NewNotifier - pusher и mailer могут быть nil (доставка отключена).
func NewNotifier(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	pusher Pusher,
	mailer Mailer,
	logger *slog.Logger,
) *Notifier {
	return &Notifier{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		pusher:           pusher,
		mailer:           mailer,
		logger:           loggerOrDefault(logger),
	}
}

func (n *Notifier) store(ctx context.Context, exec repositories.SQLExecutor, userID int, kind models.NotificationKind, message string, at time.Time) (*models.Notification, error) {
	note := &models.Notification{
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		CreatedAt: at,
	}
	if err := n.notificationRepo.Create(ctx, exec, note); err != nil {
		return nil, err
	}
	return note, nil
}

// deliver не возвращает ошибок: сбой доставки не отменяет уже закоммиченный переход.
func (n *Notifier) deliver(ctx context.Context, notes ...*models.Notification) {
	for _, note := range notes {
		if note == nil {
			continue
		}
		if n.pusher != nil {
			n.pusher.PushToUser(note.UserID, notify.Message{Type: "NOTIFICATION", Payload: note})
		}
		if n.mailer == nil {
			continue
		}
		user, err := n.userRepo.GetByID(ctx, nil, note.UserID)
		if err != nil {
			n.logger.Warn("notification email skipped", slog.Int("user_id", note.UserID), slog.Any("error", err))
			continue
		}
		if err := n.mailer.SendNotificationEmail(ctx, user, note); err != nil {
			n.logger.Error("failed to send notification email",
				slog.Int("user_id", note.UserID), slog.String("kind", string(note.Kind)), slog.Any("error", err))
		}
	}
}
