package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
)

type FieldAdminService interface {
	Assign(ctx context.Context, actor authz.Principal, field models.Field, userID int) (*models.FieldAdminAssignment, error)
	Remove(ctx context.Context, actor authz.Principal, field models.Field) error
	List(ctx context.Context, actor authz.Principal) ([]models.FieldAdminAssignment, error)
}

// fieldRegistry - общая логика реестра, используется также при одобрении заявки с назначением.
type fieldRegistry struct {
	userRepo       repositories.UserRepository
	fieldAdminRepo repositories.FieldAdminRepository
	notifier       *Notifier
}

// assignTx делает target администратором field внутри tx. Прежний администратор
// понижается до VERIFIED_USER раньше повышения target из-за уникального индекса.
// Возвращает созданные уведомления, nil при повторном назначении того же пользователя.
func (r *fieldRegistry) assignTx(ctx context.Context, tx *sql.Tx, field models.Field, target *models.User, now time.Time) ([]*models.Notification, error) {
	row, err := r.fieldAdminRepo.Get(ctx, tx, field)
	if err != nil {
		if errors.Is(err, repositories.ErrFieldAssignmentNotFound) {
			return nil, validationFailed("field", "unknown engineering field")
		}
		return nil, fmt.Errorf("failed to read field assignment: %w", err)
	}
	if row.AdminID != nil && *row.AdminID == target.ID {
		return nil, nil
	}
	switch target.Role {
	case models.RoleSuperAdmin:
		return nil, ErrCannotDemoteSuperAdmin
	case models.RoleFieldAdmin:
		return nil, ErrAdminOfAnotherField
	}

	var notes []*models.Notification
	if row.AdminID != nil {
		if err := r.demoteTx(ctx, tx, *row.AdminID, field); err != nil {
			return nil, err
		}
		note, err := r.notifier.store(ctx, tx, *row.AdminID, models.NotificationFieldAdminRemoved,
			fmt.Sprintf("You are no longer the administrator of the %s field.", field), now)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	fieldCopy := field
	err = r.userRepo.UpdateRole(ctx, tx, target.ID, repositories.RoleChange{
		FromRole:  target.Role,
		FromField: target.AssignedField,
		Role:      models.RoleFieldAdmin,
		Field:     &fieldCopy,
		Verified:  true,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrUserFieldTaken) || errors.Is(err, repositories.ErrUserRoleChanged) {
			return nil, ErrAssignmentChanged
		}
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to promote user %d: %w", target.ID, err)
	}

	targetID := target.ID
	if err := r.fieldAdminRepo.CompareAndSet(ctx, tx, field, &targetID, &now, row.Version); err != nil {
		if errors.Is(err, repositories.ErrFieldAssignmentStale) {
			return nil, ErrAssignmentChanged
		}
		return nil, err
	}

	note, err := r.notifier.store(ctx, tx, target.ID, models.NotificationFieldAdminAssigned,
		fmt.Sprintf("You are now the administrator of the %s field.", field), now)
	if err != nil {
		return nil, err
	}
	return append(notes, note), nil
}

// demoteTx снимает с userID роль администратора field, если она ещё за ним.
func (r *fieldRegistry) demoteTx(ctx context.Context, tx *sql.Tx, userID int, field models.Field) error {
	fieldCopy := field
	err := r.userRepo.UpdateRole(ctx, tx, userID, repositories.RoleChange{
		FromRole:  models.RoleFieldAdmin,
		FromField: &fieldCopy,
		Role:      models.RoleVerifiedUser,
		Verified:  true,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrUserRoleChanged) {
			return ErrAssignmentChanged
		}
		return fmt.Errorf("failed to demote admin of %s: %w", field, err)
	}
	return nil
}

type fieldAdminService struct {
	db       *sql.DB
	registry *fieldRegistry
	logger   *slog.Logger
	now      func() time.Time
}

func NewFieldAdminService(
	db *sql.DB,
	userRepo repositories.UserRepository,
	fieldAdminRepo repositories.FieldAdminRepository,
	notifier *Notifier,
	logger *slog.Logger,
) FieldAdminService {
	return &fieldAdminService{
		db: db,
		registry: &fieldRegistry{
			userRepo:       userRepo,
			fieldAdminRepo: fieldAdminRepo,
			notifier:       notifier,
		},
		logger: loggerOrDefault(logger),
		now:    time.Now,
	}
}

func (s *fieldAdminService) Assign(ctx context.Context, actor authz.Principal, field models.Field, userID int) (*models.FieldAdminAssignment, error) {
	decision := authz.Decide(actor, authz.ActionAssignFieldAdmin, authz.Resource{Field: field, TargetUserID: userID})
	if !decision.Allowed {
		return nil, forbidden(decision.Reason)
	}
	if !field.Valid() {
		return nil, validationFailed("field", "unknown engineering field")
	}

	now := s.now().UTC()
	var notes []*models.Notification
	err := repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		target, err := s.registry.userRepo.GetByID(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if !target.IsVerified {
			return validationFailed("user_id", "user must be a verified alumnus")
		}
		notes, err = s.registry.assignTx(ctx, tx, field, target, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(notes) > 0 {
		s.logger.Info("field admin assigned", slog.String("field", string(field)),
			slog.Int("user_id", userID), slog.Int("by", actor.UserID()))
		s.registry.notifier.deliver(ctx, notes...)
	}
	return s.registry.fieldAdminRepo.Get(ctx, nil, field)
}

func (s *fieldAdminService) Remove(ctx context.Context, actor authz.Principal, field models.Field) error {
	decision := authz.Decide(actor, authz.ActionAssignFieldAdmin, authz.Resource{Field: field})
	if !decision.Allowed {
		return forbidden(decision.Reason)
	}
	if !field.Valid() {
		return validationFailed("field", "unknown engineering field")
	}

	now := s.now().UTC()
	var note *models.Notification
	err := repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		row, err := s.registry.fieldAdminRepo.Get(ctx, tx, field)
		if err != nil {
			return fmt.Errorf("failed to read field assignment: %w", err)
		}
		if row.AdminID == nil {
			return ErrFieldHasNoAdmin
		}
		if err := s.registry.demoteTx(ctx, tx, *row.AdminID, field); err != nil {
			return err
		}
		if err := s.registry.fieldAdminRepo.CompareAndSet(ctx, tx, field, nil, nil, row.Version); err != nil {
			if errors.Is(err, repositories.ErrFieldAssignmentStale) {
				return ErrAssignmentChanged
			}
			return err
		}
		note, err = s.registry.notifier.store(ctx, tx, *row.AdminID, models.NotificationFieldAdminRemoved,
			fmt.Sprintf("You are no longer the administrator of the %s field.", field), now)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("field admin removed", slog.String("field", string(field)), slog.Int("by", actor.UserID()))
	s.registry.notifier.deliver(ctx, note)
	return nil
}

func (s *fieldAdminService) List(ctx context.Context, actor authz.Principal) ([]models.FieldAdminAssignment, error) {
	decision := authz.Decide(actor, authz.ActionAssignFieldAdmin, authz.Resource{})
	if !decision.Allowed {
		return nil, forbidden(decision.Reason)
	}
	list, err := s.registry.fieldAdminRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list field assignments: %w", err)
	}
	return list, nil
}
