package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
	"github.com/Dosada05/alumni-network/storage"
)

// ProfileService - владелец правит свою запись справочника. Имя, направление и выпуск не меняются.
type ProfileService interface {
	GetOwn(ctx context.Context, actor authz.Principal) (*models.AlumniProfile, error)
	UpdateOwn(ctx context.Context, actor authz.Principal, input UpdateProfileInput) (*models.AlumniProfile, error)
	UploadPhoto(ctx context.Context, actor authz.Principal, photo PhotoUpload) (*models.AlumniProfile, error)
}

type UpdateProfileInput struct {
	Nickname  *string `json:"nickname"`
	Address   *string `json:"address"`
	Country   *string `json:"country"`
	Workplace *string `json:"workplace"`
	Phone     *string `json:"phone"`
}

func (in UpdateProfileInput) empty() bool {
	return in.Nickname == nil && in.Address == nil && in.Country == nil && in.Workplace == nil && in.Phone == nil
}

type profileService struct {
	alumniRepo repositories.AlumniRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
	now        func() time.Time
}

func NewProfileService(alumniRepo repositories.AlumniRepository, uploader storage.FileUploader, logger *slog.Logger) ProfileService {
	return &profileService{
		alumniRepo: alumniRepo,
		uploader:   uploader,
		logger:     loggerOrDefault(logger),
		now:        time.Now,
	}
}

func (s *profileService) authorizeEdit(actor authz.Principal) error {
	decision := authz.Decide(actor, authz.ActionEditOwnProfile, authz.Resource{TargetUserID: userIDOf(actor)})
	if !decision.Allowed {
		return forbidden(decision.Reason)
	}
	return nil
}

func (s *profileService) GetOwn(ctx context.Context, actor authz.Principal) (*models.AlumniProfile, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	return s.getProfile(ctx, actor.UserID())
}

func (s *profileService) UpdateOwn(ctx context.Context, actor authz.Principal, input UpdateProfileInput) (*models.AlumniProfile, error) {
	if err := s.authorizeEdit(actor); err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, validationFailed("profile", "no fields provided for update")
	}

	// пустая строка очищает необязательное поле, country обязательна
	changes := repositories.ProfileChanges{
		Nickname:  trimmedOrNil(input.Nickname),
		Address:   trimmedOrNil(input.Address),
		Workplace: trimmedOrNil(input.Workplace),
		Phone:     trimmedOrNil(input.Phone),
	}
	if input.Country != nil {
		country := strings.TrimSpace(*input.Country)
		if country == "" {
			return nil, validationFailed("country", "must not be empty")
		}
		changes.Country = &country
	}

	if err := s.alumniRepo.Update(ctx, actor.UserID(), changes, s.now().UTC()); err != nil {
		if errors.Is(err, repositories.ErrAlumniProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.getProfile(ctx, actor.UserID())
}

func (s *profileService) UploadPhoto(ctx context.Context, actor authz.Principal, photo PhotoUpload) (*models.AlumniProfile, error) {
	if err := s.authorizeEdit(actor); err != nil {
		return nil, err
	}
	current, err := s.getProfile(ctx, actor.UserID())
	if err != nil {
		return nil, err
	}

	result, err := uploadPhoto(ctx, s.uploader, actor.UserID(), photo)
	if err != nil {
		return nil, err
	}
	changes := repositories.ProfileChanges{PhotoURL: &result.Location, PhotoKey: &result.Key}
	if err := s.alumniRepo.Update(ctx, actor.UserID(), changes, s.now().UTC()); err != nil {
		s.deleteObject(ctx, result.Key)
		return nil, fmt.Errorf("failed to store profile photo: %w", err)
	}

	// старое фото удаляется только после успешной замены
	if current.PhotoKey != nil && *current.PhotoKey != result.Key {
		s.deleteObject(ctx, *current.PhotoKey)
	}
	return s.getProfile(ctx, actor.UserID())
}

func (s *profileService) deleteObject(ctx context.Context, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete photo object", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *profileService) getProfile(ctx context.Context, userID int) (*models.AlumniProfile, error) {
	profile, err := s.alumniRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrAlumniProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// trimmedOrNil: nil - не менять, иначе обрезанное значение (возможно пустое).
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
