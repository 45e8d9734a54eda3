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
	"github.com/Dosada05/alumni-network/storage"
)

const (
	minBatchYear       = 1950
	maxRejectionReason = 1000
)

type SubmissionService interface {
	Create(ctx context.Context, actor authz.Principal, input CreateSubmissionInput) (*models.Submission, error)
	AttachPhoto(ctx context.Context, actor authz.Principal, id int, photo PhotoUpload) (*models.Submission, error)
	Approve(ctx context.Context, actor authz.Principal, id int, assignedField *models.Field) (*models.Submission, error)
	Reject(ctx context.Context, actor authz.Principal, id int, reason string) (*models.Submission, error)
	Get(ctx context.Context, actor authz.Principal, id int) (*models.Submission, error)
	ListForReview(ctx context.Context, actor authz.Principal, filter ReviewFilter) ([]models.Submission, error)
	ListOwn(ctx context.Context, actor authz.Principal) ([]models.Submission, error)
}

type CreateSubmissionInput struct {
	FullName     string  `json:"full_name"`
	CallingName  string  `json:"calling_name"`
	Nickname     *string `json:"nickname"`
	Field        string  `json:"field"`
	Country      string  `json:"country"`
	Address      *string `json:"address"`
	Workplace    *string `json:"workplace"`
	Phone        *string `json:"phone"`
	ContactEmail *string `json:"contact_email"`
	Batch        *int    `json:"batch"`
}

// ReviewFilter - пустой Status означает PENDING.
type ReviewFilter struct {
	Status *models.SubmissionStatus
	Field  *models.Field
	Limit  int
	Offset int
}

type submissionService struct {
	db             *sql.DB
	submissionRepo repositories.SubmissionRepository
	userRepo       repositories.UserRepository
	alumniRepo     repositories.AlumniRepository
	registry       *fieldRegistry
	notifier       *Notifier
	uploader       storage.FileUploader
	logger         *slog.Logger
	now            func() time.Time
}

func NewSubmissionService(
	db *sql.DB,
	submissionRepo repositories.SubmissionRepository,
	userRepo repositories.UserRepository,
	alumniRepo repositories.AlumniRepository,
	fieldAdminRepo repositories.FieldAdminRepository,
	notifier *Notifier,
	uploader storage.FileUploader,
	logger *slog.Logger,
) SubmissionService {
	return &submissionService{
		db:             db,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		alumniRepo:     alumniRepo,
		registry: &fieldRegistry{
			userRepo:       userRepo,
			fieldAdminRepo: fieldAdminRepo,
			notifier:       notifier,
		},
		notifier: notifier,
		uploader: uploader,
		logger:   loggerOrDefault(logger),
		now:      time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, actor authz.Principal, input CreateSubmissionInput) (*models.Submission, error) {
	if actor == nil {
		return nil, ErrForbidden
	}

	pending, err := s.submissionRepo.FindPendingByOwner(ctx, actor.UserID())
	if err != nil && !errors.Is(err, repositories.ErrSubmissionNotFound) {
		return nil, fmt.Errorf("failed to check pending submission: %w", err)
	}
	hasPending := pending != nil

	decision := authz.Decide(actor, authz.ActionSubmitData, authz.Resource{
		TargetUserID:         actor.UserID(),
		HasPendingSubmission: hasPending,
	})
	if !decision.Allowed {
		if hasPending && actor.Role() == models.RoleUnverified {
			return nil, ErrPendingSubmissionExists
		}
		return nil, forbidden(decision.Reason)
	}

	submission, err := s.validateSubmission(input)
	if err != nil {
		return nil, err
	}
	submission.OwnerID = actor.UserID()
	submission.Status = models.SubmissionPending
	submission.CreatedAt = s.now().UTC()

	if err := s.submissionRepo.Create(ctx, nil, submission); err != nil {
		if errors.Is(err, repositories.ErrSubmissionPendingExists) {
			return nil, ErrPendingSubmissionExists
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.logger.Info("submission created", slog.Int("submission_id", submission.ID),
		slog.Int("owner_id", submission.OwnerID), slog.String("field", string(submission.Field)))
	return submission, nil
}

func (s *submissionService) validateSubmission(input CreateSubmissionInput) (*models.Submission, error) {
	v := NewValidationError()

	fullName := strings.TrimSpace(input.FullName)
	callingName := strings.TrimSpace(input.CallingName)
	country := strings.TrimSpace(input.Country)
	phone := trimOptional(input.Phone)
	contactEmail := trimOptional(input.ContactEmail)

	v.Check(fullName != "", "full_name", "must be provided")
	v.Check(callingName != "", "calling_name", "must be provided")
	v.Check(country != "", "country", "must be provided")

	field, err := models.ParseField(input.Field)
	if err != nil {
		v.Add("field", "must be one of the engineering fields")
	}

	if phone == nil && contactEmail == nil {
		v.Add("contact", "phone or contact email must be provided")
	}
	if contactEmail != nil && !isValidEmail(*contactEmail) {
		v.Add("contact_email", "must be a valid email address")
	}
	if input.Batch != nil {
		maxYear := s.now().Year() + 1
		v.Check(*input.Batch >= minBatchYear && *input.Batch <= maxYear, "batch",
			fmt.Sprintf("must be between %d and %d", minBatchYear, maxYear))
	}

	if err := v.Err(); err != nil {
		return nil, err
	}

	return &models.Submission{
		FullName:     fullName,
		CallingName:  callingName,
		Nickname:     trimOptional(input.Nickname),
		Field:        field,
		Country:      country,
		Address:      trimOptional(input.Address),
		Workplace:    trimOptional(input.Workplace),
		Phone:        phone,
		ContactEmail: contactEmail,
		Batch:        input.Batch,
	}, nil
}

func (s *submissionService) AttachPhoto(ctx context.Context, actor authz.Principal, id int, photo PhotoUpload) (*models.Submission, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.OwnerID != actor.UserID() {
		return nil, forbidden("only the owner can attach a photo")
	}
	if submission.Status != models.SubmissionPending {
		return nil, ErrSubmissionNotPending
	}

	result, err := uploadPhoto(ctx, s.uploader, actor.UserID(), photo)
	if err != nil {
		return nil, err
	}
	if err := s.submissionRepo.SetPhoto(ctx, id, result.Location, result.Key); err != nil {
		s.deletePhoto(ctx, result.Key)
		if errors.Is(err, repositories.ErrSubmissionNotPending) {
			return nil, ErrSubmissionNotPending
		}
		return nil, fmt.Errorf("failed to store submission photo: %w", err)
	}
	if submission.PhotoKey != nil {
		s.deletePhoto(ctx, *submission.PhotoKey)
	}
	return s.getSubmission(ctx, id)
}

func (s *submissionService) deletePhoto(ctx context.Context, key string) {
	if s.uploader == nil || key == "" {
		return
	}
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete photo object", slog.String("key", key), slog.Any("error", err))
	}
}

// authorizeReview проверяет права рецензента на заявку данного направления.
func (s *submissionService) authorizeReview(actor authz.Principal, submission *models.Submission) error {
	decision := authz.Decide(actor, authz.ActionReviewSubmission, authz.Resource{Field: submission.Field})
	if !decision.Allowed || !decision.Scope.Allows(submission.Field) {
		return forbidden(decision.Reason)
	}
	return nil
}

func (s *submissionService) Approve(ctx context.Context, actor authz.Principal, id int, assignedField *models.Field) (*models.Submission, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeReview(actor, submission); err != nil {
		return nil, err
	}
	if assignedField != nil {
		if !assignedField.Valid() {
			return nil, validationFailed("assigned_field", "must be one of the engineering fields")
		}
		decision := authz.Decide(actor, authz.ActionAssignFieldAdmin, authz.Resource{Field: *assignedField})
		if !decision.Allowed {
			return nil, forbidden(decision.Reason)
		}
	}
	if submission.Status != models.SubmissionPending {
		return nil, ErrSubmissionNotPending
	}

	now := s.now().UTC()
	var notes []*models.Notification
	err = repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.submissionRepo.MarkApproved(ctx, tx, id, actor.UserID(), now); err != nil {
			if errors.Is(err, repositories.ErrSubmissionNotPending) {
				return ErrSubmissionNotPending
			}
			return err
		}

		owner, err := s.userRepo.GetByID(ctx, tx, submission.OwnerID)
		if err != nil {
			return fmt.Errorf("failed to load submission owner: %w", err)
		}
		if owner.Role != models.RoleUnverified {
			return fmt.Errorf("%w: submission owner is already verified", ErrConflict)
		}

		if assignedField == nil {
			err := s.userRepo.UpdateRole(ctx, tx, owner.ID, repositories.RoleChange{
				FromRole: owner.Role,
				Role:     models.RoleVerifiedUser,
				Verified: true,
			})
			if errors.Is(err, repositories.ErrUserRoleChanged) {
				return fmt.Errorf("%w: submission owner changed concurrently", ErrConflict)
			}
			if err != nil {
				return fmt.Errorf("failed to verify owner: %w", err)
			}
		} else {
			registryNotes, err := s.registry.assignTx(ctx, tx, *assignedField, owner, now)
			if err != nil {
				return err
			}
			notes = append(notes, registryNotes...)
		}

		profile := models.ProfileFromSubmission(submission, now)
		if err := s.alumniRepo.Create(ctx, tx, profile); err != nil {
			if errors.Is(err, repositories.ErrAlumniProfileExists) {
				return fmt.Errorf("%w: owner already has an alumni profile", ErrConflict)
			}
			return err
		}

		note, err := s.notifier.store(ctx, tx, owner.ID, models.NotificationSubmissionApproved,
			"Your submission was approved. Welcome to the alumni network!", now)
		if err != nil {
			return err
		}
		notes = append(notes, note)
		return nil
	})
	if err != nil {
		return nil, err
	}

	attrs := []any{slog.Int("submission_id", id), slog.Int("reviewer_id", actor.UserID())}
	if assignedField != nil {
		attrs = append(attrs, slog.String("assigned_field", string(*assignedField)))
	}
	s.logger.Info("submission approved", attrs...)
	s.notifier.deliver(ctx, notes...)

	return s.getSubmission(ctx, id)
}

func (s *submissionService) Reject(ctx context.Context, actor authz.Principal, id int, reason string) (*models.Submission, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeReview(actor, submission); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	v := NewValidationError()
	v.Check(reason != "", "reason", "must be provided")
	v.Check(len(reason) <= maxRejectionReason, "reason", fmt.Sprintf("must not exceed %d characters", maxRejectionReason))
	if err := v.Err(); err != nil {
		return nil, err
	}
	if submission.Status != models.SubmissionPending {
		return nil, ErrSubmissionNotPending
	}

	now := s.now().UTC()
	var note *models.Notification
	err = repositories.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.submissionRepo.MarkRejected(ctx, tx, id, actor.UserID(), reason, now); err != nil {
			if errors.Is(err, repositories.ErrSubmissionNotPending) {
				return ErrSubmissionNotPending
			}
			return err
		}
		var err error
		note, err = s.notifier.store(ctx, tx, submission.OwnerID, models.NotificationSubmissionRejected,
			"Your submission was rejected: "+reason, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("submission rejected", slog.Int("submission_id", id), slog.Int("reviewer_id", actor.UserID()))
	s.notifier.deliver(ctx, note)

	return s.getSubmission(ctx, id)
}

func (s *submissionService) Get(ctx context.Context, actor authz.Principal, id int) (*models.Submission, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.OwnerID == actor.UserID() {
		return submission, nil
	}
	if err := s.authorizeReview(actor, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

func (s *submissionService) ListForReview(ctx context.Context, actor authz.Principal, filter ReviewFilter) ([]models.Submission, error) {
	var requested models.Field
	if filter.Field != nil {
		requested = *filter.Field
	}
	decision := authz.Decide(actor, authz.ActionReviewSubmission, authz.Resource{Field: requested})
	if !decision.Allowed {
		return nil, forbidden(decision.Reason)
	}

	status := models.SubmissionPending
	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, validationFailed("status", "must be PENDING, APPROVED or REJECTED")
		}
		status = *filter.Status
	}
	v := NewValidationError()
	v.Check(filter.Limit >= 0, "limit", "must not be negative")
	v.Check(filter.Offset >= 0, "offset", "must not be negative")
	if err := v.Err(); err != nil {
		return nil, err
	}

	repoFilter := repositories.ListSubmissionsFilter{
		Status: &status,
		Field:  filter.Field,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if !decision.Scope.Unrestricted() {
		scoped := decision.Scope.Field
		repoFilter.Field = &scoped
	}

	list, err := s.submissionRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return list, nil
}

func (s *submissionService) ListOwn(ctx context.Context, actor authz.Principal) ([]models.Submission, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	list, err := s.submissionRepo.ListByOwner(ctx, actor.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to list own submissions: %w", err)
	}
	return list, nil
}

func (s *submissionService) getSubmission(ctx context.Context, id int) (*models.Submission, error) {
	submission, err := s.submissionRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission %d: %w", id, err)
	}
	return submission, nil
}
