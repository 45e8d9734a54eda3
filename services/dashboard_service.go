package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	GetStats(ctx context.Context, actor authz.Principal) (models.DashboardStats, error)
}

type dashboardService struct {
	submissionRepo repositories.SubmissionRepository
	alumniRepo     repositories.AlumniRepository
	eventRepo      repositories.EventRepository
	fieldAdminRepo repositories.FieldAdminRepository
	now            func() time.Time
}

func NewDashboardService(
	submissionRepo repositories.SubmissionRepository,
	alumniRepo repositories.AlumniRepository,
	eventRepo repositories.EventRepository,
	fieldAdminRepo repositories.FieldAdminRepository,
) DashboardService {
	return &dashboardService{
		submissionRepo: submissionRepo,
		alumniRepo:     alumniRepo,
		eventRepo:      eventRepo,
		fieldAdminRepo: fieldAdminRepo,
		now:            time.Now,
	}
}

// GetStats доступна рецензентам; счётчики заявок и выпускников ограничены их направлением.
func (s *dashboardService) GetStats(ctx context.Context, actor authz.Principal) (models.DashboardStats, error) {
	var stats models.DashboardStats

	decision := authz.Decide(actor, authz.ActionReviewSubmission, authz.Resource{})
	if !decision.Allowed {
		return stats, forbidden(decision.Reason)
	}

	var scopeField *models.Field
	alumniQuery := repositories.AlumniQuery{Limit: 1}
	if !decision.Scope.Unrestricted() {
		f := decision.Scope.Field
		scopeField = &f
		alumniQuery.Fields = []models.Field{f}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.submissionRepo.CountPending(gctx, scopeField)
		stats.PendingSubmissions = n
		return err
	})
	g.Go(func() error {
		_, total, err := s.alumniRepo.Search(gctx, alumniQuery)
		stats.VerifiedAlumni = total
		return err
	})
	g.Go(func() error {
		n, err := s.eventRepo.CountUpcoming(gctx, s.now().UTC())
		stats.UpcomingEvents = n
		return err
	})
	g.Go(func() error {
		n, err := s.fieldAdminRepo.CountAssigned(gctx)
		stats.AssignedFields = n
		return err
	})
	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, fmt.Errorf("failed to collect dashboard stats: %w", err)
	}
	return stats, nil
}
