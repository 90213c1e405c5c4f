package service

import (
	"context"

	"github.com/stemsi/exam-portal/internal/repository"
	"golang.org/x/sync/errgroup"
)

const dashboardActivityLimit = 5

// DashboardData consolidates all metrics for the staff dashboard.
type DashboardData struct {
	Counts         *repository.DashboardCounts        `json:"counts"`
	RecentActivity []repository.DashboardExamActivity `json:"recent_activity"`
}

// DashboardService handles staff dashboard business logic.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData fetches the summary counts and recent activity concurrently.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	data := &DashboardData{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.repo.GetSummaryCounts(gctx)
		data.Counts = counts
		return err
	})
	g.Go(func() error {
		activity, err := s.repo.GetRecentActivity(gctx, dashboardActivityLimit)
		data.RecentActivity = activity
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
