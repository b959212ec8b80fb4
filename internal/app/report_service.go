package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/strenly/coachpulse/internal/domain"
	apperrors "github.com/strenly/coachpulse/internal/errors"
)

// Reporting windows. Callers get fixed windows rather than arbitrary ranges;
// the charts these feed have fixed axes.
const (
	checkinReportWeeks     = 8
	attendanceReportDays   = 30
	revenueReportMonths    = 12
	weightTrendDefaultDays = 90
)

// ReportService implements domain.ReportService as thin authorization
// wrappers over the aggregate queries.
type ReportService struct {
	reports domain.ReportRepository
	cohorts domain.CohortRepository
	clock   clockwork.Clock
}

var _ domain.ReportService = (*ReportService)(nil)

func NewReportService(reports domain.ReportRepository, cohorts domain.CohortRepository, clock clockwork.Clock) *ReportService {
	return &ReportService{reports: reports, cohorts: cohorts, clock: clock}
}

func (s *ReportService) CohortWeeklyCheckins(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.SeriesPoint, error) {
	if err := s.requireCohortReport(ctx, actor, cohortID); err != nil {
		return nil, err
	}
	points, err := s.reports.CohortWeeklyCheckins(ctx, cohortID, checkinReportWeeks, s.clock.Now().UTC())
	if err != nil {
		return nil, apperrors.InternalError("failed to build check-in report", err)
	}
	return points, nil
}

func (s *ReportService) ClientWeightTrend(ctx context.Context, actor *domain.User, userID uuid.UUID, from, to time.Time) ([]domain.SeriesPoint, error) {
	if err := requireUserAccess(ctx, s.cohorts, actor, userID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -weightTrendDefaultDays)
	}
	if to.Before(from) {
		return nil, apperrors.ValidationError("date range end must not be before start")
	}

	points, err := s.reports.ClientWeightTrend(ctx, userID, from, to)
	if err != nil {
		return nil, apperrors.InternalError("failed to build weight trend", err)
	}
	return points, nil
}

func (s *ReportService) CohortAttendance(ctx context.Context, actor *domain.User, cohortID uuid.UUID) ([]domain.AttendancePoint, error) {
	if err := s.requireCohortReport(ctx, actor, cohortID); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	points, err := s.reports.CohortAttendance(ctx, cohortID, now.AddDate(0, 0, -attendanceReportDays), now)
	if err != nil {
		return nil, apperrors.InternalError("failed to build attendance report", err)
	}
	return points, nil
}

func (s *ReportService) MonthlyRevenue(ctx context.Context, actor *domain.User) ([]domain.SeriesPoint, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	points, err := s.reports.MonthlyRevenue(ctx, revenueReportMonths, s.clock.Now().UTC())
	if err != nil {
		return nil, apperrors.InternalError("failed to build revenue report", err)
	}
	return points, nil
}

func (s *ReportService) ActiveMembershipsPerPlan(ctx context.Context, actor *domain.User) ([]domain.SeriesPoint, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	points, err := s.reports.ActiveMembershipsPerPlan(ctx)
	if err != nil {
		return nil, apperrors.InternalError("failed to build membership report", err)
	}
	return points, nil
}

func (s *ReportService) requireCohortReport(ctx context.Context, actor *domain.User, cohortID uuid.UUID) error {
	cohort, err := s.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return translate(err, "Cohort not found")
	}
	return requireCohortAccess(actor, cohort)
}
