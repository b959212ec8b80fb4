package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SeriesPoint is one chart-ready label/value pair.
type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// AttendancePoint compares registered count against capacity per session.
type AttendancePoint struct {
	Label      string    `json:"label"`
	StartsAt   time.Time `json:"starts_at"`
	Registered int       `json:"registered"`
	Capacity   int       `json:"capacity"`
}

type ReportRepository interface {
	// CohortWeeklyCheckins counts member entries per ISO week, oldest first.
	CohortWeeklyCheckins(ctx context.Context, cohortID uuid.UUID, weeks int, now time.Time) ([]SeriesPoint, error)
	// ClientWeightTrend returns daily weight points inside [from, to].
	ClientWeightTrend(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]SeriesPoint, error)
	// CohortAttendance lists registered-vs-capacity per session started in
	// the trailing window.
	CohortAttendance(ctx context.Context, cohortID uuid.UUID, since, now time.Time) ([]AttendancePoint, error)
	// MonthlyRevenue sums paid invoices per calendar month, oldest first.
	MonthlyRevenue(ctx context.Context, months int, now time.Time) ([]SeriesPoint, error)
	// ActiveMembershipsPerPlan counts active memberships grouped by plan name.
	ActiveMembershipsPerPlan(ctx context.Context) ([]SeriesPoint, error)
}
