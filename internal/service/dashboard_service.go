package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/initinere/internal/db"
	"github.com/ukydev/initinere/internal/models"
)

const (
	recentTripsLimit = 5
	weekWindow       = 7 * 24 * time.Hour
)

// DashboardService computes read-only statistics over persisted trips,
// safety checks and emergencies. Nothing is cached.
type DashboardService struct {
	trips       db.TripCollection
	checks      db.SafetyCheckCollection
	emergencies db.EmergencyCollection
	now         func() time.Time
}

func NewDashboardService(trips db.TripCollection, checks db.SafetyCheckCollection, emergencies db.EmergencyCollection) *DashboardService {
	return &DashboardService{trips: trips, checks: checks, emergencies: emergencies, now: utcNow}
}

// Summary returns all-time totals, the five newest trips and whether a trip
// is in progress.
func (s *DashboardService) Summary(ctx context.Context, userID string) (*models.DashboardSummary, error) {
	totals, err := s.trips.TripTotals(ctx, userID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("trip totals: %w", err)
	}
	emergencies, err := s.emergencies.CountEmergencies(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count emergencies: %w", err)
	}
	passed, err := s.checks.CountPassedSafetyChecks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count passed safety checks: %w", err)
	}
	recent, err := s.trips.FindTrips(ctx, userID, "", recentTripsLimit)
	if err != nil {
		return nil, fmt.Errorf("find recent trips: %w", err)
	}

	summaries := make([]models.TripSummary, 0, len(recent))
	for i := range recent {
		summaries = append(summaries, recent[i].Summary())
	}

	return &models.DashboardSummary{
		Stats: models.DashboardStats{
			TotalTrips:           totals.Total,
			CompletedTrips:       totals.Completed,
			ActiveTrips:          totals.Active,
			TotalEmergencies:     emergencies,
			SafetyChecksPassed:   passed,
			TotalDistanceKm:      round(totals.DistanceKm, 2),
			TotalDurationMinutes: totals.DurationMinutes,
		},
		RecentTrips:   summaries,
		HasActiveTrip: totals.Active > 0,
	}, nil
}

// Weekly buckets the trips started in the trailing seven days by weekday,
// Sunday first. Days without trips are present with zeroes.
func (s *DashboardService) Weekly(ctx context.Context, userID string) (*models.WeeklyStats, error) {
	since := s.now().Add(-weekWindow)
	days, err := s.trips.DailyTripTotals(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("daily trip totals: %w", err)
	}

	buckets := make([]models.DailyStats, 7)
	for i := range buckets {
		buckets[i] = models.DailyStats{DayOfWeek: i + 1, Day: time.Weekday(i).String()[:3]}
	}
	for _, d := range days {
		if d.DayOfWeek < 1 || d.DayOfWeek > 7 {
			continue
		}
		b := &buckets[d.DayOfWeek-1]
		b.Trips = d.Trips
		b.DistanceKm = round(d.DistanceKm, 2)
		b.DurationMinutes = d.DurationMinutes
	}
	return &models.WeeklyStats{Since: since, Days: buckets}, nil
}

// Monthly summarizes trips started since the first instant of the current
// UTC month.
func (s *DashboardService) Monthly(ctx context.Context, userID string) (*models.MonthlyStats, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	totals, err := s.trips.TripTotals(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("trip totals: %w", err)
	}

	return &models.MonthlyStats{
		Month:                start.Format("2006-01"),
		TotalTrips:           totals.Total,
		CompletedTrips:       totals.Completed,
		TotalDistanceKm:      round(totals.DistanceKm, 2),
		TotalDurationMinutes: totals.DurationMinutes,
		Emergencies:          totals.Emergency,
		CompletionRate:       completionRate(totals.Completed, totals.Total),
	}, nil
}

// completionRate is completed/total as a percentage with one decimal, and 0
// when there are no trips.
func completionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(completed)/float64(total)*100, 1)
}
