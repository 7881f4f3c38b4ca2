package models

import "time"

// DashboardStats are the all-time totals for a user.
type DashboardStats struct {
	TotalTrips           int64   `json:"total_trips"`
	CompletedTrips       int64   `json:"completed_trips"`
	ActiveTrips          int64   `json:"active_trips"`
	TotalEmergencies     int64   `json:"total_emergencies"`
	SafetyChecksPassed   int64   `json:"safety_checks_passed"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationMinutes int64   `json:"total_duration_minutes"`
}

type DashboardSummary struct {
	Stats         DashboardStats `json:"stats"`
	RecentTrips   []TripSummary  `json:"recent_trips"`
	HasActiveTrip bool           `json:"has_active_trip"`
}

// DailyStats is one weekday bucket of the weekly view. DayOfWeek is 1 for Sunday.
type DailyStats struct {
	DayOfWeek       int     `json:"day_of_week"`
	Day             string  `json:"day"`
	Trips           int64   `json:"trips"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int64   `json:"duration_minutes"`
}

type WeeklyStats struct {
	Since time.Time    `json:"since"`
	Days  []DailyStats `json:"days"`
}

type MonthlyStats struct {
	Month                string  `json:"month"`
	TotalTrips           int64   `json:"total_trips"`
	CompletedTrips       int64   `json:"completed_trips"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDurationMinutes int64   `json:"total_duration_minutes"`
	Emergencies          int64   `json:"emergencies"`
	CompletionRate       float64 `json:"completion_rate"`
}
