package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleType is the kind of vehicle a trip is made with.
type VehicleType string

const (
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleCar        VehicleType = "car"
	VehicleBus        VehicleType = "bus"
)

// IsValidVehicleType checks if a vehicle type is valid
func IsValidVehicleType(v VehicleType) bool {
	switch v {
	case VehicleMotorcycle, VehicleCar, VehicleBus:
		return true
	default:
		return false
	}
}

// Trip represents a single journey from departure to completion.
type Trip struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID          string             `json:"user_id" bson:"user_id"`
	VehicleType     VehicleType        `json:"vehicle_type" bson:"vehicle_type"`
	Status          TripStatus         `json:"status" bson:"status"`
	Route           []LocationPoint    `json:"route" bson:"route"`
	Origin          LocationPoint      `json:"origin" bson:"origin"`
	Destination     *LocationPoint     `json:"destination,omitempty" bson:"destination,omitempty"`
	DistanceKm      float64            `json:"distance_km" bson:"distance_km"`             // straight line once completed
	RouteDistanceKm float64            `json:"route_distance_km" bson:"route_distance_km"` // sum over the reported route
	DurationMinutes int                `json:"duration_minutes" bson:"duration_minutes"`
	SafetyCheckID   primitive.ObjectID `json:"safety_check_id" bson:"safety_check_id"`
	StartedAt       time.Time          `json:"started_at" bson:"started_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// ElapsedMinutes returns the whole minutes between StartedAt and now.
func (t *Trip) ElapsedMinutes(now time.Time) int {
	if now.Before(t.StartedAt) {
		return 0
	}
	return int(now.Sub(t.StartedAt) / time.Minute)
}

// LastPoint returns the most recently reported route point, if any.
func (t *Trip) LastPoint() (LocationPoint, bool) {
	if len(t.Route) == 0 {
		return LocationPoint{}, false
	}
	return t.Route[len(t.Route)-1], true
}

// TripSummary is the projection of a trip shown on the dashboard.
type TripSummary struct {
	ID          primitive.ObjectID `json:"id"`
	VehicleType VehicleType        `json:"vehicle_type"`
	Status      TripStatus         `json:"status"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	DistanceKm  float64            `json:"distance_km"`
}

// Summary projects the trip for listing.
func (t *Trip) Summary() TripSummary {
	return TripSummary{
		ID:          t.ID,
		VehicleType: t.VehicleType,
		Status:      t.Status,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		DistanceKm:  t.DistanceKm,
	}
}
