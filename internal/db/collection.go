package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches, including when a
	// conditional update's expected state no longer holds.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate key")
	// ErrNilCollection is returned by Mongo collections that were never wired.
	ErrNilCollection = errors.New("mongo collection is nil")
)

// TripChange describes the fields written together with a trip status
// transition. Nil fields are left untouched.
type TripChange struct {
	Status          models.TripStatus
	Destination     *models.LocationPoint
	DistanceKm      *float64
	DurationMinutes *int
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

// RouteAppend describes one location report. ExpectedLen is the route length
// the caller based AddKm on; the append only applies if it still holds.
type RouteAppend struct {
	ExpectedLen     int
	Point           models.LocationPoint
	AddKm           float64
	DurationMinutes int
	UpdatedAt       time.Time
}

// TripTotals is the result of grouping a user's trips into one bucket.
type TripTotals struct {
	Total           int64   `bson:"total"`
	Completed       int64   `bson:"completed"`
	Active          int64   `bson:"active"`
	Emergency       int64   `bson:"emergency"`
	DistanceKm      float64 `bson:"distance_km"`
	DurationMinutes int64   `bson:"duration_minutes"`
}

// DayTotals groups trips by the weekday they started on, 1 being Sunday.
type DayTotals struct {
	DayOfWeek       int     `bson:"_id"`
	Trips           int64   `bson:"trips"`
	DistanceKm      float64 `bson:"distance_km"`
	DurationMinutes int64   `bson:"duration_minutes"`
}

// TripCollection defines the interface for trip data operations.
type TripCollection interface {
	// InsertTrip returns ErrDuplicate if the user already has a trip in progress.
	InsertTrip(ctx context.Context, trip *models.Trip) error
	FindTrip(ctx context.Context, id primitive.ObjectID, userID string) (*models.Trip, error)
	FindActiveTrip(ctx context.Context, userID string) (*models.Trip, error)
	// FindTrips returns trips newest first; an empty status matches all.
	FindTrips(ctx context.Context, userID string, status models.TripStatus, limit int64) ([]models.Trip, error)
	AppendRoutePoint(ctx context.Context, id primitive.ObjectID, userID string, from []models.TripStatus, a RouteAppend) (*models.Trip, error)
	TransitionTrip(ctx context.Context, id primitive.ObjectID, userID string, from []models.TripStatus, change TripChange) (*models.Trip, error)
	// TripTotals groups trips started at or after since; a zero since means all time.
	TripTotals(ctx context.Context, userID string, since time.Time) (TripTotals, error)
	DailyTripTotals(ctx context.Context, userID string, since time.Time) ([]DayTotals, error)
}

// SafetyCheckCollection defines the interface for safety check data operations.
type SafetyCheckCollection interface {
	InsertSafetyCheck(ctx context.Context, check *models.SafetyCheck) error
	FindSafetyCheck(ctx context.Context, id primitive.ObjectID, userID string) (*models.SafetyCheck, error)
	FindLatestSafetyCheck(ctx context.Context, userID string) (*models.SafetyCheck, error)
	FindLatestPassedSafetyCheck(ctx context.Context, userID string) (*models.SafetyCheck, error)
	ReplaceItems(ctx context.Context, id primitive.ObjectID, userID string, from []models.SafetyCheckStatus, items []models.ChecklistItem, at time.Time) (*models.SafetyCheck, error)
	// TransitionSafetyCheck moves a check to status. With requireComplete the
	// write only applies if every item is checked.
	TransitionSafetyCheck(ctx context.Context, id primitive.ObjectID, userID string, from []models.SafetyCheckStatus, to models.SafetyCheckStatus, requireComplete bool, at time.Time) (*models.SafetyCheck, error)
	// ClaimPassedSafetyCheck links the newest passed, unclaimed check to tripID.
	ClaimPassedSafetyCheck(ctx context.Context, userID string, tripID primitive.ObjectID, at time.Time) (*models.SafetyCheck, error)
	ReleaseSafetyCheck(ctx context.Context, id, tripID primitive.ObjectID) error
	CountPassedSafetyChecks(ctx context.Context, userID string) (int64, error)
}

// EmergencyCollection defines the interface for emergency data operations.
type EmergencyCollection interface {
	InsertEmergency(ctx context.Context, emergency *models.Emergency) error
	FindEmergency(ctx context.Context, id primitive.ObjectID, userID string) (*models.Emergency, error)
	FindEmergencies(ctx context.Context, userID string, status models.EmergencyStatus, limit int64) ([]models.Emergency, error)
	ResolveEmergency(ctx context.Context, id primitive.ObjectID, userID string, from []models.EmergencyStatus, notes string, at time.Time) (*models.Emergency, error)
	CountEmergencies(ctx context.Context, userID string) (int64, error)
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	// InsertUser returns ErrDuplicate if the email is taken.
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
	UpdateVehiclePreference(ctx context.Context, id string, preference models.VehicleType) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error)
}

// ProfileUpdate carries the profile fields to change; nil fields are kept.
type ProfileUpdate struct {
	FullName *string
	Phone    *string
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	// InsertVehicle returns ErrDuplicate if the license plate is taken.
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicles(ctx context.Context, userID string, activeOnly bool) ([]models.Vehicle, error)
	FindVehicle(ctx context.Context, id primitive.ObjectID, userID string) (*models.Vehicle, error)
	DeactivateVehicle(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*models.Vehicle, error)
}

// Store bundles every collection behind one handle owned by main.
type Store struct {
	Driver       string
	Trips        TripCollection
	SafetyChecks SafetyCheckCollection
	Emergencies  EmergencyCollection
	Users        UserCollection
	Vehicles     VehicleCollection

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the underlying connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
