package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/initinere/internal/db"
	apperrors "github.com/ukydev/initinere/internal/errors"
	"github.com/ukydev/initinere/internal/geo"
	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SafetyGate hands out the passed safety check a new trip is authorized by.
type SafetyGate interface {
	Claim(ctx context.Context, userID string, tripID primitive.ObjectID) (*models.SafetyCheck, error)
	Release(ctx context.Context, checkID, tripID primitive.ObjectID) error
}

// maxAppendAttempts bounds how often a location report is retried after
// losing a race against another report for the same trip.
const maxAppendAttempts = 3

// TripService is the trip state machine.
type TripService struct {
	trips db.TripCollection
	gate  SafetyGate
	now   func() time.Time
}

func NewTripService(trips db.TripCollection, gate SafetyGate) *TripService {
	return &TripService{trips: trips, gate: gate, now: utcNow}
}

// Start creates an in-progress trip authorized by the user's newest unused
// passed safety check.
func (s *TripService) Start(ctx context.Context, userID string, vehicleType models.VehicleType, origin models.LocationPoint) (*models.Trip, error) {
	if !models.IsValidVehicleType(vehicleType) {
		return nil, apperrors.Validation(fmt.Sprintf("invalid vehicle type %q", vehicleType))
	}

	active, err := s.ActiveTrip(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperrors.ActiveTripExists()
	}

	tripID := primitive.NewObjectID()
	check, err := s.gate.Claim(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	origin.Timestamp = now
	trip := &models.Trip{
		ID:            tripID,
		UserID:        userID,
		VehicleType:   vehicleType,
		Status:        models.TripInProgress,
		Route:         []models.LocationPoint{},
		Origin:        origin,
		SafetyCheckID: check.ID,
		StartedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.trips.InsertTrip(ctx, trip); err != nil {
		if relErr := s.gate.Release(ctx, check.ID, tripID); relErr != nil {
			log.WithError(relErr).WithField("safety_check_id", check.ID.Hex()).Error("Failed to release safety check")
		}
		if errors.Is(err, db.ErrDuplicate) {
			return nil, apperrors.ActiveTripExists()
		}
		return nil, fmt.Errorf("insert trip: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":         userID,
		"trip_id":         tripID.Hex(),
		"safety_check_id": check.ID.Hex(),
		"vehicle_type":    vehicleType,
	}).Info("Trip started")
	return trip, nil
}

// ReportLocation appends a point to an in-progress trip and adds the distance
// from the previous point. Points are not filtered or smoothed.
func (s *TripService) ReportLocation(ctx context.Context, id, userID string, point models.LocationPoint) (*models.Trip, error) {
	oid, err := parseID(id, "trip")
	if err != nil {
		return nil, err
	}

	ev := models.TripEventLocation
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		trip, err := s.findAccepting(ctx, oid, userID, ev)
		if err != nil {
			return nil, err
		}

		now := s.now()
		point.Timestamp = now
		var addKm float64
		if prev, ok := trip.LastPoint(); ok {
			addKm = geo.DistanceKm(prev.Latitude, prev.Longitude, point.Latitude, point.Longitude)
		}

		updated, err := s.trips.AppendRoutePoint(ctx, oid, userID, ev.Sources(), db.RouteAppend{
			ExpectedLen:     len(trip.Route),
			Point:           point,
			AddKm:           addKm,
			DurationMinutes: trip.ElapsedMinutes(now),
			UpdatedAt:       now,
		})
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("append route point: %w", err)
		}
		log.WithFields(log.Fields{"trip_id": id, "attempt": attempt + 1}).Debug("Route changed underneath location report, retrying")
	}
	return nil, apperrors.Conflict("the trip route is being updated concurrently, retry")
}

// Complete ends an in-progress trip at end. The persisted distance is the
// straight line from origin to end; the summed route distance is kept in
// RouteDistanceKm.
func (s *TripService) Complete(ctx context.Context, id, userID string, end models.LocationPoint) (*models.Trip, error) {
	return s.finish(ctx, id, userID, models.TripEventComplete, &end)
}

// Cancel abandons an in-progress trip.
func (s *TripService) Cancel(ctx context.Context, id, userID string) (*models.Trip, error) {
	return s.finish(ctx, id, userID, models.TripEventCancel, nil)
}

func (s *TripService) finish(ctx context.Context, id, userID string, ev models.TripEvent, end *models.LocationPoint) (*models.Trip, error) {
	oid, err := parseID(id, "trip")
	if err != nil {
		return nil, err
	}
	trip, err := s.findAccepting(ctx, oid, userID, ev)
	if err != nil {
		return nil, err
	}

	now := s.now()
	to, _ := trip.Status.Next(ev)
	minutes := trip.ElapsedMinutes(now)
	change := db.TripChange{
		Status:          to,
		DurationMinutes: &minutes,
		CompletedAt:     &now,
		UpdatedAt:       now,
	}
	if end != nil {
		end.Timestamp = now
		distance := geo.DistanceKm(trip.Origin.Latitude, trip.Origin.Longitude, end.Latitude, end.Longitude)
		change.Destination = end
		change.DistanceKm = &distance
	}

	updated, err := s.trips.TransitionTrip(ctx, oid, userID, ev.Sources(), change)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.NotFound("trip")
	}
	if err != nil {
		return nil, fmt.Errorf("transition trip: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":     userID,
		"trip_id":     id,
		"status":      updated.Status,
		"distance_km": updated.DistanceKm,
		"minutes":     updated.DurationMinutes,
	}).Info("Trip finished")
	return updated, nil
}

// SetEmergency flags a trip as being in an emergency. Flagging a trip that is
// already in emergency returns it unchanged; finished trips are rejected.
func (s *TripService) SetEmergency(ctx context.Context, id, userID string) (*models.Trip, error) {
	oid, err := parseID(id, "trip")
	if err != nil {
		return nil, err
	}

	ev := models.TripEventEmergency
	trip, err := s.get(ctx, oid, userID)
	if err != nil {
		return nil, err
	}
	to, ok := trip.Status.Next(ev)
	if !ok {
		return nil, apperrors.InvalidTransition("trip", string(trip.Status), ev.String())
	}
	if to == trip.Status {
		return trip, nil
	}

	now := s.now()
	minutes := trip.ElapsedMinutes(now)
	updated, err := s.trips.TransitionTrip(ctx, oid, userID, ev.Sources(), db.TripChange{
		Status:          to,
		DurationMinutes: &minutes,
		UpdatedAt:       now,
	})
	if errors.Is(err, db.ErrNotFound) {
		// finished in the meantime
		current, getErr := s.get(ctx, oid, userID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperrors.InvalidTransition("trip", string(current.Status), ev.String())
	}
	if err != nil {
		return nil, fmt.Errorf("transition trip: %w", err)
	}

	log.WithFields(log.Fields{"user_id": userID, "trip_id": id}).Warn("Trip escalated to emergency")
	return updated, nil
}

// ActiveTrip returns the user's in-progress trip, or nil.
func (s *TripService) ActiveTrip(ctx context.Context, userID string) (*models.Trip, error) {
	trip, err := s.trips.FindActiveTrip(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active trip: %w", err)
	}
	return trip, nil
}

func (s *TripService) HasActiveTrip(ctx context.Context, userID string) (bool, error) {
	trip, err := s.ActiveTrip(ctx, userID)
	return trip != nil, err
}

// List returns the user's trips newest first. An empty status matches all.
func (s *TripService) List(ctx context.Context, userID string, status models.TripStatus, limit int) ([]models.Trip, error) {
	trips, err := s.trips.FindTrips(ctx, userID, status, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("find trips: %w", err)
	}
	return trips, nil
}

func (s *TripService) Get(ctx context.Context, id, userID string) (*models.Trip, error) {
	oid, err := parseID(id, "trip")
	if err != nil {
		return nil, err
	}
	return s.get(ctx, oid, userID)
}

func (s *TripService) get(ctx context.Context, id primitive.ObjectID, userID string) (*models.Trip, error) {
	trip, err := s.trips.FindTrip(ctx, id, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.NotFound("trip")
	}
	if err != nil {
		return nil, fmt.Errorf("find trip: %w", err)
	}
	return trip, nil
}

// findAccepting loads a trip that accepts ev. Trips that do not are reported
// as not found, the same as trips of another user.
func (s *TripService) findAccepting(ctx context.Context, id primitive.ObjectID, userID string, ev models.TripEvent) (*models.Trip, error) {
	trip, err := s.get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := trip.Status.Next(ev); !ok {
		return nil, apperrors.NotFound("trip")
	}
	return trip, nil
}
