package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/initinere/internal/db"
	apperrors "github.com/ukydev/initinere/internal/errors"
	"github.com/ukydev/initinere/internal/models"
	"github.com/ukydev/initinere/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripEscalator is the part of the trip state machine emergencies need.
type TripEscalator interface {
	ActiveTrip(ctx context.Context, userID string) (*models.Trip, error)
	SetEmergency(ctx context.Context, id, userID string) (*models.Trip, error)
}

// EmergencyService raises and resolves emergency alerts.
type EmergencyService struct {
	emergencies db.EmergencyCollection
	trips       TripEscalator
	publisher   notify.Publisher
	now         func() time.Time
}

func NewEmergencyService(emergencies db.EmergencyCollection, trips TripEscalator, publisher notify.Publisher) *EmergencyService {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &EmergencyService{emergencies: emergencies, trips: trips, publisher: publisher, now: utcNow}
}

// Contacts returns the public emergency lines.
func (s *EmergencyService) Contacts() []models.EmergencyContact {
	return models.EmergencyContacts()
}

// Raise records an active emergency. If the user has a trip in progress the
// emergency references it and the trip is escalated to emergency.
func (s *EmergencyService) Raise(ctx context.Context, userID string, typ models.EmergencyType, description string, point models.LocationPoint) (*models.Emergency, error) {
	if !models.IsValidEmergencyType(typ) {
		return nil, apperrors.Validation(fmt.Sprintf("invalid emergency type %q", typ))
	}

	active, err := s.trips.ActiveTrip(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	point.Timestamp = now
	emergency := &models.Emergency{
		UserID:      userID,
		Type:        typ,
		Description: description,
		Location:    point,
		Status:      models.EmergencyActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if active != nil {
		tripID := active.ID
		emergency.TripID = &tripID
	}
	if err := s.emergencies.InsertEmergency(ctx, emergency); err != nil {
		return nil, fmt.Errorf("insert emergency: %w", err)
	}

	entry := log.WithFields(log.Fields{
		"user_id":        userID,
		"emergency_id":   emergency.ID.Hex(),
		"emergency_type": typ,
	})
	if active != nil {
		entry = entry.WithField("trip_id", active.ID.Hex())
		if _, err := s.trips.SetEmergency(ctx, active.ID.Hex(), userID); err != nil {
			if !errors.Is(err, apperrors.ErrInvalidState) {
				return nil, fmt.Errorf("escalate trip: %w", err)
			}
			// the trip ended between lookup and escalation; the alert stands
			entry.WithError(err).Warn("Trip finished before it could be escalated")
		}
	}
	entry.Warn("Emergency raised")

	s.publish(ctx, notify.EventRaised, emergency)
	return emergency, nil
}

// Resolve closes an active emergency. The coupled trip keeps its status.
func (s *EmergencyService) Resolve(ctx context.Context, id, userID, notes string) (*models.Emergency, error) {
	oid, err := parseID(id, "emergency")
	if err != nil {
		return nil, err
	}

	ev := models.EmergencyEventResolve
	emergency, err := s.emergencies.ResolveEmergency(ctx, oid, userID, ev.Sources(), notes, s.now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, s.explain(ctx, oid, userID, ev)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve emergency: %w", err)
	}

	log.WithFields(log.Fields{"user_id": userID, "emergency_id": id}).Info("Emergency resolved")
	s.publish(ctx, notify.EventResolved, emergency)
	return emergency, nil
}

func (s *EmergencyService) explain(ctx context.Context, id primitive.ObjectID, userID string, ev models.EmergencyEvent) error {
	emergency, err := s.emergencies.FindEmergency(ctx, id, userID)
	if errors.Is(err, db.ErrNotFound) {
		return apperrors.NotFound("emergency")
	}
	if err != nil {
		return fmt.Errorf("find emergency: %w", err)
	}
	if _, ok := emergency.Status.Next(ev); !ok {
		return apperrors.InvalidTransition("emergency", string(emergency.Status), ev.String())
	}
	return apperrors.Conflict("the emergency changed while it was being updated, retry")
}

func (s *EmergencyService) Get(ctx context.Context, id, userID string) (*models.Emergency, error) {
	oid, err := parseID(id, "emergency")
	if err != nil {
		return nil, err
	}
	emergency, err := s.emergencies.FindEmergency(ctx, oid, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.NotFound("emergency")
	}
	if err != nil {
		return nil, fmt.Errorf("find emergency: %w", err)
	}
	return emergency, nil
}

// List returns the user's emergencies newest first. An empty status matches all.
func (s *EmergencyService) List(ctx context.Context, userID string, status models.EmergencyStatus, limit int) ([]models.Emergency, error) {
	emergencies, err := s.emergencies.FindEmergencies(ctx, userID, status, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("find emergencies: %w", err)
	}
	return emergencies, nil
}

// publish notifies subscribers. The emergency is already stored, so a
// broker failure is logged and not returned.
func (s *EmergencyService) publish(ctx context.Context, event string, emergency *models.Emergency) {
	err := s.publisher.PublishEmergency(ctx, notify.EmergencyEvent{
		Event:      event,
		Emergency:  *emergency,
		OccurredAt: s.now(),
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"emergency_id": emergency.ID.Hex(),
			"event":        event,
		}).Error("Failed to publish emergency event")
	}
}
