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
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SafetyCheckService owns checklists and is the single authority on whether
// a user may start a trip.
type SafetyCheckService struct {
	checks db.SafetyCheckCollection
	trips  db.TripCollection
	now    func() time.Time
}

func NewSafetyCheckService(checks db.SafetyCheckCollection, trips db.TripCollection) *SafetyCheckService {
	return &SafetyCheckService{checks: checks, trips: trips, now: utcNow}
}

// Template returns the canonical checklist new checks start from.
func (s *SafetyCheckService) Template() []models.ChecklistItem {
	return models.DefaultChecklist()
}

// Create starts a pending check. An empty item list means the canonical
// checklist.
func (s *SafetyCheckService) Create(ctx context.Context, userID string, items []models.ChecklistItem) (*models.SafetyCheck, error) {
	_, err := s.trips.FindActiveTrip(ctx, userID)
	switch {
	case err == nil:
		return nil, apperrors.Precondition("a safety check cannot be started while a trip is in progress")
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("find active trip: %w", err)
	}

	if len(items) == 0 {
		items = models.DefaultChecklist()
	}
	now := s.now()
	check := &models.SafetyCheck{
		UserID:    userID,
		Items:     items,
		Status:    models.SafetyCheckPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.checks.InsertSafetyCheck(ctx, check); err != nil {
		return nil, fmt.Errorf("insert safety check: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":         userID,
		"safety_check_id": check.ID.Hex(),
		"items":           len(items),
	}).Info("Safety check created")
	return check, nil
}

// UpdateItems replaces the whole item list of a pending check.
func (s *SafetyCheckService) UpdateItems(ctx context.Context, id, userID string, items []models.ChecklistItem) (*models.SafetyCheck, error) {
	oid, err := parseID(id, "safety check")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.Validation("a checklist needs at least one item")
	}

	ev := models.SafetyCheckEventEditItems
	check, err := s.checks.ReplaceItems(ctx, oid, userID, ev.Sources(), items, s.now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, s.explain(ctx, oid, userID, ev)
	}
	if err != nil {
		return nil, fmt.Errorf("replace items: %w", err)
	}
	return check, nil
}

// Approve passes a pending check whose items are all checked. Status and
// completeness are verified by the same conditional write.
func (s *SafetyCheckService) Approve(ctx context.Context, id, userID string) (*models.SafetyCheck, error) {
	return s.decide(ctx, id, userID, models.SafetyCheckEventApprove)
}

// Reject fails a pending check regardless of its items.
func (s *SafetyCheckService) Reject(ctx context.Context, id, userID string) (*models.SafetyCheck, error) {
	return s.decide(ctx, id, userID, models.SafetyCheckEventReject)
}

func (s *SafetyCheckService) decide(ctx context.Context, id, userID string, ev models.SafetyCheckEvent) (*models.SafetyCheck, error) {
	oid, err := parseID(id, "safety check")
	if err != nil {
		return nil, err
	}

	to, _ := models.SafetyCheckPending.Next(ev)
	requireComplete := ev == models.SafetyCheckEventApprove
	check, err := s.checks.TransitionSafetyCheck(ctx, oid, userID, ev.Sources(), to, requireComplete, s.now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, s.explain(ctx, oid, userID, ev)
	}
	if err != nil {
		return nil, fmt.Errorf("transition safety check: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":         userID,
		"safety_check_id": id,
		"status":          check.Status,
	}).Info("Safety check decided")
	return check, nil
}

// explain classifies a conditional write that matched nothing.
func (s *SafetyCheckService) explain(ctx context.Context, id primitive.ObjectID, userID string, ev models.SafetyCheckEvent) error {
	check, err := s.checks.FindSafetyCheck(ctx, id, userID)
	if errors.Is(err, db.ErrNotFound) {
		return apperrors.NotFound("safety check")
	}
	if err != nil {
		return fmt.Errorf("find safety check: %w", err)
	}
	if _, ok := check.Status.Next(ev); !ok {
		return apperrors.InvalidTransition("safety check", string(check.Status), ev.String())
	}
	if ev == models.SafetyCheckEventApprove && !check.Complete() {
		if len(check.Items) == 0 {
			return apperrors.Incomplete("the checklist has no items")
		}
		return apperrors.Incomplete(fmt.Sprintf("%d of %d items are unchecked", check.UncheckedCount(), len(check.Items)))
	}
	return apperrors.Conflict("the safety check changed while it was being updated, retry")
}

func (s *SafetyCheckService) Get(ctx context.Context, id, userID string) (*models.SafetyCheck, error) {
	oid, err := parseID(id, "safety check")
	if err != nil {
		return nil, err
	}
	check, err := s.checks.FindSafetyCheck(ctx, oid, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.NotFound("safety check")
	}
	if err != nil {
		return nil, fmt.Errorf("find safety check: %w", err)
	}
	return check, nil
}

// Current returns the user's newest check of any status, or nil.
func (s *SafetyCheckService) Current(ctx context.Context, userID string) (*models.SafetyCheck, error) {
	check, err := s.checks.FindLatestSafetyCheck(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest safety check: %w", err)
	}
	return check, nil
}

// LatestPassed returns the most recently passed check, or nil.
func (s *SafetyCheckService) LatestPassed(ctx context.Context, userID string) (*models.SafetyCheck, error) {
	check, err := s.checks.FindLatestPassedSafetyCheck(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest passed safety check: %w", err)
	}
	return check, nil
}

// Claim consumes the newest passed check that no trip has used yet. Each
// passed check authorizes exactly one trip.
func (s *SafetyCheckService) Claim(ctx context.Context, userID string, tripID primitive.ObjectID) (*models.SafetyCheck, error) {
	check, err := s.checks.ClaimPassedSafetyCheck(ctx, userID, tripID, s.now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.NoPassedSafetyCheck()
	}
	if err != nil {
		return nil, fmt.Errorf("claim safety check: %w", err)
	}
	return check, nil
}

// Release returns a claimed check when the trip it was claimed for was
// never created.
func (s *SafetyCheckService) Release(ctx context.Context, checkID, tripID primitive.ObjectID) error {
	if err := s.checks.ReleaseSafetyCheck(ctx, checkID, tripID); err != nil {
		return fmt.Errorf("release safety check: %w", err)
	}
	return nil
}
