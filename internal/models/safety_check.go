package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChecklistItem is one line of a safety check.
type ChecklistItem struct {
	Name        string `bson:"item_name" json:"item_name" validate:"required,max=100"`
	Description string `bson:"description" json:"description" validate:"max=500"`
	Checked     bool   `bson:"is_checked" json:"is_checked"`
}

// SafetyCheck is the pre-trip checklist a user must pass before starting a
// trip. TripID is set when a trip consumes the check.
type SafetyCheck struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    string              `bson:"user_id" json:"user_id"`
	TripID    *primitive.ObjectID `bson:"trip_id" json:"trip_id"`
	Items     []ChecklistItem     `bson:"items" json:"items"`
	Status    SafetyCheckStatus   `bson:"status" json:"status"`
	PassedAt  *time.Time          `bson:"passed_at,omitempty" json:"passed_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

// UncheckedCount returns how many items are still unchecked.
func (c *SafetyCheck) UncheckedCount() int {
	n := 0
	for _, item := range c.Items {
		if !item.Checked {
			n++
		}
	}
	return n
}

// Complete reports whether the checklist is non-empty and fully checked.
func (c *SafetyCheck) Complete() bool {
	return len(c.Items) > 0 && c.UncheckedCount() == 0
}

// DefaultChecklist returns a fresh copy of the canonical eight-item checklist,
// all unchecked.
func DefaultChecklist() []ChecklistItem {
	return []ChecklistItem{
		{Name: "vehicle_state", Description: "General condition of the vehicle"},
		{Name: "lights", Description: "Headlights, turn signals and brake lights"},
		{Name: "brakes", Description: "Service and emergency brakes"},
		{Name: "tires", Description: "Tire pressure and tread condition"},
		{Name: "mirrors", Description: "Side and rear-view mirrors"},
		{Name: "documents", Description: "License, insurance and registration"},
		{Name: "safety_gear", Description: "Helmet on or seat belt fastened"},
		{Name: "first_aid", Description: "First aid kit present and complete"},
	}
}
