package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmergencyType string

const (
	EmergencyAccident EmergencyType = "accident"
	EmergencyRobbery  EmergencyType = "robbery"
	EmergencyMedical  EmergencyType = "medical"
	EmergencyOther    EmergencyType = "other"
)

// Emergency is an alert raised by a user, optionally coupled to the trip that
// was in progress when it was raised.
type Emergency struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          string              `bson:"user_id" json:"user_id"`
	TripID          *primitive.ObjectID `bson:"trip_id,omitempty" json:"trip_id,omitempty"`
	Type            EmergencyType       `bson:"emergency_type" json:"emergency_type"`
	Description     string              `bson:"description" json:"description"`
	Location        LocationPoint       `bson:"location" json:"location"`
	Status          EmergencyStatus     `bson:"status" json:"status"`
	ResolvedAt      *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ResolutionNotes string              `bson:"resolution_notes,omitempty" json:"resolution_notes,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}

// EmergencyContact is a public emergency line.
type EmergencyContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// EmergencyContacts returns the national emergency lines.
func EmergencyContacts() []EmergencyContact {
	return []EmergencyContact{
		{ID: "police", Name: "Police", Phone: "123"},
		{ID: "ambulance", Name: "Ambulance", Phone: "125"},
		{ID: "firefighters", Name: "Firefighters", Phone: "119"},
	}
}

// IsValidEmergencyType checks if an emergency type is valid
func IsValidEmergencyType(t EmergencyType) bool {
	switch t {
	case EmergencyAccident, EmergencyRobbery, EmergencyMedical, EmergencyOther:
		return true
	default:
		return false
	}
}
