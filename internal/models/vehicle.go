package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle is a vehicle registered by a user. Deactivated vehicles are kept.
type Vehicle struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	VehicleType  VehicleType        `bson:"vehicle_type" json:"vehicle_type"`
	LicensePlate string             `bson:"license_plate" json:"license_plate"` // stored upper case, unique
	Brand        string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Model        string             `bson:"model,omitempty" json:"model,omitempty"`
	Year         int                `bson:"year,omitempty" json:"year,omitempty"`
	Color        string             `bson:"color,omitempty" json:"color,omitempty"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}
