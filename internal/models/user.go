package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered driver
type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email             string             `bson:"email" json:"email"`
	PasswordHash      string             `bson:"password_hash" json:"-"`
	FullName          string             `bson:"full_name" json:"full_name"`
	Phone             string             `bson:"phone,omitempty" json:"phone,omitempty"`
	VehiclePreference *VehicleType       `bson:"vehicle_preference,omitempty" json:"vehicle_preference,omitempty"`
	IsActive          bool               `bson:"is_active" json:"is_active"`
	LastLogin         *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email             string       `json:"email" validate:"required,email"`
	Password          string       `json:"password" validate:"required,min=8"`
	FullName          string       `json:"full_name" validate:"required,max=120"`
	Phone             string       `json:"phone" validate:"omitempty,max=30"`
	VehiclePreference *VehicleType `json:"vehicle_preference" validate:"omitempty,oneof=motorcycle car bus"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Exp    int64  `json:"exp"`
}
