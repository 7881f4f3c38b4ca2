package models

import "time"

// LocationPoint is a single GPS fix. Altitude, accuracy and speed are only
// present when the device reported them.
type LocationPoint struct {
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	Altitude  *float64  `bson:"altitude,omitempty" json:"altitude,omitempty"`
	Accuracy  *float64  `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
	Speed     *float64  `bson:"speed,omitempty" json:"speed,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
