// Package service holds the trip safety engine: safety checks gate trip
// starts, trips ingest locations and terminate, emergencies escalate the
// active trip and the dashboard reads it all back.
package service

import (
	"fmt"
	"math"
	"time"

	apperrors "github.com/ukydev/initinere/internal/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

func utcNow() time.Time {
	return time.Now().UTC()
}

// parseID turns an opaque id into an ObjectID, failing with a validation
// error rather than not-found.
func parseID(id, resource string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation(fmt.Sprintf("invalid %s id %q", resource, id))
	}
	return oid, nil
}

// normalizeLimit applies the default and the ceiling to a list limit.
func normalizeLimit(limit int) int64 {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return int64(limit)
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
