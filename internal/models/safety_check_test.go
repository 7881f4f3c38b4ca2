package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultChecklist(t *testing.T) {
	items := DefaultChecklist()
	assert.Len(t, items, 8)
	for _, item := range items {
		assert.NotEmpty(t, item.Name)
		assert.NotEmpty(t, item.Description)
		assert.False(t, item.Checked)
	}

	// callers get their own copy
	items[0].Checked = true
	assert.False(t, DefaultChecklist()[0].Checked)
}

func TestSafetyCheck_Complete(t *testing.T) {
	check := &SafetyCheck{Items: DefaultChecklist()}
	assert.False(t, check.Complete())
	assert.Equal(t, 8, check.UncheckedCount())

	for i := range check.Items {
		check.Items[i].Checked = true
	}
	assert.True(t, check.Complete())
	assert.Equal(t, 0, check.UncheckedCount())

	empty := &SafetyCheck{}
	assert.False(t, empty.Complete())
}

func TestTrip_ElapsedMinutes(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	trip := &Trip{StartedAt: start}

	assert.Equal(t, 0, trip.ElapsedMinutes(start.Add(59*time.Second)))
	assert.Equal(t, 1, trip.ElapsedMinutes(start.Add(119*time.Second)))
	assert.Equal(t, 90, trip.ElapsedMinutes(start.Add(90*time.Minute+30*time.Second)))
	assert.Equal(t, 0, trip.ElapsedMinutes(start.Add(-time.Minute)))
}

func TestTrip_LastPoint(t *testing.T) {
	trip := &Trip{}
	_, ok := trip.LastPoint()
	assert.False(t, ok)

	trip.Route = []LocationPoint{{Latitude: 1}, {Latitude: 2}}
	p, ok := trip.LastPoint()
	assert.True(t, ok)
	assert.Equal(t, 2.0, p.Latitude)
}

func TestIsValidVehicleType(t *testing.T) {
	assert.True(t, IsValidVehicleType(VehicleMotorcycle))
	assert.True(t, IsValidVehicleType(VehicleCar))
	assert.True(t, IsValidVehicleType(VehicleBus))
	assert.False(t, IsValidVehicleType("truck"))
	assert.False(t, IsValidVehicleType(""))
}
