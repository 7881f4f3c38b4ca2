package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/ukydev/initinere/internal/errors"
	"github.com/ukydev/initinere/internal/geo"
	"github.com/ukydev/initinere/internal/models"
)

func TestTripService_StartRequiresPassedCheck(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()

	_, err := h.trips.Start(ctx, userID, models.VehicleCar, models.LocationPoint{})
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)

	pending, err := h.checks.Create(ctx, userID, nil)
	require.NoError(t, err)
	_, err = h.trips.Start(ctx, userID, models.VehicleCar, models.LocationPoint{})
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)

	_, err = h.checks.Reject(ctx, pending.ID.Hex(), userID)
	require.NoError(t, err)
	_, err = h.trips.Start(ctx, userID, models.VehicleCar, models.LocationPoint{})
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
}

func TestTripService_StartRejectsUnknownVehicle(t *testing.T) {
	h := newHarness(t)
	userID := newUserID()
	h.passCheck(t, userID)

	_, err := h.trips.Start(context.Background(), userID, models.VehicleType("bicycle"), models.LocationPoint{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// the check was not consumed
	_, err = h.trips.Start(context.Background(), userID, models.VehicleBus, models.LocationPoint{})
	assert.NoError(t, err)
}

func TestTripService_Start(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()
	check := h.passCheck(t, userID)

	trip, err := h.trips.Start(ctx, userID, models.VehicleMotorcycle, models.LocationPoint{Latitude: 4.6, Longitude: -74.08})
	require.NoError(t, err)

	assert.Equal(t, models.TripInProgress, trip.Status)
	assert.Equal(t, check.ID, trip.SafetyCheckID)
	assert.Empty(t, trip.Route)
	assert.Zero(t, trip.DistanceKm)
	assert.Zero(t, trip.DurationMinutes)
	assert.Equal(t, testNow, trip.StartedAt)
	assert.Equal(t, testNow, trip.Origin.Timestamp)
	assert.Nil(t, trip.Destination)

	claimed, err := h.checks.Get(ctx, check.ID.Hex(), userID)
	require.NoError(t, err)
	require.NotNil(t, claimed.TripID)
	assert.Equal(t, trip.ID, *claimed.TripID)

	has, err := h.trips.HasActiveTrip(ctx, userID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestTripService_SecondStartConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()
	h.startTrip(t, userID, 0, 0)

	_, err := h.trips.Start(ctx, userID, models.VehicleCar, models.LocationPoint{})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestTripService_PassedCheckAuthorizesOneTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()
	trip := h.startTrip(t, userID, 0, 0)

	_, err := h.trips.Complete(ctx, trip.ID.Hex(), userID, models.LocationPoint{Latitude: 0, Longitude: 0.1})
	require.NoError(t, err)

	_, err = h.trips.Start(ctx, userID, models.VehicleCar, models.LocationPoint{})
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)

	h.passCheck(t, userID)
	_, err = h.trips.Start(ctx, userID, models.VehicleCar, models.LocationPoint{})
	assert.NoError(t, err)
}

func TestTripService_ConcurrentStartsOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()
	h.passCheck(t, userID)
	h.passCheck(t, userID)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.trips.Start(ctx, userID, models.VehicleCar, models.LocationPoint{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	started := 0
	for err := range errs {
		if err == nil {
			started++
		}
	}
	assert.Equal(t, 1, started)

	trips, err := h.trips.List(ctx, userID, "", 0)
	require.NoError(t, err)
	assert.Len(t, trips, 1)

	// the losing starts released whatever they claimed
	latest, err := h.checks.LatestPassed(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, latest)
}

func TestTripService_ReportLocationAccumulates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()
	trip := h.startTrip(t, userID, 0, 0)
	id := trip.ID.Hex()

	var updated *models.Trip
	var err error
	for i, lon := range []float64{0, 1, 2} {
		h.clock.Advance(150 * time.Second)
		updated, err = h.trips.ReportLocation(ctx, id, userID, models.LocationPoint{Latitude: 0, Longitude: lon})
		require.NoError(t, err)
		assert.Len(t, updated.Route, i+1)
	}

	step := geo.DistanceKm(0, 0, 0, 1)
	assert.InDelta(t, 2*step, updated.DistanceKm, 1e-6)
	assert.InDelta(t, 2*step, updated.RouteDistanceKm, 1e-6)
	assert.Equal(t, 7, updated.DurationMinutes)
	assert.Equal(t, testNow.Add(450*time.Second), updated.Route[2].Timestamp)
}

func TestTripService_ReportLocationNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()
	trip := h.startTrip(t, userID, 0, 0)

	_, err := h.trips.ReportLocation(ctx, trip.ID.Hex(), newUserID(), models.LocationPoint{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.trips.ReportLocation(ctx, "zzz", userID, models.LocationPoint{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.trips.Complete(ctx, trip.ID.Hex(), userID, models.LocationPoint{})
	require.NoError(t, err)

	_, err = h.trips.ReportLocation(ctx, trip.ID.Hex(), userID, models.LocationPoint{Latitude: 1})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTripService_CompleteUsesStraightLineDistance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()

	check, err := h.checks.Create(ctx, userID, nil)
	require.NoError(t, err)
	_, err = h.checks.Approve(ctx, check.ID.Hex(), userID)
	require.ErrorIs(t, err, apperrors.ErrIncomplete)

	items := check.Items
	for i := range items {
		items[i].Checked = true
	}
	_, err = h.checks.UpdateItems(ctx, check.ID.Hex(), userID, items)
	require.NoError(t, err)
	passed, err := h.checks.Approve(ctx, check.ID.Hex(), userID)
	require.NoError(t, err)
	require.Equal(t, models.SafetyCheckPassed, passed.Status)

	trip, err := h.trips.Start(ctx, userID, models.VehicleCar, models.LocationPoint{Latitude: 0, Longitude: 0})
	require.NoError(t, err)

	// roughly 1 km apart, then back toward the origin
	for _, p := range []models.LocationPoint{{Latitude: 0.009, Longitude: 0}, {Latitude: 0.018, Longitude: 0}} {
		_, err = h.trips.ReportLocation(ctx, trip.ID.Hex(), userID, p)
		require.NoError(t, err)
	}

	h.clock.Advance(25*time.Minute + 40*time.Second)
	end := models.LocationPoint{Latitude: 0.005, Longitude: 0}
	done, err := h.trips.Complete(ctx, trip.ID.Hex(), userID, end)
	require.NoError(t, err)

	assert.Equal(t, models.TripCompleted, done.Status)
	assert.InDelta(t, geo.DistanceKm(0, 0, 0.005, 0), done.DistanceKm, 1e-9)
	assert.InDelta(t, geo.DistanceKm(0.009, 0, 0.018, 0), done.RouteDistanceKm, 1e-9)
	assert.Equal(t, 25, done.DurationMinutes)
	require.NotNil(t, done.Destination)
	assert.Equal(t, 0.005, done.Destination.Latitude)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, h.clock.Now(), *done.CompletedAt)

	has, err := h.trips.HasActiveTrip(ctx, userID)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = h.trips.Complete(ctx, trip.ID.Hex(), userID, end)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTripService_Cancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()
	trip := h.startTrip(t, userID, 1, 1)

	h.clock.Advance(3 * time.Minute)
	cancelled, err := h.trips.Cancel(ctx, trip.ID.Hex(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.TripCancelled, cancelled.Status)
	assert.Equal(t, 3, cancelled.DurationMinutes)
	assert.Nil(t, cancelled.Destination)
	require.NotNil(t, cancelled.CompletedAt)

	_, err = h.trips.Cancel(ctx, trip.ID.Hex(), userID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTripService_SetEmergency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()
	trip := h.startTrip(t, userID, 0, 0)

	h.clock.Advance(2 * time.Minute)
	flagged, err := h.trips.SetEmergency(ctx, trip.ID.Hex(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.TripEmergency, flagged.Status)
	assert.Equal(t, 2, flagged.DurationMinutes)

	again, err := h.trips.SetEmergency(ctx, trip.ID.Hex(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.TripEmergency, again.Status)

	// an emergency trip no longer counts as active and takes no locations
	has, err := h.trips.HasActiveTrip(ctx, userID)
	require.NoError(t, err)
	assert.False(t, has)
	_, err = h.trips.ReportLocation(ctx, trip.ID.Hex(), userID, models.LocationPoint{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTripService_SetEmergencyOnFinishedTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()
	trip := h.startTrip(t, userID, 0, 0)

	_, err := h.trips.Cancel(ctx, trip.ID.Hex(), userID)
	require.NoError(t, err)

	_, err = h.trips.SetEmergency(ctx, trip.ID.Hex(), userID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = h.trips.SetEmergency(ctx, trip.ID.Hex(), newUserID())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTripService_ListFiltersAndLimits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := newUserID()

	for i := 0; i < 3; i++ {
		trip := h.startTrip(t, userID, 0, 0)
		h.clock.Advance(time.Minute)
		_, err := h.trips.Complete(ctx, trip.ID.Hex(), userID, models.LocationPoint{Latitude: 0.01})
		require.NoError(t, err)
	}
	active := h.startTrip(t, userID, 0, 0)

	all, err := h.trips.List(ctx, userID, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, active.ID, all[0].ID)

	completed, err := h.trips.List(ctx, userID, models.TripCompleted, 2)
	require.NoError(t, err)
	assert.Len(t, completed, 2)
	for _, trip := range completed {
		assert.Equal(t, models.TripCompleted, trip.Status)
	}

	got, err := h.trips.Get(ctx, active.ID.Hex(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.TripInProgress, got.Status)
}
