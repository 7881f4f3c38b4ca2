package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// These contract tests run against every driver so the memory store keeps
// the same conditional-update semantics as MongoDB.

var testStart = time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC) // a Wednesday

func newTrip(userID string, status models.TripStatus, startedAt time.Time) *models.Trip {
	return &models.Trip{
		UserID:      userID,
		VehicleType: models.VehicleCar,
		Status:      status,
		Origin:      models.LocationPoint{Latitude: 4.6, Longitude: -74.08, Timestamp: startedAt},
		StartedAt:   startedAt,
		CreatedAt:   startedAt,
		UpdatedAt:   startedAt,
	}
}

func testTripContract(t *testing.T, store *Store) {
	ctx := context.Background()
	userID := primitive.NewObjectID().Hex()

	t.Run("one active trip per user", func(t *testing.T) {
		first := newTrip(userID, models.TripInProgress, testStart)
		require.NoError(t, store.Trips.InsertTrip(ctx, first))
		assert.False(t, first.ID.IsZero())

		err := store.Trips.InsertTrip(ctx, newTrip(userID, models.TripInProgress, testStart))
		assert.True(t, errors.Is(err, ErrDuplicate))

		// finished trips do not count
		require.NoError(t, store.Trips.InsertTrip(ctx, newTrip(userID, models.TripCompleted, testStart)))

		active, err := store.Trips.FindActiveTrip(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, active.ID)
		assert.NotNil(t, active.Route)
	})

	t.Run("append only applies to the expected route length", func(t *testing.T) {
		active, err := store.Trips.FindActiveTrip(ctx, userID)
		require.NoError(t, err)
		from := models.TripEventLocation.Sources()

		p1 := models.LocationPoint{Latitude: 0, Longitude: 0, Timestamp: testStart.Add(time.Minute)}
		trip, err := store.Trips.AppendRoutePoint(ctx, active.ID, userID, from, RouteAppend{
			ExpectedLen: 0, Point: p1, AddKm: 0, DurationMinutes: 1, UpdatedAt: p1.Timestamp,
		})
		require.NoError(t, err)
		assert.Len(t, trip.Route, 1)

		p2 := models.LocationPoint{Latitude: 0, Longitude: 1, Timestamp: testStart.Add(2 * time.Minute)}
		trip, err = store.Trips.AppendRoutePoint(ctx, active.ID, userID, from, RouteAppend{
			ExpectedLen: 1, Point: p2, AddKm: 111.19, DurationMinutes: 2, UpdatedAt: p2.Timestamp,
		})
		require.NoError(t, err)
		assert.Len(t, trip.Route, 2)
		assert.InDelta(t, 111.19, trip.DistanceKm, 1e-9)
		assert.InDelta(t, 111.19, trip.RouteDistanceKm, 1e-9)
		assert.Equal(t, 2, trip.DurationMinutes)

		// a stale reader loses
		_, err = store.Trips.AppendRoutePoint(ctx, active.ID, userID, from, RouteAppend{
			ExpectedLen: 1, Point: p2, AddKm: 111.19, DurationMinutes: 2, UpdatedAt: p2.Timestamp,
		})
		assert.True(t, errors.Is(err, ErrNotFound))

		// someone else's trip is invisible
		_, err = store.Trips.AppendRoutePoint(ctx, active.ID, "intruder", from, RouteAppend{ExpectedLen: 2})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("transition is conditional on status", func(t *testing.T) {
		active, err := store.Trips.FindActiveTrip(ctx, userID)
		require.NoError(t, err)

		done := testStart.Add(30 * time.Minute)
		distance := 5.5
		minutes := 30
		trip, err := store.Trips.TransitionTrip(ctx, active.ID, userID, models.TripEventComplete.Sources(), TripChange{
			Status:          models.TripCompleted,
			Destination:     &models.LocationPoint{Latitude: 1, Longitude: 1, Timestamp: done},
			DistanceKm:      &distance,
			DurationMinutes: &minutes,
			CompletedAt:     &done,
			UpdatedAt:       done,
		})
		require.NoError(t, err)
		assert.Equal(t, models.TripCompleted, trip.Status)
		assert.Equal(t, 5.5, trip.DistanceKm)
		assert.InDelta(t, 111.19, trip.RouteDistanceKm, 1e-9)
		require.NotNil(t, trip.Destination)
		assert.Equal(t, 1.0, trip.Destination.Latitude)
		require.NotNil(t, trip.CompletedAt)

		_, err = store.Trips.TransitionTrip(ctx, active.ID, userID, models.TripEventComplete.Sources(), TripChange{Status: models.TripCompleted})
		assert.True(t, errors.Is(err, ErrNotFound))

		_, err = store.Trips.FindActiveTrip(ctx, userID)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("list newest first with status filter", func(t *testing.T) {
		other := primitive.NewObjectID().Hex()
		for i := 0; i < 3; i++ {
			trip := newTrip(other, models.TripCompleted, testStart.Add(time.Duration(i)*time.Hour))
			require.NoError(t, store.Trips.InsertTrip(ctx, trip))
		}
		require.NoError(t, store.Trips.InsertTrip(ctx, newTrip(other, models.TripInProgress, testStart.Add(5*time.Hour))))

		all, err := store.Trips.FindTrips(ctx, other, "", 10)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, models.TripInProgress, all[0].Status)
		assert.True(t, all[1].CreatedAt.After(all[2].CreatedAt))

		completed, err := store.Trips.FindTrips(ctx, other, models.TripCompleted, 2)
		require.NoError(t, err)
		assert.Len(t, completed, 2)
	})

	t.Run("totals and weekday buckets", func(t *testing.T) {
		owner := primitive.NewObjectID().Hex()
		wednesday := newTrip(owner, models.TripCompleted, testStart)
		wednesday.DistanceKm = 10
		wednesday.DurationMinutes = 20
		thursday := newTrip(owner, models.TripEmergency, testStart.Add(24*time.Hour))
		thursday.DistanceKm = 2.5
		thursday.DurationMinutes = 5
		old := newTrip(owner, models.TripCompleted, testStart.Add(-30*24*time.Hour))
		old.DistanceKm = 100
		for _, trip := range []*models.Trip{wednesday, thursday, old} {
			require.NoError(t, store.Trips.InsertTrip(ctx, trip))
		}

		totals, err := store.Trips.TripTotals(ctx, owner, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), totals.Total)
		assert.Equal(t, int64(2), totals.Completed)
		assert.Equal(t, int64(1), totals.Emergency)
		assert.InDelta(t, 112.5, totals.DistanceKm, 1e-9)
		assert.Equal(t, int64(25), totals.DurationMinutes)

		recent, err := store.Trips.TripTotals(ctx, owner, testStart.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), recent.Total)

		none, err := store.Trips.TripTotals(ctx, "nobody", time.Time{})
		require.NoError(t, err)
		assert.Equal(t, TripTotals{}, none)

		days, err := store.Trips.DailyTripTotals(ctx, owner, testStart.Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, days, 2)
		assert.Equal(t, 4, days[0].DayOfWeek) // Wednesday
		assert.Equal(t, int64(1), days[0].Trips)
		assert.Equal(t, 5, days[1].DayOfWeek)
		assert.InDelta(t, 2.5, days[1].DistanceKm, 1e-9)
	})
}

func testSafetyCheckContract(t *testing.T, store *Store) {
	ctx := context.Background()
	userID := primitive.NewObjectID().Hex()

	check := &models.SafetyCheck{
		UserID:    userID,
		Items:     models.DefaultChecklist(),
		Status:    models.SafetyCheckPending,
		CreatedAt: testStart,
		UpdatedAt: testStart,
	}
	require.NoError(t, store.SafetyChecks.InsertSafetyCheck(ctx, check))

	approve := models.SafetyCheckEventApprove.Sources()

	t.Run("approval requires every item checked", func(t *testing.T) {
		_, err := store.SafetyChecks.TransitionSafetyCheck(ctx, check.ID, userID, approve, models.SafetyCheckPassed, true, testStart)
		assert.True(t, errors.Is(err, ErrNotFound))

		items := models.DefaultChecklist()
		for i := range items {
			items[i].Checked = true
		}
		updated, err := store.SafetyChecks.ReplaceItems(ctx, check.ID, userID, models.SafetyCheckEventEditItems.Sources(), items, testStart)
		require.NoError(t, err)
		assert.True(t, updated.Complete())

		passedAt := testStart.Add(time.Minute)
		passed, err := store.SafetyChecks.TransitionSafetyCheck(ctx, check.ID, userID, approve, models.SafetyCheckPassed, true, passedAt)
		require.NoError(t, err)
		assert.Equal(t, models.SafetyCheckPassed, passed.Status)
		require.NotNil(t, passed.PassedAt)
		assert.True(t, passedAt.Equal(*passed.PassedAt))

		// frozen once decided
		_, err = store.SafetyChecks.ReplaceItems(ctx, check.ID, userID, models.SafetyCheckEventEditItems.Sources(), items, testStart)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("claim consumes the newest passed check once", func(t *testing.T) {
		latest, err := store.SafetyChecks.FindLatestPassedSafetyCheck(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, check.ID, latest.ID)

		tripID := primitive.NewObjectID()
		claimed, err := store.SafetyChecks.ClaimPassedSafetyCheck(ctx, userID, tripID, testStart)
		require.NoError(t, err)
		require.NotNil(t, claimed.TripID)
		assert.Equal(t, tripID, *claimed.TripID)

		_, err = store.SafetyChecks.ClaimPassedSafetyCheck(ctx, userID, primitive.NewObjectID(), testStart)
		assert.True(t, errors.Is(err, ErrNotFound))

		require.NoError(t, store.SafetyChecks.ReleaseSafetyCheck(ctx, check.ID, tripID))
		_, err = store.SafetyChecks.ClaimPassedSafetyCheck(ctx, userID, primitive.NewObjectID(), testStart)
		assert.NoError(t, err)

		n, err := store.SafetyChecks.CountPassedSafetyChecks(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("ownership is part of every lookup", func(t *testing.T) {
		_, err := store.SafetyChecks.FindSafetyCheck(ctx, check.ID, "someone-else")
		assert.True(t, errors.Is(err, ErrNotFound))

		_, err = store.SafetyChecks.FindLatestPassedSafetyCheck(ctx, "someone-else")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func testEmergencyContract(t *testing.T, store *Store) {
	ctx := context.Background()
	userID := primitive.NewObjectID().Hex()

	emergency := &models.Emergency{
		UserID:    userID,
		Type:      models.EmergencyAccident,
		Location:  models.LocationPoint{Latitude: 4.6, Longitude: -74.08, Timestamp: testStart},
		Status:    models.EmergencyActive,
		CreatedAt: testStart,
		UpdatedAt: testStart,
	}
	require.NoError(t, store.Emergencies.InsertEmergency(ctx, emergency))

	resolve := models.EmergencyEventResolve.Sources()
	resolved, err := store.Emergencies.ResolveEmergency(ctx, emergency.ID, userID, resolve, "tow truck arrived", testStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyResolved, resolved.Status)
	assert.Equal(t, "tow truck arrived", resolved.ResolutionNotes)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = store.Emergencies.ResolveEmergency(ctx, emergency.ID, userID, resolve, "", testStart)
	assert.True(t, errors.Is(err, ErrNotFound))

	active, err := store.Emergencies.FindEmergencies(ctx, userID, models.EmergencyActive, 20)
	require.NoError(t, err)
	assert.Empty(t, active)

	n, err := store.Emergencies.CountEmergencies(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testUserAndVehicleContract(t *testing.T, store *Store) {
	ctx := context.Background()
	email := primitive.NewObjectID().Hex() + "@Example.com"

	user := &models.User{Email: email, PasswordHash: "hash", FullName: "Ana Torres"}
	require.NoError(t, store.Users.InsertUser(ctx, user))
	assert.True(t, user.IsActive)

	err := store.Users.InsertUser(ctx, &models.User{Email: email, PasswordHash: "hash"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	found, err := store.Users.FindUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	updated, err := store.Users.UpdateVehiclePreference(ctx, user.ID.Hex(), models.VehicleMotorcycle)
	require.NoError(t, err)
	require.NotNil(t, updated.VehiclePreference)
	assert.Equal(t, models.VehicleMotorcycle, *updated.VehiclePreference)

	phone := "+57 300 000 0000"
	profile, err := store.Users.UpdateProfile(ctx, user.ID.Hex(), ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ana Torres", profile.FullName)
	assert.Equal(t, phone, profile.Phone)

	name := "Ana M. Torres"
	profile, err = store.Users.UpdateProfile(ctx, user.ID.Hex(), ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, profile.FullName)
	assert.Equal(t, phone, profile.Phone)

	_, err = store.Users.UpdateProfile(ctx, primitive.NewObjectID().Hex(), ProfileUpdate{FullName: &name})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Users.UpdateLastLogin(ctx, user.ID.Hex()))
	_, err = store.Users.FindUserByID(ctx, "not-an-id")
	assert.True(t, errors.Is(err, ErrNotFound))

	plate := "abc-" + primitive.NewObjectID().Hex()[18:]
	vehicle := &models.Vehicle{UserID: user.ID.Hex(), VehicleType: models.VehicleCar, LicensePlate: plate, IsActive: true, CreatedAt: testStart}
	require.NoError(t, store.Vehicles.InsertVehicle(ctx, vehicle))
	assert.Equal(t, "ABC-", vehicle.LicensePlate[:4])

	err = store.Vehicles.InsertVehicle(ctx, &models.Vehicle{UserID: "x", LicensePlate: plate})
	assert.True(t, errors.Is(err, ErrDuplicate))

	_, err = store.Vehicles.DeactivateVehicle(ctx, vehicle.ID, user.ID.Hex(), testStart)
	require.NoError(t, err)

	active, err := store.Vehicles.FindVehicles(ctx, user.ID.Hex(), true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := store.Vehicles.FindVehicles(ctx, user.ID.Hex(), false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func runStoreContract(t *testing.T, store *Store) {
	t.Run("trips", func(t *testing.T) { testTripContract(t, store) })
	t.Run("safety checks", func(t *testing.T) { testSafetyCheckContract(t, store) })
	t.Run("emergencies", func(t *testing.T) { testEmergencyContract(t, store) })
	t.Run("users and vehicles", func(t *testing.T) { testUserAndVehicleContract(t, store) })
}
