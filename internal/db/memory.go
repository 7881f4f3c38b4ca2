package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryDB holds every collection of the in-memory driver behind a single
// lock so each conditional update is atomic, like a single-document write in
// MongoDB.
type memoryDB struct {
	mu           sync.Mutex
	trips        []*models.Trip
	safetyChecks []*models.SafetyCheck
	emergencies  []*models.Emergency
	users        []*models.User
	vehicles     []*models.Vehicle
}

// NewMemoryStore returns a Store backed by process memory. It enforces the
// same unique constraints as the Mongo indexes.
func NewMemoryStore() *Store {
	m := &memoryDB{}
	return &Store{
		Driver:       DriverMemory,
		Trips:        &memoryTrips{m},
		SafetyChecks: &memorySafetyChecks{m},
		Emergencies:  &memoryEmergencies{m},
		Users:        &memoryUsers{m},
		Vehicles:     &memoryVehicles{m},
	}
}

func hasStatus[S comparable](s S, from []S) bool {
	for _, f := range from {
		if s == f {
			return true
		}
	}
	return false
}

func capped[T any](items []T, limit int64) []T {
	if limit > 0 && int64(len(items)) > limit {
		return items[:limit]
	}
	return items
}

// newestFirst orders by created_at desc, then by id desc.
func newestFirst(createdAt func(i int) time.Time, id func(i int) primitive.ObjectID) func(i, j int) bool {
	return func(i, j int) bool {
		ci, cj := createdAt(i), createdAt(j)
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return id(i).Hex() > id(j).Hex()
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func clonePoint(p models.LocationPoint) models.LocationPoint {
	p.Altitude = cloneFloat(p.Altitude)
	p.Accuracy = cloneFloat(p.Accuracy)
	p.Speed = cloneFloat(p.Speed)
	return p
}

func cloneTrip(t *models.Trip) *models.Trip {
	c := *t
	c.Route = make([]models.LocationPoint, len(t.Route))
	for i, p := range t.Route {
		c.Route[i] = clonePoint(p)
	}
	c.Origin = clonePoint(t.Origin)
	if t.Destination != nil {
		d := clonePoint(*t.Destination)
		c.Destination = &d
	}
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

func cloneSafetyCheck(s *models.SafetyCheck) *models.SafetyCheck {
	c := *s
	c.Items = append([]models.ChecklistItem{}, s.Items...)
	if s.TripID != nil {
		id := *s.TripID
		c.TripID = &id
	}
	c.PassedAt = cloneTime(s.PassedAt)
	return &c
}

func cloneEmergency(e *models.Emergency) *models.Emergency {
	c := *e
	c.Location = clonePoint(e.Location)
	if e.TripID != nil {
		id := *e.TripID
		c.TripID = &id
	}
	c.ResolvedAt = cloneTime(e.ResolvedAt)
	return &c
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.VehiclePreference != nil {
		p := *u.VehiclePreference
		c.VehiclePreference = &p
	}
	c.LastLogin = cloneTime(u.LastLogin)
	return &c
}

// --- trips ---

type memoryTrips struct{ db *memoryDB }

func (m *memoryTrips) find(id primitive.ObjectID, userID string) *models.Trip {
	for _, t := range m.db.trips {
		if t.ID == id && t.UserID == userID {
			return t
		}
	}
	return nil
}

func (m *memoryTrips) InsertTrip(ctx context.Context, trip *models.Trip) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	if trip.Route == nil {
		trip.Route = []models.LocationPoint{}
	}
	for _, t := range m.db.trips {
		if t.ID == trip.ID {
			return fmt.Errorf("%w: trip %s", ErrDuplicate, trip.ID.Hex())
		}
		if trip.Status == models.TripInProgress && t.UserID == trip.UserID && t.Status == models.TripInProgress {
			return fmt.Errorf("%w: %s", ErrDuplicate, ActiveTripIndex)
		}
	}
	m.db.trips = append(m.db.trips, cloneTrip(trip))
	return nil
}

func (m *memoryTrips) FindTrip(ctx context.Context, id primitive.ObjectID, userID string) (*models.Trip, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if t := m.find(id, userID); t != nil {
		return cloneTrip(t), nil
	}
	return nil, ErrNotFound
}

func (m *memoryTrips) FindActiveTrip(ctx context.Context, userID string) (*models.Trip, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, t := range m.db.trips {
		if t.UserID == userID && t.Status == models.TripInProgress {
			return cloneTrip(t), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryTrips) FindTrips(ctx context.Context, userID string, status models.TripStatus, limit int64) ([]models.Trip, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	trips := []models.Trip{}
	for _, t := range m.db.trips {
		if t.UserID != userID || (status != "" && t.Status != status) {
			continue
		}
		trips = append(trips, *cloneTrip(t))
	}
	sort.SliceStable(trips, newestFirst(
		func(i int) time.Time { return trips[i].CreatedAt },
		func(i int) primitive.ObjectID { return trips[i].ID },
	))
	return capped(trips, limit), nil
}

func (m *memoryTrips) AppendRoutePoint(ctx context.Context, id primitive.ObjectID, userID string, from []models.TripStatus, a RouteAppend) (*models.Trip, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	t := m.find(id, userID)
	if t == nil || !hasStatus(t.Status, from) || len(t.Route) != a.ExpectedLen {
		return nil, ErrNotFound
	}
	t.Route = append(t.Route, clonePoint(a.Point))
	t.DistanceKm += a.AddKm
	t.RouteDistanceKm += a.AddKm
	t.DurationMinutes = a.DurationMinutes
	t.UpdatedAt = a.UpdatedAt
	return cloneTrip(t), nil
}

func (m *memoryTrips) TransitionTrip(ctx context.Context, id primitive.ObjectID, userID string, from []models.TripStatus, change TripChange) (*models.Trip, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	t := m.find(id, userID)
	if t == nil || !hasStatus(t.Status, from) {
		return nil, ErrNotFound
	}
	t.Status = change.Status
	t.UpdatedAt = change.UpdatedAt
	if change.Destination != nil {
		d := clonePoint(*change.Destination)
		t.Destination = &d
	}
	if change.DistanceKm != nil {
		t.DistanceKm = *change.DistanceKm
	}
	if change.DurationMinutes != nil {
		t.DurationMinutes = *change.DurationMinutes
	}
	if change.CompletedAt != nil {
		t.CompletedAt = cloneTime(change.CompletedAt)
	}
	return cloneTrip(t), nil
}

func (m *memoryTrips) TripTotals(ctx context.Context, userID string, since time.Time) (TripTotals, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var totals TripTotals
	for _, t := range m.db.trips {
		if t.UserID != userID || (!since.IsZero() && t.StartedAt.Before(since)) {
			continue
		}
		totals.Total++
		switch t.Status {
		case models.TripCompleted:
			totals.Completed++
		case models.TripInProgress:
			totals.Active++
		case models.TripEmergency:
			totals.Emergency++
		}
		totals.DistanceKm += t.DistanceKm
		totals.DurationMinutes += int64(t.DurationMinutes)
	}
	return totals, nil
}

func (m *memoryTrips) DailyTripTotals(ctx context.Context, userID string, since time.Time) ([]DayTotals, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	byDay := map[int]*DayTotals{}
	for _, t := range m.db.trips {
		if t.UserID != userID || t.StartedAt.Before(since) {
			continue
		}
		dow := int(t.StartedAt.UTC().Weekday()) + 1
		d, ok := byDay[dow]
		if !ok {
			d = &DayTotals{DayOfWeek: dow}
			byDay[dow] = d
		}
		d.Trips++
		d.DistanceKm += t.DistanceKm
		d.DurationMinutes += int64(t.DurationMinutes)
	}

	days := []DayTotals{}
	for _, d := range byDay {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].DayOfWeek < days[j].DayOfWeek })
	return days, nil
}

// --- safety checks ---

type memorySafetyChecks struct{ db *memoryDB }

func (m *memorySafetyChecks) find(id primitive.ObjectID, userID string) *models.SafetyCheck {
	for _, c := range m.db.safetyChecks {
		if c.ID == id && c.UserID == userID {
			return c
		}
	}
	return nil
}

func (m *memorySafetyChecks) InsertSafetyCheck(ctx context.Context, check *models.SafetyCheck) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if check.ID.IsZero() {
		check.ID = primitive.NewObjectID()
	}
	m.db.safetyChecks = append(m.db.safetyChecks, cloneSafetyCheck(check))
	return nil
}

func (m *memorySafetyChecks) FindSafetyCheck(ctx context.Context, id primitive.ObjectID, userID string) (*models.SafetyCheck, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if c := m.find(id, userID); c != nil {
		return cloneSafetyCheck(c), nil
	}
	return nil, ErrNotFound
}

func (m *memorySafetyChecks) latest(userID string, match func(*models.SafetyCheck) bool, newer func(a, b *models.SafetyCheck) bool) *models.SafetyCheck {
	var best *models.SafetyCheck
	for _, c := range m.db.safetyChecks {
		if c.UserID != userID || !match(c) {
			continue
		}
		if best == nil || newer(c, best) {
			best = c
		}
	}
	return best
}

func (m *memorySafetyChecks) FindLatestSafetyCheck(ctx context.Context, userID string) (*models.SafetyCheck, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	c := m.latest(userID,
		func(*models.SafetyCheck) bool { return true },
		func(a, b *models.SafetyCheck) bool { return !a.CreatedAt.Before(b.CreatedAt) },
	)
	if c == nil {
		return nil, ErrNotFound
	}
	return cloneSafetyCheck(c), nil
}

func passedAfter(a, b *models.SafetyCheck) bool {
	return !a.PassedAt.Before(*b.PassedAt)
}

func (m *memorySafetyChecks) FindLatestPassedSafetyCheck(ctx context.Context, userID string) (*models.SafetyCheck, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	c := m.latest(userID,
		func(c *models.SafetyCheck) bool { return c.Status == models.SafetyCheckPassed && c.PassedAt != nil },
		passedAfter,
	)
	if c == nil {
		return nil, ErrNotFound
	}
	return cloneSafetyCheck(c), nil
}

func (m *memorySafetyChecks) ReplaceItems(ctx context.Context, id primitive.ObjectID, userID string, from []models.SafetyCheckStatus, items []models.ChecklistItem, at time.Time) (*models.SafetyCheck, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	c := m.find(id, userID)
	if c == nil || !hasStatus(c.Status, from) {
		return nil, ErrNotFound
	}
	c.Items = append([]models.ChecklistItem{}, items...)
	c.UpdatedAt = at
	return cloneSafetyCheck(c), nil
}

func (m *memorySafetyChecks) TransitionSafetyCheck(ctx context.Context, id primitive.ObjectID, userID string, from []models.SafetyCheckStatus, to models.SafetyCheckStatus, requireComplete bool, at time.Time) (*models.SafetyCheck, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	c := m.find(id, userID)
	if c == nil || !hasStatus(c.Status, from) || (requireComplete && !c.Complete()) {
		return nil, ErrNotFound
	}
	c.Status = to
	c.UpdatedAt = at
	if to == models.SafetyCheckPassed {
		c.PassedAt = cloneTime(&at)
	}
	return cloneSafetyCheck(c), nil
}

func (m *memorySafetyChecks) ClaimPassedSafetyCheck(ctx context.Context, userID string, tripID primitive.ObjectID, at time.Time) (*models.SafetyCheck, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	c := m.latest(userID,
		func(c *models.SafetyCheck) bool {
			return c.Status == models.SafetyCheckPassed && c.PassedAt != nil && c.TripID == nil
		},
		passedAfter,
	)
	if c == nil {
		return nil, ErrNotFound
	}
	id := tripID
	c.TripID = &id
	c.UpdatedAt = at
	return cloneSafetyCheck(c), nil
}

func (m *memorySafetyChecks) ReleaseSafetyCheck(ctx context.Context, id, tripID primitive.ObjectID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, c := range m.db.safetyChecks {
		if c.ID == id && c.TripID != nil && *c.TripID == tripID {
			c.TripID = nil
		}
	}
	return nil
}

func (m *memorySafetyChecks) CountPassedSafetyChecks(ctx context.Context, userID string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var n int64
	for _, c := range m.db.safetyChecks {
		if c.UserID == userID && c.Status == models.SafetyCheckPassed {
			n++
		}
	}
	return n, nil
}

// --- emergencies ---

type memoryEmergencies struct{ db *memoryDB }

func (m *memoryEmergencies) find(id primitive.ObjectID, userID string) *models.Emergency {
	for _, e := range m.db.emergencies {
		if e.ID == id && e.UserID == userID {
			return e
		}
	}
	return nil
}

func (m *memoryEmergencies) InsertEmergency(ctx context.Context, emergency *models.Emergency) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if emergency.ID.IsZero() {
		emergency.ID = primitive.NewObjectID()
	}
	m.db.emergencies = append(m.db.emergencies, cloneEmergency(emergency))
	return nil
}

func (m *memoryEmergencies) FindEmergency(ctx context.Context, id primitive.ObjectID, userID string) (*models.Emergency, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if e := m.find(id, userID); e != nil {
		return cloneEmergency(e), nil
	}
	return nil, ErrNotFound
}

func (m *memoryEmergencies) FindEmergencies(ctx context.Context, userID string, status models.EmergencyStatus, limit int64) ([]models.Emergency, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	emergencies := []models.Emergency{}
	for _, e := range m.db.emergencies {
		if e.UserID != userID || (status != "" && e.Status != status) {
			continue
		}
		emergencies = append(emergencies, *cloneEmergency(e))
	}
	sort.SliceStable(emergencies, newestFirst(
		func(i int) time.Time { return emergencies[i].CreatedAt },
		func(i int) primitive.ObjectID { return emergencies[i].ID },
	))
	return capped(emergencies, limit), nil
}

func (m *memoryEmergencies) ResolveEmergency(ctx context.Context, id primitive.ObjectID, userID string, from []models.EmergencyStatus, notes string, at time.Time) (*models.Emergency, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	e := m.find(id, userID)
	if e == nil || !hasStatus(e.Status, from) {
		return nil, ErrNotFound
	}
	e.Status = models.EmergencyResolved
	e.ResolvedAt = cloneTime(&at)
	e.UpdatedAt = at
	if notes != "" {
		e.ResolutionNotes = notes
	}
	return cloneEmergency(e), nil
}

func (m *memoryEmergencies) CountEmergencies(ctx context.Context, userID string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var n int64
	for _, e := range m.db.emergencies {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

// --- users ---

type memoryUsers struct{ db *memoryDB }

func (m *memoryUsers) byID(id string) *models.User {
	for _, u := range m.db.users {
		if u.ID.Hex() == id {
			return u
		}
	}
	return nil
}

func (m *memoryUsers) InsertUser(ctx context.Context, user *models.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for _, u := range m.db.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: email %s", ErrDuplicate, user.Email)
		}
	}
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	m.db.users = append(m.db.users, cloneUser(user))
	return nil
}

func (m *memoryUsers) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if u := m.byID(id); u != nil {
		return cloneUser(u), nil
	}
	return nil, ErrNotFound
}

func (m *memoryUsers) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range m.db.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryUsers) UpdateLastLogin(ctx context.Context, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	u := m.byID(id)
	if u == nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	u.UpdatedAt = now
	return nil
}

func (m *memoryUsers) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	u := m.byID(id)
	if u == nil {
		return nil, ErrNotFound
	}
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (m *memoryUsers) UpdateVehiclePreference(ctx context.Context, id string, preference models.VehicleType) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	u := m.byID(id)
	if u == nil {
		return nil, ErrNotFound
	}
	p := preference
	u.VehiclePreference = &p
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

// --- vehicles ---

type memoryVehicles struct{ db *memoryDB }

func (m *memoryVehicles) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	vehicle.LicensePlate = strings.ToUpper(strings.TrimSpace(vehicle.LicensePlate))
	for _, v := range m.db.vehicles {
		if v.LicensePlate == vehicle.LicensePlate {
			return fmt.Errorf("%w: license plate %s", ErrDuplicate, vehicle.LicensePlate)
		}
	}
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	v := *vehicle
	m.db.vehicles = append(m.db.vehicles, &v)
	return nil
}

func (m *memoryVehicles) FindVehicles(ctx context.Context, userID string, activeOnly bool) ([]models.Vehicle, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	vehicles := []models.Vehicle{}
	for _, v := range m.db.vehicles {
		if v.UserID != userID || (activeOnly && !v.IsActive) {
			continue
		}
		vehicles = append(vehicles, *v)
	}
	sort.SliceStable(vehicles, newestFirst(
		func(i int) time.Time { return vehicles[i].CreatedAt },
		func(i int) primitive.ObjectID { return vehicles[i].ID },
	))
	return vehicles, nil
}

func (m *memoryVehicles) FindVehicle(ctx context.Context, id primitive.ObjectID, userID string) (*models.Vehicle, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, v := range m.db.vehicles {
		if v.ID == id && v.UserID == userID {
			c := *v
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryVehicles) DeactivateVehicle(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*models.Vehicle, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, v := range m.db.vehicles {
		if v.ID == id && v.UserID == userID {
			v.IsActive = false
			v.UpdatedAt = at
			c := *v
			return &c, nil
		}
	}
	return nil, ErrNotFound
}
