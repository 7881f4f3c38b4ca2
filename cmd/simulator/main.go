package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/initinere/internal/geo"
	"github.com/ukydev/initinere/internal/models"
)

type Location struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

var cities = []Location{
	{Lat: 4.7110, Lon: -74.0721},   // Bogotá
	{Lat: 6.2442, Lon: -75.5812},   // Medellín
	{Lat: 3.4516, Lon: -76.5320},   // Cali
	{Lat: 10.9685, Lon: -74.7813},  // Barranquilla
	{Lat: 51.5074, Lon: -0.1278},   // London
	{Lat: 40.4168, Lon: -3.7038},   // Madrid
	{Lat: 48.8566, Lon: 2.3522},    // Paris
	{Lat: 40.7128, Lon: -74.0060},  // New York
	{Lat: -23.5505, Lon: -46.6333}, // São Paulo
	{Lat: 19.4326, Lon: -99.1332},  // Mexico City
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func randomLocation() Location {
	base := cities[rand.Intn(len(cities))]
	return jitterLocation(base, 500)
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

// planRoute returns points+1 fixes going from start towards a point about
// lengthKm away, each jittered by a few meters of GPS noise.
func planRoute(start Location, lengthKm float64, points int) []Location {
	if points < 1 {
		points = 1
	}
	bearing := rand.Float64() * 2 * math.Pi
	dLat := lengthKm * 1000 * math.Cos(bearing) / 111320.0
	dLon := lengthKm * 1000 * math.Sin(bearing) / (111320.0 * math.Cos(start.Lat*math.Pi/180))
	end := Location{Lat: start.Lat + dLat, Lon: start.Lon + dLon}

	route := make([]Location, 0, points+1)
	route = append(route, start)
	for i := 1; i <= points; i++ {
		p := lerp(start, end, float64(i)/float64(points))
		if i < points {
			p = jitterLocation(p, 15)
		}
		route = append(route, p)
	}
	return route
}

// routeLengthKm is what the server is expected to accumulate for route.
func routeLengthKm(route []Location) float64 {
	total := 0.0
	for i := 1; i < len(route); i++ {
		total += geo.DistanceKm(route[i-1].Lat, route[i-1].Lon, route[i].Lat, route[i].Lon)
	}
	return total
}

// --- API client ---

type apiError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// authenticate registers the rider, falling back to login when the email is
// already taken.
func (c *client) authenticate(ctx context.Context, email, password string) error {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", models.RegisterRequest{
		Email:    email,
		Password: password,
		FullName: "Trip Simulator",
	}, &resp)

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		err = c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &resp)
	}
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	c.token = resp.Token
	log.WithField("user_id", resp.User.ID.Hex()).Info("Authenticated")
	return nil
}

// passSafetyCheck creates the default checklist, ticks every item and approves it.
func (c *client) passSafetyCheck(ctx context.Context) (string, error) {
	var check models.SafetyCheck
	if err := c.do(ctx, http.MethodPost, "/safety-checks", map[string]interface{}{}, &check); err != nil {
		return "", fmt.Errorf("create safety check: %w", err)
	}
	id := check.ID.Hex()

	items := make([]models.ChecklistItem, len(check.Items))
	for i, item := range check.Items {
		item.Checked = true
		items[i] = item
	}
	if err := c.do(ctx, http.MethodPut, "/safety-checks/"+id+"/items", map[string]interface{}{"items": items}, &check); err != nil {
		return "", fmt.Errorf("check items: %w", err)
	}
	if err := c.do(ctx, http.MethodPost, "/safety-checks/"+id+"/approve", nil, &check); err != nil {
		return "", fmt.Errorf("approve safety check: %w", err)
	}
	log.WithFields(log.Fields{"safety_check_id": id, "status": check.Status}).Info("Safety check passed")
	return id, nil
}

func (c *client) startTrip(ctx context.Context, vehicleType models.VehicleType, origin Location) (*models.Trip, error) {
	var trip models.Trip
	body := map[string]interface{}{"vehicle_type": vehicleType, "origin": origin}
	if err := c.do(ctx, http.MethodPost, "/trips", body, &trip); err != nil {
		return nil, fmt.Errorf("start trip: %w", err)
	}
	log.WithFields(log.Fields{"trip_id": trip.ID.Hex(), "vehicle_type": vehicleType}).Info("Trip started")
	return &trip, nil
}

func (c *client) reportLocation(ctx context.Context, tripID string, loc Location) (*models.Trip, error) {
	var trip models.Trip
	if err := c.do(ctx, http.MethodPost, "/trips/"+tripID+"/locations", loc, &trip); err != nil {
		return nil, fmt.Errorf("report location: %w", err)
	}
	return &trip, nil
}

func (c *client) completeTrip(ctx context.Context, tripID string, destination Location) (*models.Trip, error) {
	var trip models.Trip
	body := map[string]interface{}{"destination": destination}
	if err := c.do(ctx, http.MethodPost, "/trips/"+tripID+"/complete", body, &trip); err != nil {
		return nil, fmt.Errorf("complete trip: %w", err)
	}
	return &trip, nil
}

// --- Simulation ---

type simConfig struct {
	APIURL      string
	Email       string
	Password    string
	VehicleType models.VehicleType
	Points      int
	RouteKm     float64
	Interval    time.Duration
}

func loadSimConfig() simConfig {
	cfg := simConfig{
		APIURL:      "http://localhost:8080/api/v1",
		Email:       "simulator@initinere.dev",
		Password:    "simulator-pass",
		VehicleType: models.VehicleMotorcycle,
		Points:      20,
		RouteKm:     5,
		Interval:    2 * time.Second,
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("SIM_EMAIL"); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv("SIM_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := models.VehicleType(os.Getenv("SIM_VEHICLE_TYPE")); models.IsValidVehicleType(v) {
		cfg.VehicleType = v
	}
	if v := os.Getenv("SIM_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.Points = n
		}
	}
	if v := os.Getenv("SIM_ROUTE_KM"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RouteKm = f
		}
	}
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Interval = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// simulateTrip drives one trip from safety check to completion. The last
// route point is sent as the destination rather than as a location report.
func simulateTrip(ctx context.Context, c *client, cfg simConfig, start Location) (*models.Trip, error) {
	if _, err := c.passSafetyCheck(ctx); err != nil {
		return nil, err
	}
	trip, err := c.startTrip(ctx, cfg.VehicleType, start)
	if err != nil {
		return nil, err
	}
	tripID := trip.ID.Hex()

	route := planRoute(start, cfg.RouteKm, cfg.Points)
	for _, loc := range route[:len(route)-1] {
		if cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.Interval):
			}
		}
		updated, err := c.reportLocation(ctx, tripID, loc)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"trip_id":     tripID,
			"points":      len(updated.Route),
			"distance_km": updated.RouteDistanceKm,
		}).Debug("Sent location")
	}

	done, err := c.completeTrip(ctx, tripID, route[len(route)-1])
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"trip_id":           tripID,
		"distance_km":       done.DistanceKm,
		"route_distance_km": done.RouteDistanceKm,
		"planned_km":        routeLengthKm(route),
		"minutes":           done.DurationMinutes,
	}).Info("Trip completed")
	return done, nil
}

func main() {
	cfg := loadSimConfig()
	log.WithFields(log.Fields{
		"api_url":      cfg.APIURL,
		"vehicle_type": cfg.VehicleType,
		"points":       cfg.Points,
		"interval":     cfg.Interval,
	}).Info("Starting trip simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newClient(cfg.APIURL)
	if err := c.authenticate(ctx, cfg.Email, cfg.Password); err != nil {
		log.WithError(err).Fatal("Failed to authenticate")
	}
	if _, err := simulateTrip(ctx, c, cfg, randomLocation()); err != nil {
		log.WithError(err).Fatal("Trip simulation failed")
	}
}
