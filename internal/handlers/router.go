package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ukydev/initinere/internal/auth"
	"github.com/ukydev/initinere/internal/db"
	apperrors "github.com/ukydev/initinere/internal/errors"
	"github.com/ukydev/initinere/internal/middleware"
	"github.com/ukydev/initinere/internal/service"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Auth         *auth.Service
	Store        *db.Store
	SafetyChecks *service.SafetyCheckService
	Trips        *service.TripService
	Emergencies  *service.EmergencyService
	Dashboard    *service.DashboardService

	// Idempotency is optional; without it Idempotency-Key is ignored.
	Idempotency    *middleware.IdempotencyMiddleware
	AuthRateLimit  int
	AuthRateWindow time.Duration
	// TrustProxy makes the rate limiter key on X-Forwarded-For.
	TrustProxy bool
}

// NewRouter mounts the API under /api/v1 and the health probe at /health.
func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)
	r.NotFoundHandler = middleware.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, apperrors.NewAPIError(apperrors.ErrNotFound, "not_found", "route not found", http.StatusNotFound))
	}))
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, apperrors.NewAPIError(nil, "method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
	})

	r.Handle("/health", HealthHandler(cfg.Store)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.NewAuthMiddleware(cfg.Auth).Authenticate)
	if cfg.Idempotency != nil {
		api.Use(cfg.Idempotency.Handler)
	}

	limit := cfg.AuthRateLimit
	if limit <= 0 {
		limit = 10
	}
	window := cfg.AuthRateWindow
	if window <= 0 {
		window = time.Minute
	}
	rateLimited := middleware.NewRateLimitMiddleware(cfg.TrustProxy).RateLimit(limit, window)

	authHandler := NewAuthHandler(cfg.Auth, cfg.Store.Users)
	api.Handle("/auth/register", rateLimited(http.HandlerFunc(authHandler.Register))).Methods(http.MethodPost)
	api.Handle("/auth/login", rateLimited(http.HandlerFunc(authHandler.Login))).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", authHandler.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/auth/me", authHandler.UpdateProfile).Methods(http.MethodPut)
	api.HandleFunc("/auth/me/vehicle-preference", authHandler.UpdateVehiclePreference).Methods(http.MethodPut)

	vehicles := NewVehicleHandler(cfg.Store.Vehicles)
	api.HandleFunc("/vehicles", vehicles.Create).Methods(http.MethodPost)
	api.HandleFunc("/vehicles", vehicles.List).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}", vehicles.Get).Methods(http.MethodGet)
	api.HandleFunc("/vehicles/{id}", vehicles.Deactivate).Methods(http.MethodDelete)

	checks := NewSafetyCheckHandler(cfg.SafetyChecks)
	api.HandleFunc("/safety-checks", checks.Create).Methods(http.MethodPost)
	api.HandleFunc("/safety-checks/template", checks.Template).Methods(http.MethodGet)
	api.HandleFunc("/safety-checks/current", checks.Current).Methods(http.MethodGet)
	api.HandleFunc("/safety-checks/latest-passed", checks.LatestPassed).Methods(http.MethodGet)
	api.HandleFunc("/safety-checks/{id}", checks.Get).Methods(http.MethodGet)
	api.HandleFunc("/safety-checks/{id}/items", checks.UpdateItems).Methods(http.MethodPut)
	api.HandleFunc("/safety-checks/{id}/approve", checks.Approve).Methods(http.MethodPost)
	api.HandleFunc("/safety-checks/{id}/reject", checks.Reject).Methods(http.MethodPost)

	trips := NewTripHandler(cfg.Trips)
	api.HandleFunc("/trips", trips.Start).Methods(http.MethodPost)
	api.HandleFunc("/trips", trips.List).Methods(http.MethodGet)
	api.HandleFunc("/trips/active", trips.Active).Methods(http.MethodGet)
	api.HandleFunc("/trips/{id}", trips.Get).Methods(http.MethodGet)
	api.HandleFunc("/trips/{id}/locations", trips.ReportLocation).Methods(http.MethodPost)
	api.HandleFunc("/trips/{id}/complete", trips.Complete).Methods(http.MethodPost)
	api.HandleFunc("/trips/{id}/cancel", trips.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/trips/{id}/emergency", trips.SetEmergency).Methods(http.MethodPost)

	emergencies := NewEmergencyHandler(cfg.Emergencies)
	api.HandleFunc("/emergencies", emergencies.Raise).Methods(http.MethodPost)
	api.HandleFunc("/emergencies", emergencies.List).Methods(http.MethodGet)
	api.HandleFunc("/emergencies/contacts", emergencies.Contacts).Methods(http.MethodGet)
	api.HandleFunc("/emergencies/{id}", emergencies.Get).Methods(http.MethodGet)
	api.HandleFunc("/emergencies/{id}/resolve", emergencies.Resolve).Methods(http.MethodPost)

	dashboard := NewDashboardHandler(cfg.Dashboard)
	api.HandleFunc("/dashboard/summary", dashboard.Summary).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/weekly", dashboard.Weekly).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/monthly", dashboard.Monthly).Methods(http.MethodGet)

	return r
}
