package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	apperrors "github.com/ukydev/initinere/internal/errors"
	"github.com/ukydev/initinere/internal/models"
	"github.com/ukydev/initinere/internal/service"
)

// TripHandler drives the trip state machine over HTTP.
type TripHandler struct {
	trips *service.TripService
}

func NewTripHandler(trips *service.TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

func (h *TripHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req StartTripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := h.trips.Start(r.Context(), claims.UserID, req.VehicleType, req.Origin.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (h *TripHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PointRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := h.trips.ReportLocation(r.Context(), mux.Vars(r)["id"], claims.UserID, req.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Complete(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req CompleteTripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := h.trips.Complete(r.Context(), mux.Vars(r)["id"], claims.UserID, req.Destination.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := h.trips.Cancel(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) SetEmergency(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := h.trips.SetEmergency(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// Active answers null when no trip is in progress.
func (h *TripHandler) Active(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := h.trips.ActiveTrip(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var status models.TripStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		var ok bool
		if status, ok = models.ParseTripStatus(raw); !ok {
			writeError(w, r, apperrors.Validation(fmt.Sprintf("invalid trip status %q", raw)))
			return
		}
	}
	trips, err := h.trips.List(r.Context(), claims.UserID, status, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trip, err := h.trips.Get(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}
