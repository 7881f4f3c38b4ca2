package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ukydev/initinere/internal/db"
	apperrors "github.com/ukydev/initinere/internal/errors"
	"github.com/ukydev/initinere/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleHandler manages the vehicles a user drives. Records are plain CRUD;
// deleting one only deactivates it.
type VehicleHandler struct {
	vehicles db.VehicleCollection
	now      func() time.Time
}

func NewVehicleHandler(vehicles db.VehicleCollection) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles, now: func() time.Time { return time.Now().UTC() }}
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req CreateVehicleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	now := h.now()
	vehicle := &models.Vehicle{
		UserID:       claims.UserID,
		VehicleType:  req.VehicleType,
		LicensePlate: req.LicensePlate,
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		Color:        req.Color,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = h.vehicles.InsertVehicle(r.Context(), vehicle)
	if errors.Is(err, db.ErrDuplicate) {
		writeError(w, r, apperrors.Conflict("license plate already registered"))
		return
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("insert vehicle: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

// List returns active vehicles unless ?all=true.
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	activeOnly := r.URL.Query().Get("all") != "true"
	vehicles, err := h.vehicles.FindVehicles(r.Context(), claims.UserID, activeOnly)
	if err != nil {
		writeError(w, r, fmt.Errorf("find vehicles: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, id, err := h.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vehicle, err := h.vehicles.FindVehicle(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, r, vehicleError(err))
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	claims, id, err := h.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vehicle, err := h.vehicles.DeactivateVehicle(r.Context(), id, claims.UserID, h.now())
	if err != nil {
		writeError(w, r, vehicleError(err))
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) target(r *http.Request) (*models.Claims, primitive.ObjectID, error) {
	claims, err := currentUser(r)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	raw := mux.Vars(r)["id"]
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, primitive.NilObjectID, apperrors.Validation(fmt.Sprintf("invalid vehicle id %q", raw))
	}
	return claims, id, nil
}

func vehicleError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperrors.NotFound("vehicle")
	}
	return fmt.Errorf("vehicle: %w", err)
}
