package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	apperrors "github.com/ukydev/initinere/internal/errors"
	"github.com/ukydev/initinere/internal/models"
	"github.com/ukydev/initinere/internal/service"
)

type EmergencyHandler struct {
	emergencies *service.EmergencyService
}

func NewEmergencyHandler(emergencies *service.EmergencyService) *EmergencyHandler {
	return &EmergencyHandler{emergencies: emergencies}
}

// Raise records an alert and escalates the caller's trip in progress, if any.
func (h *EmergencyHandler) Raise(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req RaiseEmergencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	emergency, err := h.emergencies.Raise(r.Context(), claims.UserID, req.Type, req.Description, req.Location.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, emergency)
}

func (h *EmergencyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ResolveEmergencyRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	emergency, err := h.emergencies.Resolve(r.Context(), mux.Vars(r)["id"], claims.UserID, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emergency)
}

func (h *EmergencyHandler) List(w http.ResponseWriter, r *http.Request) {
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
	var status models.EmergencyStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		var ok bool
		if status, ok = models.ParseEmergencyStatus(raw); !ok {
			writeError(w, r, apperrors.Validation(fmt.Sprintf("invalid emergency status %q", raw)))
			return
		}
	}
	emergencies, err := h.emergencies.List(r.Context(), claims.UserID, status, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emergencies)
}

func (h *EmergencyHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	emergency, err := h.emergencies.Get(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emergency)
}

func (h *EmergencyHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.emergencies.Contacts())
}
