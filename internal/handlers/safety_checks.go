package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ukydev/initinere/internal/service"
)

// SafetyCheckHandler exposes the pre-departure checklist.
type SafetyCheckHandler struct {
	checks *service.SafetyCheckService
}

func NewSafetyCheckHandler(checks *service.SafetyCheckService) *SafetyCheckHandler {
	return &SafetyCheckHandler{checks: checks}
}

// Template returns the canonical checklist.
func (h *SafetyCheckHandler) Template(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.checks.Template())
}

// Create starts a pending check. An omitted or empty item list uses the
// canonical checklist.
func (h *SafetyCheckHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ChecklistRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	check, err := h.checks.Create(r.Context(), claims.UserID, req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, check)
}

func (h *SafetyCheckHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req UpdateItemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	check, err := h.checks.UpdateItems(r.Context(), mux.Vars(r)["id"], claims.UserID, req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *SafetyCheckHandler) Approve(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	check, err := h.checks.Approve(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *SafetyCheckHandler) Reject(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	check, err := h.checks.Reject(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *SafetyCheckHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	check, err := h.checks.Get(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// LatestPassed answers null when the user never passed a check.
func (h *SafetyCheckHandler) LatestPassed(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	check, err := h.checks.LatestPassed(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// Current answers null when the user has no checks.
func (h *SafetyCheckHandler) Current(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	check, err := h.checks.Current(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}
