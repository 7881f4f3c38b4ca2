package handlers

import (
	"context"
	"net/http"

	"github.com/ukydev/initinere/internal/service"
)

type DashboardHandler struct {
	dashboard *service.DashboardService
}

func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	serveStats(w, r, func(ctx context.Context, userID string) (interface{}, error) {
		return h.dashboard.Summary(ctx, userID)
	})
}

func (h *DashboardHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	serveStats(w, r, func(ctx context.Context, userID string) (interface{}, error) {
		return h.dashboard.Weekly(ctx, userID)
	})
}

func (h *DashboardHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	serveStats(w, r, func(ctx context.Context, userID string) (interface{}, error) {
		return h.dashboard.Monthly(ctx, userID)
	})
}

func serveStats(w http.ResponseWriter, r *http.Request, compute func(ctx context.Context, userID string) (interface{}, error)) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := compute(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
