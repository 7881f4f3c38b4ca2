package handlers

import (
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/initinere/internal/auth"
	"github.com/ukydev/initinere/internal/db"
	apperrors "github.com/ukydev/initinere/internal/errors"
	"github.com/ukydev/initinere/internal/models"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(w, r, &loginReq); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userCollection.FindUserByEmail(r.Context(), loginReq.Email)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, apperrors.Unauthenticated(auth.ErrInvalidCredentials.Error()))
		return
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("find user: %w", err))
		return
	}
	if !user.IsActive {
		writeError(w, r, apperrors.Unauthenticated("account is deactivated"))
		return
	}
	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		writeError(w, r, apperrors.Unauthenticated(auth.ErrInvalidCredentials.Error()))
		return
	}

	response, err := h.issueTokens(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}

	writeJSON(w, http.StatusOK, response)
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := decodeJSON(w, r, &registerReq); err != nil {
		writeError(w, r, err)
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := &models.User{
		Email:             registerReq.Email,
		PasswordHash:      passwordHash,
		FullName:          registerReq.FullName,
		Phone:             registerReq.Phone,
		VehiclePreference: registerReq.VehiclePreference,
		IsActive:          true,
	}
	err = h.userCollection.InsertUser(r.Context(), user)
	if errors.Is(err, db.ErrDuplicate) {
		writeError(w, r, apperrors.Conflict("email already registered"))
		return
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("insert user: %w", err))
		return
	}

	response, err := h.issueTokens(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.WithField("user_id", user.ID.Hex()).Info("User registered")
	writeJSON(w, http.StatusCreated, response)
}

func (h *AuthHandler) issueTokens(user *models.User) (*models.LoginResponse, error) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &models.LoginResponse{
		Token: token,
		User:  *user,
	}, nil
}

// Refresh issues a new token for the bearer of a still valid one
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, apperrors.Unauthenticated("user no longer exists"))
		return
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("find user: %w", err))
		return
	}
	if !user.IsActive {
		writeError(w, r, apperrors.Unauthenticated("account is deactivated"))
		return
	}

	response, err := h.issueTokens(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// UpdateProfile changes the current user's name and phone
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.FullName == nil && req.Phone == nil {
		writeError(w, r, apperrors.Validation("nothing to update"))
		return
	}

	user, err := h.userCollection.UpdateProfile(r.Context(), claims.UserID, db.ProfileUpdate{
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, apperrors.NotFound("user"))
		return
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("update profile: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, apperrors.NotFound("user"))
		return
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("find user: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateVehiclePreference sets the vehicle type the user usually drives
func (h *AuthHandler) UpdateVehiclePreference(w http.ResponseWriter, r *http.Request) {
	claims, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req VehiclePreferenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userCollection.UpdateVehiclePreference(r.Context(), claims.UserID, req.VehicleType)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, r, apperrors.NotFound("user"))
		return
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("update vehicle preference: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, user)
}
