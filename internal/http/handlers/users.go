package handlers

import (
	"log/slog"
	"net/http"

	"github.com/humon/server/internal/auth"
	"github.com/humon/server/internal/middleware"
	"github.com/humon/server/internal/model"
)

const (
	appSecretHeader   = "app-secret"
	deviceTokenHeader = "device-token"
)

// UserHandler serves credential issuance and the caller's own identity.
type UserHandler struct {
	log         *slog.Logger
	authService *auth.AuthService
}

func NewUserHandler(log *slog.Logger, authService *auth.AuthService) *UserHandler {
	return &UserHandler{
		log:         log.With(slog.String("component", "handlers/users")),
		authService: authService,
	}
}

// credentialsResponse is returned by issuance and token rotation.
type credentialsResponse struct {
	ID          int64  `json:"id"`
	AuthToken   string `json:"auth_token"`
	DeviceToken string `json:"device_token"`
}

// meResponse never includes the auth token.
type meResponse struct {
	ID          int64  `json:"id"`
	DeviceToken string `json:"device_token"`
}

func credentials(u model.User) credentialsResponse {
	return credentialsResponse{ID: u.ID, AuthToken: u.AuthToken, DeviceToken: u.DeviceToken}
}

// HandleIssue handles POST /v1/users
func (h *UserHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	user, created, err := h.authService.Issue(
		r.Context(),
		r.Header.Get(appSecretHeader),
		r.Header.Get(deviceTokenHeader),
	)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, credentials(user))
}

// HandleMe handles GET /v1/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, meResponse{ID: user.ID, DeviceToken: user.DeviceToken})
}

// HandleRotateToken handles POST /v1/users/me/token
func (h *UserHandler) HandleRotateToken(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rotated, err := h.authService.RotateToken(r.Context(), *user)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, credentials(rotated))
}
