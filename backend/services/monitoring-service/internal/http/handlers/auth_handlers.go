package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/authz"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/service"
)

// AuthService is the account surface used by the handlers.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Register(ctx context.Context, actor authz.Actor, in service.NewUser) (*models.User, error)
}

// NewLoginHandler handles POST /auth/login.
func NewLoginHandler(auth AuthService, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	type response struct {
		AccessToken string       `json:"access_token"`
		TokenType   string       `json:"token_type"`
		User        *models.User `json:"user"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		token, user, err := auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, response{AccessToken: token, TokenType: "Bearer", User: user})
	}
}

// NewRegisterHandler handles POST /auth/register.
func NewRegisterHandler(auth AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.NewUser
		if !decodeJSON(w, r, &req) {
			return
		}
		user, err := auth.Register(r.Context(), actorFrom(r), req)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}
