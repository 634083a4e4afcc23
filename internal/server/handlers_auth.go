package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.loginGuard.allow(r.RemoteAddr) {
		respondError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Error("login failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("user logged in", zap.String("username", user.Username))
	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// handleMe returns the authenticated user together with their field
// permissions so the frontend can hide restricted columns.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	user, err := s.users.Get(r.Context(), claims.Subject)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	perms, err := s.permissions.GetForUser(r.Context(), user.ID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":        user,
		"permissions": perms,
	})
}
