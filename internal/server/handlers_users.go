package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minhanhland/inventory/internal/auth"
	"github.com/minhanhland/inventory/internal/domain"
)

type userRequest struct {
	Username     string          `json:"username"`
	FullName     string          `json:"fullName"`
	Email        string          `json:"email"`
	Role         domain.UserRole `json:"role"`
	DepartmentID string          `json:"departmentId"`
	Password     string          `json:"password"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": users})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Role != "" && req.Role != domain.RoleAdmin && req.Role != domain.RoleUser {
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &domain.User{
		Username:     req.Username,
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
		PasswordHash: hash,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	user.FullName = req.FullName
	user.Email = req.Email
	user.DepartmentID = req.DepartmentID
	if req.Role != "" {
		user.Role = req.Role
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// The last admin cannot delete itself.
	claims := claimsFrom(r.Context())
	if claims != nil && claims.Subject == id {
		respondError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleGetPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.permissions.GetForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, perms)
}

type permissionsRequest struct {
	FieldNames []string `json:"fieldNames"`
	ProductIDs []string `json:"productIds"`
}

func (s *Server) handleSetPermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	perm := &domain.FieldPermission{
		UserID:     chi.URLParam(r, "id"),
		FieldNames: req.FieldNames,
		ProductIDs: req.ProductIDs,
	}
	if perm.FieldNames == nil {
		perm.FieldNames = []string{}
	}
	if perm.ProductIDs == nil {
		perm.ProductIDs = []string{}
	}

	if err := s.permissions.Upsert(r.Context(), perm); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, perm)
}
