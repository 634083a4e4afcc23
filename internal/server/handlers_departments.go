package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minhanhland/inventory/internal/domain"
)

func (s *Server) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := s.departments.List(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": departments})
}

func (s *Server) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var d domain.Department
	if err := decodeBody(r, &d); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if d.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := s.departments.Create(r.Context(), &d); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var d domain.Department
	if err := decodeBody(r, &d); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d.ID = chi.URLParam(r, "id")

	if err := s.departments.Update(r.Context(), &d); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.departments.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}
