package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minhanhland/inventory/internal/domain"
)

func (s *Server) handleListMasterData(w http.ResponseWriter, r *http.Request) {
	tree, err := s.masterData.ListTree(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": tree})
}

func (s *Server) handleCreateMasterData(w http.ResponseWriter, r *http.Request) {
	var m domain.MasterData
	if err := decodeBody(r, &m); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if m.Type != domain.TypeSubdivision && m.Type != domain.TypeApartmentType {
		respondError(w, http.StatusBadRequest, "unknown master data type")
		return
	}

	if err := s.masterData.Create(r.Context(), &m); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (s *Server) handleUpdateMasterData(w http.ResponseWriter, r *http.Request) {
	var m domain.MasterData
	if err := decodeBody(r, &m); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m.ID = chi.URLParam(r, "id")

	if err := s.masterData.Update(r.Context(), &m); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMasterData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.masterData.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleReorderMasterData(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeBody(r, &req); err != nil || len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids are required")
		return
	}

	if err := s.masterData.Reorder(r.Context(), req.IDs); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"reordered": len(req.IDs)})
}
