// Package server wires the HTTP API: REST resources, auth and the
// websocket endpoint for live product updates.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/auth"
	"github.com/minhanhland/inventory/internal/config"
	"github.com/minhanhland/inventory/internal/importer"
	"github.com/minhanhland/inventory/internal/store"
	"github.com/minhanhland/inventory/internal/ws"
)

// ImportRunner runs an Excel import from an uploaded workbook.
type ImportRunner interface {
	Run(ctx context.Context, r io.Reader, filename string) (*importer.Result, error)
}

type Server struct {
	config      *config.Config
	logger      *zap.Logger
	hub         *ws.Hub
	notifier    *ws.Notifier
	auth        *auth.Service
	products    store.ProductsRepository
	masterData  store.MasterDataRepository
	users       store.UsersRepository
	departments store.DepartmentsRepository
	permissions store.PermissionsRepository
	importer    ImportRunner
	loginGuard  *loginGuard
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	hub *ws.Hub,
	notifier *ws.Notifier,
	authSvc *auth.Service,
	products store.ProductsRepository,
	masterData store.MasterDataRepository,
	users store.UsersRepository,
	departments store.DepartmentsRepository,
	permissions store.PermissionsRepository,
	imp ImportRunner,
) *Server {
	return &Server{
		config:      cfg,
		logger:      logger,
		hub:         hub,
		notifier:    notifier,
		auth:        authSvc,
		products:    products,
		masterData:  masterData,
		users:       users,
		departments: departments,
		permissions: permissions,
		importer:    imp,
		loginGuard:  newLoginGuard(cfg.Auth.LoginPerMin),
	}
}

func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware(s.config.Server.CORSOrigins))
	r.Use(zapLoggerMiddleware(s.logger))

	r.Get("/health", s.handleHealth)
	r.Post("/auth/login", s.handleLogin)

	// Websocket clients authenticate via query token since browsers
	// cannot set headers on the handshake.
	r.Get("/products/ws", s.handleProductsWS)

	r.Group(func(api chi.Router) {
		api.Use(s.authMiddleware)

		api.Get("/auth/me", s.handleMe)

		api.Route("/products", func(pr chi.Router) {
			pr.Get("/", s.handleListProducts)
			pr.Post("/", s.handleCreateProduct)
			pr.Put("/reorder", s.handleReorderProducts)
			pr.Post("/import", s.handleImportProducts)
			pr.Get("/export", s.handleExportProducts)
			pr.Get("/{id}", s.handleGetProduct)
			pr.Put("/{id}", s.handleUpdateProduct)
			pr.Delete("/{id}", s.handleDeleteProduct)
		})

		api.Route("/master-data", func(mr chi.Router) {
			mr.Get("/", s.handleListMasterData)
			mr.Post("/", s.requireAdmin(s.handleCreateMasterData))
			mr.Put("/reorder", s.requireAdmin(s.handleReorderMasterData))
			mr.Put("/{id}", s.requireAdmin(s.handleUpdateMasterData))
			mr.Delete("/{id}", s.requireAdmin(s.handleDeleteMasterData))
		})

		api.Route("/users", func(ur chi.Router) {
			ur.Get("/", s.requireAdmin(s.handleListUsers))
			ur.Post("/", s.requireAdmin(s.handleCreateUser))
			ur.Put("/{id}", s.requireAdmin(s.handleUpdateUser))
			ur.Delete("/{id}", s.requireAdmin(s.handleDeleteUser))
			ur.Get("/{id}/permissions", s.requireAdmin(s.handleGetPermissions))
			ur.Put("/{id}/permissions", s.requireAdmin(s.handleSetPermissions))
		})

		api.Route("/departments", func(dr chi.Router) {
			dr.Get("/", s.handleListDepartments)
			dr.Post("/", s.requireAdmin(s.handleCreateDepartment))
			dr.Put("/{id}", s.requireAdmin(s.handleUpdateDepartment))
			dr.Delete("/{id}", s.requireAdmin(s.handleDeleteDepartment))
		})
	})

	return r
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed[origin] || allowed["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProductsWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := s.auth.ParseToken(token); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	s.hub.ServeWS(w, r)
}

// pageMeta is the pagination envelope returned by list endpoints.
type pageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type pagedResponse struct {
	Data any      `json:"data"`
	Meta pageMeta `json:"meta"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps store errors to HTTP statuses.
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	s.logger.Error("storage error", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
