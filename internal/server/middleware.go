package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/minhanhland/inventory/internal/auth"
	"github.com/minhanhland/inventory/internal/domain"
)

type contextKey string

const claimsKey contextKey = "claims"

// authMiddleware verifies the bearer token and stores the claims on the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.auth.ParseToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom returns the verified claims stored by authMiddleware.
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// requireAdmin guards mutating admin-only routes.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil || claims.Role != domain.RoleAdmin {
			respondError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	}
}

// loginGuard rate-limits login attempts per remote address.
type loginGuard struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newLoginGuard(perMin int) *loginGuard {
	if perMin < 1 {
		perMin = 5
	}
	return &loginGuard{
		limiters: make(map[string]*rate.Limiter),
		perMin:   perMin,
	}
}

func (g *loginGuard) allow(addr string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.limiters[addr]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(g.perMin)), g.perMin)
		g.limiters[addr] = l
	}
	return l.Allow()
}
