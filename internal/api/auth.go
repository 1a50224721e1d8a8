package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/Alkitu/alkitu-template-sub002/internal/models"
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type ctxKey int

const principalKey ctxKey = iota

// PrincipalFrom returns the authenticated principal stored by the auth
// middleware.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

// authMiddleware requires a bearer token on every API route and stores the
// resolved principal in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		principal := models.Principal{UserID: user.ID, Role: user.Role}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Guard declares the access requirement for a route: which roles may call it
// and, optionally, which feature flag must be on. A nil Roles slice allows
// any authenticated principal.
type Guard struct {
	Roles   []models.Role
	Feature string
}

func (g Guard) allows(p models.Principal) bool {
	if len(g.Roles) == 0 {
		return true
	}
	for _, role := range g.Roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

// guarded evaluates the guard against the authenticated principal before
// running the handler.
func (s *Server) guarded(g Guard, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if g.Feature != "" && !s.cfg.FeatureEnabled(g.Feature) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		if !g.allows(principal) {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}

		handler(w, r)
	}
}
