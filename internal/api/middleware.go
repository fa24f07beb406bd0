package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/auth"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	RoleKey   contextKey = "role"
)

type Middleware struct {
	DB  *db.DB
	Log *zap.Logger
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// authenticate resolves the token to a stored user. The role comes from the
// database so that role changes apply without a new token.
func (m *Middleware) authenticate(r *http.Request, token string) (*http.Request, error) {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid token")
	}

	// a valid token may outlive its user, e.g. after the DB was wiped
	user, err := m.DB.Queries().GetUserByID(r.Context(), claims.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		m.Log.Debug("token for unknown user", zap.Int64("user_id", claims.UserID))
		return nil, apperr.Unauthorized("User not found")
	}
	if err != nil {
		return nil, err
	}

	ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
	ctx = context.WithValue(ctx, RoleKey, user.Role)
	return r.WithContext(ctx), nil
}

func (m *Middleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			JSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		authed, err := m.authenticate(r, token)
		if err != nil {
			writeError(w, r, m.Log, err)
			return
		}
		next.ServeHTTP(w, authed)
	})
}

// OptionalAuthMiddleware attaches the caller when a valid token is
// presented and otherwise serves the request anonymously.
func (m *Middleware) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if authed, err := m.authenticate(r, token); err == nil {
				r = authed
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(RoleKey).(model.Role)
			if !slices.Contains(roles, role) {
				JSONError(w, "Access denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetUserID(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(UserIDKey).(int64)
	return userID, ok
}
