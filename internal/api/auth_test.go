package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theLastOfCats/manhwa-go-server/internal/auth"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
)

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	reg := RegisterRequest{Username: "jinwoo", Email: "Jinwoo@Example.com", Password: "arise!", Language: model.LangUA}
	rr := s.do(t, "POST", "/api/auth/register", "", reg)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	registered := decode[AuthResponse](t, rr)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "jinwoo@example.com", registered.User.Email)
	assert.Equal(t, model.RoleReader, registered.User.Role)
	assert.Equal(t, 1, registered.User.Level)
	assert.Equal(t, model.LangUA, registered.User.Language)

	claims, err := auth.ValidateToken(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)

	rr = s.do(t, "POST", "/api/auth/register", "", reg)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "User already exists", decode[ErrorResponse](t, rr).Error)

	rr = s.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "jinwoo@example.com", Password: "arise!"})
	require.Equal(t, http.StatusOK, rr.Code)
	loggedIn := decode[AuthResponse](t, rr)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	rr = s.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "jinwoo@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "nobody@example.com", Password: "arise!"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid credentials", decode[ErrorResponse](t, rr).Error)

	rr = s.do(t, "GET", "/api/auth/me", loggedIn.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[struct {
		User model.User `json:"user"`
	}](t, rr)
	assert.Equal(t, "jinwoo", me.User.Username)
	assert.Empty(t, me.User.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		req  RegisterRequest
		want string
	}{
		{"short username", RegisterRequest{Username: "jo", Email: "jo@example.com", Password: "secret"}, "Username must be between 3 and 20 characters"},
		{"bad email", RegisterRequest{Username: "jinwoo", Email: "not-an-email", Password: "secret"}, "Please include a valid email"},
		{"short password", RegisterRequest{Username: "jinwoo", Email: "j@example.com", Password: "12345"}, "Password must be at least 6 characters"},
		{"bad language", RegisterRequest{Username: "jinwoo", Email: "j@example.com", Password: "secret", Language: "fr"}, "Invalid language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, "POST", "/api/auth/register", "", tt.req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.want, decode[ErrorResponse](t, rr).Error)
		})
	}
}

func TestUpdatePreferences(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, model.RoleReader)

	rr := s.do(t, "PUT", "/api/auth/preferences", token, map[string]any{"darkMode": true})
	require.Equal(t, http.StatusOK, rr.Code)
	updated := decode[struct {
		User model.User `json:"user"`
	}](t, rr)
	assert.True(t, updated.User.DarkMode)
	assert.Equal(t, model.LangEN, updated.User.Language)

	rr = s.do(t, "PUT", "/api/auth/preferences", token, map[string]any{"language": "de"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
