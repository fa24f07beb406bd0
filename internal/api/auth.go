package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/auth"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"go.uber.org/zap"
)

type AuthHandler struct {
	DB  *db.DB
	Log *zap.Logger
}

type RegisterRequest struct {
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Language model.Language `json:"language"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PreferencesRequest struct {
	Language *model.Language `json:"language"`
	DarkMode *bool           `json:"darkMode"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (req *RegisterRequest) validate() error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Username == "" {
		return apperr.Validation("Username is required")
	}
	if n := utf8.RuneCountInString(req.Username); n < 3 || n > 20 {
		return apperr.Validation("Username must be between 3 and 20 characters")
	}
	if !validEmail(req.Email) {
		return apperr.Validation("Please include a valid email")
	}
	if len(req.Password) < 6 {
		return apperr.Validation("Password must be at least 6 characters")
	}
	if req.Language == "" {
		req.Language = model.LangEN
	}
	if !req.Language.Valid() {
		return apperr.Validation("Invalid language")
	}
	return nil
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Language:     req.Language,
	}
	if err := h.DB.Queries().CreateUser(r.Context(), user); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	user, err = h.DB.Queries().GetUserByID(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	h.Log.Info("user registered", zap.Int64("user_id", user.ID))
	h.issue(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(req.Email) {
		JSONError(w, "Please include a valid email", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		JSONError(w, "Password is required", http.StatusBadRequest)
		return
	}

	user, err := h.DB.Queries().GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		JSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !match {
		JSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.issue(w, r, http.StatusOK, user)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.DB.Queries().GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req PreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.Language != nil && !req.Language.Valid() {
		JSONError(w, "Invalid language", http.StatusBadRequest)
		return
	}

	user, err := h.DB.Queries().UpdatePreferences(r.Context(), userID, req.Language, req.DarkMode)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
