package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"go.uber.org/zap"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSONError writes a JSON error response
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status code and writes its user-facing message.
// Unclassified errors are logged and reported as a generic failure.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r)),
			zap.Error(err),
		)
		JSONError(w, "Internal server error", status)
		return
	}
	JSONError(w, apperr.Message(err, http.StatusText(status)), status)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || v < 1 {
		return 0, apperr.Validation("Invalid %s", name)
	}
	return v, nil
}

// queryInt reads a non-negative integer query parameter, using def when it
// is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

const maxPage = 10000

// pageQuery reads page and limit, clamped so the offset stays in range.
func pageQuery(r *http.Request, defLimit int) (page, limit int) {
	page = min(max(queryInt(r, "page", 1), 1), maxPage)
	limit = min(max(queryInt(r, "limit", defLimit), 1), 100)
	return page, limit
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

func paginate(total, page, limit int) Pagination {
	return Pagination{Total: total, Page: page, Pages: (total + limit - 1) / limit}
}
