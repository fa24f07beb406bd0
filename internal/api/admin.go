package api

import (
	"net/http"
	"strconv"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/leveling"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"go.uber.org/zap"
)

type AdminHandler struct {
	DB       *db.DB
	Accounts *leveling.Accounts
	Log      *zap.Logger
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageQuery(r, 20)

	users, total, err := h.DB.Queries().ListUsers(r.Context(), r.URL.Query().Get("search"), limit, (page-1)*limit)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": paginate(total, page, limit),
	})
}

func (h *AdminHandler) ListLevelTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.DB.Queries().ListLevelTasks(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func pathLevel(r *http.Request) (int, error) {
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil || level < 1 {
		return 0, apperr.Validation("Invalid level")
	}
	return level, nil
}

// SaveLevelTask creates or replaces the task for the level in the path.
func (h *AdminHandler) SaveLevelTask(w http.ResponseWriter, r *http.Request) {
	level, err := pathLevel(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	var task model.LevelTask
	if err := decodeJSON(r, &task); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	task.Level = level
	if err := leveling.ValidateTask(&task); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	if err := h.DB.Queries().SaveLevelTask(r.Context(), &task); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Log.Info("level task saved", zap.Int("level", level))
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (h *AdminHandler) DeleteLevelTask(w http.ResponseWriter, r *http.Request) {
	level, err := pathLevel(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	if err := h.DB.Queries().DeleteLevelTask(r.Context(), level); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Level task deleted successfully"})
}

type ExperienceRequest struct {
	Amount int `json:"amount"`
}

// GrantExperience credits a user directly, e.g. to hand out a completed
// level task's reward.
func (h *AdminHandler) GrantExperience(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userId")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	var req ExperienceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.Amount < 0 {
		JSONError(w, "Amount must be a non-negative number", http.StatusBadRequest)
		return
	}

	user, err := h.Accounts.AddExperience(r.Context(), userID, req.Amount)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
