package api

import (
	"net/http"

	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/experience"
	"github.com/theLastOfCats/manhwa-go-server/internal/leveling"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"go.uber.org/zap"
)

type UserHandler struct {
	DB      *db.DB
	Tracker *leveling.Tracker
	Log     *zap.Logger
}

type ProfileUser struct {
	*model.User
	NextLevelExp int `json:"nextLevelExp"`
	Progress     int `json:"progress"`
}

type ProfileTask struct {
	Description  string                                                 `json:"description"`
	Requirements []model.Requirement                                    `json:"requirements"`
	Reward       int                                                    `json:"reward"`
	Progress     map[model.RequirementType]leveling.RequirementProgress `json:"progress"`
	Complete     bool                                                   `json:"complete"`
}

type ProfileResponse struct {
	User      ProfileUser     `json:"user"`
	Stats     db.ReadingStats `json:"stats"`
	LevelTask *ProfileTask    `json:"levelTask"`
}

// GetProfile serves the caller's profile, or another user's when the path
// carries a userId.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if r.PathValue("userId") != "" {
		id, err := pathInt64(r, "userId")
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		userID = id
	}

	tp, err := h.Tracker.GetTaskProgress(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	stats, err := h.DB.Queries().ReadingStats(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	user := tp.User
	resp := ProfileResponse{
		User: ProfileUser{
			User:         user,
			NextLevelExp: experience.ExperienceForNextLevel(user.Level),
			Progress:     experience.LevelProgress(user.Experience, user.Level),
		},
		Stats: stats,
	}
	if tp.Task != nil {
		resp.LevelTask = &ProfileTask{
			Description:  tp.Task.LocalizedDescription(user.Language),
			Requirements: tp.Task.Requirements,
			Reward:       tp.Task.Reward,
			Progress:     tp.Progress,
			Complete:     tp.Complete,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) GetReadingHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page, limit := pageQuery(r, 10)
	status := model.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		JSONError(w, "Invalid status", http.StatusBadRequest)
		return
	}

	list, total, err := h.DB.Queries().ListProgress(r.Context(), userID, status, limit, (page-1)*limit)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"manhwas":    list,
		"pagination": paginate(total, page, limit),
	})
}

type RoleRequest struct {
	UserID int64      `json:"userId"`
	Role   model.Role `json:"role"`
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if !req.Role.Valid() {
		JSONError(w, "Invalid role", http.StatusBadRequest)
		return
	}

	user, err := h.DB.Queries().UpdateRole(r.Context(), req.UserID, req.Role)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Log.Info("role updated", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
