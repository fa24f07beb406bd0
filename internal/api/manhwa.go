package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"github.com/theLastOfCats/manhwa-go-server/internal/catalog"
	"github.com/theLastOfCats/manhwa-go-server/internal/db"
	"github.com/theLastOfCats/manhwa-go-server/internal/model"
	"github.com/theLastOfCats/manhwa-go-server/internal/progress"
	"go.uber.org/zap"
)

// MangaDex caps page sizes at 100.
const maxCatalogLimit = 100

type ManhwaHandler struct {
	DB         *db.DB
	Catalog    catalog.Client
	Reconciler *progress.Reconciler
	Log        *zap.Logger
}

func catalogLimit(r *http.Request, def int) int {
	return min(max(queryInt(r, "limit", def), 1), maxCatalogLimit)
}

func (h *ManhwaHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		JSONError(w, "Search query is required", http.StatusBadRequest)
		return
	}

	page, err := h.Catalog.Search(r.Context(), model.SearchQuery{
		Title:  query,
		Limit:  catalogLimit(r, 20),
		Offset: queryInt(r, "offset", 0),
		Order:  model.OrderRelevance,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ManhwaHandler) Popular(w http.ResponseWriter, r *http.Request) {
	page, err := h.Catalog.Search(r.Context(), model.SearchQuery{
		Limit:  catalogLimit(r, 20),
		Offset: queryInt(r, "offset", 0),
		Order:  model.OrderFollowed,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type DetailsResponse struct {
	Manga        *model.Manga    `json:"manga"`
	UserProgress *model.Progress `json:"userProgress"`
}

// GetDetails includes the caller's progress when the request is
// authenticated.
func (h *ManhwaHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	manhwaID := r.PathValue("manhwaId")

	manga, err := h.Catalog.GetManga(r.Context(), manhwaID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	resp := DetailsResponse{Manga: manga}
	if userID, ok := GetUserID(r); ok {
		p, err := h.DB.Queries().GetProgress(r.Context(), userID, manhwaID)
		switch {
		case err == nil:
			resp.UserProgress = p
		case !errors.Is(err, apperr.ErrNotFound):
			writeError(w, r, h.Log, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ManhwaHandler) GetChapters(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = "en"
	}

	chapters, err := h.Catalog.Chapters(r.Context(), r.PathValue("manhwaId"), lang,
		catalogLimit(r, 100), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

func (h *ManhwaHandler) GetChapterPages(w http.ResponseWriter, r *http.Request) {
	images, err := h.Catalog.ChapterImages(r.Context(), r.PathValue("chapterId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (h *ManhwaHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var patch progress.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	res, err := h.Reconciler.UpdateProgress(r.Context(), userID, r.PathValue("manhwaId"), patch)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
