package api

import (
	"net/http"

	"github.com/theLastOfCats/manhwa-go-server/internal/category"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	Service *category.Service
	Log     *zap.Logger
}

type CategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CategoryEntryRequest struct {
	ManhwaID string `json:"manhwaId"`
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	categories, err := h.Service.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var name, desc string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		desc = *req.Description
	}

	res, err := h.Service.Create(r.Context(), userID, name, desc)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	categoryID, err := pathInt64(r, "categoryId")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	var req CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	res, err := h.Service.Update(r.Context(), userID, categoryID, req.Name, req.Description)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	categoryID, err := pathInt64(r, "categoryId")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	if err := h.Service.Delete(r.Context(), userID, categoryID); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}

func (h *CategoryHandler) AddManhwa(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	categoryID, err := pathInt64(r, "categoryId")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	var req CategoryEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	res, err := h.Service.AddManhwa(r.Context(), userID, categoryID, req.ManhwaID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CategoryHandler) RemoveManhwa(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	categoryID, err := pathInt64(r, "categoryId")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	res, err := h.Service.RemoveManhwa(r.Context(), userID, categoryID, r.PathValue("manhwaId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
