package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/muralkit/engine/internal/api/types"
	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/internal/services"
)

type PresenceHandler struct {
	svc services.PresenceService
}

func NewPresenceHandler(svc services.PresenceService) *PresenceHandler {
	return &PresenceHandler{svc: svc}
}

func (h *PresenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req types.PresenceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	data := models.PresenceData{
		Tool:      req.Tool,
		Color:     req.Color,
		Selection: req.Selection,
	}
	if req.Cursor != nil {
		data.Cursor = &models.Point{X: req.Cursor.X, Y: req.Cursor.Y}
	}
	if err := h.svc.Update(r.Context(), projectID, userID, data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.svc.List(r.Context(), projectID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: entries})
}

func (h *PresenceHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	projectID, err := projectIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.Remove(r.Context(), projectID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}
