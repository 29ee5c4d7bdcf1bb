package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/muralkit/engine/internal/api/types"
	"github.com/muralkit/engine/internal/models"
	"github.com/muralkit/engine/internal/services"
)

// CanvasHandler serves the edit path: operation submission, state reads,
// explicit snapshots, and the spatial queries.
type CanvasHandler struct {
	canvasSvc services.CanvasService
	snapSvc   services.SnapshotService
}

func NewCanvasHandler(canvasSvc services.CanvasService, snapSvc services.SnapshotService) *CanvasHandler {
	return &CanvasHandler{canvasSvc: canvasSvc, snapSvc: snapSvc}
}

func (h *CanvasHandler) SubmitOperation(w http.ResponseWriter, r *http.Request) {
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
	var payload services.OperationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	op, err := h.canvasSvc.ApplyOperation(r.Context(), projectID, userID, &payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: op})
}

func (h *CanvasHandler) GetState(w http.ResponseWriter, r *http.Request) {
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
	fromOp, _ := strconv.ParseInt(r.URL.Query().Get("fromOp"), 10, 64)
	state, err := h.canvasSvc.GetState(r.Context(), projectID, userID, fromOp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: state})
}

func (h *CanvasHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
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
	snap, err := h.snapSvc.CreateSnapshot(r.Context(), projectID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: snap})
}

func (h *CanvasHandler) GetElement(w http.ResponseWriter, r *http.Request) {
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
	elementID := chi.URLParam(r, "elementID")
	if elementID == "" {
		writeErrorStr(w, http.StatusBadRequest, "element id required")
		return
	}
	el, err := h.canvasSvc.GetElement(r.Context(), projectID, userID, elementID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: el})
}

func (h *CanvasHandler) QueryRegion(w http.ResponseWriter, r *http.Request) {
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
	q := r.URL.Query()
	rect := models.Rect{}
	rect.X, _ = strconv.ParseFloat(q.Get("x"), 64)
	rect.Y, _ = strconv.ParseFloat(q.Get("y"), 64)
	rect.W, err = strconv.ParseFloat(q.Get("w"), 64)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid region width")
		return
	}
	rect.H, err = strconv.ParseFloat(q.Get("h"), 64)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid region height")
		return
	}
	els, err := h.canvasSvc.QueryRegion(r.Context(), projectID, userID, rect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: els})
}

func (h *CanvasHandler) QueryByAnchors(w http.ResponseWriter, r *http.Request) {
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
	q := r.URL.Query()
	point := models.Point{}
	point.X, _ = strconv.ParseFloat(q.Get("x"), 64)
	point.Y, _ = strconv.ParseFloat(q.Get("y"), 64)
	tolerance, err := strconv.ParseFloat(q.Get("tolerance"), 64)
	if err != nil || tolerance < 0 {
		writeErrorStr(w, http.StatusBadRequest, "invalid tolerance")
		return
	}
	matches, err := h.canvasSvc.QueryByAnchors(r.Context(), projectID, userID, point, tolerance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: matches})
}
