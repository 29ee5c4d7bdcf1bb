package handlers

import (
	"io"
	"net/http"

	"github.com/muralkit/engine/internal/api/types"
	"github.com/muralkit/engine/internal/services"
)

// maxUploadBytes caps a single media upload.
const maxUploadBytes = 32 << 20

type MediaHandler struct {
	svc services.MediaService
}

func NewMediaHandler(svc services.MediaService) *MediaHandler {
	return &MediaHandler{svc: svc}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "read upload body failed")
		return
	}
	if len(data) > maxUploadBytes {
		writeErrorStr(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}
	asset, err := h.svc.Upload(r.Context(), userID, data, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: asset})
}
