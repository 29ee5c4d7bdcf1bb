package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/muralkit/engine/internal/api/types"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, "ok")
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, "ready")
}

func (h *HealthHandler) writeStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.APIResponse{
		Success: true,
		Data:    map[string]string{"status": status},
	})
}
