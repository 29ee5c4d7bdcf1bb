package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/muralkit/engine/internal/api/types"
	"github.com/muralkit/engine/internal/api/validators"
	"github.com/muralkit/engine/internal/queue/tasks"
	"github.com/muralkit/engine/internal/services"
	"github.com/muralkit/engine/pkg/logger"
	"go.uber.org/zap"
)

// WorkersHandler exposes the maintenance triggers. With an asynq client
// wired, triggers enqueue background tasks; without one they run inline
// and return the result directly.
type WorkersHandler struct {
	asynqClient   *asynq.Client
	snapSvc       services.SnapshotService
	gcSvc         services.MediaGCService
	defaultPolicy services.TriggerPolicy
	defaultTTL    int
}

func NewWorkersHandler(client *asynq.Client, snapSvc services.SnapshotService, gcSvc services.MediaGCService, defaultPolicy services.TriggerPolicy, defaultTTLDays int) *WorkersHandler {
	return &WorkersHandler{
		asynqClient:   client,
		snapSvc:       snapSvc,
		gcSvc:         gcSvc,
		defaultPolicy: defaultPolicy,
		defaultTTL:    defaultTTLDays,
	}
}

func (h *WorkersHandler) TriggerSnapshot(w http.ResponseWriter, r *http.Request) {
	var req types.SnapshotWorkerRequest
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeErrorStr(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if req.ProjectID == "" {
		req.ProjectID = r.URL.Query().Get("projectId")
	}
	if req.ProjectID != "" {
		if _, err := uuid.Parse(req.ProjectID); err != nil {
			writeErrorStr(w, http.StatusBadRequest, "invalid project id")
			return
		}
	}
	if req.MaxAge != "" {
		if _, err := time.ParseDuration(req.MaxAge); err != nil {
			writeErrorStr(w, http.StatusBadRequest, "invalid max_age")
			return
		}
	}

	payload := tasks.SnapshotPayload{
		ProjectID: req.ProjectID,
		Force:     req.Force,
		MaxOps:    req.MaxOps,
		MaxAge:    req.MaxAge,
	}
	pb, _ := json.Marshal(payload)

	if h.asynqClient == nil {
		logger.L().Warn("asynq client not configured, running snapshot trigger inline")
		handler := tasks.NewSnapshotTaskHandler(h.snapSvc, nil, h.defaultPolicy)
		if req.ProjectID == "" {
			writeErrorStr(w, http.StatusBadRequest, "project id required when running inline")
			return
		}
		if err := handler.HandleSnapshot(r.Context(), asynq.NewTask(tasks.TypeSnapshot, pb)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "done"}})
		return
	}

	info, err := h.asynqClient.EnqueueContext(r.Context(), asynq.NewTask(tasks.TypeSnapshot, pb))
	if err != nil {
		logger.L().Error("enqueue snapshot task failed", zap.Error(err))
		writeErrorStr(w, http.StatusServiceUnavailable, "enqueue failed")
		return
	}
	writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: map[string]string{"task_id": info.ID}})
}

func (h *WorkersHandler) TriggerMediaGC(w http.ResponseWriter, r *http.Request) {
	var req types.MediaGCWorkerRequest
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeErrorStr(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if req.MediaID == "" {
		req.MediaID = r.URL.Query().Get("mediaId")
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := services.GCConfig{TTLDays: req.TTLDays, DryRun: req.DryRun}
	if cfg.TTLDays <= 0 {
		cfg.TTLDays = h.defaultTTL
	}
	if req.MediaID != "" {
		id, err := uuid.Parse(req.MediaID)
		if err != nil {
			writeErrorStr(w, http.StatusBadRequest, "invalid media id")
			return
		}
		cfg.MediaID = &id
	}

	// Dry runs answer inline so the caller gets the candidate report back;
	// destructive runs go through the queue.
	if h.asynqClient == nil || cfg.Effective() {
		report, err := h.gcSvc.Run(r.Context(), cfg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: report})
		return
	}

	pb, _ := json.Marshal(cfg)
	info, err := h.asynqClient.EnqueueContext(r.Context(), asynq.NewTask(tasks.TypeMediaGC, pb))
	if err != nil {
		logger.L().Error("enqueue media gc task failed", zap.Error(err))
		writeErrorStr(w, http.StatusServiceUnavailable, "enqueue failed")
		return
	}
	writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: map[string]string{"task_id": info.ID}})
}
