package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/muralkit/engine/internal/api/middleware"
	"github.com/muralkit/engine/internal/api/types"
	appErr "github.com/muralkit/engine/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, types.HTTPStatus(err), types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: "invalid", Message: msg}})
}

// callerID resolves the authenticated user from the request context.
func callerID(r *http.Request) (uuid.UUID, error) {
	uid, err := uuid.Parse(middleware.GetUserID(r.Context()))
	if err != nil {
		return uuid.Nil, appErr.New(appErr.CodeUnauthorized, "missing or invalid caller identity")
	}
	return uid, nil
}

// projectIDParam parses the {id} route parameter.
func projectIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, appErr.New(appErr.CodeInvalid, "invalid project id")
	}
	return id, nil
}
