package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BAPONBARMON/file-server/internal/models"
	"github.com/rs/zerolog/log"
)

type StatusResponse struct {
	Status string `json:"status"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type CreateFolderResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// FileResult is the outcome of one file of an upload batch.
type FileResult struct {
	Name  string `json:"name"`
	ID    string `json:"id,omitempty"`
	Size  int64  `json:"size"`
	Error string `json:"error,omitempty"`
}

type UploadResponse struct {
	Success bool         `json:"success"`
	Files   []FileResult `json:"files"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("failed to write response body")
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, notFoundMsg, http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidKind):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
