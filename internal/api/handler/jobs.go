package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tanglekit/artmarket/internal/api/response"
	"github.com/tanglekit/artmarket/internal/commission"
	"github.com/tanglekit/artmarket/internal/store"
	"github.com/tanglekit/artmarket/internal/tangle"
	"github.com/tanglekit/artmarket/pkg/models"
)

// Commissioner defines the commission operations the job handlers depend on.
type Commissioner interface {
	RequestArt(ctx context.Context, artistID uuid.UUID) (*commission.ArtRequest, error)
	JobStatus(ctx context.Context, jobID uuid.UUID, rawKey string) (string, error)
	RetrieveArt(ctx context.Context, jobID uuid.UUID, rawKey string) (string, error)
}

// NewRequestArtHandler returns the handler for GET|POST /{artistID}/request-art.
// It answers 202 as soon as the job and its payment watcher exist; payment and
// generation continue in the background.
func NewRequestArtHandler(svc Commissioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artistID, err := uuid.Parse(chi.URLParam(r, "artistID"))
		if err != nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Artist not found", nil)
			return
		}

		req, err := svc.RequestArt(r.Context(), artistID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Artist not found", nil)
			case errors.Is(err, tangle.ErrLedgerUnavailable):
				response.Error(w, http.StatusBadGateway, "LEDGER_UNAVAILABLE",
					"Could not reach the tangle node", nil)
			default:
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "Failed to create commission", nil)
			}
			return
		}

		response.Plain(w, http.StatusAccepted, req)
	}
}

type keyRequest struct {
	Key string `json:"key"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// NewJobStatusHandler returns the handler for POST /{jobID}/status.
// 409 with status "in_progress" is the normal still-pending signal.
func NewJobStatusHandler(svc Commissioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, key, ok := jobParams(w, r)
		if !ok {
			return
		}

		status, err := svc.JobStatus(r.Context(), jobID, key)
		if err != nil {
			writeJobError(w, err)
			return
		}

		if status != models.JobStatusCompleted {
			response.Plain(w, http.StatusConflict, statusResponse{Status: models.JobStatusInProgress})
			return
		}
		response.Plain(w, http.StatusOK, statusResponse{Status: models.JobStatusCompleted})
	}
}

// NewRetrieveArtHandler returns the handler for POST /{jobID}/retrieve-art.
// On success the raw artwork bytes are served.
func NewRetrieveArtHandler(svc Commissioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, key, ok := jobParams(w, r)
		if !ok {
			return
		}

		path, err := svc.RetrieveArt(r.Context(), jobID, key)
		if err != nil {
			writeJobError(w, err)
			return
		}

		http.ServeFile(w, r, path)
	}
}

func jobParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
		return uuid.Nil, "", false
	}

	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "key is required", nil)
		return uuid.Nil, "", false
	}
	return jobID, req.Key, true
}

func writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
	case errors.Is(err, commission.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Invalid access key", nil)
	case errors.Is(err, commission.ErrJobPending):
		response.Plain(w, http.StatusConflict, statusResponse{Status: models.JobStatusInProgress})
	default:
		response.Error(w, http.StatusInternalServerError,
			"INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
