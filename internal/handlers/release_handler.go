// -----------------------------------------------------------------------
// Release Handler - batch submission endpoint with SSE progress streaming
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/models"
)

// ReleaseSubmitter starts release batches. Satisfied by release.Orchestrator.
type ReleaseSubmitter interface {
	Run(ctx context.Context, vehicleIDs []string) (<-chan models.ProgressEvent, error)
	RunSync(ctx context.Context, vehicleIDs []string) (*models.ReleaseSummary, error)
}

// releaseRequest is the POST /api/dmv/release body
type releaseRequest struct {
	VehicleIDs []string `json:"vehicleIds" validate:"required,min=1,dive,required"`
	RealTime   bool     `json:"realTime"`
}

// ReleaseHandler handles HTTP requests for DMV release submission
type ReleaseHandler struct {
	submitter ReleaseSubmitter
	validate  *validator.Validate
	logger    arbor.ILogger
}

// NewReleaseHandler creates a new ReleaseHandler
func NewReleaseHandler(submitter ReleaseSubmitter, logger arbor.ILogger) *ReleaseHandler {
	return &ReleaseHandler{
		submitter: submitter,
		validate:  validator.New(),
		logger:    logger,
	}
}

// SubmitRelease handles POST /api/dmv/release. With realTime=true the
// response is an SSE stream of progress events; otherwise the request
// blocks until the batch finishes and returns the per-vehicle summary.
func (h *ReleaseHandler) SubmitRelease(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "vehicleIds must be a non-empty list of vehicle IDs")
		return
	}

	h.logger.Info().
		Int("vehicles", len(req.VehicleIDs)).
		Bool("real_time", req.RealTime).
		Msg("Release batch requested")

	// The batch runs on a background context: submissions to the DMV must
	// finish even when the requesting client goes away mid-stream,
	// otherwise vehicles would be stranded in processing.
	if !req.RealTime {
		summary, err := h.submitter.RunSync(context.Background(), req.VehicleIDs)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, summary)
		return
	}

	events, err := h.submitter.Run(context.Background(), req.VehicleIDs)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.streamEvents(w, r, events)
}

// streamEvents writes each progress event as one SSE data frame. When the
// client disconnects the remaining events are drained without writing so
// the batch goroutine never blocks on a dead connection.
func (h *ReleaseHandler) streamEvents(w http.ResponseWriter, r *http.Request, events <-chan models.ProgressEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	flusher.Flush()

	clientGone := false

	for ev := range events {
		if !clientGone {
			select {
			case <-r.Context().Done():
				clientGone = true
				h.logger.Info().Msg("SSE client disconnected, draining remaining batch events")
			default:
			}
		}
		if clientGone {
			continue
		}

		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to marshal progress event")
			continue
		}

		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}
