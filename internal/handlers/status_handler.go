package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/common"
	"github.com/ternarybob/libero/internal/interfaces"
	"github.com/ternarybob/libero/internal/models"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	store     interfaces.VehicleStorage
	ws        *WebSocketHandler
	startTime time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(store interfaces.VehicleStorage, ws *WebSocketHandler, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		store:     store,
		ws:        ws,
		startTime: time.Now(),
		logger:    logger,
	}
}

// GetStatus handles GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	counts := map[string]int{}
	for _, status := range []models.ReleaseStatus{
		models.ReleaseStatusPending,
		models.ReleaseStatusProcessing,
		models.ReleaseStatusSubmitted,
		models.ReleaseStatusFailed,
	} {
		count, err := h.store.CountByReleaseStatus(r.Context(), status)
		if err != nil {
			h.logger.Warn().Err(err).Str("dmv_status", string(status)).Msg("Failed to count vehicles")
			continue
		}
		counts[string(status)] = count
	}

	status := map[string]interface{}{
		"service":    "libero",
		"version":    common.GetVersion(),
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
		"vehicles":   counts,
		"ws_clients": h.ws.ClientCount(),
	}

	WriteJSON(w, http.StatusOK, status)
}
