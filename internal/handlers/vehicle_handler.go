// -----------------------------------------------------------------------
// Vehicle Handler - inventory bridge for vehicle release jobs
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/interfaces"
	"github.com/ternarybob/libero/internal/models"
)

// VehicleHandler handles HTTP requests for vehicle records
type VehicleHandler struct {
	store  interfaces.VehicleStorage
	logger arbor.ILogger
}

// NewVehicleHandler creates a new VehicleHandler
func NewVehicleHandler(store interfaces.VehicleStorage, logger arbor.ILogger) *VehicleHandler {
	return &VehicleHandler{
		store:  store,
		logger: logger,
	}
}

// ListVehicles handles GET /api/vehicles
// Query parameters:
//   - dmv_status: filter by release status (pending, processing, submitted, failed)
//   - limit: maximum rows returned (default 100)
//   - offset: rows to skip
func (h *VehicleHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	opts := &interfaces.VehicleListOptions{
		DMVStatus: r.URL.Query().Get("dmv_status"),
		Limit:     QueryInt(r, "limit", 100),
		Offset:    QueryInt(r, "offset", 0),
	}

	vehicles, err := h.store.ListVehicles(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list vehicles")
		WriteError(w, http.StatusInternalServerError, "failed to list vehicles")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"count":    len(vehicles),
	})
}

// GetVehicle handles GET /api/vehicles/{id}
func (h *VehicleHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/vehicles/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "vehicle id is required")
		return
	}

	vehicle, err := h.store.GetVehicle(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrVehicleNotFound) {
			WriteError(w, http.StatusNotFound, "vehicle not found")
			return
		}
		h.logger.Error().Err(err).Str("vehicle_id", id).Msg("Failed to get vehicle")
		WriteError(w, http.StatusInternalServerError, "failed to get vehicle")
		return
	}

	WriteJSON(w, http.StatusOK, vehicle)
}

// ImportVehicles handles POST /api/vehicles/import - upserts vehicle rows
// pushed from the inventory system. New rows default to dmv_status=pending;
// rows already past pending keep their release state.
func (h *VehicleHandler) ImportVehicles(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var vehicles []*models.VehicleReleaseJob
	if err := json.NewDecoder(r.Body).Decode(&vehicles); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(vehicles) == 0 {
		WriteError(w, http.StatusBadRequest, "no vehicles in request")
		return
	}

	imported := 0
	for _, vehicle := range vehicles {
		if vehicle.ID == "" {
			WriteError(w, http.StatusBadRequest, "every vehicle requires an id")
			return
		}

		if existing, err := h.store.GetVehicle(r.Context(), vehicle.ID); err == nil {
			// Release state belongs to this service, not the inventory feed
			vehicle.DMVStatus = existing.DMVStatus
			vehicle.DMVConfirmationNumber = existing.DMVConfirmationNumber
			vehicle.DMVSubmittedAt = existing.DMVSubmittedAt
			vehicle.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, interfaces.ErrVehicleNotFound) {
			h.logger.Error().Err(err).Str("vehicle_id", vehicle.ID).Msg("Failed to check existing vehicle")
			WriteError(w, http.StatusInternalServerError, "failed to import vehicles")
			return
		}

		if vehicle.DMVStatus == "" {
			vehicle.DMVStatus = models.ReleaseStatusPending
		}

		if err := h.store.SaveVehicle(r.Context(), vehicle); err != nil {
			h.logger.Error().Err(err).Str("vehicle_id", vehicle.ID).Msg("Failed to save vehicle")
			WriteError(w, http.StatusInternalServerError, "failed to import vehicles")
			return
		}
		imported++
	}

	h.logger.Info().Int("count", imported).Msg("Vehicles imported")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"imported": imported,
	})
}
