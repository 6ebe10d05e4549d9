package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - DMV release submission
	mux.HandleFunc("/api/dmv/release", s.app.ReleaseHandler.SubmitRelease) // POST - submit batch (SSE or sync)

	// API routes - Vehicles (inventory bridge)
	mux.HandleFunc("/api/vehicles", s.app.VehicleHandler.ListVehicles)          // GET - list with filters
	mux.HandleFunc("/api/vehicles/import", s.app.VehicleHandler.ImportVehicles) // POST - upsert from inventory
	mux.HandleFunc("/api/vehicles/", s.handleVehicleRoutes)                     // GET /{id}

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatus) // GET - application status

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.notFoundHandler)

	return mux
}

// handleVehicleRoutes routes /api/vehicles/{id} requests
func (s *Server) handleVehicleRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// /api/vehicles/import is matched by the exact route above; anything
	// else under the prefix is a vehicle ID lookup.
	if path == "/api/vehicles/" || strings.HasSuffix(path, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	s.app.VehicleHandler.GetVehicle(w, r)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not found", http.StatusNotFound)
}
