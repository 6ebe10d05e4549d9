// -----------------------------------------------------------------------
// Progress Event - ephemeral step-by-step batch progress messages
// -----------------------------------------------------------------------

package models

import (
	"encoding/base64"
	"time"
)

// ProgressEventType classifies a progress event
type ProgressEventType string

const (
	EventProgress   ProgressEventType = "progress"
	EventScreenshot ProgressEventType = "screenshot"
	EventError      ProgressEventType = "error"
	EventComplete   ProgressEventType = "complete"
)

// SystemVehicleID tags batch-level events that belong to no single vehicle
const SystemVehicleID = "system"

// ProgressEvent is one message on the batch progress stream. Events for a
// vehicle carry strictly increasing step indices up to and including the
// terminal event; no events for a vehicle follow its terminal event.
// The JSON field names are the wire contract for SSE and WebSocket clients.
type ProgressEvent struct {
	Type       ProgressEventType `json:"type"`
	VehicleID  string            `json:"vehicleId"`
	Message    string            `json:"message"`
	Step       int               `json:"step,omitempty"`
	TotalSteps int               `json:"totalSteps,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Screenshot string            `json:"screenshot,omitempty"` // data-URI-encoded PNG, kind=screenshot only

	// ConfirmationNumber carries the parsed token to the synchronous
	// aggregation path. Not part of the wire format.
	ConfirmationNumber string `json:"-"`
}

// Terminal reports whether this event ends a vehicle's stream
func (e ProgressEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// NewProgressEvent creates a step progress event
func NewProgressEvent(vehicleID, message string, step, totalSteps int) ProgressEvent {
	return ProgressEvent{
		Type:       EventProgress,
		VehicleID:  vehicleID,
		Message:    message,
		Step:       step,
		TotalSteps: totalSteps,
		Timestamp:  time.Now().UTC(),
	}
}

// NewScreenshotEvent creates a step progress event carrying a PNG screenshot
func NewScreenshotEvent(vehicleID, message string, step, totalSteps int, png []byte) ProgressEvent {
	ev := NewProgressEvent(vehicleID, message, step, totalSteps)
	ev.Type = EventScreenshot
	ev.Screenshot = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	return ev
}

// NewErrorEvent creates a terminal error event for a vehicle
func NewErrorEvent(vehicleID, message string, step, totalSteps int) ProgressEvent {
	return ProgressEvent{
		Type:       EventError,
		VehicleID:  vehicleID,
		Message:    message,
		Step:       step,
		TotalSteps: totalSteps,
		Timestamp:  time.Now().UTC(),
	}
}

// NewSystemErrorEvent creates the single batch-level error event emitted when
// no per-vehicle work can be attempted
func NewSystemErrorEvent(message string) ProgressEvent {
	return ProgressEvent{
		Type:      EventError,
		VehicleID: SystemVehicleID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompleteEvent creates the terminal success event for a vehicle
func NewCompleteEvent(vehicleID, message, confirmationNumber string) ProgressEvent {
	return ProgressEvent{
		Type:               EventComplete,
		VehicleID:          vehicleID,
		Message:            message,
		Timestamp:          time.Now().UTC(),
		ConfirmationNumber: confirmationNumber,
	}
}

// ReleaseResult is one vehicle's terminal outcome in the synchronous response
type ReleaseResult struct {
	VehicleID          string `json:"vehicleId"`
	Success            bool   `json:"success"`
	ConfirmationNumber string `json:"confirmationNumber,omitempty"`
	Error              string `json:"error,omitempty"`
}

// ReleaseSummary is the synchronous (non-streaming) response body
type ReleaseSummary struct {
	Success   bool            `json:"success"`
	Results   []ReleaseResult `json:"results"`
	Processed int             `json:"processed"`
}
