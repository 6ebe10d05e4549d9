// -----------------------------------------------------------------------
// Release Client - Go consumer for the DMV release progress stream
// -----------------------------------------------------------------------

// Package client consumes the libero release API from other Go services.
// It carries its own wire types so importers do not depend on the server's
// internal packages.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Event mirrors one frame of the progress stream
type Event struct {
	Type       string    `json:"type"`
	VehicleID  string    `json:"vehicleId"`
	Message    string    `json:"message"`
	Step       int       `json:"step,omitempty"`
	TotalSteps int       `json:"totalSteps,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Screenshot string    `json:"screenshot,omitempty"`
}

// Terminal reports whether this event ends a vehicle's stream
func (e Event) Terminal() bool {
	return e.Type == "complete" || e.Type == "error"
}

// Result is one vehicle's terminal outcome in the synchronous response
type Result struct {
	VehicleID          string `json:"vehicleId"`
	Success            bool   `json:"success"`
	ConfirmationNumber string `json:"confirmationNumber,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Summary is the synchronous submission response
type Summary struct {
	Success   bool     `json:"success"`
	Results   []Result `json:"results"`
	Processed int      `json:"processed"`
}

// Vehicle mirrors the server's vehicle record as returned by /api/vehicles
type Vehicle struct {
	ID                    string     `json:"id"`
	Year                  int        `json:"year"`
	Make                  string     `json:"make"`
	Model                 string     `json:"model"`
	VIN                   string     `json:"vehicle_id"`
	Status                string     `json:"status"`
	DMVStatus             string     `json:"dmv_status"`
	DMVConfirmationNumber string     `json:"dmv_confirmation_number,omitempty"`
	DMVSubmittedAt        *time.Time `json:"dmv_submitted_at,omitempty"`
}

// Client talks to a libero server
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu       sync.Mutex
	events   []Event
	complete map[string]bool
	errored  map[string]bool
	total    int
}

// New creates a client for the given server base URL, e.g.
// "http://localhost:8085". The HTTP client has no overall timeout because
// a streamed batch runs for as long as the slowest vehicle.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		complete:   make(map[string]bool),
		errored:    make(map[string]bool),
	}
}

type submitRequest struct {
	VehicleIDs []string `json:"vehicleIds"`
	RealTime   bool     `json:"realTime"`
}

// SubmitSync submits a batch and blocks until the server returns the
// per-vehicle summary.
func (c *Client) SubmitSync(ctx context.Context, vehicleIDs []string) (*Summary, error) {
	body, err := json.Marshal(submitRequest{VehicleIDs: vehicleIDs})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/dmv/release", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("submit batch: unexpected status %d", resp.StatusCode)
	}

	var summary Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &summary, nil
}

// SubmitStream submits a batch in real-time mode and consumes the SSE
// stream until the server closes it or ctx is cancelled. Each decoded
// event is recorded for Progress/Events and passed to onEvent if non-nil.
//
// Cancelling ctx stops reading only; the server finishes the batch
// regardless, so the caller should refresh vehicle state afterwards.
func (c *Client) SubmitStream(ctx context.Context, vehicleIDs []string, onEvent func(Event)) error {
	c.mu.Lock()
	c.events = nil
	c.complete = make(map[string]bool)
	c.errored = make(map[string]bool)
	c.total = len(vehicleIDs)
	c.mu.Unlock()

	body, err := json.Marshal(submitRequest{VehicleIDs: vehicleIDs, RealTime: true})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/dmv/release", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}

	if err := c.readStream(resp.Body, onEvent); err != nil {
		return err
	}
	return nil
}

// readStream decodes SSE frames incrementally. A frame may arrive split
// across reads; lines are buffered until the blank-line terminator.
func (c *Client) readStream(body io.Reader, onEvent func(Event)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024) // screenshot frames are large

	var data strings.Builder

	flush := func() {
		if data.Len() == 0 {
			return
		}
		var ev Event
		if err := json.Unmarshal([]byte(data.String()), &ev); err == nil {
			c.record(ev)
			if onEvent != nil {
				onEvent(ev)
			}
		}
		data.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			flush()
			continue
		}
		if payload, ok := strings.CutPrefix(line, "data: "); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(payload)
		}
		// Other SSE fields (event:, id:, comments) are ignored
	}
	flush()

	return scanner.Err()
}

func (c *Client) record(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, ev)
	switch ev.Type {
	case "complete":
		c.complete[ev.VehicleID] = true
	case "error":
		if ev.VehicleID != "system" {
			c.errored[ev.VehicleID] = true
		}
	}
}

// Events returns a copy of all events received so far, in arrival order
func (c *Client) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Progress returns the fraction of the batch that has reached a terminal
// state, in [0, 1].
func (c *Client) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total == 0 {
		return 0
	}
	done := len(c.complete) + len(c.errored)
	return float64(done) / float64(c.total)
}

// Completed returns the vehicle IDs that finished successfully
func (c *Client) Completed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return keys(c.complete)
}

// Failed returns the vehicle IDs that ended in error
func (c *Client) Failed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return keys(c.errored)
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// RefreshVehicles fetches the authoritative vehicle records after a
// stream ends. The stream is ephemeral; the store is the source of truth
// for confirmation numbers and release status.
func (c *Client) RefreshVehicles(ctx context.Context, dmvStatus string) ([]Vehicle, error) {
	url := c.baseURL + "/api/vehicles"
	if dmvStatus != "" {
		url += "?dmv_status=" + dmvStatus
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list vehicles: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Vehicles []Vehicle `json:"vehicles"`
		Count    int       `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode vehicles: %w", err)
	}
	return payload.Vehicles, nil
}
