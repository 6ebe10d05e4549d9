package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/models"
)

// mockSubmitter implements ReleaseSubmitter for testing
type mockSubmitter struct {
	runFunc     func(ctx context.Context, vehicleIDs []string) (<-chan models.ProgressEvent, error)
	runSyncFunc func(ctx context.Context, vehicleIDs []string) (*models.ReleaseSummary, error)
}

func (m *mockSubmitter) Run(ctx context.Context, vehicleIDs []string) (<-chan models.ProgressEvent, error) {
	return m.runFunc(ctx, vehicleIDs)
}

func (m *mockSubmitter) RunSync(ctx context.Context, vehicleIDs []string) (*models.ReleaseSummary, error) {
	return m.runSyncFunc(ctx, vehicleIDs)
}

func postRelease(handler *ReleaseHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/dmv/release", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.SubmitRelease(rec, req)
	return rec
}

func TestSubmitReleaseValidation(t *testing.T) {
	handler := NewReleaseHandler(&mockSubmitter{}, arbor.NewLogger())

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"empty vehicle list", `{"vehicleIds": []}`},
		{"blank vehicle id", `{"vehicleIds": [""]}`},
		{"malformed json", `{"vehicleIds": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRelease(handler, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmitReleaseMethodNotAllowed(t *testing.T) {
	handler := NewReleaseHandler(&mockSubmitter{}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/dmv/release", nil)
	rec := httptest.NewRecorder()
	handler.SubmitRelease(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSubmitReleaseSync(t *testing.T) {
	submitter := &mockSubmitter{
		runSyncFunc: func(ctx context.Context, vehicleIDs []string) (*models.ReleaseSummary, error) {
			require.Equal(t, []string{"veh-1", "veh-2"}, vehicleIDs)
			return &models.ReleaseSummary{
				Success: true,
				Results: []models.ReleaseResult{
					{VehicleID: "veh-1", Success: true, ConfirmationNumber: "AB-1"},
					{VehicleID: "veh-2", Success: false, Error: "navigate: timeout"},
				},
				Processed: 2,
			}, nil
		},
	}
	handler := NewReleaseHandler(submitter, arbor.NewLogger())

	rec := postRelease(handler, `{"vehicleIds": ["veh-1", "veh-2"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var summary models.ReleaseSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, "AB-1", summary.Results[0].ConfirmationNumber)
}

func TestSubmitReleaseStream(t *testing.T) {
	events := make(chan models.ProgressEvent, 4)
	events <- models.NewProgressEvent("veh-1", "Marked vehicle as processing", 1, 12)
	events <- models.NewProgressEvent("veh-1", "Browser session started", 2, 12)
	events <- models.NewCompleteEvent("veh-1", "Release of liability submitted", "AB-1")
	close(events)

	submitter := &mockSubmitter{
		runFunc: func(ctx context.Context, vehicleIDs []string) (<-chan models.ProgressEvent, error) {
			return events, nil
		},
	}
	handler := NewReleaseHandler(submitter, arbor.NewLogger())

	rec := postRelease(handler, `{"vehicleIds": ["veh-1"], "realTime": true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	// Every frame is "data: <json>" terminated by a blank line
	var decoded []models.ProgressEvent
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		decoded = append(decoded, ev)
	}

	require.Len(t, decoded, 3)
	assert.Equal(t, 1, decoded[0].Step)
	assert.Equal(t, 2, decoded[1].Step)
	assert.Equal(t, models.EventComplete, decoded[2].Type)
	// The confirmation travels via the store, not the wire
	assert.Empty(t, decoded[2].ConfirmationNumber)
}

func TestSubmitReleaseStreamClientDisconnect(t *testing.T) {
	// A client that goes away mid-stream must not stall the batch: the
	// handler keeps draining until the orchestrator closes the channel.
	events := make(chan models.ProgressEvent)
	drained := make(chan struct{})

	submitter := &mockSubmitter{
		runFunc: func(ctx context.Context, vehicleIDs []string) (<-chan models.ProgressEvent, error) {
			return events, nil
		},
	}
	handler := NewReleaseHandler(submitter, arbor.NewLogger())

	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/dmv/release",
		strings.NewReader(`{"vehicleIds": ["veh-1"], "realTime": true}`)).WithContext(reqCtx)
	rec := httptest.NewRecorder()

	go func() {
		handler.SubmitRelease(rec, req)
		close(drained)
	}()

	events <- models.NewProgressEvent("veh-1", "step one", 1, 12)
	events <- models.NewProgressEvent("veh-1", "step two", 2, 12)

	// Client disconnects; the batch keeps emitting
	cancel()
	events <- models.NewProgressEvent("veh-1", "step three", 3, 12)
	events <- models.NewCompleteEvent("veh-1", "done", "AB-1")
	close(events)

	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not drain events after client disconnect")
	}
}

func TestSubmitReleaseRunError(t *testing.T) {
	submitter := &mockSubmitter{
		runFunc: func(ctx context.Context, vehicleIDs []string) (<-chan models.ProgressEvent, error) {
			return nil, context.DeadlineExceeded
		},
	}
	handler := NewReleaseHandler(submitter, arbor.NewLogger())

	rec := postRelease(handler, `{"vehicleIds": ["veh-1"], "realTime": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
