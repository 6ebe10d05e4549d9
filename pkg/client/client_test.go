package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// chunkReader yields the stream in fixed-size chunks so frames arrive
// split across reads.
type chunkReader struct {
	data []byte
	size int
	pos  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.size
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

func TestReadStreamSplitFrames(t *testing.T) {
	stream := "data: {\"type\":\"progress\",\"vehicleId\":\"veh-1\",\"message\":\"one\",\"step\":1,\"totalSteps\":12}\n\n" +
		"data: {\"type\":\"screenshot\",\"vehicleId\":\"veh-1\",\"message\":\"two\",\"step\":3,\"totalSteps\":12,\"screenshot\":\"data:image/png;base64,aaaa\"}\n\n" +
		"data: {\"type\":\"complete\",\"vehicleId\":\"veh-1\",\"message\":\"done\"}\n\n"

	// Every chunk size must decode to the same events, including sizes
	// that split a frame mid-line.
	for _, size := range []int{1, 7, 64, len(stream)} {
		t.Run(fmt.Sprintf("chunk %d", size), func(t *testing.T) {
			c := New("http://unused")
			c.total = 1

			var got []Event
			err := c.readStream(&chunkReader{data: []byte(stream), size: size}, func(ev Event) {
				got = append(got, ev)
			})
			if err != nil {
				t.Fatalf("readStream: %v", err)
			}

			if len(got) != 3 {
				t.Fatalf("decoded %d events, want 3", len(got))
			}
			if got[0].Step != 1 || got[1].Step != 3 {
				t.Errorf("steps = %d, %d, want 1, 3", got[0].Step, got[1].Step)
			}
			if got[2].Type != "complete" {
				t.Errorf("last type = %s, want complete", got[2].Type)
			}
			if got[1].Screenshot == "" {
				t.Error("screenshot payload lost in decoding")
			}
		})
	}
}

func TestSubmitStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dmv/release" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}

		var req struct {
			VehicleIDs []string `json:"vehicleIds"`
			RealTime   bool     `json:"realTime"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.RealTime {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		frames := []string{
			`{"type":"progress","vehicleId":"veh-1","message":"one","step":1,"totalSteps":12}`,
			`{"type":"complete","vehicleId":"veh-1","message":"done"}`,
			`{"type":"error","vehicleId":"veh-2","message":"navigate: timeout","step":3,"totalSteps":12}`,
		}
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	}))
	defer server.Close()

	c := New(server.URL)

	var seen []Event
	err := c.SubmitStream(context.Background(), []string{"veh-1", "veh-2"}, func(ev Event) {
		seen = append(seen, ev)
	})
	if err != nil {
		t.Fatalf("SubmitStream: %v", err)
	}

	if len(seen) != 3 {
		t.Fatalf("saw %d events, want 3", len(seen))
	}
	if got := c.Progress(); got != 1.0 {
		t.Errorf("Progress = %v, want 1.0", got)
	}
	if done := c.Completed(); len(done) != 1 || done[0] != "veh-1" {
		t.Errorf("Completed = %v, want [veh-1]", done)
	}
	if failed := c.Failed(); len(failed) != 1 || failed[0] != "veh-2" {
		t.Errorf("Failed = %v, want [veh-2]", failed)
	}
}

func TestProgressIgnoresSystemErrors(t *testing.T) {
	c := New("http://unused")
	c.total = 2

	c.record(Event{Type: "complete", VehicleID: "veh-1"})
	c.record(Event{Type: "error", VehicleID: "system", Message: "no eligible vehicles"})

	if got := c.Progress(); got != 0.5 {
		t.Errorf("Progress = %v, want 0.5", got)
	}
}

func TestSubmitSync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"results":[{"vehicleId":"veh-1","success":true,"confirmationNumber":"AB-1"}],"processed":1}`)
	}))
	defer server.Close()

	c := New(server.URL)
	summary, err := c.SubmitSync(context.Background(), []string{"veh-1"})
	if err != nil {
		t.Fatalf("SubmitSync: %v", err)
	}

	if !summary.Success || summary.Processed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Results[0].ConfirmationNumber != "AB-1" {
		t.Errorf("confirmation = %q, want AB-1", summary.Results[0].ConfirmationNumber)
	}
}

func TestRefreshVehicles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/vehicles" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("dmv_status"); got != "submitted" {
			t.Errorf("dmv_status query = %q, want submitted", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"vehicles":[{"id":"veh-1","dmv_status":"submitted","dmv_confirmation_number":"AB-1"}],"count":1}`)
	}))
	defer server.Close()

	c := New(server.URL)
	vehicles, err := c.RefreshVehicles(context.Background(), "submitted")
	if err != nil {
		t.Fatalf("RefreshVehicles: %v", err)
	}

	if len(vehicles) != 1 || vehicles[0].DMVConfirmationNumber != "AB-1" {
		t.Errorf("vehicles = %+v", vehicles)
	}
}
