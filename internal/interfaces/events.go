package interfaces

import (
	"context"

	"github.com/ternarybob/libero/internal/models"
)

// EventSink receives progress events in addition to the batch stream,
// e.g. for WebSocket fan-out to dashboards. Publish must not block the
// caller for long; slow consumers drop rather than stall the batch.
type EventSink interface {
	Publish(ctx context.Context, event models.ProgressEvent)
}
