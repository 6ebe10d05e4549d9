package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/libero/internal/models"
)

// ErrVehicleNotFound is returned when a vehicle ID has no stored record
var ErrVehicleNotFound = errors.New("vehicle not found")

// VehicleListOptions filters vehicle listing
type VehicleListOptions struct {
	DMVStatus string
	Limit     int
	Offset    int
}

// VehicleStorage persists vehicle release jobs. The automation core reads
// rows and writes only the dmv_* fields; rows are created by the inventory
// import surface, never by the sequencer or orchestrator.
type VehicleStorage interface {
	GetVehicle(ctx context.Context, id string) (*models.VehicleReleaseJob, error)
	SaveVehicle(ctx context.Context, vehicle *models.VehicleReleaseJob) error
	ListVehicles(ctx context.Context, opts *VehicleListOptions) ([]*models.VehicleReleaseJob, error)

	// UpdateReleaseStatus transitions dmv_status for one vehicle row
	UpdateReleaseStatus(ctx context.Context, id string, status models.ReleaseStatus) error

	// RecordSubmission marks a vehicle submitted with its confirmation token
	RecordSubmission(ctx context.Context, id, confirmationNumber string, submittedAt time.Time) error

	// GetStaleProcessing returns vehicles stuck in processing longer than olderThan
	GetStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*models.VehicleReleaseJob, error)

	CountByReleaseStatus(ctx context.Context, status models.ReleaseStatus) (int, error)
}

// StorageManager provides access to storage implementations
type StorageManager interface {
	VehicleStorage() VehicleStorage
	Close() error
}
