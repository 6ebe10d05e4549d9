package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/interfaces"
	"github.com/ternarybob/libero/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// VehicleStorage implements the VehicleStorage interface for Badger
type VehicleStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVehicleStorage creates a new VehicleStorage instance
func NewVehicleStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VehicleStorage {
	return &VehicleStorage{
		db:     db,
		logger: logger,
	}
}

func (s *VehicleStorage) GetVehicle(ctx context.Context, id string) (*models.VehicleReleaseJob, error) {
	var vehicle models.VehicleReleaseJob
	if err := s.db.Store().Get(id, &vehicle); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrVehicleNotFound, id)
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return &vehicle, nil
}

func (s *VehicleStorage) SaveVehicle(ctx context.Context, vehicle *models.VehicleReleaseJob) error {
	if vehicle.ID == "" {
		return fmt.Errorf("vehicle ID is required")
	}

	now := time.Now()
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = now
	}
	vehicle.UpdatedAt = now

	if err := s.db.Store().Upsert(vehicle.ID, vehicle); err != nil {
		return fmt.Errorf("failed to save vehicle: %w", err)
	}
	return nil
}

func (s *VehicleStorage) ListVehicles(ctx context.Context, opts *interfaces.VehicleListOptions) ([]*models.VehicleReleaseJob, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.DMVStatus != "" {
			query = query.And("DMVStatus").Eq(models.ReleaseStatus(opts.DMVStatus))
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()

	var vehicles []models.VehicleReleaseJob
	if err := s.db.Store().Find(&vehicles, query); err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	result := make([]*models.VehicleReleaseJob, len(vehicles))
	for i := range vehicles {
		result[i] = &vehicles[i]
	}
	return result, nil
}

func (s *VehicleStorage) UpdateReleaseStatus(ctx context.Context, id string, status models.ReleaseStatus) error {
	vehicle, err := s.GetVehicle(ctx, id)
	if err != nil {
		return err
	}

	vehicle.DMVStatus = status
	return s.SaveVehicle(ctx, vehicle)
}

func (s *VehicleStorage) RecordSubmission(ctx context.Context, id, confirmationNumber string, submittedAt time.Time) error {
	vehicle, err := s.GetVehicle(ctx, id)
	if err != nil {
		return err
	}

	vehicle.DMVStatus = models.ReleaseStatusSubmitted
	vehicle.DMVConfirmationNumber = confirmationNumber
	vehicle.DMVSubmittedAt = &submittedAt
	return s.SaveVehicle(ctx, vehicle)
}

func (s *VehicleStorage) GetStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*models.VehicleReleaseJob, error) {
	threshold := time.Now().Add(-olderThan)

	var vehicles []models.VehicleReleaseJob
	err := s.db.Store().Find(&vehicles,
		badgerhold.Where("DMVStatus").Eq(models.ReleaseStatusProcessing).And("UpdatedAt").Lt(threshold))
	if err != nil {
		return nil, fmt.Errorf("failed to query stale vehicles: %w", err)
	}

	result := make([]*models.VehicleReleaseJob, len(vehicles))
	for i := range vehicles {
		result[i] = &vehicles[i]
	}
	return result, nil
}

func (s *VehicleStorage) CountByReleaseStatus(ctx context.Context, status models.ReleaseStatus) (int, error) {
	count, err := s.db.Store().Count(&models.VehicleReleaseJob{}, badgerhold.Where("DMVStatus").Eq(status))
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
