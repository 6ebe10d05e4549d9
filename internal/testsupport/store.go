// Package testsupport provides in-memory fakes for the storage and
// automation interfaces used by sequencer, orchestrator and handler tests.
package testsupport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/libero/internal/interfaces"
	"github.com/ternarybob/libero/internal/models"
)

// MemoryVehicleStorage is an in-memory VehicleStorage for tests
type MemoryVehicleStorage struct {
	mu       sync.Mutex
	vehicles map[string]*models.VehicleReleaseJob

	// GetErr, when set, is returned by GetVehicle for any ID
	GetErr error

	// StatusTransitions records every UpdateReleaseStatus call in order
	StatusTransitions []string
}

// NewMemoryVehicleStorage creates an empty in-memory store
func NewMemoryVehicleStorage() *MemoryVehicleStorage {
	return &MemoryVehicleStorage{
		vehicles: make(map[string]*models.VehicleReleaseJob),
	}
}

// Seed inserts vehicles without touching timestamps
func (s *MemoryVehicleStorage) Seed(vehicles ...*models.VehicleReleaseJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vehicles {
		cp := *v
		s.vehicles[v.ID] = &cp
	}
}

func (s *MemoryVehicleStorage) GetVehicle(ctx context.Context, id string) (*models.VehicleReleaseJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetErr != nil {
		return nil, s.GetErr
	}

	v, ok := s.vehicles[id]
	if !ok {
		return nil, interfaces.ErrVehicleNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *MemoryVehicleStorage) SaveVehicle(ctx context.Context, vehicle *models.VehicleReleaseJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = now
	}
	vehicle.UpdatedAt = now

	cp := *vehicle
	s.vehicles[vehicle.ID] = &cp
	return nil
}

func (s *MemoryVehicleStorage) ListVehicles(ctx context.Context, opts *interfaces.VehicleListOptions) ([]*models.VehicleReleaseJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.VehicleReleaseJob, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		if opts != nil && opts.DMVStatus != "" && string(v.DMVStatus) != opts.DMVStatus {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if opts != nil {
		if opts.Offset > 0 {
			if opts.Offset >= len(out) {
				return []*models.VehicleReleaseJob{}, nil
			}
			out = out[opts.Offset:]
		}
		if opts.Limit > 0 && opts.Limit < len(out) {
			out = out[:opts.Limit]
		}
	}

	return out, nil
}

func (s *MemoryVehicleStorage) UpdateReleaseStatus(ctx context.Context, id string, status models.ReleaseStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[id]
	if !ok {
		return interfaces.ErrVehicleNotFound
	}

	v.DMVStatus = status
	v.UpdatedAt = time.Now()
	s.StatusTransitions = append(s.StatusTransitions, id+":"+string(status))
	return nil
}

func (s *MemoryVehicleStorage) RecordSubmission(ctx context.Context, id, confirmationNumber string, submittedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[id]
	if !ok {
		return interfaces.ErrVehicleNotFound
	}

	v.DMVStatus = models.ReleaseStatusSubmitted
	v.DMVConfirmationNumber = confirmationNumber
	v.DMVSubmittedAt = &submittedAt
	v.UpdatedAt = time.Now()
	s.StatusTransitions = append(s.StatusTransitions, id+":"+string(models.ReleaseStatusSubmitted))
	return nil
}

func (s *MemoryVehicleStorage) GetStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*models.VehicleReleaseJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-olderThan)
	var out []*models.VehicleReleaseJob
	for _, v := range s.vehicles {
		if v.DMVStatus == models.ReleaseStatusProcessing && v.UpdatedAt.Before(threshold) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryVehicleStorage) CountByReleaseStatus(ctx context.Context, status models.ReleaseStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, v := range s.vehicles {
		if v.DMVStatus == status {
			count++
		}
	}
	return count, nil
}
