// -----------------------------------------------------------------------
// Stale Job Monitor - sweeps vehicles stuck in processing
// -----------------------------------------------------------------------

package release

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/common"
	"github.com/ternarybob/libero/internal/interfaces"
	"github.com/ternarybob/libero/internal/models"
)

// Monitor periodically marks vehicles stuck in processing as failed.
// A vehicle only stays in processing past the stale threshold if the
// service died mid-sequence; sweeping it to failed keeps the terminal-state
// guarantee and lets the operator resubmit.
type Monitor struct {
	store  interfaces.VehicleStorage
	config *common.MonitorConfig
	cron   *cron.Cron
	logger arbor.ILogger
}

// NewMonitor creates a stale-processing monitor
func NewMonitor(store interfaces.VehicleStorage, config *common.MonitorConfig, logger arbor.ILogger) *Monitor {
	return &Monitor{
		store:  store,
		config: config,
		logger: logger,
	}
}

// Start schedules the sweep. No-op when the monitor is disabled.
func (m *Monitor) Start() error {
	if !m.config.Enabled {
		m.logger.Debug().Msg("Stale job monitor disabled")
		return nil
	}

	m.cron = cron.New()
	if _, err := m.cron.AddFunc(m.config.Schedule, func() {
		m.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", m.config.Schedule, err)
	}
	m.cron.Start()

	m.logger.Info().
		Str("schedule", m.config.Schedule).
		Dur("stale_after", m.config.StaleAfter.Std()).
		Msg("Stale job monitor started")

	return nil
}

// Stop halts the scheduled sweep
func (m *Monitor) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

// Sweep marks every stale processing vehicle as failed
func (m *Monitor) Sweep(ctx context.Context) {
	stale, err := m.store.GetStaleProcessing(ctx, m.config.StaleAfter.Std())
	if err != nil {
		m.logger.Warn().Err(err).Msg("Stale job sweep query failed")
		return
	}

	for _, vehicle := range stale {
		if err := m.store.UpdateReleaseStatus(ctx, vehicle.ID, models.ReleaseStatusFailed); err != nil {
			m.logger.Warn().Err(err).
				Str("vehicle_id", vehicle.ID).
				Msg("Failed to mark stale vehicle as failed")
			continue
		}
		m.logger.Warn().
			Str("vehicle_id", vehicle.ID).
			Str("updated_at", vehicle.UpdatedAt.Format(time.RFC3339)).
			Msg("Marked stale processing vehicle as failed")
	}

	if len(stale) > 0 {
		m.logger.Info().Int("count", len(stale)).Msg("Stale job sweep completed")
	}
}
