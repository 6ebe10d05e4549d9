// -----------------------------------------------------------------------
// Release Orchestrator - batch submission over the step sequencer
// -----------------------------------------------------------------------

package release

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/automation"
	"github.com/ternarybob/libero/internal/common"
	"github.com/ternarybob/libero/internal/interfaces"
	"github.com/ternarybob/libero/internal/models"
	"golang.org/x/time/rate"
)

// Orchestrator accepts a batch of vehicle IDs and runs one step sequencer
// per eligible vehicle, forwarding every progress event onto a per-batch
// channel. Failures are isolated per vehicle; partial-batch success is the
// normal case. The orchestrator itself never writes the store - all writes
// happen inside the sequencer at mark-processing and persist-result.
type Orchestrator struct {
	store   interfaces.VehicleStorage
	drivers interfaces.DriverFactory
	config  *common.Config
	sink    interfaces.EventSink // optional fan-out, may be nil
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewOrchestrator creates a batch orchestrator
func NewOrchestrator(store interfaces.VehicleStorage, drivers interfaces.DriverFactory, config *common.Config, sink interfaces.EventSink, logger arbor.ILogger) *Orchestrator {
	limit := rate.Inf
	if config.Automation.SubmitInterval > 0 {
		limit = rate.Every(config.Automation.SubmitInterval.Std())
	}

	return &Orchestrator{
		store:   store,
		drivers: drivers,
		config:  config,
		sink:    sink,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Run starts a batch and returns its progress event channel. The channel
// closes when every eligible vehicle has reached a terminal state. Missing
// and ineligible IDs are silently excluded; if nothing remains eligible a
// single system error event is emitted and the channel closes with no
// per-vehicle work attempted.
//
// The context should outlive the caller's connection: a client that stops
// reading must not cancel in-flight submissions, otherwise a vehicle could
// be left in processing forever.
func (o *Orchestrator) Run(ctx context.Context, vehicleIDs []string) (<-chan models.ProgressEvent, error) {
	if len(vehicleIDs) == 0 {
		return nil, fmt.Errorf("vehicle id list is empty")
	}

	batchID := uuid.New().String()
	events := make(chan models.ProgressEvent, 64)

	jobs, loadErr := o.loadEligible(ctx, vehicleIDs)

	o.logger.Info().
		Str("batch_id", batchID).
		Int("requested", len(vehicleIDs)).
		Int("eligible", len(jobs)).
		Msg("Release batch starting")

	common.SafeGo(o.logger, "release-batch-"+batchID, func() {
		defer close(events)

		emit := func(ev models.ProgressEvent) {
			events <- ev
			if o.sink != nil {
				o.sink.Publish(ctx, ev)
			}
		}

		if loadErr != nil {
			emit(models.NewSystemErrorEvent(fmt.Sprintf("failed to load vehicles: %v", loadErr)))
			return
		}
		if len(jobs) == 0 {
			emit(models.NewSystemErrorEvent("no eligible vehicles in batch"))
			return
		}

		o.processBatch(ctx, batchID, jobs, emit)
	})

	return events, nil
}

// RunSync runs a batch to completion, discarding intermediate progress
// events, and returns the per-vehicle terminal outcomes. Streaming and
// synchronous mode share the whole pipeline; only the consumption differs.
func (o *Orchestrator) RunSync(ctx context.Context, vehicleIDs []string) (*models.ReleaseSummary, error) {
	events, err := o.Run(ctx, vehicleIDs)
	if err != nil {
		return nil, err
	}

	summary := &models.ReleaseSummary{
		Success: true,
		Results: []models.ReleaseResult{},
	}

	for ev := range events {
		switch {
		case ev.Type == models.EventComplete:
			summary.Results = append(summary.Results, models.ReleaseResult{
				VehicleID:          ev.VehicleID,
				Success:            true,
				ConfirmationNumber: ev.ConfirmationNumber,
			})
		case ev.Type == models.EventError && ev.VehicleID == models.SystemVehicleID:
			summary.Success = false
		case ev.Type == models.EventError:
			summary.Results = append(summary.Results, models.ReleaseResult{
				VehicleID: ev.VehicleID,
				Success:   false,
				Error:     ev.Message,
			})
		}
	}

	summary.Processed = len(summary.Results)
	return summary, nil
}

// loadEligible loads the batch and re-checks eligibility per vehicle.
// Missing IDs are skipped; any other storage error aborts the batch as a
// system-level failure.
func (o *Orchestrator) loadEligible(ctx context.Context, vehicleIDs []string) ([]*models.VehicleReleaseJob, error) {
	jobs := make([]*models.VehicleReleaseJob, 0, len(vehicleIDs))

	for _, id := range vehicleIDs {
		vehicle, err := o.store.GetVehicle(ctx, id)
		if err != nil {
			if errors.Is(err, interfaces.ErrVehicleNotFound) {
				o.logger.Debug().Str("vehicle_id", id).Msg("Vehicle not found, skipping")
				continue
			}
			return nil, err
		}
		if !vehicle.EligibleForRelease() {
			o.logger.Debug().
				Str("vehicle_id", id).
				Str("dmv_status", string(vehicle.DMVStatus)).
				Msg("Vehicle not eligible for release, skipping")
			continue
		}
		jobs = append(jobs, vehicle)
	}

	return jobs, nil
}

// processBatch runs sequencers with bounded concurrency, preserving batch
// order as submission order. Each sequencer emits from its own goroutine,
// so events for one vehicle never interleave out of order; no cross-vehicle
// ordering is guaranteed.
func (o *Orchestrator) processBatch(ctx context.Context, batchID string, jobs []*models.VehicleReleaseJob, emit automation.EmitFunc) {
	concurrency := o.config.Automation.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, job := range jobs {
		// Space out government-facing submissions
		if err := o.limiter.Wait(ctx); err != nil {
			o.logger.Warn().Err(err).Str("batch_id", batchID).Msg("Submission rate limiter interrupted")
		}

		sem <- struct{}{}
		wg.Add(1)

		job := job
		common.SafeGo(o.logger, "release-vehicle-"+job.ID, func() {
			defer func() {
				<-sem
				wg.Done()
			}()

			seq := automation.NewSequencer(job, o.store, o.drivers, o.sequencerConfig(), emit, o.logger)
			seq.Run(ctx)
		})
	}

	wg.Wait()

	o.logger.Info().
		Str("batch_id", batchID).
		Int("vehicles", len(jobs)).
		Msg("Release batch finished")
}

func (o *Orchestrator) sequencerConfig() automation.SequencerConfig {
	cfg := automation.SequencerConfig{
		Form:              automation.DefaultFormTarget(o.config.DMV.FormURL),
		Seller:            o.config.DMV.Seller,
		StepTimeout:       o.config.DMV.StepTimeout.Std(),
		NavigationTimeout: o.config.DMV.NavigationTimeout.Std(),
		SettleTime:        o.config.DMV.SettleTime.Std(),
	}

	if pattern := o.config.DMV.ConfirmationPattern; pattern != "" {
		if matcher, err := automation.PatternMatcher(pattern); err == nil {
			cfg.Match = matcher
		} else {
			o.logger.Warn().Err(err).Msg("Invalid confirmation pattern override, using default matcher")
		}
	}

	return cfg
}
