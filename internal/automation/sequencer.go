// -----------------------------------------------------------------------
// Step Sequencer - fixed 12-step release submission for one vehicle
// -----------------------------------------------------------------------

package automation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/common"
	"github.com/ternarybob/libero/internal/interfaces"
	"github.com/ternarybob/libero/internal/models"
)

// TotalSteps is the length of the fixed release submission sequence
const TotalSteps = 12

// Step names, in sequence order
const (
	StepMarkProcessing    = "mark-processing"
	StepLaunchBrowser     = "launch-browser"
	StepNavigate          = "navigate"
	StepFillSeller        = "fill-seller"
	StepFillBuyer         = "fill-buyer"
	StepFillVehicle       = "fill-vehicle"
	StepFillSale          = "fill-sale"
	StepSubmit            = "submit"
	StepAwaitConfirmation = "await-confirmation"
	StepParseConfirmation = "parse-confirmation"
	StepPersistResult     = "persist-result"
	StepTeardown          = "teardown"
)

// EmitFunc receives each progress event as it happens. The sequencer calls
// it from a single goroutine, so per-vehicle event order is preserved.
type EmitFunc func(event models.ProgressEvent)

// SequencerConfig carries the form contract, the fixed seller identity and
// the step timing for one submission run
type SequencerConfig struct {
	Form              FormTarget
	Seller            common.SellerConfig
	StepTimeout       time.Duration
	NavigationTimeout time.Duration
	SettleTime        time.Duration
	Match             ConfirmationMatcher
	Now               func() time.Time
}

func (c *SequencerConfig) applyDefaults() {
	if c.StepTimeout <= 0 {
		c.StepTimeout = 30 * time.Second
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = c.StepTimeout
	}
	if c.SettleTime <= 0 {
		c.SettleTime = 2 * time.Second
	}
	if c.Match == nil {
		c.Match = MatchConfirmationNumber
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Sequencer drives one vehicle through the fixed release submission
// sequence. It owns a private browser session acquired at launch-browser
// and torn down exactly once, on every exit path. There is no step or
// sequence retry: a failed vehicle must be resubmitted as a new batch.
type Sequencer struct {
	job     *models.VehicleReleaseJob
	store   interfaces.VehicleStorage
	drivers interfaces.DriverFactory
	config  SequencerConfig
	emit    EmitFunc
	logger  arbor.ILogger

	driver       interfaces.AutomationDriver
	torn         bool
	confirmation string
}

// sequenceStep is one state of the sequence. run returns the progress
// message for the step's event, or the error that fails the vehicle.
type sequenceStep struct {
	name       string
	screenshot bool // checkpoint: attach a screenshot to the step's event
	run        func(ctx context.Context) (string, error)
}

// NewSequencer creates a sequencer for one eligible vehicle
func NewSequencer(job *models.VehicleReleaseJob, store interfaces.VehicleStorage, drivers interfaces.DriverFactory, config SequencerConfig, emit EmitFunc, logger arbor.ILogger) *Sequencer {
	config.applyDefaults()
	return &Sequencer{
		job:     job,
		store:   store,
		drivers: drivers,
		config:  config,
		emit:    emit,
		logger:  logger,
	}
}

// Run executes the sequence to a terminal state. Every step either advances
// or fails the whole vehicle; failures are converted to a terminal error
// event plus a best-effort failed store write, and never propagate.
func (s *Sequencer) Run(ctx context.Context) {
	defer s.teardown() // safety net for panics between steps

	for i, step := range s.steps() {
		stepIndex := i + 1

		message, err := step.run(ctx)
		if err != nil {
			s.fail(ctx, stepIndex, step.name, err)
			return
		}

		if step.screenshot {
			if png, shotErr := s.driver.Screenshot(ctx, s.config.StepTimeout); shotErr == nil {
				s.emit(models.NewScreenshotEvent(s.job.ID, message, stepIndex, TotalSteps, png))
				continue
			} else {
				s.logger.Warn().Err(shotErr).
					Str("vehicle_id", s.job.ID).
					Str("step", step.name).
					Msg("Screenshot checkpoint failed")
			}
		}

		s.emit(models.NewProgressEvent(s.job.ID, message, stepIndex, TotalSteps))
	}

	s.logger.Info().
		Str("vehicle_id", s.job.ID).
		Str("confirmation", s.confirmation).
		Msg("Release of liability submitted")

	s.emit(models.NewCompleteEvent(s.job.ID,
		fmt.Sprintf("Release of liability submitted (confirmation %s)", s.confirmation),
		s.confirmation))
}

func (s *Sequencer) steps() []sequenceStep {
	return []sequenceStep{
		{name: StepMarkProcessing, run: s.markProcessing},
		{name: StepLaunchBrowser, run: s.launchBrowser},
		{name: StepNavigate, screenshot: true, run: s.navigate},
		{name: StepFillSeller, run: s.fillSeller},
		{name: StepFillBuyer, run: s.fillBuyer},
		{name: StepFillVehicle, run: s.fillVehicle},
		{name: StepFillSale, screenshot: true, run: s.fillSale},
		{name: StepSubmit, run: s.submit},
		{name: StepAwaitConfirmation, run: s.awaitConfirmation},
		{name: StepParseConfirmation, screenshot: true, run: s.parseConfirmation},
		{name: StepPersistResult, run: s.persistResult},
		{name: StepTeardown, run: s.teardownStep},
	}
}

// fail drives the vehicle to the terminal failed state: store write first,
// then the terminal error event, then unconditional teardown. Nothing is
// emitted after the terminal event.
func (s *Sequencer) fail(ctx context.Context, stepIndex int, stepName string, err error) {
	s.logger.Warn().Err(err).
		Str("vehicle_id", s.job.ID).
		Str("step", stepName).
		Int("step_index", stepIndex).
		Msg("Release step failed")

	// Best effort: the store itself may be what failed
	if updateErr := s.store.UpdateReleaseStatus(ctx, s.job.ID, models.ReleaseStatusFailed); updateErr != nil {
		s.logger.Warn().Err(updateErr).
			Str("vehicle_id", s.job.ID).
			Msg("Failed to record failed release status")
	}

	s.emit(models.NewErrorEvent(s.job.ID, err.Error(), stepIndex, TotalSteps))
	s.teardown()
}

// teardown closes the browser session. Idempotent so the deferred safety
// net, the failure path and the teardown step never double-close.
func (s *Sequencer) teardown() {
	if s.torn {
		return
	}
	s.torn = true

	if s.driver == nil {
		return
	}
	if err := s.driver.Close(); err != nil {
		s.logger.Warn().Err(err).
			Str("vehicle_id", s.job.ID).
			Msg("Browser session close failed")
	}
}

func (s *Sequencer) markProcessing(ctx context.Context) (string, error) {
	if err := s.store.UpdateReleaseStatus(ctx, s.job.ID, models.ReleaseStatusProcessing); err != nil {
		return "", fmt.Errorf("mark processing: %w", err)
	}
	return "Marked vehicle as processing", nil
}

func (s *Sequencer) launchBrowser(ctx context.Context) (string, error) {
	driver, err := s.drivers.NewDriver(ctx)
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	s.driver = driver
	return "Browser session started", nil
}

func (s *Sequencer) navigate(ctx context.Context) (string, error) {
	if err := s.driver.Navigate(ctx, s.config.Form.URL, s.config.NavigationTimeout); err != nil {
		return "", err
	}
	return "Loaded DMV release form", nil
}

func (s *Sequencer) fillSeller(ctx context.Context) (string, error) {
	sel := s.config.Form.Selectors
	seller := s.config.Seller
	timeout := s.config.StepTimeout

	fields := []struct{ selector, value string }{
		{sel.SellerName, seller.Name},
		{sel.SellerAddress, seller.Address},
		{sel.SellerCity, seller.City},
		{sel.SellerZip, seller.Zip},
	}
	for _, f := range fields {
		if err := s.driver.Fill(ctx, f.selector, f.value, timeout); err != nil {
			return "", err
		}
	}
	if err := s.driver.Select(ctx, sel.SellerState, seller.State, timeout); err != nil {
		return "", err
	}
	if err := s.driver.Click(ctx, sel.SellerIsCompany, timeout); err != nil {
		return "", err
	}
	return "Filled seller information", nil
}

func (s *Sequencer) fillBuyer(ctx context.Context) (string, error) {
	sel := s.config.Form.Selectors
	timeout := s.config.StepTimeout

	if err := s.driver.Fill(ctx, sel.BuyerFirstName, s.job.BuyerFirstName, timeout); err != nil {
		return "", err
	}
	if err := s.driver.Fill(ctx, sel.BuyerLastName, s.job.BuyerLastName, timeout); err != nil {
		return "", err
	}
	if err := s.driver.Click(ctx, sel.BuyerIsIndividual, timeout); err != nil {
		return "", err
	}

	// Address fields are optional on the record; fill whatever is present
	optional := []struct{ selector, value string }{
		{sel.BuyerAddress, s.job.BuyerAddress},
		{sel.BuyerCity, s.job.BuyerCity},
		{sel.BuyerZip, s.job.BuyerZip},
	}
	for _, f := range optional {
		if f.value == "" {
			continue
		}
		if err := s.driver.Fill(ctx, f.selector, f.value, timeout); err != nil {
			return "", err
		}
	}
	if s.job.BuyerState != "" {
		if err := s.driver.Select(ctx, sel.BuyerState, s.job.BuyerState, timeout); err != nil {
			return "", err
		}
	}
	return "Filled buyer information", nil
}

func (s *Sequencer) fillVehicle(ctx context.Context) (string, error) {
	sel := s.config.Form.Selectors
	timeout := s.config.StepTimeout

	year := ""
	if s.job.Year > 0 {
		year = strconv.Itoa(s.job.Year)
	}

	fields := []struct{ selector, value string }{
		{sel.VehicleYear, year},
		{sel.VehicleMake, s.job.Make},
		{sel.VehicleModel, s.job.Model},
		{sel.VIN, s.job.VIN},
		{sel.LicensePlate, s.job.LicensePlate},
	}
	for _, f := range fields {
		if err := s.driver.Fill(ctx, f.selector, f.value, timeout); err != nil {
			return "", err
		}
	}
	return "Filled vehicle details", nil
}

func (s *Sequencer) fillSale(ctx context.Context) (string, error) {
	sel := s.config.Form.Selectors
	timeout := s.config.StepTimeout

	price := ""
	if s.job.SalePrice > 0 {
		price = strconv.FormatFloat(s.job.SalePrice, 'f', 2, 64)
	}

	if err := s.driver.Fill(ctx, sel.SalePrice, price, timeout); err != nil {
		return "", err
	}
	if err := s.driver.Fill(ctx, sel.SaleDate, s.job.SaleDate, timeout); err != nil {
		return "", err
	}
	return "Filled sale details", nil
}

func (s *Sequencer) submit(ctx context.Context) (string, error) {
	if err := s.driver.Click(ctx, s.config.Form.Selectors.Submit, s.config.StepTimeout); err != nil {
		return "", err
	}
	return "Submitted release form", nil
}

func (s *Sequencer) awaitConfirmation(ctx context.Context) (string, error) {
	if err := s.driver.WaitSettled(ctx, s.config.SettleTime, s.config.StepTimeout); err != nil {
		return "", err
	}
	return "Confirmation page loaded", nil
}

// parseConfirmation never fails the vehicle: a page we cannot parse still
// represents a submission the DMV accepted. An unreadable or unrecognized
// result page yields a placeholder token for later manual reconciliation.
func (s *Sequencer) parseConfirmation(ctx context.Context) (string, error) {
	text, err := s.driver.ReadText(ctx, s.config.Form.Selectors.ConfirmationBody, s.config.StepTimeout)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("vehicle_id", s.job.ID).
			Msg("Could not read confirmation page, recording placeholder")
		text = ""
	}

	if token, ok := s.config.Match(text); ok {
		s.confirmation = token
		return fmt.Sprintf("Confirmation number %s", token), nil
	}

	s.confirmation = PlaceholderConfirmation(s.config.Now())
	return "Confirmation number not found, recorded placeholder", nil
}

func (s *Sequencer) persistResult(ctx context.Context) (string, error) {
	if err := s.store.RecordSubmission(ctx, s.job.ID, s.confirmation, s.config.Now()); err != nil {
		return "", fmt.Errorf("persist result: %w", err)
	}
	return "Saved submission result", nil
}

func (s *Sequencer) teardownStep(ctx context.Context) (string, error) {
	s.teardown()
	return "Browser session closed", nil
}
