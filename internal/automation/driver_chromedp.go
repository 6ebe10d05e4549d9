// -----------------------------------------------------------------------
// ChromeDP Automation Driver - one headless Chrome session per vehicle job
// -----------------------------------------------------------------------

package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/common"
	"github.com/ternarybob/libero/internal/interfaces"
)

// ChromeDriverFactory creates chromedp-backed drivers. Every NewDriver call
// launches a fresh allocator and browser context; sessions are never pooled
// or reused across vehicle jobs, so no cookies or form state can leak
// between unrelated submissions.
type ChromeDriverFactory struct {
	config *common.AutomationConfig
	logger arbor.ILogger
}

// NewChromeDriverFactory creates a driver factory from automation config
func NewChromeDriverFactory(config *common.AutomationConfig, logger arbor.ILogger) *ChromeDriverFactory {
	return &ChromeDriverFactory{
		config: config,
		logger: logger,
	}
}

// NewDriver launches a fresh browser session and verifies it is responsive
func (f *ChromeDriverFactory) NewDriver(ctx context.Context) (interfaces.AutomationDriver, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.config.Headless),
		chromedp.Flag("disable-gpu", f.config.DisableGPU),
		chromedp.Flag("no-sandbox", f.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(f.config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	driver := &chromeDriver{
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
		logger:          f.logger,
	}

	// Startup probe: a session that cannot reach about:blank is unusable
	startTime := time.Now()
	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		driver.Close()
		return nil, fmt.Errorf("browser session failed startup test: %w", err)
	}

	f.logger.Debug().
		Dur("startup_time", time.Since(startTime)).
		Bool("headless", f.config.Headless).
		Msg("Browser session created")

	return driver, nil
}

// chromeDriver implements interfaces.AutomationDriver over one browser context
type chromeDriver struct {
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	logger          arbor.ILogger
	closeOnce       sync.Once
}

// run executes chromedp actions under the step timeout
func (d *chromeDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(d.browserCtx, timeout)
	defer cancel()

	// Honor caller cancellation without tying the browser to the request
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(stepCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		return <-done
	}
}

func (d *chromeDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := d.run(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (d *chromeDriver) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	if err := d.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (d *chromeDriver) Select(ctx context.Context, selector, value string, timeout time.Duration) error {
	if err := d.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	return nil
}

func (d *chromeDriver) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := d.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.NodeVisible, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (d *chromeDriver) ReadText(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	var html string
	if err := d.run(ctx, timeout,
		chromedp.OuterHTML(selector, &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("read %s: %w", selector, err)
	}
	return ExtractText(html), nil
}

func (d *chromeDriver) WaitSettled(ctx context.Context, settle, timeout time.Duration) error {
	// chromedp has no first-class network-idle wait; ready body plus a
	// quiet period covers the post-submit page transition.
	if err := d.run(ctx, timeout,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settle),
	); err != nil {
		return fmt.Errorf("wait for page settle: %w", err)
	}
	return nil
}

func (d *chromeDriver) Screenshot(ctx context.Context, timeout time.Duration) ([]byte, error) {
	var buf []byte
	err := d.run(ctx, timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// Close cancels the browser and allocator contexts. Idempotent.
func (d *chromeDriver) Close() error {
	d.closeOnce.Do(func() {
		if d.browserCancel != nil {
			d.browserCancel()
		}
		if d.allocatorCancel != nil {
			d.allocatorCancel()
		}
		d.logger.Debug().Msg("Browser session closed")
	})
	return nil
}
