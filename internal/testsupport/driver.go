package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/libero/internal/interfaces"
)

// FakeDriver is a scriptable AutomationDriver. Zero value succeeds on
// every call; individual operations fail via the Fail* fields.
type FakeDriver struct {
	mu sync.Mutex

	// PageText is returned by ReadText
	PageText string

	// ScreenshotPNG is returned by Screenshot (defaults to a stub payload)
	ScreenshotPNG []byte

	FailNavigate    error
	FailWaitSettled error
	FailScreenshot  error
	FailReadText    error
	FailFill        map[string]error // keyed by selector
	FailSelect      map[string]error
	FailClick       map[string]error

	// Calls records every driver call in order, e.g. "fill #buyerFirstName"
	Calls []string

	// CloseCount counts Close invocations; teardown must land on exactly one
	CloseCount int
}

func (d *FakeDriver) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = append(d.Calls, call)
}

func (d *FakeDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	d.record("navigate " + url)
	return d.FailNavigate
}

func (d *FakeDriver) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	d.record("fill " + selector)
	return d.FailFill[selector]
}

func (d *FakeDriver) Select(ctx context.Context, selector, value string, timeout time.Duration) error {
	d.record("select " + selector)
	return d.FailSelect[selector]
}

func (d *FakeDriver) Click(ctx context.Context, selector string, timeout time.Duration) error {
	d.record("click " + selector)
	return d.FailClick[selector]
}

func (d *FakeDriver) ReadText(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	d.record("read " + selector)
	if d.FailReadText != nil {
		return "", d.FailReadText
	}
	return d.PageText, nil
}

func (d *FakeDriver) WaitSettled(ctx context.Context, settle, timeout time.Duration) error {
	d.record("settle " + settle.String())
	return d.FailWaitSettled
}

func (d *FakeDriver) Screenshot(ctx context.Context, timeout time.Duration) ([]byte, error) {
	d.record("screenshot")
	if d.FailScreenshot != nil {
		return nil, d.FailScreenshot
	}
	if d.ScreenshotPNG != nil {
		return d.ScreenshotPNG, nil
	}
	return []byte("png-stub"), nil
}

func (d *FakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCount++
	return nil
}

// FakeDriverFactory hands out one FakeDriver per NewDriver call
type FakeDriverFactory struct {
	mu sync.Mutex

	// Err, when set, is returned by NewDriver instead of a driver
	Err error

	// Configure, when set, customizes each new driver before use
	Configure func(*FakeDriver)

	// Drivers holds every driver created, in creation order
	Drivers []*FakeDriver
}

func (f *FakeDriverFactory) NewDriver(ctx context.Context) (interfaces.AutomationDriver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	d := &FakeDriver{}
	if f.Configure != nil {
		f.Configure(d)
	}
	f.Drivers = append(f.Drivers, d)
	return d, nil
}

// Driver returns the n-th created driver, or nil
func (f *FakeDriverFactory) Driver(n int) *FakeDriver {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 0 || n >= len(f.Drivers) {
		return nil
	}
	return f.Drivers[n]
}
