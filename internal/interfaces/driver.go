package interfaces

import (
	"context"
	"time"
)

// AutomationDriver abstracts one headless-browser session. Each method is a
// single step primitive bounded by its timeout; exceeding the timeout is a
// step failure. The step sequencer depends only on this interface so any
// browser backend can satisfy it.
type AutomationDriver interface {
	// Navigate loads a URL and waits for the document to be interactively ready
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Fill clears a field and types the value into it
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error

	// Select chooses an option value on a select control
	Select(ctx context.Context, selector, value string, timeout time.Duration) error

	// Click clicks a visible element
	Click(ctx context.Context, selector string, timeout time.Duration) error

	// ReadText returns the visible text content of an element
	ReadText(ctx context.Context, selector string, timeout time.Duration) (string, error)

	// WaitSettled waits for the page to stop loading: ready document plus a
	// quiet period of settle, all bounded by timeout
	WaitSettled(ctx context.Context, settle, timeout time.Duration) error

	// Screenshot captures the current viewport as PNG
	Screenshot(ctx context.Context, timeout time.Duration) ([]byte, error)

	// Close tears the session down. Safe to call more than once; the
	// session is never reused after Close.
	Close() error
}

// DriverFactory creates automation drivers. One driver per vehicle job,
// never shared and never pooled - reuse would leak cookies and form state
// between unrelated jobs.
type DriverFactory interface {
	NewDriver(ctx context.Context) (AutomationDriver, error)
}
