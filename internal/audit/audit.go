// Package audit runs the external performance auditor against a URL,
// repeatedly and strictly one round at a time, and extracts scores from
// the results.
package audit

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMalformedResult means an auditor returned a result without a
	// performance score. It is a contract violation and never retried.
	ErrMalformedResult = errors.New("malformed audit result")

	// ErrAuditRound matches any *RoundError.
	ErrAuditRound = errors.New("audit round failed")
)

const CategoryPerformance = "performance"

// Result is one audit round. Score is the performance category score as a
// fraction in [0,1]; nil when the auditor did not report one.
type Result struct {
	URL   string
	Round int
	Score *float64
	Trace []byte
}

// Options are passed through to the auditor for a single round.
type Options struct {
	Headless          bool
	OnlyCategories    []string
	Port              int
	DisableThrottling bool
}

// Auditor audits one URL against a browser listening on opts.Port.
type Auditor interface {
	Audit(ctx context.Context, url string, opts Options) (*Result, error)
}

// Browser is a running browser instance reachable over its debugging port.
type Browser interface {
	Port() int
	Kill() error
}

// BrowserLauncher starts a fresh browser instance for a single round.
type BrowserLauncher interface {
	Launch(ctx context.Context, headless bool) (Browser, error)
}

// RoundError reports the round that aborted a repeated measurement.
// Completed counts the rounds that finished before it.
type RoundError struct {
	URL       string
	Round     int
	Completed int
	Err       error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("%s: round %d failed after %d completed: %v", e.URL, e.Round, e.Completed, e.Err)
}

func (e *RoundError) Unwrap() error { return e.Err }

func (e *RoundError) Is(target error) bool { return target == ErrAuditRound }
