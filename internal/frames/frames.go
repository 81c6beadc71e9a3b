// Package frames decodes the visual progress of a page load out of a
// recorded browser trace.
package frames

import "context"

// Frame is one screenshot of the page. Timestamp is in trace microseconds,
// Progress is the visual completeness in percent.
type Frame struct {
	Image     []byte
	Timestamp int64
	Progress  float64
}

// Extractor turns a raw trace into frames ordered by timestamp.
type Extractor interface {
	Decode(ctx context.Context, trace []byte) ([]Frame, error)
}
