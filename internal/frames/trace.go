package frames

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	screenshotName     = "Screenshot"
	screenshotCategory = "disabled-by-default-devtools.screenshot"
	navigationStart    = "navigationStart"
)

var ErrNoFrames = errors.New("trace contains no screenshots")

type traceEvent struct {
	Name string  `json:"name"`
	Cat  string  `json:"cat"`
	Ts   float64 `json:"ts"`
	Args struct {
		Snapshot string `json:"snapshot"`
	} `json:"args"`
}

type traceFile struct {
	TraceEvents []traceEvent `json:"traceEvents"`
}

// TraceExtractor reads the screenshot events of a Chrome trace and measures
// visual progress by comparing colour histograms against the final frame.
type TraceExtractor struct {
	// Scaler, when set, resizes every frame after progress has been measured.
	Scaler *Scaler
}

func (e *TraceExtractor) Decode(ctx context.Context, trace []byte) ([]Frame, error) {
	events, err := parseEvents(trace)
	if err != nil {
		return nil, err
	}

	start, hasStart := navigationStartTs(events)

	var frames []Frame
	for _, ev := range events {
		if ev.Name != screenshotName || !strings.Contains(ev.Cat, screenshotCategory) {
			continue
		}
		ts := int64(ev.Ts)
		if hasStart && ts < start {
			continue
		}
		img, err := base64.StdEncoding.DecodeString(ev.Args.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("screenshot at %d: %w", ts, err)
		}
		frames = append(frames, Frame{Image: img, Timestamp: ts})
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Timestamp < frames[j].Timestamp
	})

	if err := measureProgress(ctx, frames); err != nil {
		return nil, err
	}

	if e.Scaler != nil {
		for i := range frames {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			scaled, err := e.Scaler.Scale(frames[i].Image)
			if err != nil {
				return nil, fmt.Errorf("scale frame %d: %w", i, err)
			}
			frames[i].Image = scaled
		}
	}
	return frames, nil
}

// parseEvents accepts both the object form and the bare array form of the
// trace event format.
func parseEvents(trace []byte) ([]traceEvent, error) {
	trimmed := bytes.TrimSpace(trace)
	if len(trimmed) == 0 {
		return nil, errors.New("empty trace")
	}
	if trimmed[0] == '[' {
		var events []traceEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("parse trace: %w", err)
		}
		return events, nil
	}
	var tf traceFile
	if err := json.Unmarshal(trimmed, &tf); err != nil {
		return nil, fmt.Errorf("parse trace: %w", err)
	}
	return tf.TraceEvents, nil
}

func navigationStartTs(events []traceEvent) (int64, bool) {
	var (
		start int64
		found bool
	)
	for _, ev := range events {
		if ev.Name != navigationStart {
			continue
		}
		ts := int64(ev.Ts)
		if !found || ts < start {
			start, found = ts, true
		}
	}
	return start, found
}
