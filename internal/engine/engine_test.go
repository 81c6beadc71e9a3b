package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/pagerecord/internal/audit"
	"github.com/ivlev/pagerecord/internal/config"
	"github.com/ivlev/pagerecord/internal/report"
	"github.com/ivlev/pagerecord/internal/video"
)

type fakeMeasurer struct {
	urls    []string
	repeats []int
	failOn  string
}

func (f *fakeMeasurer) Representative(_ context.Context, url string, repeat int) (*audit.Measurement, error) {
	f.urls = append(f.urls, url)
	f.repeats = append(f.repeats, repeat)
	if url == f.failOn {
		return nil, &audit.RoundError{URL: url, Round: 1, Err: errors.New("chrome crashed")}
	}
	score := 0.5
	return &audit.Measurement{
		URL:         url,
		Scores:      []int{50},
		Median:      &audit.Result{URL: url, Round: 1, Score: &score, Trace: []byte("trace:" + url)},
		MedianRound: 1,
		MedianScore: 50,
	}, nil
}

type fakeComposer struct {
	calls  int
	traces [][]byte
	output string
	err    error
}

func (f *fakeComposer) Compose(_ context.Context, traces [][]byte) (*video.Composition, error) {
	f.calls++
	f.traces = traces
	if f.err != nil {
		return nil, f.err
	}
	clips := make([]video.Clip, len(traces))
	for i := range clips {
		clips[i] = video.Clip{Frames: 3, Duration: 1.5}
	}
	return &video.Composition{Output: f.output, Clips: clips}, nil
}

func newTestRecorder(cfg *config.Config, m Measurer, c Composer) *Recorder {
	return NewRecorder(cfg, m, c, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunProcessesURLsInOrder(t *testing.T) {
	cfg := config.Default()
	cfg.RepeatCount = 5
	m := &fakeMeasurer{}
	c := &fakeComposer{output: "/tmp/record-1.webm"}

	summary, err := newTestRecorder(cfg, m, c).Run(context.Background(), []string{"https://a", "https://b", "https://c"})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a", "https://b", "https://c"}, m.urls)
	assert.Equal(t, []int{5, 5, 5}, m.repeats)
	assert.Equal(t, 1, c.calls, "composer runs exactly once per run")
	assert.Equal(t, [][]byte{[]byte("trace:https://a"), []byte("trace:https://b"), []byte("trace:https://c")}, c.traces)
	assert.Len(t, summary.Measurements, 3)
	assert.Empty(t, summary.ReportPath)
}

func TestRunNoInput(t *testing.T) {
	m := &fakeMeasurer{}
	c := &fakeComposer{}

	_, err := newTestRecorder(config.Default(), m, c).Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoInput)
	assert.Equal(t, "No url provided", err.Error())
	assert.Empty(t, m.urls)
	assert.Zero(t, c.calls)
}

func TestRunAbortsOnMeasurementFailure(t *testing.T) {
	m := &fakeMeasurer{failOn: "https://b"}
	c := &fakeComposer{}

	_, err := newTestRecorder(config.Default(), m, c).Run(context.Background(), []string{"https://a", "https://b", "https://c"})
	require.ErrorIs(t, err, audit.ErrAuditRound)
	assert.Equal(t, []string{"https://a", "https://b"}, m.urls, "no URL after the failing one is measured")
	assert.Zero(t, c.calls)
}

func TestRunPropagatesEncodingFailure(t *testing.T) {
	c := &fakeComposer{err: video.ErrEncoding}
	_, err := newTestRecorder(config.Default(), &fakeMeasurer{}, c).Run(context.Background(), []string{"https://a"})
	assert.ErrorIs(t, err, video.ErrEncoding)
}

func TestRunWritesReport(t *testing.T) {
	cfg := config.Default()
	cfg.WriteReport = true
	out := filepath.Join(t.TempDir(), "record-42.webm")
	c := &fakeComposer{output: out}

	summary, err := newTestRecorder(cfg, &fakeMeasurer{}, c).Run(context.Background(), []string{"https://a", "https://b"})
	require.NoError(t, err)
	require.Equal(t, report.PathFor(out), summary.ReportPath)

	rep, err := report.Read(summary.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, out, rep.Output)
	assert.Equal(t, 3, rep.Repeat)
	require.Len(t, rep.Pages, 2)
	assert.Equal(t, "https://b", rep.Pages[1].URL)
	assert.Equal(t, 50, rep.Pages[1].MedianScore)
	assert.Equal(t, 3, rep.Pages[1].Frames)
}
