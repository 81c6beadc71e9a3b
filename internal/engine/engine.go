package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivlev/pagerecord/internal/audit"
	"github.com/ivlev/pagerecord/internal/config"
	"github.com/ivlev/pagerecord/internal/report"
	"github.com/ivlev/pagerecord/internal/video"
)

var ErrNoInput = errors.New("No url provided")

// Measurer produces the representative audit of one URL.
type Measurer interface {
	Representative(ctx context.Context, url string, repeat int) (*audit.Measurement, error)
}

// Composer renders the traces of the representative audits into one video.
type Composer interface {
	Compose(ctx context.Context, traces [][]byte) (*video.Composition, error)
}

// Summary is the outcome of a successful run.
type Summary struct {
	Measurements []*audit.Measurement
	Composition  *video.Composition
	ReportPath   string
}

type Recorder struct {
	Config   *config.Config
	Measurer Measurer
	Composer Composer
	logger   *slog.Logger
}

func NewRecorder(cfg *config.Config, m Measurer, c Composer, logger *slog.Logger) *Recorder {
	return &Recorder{
		Config:   cfg,
		Measurer: m,
		Composer: c,
		logger:   logger.With("component", "engine"),
	}
}

// Run measures urls one at a time, then composes the representative traces
// once. Any failure aborts the whole run; there is no partial output.
func (r *Recorder) Run(ctx context.Context, urls []string) (*Summary, error) {
	if len(urls) == 0 {
		return nil, ErrNoInput
	}
	started := time.Now()

	measurements := make([]*audit.Measurement, 0, len(urls))
	for _, url := range urls {
		m, err := r.Measurer.Representative(ctx, url, r.Config.RepeatCount)
		if err != nil {
			return nil, fmt.Errorf("measure %s: %w", url, err)
		}
		measurements = append(measurements, m)
	}

	traces := make([][]byte, len(measurements))
	for i, m := range measurements {
		traces[i] = m.Median.Trace
	}

	comp, err := r.Composer.Compose(ctx, traces)
	if err != nil {
		return nil, fmt.Errorf("compose video: %w", err)
	}

	summary := &Summary{Measurements: measurements, Composition: comp}
	if r.Config.WriteReport {
		path := report.PathFor(comp.Output)
		if err := report.Write(r.buildReport(summary, started), path); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		summary.ReportPath = path
		r.logger.Info("Report has been saved", "path", path)
	}

	r.logger.Debug("run finished", "urls", len(urls), "elapsed", time.Since(started).Round(time.Millisecond))
	return summary, nil
}

func (r *Recorder) buildReport(s *Summary, started time.Time) *report.Report {
	rep := &report.Report{
		Version:   report.Version,
		CreatedAt: started.UTC(),
		Output:    s.Composition.Output,
		Repeat:    r.Config.RepeatCount,
		Pages:     make([]report.Page, len(s.Measurements)),
	}
	for i, m := range s.Measurements {
		page := report.Page{
			URL:         m.URL,
			Scores:      m.Scores,
			MedianRound: m.MedianRound,
			MedianScore: m.MedianScore,
		}
		if i < len(s.Composition.Clips) {
			page.Frames = s.Composition.Clips[i].Frames
			page.Seconds = s.Composition.Clips[i].Duration
		}
		rep.Pages[i] = page
	}
	return rep
}
