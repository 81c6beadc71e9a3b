package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ivlev/pagerecord/internal/config"
	"github.com/ivlev/pagerecord/internal/median"
)

// ScoredSet holds the results of all rounds for one URL in round order.
type ScoredSet []*Result

// LoadProbe reports the current host CPU load in percent.
type LoadProbe func(ctx context.Context) (float64, error)

// Measurement is the outcome of the repeated audit of one URL.
type Measurement struct {
	URL         string
	Scores      []int
	Median      *Result
	MedianRound int
	MedianScore int
}

// Runner performs repeated audits. Rounds never overlap: concurrent browser
// instances would compete for CPU and network and skew the scores.
type Runner struct {
	Auditor  Auditor
	Launcher BrowserLauncher
	Probe    LoadProbe

	port              int
	headless          bool
	disableThrottling bool
	maxCPULoad        float64
	logger            *slog.Logger
}

func NewRunner(cfg *config.Config, auditor Auditor, launcher BrowserLauncher, probe LoadProbe, logger *slog.Logger) *Runner {
	return &Runner{
		Auditor:           auditor,
		Launcher:          launcher,
		Probe:             probe,
		port:              cfg.Port,
		headless:          cfg.Headless,
		disableThrottling: cfg.DisableThrottling,
		maxCPULoad:        cfg.MaxCPULoad,
		logger:            logger.With("component", "audit"),
	}
}

// MeasureRepeated runs repeat audit rounds of url one after another. The
// first failing round aborts the whole measurement; the rounds completed so
// far are returned alongside a *RoundError.
func (r *Runner) MeasureRepeated(ctx context.Context, url string, repeat int) (ScoredSet, error) {
	if repeat < 1 {
		return nil, fmt.Errorf("repeat count must be at least 1, got %d", repeat)
	}

	r.logger.Info("Url", "url", url, "rounds", repeat)

	set := make(ScoredSet, 0, repeat)
	for round := 1; round <= repeat; round++ {
		r.checkLoad(ctx)

		result, err := r.runRound(ctx, url)
		if err != nil {
			return set, &RoundError{URL: url, Round: round, Completed: len(set), Err: err}
		}
		result.URL = url
		result.Round = round

		score, err := Score(result)
		if err != nil {
			return set, fmt.Errorf("round %d: %w", round, err)
		}
		set = append(set, result)
		r.logger.Info(fmt.Sprintf("Round #%d", round), "score", score)
	}
	return set, nil
}

// Representative measures url repeat times and selects the median round.
func (r *Runner) Representative(ctx context.Context, url string, repeat int) (*Measurement, error) {
	set, err := r.MeasureRepeated(ctx, url, repeat)
	if err != nil {
		return nil, err
	}

	picked, idx, err := median.Select(set, Score)
	if err != nil {
		return nil, err
	}

	m := &Measurement{
		URL:         url,
		Scores:      make([]int, len(set)),
		Median:      picked,
		MedianRound: set[idx].Round,
	}
	for i, res := range set {
		// Already validated in MeasureRepeated.
		m.Scores[i], _ = Score(res)
	}
	m.MedianScore = m.Scores[idx]

	r.logger.Info("Median", "url", url, "score", m.MedianScore, "round", m.MedianRound)
	return m, nil
}

// runRound audits url once. A browser launched for the round is always
// killed afterwards; a pinned port is left alone.
func (r *Runner) runRound(ctx context.Context, url string) (*Result, error) {
	opts := Options{
		Headless:          r.headless,
		OnlyCategories:    []string{CategoryPerformance},
		Port:              r.port,
		DisableThrottling: r.disableThrottling,
	}

	if opts.Port == 0 {
		if r.Launcher == nil {
			return nil, fmt.Errorf("no port configured and no browser launcher available")
		}
		browser, err := r.Launcher.Launch(ctx, r.headless)
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		defer func() {
			if kerr := browser.Kill(); kerr != nil {
				r.logger.Warn("failed to kill browser", "port", browser.Port(), "err", kerr)
			}
		}()
		opts.Port = browser.Port()
		r.logger.Debug("browser launched", "port", opts.Port)
	}

	result, err := r.Auditor.Audit(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: auditor returned no result", ErrMalformedResult)
	}
	return result, nil
}

func (r *Runner) checkLoad(ctx context.Context) {
	if r.Probe == nil || r.maxCPULoad <= 0 {
		return
	}
	load, err := r.Probe(ctx)
	if err != nil {
		r.logger.Debug("cpu load probe failed", "err", err)
		return
	}
	if load > r.maxCPULoad {
		r.logger.Warn("host is busy, scores may be skewed", "cpu_percent", fmt.Sprintf("%.0f", load), "threshold", r.maxCPULoad)
	}
}
