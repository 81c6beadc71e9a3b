package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const reportName = "report.json"

// LighthouseAuditor runs the lighthouse CLI against an already running
// browser and reads back the JSON report and the saved trace.
type LighthouseAuditor struct {
	Path   string
	logger *slog.Logger
}

func NewLighthouseAuditor(path string, logger *slog.Logger) *LighthouseAuditor {
	return &LighthouseAuditor{Path: path, logger: logger.With("component", "lighthouse")}
}

func (a *LighthouseAuditor) Audit(ctx context.Context, url string, opts Options) (*Result, error) {
	dir, err := os.MkdirTemp("", "pagerecord_lh_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	args := buildLighthouseArgs(url, filepath.Join(dir, reportName), opts)
	a.logger.Debug("running lighthouse", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, a.Path, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("lighthouse error: %v, output: %s", err, string(out))
	}

	data, err := os.ReadFile(filepath.Join(dir, reportName))
	if err != nil {
		return nil, fmt.Errorf("read lighthouse report: %w", err)
	}
	score, err := parseReportScore(data)
	if err != nil {
		return nil, err
	}

	trace, err := readTrace(dir)
	if err != nil {
		return nil, err
	}

	return &Result{URL: url, Score: score, Trace: trace}, nil
}

func buildLighthouseArgs(url, outputPath string, opts Options) []string {
	args := []string{
		url,
		"--output=json",
		"--output-path=" + outputPath,
		"--save-assets",
		"--quiet",
	}
	if len(opts.OnlyCategories) > 0 {
		args = append(args, "--only-categories="+strings.Join(opts.OnlyCategories, ","))
	}
	if opts.Port != 0 {
		args = append(args, "--port="+strconv.Itoa(opts.Port))
	}
	if opts.Headless {
		args = append(args, "--chrome-flags=--headless")
	}
	if opts.DisableThrottling {
		args = append(args,
			"--screenEmulation.disabled",
			"--throttling-method=provided",
			"--throttling.cpuSlowdownMultiplier=1",
			"--throttling.requestLatencyMs=0",
			"--throttling.downloadThroughputKbps=0",
			"--throttling.uploadThroughputKbps=0",
		)
	}
	return args
}

type lighthouseReport struct {
	Categories map[string]struct {
		Score *float64 `json:"score"`
	} `json:"categories"`
}

// parseReportScore returns the performance score of a lighthouse JSON report,
// or nil when the report carries none.
func parseReportScore(data []byte) (*float64, error) {
	var report lighthouseReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	category, ok := report.Categories[CategoryPerformance]
	if !ok {
		return nil, nil
	}
	return category.Score, nil
}

// readTrace loads the first trace written by --save-assets next to the report.
func readTrace(dir string) ([]byte, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.trace.json"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("lighthouse saved no trace in %s", dir)
	}
	sort.Strings(matches)
	return os.ReadFile(matches[0])
}
