package system

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// ResolveBinary returns the absolute path of name, looked up on PATH unless
// name already contains a path separator.
func ResolveBinary(name string) (string, error) {
	if name == "" {
		return "", errors.New("empty binary name")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", name, err)
	}
	return path, nil
}

// FindChrome returns configured when set, otherwise the first Chrome or
// Chromium binary found.
func FindChrome(configured string) (string, error) {
	if configured != "" {
		return ResolveBinary(configured)
	}
	for _, c := range chromeCandidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no Chrome or Chromium binary found, set chrome in the config file")
}

// webmEncoders are the ffmpeg encoders able to produce the .webm output,
// in order of preference.
var webmEncoders = []string{"libvpx-vp9", "libvpx", "libaom-av1"}

// WebMEncoder asks ffmpeg for its encoder list and reports the first WebM
// capable one.
func WebMEncoder(ctx context.Context, ffmpegPath string) (string, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg -encoders: %v, output: %s", err, string(out))
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) (string, error) {
	available := make(map[string]bool)
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			available[fields[1]] = true
		}
	}
	for _, enc := range webmEncoders {
		if available[enc] {
			return enc, nil
		}
	}
	return "", errors.New("ffmpeg has no WebM encoder (libvpx-vp9, libvpx or libaom-av1)")
}

// CPULoad samples the total host CPU utilisation over a short window.
func CPULoad(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 250*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, errors.New("no cpu samples")
	}
	return percents[0], nil
}
