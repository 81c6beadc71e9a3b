package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// ChromeLauncher starts a dedicated Chrome process per round with a fresh
// profile and a free remote debugging port.
type ChromeLauncher struct {
	Path    string
	Timeout time.Duration
	logger  *slog.Logger
}

func NewChromeLauncher(path string, timeout time.Duration, logger *slog.Logger) *ChromeLauncher {
	return &ChromeLauncher{Path: path, Timeout: timeout, logger: logger.With("component", "chrome")}
}

type chromeProcess struct {
	cmd     *exec.Cmd
	port    int
	profile string
}

func (p *chromeProcess) Port() int { return p.port }

func (p *chromeProcess) Kill() error {
	defer os.RemoveAll(p.profile)
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	// Killed processes exit non-zero; only the reap matters here.
	_ = p.cmd.Wait()
	return nil
}

func (l *ChromeLauncher) Launch(ctx context.Context, headless bool) (Browser, error) {
	if l.Path == "" {
		return nil, errors.New("chrome binary not configured")
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("reserve debugging port: %w", err)
	}
	profile, err := os.MkdirTemp("", "pagerecord_chrome_")
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(l.Path, chromeArgs(port, profile, headless)...)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(profile)
		return nil, fmt.Errorf("chrome start error: %w", err)
	}
	proc := &chromeProcess{cmd: cmd, port: port, profile: profile}

	if err := waitForDebugger(ctx, port, l.Timeout); err != nil {
		proc.Kill()
		return nil, err
	}
	l.logger.Debug("chrome ready", "port", port, "headless", headless)
	return proc, nil
}

func chromeArgs(port int, profile string, headless bool) []string {
	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(port),
		"--user-data-dir=" + profile,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-extensions",
	}
	if headless {
		args = append(args, "--headless")
	}
	return append(args, "about:blank")
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// waitForDebugger polls the DevTools version endpoint until it answers.
func waitForDebugger(ctx context.Context, port int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := fmt.Sprintf("http://127.0.0.1:%d/json/version", port)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("chrome debugger on port %d not ready: %w", port, ctx.Err())
		case <-ticker.C:
		}
	}
}
