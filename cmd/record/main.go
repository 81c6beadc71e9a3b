package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/ivlev/pagerecord/internal/audit"
	"github.com/ivlev/pagerecord/internal/config"
	"github.com/ivlev/pagerecord/internal/engine"
	"github.com/ivlev/pagerecord/internal/frames"
	"github.com/ivlev/pagerecord/internal/system"
	"github.com/ivlev/pagerecord/internal/video"
)

// pipeline is what a command invocation drives once the configuration is final.
type pipeline interface {
	Run(ctx context.Context, urls []string) (*engine.Summary, error)
}

type pipelineFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(buildPipeline)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

type flags struct {
	configPath        string
	repeat            int
	port              int
	visible           bool
	headless          bool
	disableThrottling bool
	report            bool
	keepScratch       bool
	debug             bool
}

func newRootCommand(build pipelineFactory) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "record [urls...]",
		Short: "Record the loading of web pages as a side-by-side video",
		Long: `Audits every URL several times with Lighthouse, keeps the median run
and renders its loading filmstrip into a clip. Clips of several URLs are
stacked side by side into one record-<timestamp>.webm.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), engine.ErrNoInput.Error())
				return nil
			}

			cfg, err := resolveConfig(cmd, &f)
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)
			p, err := build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			summary, err := p.Run(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.Composition.Output)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fl.IntVarP(&f.repeat, "repeat", "r", 3, "Audit rounds per URL")
	fl.IntVar(&f.port, "port", 0, "Remote debugging port of an already running Chrome")
	fl.BoolVar(&f.visible, "visible", false, "Show the browser window")
	fl.BoolVar(&f.headless, "headless", true, "Run Chrome headless")
	fl.BoolVar(&f.disableThrottling, "disable-throttling", false, "Disable Lighthouse network and CPU throttling")
	fl.BoolVar(&f.report, "report", false, "Write a YAML report next to the video")
	fl.BoolVar(&f.keepScratch, "keep-scratch", false, "Keep per-clip working directories")
	fl.BoolVar(&f.debug, "debug", false, "Verbose logging")

	return cmd
}

// resolveConfig layers explicitly set flags over the config file over the
// defaults.
func resolveConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("repeat") {
		cfg.RepeatCount = f.repeat
	}
	if changed("port") {
		cfg.Port = f.port
	}
	if changed("headless") {
		cfg.Headless = f.headless
	}
	if f.visible {
		cfg.Headless = false
	}
	if changed("disable-throttling") {
		cfg.DisableThrottling = f.disableThrottling
	}
	if changed("report") {
		cfg.WriteReport = f.report
	}
	if changed("keep-scratch") {
		cfg.KeepScratch = f.keepScratch
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

// buildPipeline resolves the external tools and wires the production
// components together.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline, error) {
	if n, err := system.RaiseFileLimit(); err != nil {
		logger.Debug("open file limit unchanged", "error", err)
	} else {
		logger.Debug("open file limit", "limit", n)
	}

	var err error
	if cfg.FFmpegPath, err = system.ResolveBinary(cfg.FFmpegPath); err != nil {
		return nil, err
	}
	if cfg.LighthousePath, err = system.ResolveBinary(cfg.LighthousePath); err != nil {
		return nil, err
	}
	if cfg.Port == 0 {
		if cfg.ChromePath, err = system.FindChrome(cfg.ChromePath); err != nil {
			return nil, err
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if enc, err := system.WebMEncoder(probeCtx, cfg.FFmpegPath); err != nil {
		logger.Warn("ffmpeg may not be able to write webm", "error", err)
	} else {
		logger.Debug("ffmpeg webm encoder", "encoder", enc)
	}

	var probe audit.LoadProbe
	if cfg.MaxCPULoad > 0 {
		probe = system.CPULoad
	}
	runner := audit.NewRunner(cfg,
		audit.NewLighthouseAuditor(cfg.LighthousePath, logger),
		audit.NewChromeLauncher(cfg.ChromePath, cfg.LaunchTimeout, logger),
		probe,
		logger,
	)

	extractor := &frames.TraceExtractor{}
	if cfg.FrameHeight > 0 {
		extractor.Scaler = &frames.Scaler{Height: cfg.FrameHeight, Quality: cfg.JPEGQuality}
	}
	composer := video.NewComposer(cfg, extractor, &video.FFmpegEncoder{Path: cfg.FFmpegPath}, logger)

	return engine.NewRecorder(cfg, runner, composer, logger), nil
}
