package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/pagerecord/internal/config"
	"github.com/ivlev/pagerecord/internal/frames"
)

type State int

const (
	StateIdle State = iota
	StateExtracting
	StateEncoding
	StateCopying
	StateStacking
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateEncoding:
		return "encoding"
	case StateCopying:
		return "copying"
	case StateStacking:
		return "stacking"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Clip is the rendered video of one trace.
type Clip struct {
	Dir      string
	Path     string
	Frames   int
	Duration float64
}

// Composition is the result of one Compose call. Clips follow input order.
type Composition struct {
	Output string
	Clips  []Clip
}

// Composer renders one clip per trace and merges the clips into a single
// output file. Clip rendering runs concurrently across traces; every trace
// gets its own scratch directory.
type Composer struct {
	Extractor   frames.Extractor
	Encoder     Encoder
	OutputDir   string
	Workers     int
	KeepScratch bool
	Now         func() time.Time

	logger *slog.Logger
}

func NewComposer(cfg *config.Config, ext frames.Extractor, enc Encoder, logger *slog.Logger) *Composer {
	return &Composer{
		Extractor:   ext,
		Encoder:     enc,
		OutputDir:   cfg.OutputDir,
		Workers:     cfg.EncodeWorkers,
		KeepScratch: cfg.KeepScratch,
		Now:         time.Now,
		logger:      logger.With("component", "composer"),
	}
}

// OutputName is the file name of the merged video created at t.
func OutputName(t time.Time) string {
	return fmt.Sprintf("record-%d.webm", t.UnixMilli())
}

// Compose turns traces into one video. Nothing is left at the output path
// when any step fails.
func (c *Composer) Compose(ctx context.Context, traces [][]byte) (*Composition, error) {
	if len(traces) == 0 {
		return nil, errors.New("no traces to compose")
	}
	c.transition(StateIdle, -1)
	c.logger.Info("Generating video...", "clips", len(traces))

	outDir, err := c.outputDir()
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(traces))
	defer func() {
		if c.KeepScratch {
			for _, d := range dirs {
				c.logger.Info("scratch kept", "dir", d)
			}
			return
		}
		for _, d := range dirs {
			os.RemoveAll(d)
		}
	}()
	for range traces {
		d, err := os.MkdirTemp("", "pagerecord_")
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, d)
	}

	clips := make([]Clip, len(traces))
	g, gctx := errgroup.WithContext(ctx)
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i := range traces {
		i := i
		g.Go(func() error {
			clip, err := c.renderClip(gctx, i, traces[i], dirs[i])
			if err != nil {
				return fmt.Errorf("clip %d: %w", i, err)
			}
			clips[i] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	output := filepath.Join(outDir, OutputName(c.now()))
	if err := c.merge(ctx, clips, output); err != nil {
		if rmErr := os.Remove(output); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.logger.Warn("failed to remove partial output", "path", output, "err", rmErr)
		}
		return nil, err
	}

	c.transition(StateDone, -1)
	c.logger.Info("Video has been saved to " + tildify(output))
	return &Composition{Output: output, Clips: clips}, nil
}

func (c *Composer) renderClip(ctx context.Context, index int, trace []byte, dir string) (Clip, error) {
	c.transition(StateExtracting, index)
	ff, err := c.Extractor.Decode(ctx, trace)
	if err != nil {
		return Clip{}, fmt.Errorf("extract frames: %w", err)
	}
	for i, f := range ff {
		if err := os.WriteFile(filepath.Join(dir, FrameFilename(i)), f.Image, 0644); err != nil {
			return Clip{}, err
		}
	}

	tl := BuildTimeline(ff)
	if _, err := tl.WriteManifest(dir); err != nil {
		return Clip{}, err
	}

	c.transition(StateEncoding, index)
	if err := c.Encoder.EncodeClip(ctx, dir, ManifestName, ClipName); err != nil {
		return Clip{}, encodingError(err)
	}
	path := filepath.Join(dir, ClipName)
	if _, err := os.Stat(path); err != nil {
		return Clip{}, fmt.Errorf("%w: encoder produced no clip: %v", ErrEncoding, err)
	}

	c.logger.Debug("clip ready", "clip", index, "frames", len(ff), "seconds", tl.Total())
	return Clip{Dir: dir, Path: path, Frames: len(ff), Duration: tl.Total()}, nil
}

// merge copies a lone clip verbatim and stacks several side by side in
// input order.
func (c *Composer) merge(ctx context.Context, clips []Clip, output string) error {
	if len(clips) == 1 {
		c.transition(StateCopying, 0)
		if err := copyFile(clips[0].Path, output); err != nil {
			return encodingError(err)
		}
		return nil
	}

	c.transition(StateStacking, -1)
	c.logger.Info("Merging videos...")
	paths := make([]string, len(clips))
	for i, clip := range clips {
		paths[i] = clip.Path
	}
	if err := c.Encoder.Stack(ctx, paths, output); err != nil {
		return encodingError(err)
	}
	return nil
}

func (c *Composer) transition(s State, clip int) {
	if clip < 0 {
		c.logger.Debug("composer state", "state", s)
		return
	}
	c.logger.Debug("composer state", "state", s, "clip", clip)
}

func (c *Composer) outputDir() (string, error) {
	if c.OutputDir != "" {
		return filepath.Abs(c.OutputDir)
	}
	return os.Getwd()
}

func (c *Composer) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func encodingError(err error) error {
	if errors.Is(err, ErrEncoding) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEncoding, err)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// tildify shortens paths under the home directory for display.
func tildify(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~" + path[len(home):]
	}
	return path
}
