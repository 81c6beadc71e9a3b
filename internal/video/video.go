package video

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrEncoding marks any failure of the external video encoder.
var ErrEncoding = errors.New("encoding failed")

const ClipName = "record.webm"

type Encoder interface {
	// EncodeClip renders the concat manifest in dir into output, both
	// relative to dir.
	EncodeClip(ctx context.Context, dir, manifest, output string) error
	// Stack places clips side by side, in order, into output.
	Stack(ctx context.Context, clips []string, output string) error
}

// FFmpegEncoder drives an ffmpeg binary. Path is resolved once at startup.
type FFmpegEncoder struct {
	Path string
}

func (e *FFmpegEncoder) EncodeClip(ctx context.Context, dir, manifest, output string) error {
	cmd := exec.CommandContext(ctx, e.Path, clipArgs(manifest, output)...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: ffmpeg concat error: %v, output: %s", ErrEncoding, err, string(out))
	}
	return nil
}

func (e *FFmpegEncoder) Stack(ctx context.Context, clips []string, output string) error {
	if len(clips) < 2 {
		return fmt.Errorf("%w: stacking needs at least 2 clips, got %d", ErrEncoding, len(clips))
	}
	cmd := exec.CommandContext(ctx, e.Path, stackArgs(clips, output)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: ffmpeg hstack error: %v, output: %s", ErrEncoding, err, string(out))
	}
	return nil
}

func clipArgs(manifest, output string) []string {
	return []string{"-f", "concat", "-i", manifest, output}
}

func stackArgs(clips []string, output string) []string {
	args := make([]string, 0, 2*len(clips)+3)
	for _, c := range clips {
		args = append(args, "-i", c)
	}
	// hstack takes two inputs unless told otherwise.
	filter := "hstack"
	if len(clips) > 2 {
		filter = fmt.Sprintf("hstack=inputs=%d", len(clips))
	}
	return append(args, "-filter_complex", filter, output)
}
