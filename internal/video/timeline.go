package video

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ivlev/pagerecord/internal/frames"
)

const ManifestName = "frames.txt"

// Entry is one line pair of a concat manifest. Duration is in seconds.
type Entry struct {
	Filename string
	Duration float64
}

type Timeline []Entry

// FrameFilename is the name a frame is stored under in a scratch directory.
func FrameFilename(index int) string {
	return fmt.Sprintf("%d.jpg", index)
}

// BuildTimeline gives every frame the time until the next one. The last
// frame gets a zero duration; the concat demuxer still needs the entry.
func BuildTimeline(ordered []frames.Frame) Timeline {
	tl := make(Timeline, len(ordered))
	for i := range ordered {
		var duration float64
		if i+1 < len(ordered) {
			deltaMillis := float64(ordered[i+1].Timestamp-ordered[i].Timestamp) / 1000
			duration = deltaMillis / 1000
		}
		tl[i] = Entry{Filename: FrameFilename(i), Duration: duration}
	}
	return tl
}

// Manifest renders the timeline in concat demuxer syntax, two lines per entry.
func (tl Timeline) Manifest() string {
	var b strings.Builder
	for _, e := range tl {
		fmt.Fprintf(&b, "file '%s'\nduration %s\n", e.Filename, strconv.FormatFloat(e.Duration, 'f', -1, 64))
	}
	return b.String()
}

// WriteManifest stores the manifest in dir and returns its path.
func (tl Timeline) WriteManifest(dir string) (string, error) {
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(tl.Manifest()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Total is the summed duration of the timeline in seconds.
func (tl Timeline) Total() float64 {
	var sum float64
	for _, e := range tl {
		sum += e.Duration
	}
	return sum
}
