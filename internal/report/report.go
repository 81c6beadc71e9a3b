// Package report stores a YAML summary of a recording run next to the video.
package report

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const Version = "1.0"

// Report describes one recording run.
type Report struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	Output    string    `yaml:"output"`
	Repeat    int       `yaml:"repeat"`
	Pages     []Page    `yaml:"pages"`
}

// Page is the measurement of one URL, in input order.
type Page struct {
	URL         string  `yaml:"url"`
	Scores      []int   `yaml:"scores"`       // one per round
	MedianRound int     `yaml:"median_round"` // 1-based
	MedianScore int     `yaml:"median_score"`
	Frames      int     `yaml:"frames"`
	Seconds     float64 `yaml:"seconds"`
}

// PathFor returns the report path belonging to a video file.
func PathFor(videoPath string) string {
	return strings.TrimSuffix(videoPath, ".webm") + ".yaml"
}

func Write(r *Report, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}

	return &r, nil
}
