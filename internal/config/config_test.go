package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.RepeatCount)
	assert.True(t, cfg.Headless)
	assert.Zero(t, cfg.Port)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.GreaterOrEqual(t, cfg.EncodeWorkers, 1)
	require.NoError(t, cfg.Validate())
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.yaml")
	body := "repeat: 5\nport: 9222\nframe_height: 480\nlaunch_timeout: 10s\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.RepeatCount)
	assert.Equal(t, 9222, cfg.Port)
	assert.Equal(t, 480, cfg.FrameHeight)
	assert.Equal(t, 10*time.Second, cfg.LaunchTimeout)
	assert.True(t, cfg.Headless, "headless should keep its default")
	assert.Equal(t, 90, cfg.JPEGQuality)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repeat: [1, 2"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero repeat", func(c *Config) { c.RepeatCount = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"no workers", func(c *Config) { c.EncodeWorkers = 0 }},
		{"odd frame height", func(c *Config) { c.FrameHeight = 481 }},
		{"quality out of range", func(c *Config) { c.JPEGQuality = 0 }},
		{"cpu load out of range", func(c *Config) { c.MaxCPULoad = 150 }},
		{"no launch timeout", func(c *Config) { c.LaunchTimeout = 0 }},
		{"empty ffmpeg", func(c *Config) { c.FFmpegPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
