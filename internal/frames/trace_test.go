package frames

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidPNG draws a 10x10 image whose first dark rows are black and the rest
// mid grey.
func solidPNG(t *testing.T, darkRows int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			c := color.RGBA{128, 128, 128, 255}
			if y < darkRows {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func screenshot(ts int64, img []byte) map[string]any {
	return map[string]any{
		"name": "Screenshot",
		"cat":  "disabled-by-default-devtools.screenshot",
		"ts":   ts,
		"args": map[string]any{"snapshot": base64.StdEncoding.EncodeToString(img)},
	}
}

func encodeTrace(t *testing.T, events ...map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"traceEvents": events})
	require.NoError(t, err)
	return data
}

func TestTraceExtractorDecode(t *testing.T) {
	trace := encodeTrace(t,
		map[string]any{"name": "navigationStart", "cat": "blink.user_timing", "ts": 1000},
		screenshot(1700000, solidPNG(t, 10)),
		screenshot(500, solidPNG(t, 0)),
		screenshot(1000, solidPNG(t, 0)),
		map[string]any{"name": "Layout", "cat": "devtools.timeline", "ts": 1200},
		screenshot(1200000, solidPNG(t, 5)),
	)

	ext := &TraceExtractor{}
	frames, err := ext.Decode(context.Background(), trace)
	require.NoError(t, err)

	require.Len(t, frames, 3, "screenshot before navigationStart is dropped")
	assert.Equal(t, int64(1000), frames[0].Timestamp)
	assert.Equal(t, int64(1200000), frames[1].Timestamp)
	assert.Equal(t, int64(1700000), frames[2].Timestamp)

	assert.Equal(t, 0.0, frames[0].Progress)
	assert.Equal(t, 50.0, frames[1].Progress)
	assert.Equal(t, 100.0, frames[2].Progress)
}

func TestTraceExtractorArrayForm(t *testing.T) {
	data, err := json.Marshal([]map[string]any{screenshot(10, solidPNG(t, 3))})
	require.NoError(t, err)

	frames, err := (&TraceExtractor{}).Decode(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 100.0, frames[0].Progress, "a single frame is complete")
}

func TestTraceExtractorErrors(t *testing.T) {
	ext := &TraceExtractor{}

	_, err := ext.Decode(context.Background(), []byte(""))
	assert.Error(t, err)

	_, err = ext.Decode(context.Background(), []byte("{not json"))
	assert.Error(t, err)

	_, err = ext.Decode(context.Background(), encodeTrace(t, map[string]any{"name": "Layout", "ts": 1}))
	assert.ErrorIs(t, err, ErrNoFrames)

	bad := screenshot(1, nil)
	bad["args"] = map[string]any{"snapshot": "%%%"}
	_, err = ext.Decode(context.Background(), encodeTrace(t, bad))
	assert.Error(t, err)
}

func TestTraceExtractorScales(t *testing.T) {
	ext := &TraceExtractor{Scaler: &Scaler{Height: 4, Quality: 90}}
	frames, err := ext.Decode(context.Background(), encodeTrace(t, screenshot(1, solidPNG(t, 0))))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(frames[0].Image))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Height)
	assert.Equal(t, 4, cfg.Width)
}
