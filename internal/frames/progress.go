package frames

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
)

// Near-white pixels are page background and carry no progress signal.
const whiteThreshold = 249

type histogram [3][256]int

func decodeHistogram(data []byte) (*histogram, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var h histogram
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			r8, g8, b8 := r>>8, g>>8, bl>>8
			if r8 >= whiteThreshold && g8 >= whiteThreshold && b8 >= whiteThreshold {
				continue
			}
			h[0][r8]++
			h[1][g8]++
			h[2][b8]++
		}
	}
	return &h, nil
}

// measureProgress sets Progress on every frame: 0 for the first, 100 for the
// last, and in between the share of the histogram distance from the first
// to the last frame that has already been covered.
func measureProgress(ctx context.Context, frames []Frame) error {
	hists := make([]*histogram, len(frames))
	for i := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, err := decodeHistogram(frames[i].Image)
		if err != nil {
			return fmt.Errorf("decode frame %d: %w", i, err)
		}
		hists[i] = h
	}

	first, last := hists[0], hists[len(hists)-1]
	for i, h := range hists {
		frames[i].Progress = progressBetween(first, h, last)
	}
	return nil
}

func progressBetween(initial, current, target *histogram) float64 {
	var sum float64
	for c := 0; c < 3; c++ {
		total, remaining := 0, 0
		for v := 0; v < 256; v++ {
			total += absInt(initial[c][v] - target[c][v])
			remaining += absInt(current[c][v] - target[c][v])
		}
		if total == 0 {
			sum += 100
			continue
		}
		p := 100 * (1 - float64(remaining)/float64(total))
		sum += math.Max(0, math.Min(100, p))
	}
	return math.Floor(sum / 3)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
