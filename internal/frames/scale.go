package frames

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Scaler resizes frames to a fixed height, keeping the aspect ratio and an
// even width. hstack needs every input clip to share one height.
type Scaler struct {
	Height  int
	Quality int
}

// Scale returns data re-encoded as JPEG at s.Height. Frames already at that
// height, or a zero Height, are returned untouched.
func (s *Scaler) Scale(data []byte) ([]byte, error) {
	if s == nil || s.Height <= 0 {
		return data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	sb := src.Bounds()
	if sb.Dy() == s.Height || sb.Dy() == 0 {
		return data, nil
	}

	width := sb.Dx() * s.Height / sb.Dy()
	if width%2 != 0 {
		width++
	}
	if width < 2 {
		width = 2
	}

	dst := rgbaPool.Get(image.Rect(0, 0, width, s.Height))
	defer rgbaPool.Put(dst)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)

	quality := s.Quality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
