package frames

import (
	"image"
	"sync"
)

// imagePool reuses *image.RGBA buffers keyed by their bounds. Frames of one
// trace share a size, so scaling a whole trace allocates a single buffer.
type imagePool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

var rgbaPool = &imagePool{
	pools: make(map[string]*sync.Pool),
}

func (p *imagePool) Get(rect image.Rectangle) *image.RGBA {
	key := rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return image.NewRGBA(rect)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *imagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	key := img.Rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
