package atlaspack

import (
	"context"
	"image"

	"github.com/gogpu/atlaspack/internal/parallel"
	"github.com/gogpu/atlaspack/pixel"
	"github.com/gogpu/atlaspack/trimcache"
)

// Trim returns the smallest rectangle enclosing every pixel of buf whose
// alpha is strictly greater than threshold. A buffer with no such pixel
// yields the zero rectangle, which callers treat as an empty frame.
func Trim(buf *pixel.Buffer, threshold uint8) image.Rectangle {
	w, h := buf.Width(), buf.Height()

	top := -1
	for y := range h {
		if rowOpaque(buf.RowBytes(y), threshold) {
			top = y
			break
		}
	}
	if top < 0 {
		return image.Rectangle{}
	}
	bottom := top
	for y := h - 1; y > top; y-- {
		if rowOpaque(buf.RowBytes(y), threshold) {
			bottom = y
			break
		}
	}

	left, right := w, -1
	for y := top; y <= bottom; y++ {
		row := buf.RowBytes(y)
		for x := 0; x < left; x++ {
			if row[x*4+3] > threshold {
				left = x
				break
			}
		}
		for x := w - 1; x > right; x-- {
			if row[x*4+3] > threshold {
				right = x
				break
			}
		}
		if left == 0 && right == w-1 {
			break
		}
	}
	return image.Rect(left, top, right+1, bottom+1)
}

func rowOpaque(row []byte, threshold uint8) bool {
	for i := 3; i < len(row); i += 4 {
		if row[i] > threshold {
			return true
		}
	}
	return false
}

// trimCached consults cache (which may be nil) before scanning buf.
func trimCached(buf *pixel.Buffer, threshold uint8, cache trimcache.Cache) image.Rectangle {
	if cache == nil {
		return Trim(buf, threshold)
	}
	key := trimcache.KeyFor(buf, threshold)
	if box, ok := cache.Get(key); ok && box.In(buf.Rect()) {
		return box
	}
	box := Trim(buf, threshold)
	if err := cache.Put(key, box); err != nil {
		Logger().Warn("atlaspack: trim cache write failed", "err", err)
	}
	return box
}

// trimAll trims every buffer concurrently on pool. cache may be nil.
func trimAll(ctx context.Context, pool *parallel.WorkerPool, bufs []*pixel.Buffer, threshold uint8, cache trimcache.Cache) ([]image.Rectangle, error) {
	boxes := make([]image.Rectangle, len(bufs))
	err := pool.ForEach(ctx, len(bufs), func(i int) error {
		boxes[i] = trimCached(bufs[i], threshold, cache)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx.Err())
		}
		return nil, err
	}
	return boxes, nil
}
