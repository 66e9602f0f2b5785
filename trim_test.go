package atlaspack

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"

	"github.com/gogpu/atlaspack/internal/parallel"
	"github.com/gogpu/atlaspack/pixel"
	"github.com/gogpu/atlaspack/trimcache"
)

func TestTrim(t *testing.T) {
	tests := []struct {
		name string
		buf  *pixel.Buffer
		want image.Rectangle
	}{
		{"opaque", solid(6, 4), image.Rect(0, 0, 6, 4)},
		{"transparent", blank(5, 5), image.Rectangle{}},
		{"centered box", boxed(10, 10, image.Rect(3, 2, 7, 9)), image.Rect(3, 2, 7, 9)},
		{"single pixel", boxed(10, 10, image.Rect(9, 0, 10, 1)), image.Rect(9, 0, 10, 1)},
		{"bottom row", boxed(4, 6, image.Rect(0, 5, 4, 6)), image.Rect(0, 5, 4, 6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Trim(tt.buf, 0); got != tt.want {
				t.Errorf("Trim() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrim_DisjointPixels(t *testing.T) {
	b := blank(12, 12)
	_ = b.SetRGBA(2, 8, 0, 0, 0, 255)
	_ = b.SetRGBA(9, 3, 0, 0, 0, 1)
	if got, want := Trim(b, 0), image.Rect(2, 3, 10, 9); got != want {
		t.Errorf("Trim() = %v, want %v", got, want)
	}
}

func TestTrim_Threshold(t *testing.T) {
	b := blank(8, 8)
	_ = b.SetRGBA(1, 1, 0, 0, 0, 10)
	_ = b.SetRGBA(5, 6, 0, 0, 0, 200)

	if got, want := Trim(b, 0), image.Rect(1, 1, 6, 7); got != want {
		t.Errorf("Trim(0) = %v, want %v", got, want)
	}
	// alpha must be strictly greater than the threshold
	if got, want := Trim(b, 10), image.Rect(5, 6, 6, 7); got != want {
		t.Errorf("Trim(10) = %v, want %v", got, want)
	}
	if got := Trim(b, 200); !got.Empty() {
		t.Errorf("Trim(200) = %v, want empty", got)
	}
}

func TestTrim_SubImage(t *testing.T) {
	b := boxed(20, 20, image.Rect(5, 5, 8, 8))
	sub := b.SubImage(image.Rect(4, 4, 12, 12))
	if got, want := Trim(sub, 0), image.Rect(1, 1, 4, 4); got != want {
		t.Errorf("Trim(sub) = %v, want %v", got, want)
	}
}

type countingCache struct {
	trimcache.Cache
	gets, puts atomic.Int32
}

func (c *countingCache) Get(k trimcache.Key) (image.Rectangle, bool) {
	c.gets.Add(1)
	return c.Cache.Get(k)
}

func (c *countingCache) Put(k trimcache.Key, r image.Rectangle) error {
	c.puts.Add(1)
	return c.Cache.Put(k, r)
}

func TestTrimCached(t *testing.T) {
	cache := &countingCache{Cache: trimcache.NewMemory(8)}
	b := boxed(16, 16, image.Rect(4, 4, 12, 10))

	first := trimCached(b, 0, cache)
	second := trimCached(b.Clone(), 0, cache)
	if first != second || first != image.Rect(4, 4, 12, 10) {
		t.Errorf("trimCached() = %v then %v", first, second)
	}
	if n := cache.puts.Load(); n != 1 {
		t.Errorf("puts = %d, want 1", n)
	}

	// A different threshold is a different key.
	trimCached(b, 1, cache)
	if n := cache.puts.Load(); n != 2 {
		t.Errorf("puts = %d, want 2", n)
	}
}

func TestTrimAll(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	t.Cleanup(pool.Close)

	bufs := make([]*pixel.Buffer, 50)
	want := make([]image.Rectangle, len(bufs))
	for i := range bufs {
		want[i] = image.Rect(i%5, i%3, 10+i%4, 12)
		bufs[i] = boxed(16, 16, want[i])
	}
	got, err := trimAll(context.Background(), pool, bufs, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("box %d = %v, want %v", i, got[i], want[i])
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := trimAll(ctx, pool, bufs, 0, nil); !errors.Is(err, ErrCancelled) {
		t.Errorf("cancelled trimAll() = %v, want ErrCancelled", err)
	}
}

func BenchmarkTrim(b *testing.B) {
	buf := boxed(256, 256, image.Rect(40, 30, 200, 220))
	b.ReportAllocs()
	for b.Loop() {
		Trim(buf, 0)
	}
}
