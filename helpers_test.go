package atlaspack

import (
	"image"
	"slices"
	"testing"

	"github.com/gogpu/atlaspack/pixel"
)

// solid returns an opaque w×h buffer whose pixels encode their position.
func solid(w, h int) *pixel.Buffer {
	b, err := pixel.New(w, h)
	if err != nil {
		panic(err)
	}
	for y := range h {
		for x := range w {
			_ = b.SetRGBA(x, y, uint8(x), uint8(y), uint8(x^y), 255)
		}
	}
	return b
}

// boxed returns a transparent w×h buffer with an opaque patterned box.
func boxed(w, h int, box image.Rectangle) *pixel.Buffer {
	b, err := pixel.New(w, h)
	if err != nil {
		panic(err)
	}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			_ = b.SetRGBA(x, y, uint8(x*7), uint8(y*13), 200, 255)
		}
	}
	return b
}

// blank returns a fully transparent buffer.
func blank(w, h int) *pixel.Buffer {
	b, err := pixel.New(w, h)
	if err != nil {
		panic(err)
	}
	return b
}

// newTestStore returns a store holding frames, closed at test cleanup.
func newTestStore(t *testing.T, frames map[string]*pixel.Buffer, opts ...StoreOption) *Store {
	t.Helper()
	s := NewStore(0, opts...)
	t.Cleanup(s.Close)
	names := make([]string, 0, len(frames))
	for n := range frames {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		if err := s.Add(n, "test:"+n, frames[n]); err != nil {
			t.Fatalf("Add(%q) = %v", n, err)
		}
	}
	return s
}

// item returns an untrimmed packer input of the given size.
func item(id string, w, h int) Item {
	return Item{ID: id, Width: w, Height: h, SourceWidth: w, SourceHeight: h}
}

// testConfig returns a fixed, exact-size configuration without padding.
func testConfig(w, h int) Config {
	cfg := DefaultConfig()
	cfg.MaxPageWidth, cfg.MaxPageHeight = w, h
	cfg.Padding = 0
	cfg.GrowPolicy = GrowFixed
	cfg.PageSizePolicy = SizeExact
	return cfg
}

// placedIDs returns every placed frame id, sorted.
func placedIDs(l *Layout) []string {
	var ids []string
	for _, p := range l.Pages {
		for _, f := range p.Frames {
			ids = append(ids, f.ID)
		}
	}
	slices.Sort(ids)
	return ids
}
