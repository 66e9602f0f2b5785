package atlaspack

import (
	"errors"
	"image"
	"testing"
)

func TestPlacedFrame_Geometry(t *testing.T) {
	f := PlacedFrame{X: 10, Y: 20, Width: 8, Height: 3, SourceWidth: 12, SourceHeight: 3, TrimX: 2}
	if got, want := f.Bounds(), image.Rect(10, 20, 18, 23); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
	if got, want := f.Occupied(2), image.Rect(8, 18, 20, 25); got != want {
		t.Errorf("Occupied(2) = %v, want %v", got, want)
	}
	if !f.Trimmed() {
		t.Error("Trimmed() = false for a frame with a trim offset")
	}

	f.Orientation = Rotated90
	if got, want := f.Bounds(), image.Rect(10, 20, 13, 28); got != want {
		t.Errorf("rotated Bounds() = %v, want %v", got, want)
	}
}

func TestLayout_Validate(t *testing.T) {
	frame := func(id string, x, y, w, h int) PlacedFrame {
		return PlacedFrame{ID: id, X: x, Y: y, Width: w, Height: h, SourceWidth: w, SourceHeight: h}
	}
	tests := []struct {
		name    string
		padding int
		frames  []PlacedFrame
		wantErr error
	}{
		{"ok", 0, []PlacedFrame{frame("a", 0, 0, 16, 16), frame("b", 16, 0, 16, 16)}, nil},
		{"ok with padding", 1, []PlacedFrame{frame("a", 1, 1, 14, 14), frame("b", 17, 1, 14, 14)}, nil},
		{"outside page", 0, []PlacedFrame{frame("a", 20, 0, 16, 16)}, ErrPageOverflow},
		{"padding outside page", 2, []PlacedFrame{frame("a", 0, 0, 16, 16)}, ErrPageOverflow},
		{"zero size", 0, []PlacedFrame{frame("a", 0, 0, 0, 4)}, ErrPageOverflow},
		{"overlap", 0, []PlacedFrame{frame("a", 0, 0, 16, 16), frame("b", 8, 8, 16, 16)}, ErrOverlap},
		{"padding overlap", 1, []PlacedFrame{frame("a", 1, 1, 14, 14), frame("b", 16, 1, 14, 14)}, ErrOverlap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Layout{Padding: tt.padding, Pages: []Page{{Width: 32, Height: 32, Frames: tt.frames}}}
			if err := l.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLayout_ValidateReportsPair(t *testing.T) {
	l := &Layout{Pages: []Page{{Width: 32, Height: 32, Frames: []PlacedFrame{
		{ID: "a", Width: 10, Height: 10},
		{ID: "b", X: 5, Y: 5, Width: 10, Height: 10},
	}}}}
	var oe *OverlapError
	if err := l.Validate(); !errors.As(err, &oe) {
		t.Fatalf("Validate() = %v, want *OverlapError", err)
	}
	if oe.A != "a" || oe.B != "b" || oe.Page != 0 {
		t.Errorf("OverlapError = %+v", oe)
	}
}

func TestLayout_FindAndCount(t *testing.T) {
	l := &Layout{Pages: []Page{
		{Index: 0, Width: 8, Height: 8, Frames: []PlacedFrame{{ID: "a", Width: 4, Height: 4}}},
		{Index: 1, Width: 8, Height: 8, Frames: []PlacedFrame{{ID: "b", Page: 1, Width: 8, Height: 8}}},
	}}
	if n := l.FrameCount(); n != 2 {
		t.Errorf("FrameCount() = %d, want 2", n)
	}
	if f, ok := l.Find("b"); !ok || f.Page != 1 {
		t.Errorf("Find(b) = %+v, %v", f, ok)
	}
	if _, ok := l.Find("zzz"); ok {
		t.Error("Find(zzz) found a frame")
	}
	if got, want := l.Efficiency(), 80.0/128.0; got != want {
		t.Errorf("Efficiency() = %v, want %v", got, want)
	}
}
