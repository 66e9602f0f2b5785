package atlaspack

import (
	"fmt"
	"image"
)

// Orientation tags how a frame is stored on its page.
type Orientation uint8

const (
	// Upright frames are stored as authored.
	Upright Orientation = iota
	// Rotated90 frames are stored rotated 90° clockwise.
	Rotated90
)

func (o Orientation) String() string {
	switch o {
	case Upright:
		return "upright"
	case Rotated90:
		return "rotated90"
	default:
		return fmt.Sprintf("Orientation(%d)", uint8(o))
	}
}

// Item is one packer input: a frame id with its trimmed size. The source
// fields are carried through to the placement for metadata export.
type Item struct {
	ID            string
	Width, Height int // trimmed size; zero for empty frames
	SourceWidth   int // untrimmed size
	SourceHeight  int
	TrimX, TrimY  int // trim offset within the untrimmed frame
}

// Empty reports whether the item has no area to place.
func (it Item) Empty() bool { return it.Width <= 0 || it.Height <= 0 }

// PlacedFrame is the resolved position of one frame.
type PlacedFrame struct {
	ID   string
	Page int

	// X, Y is the top-left of the stored pixels on the page (padding excluded).
	X, Y int

	// Width, Height is the trimmed, unrotated size.
	Width, Height int

	Orientation Orientation

	SourceWidth, SourceHeight int
	TrimX, TrimY              int
}

// Rotated reports whether the frame is stored rotated.
func (p PlacedFrame) Rotated() bool { return p.Orientation == Rotated90 }

// Trimmed reports whether trimming removed any border.
func (p PlacedFrame) Trimmed() bool {
	return p.TrimX != 0 || p.TrimY != 0 || p.Width != p.SourceWidth || p.Height != p.SourceHeight
}

// Size returns the stored size on the page (swapped when rotated).
func (p PlacedFrame) Size() (w, h int) {
	if p.Rotated() {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// Bounds returns the rectangle the stored pixels cover on the page.
func (p PlacedFrame) Bounds() image.Rectangle {
	w, h := p.Size()
	return image.Rect(p.X, p.Y, p.X+w, p.Y+h)
}

// Occupied returns Bounds grown by padding on every side.
func (p PlacedFrame) Occupied(padding int) image.Rectangle {
	return p.Bounds().Inset(-padding)
}

// Page is one atlas page of a layout.
type Page struct {
	Index         int
	Width, Height int
	Frames        []PlacedFrame // in placement order
}

// Bounds returns the page rectangle.
func (p *Page) Bounds() image.Rectangle { return image.Rect(0, 0, p.Width, p.Height) }

// EmptyFrame records a fully transparent frame that was excluded from
// packing.
type EmptyFrame struct {
	ID                        string
	SourceWidth, SourceHeight int
}

// Layout is the immutable result of a packing pass.
type Layout struct {
	Pages   []Page
	Empty   []EmptyFrame // in id order
	Padding int
	Method  Method
}

// FrameCount returns the number of placed frames.
func (l *Layout) FrameCount() int {
	n := 0
	for i := range l.Pages {
		n += len(l.Pages[i].Frames)
	}
	return n
}

// Find returns the placement of id.
func (l *Layout) Find(id string) (PlacedFrame, bool) {
	for i := range l.Pages {
		for _, f := range l.Pages[i].Frames {
			if f.ID == id {
				return f, true
			}
		}
	}
	return PlacedFrame{}, false
}

// Efficiency returns the fraction of page area covered by frame pixels.
func (l *Layout) Efficiency() float64 {
	var used, total int
	for i := range l.Pages {
		p := &l.Pages[i]
		total += p.Width * p.Height
		for _, f := range p.Frames {
			used += f.Width * f.Height
		}
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}

// Validate checks the layout invariants: every occupied rectangle lies in
// its page and no two occupied rectangles on a page intersect. It returns a
// *PageOverflowError or *OverlapError on the first violation.
func (l *Layout) Validate() error {
	for pi := range l.Pages {
		p := &l.Pages[pi]
		bounds := p.Bounds()
		for i, f := range p.Frames {
			occ := f.Occupied(l.Padding)
			if f.Page != pi || f.Width <= 0 || f.Height <= 0 || !occ.In(bounds) {
				return &PageOverflowError{ID: f.ID, Page: pi, Rect: occ, Bounds: bounds}
			}
			for _, g := range p.Frames[:i] {
				if occ.Overlaps(g.Occupied(l.Padding)) {
					return &OverlapError{Page: pi, A: g.ID, B: f.ID}
				}
			}
		}
	}
	return nil
}
