package atlaspack

import "image"

// freeList tracks the unused rectangles of one page under guillotine
// splitting. Rectangles never overlap each other.
type freeList struct {
	rects []image.Rectangle
}

func newFreeList(r image.Rectangle) freeList {
	return freeList{rects: []image.Rectangle{r}}
}

// add appends r if it has area.
func (f *freeList) add(r image.Rectangle) {
	if !r.Empty() {
		f.rects = append(f.rects, r)
	}
}

// place removes rects[i], puts a w×h cell at its top-left corner and adds
// the guillotine leftovers. The cut runs along the shorter leftover axis:
// when the leftover width is not larger than the leftover height the cut is
// horizontal and the bottom piece spans the full width, otherwise the cut is
// vertical and the right piece spans the full height.
func (f *freeList) place(i, w, h int) image.Point {
	r := f.rects[i]
	f.rects = append(f.rects[:i], f.rects[i+1:]...)

	var right, bottom image.Rectangle
	if r.Dx()-w <= r.Dy()-h {
		right = image.Rect(r.Min.X+w, r.Min.Y, r.Max.X, r.Min.Y+h)
		bottom = image.Rect(r.Min.X, r.Min.Y+h, r.Max.X, r.Max.Y)
	} else {
		right = image.Rect(r.Min.X+w, r.Min.Y, r.Max.X, r.Max.Y)
		bottom = image.Rect(r.Min.X, r.Min.Y+h, r.Min.X+w, r.Max.Y)
	}
	f.add(right)
	f.add(bottom)
	f.merge()
	return r.Min
}

// merge joins pairs of rectangles that share a full edge until no such pair
// remains. Joined rectangles keep the position of the earlier one.
func (f *freeList) merge() {
	for {
		merged := false
		for i := 0; i < len(f.rects) && !merged; i++ {
			for j := i + 1; j < len(f.rects); j++ {
				if u, ok := joinRects(f.rects[i], f.rects[j]); ok {
					f.rects[i] = u
					f.rects = append(f.rects[:j], f.rects[j+1:]...)
					merged = true
					break
				}
			}
		}
		if !merged {
			return
		}
	}
}

func joinRects(a, b image.Rectangle) (image.Rectangle, bool) {
	if a.Min.X == b.Min.X && a.Max.X == b.Max.X && (a.Max.Y == b.Min.Y || b.Max.Y == a.Min.Y) {
		return a.Union(b), true
	}
	if a.Min.Y == b.Min.Y && a.Max.Y == b.Max.Y && (a.Max.X == b.Min.X || b.Max.X == a.Min.X) {
		return a.Union(b), true
	}
	return image.Rectangle{}, false
}

func area(r image.Rectangle) int { return r.Dx() * r.Dy() }
