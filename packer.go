package atlaspack

import (
	"cmp"
	"context"
	"fmt"
	"image"
	"slices"
	"strings"
)

// compareIDs orders frame ids bytewise. Every id ordering in the package
// goes through it.
func compareIDs(a, b string) int { return strings.Compare(a, b) }

// packOrder sorts items by descending longest side, then by id.
func packOrder(a, b Item) int {
	if c := cmp.Compare(max(b.Width, b.Height), max(a.Width, a.Height)); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

// packPage is a page under construction.
type packPage struct {
	index  int
	w, h   int
	free   freeList
	frames []PlacedFrame
}

// candidate is a possible placement of the current item.
type candidate struct {
	page     *packPage
	rect     int // index into page.free.rects
	at       image.Point
	w, h     int // cell size including padding, as stored
	orient   Orientation
	leftover int
}

// better reports whether c should be preferred over o: smaller leftover
// area first, then upright over rotated, then lower page index, then the
// top-most and left-most free rectangle.
func (c candidate) better(o candidate) bool {
	if o.page == nil {
		return true
	}
	if c.leftover != o.leftover {
		return c.leftover < o.leftover
	}
	if c.orient != o.orient {
		return c.orient < o.orient
	}
	if c.page.index != o.page.index {
		return c.page.index < o.page.index
	}
	if c.at.Y != o.at.Y {
		return c.at.Y < o.at.Y
	}
	return c.at.X < o.at.X
}

type packer struct {
	cfg        Config
	maxW, maxH int
	pad        int
	pages      []*packPage
}

// Pack places items onto pages according to cfg.
//
// Items with zero trimmed area are excluded and recorded in Layout.Empty.
// If any other item cannot fit an empty page in an allowed orientation,
// Pack returns a *FrameTooLargeError and no layout. The context is checked
// between placements; on cancellation a *CancelledError is returned.
//
// The result always satisfies Layout.Validate; a violation is returned as
// an error rather than a layout.
func Pack(ctx context.Context, items []Item, cfg Config) (*Layout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxW, maxH := cfg.MaxPageSize()
	pk := &packer{cfg: cfg, maxW: maxW, maxH: maxH, pad: cfg.Padding}

	layout := &Layout{Padding: cfg.Padding, Method: cfg.Method}
	work := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("atlaspack: pack %q: %w", it.ID, ErrDuplicateFrame)
		}
		seen[it.ID] = struct{}{}
		if it.Empty() {
			layout.Empty = append(layout.Empty, EmptyFrame{ID: it.ID, SourceWidth: it.SourceWidth, SourceHeight: it.SourceHeight})
			continue
		}
		if err := pk.checkFits(it, cfg.AllowRotation && cfg.Method == MethodPacked); err != nil {
			return nil, err
		}
		work = append(work, it)
	}
	slices.SortFunc(layout.Empty, func(a, b EmptyFrame) int { return compareIDs(a.ID, b.ID) })

	var err error
	switch cfg.Method {
	case MethodGrid:
		slices.SortFunc(work, func(a, b Item) int { return compareIDs(a.ID, b.ID) })
		err = pk.packGrid(ctx, work)
	default:
		slices.SortFunc(work, packOrder)
		err = pk.packAll(ctx, work)
	}
	if err != nil {
		return nil, err
	}

	layout.Pages = pk.finish()
	if err := layout.Validate(); err != nil {
		Logger().Warn("atlaspack: packer produced an invalid layout", "err", err)
		return nil, err
	}
	Logger().Debug("atlaspack: packed",
		"frames", len(work), "empty", len(layout.Empty), "pages", len(layout.Pages),
		"method", cfg.Method.String(), "efficiency", layout.Efficiency())
	return layout, nil
}

func (pk *packer) checkFits(it Item, rotate bool) error {
	cw, ch := it.Width+2*pk.pad, it.Height+2*pk.pad
	if cw <= pk.maxW && ch <= pk.maxH {
		return nil
	}
	if rotate && ch <= pk.maxW && cw <= pk.maxH {
		return nil
	}
	return &FrameTooLargeError{ID: it.ID, Width: cw, Height: ch, MaxWidth: pk.maxW, MaxHeight: pk.maxH}
}

func (pk *packer) packAll(ctx context.Context, items []Item) error {
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		if err := pk.placeItem(it); err != nil {
			return err
		}
	}
	return nil
}

func (pk *packer) placeItem(it Item) error {
	if c, ok := pk.bestFit(it, pk.pages); ok {
		pk.commit(c, it)
		return nil
	}
	if pk.cfg.GrowPolicy == GrowGrowable && len(pk.pages) > 0 {
		last := pk.pages[len(pk.pages)-1]
		for pk.growStep(last, it) {
			if c, ok := pk.bestFit(it, []*packPage{last}); ok {
				pk.commit(c, it)
				return nil
			}
		}
	}
	p := pk.openPage(it)
	c, ok := pk.bestFit(it, []*packPage{p})
	if !ok {
		// checkFits guarantees a fresh page holds the item.
		return &PageOverflowError{ID: it.ID, Page: p.index,
			Rect: image.Rect(0, 0, it.Width+2*pk.pad, it.Height+2*pk.pad), Bounds: image.Rect(0, 0, p.w, p.h)}
	}
	pk.commit(c, it)
	return nil
}

// bestFit evaluates every free rectangle of pages in both allowed
// orientations and returns the best-area-fit candidate.
func (pk *packer) bestFit(it Item, pages []*packPage) (candidate, bool) {
	cw, ch := it.Width+2*pk.pad, it.Height+2*pk.pad
	var best candidate
	for _, p := range pages {
		for i, r := range p.free.rects {
			try := func(w, h int, o Orientation) {
				if w > r.Dx() || h > r.Dy() {
					return
				}
				c := candidate{page: p, rect: i, at: r.Min, w: w, h: h, orient: o, leftover: area(r) - w*h}
				if c.better(best) {
					best = c
				}
			}
			try(cw, ch, Upright)
			if pk.cfg.AllowRotation && cw != ch {
				try(ch, cw, Rotated90)
			}
		}
	}
	return best, best.page != nil
}

func (pk *packer) commit(c candidate, it Item) {
	at := c.page.free.place(c.rect, c.w, c.h)
	c.page.frames = append(c.page.frames, PlacedFrame{
		ID:           it.ID,
		Page:         c.page.index,
		X:            at.X + pk.pad,
		Y:            at.Y + pk.pad,
		Width:        it.Width,
		Height:       it.Height,
		Orientation:  c.orient,
		SourceWidth:  it.SourceWidth,
		SourceHeight: it.SourceHeight,
		TrimX:        it.TrimX,
		TrimY:        it.TrimY,
	})
}

// openPage appends a page. Fixed pages take the maximum size; growable pages
// start just large enough for it.
func (pk *packer) openPage(it Item) *packPage {
	w, h := pk.maxW, pk.maxH
	if pk.cfg.GrowPolicy == GrowGrowable {
		cw, ch := it.Width+2*pk.pad, it.Height+2*pk.pad
		if cw > pk.maxW || ch > pk.maxH {
			cw, ch = ch, cw // only the rotated orientation fits
		}
		w, h = pk.shape(cw), pk.shape(ch)
	}
	p := &packPage{index: len(pk.pages), w: w, h: h, free: newFreeList(image.Rect(0, 0, w, h))}
	pk.pages = append(pk.pages, p)
	Logger().Debug("atlaspack: opened page", "page", p.index, "width", w, "height", h)
	return p
}

// shape applies the page size policy to one dimension.
func (pk *packer) shape(v int) int {
	if pk.cfg.PageSizePolicy == SizePowerOfTwo {
		return ceilPow2(v)
	}
	return v
}

// growStep enlarges p once so that it can hold more area. It returns false
// when p cannot grow any further.
func (pk *packer) growStep(p *packPage, it Item) bool {
	var nw, nh int
	if pk.cfg.PageSizePolicy == SizePowerOfTwo {
		switch {
		case p.w <= p.h && p.w*2 <= pk.maxW:
			nw, nh = p.w*2, p.h
		case p.h*2 <= pk.maxH:
			nw, nh = p.w, p.h*2
		case p.w*2 <= pk.maxW:
			nw, nh = p.w*2, p.h
		default:
			return false
		}
		pk.extend(p, nw, nh, nw > p.w)
		return true
	}

	type growth struct {
		w, h      int
		widthwise bool
	}
	cw, ch := it.Width+2*pk.pad, it.Height+2*pk.pad
	dims := [][2]int{{cw, ch}}
	if pk.cfg.AllowRotation && cw != ch {
		dims = append(dims, [2]int{ch, cw})
	}
	var best growth
	found := false
	for _, widthwise := range []bool{true, false} {
		for _, d := range dims {
			g := growth{w: max(p.w, d[0]), h: p.h + d[1]}
			if widthwise {
				g = growth{w: p.w + d[0], h: max(p.h, d[1]), widthwise: true}
			}
			if g.w > pk.maxW || g.h > pk.maxH {
				continue
			}
			if !found || growthLess(g.w, g.h, best.w, best.h) {
				best, found = g, true
			}
		}
	}
	if !found {
		return false
	}
	pk.extend(p, best.w, best.h, best.widthwise)
	return true
}

// growthLess prefers the smaller resulting area, then the squarer page.
func growthLess(w, h, bw, bh int) bool {
	if w*h != bw*bh {
		return w*h < bw*bh
	}
	return abs(w-h) < abs(bw-bh)
}

// extend resizes p to nw×nh and adds the new area as free rectangles.
// When widthwise, the strip on the right spans the full new height;
// otherwise the strip at the bottom spans the full new width.
func (pk *packer) extend(p *packPage, nw, nh int, widthwise bool) {
	if widthwise {
		p.free.add(image.Rect(p.w, 0, nw, nh))
		p.free.add(image.Rect(0, p.h, p.w, nh))
	} else {
		p.free.add(image.Rect(0, p.h, nw, nh))
		p.free.add(image.Rect(p.w, 0, nw, p.h))
	}
	Logger().Debug("atlaspack: grew page", "page", p.index, "from", fmt.Sprintf("%dx%d", p.w, p.h), "to", fmt.Sprintf("%dx%d", nw, nh))
	p.w, p.h = nw, nh
	p.free.merge()
}

// finish converts the working pages into layout pages. Growable packed
// pages are shrunk to the extent actually used, subject to the size policy.
// Grid pages are already sized to whole cells.
func (pk *packer) finish() []Page {
	pages := make([]Page, len(pk.pages))
	for i, p := range pk.pages {
		w, h := p.w, p.h
		if pk.cfg.GrowPolicy == GrowGrowable && pk.cfg.Method == MethodPacked {
			var ext image.Rectangle
			for _, f := range p.frames {
				ext = ext.Union(f.Occupied(pk.pad))
			}
			w, h = min(w, pk.shape(ext.Max.X)), min(h, pk.shape(ext.Max.Y))
		}
		pages[i] = Page{Index: i, Width: w, Height: h, Frames: p.frames}
	}
	return pages
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
