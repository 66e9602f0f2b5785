package atlaspack

import (
	"context"
	"math"
)

// packGrid lays items out in uniform cells sized to the largest trimmed
// frame plus padding, row-major in the given order. Each frame is centered
// in its cell. Pages hold as many cells as fit; a page is filled as close to
// square as its limits allow before the next one is opened.
func (pk *packer) packGrid(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	var innerW, innerH int
	for _, it := range items {
		innerW, innerH = max(innerW, it.Width), max(innerH, it.Height)
	}
	cellW, cellH := innerW+2*pk.pad, innerH+2*pk.pad
	maxCols, maxRows := pk.maxW/cellW, pk.maxH/cellH
	perPage := maxCols * maxRows

	for start := 0; start < len(items); start += perPage {
		batch := items[start:min(start+perPage, len(items))]
		k := len(batch)
		cols := min(maxCols, int(math.Ceil(math.Sqrt(float64(k)))))
		cols = max(cols, (k+maxRows-1)/maxRows)
		rows := (k + cols - 1) / cols

		w, h := pk.maxW, pk.maxH
		if pk.cfg.GrowPolicy == GrowGrowable {
			w, h = pk.shape(cols*cellW), pk.shape(rows*cellH)
		}
		p := &packPage{index: len(pk.pages), w: w, h: h}
		pk.pages = append(pk.pages, p)

		for i, it := range batch {
			if err := ctx.Err(); err != nil {
				return cancelled(err)
			}
			cx, cy := (i%cols)*cellW, (i/cols)*cellH
			p.frames = append(p.frames, PlacedFrame{
				ID:           it.ID,
				Page:         p.index,
				X:            cx + pk.pad + (innerW-it.Width)/2,
				Y:            cy + pk.pad + (innerH-it.Height)/2,
				Width:        it.Width,
				Height:       it.Height,
				SourceWidth:  it.SourceWidth,
				SourceHeight: it.SourceHeight,
				TrimX:        it.TrimX,
				TrimY:        it.TrimY,
			})
		}
		Logger().Debug("atlaspack: grid page", "page", p.index, "cols", cols, "rows", rows, "cell", cellW)
	}
	return nil
}
