package atlaspack

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/atlaspack/pixel"
)

// Rasterize composites the pages of layout from the frames in src.
//
// Each placed frame's trimmed pixels are copied to its position, rotated
// 90° clockwise when the placement says so. Under PadClampEdge the frame's
// border pixels are replicated into its padding ring; under PadTransparent
// the ring stays transparent. Source frames are never modified.
//
// Pages are composited concurrently. The layout is validated first, and a
// frame missing from src or whose trimmed size differs from its placement
// is an error.
func Rasterize(ctx context.Context, layout *Layout, src FrameSource, mode PaddingMode) ([]*pixel.Buffer, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	pages := make([]*pixel.Buffer, len(layout.Pages))
	g, gctx := errgroup.WithContext(ctx)
	for i := range layout.Pages {
		g.Go(func() error {
			buf, err := rasterizePage(gctx, &layout.Pages[i], layout.Padding, src, mode)
			if err != nil {
				return err
			}
			pages[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx.Err())
		}
		return nil, err
	}
	return pages, nil
}

func rasterizePage(ctx context.Context, p *Page, padding int, src FrameSource, mode PaddingMode) (*pixel.Buffer, error) {
	buf, err := pixel.New(p.Width, p.Height)
	if err != nil {
		return nil, fmt.Errorf("atlaspack: page %d: %w", p.Index, err)
	}
	for _, pf := range p.Frames {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		f, ok := src.Frame(pf.ID)
		if !ok {
			return nil, fmt.Errorf("atlaspack: rasterize %q: %w", pf.ID, ErrFrameNotFound)
		}
		trimmed := f.Trimmed()
		if trimmed == nil || trimmed.Width() != pf.Width || trimmed.Height() != pf.Height {
			return nil, fmt.Errorf("atlaspack: rasterize %q: frame is %v, layout expects %dx%d: %w",
				pf.ID, f.Trim.Size(), pf.Width, pf.Height, ErrPageOverflow)
		}
		if pf.Rotated() {
			trimmed = pixel.Rotate90(trimmed)
		}
		bounds := pf.Bounds()
		if err := pixel.Copy(buf, bounds.Min, trimmed, trimmed.Rect()); err != nil {
			return nil, fmt.Errorf("atlaspack: rasterize %q: %w", pf.ID, err)
		}
		if mode == PadClampEdge {
			pixel.Extrude(buf, bounds, padding)
		}
	}
	return buf, nil
}
