package atlaspack

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gogpu/atlaspack/pixel"
)

// Atlas is a committed layout together with its rasterized pages.
// An Atlas is immutable once built.
type Atlas struct {
	Layout *Layout
	Pages  []*pixel.Buffer

	// Version is the store version of the snapshot the atlas was built from.
	Version uint64
}

// Build packs and rasterizes every frame of snap in one pass.
func Build(ctx context.Context, snap *Snapshot, cfg Config) (*Atlas, error) {
	layout, err := Pack(ctx, snap.Items(), cfg)
	if err != nil {
		return nil, err
	}
	pages, err := Rasterize(ctx, layout, snap, cfg.PaddingMode)
	if err != nil {
		return nil, err
	}
	return &Atlas{Layout: layout, Pages: pages, Version: snap.Version()}, nil
}

// SavePages writes each page as PNG to dir, naming page i with
// fmt.Sprintf(pattern, i). It returns the written file names relative to
// dir in page order.
func (a *Atlas) SavePages(dir, pattern string) ([]string, error) {
	names := make([]string, len(a.Pages))
	for i, p := range a.Pages {
		names[i] = fmt.Sprintf(pattern, i)
		if err := p.SavePNG(filepath.Join(dir, names[i])); err != nil {
			return nil, fmt.Errorf("atlaspack: save page %d: %w", i, err)
		}
	}
	return names, nil
}
