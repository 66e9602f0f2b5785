package metadata

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/gogpu/atlaspack/pixel"
)

// LoadPages loads the page images of s, resolving image references
// relative to dir. References that leave dir fail with ErrUnsafePath.
func LoadPages(s *Sheet, dir string) ([]*pixel.Buffer, error) {
	pages := make([]*pixel.Buffer, len(s.Textures))
	for i, t := range s.Textures {
		if t.Image == "" {
			return nil, fmt.Errorf("metadata: texture %d has no image reference", i)
		}
		rel := filepath.FromSlash(t.Image)
		if !filepath.IsLocal(rel) {
			return nil, fmt.Errorf("metadata: texture %d image %q: %w", i, t.Image, ErrUnsafePath)
		}
		b, err := pixel.Load(filepath.Join(dir, rel))
		if err != nil {
			return nil, fmt.Errorf("metadata: texture %d: %w", i, err)
		}
		pages[i] = b
	}
	return pages, nil
}

// Unpack reconstructs every frame of s at its untrimmed size from the page
// buffers: the stored region is cut out, rotated back when needed, and put
// at its trim offset on a transparent canvas. Empty frames come back as
// fully transparent buffers.
func Unpack(s *Sheet, pages []*pixel.Buffer) (map[string]*pixel.Buffer, error) {
	out := make(map[string]*pixel.Buffer)
	for ti, t := range s.Textures {
		if ti >= len(pages) || pages[ti] == nil {
			return nil, fmt.Errorf("metadata: texture %d: page image missing", ti)
		}
		for name, f := range t.Frames {
			b, err := unpackFrame(pages[ti], f)
			if err != nil {
				return nil, fmt.Errorf("metadata: unpack %q: %w", name, err)
			}
			out[name] = b
		}
	}
	for name, f := range s.Empty {
		b, err := pixel.New(max(f.SourceSize.W, 1), max(f.SourceSize.H, 1))
		if err != nil {
			return nil, fmt.Errorf("metadata: unpack %q: %w", name, err)
		}
		out[name] = b
	}
	return out, nil
}

func unpackFrame(page *pixel.Buffer, f Frame) (*pixel.Buffer, error) {
	r := image.Rect(f.Frame.X, f.Frame.Y, f.Frame.X+f.Frame.W, f.Frame.Y+f.Frame.H)
	stored := page.SubImage(r)
	if stored == nil {
		return nil, fmt.Errorf("frame %v outside page: %w", r, pixel.ErrOutOfBounds)
	}
	if f.Rotated {
		stored = pixel.Rotate270(stored)
	}
	w, h := f.SourceSize.W, f.SourceSize.H
	if w <= 0 || h <= 0 {
		w, h = stored.Width(), stored.Height()
	}
	out, err := pixel.New(w, h)
	if err != nil {
		return nil, err
	}
	at := image.Pt(f.SpriteSourceSize.X, f.SpriteSourceSize.Y)
	if err := pixel.Copy(out, at, stored, stored.Rect()); err != nil {
		return nil, fmt.Errorf("trimmed region at %v does not fit %dx%d: %w", at, w, h, err)
	}
	return out, nil
}
