// Package importer decodes image files into frame sources for the store.
//
// Still images become one frame named after the file stem. Animated GIFs
// are composited frame by frame, honouring each frame's disposal method, and
// yield frames named <stem>_000, <stem>_001, and so on.
package importer

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/atlaspack"
	"github.com/gogpu/atlaspack/pixel"
)

// ErrUnsupportedFormat is returned for files whose extension is not a
// supported image format.
var ErrUnsupportedFormat = errors.New("importer: unsupported format")

// ErrEmptyImage is returned for images with no frames or a zero-size canvas.
var ErrEmptyImage = errors.New("importer: image has no pixels")

var extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Supported reports whether path has a supported image extension.
func Supported(path string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(path)))
}

// LoadFile decodes the image at path.
func LoadFile(path string) ([]atlaspack.Source, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name, err := atlaspack.NormalizeName(stem)
	if err != nil {
		return nil, fmt.Errorf("importer: %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".gif") {
		return loadGIF(path, name)
	}
	buf, err := pixel.Load(path)
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}
	return []atlaspack.Source{{Name: name, Origin: path, Pixels: buf}}, nil
}

// LoadPaths loads every path. Directories are walked recursively and their
// supported files loaded in lexical order; unsupported files inside a
// directory are skipped, but an unsupported file named directly is an error.
func LoadPaths(paths []string) ([]atlaspack.Source, error) {
	var out []atlaspack.Source
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("importer: %w", err)
		}
		if !info.IsDir() {
			srcs, err := LoadFile(p)
			if err != nil {
				return nil, err
			}
			out = append(out, srcs...)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !Supported(path) {
				return nil
			}
			srcs, err := LoadFile(path)
			if err != nil {
				return err
			}
			out = append(out, srcs...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func loadGIF(path, name string) ([]atlaspack.Source, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("importer: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("importer: decode %s: %w", path, err)
	}
	return gifSources(path, name, g)
}

func gifSources(path, name string, g *gif.GIF) ([]atlaspack.Source, error) {
	frames := Composite(g)
	if len(frames) == 0 || slices.Contains(frames, nil) {
		return nil, fmt.Errorf("importer: %s: %w", path, ErrEmptyImage)
	}
	if len(frames) == 1 {
		return []atlaspack.Source{{Name: name, Origin: path, Pixels: frames[0]}}, nil
	}
	out := make([]atlaspack.Source, len(frames))
	for i, fr := range frames {
		out[i] = atlaspack.Source{
			Name:   fmt.Sprintf("%s_%03d", name, i),
			Origin: fmt.Sprintf("%s#%d", path, i),
			Pixels: fr,
		}
	}
	return out, nil
}

// Composite renders every frame of g as a full-canvas buffer. Each frame is
// drawn over the canvas left by its predecessor after that predecessor's
// disposal method has been applied. A zero-size canvas yields nil frames.
func Composite(g *gif.GIF) []*pixel.Buffer {
	w, h := g.Config.Width, g.Config.Height
	if w == 0 || h == 0 {
		for _, img := range g.Image {
			b := img.Bounds()
			w, h = max(w, b.Max.X), max(h, b.Max.Y)
		}
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	out := make([]*pixel.Buffer, 0, len(g.Image))
	for i, img := range g.Image {
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		var saved *image.NRGBA
		if disposal == gif.DisposalPrevious {
			saved = image.NewNRGBA(canvas.Rect)
			copy(saved.Pix, canvas.Pix)
		}

		bounds := img.Bounds().Intersect(canvas.Rect)
		xdraw.Draw(canvas, bounds, img, bounds.Min, xdraw.Over)
		out = append(out, pixel.FromImage(canvas))

		switch disposal {
		case gif.DisposalBackground:
			xdraw.Draw(canvas, bounds, image.Transparent, image.Point{}, xdraw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}
	return out
}
