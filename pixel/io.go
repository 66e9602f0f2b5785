package pixel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	// Formats accepted by Decode.
	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyData is returned when there is nothing to decode.
var ErrEmptyData = errors.New("pixel: empty data")

// FromImage converts any image.Image into a new Buffer.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.Draw(nrgba, nrgba.Rect, img, bounds.Min, xdraw.Src)
	} else {
		nrgba = &image.NRGBA{
			Pix:    bytes.Clone(nrgba.Pix),
			Stride: nrgba.Stride,
			Rect:   nrgba.Rect,
		}
	}
	b, _ := FromRaw(nrgba.Pix, bounds.Dx(), bounds.Dy(), nrgba.Stride)
	return b
}

// ToNRGBA copies b into a standard library image.
func (b *Buffer) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(b.Rect())
	for y := range b.height {
		copy(out.Pix[y*out.Stride:], b.RowBytes(y))
	}
	return out
}

// Decode decodes PNG, JPEG, GIF (first frame), BMP, TIFF or WebP data.
func Decode(r io.Reader) (*Buffer, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("pixel: decode: %w", err)
	}
	b := FromImage(img)
	if b == nil {
		return nil, ErrInvalidDimensions
	}
	return b, nil
}

// DecodeBytes decodes an encoded image held in memory.
func DecodeBytes(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	return Decode(bytes.NewReader(data))
}

// Load decodes the image file at path.
func Load(path string) (*Buffer, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("pixel: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// EncodePNG writes b as a PNG image.
func (b *Buffer) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, b.ToNRGBA()); err != nil {
		return fmt.Errorf("pixel: encode PNG: %w", err)
	}
	return nil
}

// SavePNG writes b to path as a PNG image.
func (b *Buffer) SavePNG(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("pixel: create file: %w", err)
	}
	if err := b.EncodePNG(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
