// Package pixel provides the RGBA pixel buffers that frames and atlas pages
// are stored in.
//
// A Buffer holds 8-bit, non-premultiplied RGBA pixels in a contiguous byte
// slice with an explicit stride, so that sub-rectangle views can share the
// parent's memory. Buffer implements image.Image and draw.Image, which lets
// it interoperate with the standard library and golang.org/x/image/draw.
package pixel

import (
	"errors"
	"image"
	"image/color"
)

// Common errors for buffer operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("pixel: invalid dimensions")

	// ErrInvalidStride is returned when stride is less than 4*width.
	ErrInvalidStride = errors.New("pixel: stride too small for width")

	// ErrDataTooSmall is returned when provided data is smaller than required.
	ErrDataTooSmall = errors.New("pixel: data buffer too small")

	// ErrOutOfBounds is returned when a coordinate or rectangle lies outside the buffer.
	ErrOutOfBounds = errors.New("pixel: coordinates out of bounds")
)

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// Buffer is an RGBA8 (non-premultiplied) pixel buffer.
//
// Thread safety: concurrent reads are safe. Writes require external
// synchronization.
type Buffer struct {
	pix    []byte
	width  int
	height int
	stride int
}

// New allocates a fully transparent buffer.
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	stride := width * BytesPerPixel
	return &Buffer{
		pix:    make([]byte, stride*height),
		width:  width,
		height: height,
		stride: stride,
	}, nil
}

// FromRaw wraps existing RGBA8 data without copying.
// The caller must not modify data while the Buffer is in use.
func FromRaw(data []byte, width, height, stride int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if stride < width*BytesPerPixel {
		return nil, ErrInvalidStride
	}
	need := (height-1)*stride + width*BytesPerPixel
	if len(data) < need {
		return nil, ErrDataTooSmall
	}
	return &Buffer{
		pix:    data[:need],
		width:  width,
		height: height,
		stride: stride,
	}, nil
}

// Clone returns a deep copy with a tight stride.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		pix:    make([]byte, b.width*b.height*BytesPerPixel),
		width:  b.width,
		height: b.height,
		stride: b.width * BytesPerPixel,
	}
	for y := range b.height {
		copy(out.RowBytes(y), b.RowBytes(y))
	}
	return out
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.height }

// Stride returns the number of bytes between the starts of adjacent rows.
func (b *Buffer) Stride() int { return b.stride }

// Rect returns the buffer bounds anchored at the origin.
func (b *Buffer) Rect() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// RowBytes returns the pixel bytes of row y, or nil if y is out of range.
func (b *Buffer) RowBytes(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	start := y * b.stride
	return b.pix[start : start+b.width*BytesPerPixel]
}

// PixelOffset returns the byte offset of pixel (x, y), or -1 when out of bounds.
func (b *Buffer) PixelOffset(x, y int) int {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return -1
	}
	return y*b.stride + x*BytesPerPixel
}

// RGBA returns the pixel at (x, y). Out-of-bounds reads return transparent black.
func (b *Buffer) RGBA(x, y int) (r, g, bl, a uint8) {
	off := b.PixelOffset(x, y)
	if off < 0 {
		return 0, 0, 0, 0
	}
	p := b.pix[off : off+4 : off+4]
	return p[0], p[1], p[2], p[3]
}

// Alpha returns the alpha channel at (x, y), or 0 when out of bounds.
func (b *Buffer) Alpha(x, y int) uint8 {
	off := b.PixelOffset(x, y)
	if off < 0 {
		return 0
	}
	return b.pix[off+3]
}

// SetRGBA writes the pixel at (x, y).
func (b *Buffer) SetRGBA(x, y int, r, g, bl, a uint8) error {
	off := b.PixelOffset(x, y)
	if off < 0 {
		return ErrOutOfBounds
	}
	p := b.pix[off : off+4 : off+4]
	p[0], p[1], p[2], p[3] = r, g, bl, a
	return nil
}

// Fill sets every pixel to the given color.
func (b *Buffer) Fill(r, g, bl, a uint8) {
	for y := range b.height {
		row := b.RowBytes(y)
		for i := 0; i < len(row); i += 4 {
			row[i], row[i+1], row[i+2], row[i+3] = r, g, bl, a
		}
	}
}

// SubImage returns a view of rect that shares memory with b.
// Returns nil if rect is empty or not fully inside the buffer.
func (b *Buffer) SubImage(rect image.Rectangle) *Buffer {
	if rect.Empty() || !rect.In(b.Rect()) {
		return nil
	}
	start := rect.Min.Y*b.stride + rect.Min.X*BytesPerPixel
	end := (rect.Max.Y-1)*b.stride + rect.Max.X*BytesPerPixel
	return &Buffer{
		pix:    b.pix[start:end],
		width:  rect.Dx(),
		height: rect.Dy(),
		stride: b.stride,
	}
}

// Equal reports whether a and b have identical size and pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.width != o.width || b.height != o.height {
		return false
	}
	for y := range b.height {
		if string(b.RowBytes(y)) != string(o.RowBytes(y)) {
			return false
		}
	}
	return true
}

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle { return b.Rect() }

// At implements image.Image.
func (b *Buffer) At(x, y int) color.Color {
	r, g, bl, a := b.RGBA(x, y)
	return color.NRGBA{R: r, G: g, B: bl, A: a}
}

// Set implements draw.Image.
func (b *Buffer) Set(x, y int, c color.Color) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	_ = b.SetRGBA(x, y, n.R, n.G, n.B, n.A)
}
