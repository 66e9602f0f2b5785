package pixel

import "image"

// Copy copies the sr region of src into dst with its top-left corner at dp.
// Pixels are replaced, not blended. The region must lie inside both buffers.
func Copy(dst *Buffer, dp image.Point, src *Buffer, sr image.Rectangle) error {
	if sr.Empty() || !sr.In(src.Rect()) {
		return ErrOutOfBounds
	}
	dr := sr.Sub(sr.Min).Add(dp)
	if !dr.In(dst.Rect()) {
		return ErrOutOfBounds
	}
	n := sr.Dx() * BytesPerPixel
	for y := range sr.Dy() {
		s := src.PixelOffset(sr.Min.X, sr.Min.Y+y)
		d := dst.PixelOffset(dp.X, dp.Y+y)
		copy(dst.pix[d:d+n], src.pix[s:s+n])
	}
	return nil
}

// Rotate90 returns a new buffer holding b rotated 90 degrees clockwise.
// The result is b.Height() wide and b.Width() tall.
func Rotate90(b *Buffer) *Buffer {
	out, _ := New(b.height, b.width)
	for y := range b.height {
		row := b.RowBytes(y)
		dx := b.height - 1 - y
		for x := range b.width {
			d := out.PixelOffset(dx, x)
			copy(out.pix[d:d+4], row[x*4:x*4+4])
		}
	}
	return out
}

// Rotate270 returns a new buffer holding b rotated 90 degrees
// counter-clockwise. It undoes Rotate90.
func Rotate270(b *Buffer) *Buffer {
	out, _ := New(b.height, b.width)
	for y := range b.height {
		row := b.RowBytes(y)
		for x := range b.width {
			d := out.PixelOffset(y, b.width-1-x)
			copy(out.pix[d:d+4], row[x*4:x*4+4])
		}
	}
	return out
}

// Extrude replicates the edge pixels of inner outward by n pixels on every
// side, clipped to the buffer bounds. Corners take the nearest corner pixel.
func Extrude(b *Buffer, inner image.Rectangle, n int) {
	if n <= 0 || inner.Empty() {
		return
	}
	outer := inner.Inset(-n).Intersect(b.Rect())
	for y := outer.Min.Y; y < outer.Max.Y; y++ {
		sy := clamp(y, inner.Min.Y, inner.Max.Y-1)
		for x := outer.Min.X; x < outer.Max.X; x++ {
			if image.Pt(x, y).In(inner) {
				continue
			}
			sx := clamp(x, inner.Min.X, inner.Max.X-1)
			s := b.PixelOffset(sx, sy)
			d := b.PixelOffset(x, y)
			copy(b.pix[d:d+4], b.pix[s:s+4])
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
