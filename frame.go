package atlaspack

import (
	"image"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/atlaspack/pixel"
)

// Frame is one image to be packed. Frames are immutable: the store replaces
// a frame value on every edit, so a *Frame obtained from a snapshot stays
// valid while newer edits happen.
type Frame struct {
	// Name is the unique, NFC-normalized frame identity.
	Name string

	// Source describes where the pixels came from (file path, GIF frame,
	// crop). Informational only.
	Source string

	// Pixels holds the full, untrimmed image. Read-only.
	Pixels *pixel.Buffer

	// Trim is the opaque bounding box within Pixels. It is the zero
	// rectangle when the frame is fully transparent.
	Trim image.Rectangle
}

// Width returns the untrimmed width.
func (f *Frame) Width() int { return f.Pixels.Width() }

// Height returns the untrimmed height.
func (f *Frame) Height() int { return f.Pixels.Height() }

// Empty reports whether the frame has no opaque pixel.
func (f *Frame) Empty() bool { return f.Trim.Empty() }

// Trimmed returns a read-only view of the trimmed region, or nil for an
// empty frame.
func (f *Frame) Trimmed() *pixel.Buffer {
	if f.Empty() {
		return nil
	}
	return f.Pixels.SubImage(f.Trim)
}

// Item returns the packer input describing f.
func (f *Frame) Item() Item {
	return Item{
		ID:           f.Name,
		Width:        f.Trim.Dx(),
		Height:       f.Trim.Dy(),
		SourceWidth:  f.Width(),
		SourceHeight: f.Height(),
		TrimX:        f.Trim.Min.X,
		TrimY:        f.Trim.Min.Y,
	}
}

// NormalizeName returns the canonical form of a frame name: surrounding
// whitespace removed and Unicode NFC applied, so names decoded from
// different filesystems compare and sort identically.
func NormalizeName(name string) (string, error) {
	n := norm.NFC.String(strings.TrimSpace(name))
	if n == "" {
		return "", ErrInvalidName
	}
	return n, nil
}

// FrameSource looks frames up by name. *Snapshot implements it.
type FrameSource interface {
	Frame(name string) (*Frame, bool)
}
