// Package metadata reads and writes atlas descriptions in the JSON layout
// used by TexturePacker, which most game engines load directly.
//
// Two layouts are supported. The array layout lists one texture per page
// and handles any number of pages:
//
//	{
//	  "textures": [
//	    {"id": 0, "image": "atlas-0.png", "size": {"w": 256, "h": 128},
//	     "format": "RGBA8888", "scale": "1",
//	     "frames": {"hero": {"page": 0, "frame": {...}, ...}}}
//	  ],
//	  "empty": {"blank": {"page": -1, "frame": {"x": 0, "y": 0, "w": 0, "h": 0}, "empty": true, ...}},
//	  "meta": {"app": "atlaspack", "version": "1.0", "padding": 2, "method": "packed"}
//	}
//
// The hash layout holds a single page, with the frames at the top level and
// the image reference in meta.
//
// For every frame, "frame" is the rectangle the stored pixels cover on the
// page; for a rotated frame its w and h are the rotated (stored) size, and
// the pixels are stored rotated 90° clockwise. "spriteSourceSize" is the
// trim offset and trimmed size within the untrimmed frame, and "sourceSize"
// is the untrimmed size.
//
// Output is deterministic: object keys are sorted, no floating point values
// are written, and the document ends with a newline.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/gogpu/atlaspack"
)

// Sentinel errors.
var (
	ErrMultiPage     = errors.New("metadata: hash layout holds a single page")
	ErrUnknownLayout = errors.New("metadata: document has neither \"textures\" nor \"frames\"")
	ErrInvalidFormat = errors.New("metadata: unknown format")
	ErrUnsafePath    = errors.New("metadata: path escapes its directory")
)

// Format selects the JSON layout.
type Format uint8

const (
	FormatArray Format = iota
	FormatHash
)

var formatNames = [...]string{"array", "hash"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat converts "array" or "hash" to a Format.
func ParseFormat(s string) (Format, error) {
	if i := slices.Index(formatNames[:], s); i >= 0 {
		return Format(i), nil
	}
	return 0, fmt.Errorf("%w %q", ErrInvalidFormat, s)
}

// Defaults for Options.
const (
	DefaultImagePattern = "atlas-%d.png"
	DefaultApp          = "atlaspack"
	DefaultVersion      = "1.0"
)

// Options controls encoding.
type Options struct {
	// ImagePattern names page images; it is formatted with the page index.
	ImagePattern string
	Format       Format
	App          string
	Version      string
}

func (o Options) withDefaults() Options {
	if o.ImagePattern == "" {
		o.ImagePattern = DefaultImagePattern
	}
	if o.App == "" {
		o.App = DefaultApp
	}
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	return o
}

// Rect is an integer rectangle.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Size is an integer size.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Frame is the description of one frame.
type Frame struct {
	// Page is the texture index, -1 for empty frames.
	Page             int  `json:"page"`
	Frame            Rect `json:"frame"`
	Rotated          bool `json:"rotated"`
	Trimmed          bool `json:"trimmed"`
	Empty            bool `json:"empty,omitempty"`
	SpriteSourceSize Rect `json:"spriteSourceSize"`
	SourceSize       Size `json:"sourceSize"`
}

// Texture describes one page image and the frames stored on it.
type Texture struct {
	ID     int              `json:"id"`
	Image  string           `json:"image"`
	Size   Size             `json:"size"`
	Format string           `json:"format"`
	Scale  string           `json:"scale"`
	Frames map[string]Frame `json:"frames"`
}

// Meta carries document-level information.
type Meta struct {
	App     string `json:"app"`
	Version string `json:"version"`
	Image   string `json:"image,omitempty"`
	Size    *Size  `json:"size,omitempty"`
	Format  string `json:"format,omitempty"`
	Scale   string `json:"scale,omitempty"`
	Padding int    `json:"padding"`
	Method  string `json:"method,omitempty"`
}

// Sheet is a decoded or to-be-encoded atlas description. Decoding a hash
// document yields a Sheet with a single texture.
type Sheet struct {
	Textures []Texture
	Empty    map[string]Frame
	Meta     Meta
}

// Frame returns the description of name, searching every texture and the
// empty frames.
func (s *Sheet) Frame(name string) (Frame, bool) {
	for _, t := range s.Textures {
		if f, ok := t.Frames[name]; ok {
			return f, true
		}
	}
	f, ok := s.Empty[name]
	return f, ok
}

// Names returns every frame name, empty frames included, sorted.
func (s *Sheet) Names() []string {
	var names []string
	for _, t := range s.Textures {
		for n := range t.Frames {
			names = append(names, n)
		}
	}
	for n := range s.Empty {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

const (
	pixelFormat = "RGBA8888"
	scaleOne    = "1"
)

// FromLayout describes layout as a Sheet.
func FromLayout(layout *atlaspack.Layout, opts Options) *Sheet {
	opts = opts.withDefaults()
	s := &Sheet{
		Textures: make([]Texture, len(layout.Pages)),
		Meta: Meta{
			App:     opts.App,
			Version: opts.Version,
			Padding: layout.Padding,
			Method:  layout.Method.String(),
		},
	}
	for i, p := range layout.Pages {
		t := Texture{
			ID:     p.Index,
			Image:  fmt.Sprintf(opts.ImagePattern, p.Index),
			Size:   Size{W: p.Width, H: p.Height},
			Format: pixelFormat,
			Scale:  scaleOne,
			Frames: make(map[string]Frame, len(p.Frames)),
		}
		for _, pf := range p.Frames {
			b := pf.Bounds()
			t.Frames[pf.ID] = Frame{
				Page:             p.Index,
				Frame:            Rect{X: b.Min.X, Y: b.Min.Y, W: b.Dx(), H: b.Dy()},
				Rotated:          pf.Rotated(),
				Trimmed:          pf.Trimmed(),
				SpriteSourceSize: Rect{X: pf.TrimX, Y: pf.TrimY, W: pf.Width, H: pf.Height},
				SourceSize:       Size{W: pf.SourceWidth, H: pf.SourceHeight},
			}
		}
		s.Textures[i] = t
	}
	if len(layout.Empty) > 0 {
		s.Empty = make(map[string]Frame, len(layout.Empty))
		for _, e := range layout.Empty {
			s.Empty[e.ID] = Frame{
				Page:             -1,
				Empty:            true,
				Trimmed:          true,
				SpriteSourceSize: Rect{},
				SourceSize:       Size{W: e.SourceWidth, H: e.SourceHeight},
			}
		}
	}
	return s
}

type arrayDoc struct {
	Textures []Texture       `json:"textures"`
	Empty    map[string]Frame `json:"empty,omitempty"`
	Meta     Meta             `json:"meta"`
}

type hashDoc struct {
	Frames map[string]Frame `json:"frames"`
	Empty  map[string]Frame `json:"empty,omitempty"`
	Meta   Meta             `json:"meta"`
}

// Marshal encodes layout in the selected format.
func Marshal(layout *atlaspack.Layout, opts Options) ([]byte, error) {
	return FromLayout(layout, opts).Marshal(opts.Format)
}

// Marshal encodes s in format f.
func (s *Sheet) Marshal(f Format) ([]byte, error) {
	var doc any
	switch f {
	case FormatArray:
		doc = arrayDoc{Textures: s.Textures, Empty: s.Empty, Meta: s.Meta}
	case FormatHash:
		if len(s.Textures) > 1 {
			return nil, fmt.Errorf("%w: layout has %d pages", ErrMultiPage, len(s.Textures))
		}
		meta := s.Meta
		frames := map[string]Frame{}
		if len(s.Textures) == 1 {
			t := s.Textures[0]
			frames = t.Frames
			meta.Image, meta.Format, meta.Scale = t.Image, t.Format, t.Scale
			meta.Size = &Size{W: t.Size.W, H: t.Size.H}
		}
		doc = hashDoc{Frames: frames, Empty: s.Empty, Meta: meta}
	default:
		return nil, fmt.Errorf("%w %v", ErrInvalidFormat, f)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("metadata: encode: %w", err)
	}
	return append(data, '\n'), nil
}

// Encode writes the description of layout to w.
func Encode(w io.Writer, layout *atlaspack.Layout, opts Options) error {
	data, err := Marshal(layout, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile writes the description of layout to path.
func WriteFile(path string, layout *atlaspack.Layout, opts Options) error {
	data, err := Marshal(layout, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Parse decodes a document in either layout.
func Parse(data []byte) (*Sheet, error) {
	var doc struct {
		Textures json.RawMessage  `json:"textures"`
		Frames   json.RawMessage  `json:"frames"`
		Empty    map[string]Frame `json:"empty"`
		Meta     Meta             `json:"meta"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metadata: parse: %w", err)
	}
	s := &Sheet{Empty: doc.Empty, Meta: doc.Meta}
	switch {
	case doc.Textures != nil:
		if err := json.Unmarshal(doc.Textures, &s.Textures); err != nil {
			return nil, fmt.Errorf("metadata: parse textures: %w", err)
		}
		for i := range s.Textures {
			for name, f := range s.Textures[i].Frames {
				f.Page = i
				s.Textures[i].Frames[name] = f
			}
		}
	case doc.Frames != nil:
		t := Texture{Image: s.Meta.Image, Format: s.Meta.Format, Scale: s.Meta.Scale}
		if s.Meta.Size != nil {
			t.Size = *s.Meta.Size
		}
		if err := json.Unmarshal(doc.Frames, &t.Frames); err != nil {
			return nil, fmt.Errorf("metadata: parse frames: %w", err)
		}
		s.Textures = []Texture{t}
	default:
		return nil, ErrUnknownLayout
	}
	return s, nil
}

// Decode reads and parses a document from r.
func Decode(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("metadata: read: %w", err)
	}
	return Parse(data)
}

// ReadFile parses the document at path.
func ReadFile(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
