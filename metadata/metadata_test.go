package metadata

import (
	"bytes"
	"context"
	"errors"
	"image"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/atlaspack"
	"github.com/gogpu/atlaspack/pixel"
)

// sampleLayout has one trimmed frame, one rotated frame and one empty frame.
func sampleLayout() *atlaspack.Layout {
	return &atlaspack.Layout{
		Padding: 1,
		Pages: []atlaspack.Page{{
			Index: 0, Width: 32, Height: 16,
			Frames: []atlaspack.PlacedFrame{
				{ID: "hero", X: 1, Y: 1, Width: 10, Height: 6, SourceWidth: 12, SourceHeight: 8, TrimX: 1, TrimY: 2},
				{ID: "pole", X: 13, Y: 1, Width: 12, Height: 4, Orientation: atlaspack.Rotated90, SourceWidth: 12, SourceHeight: 4},
			},
		}},
		Empty: []atlaspack.EmptyFrame{{ID: "ghost", SourceWidth: 5, SourceHeight: 5}},
	}
}

func TestMarshal_Array(t *testing.T) {
	data, err := Marshal(sampleLayout(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(data, []byte("}\n")) {
		t.Error("document does not end with a newline")
	}
	for _, want := range []string{`"image": "atlas-0.png"`, `"page": -1`, `"app": "atlaspack"`, `"method": "packed"`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("output lacks %s", want)
		}
	}

	s, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	tests := []struct {
		name string
		want Frame
	}{
		{"hero", Frame{
			Frame: Rect{X: 1, Y: 1, W: 10, H: 6}, Trimmed: true,
			SpriteSourceSize: Rect{X: 1, Y: 2, W: 10, H: 6}, SourceSize: Size{W: 12, H: 8},
		}},
		{"pole", Frame{
			Frame: Rect{X: 13, Y: 1, W: 4, H: 12}, Rotated: true,
			SpriteSourceSize: Rect{W: 12, H: 4}, SourceSize: Size{W: 12, H: 4},
		}},
		{"ghost", Frame{Page: -1, Trimmed: true, Empty: true, SourceSize: Size{W: 5, H: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Frame(tt.name)
			if !ok {
				t.Fatal("frame missing")
			}
			if got != tt.want {
				t.Errorf("Frame(%q) = %+v, want %+v", tt.name, got, tt.want)
			}
		})
	}
	if got := s.Names(); !slices.Equal(got, []string{"ghost", "hero", "pole"}) {
		t.Errorf("Names() = %v", got)
	}
	if s.Meta.Padding != 1 {
		t.Errorf("Meta.Padding = %d", s.Meta.Padding)
	}
}

func TestMarshal_HashMatchesArray(t *testing.T) {
	opts := Options{ImagePattern: "sheet_%d.png"}
	arr, err := Marshal(sampleLayout(), opts)
	if err != nil {
		t.Fatal(err)
	}
	opts.Format = FormatHash
	hash, err := Marshal(sampleLayout(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(hash, []byte(`"textures"`)) {
		t.Error("hash output has a textures list")
	}

	a, err := Parse(arr)
	if err != nil {
		t.Fatal(err)
	}
	h, err := Parse(hash)
	if err != nil {
		t.Fatal(err)
	}
	if h.Meta.Image != "sheet_0.png" || h.Meta.Size == nil || *h.Meta.Size != (Size{W: 32, H: 16}) {
		t.Errorf("hash meta = %+v", h.Meta)
	}
	if !reflect.DeepEqual(a.Textures, h.Textures) {
		t.Errorf("hash textures = %+v, want %+v", h.Textures, a.Textures)
	}
	if !reflect.DeepEqual(a.Empty, h.Empty) {
		t.Errorf("hash empty = %+v, want %+v", h.Empty, a.Empty)
	}
}

func TestMarshal_HashRejectsMultiPage(t *testing.T) {
	l := sampleLayout()
	l.Pages = append(l.Pages, atlaspack.Page{Index: 1, Width: 8, Height: 8})
	if _, err := Marshal(l, Options{Format: FormatHash}); !errors.Is(err, ErrMultiPage) {
		t.Errorf("Marshal(hash, 2 pages) = %v, want ErrMultiPage", err)
	}
	if _, err := Marshal(l, Options{Format: Format(7)}); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Marshal(Format(7)) = %v, want ErrInvalidFormat", err)
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	items := []atlaspack.Item{
		{ID: "c", Width: 9, Height: 3, SourceWidth: 9, SourceHeight: 3},
		{ID: "a", Width: 5, Height: 7, SourceWidth: 6, SourceHeight: 8, TrimX: 1},
		{ID: "b", Width: 5, Height: 7, SourceWidth: 5, SourceHeight: 7},
		{ID: "e", SourceWidth: 4, SourceHeight: 4},
	}
	encode := func(items []atlaspack.Item) []byte {
		t.Helper()
		l, err := atlaspack.Pack(context.Background(), items, atlaspack.DefaultConfig())
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := Encode(&buf, l, Options{}); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}
	first := encode(items)
	slices.Reverse(items)
	if second := encode(items); !bytes.Equal(first, second) {
		t.Errorf("output depends on input order:\n%s\n%s", first, second)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatArray, FormatHash} {
		got, err := ParseFormat(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v", f.String(), got, err)
		}
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseFormat(xml) = %v", err)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"no frames", `{"meta": {}}`, ErrUnknownLayout},
		{"not json", `frames`, nil},
		{"bad textures", `{"textures": 3}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.data))
			if err == nil {
				t.Fatal("Decode() succeeded")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// boxed returns a transparent w×h buffer with a patterned opaque box.
func boxed(w, h int, box image.Rectangle) *pixel.Buffer {
	b, err := pixel.New(w, h)
	if err != nil {
		panic(err)
	}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			_ = b.SetRGBA(x, y, uint8(x*11), uint8(y*5), uint8(x+y), 255)
		}
	}
	return b
}

func TestUnpackRoundTrip(t *testing.T) {
	blank, _ := pixel.New(3, 2)
	originals := map[string]*pixel.Buffer{
		"hero":  boxed(12, 12, image.Rect(2, 2, 10, 9)),
		"strip": boxed(8, 40, image.Rect(0, 0, 8, 40)),
		"dot":   boxed(5, 5, image.Rect(4, 4, 5, 5)),
		"blank": blank,
	}
	store := atlaspack.NewStore(0)
	t.Cleanup(store.Close)
	for _, name := range []string{"blank", "dot", "hero", "strip"} {
		if err := store.Add(name, "", originals[name]); err != nil {
			t.Fatal(err)
		}
	}

	cfg := atlaspack.DefaultConfig()
	cfg.MaxPageWidth, cfg.MaxPageHeight = 64, 32
	cfg.GrowPolicy = atlaspack.GrowFixed
	cfg.PageSizePolicy = atlaspack.SizeExact
	cfg.Padding = 1
	cfg.AllowRotation = true
	atlas, err := atlaspack.Build(context.Background(), store.Snapshot(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if _, err := atlas.SavePages(dir, DefaultImagePattern); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "atlas.json")
	if err := WriteFile(path, atlas.Layout, Options{}); err != nil {
		t.Fatal(err)
	}

	sheet, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := sheet.Frame("strip"); !f.Rotated {
		t.Fatal("strip was not stored rotated")
	}
	pages, err := LoadPages(sheet, dir)
	if err != nil {
		t.Fatal(err)
	}
	frames, err := Unpack(sheet, pages)
	if err != nil {
		t.Fatalf("Unpack() = %v", err)
	}
	if len(frames) != len(originals) {
		t.Fatalf("Unpack() returned %d frames, want %d", len(frames), len(originals))
	}
	for name, want := range originals {
		if got := frames[name]; got == nil || !got.Equal(want) {
			t.Errorf("%s did not survive the round trip", name)
		}
	}
}

func TestUnpack_Errors(t *testing.T) {
	s, err := Parse(mustMarshal(t, sampleLayout()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unpack(s, nil); err == nil {
		t.Error("Unpack() without pages succeeded")
	}
	small, _ := pixel.New(8, 8)
	if _, err := Unpack(s, []*pixel.Buffer{small}); !errors.Is(err, pixel.ErrOutOfBounds) {
		t.Errorf("Unpack(small page) = %v, want ErrOutOfBounds", err)
	}
	if _, err := LoadPages(s, t.TempDir()); err == nil {
		t.Error("LoadPages() of missing images succeeded")
	}
}

func TestLoadPages_RejectsEscapingImage(t *testing.T) {
	data := bytes.Replace(mustMarshal(t, sampleLayout()), []byte(`"atlas-0.png"`), []byte(`"../atlas-0.png"`), 1)
	s, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPages(s, t.TempDir()); !errors.Is(err, ErrUnsafePath) {
		t.Errorf("LoadPages(../atlas-0.png) = %v, want ErrUnsafePath", err)
	}
}

func mustMarshal(t *testing.T, l *atlaspack.Layout) []byte {
	t.Helper()
	data, err := Marshal(l, Options{})
	if err != nil {
		t.Fatal(err)
	}
	return data
}
