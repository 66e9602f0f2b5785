package atlaspack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
)

// Page size limits accepted by Validate.
const (
	// MaxPageDimension is the largest page side accepted (common GPU texture limit).
	MaxPageDimension = 16384

	// DefaultPageSize is the default maximum page side.
	DefaultPageSize = 2048

	// DefaultPadding is the default padding around each frame.
	DefaultPadding = 2
)

// GrowPolicy controls whether pages start at full size or grow on demand.
type GrowPolicy uint8

const (
	// GrowGrowable starts each page at the size of its first frame and grows it
	// up to the maximum before opening another page.
	GrowGrowable GrowPolicy = iota
	// GrowFixed makes every page exactly the maximum size.
	GrowFixed
)

var growPolicyNames = [...]string{GrowGrowable: "growable", GrowFixed: "fixed"}

func (p GrowPolicy) String() string { return enumString(growPolicyNames[:], int(p)) }

// MarshalText implements encoding.TextMarshaler.
func (p GrowPolicy) MarshalText() ([]byte, error) { return enumMarshal(growPolicyNames[:], int(p)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *GrowPolicy) UnmarshalText(b []byte) error {
	return enumUnmarshal(growPolicyNames[:], "growPolicy", b, (*uint8)(p))
}

// PageSizePolicy controls the allowed page dimensions.
type PageSizePolicy uint8

const (
	// SizePowerOfTwo restricts page sides to powers of two.
	SizePowerOfTwo PageSizePolicy = iota
	// SizeExact allows any page side.
	SizeExact
)

var pageSizePolicyNames = [...]string{SizePowerOfTwo: "powerOfTwo", SizeExact: "exact"}

func (p PageSizePolicy) String() string { return enumString(pageSizePolicyNames[:], int(p)) }

// MarshalText implements encoding.TextMarshaler.
func (p PageSizePolicy) MarshalText() ([]byte, error) {
	return enumMarshal(pageSizePolicyNames[:], int(p))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PageSizePolicy) UnmarshalText(b []byte) error {
	return enumUnmarshal(pageSizePolicyNames[:], "pageSizePolicy", b, (*uint8)(p))
}

// PaddingMode controls how the padding around each frame is filled.
type PaddingMode uint8

const (
	// PadTransparent leaves padding fully transparent.
	PadTransparent PaddingMode = iota
	// PadClampEdge replicates the frame's edge pixels into its padding.
	PadClampEdge
)

var paddingModeNames = [...]string{PadTransparent: "transparent", PadClampEdge: "clamp-edge"}

func (m PaddingMode) String() string { return enumString(paddingModeNames[:], int(m)) }

// MarshalText implements encoding.TextMarshaler.
func (m PaddingMode) MarshalText() ([]byte, error) { return enumMarshal(paddingModeNames[:], int(m)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PaddingMode) UnmarshalText(b []byte) error {
	return enumUnmarshal(paddingModeNames[:], "paddingMode", b, (*uint8)(m))
}

// Method selects the layout algorithm.
type Method uint8

const (
	// MethodPacked uses the guillotine best-area-fit packer.
	MethodPacked Method = iota
	// MethodGrid places frames in uniform cells sized to the largest frame.
	MethodGrid
)

var methodNames = [...]string{MethodPacked: "packed", MethodGrid: "grid"}

func (m Method) String() string { return enumString(methodNames[:], int(m)) }

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) { return enumMarshal(methodNames[:], int(m)) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	return enumUnmarshal(methodNames[:], "method", b, (*uint8)(m))
}

// Config holds the packing configuration. The zero value is not valid; start
// from DefaultConfig.
type Config struct {
	// MaxPageWidth and MaxPageHeight bound every page. Under SizePowerOfTwo
	// they are rounded down to powers of two.
	MaxPageWidth  int `json:"maxPageWidth"`
	MaxPageHeight int `json:"maxPageHeight"`

	// Padding is the number of pixels reserved on every side of each frame.
	Padding int `json:"padding"`

	// AllowRotation lets the packer store frames rotated 90° clockwise.
	AllowRotation bool `json:"allowRotation"`

	GrowPolicy     GrowPolicy     `json:"growPolicy"`
	PageSizePolicy PageSizePolicy `json:"pageSizePolicy"`
	PaddingMode    PaddingMode    `json:"paddingMode"`

	// AlphaTrimThreshold: pixels with alpha strictly greater count as opaque.
	AlphaTrimThreshold uint8 `json:"alphaTrimThreshold"`

	Method Method `json:"method"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxPageWidth:   DefaultPageSize,
		MaxPageHeight:  DefaultPageSize,
		Padding:        DefaultPadding,
		GrowPolicy:     GrowGrowable,
		PageSizePolicy: SizePowerOfTwo,
		PaddingMode:    PadTransparent,
		Method:         MethodPacked,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxPageWidth < 1 || c.MaxPageWidth > MaxPageDimension {
		return &ConfigError{Field: "MaxPageWidth", Reason: fmt.Sprintf("must be in [1, %d]", MaxPageDimension)}
	}
	if c.MaxPageHeight < 1 || c.MaxPageHeight > MaxPageDimension {
		return &ConfigError{Field: "MaxPageHeight", Reason: fmt.Sprintf("must be in [1, %d]", MaxPageDimension)}
	}
	if c.Padding < 0 {
		return &ConfigError{Field: "Padding", Reason: "must be non-negative"}
	}
	w, h := c.MaxPageSize()
	if 2*c.Padding >= min(w, h) {
		return &ConfigError{Field: "Padding", Reason: "leaves no room for pixels on the page"}
	}
	if int(c.GrowPolicy) >= len(growPolicyNames) {
		return &ConfigError{Field: "GrowPolicy", Reason: "unknown value"}
	}
	if int(c.PageSizePolicy) >= len(pageSizePolicyNames) {
		return &ConfigError{Field: "PageSizePolicy", Reason: "unknown value"}
	}
	if int(c.PaddingMode) >= len(paddingModeNames) {
		return &ConfigError{Field: "PaddingMode", Reason: "unknown value"}
	}
	if int(c.Method) >= len(methodNames) {
		return &ConfigError{Field: "Method", Reason: "unknown value"}
	}
	return nil
}

// MaxPageSize returns the effective maximum page size after applying the
// page size policy.
func (c *Config) MaxPageSize() (w, h int) {
	if c.PageSizePolicy == SizePowerOfTwo {
		return floorPow2(c.MaxPageWidth), floorPow2(c.MaxPageHeight)
	}
	return c.MaxPageWidth, c.MaxPageHeight
}

// ParseConfig decodes a JSON configuration on top of DefaultConfig and
// validates the result. Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("atlaspack: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a JSON configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("atlaspack: read config: %w", err)
	}
	return ParseConfig(data)
}

// floorPow2 returns the largest power of two <= v (v >= 1).
func floorPow2(v int) int {
	if v < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(v)) - 1)
}

// ceilPow2 returns the smallest power of two >= v (v >= 1).
func ceilPow2(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(v-1))
}

func enumString(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("unknown(%d)", v)
	}
	return names[v]
}

func enumMarshal(names []string, v int) ([]byte, error) {
	if v < 0 || v >= len(names) {
		return nil, fmt.Errorf("%w: enum value %d out of range", ErrInvalidConfig, v)
	}
	return []byte(names[v]), nil
}

func enumUnmarshal(names []string, field string, b []byte, dst *uint8) error {
	for i, n := range names {
		if string(b) == n {
			*dst = uint8(i)
			return nil
		}
	}
	return &ConfigError{Field: field, Reason: fmt.Sprintf("unknown value %q", b)}
}
