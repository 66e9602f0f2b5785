package atlaspack

import (
	"errors"
	"fmt"
	"image"
)

// Sentinel errors. Typed errors below unwrap to these, so callers can test
// with errors.Is and still extract details with errors.As.
var (
	// ErrFrameTooLarge means a frame cannot fit on a page in any orientation.
	ErrFrameTooLarge = errors.New("atlaspack: frame too large for page")

	// ErrPageOverflow means a placement was computed outside its page.
	// It always indicates a packer defect.
	ErrPageOverflow = errors.New("atlaspack: placement outside page bounds")

	// ErrOverlap means two placements on one page intersect.
	// It always indicates a packer defect.
	ErrOverlap = errors.New("atlaspack: placements overlap")

	// ErrCancelled means a packing pass was cancelled before it committed.
	ErrCancelled = errors.New("atlaspack: packing cancelled")

	// ErrDuplicateFrame is returned when adding a frame whose name is taken.
	ErrDuplicateFrame = errors.New("atlaspack: duplicate frame name")

	// ErrFrameNotFound is returned when a named frame does not exist.
	ErrFrameNotFound = errors.New("atlaspack: frame not found")

	// ErrInvalidName is returned for empty frame names.
	ErrInvalidName = errors.New("atlaspack: invalid frame name")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("atlaspack: invalid config")

	// ErrNilPixels is returned when a frame is given no pixel buffer.
	ErrNilPixels = errors.New("atlaspack: nil pixel buffer")

	// ErrClosed is returned by a Controller after Close.
	ErrClosed = errors.New("atlaspack: controller closed")
)

// FrameTooLargeError identifies the frame that aborted a packing pass.
type FrameTooLargeError struct {
	ID        string
	Width     int // trimmed width including padding
	Height    int // trimmed height including padding
	MaxWidth  int
	MaxHeight int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("atlaspack: frame %q (%dx%d with padding) does not fit a %dx%d page",
		e.ID, e.Width, e.Height, e.MaxWidth, e.MaxHeight)
}

func (e *FrameTooLargeError) Unwrap() error { return ErrFrameTooLarge }

// PageOverflowError reports a placement outside its page.
type PageOverflowError struct {
	ID     string
	Page   int
	Rect   image.Rectangle // occupied rectangle including padding
	Bounds image.Rectangle // page bounds
}

func (e *PageOverflowError) Error() string {
	return fmt.Sprintf("atlaspack: frame %q occupies %v outside page %d bounds %v",
		e.ID, e.Rect, e.Page, e.Bounds)
}

func (e *PageOverflowError) Unwrap() error { return ErrPageOverflow }

// OverlapError reports two intersecting placements.
type OverlapError struct {
	Page int
	A, B string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("atlaspack: frames %q and %q overlap on page %d", e.A, e.B, e.Page)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// CancelledError reports a pass abandoned because its context ended.
type CancelledError struct {
	Cause error // usually context.Canceled or context.DeadlineExceeded
}

func (e *CancelledError) Error() string {
	if e.Cause == nil {
		return ErrCancelled.Error()
	}
	return ErrCancelled.Error() + ": " + e.Cause.Error()
}

func (e *CancelledError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrCancelled}
	}
	return []error{ErrCancelled, e.Cause}
}

// ConfigError describes an invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlaspack: invalid config." + e.Field + ": " + e.Reason
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// cancelled converts a context error into a *CancelledError.
func cancelled(err error) error {
	if err == nil {
		return nil
	}
	return &CancelledError{Cause: err}
}
