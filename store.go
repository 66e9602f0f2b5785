package atlaspack

import (
	"context"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/gogpu/atlaspack/internal/parallel"
	"github.com/gogpu/atlaspack/pixel"
	"github.com/gogpu/atlaspack/trimcache"
)

// ChangeKind classifies a store mutation.
type ChangeKind uint8

const (
	FrameAdded ChangeKind = iota
	FrameReplaced
	FrameRemoved
	FramesRetrimmed
)

func (k ChangeKind) String() string {
	switch k {
	case FrameAdded:
		return "added"
	case FrameReplaced:
		return "replaced"
	case FrameRemoved:
		return "removed"
	case FramesRetrimmed:
		return "retrimmed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", uint8(k))
	}
}

// Change describes one store mutation delivered to listeners.
type Change struct {
	Kind    ChangeKind
	Name    string // empty for FramesRetrimmed
	Version uint64 // store version after the change
}

// Source is a decoded image handed to the store by an importer.
type Source struct {
	Name   string
	Origin string
	Pixels *pixel.Buffer
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	cache   trimcache.Cache
	workers int
}

// WithTrimCache makes the store reuse trim boxes across identical pixels.
// The store does not close the cache.
func WithTrimCache(c trimcache.Cache) StoreOption {
	return func(o *storeOptions) { o.cache = c }
}

// WithTrimWorkers sets the number of goroutines used for bulk trimming.
// Zero or negative means GOMAXPROCS.
func WithTrimWorkers(n int) StoreOption {
	return func(o *storeOptions) { o.workers = n }
}

// Store owns the frames of a project.
//
// Every mutation bumps the version and notifies listeners after the store
// lock is released. Pixel buffers are copied on the way in and never
// modified afterwards.
//
// Thread safety: Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	frames    map[string]*Frame
	threshold uint8
	version   uint64

	cache trimcache.Cache
	pool  *parallel.WorkerPool

	lmu       sync.Mutex
	listeners []func(Change)
}

// NewStore creates an empty store trimming at the given alpha threshold.
// Call Close to release its worker goroutines.
func NewStore(threshold uint8, opts ...StoreOption) *Store {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		frames:    make(map[string]*Frame),
		threshold: threshold,
		cache:     o.cache,
		pool:      parallel.NewWorkerPool(o.workers),
	}
}

// Close stops the store's workers.
func (s *Store) Close() {
	s.pool.Close()
}

// OnChange registers fn to be called after every mutation.
// fn runs synchronously on the mutating goroutine and must not block.
func (s *Store) OnChange(fn func(Change)) {
	s.lmu.Lock()
	s.listeners = append(s.listeners, fn)
	s.lmu.Unlock()
}

func (s *Store) notify(c Change) {
	s.lmu.Lock()
	ls := slices.Clone(s.listeners)
	s.lmu.Unlock()
	for _, fn := range ls {
		fn(c)
	}
}

// Add inserts a new frame. The pixels are copied.
func (s *Store) Add(name, origin string, buf *pixel.Buffer) error {
	return s.AddAll(context.Background(), []Source{{Name: name, Origin: origin, Pixels: buf}})
}

// AddAll inserts several frames, trimming them concurrently. Either every
// frame is added or none is.
func (s *Store) AddAll(ctx context.Context, srcs []Source) error {
	if len(srcs) == 0 {
		return nil
	}
	names := make([]string, len(srcs))
	bufs := make([]*pixel.Buffer, len(srcs))
	seen := make(map[string]struct{}, len(srcs))
	for i, src := range srcs {
		n, err := NormalizeName(src.Name)
		if err != nil {
			return fmt.Errorf("atlaspack: add %q: %w", src.Name, err)
		}
		if src.Pixels == nil {
			return fmt.Errorf("atlaspack: add %q: %w", n, ErrNilPixels)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("atlaspack: add %q: %w", n, ErrDuplicateFrame)
		}
		seen[n] = struct{}{}
		names[i] = n
		bufs[i] = src.Pixels.Clone()
	}

	// Trim outside the lock; the threshold is re-checked before commit.
	s.mu.RLock()
	threshold := s.threshold
	s.mu.RUnlock()
	boxes, err := trimAll(ctx, s.pool, bufs, threshold, s.cache)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, n := range names {
		if _, ok := s.frames[n]; ok {
			s.mu.Unlock()
			return fmt.Errorf("atlaspack: add %q: %w", n, ErrDuplicateFrame)
		}
	}
	if s.threshold != threshold {
		for i := range bufs {
			boxes[i] = trimCached(bufs[i], s.threshold, s.cache)
		}
	}
	changes := make([]Change, len(srcs))
	for i, n := range names {
		s.frames[n] = &Frame{Name: n, Source: srcs[i].Origin, Pixels: bufs[i], Trim: boxes[i]}
		s.version++
		changes[i] = Change{Kind: FrameAdded, Name: n, Version: s.version}
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.notify(c)
	}
	return nil
}

// Replace swaps the pixels of an existing frame, re-trimming it.
func (s *Store) Replace(name string, buf *pixel.Buffer) error {
	n, err := NormalizeName(name)
	if err != nil {
		return err
	}
	if buf == nil {
		return fmt.Errorf("atlaspack: replace %q: %w", n, ErrNilPixels)
	}
	buf = buf.Clone()

	s.mu.Lock()
	old, ok := s.frames[n]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("atlaspack: replace %q: %w", n, ErrFrameNotFound)
	}
	s.frames[n] = &Frame{Name: n, Source: old.Source, Pixels: buf, Trim: trimCached(buf, s.threshold, s.cache)}
	s.version++
	c := Change{Kind: FrameReplaced, Name: n, Version: s.version}
	s.mu.Unlock()

	s.notify(c)
	return nil
}

// Crop replaces a frame with the rect sub-region of its current pixels.
func (s *Store) Crop(name string, rect image.Rectangle) error {
	f, ok := s.Get(name)
	if !ok {
		return fmt.Errorf("atlaspack: crop %q: %w", name, ErrFrameNotFound)
	}
	sub := f.Pixels.SubImage(rect)
	if sub == nil {
		return fmt.Errorf("atlaspack: crop %q to %v: %w", name, rect, pixel.ErrOutOfBounds)
	}
	return s.Replace(f.Name, sub)
}

// Remove deletes a frame.
func (s *Store) Remove(name string) error {
	n, err := NormalizeName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.frames[n]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("atlaspack: remove %q: %w", n, ErrFrameNotFound)
	}
	delete(s.frames, n)
	s.version++
	c := Change{Kind: FrameRemoved, Name: n, Version: s.version}
	s.mu.Unlock()

	s.notify(c)
	return nil
}

// SetAlphaThreshold re-trims every frame at threshold. Edits block until the
// re-trim completes. Nothing changes if the threshold is already current.
func (s *Store) SetAlphaThreshold(ctx context.Context, threshold uint8) error {
	s.mu.Lock()
	if s.threshold == threshold {
		s.mu.Unlock()
		return nil
	}
	frames := make([]*Frame, 0, len(s.frames))
	for _, f := range s.frames {
		frames = append(frames, f)
	}
	bufs := make([]*pixel.Buffer, len(frames))
	for i, f := range frames {
		bufs[i] = f.Pixels
	}
	boxes, err := trimAll(ctx, s.pool, bufs, threshold, s.cache)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for i, f := range frames {
		s.frames[f.Name] = &Frame{Name: f.Name, Source: f.Source, Pixels: f.Pixels, Trim: boxes[i]}
	}
	s.threshold = threshold
	s.version++
	c := Change{Kind: FramesRetrimmed, Version: s.version}
	s.mu.Unlock()

	s.notify(c)
	return nil
}

// AlphaThreshold returns the current trim threshold.
func (s *Store) AlphaThreshold() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// Get returns the current value of a frame.
func (s *Store) Get(name string) (*Frame, bool) {
	n, err := NormalizeName(name)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[n]
	return f, ok
}

// Len returns the number of frames.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

// Version returns a counter incremented by every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot captures the current frames. The snapshot is immutable and is
// not affected by later edits.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	snap := &Snapshot{
		version: s.version,
		byName:  make(map[string]*Frame, len(s.frames)),
		frames:  make([]*Frame, 0, len(s.frames)),
	}
	for n, f := range s.frames {
		snap.byName[n] = f
		snap.frames = append(snap.frames, f)
	}
	s.mu.RUnlock()

	slices.SortFunc(snap.frames, func(a, b *Frame) int {
		return compareIDs(a.Name, b.Name)
	})
	return snap
}

// Snapshot is an immutable view of a store at one version.
type Snapshot struct {
	version uint64
	frames  []*Frame
	byName  map[string]*Frame
}

// NewSnapshot builds a snapshot from frames that are not held by a store,
// for one-shot packing. Frames must have unique names.
func NewSnapshot(frames ...*Frame) (*Snapshot, error) {
	snap := &Snapshot{byName: make(map[string]*Frame, len(frames))}
	for _, f := range frames {
		if _, dup := snap.byName[f.Name]; dup {
			return nil, fmt.Errorf("atlaspack: snapshot %q: %w", f.Name, ErrDuplicateFrame)
		}
		snap.byName[f.Name] = f
		snap.frames = append(snap.frames, f)
	}
	slices.SortFunc(snap.frames, func(a, b *Frame) int {
		return compareIDs(a.Name, b.Name)
	})
	return snap, nil
}

// Version returns the store version the snapshot was taken at.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of frames.
func (s *Snapshot) Len() int { return len(s.frames) }

// Frames returns the frames in id order. The slice must not be modified.
func (s *Snapshot) Frames() []*Frame { return s.frames }

// Frame implements FrameSource.
func (s *Snapshot) Frame(name string) (*Frame, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Items returns the packer input for every frame, in id order.
func (s *Snapshot) Items() []Item {
	items := make([]Item, len(s.frames))
	for i, f := range s.frames {
		items[i] = f.Item()
	}
	return items
}
