package atlaspack

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// State is the repack state of a Controller.
type State uint8

const (
	// Clean means the current atlas reflects every store edit.
	Clean State = iota
	// Dirty means edits are waiting to be packed.
	Dirty
	// Packing means a pass is running.
	Packing
	// Error means the latest pass failed. The previous atlas is kept.
	Error
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Packing:
		return "packing"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithStateHook registers fn to observe every state transition. fn is called
// with the controller's lock held and must not call back into it.
func WithStateHook(fn func(from, to State)) ControllerOption {
	return func(c *Controller) { c.stateHook = fn }
}

// WithCommitHook registers fn to be called after a new atlas is installed.
func WithCommitHook(fn func(*Atlas)) ControllerOption {
	return func(c *Controller) { c.commitHook = fn }
}

// Controller decides when the frames of a Store are repacked and holds the
// last successfully built atlas.
//
// Every pass is a full repack of a store snapshot. At most one pass runs at
// a time; edits made while a pass runs mark the controller dirty again and
// are picked up by a single follow-up pass. A pass that fails or is
// cancelled never replaces the installed atlas.
//
// Thread safety: Controller is safe for concurrent use.
type Controller struct {
	store *Store

	packMu sync.Mutex // serializes passes

	mu        sync.Mutex
	cfg       Config
	state     State
	err       error
	dirtyGen  uint64 // bumped by every edit
	triedGen  uint64 // highest dirtyGen a finished pass started from
	changed   chan struct{}
	cancel    context.CancelFunc
	started   bool
	closed    bool
	kick      chan struct{}
	done      chan struct{}
	atlas     atomic.Pointer[Atlas]
	stateHook func(from, to State)

	commitHook func(*Atlas)
}

// NewController creates a controller over store. The store's alpha
// threshold is set from cfg. The controller starts Dirty; call Repack or
// Start to build the first atlas.
func NewController(store *Store, cfg Config, opts ...ControllerOption) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := store.SetAlphaThreshold(context.Background(), cfg.AlphaTrimThreshold); err != nil {
		return nil, err
	}
	c := &Controller{
		store:    store,
		cfg:      cfg,
		state:    Dirty,
		dirtyGen: 1,
		changed:  make(chan struct{}),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	store.OnChange(func(Change) { c.markDirty() })
	return c, nil
}

// setState must be called with c.mu held.
func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	from := c.state
	c.state = s
	if c.stateHook != nil {
		c.stateHook(from, s)
	}
}

// broadcast wakes every Wait. Must be called with c.mu held.
func (c *Controller) broadcast() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller) markDirty() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.dirtyGen++
	if c.state != Packing {
		c.setState(Dirty)
	}
	c.broadcast()
	c.mu.Unlock()

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Repack runs one full pass synchronously and returns its error. It waits
// for a running pass to finish first. Cancelling ctx, or calling Cancel,
// abandons the pass with a *CancelledError and leaves the controller Dirty.
func (c *Controller) Repack(ctx context.Context) error {
	c.packMu.Lock()
	defer c.packMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	gen := c.dirtyGen
	cfg := c.cfg
	passCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.setState(Packing)
	c.broadcast()
	c.mu.Unlock()
	defer cancel()

	// Edits notified before gen was read are already in the store.
	snap := c.store.Snapshot()
	Logger().Debug("atlaspack: repack started", "version", snap.Version(), "frames", snap.Len())
	atlas, err := Build(passCtx, snap, cfg)

	c.mu.Lock()
	c.cancel = nil
	c.triedGen = max(c.triedGen, gen)
	switch {
	case err == nil:
		c.atlas.Store(atlas)
		c.err = nil
		if c.dirtyGen == gen {
			c.setState(Clean)
		} else {
			c.setState(Dirty)
		}
		Logger().Info("atlaspack: atlas committed",
			"version", atlas.Version, "pages", len(atlas.Pages), "frames", atlas.Layout.FrameCount(),
			"efficiency", atlas.Layout.Efficiency())
	case errors.Is(err, ErrCancelled):
		c.err = err
		c.setState(Dirty)
		Logger().Warn("atlaspack: repack cancelled", "version", snap.Version())
	default:
		c.err = err
		c.setState(Error)
		Logger().Warn("atlaspack: repack failed, keeping previous atlas", "version", snap.Version(), "err", err)
	}
	c.broadcast()
	hook := c.commitHook
	c.mu.Unlock()

	if err == nil && hook != nil {
		hook(atlas)
	}
	return err
}

// Start runs a background loop that repacks whenever the controller becomes
// Dirty, until ctx ends or Close is called. Calling Start again is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	select {
	case c.kick <- struct{}{}:
	default:
	}
	go c.loop(ctx)
}

func (c *Controller) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-c.kick:
		}
		c.mu.Lock()
		pending := c.dirtyGen > c.triedGen || c.state == Dirty
		c.mu.Unlock()
		if !pending {
			continue
		}
		// Errors are recorded in the controller state.
		_ = c.Repack(ctx)
	}
}

// Wait blocks until a pass has finished for every edit made before the
// call and no pass is running. It returns the error of the latest pass,
// nil once the controller is Clean. Without Start, Wait only returns after
// another goroutine calls Repack.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	target := c.dirtyGen
	for {
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		if c.triedGen >= target && c.state != Packing {
			err := c.err
			c.mu.Unlock()
			return err
		}
		ch := c.changed
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
		c.mu.Lock()
	}
}

// Cancel abandons the running pass, if any.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
}

// SetConfig replaces the packing configuration. A changed alpha threshold
// re-trims the store. Any change marks the controller Dirty. If the re-trim
// fails the previous configuration stays in effect.
func (c *Controller) SetConfig(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	old := c.cfg
	c.mu.Unlock()
	if old == cfg && c.store.AlphaThreshold() == cfg.AlphaTrimThreshold {
		return nil
	}
	// cfg is committed only once the store holds its threshold.
	if err := c.store.SetAlphaThreshold(ctx, cfg.AlphaTrimThreshold); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	c.markDirty()
	return nil
}

// Config returns the current configuration.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the latest pass, or nil if it succeeded.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Atlas returns the last successfully built atlas, or nil before the first
// successful pass.
func (c *Controller) Atlas() *Atlas {
	return c.atlas.Load()
}

// Close stops the background loop and cancels a running pass. The store is
// left open.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	close(c.done)
	c.broadcast()
}
