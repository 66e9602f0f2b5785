// Package atlaspack packs many small images into a few large texture pages
// and keeps the result up to date as the images change.
//
// # Overview
//
// A [Store] owns the source frames. Each frame is trimmed to the bounding box
// of its pixels whose alpha exceeds the store's threshold, so transparent
// borders never take up page space. [Pack] turns the trimmed sizes into a
// [Layout]: which page each frame lands on, where, and whether it is rotated.
// [Rasterize] copies the trimmed pixels onto page buffers, and the metadata
// sub-package describes the layout in JSON for game engines.
//
// A [Controller] ties these together for editors and hot-reload tools. It
// watches the store, repacks in the background when frames change, and only
// ever exposes a complete [Atlas].
//
// # Quick Start
//
//	store := atlaspack.NewStore(0)
//	defer store.Close()
//	_ = store.Add("hero", "hero.png", heroPixels)
//
//	ctrl, _ := atlaspack.NewController(store, atlaspack.DefaultConfig())
//	defer ctrl.Close()
//	if err := ctrl.Repack(ctx); err != nil {
//		return err
//	}
//	atlas := ctrl.Atlas()
//	_, _ = atlas.SavePages("out", "atlas-%d.png")
//
// # Layout Methods
//
// [MethodPacked] is a guillotine packer with best-area-fit placement. Frames
// are placed largest side first; pages grow up to the configured maximum
// and new pages are opened when a frame no longer fits. [MethodGrid] places
// every frame in a uniform cell sized to the largest frame, which suits
// animation strips that must keep a fixed stride.
//
// Layouts are deterministic: the same frames and [Config] give the same
// layout regardless of insertion order.
//
// # Coordinate System
//
// Page coordinates have the origin at the top-left, X increasing right and
// Y increasing down. A rotated frame is stored turned 90° clockwise.
//
// # Sub-packages
//
//   - pixel: the RGBA buffer type, transforms and image I/O
//   - metadata: JSON export, import and frame unpacking
//   - trimcache: in-memory and LevelDB caches of trim boxes
package atlaspack

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
