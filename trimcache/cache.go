// Package trimcache remembers alpha trim boxes by pixel content so that
// re-importing or re-trimming unchanged frames skips the full pixel scan.
//
// Keys are SHA-256 digests of the frame pixels together with the alpha
// threshold, so a cached box is only reused for byte-identical input.
package trimcache

import (
	"crypto/sha256"
	"encoding/binary"
	"image"

	"github.com/gogpu/atlaspack/pixel"
)

// Key identifies one (pixels, threshold) pair.
type Key [sha256.Size]byte

// KeyFor computes the cache key for buf trimmed at threshold.
func KeyFor(buf *pixel.Buffer, threshold uint8) Key {
	h := sha256.New()
	var hdr [9]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(buf.Width()))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(buf.Height()))
	hdr[8] = threshold
	_, _ = h.Write(hdr[:])
	for y := range buf.Height() {
		_, _ = h.Write(buf.RowBytes(y))
	}
	var k Key
	h.Sum(k[:0])
	return k
}

// Cache stores trim boxes. Implementations are safe for concurrent use.
type Cache interface {
	Get(k Key) (image.Rectangle, bool)
	Put(k Key, box image.Rectangle) error
	Close() error
}

// Stats holds hit/miss counters.
type Stats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

// encodeBox serializes a rectangle as four little-endian int32 values.
func encodeBox(r image.Rectangle) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], uint32(int32(r.Min.X)))
	binary.LittleEndian.PutUint32(b[4:], uint32(int32(r.Min.Y)))
	binary.LittleEndian.PutUint32(b[8:], uint32(int32(r.Max.X)))
	binary.LittleEndian.PutUint32(b[12:], uint32(int32(r.Max.Y)))
	return b
}

func decodeBox(b []byte) (image.Rectangle, bool) {
	if len(b) != 16 {
		return image.Rectangle{}, false
	}
	v := func(off int) int { return int(int32(binary.LittleEndian.Uint32(b[off:]))) }
	return image.Rect(v(0), v(4), v(8), v(12)), true
}
