package trimcache

import (
	"image"
	"testing"

	"github.com/gogpu/atlaspack/pixel"
)

func TestKeyFor(t *testing.T) {
	a, _ := pixel.New(4, 4)
	b, _ := pixel.New(4, 4)
	if KeyFor(a, 0) != KeyFor(b, 0) {
		t.Error("identical buffers produced different keys")
	}
	if KeyFor(a, 0) == KeyFor(a, 1) {
		t.Error("threshold does not affect key")
	}
	_ = b.SetRGBA(1, 1, 0, 0, 0, 1)
	if KeyFor(a, 0) == KeyFor(b, 0) {
		t.Error("different pixels produced the same key")
	}
	c, _ := pixel.New(2, 8)
	if KeyFor(a, 0) == KeyFor(c, 0) {
		t.Error("different dimensions with equal byte count produced the same key")
	}
}

func TestKeyFor_SubImageMatchesClone(t *testing.T) {
	parent, _ := pixel.New(8, 8)
	_ = parent.SetRGBA(3, 3, 1, 2, 3, 4)
	sub := parent.SubImage(image.Rect(2, 2, 6, 6))
	if KeyFor(sub, 0) != KeyFor(sub.Clone(), 0) {
		t.Error("stride affects key")
	}
}

func TestBoxEncoding(t *testing.T) {
	tests := []image.Rectangle{
		{},
		image.Rect(0, 0, 64, 64),
		image.Rect(3, 7, 1000, 70000),
	}
	for _, want := range tests {
		got, ok := decodeBox(encodeBox(want))
		if !ok || got != want {
			t.Errorf("decodeBox(encodeBox(%v)) = %v, %v", want, got, ok)
		}
	}
	if _, ok := decodeBox([]byte{1, 2, 3}); ok {
		t.Error("decodeBox accepted short input")
	}
}

func TestMemory_GetPut(t *testing.T) {
	m := NewMemory(4)
	var k Key
	k[0] = 1

	if _, ok := m.Get(k); ok {
		t.Fatal("Get on empty cache returned ok")
	}
	want := image.Rect(1, 2, 3, 4)
	_ = m.Put(k, want)
	got, ok := m.Get(k)
	if !ok || got != want {
		t.Fatalf("Get = %v, %v; want %v, true", got, ok, want)
	}

	st := m.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Len != 1 {
		t.Errorf("Stats = %+v, want 1 hit, 1 miss, len 1", st)
	}
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemory(2)
	key := func(i byte) Key {
		var k Key
		k[1] = i // same shard (k[0] == 0)
		return k
	}
	_ = m.Put(key(1), image.Rect(0, 0, 1, 1))
	_ = m.Put(key(2), image.Rect(0, 0, 2, 2))
	m.Get(key(1)) // key 2 becomes least recently used
	_ = m.Put(key(3), image.Rect(0, 0, 3, 3))

	if _, ok := m.Get(key(2)); ok {
		t.Error("least recently used entry was not evicted")
	}
	if _, ok := m.Get(key(1)); !ok {
		t.Error("recently used entry was evicted")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestLevelDB_Persists(t *testing.T) {
	dir := t.TempDir()
	var k Key
	k[5] = 42
	want := image.Rect(2, 3, 10, 12)

	c, err := OpenLevelDB(dir, nil)
	if err != nil {
		t.Fatalf("OpenLevelDB: %v", err)
	}
	if err := c.Put(k, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c, err = OpenLevelDB(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()

	got, ok := c.Get(k)
	if !ok || got != want {
		t.Errorf("Get after reopen = %v, %v; want %v, true", got, ok, want)
	}
	var missing Key
	missing[0] = 9
	if _, ok := c.Get(missing); ok {
		t.Error("Get(missing) returned ok")
	}
}
