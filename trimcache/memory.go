package trimcache

import (
	"container/list"
	"image"
	"sync"
	"sync/atomic"
)

const (
	// shardCount must be a power of two.
	shardCount = 16

	// DefaultCapacity is the default number of boxes kept per shard.
	DefaultCapacity = 1024
)

// Memory is a sharded in-memory LRU cache.
//
// Keys are already uniformly distributed digests, so the shard is picked
// from the first key byte without further hashing.
type Memory struct {
	shards   [shardCount]*memoryShard
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64
}

type memoryShard struct {
	mu      sync.Mutex
	entries map[Key]*list.Element
	lru     *list.List // front = most recently used
}

type memoryEntry struct {
	key Key
	box image.Rectangle
}

// NewMemory creates a cache holding up to capacity boxes per shard.
// If capacity <= 0, DefaultCapacity is used.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Memory{capacity: capacity}
	for i := range m.shards {
		m.shards[i] = &memoryShard{
			entries: make(map[Key]*list.Element),
			lru:     list.New(),
		}
	}
	return m
}

func (m *Memory) shard(k Key) *memoryShard {
	return m.shards[k[0]&(shardCount-1)]
}

// Get implements Cache.
func (m *Memory) Get(k Key) (image.Rectangle, bool) {
	s := m.shard(k)
	s.mu.Lock()
	el, ok := s.entries[k]
	if !ok {
		s.mu.Unlock()
		m.misses.Add(1)
		return image.Rectangle{}, false
	}
	s.lru.MoveToFront(el)
	box := el.Value.(*memoryEntry).box
	s.mu.Unlock()

	m.hits.Add(1)
	return box, true
}

// Put implements Cache. It never fails.
func (m *Memory) Put(k Key, box image.Rectangle) error {
	s := m.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[k]; ok {
		el.Value.(*memoryEntry).box = box
		s.lru.MoveToFront(el)
		return nil
	}
	for s.lru.Len() >= m.capacity {
		oldest := s.lru.Back()
		s.lru.Remove(oldest)
		delete(s.entries, oldest.Value.(*memoryEntry).key)
	}
	s.entries[k] = s.lru.PushFront(&memoryEntry{key: k, box: box})
	return nil
}

// Len returns the number of cached boxes.
func (m *Memory) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Stats returns the hit and miss counters.
func (m *Memory) Stats() Stats {
	return Stats{Hits: m.hits.Load(), Misses: m.misses.Load(), Len: m.Len()}
}

// Close implements Cache.
func (m *Memory) Close() error { return nil }
