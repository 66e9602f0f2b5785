package trimcache

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// keyPrefix namespaces trim boxes inside the database.
const keyPrefix = "trim/"

// LevelDB persists trim boxes on disk, fronted by a Memory cache.
type LevelDB struct {
	db     *leveldb.DB
	front  *Memory
	logger *slog.Logger
}

// OpenLevelDB opens (or creates) a trim cache database in dir.
// A nil logger discards log output.
func OpenLevelDB(dir string, logger *slog.Logger) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{NoSync: true})
	if err != nil {
		return nil, fmt.Errorf("trimcache: open %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LevelDB{db: db, front: NewMemory(0), logger: logger}, nil
}

func dbKey(k Key) []byte {
	return append([]byte(keyPrefix), k[:]...)
}

// Get implements Cache.
func (c *LevelDB) Get(k Key) (image.Rectangle, bool) {
	if box, ok := c.front.Get(k); ok {
		return box, true
	}
	v, err := c.db.Get(dbKey(k), nil)
	if err != nil {
		if !errors.Is(err, leveldb.ErrNotFound) {
			c.logger.Warn("trimcache: read failed", "err", err)
		}
		return image.Rectangle{}, false
	}
	box, ok := decodeBox(v)
	if !ok {
		c.logger.Warn("trimcache: corrupt entry ignored", "len", len(v))
		return image.Rectangle{}, false
	}
	_ = c.front.Put(k, box)
	return box, true
}

// Put implements Cache.
func (c *LevelDB) Put(k Key, box image.Rectangle) error {
	_ = c.front.Put(k, box)
	if err := c.db.Put(dbKey(k), encodeBox(box), nil); err != nil {
		return fmt.Errorf("trimcache: write: %w", err)
	}
	return nil
}

// Close implements Cache.
func (c *LevelDB) Close() error {
	return c.db.Close()
}
