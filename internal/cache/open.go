package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
)

// Backend drivers.
const (
	DriverJSONFile = "jsonfile"
	DriverSQLite   = "sqlite"
)

// SQLiteFile is the database file name used by the sqlite driver.
const SQLiteFile = "enrichment_cache.db"

// Open returns the namespace's cache from the backend named by driver,
// rooted at dir.
func Open(ctx context.Context, driver, dir, namespace string, clock Clock) (Cache, error) {
	if clock == nil {
		clock = defaultClock
	}
	switch driver {
	case "", DriverJSONFile:
		fc, err := OpenFile(FilePath(dir, namespace), WithFileClock(clock))
		if err != nil {
			return nil, err
		}
		return fc, nil
	case DriverSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "cache: create dir")
		}
		sc, err := OpenSQLite(ctx, filepath.Join(dir, SQLiteFile), namespace, clock)
		if err != nil {
			return nil, err
		}
		return sc, nil
	default:
		return nil, eris.Errorf("cache: unknown driver %q", driver)
	}
}

// Store hands out namespace caches of one backend. With the sqlite driver
// every namespace shares a single database handle, closed by Close.
type Store struct {
	driver string
	dir    string
	clock  Clock

	mu     sync.Mutex
	shared *SQLiteCache
}

// NewStore creates a Store. Nothing is opened until Namespace is called.
func NewStore(driver, dir string, clock Clock) *Store {
	if clock == nil {
		clock = defaultClock
	}
	return &Store{driver: driver, dir: dir, clock: clock}
}

// Namespace returns the cache for ns. Closing it is always safe; the shared
// sqlite database stays open until the Store is closed.
func (s *Store) Namespace(ctx context.Context, ns string) (Cache, error) {
	if s.driver != DriverSQLite {
		return Open(ctx, s.driver, s.dir, ns, s.clock)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shared == nil {
		c, err := Open(ctx, s.driver, s.dir, ns, s.clock)
		if err != nil {
			return nil, err
		}
		s.shared = c.(*SQLiteCache)
	}
	return s.shared.Namespace(ns), nil
}

// Close releases the shared database, if one was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shared == nil {
		return nil
	}
	err := s.shared.Close()
	s.shared = nil
	return err
}
