package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FileCache keeps one namespace in a single JSON object file,
// {key: {"cached_at": ..., "payload": ...}}, rewritten atomically on every Put.
type FileCache struct {
	mu      sync.Mutex
	path    string
	now     Clock
	entries map[string]Entry
}

// FileOption configures a FileCache.
type FileOption func(*FileCache)

// WithFileClock overrides the clock.
func WithFileClock(c Clock) FileOption {
	return func(f *FileCache) { f.now = c }
}

// FilePath returns the file used for namespace inside dir.
func FilePath(dir, namespace string) string {
	return filepath.Join(dir, namespace+"_cache.json")
}

// OpenFile loads the cache at path. A missing file is an empty cache; a
// corrupt one is logged and also treated as empty.
func OpenFile(path string, opts ...FileOption) (*FileCache, error) {
	f := &FileCache{
		path:    path,
		now:     defaultClock,
		entries: make(map[string]Entry),
	}
	for _, o := range opts {
		o(f)
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return f, nil
	case err != nil:
		zap.L().Warn("cache: unreadable cache file, starting empty",
			zap.String("path", path), zap.Error(err))
		return f, nil
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.entries); err != nil {
		zap.L().Warn("cache: corrupt cache file, starting empty",
			zap.String("path", path), zap.Error(err))
		f.entries = make(map[string]Entry)
	}
	return f, nil
}

// Get returns the entry for key if it is younger than TTL.
func (f *FileCache) Get(_ context.Context, key string) (Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[key]
	if !ok || !e.Fresh(f.now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put replaces the entry for key and flushes the file.
func (f *FileCache) Put(_ context.Context, key string, payload json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[key] = Entry{CachedAt: f.now(), Payload: append(json.RawMessage(nil), payload...)}
	return f.flush()
}

// Stats counts fresh and expired entries.
func (f *FileCache) Stats(_ context.Context) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	var s Stats
	for _, e := range f.entries {
		if e.Fresh(now) {
			s.Fresh++
		} else {
			s.Expired++
		}
	}
	return s, nil
}

// Prune drops expired entries and rewrites the file.
func (f *FileCache) Prune(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	n := 0
	for k, e := range f.entries {
		if !e.Fresh(now) {
			delete(f.entries, k)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, f.flush()
}

// Keys returns the stored keys, fresh or not, sorted.
func (f *FileCache) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.entries))
	for k := range f.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close is a no-op; every Put is already durable.
func (f *FileCache) Close() error { return nil }

// flush must be called with mu held.
func (f *FileCache) flush() error {
	data, err := json.MarshalIndent(f.entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "cache: marshal entries")
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "cache: create dir")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "cache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "cache: close temp file")
	}
	return eris.Wrap(os.Rename(tmp.Name(), f.path), "cache: rename")
}
