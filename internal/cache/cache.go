// Package cache is the enrichment cache: a durable, time-boxed memo of
// expensive lookups (AI classification, Places search) keyed by organizer key
// or query string.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// TTL is how long an entry is trusted. Older entries read as misses.
const TTL = 30 * 24 * time.Hour

// Namespaces used by the enrichment collaborators.
const (
	NamespaceAI     = "ai_enrichment"
	NamespacePlaces = "places"
)

// Entry is one cached payload.
type Entry struct {
	CachedAt time.Time       `json:"cached_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Fresh reports whether the entry is younger than TTL at now.
func (e Entry) Fresh(now time.Time) bool {
	return now.Sub(e.CachedAt) < TTL
}

// Cache stores whole-record payloads by key. Put always replaces.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, payload json.RawMessage) error
	Close() error
}

// Clock returns the current time. Backends take one so tests can move time.
type Clock func() time.Time

func defaultClock() time.Time { return time.Now().UTC() }

type refreshKey struct{}

// WithRefresh marks ctx so GetJSON reports misses and callers recompute.
// Writes still go through and replace the old entries.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

// Refreshing reports whether ctx was marked by WithRefresh.
func Refreshing(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

// GetJSON decodes a fresh hit into out. A payload that no longer decodes is
// reported as a miss, as is every key under a refreshing context.
func GetJSON(ctx context.Context, c Cache, key string, out any) (bool, error) {
	if Refreshing(ctx) {
		return false, nil
	}
	e, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return false, nil
	}
	return true, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, c Cache, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s", key)
	}
	return c.Put(ctx, key, data)
}

// Stats counts entries by freshness.
type Stats struct {
	Fresh   int `json:"fresh" yaml:"fresh"`
	Expired int `json:"expired" yaml:"expired"`
}

// Maintainer is implemented by backends that support housekeeping.
type Maintainer interface {
	Stats(ctx context.Context) (Stats, error)
	Prune(ctx context.Context) (int, error)
}
