package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteCache stores every namespace in one SQLite file. It shares a
// database handle between namespaces via Namespace.
type SQLiteCache struct {
	db        *sql.DB
	namespace string
	now       Clock
	owner     bool
}

// OpenSQLite opens (and migrates) a SQLite cache database at dsn and returns
// a handle bound to namespace. A database file that cannot be read is moved
// aside and replaced with an empty one.
func OpenSQLite(ctx context.Context, dsn, namespace string, clock Clock) (*SQLiteCache, error) {
	if clock == nil {
		clock = defaultClock
	}
	db, err := openSQLiteDB(ctx, dsn)
	if err != nil && ctx.Err() == nil && isDatabaseFile(dsn) {
		moved := dsn + ".corrupt-" + clock().UTC().Format("20060102T150405")
		zap.L().Warn("cache: unreadable sqlite database, starting empty",
			zap.String("path", dsn), zap.String("moved_to", moved), zap.Error(err))
		if mvErr := os.Rename(dsn, moved); mvErr != nil {
			return nil, eris.Wrap(mvErr, "cache: move unreadable database")
		}
		os.Remove(dsn + "-wal") //nolint:errcheck
		os.Remove(dsn + "-shm") //nolint:errcheck
		db, err = openSQLiteDB(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}
	return &SQLiteCache{db: db, namespace: namespace, now: clock, owner: true}, nil
}

func openSQLiteDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if err := (&SQLiteCache{db: db}).Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return db, nil
}

// isDatabaseFile reports whether dsn names an existing plain file.
func isDatabaseFile(dsn string) bool {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return false
	}
	fi, err := os.Stat(dsn)
	return err == nil && fi.Mode().IsRegular()
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	payload   TEXT NOT NULL,
	cached_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
);

CREATE INDEX IF NOT EXISTS idx_enrichment_cache_cached_at ON enrichment_cache(cached_at);
`

// Migrate creates the cache table.
func (c *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "cache: migrate")
}

// Namespace returns a handle for another namespace on the same database.
// Closing it leaves the shared database open.
func (c *SQLiteCache) Namespace(ns string) *SQLiteCache {
	return &SQLiteCache{db: c.db, namespace: ns, now: c.now}
}

// Get returns the entry for key if it is younger than TTL.
func (c *SQLiteCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		payload  string
		cachedAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, cached_at FROM enrichment_cache WHERE namespace = ? AND key = ?`,
		c.namespace, key,
	).Scan(&payload, &cachedAt)
	if eris.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, eris.Wrapf(err, "cache: get %s/%s", c.namespace, key)
	}
	e := Entry{CachedAt: time.Unix(0, cachedAt).UTC(), Payload: json.RawMessage(payload)}
	if !e.Fresh(c.now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put replaces the entry for key.
func (c *SQLiteCache) Put(ctx context.Context, key string, payload json.RawMessage) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO enrichment_cache (namespace, key, payload, cached_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET payload = excluded.payload, cached_at = excluded.cached_at`,
		c.namespace, key, string(payload), c.now().UnixNano(),
	)
	return eris.Wrapf(err, "cache: put %s/%s", c.namespace, key)
}

// Stats counts fresh and expired rows in this namespace.
func (c *SQLiteCache) Stats(ctx context.Context) (Stats, error) {
	cutoff := c.now().Add(-TTL).UnixNano()
	var s Stats
	err := c.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN cached_at > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cached_at <= ? THEN 1 ELSE 0 END), 0)
		 FROM enrichment_cache WHERE namespace = ?`,
		cutoff, cutoff, c.namespace,
	).Scan(&s.Fresh, &s.Expired)
	return s, eris.Wrap(err, "cache: stats")
}

// Prune deletes expired rows in this namespace.
func (c *SQLiteCache) Prune(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM enrichment_cache WHERE namespace = ? AND cached_at <= ?`,
		c.namespace, c.now().Add(-TTL).UnixNano(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: prune")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "cache: prune rows affected")
	}
	return int(n), nil
}

// Close closes the database if this handle opened it.
func (c *SQLiteCache) Close() error {
	if !c.owner {
		return nil
	}
	return c.db.Close()
}
