// Package store provides type-safe, read-only row extraction from a
// self-learning agent's SQLite intelligence store.
//
// The Reader never aborts on a missing or malformed table: every
// optional table is probed against the schema catalog first, a row
// that cannot be scanned is skipped with a warning, and a malformed
// metadata or embedding field is replaced by a safe default, rather
// than failing the whole call (spec.md §4.1, §7).
//
// Example Usage:
//
//	r, err := store.Open(ctx, "./intelligence.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer r.Close()
//
//	memories, err := r.ReadMemories(ctx)
//	patterns, err := r.ReadPatterns(ctx)
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	// Registers the "sqlite3" driver used by database/sql.Open below.
	_ "github.com/mattn/go-sqlite3"

	"github.com/kestrelai/graphlens/pkg/logx"
)

// Reader holds a read-only handle to the intelligence store.
type Reader struct {
	db  *sql.DB
	log interface {
		Warn(msg string, args ...any)
		Debug(msg string, args ...any)
	}

	tables map[string]bool // schema catalog probe cache
}

// Open opens path read-only and tunes the connection for concurrent
// read access against a file the learner may still be appending to.
func Open(ctx context.Context, path string) (*Reader, error) {
	// mode=ro forces SQLite to refuse writes at the driver level, matching
	// the GCE's read-only contract (spec.md §1 Non-goals).
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	r := &Reader{db: db, log: logx.Get("store")}
	r.tables = r.probeTables(ctx)
	return r, nil
}

// Close releases the underlying database handle.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Mtime returns the store file's last-modification time, used by
// pkg/engine to key the single-slot Graph Cache (spec.md §3.3).
func Mtime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("store: stat %s: %w", path, err)
	}
	return info.ModTime().UnixMilli(), nil
}

// HasTable reports whether name exists in the store's schema catalog.
// Absent-table reads return empty collections rather than errors
// (spec.md §4.1, §7 kind 2).
func (r *Reader) HasTable(name string) bool {
	return r.tables[name]
}

func (r *Reader) probeTables(ctx context.Context) map[string]bool {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table'`)
	if err != nil {
		r.log.Warn("schema catalog probe failed, assuming no optional tables", "err", err)
		return map[string]bool{}
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		found[name] = true
	}
	return found
}
