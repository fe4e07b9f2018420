package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newFixtureStore(t *testing.T) (*Reader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intelligence.db")

	setup, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("fixture: open for setup: %v", err)
	}
	defer setup.Close()

	stmts := []string{
		`CREATE TABLE memories (id TEXT, content TEXT, memory_type TEXT, embedding BLOB, timestamp INTEGER, metadata TEXT)`,
		`INSERT INTO memories VALUES ('m1', 'remember the build', 'episodic', NULL, 1700000000, '{"domain":"architecture"}')`,
		`INSERT INTO memories VALUES ('m2', 'init-warmup', 'episodic', NULL, 1700000001, '{}')`,
		`CREATE TABLE patterns (state TEXT, action TEXT, q_value REAL, visits INTEGER, last_update INTEGER)`,
		`INSERT INTO patterns VALUES ('s1', 'a1', 0.75, 4, 1700000002)`,
		`CREATE TABLE edges (source TEXT, target TEXT, weight REAL, data TEXT)`,
		`INSERT INTO edges VALUES ('m1', 's1', 0.5, '{"relation":"related_to"}')`,
	}
	for _, s := range stmts {
		if _, err := setup.Exec(s); err != nil {
			t.Fatalf("fixture: exec %q: %v", s, err)
		}
	}

	r, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, path
}

func TestOpenProbesSchema(t *testing.T) {
	r, _ := newFixtureStore(t)
	if !r.HasTable("memories") {
		t.Error("expected memories table to be detected")
	}
	if !r.HasTable("patterns") {
		t.Error("expected patterns table to be detected")
	}
	if r.HasTable("neural_patterns") {
		t.Error("expected absent optional table to report false")
	}
}

func TestReadMemoriesFiltersSentinelAndInfersFields(t *testing.T) {
	r, _ := newFixtureStore(t)
	rows, err := r.ReadMemories(context.Background())
	if err != nil {
		t.Fatalf("ReadMemories: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after sentinel filtering, got %d", len(rows))
	}
	if rows[0].ID != "m1" {
		t.Errorf("expected row m1, got %s", rows[0].ID)
	}
	if rows[0].Timestamp == nil || *rows[0].Timestamp != 1700000000*1000 {
		t.Errorf("expected timestamp normalized to ms, got %v", rows[0].Timestamp)
	}
	if !InferFoundation(rows[0].Metadata, "", "architecture") {
		t.Error("expected architecture domain to infer foundation=true")
	}
}

func TestReadPatterns(t *testing.T) {
	r, _ := newFixtureStore(t)
	rows, err := r.ReadPatterns(context.Background())
	if err != nil {
		t.Fatalf("ReadPatterns: %v", err)
	}
	if len(rows) != 1 || rows[0].State != "s1" || rows[0].QValue != 0.75 {
		t.Fatalf("unexpected patterns result: %+v", rows)
	}
}

func TestReadEdgesResolvesTypePrecedence(t *testing.T) {
	r, _ := newFixtureStore(t)
	rows, err := r.ReadEdges(context.Background())
	if err != nil {
		t.Fatalf("ReadEdges: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(rows))
	}
	if rows[0].Type != "related_to" {
		t.Errorf("expected relation fallback 'related_to', got %q", rows[0].Type)
	}
}

func TestReadNeuralPatternsAbsentTableIsEmpty(t *testing.T) {
	r, _ := newFixtureStore(t)
	rows, err := r.ReadNeuralPatterns(context.Background())
	if err != nil {
		t.Fatalf("ReadNeuralPatterns: %v", err)
	}
	if rows != nil {
		t.Errorf("expected nil slice for absent table, got %v", rows)
	}
}

func TestMtime(t *testing.T) {
	_, path := newFixtureStore(t)
	ms, err := Mtime(path)
	if err != nil {
		t.Fatalf("Mtime: %v", err)
	}
	if ms <= 0 || ms > time.Now().UnixMilli() {
		t.Errorf("unexpected mtime %d", ms)
	}
}
