// Package testfixture loads YAML-described intelligence-store
// scenarios into throwaway SQLite databases for component tests.
//
// Grounded on the teacher's apoc/config.go ("LoadConfig... reads YAML
// from disk, unmarshals into a typed Config"); this package applies
// the same load-a-YAML-doc-into-a-struct shape to test fixtures
// instead of runtime config, so the engine tests describe scenarios
// declaratively instead of as raw SQL strings.
package testfixture

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"
)

// Scenario is one YAML-described intelligence store (spec.md §8's
// Scenario A-F fixtures).
type Scenario struct {
	Memories      []Memory      `yaml:"memories"`
	Patterns      []Pattern     `yaml:"patterns"`
	Trajectories  []Trajectory  `yaml:"trajectories"`
	FileSequences []FileSeq     `yaml:"file_sequences"`
	Edges         []StoredEdge  `yaml:"edges"`
}

type Memory struct {
	ID         string `yaml:"id"`
	Content    string `yaml:"content"`
	MemoryType string `yaml:"memory_type"`
	Timestamp  int64  `yaml:"timestamp"`
	Metadata   string `yaml:"metadata"`
}

type Pattern struct {
	State      string  `yaml:"state"`
	Action     string  `yaml:"action"`
	QValue     float64 `yaml:"q_value"`
	Visits     int     `yaml:"visits"`
	LastUpdate int64   `yaml:"last_update"`
}

type Trajectory struct {
	ID        string  `yaml:"id"`
	State     string  `yaml:"state"`
	Action    string  `yaml:"action"`
	Outcome   string  `yaml:"outcome"`
	Reward    float64 `yaml:"reward"`
	Timestamp int64   `yaml:"timestamp"`
}

type FileSeq struct {
	FromFile string `yaml:"from_file"`
	ToFile   string `yaml:"to_file"`
	Count    int    `yaml:"count"`
}

type StoredEdge struct {
	Source   string  `yaml:"source"`
	Target   string  `yaml:"target"`
	Weight   float64 `yaml:"weight"`
	Type     string  `yaml:"type"`
	Relation string  `yaml:"relation"`
}

// Parse decodes a YAML scenario document.
func Parse(data []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("testfixture: parse: %w", err)
	}
	return s, nil
}

// Load reads a YAML scenario file from path.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("testfixture: read %s: %w", path, err)
	}
	return Parse(data)
}

// BuildDB materializes a Scenario into a fresh SQLite database under
// t.TempDir() and returns its path. Empty collections still create
// their table (with zero rows) so the store reader's schema probe
// finds it, matching the behavior of a real store that ran a kind of
// collection down to nothing.
func (s Scenario) BuildDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intelligence.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("testfixture: open: %v", err)
	}
	defer db.Close()

	exec := func(stmt string, args ...any) {
		if _, err := db.Exec(stmt, args...); err != nil {
			t.Fatalf("testfixture: exec %q: %v", stmt, err)
		}
	}

	exec(`CREATE TABLE memories (id TEXT, content TEXT, memory_type TEXT, embedding BLOB, timestamp INTEGER, metadata TEXT)`)
	for _, m := range s.Memories {
		exec(`INSERT INTO memories (id, content, memory_type, timestamp, metadata) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Content, m.MemoryType, m.Timestamp, m.Metadata)
	}

	exec(`CREATE TABLE patterns (state TEXT, action TEXT, q_value REAL, visits INTEGER, last_update INTEGER)`)
	for _, p := range s.Patterns {
		exec(`INSERT INTO patterns VALUES (?, ?, ?, ?, ?)`, p.State, p.Action, p.QValue, p.Visits, p.LastUpdate)
	}

	exec(`CREATE TABLE trajectories (id TEXT, state TEXT, action TEXT, outcome TEXT, reward REAL, timestamp INTEGER)`)
	for _, tr := range s.Trajectories {
		exec(`INSERT INTO trajectories VALUES (?, ?, ?, ?, ?, ?)`, tr.ID, tr.State, tr.Action, tr.Outcome, tr.Reward, tr.Timestamp)
	}

	exec(`CREATE TABLE file_sequences (from_file TEXT, to_file TEXT, count INTEGER)`)
	for _, f := range s.FileSequences {
		exec(`INSERT INTO file_sequences VALUES (?, ?, ?)`, f.FromFile, f.ToFile, f.Count)
	}

	exec(`CREATE TABLE edges (source TEXT, target TEXT, weight REAL, data TEXT)`)
	for _, e := range s.Edges {
		blob, err := json.Marshal(map[string]string{"type": e.Type, "relation": e.Relation})
		if err != nil {
			t.Fatalf("testfixture: marshal edge data: %v", err)
		}
		exec(`INSERT INTO edges (source, target, weight, data) VALUES (?, ?, ?, ?)`, e.Source, e.Target, e.Weight, string(blob))
	}

	return path
}
