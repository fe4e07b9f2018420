package testfixture

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioAYAML = `
memories:
  - id: m1
    content: hello
    memory_type: episodic
    timestamp: 1700000000000
    metadata: "{}"
patterns:
  - state: "edit:.js"
    action: coder
    q_value: 0.8
    visits: 3
    last_update: 1700000000000
trajectories:
  - id: t1
    state: edit_js
    action: coder
    outcome: success
    reward: 1.0
    timestamp: 1700000000000
file_sequences:
  - from_file: a.ts
    to_file: b.ts
    count: 2
`

func TestParseScenario(t *testing.T) {
	s, err := Parse([]byte(scenarioAYAML))
	require.NoError(t, err)
	require.Len(t, s.Memories, 1)
	assert.Equal(t, "m1", s.Memories[0].ID)
	assert.Equal(t, 0.8, s.Patterns[0].QValue)
	assert.Equal(t, "b.ts", s.FileSequences[0].ToFile)
}

func TestScenarioBuildDBIsQueryable(t *testing.T) {
	s, err := Parse([]byte(scenarioAYAML))
	require.NoError(t, err)

	path := s.BuildDB(t)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	row := db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM memories`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}
