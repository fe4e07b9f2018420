package store

import (
	"context"
	"database/sql"
)

// ReadMemories returns every non-sentinel row of the memories table.
// A missing table yields an empty slice, never an error (spec.md §7
// kind 2).
func (r *Reader) ReadMemories(ctx context.Context) ([]MemoryRow, error) {
	if !r.HasTable("memories") {
		r.log.Debug("memories table absent, returning empty set")
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, memory_type, embedding, timestamp, metadata
		FROM memories`)
	if err != nil {
		return nil, wrapQuery("memories", err)
	}
	defer rows.Close()

	var out []MemoryRow
	for rows.Next() {
		var (
			id, memType    string
			content        sql.NullString
			embeddingRaw   any
			timestampRaw   sql.NullInt64
			metadataRaw    any
		)
		if err := rows.Scan(&id, &content, &memType, &embeddingRaw, &timestampRaw, &metadataRaw); err != nil {
			r.log.Warn("memories: skipping unreadable row", "err", err)
			continue
		}
		if IsWarmupSentinel(content.String) {
			continue
		}

		row := MemoryRow{
			ID:         id,
			Content:    content.String,
			MemoryType: memType,
			Embedding:  decodeEmbedding(embeddingRaw),
			Metadata:   parseMetadata(metadataRaw),
		}
		if timestampRaw.Valid {
			if ms, ok := normalizeTimestamp(timestampRaw.Int64); ok {
				row.Timestamp = &ms
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReadNeuralPatterns returns every row of the optional neural_patterns
// table.
func (r *Reader) ReadNeuralPatterns(ctx context.Context) ([]NeuralPatternRow, error) {
	if !r.HasTable("neural_patterns") {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, category, embedding, confidence, usage_count, created_at, updated_at, metadata
		FROM neural_patterns`)
	if err != nil {
		return nil, wrapQuery("neural_patterns", err)
	}
	defer rows.Close()

	var out []NeuralPatternRow
	for rows.Next() {
		var (
			id, category             string
			content                  sql.NullString
			embeddingRaw             any
			confidence               sql.NullFloat64
			usage                    sql.NullInt64
			createdAtRaw, updatedAtRaw sql.NullInt64
			metadataRaw              any
		)
		if err := rows.Scan(&id, &content, &category, &embeddingRaw, &confidence, &usage, &createdAtRaw, &updatedAtRaw, &metadataRaw); err != nil {
			r.log.Warn("neural_patterns: skipping unreadable row", "err", err)
			continue
		}
		row := NeuralPatternRow{
			ID:         id,
			Content:    content.String,
			Category:   category,
			Embedding:  decodeEmbedding(embeddingRaw),
			Confidence: confidence.Float64,
			Usage:      int(usage.Int64),
			Metadata:   parseMetadata(metadataRaw),
		}
		if createdAtRaw.Valid {
			if ms, ok := normalizeTimestamp(createdAtRaw.Int64); ok {
				row.CreatedAt = &ms
			}
		}
		if updatedAtRaw.Valid {
			if ms, ok := normalizeTimestamp(updatedAtRaw.Int64); ok {
				row.UpdatedAt = &ms
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReadPatterns returns every row of the Q-table ("patterns").
func (r *Reader) ReadPatterns(ctx context.Context) ([]PatternRow, error) {
	if !r.HasTable("patterns") {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT state, action, q_value, visits, last_update FROM patterns`)
	if err != nil {
		return nil, wrapQuery("patterns", err)
	}
	defer rows.Close()

	var out []PatternRow
	for rows.Next() {
		var (
			state, action string
			qValue        sql.NullFloat64
			visits        sql.NullInt64
			lastUpdateRaw sql.NullInt64
		)
		if err := rows.Scan(&state, &action, &qValue, &visits, &lastUpdateRaw); err != nil {
			r.log.Warn("patterns: skipping unreadable row", "err", err)
			continue
		}
		row := PatternRow{
			State:  state,
			Action: action,
			QValue: qValue.Float64,
			Visits: int(visits.Int64),
		}
		if lastUpdateRaw.Valid {
			if ms, ok := normalizeTimestamp(lastUpdateRaw.Int64); ok {
				row.LastUpdate = &ms
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReadTrajectories returns every row of the trajectories table.
func (r *Reader) ReadTrajectories(ctx context.Context) ([]TrajectoryRow, error) {
	if !r.HasTable("trajectories") {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, state, action, outcome, reward, timestamp FROM trajectories`)
	if err != nil {
		return nil, wrapQuery("trajectories", err)
	}
	defer rows.Close()

	var out []TrajectoryRow
	for rows.Next() {
		var (
			id, state, action, outcome string
			reward                     sql.NullFloat64
			timestampRaw               sql.NullInt64
		)
		if err := rows.Scan(&id, &state, &action, &outcome, &reward, &timestampRaw); err != nil {
			r.log.Warn("trajectories: skipping unreadable row", "err", err)
			continue
		}
		row := TrajectoryRow{
			ID:      id,
			State:   state,
			Action:  action,
			Outcome: outcome,
			Reward:  reward.Float64,
		}
		if timestampRaw.Valid {
			if ms, ok := normalizeTimestamp(timestampRaw.Int64); ok {
				row.Timestamp = &ms
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReadFileSequences returns every row of the optional file_sequences
// table, used by the Edge Synthesizer's file co-edit step.
func (r *Reader) ReadFileSequences(ctx context.Context) ([]FileSequenceRow, error) {
	if !r.HasTable("file_sequences") {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT from_file, to_file, count FROM file_sequences`)
	if err != nil {
		return nil, wrapQuery("file_sequences", err)
	}
	defer rows.Close()

	var out []FileSequenceRow
	for rows.Next() {
		var row FileSequenceRow
		var count sql.NullInt64
		if err := rows.Scan(&row.FromFile, &row.ToFile, &count); err != nil {
			r.log.Warn("file_sequences: skipping unreadable row", "err", err)
			continue
		}
		row.Count = int(count.Int64)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReadEdges returns every row of the optional stored edges table.
// The schema (spec.md §6.1) stores a single "data" JSON blob per row;
// type resolution follows the precedence decided in DESIGN.md: the
// blob's "type" key if non-empty, else its "relation" key, else the
// literal "explicit".
func (r *Reader) ReadEdges(ctx context.Context) ([]EdgeRow, error) {
	if !r.HasTable("edges") {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT source, target, weight, data FROM edges`)
	if err != nil {
		return nil, wrapQuery("edges", err)
	}
	defer rows.Close()

	var out []EdgeRow
	for rows.Next() {
		var (
			source, target string
			weight         sql.NullFloat64
			dataRaw        any
		)
		if err := rows.Scan(&source, &target, &weight, &dataRaw); err != nil {
			r.log.Warn("edges: skipping unreadable row", "err", err)
			continue
		}
		data := parseMetadata(dataRaw)
		resolved := "explicit"
		if typeVal, _ := data["type"].(string); typeVal != "" {
			resolved = typeVal
		} else if relVal, _ := data["relation"].(string); relVal != "" {
			resolved = relVal
		}
		out = append(out, EdgeRow{
			Source: source,
			Target: target,
			Weight: weight.Float64,
			Type:   resolved,
		})
	}
	return out, rows.Err()
}

// ReadAgents returns every row of the optional agents table.
func (r *Reader) ReadAgents(ctx context.Context) ([]AgentRow, error) {
	if !r.HasTable("agents") {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT name, data FROM agents`)
	if err != nil {
		return nil, wrapQuery("agents", err)
	}
	defer rows.Close()

	var out []AgentRow
	for rows.Next() {
		var name string
		var dataRaw any
		if err := rows.Scan(&name, &dataRaw); err != nil {
			r.log.Warn("agents: skipping unreadable row", "err", err)
			continue
		}
		out = append(out, AgentRow{Name: name, Data: parseMetadata(dataRaw)})
	}
	return out, rows.Err()
}

// ReadStats returns every row of the optional stats key/value table.
func (r *Reader) ReadStats(ctx context.Context) ([]StatRow, error) {
	if !r.HasTable("stats") {
		return nil, nil
	}
	return r.readKeyValueTable(ctx, "stats")
}

// ReadKV returns every row of the optional kv_store table.
func (r *Reader) ReadKV(ctx context.Context) ([]KVRow, error) {
	if !r.HasTable("kv_store") {
		return nil, nil
	}
	rows, err := r.readKeyValueTable(ctx, "kv_store")
	if err != nil {
		return nil, err
	}
	out := make([]KVRow, len(rows))
	for i, row := range rows {
		out[i] = KVRow(row)
	}
	return out, nil
}

func (r *Reader) readKeyValueTable(ctx context.Context, table string) ([]StatRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM `+table)
	if err != nil {
		return nil, wrapQuery(table, err)
	}
	defer rows.Close()

	var out []StatRow
	for rows.Next() {
		var row StatRow
		if err := rows.Scan(&row.Key, &row.Value); err != nil {
			r.log.Warn(table+": skipping unreadable row", "err", err)
			continue
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReadLearningData returns every row of the optional combined RL state
// blob table, keyed by algorithm name with an arbitrary JSON Q-table
// payload.
func (r *Reader) ReadLearningData(ctx context.Context) ([]LearningDataRow, error) {
	if !r.HasTable("learning_data") {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT algorithm, q_table FROM learning_data`)
	if err != nil {
		return nil, wrapQuery("learning_data", err)
	}
	defer rows.Close()

	var out []LearningDataRow
	for rows.Next() {
		var algorithm string
		var qTableRaw any
		if err := rows.Scan(&algorithm, &qTableRaw); err != nil {
			r.log.Warn("learning_data: skipping unreadable row", "err", err)
			continue
		}
		out = append(out, LearningDataRow{Algorithm: algorithm, QTable: parseMetadata(qTableRaw)})
	}
	return out, rows.Err()
}

func wrapQuery(table string, err error) error {
	return &queryError{table: table, err: err}
}

type queryError struct {
	table string
	err   error
}

func (e *queryError) Error() string {
	return "store: query " + e.table + ": " + e.err.Error()
}

func (e *queryError) Unwrap() error {
	return e.err
}
