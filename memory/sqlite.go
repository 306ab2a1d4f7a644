package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/supportmesh/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	agent_role TEXT NOT NULL,
	message_type TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT,
	timestamp DATETIME NOT NULL,
	importance_score REAL NOT NULL DEFAULT 0.5
);

CREATE INDEX IF NOT EXISTS idx_memory_entries_session ON memory_entries(session_id, timestamp);

CREATE TABLE IF NOT EXISTS agent_states (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	agent_role TEXT NOT NULL,
	state_data TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(session_id, agent_role)
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	last_updated DATETIME NOT NULL,
	total_messages INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore is a durable MemoryStore backed by an embedded SQLite
// database. A single file holds the entry log, the latest state snapshot
// per (session, role) pair and the per-session aggregate record.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and prepares the
// schema. WAL mode and a busy timeout keep concurrent workflow runs against
// the same file from failing immediately.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append implements core.MemoryStore. The entry insert and the session
// upsert commit in one transaction so counters never drift from the log.
func (s *SQLiteStore) Append(ctx context.Context, entry core.MemoryEntry) error {
	if entry.SessionID == "" {
		return fmt.Errorf("memory entry requires a session id")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	metadata := ""
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		metadata = string(raw)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memory_entries (session_id, agent_role, message_type, content, metadata, timestamp, importance_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID, string(entry.AgentRole), string(entry.MessageType), entry.Content, metadata, entry.Timestamp, entry.Importance,
	); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, created_at, last_updated, total_messages)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(session_id) DO UPDATE SET
			last_updated = excluded.last_updated,
			total_messages = total_messages + 1`,
		entry.SessionID, entry.Timestamp, entry.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entry: %w", err)
	}

	return nil
}

// Query implements core.MemoryStore; entries are returned newest first.
func (s *SQLiteStore) Query(ctx context.Context, sessionID string, filter core.QueryFilter) ([]core.MemoryEntry, error) {
	query := `SELECT session_id, agent_role, message_type, content, COALESCE(metadata, ''), timestamp, importance_score
		FROM memory_entries WHERE session_id = ?`
	args := []any{sessionID}

	query, args = applyFilter(query, args, filter)
	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search implements core.MemoryStore; matches are ranked by importance
// descending, then recency descending.
func (s *SQLiteStore) Search(ctx context.Context, sessionID, query string, filter core.QueryFilter) ([]core.MemoryEntry, error) {
	stmt := `SELECT session_id, agent_role, message_type, content, COALESCE(metadata, ''), timestamp, importance_score
		FROM memory_entries WHERE session_id = ? AND LOWER(content) LIKE '%' || LOWER(?) || '%'`
	args := []any{sessionID, query}

	stmt, args = applyFilter(stmt, args, filter)
	stmt += " ORDER BY importance_score DESC, timestamp DESC, id DESC"

	if filter.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// SaveSnapshot implements core.MemoryStore via a latest-wins upsert on the
// (session, role) pair.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, sessionID string, role core.AgentRole, state *core.SessionState) error {
	if state == nil {
		return fmt.Errorf("snapshot state must not be nil")
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_states (session_id, agent_role, state_data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, agent_role) DO UPDATE SET
			state_data = excluded.state_data,
			updated_at = excluded.updated_at`,
		sessionID, string(role), string(raw), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot implements core.MemoryStore.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, sessionID string, role core.AgentRole) (*core.SessionState, error) {
	var raw string

	err := s.db.QueryRowContext(ctx, `
		SELECT state_data FROM agent_states WHERE session_id = ? AND agent_role = ?`,
		sessionID, string(role),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var state core.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return &state, nil
}

// Summarize implements core.MemoryStore.
func (s *SQLiteStore) Summarize(ctx context.Context, sessionID string) (*core.SessionSummary, error) {
	summary := &core.SessionSummary{
		SessionID:       sessionID,
		MessagesByAgent: make(map[core.AgentRole]int),
	}

	var created, updated time.Time

	err := s.db.QueryRowContext(ctx, `
		SELECT created_at, last_updated, total_messages FROM sessions WHERE session_id = ?`,
		sessionID,
	).Scan(&created, &updated, &summary.TotalMessages)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load session record: %w", err)
	}

	summary.CreatedAt = created.UTC()
	summary.LastUpdated = updated.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_role, COUNT(*) FROM memory_entries WHERE session_id = ? GROUP BY agent_role`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries by agent: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			role  string
			count int
		)

		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("failed to scan agent count: %w", err)
		}

		summary.MessagesByAgent[core.AgentRole(role)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agent counts: %w", err)
	}

	recent, err := s.Query(ctx, sessionID, core.QueryFilter{Limit: 5})
	if err != nil {
		return nil, err
	}

	summary.Recent = recent

	return summary, nil
}

// PurgeOlderThan implements core.MemoryStore.
func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)

	result, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge entries: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged entries: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM agent_states WHERE updated_at < ?`, cutoff); err != nil {
		return removed, fmt.Errorf("failed to purge snapshots: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_updated < ?`, cutoff); err != nil {
		return removed, fmt.Errorf("failed to purge sessions: %w", err)
	}

	return removed, nil
}

func applyFilter(query string, args []any, filter core.QueryFilter) (string, []any) {
	if filter.AgentRole != "" {
		query += " AND agent_role = ?"
		args = append(args, string(filter.AgentRole))
	}

	if filter.MinImportance > 0 {
		query += " AND importance_score >= ?"
		args = append(args, filter.MinImportance)
	}

	return query, args
}

func scanEntries(rows *sql.Rows) ([]core.MemoryEntry, error) {
	var entries []core.MemoryEntry

	for rows.Next() {
		var (
			entry    core.MemoryEntry
			role     string
			msgType  string
			metadata string
		)

		if err := rows.Scan(&entry.SessionID, &role, &msgType, &entry.Content, &metadata, &entry.Timestamp, &entry.Importance); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		entry.AgentRole = core.AgentRole(role)
		entry.MessageType = core.MessageType(msgType)
		entry.Timestamp = entry.Timestamp.UTC()

		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}
