package core

import (
	"context"
	"time"
)

// MemoryEntry is the append-only persisted projection of a message. Entries
// for a session are monotonically increasing in timestamp and immutable once
// written.
type MemoryEntry struct {
	SessionID   string         `json:"session_id"`
	AgentRole   AgentRole      `json:"agent_role"`
	MessageType MessageType    `json:"message_type"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Importance  float64        `json:"importance_score"`
}

// QueryFilter narrows memory retrieval. The zero value matches everything
// with no limit.
type QueryFilter struct {
	// AgentRole restricts results to entries written by one role.
	AgentRole AgentRole
	// MinImportance drops entries scored below the threshold.
	MinImportance float64
	// Limit caps the number of returned entries (0 = unlimited).
	Limit int
}

// SessionSummary is the derived per-session aggregate view, computed on
// demand from the stored entries.
type SessionSummary struct {
	SessionID       string            `json:"session_id"`
	CreatedAt       time.Time         `json:"created_at"`
	LastUpdated     time.Time         `json:"last_updated"`
	TotalMessages   int               `json:"total_messages"`
	MessagesByAgent map[AgentRole]int `json:"messages_by_agent"`
	Recent          []MemoryEntry     `json:"recent"`
}

// MemoryStore defines the durable, session-scoped log of messages and state
// snapshots.
//
// Guarantees implementations must provide:
//   - Append is durable before returning success, and atomically upserts the
//     session record (first write wins for creation time, every write bumps
//     last-updated and the message counter).
//   - Append order is preserved when serving Query and Summarize for the
//     same session.
//   - SaveSnapshot keeps only the latest snapshot per (session, role) pair.
//   - Concurrent operations on different sessions do not interfere.
//
// Callers treat store failures as best-effort telemetry: errors are logged
// and degraded to empty results, never a reason to abort a pipeline run.
type MemoryStore interface {
	// Append durably records one entry.
	Append(ctx context.Context, entry MemoryEntry) error

	// Query returns entries for a session, newest first, narrowed by filter.
	Query(ctx context.Context, sessionID string, filter QueryFilter) ([]MemoryEntry, error)

	// Search returns entries whose content contains the query substring,
	// ranked by importance descending then recency descending.
	Search(ctx context.Context, sessionID, query string, filter QueryFilter) ([]MemoryEntry, error)

	// SaveSnapshot persists the state for a (session, role) pair, replacing
	// any prior snapshot for that pair.
	SaveSnapshot(ctx context.Context, sessionID string, role AgentRole, state *SessionState) error

	// LoadSnapshot returns the latest snapshot for a (session, role) pair,
	// or (nil, nil) when none exists.
	LoadSnapshot(ctx context.Context, sessionID string, role AgentRole) (*SessionState, error)

	// Summarize computes the aggregate view for a session, or (nil, nil)
	// when the session has never been written. The Recent slice holds at
	// most the five newest entries.
	Summarize(ctx context.Context, sessionID string) (*SessionSummary, error)

	// PurgeOlderThan removes entries (and session records) older than the
	// retention window and reports how many entries were removed.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
