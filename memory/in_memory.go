package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/supportmesh/core"
)

type sessionRecord struct {
	created time.Time
	updated time.Time
	count   int
}

type snapshotRecord struct {
	state   *core.SessionState
	updated time.Time
}

// InMemoryStore is a process-local MemoryStore. It offers:
//  1. An append-only per-session entry log with filtering and search
//  2. Latest-wins state snapshots per (session, role) pair
//
// Concurrency: protected by RWMutex.
// Search: linear scan with case-insensitive substring matching. Suitable
// for tests and demos; use SQLiteStore when sessions must survive process
// restarts.
type InMemoryStore struct {
	mu        sync.RWMutex
	entries   map[string][]core.MemoryEntry
	snapshots map[string]snapshotRecord
	sessions  map[string]*sessionRecord
}

// NewInMemoryStore creates a new in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries:   make(map[string][]core.MemoryEntry),
		snapshots: make(map[string]snapshotRecord),
		sessions:  make(map[string]*sessionRecord),
	}
}

// Append implements core.MemoryStore.
func (m *InMemoryStore) Append(ctx context.Context, entry core.MemoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if entry.SessionID == "" {
		return fmt.Errorf("memory entry requires a session id")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	entry.Metadata = copyMetadata(entry.Metadata)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[entry.SessionID] = append(m.entries[entry.SessionID], entry)

	record, exists := m.sessions[entry.SessionID]
	if !exists {
		record = &sessionRecord{created: entry.Timestamp}
		m.sessions[entry.SessionID] = record
	}

	record.updated = entry.Timestamp
	record.count++

	return nil
}

// Query implements core.MemoryStore; entries are returned newest first.
func (m *InMemoryStore) Query(ctx context.Context, sessionID string, filter core.QueryFilter) ([]core.MemoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.entries[sessionID]
	results := make([]core.MemoryEntry, 0, len(stored))

	for i := len(stored) - 1; i >= 0; i-- {
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}

		if !matchesFilter(stored[i], filter) {
			continue
		}

		results = append(results, copyEntry(stored[i]))
	}

	return results, nil
}

// Search implements core.MemoryStore; matches are ranked by importance
// descending, then recency descending.
func (m *InMemoryStore) Search(ctx context.Context, sessionID, query string, filter core.QueryFilter) ([]core.MemoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)

	var matches []core.MemoryEntry
	for _, entry := range m.entries[sessionID] {
		if !matchesFilter(entry, filter) {
			continue
		}

		if needle != "" && !strings.Contains(strings.ToLower(entry.Content), needle) {
			continue
		}

		matches = append(matches, copyEntry(entry))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Importance != matches[j].Importance {
			return matches[i].Importance > matches[j].Importance
		}

		return matches[i].Timestamp.After(matches[j].Timestamp)
	})

	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}

	return matches, nil
}

// SaveSnapshot implements core.MemoryStore; the stored state is a deep copy
// so later mutations by the caller do not leak in.
func (m *InMemoryStore) SaveSnapshot(ctx context.Context, sessionID string, role core.AgentRole, state *core.SessionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if state == nil {
		return fmt.Errorf("snapshot state must not be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[snapshotKey(sessionID, role)] = snapshotRecord{
		state:   state.Clone(),
		updated: time.Now().UTC(),
	}

	return nil
}

// LoadSnapshot implements core.MemoryStore.
func (m *InMemoryStore) LoadSnapshot(ctx context.Context, sessionID string, role core.AgentRole) (*core.SessionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.snapshots[snapshotKey(sessionID, role)]
	if !exists {
		return nil, nil
	}

	return record.state.Clone(), nil
}

// Summarize implements core.MemoryStore.
func (m *InMemoryStore) Summarize(ctx context.Context, sessionID string) (*core.SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.sessions[sessionID]
	if !exists {
		return nil, nil
	}

	summary := &core.SessionSummary{
		SessionID:       sessionID,
		CreatedAt:       record.created,
		LastUpdated:     record.updated,
		TotalMessages:   record.count,
		MessagesByAgent: make(map[core.AgentRole]int),
	}

	stored := m.entries[sessionID]
	for _, entry := range stored {
		summary.MessagesByAgent[entry.AgentRole]++
	}

	for i := len(stored) - 1; i >= 0 && len(summary.Recent) < 5; i-- {
		summary.Recent = append(summary.Recent, copyEntry(stored[i]))
	}

	return summary, nil
}

// PurgeOlderThan implements core.MemoryStore.
func (m *InMemoryStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-age)

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64

	for sessionID, stored := range m.entries {
		kept := stored[:0]
		for _, entry := range stored {
			if entry.Timestamp.Before(cutoff) {
				removed++
				continue
			}

			kept = append(kept, entry)
		}

		if len(kept) == 0 {
			delete(m.entries, sessionID)
			continue
		}

		m.entries[sessionID] = kept
	}

	for sessionID, record := range m.sessions {
		if record.updated.Before(cutoff) {
			delete(m.sessions, sessionID)
		}
	}

	for key, record := range m.snapshots {
		if record.updated.Before(cutoff) {
			delete(m.snapshots, key)
		}
	}

	return removed, nil
}

func snapshotKey(sessionID string, role core.AgentRole) string {
	return sessionID + "/" + string(role)
}

func matchesFilter(entry core.MemoryEntry, filter core.QueryFilter) bool {
	if filter.AgentRole != "" && entry.AgentRole != filter.AgentRole {
		return false
	}

	if filter.MinImportance > 0 && entry.Importance < filter.MinImportance {
		return false
	}

	return true
}

func copyEntry(entry core.MemoryEntry) core.MemoryEntry {
	entry.Metadata = copyMetadata(entry.Metadata)
	return entry
}

func copyMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}

	copied := make(map[string]any, len(metadata))
	for k, v := range metadata {
		copied[k] = v
	}

	return copied
}
