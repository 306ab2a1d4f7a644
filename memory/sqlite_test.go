package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/supportmesh/core"
)

// Interface compliance (compile-time assertions)
var _ core.MemoryStore = (*SQLiteStore)(nil)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() { store.Close() })

	return store
}

func TestSQLiteStore_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, e := range []core.MemoryEntry{
		entry("s1", core.RoleReceptionist, "first", 0.8),
		entry("s1", core.RoleAnalyst, "second", 0.6),
		entry("s1", core.RoleExpert, "third", 0.9),
	} {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	all, err := store.Query(ctx, "s1", core.QueryFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}

	if all[0].Content != "third" || all[2].Content != "first" {
		t.Errorf("expected newest first ordering, got %s ... %s", all[0].Content, all[2].Content)
	}

	byRole, _ := store.Query(ctx, "s1", core.QueryFilter{AgentRole: core.RoleAnalyst})
	if len(byRole) != 1 || byRole[0].Content != "second" {
		t.Errorf("unexpected role filter result: %#v", byRole)
	}

	important, _ := store.Query(ctx, "s1", core.QueryFilter{MinImportance: 0.7})
	if len(important) != 2 {
		t.Errorf("expected 2 important entries, got %d", len(important))
	}

	limited, _ := store.Query(ctx, "s1", core.QueryFilter{Limit: 2})
	if len(limited) != 2 || limited[0].Content != "third" {
		t.Errorf("unexpected limited result: %#v", limited)
	}

	if err := store.Append(ctx, core.MemoryEntry{Content: "no session"}); err == nil {
		t.Error("expected error for missing session id")
	}
}

func TestSQLiteStore_MetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	e := entry("s1", core.RoleReceptionist, "handoff to analyst", 0.7)
	e.MessageType = core.MessageTypeHandoff
	e.Metadata = map[string]any{"from_agent": "receptionist", "to_agent": "problem_analyst"}

	if err := store.Append(ctx, e); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	entries, err := store.Query(ctx, "s1", core.QueryFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	got := entries[0]
	if got.MessageType != core.MessageTypeHandoff {
		t.Errorf("unexpected message type: %s", got.MessageType)
	}

	if got.Metadata["from_agent"] != "receptionist" || got.Metadata["to_agent"] != "problem_analyst" {
		t.Errorf("unexpected metadata: %#v", got.Metadata)
	}

	if got.Importance != 0.7 {
		t.Errorf("unexpected importance: %v", got.Importance)
	}

	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "memory.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	state := core.NewSessionState(core.NewID(), "The app crashes on startup")

	if err := store.Append(ctx, entry(state.SessionID, core.RoleReceptionist, "noted", 0.8)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if err := store.Append(ctx, entry(state.SessionID, core.RoleAnalyst, "analyzed", 0.6)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if err := store.SaveSnapshot(ctx, state.SessionID, core.RoleReceptionist, state); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.Query(ctx, state.SessionID, core.QueryFilter{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after reopen, got %d", len(entries))
	}

	summary, err := reopened.Summarize(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	if summary == nil || summary.TotalMessages != 2 {
		t.Errorf("unexpected summary after reopen: %#v", summary)
	}

	snapshot, err := reopened.LoadSnapshot(ctx, state.SessionID, core.RoleReceptionist)
	if err != nil {
		t.Fatalf("load snapshot failed: %v", err)
	}

	if snapshot == nil || snapshot.Query.OriginalMessage != "The app crashes on startup" {
		t.Errorf("unexpected snapshot after reopen: %#v", snapshot)
	}
}

func TestSQLiteStore_Search(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, e := range []core.MemoryEntry{
		entry("s1", core.RoleExpert, "Password reset instructions", 0.6),
		entry("s1", core.RoleAnalyst, "Billing invoice duplicate", 0.9),
		entry("s1", core.RoleExpert, "password policy update", 0.7),
	} {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	matches, err := store.Search(ctx, "s1", "PASSWORD", core.QueryFilter{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 case-insensitive matches, got %d", len(matches))
	}

	if matches[0].Content != "password policy update" {
		t.Errorf("expected importance ranking, got %s first", matches[0].Content)
	}

	scoped, _ := store.Search(ctx, "s1", "invoice", core.QueryFilter{AgentRole: core.RoleExpert})
	if len(scoped) != 0 {
		t.Errorf("expected role filter to exclude match, got %#v", scoped)
	}
}

func TestSQLiteStore_SnapshotUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	state := core.NewSessionState(core.NewID(), "I was double charged")

	if err := store.SaveSnapshot(ctx, state.SessionID, core.RoleAnalyst, state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	state.CurrentAgent = core.RoleExpert
	state.HandoffReason = "needs escalation"

	if err := store.SaveSnapshot(ctx, state.SessionID, core.RoleAnalyst, state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.LoadSnapshot(ctx, state.SessionID, core.RoleAnalyst)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.CurrentAgent != core.RoleExpert || loaded.HandoffReason != "needs escalation" {
		t.Errorf("expected latest snapshot to win: %#v", loaded)
	}

	missing, err := store.LoadSnapshot(ctx, "unknown", core.RoleAnalyst)
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing snapshot, got %#v, %v", missing, err)
	}

	if err := store.SaveSnapshot(ctx, state.SessionID, core.RoleAnalyst, nil); err == nil {
		t.Error("expected error for nil state")
	}
}

func TestSQLiteStore_Summarize(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	missing, err := store.Summarize(ctx, "unknown")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for unknown session, got %#v, %v", missing, err)
	}

	roles := []core.AgentRole{
		core.RoleReceptionist,
		core.RoleAnalyst, core.RoleAnalyst,
		core.RoleExpert, core.RoleExpert, core.RoleExpert,
	}

	for i, role := range roles {
		if err := store.Append(ctx, entry("s1", role, fmt.Sprintf("message %d", i), 0.5)); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	summary, err := store.Summarize(ctx, "s1")
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	if summary.TotalMessages != 6 {
		t.Errorf("expected 6 total messages, got %d", summary.TotalMessages)
	}

	if summary.MessagesByAgent[core.RoleExpert] != 3 || summary.MessagesByAgent[core.RoleReceptionist] != 1 {
		t.Errorf("unexpected per-agent counts: %#v", summary.MessagesByAgent)
	}

	if len(summary.Recent) != 5 || summary.Recent[0].Content != "message 5" {
		t.Errorf("expected 5 newest entries, got %#v", summary.Recent)
	}
}

func TestSQLiteStore_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	old := entry("s-old", core.RoleReceptionist, "stale", 0.5)
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)

	if err := store.Append(ctx, old); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	oldState := core.NewSessionState(core.NewID(), "old question")
	if err := store.SaveSnapshot(ctx, "s-old", core.RoleReceptionist, oldState); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	if err := store.Append(ctx, entry("s-new", core.RoleReceptionist, "fresh", 0.5)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	removed, err := store.PurgeOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}

	if removed != 1 {
		t.Errorf("expected 1 removed entry, got %d", removed)
	}

	if summary, _ := store.Summarize(ctx, "s-old"); summary != nil {
		t.Errorf("expected stale session to be removed: %#v", summary)
	}

	// The snapshot was written just now, so it survives this window.
	snapshot, _ := store.LoadSnapshot(ctx, "s-old", core.RoleReceptionist)
	if snapshot == nil {
		t.Error("expected recent snapshot to survive")
	}

	fresh, _ := store.Query(ctx, "s-new", core.QueryFilter{})
	if len(fresh) != 1 {
		t.Errorf("expected fresh session to survive, got %d entries", len(fresh))
	}
}
