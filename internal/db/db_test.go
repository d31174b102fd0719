package db

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTurnOrdering(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	conv, err := store.Turns.CreateConversation(ctx, "test", "chitchat")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	contents := []string{"first", "second", "third"}
	for _, c := range contents {
		if _, err := store.Turns.AppendTurn(ctx, conv.ID, "user", c, ""); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	turns, err := store.Turns.ListTurns(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	for i, want := range contents {
		if turns[i].Content != want {
			t.Errorf("turn %d content = %q, want %q", i, turns[i].Content, want)
		}
		if i > 0 && turns[i].ID <= turns[i-1].ID {
			t.Errorf("turn IDs not monotonic: %d then %d", turns[i-1].ID, turns[i].ID)
		}
	}

	recent, err := store.Turns.RecentTurns(ctx, conv.ID, 2)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "second" {
		t.Errorf("RecentTurns = %+v", recent)
	}
}

func TestGetConversationMissing(t *testing.T) {
	store := openTestStore(t)
	conv, err := store.Turns.GetConversation(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv != nil {
		t.Errorf("expected nil for missing conversation, got %+v", conv)
	}
}

func TestCompressionCacheUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	conv, err := store.Turns.CreateConversation(ctx, "test", "chitchat")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if entry, err := store.Cache.Get(ctx, "chitchat", conv.ID); err != nil || entry != nil {
		t.Fatalf("expected no entry, got %+v err %v", entry, err)
	}

	if err := store.Cache.Upsert(ctx, "chitchat", conv.ID, 10, "first summary"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	entry, err := store.Cache.Get(ctx, "chitchat", conv.ID)
	if err != nil || entry == nil {
		t.Fatalf("Get after upsert: %+v err %v", entry, err)
	}
	if entry.SummaryText != "first summary" || entry.CompressedUpToTurnID.Int64 != 10 {
		t.Errorf("unexpected entry: %+v", entry)
	}
	firstID := entry.ID

	// Refresh keeps a single row per (module, conversation).
	if err := store.Cache.Upsert(ctx, "chitchat", conv.ID, 20, "second summary"); err != nil {
		t.Fatalf("Upsert refresh: %v", err)
	}
	entry, err = store.Cache.Get(ctx, "chitchat", conv.ID)
	if err != nil || entry == nil {
		t.Fatalf("Get after refresh: %+v err %v", entry, err)
	}
	if entry.SummaryText != "second summary" || entry.CompressedUpToTurnID.Int64 != 20 {
		t.Errorf("refresh did not replace fields: %+v", entry)
	}
	if entry.ID != firstID {
		t.Errorf("refresh must not replace the row ID: %q vs %q", entry.ID, firstID)
	}

	// A different module gets its own entry.
	if err := store.Cache.Upsert(ctx, "rp-room", conv.ID, 5, "other"); err != nil {
		t.Fatalf("Upsert other module: %v", err)
	}
	other, err := store.Cache.Get(ctx, "rp-room", conv.ID)
	if err != nil || other == nil || other.SummaryText != "other" {
		t.Fatalf("per-module entry: %+v err %v", other, err)
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Memories.InsertPending(ctx, []string{"likes cats", "works remotely"}); err != nil {
		t.Fatalf("InsertPending: %v", err)
	}

	contents, err := store.Memories.ListActiveContents(ctx)
	if err != nil {
		t.Fatalf("ListActiveContents: %v", err)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 active contents, got %v", contents)
	}

	memories, err := store.Memories.List(ctx, 0)
	if err != nil || len(memories) != 2 {
		t.Fatalf("List: %v err %v", memories, err)
	}
	for _, m := range memories {
		if m.Status != MemoryStatusPending {
			t.Errorf("new memory should be pending, got %q", m.Status)
		}
	}

	if err := store.Memories.SetStatus(ctx, memories[0].ID, MemoryStatusConfirmed); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.Memories.SoftDelete(ctx, memories[1].ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	contents, err = store.Memories.ListActiveContents(ctx)
	if err != nil {
		t.Fatalf("ListActiveContents after delete: %v", err)
	}
	// Confirmed stays active, soft-deleted disappears.
	if len(contents) != 1 {
		t.Errorf("expected 1 active content, got %v", contents)
	}
}

func TestSettingsStore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	v, err := store.Settings.Get(ctx, "missing", "fallback")
	if err != nil || v != "fallback" {
		t.Errorf("Get missing = %q err %v", v, err)
	}
	if err := store.Settings.Set(ctx, "summarizer_model", "gpt-4o-mini"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Settings.Set(ctx, "summarizer_model", "gpt-4o"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, err = store.Settings.Get(ctx, "summarizer_model", "")
	if err != nil || v != "gpt-4o" {
		t.Errorf("Get = %q err %v", v, err)
	}
}
