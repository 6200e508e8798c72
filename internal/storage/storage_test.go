package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestPendingLinkLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddPendingLink(ctx, PendingLink{
		GuildID:           "g1",
		UserID:            "u1",
		ChannelID:         "c1",
		OriginalMessageID: "m1",
		URL:               "https://example.com/notes",
		CreatedAt:         time.Now(),
	})
	if err != nil {
		t.Fatalf("add pending link: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	if err := store.UpdatePendingBotMessage(ctx, id, "bot-1"); err != nil {
		t.Fatalf("update bot message: %v", err)
	}

	links, err := store.ListPendingForUser(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(links) != 1 || links[0].BotMessageID != "bot-1" {
		t.Fatalf("unexpected pending links: %+v", links)
	}

	counts, err := store.CountPendingByGuild(ctx)
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if counts["g1"] != 1 {
		t.Fatalf("expected count 1, got %d", counts["g1"])
	}

	if err := store.DeletePendingLink(ctx, id); err != nil {
		t.Fatalf("delete pending: %v", err)
	}
	links, err = store.ListPendingForUser(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(links))
	}
}

func TestSavedLinksByCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, entry := range []SavedLink{
		{GuildID: "g1", URL: "https://example.com/ml", Category: "study", Author: "alice", CreatedAt: time.Now()},
		{GuildID: "g1", URL: "https://example.com/jazz", Category: "music", Author: "bob", CreatedAt: time.Now()},
		{GuildID: "g2", URL: "https://example.com/other", Category: "study", Author: "carol", CreatedAt: time.Now()},
	} {
		if _, err := store.AddSavedLink(ctx, entry); err != nil {
			t.Fatalf("add saved link: %v", err)
		}
	}

	links, err := store.ListSavedLinks(ctx, "g1", "Study")
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(links) != 1 || links[0].URL != "https://example.com/ml" {
		t.Fatalf("unexpected category result: %+v", links)
	}

	all, err := store.ListSavedLinks(ctx, "g1", "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 links, got %d", len(all))
	}

	categories, err := store.ListCategories(ctx, "g1")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if categories["study"] != 1 || categories["music"] != 1 {
		t.Fatalf("unexpected categories: %v", categories)
	}

	results, err := store.SearchSavedLinks(ctx, "g1", "jazz")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Category != "music" {
		t.Fatalf("unexpected search results: %+v", results)
	}
}
