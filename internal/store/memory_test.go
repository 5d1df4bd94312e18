package store

import (
	"context"
	"testing"
	"time"

	"deaddrop/internal/models"
)

func TestMemoryStoreCreateGetDelete(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	drop := testDrop("VELVET-CROW-0042", now)
	if err := m.CreateDrop(ctx, drop); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.CreateDrop(ctx, testDrop("VELVET-CROW-0042", now)); err == nil {
		t.Fatal("expected duplicate error")
	}

	got, err := m.GetDropByCodename(ctx, "VELVET-CROW-0042")
	if err != nil || got == nil {
		t.Fatalf("get by codename: (%v, %v)", got, err)
	}

	// Returned drops are copies; mutating them must not leak back.
	got.RetrievalCount = 99
	again, _ := m.GetDrop(ctx, drop.ID)
	if again.RetrievalCount != 0 {
		t.Fatal("store returned a shared reference")
	}

	if err := m.DeleteDrop(ctx, drop.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.DeleteDrop(ctx, drop.ID); err != nil {
		t.Fatalf("delete should be idempotent: %v", err)
	}
	exists, _ := m.CodenameExists("VELVET-CROW-0042")
	if exists {
		t.Fatal("codename index should be cleared on delete")
	}
}

func TestMemoryStoreRecordRetrieval(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	drop := testDrop("BRAVE-HAWK-0001", now)
	if err := m.CreateDrop(ctx, drop); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.RecordRetrieval(ctx, drop.ID, models.StatusRetrieved, now); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, _ := m.GetDrop(ctx, drop.ID)
	if got.RetrievalCount != 1 || got.Status != models.StatusRetrieved {
		t.Fatalf("unexpected state after retrieval: %+v", got)
	}
	if got.FirstRetrievedAt == nil || got.LastRetrievedAt == nil {
		t.Fatal("retrieval timestamps not set")
	}
}

func TestMemoryStoreListSweepable(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := testDrop("QUIET-OWL-0010", now)
	expired := testDrop("QUIET-OWL-0011", now)
	expired.ID = "expired"
	expired.ExpiresAt = now.Add(-time.Minute)
	burned := testDrop("QUIET-OWL-0012", now)
	burned.ID = "burned"
	burned.Status = models.StatusBurned

	for _, d := range []*models.DeadDrop{fresh, expired, burned} {
		if err := m.CreateDrop(ctx, d); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	due, err := m.ListSweepable(ctx, now)
	if err != nil {
		t.Fatalf("sweepable: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 sweepable, got %d", len(due))
	}
}

func TestMemoryStoreEvents(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	event := &models.DropEvent{DropID: "some-drop", Type: models.EventUpload, CreatedAt: now}
	if err := m.AppendEvent(ctx, event); err != nil {
		t.Fatalf("append: %v", err)
	}
	if event.ID == 0 {
		t.Fatal("event id not assigned")
	}

	events, err := m.ListEvents(ctx, "some-drop")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Type != models.EventUpload {
		t.Fatalf("unexpected events %+v", events)
	}
}
