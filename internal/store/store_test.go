package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"deaddrop/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testDrop(codename string, now time.Time) *models.DeadDrop {
	return &models.DeadDrop{
		ID:             "drop-" + codename,
		Codename:       codename,
		CreatedAt:      now,
		TTLSeconds:     3600,
		ExpiresAt:      now.Add(time.Hour),
		Password:       "hunter2hunter2",
		MaxRetrievals:  0,
		Status:         models.StatusActive,
		CarrierKey:     "sha256/ab/abcd",
		CarrierType:    models.CarrierGenerated,
		CarrierWidth:   64,
		CarrierHeight:  48,
		BitsPerChannel: 2,
		PayloadSize:    1024,
		Encrypted:      true,
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	st := testStore(t)
	version, err := st.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version < 1 {
		t.Fatalf("expected schema version >= 1, got %d", version)
	}
}

func TestCreateAndGetDrop(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	drop := testDrop("SILENT-FALCON-0001", now)
	drop.PasswordHint = "the usual"
	drop.Tags = []string{"ops", "q3"}
	drop.OriginalFilename = "plans.pdf"
	drop.MimeType = "application/pdf"

	if err := st.CreateDrop(ctx, drop); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetDrop(ctx, drop.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected drop, got nil")
	}
	if got.Codename != "SILENT-FALCON-0001" {
		t.Fatalf("unexpected codename %q", got.Codename)
	}
	if got.Password != "hunter2hunter2" {
		t.Fatal("password bytes must round-trip unchanged")
	}
	if got.PasswordHint != "the usual" {
		t.Fatalf("unexpected hint %q", got.PasswordHint)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "ops" {
		t.Fatalf("unexpected tags %v", got.Tags)
	}
	if !got.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", got.ExpiresAt)
	}
	if !got.Encrypted {
		t.Fatal("encrypted flag lost")
	}

	byCodename, err := st.GetDropByCodename(ctx, "SILENT-FALCON-0001")
	if err != nil {
		t.Fatalf("get by codename: %v", err)
	}
	if byCodename == nil || byCodename.ID != drop.ID {
		t.Fatal("codename lookup did not resolve to the same drop")
	}
}

func TestGetDropMissing(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	got, err := st.GetDrop(ctx, "nope")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
	}
	got, err = st.GetDropByCodename(ctx, "NO-SUCH-0000")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestCreateDropDuplicateCodename(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := testDrop("GREY-RAVEN-1234", now)
	if err := st.CreateDrop(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := testDrop("GREY-RAVEN-1234", now)
	second.ID = "other-id"
	err := st.CreateDrop(ctx, second)
	if err == nil {
		t.Fatal("expected unique constraint error")
	}
	if !IsUniqueConstraint(err) {
		t.Fatalf("expected unique constraint error, got %v", err)
	}
}

func TestRecordRetrieval(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	drop := testDrop("IRON-OWL-0007", now)
	if err := st.CreateDrop(ctx, drop); err != nil {
		t.Fatalf("create: %v", err)
	}

	first := now.Add(time.Minute)
	if err := st.RecordRetrieval(ctx, drop.ID, models.StatusRetrieved, first); err != nil {
		t.Fatalf("record: %v", err)
	}
	second := now.Add(2 * time.Minute)
	if err := st.RecordRetrieval(ctx, drop.ID, models.StatusRetrieved, second); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := st.GetDrop(ctx, drop.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RetrievalCount != 2 {
		t.Fatalf("expected count 2, got %d", got.RetrievalCount)
	}
	if got.FirstRetrievedAt == nil || !got.FirstRetrievedAt.Equal(first) {
		t.Fatalf("first retrieved not preserved: %v", got.FirstRetrievedAt)
	}
	if got.LastRetrievedAt == nil || !got.LastRetrievedAt.Equal(second) {
		t.Fatalf("last retrieved not updated: %v", got.LastRetrievedAt)
	}
	if got.Status != models.StatusRetrieved {
		t.Fatalf("unexpected status %q", got.Status)
	}
}

func TestDeleteDropIdempotent(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	drop := testDrop("PALE-THORN-4242", now)
	if err := st.CreateDrop(ctx, drop); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.DeleteDrop(ctx, drop.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteDrop(ctx, drop.ID); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}

	got, err := st.GetDrop(ctx, drop.ID)
	if err != nil || got != nil {
		t.Fatalf("expected drop gone, got (%v, %v)", got, err)
	}
	exists, err := st.CodenameExists("PALE-THORN-4242")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("codename index entry should be gone with the row")
	}
}

func TestEventsSurviveDropDeletion(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	drop := testDrop("DUSTY-WREN-9000", now)
	if err := st.CreateDrop(ctx, drop); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, typ := range []string{models.EventUpload, models.EventFailedPassword, models.EventRetrieval} {
		event := &models.DropEvent{DropID: drop.ID, Type: typ, IPAddress: "10.0.0.1", UserAgent: "curl", CreatedAt: now}
		if err := st.AppendEvent(ctx, event); err != nil {
			t.Fatalf("append %s: %v", typ, err)
		}
		if event.ID == 0 {
			t.Fatal("event id not assigned")
		}
	}

	if err := st.DeleteDrop(ctx, drop.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	events, err := st.ListEvents(ctx, drop.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events after deletion, got %d", len(events))
	}
	if events[0].Type != models.EventUpload || events[2].Type != models.EventRetrieval {
		t.Fatalf("events out of order: %+v", events)
	}
}

func TestListSweepable(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := testDrop("CALM-RIVER-0001", now)
	if err := st.CreateDrop(ctx, fresh); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	expired := testDrop("COLD-EMBER-0002", now.Add(-2*time.Hour))
	expired.ID = "drop-expired"
	expired.ExpiresAt = now.Add(-time.Hour)
	if err := st.CreateDrop(ctx, expired); err != nil {
		t.Fatalf("create expired: %v", err)
	}

	burned := testDrop("ASHEN-FOX-0003", now)
	burned.ID = "drop-burned"
	burned.Status = models.StatusBurned
	if err := st.CreateDrop(ctx, burned); err != nil {
		t.Fatalf("create burned: %v", err)
	}

	due, err := st.ListSweepable(ctx, now)
	if err != nil {
		t.Fatalf("list sweepable: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 sweepable drops, got %d", len(due))
	}
	for _, drop := range due {
		if drop.ID == fresh.ID {
			t.Fatal("fresh drop must not be sweepable")
		}
	}
}

func TestStatusCounts(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := testDrop("LONE-PIKE-0001", now)
	b := testDrop("LONE-PIKE-0002", now)
	b.ID = "drop-b"
	c := testDrop("LONE-PIKE-0003", now)
	c.ID = "drop-c"
	c.Status = models.StatusBurned

	for _, drop := range []*models.DeadDrop{a, b, c} {
		if err := st.CreateDrop(ctx, drop); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	counts, err := st.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[models.StatusActive] != 2 || counts[models.StatusBurned] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
