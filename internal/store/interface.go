package store

import (
	"context"
	"time"

	"deaddrop/internal/models"
)

// DropStore is the repository behind the drop lifecycle. It is injected
// into the service layer so tests can substitute the in-memory
// implementation without global state.
//
// Lookups return (nil, nil) when no drop matches; mutation of a missing
// drop is a no-op. Atomicity of check-then-increment is the caller's
// responsibility (per-drop locking in the service layer); the store only
// guarantees that each single call is applied atomically.
type DropStore interface {
	// CreateDrop persists a new drop and its codename index entry.
	CreateDrop(ctx context.Context, drop *models.DeadDrop) error

	GetDrop(ctx context.Context, id string) (*models.DeadDrop, error)
	GetDropByCodename(ctx context.Context, codename string) (*models.DeadDrop, error)
	CodenameExists(codename string) (bool, error)

	// RecordRetrieval increments the retrieval counter, stamps
	// first/last retrieved times and sets the given status, as one
	// atomic update.
	RecordRetrieval(ctx context.Context, id, status string, at time.Time) error

	SetStatus(ctx context.Context, id, status string) error

	// DeleteDrop removes the drop row. Idempotent. Events are retained;
	// they are the audit trail.
	DeleteDrop(ctx context.Context, id string) error

	AppendEvent(ctx context.Context, event *models.DropEvent) error
	ListEvents(ctx context.Context, dropID string) ([]models.DropEvent, error)

	// ListSweepable returns drops the retention sweeper should delete:
	// every drop past its expiry plus any drop already burned (covers
	// burn timers lost to a restart).
	ListSweepable(ctx context.Context, now time.Time) ([]*models.DeadDrop, error)

	StatusCounts(ctx context.Context) (map[string]int, error)
}
