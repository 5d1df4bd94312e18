package store

import (
	"context"
	"fmt"

	"deaddrop/internal/models"
)

// AppendEvent records one audit trail entry. Events are append-only and
// intentionally have no foreign key: the trail outlives the drop.
func (s *Store) AppendEvent(ctx context.Context, event *models.DropEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO drop_events (drop_id, event_type, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		event.DropID,
		event.Type,
		nullIfEmpty(event.IPAddress),
		nullIfEmpty(event.UserAgent),
		formatTime(event.CreatedAt),
	)
	if err != nil {
		return err
	}
	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// ListEvents returns all events for a drop in insertion order.
func (s *Store) ListEvents(ctx context.Context, dropID string) ([]models.DropEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, drop_id, event_type, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM drop_events WHERE drop_id = ? ORDER BY id
	`, dropID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.DropEvent
	for rows.Next() {
		var event models.DropEvent
		var createdAt string
		if err := rows.Scan(&event.ID, &event.DropID, &event.Type, &event.IPAddress, &event.UserAgent, &createdAt); err != nil {
			return nil, err
		}
		if event.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
