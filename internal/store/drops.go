package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"deaddrop/internal/models"
)

const dropColumns = `
	id, codename, created_at, ttl_seconds, expires_at,
	password, password_hint, max_retrievals, retrieval_count,
	burn_after_reading, status, carrier_key, carrier_type,
	carrier_width, carrier_height, bits_per_channel,
	payload_size, encrypted, original_filename, mime_type, tags,
	first_retrieved_at, last_retrieved_at`

// CreateDrop inserts a new drop. The UNIQUE constraint on codename backs
// the collision retry in the codename generator.
func (s *Store) CreateDrop(ctx context.Context, drop *models.DeadDrop) error {
	if drop == nil {
		return fmt.Errorf("drop is required")
	}

	tags, err := encodeTags(drop.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drops (
			id, codename, created_at, ttl_seconds, expires_at,
			password, password_hint, max_retrievals, retrieval_count,
			burn_after_reading, status, carrier_key, carrier_type,
			carrier_width, carrier_height, bits_per_channel,
			payload_size, encrypted, original_filename, mime_type, tags,
			first_retrieved_at, last_retrieved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		drop.ID,
		drop.Codename,
		formatTime(drop.CreatedAt),
		drop.TTLSeconds,
		formatTime(drop.ExpiresAt),
		drop.Password,
		nullIfEmpty(drop.PasswordHint),
		drop.MaxRetrievals,
		drop.RetrievalCount,
		boolToInt(drop.BurnAfterReading),
		drop.Status,
		drop.CarrierKey,
		drop.CarrierType,
		drop.CarrierWidth,
		drop.CarrierHeight,
		drop.BitsPerChannel,
		drop.PayloadSize,
		boolToInt(drop.Encrypted),
		nullIfEmpty(drop.OriginalFilename),
		nullIfEmpty(drop.MimeType),
		tags,
		nullTime(drop.FirstRetrievedAt),
		nullTime(drop.LastRetrievedAt),
	)
	return err
}

// GetDrop returns a drop by internal id, or nil when absent.
func (s *Store) GetDrop(ctx context.Context, id string) (*models.DeadDrop, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM drops WHERE id = ?", dropColumns), id)
	return scanDrop(row)
}

// GetDropByCodename returns a drop by its public handle, or nil when
// absent. The codename must already be canonicalized.
func (s *Store) GetDropByCodename(ctx context.Context, codename string) (*models.DeadDrop, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM drops WHERE codename = ?", dropColumns), codename)
	return scanDrop(row)
}

// CodenameExists is the collision check used by GenerateCodename.
func (s *Store) CodenameExists(codename string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM drops WHERE codename = ? LIMIT 1", codename).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordRetrieval applies the post-retrieval state change as one update:
// counter increment, first/last retrieved stamps, status.
func (s *Store) RecordRetrieval(ctx context.Context, id, status string, at time.Time) error {
	stamp := formatTime(at)
	_, err := s.db.ExecContext(ctx, `
		UPDATE drops SET
			retrieval_count = retrieval_count + 1,
			first_retrieved_at = COALESCE(first_retrieved_at, ?),
			last_retrieved_at = ?,
			status = ?
		WHERE id = ?
	`, stamp, stamp, status, id)
	return err
}

// SetStatus updates the lifecycle status.
func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE drops SET status = ? WHERE id = ?", status, id)
	return err
}

// DeleteDrop removes the drop row. Idempotent; events stay.
func (s *Store) DeleteDrop(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM drops WHERE id = ?", id)
	return err
}

// ListSweepable returns drops due for physical deletion.
func (s *Store) ListSweepable(ctx context.Context, now time.Time) ([]*models.DeadDrop, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM drops WHERE status = ? OR expires_at < ?", dropColumns),
		models.StatusBurned, formatTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drops []*models.DeadDrop
	for rows.Next() {
		drop, err := scanDrop(rows)
		if err != nil {
			return nil, err
		}
		drops = append(drops, drop)
	}
	return drops, rows.Err()
}

// StatusCounts returns the number of drops per lifecycle status.
func (s *Store) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM drops GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDrop(row rowScanner) (*models.DeadDrop, error) {
	var (
		drop             models.DeadDrop
		createdAt        string
		expiresAt        string
		hint             sql.NullString
		burn             int
		encrypted        int
		filename         sql.NullString
		mimeType         sql.NullString
		tags             sql.NullString
		firstRetrievedAt sql.NullString
		lastRetrievedAt  sql.NullString
	)

	err := row.Scan(
		&drop.ID, &drop.Codename, &createdAt, &drop.TTLSeconds, &expiresAt,
		&drop.Password, &hint, &drop.MaxRetrievals, &drop.RetrievalCount,
		&burn, &drop.Status, &drop.CarrierKey, &drop.CarrierType,
		&drop.CarrierWidth, &drop.CarrierHeight, &drop.BitsPerChannel,
		&drop.PayloadSize, &encrypted, &filename, &mimeType, &tags,
		&firstRetrievedAt, &lastRetrievedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if drop.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if drop.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	drop.PasswordHint = hint.String
	drop.BurnAfterReading = burn != 0
	drop.Encrypted = encrypted != 0
	drop.OriginalFilename = filename.String
	drop.MimeType = mimeType.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &drop.Tags); err != nil {
			return nil, err
		}
	}
	if drop.FirstRetrievedAt, err = parseNullTime(firstRetrievedAt); err != nil {
		return nil, err
	}
	if drop.LastRetrievedAt, err = parseNullTime(lastRetrievedAt); err != nil {
		return nil, err
	}

	return &drop, nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
