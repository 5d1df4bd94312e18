package models

import "time"

// Drop status values. Transitions are monotonic: once a drop reaches
// expired or burned it never returns to active.
const (
	StatusActive    = "active"
	StatusRetrieved = "retrieved"
	StatusExpired   = "expired"
	StatusBurned    = "burned"
)

// Event types recorded on the drop audit trail.
const (
	EventUpload         = "upload"
	EventRetrieval      = "retrieval"
	EventFailedPassword = "failed_password"
	EventExpired        = "expired"
	EventBurned         = "burned"
)

// Carrier image provenance.
const (
	CarrierGenerated = "generated"
	CarrierUploaded  = "uploaded"
)

// DeadDrop is a single password-gated drop. The carrier image bytes live
// in the blob store; the row references them by CarrierKey.
type DeadDrop struct {
	ID       string `json:"id"`
	Codename string `json:"codename"`

	CreatedAt  time.Time `json:"created_at"`
	TTLSeconds int64     `json:"ttl_seconds"`
	ExpiresAt  time.Time `json:"expires_at"`

	// Password holds the original credential bytes. It doubles as the
	// key-derivation input for the payload envelope, so it cannot be
	// hashed at rest without breaking decryption. Verification happens
	// by attempting AEAD decryption, never by comparison, and the field
	// is excluded from every API response.
	Password     string `json:"-"`
	PasswordHint string `json:"password_hint,omitempty"`

	MaxRetrievals    int    `json:"max_retrievals"`
	RetrievalCount   int    `json:"retrieval_count"`
	BurnAfterReading bool   `json:"burn_after_reading"`
	Status           string `json:"status"`

	CarrierKey     string `json:"-"`
	CarrierType    string `json:"carrier_type"`
	CarrierWidth   int    `json:"carrier_width"`
	CarrierHeight  int    `json:"carrier_height"`
	BitsPerChannel int    `json:"bits_per_channel"`

	PayloadSize      int64    `json:"payload_size"`
	Encrypted        bool     `json:"encrypted"`
	OriginalFilename string   `json:"original_filename,omitempty"`
	MimeType         string   `json:"mime_type,omitempty"`
	Tags             []string `json:"tags,omitempty"`

	FirstRetrievedAt *time.Time `json:"first_retrieved_at,omitempty"`
	LastRetrievedAt  *time.Time `json:"last_retrieved_at,omitempty"`
}

// IsExpired reports whether the TTL has elapsed at the given instant.
func (d *DeadDrop) IsExpired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// Terminal reports whether the drop has reached a terminal status.
func (d *DeadDrop) Terminal() bool {
	return d.Status == StatusExpired || d.Status == StatusBurned
}

// RetrievalsExhausted reports whether a positive retrieval quota is used up.
func (d *DeadDrop) RetrievalsExhausted() bool {
	return d.MaxRetrievals > 0 && d.RetrievalCount >= d.MaxRetrievals
}

// ShouldBurn evaluates the burn condition after a successful retrieval.
func (d *DeadDrop) ShouldBurn() bool {
	return d.BurnAfterReading || d.RetrievalsExhausted()
}

// RemainingRetrievals returns the number of retrievals left, or -1 when
// the drop is unlimited.
func (d *DeadDrop) RemainingRetrievals() int {
	if d.MaxRetrievals <= 0 {
		return -1
	}
	remaining := d.MaxRetrievals - d.RetrievalCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TimeRemaining returns the duration until expiry, clamped at zero.
func (d *DeadDrop) TimeRemaining(now time.Time) time.Duration {
	remaining := d.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DropEvent is one append-only audit trail entry. Events survive drop
// deletion; they are never rewritten or truncated.
type DropEvent struct {
	ID        int64     `json:"id"`
	DropID    string    `json:"drop_id"`
	Type      string    `json:"type"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
