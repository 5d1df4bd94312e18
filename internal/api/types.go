package api

import (
	"time"

	"deaddrop/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// StegoStats reports carrier utilization for a freshly created drop.
type StegoStats struct {
	ImageSize      int64   `json:"image_size"`
	ImageWidth     int     `json:"image_width"`
	ImageHeight    int     `json:"image_height"`
	PayloadSize    int64   `json:"payload_size"`
	EmbeddedSize   int64   `json:"embedded_size"`
	Capacity       int     `json:"capacity"`
	Utilization    float64 `json:"utilization"`
	BitsPerChannel int     `json:"bits_per_channel"`
}

// CreateDropRequest carries the multipart form fields of a create call.
// The file itself and the optional carrier image travel as file parts.
type CreateDropRequest struct {
	Password         string
	PasswordHint     string
	TTLSeconds       int64
	MaxRetrievals    int
	BurnAfterReading bool
	BitsPerChannel   int
	Tags             []string
}

// CreateDropResponse is returned by POST /v1/drops.
type CreateDropResponse struct {
	DropID           string     `json:"drop_id"`
	Codename         string     `json:"codename"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	TTLSeconds       int64      `json:"ttl_seconds"`
	MaxRetrievals    int        `json:"max_retrievals"`
	BurnAfterReading bool       `json:"burn_after_reading"`
	Steganography    StegoStats `json:"steganography"`
}

// DropMetadataResponse is the password-free metadata view. It never
// carries the carrier image or any ciphertext.
type DropMetadataResponse struct {
	Codename            string    `json:"codename"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
	ExpiresIn           string    `json:"expires_in"`
	TTLSeconds          int64     `json:"ttl_seconds"`
	MaxRetrievals       int       `json:"max_retrievals"`
	RetrievalCount      int       `json:"retrieval_count"`
	RetrievalsRemaining int       `json:"retrievals_remaining"`
	BurnAfterReading    bool      `json:"burn_after_reading"`
	PasswordHint        string    `json:"password_hint,omitempty"`
	PayloadSize         int64     `json:"payload_size"`
	PayloadSizeHuman    string    `json:"payload_size_human"`
	OriginalFilename    string    `json:"original_filename,omitempty"`
	MimeType            string    `json:"mime_type,omitempty"`
	Tags                []string  `json:"tags,omitempty"`
	Warnings            []string  `json:"warnings,omitempty"`
}

// RetrieveRequest carries the password for a retrieval.
type RetrieveRequest struct {
	Password string `json:"password"`
}

// RetrieveInfo is decoded from the response headers of a retrieval.
type RetrieveInfo struct {
	Codename            string
	Filename            string
	MimeType            string
	Burned              bool
	RetrievalCount      int
	RetrievalsRemaining int
}

// EventsResponse is the admin view of a drop's audit trail.
type EventsResponse struct {
	DropID string             `json:"drop_id"`
	Events []models.DropEvent `json:"events"`
}

// SweepResponse reports the outcome of a forced sweep.
type SweepResponse struct {
	Expired int `json:"expired"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// InfoResponse is returned by GET /v1/info.
type InfoResponse struct {
	Version       string         `json:"version"`
	DBPath        string         `json:"db_path,omitempty"`
	SchemaVersion int            `json:"schema_version,omitempty"`
	DropCounts    map[string]int `json:"drop_counts"`
	TotalDrops    int            `json:"total_drops"`
}
