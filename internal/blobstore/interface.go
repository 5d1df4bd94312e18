// Package blobstore keeps stego carrier images out of the database.
// Drops reference their carrier by content-addressed key.
package blobstore

import "context"

// CarrierStore is the byte-storage abstraction behind the drop service.
type CarrierStore interface {
	// Put stores carrier bytes and returns their content-addressed key.
	Put(ctx context.Context, data []byte) (string, error)

	// Get returns the carrier bytes for a key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a carrier. Missing keys are ignored.
	Delete(ctx context.Context, key string) error
}
