// Package registry keeps the canonical record of minted credentials. IDs are
// content-addressed: the blake2b-128 digest of the canonical metadata
// encoding, which makes duplicate detection a key lookup. Credentials are
// soulbound: there is no transfer operation anywhere in this API.
package registry

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	"trustforge/internal/trust"
)

// MaxMetadataBytes bounds the encoded metadata of one credential: 4 KiB.
const MaxMetadataBytes = 4096

// Aliases for the shared credential types, so callers of the registry can
// depend on this package alone.
type (
	CredentialMetadata = trust.CredentialMetadata
	Visibility         = trust.Visibility
)

// Record is one minted credential.
type Record struct {
	ID        string                   `json:"id"`
	Owner     string                   `json:"owner"`
	Metadata  trust.CredentialMetadata `json:"metadata"`
	CreatedAt time.Time                `json:"created_at"`
}

// Credential converts a record into the scoring engine's view.
func (r Record) Credential() trust.Credential {
	return trust.Credential{
		ID:                 r.ID,
		Owner:              r.Owner,
		CredentialMetadata: r.Metadata,
	}
}

// Store persists credential records.
type Store interface {
	// Save inserts a new record. Returns sentinel.ErrConflict when a record
	// with the same ID already exists, regardless of owner.
	Save(ctx context.Context, record Record) error

	// FindByID returns a record or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id string) (Record, error)

	// Update replaces an existing record. Returns sentinel.ErrNotFound when
	// the ID is unknown.
	Update(ctx context.Context, record Record) error

	// Delete removes a record. Returns sentinel.ErrNotFound when the ID is
	// unknown.
	Delete(ctx context.Context, id string) error

	// ListByOwner returns every record held by an owner, oldest first.
	ListByOwner(ctx context.Context, owner string) ([]Record, error)

	// CountByOwner returns the number of records held by an owner.
	CountByOwner(ctx context.Context, owner string) (int, error)
}

// ContentID derives the content-addressed credential ID from the canonical
// metadata encoding: a 128-bit blake2b digest, hex encoded.
func ContentID(metadataJSON []byte) string {
	h, err := blake2b.New(16, nil)
	if err != nil {
		// blake2b.New only fails on an invalid size or key; neither applies.
		panic(err)
	}
	h.Write(metadataJSON)
	return hex.EncodeToString(h.Sum(nil))
}
