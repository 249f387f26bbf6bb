package registry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"trustforge/internal/limits"
	dErrors "trustforge/pkg/domainerrors"
	"trustforge/pkg/platform/sentinel"
)

// Service owns credential lifecycle rules: mint, update, delete, list. It
// enforces the metadata size bound, content-addressed deduplication, the
// per-owner ceiling, and ownership on every mutation.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry store is required")
	}
	svc := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Mint creates a new credential bound to the owner. The ID is derived from
// the metadata content, so minting identical metadata twice, by anyone, is
// rejected as a duplicate.
func (s *Service) Mint(ctx context.Context, owner string, metadata CredentialMetadata) (Record, error) {
	if owner == "" {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode metadata")
	}
	if len(encoded) > MaxMetadataBytes {
		return Record{}, dErrors.Newf(dErrors.CodeInvalidInput, "metadata exceeds the %d byte limit", MaxMetadataBytes)
	}

	count, err := s.store.CountByOwner(ctx, owner)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count credentials")
	}
	if verdict := limits.CheckCredentialLimit(count); !verdict.Allowed {
		return Record{}, dErrors.Newf(dErrors.CodeLimitExceeded, "credential limit of %d reached", verdict.Limit)
	}

	record := Record{
		ID:        ContentID(encoded),
		Owner:     owner,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}
	if err := s.store.Save(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Record{}, dErrors.New(dErrors.CodeConflict, "a credential with identical content already exists")
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save credential")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "credential minted", "credential_id", record.ID, "owner", owner)
	}
	return record, nil
}

// UpdateRequest carries the owner-mutable fields. Nil fields are untouched.
type UpdateRequest struct {
	Visibility *Visibility
	ProofHash  *string
}

// Update changes visibility and/or proof hash on a credential the caller
// owns. The content-derived ID is unaffected: identity is fixed at mint time.
func (s *Service) Update(ctx context.Context, owner, id string, req UpdateRequest) (Record, error) {
	record, err := s.ownedRecord(ctx, owner, id)
	if err != nil {
		return Record{}, err
	}

	if req.Visibility != nil {
		if !req.Visibility.IsValid() {
			return Record{}, dErrors.New(dErrors.CodeInvalidInput, "visibility must be public or private")
		}
		record.Metadata.Visibility = *req.Visibility
	}
	if req.ProofHash != nil {
		if record.Metadata.ProofHash != "" {
			return Record{}, dErrors.New(dErrors.CodeInvalidInput, "proof hash is immutable once set")
		}
		record.Metadata.ProofHash = *req.ProofHash
	}

	encoded, err := json.Marshal(record.Metadata)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode metadata")
	}
	if len(encoded) > MaxMetadataBytes {
		return Record{}, dErrors.Newf(dErrors.CodeInvalidInput, "metadata exceeds the %d byte limit", MaxMetadataBytes)
	}

	if err := s.store.Update(ctx, record); err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update credential")
	}
	return record, nil
}

// Delete removes a credential the caller owns. Irreversible.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.ownedRecord(ctx, owner, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete credential")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "credential deleted", "credential_id", id, "owner", owner)
	}
	return nil
}

// ListByOwner returns the owner's credentials, oldest first.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]Record, error) {
	records, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return records, nil
}

// CountByOwner returns how many credentials the owner currently holds.
func (s *Service) CountByOwner(ctx context.Context, owner string) (int, error) {
	count, err := s.store.CountByOwner(ctx, owner)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count credentials")
	}
	return count, nil
}

func (s *Service) ownedRecord(ctx context.Context, owner, id string) (Record, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Record{}, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	if record.Owner != owner {
		return Record{}, dErrors.New(dErrors.CodeForbidden, "caller does not own this credential")
	}
	return record, nil
}
