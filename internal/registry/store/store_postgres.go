package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"trustforge/internal/registry"
	"trustforge/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists credential records in PostgreSQL. The credentials
// table keys on the content-derived ID, so the primary key constraint is
// what enforces deduplication.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, record registry.Record) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode credential metadata: %w", err)
	}
	query := `
		INSERT INTO credentials (id, owner, metadata, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.db.ExecContext(ctx, query, record.ID, record.Owner, metadata, record.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (registry.Record, error) {
	query := `SELECT id, owner, metadata, created_at FROM credentials WHERE id = $1`
	return s.scanRecord(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) Update(ctx context.Context, record registry.Record) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode credential metadata: %w", err)
	}
	query := `UPDATE credentials SET metadata = $2 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, record.ID, metadata)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]registry.Record, error) {
	query := `
		SELECT id, owner, metadata, created_at
		FROM credentials
		WHERE owner = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	records := make([]registry.Record, 0)
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) CountByOwner(ctx context.Context, owner string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials WHERE owner = $1`, owner).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanRecord(row rowScanner) (registry.Record, error) {
	var (
		record   registry.Record
		metadata []byte
	)
	if err := row.Scan(&record.ID, &record.Owner, &metadata, &record.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registry.Record{}, sentinel.ErrNotFound
		}
		return registry.Record{}, fmt.Errorf("scan credential: %w", err)
	}
	if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
		return registry.Record{}, fmt.Errorf("decode credential metadata: %w", err)
	}
	return record, nil
}
