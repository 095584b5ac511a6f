package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

const opTimeout = 5 * time.Second

type kvStore struct {
	store *Store
}

// NewKeyValueStore создаёт PostgreSQL-реализацию KeyValueStore поверх таблицы kv_entries.
// Close закрывает и нижележащий Store.
func NewKeyValueStore(store *Store) domain.KeyValueStore {
	return &kvStore{store: store}
}

func (s *kvStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var value []byte
	err := s.store.DB().QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select kv entry %q: %w", key, err)
	}
	return value, nil
}

func (s *kvStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if value == nil {
		value = []byte{}
	}
	_, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert kv entry %q: %w", key, err)
	}
	return nil
}

func (s *kvStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *kvStore) Close() error {
	return s.store.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.KeyValueStore = (*kvStore)(nil)
