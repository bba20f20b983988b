package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct { // Хранилище ключ-значение в таблице kv_entries
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
	}
}

func (r *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `
		SELECT value FROM kv_entries WHERE key = $1
	`, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrorNotFound
	}
	return value, err
}

func (r *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO kv_entries (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

func (r *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM kv_entries WHERE key = $1", key)
	return err
}
