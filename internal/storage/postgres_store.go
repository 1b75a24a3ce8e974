// README: Collections stored as JSONB rows in PostgreSQL; a batch is saved in one transaction.
package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, name string) ([]byte, error) {
	var records string
	err := s.db.QueryRow(ctx, `SELECT records::text FROM collections WHERE name = $1`, name).Scan(&records)
	if errors.Is(err, pgx.ErrNoRows) {
		return []byte("[]"), nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(records), nil
}

func (s *PostgresStore) Save(ctx context.Context, docs ...Document) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, d := range docs {
			_, err := tx.Exec(ctx, `
				INSERT INTO collections (name, records, updated_at)
				VALUES ($1, $2::jsonb, NOW())
				ON CONFLICT (name) DO UPDATE
				SET records = EXCLUDED.records,
				    updated_at = EXCLUDED.updated_at`,
				d.Name, string(d.Data),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
