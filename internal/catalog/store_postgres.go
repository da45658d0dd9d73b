package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore reads the catalog tables. Pure I/O; the cache owns lifecycle.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Entidades(ctx context.Context) ([]NamedID, error) {
	return s.list(ctx, `SELECT id, name FROM entidades`)
}

func (s *PostgresStore) Instituciones(ctx context.Context) ([]NamedID, error) {
	return s.list(ctx, `SELECT id, name FROM instituciones`)
}

func (s *PostgresStore) list(ctx context.Context, query string) ([]NamedID, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	var out []NamedID
	for rows.Next() {
		var n NamedID
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}
	return out, nil
}
