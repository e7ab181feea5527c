// internal/words/postgres.go
package words

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LoadFromPostgres fetches the word list from a Postgres database. The schema
// is a single table:
//
//	CREATE TABLE words (word TEXT PRIMARY KEY);
//
// The pool is created and torn down within this call; the bank is purely
// in-memory once loaded.
func LoadFromPostgres(ctx context.Context, connString string) ([]string, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("words db ping error: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT word FROM words ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer rows.Close()

	var list []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan word row: %w", err)
		}
		if w != "" {
			list = append(list, w)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading word rows: %w", err)
	}
	return list, nil
}
