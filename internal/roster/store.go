// Package roster answers the single question feedboard cares about for a
// signed-in user: is this user id on the admin allow-list.
package roster

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Checker reports whether a user id is on the admin allow-list.
type Checker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Store provides Postgres-backed allow-list lookups.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// IsAdmin runs the membership test against admin_users.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM admin_users WHERE user_id = $1)`

	var admin bool
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&admin); err != nil {
		return false, err
	}
	return admin, nil
}
