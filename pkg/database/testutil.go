package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool returns a pgxmock pool for repository tests. It satisfies the
// same query interface the repositories accept, so it can be passed to any
// repository constructor in place of a real pool.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	return pgxmock.NewPool()
}
