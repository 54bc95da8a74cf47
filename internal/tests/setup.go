// Package tests holds end-to-end tests that run the full server against a
// real PostgreSQL database. They skip unless DATABASE_URL is set.
package tests

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TruncateTables empties every application table for a clean test state.
func TruncateTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE attendances, events, users RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// CountRows returns the number of rows in table.
func CountRows(ctx context.Context, db *sqlx.DB, table string) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
