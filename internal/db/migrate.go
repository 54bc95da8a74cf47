package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies all pending goose migrations embedded in the binary.
func Migrate(database *sql.DB) error {
	const op = "db.Migrate"

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: set dialect: %w", op, err)
	}
	if err := goose.Up(database, "migrations"); err != nil {
		return fmt.Errorf("%s: goose up: %w", op, err)
	}
	return nil
}
