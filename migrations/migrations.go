// Package migrations embeds the schema and applies it with sql-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed *.sql
var FS embed.FS

// Source exposes the embedded files to sql-migrate.
func Source() migrate.MigrationSource {
	return &migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(FS)}
}

// Apply runs pending migrations in dir against the Postgres database at
// dsn and returns how many were applied.
func Apply(dsn string, dir migrate.MigrationDirection, logger zerolog.Logger) (int, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, fmt.Errorf("migrations: open: %w", err)
	}
	defer db.Close()

	n, err := migrate.Exec(db, "postgres", Source(), dir)
	if err != nil {
		return n, fmt.Errorf("migrations: apply: %w", err)
	}
	logger.Info().Int("applied", n).Msg("migrations applied")
	return n, nil
}
