package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	migrate "github.com/rubenv/sql-migrate"

	"foundation/internal/infra"
	"foundation/migrations"
)

func main() {
	_ = godotenv.Load()

	down := flag.Bool("down", false, "roll back instead of applying")
	flag.Parse()

	logger := infra.NewLogger("cli").With().Str("cmd", "migrate").Logger()
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(2)
	}

	dir := migrate.Up
	if *down {
		dir = migrate.Down
	}
	n, err := migrations.Apply(dsn, dir, logger)
	if err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
	fmt.Printf("%d migration(s) applied\n", n)
}
