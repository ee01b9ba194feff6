package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"foundation/internal/infra"
	"foundation/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var (
		tokenFlag    string
		providerFlag string
		showFlag     bool
	)
	flag.StringVar(&tokenFlag, "token", "", "secret for the selected provider (falls back to environment)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderNotion, "integration to configure (notion or webhook)")
	flag.BoolVar(&showFlag, "show", false, "list which integrations have a stored value instead of writing one")
	flag.Parse()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	switch provider {
	case credentials.ProviderNotion, credentials.ProviderWebhook:
	case "":
		provider = credentials.ProviderNotion
	default:
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "integrationkey").Str("provider", provider).Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if showFlag {
		entries, err := store.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list stored integrations: %v\n", err)
			os.Exit(1)
		}
		stored := make(map[string]credentials.Entry, len(entries))
		for _, e := range entries {
			stored[e.Provider] = e
		}
		for _, p := range credentials.Providers {
			e, ok := stored[p]
			if !ok {
				fmt.Printf("%s: not configured\n", p)
				continue
			}
			fmt.Printf("%s: %s configured (%d chars, updated %s)\n", p, e.Kind, e.Length, e.UpdatedAt.Format(time.RFC3339))
		}
		return
	}

	token := strings.TrimSpace(tokenFlag)
	if token == "" {
		switch provider {
		case credentials.ProviderWebhook:
			token = strings.TrimSpace(os.Getenv("WEBHOOK_URL"))
		default:
			token = strings.TrimSpace(os.Getenv("NOTION_TOKEN"))
		}
	}
	if token == "" {
		fmt.Fprintf(os.Stderr, "%s token is required via -token or environment\n", provider)
		os.Exit(1)
	}

	if err := store.Set(ctx, provider, token); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s token: %v\n", provider, err)
		os.Exit(1)
	}

	fmt.Printf("%s token stored successfully\n", provider)
}
