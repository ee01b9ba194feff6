// Package credentials keeps integration secrets in the integration_tokens
// table so they can be rotated without redeploying.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"foundation/internal/infra"
	"foundation/internal/sqlinline"
)

// Known integration providers.
const (
	ProviderNotion  = "notion"
	ProviderWebhook = "webhook"
)

// Providers lists every provider the store accepts.
var Providers = []string{ProviderNotion, ProviderWebhook}

// Kinds of stored secret, recorded in the row properties.
const (
	KindAPIToken   = "api_token"
	KindWebhookURL = "webhook_url"
)

// Entry describes a stored secret without revealing it.
type Entry struct {
	Provider  string
	Kind      string
	Length    int
	UpdatedAt time.Time
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// NotionToken returns the stored CMS integration token, or "" when unset.
func (s *Store) NotionToken(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderNotion)
}

// WebhookURL returns the stored notification webhook, or "" when unset.
func (s *Store) WebhookURL(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderWebhook)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectCredential, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// Set stores token for provider, replacing any previous value.
func (s *Store) Set(ctx context.Context, provider, token string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !knownProvider(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(provider + " token is required")
	}
	kind := KindAPIToken
	if provider == ProviderWebhook {
		if !strings.HasPrefix(token, "https://") && !strings.HasPrefix(token, "http://") {
			return errors.New("webhook url must start with http:// or https://")
		}
		kind = KindWebhookURL
	}
	return s.upsert(ctx, provider, token, map[string]any{"kind": kind})
}

// List reports which providers have a stored value.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListCredentials, Providers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Provider, &e.Kind, &e.Length, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Resolve prefers the configured value and falls back to the stored one.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	if s == nil || s.sql == nil {
		return "", nil
	}
	return s.Token(ctx, provider)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertCredential, provider, token, raw)
	return err
}

func knownProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}
