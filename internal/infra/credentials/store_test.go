package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token   string
	err     error
	entries []Entry
	exec    struct {
		query string
		args  []any
	}
	queryArgs []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.queryArgs = args
	return &stubRows{entries: s.entries, idx: -1}, nil
}

type stubRows struct {
	entries []Entry
	idx     int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, errors.New("not supported") }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	r.idx++
	return r.idx < len(r.entries)
}

func (r *stubRows) Scan(dest ...any) error {
	if len(dest) != 4 {
		return errors.New("unexpected column count")
	}
	e := r.entries[r.idx]
	*dest[0].(*string) = e.Provider
	*dest[1].(*string) = e.Kind
	*dest[2].(*int) = e.Length
	*dest[3].(*time.Time) = e.UpdatedAt
	return nil
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestNotionToken(t *testing.T) {
	store := NewStore(&stubExecutor{token: " secret_abc "})
	token, err := store.NotionToken(context.Background())
	if err != nil {
		t.Fatalf("NotionToken error: %v", err)
	}
	if token != "secret_abc" {
		t.Fatalf("expected secret_abc, got %q", token)
	}
}

func TestWebhookURL_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	u, err := store.WebhookURL(context.Background())
	if err != nil {
		t.Fatalf("WebhookURL error: %v", err)
	}
	if u != "" {
		t.Fatalf("expected empty url, got %q", u)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		token    string
		kind     string
		wantErr  bool
	}{
		{name: "notion", provider: "Notion", token: "secret", kind: KindAPIToken},
		{name: "webhook", provider: "webhook", token: "https://hooks.example.com/x", kind: KindWebhookURL},
		{name: "webhook without scheme", provider: "webhook", token: "hooks.example.com/x", wantErr: true},
		{name: "empty token", provider: "notion", token: " ", wantErr: true},
		{name: "unknown provider", provider: "gemini", token: "secret", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exec := &stubExecutor{}
			err := NewStore(exec).Set(context.Background(), tc.provider, tc.token)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if exec.exec.query != "" {
					t.Fatal("rejected token should not be written")
				}
				return
			}
			if err != nil {
				t.Fatalf("Set error: %v", err)
			}
			if len(exec.exec.args) != 3 {
				t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
			}
			if v, ok := exec.exec.args[1].(string); !ok || v != tc.token {
				t.Fatalf("expected token argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
			}
			raw, ok := exec.exec.args[2].([]byte)
			if !ok {
				t.Fatalf("expected json properties, got %T", exec.exec.args[2])
			}
			var props map[string]string
			if err := json.Unmarshal(raw, &props); err != nil || props["kind"] != tc.kind {
				t.Fatalf("properties = %s, want kind %s", raw, tc.kind)
			}
		})
	}
}

func TestResolvePrefersConfigured(t *testing.T) {
	store := NewStore(&stubExecutor{token: "stored"})
	got, err := store.Resolve(context.Background(), ProviderNotion, " configured ")
	if err != nil || got != "configured" {
		t.Fatalf("Resolve = %q, %v; want configured", got, err)
	}
	got, err = store.Resolve(context.Background(), ProviderNotion, "")
	if err != nil || got != "stored" {
		t.Fatalf("Resolve = %q, %v; want stored", got, err)
	}
	var nilStore *Store
	if got, err := nilStore.Resolve(context.Background(), ProviderNotion, ""); err != nil || got != "" {
		t.Fatalf("nil store Resolve = %q, %v", got, err)
	}
}

func TestListReportsStoredProviders(t *testing.T) {
	updated := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	exec := &stubExecutor{entries: []Entry{
		{Provider: ProviderNotion, Kind: KindAPIToken, Length: 50, UpdatedAt: updated},
		{Provider: ProviderWebhook, Kind: KindWebhookURL, Length: 80, UpdatedAt: updated},
	}}
	entries, err := NewStore(exec).List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(entries) != 2 || entries[0].Provider != ProviderNotion || entries[1].Kind != KindWebhookURL {
		t.Fatalf("entries = %+v", entries)
	}
	if len(exec.queryArgs) != 1 {
		t.Fatalf("query args = %v", exec.queryArgs)
	}
	if providers, ok := exec.queryArgs[0].([]string); !ok || len(providers) != len(Providers) {
		t.Fatalf("provider filter = %#v", exec.queryArgs[0])
	}
}
