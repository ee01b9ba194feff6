package acknowledgement

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"foundation/internal/domain"
	"foundation/internal/notion"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{"6,000 USDC", ptr(6000)},
		{"¥10,000", ptr(10000)},
		{"0.15 ETH", ptr(0.15)},
		{" 1 2 : 5 ", ptr(125)},
		{".5", ptr(0.5)},
		{"-3", ptr(-3)},
		{"1.2.3", ptr(1.2)},
		{"", nil},
		{"abc", nil},
		{"-", nil},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := ParseAmount(tc.in)
			switch {
			case tc.want == nil && got != nil:
				t.Fatalf("ParseAmount(%q) = %v, want nil", tc.in, *got)
			case tc.want != nil && (got == nil || *got != *tc.want):
				t.Fatalf("ParseAmount(%q) = %v, want %v", tc.in, got, *tc.want)
			}
		})
	}
}

func TestFromFormSanitizesURLs(t *testing.T) {
	form := url.Values{
		"name":     {"  Satoshi "},
		"address":  {"0xAbC"},
		"amount":   {"6,000 USDC"},
		"currency": {"usdc"},
		"icon":     {"javascript:alert(1)"},
		"url":      {"HTTPS://example.org/me"},
	}
	sub := FromForm(form)
	if sub.Name != "Satoshi" || sub.Currency != "USDC" {
		t.Fatalf("sub = %+v", sub)
	}
	if sub.Icon != "" {
		t.Fatalf("icon = %q, want absent", sub.Icon)
	}
	if sub.URL != "HTTPS://example.org/me" {
		t.Fatalf("url = %q", sub.URL)
	}
	if sub.Amount == nil || *sub.Amount != 6000 {
		t.Fatalf("amount = %v", sub.Amount)
	}
}

type fakeNotifier struct {
	err   error
	texts []string
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

type fakeStore struct {
	err  error
	recs []Record
}

func (f *fakeStore) Save(ctx context.Context, rec Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.recs = append(f.recs, rec)
	return "page-1", nil
}

func TestSubmitWebhookFailureDoesNotBlockStore(t *testing.T) {
	n := &fakeNotifier{err: errors.New("webhook down")}
	st := &fakeStore{}
	svc, err := NewService(n, st, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	rc, err := svc.Submit(context.Background(), Submission{Name: "Satoshi"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rc.Notified || rc.RecordID != "page-1" || rc.ID == "" {
		t.Fatalf("receipt = %+v", rc)
	}
	if len(st.recs) != 1 || len(n.texts) != 1 {
		t.Fatalf("store calls = %d, notify calls = %d", len(st.recs), len(n.texts))
	}
}

func TestSubmitStoreFailureIsPersistenceError(t *testing.T) {
	n := &fakeNotifier{}
	svc, _ := NewService(n, &fakeStore{err: errors.New("notion 500")}, nil)
	_, err := svc.Submit(context.Background(), Submission{Name: "x"})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if len(n.texts) != 1 {
		t.Fatalf("notifier should still have been called")
	}
}

func TestSubmitDefaultsAnonymousName(t *testing.T) {
	st := &fakeStore{}
	svc, _ := NewService(nil, st, nil)
	if _, err := svc.Submit(context.Background(), Submission{Name: "  "}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if st.recs[0].Submission.Name != AnonymousName {
		t.Fatalf("name = %q", st.recs[0].Submission.Name)
	}
}

func TestMessage(t *testing.T) {
	msg := Message(Submission{Name: "Satoshi", AmountText: "6,000 USDC", Currency: "USDC", Address: "0xabc", URL: "https://example.org"})
	for _, want := range []string{"Name: Satoshi", "Amount: 6,000 USDC\n", "Address: 0xabc", "URL: https://example.org"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
	if strings.Contains(msg, "Icon:") {
		t.Fatalf("message should omit empty icon: %q", msg)
	}
}

type fakePages struct {
	dbID  string
	props map[string]notion.Property
}

func (f *fakePages) CreatePage(ctx context.Context, databaseID string, props map[string]notion.Property) (*notion.Page, error) {
	f.dbID, f.props = databaseID, props
	return &notion.Page{ID: "page-9"}, nil
}

func TestNotionStoreMapsColumns(t *testing.T) {
	pages := &fakePages{}
	st, err := NewNotionStore(pages, "donors-db")
	if err != nil {
		t.Fatalf("NewNotionStore: %v", err)
	}
	id, err := st.Save(context.Background(), Record{
		Submission:  Submission{Name: "Satoshi", Amount: ptr(0.15), Currency: "ETH", Icon: "https://img.example/a.png"},
		SubmittedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil || id != "page-9" {
		t.Fatalf("Save = %q, %v", id, err)
	}
	if pages.dbID != "donors-db" {
		t.Fatalf("database = %q", pages.dbID)
	}
	if pages.props["Name"].PlainText() != "Satoshi" || *pages.props["Amount"].Number != 0.15 {
		t.Fatalf("props = %+v", pages.props)
	}
	if pages.props["Currency"].SelectName() != "ETH" || pages.props["Icon"].URLValue() != "https://img.example/a.png" {
		t.Fatalf("props = %+v", pages.props)
	}
	if _, ok := pages.props["URL"]; ok {
		t.Fatalf("empty URL should be omitted")
	}
	if _, ok := pages.props["Address"]; ok {
		t.Fatalf("empty address should be omitted")
	}
}

func ptr(v float64) *float64 { return &v }
