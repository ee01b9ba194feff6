package acknowledgement

import (
	"context"
	"errors"
	"strings"

	"foundation/internal/notion"
)

// PageCreator adds a row to a Notion database.
type PageCreator interface {
	CreatePage(ctx context.Context, databaseID string, props map[string]notion.Property) (*notion.Page, error)
}

// NotionStore writes acknowledgements into the donors database. Expected
// columns: Name (title), Address (text), Amount (number), Currency
// (select), Icon (url), URL (url), Date (date).
type NotionStore struct {
	pages      PageCreator
	databaseID string
}

func NewNotionStore(pages PageCreator, databaseID string) (*NotionStore, error) {
	if pages == nil {
		return nil, errors.New("acknowledgement: notion client is required")
	}
	if strings.TrimSpace(databaseID) == "" {
		return nil, errors.New("acknowledgement: donors database id is required")
	}
	return &NotionStore{pages: pages, databaseID: strings.TrimSpace(databaseID)}, nil
}

func (s *NotionStore) Save(ctx context.Context, rec Record) (string, error) {
	page, err := s.pages.CreatePage(ctx, s.databaseID, Properties(rec))
	if err != nil {
		return "", err
	}
	return page.ID, nil
}

// Properties maps a record to donors database columns. Absent values are
// left out so Notion keeps the column empty.
func Properties(rec Record) map[string]notion.Property {
	sub := rec.Submission
	props := map[string]notion.Property{
		"Name": notion.TitleProperty(sub.Name),
		"Date": notion.DateProperty(rec.SubmittedAt),
	}
	if sub.Address != "" {
		props["Address"] = notion.TextProperty(sub.Address)
	}
	if sub.Amount != nil {
		props["Amount"] = notion.NumberProperty(*sub.Amount)
	}
	if sub.Currency != "" {
		props["Currency"] = notion.SelectProperty(sub.Currency)
	}
	if sub.Icon != "" {
		props["Icon"] = notion.URLProperty(sub.Icon)
	}
	if sub.URL != "" {
		props["URL"] = notion.URLProperty(sub.URL)
	}
	return props
}
