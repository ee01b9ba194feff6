package contact

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

// NotionStore writes inquiries into the contact database. Expected columns:
// Name (title), Email (email), Message (text), Locale (select), Date (date).
type NotionStore struct {
	pages      PageCreator
	databaseID string
}

func NewNotionStore(pages PageCreator, databaseID string) (*NotionStore, error) {
	if pages == nil {
		return nil, errors.New("contact: notion client is required")
	}
	if strings.TrimSpace(databaseID) == "" {
		return nil, errors.New("contact: contact database id is required")
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

// Properties maps a record to contact database columns.
func Properties(rec Record) map[string]notion.Property {
	props := map[string]notion.Property{
		"Name":    notion.TitleProperty(rec.Inquiry.Name),
		"Email":   notion.EmailProperty(rec.Inquiry.Email),
		"Message": notion.TextProperty(rec.Inquiry.Message),
		"Date":    notion.DateProperty(rec.SubmittedAt),
	}
	if rec.Locale != "" {
		props["Locale"] = notion.SelectProperty(rec.Locale)
	}
	return props
}
