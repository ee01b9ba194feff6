// Package content serves the site's CMS-backed feeds (publications, news,
// members, projects) with a time-based cache in front of Notion.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"foundation/internal/infra"
	"foundation/internal/metrics"
	"foundation/internal/notion"
)

var (
	// ErrUnknownKind is returned for a kind with no configured database.
	ErrUnknownKind = errors.New("content: unknown kind")
	// ErrUnavailable is returned when the CMS fails and nothing is cached.
	ErrUnavailable = errors.New("content: source unavailable")
)

// Source reads database rows from the CMS.
type Source interface {
	QueryDatabase(ctx context.Context, databaseID string, q notion.Query) ([]notion.Page, error)
}

// Entry is one published item of a feed.
type Entry struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Summary  string     `json:"summary,omitempty"`
	URL      string     `json:"url,omitempty"`
	Image    string     `json:"image,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
	Tags     []string   `json:"tags,omitempty"`
	Role     string     `json:"role,omitempty"`
	Language string     `json:"language,omitempty"`
	Order    *float64   `json:"order,omitempty"`
}

// Feed is the response for one kind and locale.
type Feed struct {
	Kind      string    `json:"kind"`
	Locale    string    `json:"locale"`
	Items     []Entry   `json:"items"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale,omitempty"`
}

// Options configures the content service.
type Options struct {
	Source     Source
	Databases  map[string]string
	Revalidate time.Duration
	Logger     *infra.Logger
	Now        func() time.Time
}

// Service caches CMS feeds per (kind, locale). Concurrent misses for the
// same key share a single fetch. When a refresh fails the last good copy is
// served, marked stale.
type Service struct {
	source    Source
	databases map[string]string
	fresh     *gocache.Cache
	lastGood  *gocache.Cache
	group     singleflight.Group
	logger    *infra.Logger
	now       func() time.Time
}

// NewService builds the content service.
func NewService(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("content: source is required")
	}
	ttl := opts.Revalidate
	if ttl <= 0 {
		ttl = time.Hour
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	dbs := make(map[string]string, len(opts.Databases))
	for kind, id := range opts.Databases {
		if strings.TrimSpace(id) != "" {
			dbs[strings.ToLower(kind)] = strings.TrimSpace(id)
		}
	}
	return &Service{
		source:    opts.Source,
		databases: dbs,
		fresh:     gocache.New(ttl, 2*ttl),
		lastGood:  gocache.New(gocache.NoExpiration, 0),
		logger:    logger,
		now:       now,
	}, nil
}

// Kinds lists the configured feed kinds.
func (s *Service) Kinds() []string {
	kinds := make([]string, 0, len(s.databases))
	for k := range s.databases {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Feed returns the entries of kind visible in locale.
func (s *Service) Feed(ctx context.Context, kind, locale string) (*Feed, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	dbID, ok := s.databases[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	locale = strings.ToLower(strings.TrimSpace(locale))
	key := kind + ":" + locale

	if v, found := s.fresh.Get(key); found {
		metrics.ContentCacheLookups.WithLabelValues(kind, "hit").Inc()
		return v.(*Feed), nil
	}
	metrics.ContentCacheLookups.WithLabelValues(kind, "miss").Inc()

	v, err, _ := s.group.Do(key, func() (any, error) {
		if v, found := s.fresh.Get(key); found {
			return v, nil
		}
		start := s.now()
		pages, err := s.source.QueryDatabase(context.WithoutCancel(ctx), dbID, notion.Query{PageSize: 100})
		metrics.ContentFetchDuration.WithLabelValues(kind).Observe(s.now().Sub(start).Seconds())
		if err != nil {
			return nil, err
		}
		feed := &Feed{Kind: kind, Locale: locale, Items: buildEntries(pages, locale), FetchedAt: s.now().UTC()}
		s.fresh.SetDefault(key, feed)
		s.lastGood.Set(key, feed, gocache.NoExpiration)
		return feed, nil
	})
	if err != nil {
		if stale, found := s.lastGood.Get(key); found {
			metrics.ContentCacheLookups.WithLabelValues(kind, "stale").Inc()
			s.logger.Warn().Err(err).Str("kind", kind).Str("locale", locale).Msg("content refresh failed, serving stale copy")
			out := *stale.(*Feed)
			out.Stale = true
			return &out, nil
		}
		s.logger.Error().Err(err).Str("kind", kind).Msg("content fetch failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v.(*Feed), nil
}

// Invalidate drops the fresh copies of kind so the next read refetches.
func (s *Service) Invalidate(kind string) {
	prefix := strings.ToLower(kind) + ":"
	for key := range s.fresh.Items() {
		if strings.HasPrefix(key, prefix) {
			s.fresh.Delete(key)
		}
	}
}

func buildEntries(pages []notion.Page, locale string) []Entry {
	items := make([]Entry, 0, len(pages))
	for _, p := range pages {
		if published, ok := p.Properties["Published"]; ok && published.Checkbox != nil && !*published.Checkbox {
			continue
		}
		lang := strings.ToLower(p.Properties["Language"].SelectName())
		if lang != "" && locale != "" && lang != locale {
			continue
		}
		e := Entry{ID: p.ID, Language: lang, URL: p.URL}
		for name, prop := range p.Properties {
			switch {
			case len(prop.Title) > 0:
				e.Title = prop.PlainText()
			case name == "Summary" || name == "Description":
				e.Summary = prop.PlainText()
			case name == "Role":
				if v := prop.SelectName(); v != "" {
					e.Role = v
				} else {
					e.Role = prop.PlainText()
				}
			case name == "Tags":
				e.Tags = prop.Names()
			case name == "Date":
				if ts, ok := prop.DateStart(); ok {
					e.Date = &ts
				}
			case name == "URL" || name == "Link":
				if u := prop.URLValue(); u != "" {
					e.URL = u
				}
			case name == "Image" || name == "Photo" || name == "Cover":
				if u := prop.FirstFileURL(); u != "" {
					e.Image = u
				} else if u := prop.URLValue(); u != "" {
					e.Image = u
				}
			case name == "Order":
				e.Order = prop.Number
			}
		}
		items = append(items, e)
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Order != nil || b.Order != nil {
			switch {
			case a.Order == nil:
				return false
			case b.Order == nil:
				return true
			case *a.Order != *b.Order:
				return *a.Order < *b.Order
			}
		}
		if a.Date != nil && b.Date != nil && !a.Date.Equal(*b.Date) {
			return a.Date.After(*b.Date)
		}
		return a.Date != nil && b.Date == nil
	})
	return items
}
