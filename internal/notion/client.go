// Package notion is a small client for the Notion REST API: creating pages
// in a database and querying database rows.
package notion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"foundation/internal/infra"
)

// ErrMissingToken indicates that the client was configured without credentials.
var ErrMissingToken = errors.New("notion: integration token is required")

const maxQueryPages = 10

// Options configures the Notion client.
type Options struct {
	Token      string
	BaseURL    string
	Version    string
	Timeout    time.Duration
	RetryCount int
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs HTTP calls to the Notion API.
type Client struct {
	http   *resty.Client
	logger *infra.Logger
}

// APIError is the error object Notion returns on non-2xx responses.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion: %d %s: %s", e.Status, e.Code, e.Message)
}

// Query narrows a database query. Filter and Sorts are passed through as
// Notion filter and sort objects.
type Query struct {
	Filter   any    `json:"filter,omitempty"`
	Sorts    []Sort `json:"sorts,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// Sort orders query results by a property.
type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type createPageRequest struct {
	Parent     parent              `json:"parent"`
	Properties map[string]Property `json:"properties"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

type queryRequest struct {
	Query
	StartCursor string `json:"start_cursor,omitempty"`
}

type queryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// New builds a Notion client.
func New(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, ErrMissingToken
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.notion.com/v1"
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "2022-06-28"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(token).
		SetHeader("Notion-Version", version).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return resp != nil && (resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500)
		})

	return &Client{http: rc, logger: logger}, nil
}

// CreatePage adds a row to the database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props map[string]Property) (*Page, error) {
	if strings.TrimSpace(databaseID) == "" {
		return nil, errors.New("notion: database id is required")
	}
	var page Page
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createPageRequest{Parent: parent{DatabaseID: databaseID}, Properties: props}).
		SetResult(&page).
		SetError(&APIError{}).
		Post("/pages")
	if err != nil {
		return nil, fmt.Errorf("notion: create page: %w", err)
	}
	if err := c.statusError(resp); err != nil {
		return nil, err
	}
	c.logger.Debug().Str("page_id", page.ID).Str("database_id", databaseID).Msg("notion page created")
	return &page, nil
}

// QueryDatabase returns every row matching q, following pagination cursors.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) ([]Page, error) {
	if strings.TrimSpace(databaseID) == "" {
		return nil, errors.New("notion: database id is required")
	}
	var (
		pages  []Page
		cursor string
	)
	for i := 0; i < maxQueryPages; i++ {
		var out queryResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetPathParam("id", databaseID).
			SetBody(queryRequest{Query: q, StartCursor: cursor}).
			SetResult(&out).
			SetError(&APIError{}).
			Post("/databases/{id}/query")
		if err != nil {
			return nil, fmt.Errorf("notion: query database: %w", err)
		}
		if err := c.statusError(resp); err != nil {
			return nil, err
		}
		pages = append(pages, out.Results...)
		if !out.HasMore || out.NextCursor == "" {
			return pages, nil
		}
		cursor = out.NextCursor
	}
	c.logger.Warn().Str("database_id", databaseID).Int("pages", len(pages)).Msg("notion query truncated")
	return pages, nil
}

func (c *Client) statusError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	if apiErr, ok := resp.Error().(*APIError); ok && apiErr != nil && apiErr.Code != "" {
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode()
		}
		return apiErr
	}
	return &APIError{Status: resp.StatusCode(), Code: "http_error", Message: strings.TrimSpace(string(resp.Body()))}
}
