// Package notion wraps the Notion API calls the lead ledger needs: page
// reads, partial page updates and paginated database queries.
package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-scorer/internal/resilience"
)

// ErrPageNotFound is returned when Notion reports that a page does not exist
// or is not shared with the integration.
var ErrPageNotFound = eris.New("notion: page not found")

// Client defines the Notion API operations used by this application.
type Client interface {
	GetPage(ctx context.Context, pageID string) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit overrides the default Notion rate limit (3 req/s). A
// non-positive value disables client-side throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

const (
	defaultBaseURL = "https://api.notion.com/v1"
	notionVersion  = "2022-06-28"
)

// notionClient implements Client by wrapping a *notionapi.Client. Page reads
// go over plain HTTP so empty number properties can be told apart from 0.
type notionClient struct {
	inner      *notionapi.Client
	limiter    *rate.Limiter
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Notion client with the given integration token. Calls
// are throttled to 3 req/s by default.
func NewClient(token string, opts ...ClientOption) Client {
	c := &notionClient{
		inner:      notionapi.NewClient(notionapi.Token(token)),
		limiter:    rate.NewLimiter(3, 1),
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *notionClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// GetPage reads a page. Number properties whose value is empty are left out
// of page.Properties, so a NumberProperty on the returned page always holds
// a value.
func (c *notionClient) GetPage(ctx context.Context, pageID string) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "notion: rate limit")
	}
	msg := fmt.Sprintf("notion: get page %s", pageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pages/"+url.PathEscape(pageID), nil)
	if err != nil {
		return nil, eris.Wrap(err, msg)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, msg)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, msg)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &notionapi.Error{}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode
		}
		return nil, classify(apiErr, msg)
	}
	return decodePage(body, msg)
}

// decodePage unmarshals a page and removes number properties that are null
// on the wire, which notionapi would otherwise decode as 0.
func decodePage(body []byte, msg string) (*notionapi.Page, error) {
	var page notionapi.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, msg+": decode")
	}
	var raw struct {
		Properties map[string]struct {
			Type   string   `json:"type"`
			Number *float64 `json:"number"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, msg+": decode")
	}
	for name, p := range raw.Properties {
		if p.Type == "number" && p.Number == nil {
			delete(page.Properties, name)
		}
	}
	return &page, nil
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "notion: rate limit")
	}
	resp, err := c.inner.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("notion: query database %s", dbID))
	}
	return resp, nil
}

func (c *notionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "notion: rate limit")
	}
	page, err := c.inner.Page.Update(ctx, notionapi.PageID(pageID), req)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("notion: update page %s", pageID))
	}
	return page, nil
}

// classify wraps an API error with msg, mapping 404 to ErrPageNotFound and
// retryable statuses to a resilience.TransientError.
func classify(err error, msg string) error {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusNotFound {
			return eris.Wrap(ErrPageNotFound, fmt.Sprintf("%s: %s", msg, apiErr.Message))
		}
		return eris.Wrap(resilience.WrapStatus(err, apiErr.Status), msg)
	}
	return eris.Wrap(err, msg)
}

// IsNotFound reports whether err means the requested page does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPageNotFound)
}
