package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Searcher fetches one page of directory search results.
type Searcher interface {
	Search(ctx context.Context, category, city string, page int) (*SearchPage, error)
	SearchURL(category, city string, page int) string
}

// Client queries the directory search endpoint over HTTP.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient builds a directory client. A nil http client gets a 30s timeout.
func NewClient(client *http.Client, baseURL string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("directory base url must not be empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{client: client, baseURL: baseURL}, nil
}

// SearchURL returns the JSON search URL for a category, city and 1-based page.
func (c *Client) SearchURL(category, city string, page int) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/ricerca/")
	b.WriteString(url.PathEscape(category))
	b.WriteString("/")
	b.WriteString(url.PathEscape(city))
	if page > 1 {
		b.WriteString("/p-")
		b.WriteString(strconv.Itoa(page))
	}
	b.WriteString("?output=json")
	return b.String()
}

// Search performs the GET for one result page and decodes the JSON body.
func (c *Client) Search(ctx context.Context, category, city string, page int) (*SearchPage, error) {
	target := c.SearchURL(category, city, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("directory returned status %d for %s", resp.StatusCode, target)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var body any
	if err := decoder.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode directory response from %s: %w", target, err)
	}
	// a body is one JSON document; anything after it means the response is malformed
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode directory response from %s: unexpected data after JSON value", target)
	}
	return &SearchPage{URL: target, Body: body}, nil
}

// SearchPage is a decoded search response.
type SearchPage struct {
	URL  string
	Body any
}

// Results walks list.out.base.results. Pages without that shape have no results.
func (p *SearchPage) Results() []map[string]any {
	if p == nil {
		return nil
	}
	raw, ok := lookup(p.Body, "list", "out", "base", "results")
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if record, ok := item.(map[string]any); ok {
			records = append(records, record)
		}
	}
	return records
}

var _ Searcher = (*Client)(nil)
