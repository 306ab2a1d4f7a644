package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultWebSearchLimit bounds Search results when the caller passes no limit.
const DefaultWebSearchLimit = 5

// MockWebSearch returns deterministic results without network access. It is
// the default provider for tests and offline runs.
type MockWebSearch struct{}

// NewMockWebSearch creates a MockWebSearch.
func NewMockWebSearch() *MockWebSearch {
	return &MockWebSearch{}
}

// Search implements WebSearch.
func (m *MockWebSearch) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultWebSearchLimit
	}

	results := []SearchResult{
		{
			Title:   "Mock Result 1: " + query,
			URL:     "https://example.com/result1",
			Snippet: fmt.Sprintf("This is a mock search result for the query: %s. It contains relevant information about the topic.", query),
			Source:  "Mock Search",
		},
		{
			Title:   "Mock Result 2: " + query,
			URL:     "https://example.com/result2",
			Snippet: fmt.Sprintf("Another mock search result that provides additional context about %s.", query),
			Source:  "Mock Search",
		},
		{
			Title:   "Mock Result 3: " + query,
			URL:     "https://example.com/result3",
			Snippet: fmt.Sprintf("Third mock result with more information related to %s and potential solutions.", query),
			Source:  "Mock Search",
		},
	}

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Close implements WebSearch.
func (m *MockWebSearch) Close() error { return nil }

// DuckDuckGoOptions configures a DuckDuckGoSearch.
type DuckDuckGoOptions struct {
	// BaseURL is the search endpoint.
	BaseURL string

	// HTTPClient performs the requests.
	HTTPClient *http.Client

	// UserAgent is sent with every request. The endpoint rejects empty or
	// default Go user agents.
	UserAgent string
}

// DuckDuckGoSearch queries the DuckDuckGo HTML endpoint and scrapes the
// result list. No API key is required.
type DuckDuckGoSearch struct {
	opts DuckDuckGoOptions
}

// NewDuckDuckGoSearch creates a DuckDuckGoSearch.
func NewDuckDuckGoSearch(optFns ...func(o *DuckDuckGoOptions)) *DuckDuckGoSearch {
	opts := DuckDuckGoOptions{
		BaseURL:    "https://html.duckduckgo.com/html/",
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &DuckDuckGoSearch{opts: opts}
}

// Search implements WebSearch.
func (d *DuckDuckGoSearch) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultWebSearchLimit
	}

	endpoint := fmt.Sprintf("%s?q=%s", d.opts.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	req.Header.Set("User-Agent", d.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var results []SearchResult

	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()

		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").Text())

		if title == "" || href == "" {
			return true
		}

		results = append(results, SearchResult{
			Title:   title,
			URL:     resolveRedirect(href),
			Snippet: snippet,
			Source:  "DuckDuckGo",
		})

		return len(results) < limit
	})

	return results, nil
}

// Close implements WebSearch.
func (d *DuckDuckGoSearch) Close() error {
	d.opts.HTTPClient.CloseIdleConnections()
	return nil
}

// resolveRedirect unwraps the uddg redirect DuckDuckGo wraps result links
// in, returning the target URL. Links without the wrapper pass through.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}

	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}

	return href
}

// Interface compliance (compile-time assertions)
var (
	_ WebSearch = (*MockWebSearch)(nil)
	_ WebSearch = (*DuckDuckGoSearch)(nil)
)
