package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/markhub/internal/config"
)

// PageResult is the outcome of fetching one page.
type PageResult struct {
	Title string
	HTML  string
}

// ContentFetcher retrieves page content for bookmarks that were saved as
// bare URLs, without captured HTML.
type ContentFetcher interface {
	FetchPage(ctx context.Context, url string) (*PageResult, error)
}

// HTTPFetcher fetches pages with a plain GET and a capped response size.
type HTTPFetcher struct {
	client       *http.Client
	maxBodyBytes int64
	userAgent    string
}

func NewHTTPFetcher(cfg config.FetchConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody == 0 {
		maxBody = 10 * 1024 * 1024
	}

	return &HTTPFetcher{
		client:       &http.Client{Timeout: timeout},
		maxBodyBytes: maxBody,
		userAgent:    cfg.UserAgent,
	}
}

func (f *HTTPFetcher) FetchPage(ctx context.Context, pageURL string) (*PageResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	html := string(body)
	return &PageResult{Title: extractTitle(html), HTML: html}, nil
}

// extractTitle pulls the page title from the <title> tag, falling back
// to the og:title meta tag.
func extractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		return title
	}

	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		return strings.TrimSpace(og)
	}

	return ""
}
