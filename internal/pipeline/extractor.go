package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
)

// ErrUnparseablePage is returned when a page yields no readable content.
var ErrUnparseablePage = errors.New("could not parse the page")

// MarkdownExtractor turns captured page HTML into Markdown.
type MarkdownExtractor interface {
	Extract(html, pageURL string) (string, error)
}

// ReadabilityExtractor isolates the readable article body with
// go-readability, then converts it to Markdown.
type ReadabilityExtractor struct{}

func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

func (x *ReadabilityExtractor) Extract(html, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("failed to extract readable content: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(article.Content)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}

	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", ErrUnparseablePage
	}

	return markdown, nil
}
