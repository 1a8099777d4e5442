package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleHTML() string {
	para := "Go makes it straightforward to build small focused services. " +
		"The standard library covers networking and encoding, and the tooling " +
		"keeps builds fast even as a project grows. Teams that adopt it often " +
		"report that the explicit error handling style pays off in production."
	var b strings.Builder
	b.WriteString(`<html><head><title>Why Go</title></head><body><article><h1>Why Go</h1>`)
	for i := 0; i < 4; i++ {
		b.WriteString("<p>")
		b.WriteString(para)
		b.WriteString("</p>")
	}
	b.WriteString(`</article></body></html>`)
	return b.String()
}

func TestReadabilityExtractorProducesMarkdown(t *testing.T) {
	x := NewReadabilityExtractor()

	md, err := x.Extract(articleHTML(), "https://example.com/why-go")
	require.NoError(t, err)
	assert.Contains(t, md, "focused services")
	assert.NotContains(t, md, "<p>", "markdown must not contain raw HTML tags")
}

func TestReadabilityExtractorRejectsEmptyPage(t *testing.T) {
	x := NewReadabilityExtractor()

	_, err := x.Extract(`<html><head></head><body></body></html>`, "https://example.com/empty")
	require.Error(t, err)
}

func TestReadabilityExtractorRejectsBadURL(t *testing.T) {
	x := NewReadabilityExtractor()

	_, err := x.Extract(articleHTML(), "://not-a-url")
	require.Error(t, err)
}
