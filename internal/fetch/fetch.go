// Package fetch fills in thin feed summaries with the article's full text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/arabpress/internal/news"
)

const (
	// Summaries shorter than this (in characters) are worth replacing.
	thinSummary = 200
	// Extracted text is cut to this many characters.
	maxText = 3000
)

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Skipped int
	Failed  int
}

// ContentFetcher fetches full article text via HTTP + readability extraction.
type ContentFetcher struct {
	client *http.Client
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// EnrichSummaries replaces thin summaries in place. Once a domain answers
// with an HTTP error its remaining items are left alone.
func (f *ContentFetcher) EnrichSummaries(ctx context.Context, items []news.Item) *Result {
	result := &Result{}
	failedDomains := make(map[string]struct{})

	for i := range items {
		it := &items[i]
		if utf8.RuneCountInString(it.Summary) >= thinSummary {
			result.Skipped++
			continue
		}

		domain := ""
		if u, err := url.Parse(it.Link); err == nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		text, err := f.fetchArticleText(ctx, it.Link)
		if err != nil {
			result.Failed++
			if _, ok := err.(*httpError); ok && domain != "" {
				failedDomains[domain] = struct{}{}
				log.Printf("HTTP error for %s, skipping remaining from %s", it.Link, domain)
			}
			continue
		}
		if text == "" {
			result.Failed++
			log.Printf("No extractable content from: %s", it.Link)
			continue
		}

		it.Summary = truncateRunes(text, maxText)
		result.Fetched++
		log.Printf("Fetched full text for: %s", it.Title)
	}

	log.Printf("Content fetch complete: %d fetched, %d skipped, %d failed", result.Fetched, result.Skipped, result.Failed)
	return result
}

func (f *ContentFetcher) fetchArticleText(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "arabpress/1.0 (news aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting %s: %w", articleURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if utf8.RuneCountInString(text) > 100 {
		return text, nil
	}
	return "", nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
