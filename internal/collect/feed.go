package collect

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/arabpress/internal/news"
)

const maxPerFeed = 10

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
	now    func() time.Time
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig) *FeedParser {
	parser := gofeed.NewParser()
	parser.UserAgent = "arabpress/1.0 (news aggregator)"
	return &FeedParser{feeds: feeds, parser: parser, now: time.Now}
}

// ParseAll fetches every feed in order. A feed that fails to download or
// parse contributes nothing; the others are still fetched.
func (fp *FeedParser) ParseAll(ctx context.Context) []news.Item {
	var all []news.Item

	for i, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		items, err := fp.parseFeed(ctx, fc.URL, name, i)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		all = append(all, items...)
		log.Printf("Parsed %d entries from %s", len(items), name)
	}

	return all
}

func (fp *FeedParser) parseFeed(ctx context.Context, feedURL, sourceName string, feedIndex int) ([]news.Item, error) {
	feed, err := fp.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var items []news.Item
	for _, entry := range feed.Items {
		if len(items) >= maxPerFeed {
			break
		}

		it := fp.parseItem(entry, sourceName)
		if it == nil {
			continue
		}
		it.FeedIndex = feedIndex
		it.ItemIndex = len(items)
		items = append(items, *it)
	}

	return items, nil
}

func (fp *FeedParser) parseItem(entry *gofeed.Item, source string) *news.Item {
	link := entry.Link
	if link == "" {
		link = entry.GUID
	}
	if link == "" {
		return nil
	}

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return nil
	}

	published := fp.now()
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	var summary string
	if entry.Description != "" {
		summary = stripHTML(entry.Description)
	} else if entry.Content != "" {
		summary = stripHTML(entry.Content)
	}

	return &news.Item{
		Title:      title,
		Summary:    summary,
		Link:       link,
		Published:  published,
		Source:     source,
		Categories: entry.Categories,
	}
}

// stripHTML returns the visible text of an HTML fragment with whitespace
// collapsed. Plain text passes through unchanged apart from whitespace.
func stripHTML(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.Join(strings.Fields(text), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "rss.", "feeds.", "arabic."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
