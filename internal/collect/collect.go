// Package collect fetches news items from the configured feeds.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/dedup"
	"github.com/TobiSchelling/arabpress/internal/news"
)

// SnapshotFile is the name of the per-run audit file of fetched items.
const SnapshotFile = "latest-news.json"

// Result holds the results of a collection run.
type Result struct {
	Items      []news.Item
	TotalFound int
	Duplicates int
	Sources    map[string]int
}

// Collector gathers items from RSS feeds and, optionally, NewsAPI.
type Collector struct {
	feedParser  *FeedParser
	newsClient  *NewsAPIClient
	newsQuery   string
	newsLang    string
	seen        dedup.Store
	snapshotDir string
}

// NewCollector creates a new collector. seen may be nil.
func NewCollector(cfg *config.Config, seen dedup.Store) *Collector {
	c := &Collector{seen: seen, snapshotDir: cfg.LogsDir()}
	if c.seen == nil {
		c.seen = dedup.Noop{}
	}

	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
		}
		c.feedParser = NewFeedParser(feeds)
	}

	apiCfg := cfg.Sources.APIs.NewsAPI
	if apiCfg.Enabled {
		c.newsClient = NewNewsAPIClient(apiCfg.APIKeyEnv)
		c.newsQuery = apiCfg.Query
		c.newsLang = apiCfg.Language
		if c.newsLang == "" {
			c.newsLang = "ar"
		}
	}

	return c
}

// Collect fetches all sources, writes the unfiltered batch to the snapshot
// file, then drops links already turned into drafts by earlier runs.
func (c *Collector) Collect(ctx context.Context) *Result {
	r := &Result{Sources: make(map[string]int)}

	var batch []news.Item
	if c.feedParser != nil {
		log.Println("Collecting from RSS feeds...")
		batch = append(batch, c.feedParser.ParseAll(ctx)...)
	}

	if c.newsClient != nil && c.newsClient.IsConfigured() {
		log.Println("Collecting from NewsAPI...")
		feedIndex := 0
		if c.feedParser != nil {
			feedIndex = len(c.feedParser.feeds)
		}
		batch = append(batch, c.newsClient.Search(ctx, c.newsQuery, c.newsLang, maxPerFeed, feedIndex)...)
	}
	r.TotalFound = len(batch)

	if err := WriteSnapshot(filepath.Join(c.snapshotDir, SnapshotFile), batch); err != nil {
		log.Printf("Failed to write news snapshot: %v", err)
	}

	for _, it := range batch {
		seen, err := c.seen.Seen(ctx, it.Link)
		if err != nil {
			log.Printf("Duplicate check failed for %s: %v", it.Link, err)
		}
		if seen {
			r.Duplicates++
			continue
		}
		r.Items = append(r.Items, it)
		r.Sources[it.Source]++
	}

	log.Printf("Collection complete: %d found, %d new, %d already drafted", r.TotalFound, len(r.Items), r.Duplicates)
	return r
}

type snapshot struct {
	Timestamp time.Time   `json:"timestamp"`
	Count     int         `json:"count"`
	News      []news.Item `json:"news"`
}

// WriteSnapshot saves items as JSON, creating the directory if needed.
func WriteSnapshot(path string, items []news.Item) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	if items == nil {
		items = []news.Item{}
	}
	data, err := json.MarshalIndent(snapshot{Timestamp: time.Now(), Count: len(items), News: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadSnapshot reads items written by WriteSnapshot.
func LoadSnapshot(path string) ([]news.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return s.News, nil
}
