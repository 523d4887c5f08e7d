package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/dedup"
)

func rssFeed(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Test</title>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title>خبر %d من تونس</title><link>https://example.com/%d</link>`+
			`<description>&lt;p&gt;ملخص &lt;b&gt;الخبر&lt;/b&gt; %d&lt;/p&gt;</description>`+
			`<pubDate>Mon, 09 Mar 2026 10:00:00 GMT</pubDate><category>عالم</category></item>`, i, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/big.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFeed(15))
	})
	mux.HandleFunc("/small.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(2))
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestParseAllCapsAndIsolatesFailures(t *testing.T) {
	srv := newFeedServer(t)
	fp := NewFeedParser([]FeedConfig{
		{URL: srv.URL + "/broken.xml", Name: "Broken"},
		{URL: srv.URL + "/big.xml", Name: "Big"},
		{URL: "http://127.0.0.1:1/unreachable.xml", Name: "Down"},
		{URL: srv.URL + "/small.xml"},
	})

	items := fp.ParseAll(context.Background())
	if len(items) != maxPerFeed+2 {
		t.Fatalf("expected %d items, got %d", maxPerFeed+2, len(items))
	}

	first := items[0]
	if first.Source != "Big" {
		t.Errorf("expected source 'Big', got %q", first.Source)
	}
	if first.Summary != "ملخص الخبر 0" {
		t.Errorf("expected stripped summary, got %q", first.Summary)
	}
	if first.Link != "https://example.com/0" {
		t.Errorf("unexpected link %q", first.Link)
	}
	if first.Published.IsZero() || first.Published.Day() != 9 {
		t.Errorf("unexpected published time %v", first.Published)
	}
	if len(first.Categories) != 1 || first.Categories[0] != "عالم" {
		t.Errorf("unexpected categories %v", first.Categories)
	}
	if first.FeedIndex != 1 || first.ItemIndex != 0 {
		t.Errorf("unexpected batch position %d/%d", first.FeedIndex, first.ItemIndex)
	}

	last := items[len(items)-1]
	if last.FeedIndex != 3 || last.ItemIndex != 1 {
		t.Errorf("unexpected batch position for last item %d/%d", last.FeedIndex, last.ItemIndex)
	}
	if last.Source == "" {
		t.Error("expected a source name derived from the feed URL")
	}
}

func TestCollectWritesSnapshotAndDropsSeen(t *testing.T) {
	srv := newFeedServer(t)
	dir := t.TempDir()
	cfg := &config.Config{
		Sources: config.Sources{Feeds: []config.Feed{{URL: srv.URL + "/small.xml", Name: "Small"}}},
		Output:  config.Output{DataDir: dir},
	}

	seen := &memoryStore{links: map[string]bool{"https://example.com/1": true}}
	result := NewCollector(cfg, seen).Collect(context.Background())

	if result.TotalFound != 2 {
		t.Errorf("expected 2 found, got %d", result.TotalFound)
	}
	if result.Duplicates != 1 || len(result.Items) != 1 {
		t.Errorf("expected 1 duplicate and 1 item, got %d/%d", result.Duplicates, len(result.Items))
	}
	if result.Sources["Small"] != 1 {
		t.Errorf("expected 1 item from Small, got %d", result.Sources["Small"])
	}

	snap, err := LoadSnapshot(filepath.Join(dir, "logs", SnapshotFile))
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Errorf("snapshot must hold the unfiltered batch, got %d", len(snap))
	}
}

func TestCollectNoSources(t *testing.T) {
	cfg := &config.Config{Output: config.Output{DataDir: t.TempDir()}}
	result := NewCollector(cfg, nil).Collect(context.Background())
	if result.TotalFound != 0 || len(result.Items) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestStripHTML(t *testing.T) {
	tests := map[string]string{
		"<p>Hello <b>world</b></p>": "Hello world",
		"plain   text\n here":       "plain text here",
		"&amp; &lt;tag&gt;":         "& <tag>",
		"":                          "",
	}
	for in, want := range tests {
		if got := stripHTML(in); got != want {
			t.Errorf("stripHTML(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractSourceName(t *testing.T) {
	tests := map[string]string{
		"https://www.aljazeera.net/rss":         "Aljazeera",
		"https://arabic.cnn.com/rss":            "Cnn",
		"https://rss.dw.com/xml/rss-ar-all":     "Dw",
		"https://www.skynewsarabia.com/rss.xml": "Skynewsarabia",
	}
	for in, want := range tests {
		if got := extractSourceName(in); got != want {
			t.Errorf("extractSourceName(%q) = %q, want %q", in, got, want)
		}
	}
}

type memoryStore struct {
	links map[string]bool
}

var _ dedup.Store = (*memoryStore)(nil)

func (m *memoryStore) Seen(_ context.Context, link string) (bool, error) { return m.links[link], nil }

func (m *memoryStore) Mark(_ context.Context, link, _ string) error {
	m.links[link] = true
	return nil
}
