package media

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/arabpress/internal/news"
)

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"summit", "tunis"}, Keywords(news.Draft{ImageSearchTerms: " summit , ,tunis ", Category: news.Sports}))
	assert.Equal(t, categoryKeywords[news.Sports], Keywords(news.Draft{ImageSearchTerms: " , ", Category: news.Sports}))
	assert.Equal(t, defaultKeywords, Keywords(news.Draft{Category: "غير معروف"}))
}

type photoServer struct {
	*httptest.Server
	queries []string
	auth    string
}

func newPhotoServer(t *testing.T, photos int) *photoServer {
	t.Helper()
	ps := &photoServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		ps.queries = append(ps.queries, r.URL.Query().Get("query"))
		ps.auth = r.Header.Get("Authorization")
		if r.URL.Query().Get("per_page") != "15" || r.URL.Query().Get("orientation") != "landscape" {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"photos":[`)
		for i := 0; i < photos; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"src":{"large2x":"%s/photo/%d.jpg"}}`, ps.URL, i)
		}
		fmt.Fprint(w, `]}`)
	})
	mux.HandleFunc("/photo/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "jpeg:"+r.URL.Path)
	})
	mux.HandleFunc("/placeholder.jpg", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "placeholder")
	})
	ps.Server = httptest.NewServer(mux)
	t.Cleanup(ps.Close)
	return ps
}

func testEnricher(ps *photoServer, apiKey, dir string) *Enricher {
	e := NewEnricher(apiKey, dir)
	e.searchURL = ps.URL + "/v1/search"
	e.fallback = func() string { return ps.URL + "/placeholder.jpg" }
	e.pick = func(n int) int { return n - 1 }
	return e
}

func TestEnrichUsesSearchResult(t *testing.T) {
	ps := newPhotoServer(t, 3)
	dir := t.TempDir()
	e := testEnricher(ps, "pexels-key", dir)

	drafts := []news.Draft{{Title: "قمة", Slug: "qma", ImageSearchTerms: "summit, leaders"}}
	r := e.Enrich(context.Background(), drafts)

	assert.Equal(t, 1, r.Downloaded)
	assert.Equal(t, 0, r.Fallbacks)
	assert.Equal(t, []string{"summit"}, ps.queries)
	assert.Equal(t, "pexels-key", ps.auth)
	name := imageName(news.Draft{Title: "قمة", Slug: "qma"}, 0)
	assert.Equal(t, "/img/"+name, drafts[0].Image)
	assert.Equal(t, "قمة", drafts[0].ImageAlt)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:/photo/2.jpg", string(data))
}

func TestEnrichFallsBackWithoutKeyOrResults(t *testing.T) {
	ps := newPhotoServer(t, 0)
	dir := t.TempDir()

	drafts := []news.Draft{{Title: "a", Slug: "a", ImageAlt: "وصف"}}
	r := testEnricher(ps, "", dir).Enrich(context.Background(), drafts)
	assert.Equal(t, 1, r.Fallbacks)
	assert.Empty(t, ps.queries)
	assert.Regexp(t, `^/img/article-a-[0-9a-f]{8}\.jpg$`, drafts[0].Image)
	assert.Equal(t, "وصف", drafts[0].ImageAlt)

	drafts = []news.Draft{{Title: "b", Slug: "b", Category: news.Economy}}
	r = testEnricher(ps, "key", dir).Enrich(context.Background(), drafts)
	assert.Equal(t, 1, r.Fallbacks)
	assert.Equal(t, []string{"economy"}, ps.queries)
	assert.Regexp(t, `^/img/article-b-[0-9a-f]{8}\.jpg$`, drafts[0].Image)
}

func TestEnrichDownloadFailureLeavesNoImage(t *testing.T) {
	ps := newPhotoServer(t, 1)
	e := testEnricher(ps, "", t.TempDir())
	e.fallback = func() string { return ps.URL + "/missing" }

	drafts := []news.Draft{{Title: "c", Slug: "c"}}
	r := e.Enrich(context.Background(), drafts)
	assert.Equal(t, 1, r.Failed)
	assert.Empty(t, drafts[0].Image)
	assert.Equal(t, "c", drafts[0].ImageAlt)
}

func TestImageNameWithoutSlug(t *testing.T) {
	d := news.Draft{GeneratedAt: time.Unix(1700000000, 0)}
	assert.Regexp(t, `^article-1700000000-2-[0-9a-f]{8}\.jpg$`, imageName(d, 2))
}

func TestEnrichKeepsSharedSlugsApart(t *testing.T) {
	ps := newPhotoServer(t, 3)
	dir := t.TempDir()
	e := testEnricher(ps, "pexels-key", dir)
	next := 0
	e.pick = func(n int) int {
		next++
		return next % n
	}

	slug := news.Slug("الرئيس التونسي يستقبل وزير الخارجية السعودي لبحث التعاون الاقتصادي")
	drafts := []news.Draft{
		{Title: "الرئيس التونسي يستقبل وزير الخارجية السعودي لبحث التعاون الاقتصادي في قطاع الطاقة", Slug: slug, SourceURL: "https://example.com/energy"},
		{Title: "الرئيس التونسي يستقبل وزير الخارجية السعودي لبحث التعاون الاقتصادي في قطاع السياحة", Slug: slug, SourceURL: "https://example.com/tourism"},
	}
	r := e.Enrich(context.Background(), drafts)
	require.Equal(t, 2, r.Downloaded)
	assert.NotEqual(t, drafts[0].Image, drafts[1].Image)

	first, err := os.ReadFile(filepath.Join(dir, filepath.Base(drafts[0].Image)))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, filepath.Base(drafts[1].Image)))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:/photo/1.jpg", string(first))
	assert.Equal(t, "jpeg:/photo/2.jpg", string(second))

	again := drafts[0]
	assert.Equal(t, filepath.Base(drafts[0].Image), imageName(again, 5), "name must not depend on position when a slug is set")
}

func TestDefaultFallbackURL(t *testing.T) {
	src, fromSearch := NewEnricher("", t.TempDir()).FindImage(context.Background(), nil)
	assert.False(t, fromSearch)
	assert.Regexp(t, `^https://picsum\.photos/1200/630\?random=\d{1,3}$`, src)
}
