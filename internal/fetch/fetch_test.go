package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/arabpress/internal/news"
)

func articlePage() string {
	para := strings.Repeat("شهدت العاصمة التونسية اليوم اجتماعا موسعا لبحث آفاق التعاون الاقتصادي بين دول المنطقة. ", 8)
	return `<html><head><title>خبر</title></head><body>
<nav>القائمة</nav>
<article><h1>عنوان الخبر</h1><p>` + para + `</p><p>` + para + `</p></article>
<footer>حقوق النشر</footer></body></html>`
}

func TestEnrichSummaries(t *testing.T) {
	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, articlePage())
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	long := strings.Repeat("ن", 250)
	items := []news.Item{
		{Title: "thin", Summary: "قصير", Link: srv.URL + "/ok"},
		{Title: "rich", Summary: long, Link: srv.URL + "/ok"},
		{Title: "gone", Summary: "", Link: srv.URL + "/gone"},
		{Title: "same domain after failure", Summary: "", Link: srv.URL + "/ok"},
	}

	result := NewContentFetcher(5*time.Second).EnrichSummaries(context.Background(), items)

	if result.Fetched != 1 {
		t.Errorf("expected 1 fetched, got %d", result.Fetched)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.Skipped)
	}
	if result.Failed != 2 {
		t.Errorf("expected 2 failed, got %d", result.Failed)
	}
	if hits != 2 {
		t.Errorf("expected the failed domain to be skipped, got %d requests", hits)
	}
	if !strings.Contains(items[0].Summary, "العاصمة التونسية") {
		t.Errorf("expected extracted text, got %q", items[0].Summary)
	}
	if items[1].Summary != long {
		t.Error("rich summary must be left alone")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("مرحبا", 3); got != "مرح" {
		t.Errorf("truncateRunes = %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Errorf("truncateRunes = %q", got)
	}
}
