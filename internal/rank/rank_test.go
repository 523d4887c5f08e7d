package rank

import (
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/arabpress/internal/news"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func item(title, summary string, hoursAgo float64) news.Item {
	return news.Item{
		Title:     title,
		Summary:   summary,
		Link:      "https://example.com/" + title,
		Published: now.Add(-time.Duration(hoursAgo * float64(time.Hour))),
		Source:    "Test",
	}
}

func TestFilterKeepsRegionalItems(t *testing.T) {
	items := []news.Item{
		item("انتخابات في تونس", "", 1),
		item("Weather in Oslo", "snow expected", 1),
	}
	got := Filter(items)
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].Title != "انتخابات في تونس" {
		t.Errorf("unexpected item kept: %q", got[0].Title)
	}
}

func TestFilterMatchesSummary(t *testing.T) {
	got := Filter([]news.Item{item("Summit opens", "leaders from الشرق الأوسط attend", 1)})
	if len(got) != 1 {
		t.Errorf("expected summary match to be kept, got %d", len(got))
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"وزير الخارجية يلتقي نظيره", news.Politics},
		{"ارتفاع البورصة المصرية", news.Economy},
		{"مباراة حاسمة في الدوري", news.Sports},
		{"إطلاق هاتف جديد", news.Technology},
		{"مهرجان السينما العربية", news.Culture},
		{"موجة حر وتغير المناخ", news.Environment},
		{"حدث غير مصنف", news.DefaultCategory},
	}
	for _, tt := range tests {
		if got := Categorize(tt.text); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestCategorizeFirstMatchWins(t *testing.T) {
	// Both a politics stem and a sports stem match; politics is listed first.
	if got := Categorize("رئيس النادي يستقيل"); got != news.Politics {
		t.Errorf("expected politics, got %q", got)
	}
}

func TestScoreComponents(t *testing.T) {
	it := item("عاجل: خبر حصري", strings.Repeat("ا", 250), 10)
	s := ScoreItem(it, now)

	if s.Freshness != 40 {
		t.Errorf("freshness = %v, want 40", s.Freshness)
	}
	if s.Length != 5 {
		t.Errorf("length = %v, want 5", s.Length)
	}
	if s.Keywords != 12 {
		t.Errorf("keywords = %v, want 12", s.Keywords)
	}
	if s.Total() != 57 {
		t.Errorf("total = %v, want 57", s.Total())
	}
}

func TestScoreComponentsNeverNegative(t *testing.T) {
	old := item("خبر قديم", strings.Repeat("x", 5000), 500)
	s := ScoreItem(old, now)
	if s.Freshness != 0 {
		t.Errorf("old item freshness = %v, want 0", s.Freshness)
	}
	if s.Length != 20 {
		t.Errorf("length must cap at 20, got %v", s.Length)
	}
	if s.Keywords != 0 {
		t.Errorf("keywords = %v, want 0", s.Keywords)
	}
	if s.Freshness < 0 || s.Length < 0 || s.Keywords < 0 {
		t.Error("components must be non-negative")
	}
}

func TestRankOrdersAndTruncates(t *testing.T) {
	items := []news.Item{
		item("خبر من مصر", "", 40),
		item("عاجل من قطر", "", 1),
		item("خبر من لبنان", "", 20),
		item("no region here", "", 0),
		item("خبر من اليمن", "", 30),
	}
	got := Rank(items, now, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	want := []string{"عاجل من قطر", "خبر من لبنان", "خبر من اليمن"}
	for i, w := range want {
		if got[i].Title != w {
			t.Errorf("position %d: got %q, want %q", i, got[i].Title, w)
		}
	}
}

func TestRankTieBreakByBatchPosition(t *testing.T) {
	a := item("خبر أ من مصر", "", 5)
	a.FeedIndex, a.ItemIndex = 1, 0
	b := item("خبر ب من مصر", "", 5)
	b.FeedIndex, b.ItemIndex = 0, 3
	c := item("خبر ج من مصر", "", 5)
	c.FeedIndex, c.ItemIndex = 0, 1

	got := Rank([]news.Item{a, b, c}, now, 3)
	want := []string{"خبر ج من مصر", "خبر ب من مصر", "خبر أ من مصر"}
	for i, w := range want {
		if got[i].Title != w {
			t.Errorf("position %d: got %q, want %q", i, got[i].Title, w)
		}
	}
}

func TestRankDefaultLimit(t *testing.T) {
	var items []news.Item
	for i := 0; i < 6; i++ {
		items = append(items, item("خبر عربي", "", float64(i)))
	}
	if got := Rank(items, now, 0); len(got) != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, len(got))
	}
}

func TestRankAssignsCategory(t *testing.T) {
	got := Rank([]news.Item{item("منتخب المغرب يفوز في مباراة", "", 1)}, now, 3)
	if len(got) != 1 || got[0].Category != news.Sports {
		t.Errorf("expected sports category, got %+v", got)
	}
}
