// Package rank keeps the feed items that concern the Arab world, files each
// under a site section and picks the most newsworthy ones.
package rank

import (
	"log"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TobiSchelling/arabpress/internal/news"
)

// DefaultLimit is how many items a run keeps when none is configured.
const DefaultLimit = 3

// RegionKeywords is the allow-list an item must match to be kept.
var RegionKeywords = []string{
	"مصر", "السعودية", "الإمارات", "المغرب", "الجزائر", "تونس",
	"ليبيا", "السودان", "لبنان", "سوريا", "العراق", "الأردن",
	"فلسطين", "اليمن", "قطر", "الكويت", "البحرين", "عمان",
	"موريتانيا", "جيبوتي", "الصومال", "العرب", "عربي", "عربية",
	"الوطن العربي", "الشرق الأوسط",
}

// ImportanceKeywords each add 6 points when present.
var ImportanceKeywords = []string{"عاجل", "حصري", "خاص", "جديد", "هام"}

const importanceWeight = 6

type categoryStems struct {
	category string
	stems    []string
}

// categoryTable is checked in order; the first section with a matching stem wins.
var categoryTable = []categoryStems{
	{news.Politics, []string{"سياس", "حكوم", "رئيس", "وزير", "برلمان", "انتخاب", "دبلوماس"}},
	{news.Economy, []string{"اقتصاد", "مال", "بنك", "تجار", "استثمار", "بورص", "شرك"}},
	{news.Sports, []string{"رياض", "كرة", "مبارا", "بطول", "فريق", "لاعب", "نادي"}},
	{news.Technology, []string{"تكنولوجي", "تقني", "ذكاء اصطناع", "إنترنت", "برمج", "هاتف", "حاسوب"}},
	{news.Culture, []string{"ثقاف", "فن", "سينما", "موسيق", "مسرح", "أدب", "كتاب"}},
	{news.Environment, []string{"بيئ", "مناخ", "طقس", "تلوث", "طاق", "مياه"}},
}

func itemText(it news.Item) string {
	return strings.ToLower(it.Title + " " + it.Summary)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Filter returns the items whose title or summary mentions a region keyword.
// Order is preserved.
func Filter(items []news.Item) []news.Item {
	var kept []news.Item
	for _, it := range items {
		if containsAny(itemText(it), RegionKeywords) {
			kept = append(kept, it)
		}
	}
	return kept
}

// Categorize returns the first section whose stems appear in text, or the
// default section.
func Categorize(text string) string {
	text = strings.ToLower(text)
	for _, row := range categoryTable {
		if containsAny(text, row.stems) {
			return row.category
		}
	}
	return news.DefaultCategory
}

// ScoreItem computes the three relevance components. Each is non-negative.
func ScoreItem(it news.Item, now time.Time) news.Score {
	var s news.Score

	hours := now.Sub(it.Published).Hours()
	s.Freshness = math.Max(0, 50-hours)

	s.Length = math.Min(20, float64(utf8.RuneCountInString(it.Summary))/50)

	text := itemText(it)
	hits := 0
	for _, kw := range ImportanceKeywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	s.Keywords = float64(importanceWeight * hits)
	return s
}

// Rank filters, categorizes and scores items, then returns the best limit of
// them. Equal scores keep batch order: feed index first, then item index.
func Rank(items []news.Item, now time.Time, limit int) []news.ScoredItem {
	if limit <= 0 {
		limit = DefaultLimit
	}

	relevant := Filter(items)
	scored := make([]news.ScoredItem, 0, len(relevant))
	for _, it := range relevant {
		scored = append(scored, news.ScoredItem{
			Item:     it,
			Category: Categorize(it.Title + " " + it.Summary),
			Score:    ScoreItem(it, now),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if at, bt := a.Score.Total(), b.Score.Total(); at != bt {
			return at > bt
		}
		if a.FeedIndex != b.FeedIndex {
			return a.FeedIndex < b.FeedIndex
		}
		return a.ItemIndex < b.ItemIndex
	})

	log.Printf("Ranking: %d items, %d relevant, keeping %d", len(items), len(relevant), min(limit, len(scored)))
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
