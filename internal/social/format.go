package social

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/TobiSchelling/arabpress/internal/news"
)

var categoryHashtags = map[string]string{
	news.Politics:    "#سياسة #العالم_العربي #أخبار",
	news.Economy:     "#اقتصاد #أعمال #تجارة",
	news.Sports:      "#رياضة #كرة_القدم #ألعاب",
	news.Technology:  "#تكنولوجيا #تقنية #ابتكار",
	news.Culture:     "#ثقافة #فن #أدب",
	news.Environment: "#بيئة #مناخ #استدامة",
}

const defaultHashtags = "#عربي #أخبار"

// Hashtags returns the hashtag line for a category.
func Hashtags(category string) string {
	if h, ok := categoryHashtags[category]; ok {
		return h
	}
	return defaultHashtags
}

// tweetSummaryLen is how much of the summary fits next to title, tags and link.
const tweetSummaryLen = 120

func formatTwitter(a news.Published, link string) string {
	summary := a.Summary
	if utf8.RuneCountInString(summary) > tweetSummaryLen {
		summary = string([]rune(summary)[:tweetSummaryLen])
	}
	return fmt.Sprintf("%s\n\n%s...\n\n%s\n%s", a.Title, summary, Hashtags(a.Category), link)
}

func formatFacebook(a news.Published, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 %s\n\n", a.Title)
	fmt.Fprintf(&b, "%s\n\n", a.Summary)
	fmt.Fprintf(&b, "📖 اقرأ المقال كاملاً: %s\n\n", link)
	fmt.Fprintf(&b, "#عربي #أخبار #%s", strings.ReplaceAll(a.Category, " ", "_"))
	return b.String()
}

func formatLinkedIn(a news.Published, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", a.Title)
	fmt.Fprintf(&b, "%s\n\n", a.Summary)
	fmt.Fprintf(&b, "📌 التصنيف: %s\n", a.Category)
	fmt.Fprintf(&b, "📅 %s\n\n", a.Date)
	fmt.Fprintf(&b, "اقرأ المقال: %s", link)
	return b.String()
}
