// Package news holds the records that flow through the pipeline, from a raw
// feed entry to a published article.
package news

import "time"

// Item is one feed entry as fetched, before any filtering.
type Item struct {
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Link       string    `json:"link"`
	Published  time.Time `json:"pubDate"`
	Source     string    `json:"source"`
	Categories []string  `json:"categories,omitempty"`

	// Position in the fetched batch; used as the ranking tie-break.
	FeedIndex int `json:"feedIndex"`
	ItemIndex int `json:"itemIndex"`
}

// Score is a relevance score split into its additive parts.
type Score struct {
	Freshness float64 `json:"freshness"`
	Length    float64 `json:"length"`
	Keywords  float64 `json:"keywords"`
}

// Total is the exact sum of the three parts.
func (s Score) Total() float64 {
	return s.Freshness + s.Length + s.Keywords
}

// ScoredItem is an Item that passed the relevance filter.
type ScoredItem struct {
	Item
	Category string `json:"suggestedCategory"`
	Score    Score  `json:"score"`
}

// Draft is an article written by the generator. The first nine fields are
// produced by the model; the rest are filled in afterwards.
type Draft struct {
	Title            string `json:"title"`
	Summary          string `json:"summary"`
	Category         string `json:"category"`
	Content          string `json:"content"`
	MetaDescription  string `json:"metaDescription,omitempty"`
	Keywords         string `json:"keywords,omitempty"`
	Author           string `json:"author,omitempty"`
	ImageSearchTerms string `json:"imageSearchTerms,omitempty"`
	ImageAlt         string `json:"imageAlt,omitempty"`

	Slug        string    `json:"slug"`
	Date        string    `json:"date"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	SourceName  string    `json:"sourceName,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`

	QualityScore    int      `json:"qualityScore"`
	QualityIssues   []string `json:"qualityIssues,omitempty"`
	QualityWarnings []string `json:"qualityWarnings,omitempty"`

	// Image is the site-relative path of the downloaded photo, if any.
	Image string `json:"image,omitempty"`
}

// Published is a draft that has been given its permanent identifier.
type Published struct {
	ID int `json:"id"`
	Draft
}

// Verdict is the editor's answer for one draft.
type Verdict string

const (
	Approve Verdict = "approve"
	Reject  Verdict = "reject"
	Skip    Verdict = "skip"
)

// RejectedManually is the reason recorded for drafts turned down in review.
const RejectedManually = "rejected manually"

// Decision records a review outcome.
type Decision struct {
	Verdict   Verdict   `json:"verdict"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Rejected pairs a draft with the reason it was turned down.
type Rejected struct {
	Draft
	RejectionReason string    `json:"rejectionReason"`
	RejectedAt      time.Time `json:"rejectedAt"`
}
