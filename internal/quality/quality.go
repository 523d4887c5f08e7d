// Package quality scores generated drafts with fixed editorial heuristics.
// The score is advisory: nothing in the pipeline blocks on it.
package quality

import (
	"strings"
	"unicode/utf8"

	"github.com/TobiSchelling/arabpress/internal/news"
)

// Report is the outcome of scoring one draft.
type Report struct {
	Score    int      `json:"score"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}

var (
	disclosurePhrases = []string{"الذكاء الاصطناعي", "ذكاء اصطناعي", "intelligence artificielle"}
	sourcesMarkers    = []string{"المصادر", "Sources :", "Sources:"}
	analysisStems     = []string{"تحليل", "رؤية", "منظور", "قراءة", "أبعاد", "تداعيات"}
)

// Score computes the 0-100 score of d along with its issues and warnings.
func Score(d news.Draft) Report {
	var r Report

	contentLen := utf8.RuneCountInString(d.Content)
	titleLen := utf8.RuneCountInString(d.Title)
	summaryLen := utf8.RuneCountInString(d.Summary)
	metaLen := utf8.RuneCountInString(d.MetaDescription)

	switch {
	case contentLen >= 2000:
		r.Score += 30
	case contentLen >= 1000:
		r.Score += 25
	case contentLen >= 500:
		r.Score += 10
	}

	if titleLen >= 20 && titleLen <= 80 {
		r.Score += 15
	} else {
		r.Score += 8
	}

	for _, field := range []string{d.Summary, d.MetaDescription, d.Keywords, d.Category} {
		if strings.TrimSpace(field) != "" {
			r.Score += 5
		}
	}

	hasHeadings := strings.Contains(d.Content, "##")
	hasSources := containsAny(d.Content, sourcesMarkers)
	hasDisclosure := containsAny(d.Content, disclosurePhrases)
	for _, ok := range []bool{hasHeadings, hasSources, hasDisclosure, contentLen > 1500} {
		if ok {
			r.Score += 5
		}
	}

	if containsAny(d.Title+" "+d.Content, analysisStems) {
		r.Score += 15
	} else {
		r.Score += 5
		r.Warnings = append(r.Warnings, "no analysis or perspective section")
	}

	if titleLen < 10 {
		r.Issues = append(r.Issues, "title too short")
	}
	if contentLen < 1000 {
		r.Issues = append(r.Issues, "content too short (under 1000 characters)")
	}
	if summaryLen < 50 {
		r.Issues = append(r.Issues, "summary too short (under 50 characters)")
	}
	if metaLen < 100 {
		r.Warnings = append(r.Warnings, "meta description under 100 characters")
	}
	if !hasDisclosure {
		r.Warnings = append(r.Warnings, "no AI disclosure line")
	}
	if !hasSources {
		r.Warnings = append(r.Warnings, "no sources line")
	}

	r.Score = min(100, max(0, r.Score))
	return r
}

// Apply scores d and stores the result on it.
func Apply(d *news.Draft) Report {
	r := Score(*d)
	d.QualityScore = r.Score
	d.QualityIssues = r.Issues
	d.QualityWarnings = r.Warnings
	return r
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
