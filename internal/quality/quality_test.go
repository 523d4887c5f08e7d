package quality

import (
	"strings"
	"testing"

	"github.com/TobiSchelling/arabpress/internal/news"
)

func richDraft() news.Draft {
	body := "## خلفية\n" + strings.Repeat("نص الخبر المفصل. ", 150) +
		"\n## تحليل\nقراءة في تداعيات القرار.\n" +
		"تمت كتابة هذا المقال بمساعدة الذكاء الاصطناعي.\n" +
		"المصادر: وكالات الأنباء"
	return news.Draft{
		Title:           "قمة عربية طارئة تبحث الأزمة الإقليمية",
		Summary:         strings.Repeat("ملخص ", 15),
		Category:        "سياسة",
		Content:         body,
		MetaDescription: strings.Repeat("وصف ", 30),
		Keywords:        "قمة, سياسة",
	}
}

func TestScoreFullMarks(t *testing.T) {
	r := Score(richDraft())
	if r.Score != 100 {
		t.Errorf("expected 100, got %d", r.Score)
	}
	if len(r.Issues) != 0 || len(r.Warnings) != 0 {
		t.Errorf("expected no findings, got %v / %v", r.Issues, r.Warnings)
	}
}

func TestScoreEmptyDraft(t *testing.T) {
	r := Score(news.Draft{})
	// title band 8 + analysis fallback 5
	if r.Score != 13 {
		t.Errorf("expected 13, got %d", r.Score)
	}
	if len(r.Issues) != 3 {
		t.Errorf("expected 3 issues, got %v", r.Issues)
	}
	if len(r.Warnings) != 4 {
		t.Errorf("expected 4 warnings, got %v", r.Warnings)
	}
}

func TestScoreBands(t *testing.T) {
	tests := []struct {
		name    string
		content string
		title   string
		want    int
	}{
		{"short content", strings.Repeat("ا", 499), "عنوان", 8 + 5},
		{"500 chars", strings.Repeat("ا", 500), "عنوان", 10 + 8 + 5},
		{"1000 chars", strings.Repeat("ا", 1000), "عنوان", 25 + 8 + 5},
		{"1501 chars", strings.Repeat("ا", 1501), "عنوان", 25 + 8 + 5 + 5},
		{"2000 chars", strings.Repeat("ا", 2000), "عنوان", 30 + 8 + 5 + 5},
		{"title in band", "", strings.Repeat("ع", 20), 15 + 5},
		{"title too long", "", strings.Repeat("ع", 81), 8 + 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(news.Draft{Title: tt.title, Content: tt.content}).Score
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	d := news.Draft{Title: "قصير"}
	r := Apply(&d)
	if d.QualityScore != r.Score || len(d.QualityIssues) != len(r.Issues) {
		t.Errorf("report not stored on draft: %+v", d)
	}
}
