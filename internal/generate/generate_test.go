package generate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/llm"
	"github.com/TobiSchelling/arabpress/internal/news"
)

type mockProvider struct {
	responses []string
	errs      []error
	prompts   []string
	maxTokens []int
}

func (m *mockProvider) Generate(_ context.Context, prompt string, maxTokens int) (string, error) {
	i := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	m.maxTokens = append(m.maxTokens, maxTokens)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return "", fmt.Errorf("no response queued")
}

func (m *mockProvider) IsConfigured() bool { return true }

func testConfig() config.Generation {
	return config.Generation{
		Model:         "claude-sonnet-4-5",
		TestModel:     "claude-haiku-4-5",
		MaxTokens:     8000,
		TestMaxTokens: 4000,
		Author:        "فريق تحرير عرب برس",
		Presets: map[string]config.Preset{
			"pays": {DefaultCountry: "تونس", Instructions: []string{"ركّز على البلد المستهدف"}},
		},
	}
}

func response(title, category string) string {
	return "```json\n{\n" +
		`"title": "` + title + `",` + "\n" +
		`"summary": "ملخص قصير للخبر",` + "\n" +
		`"category": "` + category + `",` + "\n" +
		`"content": "## مقدمة` + "\n" + `نص المقال",` + "\n" +
		`"metaDescription": "وصف",` + "\n" +
		`"keywords": ["قمة", "تونس"],` + "\n" +
		`"imageSearchTerms": "summit, tunis",` + "\n" +
		`"imageAlt": "صورة"` + "\n}\n```"
}

func item(title string) news.ScoredItem {
	return news.ScoredItem{
		Item:     news.Item{Title: title, Summary: "summary", Link: "https://example.com/" + title, Source: "BBC"},
		Category: news.Politics,
	}
}

func fixedNow() time.Time { return time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) }

func TestGenerateDerivesFields(t *testing.T) {
	p := &mockProvider{responses: []string{response("قمة تونس", "اقتصاد")}}
	g, err := NewGenerator(p, testConfig(), Options{})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	g.now = fixedNow

	r := g.Generate(context.Background(), []news.ScoredItem{item("a")})
	if len(r.Drafts) != 1 || len(r.Errors) != 0 {
		t.Fatalf("expected 1 draft, got %d drafts / %d errors", len(r.Drafts), len(r.Errors))
	}

	d := r.Drafts[0]
	if d.Content != "## مقدمة\nنص المقال" {
		t.Errorf("unexpected content %q", d.Content)
	}
	if d.Category != news.Economy {
		t.Errorf("unexpected category %q", d.Category)
	}
	if d.Keywords != "قمة, تونس" {
		t.Errorf("expected list keywords to be joined, got %q", d.Keywords)
	}
	if d.Author != "فريق تحرير عرب برس" {
		t.Errorf("expected default author, got %q", d.Author)
	}
	if d.Slug != news.Slug("قمة تونس") || d.Slug == "" {
		t.Errorf("unexpected slug %q", d.Slug)
	}
	if d.Date != "2026-03-09" {
		t.Errorf("unexpected date %q", d.Date)
	}
	if d.SourceURL != "https://example.com/a" || d.SourceName != "BBC" {
		t.Errorf("unexpected source %q / %q", d.SourceURL, d.SourceName)
	}
	if !d.GeneratedAt.Equal(fixedNow()) {
		t.Errorf("unexpected generatedAt %v", d.GeneratedAt)
	}
	if d.QualityScore == 0 || len(d.QualityIssues) == 0 {
		t.Errorf("expected a quality report, got %d / %v", d.QualityScore, d.QualityIssues)
	}
	if p.maxTokens[0] != 8000 {
		t.Errorf("expected 8000 max tokens, got %d", p.maxTokens[0])
	}
}

func TestGenerateIsolatesFailures(t *testing.T) {
	p := &mockProvider{
		responses: []string{
			"",
			`{"title": "بلا محتوى", "summary": "s", "category": "سياسة", "content": ""}`,
			"this is not json",
			response("خبر سليم", "غير معروف"),
		},
		errs: []error{errors.New("rate limited")},
	}
	g, _ := NewGenerator(p, testConfig(), Options{})
	var slept int
	g.sleep = func(context.Context, time.Duration) error { slept++; return nil }
	g.delay = time.Second

	items := []news.ScoredItem{item("a"), item("b"), item("c"), item("d")}
	r := g.Generate(context.Background(), items)

	if len(r.Drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(r.Drafts))
	}
	if r.Drafts[0].Category != news.DefaultCategory {
		t.Errorf("expected unknown category to fall back, got %q", r.Drafts[0].Category)
	}
	if len(r.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(r.Errors))
	}
	for _, e := range r.Errors {
		if !errors.Is(e.Err, ErrGeneration) {
			t.Errorf("expected ErrGeneration, got %v", e.Err)
		}
	}
	if !strings.Contains(r.Errors[1].Err.Error(), "content") {
		t.Errorf("expected missing content error, got %v", r.Errors[1].Err)
	}
	if !errors.Is(r.Errors[2].Err, llm.ErrUnparseable) {
		t.Errorf("expected unparseable error, got %v", r.Errors[2].Err)
	}
	if r.Errors[0].Item.Title != "a" {
		t.Errorf("errors must keep their item, got %q", r.Errors[0].Item.Title)
	}
	if slept != 3 {
		t.Errorf("expected a delay between each of 4 calls, got %d", slept)
	}
}

func TestBuildPromptTiersAndPreset(t *testing.T) {
	cfg := testConfig()
	g, _ := NewGenerator(&mockProvider{}, cfg, Options{})
	prompt := g.BuildPrompt(item("Gaza talks"))
	for _, want := range []string{"Gaza talks", "https://example.com/Gaza talks", "BBC", "سياسة", "1500 words"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Target country") {
		t.Error("prompt must not name a country without a preset")
	}

	cfg.Model = cfg.TestModel
	g, _ = NewGenerator(&mockProvider{}, cfg, Options{Preset: "pays"})
	prompt = g.BuildPrompt(item("x"))
	if !strings.Contains(prompt, "600 words") {
		t.Error("test model must get the shorter target")
	}
	if !strings.Contains(prompt, "Target country: تونس") {
		t.Error("pays preset must default to Tunisia")
	}
	if !strings.Contains(prompt, "ركّز على البلد المستهدف") {
		t.Error("preset instructions missing")
	}

	g, _ = NewGenerator(&mockProvider{}, cfg, Options{Preset: "pays", Country: "المغرب"})
	if !strings.Contains(g.BuildPrompt(item("x")), "Target country: المغرب") {
		t.Error("explicit country must win over the preset default")
	}
}

func TestNewGeneratorUnknownPreset(t *testing.T) {
	if _, err := NewGenerator(&mockProvider{}, testConfig(), Options{Preset: "nope"}); err == nil {
		t.Error("expected an error for an unknown preset")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", DraftsFile)
	drafts := []news.Draft{{Title: "عنوان", Slug: "nwan", Content: "نص"}}
	if err := Save(path, drafts); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Title != "عنوان" || got[0].Slug != "nwan" {
		t.Errorf("unexpected drafts %+v", got)
	}
}
