package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/arabpress/internal/collect"
	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/database"
	"github.com/TobiSchelling/arabpress/internal/events"
	"github.com/TobiSchelling/arabpress/internal/generate"
	"github.com/TobiSchelling/arabpress/internal/hooks"
	"github.com/TobiSchelling/arabpress/internal/media"
	"github.com/TobiSchelling/arabpress/internal/news"
	"github.com/TobiSchelling/arabpress/internal/publish"
	"github.com/TobiSchelling/arabpress/internal/social"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeCollector struct{ items []news.Item }

func (f *fakeCollector) Collect(context.Context) *collect.Result {
	return &collect.Result{Items: f.items, TotalFound: len(f.items)}
}

type fakeDrafter struct {
	calls int
	fail  bool
}

func (f *fakeDrafter) Generate(_ context.Context, items []news.ScoredItem) *generate.Result {
	f.calls++
	r := &generate.Result{}
	for _, it := range items {
		if f.fail {
			r.Errors = append(r.Errors, generate.ItemError{Item: it, Err: generate.ErrGeneration})
			continue
		}
		r.Drafts = append(r.Drafts, news.Draft{
			Title:     "مقال: " + it.Title,
			Summary:   "ملخص",
			Category:  it.Category,
			Content:   "محتوى",
			Slug:      news.Slug(it.Title),
			SourceURL: it.Link,
		})
	}
	return r
}

type fakeImages struct{ calls int }

func (f *fakeImages) Enrich(_ context.Context, drafts []news.Draft) *media.Result {
	f.calls++
	for i := range drafts {
		drafts[i].Image = "/img/article-" + drafts[i].Slug + ".jpg"
	}
	return &media.Result{Downloaded: len(drafts)}
}

type fakePublisher struct {
	opts  publish.Options
	calls int
	err   error
}

func (f *fakePublisher) Publish(drafts []news.Draft, opts publish.Options) (*publish.Result, error) {
	f.calls++
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	r := &publish.Result{DryRun: opts.DryRun, LastID: 10}
	for i, d := range drafts {
		r.Articles = append(r.Articles, news.Published{ID: 11 + i, Draft: d})
	}
	return r, nil
}

type fakeAnnouncer struct{ got []news.Published }

func (f *fakeAnnouncer) Announce(_ context.Context, articles []news.Published) *social.Report {
	f.got = articles
	return &social.Report{}
}

type fakeHook struct {
	name  string
	calls int
	err   error
}

func (f *fakeHook) Name() string { return f.name }

func (f *fakeHook) Run(context.Context, []news.Published) error {
	f.calls++
	return f.err
}

type fakeBus struct{ types []string }

func (f *fakeBus) Publish(_ context.Context, e events.Event) error {
	f.types = append(f.types, e.Type)
	return nil
}

func (f *fakeBus) Close() {}

type memoryStore struct{ marked []string }

func (m *memoryStore) Seen(context.Context, string) (bool, error) { return false, nil }

func (m *memoryStore) Mark(_ context.Context, link, _ string) error {
	m.marked = append(m.marked, link)
	return nil
}

type fixture struct {
	p         *Pipeline
	db        *database.DB
	collector *fakeCollector
	drafter   *fakeDrafter
	images    *fakeImages
	publisher *fakePublisher
	announcer *fakeAnnouncer
	build     *fakeHook
	git       *fakeHook
	bus       *fakeBus
	seen      *memoryStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Automation: config.Automation{DailyLimit: 2},
		Output:     config.Output{DataDir: t.TempDir()},
		Site:       config.Site{BaseURL: "https://example.org"},
	}
	f := &fixture{
		db: db,
		collector: &fakeCollector{items: []news.Item{
			{Title: "قمة في تونس", Link: "https://a.example/1", Published: fixedNow.Add(-time.Hour)},
			{Title: "Weather in Oslo", Link: "https://a.example/2", Published: fixedNow},
			{Title: "انتخابات في مصر", Link: "https://a.example/3", Published: fixedNow.Add(-2 * time.Hour)},
		}},
		drafter:   &fakeDrafter{},
		images:    &fakeImages{},
		publisher: &fakePublisher{},
		announcer: &fakeAnnouncer{},
		build:     &fakeHook{name: "build"},
		git:       &fakeHook{name: "git"},
		bus:       &fakeBus{},
		seen:      &memoryStore{},
	}
	f.p = &Pipeline{
		cfg:       cfg,
		db:        db,
		opts:      opts,
		seen:      f.seen,
		collector: f.collector,
		drafter:   f.drafter,
		images:    f.images,
		publisher: f.publisher,
		announcer: f.announcer,
		hooks:     []hooks.Hook{f.build, f.git},
		bus:       f.bus,
		now:       func() time.Time { return fixedNow },
	}
	return f
}

func TestRunAllSteps(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.p.Run(context.Background())

	if err := r.Err(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.Items) != 2 {
		t.Errorf("expected 2 relevant items, got %d", len(r.Items))
	}
	if len(r.Published) != 2 || r.Published[0].ID != 11 {
		t.Errorf("unexpected published set %+v", r.Published)
	}
	if r.Published[0].Image == "" {
		t.Error("expected images to be attached before publication")
	}
	if len(f.announcer.got) != 2 {
		t.Errorf("expected 2 announced articles, got %d", len(f.announcer.got))
	}
	if f.build.calls != 1 || f.git.calls != 1 {
		t.Errorf("expected each hook to run once, got build=%d git=%d", f.build.calls, f.git.calls)
	}
	if f.publisher.opts.RunID != r.RunID {
		t.Errorf("publisher got run id %q, want %q", f.publisher.opts.RunID, r.RunID)
	}
	if len(f.seen.marked) != 2 {
		t.Errorf("expected drafted links to be marked, got %v", f.seen.marked)
	}

	wantEvents := []string{events.RunStarted, events.ArticlePublished, events.ArticlePublished, events.RunFinished}
	if strings.Join(f.bus.types, ",") != strings.Join(wantEvents, ",") {
		t.Errorf("events = %v, want %v", f.bus.types, wantEvents)
	}

	run, err := f.db.GetRun(r.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != "succeeded" {
		t.Errorf("expected succeeded run, got %q", run.Status)
	}

	drafts, err := generate.Load(filepath.Join(f.p.cfg.LogsDir(), generate.DraftsFile))
	if err != nil {
		t.Fatalf("Load drafts: %v", err)
	}
	if len(drafts) != 2 || drafts[0].Image == "" {
		t.Errorf("drafts file should hold the enriched drafts, got %+v", drafts)
	}
}

func TestRunStopsWithoutRelevantNews(t *testing.T) {
	f := newFixture(t, Options{})
	f.collector.items = []news.Item{{Title: "Weather in Oslo", Link: "https://a.example/2"}}

	r := f.p.Run(context.Background())
	if err := r.Err(); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if r.Stopped == "" {
		t.Error("expected the run to stop early")
	}
	if f.drafter.calls != 0 || f.publisher.calls != 0 {
		t.Error("no later step should run")
	}
}

func TestRunStopsWithoutDrafts(t *testing.T) {
	f := newFixture(t, Options{})
	f.drafter.fail = true

	r := f.p.Run(context.Background())
	if err := r.Err(); err != nil {
		t.Fatalf("per-item failures must not fail the run: %v", err)
	}
	if f.publisher.calls != 0 {
		t.Error("publisher must not run without drafts")
	}
}

func TestRunPublishFailureAbortsRun(t *testing.T) {
	f := newFixture(t, Options{})
	f.publisher.err = publish.ErrIntegrity

	r := f.p.Run(context.Background())
	if !errors.Is(r.Err(), publish.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", r.Err())
	}
	if f.announcer.got != nil || f.build.calls != 0 {
		t.Error("no step may run after a failed publication")
	}

	run, err := f.db.GetRun(r.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != "failed" {
		t.Errorf("expected failed run, got %q", run.Status)
	}
}

func TestRunDryRunSkipsHooks(t *testing.T) {
	f := newFixture(t, Options{DryRun: true})

	r := f.p.Run(context.Background())
	if err := r.Err(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !f.publisher.opts.DryRun {
		t.Error("publisher must be called in dry-run mode")
	}
	if f.build.calls != 0 || f.git.calls != 0 {
		t.Error("hooks must not run in dry-run mode")
	}
	if len(f.seen.marked) != 0 {
		t.Error("dry-run must not mark links")
	}
	for _, typ := range f.bus.types {
		if typ == events.ArticlePublished {
			t.Error("dry-run must not announce published articles on the bus")
		}
	}
}

func TestRunHookFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t, Options{})
	f.build.err = errors.New("npm exploded")

	r := f.p.Run(context.Background())
	if err := r.Err(); err != nil {
		t.Fatalf("hook failures must not fail the run: %v", err)
	}
	if f.git.calls != 1 {
		t.Error("git hook should still run after a failed build")
	}
	last := r.Steps[len(r.Steps)-1]
	if !strings.Contains(last.Summary, "failed: build") {
		t.Errorf("unexpected hooks summary %q", last.Summary)
	}
}

func TestRunSkipPublication(t *testing.T) {
	f := newFixture(t, Options{SkipPublication: true})

	r := f.p.Run(context.Background())
	if err := r.Err(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.publisher.calls != 0 || f.announcer.got != nil {
		t.Error("publication and social must be skipped")
	}
	if len(r.Drafts) != 2 {
		t.Errorf("expected drafts to be kept, got %d", len(r.Drafts))
	}
}

func TestRunSkipScrapingReusesSnapshot(t *testing.T) {
	f := newFixture(t, Options{SkipScraping: true})
	f.collector.items = nil
	snapshot := []news.Item{{Title: "قمة في الرباط بالمغرب", Link: "https://b.example/1", Published: fixedNow}}
	if err := collect.WriteSnapshot(filepath.Join(f.p.cfg.LogsDir(), collect.SnapshotFile), snapshot); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	r := f.p.Run(context.Background())
	if err := r.Err(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.Items) != 1 || r.Items[0].Link != "https://b.example/1" {
		t.Errorf("expected the snapshot item, got %+v", r.Items)
	}
}

func TestRunSkipScrapingWithoutSnapshot(t *testing.T) {
	f := newFixture(t, Options{SkipScraping: true})

	r := f.p.Run(context.Background())
	if !errors.Is(r.Err(), os.ErrNotExist) {
		t.Errorf("expected a missing snapshot error, got %v", r.Err())
	}
}

func TestRunSkipGenerationReusesDrafts(t *testing.T) {
	f := newFixture(t, Options{SkipGeneration: true})
	drafts := []news.Draft{{Title: "مقال محفوظ", Slug: "maqal", Category: news.Politics, Content: "x", Summary: "y"}}
	if err := generate.Save(filepath.Join(f.p.cfg.LogsDir(), generate.DraftsFile), drafts); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r := f.p.Run(context.Background())
	if err := r.Err(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.drafter.calls != 0 || f.images.calls != 0 {
		t.Error("generation and images must be skipped")
	}
	if len(r.Published) != 1 || r.Published[0].Slug != "maqal" {
		t.Errorf("expected the saved draft to be published, got %+v", r.Published)
	}
}

func TestDryRunPlan(t *testing.T) {
	f := newFixture(t, Options{})
	r := f.p.DryRun()

	if len(r.Steps) != 5 {
		t.Fatalf("expected 5 planned steps, got %d", len(r.Steps))
	}
	for _, s := range r.Steps {
		if !strings.HasPrefix(s.Summary, "[dry-run]") {
			t.Errorf("step %s: unexpected summary %q", s.Name, s.Summary)
		}
	}
	if !strings.Contains(r.Steps[4].Summary, "build, git") {
		t.Errorf("expected hook names, got %q", r.Steps[4].Summary)
	}
}

func TestResultSummary(t *testing.T) {
	r := &Result{Steps: []StepResult{{Name: "Scrape", Summary: "3 items"}}, Stopped: "no drafts, stopping"}
	if got := r.Summary(); got != "Scrape: 3 items; no drafts, stopping" {
		t.Errorf("Summary = %q", got)
	}
}
