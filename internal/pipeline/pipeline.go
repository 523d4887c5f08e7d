package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/arabpress/internal/collect"
	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/database"
	"github.com/TobiSchelling/arabpress/internal/dedup"
	"github.com/TobiSchelling/arabpress/internal/events"
	"github.com/TobiSchelling/arabpress/internal/fetch"
	"github.com/TobiSchelling/arabpress/internal/generate"
	"github.com/TobiSchelling/arabpress/internal/hooks"
	"github.com/TobiSchelling/arabpress/internal/llm"
	"github.com/TobiSchelling/arabpress/internal/media"
	"github.com/TobiSchelling/arabpress/internal/news"
	"github.com/TobiSchelling/arabpress/internal/publish"
	"github.com/TobiSchelling/arabpress/internal/rank"
	"github.com/TobiSchelling/arabpress/internal/social"
)

const totalSteps = 6

// Options select the steps of a run.
type Options struct {
	SkipScraping    bool
	SkipGeneration  bool
	SkipPublication bool
	SkipSocial      bool
	SkipBuild       bool
	SkipGit         bool
	DryRun          bool
	Preset          string
	Country         string
	TestMode        bool
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID     string
	Steps     []StepResult
	Items     []news.ScoredItem
	Drafts    []news.Draft
	Published []news.Published
	Social    *social.Report
	Hooks     []hooks.Result
	// Stopped is set when the run ended early without an error.
	Stopped string
}

// Err returns the first step error, which is what ended the run.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(s.Name), s.Err)
		}
	}
	return nil
}

// Summary joins the step summaries into one line.
func (r *Result) Summary() string {
	parts := make([]string, 0, len(r.Steps)+1)
	for _, s := range r.Steps {
		parts = append(parts, s.Name+": "+s.Summary)
	}
	if r.Stopped != "" {
		parts = append(parts, r.Stopped)
	}
	return strings.Join(parts, "; ")
}

// Stage seams, satisfied by the real packages and by fakes in tests.
type (
	itemCollector interface {
		Collect(ctx context.Context) *collect.Result
	}
	textFetcher interface {
		EnrichSummaries(ctx context.Context, items []news.Item) *fetch.Result
	}
	drafter interface {
		Generate(ctx context.Context, items []news.ScoredItem) *generate.Result
	}
	imageEnricher interface {
		Enrich(ctx context.Context, drafts []news.Draft) *media.Result
	}
	articlePublisher interface {
		Publish(drafts []news.Draft, opts publish.Options) (*publish.Result, error)
	}
	announcer interface {
		Announce(ctx context.Context, articles []news.Published) *social.Report
	}
)

// Pipeline orchestrates the 6-step news-to-site pipeline.
type Pipeline struct {
	cfg  *config.Config
	db   *database.DB
	opts Options

	seen      dedup.Store
	collector itemCollector
	fetcher   textFetcher
	drafter   drafter
	images    imageEnricher
	publisher articlePublisher
	announcer announcer
	hooks     []hooks.Hook
	bus       events.Publisher

	now func() time.Time
}

// New wires every stage from cfg. db may be nil for runs that keep no history.
func New(ctx context.Context, cfg *config.Config, db *database.DB, opts Options) (*Pipeline, error) {
	if opts.TestMode {
		cfg = cfg.TestMode()
	}

	seen, err := dedup.New(ctx, cfg, db)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		db:        db,
		opts:      opts,
		seen:      seen,
		collector: collect.NewCollector(cfg, seen),
		publisher: publish.NewPublisher(db, cfg.DataFilePath()),
		bus:       events.FromConfig(cfg.Events),
		now:       time.Now,
	}

	if cfg.Sources.FetchFullText {
		p.fetcher = fetch.NewContentFetcher(15 * time.Second)
	}

	if !opts.SkipGeneration {
		provider, err := llm.CreateProvider(cfg.Generation)
		if err != nil {
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		gen, err := generate.NewGenerator(provider, cfg.Generation, generate.Options{
			Preset:  opts.Preset,
			Country: opts.Country,
			Delay:   cfg.Automation.GenerationDelay,
		})
		if err != nil {
			return nil, err
		}
		p.drafter = gen
	}

	if cfg.Automation.ImageGeneration {
		p.images = media.NewEnricher(os.Getenv(cfg.Media.PexelsAPIKeyEnv), cfg.ImageDir())
	}

	ann := social.NewAnnouncer(social.Platforms(cfg.Social), cfg.Site, cfg.Automation.SocialDelay).
		WithDryRun(opts.DryRun)
	if db != nil {
		ann = ann.WithRecorder(db)
	}
	p.announcer = ann

	for _, h := range hooks.FromConfig(cfg) {
		if (h.Name() == "build" && opts.SkipBuild) || (h.Name() == "git" && opts.SkipGit) {
			continue
		}
		p.hooks = append(p.hooks, h)
	}

	return p, nil
}

// Close releases the event bus and the duplicate store.
func (p *Pipeline) Close() {
	if p.bus != nil {
		p.bus.Close()
	}
	if c, ok := p.seen.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("Closing duplicate store: %v", err)
		}
	}
}

// Run executes the pipeline. A step error ends the run; it is recorded in the
// step and returned by Result.Err.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{RunID: uuid.NewString()}
	start := p.now()

	log.Printf("Pipeline run %s started (dry-run: %v)", r.RunID, p.opts.DryRun)
	if p.db != nil {
		if err := p.db.StartRun(r.RunID, p.opts.DryRun); err != nil {
			log.Printf("Failed to record run start: %v", err)
		}
	}
	p.emit(ctx, events.New(events.RunStarted, r.RunID, map[string]any{"dryRun": p.opts.DryRun}))

	p.steps(ctx, r)

	err := r.Err()
	if p.db != nil {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		if ferr := p.db.FinishRun(r.RunID, err == nil, r.Summary(), errMsg); ferr != nil {
			log.Printf("Failed to record run end: %v", ferr)
		}
	}
	p.emit(ctx, events.New(events.RunFinished, r.RunID, map[string]any{
		"succeeded": err == nil,
		"published": len(r.Published),
	}))

	if err != nil {
		log.Printf("Pipeline run %s failed after %s: %v", r.RunID, p.now().Sub(start).Round(time.Second), err)
	} else {
		log.Printf("Pipeline run %s finished in %s", r.RunID, p.now().Sub(start).Round(time.Second))
	}
	return r
}

func (p *Pipeline) steps(ctx context.Context, r *Result) {
	// Step 1: Scrape
	if !p.opts.SkipGeneration {
		step := p.runScrape(ctx, r)
		r.Steps = append(r.Steps, step)
		if step.Err != nil {
			return
		}
		if len(r.Items) == 0 {
			r.Stopped = "no relevant news, stopping"
			log.Println("No relevant news found, stopping")
			return
		}
	}

	// Step 2: Generate
	step := p.runGenerate(ctx, r)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return
	}
	if len(r.Drafts) == 0 {
		r.Stopped = "no drafts, stopping"
		log.Println("No drafts generated, stopping")
		return
	}

	// Step 3: Images
	if p.images != nil && !p.opts.SkipGeneration {
		r.Steps = append(r.Steps, p.runImages(ctx, r))
	}

	// Step 4: Publish
	if p.opts.SkipPublication {
		log.Printf("Step 4/%d: Publication (skipped)", totalSteps)
		return
	}
	step = p.runPublish(ctx, r)
	r.Steps = append(r.Steps, step)
	if step.Err != nil || len(r.Published) == 0 {
		return
	}

	// Step 5: Social
	if p.opts.SkipSocial {
		log.Printf("Step 5/%d: Social announcements (skipped)", totalSteps)
	} else {
		r.Steps = append(r.Steps, p.runSocial(ctx, r))
	}

	// Step 6: Hooks
	if p.opts.DryRun {
		log.Printf("Step 6/%d: Build and deploy (dry-run, skipped)", totalSteps)
		return
	}
	r.Steps = append(r.Steps, p.runHooks(ctx, r))
}

func (p *Pipeline) runScrape(ctx context.Context, r *Result) StepResult {
	log.Printf("Step 1/%d: Collecting news...", totalSteps)

	var items []news.Item
	if p.opts.SkipScraping {
		path := filepath.Join(p.cfg.LogsDir(), collect.SnapshotFile)
		loaded, err := collect.LoadSnapshot(path)
		if err != nil {
			return StepResult{Name: "Scrape", Err: err}
		}
		log.Printf("Reusing %d items from %s", len(loaded), path)
		items = loaded
	} else {
		items = p.collector.Collect(ctx).Items
	}

	if p.fetcher != nil && len(items) > 0 {
		fr := p.fetcher.EnrichSummaries(ctx, items)
		log.Printf("Full text: %d fetched, %d failed", fr.Fetched, fr.Failed)
	}

	relevant := rank.Filter(items)
	r.Items = rank.Rank(relevant, p.now(), p.cfg.Automation.DailyLimit)

	return StepResult{
		Name:    "Scrape",
		Summary: fmt.Sprintf("%d items, %d relevant, %d selected", len(items), len(relevant), len(r.Items)),
	}
}

func (p *Pipeline) runGenerate(ctx context.Context, r *Result) StepResult {
	log.Printf("Step 2/%d: Generating drafts...", totalSteps)
	path := filepath.Join(p.cfg.LogsDir(), generate.DraftsFile)

	if p.opts.SkipGeneration {
		drafts, err := generate.Load(path)
		if err != nil {
			return StepResult{Name: "Generate", Err: err}
		}
		r.Drafts = drafts
		return StepResult{Name: "Generate", Summary: fmt.Sprintf("reused %d drafts", len(drafts))}
	}

	gr := p.drafter.Generate(ctx, r.Items)
	r.Drafts = gr.Drafts
	for _, e := range gr.Errors {
		log.Printf("No draft for %q: %v", e.Item.Title, e.Err)
	}

	if len(gr.Drafts) > 0 {
		if err := generate.Save(path, gr.Drafts); err != nil {
			return StepResult{Name: "Generate", Err: err}
		}
		if !p.opts.DryRun {
			for _, d := range gr.Drafts {
				if err := p.seen.Mark(ctx, d.SourceURL, d.Title); err != nil {
					log.Printf("Failed to mark %s as drafted: %v", d.SourceURL, err)
				}
			}
		}
	}

	return StepResult{
		Name:    "Generate",
		Summary: fmt.Sprintf("%d drafts, %d failed", len(gr.Drafts), len(gr.Errors)),
	}
}

func (p *Pipeline) runImages(ctx context.Context, r *Result) StepResult {
	log.Printf("Step 3/%d: Attaching images...", totalSteps)
	mr := p.images.Enrich(ctx, r.Drafts)

	// The drafts file is what review reads, so it must carry the image paths.
	if err := generate.Save(filepath.Join(p.cfg.LogsDir(), generate.DraftsFile), r.Drafts); err != nil {
		log.Printf("Failed to update drafts file: %v", err)
	}
	return StepResult{
		Name:    "Images",
		Summary: fmt.Sprintf("%d downloaded, %d fallbacks, %d failed", mr.Downloaded, mr.Fallbacks, mr.Failed),
	}
}

func (p *Pipeline) runPublish(ctx context.Context, r *Result) StepResult {
	log.Printf("Step 4/%d: Publishing %d articles...", totalSteps, len(r.Drafts))
	pr, err := p.publisher.Publish(r.Drafts, publish.Options{DryRun: p.opts.DryRun, RunID: r.RunID})
	if err != nil {
		return StepResult{Name: "Publish", Err: err}
	}
	r.Published = pr.Articles
	log.Print(publish.Report(pr))

	if pr.DryRun {
		return StepResult{Name: "Publish", Summary: fmt.Sprintf("[dry-run] would publish ids %v", pr.IDs())}
	}
	for _, a := range pr.Articles {
		p.emit(ctx, events.New(events.ArticlePublished, r.RunID, map[string]any{
			"id":       a.ID,
			"slug":     a.Slug,
			"title":    a.Title,
			"category": a.Category,
			"url":      p.cfg.ArticleURL(a.Slug),
		}))
	}
	return StepResult{Name: "Publish", Summary: fmt.Sprintf("published ids %v", pr.IDs())}
}

func (p *Pipeline) runSocial(ctx context.Context, r *Result) StepResult {
	log.Printf("Step 5/%d: Announcing on social networks...", totalSteps)
	rep := p.announcer.Announce(ctx, r.Published)
	r.Social = rep
	return StepResult{
		Name:    "Social",
		Summary: fmt.Sprintf("%d/%d posts", rep.Successes(), rep.Total()),
	}
}

func (p *Pipeline) runHooks(ctx context.Context, r *Result) StepResult {
	log.Printf("Step 6/%d: Build and deploy...", totalSteps)
	r.Hooks = hooks.RunAll(ctx, p.hooks, r.Published)

	var failed []string
	for _, h := range r.Hooks {
		if h.Err != nil {
			failed = append(failed, h.Name)
		}
	}
	summary := fmt.Sprintf("%d hooks run", len(r.Hooks))
	if len(failed) > 0 {
		summary += fmt.Sprintf(", failed: %s", strings.Join(failed, ", "))
	}
	return StepResult{Name: "Hooks", Summary: summary}
}

func (p *Pipeline) emit(ctx context.Context, e events.Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, e); err != nil {
		log.Printf("Failed to publish %s event: %v", e.Type, err)
	}
}

// DryRun shows what a run would start from without calling any service.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}
	logs := p.cfg.LogsDir()

	items, err := collect.LoadSnapshot(filepath.Join(logs, collect.SnapshotFile))
	r.Steps = append(r.Steps, planStep("Scrape", err, fmt.Sprintf(
		"[dry-run] %d feeds configured, %d items in the last snapshot", len(p.cfg.Sources.Feeds), len(items))))

	drafts, err := generate.Load(filepath.Join(logs, generate.DraftsFile))
	r.Steps = append(r.Steps, planStep("Generate", err, fmt.Sprintf(
		"[dry-run] up to %d drafts with %s, %d in the last drafts file", p.cfg.Automation.DailyLimit, p.cfg.Generation.Model, len(drafts))))

	r.Steps = append(r.Steps, StepResult{
		Name:    "Publish",
		Summary: fmt.Sprintf("[dry-run] data file %s", p.cfg.DataFilePath()),
	})

	platforms := social.Platforms(p.cfg.Social)
	names := make([]string, len(platforms))
	for i, pl := range platforms {
		names[i] = pl.Name()
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Social",
		Summary: fmt.Sprintf("[dry-run] platforms: %s", orNone(names)),
	})

	hookNames := make([]string, len(p.hooks))
	for i, h := range p.hooks {
		hookNames[i] = h.Name()
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Hooks",
		Summary: fmt.Sprintf("[dry-run] hooks: %s", orNone(hookNames)),
	})

	return r
}

func planStep(name string, err error, summary string) StepResult {
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("%s: %v", name, err)
	}
	return StepResult{Name: name, Summary: summary}
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
