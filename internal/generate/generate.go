// Package generate turns ranked news items into full Arabic article drafts.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/llm"
	"github.com/TobiSchelling/arabpress/internal/news"
	"github.com/TobiSchelling/arabpress/internal/quality"
)

// DraftsFile is the review file the generator writes under the logs directory.
const DraftsFile = "generated-articles.json"

// ErrGeneration marks a draft that could not be produced for an item.
var ErrGeneration = errors.New("generation failed")

const (
	fullWordTarget = 1500
	testWordTarget = 600
)

// Options tune a single generation run.
type Options struct {
	// Preset names an entry of generation.presets; empty for none.
	Preset string
	// Country is the target country for presets that use one.
	Country string
	// Delay is the pause between two model calls.
	Delay time.Duration
}

// ItemError records why one item produced no draft.
type ItemError struct {
	Item news.ScoredItem `json:"item"`
	Err  error           `json:"-"`
}

// Result holds the results of a generation run.
type Result struct {
	Drafts []news.Draft
	Errors []ItemError
}

// Generator writes drafts one item at a time.
type Generator struct {
	provider llm.Provider
	cfg      config.Generation
	preset   *config.Preset
	country  string
	delay    time.Duration
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewGenerator creates a generator. It fails when opts names a preset the
// configuration does not define.
func NewGenerator(provider llm.Provider, cfg config.Generation, opts Options) (*Generator, error) {
	g := &Generator{
		provider: provider,
		cfg:      cfg,
		country:  opts.Country,
		delay:    opts.Delay,
		now:      time.Now,
		sleep:    sleepContext,
	}
	if opts.Preset != "" {
		p, ok := cfg.Presets[opts.Preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", opts.Preset)
		}
		g.preset = &p
		if g.country == "" {
			g.country = p.DefaultCountry
		}
	}
	return g, nil
}

// Generate drafts an article for each item in order. A failing item is
// recorded in Result.Errors and the run moves on to the next one.
func (g *Generator) Generate(ctx context.Context, items []news.ScoredItem) *Result {
	r := &Result{}
	log.Printf("Generating %d articles with %s", len(items), g.cfg.Model)

	for i, item := range items {
		log.Printf("[%d/%d] Generating: %s", i+1, len(items), item.Title)

		d, err := g.GenerateOne(ctx, item)
		if err != nil {
			log.Printf("Generation failed for %q: %v", item.Title, err)
			r.Errors = append(r.Errors, ItemError{Item: item, Err: err})
		} else {
			r.Drafts = append(r.Drafts, d)
			log.Printf("Generated %q (quality %d/100)", d.Title, d.QualityScore)
		}

		if i < len(items)-1 && g.delay > 0 {
			if err := g.sleep(ctx, g.delay); err != nil {
				log.Printf("Generation interrupted: %v", err)
				break
			}
		}
	}

	log.Printf("Generation complete: %d drafted, %d failed", len(r.Drafts), len(r.Errors))
	return r
}

// GenerateOne asks the model for one draft and fills in the derived fields.
func (g *Generator) GenerateOne(ctx context.Context, item news.ScoredItem) (news.Draft, error) {
	prompt := g.BuildPrompt(item)

	text, err := g.provider.Generate(ctx, prompt, g.cfg.MaxTokens)
	if err != nil {
		return news.Draft{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	var p payload
	if err := llm.ExtractJSON(text, &p); err != nil {
		return news.Draft{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if err := p.validate(); err != nil {
		return news.Draft{}, err
	}

	now := g.now()
	d := p.draft()
	if d.Author == "" {
		d.Author = g.cfg.Author
	}
	d.Slug = news.Slug(d.Title)
	d.Date = now.Format("2006-01-02")
	d.SourceURL = item.Link
	d.SourceName = item.Source
	d.GeneratedAt = now
	quality.Apply(&d)
	return d, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// payload is the object the model is asked to return.
type payload struct {
	Title            flexString `json:"title"`
	Summary          flexString `json:"summary"`
	Category         flexString `json:"category"`
	Content          flexString `json:"content"`
	MetaDescription  flexString `json:"metaDescription"`
	Keywords         flexString `json:"keywords"`
	Author           flexString `json:"author"`
	ImageSearchTerms flexString `json:"imageSearchTerms"`
	ImageAlt         flexString `json:"imageAlt"`
}

func (p payload) validate() error {
	required := []struct {
		name  string
		value flexString
	}{
		{"title", p.Title},
		{"summary", p.Summary},
		{"category", p.Category},
		{"content", p.Content},
	}
	for _, f := range required {
		if strings.TrimSpace(string(f.value)) == "" {
			return fmt.Errorf("%w: missing required field %s", ErrGeneration, f.name)
		}
	}
	return nil
}

func (p payload) draft() news.Draft {
	category := strings.TrimSpace(string(p.Category))
	if !news.IsCategory(category) {
		log.Printf("Unknown category %q, using %s", category, news.DefaultCategory)
	}
	return news.Draft{
		Title:            strings.TrimSpace(string(p.Title)),
		Summary:          strings.TrimSpace(string(p.Summary)),
		Category:         news.NormalizeCategory(category),
		Content:          strings.TrimSpace(string(p.Content)),
		MetaDescription:  strings.TrimSpace(string(p.MetaDescription)),
		Keywords:         strings.TrimSpace(string(p.Keywords)),
		Author:           strings.TrimSpace(string(p.Author)),
		ImageSearchTerms: strings.TrimSpace(string(p.ImageSearchTerms)),
		ImageAlt:         strings.TrimSpace(string(p.ImageAlt)),
	}
}

// flexString accepts a JSON string, a list of strings (joined with commas)
// or a scalar.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = flexString(strings.Join(list, ", "))
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*f = ""
		return nil
	}
	*f = flexString(fmt.Sprint(v))
	return nil
}

// Save writes drafts to path as indented JSON.
func Save(path string, drafts []news.Draft) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating drafts directory: %w", err)
	}
	if drafts == nil {
		drafts = []news.Draft{}
	}
	data, err := json.MarshalIndent(drafts, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding drafts: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing drafts: %w", err)
	}
	log.Printf("Drafts saved to %s", path)
	return nil
}

// Load reads drafts written by Save.
func Load(path string) ([]news.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading drafts: %w", err)
	}
	var drafts []news.Draft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("decoding drafts: %w", err)
	}
	return drafts, nil
}
