// Package publish assigns permanent ids to approved drafts, appends them to
// the article store and renders them into the site's data file.
package publish

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/TobiSchelling/arabpress/internal/database"
	"github.com/TobiSchelling/arabpress/internal/news"
)

// ErrIntegrity is returned when the data file does not hold the expected ids
// after a write. The backup file is left in place for manual recovery.
var ErrIntegrity = errors.New("data file integrity check failed")

// BackupSuffix is appended to the data file path for the pre-write copy.
const BackupSuffix = ".backup"

// Options tune a single publish call.
type Options struct {
	DryRun bool
	RunID  string
}

// Result describes a publish call.
type Result struct {
	Articles   []news.Published
	LastID     int
	BackupPath string
	DryRun     bool
	At         time.Time
}

// IDs returns the ids given to the published articles, in order.
func (r *Result) IDs() []int {
	ids := make([]int, len(r.Articles))
	for i, a := range r.Articles {
		ids[i] = a.ID
	}
	return ids
}

// Publisher appends drafts to the store and the data file. db may be nil,
// in which case only the data file is used.
type Publisher struct {
	db       *database.DB
	dataPath string
	now      func() time.Time
}

// NewPublisher creates a publisher for the data file at dataPath.
func NewPublisher(db *database.DB, dataPath string) *Publisher {
	return &Publisher{db: db, dataPath: dataPath, now: time.Now}
}

// Publish gives each draft the id lastID + its 1-based position, where lastID
// is the highest id in either the data file or the store. The data file is
// backed up before it is changed and re-read afterwards to verify the new
// highest id.
func (p *Publisher) Publish(drafts []news.Draft, opts Options) (*Result, error) {
	r := &Result{DryRun: opts.DryRun, At: p.now()}
	if len(drafts) == 0 {
		log.Println("Nothing to publish")
		return r, nil
	}
	log.Printf("Publishing %d articles to %s", len(drafts), p.dataPath)

	data, err := os.ReadFile(p.dataPath)
	if err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}
	text := string(data)

	lastID := MaxID(text)
	if p.db != nil {
		stored, err := p.db.MaxPublishedID()
		if err != nil {
			return nil, fmt.Errorf("reading store max id: %w", err)
		}
		if int(stored) > lastID {
			log.Printf("Store is ahead of the data file (%d > %d)", stored, lastID)
			lastID = int(stored)
		}
	}
	r.LastID = lastID
	log.Printf("Last id: %d", lastID)

	for i, d := range drafts {
		r.Articles = append(r.Articles, news.Published{ID: lastID + i + 1, Draft: d})
	}

	records := make([]string, len(r.Articles))
	for i, a := range r.Articles {
		records[i] = FormatRecord(a)
	}
	updated, err := Splice(text, records)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		for _, a := range r.Articles {
			log.Printf("[dry-run] would publish id %d: %s", a.ID, a.Title)
		}
		return r, nil
	}

	r.BackupPath = p.dataPath + BackupSuffix
	if err := os.WriteFile(r.BackupPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	log.Printf("Backup created: %s", r.BackupPath)

	if p.db != nil {
		rows := make([]database.PublishedArticle, len(r.Articles))
		for i, a := range r.Articles {
			rows[i] = ToRow(a, opts.RunID)
		}
		if err := p.db.InsertPublished(rows); err != nil {
			return nil, fmt.Errorf("storing articles: %w", err)
		}
	}

	if err := os.WriteFile(p.dataPath, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("writing data file: %w", err)
	}

	check, err := os.ReadFile(p.dataPath)
	if err != nil {
		return nil, fmt.Errorf("re-reading data file: %w", err)
	}
	want := lastID + len(drafts)
	if got := MaxID(string(check)); got != want {
		return r, fmt.Errorf("%w: max id is %d, expected %d (backup at %s)", ErrIntegrity, got, want, r.BackupPath)
	}

	log.Printf("Published %d articles (ids %d-%d)", len(drafts), lastID+1, want)
	return r, nil
}

// Import adds the records of an existing data file to the store. Records
// whose id is already stored are skipped. It returns how many were added.
func (p *Publisher) Import(path string) (int, error) {
	if p.db == nil {
		return 0, fmt.Errorf("import needs a database")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading data file: %w", err)
	}
	records, err := ParseRecords(string(data))
	if err != nil {
		return 0, fmt.Errorf("parsing data file: %w", err)
	}

	var rows []database.PublishedArticle
	seen := make(map[int]bool)
	for _, rec := range records {
		if seen[rec.ID] {
			log.Printf("Duplicate id %d in %s, keeping the first", rec.ID, path)
			continue
		}
		seen[rec.ID] = true
		existing, err := p.db.GetPublished(int64(rec.ID))
		if err != nil {
			return 0, err
		}
		if existing != nil {
			continue
		}
		rows = append(rows, ToRow(rec, ""))
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := p.db.InsertPublished(rows); err != nil {
		return 0, fmt.Errorf("storing imported articles: %w", err)
	}
	log.Printf("Imported %d of %d records from %s", len(rows), len(records), path)
	return len(rows), nil
}

// Report renders a plain-text summary of a publish call.
func Report(r *Result) string {
	var b strings.Builder
	b.WriteString("PUBLICATION REPORT\n")
	b.WriteString(strings.Repeat("=", 56) + "\n\n")
	fmt.Fprintf(&b, "Date: %s\n", r.At.Format("2006-01-02 15:04:05"))
	status := "SUCCESS"
	if r.DryRun {
		status = "DRY RUN (nothing written)"
	}
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Articles published: %d\n", len(r.Articles))

	if len(r.Articles) > 0 {
		b.WriteString("\nArticles added:\n")
		for i, a := range r.Articles {
			fmt.Fprintf(&b, "\n  %d. ID %d\n", i+1, a.ID)
			fmt.Fprintf(&b, "     Title: %s\n", a.Title)
			fmt.Fprintf(&b, "     Slug: %s\n", a.Slug)
			fmt.Fprintf(&b, "     Category: %s\n", a.Category)
			fmt.Fprintf(&b, "     Date: %s\n", a.Date)
		}
	}
	if r.BackupPath != "" {
		fmt.Fprintf(&b, "\nBackup: %s\n", r.BackupPath)
	}
	b.WriteString("\n" + strings.Repeat("=", 56) + "\n")
	return b.String()
}

// ToRow converts a published article into its store row.
func ToRow(p news.Published, runID string) database.PublishedArticle {
	meta := p.MetaDescription
	if meta == "" {
		meta = p.Summary
	}
	return database.PublishedArticle{
		ID:              int64(p.ID),
		Slug:            p.Slug,
		Title:           p.Title,
		Summary:         p.Summary,
		Category:        p.Category,
		Date:            p.Date,
		MetaDescription: optional(meta),
		Keywords:        optional(p.Keywords),
		Author:          optional(p.Author),
		Image:           optional(p.Image),
		ImageAlt:        optional(p.ImageAlt),
		Content:         p.Content,
		SourceURL:       optional(p.SourceURL),
		SourceName:      optional(p.SourceName),
		QualityScore:    p.QualityScore,
		RunID:           optional(runID),
	}
}

// FromRow converts a store row back into a published article.
func FromRow(a database.PublishedArticle) news.Published {
	return news.Published{
		ID: int(a.ID),
		Draft: news.Draft{
			Slug:            a.Slug,
			Title:           a.Title,
			Summary:         a.Summary,
			Category:        a.Category,
			Date:            a.Date,
			MetaDescription: deref(a.MetaDescription),
			Keywords:        deref(a.Keywords),
			Author:          deref(a.Author),
			Image:           deref(a.Image),
			ImageAlt:        deref(a.ImageAlt),
			Content:         a.Content,
			SourceURL:       deref(a.SourceURL),
			SourceName:      deref(a.SourceName),
			QualityScore:    a.QualityScore,
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
