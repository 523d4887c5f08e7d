// Package review is the interactive gate between generated drafts and the
// publisher.
package review

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TobiSchelling/arabpress/internal/news"
	"github.com/TobiSchelling/arabpress/internal/quality"
)

const (
	ApprovedFile = "approved-articles.json"
	RejectedFile = "rejected-articles.json"
)

// Recorder stores review decisions for audit.
type Recorder interface {
	InsertReviewDecision(slug, title, verdict, reason string) error
}

// Result partitions the reviewed drafts.
type Result struct {
	Approved []news.Draft
	Rejected []news.Rejected
	// Skipped counts drafts never shown because the editor stopped early.
	Skipped int
}

// Gate asks an editor to approve each draft in turn.
type Gate struct {
	in       *bufio.Reader
	out      io.Writer
	st       styles
	recorder Recorder
	now      func() time.Time
}

// NewGate creates a gate reading answers from in and writing to out.
func NewGate(in io.Reader, out io.Writer) *Gate {
	return &Gate{
		in:  bufio.NewReader(in),
		out: out,
		st:  newStyles(out),
		now: time.Now,
	}
}

// WithRecorder makes the gate store every decision through r.
func (g *Gate) WithRecorder(r Recorder) *Gate {
	g.recorder = r
	return g
}

// ParseAnswer maps an editor's answer to a verdict.
func ParseAnswer(answer string) news.Verdict {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "o", "oui", "y", "yes":
		return news.Approve
	case "s", "skip":
		return news.Skip
	default:
		return news.Reject
	}
}

// Review shows each draft in order and records the editor's verdict. A skip
// answer, or the end of input, stops the review and leaves the remaining
// drafts undecided.
func (g *Gate) Review(drafts []news.Draft) (*Result, error) {
	r := &Result{}
	fmt.Fprintln(g.out, g.st.header.Render("Article review"))

	if len(drafts) == 0 {
		fmt.Fprintln(g.out, "No articles to review.")
		return r, nil
	}
	fmt.Fprintf(g.out, "%d article(s) to review\n", len(drafts))

	for i, d := range drafts {
		g.display(d, i, len(drafts))

		fmt.Fprint(g.out, "\nApprove this article for publication? (y/n/s) [y=yes, n=no, s=skip the rest]: ")
		answer, err := g.in.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return r, fmt.Errorf("reading answer: %w", err)
			}
			if answer == "" {
				fmt.Fprintln(g.out, "\nInput closed, stopping review.")
				r.Skipped = len(drafts) - i
				break
			}
		}

		verdict := ParseAnswer(answer)
		if verdict == news.Skip {
			fmt.Fprintln(g.out, g.st.dim.Render("Remaining articles skipped."))
			r.Skipped = len(drafts) - i
			break
		}

		reason := ""
		if verdict == news.Approve {
			fmt.Fprintln(g.out, g.st.success.Render("Approved"))
			r.Approved = append(r.Approved, d)
		} else {
			reason = news.RejectedManually
			fmt.Fprintln(g.out, g.st.reject.Render("Rejected"))
			r.Rejected = append(r.Rejected, news.Rejected{Draft: d, RejectionReason: reason, RejectedAt: g.now()})
		}

		if g.recorder != nil {
			if err := g.recorder.InsertReviewDecision(d.Slug, d.Title, string(verdict), reason); err != nil {
				log.Printf("Failed to record review decision for %s: %v", d.Slug, err)
			}
		}
	}

	fmt.Fprintf(g.out, "\n%s approved %d, rejected %d, reviewed %d of %d\n",
		g.st.label.Render("Summary:"), len(r.Approved), len(r.Rejected), len(r.Approved)+len(r.Rejected), len(drafts))
	return r, nil
}

func (g *Gate) display(d news.Draft, i, total int) {
	fmt.Fprintf(g.out, "\n%s\n", g.st.dim.Render(fmt.Sprintf("Article %d/%d", i+1, total)))
	fmt.Fprintln(g.out, g.st.title.Render(d.Title))

	field := func(label, value string) {
		if value == "" {
			value = "N/A"
		}
		fmt.Fprintf(g.out, "%s %s\n", g.st.label.Render(label+":"), value)
	}
	field("Category", d.Category)
	field("Slug", d.Slug)
	field("Date", d.Date)
	field("Author", d.Author)
	field("Source", d.SourceURL)
	field("Image", d.Image)
	fmt.Fprintf(g.out, "\n%s\n%s\n", g.st.label.Render("Summary:"), d.Summary)
	fmt.Fprintf(g.out, "\n%s\n%s\n", g.st.label.Render("Meta description:"), d.MetaDescription)
	field("Keywords", d.Keywords)
	fmt.Fprintf(g.out, "%s %d characters\n", g.st.label.Render("Content length:"), utf8.RuneCountInString(d.Content))
	fmt.Fprintf(g.out, "\n%s\n", preview(d.Content, 500))

	rep := quality.Score(d)
	fmt.Fprintf(g.out, "\n%s %s\n", g.st.label.Render("Quality:"), g.st.score.Render(fmt.Sprintf("%d/100", rep.Score)))
	if len(rep.Issues) > 0 {
		fmt.Fprintln(g.out, g.st.issue.Render("Problems:"))
		for _, issue := range rep.Issues {
			fmt.Fprintln(g.out, "  - "+issue)
		}
	}
	if len(rep.Warnings) > 0 {
		fmt.Fprintln(g.out, g.st.warning.Render("Warnings:"))
		for _, w := range rep.Warnings {
			fmt.Fprintln(g.out, "  - "+w)
		}
	}
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// SaveResult writes the approved set, always, and the rejected set when it
// is not empty.
func SaveResult(dir string, r *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating review directory: %w", err)
	}
	approved := r.Approved
	if approved == nil {
		approved = []news.Draft{}
	}
	if err := writeJSON(filepath.Join(dir, ApprovedFile), approved); err != nil {
		return err
	}
	if len(r.Rejected) > 0 {
		if err := writeJSON(filepath.Join(dir, RejectedFile), r.Rejected); err != nil {
			return err
		}
	}
	return nil
}

// LoadApproved reads the approved set written by SaveResult.
func LoadApproved(dir string) ([]news.Draft, error) {
	data, err := os.ReadFile(filepath.Join(dir, ApprovedFile))
	if err != nil {
		return nil, fmt.Errorf("reading approved articles: %w", err)
	}
	var drafts []news.Draft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("decoding approved articles: %w", err)
	}
	return drafts, nil
}

// ClearApproved removes the approved set once it has been published.
func ClearApproved(dir string) error {
	err := os.Remove(filepath.Join(dir, ApprovedFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
