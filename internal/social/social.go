// Package social announces published articles on the configured networks.
package social

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/news"
)

// PostResult is the outcome of one platform call.
type PostResult struct {
	Success  bool   `json:"success"`
	Platform string `json:"platform"`
	PostID   string `json:"postId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ArticleResult groups the platform results for one article.
type ArticleResult struct {
	ArticleID int          `json:"articleId"`
	Title     string       `json:"title"`
	Results   []PostResult `json:"results"`
}

// Report is the outcome of an announcement run.
type Report struct {
	Articles []ArticleResult
	DryRun   bool
	At       time.Time
}

// Successes counts successful platform calls.
func (r *Report) Successes() int {
	n := 0
	for _, a := range r.Articles {
		for _, res := range a.Results {
			if res.Success {
				n++
			}
		}
	}
	return n
}

// Total counts all platform calls.
func (r *Report) Total() int {
	n := 0
	for _, a := range r.Articles {
		n += len(a.Results)
	}
	return n
}

// String renders the report as plain text.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString("SOCIAL MEDIA REPORT\n")
	b.WriteString(strings.Repeat("=", 56) + "\n")
	fmt.Fprintf(&b, "Date: %s\n", r.At.Format("2006-01-02 15:04:05"))
	if r.DryRun {
		b.WriteString("Mode: dry run\n")
	}
	for i, a := range r.Articles {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, a.Title)
		b.WriteString("   " + strings.Repeat("-", 50) + "\n")
		for _, res := range a.Results {
			if res.Success {
				fmt.Fprintf(&b, "   ✓ %s: SUCCESS", strings.ToUpper(res.Platform))
				if res.PostID != "" {
					fmt.Fprintf(&b, " (%s)", res.PostID)
				}
				b.WriteString("\n")
			} else {
				fmt.Fprintf(&b, "   ✗ %s: FAILED\n      Error: %s\n", strings.ToUpper(res.Platform), res.Error)
			}
		}
	}
	fmt.Fprintf(&b, "\n%d/%d posts succeeded\n", r.Successes(), r.Total())
	b.WriteString(strings.Repeat("=", 56) + "\n")
	return b.String()
}

// Recorder stores successful posts.
type Recorder interface {
	InsertSocialPost(articleID int64, platform, postID string) (int64, error)
}

// Announcer posts each article to every platform.
type Announcer struct {
	platforms []Platform
	site      config.Site
	delay     time.Duration
	dryRun    bool
	recorder  Recorder
	sleep     func(context.Context, time.Duration) error
	now       func() time.Time
}

// NewAnnouncer creates an announcer for the given platforms.
func NewAnnouncer(platforms []Platform, site config.Site, delay time.Duration) *Announcer {
	return &Announcer{
		platforms: platforms,
		site:      site,
		delay:     delay,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// WithRecorder stores successful posts through r.
func (a *Announcer) WithRecorder(r Recorder) *Announcer {
	a.recorder = r
	return a
}

// WithDryRun makes the announcer log the messages instead of posting them.
func (a *Announcer) WithDryRun(dryRun bool) *Announcer {
	a.dryRun = dryRun
	return a
}

// Platforms builds the enabled platforms from configuration, reading the
// tokens from the environment.
func Platforms(cfg config.Social) []Platform {
	var out []Platform
	if cfg.Twitter.Enabled {
		out = append(out, NewTwitter(os.Getenv(cfg.Twitter.BearerTokenEnv)))
	}
	if cfg.Facebook.Enabled {
		out = append(out, NewFacebook(cfg.Facebook.PageID, os.Getenv(cfg.Facebook.AccessTokenEnv)))
	}
	if cfg.LinkedIn.Enabled {
		out = append(out, NewLinkedIn(os.Getenv(cfg.LinkedIn.AccessTokenEnv)))
	}
	return out
}

// Announce posts every article on every platform. A failed call is recorded
// in the report and never stops the others.
func (a *Announcer) Announce(ctx context.Context, articles []news.Published) *Report {
	r := &Report{DryRun: a.dryRun, At: a.now()}
	if len(a.platforms) == 0 {
		log.Println("No social platform enabled")
		return r
	}
	log.Printf("Announcing %d articles on %d platforms", len(articles), len(a.platforms))

	for i, article := range articles {
		link := config.ArticleURL(a.site.BaseURL, article.Slug)
		ar := ArticleResult{ArticleID: article.ID, Title: article.Title}

		for _, p := range a.platforms {
			msg := Message{Text: p.Format(article, link), Link: link, Title: article.Title}
			ar.Results = append(ar.Results, a.post(ctx, p, article, msg))
		}
		r.Articles = append(r.Articles, ar)

		if i < len(articles)-1 && a.delay > 0 && !a.dryRun {
			if err := a.sleep(ctx, a.delay); err != nil {
				log.Printf("Announcements interrupted: %v", err)
				break
			}
		}
	}

	log.Printf("Social posting complete: %d/%d succeeded", r.Successes(), r.Total())
	return r
}

func (a *Announcer) post(ctx context.Context, p Platform, article news.Published, msg Message) PostResult {
	res := PostResult{Platform: p.Name()}
	if a.dryRun {
		log.Printf("[dry-run] %s post for %q:\n%s", p.Name(), article.Title, msg.Text)
		res.Success = true
		return res
	}

	id, err := p.Post(ctx, msg)
	if err != nil {
		log.Printf("%s: post failed for %q: %v", p.Name(), article.Title, err)
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.PostID = id
	log.Printf("%s: posted %q (id %s)", p.Name(), article.Title, id)

	if a.recorder != nil {
		if _, err := a.recorder.InsertSocialPost(int64(article.ID), p.Name(), id); err != nil {
			log.Printf("Failed to record %s post for article %d: %v", p.Name(), article.ID, err)
		}
	}
	return res
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
