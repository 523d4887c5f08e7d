// Package media finds and downloads a cover photo for each draft.
package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/arabpress/internal/news"
)

const (
	pexelsSearchURL = "https://api.pexels.com/v1/search"
	downloadTimeout = 10 * time.Second
)

var categoryKeywords = map[string][]string{
	news.Politics:    {"arabic politics", "middle east", "people", "government"},
	news.Economy:     {"economy", "business", "financial", "money", "trade"},
	news.Sports:      {"sports", "football", "soccer", "athletes", "competition"},
	news.Technology:  {"technology", "computer", "digital", "tech", "innovation"},
	news.Culture:     {"culture", "art", "arabic culture", "heritage", "tradition"},
	news.Environment: {"environment", "nature", "climate", "green", "earth"},
}

var defaultKeywords = []string{"middle east", "arabic", "news"}

// Keywords returns the image search terms for d in priority order: the
// model's own terms, then the category table, then a generic default.
func Keywords(d news.Draft) []string {
	var terms []string
	for _, t := range strings.Split(d.ImageSearchTerms, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) > 0 {
		return terms
	}
	if kw, ok := categoryKeywords[d.Category]; ok {
		return kw
	}
	return defaultKeywords
}

// Result holds the results of an enrichment run.
type Result struct {
	Downloaded int
	Fallbacks  int
	Failed     int
}

// Enricher attaches downloaded images to drafts.
type Enricher struct {
	apiKey    string
	searchURL string
	imageDir  string
	client    *http.Client
	fallback  func() string
	pick      func(n int) int
}

// NewEnricher creates an enricher saving into imageDir. An empty apiKey
// skips the photo search and uses the placeholder service directly.
func NewEnricher(apiKey, imageDir string) *Enricher {
	return &Enricher{
		apiKey:    apiKey,
		searchURL: pexelsSearchURL,
		imageDir:  imageDir,
		client:    &http.Client{Timeout: downloadTimeout},
		fallback: func() string {
			return fmt.Sprintf("https://picsum.photos/1200/630?random=%d", rand.Intn(1000))
		},
		pick: rand.Intn,
	}
}

// Enrich sets Image on each draft that gets a photo and defaults ImageAlt to
// the title. Failures only leave the draft without an image.
func (e *Enricher) Enrich(ctx context.Context, drafts []news.Draft) *Result {
	r := &Result{}
	for i := range drafts {
		d := &drafts[i]
		log.Printf("Finding image for: %s", d.Title)

		src, fromSearch := e.FindImage(ctx, Keywords(*d))
		if !fromSearch {
			r.Fallbacks++
		}

		path, err := e.Download(ctx, src, imageName(*d, i))
		if err != nil {
			log.Printf("Image download failed for %q: %v", d.Title, err)
			r.Failed++
		} else {
			d.Image = path
			r.Downloaded++
		}
		if d.ImageAlt == "" {
			d.ImageAlt = d.Title
		}
	}
	log.Printf("Images complete: %d downloaded (%d placeholders), %d failed", r.Downloaded, r.Fallbacks, r.Failed)
	return r
}

// FindImage returns the URL of a photo for the first keyword. The boolean
// is false when the placeholder service was used instead.
func (e *Enricher) FindImage(ctx context.Context, keywords []string) (string, bool) {
	query := "arabic news"
	if len(keywords) > 0 {
		query = keywords[0]
	}

	if e.apiKey != "" {
		src, err := e.search(ctx, query)
		if err == nil {
			return src, true
		}
		log.Printf("Photo search for %q failed, using placeholder: %v", query, err)
	}
	return e.fallback(), false
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Large2x string `json:"large2x"`
		} `json:"src"`
	} `json:"photos"`
}

func (e *Enricher) search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "15")
	params.Set("orientation", "landscape")
	params.Set("size", "large")

	req, err := http.NewRequestWithContext(ctx, "GET", e.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("searching photos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("photo search returned %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding search response: %w", err)
	}
	if len(result.Photos) == 0 {
		return "", fmt.Errorf("no photos for %q", query)
	}

	log.Printf("Found %d photos for %q", len(result.Photos), query)
	return result.Photos[e.pick(len(result.Photos))].Src.Large2x, nil
}

// Download saves src as name inside the image directory and returns the
// site path /img/<name>.
func (e *Enricher) Download(ctx context.Context, src, name string) (string, error) {
	if src == "" {
		return "", fmt.Errorf("no image URL")
	}

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", src, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned %d", resp.StatusCode)
	}

	if err := os.MkdirAll(e.imageDir, 0o755); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}

	path := filepath.Join(e.imageDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}

	log.Printf("Image saved: %s", name)
	return "/img/" + name, nil
}

// imageName is article-<slug>-<hash>.jpg. Slugs are truncated and can be
// shared by different headlines, so the hash of source and title keeps
// one article from overwriting another's photo.
func imageName(d news.Draft, index int) string {
	key := d.Slug
	if key == "" {
		key = strconv.FormatInt(d.GeneratedAt.Unix(), 10) + "-" + strconv.Itoa(index)
	}
	sum := sha1.Sum([]byte(d.SourceURL + "\n" + d.Title))
	return "article-" + key + "-" + hex.EncodeToString(sum[:4]) + ".jpg"
}
