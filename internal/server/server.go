package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/arabpress/internal/database"
	"github.com/TobiSchelling/arabpress/internal/generate"
	"github.com/TobiSchelling/arabpress/internal/news"
	"github.com/TobiSchelling/arabpress/internal/quality"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server previews the published archive and the pending drafts.
type Server struct {
	db      *database.DB
	logsDir string
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// New creates a new Server. Drafts are read from logsDir.
func New(db *database.DB, logsDir string) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": database.FormatDateDisplay,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so that every page can define
	// "title" and "content".
	pageNames := []string{"index.html", "article.html", "drafts.html", "runs.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, logsDir: logsDir, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/article/", s.handleArticle)
	s.mux.HandleFunc("/drafts", s.handleDrafts)
	s.mux.HandleFunc("/runs", s.handleRuns)
}

type categoryCount struct {
	Name  string
	Count int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	category := r.URL.Query().Get("category")
	articles, err := s.db.ListPublished(database.ArticleFilter{Category: category, Limit: 50})
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var categories []categoryCount
	for _, c := range news.Categories {
		if n := stats.Categories[c]; n > 0 {
			categories = append(categories, categoryCount{Name: c, Count: n})
		}
	}

	s.render(w, "index.html", map[string]any{
		"Articles":   articles,
		"Stats":      stats,
		"Categories": categories,
		"Category":   category,
	})
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/article/")
	if slug == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	article, err := s.db.GetPublishedBySlug(slug)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if article == nil {
		http.NotFound(w, r)
		return
	}
	posts, _ := s.db.GetSocialPosts(article.ID)

	s.render(w, "article.html", map[string]any{
		"Article": article,
		"Posts":   posts,
	})
}

type draftView struct {
	news.Draft
	Report quality.Report
}

func (s *Server) handleDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := generate.Load(filepath.Join(s.logsDir, generate.DraftsFile))
	if err != nil {
		log.Printf("No drafts to show: %v", err)
	}

	views := make([]draftView, len(drafts))
	for i, d := range drafts {
		views[i] = draftView{Draft: d, Report: quality.Score(d)}
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Report.Score > views[j].Report.Score
	})

	s.render(w, "drafts.html", map[string]any{
		"Drafts": views,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.GetRecentRuns(30)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "runs.html", map[string]any{
		"Runs": runs,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, logsDir string, port int) error {
	srv, err := New(db, logsDir)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
