// Package hooks runs the post-publish steps: rebuilding the static site and
// committing the new data. Each hook reports its own outcome; none of them
// can fail a publish that already happened.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/news"
)

// Hook is one post-publish step.
type Hook interface {
	Name() string
	Run(ctx context.Context, published []news.Published) error
}

var (
	_ Hook = (*CommandHook)(nil)
	_ Hook = (*GitHook)(nil)
)

// Result is the outcome of one hook.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// RunAll runs hooks in order. A failing hook is logged and the next one
// still runs.
func RunAll(ctx context.Context, hooks []Hook, published []news.Published) []Result {
	results := make([]Result, 0, len(hooks))
	for _, h := range hooks {
		log.Printf("Running hook: %s", h.Name())
		start := time.Now()
		err := h.Run(ctx, published)
		r := Result{Name: h.Name(), Err: err, Duration: time.Since(start)}
		if err != nil {
			log.Printf("Hook %s failed: %v", h.Name(), err)
		} else {
			log.Printf("Hook %s done in %s", h.Name(), r.Duration.Round(time.Millisecond))
		}
		results = append(results, r)
	}
	return results
}

// FromConfig builds the enabled hooks for the site in cfg.Site.Dir.
func FromConfig(cfg *config.Config) []Hook {
	var hooks []Hook
	if cfg.Hooks.Build.Enabled && len(cfg.Hooks.Build.Command) > 0 {
		hooks = append(hooks, NewCommandHook("build", cfg.Site.Dir, cfg.Hooks.Build.Command...))
	}
	if cfg.Hooks.Git.Enabled {
		hooks = append(hooks, NewGitHook(cfg.Site.Dir, cfg.Hooks.Git))
	}
	return hooks
}

// CommandHook runs a fixed command in a directory.
type CommandHook struct {
	name string
	dir  string
	args []string
}

// NewCommandHook creates a hook running args[0] with the remaining args.
func NewCommandHook(name, dir string, args ...string) *CommandHook {
	return &CommandHook{name: name, dir: dir, args: args}
}

func (c *CommandHook) Name() string { return c.name }

func (c *CommandHook) Run(ctx context.Context, _ []news.Published) error {
	if len(c.args) == 0 {
		return fmt.Errorf("no command configured")
	}
	_, err := run(ctx, c.dir, c.args[0], c.args[1:]...)
	return err
}

// GitHook stages the site data, commits with a summary of the new articles
// and pushes.
type GitHook struct {
	dir    string
	paths  []string
	remote string
	branch string
}

// NewGitHook creates a git hook for the repository in dir.
func NewGitHook(dir string, cfg config.GitHook) *GitHook {
	paths := cfg.Paths
	if len(paths) == 0 {
		paths = []string{"src/data.ts", "public/"}
	}
	return &GitHook{dir: dir, paths: paths, remote: cfg.Remote, branch: cfg.Branch}
}

func (g *GitHook) Name() string { return "git" }

func (g *GitHook) Run(ctx context.Context, published []news.Published) error {
	if _, err := run(ctx, g.dir, "git", "status"); err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}

	if _, err := run(ctx, g.dir, "git", append([]string{"add", "--"}, g.paths...)...); err != nil {
		return err
	}

	staged, err := run(ctx, g.dir, "git", "diff", "--cached", "--name-only")
	if err != nil {
		return err
	}
	if strings.TrimSpace(staged) == "" {
		log.Println("Nothing to commit")
		return nil
	}

	msgFile, err := os.CreateTemp("", "arabpress-commit-*.txt")
	if err != nil {
		return fmt.Errorf("writing commit message: %w", err)
	}
	defer os.Remove(msgFile.Name())
	if _, err := msgFile.WriteString(CommitMessage(published)); err != nil {
		msgFile.Close()
		return fmt.Errorf("writing commit message: %w", err)
	}
	msgFile.Close()

	if _, err := run(ctx, g.dir, "git", "commit", "-F", msgFile.Name()); err != nil {
		return err
	}

	push := []string{"push"}
	if g.remote != "" {
		push = append(push, g.remote)
		if g.branch != "" {
			push = append(push, g.branch)
		}
	}
	if _, err := run(ctx, g.dir, "git", push...); err != nil {
		return err
	}
	log.Println("Changes committed and pushed")
	return nil
}

// CommitMessage summarises the published articles.
func CommitMessage(published []news.Published) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automatic publication: %d new articles\n\nArticles:\n", len(published))
	for _, a := range published {
		fmt.Fprintf(&b, "- [%d] %s\n", a.ID, a.Title)
	}
	b.WriteString("\nGenerated by arabpress\n")
	return b.String()
}

func run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return stdout.String(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
	}
	return stdout.String(), nil
}
