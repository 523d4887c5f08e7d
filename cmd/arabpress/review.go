package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TobiSchelling/arabpress/internal/generate"
	"github.com/TobiSchelling/arabpress/internal/hooks"
	"github.com/TobiSchelling/arabpress/internal/news"
	"github.com/TobiSchelling/arabpress/internal/pipeline"
	"github.com/TobiSchelling/arabpress/internal/publish"
	"github.com/TobiSchelling/arabpress/internal/review"
)

// --- review command ---

var (
	reviewGenerate bool
	reviewOpts     pipeline.Options
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Approve or reject the last generated drafts",
	Long: "Shows each draft of the last run with its quality report and asks for a verdict.\n" +
		"Approved drafts are written to approved-articles.json for publish-approved.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("review needs an interactive terminal")
		}

		if reviewGenerate {
			fmt.Println("Step 1/2: Generating drafts...")
			opts := reviewOpts
			opts.SkipPublication = true
			result, err := runPipeline(cmd.Context(), cfg, opts, false)
			if result != nil {
				printSteps(result)
			}
			if err != nil {
				return err
			}
			fmt.Println("\nStep 2/2: Review")
		}

		drafts, err := generate.Load(filepath.Join(cfg.LogsDir(), generate.DraftsFile))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Println("No drafts found. Generate some with: arabpress review --generate")
				return nil
			}
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := review.NewGate(os.Stdin, os.Stdout).WithRecorder(db).Review(drafts)
		if err != nil {
			return err
		}
		if err := review.SaveResult(cfg.LogsDir(), result); err != nil {
			return err
		}

		if len(result.Approved) > 0 {
			fmt.Printf("\nApproved articles saved to %s\n", filepath.Join(cfg.LogsDir(), review.ApprovedFile))
			fmt.Println("Publish them with: arabpress publish-approved --build --git")
		}
		return nil
	},
}

func init() {
	f := reviewCmd.Flags()
	f.BoolVar(&reviewGenerate, "generate", false, "Scrape and generate fresh drafts before reviewing")
	f.StringVar(&reviewOpts.Preset, "preset", "", "Prompt preset from generation.presets")
	f.StringVar(&reviewOpts.Country, "country", "", "Target country for the preset")
	f.BoolVar(&reviewOpts.TestMode, "test-mode", false, "Use the cheaper model and a single article")
}

// --- publish-approved command ---

var (
	paBuild  bool
	paGit    bool
	paClean  bool
	paDryRun bool
)

var publishApprovedCmd = &cobra.Command{
	Use:   "publish-approved",
	Short: "Publish the drafts approved in review",
	RunE: func(cmd *cobra.Command, args []string) error {
		approved, err := review.LoadApproved(cfg.LogsDir())
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Println("No approved articles to publish.")
				fmt.Println("Run the review first with: arabpress review")
				return nil
			}
			return err
		}
		if len(approved) == 0 {
			fmt.Println("No approved articles to publish.")
			return nil
		}
		fmt.Printf("%d approved article(s) found\n\n", len(approved))

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := publish.NewPublisher(db, cfg.DataFilePath()).Publish(approved, publish.Options{DryRun: paDryRun})
		if err != nil {
			return err
		}
		fmt.Print(publish.Report(result))
		if paDryRun {
			return nil
		}

		var selected []hooks.Hook
		for _, h := range hooks.FromConfig(cfg) {
			if (h.Name() == "build" && paBuild) || (h.Name() == "git" && paGit) {
				selected = append(selected, h)
			}
		}
		if len(selected) == 0 {
			fmt.Println("Build and deploy the site with: arabpress publish-approved --build --git")
		}
		for _, r := range hooks.RunAll(cmd.Context(), selected, result.Articles) {
			if r.Err != nil {
				fmt.Printf("%s failed: %v\n", r.Name, r.Err)
			} else {
				fmt.Printf("%s done\n", r.Name)
			}
		}

		if paClean {
			if err := review.ClearApproved(cfg.LogsDir()); err != nil {
				fmt.Printf("Could not remove the approved file: %v\n", err)
			} else {
				fmt.Println("Approved file removed")
			}
		}

		fmt.Println()
		fmt.Println(okBanner.Render("PUBLICATION COMPLETE"))
		printPublished(result.Articles)
		return nil
	},
}

func init() {
	f := publishApprovedCmd.Flags()
	f.BoolVar(&paBuild, "build", false, "Build the site afterwards")
	f.BoolVar(&paGit, "git", false, "Commit and push afterwards")
	f.BoolVar(&paClean, "clean", false, "Remove approved-articles.json afterwards")
	f.BoolVar(&paDryRun, "dry-run", false, "Show the ids that would be assigned without writing")
}

func printPublished(articles []news.Published) {
	for _, a := range articles {
		fmt.Printf("  %d  %s\n", a.ID, cfg.ArticleURL(a.Slug))
	}
}
