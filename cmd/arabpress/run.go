package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/pipeline"
)

var (
	runOpts pipeline.Options
	runPlan bool
)

var (
	okBanner   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2DA44E"))
	failBanner = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CF222E"))
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: scrape -> generate -> images -> publish -> social -> build/deploy",
	RunE: func(cmd *cobra.Command, args []string) error {
		closeLog, err := teeLog("main.log")
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := runPipeline(ctx, cfg, runOpts, runPlan)
		if result != nil {
			printSteps(result)
		}
		if err != nil {
			fmt.Println()
			fmt.Println(failBanner.Render("PIPELINE FAILED"))
			return err
		}
		if !runPlan {
			fmt.Println()
			fmt.Println(okBanner.Render("PIPELINE COMPLETE"))
			if len(result.Published) > 0 {
				fmt.Printf("%d article(s) published. Run 'arabpress serve' to preview them.\n", len(result.Published))
			}
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&runOpts.SkipScraping, "skip-scraping", false, "Reuse the last news snapshot instead of fetching feeds")
	f.BoolVar(&runOpts.SkipGeneration, "skip-generation", false, "Reuse the last generated drafts")
	f.BoolVar(&runOpts.SkipPublication, "skip-publication", false, "Stop after drafting")
	f.BoolVar(&runOpts.SkipSocial, "skip-social", false, "Do not announce on social networks")
	f.BoolVar(&runOpts.SkipBuild, "skip-build", false, "Do not build the site")
	f.BoolVar(&runOpts.SkipGit, "skip-git", false, "Do not commit and push")
	f.BoolVar(&runOpts.DryRun, "dry-run", false, "Go through every step without writing or posting anything")
	f.StringVar(&runOpts.Preset, "preset", "", "Prompt preset from generation.presets")
	f.StringVar(&runOpts.Country, "country", "", "Target country for the preset")
	f.BoolVar(&runOpts.TestMode, "test-mode", false, "Use the cheaper model and a single article")
	f.BoolVar(&runPlan, "plan", false, "Show what a run would start from without calling any service")
}

// runPipeline validates c, runs one pipeline and records it. With plan set
// nothing is fetched, generated or written.
func runPipeline(ctx context.Context, c *config.Config, opts pipeline.Options, plan bool) (*pipeline.Result, error) {
	if !opts.SkipGeneration && !plan {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	db, err := openDBFor(c)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if plan {
		// A plan never calls the model, so no provider is needed.
		opts.SkipGeneration = true
	}
	pipe, err := pipeline.New(ctx, c, db, opts)
	if err != nil {
		return nil, err
	}
	defer pipe.Close()

	if plan {
		return pipe.DryRun(), nil
	}
	result := pipe.Run(ctx)
	return result, result.Err()
}

func printSteps(result *pipeline.Result) {
	if result.RunID != "" {
		fmt.Printf("\nRun %s\n", result.RunID)
	}
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
	if result.Stopped != "" {
		fmt.Printf("\nStopped early: %s\n", result.Stopped)
	}
	if result.Social != nil && result.Social.Total() > 0 {
		fmt.Println()
		fmt.Print(result.Social.String())
	}
}
