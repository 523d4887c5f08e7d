package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/arabpress/internal/collect"
	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/database"
	"github.com/TobiSchelling/arabpress/internal/dedup"
	"github.com/TobiSchelling/arabpress/internal/publish"
	"github.com/TobiSchelling/arabpress/internal/rank"
	"github.com/TobiSchelling/arabpress/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfgPath    string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "arabpress",
	Short:        "Automated Arabic news site",
	Long:         "arabpress collects regional news, drafts Arabic analysis articles with an LLM, and publishes them to a static news site.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		config.LoadEnv()

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfgPath = path
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(publishApprovedCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("arabpress", version)
	},
}

// --- init command ---

var initDataFile string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/arabpress/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
		} else {
			if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("Created config: %s\n", target)
			fmt.Println("Edit it to configure feeds, API keys, and the site directory.")
		}

		if initDataFile == "" {
			return nil
		}
		if _, err := os.Stat(initDataFile); err == nil {
			fmt.Printf("Data file already exists: %s\n", initDataFile)
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(initDataFile), 0o755); err != nil {
			return fmt.Errorf("creating data file directory: %w", err)
		}
		if err := os.WriteFile(initDataFile, []byte(publish.Skeleton), 0o644); err != nil {
			return fmt.Errorf("writing data file: %w", err)
		}
		fmt.Printf("Created empty data file: %s\n", initDataFile)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initDataFile, "data-file", "", "Also create an empty site data file at this path")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n", database.FormatDateDisplay(database.GetToday()))
		fmt.Printf("Config: %s\n", cfgPath)
		fmt.Printf("Data file: %s\n\n", cfg.DataFilePath())
		fmt.Println("Articles:")
		fmt.Printf("  Published: %d\n", stats.PublishedArticles)
		fmt.Printf("  Last id: %d\n", stats.MaxArticleID)
		for _, c := range sortedCounts(stats.Categories) {
			fmt.Printf("    %s: %d\n", c.key, c.val)
		}
		fmt.Println("\nReview:")
		fmt.Printf("  Approved: %d\n", stats.Approved)
		fmt.Printf("  Rejected: %d\n", stats.Rejected)
		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		fmt.Printf("  Failed: %d\n", stats.FailedRuns)
		fmt.Printf("  Links remembered: %d\n", stats.SeenLinks)
		fmt.Printf("  Social posts: %d\n", stats.SocialPosts)

		runs, err := db.GetRecentRuns(5)
		if err != nil {
			return err
		}
		if len(runs) > 0 {
			fmt.Println("\nRecent runs:")
			for _, r := range runs {
				started := ""
				if r.StartedAt != nil {
					started = *r.StartedAt
				}
				fmt.Printf("  %s  %-9s %s\n", started, r.Status, r.ID)
			}
		}
		return nil
	},
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect and rank news without generating anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		seen, err := dedup.New(ctx, cfg, db)
		if err != nil {
			return err
		}
		if c, ok := seen.(io.Closer); ok {
			defer c.Close()
		}

		fmt.Println("Collecting news from sources...")
		result := collect.NewCollector(cfg, seen).Collect(ctx)

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New items: %d\n", len(result.Items))
		fmt.Printf("  Already drafted: %d\n", result.Duplicates)

		if len(result.Sources) > 0 {
			fmt.Println("\nItems by source:")
			for _, s := range sortedCounts(result.Sources) {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}

		ranked := rank.Rank(rank.Filter(result.Items), time.Now(), cfg.Automation.DailyLimit)
		if len(ranked) > 0 {
			fmt.Println("\nWould draft:")
			for i, it := range ranked {
				fmt.Printf("  %d. [%s] %s (%.1f)\n", i+1, it.Category, it.Title, it.Score.Total())
			}
		}
		return nil
	},
}

// --- import command ---

var importCmd = &cobra.Command{
	Use:   "import [data.ts]",
	Short: "Seed the article store from an existing site data file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		path := cfg.DataFilePath()
		if len(args) == 1 {
			path = args[0]
		}
		n, err := publish.NewPublisher(db, path).Import(path)
		if err != nil {
			return err
		}
		maxID, err := db.MaxPublishedID()
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d article(s) from %s; last id is now %d\n", n, path, maxID)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local preview server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if !cmd.Flags().Changed("port") && cfg.Server.Port > 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, cfg.LogsDir(), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

type kv struct {
	key string
	val int
}

// sortedCounts orders a count map by count descending, then key.
func sortedCounts(m map[string]int) []kv {
	sorted := make([]kv, 0, len(m))
	for k, v := range m {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].val != sorted[j].val {
			return sorted[i].val > sorted[j].val
		}
		return sorted[i].key < sorted[j].key
	})
	return sorted
}

func openDB() (*database.DB, error) {
	return openDBFor(cfg)
}

func openDBFor(c *config.Config) (*database.DB, error) {
	dataDir := c.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "arabpress.db")
	return database.Open(dbPath)
}

// teeLog copies log output to <logs>/<name> as well as stderr. The returned
// func restores the previous output and closes the file.
func teeLog(name string) (func(), error) {
	dir := cfg.LogsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	prev := log.Writer()
	log.SetOutput(io.MultiWriter(prev, f))
	return func() {
		log.SetOutput(prev)
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
		}
	}, nil
}
