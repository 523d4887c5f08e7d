package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// ErrInvalid is returned by Validate when the configuration cannot drive a run.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Sources    Sources    `yaml:"sources"`
	Automation Automation `yaml:"automation"`
	Generation Generation `yaml:"generation"`
	Media      Media      `yaml:"media"`
	Site       Site       `yaml:"site"`
	Social     Social     `yaml:"social"`
	Hooks      Hooks      `yaml:"hooks"`
	Dedup      Dedup      `yaml:"dedup"`
	Events     Events     `yaml:"events"`
	Schedule   Schedule   `yaml:"schedule"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
}

type Sources struct {
	Feeds         []Feed     `yaml:"feeds"`
	FetchFullText bool       `yaml:"fetch_full_text"`
	APIs          APIsConfig `yaml:"apis"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type APIsConfig struct {
	NewsAPI NewsAPIConfig `yaml:"newsapi"`
}

type NewsAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Query     string `yaml:"query"`
	Language  string `yaml:"language"`
}

type Automation struct {
	DailyLimit      int           `yaml:"daily_limit"`
	ImageGeneration bool          `yaml:"image_generation"`
	GenerationDelay time.Duration `yaml:"generation_delay"`
	SocialDelay     time.Duration `yaml:"social_delay"`
}

type Generation struct {
	Provider      string            `yaml:"provider"`
	Model         string            `yaml:"model"`
	TestModel     string            `yaml:"test_model"`
	APIKeyEnv     string            `yaml:"api_key_env"`
	BaseURL       string            `yaml:"base_url"`
	OllamaURL     string            `yaml:"ollama_url"`
	MaxTokens     int               `yaml:"max_tokens"`
	TestMaxTokens int               `yaml:"test_max_tokens"`
	Temperature   float32           `yaml:"temperature"`
	Author        string            `yaml:"author"`
	Presets       map[string]Preset `yaml:"presets"`
}

// Preset is a named set of extra prompt instructions.
type Preset struct {
	Instructions   []string `yaml:"instructions"`
	DefaultCountry string   `yaml:"default_country"`
}

type Media struct {
	PexelsAPIKeyEnv string `yaml:"pexels_api_key_env"`
}

type Site struct {
	Dir      string `yaml:"dir"`
	DataFile string `yaml:"data_file"`
	BaseURL  string `yaml:"base_url"`
	Name     string `yaml:"name"`
}

type Social struct {
	Twitter  TwitterConfig  `yaml:"twitter"`
	Facebook FacebookConfig `yaml:"facebook"`
	LinkedIn LinkedInConfig `yaml:"linkedin"`
}

type TwitterConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BearerTokenEnv string `yaml:"bearer_token_env"`
	Username       string `yaml:"username"`
}

type FacebookConfig struct {
	Enabled        bool   `yaml:"enabled"`
	PageID         string `yaml:"page_id"`
	AccessTokenEnv string `yaml:"access_token_env"`
}

type LinkedInConfig struct {
	Enabled        bool   `yaml:"enabled"`
	AccessTokenEnv string `yaml:"access_token_env"`
}

type Hooks struct {
	Build BuildHook `yaml:"build"`
	Git   GitHook   `yaml:"git"`
}

type BuildHook struct {
	Enabled bool     `yaml:"enabled"`
	Command []string `yaml:"command"`
}

type GitHook struct {
	Enabled bool     `yaml:"enabled"`
	Paths   []string `yaml:"paths"`
	Remote  string   `yaml:"remote"`
	Branch  string   `yaml:"branch"`
}

type Dedup struct {
	Backend     string        `yaml:"backend"` // sqlite, redis or none
	RedisURLEnv string        `yaml:"redis_url_env"`
	TTL         time.Duration `yaml:"ttl"`
}

type Events struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type Schedule struct {
	Timezone string `yaml:"timezone"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for arabpress.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "arabpress")
}

// DataDir returns the XDG data directory for arabpress.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "arabpress")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/arabpress/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'arabpress init' to create a default config",
		xdgConfig,
	)
}

// LoadEnv loads a .env file from the working directory if one exists.
func LoadEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Failed to load .env: %v", err)
	}
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			APIs: APIsConfig{
				NewsAPI: NewsAPIConfig{
					APIKeyEnv: "NEWSAPI_KEY",
					Query:     "العالم العربي",
					Language:  "ar",
				},
			},
		},
		Automation: Automation{
			DailyLimit:      3,
			ImageGeneration: true,
			GenerationDelay: 2 * time.Second,
			SocialDelay:     5 * time.Second,
		},
		Generation: Generation{
			Provider:      "anthropic",
			Model:         "claude-sonnet-4-5",
			TestModel:     "claude-haiku-4-5",
			APIKeyEnv:     "ANTHROPIC_API_KEY",
			OllamaURL:     "http://localhost:11434",
			MaxTokens:     8000,
			TestMaxTokens: 4000,
			Temperature:   0.7,
			Author:        "فريق تحرير عرب برس",
		},
		Media: Media{PexelsAPIKeyEnv: "PEXELS_API_KEY"},
		Site: Site{
			Dir:      ".",
			DataFile: "src/data.ts",
			BaseURL:  "https://arabpress.netlify.app",
			Name:     "صدى العرب",
		},
		Social: Social{
			Twitter:  TwitterConfig{BearerTokenEnv: "TWITTER_BEARER_TOKEN"},
			Facebook: FacebookConfig{AccessTokenEnv: "FACEBOOK_ACCESS_TOKEN"},
			LinkedIn: LinkedInConfig{AccessTokenEnv: "LINKEDIN_ACCESS_TOKEN"},
		},
		Hooks: Hooks{
			Build: BuildHook{Enabled: true, Command: []string{"npm", "run", "build"}},
			Git:   GitHook{Enabled: true, Paths: []string{"src/data.ts", "public/"}, Remote: "origin"},
		},
		Dedup:    Dedup{Backend: "sqlite", RedisURLEnv: "REDIS_URL", TTL: 30 * 24 * time.Hour},
		Events:   Events{Subject: "arabpress.events"},
		Schedule: Schedule{Timezone: "Africa/Tunis"},
		Server:   Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings a pipeline run cannot do without.
// Missing social credentials are reported but not fatal.
func (c *Config) Validate() error {
	if c.Generation.Provider != "ollama" && c.Generation.APIKey() == "" {
		return fmt.Errorf("%w: %s is not set", ErrInvalid, c.Generation.APIKeyEnv)
	}
	if len(c.Sources.Feeds) == 0 && !c.Sources.APIs.NewsAPI.Enabled {
		return fmt.Errorf("%w: no news sources configured", ErrInvalid)
	}
	if !c.Social.Twitter.Enabled && !c.Social.Facebook.Enabled && !c.Social.LinkedIn.Enabled {
		log.Println("No social platform enabled; announcements will be skipped")
	}
	return nil
}

// TestMode returns a copy tuned for cheap trial runs: the smaller model,
// its token budget, and a single article.
func (c *Config) TestMode() *Config {
	cp := *c
	if cp.Generation.TestModel != "" {
		cp.Generation.Model = cp.Generation.TestModel
	}
	if cp.Generation.TestMaxTokens > 0 {
		cp.Generation.MaxTokens = cp.Generation.TestMaxTokens
	}
	cp.Automation.DailyLimit = 1
	return &cp
}

// IsTestModel reports whether the configured model is the cheaper tier.
func (g Generation) IsTestModel() bool {
	return g.TestModel != "" && g.Model == g.TestModel
}

// APIKey returns the LLM API key from the environment.
func (g Generation) APIKey() string {
	return os.Getenv(g.APIKeyEnv)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// LogsDir is where per-run files (snapshots, drafts, review sets, logs) live.
func (c *Config) LogsDir() string {
	return filepath.Join(c.GetDataDir(), "logs")
}

// DataFilePath returns the absolute location of the site's generated data file.
func (c *Config) DataFilePath() string {
	if filepath.IsAbs(c.Site.DataFile) {
		return c.Site.DataFile
	}
	return filepath.Join(c.Site.Dir, c.Site.DataFile)
}

// ImageDir returns the directory downloaded images are written to.
func (c *Config) ImageDir() string {
	return filepath.Join(c.Site.Dir, "public", "img")
}

// ArticleURL builds the public URL of a published article.
func (c *Config) ArticleURL(slug string) string {
	return ArticleURL(c.Site.BaseURL, slug)
}

// ArticleURL joins a site base URL and an article slug.
func ArticleURL(baseURL, slug string) string {
	return strings.TrimRight(baseURL, "/") + "/article/" + slug
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
