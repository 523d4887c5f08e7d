package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS published_articles (
    id INTEGER PRIMARY KEY,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    summary TEXT NOT NULL,
    category TEXT NOT NULL,
    date TEXT NOT NULL,
    meta_description TEXT,
    keywords TEXT,
    author TEXT,
    image TEXT,
    image_alt TEXT,
    content TEXT NOT NULL,
    source_url TEXT,
    source_name TEXT,
    quality_score INTEGER DEFAULT 0,
    run_id TEXT,
    published_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS seen_links (
    link TEXT PRIMARY KEY,
    title TEXT,
    seen_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT DEFAULT (datetime('now')),
    finished_at TEXT,
    status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'succeeded', 'failed')),
    dry_run INTEGER DEFAULT 0,
    summary TEXT,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_published_slug ON published_articles(slug);
CREATE INDEX IF NOT EXISTS idx_published_category ON published_articles(category);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "social posts and review decisions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS social_posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL REFERENCES published_articles(id),
    platform TEXT NOT NULL,
    post_id TEXT,
    posted_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS review_decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    verdict TEXT NOT NULL CHECK(verdict IN ('approve', 'reject')),
    reason TEXT,
    decided_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_social_posts_article ON social_posts(article_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
