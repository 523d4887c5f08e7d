// Package dedup remembers which source links have already been turned into
// drafts so later runs do not write the same story twice.
package dedup

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/TobiSchelling/arabpress/internal/config"
	"github.com/TobiSchelling/arabpress/internal/database"
)

// Store records seen links.
type Store interface {
	Seen(ctx context.Context, link string) (bool, error)
	Mark(ctx context.Context, link, title string) error
}

// Noop never reports a link as seen.
type Noop struct{}

func (Noop) Seen(context.Context, string) (bool, error) { return false, nil }
func (Noop) Mark(context.Context, string, string) error { return nil }

// DBStore keeps seen links in the sqlite database.
type DBStore struct {
	db  *database.DB
	ttl time.Duration
}

var (
	_ Store = Noop{}
	_ Store = (*DBStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// NewDBStore creates a store backed by db. Links older than ttl are forgotten;
// ttl <= 0 keeps them forever.
func NewDBStore(db *database.DB, ttl time.Duration) *DBStore {
	return &DBStore{db: db, ttl: ttl}
}

func (s *DBStore) Seen(_ context.Context, link string) (bool, error) {
	var since time.Time
	if s.ttl > 0 {
		since = time.Now().Add(-s.ttl)
	}
	return s.db.IsLinkSeen(link, since)
}

func (s *DBStore) Mark(_ context.Context, link, title string) error {
	return s.db.MarkLinkSeen(link, title)
}

// New builds the store selected by cfg.Dedup.Backend. A Redis backend that
// cannot be reached degrades to Noop with a log line, so collection continues.
func New(ctx context.Context, cfg *config.Config, db *database.DB) (Store, error) {
	switch cfg.Dedup.Backend {
	case "", "none":
		return Noop{}, nil
	case "sqlite":
		return NewDBStore(db, cfg.Dedup.TTL), nil
	case "redis":
		url := os.Getenv(cfg.Dedup.RedisURLEnv)
		if url == "" {
			url = "redis://localhost:6379"
		}
		store, err := NewRedisStore(ctx, url, cfg.Dedup.TTL)
		if err != nil {
			log.Printf("Redis unavailable (%v), continuing without duplicate detection", err)
			return Noop{}, nil
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown dedup backend %q", cfg.Dedup.Backend)
	}
}
