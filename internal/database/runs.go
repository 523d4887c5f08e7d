package database

import (
	"database/sql"
	"time"
)

// StartRun records the beginning of a pipeline run.
func (db *DB) StartRun(id string, dryRun bool) error {
	_, err := db.conn.Exec(
		"INSERT INTO runs (id, dry_run) VALUES (?, ?)", id, boolToInt(dryRun),
	)
	return err
}

// FinishRun closes a run with its outcome. errMsg is stored only when non-empty.
func (db *DB) FinishRun(id string, succeeded bool, summary, errMsg string) error {
	status := "succeeded"
	if !succeeded {
		status = "failed"
	}
	var errVal *string
	if errMsg != "" {
		errVal = &errMsg
	}
	_, err := db.conn.Exec(
		`UPDATE runs SET finished_at = datetime('now'), status = ?, summary = ?, error = ?
		WHERE id = ?`, status, summary, errVal, id,
	)
	return err
}

// GetRecentRuns returns up to limit runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, started_at, finished_at, status, dry_run, summary, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var dry int
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &dry, &r.Summary, &r.Error); err != nil {
			return nil, err
		}
		r.DryRun = dry != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a run by id, or nil.
func (db *DB) GetRun(id string) (*Run, error) {
	var r Run
	var dry int
	err := db.conn.QueryRow(
		`SELECT id, started_at, finished_at, status, dry_run, summary, error FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &dry, &r.Summary, &r.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.DryRun = dry != 0
	return &r, nil
}

// IsLinkSeen reports whether link was marked at or after since.
// A zero since matches any age.
func (db *DB) IsLinkSeen(link string, since time.Time) (bool, error) {
	var count int
	var err error
	if since.IsZero() {
		err = db.conn.QueryRow("SELECT COUNT(*) FROM seen_links WHERE link = ?", link).Scan(&count)
	} else {
		err = db.conn.QueryRow(
			"SELECT COUNT(*) FROM seen_links WHERE link = ? AND seen_at >= ?",
			link, since.UTC().Format("2006-01-02 15:04:05"),
		).Scan(&count)
	}
	return count > 0, err
}

// MarkLinkSeen records link, refreshing its timestamp if already present.
func (db *DB) MarkLinkSeen(link, title string) error {
	_, err := db.conn.Exec(
		`INSERT INTO seen_links (link, title) VALUES (?, ?)
		ON CONFLICT(link) DO UPDATE SET title = excluded.title, seen_at = datetime('now')`,
		link, title,
	)
	return err
}

// InsertSocialPost records a successful announcement.
func (db *DB) InsertSocialPost(articleID int64, platform, postID string) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO social_posts (article_id, platform, post_id) VALUES (?, ?, ?)",
		articleID, platform, postID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetSocialPosts returns the announcements made for an article.
func (db *DB) GetSocialPosts(articleID int64) ([]SocialPost, error) {
	rows, err := db.conn.Query(
		`SELECT id, article_id, platform, post_id, posted_at FROM social_posts
		WHERE article_id = ? ORDER BY id`, articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []SocialPost
	for rows.Next() {
		var p SocialPost
		if err := rows.Scan(&p.ID, &p.ArticleID, &p.Platform, &p.PostID, &p.PostedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// InsertReviewDecision keeps an editor verdict for audit.
func (db *DB) InsertReviewDecision(slug, title, verdict, reason string) error {
	var r *string
	if reason != "" {
		r = &reason
	}
	_, err := db.conn.Exec(
		"INSERT INTO review_decisions (slug, title, verdict, reason) VALUES (?, ?, ?, ?)",
		slug, title, verdict, r,
	)
	return err
}

// GetReviewDecisions returns all recorded verdicts in order.
func (db *DB) GetReviewDecisions() ([]ReviewDecision, error) {
	rows, err := db.conn.Query(
		"SELECT id, slug, title, verdict, reason, decided_at FROM review_decisions ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []ReviewDecision
	for rows.Next() {
		var d ReviewDecision
		if err := rows.Scan(&d.ID, &d.Slug, &d.Title, &d.Verdict, &d.Reason, &d.DecidedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// GetStats returns aggregate counts across all tables.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{Categories: make(map[string]int)}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM published_articles", &s.PublishedArticles},
		{"SELECT COUNT(*) FROM seen_links", &s.SeenLinks},
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT COUNT(*) FROM runs WHERE status = 'failed'", &s.FailedRuns},
		{"SELECT COUNT(*) FROM social_posts", &s.SocialPosts},
		{"SELECT COUNT(*) FROM review_decisions WHERE verdict = 'approve'", &s.Approved},
		{"SELECT COUNT(*) FROM review_decisions WHERE verdict = 'reject'", &s.Rejected},
	}
	for _, c := range counts {
		if err := db.conn.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	maxID, err := db.MaxPublishedID()
	if err != nil {
		return nil, err
	}
	s.MaxArticleID = maxID

	rows, err := db.conn.Query("SELECT category, COUNT(*) FROM published_articles GROUP BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		s.Categories[cat] = n
	}
	return s, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
