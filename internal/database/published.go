package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var publishedColumns = []string{
	"id", "slug", "title", "summary", "category", "date", "meta_description",
	"keywords", "author", "image", "image_alt", "content", "source_url",
	"source_name", "quality_score", "run_id", "published_at",
}

// InsertPublished appends articles in a single transaction. Rows are never
// updated afterwards; an id collision aborts the whole batch.
func (db *DB) InsertPublished(articles []PublishedArticle) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO published_articles
		(id, slug, title, summary, category, date, meta_description, keywords, author,
		 image, image_alt, content, source_url, source_name, quality_score, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		if _, err := stmt.Exec(a.ID, a.Slug, a.Title, a.Summary, a.Category, a.Date,
			a.MetaDescription, a.Keywords, a.Author, a.Image, a.ImageAlt, a.Content,
			a.SourceURL, a.SourceName, a.QualityScore, a.RunID); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting article %d: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// MaxPublishedID returns the highest stored id, or 0 for an empty store.
func (db *DB) MaxPublishedID() (int64, error) {
	var maxID sql.NullInt64
	if err := db.conn.QueryRow("SELECT MAX(id) FROM published_articles").Scan(&maxID); err != nil {
		return 0, err
	}
	return maxID.Int64, nil
}

// ListPublished returns stored articles, newest id first.
func (db *DB) ListPublished(f ArticleFilter) ([]PublishedArticle, error) {
	q := sq.Select(publishedColumns...).From("published_articles").OrderBy("id DESC")
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPublished(rows)
}

// AllPublished returns every stored article in id order.
func (db *DB) AllPublished() ([]PublishedArticle, error) {
	query, args, err := sq.Select(publishedColumns...).From("published_articles").OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPublished(rows)
}

// GetPublishedBySlug returns the most recent article with slug, or nil.
func (db *DB) GetPublishedBySlug(slug string) (*PublishedArticle, error) {
	articles, err := db.queryPublished(sq.Eq{"slug": slug})
	if err != nil || len(articles) == 0 {
		return nil, err
	}
	return &articles[0], nil
}

// GetPublished returns the article with id, or nil.
func (db *DB) GetPublished(id int64) (*PublishedArticle, error) {
	articles, err := db.queryPublished(sq.Eq{"id": id})
	if err != nil || len(articles) == 0 {
		return nil, err
	}
	return &articles[0], nil
}

func (db *DB) queryPublished(where sq.Eq) ([]PublishedArticle, error) {
	query, args, err := sq.Select(publishedColumns...).From("published_articles").
		Where(where).OrderBy("id DESC").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPublished(rows)
}

func scanPublished(rows *sql.Rows) ([]PublishedArticle, error) {
	var articles []PublishedArticle
	for rows.Next() {
		var a PublishedArticle
		if err := rows.Scan(&a.ID, &a.Slug, &a.Title, &a.Summary, &a.Category, &a.Date,
			&a.MetaDescription, &a.Keywords, &a.Author, &a.Image, &a.ImageAlt, &a.Content,
			&a.SourceURL, &a.SourceName, &a.QualityScore, &a.RunID, &a.PublishedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
