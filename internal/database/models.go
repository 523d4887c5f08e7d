package database

// PublishedArticle is one row of the append-only article store.
type PublishedArticle struct {
	ID              int64
	Slug            string
	Title           string
	Summary         string
	Category        string
	Date            string
	MetaDescription *string
	Keywords        *string
	Author          *string
	Image           *string
	ImageAlt        *string
	Content         string
	SourceURL       *string
	SourceName      *string
	QualityScore    int
	RunID           *string
	PublishedAt     *string
}

// ArticleFilter narrows ListPublished.
type ArticleFilter struct {
	Category string
	Limit    uint64
}

// Run is the record of one pipeline execution.
type Run struct {
	ID         string
	StartedAt  *string
	FinishedAt *string
	Status     string // "running", "succeeded" or "failed"
	DryRun     bool
	Summary    *string
	Error      *string
}

// SocialPost records a successful announcement.
type SocialPost struct {
	ID        int64
	ArticleID int64
	Platform  string
	PostID    *string
	PostedAt  *string
}

// ReviewDecision is an editor's verdict kept for audit.
type ReviewDecision struct {
	ID        int64
	Slug      string
	Title     string
	Verdict   string // "approve" or "reject"
	Reason    *string
	DecidedAt *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	PublishedArticles int
	MaxArticleID      int64
	Categories        map[string]int
	SeenLinks         int
	Runs              int
	FailedRuns        int
	SocialPosts       int
	Approved          int
	Rejected          int
}
