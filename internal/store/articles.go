package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/model"
)

const articleColumns = "id, blog_id, title, content, html_content, status, platform_post_id, archive_locator, error_message, created_at, attempted_at, published_at"

// InsertArticle persists a freshly generated article. The caller sets the
// initial status; created_at and attempted_at default to now when unset.
func (s *Store) InsertArticle(ctx context.Context, a *model.Article) (int64, error) {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.AttemptedAt == nil {
		a.AttemptedAt = &now
	}
	res, err := s.execRow(ctx,
		`INSERT INTO articles (blog_id, title, content, html_content, status, platform_post_id, archive_locator, error_message, created_at, attempted_at, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.BlogID, a.Title, a.Content, a.HTMLContent, string(a.Status),
		a.PlatformPostID, a.ArchiveLocator, truncateMessage(a.ErrorMessage),
		unix(a.CreatedAt), nullableUnix(a.AttemptedAt), nullableUnix(a.PublishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert article id: %w", err)
	}
	a.ID = id
	return id, nil
}

// MarkArticlePublished records a successful publish. published_at is set and
// the status moves to published; this transition is final.
func (s *Store) MarkArticlePublished(ctx context.Context, id int64, platformPostID, archiveLocator string, publishedAt time.Time) error {
	res, err := s.execRow(ctx,
		`UPDATE articles SET status = ?, platform_post_id = ?, archive_locator = ?, error_message = '', published_at = ?, attempted_at = ?
		 WHERE id = ? AND status != ?`,
		string(model.ArticlePublished), platformPostID, archiveLocator, unix(publishedAt), unix(publishedAt), id, string(model.ArticlePublished),
	)
	if err != nil {
		return fmt.Errorf("mark article published: %w", err)
	}
	return requireRow(res, id)
}

// MarkArticleFailed records a permanent publish failure. A failed article is
// only ever revived through the publishing queue, never by editing its status.
func (s *Store) MarkArticleFailed(ctx context.Context, id int64, errMsg string, attemptedAt time.Time) error {
	res, err := s.execRow(ctx,
		`UPDATE articles SET status = ?, error_message = ?, attempted_at = ? WHERE id = ? AND status != ?`,
		string(model.ArticleFailed), truncateMessage(errMsg), unix(attemptedAt), id, string(model.ArticlePublished),
	)
	if err != nil {
		return fmt.Errorf("mark article failed: %w", err)
	}
	return requireRow(res, id)
}

// TouchArticleAttempt updates attempted_at for a retry without changing status.
func (s *Store) TouchArticleAttempt(ctx context.Context, id int64, attemptedAt time.Time) error {
	_, err := s.execRow(ctx, "UPDATE articles SET attempted_at = ? WHERE id = ?", unix(attemptedAt), id)
	if err != nil {
		return fmt.Errorf("touch article attempt: %w", err)
	}
	return nil
}

// ArticleByID fetches one article.
func (s *Store) ArticleByID(ctx context.Context, id int64) (*model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM articles WHERE id = ?", id)
	a, err := scanArticle(row)
	if err != nil {
		return nil, fmt.Errorf("article %d: %w", id, err)
	}
	return a, nil
}

// ArticlesForBlog lists a blog's articles, newest first.
func (s *Store) ArticlesForBlog(ctx context.Context, blogID int64) ([]model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+articleColumns+" FROM articles WHERE blog_id = ? ORDER BY id DESC", blogID)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// ArchiveLocators returns every archive locator recorded on an article. The
// set is the liveness input for archive garbage collection: an object whose
// hash appears here must not be collected.
func (s *Store) ArchiveLocators(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT archive_locator FROM articles WHERE archive_locator != ''")
	if err != nil {
		return nil, fmt.Errorf("query archive locators: %w", err)
	}
	defer rows.Close()

	var locators []string
	for rows.Next() {
		var locator string
		if err := rows.Scan(&locator); err != nil {
			return nil, fmt.Errorf("scan archive locator: %w", err)
		}
		locators = append(locators, locator)
	}
	return locators, rows.Err()
}

func scanArticle(r rowScanner) (*model.Article, error) {
	var a model.Article
	var status string
	var created int64
	var attempted, published sql.NullInt64
	if err := r.Scan(&a.ID, &a.BlogID, &a.Title, &a.Content, &a.HTMLContent, &status,
		&a.PlatformPostID, &a.ArchiveLocator, &a.ErrorMessage, &created, &attempted, &published); err != nil {
		return nil, err
	}
	a.Status = model.ArticleStatus(status)
	a.CreatedAt = fromUnix(created)
	a.AttemptedAt = timePtr(attempted)
	a.PublishedAt = timePtr(published)
	return &a, nil
}

// truncateMessage bounds free-text columns so oversized backend responses
// cannot bloat rows.
func truncateMessage(msg string) string {
	const limit = 1000
	if len(msg) <= limit {
		return msg
	}
	return msg[:limit]
}
