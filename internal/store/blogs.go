package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"git.home.luguber.info/inful/blogsmith/internal/model"
)

const blogColumns = "id, blog_name, blog_url, platform, wp_user, wp_app_password, feed_url, category, active, created_at"

// InsertBlog registers a new publish target and returns its id.
func (s *Store) InsertBlog(ctx context.Context, b *model.Blog) (int64, error) {
	if !b.Platform.Valid() {
		return 0, fmt.Errorf("unknown platform %q", b.Platform)
	}
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := s.execRow(ctx,
		`INSERT INTO blogs (blog_name, blog_url, platform, wp_user, wp_app_password, feed_url, category, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.URL, string(b.Platform), b.WPUser, b.WPAppPassword, b.FeedURL, b.Category, boolToInt(b.Active), unix(created),
	)
	if err != nil {
		return 0, fmt.Errorf("insert blog: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert blog id: %w", err)
	}
	b.ID = id
	return id, nil
}

// ActiveBlogs returns active publish targets in ascending id order, which is
// the processing order for a pipeline run.
func (s *Store) ActiveBlogs(ctx context.Context) ([]model.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+blogColumns+" FROM blogs WHERE active = 1 ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("query active blogs: %w", err)
	}
	defer rows.Close()
	return scanBlogs(rows)
}

// AllBlogs returns every registered blog regardless of active state.
func (s *Store) AllBlogs(ctx context.Context) ([]model.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, "SELECT "+blogColumns+" FROM blogs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query blogs: %w", err)
	}
	defer rows.Close()
	return scanBlogs(rows)
}

// BlogByID fetches one blog.
func (s *Store) BlogByID(ctx context.Context, id int64) (*model.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, "SELECT "+blogColumns+" FROM blogs WHERE id = ?", id)
	b, err := scanBlog(row)
	if err != nil {
		return nil, fmt.Errorf("blog %d: %w", id, err)
	}
	return b, nil
}

// DeactivateBlog flips a blog inactive. Blogs are never deleted so article
// and log history keeps its referential integrity.
func (s *Store) DeactivateBlog(ctx context.Context, id int64) error {
	res, err := s.execRow(ctx, "UPDATE blogs SET active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deactivate blog: %w", err)
	}
	return requireRow(res, id)
}

// RotateCredentials replaces the per-blog credential bundle. This is the only
// mutation allowed on a blog once articles reference it.
func (s *Store) RotateCredentials(ctx context.Context, id int64, user, appPassword string) error {
	res, err := s.execRow(ctx, "UPDATE blogs SET wp_user = ?, wp_app_password = ? WHERE id = ?", user, appPassword, id)
	if err != nil {
		return fmt.Errorf("rotate credentials: %w", err)
	}
	return requireRow(res, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(r rowScanner) (*model.Blog, error) {
	var b model.Blog
	var platform string
	var active int
	var created int64
	if err := r.Scan(&b.ID, &b.Name, &b.URL, &platform, &b.WPUser, &b.WPAppPassword, &b.FeedURL, &b.Category, &active, &created); err != nil {
		return nil, err
	}
	b.Platform = model.Platform(platform)
	b.Active = active != 0
	b.CreatedAt = fromUnix(created)
	return &b, nil
}

func scanBlogs(rows *sql.Rows) ([]model.Blog, error) {
	var blogs []model.Blog
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blog: %w", err)
		}
		blogs = append(blogs, *b)
	}
	return blogs, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no row with id %d", id)
	}
	return nil
}
