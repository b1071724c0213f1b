package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBlogID     = "blog_id"
	KeyBlogName   = "blog_name"
	KeyArticleID  = "article_id"
	KeyEntryID    = "entry_id"
	KeyPlatform   = "platform"
	KeyStage      = "stage"
	KeyStatus     = "status"
	KeyRetryCount = "retry_count"
	KeyDurationMS = "duration_ms"
	KeyTokens     = "tokens"
	KeyCost       = "cost_usd"
	KeySlug       = "slug"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BlogID(id int64) slog.Attr       { return slog.Int64(KeyBlogID, id) }
func BlogName(n string) slog.Attr     { return slog.String(KeyBlogName, n) }
func ArticleID(id int64) slog.Attr    { return slog.Int64(KeyArticleID, id) }
func EntryID(id int64) slog.Attr      { return slog.Int64(KeyEntryID, id) }
func Platform(p string) slog.Attr     { return slog.String(KeyPlatform, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func RetryCount(n int) slog.Attr      { return slog.Int(KeyRetryCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Tokens(n int) slog.Attr          { return slog.Int(KeyTokens, n) }
func Cost(usd float64) slog.Attr      { return slog.Float64(KeyCost, usd) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
