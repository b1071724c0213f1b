package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BlogName", KeyBlogName, "tech-notes", BlogName("tech-notes")},
		{"Platform", KeyPlatform, "wordpress", Platform("wordpress")},
		{"Stage", KeyStage, "topic_generation", Stage("topic_generation")},
		{"Status", KeyStatus, "success", Status("success")},
		{"Slug", KeySlug, "hello-world", Slug("hello-world")},
		{"URL", KeyURL, "http://example", URL("http://example")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric & float helpers.
func TestNumericHelpers(t *testing.T) {
	if v := BlogID(5); v.Key != KeyBlogID {
		t.Fatalf("BlogID key mismatch: %s", v.Key)
	}
	if v := ArticleID(7); v.Key != KeyArticleID {
		t.Fatalf("ArticleID key mismatch: %s", v.Key)
	}
	if v := EntryID(9); v.Key != KeyEntryID {
		t.Fatalf("EntryID key mismatch: %s", v.Key)
	}
	if v := RetryCount(3); v.Key != KeyRetryCount {
		t.Fatalf("RetryCount key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
	if v := Tokens(800); v.Key != KeyTokens {
		t.Fatalf("Tokens key mismatch: %s", v.Key)
	}
	if v := Cost(0.0125); v.Key != KeyCost {
		t.Fatalf("Cost key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
