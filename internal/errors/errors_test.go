package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := New(CategoryPublish, SeverityError, "boom")
	if !strings.Contains(e.Error(), "publish") || !strings.Contains(e.Error(), "boom") {
		t.Fatalf("unexpected error string: %s", e.Error())
	}

	cause := stderrors.New("connection reset")
	w := Wrap(cause, CategoryNetwork, SeverityWarning, "transport failed")
	if !strings.Contains(w.Error(), "connection reset") {
		t.Fatalf("wrapped error should include cause: %s", w.Error())
	}
	if !stderrors.Is(w, cause) {
		t.Fatal("Unwrap chain should reach the cause")
	}
}

func TestRetryableClassification(t *testing.T) {
	if IsRetryable(New(CategoryAuth, SeverityError, "forbidden")) {
		t.Fatal("plain New errors must not be retryable")
	}
	if !IsRetryable(Retryable(CategoryNetwork, SeverityWarning, "timeout")) {
		t.Fatal("Retryable constructor must mark error retryable")
	}
	if !IsRetryable(WrapRetryable(stderrors.New("eof"), CategoryNetwork, SeverityWarning, "eof")) {
		t.Fatal("WrapRetryable must mark error retryable")
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Fatal("non-structured errors are never retryable")
	}
}

func TestCategoryHelpers(t *testing.T) {
	e := GenerationMalformed("topic_generation", "empty output")
	if !IsCategory(e, CategoryGeneration) {
		t.Fatalf("expected generation category, got %s", GetCategory(e))
	}
	if GetCategory(stderrors.New("x")) != CategoryInternal {
		t.Fatal("plain errors should map to internal category")
	}
	if e.Context["stage"] != "topic_generation" {
		t.Fatalf("expected stage context, got %v", e.Context)
	}
}

func TestPublishConstructorsClassify(t *testing.T) {
	cause := stderrors.New("503 service unavailable")
	if !IsRetryable(PublishTransient("wordpress", cause)) {
		t.Fatal("transient publish failures are retryable")
	}
	if !IsRetryable(PublishTimeout("wordpress", cause)) {
		t.Fatal("timeouts are retryable")
	}
	if IsRetryable(PublishAuthRejected("wordpress", cause)) {
		t.Fatal("auth rejections are permanent")
	}
	if IsRetryable(PublishRejected("wordpress", "bad payload")) {
		t.Fatal("validation rejections are permanent")
	}
}
