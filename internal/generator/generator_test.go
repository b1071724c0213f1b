package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/errors"
)

func testGenerator(t *testing.T, cfg config.GeneratorConfig, prompt promptFunc) *AnthropicGenerator {
	t.Helper()
	if cfg.TopicModel == "" {
		cfg.TopicModel = "claude-3-5-haiku-latest"
	}
	if cfg.DraftModel == "" {
		cfg.DraftModel = "claude-sonnet-4-20250514"
	}
	g := NewAnthropicGenerator(cfg, slog.New(slog.DiscardHandler))
	g.prompt = prompt
	return g
}

func TestGenerateTopicTrimsAndReturns(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{}, func(system, user, schema string, settings types.RequestSettings) (string, error) {
		if !strings.Contains(user, "Automating weekly posts") {
			t.Errorf("recent titles not rendered into prompt: %q", user)
		}
		return "  \"Choosing a static site generator in 2026\"  ", nil
	})

	topic, usage, err := g.GenerateTopic(context.Background(), BlogContext{
		BlogName:     "Ops Notebook",
		Category:     "infrastructure",
		Locale:       "en",
		RecentTitles: []string{"Automating weekly posts"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Choosing a static site generator in 2026", topic)
	assert.Greater(t, usage.Total(), 0)
}

func TestGenerateTopicRejectsEmpty(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{}, func(_, _, _ string, _ types.RequestSettings) (string, error) {
		return "   ", nil
	})

	_, _, err := g.GenerateTopic(context.Background(), BlogContext{BlogName: "b"})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryGeneration, errors.GetCategory(err))
	assert.False(t, errors.IsRetryable(err))
}

func TestGenerateTopicRejectsOverlong(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{}, func(_, _, _ string, _ types.RequestSettings) (string, error) {
		return strings.Repeat("very long title ", 20), nil
	})

	_, _, err := g.GenerateTopic(context.Background(), BlogContext{BlogName: "b"})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryGeneration, errors.GetCategory(err))
}

func TestGenerateTopicRejectsRepeatedTitle(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{}, func(_, _, _ string, _ types.RequestSettings) (string, error) {
		return "Automating weekly posts", nil
	})

	_, _, err := g.GenerateTopic(context.Background(), BlogContext{
		BlogName:     "b",
		RecentTitles: []string{"automating WEEKLY posts"},
	})
	require.Error(t, err)
}

func TestGenerateTopicWrapsTransportError(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{}, func(_, _, _ string, _ types.RequestSettings) (string, error) {
		return "", fmt.Errorf("connection reset")
	})

	_, _, err := g.GenerateTopic(context.Background(), BlogContext{BlogName: "b"})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryGeneration, errors.GetCategory(err))
}

func TestGenerateDraftParsesStructuredOutput(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{}, func(system, user, schema string, settings types.RequestSettings) (string, error) {
		if schema == "" {
			t.Error("draft call must pass the structured output schema")
		}
		return `{"body": "# Topic\n\nBody text.", "intent": "learn", "outline": ["Topic"], "images": 2, "locale": "en"}`, nil
	})

	draft, usage, err := g.GenerateDraft(context.Background(), "Topic", BlogContext{BlogName: "b", Locale: "en"})
	require.NoError(t, err)
	assert.Equal(t, "Topic", draft.Topic)
	assert.Contains(t, draft.Body, "Body text.")
	assert.Equal(t, 2, draft.Images)
	assert.Equal(t, "en", draft.Locale)
	assert.Greater(t, usage.Total(), 0)
}

func TestGenerateDraftRejectsInvalidJSON(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{}, func(_, _, _ string, _ types.RequestSettings) (string, error) {
		return "not json", nil
	})

	_, _, err := g.GenerateDraft(context.Background(), "Topic", BlogContext{BlogName: "b"})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryGeneration, errors.GetCategory(err))
}

func TestGenerateDraftRejectsEmptyBody(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{}, func(_, _, _ string, _ types.RequestSettings) (string, error) {
		return `{"body": "  ", "intent": "", "outline": [], "images": 0, "locale": ""}`, nil
	})

	_, _, err := g.GenerateDraft(context.Background(), "Topic", BlogContext{BlogName: "b"})
	require.Error(t, err)
}

func TestGenerateDraftFillsDefaults(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{}, func(_, _, _ string, _ types.RequestSettings) (string, error) {
		return `{"body": "# T\n\ntext", "intent": "", "outline": [], "images": 0, "locale": ""}`, nil
	})

	draft, _, err := g.GenerateDraft(context.Background(), "T", BlogContext{BlogName: "b", Locale: "sv"})
	require.NoError(t, err)
	assert.Equal(t, 4, draft.Images)
	assert.Equal(t, "sv", draft.Locale)
	assert.NotEmpty(t, draft.Outline)
}

func TestCostCeilingStopsFurtherCalls(t *testing.T) {
	calls := 0
	g := testGenerator(t, config.GeneratorConfig{CostCeilingUSD: 0.000001}, func(_, _, _ string, _ types.RequestSettings) (string, error) {
		calls++
		return "A perfectly reasonable topic", nil
	})

	_, _, err := g.GenerateTopic(context.Background(), BlogContext{BlogName: "b"})
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	_, _, err = g.GenerateTopic(context.Background(), BlogContext{BlogName: "b"})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "no call should be made past the ceiling")
	assert.Equal(t, errors.CategoryGeneration, errors.GetCategory(err))
}

func TestCallHonorsTimeout(t *testing.T) {
	g := testGenerator(t, config.GeneratorConfig{Timeout: 10 * time.Millisecond}, func(_, _, _ string, _ types.RequestSettings) (string, error) {
		time.Sleep(time.Second)
		return "too late", nil
	})

	start := time.Now()
	_, _, err := g.GenerateTopic(context.Background(), BlogContext{BlogName: "b"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCostKnownAndUnknownModels(t *testing.T) {
	u := Usage{InputTokens: 1000, OutputTokens: 1000}
	haiku := Cost("claude-3-5-haiku-latest", u)
	sonnet := Cost("claude-sonnet-4-20250514", u)
	unknown := Cost("mystery-model", u)

	assert.InDelta(t, 0.0048, haiku, 1e-9)
	assert.InDelta(t, 0.018, sonnet, 1e-9)
	assert.Equal(t, sonnet, unknown)
}

func TestUsageAccumulates(t *testing.T) {
	var u Usage
	u = u.Add(Usage{InputTokens: 10, OutputTokens: 5})
	u = u.Add(Usage{InputTokens: 1, OutputTokens: 2})
	assert.Equal(t, 11, u.InputTokens)
	assert.Equal(t, 7, u.OutputTokens)
	assert.Equal(t, 18, u.Total())
}
