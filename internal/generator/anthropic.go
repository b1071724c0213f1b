package generator

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"

	"git.home.luguber.info/inful/blogsmith/internal/config"
	"git.home.luguber.info/inful/blogsmith/internal/errors"
	"git.home.luguber.info/inful/blogsmith/internal/logfields"
	"git.home.luguber.info/inful/blogsmith/internal/model"
)

//go:embed prompts/topic-system-prompt.md
var topicSystemPrompt string

//go:embed prompts/topic-user-prompt.md
var topicUserPrompt string

//go:embed prompts/draft-system-prompt.md
var draftSystemPrompt string

//go:embed prompts/draft-user-prompt.md
var draftUserPrompt string

//go:embed prompts/draft-output-schema.json
var draftOutputSchema string

// maxTopicLength bounds a generated topic. Anything longer is treated as the
// model ignoring instructions.
const maxTopicLength = 120

// promptFunc performs a single model call and returns the text of the first
// content block. Indirection point for tests.
type promptFunc func(system, user, schema string, settings types.RequestSettings) (string, error)

// AnthropicGenerator produces topics and drafts through the Anthropic API.
// It tracks cumulative spend and refuses further calls once the configured
// cost ceiling is reached.
type AnthropicGenerator struct {
	cfg    config.GeneratorConfig
	logger *slog.Logger
	prompt promptFunc

	mu    sync.Mutex
	spent float64
}

// NewAnthropicGenerator builds a generator from config. The API key must be
// present; config validation enforces that before we get here.
func NewAnthropicGenerator(cfg config.GeneratorConfig, logger *slog.Logger) *AnthropicGenerator {
	g := &AnthropicGenerator{
		cfg:    cfg,
		logger: logger,
	}
	g.prompt = func(system, user, schema string, settings types.RequestSettings) (string, error) {
		response, err := anthropic.PromptWithSettings(system, user, schema, cfg.APIKey, settings)
		if err != nil {
			return "", err
		}
		if len(response.Content) == 0 {
			return "", errors.GenerationMalformed("prompt", "empty response from model")
		}
		return response.Content[0].Text, nil
	}
	return g
}

// Spent reports the cumulative cost in USD recorded by this generator.
func (g *AnthropicGenerator) Spent() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spent
}

func (g *AnthropicGenerator) checkCeiling() error {
	if g.cfg.CostCeilingUSD <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.spent >= g.cfg.CostCeilingUSD {
		return errors.CostCeilingExceeded("generation", g.spent, g.cfg.CostCeilingUSD)
	}
	return nil
}

func (g *AnthropicGenerator) recordSpend(modelName string, u Usage) {
	g.mu.Lock()
	g.spent += Cost(modelName, u)
	g.mu.Unlock()
}

// GenerateTopic asks the topic model for a single fresh post topic, avoiding
// the recent titles supplied in bc.
func (g *AnthropicGenerator) GenerateTopic(ctx context.Context, bc BlogContext) (string, Usage, error) {
	if err := g.checkCeiling(); err != nil {
		return "", Usage{}, err
	}

	system := renderTemplate(topicSystemPrompt, bc, "")
	user := renderTemplate(topicUserPrompt, bc, "")

	settings := types.RequestSettings{
		Model:       g.cfg.TopicModel,
		MaxTokens:   g.cfg.TopicMaxTokens,
		Temperature: g.cfg.TopicTemperature,
	}

	text, err := g.call(ctx, system, user, "", settings)
	if err != nil {
		return "", Usage{}, errors.GenerationFailed("topic_generation", err)
	}

	usage := Usage{
		InputTokens:  estimateTokens(system + user),
		OutputTokens: estimateTokens(text),
	}
	g.recordSpend(g.cfg.TopicModel, usage)

	topic := strings.TrimSpace(strings.Trim(strings.TrimSpace(text), `"`))
	if topic == "" {
		return "", usage, errors.GenerationMalformed("topic_generation", "model returned an empty topic")
	}
	if utf8.RuneCountInString(topic) > maxTopicLength {
		return "", usage, errors.GenerationMalformed("topic_generation", "model returned an overlong topic")
	}
	for _, recent := range bc.RecentTitles {
		if strings.EqualFold(topic, strings.TrimSpace(recent)) {
			return "", usage, errors.GenerationMalformed("topic_generation", "model repeated a recent title")
		}
	}

	g.logger.Debug("topic generated",
		logfields.Tokens(usage.Total()),
		slog.String("topic", topic))
	return topic, usage, nil
}

// draftPayload mirrors the structured output schema for draft writing.
type draftPayload struct {
	Body    string   `json:"body"`
	Intent  string   `json:"intent"`
	Outline []string `json:"outline"`
	Images  int      `json:"images"`
	Locale  string   `json:"locale"`
}

// GenerateDraft writes a full markdown draft for the given topic.
func (g *AnthropicGenerator) GenerateDraft(ctx context.Context, topic string, bc BlogContext) (model.Draft, Usage, error) {
	if err := g.checkCeiling(); err != nil {
		return model.Draft{}, Usage{}, err
	}

	system := renderTemplate(draftSystemPrompt, bc, topic)
	user := renderTemplate(draftUserPrompt, bc, topic)

	settings := types.RequestSettings{
		Model:       g.cfg.DraftModel,
		MaxTokens:   g.cfg.DraftMaxTokens,
		Temperature: g.cfg.DraftTemperature,
	}

	text, err := g.call(ctx, system, user, draftOutputSchema, settings)
	if err != nil {
		return model.Draft{}, Usage{}, errors.GenerationFailed("draft_writing", err)
	}

	usage := Usage{
		InputTokens:  estimateTokens(system + user),
		OutputTokens: estimateTokens(text),
	}
	g.recordSpend(g.cfg.DraftModel, usage)

	var payload draftPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return model.Draft{}, usage, errors.GenerationMalformed("draft_writing", "draft response is not valid JSON")
	}
	if strings.TrimSpace(payload.Body) == "" {
		return model.Draft{}, usage, errors.GenerationMalformed("draft_writing", "draft body is empty")
	}

	draft := model.Draft{
		Topic:   topic,
		Body:    payload.Body,
		Intent:  payload.Intent,
		Outline: payload.Outline,
		Images:  payload.Images,
		Locale:  payload.Locale,
	}
	if draft.Images <= 0 {
		draft.Images = 4
	}
	if draft.Locale == "" {
		draft.Locale = bc.Locale
	}
	if len(draft.Outline) == 0 {
		draft.Outline = []string{"Overview", "Key steps", "Case study", "Cautions"}
	}

	g.logger.Debug("draft written",
		logfields.Tokens(usage.Total()),
		slog.Int("body_bytes", len(draft.Body)))
	return draft, usage, nil
}

// call runs the prompt with the configured timeout. The llmkit client does
// not take a context, so the call runs in a goroutine and we give up waiting
// when ctx or the timeout expires.
func (g *AnthropicGenerator) call(ctx context.Context, system, user, schema string, settings types.RequestSettings) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := g.prompt(system, user, schema, settings)
		ch <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.text, r.err
	}
}

// renderTemplate substitutes the template variables used across the prompt
// files. Unused variables in a given template are harmless.
func renderTemplate(tmpl string, bc BlogContext, topic string) string {
	recent := "(none)"
	if len(bc.RecentTitles) > 0 {
		recent = "- " + strings.Join(bc.RecentTitles, "\n- ")
	}
	out := strings.ReplaceAll(tmpl, "{{.BlogName}}", bc.BlogName)
	out = strings.ReplaceAll(out, "{{.Category}}", bc.Category)
	out = strings.ReplaceAll(out, "{{.Locale}}", bc.Locale)
	out = strings.ReplaceAll(out, "{{.RecentTitles}}", recent)
	out = strings.ReplaceAll(out, "{{.Topic}}", topic)
	return out
}
