// Package relevance filters scraped candidates through an LLM classifier
// before they are persisted. The filter is strictly fail-open: any API
// problem keeps the candidate rather than losing data.
package relevance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/resilience/circuitbreaker"
)

// Config tunes the relevance filter.
type Config struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible chat-completion endpoint.
	// Empty means the OpenAI default.
	BaseURL string
	Model   string
	// Concurrency bounds parallel classification calls.
	Concurrency int
	// Timeout is the per-call deadline.
	Timeout time.Duration
}

// DefaultConfig returns production settings, key left empty.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o-mini",
		Concurrency: 10,
		Timeout:     15 * time.Second,
	}
}

const (
	// maxTextChars bounds the classified text: the title plus the start of
	// the lead carries enough signal, and short prompts keep cost down.
	maxTextChars = 600
	// maxContextKeywords bounds the topic context in the prompt.
	maxContextKeywords = 20

	systemPrompt = "You are a strict relevance classifier. Reply ONLY with YES or NO. " +
		"Only YES if the article's primary subject matches. Default to NO when uncertain."
)

// Filter classifies candidates as relevant or not against the run's keywords.
type Filter struct {
	cfg     Config
	client  *openai.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// New creates the filter. With an empty API key the filter passes everything
// through unchanged.
func New(cfg Config, logger *slog.Logger) *Filter {
	f := &Filter{cfg: cfg, logger: logger}
	if cfg.APIKey == "" {
		return f
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	f.client = openai.NewClientWithConfig(clientCfg)
	f.breaker = circuitbreaker.New(circuitbreaker.OpenAIAPIConfig())
	return f
}

// Enabled reports whether classification calls will actually be made.
func (f *Filter) Enabled() bool { return f.client != nil }

// Filter returns the candidates judged relevant to the keywords. Candidates
// whose classification fails are kept. Order is preserved.
func (f *Filter) Filter(ctx context.Context, candidates []entity.RawCandidate, keywords []string) []entity.RawCandidate {
	if len(candidates) == 0 || len(keywords) == 0 || !f.Enabled() {
		return candidates
	}

	topicContext := strings.Join(keywords[:min(len(keywords), maxContextKeywords)], ", ")
	if len(keywords) > maxContextKeywords {
		topicContext += "..."
	}

	relevant := make([]bool, len(candidates))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.cfg.Concurrency)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		group.Go(func() error {
			keep := f.classify(groupCtx, candidate, topicContext)
			mu.Lock()
			relevant[i] = keep
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	kept := make([]entity.RawCandidate, 0, len(candidates))
	for i, candidate := range candidates {
		if relevant[i] {
			kept = append(kept, candidate)
		} else {
			f.logger.Debug("candidate filtered as irrelevant",
				slog.String("url", candidate.URL),
				slog.String("title", candidate.Title))
		}
	}
	if removed := len(candidates) - len(kept); removed > 0 {
		f.logger.Info("relevance filter done",
			slog.Int("kept", len(kept)),
			slog.Int("removed", removed))
	}
	return kept
}

// classify runs one chat completion. Any failure, including an open breaker,
// keeps the candidate.
func (f *Filter) classify(ctx context.Context, candidate entity.RawCandidate, topicContext string) bool {
	text := strings.TrimSpace(candidate.Title + ". " + candidate.Teaser)
	if text == "." || topicContext == "" {
		return true
	}
	if runes := []rune(text); len(runes) > maxTextChars {
		text = string(runes[:maxTextChars])
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	answer, err := f.breaker.Execute(func() (any, error) {
		resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: f.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: f.buildPrompt(text, topicContext)},
			},
			MaxTokens:   5,
			Temperature: 0,
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion: empty response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		f.logger.Warn("relevance check failed, keeping candidate",
			slog.String("url", candidate.URL),
			slog.Any("error", err))
		return true
	}

	// The model occasionally decorates the verdict ("YES.").
	return strings.Contains(strings.ToUpper(answer.(string)), "YES")
}

func (f *Filter) buildPrompt(text, topicContext string) string {
	return fmt.Sprintf(
		"You are a strict media analyst. Is the following article PRIMARILY about these topics: '%s'?\n\n"+
			"Article: '%s'\n\n"+
			"Rules:\n"+
			"- YES only if the article's main subject directly concerns the topics above\n"+
			"- NO if the topics appear only in sidebars, related links, ads, or as brief passing references\n"+
			"- NO if the article is primarily about something unrelated (sports, accidents, weather, politics, etc.)\n"+
			"- When in doubt, reply NO\n\n"+
			"Reply ONLY with YES or NO.",
		topicContext, text)
}
