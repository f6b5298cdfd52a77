package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const judgeTitlePrompt = `You are a Quality Assurance bot for a News Scraper.
Is this text a valid NEWS ARTICLE HEADLINE?
YES: "Global markets rally as inflation drops", "Regeringen varsler nye reformer"
NO: "Menu", "Seneste nyt", "Mest læste", "Forside", "Log ind", "Abonnement"
Return ONLY JSON: {"is_valid": true/false}`

const judgeContentPrompt = `You are a Quality Assurance bot for a News Scraper.
Is this text valid ARTICLE CONTENT (body text, lead paragraph, or paywall teaser)?
YES: Narrative text, sentences, paragraphs. "Statsministeren udtalte i går..."
YES (Paywall): "Det var en mørk aften... [Log ind for at læse mere]"
NO: Lists of links ("Læs også: ..."), Navigation menus, Cookie banners, Footer text, Metadata only.
Return ONLY JSON: {"is_valid": true/false}`

const searchPatternPrompt = `Analyze this Homepage HTML and find the SEARCH URL pattern.
Look for <form action="..."> or <input name="q">
Return ONLY JSON: {"search_url_pattern": "https://domain.com/search?q={keyword}"} OR null.`

// judge asks the LLM whether extracted text is real headline or body
// material. Without a client, or on any API problem, the heuristic verdict
// stands (fail-open).
func (a *Analyzer) judge(ctx context.Context, systemPrompt, text string) bool {
	if a.ai == nil {
		return true
	}
	if runes := []rune(text); len(runes) > 500 {
		text = string(runes[:500])
	}

	content, err := a.complete(ctx, systemPrompt, "Analyze:\n"+text, 50)
	if err != nil {
		a.logger.Warn("selector judge failed, keeping heuristic verdict", slog.Any("error", err))
		return true
	}

	var verdict struct {
		IsValid bool `json:"is_valid"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &verdict); err != nil {
		a.logger.Warn("selector judge returned malformed verdict", slog.String("content", content))
		return true
	}
	return verdict.IsValid
}

// askSearchPattern lets the LLM read the homepage head for a search form the
// heuristics missed. Returns "" on any failure.
func (a *Analyzer) askSearchPattern(ctx context.Context, homepageHTML []byte) string {
	if a.ai == nil {
		return ""
	}
	head := string(homepageHTML)
	if len(head) > 8000 {
		head = head[:8000]
	}

	content, err := a.complete(ctx, searchPatternPrompt, head, 100)
	if err != nil {
		a.logger.Warn("search pattern detection failed", slog.Any("error", err))
		return ""
	}

	var result struct {
		SearchURLPattern string `json:"search_url_pattern"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &result); err != nil {
		return ""
	}
	if !strings.Contains(result.SearchURLPattern, "{keyword}") {
		return ""
	}
	return result.SearchURLPattern
}

func (a *Analyzer) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	resp, err := a.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func stripFences(content string) string {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}
