package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// Summarizer produces an abstract for an article.
type Summarizer interface {
	Summarize(article *Article) (string, error)
}

// llmSummarizer drives the text-generation API through the llmkit client.
type llmSummarizer struct {
	apiKey   string
	model    string
	maxChars int
}

const summaryContentMaxChars = 8000

func (s *llmSummarizer) Summarize(article *Article) (string, error) {
	systemPrompt := fmt.Sprintf(
		"You write article abstracts. Produce a concise, engaging summary of the article, "+
			"at most %d characters, capturing the key takeaway. Respond with the summary only.",
		s.maxChars)

	content := article.BodyHTML
	if len(content) > summaryContentMaxChars {
		content = content[:summaryContentMaxChars]
	}
	userPrompt := fmt.Sprintf("Article title: %s\n\nArticle content:\n%s", article.Title, content)

	settings := types.RequestSettings{
		Model:       s.model,
		MaxTokens:   300,
		Temperature: 0.3,
	}
	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", s.apiKey, settings)
	if err != nil {
		return "", fmt.Errorf("summary agent failed: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in summary response")
	}

	return strings.TrimSpace(response.Content[0].Text), nil
}

// SummaryGenerator wraps a Summarizer with the best-effort contract: bounded
// timeout, never fatal. A missing summary leaves the digest empty.
type SummaryGenerator struct {
	summarizer Summarizer
	timeout    time.Duration
	maxChars   int
}

// NewSummaryGenerator creates a generator, or nil when the feature is
// disabled or no API key is configured. A nil generator produces "".
func NewSummaryGenerator(settings *Settings, apiKey string) *SummaryGenerator {
	if !settings.Summary.Enabled || apiKey == "" {
		return nil
	}
	return &SummaryGenerator{
		summarizer: &llmSummarizer{
			apiKey:   apiKey,
			model:    settings.Summary.Model,
			maxChars: settings.Summary.MaxChars,
		},
		timeout:  settings.SummaryTimeout(),
		maxChars: settings.Summary.MaxChars,
	}
}

// Generate returns the abstract, or "" on any failure or timeout. Errors are
// logged and swallowed; summary generation never aborts a run.
func (g *SummaryGenerator) Generate(ctx context.Context, article *Article) string {
	if g == nil {
		return ""
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := g.summarizer.Summarize(article)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		log.Printf("Summary generation canceled: %v", ctx.Err())
		return ""
	case <-time.After(g.timeout):
		log.Printf("Summary generation timed out after %s, continuing without digest", g.timeout)
		return ""
	case out := <-done:
		if out.err != nil {
			log.Printf("Summary generation failed, continuing without digest: %v", out.err)
			return ""
		}
		return truncateRunes(out.text, g.maxChars)
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
