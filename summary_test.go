package main

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestNilGeneratorProducesEmptyDigest(t *testing.T) {
	var g *SummaryGenerator
	if got := g.Generate(context.Background(), &Article{Title: "T"}); got != "" {
		t.Errorf("Generate() = %q, want empty from nil generator", got)
	}
}

func TestNewSummaryGeneratorDisabled(t *testing.T) {
	settings := newTestSettings(t)

	settings.Summary.Enabled = false
	if g := NewSummaryGenerator(settings, "key"); g != nil {
		t.Error("expected nil generator when summary is disabled")
	}

	settings.Summary.Enabled = true
	if g := NewSummaryGenerator(settings, ""); g != nil {
		t.Error("expected nil generator without an API key")
	}
	if g := NewSummaryGenerator(settings, "key"); g == nil {
		t.Error("expected generator when enabled with a key")
	}
}

type errorSummarizer struct{}

func (errorSummarizer) Summarize(article *Article) (string, error) {
	return "", fmt.Errorf("model unavailable")
}

func TestGenerateSwallowsSummarizerError(t *testing.T) {
	g := &SummaryGenerator{summarizer: errorSummarizer{}, timeout: time.Second, maxChars: 120}
	if got := g.Generate(context.Background(), &Article{Title: "T"}); got != "" {
		t.Errorf("Generate() = %q, want empty on summarizer failure", got)
	}
}

func TestGenerateTruncatesToMaxChars(t *testing.T) {
	g := &SummaryGenerator{
		summarizer: &stubSummarizer{text: "这是一段很长的摘要文字，超出了允许的最大长度限制"},
		timeout:    time.Second,
		maxChars:   8,
	}

	got := g.Generate(context.Background(), &Article{Title: "T"})
	if runes := []rune(got); len(runes) != 8 {
		t.Errorf("Generate() = %q (%d runes), want 8 runes", got, len(runes))
	}
}

func TestGenerateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &SummaryGenerator{
		summarizer: &stubSummarizer{text: "done", delay: 100 * time.Millisecond},
		timeout:    time.Second,
		maxChars:   120,
	}
	if got := g.Generate(ctx, &Article{Title: "T"}); got != "" {
		t.Errorf("Generate() = %q, want empty on canceled context", got)
	}
}
