package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PlatformAPI is everything the pipeline needs from the platform client.
type PlatformAPI interface {
	MediaAPI
	DraftAPI
}

// Pipeline sequences the publishing stages and owns the degrade-vs-abort
// policy: resolver, cover-upload, assembler, and publisher failures are
// fatal; summary failures never are.
type Pipeline struct {
	settings  *Settings
	parser    *ArticleParser
	resolver  *MediaResolver
	uploader  *MediaUploader
	summary   *SummaryGenerator
	assembler *HtmlAssembler
	publisher *DraftPublisher
}

// NewPipeline wires the stages around the given platform API.
func NewPipeline(settings *Settings, api PlatformAPI, summary *SummaryGenerator) *Pipeline {
	return &Pipeline{
		settings:  settings,
		parser:    NewArticleParser(settings),
		resolver:  NewMediaResolver(settings),
		uploader:  NewMediaUploader(api, settings),
		summary:   summary,
		assembler: &HtmlAssembler{},
		publisher: NewDraftPublisher(api),
	}
}

// Run executes the full sequence for one article and returns the publish
// result. Any fatal error surfaces as a StageError naming the failed stage.
func (p *Pipeline) Run(ctx context.Context, inputPath string, checkExisting bool) (*PublishResult, error) {
	log.Printf("→ Parsing %s...", inputPath)
	article, err := p.parser.ParseFile(inputPath)
	if err != nil {
		return nil, &StageError{Stage: "parse", Err: err}
	}

	log.Printf("→ Resolving media for %q...", article.Title)
	if err := p.resolver.Resolve(article); err != nil {
		return nil, &StageError{Stage: "resolve", Err: err}
	}

	// Summary generation has no dependency on media, so it overlaps the
	// upload stage. A frontmatter digest wins over a generated one.
	digestCh := make(chan string, 1)
	if article.Digest == "" {
		go func() { digestCh <- p.summary.Generate(ctx, article) }()
	} else {
		digestCh <- article.Digest
	}

	results, err := p.uploader.UploadAll(ctx, article)
	if err != nil {
		return nil, &StageError{Stage: "upload", Err: err}
	}

	log.Printf("→ Assembling final HTML...")
	html, err := p.assembler.Assemble(article, results)
	if err != nil {
		return nil, &StageError{Stage: "assemble", Err: err}
	}
	article.BodyHTML = html

	p.savePreview(article)

	payload := p.buildPayload(article, <-digestCh, coverResult(results))

	result, err := p.publisher.Publish(ctx, payload, checkExisting)
	if err != nil {
		return nil, &StageError{Stage: "publish", Err: err}
	}

	log.Printf("✓ Draft %s: %s", result.Action, result.DraftID)
	return result, nil
}

// buildPayload assembles the draft payload once. Boolean flags default from
// settings and may be overridden per article in frontmatter.
func (p *Pipeline) buildPayload(article *Article, digest string, cover *UploadResult) *DraftPayload {
	w := p.settings.WeChat
	payload := &DraftPayload{
		Title:              article.Title,
		Author:             article.Author,
		Digest:             digest,
		Content:            article.BodyHTML,
		ContentSourceURL:   article.SourceURL,
		NeedOpenComment:    boolToInt(metaBool(article.Metadata, "need_open_comment", w.NeedOpenComment)),
		OnlyFansCanComment: boolToInt(metaBool(article.Metadata, "only_fans_can_comment", w.OnlyFansCanComment)),
		IsOriginal:         boolToInt(metaBool(article.Metadata, "original", w.Original)),
		OpenAppreciation:   boolToInt(metaBool(article.Metadata, "appreciation", w.Appreciation)),
		OpenRecommendation: boolToInt(metaBool(article.Metadata, "recommendation", w.Recommendation)),
	}
	if cover != nil {
		payload.ThumbMediaID = cover.MediaID
	}
	return payload
}

// savePreview writes the assembled HTML next to the run's other output. The
// preview is a convenience; failures are logged and never abort the run.
func (p *Pipeline) savePreview(article *Article) {
	dir := p.settings.Paths.OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Failed to create output directory %s: %v", dir, err)
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("preview-%s.html", slugify(article.Title)))
	if err := os.WriteFile(path, []byte(article.BodyHTML), 0644); err != nil {
		log.Printf("Failed to save HTML preview: %v", err)
		return
	}
	log.Printf("→ Saved preview to %s", path)
}

// slugify creates a filesystem-safe slug from an article title.
func slugify(title string) string {
	slug := strings.ToLower(title)
	slug = regexp.MustCompile(`[^a-z0-9]+`).ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}
	if slug == "" {
		return "article"
	}
	return slug
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
