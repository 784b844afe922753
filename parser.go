package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// frontmatterEnvelope captures the recognized keys; everything else passes
// through the inline map untouched.
type frontmatterEnvelope struct {
	Title          string         `yaml:"title"`
	Author         string         `yaml:"author"`
	Digest         string         `yaml:"digest"`
	CoverImage     string         `yaml:"cover_image"`
	CoverImagePath string         `yaml:"cover_image_path"`
	SourceURL      string         `yaml:"source_url"`
	Custom         map[string]any `yaml:",inline"`
}

var (
	// {{media:name.png}} placeholders and ![alt](target) image links, matched
	// together so document order is preserved.
	inlineMediaRe = regexp.MustCompile(`\{\{media:([^}\s]+)\}\}|!\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

	placeholderRe = regexp.MustCompile(`\{\{media:([^}\s]+)\}\}`)
)

// ArticleParser turns a Markdown file with YAML frontmatter into an Article.
type ArticleParser struct {
	settings *Settings
	renderer goldmark.Markdown
}

// NewArticleParser creates a parser with GFM extensions and raw HTML allowed,
// so pre-rendered HTML fragments in the body survive conversion.
func NewArticleParser(settings *Settings) *ArticleParser {
	return &ArticleParser{
		settings: settings,
		renderer: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(htmlrenderer.WithUnsafe()),
		),
	}
}

// ParseFile reads and parses the Markdown file at the given path.
func (p *ArticleParser) ParseFile(path string) (*Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return p.Parse(data, path)
}

// Parse builds the Article: frontmatter first, then inline media references in
// document order, then the rendered HTML body.
func (p *ArticleParser) Parse(source []byte, path string) (*Article, error) {
	var meta frontmatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}

	if strings.TrimSpace(meta.Title) == "" {
		return nil, fmt.Errorf("frontmatter is missing the required title key")
	}

	author := meta.Author
	if author == "" {
		author = p.settings.WeChat.DefaultAuthor
	}

	inline := collectInlineReferences(stripFencedBlocks(string(body)))

	// Placeholders become image syntax before rendering so every inline
	// reference surfaces as an <img> whose src is the source token. The
	// assembler rewrites by src.
	normalized := normalizePlaceholders(string(body))

	var rendered bytes.Buffer
	if err := p.renderer.Convert([]byte(normalized), &rendered); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	return &Article{
		Title:      meta.Title,
		Author:     author,
		Digest:     meta.Digest,
		SourceURL:  meta.SourceURL,
		SourcePath: path,
		BodyHTML:   rendered.String(),
		Metadata:   envelopeToMetadata(meta),
		Inline:     inline,
	}, nil
}

// collectInlineReferences scans Markdown for media mentions. Web URLs are not
// references; they stay as-is and are never uploaded. Repeated tokens collapse
// into one reference since one upload serves every occurrence. Callers strip
// fenced code blocks first so sample markup never becomes a reference.
func collectInlineReferences(body string) []*MediaReference {
	var refs []*MediaReference
	seen := make(map[string]bool)

	for _, m := range inlineMediaRe.FindAllStringSubmatch(body, -1) {
		token := m[1] // placeholder name
		placeholder := token != ""
		if token == "" {
			token = m[2] // image link target
		}
		if token == "" || isWebURL(token) || seen[token] {
			continue
		}
		seen[token] = true
		refs = append(refs, &MediaReference{
			Kind:        KindInline,
			MediaType:   mediaTypeFor(token),
			SourceToken: token,
			Position:    len(refs),
			Placeholder: placeholder,
		})
	}

	return refs
}

func isWebURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// stripFencedBlocks blanks fenced code blocks, fences included, so reference
// scanning never sees their contents.
func stripFencedBlocks(body string) string {
	lines := strings.Split(body, "\n")
	inFence := false
	for i, line := range lines {
		fence := isFenceLine(line)
		if fence || inFence {
			lines[i] = ""
		}
		if fence {
			inFence = !inFence
		}
	}
	return strings.Join(lines, "\n")
}

// normalizePlaceholders rewrites {{media:...}} tokens to image syntax on every
// line outside fenced code blocks. Fenced content renders literally and must
// stay untouched.
func normalizePlaceholders(body string) string {
	lines := strings.Split(body, "\n")
	inFence := false
	for i, line := range lines {
		if isFenceLine(line) {
			inFence = !inFence
			continue
		}
		if !inFence {
			lines[i] = placeholderRe.ReplaceAllString(line, "![$1]($1)")
		}
	}
	return strings.Join(lines, "\n")
}

func isFenceLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

// mediaTypeFor classifies by extension. Only mp4 is accepted as video; the
// platform rejects other container formats.
func mediaTypeFor(token string) MediaType {
	if strings.EqualFold(filepath.Ext(token), ".mp4") {
		return TypeVideo
	}
	return TypeImage
}

// envelopeToMetadata flattens known and custom keys into the open metadata
// map, custom keys first so recognized ones win on collision.
func envelopeToMetadata(meta frontmatterEnvelope) map[string]any {
	md := make(map[string]any, len(meta.Custom)+6)
	for k, v := range meta.Custom {
		md[k] = v
	}
	if meta.Title != "" {
		md["title"] = meta.Title
	}
	if meta.Author != "" {
		md["author"] = meta.Author
	}
	if meta.Digest != "" {
		md["digest"] = meta.Digest
	}
	if meta.CoverImage != "" {
		md["cover_image"] = meta.CoverImage
	}
	if meta.CoverImagePath != "" {
		md["cover_image_path"] = meta.CoverImagePath
	}
	if meta.SourceURL != "" {
		md["source_url"] = meta.SourceURL
	}
	return md
}

// metaString returns a string metadata value, or empty if absent or not a string.
func metaString(md map[string]any, key string) string {
	if v, ok := md[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// metaBool returns a bool metadata value, falling back when absent or mistyped.
func metaBool(md map[string]any, key string, fallback bool) bool {
	if v, ok := md[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}
