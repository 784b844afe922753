package main

import (
	"errors"
	"strings"
	"testing"
)

func TestAssembleNoInlineMediaIsIdentity(t *testing.T) {
	a := &HtmlAssembler{}
	body := "<h1>Title</h1>\n<p>Text with <em>markup</em> &amp; entities.</p>\n"

	article := &Article{BodyHTML: body}
	html, err := a.Assemble(article, nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if html != body {
		t.Errorf("Assemble() changed the body:\ngot  %q\nwant %q", html, body)
	}
}

func TestAssembleRewritesInlineSources(t *testing.T) {
	a := &HtmlAssembler{}
	refs := []*MediaReference{
		{Kind: KindInline, SourceToken: "pic.png", Position: 0},
		{Kind: KindInline, SourceToken: "images/chart.png", Position: 1},
	}
	article := &Article{
		BodyHTML: `<p><img src="pic.png" alt="a"></p><p><img src="images/chart.png" alt="b"></p><p><img src="https://other.example/keep.png"></p>`,
		Inline:   refs,
	}
	results := []*UploadResult{
		{Ref: refs[0], URL: "https://mmbiz.example/1"},
		{Ref: refs[1], URL: "https://mmbiz.example/2"},
	}

	html, err := a.Assemble(article, results)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if !strings.Contains(html, `src="https://mmbiz.example/1"`) {
		t.Errorf("pic.png not rewritten:\n%s", html)
	}
	if !strings.Contains(html, `src="https://mmbiz.example/2"`) {
		t.Errorf("images/chart.png not rewritten:\n%s", html)
	}
	if strings.Contains(html, `src="pic.png"`) {
		t.Errorf("original token survived:\n%s", html)
	}
	if !strings.Contains(html, `src="https://other.example/keep.png"`) {
		t.Errorf("unrelated image was touched:\n%s", html)
	}
}

func TestAssembleMatchesEncodedSources(t *testing.T) {
	a := &HtmlAssembler{}
	refs := []*MediaReference{
		{Kind: KindInline, SourceToken: "图表.png"},
	}
	// Markdown renderers percent-encode image destinations.
	article := &Article{
		BodyHTML: `<p><img src="%E5%9B%BE%E8%A1%A8.png" alt="图"></p>`,
		Inline:   refs,
	}
	results := []*UploadResult{{Ref: refs[0], URL: "https://mmbiz.example/ok"}}

	html, err := a.Assemble(article, results)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if !strings.Contains(html, `src="https://mmbiz.example/ok"`) {
		t.Errorf("encoded src not rewritten:\n%s", html)
	}
	if strings.Contains(html, "%E5%9B%BE") {
		t.Errorf("escaped local path survived into the draft:\n%s", html)
	}
}

func TestAssembleUnmatchedReferenceIsAnError(t *testing.T) {
	a := &HtmlAssembler{}
	refs := []*MediaReference{{Kind: KindInline, SourceToken: "orphan.png"}}
	article := &Article{
		BodyHTML: `<p>no image markup at all</p>`,
		Inline:   refs,
	}
	results := []*UploadResult{{Ref: refs[0], URL: "https://mmbiz.example/1"}}

	_, err := a.Assemble(article, results)
	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) {
		t.Fatalf("Assemble() error = %v, want AssemblyError for unrewritten reference", err)
	}
	if asmErr.Token != "orphan.png" {
		t.Errorf("error names %q, want orphan.png", asmErr.Token)
	}
}

func TestAssembleEmptyUploadURLIsAnError(t *testing.T) {
	a := &HtmlAssembler{}
	refs := []*MediaReference{
		{Kind: KindInline, MediaType: TypeVideo, SourceToken: "clip.mp4"},
	}
	article := &Article{
		BodyHTML: `<p><img src="clip.mp4"></p>`,
		Inline:   refs,
	}
	results := []*UploadResult{{Ref: refs[0], MediaID: "mid-clip"}}

	_, err := a.Assemble(article, results)
	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) {
		t.Fatalf("Assemble() error = %v, want AssemblyError for missing URL", err)
	}
	if asmErr.Token != "clip.mp4" {
		t.Errorf("error names %q, want clip.mp4", asmErr.Token)
	}
}

func TestAssembleMissingResultIsAnError(t *testing.T) {
	a := &HtmlAssembler{}
	refs := []*MediaReference{
		{Kind: KindInline, SourceToken: "pic.png"},
		{Kind: KindInline, SourceToken: "lost.png"},
	}
	article := &Article{
		BodyHTML: `<p><img src="pic.png"><img src="lost.png"></p>`,
		Inline:   refs,
	}
	results := []*UploadResult{{Ref: refs[0], URL: "https://mmbiz.example/1"}}

	_, err := a.Assemble(article, results)
	var asmErr *AssemblyError
	if !errors.As(err, &asmErr) {
		t.Fatalf("Assemble() error = %v, want AssemblyError", err)
	}
	if asmErr.Token != "lost.png" {
		t.Errorf("error names %q, want lost.png", asmErr.Token)
	}
}

func TestAssembleRemovesSkippedMedia(t *testing.T) {
	a := &HtmlAssembler{}
	refs := []*MediaReference{
		{Kind: KindInline, SourceToken: "pic.png"},
		{Kind: KindInline, SourceToken: "broken.png"},
	}
	article := &Article{
		BodyHTML: `<p>keep</p><p><img src="pic.png"></p><p><img src="broken.png"></p>`,
		Inline:   refs,
	}
	results := []*UploadResult{
		{Ref: refs[0], URL: "https://mmbiz.example/1"},
		{Ref: refs[1], Skipped: true},
	}

	html, err := a.Assemble(article, results)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if strings.Contains(html, "broken.png") {
		t.Errorf("skipped media should be removed, not published broken:\n%s", html)
	}
	if !strings.Contains(html, `src="https://mmbiz.example/1"`) {
		t.Errorf("surviving media not rewritten:\n%s", html)
	}
	if !strings.Contains(html, "<p>keep</p>") {
		t.Errorf("unrelated content lost:\n%s", html)
	}
}
