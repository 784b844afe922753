package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HtmlAssembler injects uploaded media URLs into the article body. Every
// inline reference's <img> keeps its source token as src until assembly
// rewrites it to the platform URL.
type HtmlAssembler struct{}

// Assemble returns the final HTML. With no inline references the body passes
// through byte-for-byte. An inline reference with no upload result, with a
// non-skipped result carrying no URL, or whose node never gets rewritten is
// an error: publishing a draft with broken media links is worse than failing.
// References skipped under the lenient policy have their nodes removed.
func (a *HtmlAssembler) Assemble(article *Article, results []*UploadResult) (string, error) {
	if len(article.Inline) == 0 {
		return article.BodyHTML, nil
	}

	byToken := make(map[string]*UploadResult, len(results))
	for _, r := range results {
		if r.Ref != nil && r.Ref.Kind == KindInline {
			byToken[r.Ref.SourceToken] = r
		}
	}

	for _, ref := range article.Inline {
		result, ok := byToken[ref.SourceToken]
		if !ok {
			return "", &AssemblyError{Token: ref.SourceToken, Detail: "no upload result"}
		}
		if !result.Skipped && result.URL == "" {
			return "", &AssemblyError{Token: ref.SourceToken, Detail: "upload produced no display URL"}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.BodyHTML))
	if err != nil {
		return "", fmt.Errorf("parsing article HTML: %w", err)
	}

	handled := make(map[string]bool, len(article.Inline))
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			return
		}
		token := src
		result, ok := byToken[token]
		if !ok {
			// The renderer percent-encodes image destinations, so a Chinese
			// filename surfaces escaped. Match on the decoded form.
			decoded, err := url.PathUnescape(src)
			if err != nil {
				return
			}
			token = decoded
			if result, ok = byToken[token]; !ok {
				return
			}
		}
		handled[token] = true
		if result.Skipped {
			s.Remove()
			return
		}
		s.SetAttr("src", result.URL)
	})

	for _, ref := range article.Inline {
		if !handled[ref.SourceToken] {
			return "", &AssemblyError{Token: ref.SourceToken, Detail: "no matching node in the rendered body"}
		}
	}

	// goquery wraps fragments in a full document; the body holds our content.
	html, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serializing article HTML: %w", err)
	}

	return html, nil
}
