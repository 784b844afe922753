package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// resolveStrategy maps media references to files for one media mode.
type resolveStrategy interface {
	resolveCover(article *Article) (*MediaReference, error)
	resolveInline(article *Article, ref *MediaReference) (string, error)
}

// MediaResolver fills in ResolvedPath for the cover and every inline
// reference. Resolution is read-only against the filesystem and deterministic:
// the same article and directories always resolve identically.
type MediaResolver struct {
	strategy resolveStrategy
}

// NewMediaResolver selects the strategy for the configured media mode.
func NewMediaResolver(settings *Settings) *MediaResolver {
	switch settings.Media.Mode {
	case ModeGenerated:
		return &MediaResolver{strategy: &generatedStrategy{}}
	default:
		return &MediaResolver{strategy: &preparedStrategy{
			coverDir:   settings.Paths.CoverDir,
			contentDir: settings.Paths.ContentDir,
		}}
	}
}

// Resolve locates the cover (if any) and every inline reference. A missing
// inline file fails the article; a missing cover only fails when the article
// named one explicitly.
func (r *MediaResolver) Resolve(article *Article) error {
	cover, err := r.strategy.resolveCover(article)
	if err != nil {
		return err
	}
	article.Cover = cover

	for _, ref := range article.Inline {
		path, err := r.strategy.resolveInline(article, ref)
		if err != nil {
			return err
		}
		ref.ResolvedPath = path
	}

	return nil
}

// preparedStrategy resolves against pre-prepared media directories.
type preparedStrategy struct {
	coverDir   string
	contentDir string
}

// resolveCover applies the priority order: explicit path, explicit id matched
// in the cover directory, then the single-candidate fallback. More than one
// fallback candidate is an error, not a silent pick.
func (s *preparedStrategy) resolveCover(article *Article) (*MediaReference, error) {
	inputDir := filepath.Dir(article.SourcePath)

	if coverPath := metaString(article.Metadata, "cover_image_path"); coverPath != "" {
		full := coverPath
		if !filepath.IsAbs(full) {
			full = filepath.Join(inputDir, coverPath)
		}
		if !fileExists(full) {
			return nil, &MediaNotFoundError{
				Ref:    &MediaReference{Kind: KindCover, SourceToken: coverPath},
				Detail: fmt.Sprintf("no file at %s", full),
			}
		}
		return &MediaReference{Kind: KindCover, MediaType: TypeImage, SourceToken: coverPath, ResolvedPath: full}, nil
	}

	if coverID := metaString(article.Metadata, "cover_image"); coverID != "" {
		match, err := s.matchInDir(s.coverDir, coverID)
		if err != nil {
			return nil, &MediaNotFoundError{
				Ref:    &MediaReference{Kind: KindCover, SourceToken: coverID},
				Detail: err.Error(),
			}
		}
		return &MediaReference{Kind: KindCover, MediaType: TypeImage, SourceToken: coverID, ResolvedPath: match}, nil
	}

	// No frontmatter hint: a lone file in the cover directory is unambiguous
	// enough to use. Zero candidates degrades to a coverless draft.
	candidates, err := listMediaFiles(s.coverDir)
	if err != nil || len(candidates) == 0 {
		log.Printf("No cover hint and no candidate in %s, proceeding without cover", s.coverDir)
		return nil, nil
	}
	if len(candidates) > 1 {
		return nil, &MediaNotFoundError{
			Ref:    &MediaReference{Kind: KindCover},
			Detail: fmt.Sprintf("%d candidates in %s and no frontmatter hint to choose one", len(candidates), s.coverDir),
		}
	}

	only := candidates[0]
	return &MediaReference{Kind: KindCover, MediaType: TypeImage, SourceToken: filepath.Base(only), ResolvedPath: only}, nil
}

// resolveInline locates one inline reference. Placeholder tokens look up the
// content directory by filename; link paths resolve relative to the input
// file's directory and fall back to the content directory.
func (s *preparedStrategy) resolveInline(article *Article, ref *MediaReference) (string, error) {
	inputDir := filepath.Dir(article.SourcePath)

	if ref.Placeholder {
		candidate := filepath.Join(s.contentDir, ref.SourceToken)
		if fileExists(candidate) {
			return candidate, nil
		}
		return "", &MediaNotFoundError{Ref: ref, Detail: fmt.Sprintf("no file named %s in %s", ref.SourceToken, s.contentDir)}
	}

	candidate := ref.SourceToken
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(inputDir, ref.SourceToken)
	}
	if fileExists(candidate) {
		return candidate, nil
	}

	fallback := filepath.Join(s.contentDir, filepath.Base(ref.SourceToken))
	if fileExists(fallback) {
		return fallback, nil
	}

	return "", &MediaNotFoundError{Ref: ref, Detail: fmt.Sprintf("tried %s and %s", candidate, fallback)}
}

// matchInDir finds a file in dir whose name, or name without extension,
// equals the id.
func (s *preparedStrategy) matchInDir(dir, id string) (string, error) {
	files, err := listMediaFiles(dir)
	if err != nil {
		return "", fmt.Errorf("scanning %s: %w", dir, err)
	}

	for _, f := range files {
		base := filepath.Base(f)
		if base == id || strings.TrimSuffix(base, filepath.Ext(base)) == id {
			return f, nil
		}
	}

	return "", fmt.Errorf("no file matching %q in %s", id, dir)
}

// generatedStrategy is the reserved API-generated media mode.
type generatedStrategy struct{}

func (s *generatedStrategy) resolveCover(article *Article) (*MediaReference, error) {
	return nil, fmt.Errorf("media mode %q is not implemented", ModeGenerated)
}

func (s *generatedStrategy) resolveInline(article *Article, ref *MediaReference) (string, error) {
	return "", fmt.Errorf("media mode %q is not implemented", ModeGenerated)
}

var mediaExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".mp4": true,
}

// listMediaFiles returns media files in dir in lexical order.
func listMediaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if mediaExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
