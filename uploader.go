package main

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// MediaAPI is the slice of the platform client the uploader needs.
type MediaAPI interface {
	UploadMaterial(ctx context.Context, path string, mediaType MediaType) (mediaID, url string, err error)
	UploadContentImage(ctx context.Context, path string) (url string, err error)
}

// MediaUploader pushes resolved media to the platform. The cover goes first,
// through the permanent-material endpoint, because the draft payload needs its
// handle no matter what happens to inline media. Inline uploads then run with
// bounded concurrency.
//
// Inline failure policy is configured once per run: strict aborts the whole
// upload, lenient marks the result skipped and continues.
type MediaUploader struct {
	api         MediaAPI
	policy      UploadPolicy
	concurrency int
}

// NewMediaUploader creates an uploader with the configured policy.
func NewMediaUploader(api MediaAPI, settings *Settings) *MediaUploader {
	return &MediaUploader{
		api:         api,
		policy:      settings.Media.UploadPolicy,
		concurrency: settings.Media.Concurrency,
	}
}

// UploadAll uploads the cover and every resolved inline reference, returning
// results with the cover (when present) first. A cover failure always aborts;
// inline failures follow the configured policy.
func (u *MediaUploader) UploadAll(ctx context.Context, article *Article) ([]*UploadResult, error) {
	var results []*UploadResult

	if article.Cover != nil {
		log.Printf("→ Uploading cover %s...", article.Cover.ResolvedPath)
		mediaID, url, err := u.api.UploadMaterial(ctx, article.Cover.ResolvedPath, article.Cover.MediaType)
		if err != nil {
			return nil, &UploadError{Ref: article.Cover, Err: err}
		}
		results = append(results, &UploadResult{Ref: article.Cover, MediaID: mediaID, URL: url})
	}

	inline, err := u.uploadInline(ctx, article.Inline)
	if err != nil {
		return nil, err
	}

	return append(results, inline...), nil
}

// uploadInline runs inline uploads concurrently, bounded by the configured
// limit, and returns results in reference order.
func (u *MediaUploader) uploadInline(ctx context.Context, refs []*MediaReference) ([]*UploadResult, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	results := make([]*UploadResult, len(refs))
	errs := make([]error, len(refs))
	sem := make(chan struct{}, u.concurrency)

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref *MediaReference) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := u.uploadOne(ctx, ref)
			results[i] = result
			errs[i] = err
		}(i, ref)
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		if u.policy == PolicyStrict {
			return nil, &UploadError{Ref: refs[i], Err: err}
		}
		log.Printf("✗ Inline upload failed for %s, skipping (lenient policy): %v", refs[i].SourceToken, err)
		results[i] = &UploadResult{Ref: refs[i], Skipped: true}
	}

	return results, nil
}

func (u *MediaUploader) uploadOne(ctx context.Context, ref *MediaReference) (*UploadResult, error) {
	log.Printf("→ Uploading inline %s %s...", ref.MediaType, ref.ResolvedPath)

	// Videos go through the material endpoint since uploadimg only accepts
	// images. The platform may omit the display URL for video material, and
	// without one the video cannot be embedded in the body.
	if ref.MediaType == TypeVideo {
		mediaID, url, err := u.api.UploadMaterial(ctx, ref.ResolvedPath, TypeVideo)
		if err != nil {
			return nil, err
		}
		if url == "" {
			return nil, fmt.Errorf("material upload returned no display URL for %s", ref.SourceToken)
		}
		return &UploadResult{Ref: ref, MediaID: mediaID, URL: url}, nil
	}

	url, err := u.api.UploadContentImage(ctx, ref.ResolvedPath)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Ref: ref, URL: url}, nil
}

// coverResult pulls the cover's upload result out of the sequence, if any.
func coverResult(results []*UploadResult) *UploadResult {
	for _, r := range results {
		if r.Ref != nil && r.Ref.Kind == KindCover {
			return r
		}
	}
	return nil
}
