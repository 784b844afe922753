package main

import (
	"context"
	"log"
)

// DraftAPI is the slice of the platform client the publisher needs.
type DraftAPI interface {
	ListDrafts(ctx context.Context) ([]DraftEntry, error)
	AddDraft(ctx context.Context, payload *DraftPayload) (string, error)
	UpdateDraft(ctx context.Context, draftID string, payload *DraftPayload) error
}

// DraftPublisher submits the final payload, deciding between create and
// update by exact-title match against existing drafts.
type DraftPublisher struct {
	api DraftAPI
}

// NewDraftPublisher creates a publisher over the given draft API.
func NewDraftPublisher(api DraftAPI) *DraftPublisher {
	return &DraftPublisher{api: api}
}

// Publish runs the create-or-update decision and exactly one submission.
//
// With checkExisting, the lookup stage queries existing drafts for an exact
// title match; a match routes to update, no match to create. A failed lookup
// degrades to create rather than blocking publication, but loudly. Without
// checkExisting a new draft is always created, even when a same-titled one
// exists; the duplication is deliberate.
func (p *DraftPublisher) Publish(ctx context.Context, payload *DraftPayload, checkExisting bool) (*PublishResult, error) {
	if checkExisting {
		if draftID, found := p.lookup(ctx, payload.Title); found {
			log.Printf("→ Updating existing draft %s...", draftID)
			if err := p.api.UpdateDraft(ctx, draftID, payload); err != nil {
				return nil, &PublishError{Op: "update", Err: err}
			}
			return &PublishResult{Action: ActionUpdated, DraftID: draftID}, nil
		}
	}

	log.Printf("→ Creating draft %q...", payload.Title)
	draftID, err := p.api.AddDraft(ctx, payload)
	if err != nil {
		return nil, &PublishError{Op: "create", Err: err}
	}
	return &PublishResult{Action: ActionCreated, DraftID: draftID}, nil
}

// lookup finds a draft whose title equals the payload's exactly. Lookup
// failure is logged as a fallback to the create path, never silent.
func (p *DraftPublisher) lookup(ctx context.Context, title string) (string, bool) {
	entries, err := p.api.ListDrafts(ctx)
	if err != nil {
		log.Printf("✗ Draft lookup failed, falling back to create: %v", err)
		return "", false
	}

	for _, e := range entries {
		if e.Title == title {
			return e.MediaID, true
		}
	}
	return "", false
}
