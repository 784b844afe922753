package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// mockDraftAPI records which endpoints the publisher hits.
type mockDraftAPI struct {
	drafts    []DraftEntry
	listErr   error
	addErr    error
	updateErr error

	lookups int
	creates int
	updates int

	updatedID   string
	lastPayload *DraftPayload
}

func (m *mockDraftAPI) ListDrafts(ctx context.Context) ([]DraftEntry, error) {
	m.lookups++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.drafts, nil
}

func (m *mockDraftAPI) AddDraft(ctx context.Context, payload *DraftPayload) (string, error) {
	m.creates++
	m.lastPayload = payload
	if m.addErr != nil {
		return "", m.addErr
	}
	return "NEW1", nil
}

func (m *mockDraftAPI) UpdateDraft(ctx context.Context, draftID string, payload *DraftPayload) error {
	m.updates++
	m.updatedID = draftID
	m.lastPayload = payload
	return m.updateErr
}

func TestPublishUpdatesOnTitleMatch(t *testing.T) {
	api := &mockDraftAPI{drafts: []DraftEntry{
		{MediaID: "D1", Title: "Other"},
		{MediaID: "D2", Title: "Hello World"},
	}}
	p := NewDraftPublisher(api)

	result, err := p.Publish(context.Background(), &DraftPayload{Title: "Hello World"}, true)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if result.Action != ActionUpdated || result.DraftID != "D2" {
		t.Errorf("result = %+v, want updated D2", result)
	}
	if api.creates != 0 {
		t.Errorf("creates = %d, want 0 (update path never creates)", api.creates)
	}
	if api.updatedID != "D2" {
		t.Errorf("updated draft = %q", api.updatedID)
	}
}

func TestPublishExactTitleMatchOnly(t *testing.T) {
	api := &mockDraftAPI{drafts: []DraftEntry{
		{MediaID: "D1", Title: "Hello World!"},
		{MediaID: "D2", Title: "hello world"},
	}}
	p := NewDraftPublisher(api)

	result, err := p.Publish(context.Background(), &DraftPayload{Title: "Hello World"}, true)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if result.Action != ActionCreated {
		t.Errorf("action = %q, want created (near-matches do not count)", result.Action)
	}
}

func TestPublishNoCheckAlwaysCreates(t *testing.T) {
	api := &mockDraftAPI{drafts: []DraftEntry{{MediaID: "D1", Title: "Hello World"}}}
	p := NewDraftPublisher(api)

	result, err := p.Publish(context.Background(), &DraftPayload{Title: "Hello World"}, false)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if result.Action != ActionCreated || result.DraftID != "NEW1" {
		t.Errorf("result = %+v, want created NEW1", result)
	}
	if api.lookups != 0 {
		t.Errorf("lookups = %d, want 0 when check is disabled", api.lookups)
	}
}

func TestPublishLookupFailureDegradesToCreate(t *testing.T) {
	api := &mockDraftAPI{listErr: fmt.Errorf("batchget unavailable")}
	p := NewDraftPublisher(api)

	result, err := p.Publish(context.Background(), &DraftPayload{Title: "T"}, true)
	if err != nil {
		t.Fatalf("Publish() error = %v, lookup failure must not block publication", err)
	}
	if result.Action != ActionCreated {
		t.Errorf("action = %q, want created", result.Action)
	}
}

func TestPublishCreateRejection(t *testing.T) {
	api := &mockDraftAPI{addErr: &APIError{Code: 40007, Msg: "invalid media_id"}}
	p := NewDraftPublisher(api)

	_, err := p.Publish(context.Background(), &DraftPayload{Title: "T"}, false)

	var pubErr *PublishError
	if !errors.As(err, &pubErr) || pubErr.Op != "create" {
		t.Fatalf("Publish() error = %v, want PublishError on create", err)
	}
	if api.creates != 1 {
		t.Errorf("creates = %d, want exactly 1 (no double submission)", api.creates)
	}
}

func TestPublishUpdateRejection(t *testing.T) {
	api := &mockDraftAPI{
		drafts:    []DraftEntry{{MediaID: "D1", Title: "T"}},
		updateErr: &APIError{Code: 40007, Msg: "invalid media_id"},
	}
	p := NewDraftPublisher(api)

	_, err := p.Publish(context.Background(), &DraftPayload{Title: "T"}, true)

	var pubErr *PublishError
	if !errors.As(err, &pubErr) || pubErr.Op != "update" {
		t.Fatalf("Publish() error = %v, want PublishError on update", err)
	}
	if api.creates != 0 {
		t.Errorf("creates = %d, want 0 (no create fallback after failed update)", api.creates)
	}
}
