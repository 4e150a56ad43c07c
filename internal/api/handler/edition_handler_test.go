package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

func TestEditionHandler_Upsert_FlattenedPayload(t *testing.T) {
	stub := &stubEditionService{
		upsertFn: func(ctx context.Context, e domain.Edition) (*domain.Edition, error) {
			if e.ID != "ed-1" || e.EditionNumber != 7 || e.Status != domain.EditionDraft {
				t.Fatalf("unexpected attributes %+v", e)
			}
			if e.Content.Hero.Headline != "Neon nights" || len(e.Content.Tracks) != 1 {
				t.Fatalf("content not parsed: %+v", e.Content)
			}
			if _, ok := e.Content.Extra["partners"]; !ok {
				t.Fatalf("unknown sections must be kept, got %v", e.Content.Extra)
			}
			if _, ok := e.Content.Extra["createdAt"]; ok {
				t.Fatalf("edition attributes must not leak into content")
			}
			e.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			return &e, nil
		},
	}
	body := `{
		"id": "ed-1",
		"editionNumber": 7,
		"status": "draft",
		"createdAt": "2020-01-01T00:00:00Z",
		"hero": {"headline": "Neon nights", "stats": []},
		"tracks": [{"name": "Docks", "rating": 8.5, "laps": 3}],
		"partners": [{"name": "Turbo Co"}]
	}`
	c, rec := jsonContext(http.MethodPost, "/api/editions", body)

	if err := NewEditionHandler(stub).Upsert(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]json.RawMessage
	decode(t, rec, &resp)
	for _, key := range []string{"id", "editionNumber", "status", "createdAt", "publishedAt", "hero", "tracks", "partners"} {
		if _, ok := resp[key]; !ok {
			t.Fatalf("missing key %q in %s", key, rec.Body.String())
		}
	}
	if string(resp["publishedAt"]) != "null" {
		t.Fatalf("draft publishedAt must be null, got %s", resp["publishedAt"])
	}
	if string(resp["createdAt"]) != `"2026-01-01T00:00:00Z"` {
		t.Fatalf("createdAt must come from the stored edition, got %s", resp["createdAt"])
	}
}

func TestEditionHandler_Upsert_InvalidPayload(t *testing.T) {
	c, _ := jsonContext(http.MethodPost, "/api/editions", `{"editionNumber":"seven"}`)

	assertHTTPError(t, NewEditionHandler(&stubEditionService{}).Upsert(c), http.StatusBadRequest)
}

func TestEditionHandler_GetPublished_NotFound(t *testing.T) {
	stub := &stubEditionService{
		publishedFn: func(ctx context.Context) (*domain.Edition, error) {
			return nil, domain.ErrNoPublishedEdition
		},
	}
	c, _ := jsonContext(http.MethodGet, "/api/editions/published", "")

	if err := NewEditionHandler(stub).GetPublished(c); !errors.Is(err, domain.ErrNoPublishedEdition) {
		t.Fatalf("expected ErrNoPublishedEdition, got %v", err)
	}
}

func TestEditionHandler_List(t *testing.T) {
	stub := &stubEditionService{
		listFn: func(ctx context.Context) ([]domain.Edition, error) {
			return []domain.Edition{
				{ID: "b", EditionNumber: 2, Status: domain.EditionPublished, Content: domain.NewDraftContent(2)},
				{ID: "a", EditionNumber: 1, Status: domain.EditionDraft, Content: domain.NewDraftContent(1)},
			}, nil
		},
	}
	c, rec := jsonContext(http.MethodGet, "/api/editions", "")

	if err := NewEditionHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp []map[string]any
	decode(t, rec, &resp)
	if len(resp) != 2 || resp[0]["id"] != "b" || resp[0]["status"] != "published" {
		t.Fatalf("unexpected list %+v", resp)
	}
	hero, _ := resp[1]["hero"].(map[string]any)
	if hero["headline"] != "Edition #1" {
		t.Fatalf("content must be flattened, got %+v", resp[1])
	}
}

func TestEditionHandler_CreateDraft(t *testing.T) {
	stub := &stubEditionService{
		draftFn: func(ctx context.Context) (*domain.Edition, error) {
			return &domain.Edition{ID: "n", EditionNumber: 3, Status: domain.EditionDraft, Content: domain.NewDraftContent(3)}, nil
		},
	}
	c, rec := jsonContext(http.MethodPost, "/api/editions/draft", "")

	if err := NewEditionHandler(stub).CreateDraft(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestEditionHandler_PublishAndDelete(t *testing.T) {
	now := time.Now().UTC()
	stub := &stubEditionService{
		publishFn: func(ctx context.Context, id string) (*domain.Edition, error) {
			if id != "ed-1" {
				t.Fatalf("unexpected id %q", id)
			}
			return &domain.Edition{ID: id, EditionNumber: 1, Status: domain.EditionPublished, PublishedAt: &now}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			if id != "ed-1" {
				t.Fatalf("unexpected id %q", id)
			}
			return nil
		},
	}
	h := NewEditionHandler(stub)

	c, rec := jsonContext(http.MethodPost, "/api/editions/ed-1/publish", "")
	c.SetParamNames("id")
	c.SetParamValues("ed-1")
	if err := h.Publish(c); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	var published map[string]any
	decode(t, rec, &published)
	if published["status"] != "published" || published["publishedAt"] == nil {
		t.Fatalf("unexpected publish response %+v", published)
	}

	c, rec = jsonContext(http.MethodDelete, "/api/editions/ed-1", "")
	c.SetParamNames("id")
	c.SetParamValues("ed-1")
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	var deleted successResponse
	decode(t, rec, &deleted)
	if !deleted.Success {
		t.Fatalf("expected success flag")
	}
}
