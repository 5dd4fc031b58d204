package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/monetizerai/creatorchat/internal/chat"
	"github.com/monetizerai/creatorchat/internal/config"
	"github.com/monetizerai/creatorchat/internal/core"
	"github.com/monetizerai/creatorchat/internal/httpapi"
	"github.com/monetizerai/creatorchat/internal/session"
)

type stubSearcher struct {
	result core.SearchResult
	err    error
}

func (s *stubSearcher) Search(ctx context.Context, query string, creator core.CreatorProfile, limit int) (core.SearchResult, error) {
	return s.result, s.err
}

type stubCollaborator struct {
	reply string
	err   error
}

func (s *stubCollaborator) Complete(ctx context.Context, messages []core.Message, params core.GenerationParams) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestServer(t *testing.T, searcher core.KnowledgeSearcher, collab core.ChatService) *httpapi.Server {
	t.Helper()
	registry, err := config.NewRegistry([]core.CreatorProfile{
		{
			Name:        "Marques Brownlee",
			ID:          1,
			Specialty:   "smartphone and EV reviews",
			Avatar:      "/static/avatars/mkbhd.png",
			Description: "Quality tech videos",
			Credential:  core.Credential{Address: "localhost:19530", APIKey: "secret-key"},
		},
	})
	gt.NoError(t, err).Required()

	sessions := session.NewStore(0)
	t.Cleanup(sessions.Close)

	orchestrator := chat.New(registry, searcher, sessions, collab)
	return httpapi.New(orchestrator, registry, httpapi.WithModelName("llama-3.1-8b-instant"))
}

func postChat(t *testing.T, srv http.Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	gt.NoError(t, err).Required()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func groundedSearcher() *stubSearcher {
	sim := 0.9
	return &stubSearcher{result: core.SearchResult{
		Entries: []core.KnowledgeEntry{
			{ID: "e1", Title: "iPhone 17 Pro Review", Content: "Camera details.", Similarity: &sim},
		},
		Provenance: core.ProvenanceScored,
	}}
}

func TestChatGroundedResponse(t *testing.T) {
	srv := newTestServer(t, groundedSearcher(), &stubCollaborator{reply: "Camera answer."})

	rec := postChat(t, srv, map[string]any{
		"message":   "Tell me about the camera",
		"creator":   "Marques Brownlee",
		"sessionId": "sess-1",
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		Response         string `json:"response"`
		SessionID        string `json:"sessionId"`
		MessageCount     int    `json:"messageCount"`
		RAGUsed          *bool  `json:"rag_used"`
		KnowledgeEntries *int   `json:"knowledge_entries"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Value(t, resp.Response).Equal("Camera answer.")
	gt.Value(t, resp.SessionID).Equal("sess-1")
	gt.Value(t, resp.MessageCount).Equal(2)
	gt.Value(t, resp.RAGUsed).NotNil()
	gt.Bool(t, *resp.RAGUsed).True()
	gt.Value(t, resp.KnowledgeEntries).NotNil()
	gt.Value(t, *resp.KnowledgeEntries).Equal(1)
}

func TestChatGeneratesSessionID(t *testing.T) {
	srv := newTestServer(t, groundedSearcher(), &stubCollaborator{reply: "ok"})

	rec := postChat(t, srv, map[string]any{
		"message": "hello",
		"creator": "Marques Brownlee",
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Value(t, resp.SessionID).NotEqual("")
}

func TestChatDemoFallbackOmitsRetrievalFields(t *testing.T) {
	srv := newTestServer(t, groundedSearcher(), &stubCollaborator{err: goerr.New("api down")})

	rec := postChat(t, srv, map[string]any{
		"message":   "camera question",
		"creator":   "Marques Brownlee",
		"sessionId": "sess-demo",
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var raw map[string]any
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw)).Required()
	gt.Value(t, raw["sessionId"]).Equal("sess-demo")

	_, hasRAG := raw["rag_used"]
	gt.Bool(t, hasRAG).False()
	_, hasEntries := raw["knowledge_entries"]
	gt.Bool(t, hasEntries).False()
}

func TestChatRetrievalOutageStillAnswers(t *testing.T) {
	searcher := &stubSearcher{err: goerr.Wrap(core.ErrSearchFailed, "all tiers down")}
	srv := newTestServer(t, searcher, &stubCollaborator{reply: "unused"})

	rec := postChat(t, srv, map[string]any{
		"message":   "hello",
		"creator":   "Marques Brownlee",
		"sessionId": "sess-outage",
	})
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var raw map[string]any
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw)).Required()
	gt.String(t, raw["response"].(string)).Contains("I'm Marques from MKBHD")
	_, hasRAG := raw["rag_used"]
	gt.Bool(t, hasRAG).False()
}

func TestChatRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t, groundedSearcher(), &stubCollaborator{reply: "ok"})

	for _, body := range []map[string]any{
		{"creator": "Marques Brownlee"},
		{"message": "hello"},
		{},
	} {
		rec := postChat(t, srv, body)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)

		var resp map[string]string
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp["error"]).NotEqual("")
	}
}

func TestChatRejectsInvalidJSON(t *testing.T) {
	srv := newTestServer(t, groundedSearcher(), &stubCollaborator{reply: "ok"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, groundedSearcher(), &stubCollaborator{reply: "ok"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp map[string]any
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Value(t, resp["status"]).Equal("healthy")
	gt.Value(t, resp["model"]).Equal("llama-3.1-8b-instant")
}

func TestCreatorsListsProfilesWithoutCredentials(t *testing.T) {
	srv := newTestServer(t, groundedSearcher(), &stubCollaborator{reply: "ok"})

	req := httptest.NewRequest(http.MethodGet, "/api/creators", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	gt.String(t, rec.Body.String()).NotContains("secret-key")

	var resp struct {
		Creators []map[string]any `json:"creators"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Array(t, resp.Creators).Length(1).Required()
	gt.Value(t, resp.Creators[0]["name"]).Equal("Marques Brownlee")
	gt.Value(t, resp.Creators[0]["specialty"]).Equal("smartphone and EV reviews")
	_, hasCredential := resp.Creators[0]["credential"]
	gt.Bool(t, hasCredential).False()
}
