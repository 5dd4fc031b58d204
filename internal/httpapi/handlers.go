package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/monetizerai/creatorchat/internal/core"
	"github.com/monetizerai/creatorchat/internal/logging"
)

type chatAPIRequest struct {
	Message   string `json:"message"`
	Creator   string `json:"creator"`
	SessionID string `json:"sessionId"`
}

type chatAPIResponse struct {
	Response     string `json:"response"`
	SessionID    string `json:"sessionId"`
	MessageCount int    `json:"messageCount"`

	// Omitted entirely on the demo-fallback path.
	RAGUsed          *bool `json:"rag_used,omitempty"`
	KnowledgeEntries *int  `json:"knowledge_entries,omitempty"`
}

type creatorCard struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Specialty   string `json:"specialty"`
	Avatar      string `json:"avatar,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeClientError(w, r, goerr.Wrap(core.ErrMalformedRequest, "invalid JSON body", goerr.V("cause", err)))
		return
	}
	if req.Message == "" || req.Creator == "" {
		writeClientError(w, r, goerr.Wrap(core.ErrMalformedRequest, "message and creator are required"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result := s.orchestrator.Respond(r.Context(), req.Message, req.Creator, req.SessionID)

	resp := chatAPIResponse{
		Response:     result.Text,
		SessionID:    result.SessionID,
		MessageCount: result.MessageCount,
	}
	if !result.DemoFallback {
		resp.RAGUsed = &result.UsedKnowledge
		resp.KnowledgeEntries = &result.RetrievedEntries
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "creatorchat",
		"model":   s.model,
	})
}

func (s *Server) handleCreators(w http.ResponseWriter, r *http.Request) {
	profiles := s.registry.Creators()
	cards := make([]creatorCard, 0, len(profiles))
	for _, p := range profiles {
		cards = append(cards, creatorCard{
			ID:          p.ID,
			Name:        p.Name,
			Specialty:   p.Specialty,
			Avatar:      p.Avatar,
			Description: p.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"creators": cards})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().Error("failed to encode response", "error", err)
	}
}

// writeClientError is the one place an internal error becomes visible to a
// caller, and only for malformed input.
func writeClientError(w http.ResponseWriter, r *http.Request, err error) {
	logging.From(r.Context()).Warn("rejected request", "error", err)
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}
