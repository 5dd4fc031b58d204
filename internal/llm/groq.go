// Package llm holds the chat-completion collaborator client and the prompt
// composition for grounded and fallback replies.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/monetizerai/creatorchat/internal/core"
	"github.com/monetizerai/creatorchat/internal/logging"
)

// GroqService implements core.ChatService against Groq's OpenAI-compatible
// chat completion API.
type GroqService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// groqError is the error envelope returned by the API.
type groqError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

type chatRequest struct {
	Model       string         `json:"model"`
	Messages    []core.Message `json:"messages"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message core.Message `json:"message"`
	} `json:"choices"`
}

// NewGroqService creates a new client. The HTTP timeout is generous; LLM
// completions routinely take tens of seconds.
func NewGroqService(apiKey, model, baseURL string, timeout time.Duration) *GroqService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GroqService{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Complete implements core.ChatService.
func (s *GroqService) Complete(ctx context.Context, messages []core.Message, params core.GenerationParams) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	})
	if err != nil {
		return "", goerr.Wrap(core.ErrCollaboratorCallFailed, "failed to marshal chat request", goerr.V("cause", err))
	}

	url := s.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", goerr.Wrap(core.ErrCollaboratorCallFailed, "failed to build chat request", goerr.V("cause", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	logging.From(ctx).Debug("calling chat completion API", "model", s.model, "messages", len(messages))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(core.ErrCollaboratorCallFailed, "chat completion request failed", goerr.V("cause", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(core.ErrCollaboratorCallFailed, "failed to read chat response", goerr.V("cause", err))
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr groqError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return "", goerr.Wrap(core.ErrCollaboratorCallFailed, "chat completion API error",
				goerr.V("status", resp.StatusCode),
				goerr.V("message", apiErr.Error.Message),
				goerr.V("type", apiErr.Error.Type))
		}
		return "", goerr.Wrap(core.ErrCollaboratorCallFailed, "chat completion API returned non-200 status",
			goerr.V("status", resp.StatusCode), goerr.V("body", string(body)))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", goerr.Wrap(core.ErrCollaboratorCallFailed, "failed to decode chat response", goerr.V("cause", err))
	}
	if len(out.Choices) == 0 {
		return "", goerr.Wrap(core.ErrCollaboratorCallFailed, "chat completion returned no choices")
	}

	return out.Choices[0].Message.Content, nil
}
