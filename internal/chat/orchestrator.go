// Package chat composes retrieval, relevance gating, prompt construction,
// session history, and the collaborator call into one request/response
// cycle. Every internal failure is absorbed into a canned reply; the caller
// always gets an answer.
package chat

import (
	"context"

	"github.com/monetizerai/creatorchat/internal/config"
	"github.com/monetizerai/creatorchat/internal/core"
	"github.com/monetizerai/creatorchat/internal/knowledge"
	"github.com/monetizerai/creatorchat/internal/llm"
	"github.com/monetizerai/creatorchat/internal/logging"
	"github.com/monetizerai/creatorchat/internal/session"
)

// retrieveLimit is how many knowledge entries one question pulls.
const retrieveLimit = 5

// generationParams tune grounded completions.
var generationParams = core.GenerationParams{
	MaxTokens:   2000,
	Temperature: 0.5,
}

// Result is one completed request/response cycle.
type Result struct {
	Text             string
	SessionID        string
	MessageCount     int
	UsedKnowledge    bool
	RetrievedEntries int

	// DemoFallback marks the collaborator-failure path; retrieval metadata
	// must be omitted from the transport response when set.
	DemoFallback bool
}

// Orchestrator owns one request/response cycle end to end.
type Orchestrator struct {
	registry     *config.Registry
	searcher     core.KnowledgeSearcher
	gate         *knowledge.Gate
	sessions     *session.Store
	collaborator core.ChatService
	prompts      *llm.PromptGenerator
}

// New wires the orchestrator.
func New(registry *config.Registry, searcher core.KnowledgeSearcher, sessions *session.Store, collaborator core.ChatService) *Orchestrator {
	return &Orchestrator{
		registry:     registry,
		searcher:     searcher,
		gate:         knowledge.NewGate(),
		sessions:     sessions,
		collaborator: collaborator,
		prompts:      llm.NewPromptGenerator(),
	}
}

// Respond answers one user message as the given creator within a session.
func (o *Orchestrator) Respond(ctx context.Context, message, creatorName, sessionID string) Result {
	logger := logging.From(ctx)

	creator := o.registry.Resolve(creatorName)
	sess := o.sessions.GetOrCreate(sessionID, creatorName)
	sess.Append(core.RoleUser, message)

	retrieved, err := o.searcher.Search(ctx, message, creator, retrieveLimit)
	if err != nil {
		// Total retrieval outage, as opposed to a clean "found nothing".
		logger.Warn("knowledge retrieval unavailable, using demo reply", "creator", creator.Name, "error", err)
		demo := o.prompts.DemoReply(creatorName, message)
		count := sess.Append(core.RoleAssistant, demo)
		return Result{
			Text:         demo,
			SessionID:    sessionID,
			MessageCount: count,
			DemoFallback: true,
		}
	}

	knowledgeContext := ""
	grounded := o.gate.Relevant(retrieved)
	if grounded {
		knowledgeContext = knowledge.BuildContext(retrieved)
		if !knowledge.UsableContext(knowledgeContext) {
			logger.Info("assembled context unusable, falling back", "creator", creator.Name)
			grounded = false
		}
	}

	if !grounded {
		text := o.prompts.NoKnowledgeReply(creator)
		count := sess.Append(core.RoleAssistant, text)
		return Result{
			Text:         text,
			SessionID:    sessionID,
			MessageCount: count,
		}
	}

	systemPrompt := o.prompts.GroundedSystemPrompt(creator, knowledgeContext, message)
	messages := append([]core.Message{{Role: core.RoleSystem, Content: systemPrompt}}, sess.Recent()...)

	text, err := o.collaborator.Complete(ctx, messages, generationParams)
	if err != nil {
		logger.Warn("collaborator call failed, using demo reply", "creator", creator.Name, "error", err)
		demo := o.prompts.DemoReply(creatorName, message)
		count := sess.Append(core.RoleAssistant, demo)
		return Result{
			Text:         demo,
			SessionID:    sessionID,
			MessageCount: count,
			DemoFallback: true,
		}
	}

	count := sess.Append(core.RoleAssistant, text)
	logger.Info("grounded response sent",
		"creator", creator.Name, "entries", len(retrieved.Entries), "provenance", retrieved.Provenance)
	return Result{
		Text:             text,
		SessionID:        sessionID,
		MessageCount:     count,
		UsedKnowledge:    true,
		RetrievedEntries: len(retrieved.Entries),
	}
}
