package core

import "context"

// EmbedService turns text into a fixed-dimension vector. Implementations
// must report ErrEmbeddingUnavailable once the underlying engine has failed
// to initialize; that state is process-wide and permanent.
type EmbedService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// KnowledgeSearcher retrieves candidate knowledge entries for a creator.
// Implementations absorb tier-level failures; a returned error means the
// whole retrieval was impossible (embedding engine dead, every tier
// unreachable), not that nothing relevant was found.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, creator CreatorProfile, limit int) (SearchResult, error)
}

// ChatService is the language-model collaborator: an ordered list of
// role-tagged messages in, one text completion out.
type ChatService interface {
	Complete(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}
