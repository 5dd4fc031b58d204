package core

// Provenance records how a search result was produced. Entries from a scored
// tier carry per-entry similarities; entries from the raw fallback do not,
// and the relevance gate treats the two differently.
type Provenance string

const (
	ProvenanceScored   Provenance = "scored"
	ProvenanceUnscored Provenance = "unscored"
)

// KnowledgeEntry is one retrieval candidate from a creator's corpus. Corpora
// differ per creator, so every text field is optional; normalization happens
// once at the datastore boundary, not at context-build time.
type KnowledgeEntry struct {
	ID          string         `json:"id"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Content     string         `json:"content,omitempty"`
	Transcript  string         `json:"transcript,omitempty"`
	Source      string         `json:"source,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	// Similarity is set only when a retrieval tier scored this entry.
	Similarity *float64 `json:"similarity,omitempty"`
}

// SearchResult is an ordered sequence of knowledge entries plus the
// provenance of the tier that produced them.
type SearchResult struct {
	Entries    []KnowledgeEntry `json:"entries"`
	Provenance Provenance       `json:"provenance"`
}

// Empty reports whether the result holds no entries.
func (r SearchResult) Empty() bool {
	return len(r.Entries) == 0
}

// BestSimilarity returns the highest similarity across entries, or 0 when no
// entry carries a score.
func (r SearchResult) BestSimilarity() float64 {
	best := 0.0
	for _, e := range r.Entries {
		if e.Similarity != nil && *e.Similarity > best {
			best = *e.Similarity
		}
	}
	return best
}

// Credential is an opaque datastore access credential for one creator
// tenant. The pipeline never inspects it beyond presence.
type Credential struct {
	Address string `json:"address" toml:"address"`
	APIKey  string `json:"api_key" toml:"api_key" masq:"secret"`
}

// Present reports whether the credential can be used to open a connection.
func (c Credential) Present() bool {
	return c.Address != ""
}

// CreatorProfile identifies one creator tenant and where their knowledge
// lives.
type CreatorProfile struct {
	Name        string     `json:"name" toml:"name"`
	ID          int64      `json:"id" toml:"id"`
	Specialty   string     `json:"specialty" toml:"specialty"`
	Description string     `json:"description,omitempty" toml:"description"`
	Avatar      string     `json:"avatar,omitempty" toml:"avatar"`
	Collection  string     `json:"knowledge_table" toml:"knowledge_table"`
	Credential  Credential `json:"-" toml:"credential"`
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerationParams tune a chat completion request.
type GenerationParams struct {
	MaxTokens   int
	Temperature float64
}
