package knowledge

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/monetizerai/creatorchat/internal/core"
	"github.com/monetizerai/creatorchat/internal/logging"
)

// Retrieval thresholds. The server-side search trusts only strong matches;
// the client-side pass keeps almost anything and lets the relevance gate
// decide.
const (
	serverSideThreshold  = 0.7
	bruteForceFloor      = 0.1
	bruteForceFetchLimit = 100
)

// Client runs the three-tier fallback retrieval. Individual tier failures
// are diagnostics, not errors; a chain exhausted by empty answers yields an
// empty result, and only a chain where every tier errored reports
// ErrSearchFailed.
type Client struct {
	store    Store
	embedder core.EmbedService
}

// NewClient wires the datastore boundary and the embedding provider.
func NewClient(store Store, embedder core.EmbedService) *Client {
	return &Client{store: store, embedder: embedder}
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeEmpty
	outcomeError
)

// outcome is the typed result of one retrieval strategy attempt.
type outcome struct {
	kind       outcomeKind
	entries    []core.KnowledgeEntry
	provenance core.Provenance
	err        error
}

// strategy is one ordered step of the fallback chain. advanceOnEmpty
// distinguishes the server-side tier (an empty answer there still warrants
// a local pass) from the brute-force tier (an empty answer there is final;
// only an error triggers the raw fallback).
type strategy struct {
	name           string
	advanceOnEmpty bool
	run            func(ctx context.Context) outcome
}

// Search implements core.KnowledgeSearcher.
func (c *Client) Search(ctx context.Context, query string, creator core.CreatorProfile, limit int) (core.SearchResult, error) {
	logger := logging.From(ctx)

	if !creator.Credential.Present() {
		logger.Warn("no datastore configuration for creator, skipping retrieval", "creator", creator.Name)
		return core.SearchResult{}, nil
	}

	// One embedding per incoming query; reused by every tier. Without it
	// no tier can run, which is an outage, not a missing-knowledge case.
	queryVec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("query embedding unavailable, skipping retrieval", "creator", creator.Name, "error", err)
		return core.SearchResult{}, goerr.Wrap(err, "query embedding unavailable", goerr.V("creator", creator.Name))
	}

	strategies := []strategy{
		{
			name:           "server_side_scored",
			advanceOnEmpty: true,
			run: func(ctx context.Context) outcome {
				return c.serverSideSearch(ctx, creator, queryVec, limit)
			},
		},
		{
			name:           "client_side_scored",
			advanceOnEmpty: false,
			run: func(ctx context.Context) outcome {
				return c.bruteForceSearch(ctx, creator, queryVec, limit)
			},
		},
		{
			name: "raw_unscored",
			run: func(ctx context.Context) outcome {
				return c.rawFetch(ctx, creator, limit)
			},
		},
	}

	attempts, failures := 0, 0
	var lastErr error
	for _, s := range strategies {
		attempts++
		out := s.run(ctx)
		switch out.kind {
		case outcomeSuccess:
			logger.Info("retrieval tier succeeded",
				"tier", s.name, "creator", creator.Name, "entries", len(out.entries))
			return core.SearchResult{Entries: out.entries, Provenance: out.provenance}, nil
		case outcomeEmpty:
			logger.Info("retrieval tier returned nothing", "tier", s.name, "creator", creator.Name)
			if !s.advanceOnEmpty {
				return core.SearchResult{}, nil
			}
		case outcomeError:
			logger.Warn("retrieval tier failed, advancing",
				"tier", s.name, "creator", creator.Name, "error", out.err)
			failures++
			lastErr = out.err
		}
	}

	// A clean "found nothing" and an unreachable datastore are different
	// answers: the former ends retrieval quietly, the latter surfaces so
	// the caller can take its outage path.
	if failures == attempts {
		return core.SearchResult{}, goerr.Wrap(core.ErrSearchFailed, "all retrieval tiers failed",
			goerr.V("creator", creator.Name), goerr.V("cause", lastErr))
	}
	return core.SearchResult{}, nil
}

// serverSideSearch is tier 1: the datastore's native scored search. Results
// arrive sorted and scored; they are trusted as-is.
func (c *Client) serverSideSearch(ctx context.Context, creator core.CreatorProfile, queryVec []float32, limit int) outcome {
	entries, err := c.store.SimilaritySearch(ctx, creator, queryVec, serverSideThreshold, limit)
	if err != nil {
		return outcome{kind: outcomeError, err: err}
	}
	if len(entries) == 0 {
		return outcome{kind: outcomeEmpty}
	}
	return outcome{kind: outcomeSuccess, entries: entries, provenance: core.ProvenanceScored}
}

// bruteForceSearch is tier 2: fetch raw rows and score them locally against
// the query embedding.
func (c *Client) bruteForceSearch(ctx context.Context, creator core.CreatorProfile, queryVec []float32, limit int) outcome {
	rows, err := c.store.FetchRows(ctx, creator, bruteForceFetchLimit)
	if err != nil {
		return outcome{kind: outcomeError, err: err}
	}

	logger := logging.From(ctx)
	var kept []core.KnowledgeEntry
	for _, row := range rows {
		combined := combinedText(row)
		if combined == "" {
			continue
		}

		rowVec, err := c.embedder.Embed(ctx, combined)
		if err != nil {
			logger.Warn("failed to embed knowledge row, skipping", "id", row.ID, "error", err)
			continue
		}

		sim := cosineSimilarity(queryVec, rowVec)
		if sim > bruteForceFloor {
			row.Similarity = &sim
			kept = append(kept, row)
		}
	}

	if len(kept) == 0 {
		return outcome{kind: outcomeEmpty}
	}

	// Stable: rows with equal similarity keep their fetch order.
	sort.SliceStable(kept, func(i, j int) bool {
		return *kept[i].Similarity > *kept[j].Similarity
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return outcome{kind: outcomeSuccess, entries: kept, provenance: core.ProvenanceScored}
}

// rawFetch is tier 3: the first rows of the table, unscored.
func (c *Client) rawFetch(ctx context.Context, creator core.CreatorProfile, limit int) outcome {
	rows, err := c.store.FetchRows(ctx, creator, limit)
	if err != nil {
		return outcome{kind: outcomeError, err: err}
	}
	if len(rows) == 0 {
		return outcome{kind: outcomeEmpty}
	}
	return outcome{kind: outcomeSuccess, entries: rows, provenance: core.ProvenanceUnscored}
}

// combinedText concatenates every text field of an entry for local scoring.
func combinedText(e core.KnowledgeEntry) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{e.Title, e.Description, e.Content, e.Transcript} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// cosineSimilarity computes (a·b)/(‖a‖·‖b‖), 0 for degenerate vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
