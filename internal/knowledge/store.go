// Package knowledge implements the retrieval side of the response pipeline:
// per-tenant datastore access, the tiered fallback search, the relevance
// gate, and context assembly.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"golang.org/x/sync/singleflight"

	"github.com/monetizerai/creatorchat/internal/core"
	"github.com/monetizerai/creatorchat/internal/logging"
)

// Field names in a creator's knowledge collection. Not every corpus
// populates every field.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldContent     = "content"
	FieldTranscript  = "transcript"
	FieldSource      = "source"
	FieldMetadata    = "metadata"
	FieldVector      = "vector"
)

var outputFields = []string{
	FieldID, FieldTitle, FieldDescription, FieldContent,
	FieldTranscript, FieldSource, FieldMetadata,
}

// Store is the vector-capable datastore boundary: a native similarity
// search and a raw row fetch, both scoped to one creator tenant.
type Store interface {
	// SimilaritySearch runs the datastore's native scored search. Returned
	// entries carry similarities and arrive already sorted.
	SimilaritySearch(ctx context.Context, creator core.CreatorProfile, vector []float32, threshold float64, limit int) ([]core.KnowledgeEntry, error)

	// FetchRows returns up to limit raw rows from the creator's knowledge
	// table, unscored and unfiltered.
	FetchRows(ctx context.Context, creator core.CreatorProfile, limit int) ([]core.KnowledgeEntry, error)
}

// MilvusStore implements Store against one Milvus endpoint per creator
// tenant. Live clients are cached per creator; concurrent first requests
// for the same creator share a single connection attempt.
type MilvusStore struct {
	mu      sync.RWMutex
	clients map[string]*milvusclient.Client
	group   singleflight.Group
	timeout time.Duration
}

// NewMilvusStore creates an empty store. Clients are opened lazily on the
// first request per creator and live until Close.
func NewMilvusStore(timeout time.Duration) *MilvusStore {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MilvusStore{
		clients: make(map[string]*milvusclient.Client),
		timeout: timeout,
	}
}

func (s *MilvusStore) clientFor(ctx context.Context, creator core.CreatorProfile) (*milvusclient.Client, error) {
	if !creator.Credential.Present() {
		return nil, goerr.Wrap(core.ErrConfigMissing, "creator has no datastore credential",
			goerr.V("creator", creator.Name))
	}

	s.mu.RLock()
	cli, ok := s.clients[creator.Name]
	s.mu.RUnlock()
	if ok {
		return cli, nil
	}

	v, err, _ := s.group.Do(creator.Name, func() (any, error) {
		s.mu.RLock()
		cached, ok := s.clients[creator.Name]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		created, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
			Address: creator.Credential.Address,
			APIKey:  creator.Credential.APIKey,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to connect to datastore",
				goerr.V("creator", creator.Name), goerr.V("credential", creator.Credential))
		}

		s.mu.Lock()
		s.clients[creator.Name] = created
		s.mu.Unlock()

		logging.From(ctx).Info("datastore client created", "creator", creator.Name)
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*milvusclient.Client), nil
}

// SimilaritySearch implements Store via Milvus range search: COSINE metric
// with the threshold as the radius, so every hit scores at or above it.
func (s *MilvusStore) SimilaritySearch(ctx context.Context, creator core.CreatorProfile, vector []float32, threshold float64, limit int) ([]core.KnowledgeEntry, error) {
	cli, err := s.clientFor(ctx, creator)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opt := milvusclient.NewSearchOption(creator.Collection, limit, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldVector).
		WithFilter(fmt.Sprintf("creator_id == %d", creator.ID)).
		WithOutputFields(outputFields...).
		WithSearchParam("radius", strconv.FormatFloat(threshold, 'f', -1, 64))

	resultSets, err := cli.Search(ctx, opt)
	if err != nil {
		return nil, goerr.Wrap(err, "similarity search failed",
			goerr.V("creator", creator.Name), goerr.V("collection", creator.Collection))
	}

	var entries []core.KnowledgeEntry
	for _, rs := range resultSets {
		for i := 0; i < rs.ResultCount; i++ {
			e := decodeEntry(rs.GetColumn, i)
			if e.ID == "" && rs.IDs != nil {
				if id, err := rs.IDs.GetAsString(i); err == nil {
					e.ID = id
				}
			}
			if i < len(rs.Scores) {
				sim := float64(rs.Scores[i])
				e.Similarity = &sim
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// FetchRows implements Store via a plain limited query.
func (s *MilvusStore) FetchRows(ctx context.Context, creator core.CreatorProfile, limit int) ([]core.KnowledgeEntry, error) {
	cli, err := s.clientFor(ctx, creator)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opt := milvusclient.NewQueryOption(creator.Collection).
		WithOutputFields(outputFields...).
		WithLimit(limit)

	rs, err := cli.Query(ctx, opt)
	if err != nil {
		return nil, goerr.Wrap(err, "row fetch failed",
			goerr.V("creator", creator.Name), goerr.V("collection", creator.Collection))
	}

	entries := make([]core.KnowledgeEntry, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		entries = append(entries, decodeEntry(rs.GetColumn, i))
	}
	return entries, nil
}

// Close tears down all cached clients. Called once at shutdown.
func (s *MilvusStore) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, cli := range s.clients {
		if err := cli.Close(ctx); err != nil {
			logging.From(ctx).Warn("failed to close datastore client", "creator", name, "error", err)
		}
		delete(s.clients, name)
	}
}

// decodeEntry normalizes one heterogeneous datastore row into a
// KnowledgeEntry. All duck typing happens here, once, at the boundary.
func decodeEntry(getColumn func(string) column.Column, i int) core.KnowledgeEntry {
	str := func(field string) string {
		col := getColumn(field)
		if col == nil {
			return ""
		}
		v, err := col.GetAsString(i)
		if err != nil {
			return ""
		}
		return v
	}

	return core.KnowledgeEntry{
		ID:          str(FieldID),
		Title:       str(FieldTitle),
		Description: str(FieldDescription),
		Content:     str(FieldContent),
		Transcript:  str(FieldTranscript),
		Source:      str(FieldSource),
		Metadata:    normalizeMetadata(str(FieldMetadata)),
	}
}

// normalizeMetadata parses serialized metadata into a map. Anything
// unparseable degrades to an empty map rather than failing the row.
func normalizeMetadata(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}
