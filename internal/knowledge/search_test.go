package knowledge

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/monetizerai/creatorchat/internal/core"
)

type fakeStore struct {
	searchEntries []core.KnowledgeEntry
	searchErr     error
	rows          []core.KnowledgeEntry
	rowsErr       error

	searchCalls int
	fetchCalls  []int
}

func (f *fakeStore) SimilaritySearch(ctx context.Context, creator core.CreatorProfile, vector []float32, threshold float64, limit int) ([]core.KnowledgeEntry, error) {
	f.searchCalls++
	return f.searchEntries, f.searchErr
}

func (f *fakeStore) FetchRows(ctx context.Context, creator core.CreatorProfile, limit int) ([]core.KnowledgeEntry, error) {
	f.fetchCalls = append(f.fetchCalls, limit)
	return f.rows, f.rowsErr
}

// fakeEmbedder maps known texts to fixed vectors. Unknown texts embed to
// the zero vector, which scores 0 against everything.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func testCreator() core.CreatorProfile {
	return core.CreatorProfile{
		Name:       "Marques Brownlee",
		ID:         1,
		Collection: "knowledge_mkbhd",
		Credential: core.Credential{Address: "localhost:19530", APIKey: "k"},
	}
}

func scored(id string, sim float64) core.KnowledgeEntry {
	return core.KnowledgeEntry{ID: id, Content: "c-" + id, Similarity: &sim}
}

func TestSearchServerSideHit(t *testing.T) {
	store := &fakeStore{searchEntries: []core.KnowledgeEntry{scored("a", 0.9)}}
	c := NewClient(store, &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}})

	result, err := c.Search(context.Background(), "q", testCreator(), 5)
	gt.NoError(t, err)
	gt.Value(t, result.Provenance).Equal(core.ProvenanceScored)
	gt.Array(t, result.Entries).Length(1)
	gt.Array(t, store.fetchCalls).Length(0)
}

func TestSearchFallsBackToBruteForceOnEmpty(t *testing.T) {
	store := &fakeStore{
		rows: []core.KnowledgeEntry{
			{ID: "near", Content: "near text"},
			{ID: "far", Content: "far text"},
		},
	}
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"q":         {1, 0, 0},
		"near text": {1, 0.1, 0},
		"far text":  {0, 0, 1},
	}}
	c := NewClient(store, emb)

	result, err := c.Search(context.Background(), "q", testCreator(), 5)
	gt.NoError(t, err)
	gt.Value(t, store.searchCalls).Equal(1)
	gt.Value(t, result.Provenance).Equal(core.ProvenanceScored)
	gt.Array(t, result.Entries).Length(1)
	gt.Value(t, result.Entries[0].ID).Equal("near")
	gt.Value(t, result.Entries[0].Similarity).NotNil()
}

func TestSearchBruteForceEmptyIsFinal(t *testing.T) {
	// All rows score below the floor; the raw tier must not run.
	store := &fakeStore{
		rows: []core.KnowledgeEntry{{ID: "far", Content: "far text"}},
	}
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"q":        {1, 0, 0},
		"far text": {0, 0, 1},
	}}
	c := NewClient(store, emb)

	result, err := c.Search(context.Background(), "q", testCreator(), 5)
	gt.NoError(t, err)
	gt.Bool(t, result.Empty()).True()
	gt.Array(t, store.fetchCalls).Length(1)
}

func TestSearchRawFallbackOnBruteForceError(t *testing.T) {
	calls := 0
	store := &errorOnceStore{
		rows: []core.KnowledgeEntry{{ID: "raw", Content: "raw content"}},
		fail: &calls,
	}
	c := NewClient(store, &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}})

	result, err := c.Search(context.Background(), "q", testCreator(), 5)
	gt.NoError(t, err)
	gt.Value(t, result.Provenance).Equal(core.ProvenanceUnscored)
	gt.Array(t, result.Entries).Length(1)
	gt.Value(t, result.Entries[0].ID).Equal("raw")
}

// errorOnceStore fails the first FetchRows call and serves rows after.
type errorOnceStore struct {
	rows []core.KnowledgeEntry
	fail *int
}

func (s *errorOnceStore) SimilaritySearch(ctx context.Context, creator core.CreatorProfile, vector []float32, threshold float64, limit int) ([]core.KnowledgeEntry, error) {
	return nil, nil
}

func (s *errorOnceStore) FetchRows(ctx context.Context, creator core.CreatorProfile, limit int) ([]core.KnowledgeEntry, error) {
	*s.fail++
	if *s.fail == 1 {
		return nil, goerr.New("datastore unavailable")
	}
	return s.rows, nil
}

func TestSearchAllTiersFailingIsAnError(t *testing.T) {
	store := &fakeStore{
		searchErr: goerr.New("connection refused"),
		rowsErr:   goerr.New("connection refused"),
	}
	c := NewClient(store, &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}})

	_, err := c.Search(context.Background(), "q", testCreator(), 5)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, core.ErrSearchFailed)).True()
	// Tier 2 and tier 3 both hit the row fetch.
	gt.Array(t, store.fetchCalls).Length(2)
}

func TestSearchPartialFailureStaysQuiet(t *testing.T) {
	// Tier 1 answers cleanly with nothing; later tier errors do not turn
	// the whole search into an outage.
	store := &fakeStore{rowsErr: goerr.New("connection refused")}
	c := NewClient(store, &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}})

	result, err := c.Search(context.Background(), "q", testCreator(), 5)
	gt.NoError(t, err)
	gt.Bool(t, result.Empty()).True()
}

func TestSearchNoCredentialSkipsRetrieval(t *testing.T) {
	store := &fakeStore{}
	c := NewClient(store, &fakeEmbedder{})

	creator := testCreator()
	creator.Credential = core.Credential{}
	result, err := c.Search(context.Background(), "q", creator, 5)
	gt.NoError(t, err)
	gt.Bool(t, result.Empty()).True()
	gt.Value(t, store.searchCalls).Equal(0)
}

func TestSearchEmbeddingFailureIsAnOutage(t *testing.T) {
	store := &fakeStore{}
	c := NewClient(store, &fakeEmbedder{err: core.ErrEmbeddingUnavailable})

	_, err := c.Search(context.Background(), "q", testCreator(), 5)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, core.ErrEmbeddingUnavailable)).True()
	gt.Value(t, store.searchCalls).Equal(0)
}

func TestBruteForceOrderingAndLimit(t *testing.T) {
	store := &fakeStore{
		rows: []core.KnowledgeEntry{
			{ID: "low", Content: "low text"},
			{ID: "high", Content: "high text"},
			{ID: "mid", Content: "mid text"},
		},
	}
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"q":         {1, 0, 0},
		"low text":  {1, 2, 0},
		"high text": {1, 0.1, 0},
		"mid text":  {1, 1, 0},
	}}
	c := NewClient(store, emb)

	result, err := c.Search(context.Background(), "q", testCreator(), 2)
	gt.NoError(t, err)
	gt.Array(t, result.Entries).Length(2)
	gt.Value(t, result.Entries[0].ID).Equal("high")
	gt.Value(t, result.Entries[1].ID).Equal("mid")
}

func TestBruteForceEqualScoresKeepFetchOrder(t *testing.T) {
	store := &fakeStore{
		rows: []core.KnowledgeEntry{
			{ID: "first", Content: "first text"},
			{ID: "second", Content: "second text"},
			{ID: "closest", Content: "closest text"},
			{ID: "third", Content: "third text"},
		},
	}
	// Three rows embed identically, so they tie on cosine score; only the
	// strictly closer row may move ahead of them.
	tied := []float32{1, 1, 0}
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"q":            {1, 0, 0},
		"first text":   tied,
		"second text":  tied,
		"third text":   tied,
		"closest text": {1, 0.1, 0},
	}}
	c := NewClient(store, emb)

	result, err := c.Search(context.Background(), "q", testCreator(), 10)
	gt.NoError(t, err)
	gt.Array(t, result.Entries).Length(4).Required()
	gt.Value(t, result.Entries[0].ID).Equal("closest")
	gt.Value(t, result.Entries[1].ID).Equal("first")
	gt.Value(t, result.Entries[2].ID).Equal("second")
	gt.Value(t, result.Entries[3].ID).Equal("third")
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}

	gt.Number(t, cosineSimilarity(a, a)).Greater(0.999)
	gt.Value(t, cosineSimilarity(a, b)).Equal(cosineSimilarity(b, a))
	gt.Number(t, cosineSimilarity(a, b)).LessOrEqual(1)

	opposite := cosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	gt.Number(t, math.Abs(opposite+1)).Less(1e-9)

	gt.Value(t, cosineSimilarity([]float32{1, 2}, []float32{1})).Equal(0.0)
	gt.Value(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1})).Equal(0.0)
	gt.Value(t, cosineSimilarity(nil, nil)).Equal(0.0)
}

func TestCombinedText(t *testing.T) {
	e := core.KnowledgeEntry{Title: "t", Content: "c", Transcript: "x"}
	gt.Value(t, combinedText(e)).Equal("t c x")
	gt.Value(t, combinedText(core.KnowledgeEntry{})).Equal("")
}
