package knowledge

import "github.com/monetizerai/creatorchat/internal/core"

// RelevanceThreshold is the minimum best similarity for scored results to
// ground an answer.
const RelevanceThreshold = 0.3

// Gate decides whether retrieved material is trustworthy enough to ground a
// response.
type Gate struct {
	threshold float64
}

// NewGate returns a gate at the default threshold.
func NewGate() *Gate {
	return &Gate{threshold: RelevanceThreshold}
}

// Relevant applies the gate policy. Scored results must clear the
// threshold; unscored results from the raw fallback are trusted whenever
// they are non-empty. The asymmetry is deliberate: the unscored path is a
// presence check, the scored path a quality check. Provenance is carried
// explicitly so this policy can change in one place.
func (g *Gate) Relevant(result core.SearchResult) bool {
	if result.Empty() {
		return false
	}
	if result.Provenance == core.ProvenanceUnscored {
		return true
	}
	return result.BestSimilarity() >= g.threshold
}
