package search

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/wedosoft/ticketrag/internal/vectorstore"
)

// rrfConstant is the standard Reciprocal Rank Fusion smoothing constant.
const rrfConstant = 60.0

// fuse combines independently-ranked dense and sparse hit lists into one
// fused ranking via Reciprocal Rank Fusion, plus a recency-weighted bonus
// on top (§4.10 step 6). Hits present in only one leg still score via that
// leg's rank alone.
func fuse(dense, sparse []vectorstore.Hit, weights FusionWeights, now time.Time) []ScoredHit {
	scores := map[string]float64{}
	byID := map[string]vectorstore.Hit{}

	accumulate := func(hits []vectorstore.Hit, weight float64) {
		for rank, h := range hits {
			scores[h.ID] += weight * (1.0 / (rrfConstant + float64(rank+1)))
			byID[h.ID] = h
		}
	}
	accumulate(dense, weights.Dense)
	accumulate(sparse, weights.Sparse)

	ids := lo.Keys(scores)
	sort.Strings(ids) // stable tiebreak baseline before the score sort below

	fused := make([]ScoredHit, 0, len(ids))
	for _, id := range ids {
		h := byID[id]
		score := scores[id]
		score += weights.RecencyWeight * recencyBonus(time.Unix(h.Payload.CreatedAt, 0), now)
		fused = append(fused, ScoredHit{Hit: h, FusedScore: score})
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].FusedScore > fused[j].FusedScore
	})
	return fused
}

// mergeHyDEHits unions a HyDE-expansion hit list into the primary dense
// leg before fusion (§4.10 step 4: "merge"), keeping the better-ranked
// occurrence when a point appears in both.
func mergeHyDEHits(primary, hyde []vectorstore.Hit) []vectorstore.Hit {
	if len(hyde) == 0 {
		return primary
	}
	seen := make(map[string]int, len(primary)+len(hyde))
	merged := make([]vectorstore.Hit, 0, len(primary)+len(hyde))
	for _, h := range primary {
		seen[h.ID] = len(merged)
		merged = append(merged, h)
	}
	for _, h := range hyde {
		if idx, ok := seen[h.ID]; ok {
			if h.Score > merged[idx].Score {
				merged[idx].Score = h.Score
			}
			continue
		}
		seen[h.ID] = len(merged)
		merged = append(merged, h)
	}
	return merged
}
