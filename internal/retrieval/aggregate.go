package retrieval

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/instancetype"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/searchindex"
)

// Aggregate converts the top k entity hits of one query into ranked type
// scores. Every type t of a hit entity receives score/weight(t); types absent
// from weights use instancetype.DefaultTypeWeight. Entities without types
// contribute nothing. k <= 0 aggregates over all hits.
func Aggregate(hits []searchindex.ScoredHit, types instancetype.Map, weights instancetype.Weights, k int) []searchindex.ScoredHit {
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	acc := newAccumulator()
	for _, hit := range hits {
		entityTypes, ok := types.Types(hit.ID)
		if !ok {
			continue
		}
		for _, t := range entityTypes {
			w, ok := weights.Lookup(t)
			if !ok {
				w = instancetype.DefaultTypeWeight
			}
			acc.add(t, hit.Score/float64(w))
		}
	}
	return acc.ranked(0)
}

type scored struct {
	id    string
	score float64
	seq   int
}

// accumulator sums scores per ID and remembers the order IDs were first seen
// in, which breaks ranking ties.
type accumulator struct {
	index   map[string]int
	entries []scored
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[string]int)}
}

func (a *accumulator) add(id string, score float64) {
	if i, ok := a.index[id]; ok {
		a.entries[i].score += score
		return
	}
	a.index[id] = len(a.entries)
	a.entries = append(a.entries, scored{id: id, score: score, seq: len(a.entries)})
}

// ranked returns the best limit entries by descending score. limit <= 0
// returns all of them.
func (a *accumulator) ranked(limit int) []searchindex.ScoredHit {
	if limit <= 0 || limit > len(a.entries) {
		limit = len(a.entries)
	}
	if limit == 0 {
		return []searchindex.ScoredHit{}
	}
	h := make(scoredHeap, 0, limit+1)
	for _, e := range a.entries {
		heap.Push(&h, e)
		if h.Len() > limit {
			heap.Pop(&h)
		}
	}
	out := make([]searchindex.ScoredHit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		e := heap.Pop(&h).(scored)
		out[i] = searchindex.ScoredHit{ID: e.id, Score: e.score}
	}
	return out
}

// scoredHeap is a min-heap: the worst entry, lowest score and then latest
// seen, sits on top.
type scoredHeap []scored

func (h scoredHeap) Len() int { return len(h) }

func (h scoredHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].seq > h[j].seq
}

func (h scoredHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredHeap) Push(x interface{}) {
	*h = append(*h, x.(scored))
}

func (h *scoredHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
