package retrieval

import "math"

// Report summarises ranked types against the gold types of a dataset.
type Report struct {
	// Queries counts the resource queries with gold types.
	Queries int `json:"queries"`
	// Answered counts those that received a ranking.
	Answered  int     `json:"answered"`
	K         int     `json:"k"`
	Precision float64 `json:"precision_at_k"`
	NDCG      float64 `json:"ndcg_at_k"`
}

// Evaluate computes mean precision@k and binary-relevance NDCG@k. Queries
// without a ranking score zero.
func Evaluate(queries []Query, results Results, k int) Report {
	k = normalizeK(k)
	r := Report{K: k}
	var precision, ndcg float64
	for _, q := range Resource(queries) {
		if len(q.Type) == 0 {
			continue
		}
		r.Queries++
		ranked, ok := results[q.ID]
		if !ok {
			continue
		}
		r.Answered++

		gold := make(map[TypeID]struct{}, len(q.Type))
		for _, t := range q.Type {
			gold[t] = struct{}{}
		}
		if len(ranked) > k {
			ranked = ranked[:k]
		}
		var hits int
		var dcg float64
		for i, h := range ranked {
			if _, ok := gold[h.ID]; ok {
				hits++
				dcg += 1 / math.Log2(float64(i+2))
			}
		}
		var ideal float64
		for i := 0; i < len(gold) && i < k; i++ {
			ideal += 1 / math.Log2(float64(i+2))
		}
		precision += float64(hits) / float64(k)
		ndcg += dcg / ideal
	}
	if r.Queries > 0 {
		r.Precision = precision / float64(r.Queries)
		r.NDCG = ndcg / float64(r.Queries)
	}
	return r
}
