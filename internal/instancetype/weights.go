package instancetype

// DefaultTypeWeight is used for types that carry no weight entry, which
// leaves their contribution unpenalised.
const DefaultTypeWeight = 1

// Weights counts, per type, the entities whose transitive type set contains
// it. Every present weight is at least 1.
type Weights map[TypeID]int

// ComputeWeights derives type frequencies from a transitive Map.
func ComputeWeights(transitive Map) Weights {
	w := make(Weights)
	for _, types := range transitive {
		for _, t := range types {
			w[t]++
		}
	}
	return w
}

// Lookup returns the weight of t and whether one is recorded.
func (w Weights) Lookup(t TypeID) (int, bool) {
	n, ok := w[t]
	return n, ok
}
