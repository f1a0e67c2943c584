package ontology

import "sort"

const unvisited = -1

type frame struct {
	node int
	next int
}

// closeHierarchy returns, for every node, the sorted names of all nodes
// reachable through parent edges.
//
// It runs Tarjan's algorithm with an explicit work stack. Components are
// emitted in reverse topological order, so when a component is finished the
// closure of every parent outside it is already known and each closure is
// computed exactly once. All members of a component share one closure, which
// includes the members themselves whenever the component contains a cycle.
func closeHierarchy(parents [][]int, names []TypeID) [][]TypeID {
	n := len(parents)
	order := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	comp := make([]int, n)
	for i := range order {
		order[i] = unvisited
		comp[i] = unvisited
	}

	closure := make([][]TypeID, n)
	var compNodes [][]int

	seen := make([]int, n)
	stamp := 0

	var stack []int
	var work []frame
	counter := 0

	visit := func(v int) {
		order[v], low[v] = counter, counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		work = append(work, frame{node: v})
	}

	for start := 0; start < n; start++ {
		if order[start] != unvisited {
			continue
		}
		visit(start)

		for len(work) > 0 {
			top := &work[len(work)-1]
			v := top.node
			if top.next < len(parents[v]) {
				w := parents[v][top.next]
				top.next++
				if order[w] == unvisited {
					visit(w)
				} else if onStack[w] && order[w] < low[v] {
					low[v] = order[w]
				}
				continue
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				u := work[len(work)-1].node
				if low[v] < low[u] {
					low[u] = low[v]
				}
			}
			if low[v] != order[v] {
				continue
			}

			id := len(compNodes)
			var members []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp[w] = id
				members = append(members, w)
				if w == v {
					break
				}
			}

			stamp++
			var reach []int
			add := func(x int) {
				if seen[x] != stamp {
					seen[x] = stamp
					reach = append(reach, x)
				}
			}
			for _, m := range members {
				for _, p := range parents[m] {
					add(p)
					if comp[p] != id {
						for _, a := range compNodes[comp[p]] {
							add(a)
						}
					}
				}
			}
			compNodes = append(compNodes, reach)

			resolved := make([]TypeID, len(reach))
			for i, x := range reach {
				resolved[i] = names[x]
			}
			sort.Strings(resolved)
			for _, m := range members {
				closure[m] = resolved
			}
		}
	}
	return closure
}
