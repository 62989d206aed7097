package graph

import "fmt"

// Dominance bundles the dominator tree of a rooted graph with the
// information the region analysis repeatedly asks of it: immediate
// dominators, dominance queries and dominance frontiers. The tree is
// built with the iterative Cooper-Harvey-Kennedy fixpoint and the
// intermediate arrays are kept around for queries.
type Dominance[T any] struct {
	order     []T
	time      Mapper[T]
	doms      []int
	frontiers [][]T
}

// Dominance computes dominator information for the subgraph reachable
// from root. Post-dominance is obtained by running the same
// construction on the reverse graph rooted in a (virtual) sink.
func (G Graph[T]) Dominance(root T) *Dominance[T] {
	time := 0
	order := []T{}
	postorderTime := G.mapFactory()
	pred := G.mapFactory()

	var dfs func(T)
	dfs = func(node T) {
		if _, seen := postorderTime.Get(node); seen {
			return
		}

		postorderTime.Set(node, -1)

		for _, e := range G.Edges(node) {
			var preds []T
			if predsItf, found := pred.Get(e); found {
				preds = predsItf.([]T)
			}

			pred.Set(e, append(preds, node))

			dfs(e)
		}

		postorderTime.Set(node, time)
		order = append(order, node)
		time++
	}

	dfs(root)

	doms := make([]int, time)
	for i := range doms {
		doms[i] = -1
	}
	doms[time-1] = time - 1

	intersect := func(a, b int) int {
		for a != b {
			if a < b {
				a = doms[a]
			} else {
				b = doms[b]
			}
		}
		return a
	}

	for {
		changed := false

		for i := time - 2; i >= 0; i-- {
			node := order[i]

			newIdom := -1
			predsItf, _ := pred.Get(node)

			for _, predecessor := range predsItf.([]T) {
				jItf, _ := postorderTime.Get(predecessor)
				j := jItf.(int)

				if doms[j] != -1 {
					if newIdom == -1 {
						newIdom = j
					} else {
						newIdom = intersect(j, newIdom)
					}
				}
			}

			if newIdom != doms[i] {
				doms[i] = newIdom
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	// Dominance frontiers, computed the Cooper way: walk up the
	// dominator tree from every predecessor of a node until the node's
	// immediate dominator is reached. Nodes with a single predecessor
	// terminate immediately, except the root, whose back-edge sources
	// carry it into their frontiers.
	frontiers := make([][]T, time)
	inFrontier := make([]map[int]bool, time)
	for i := range inFrontier {
		inFrontier[i] = map[int]bool{}
	}

	for i := 0; i < time; i++ {
		predsItf, found := pred.Get(order[i])
		if !found {
			continue
		}
		preds := predsItf.([]T)

		for _, p := range preds {
			jItf, _ := postorderTime.Get(p)
			runner := jItf.(int)

			for runner != doms[i] {
				if !inFrontier[runner][i] {
					inFrontier[runner][i] = true
					frontiers[runner] = append(frontiers[runner], order[i])
				}
				runner = doms[runner]
			}
		}
	}

	return &Dominance[T]{
		order:     order,
		time:      postorderTime,
		doms:      doms,
		frontiers: frontiers,
	}
}

func (D *Dominance[T]) index(node T) int {
	iItf, found := D.time.Get(node)
	if !found {
		panic(fmt.Errorf("%v was not reachable when computing dominance", node))
	}
	return iItf.(int)
}

// Reachable reports whether node was reached from the root.
func (D *Dominance[T]) Reachable(node T) bool {
	_, found := D.time.Get(node)
	return found
}

// Root returns the root the information was computed from.
func (D *Dominance[T]) Root() T {
	return D.order[len(D.order)-1]
}

// PostOrder returns the DFS post-order of the reachable nodes.
func (D *Dominance[T]) PostOrder() []T {
	return D.order
}

// Idom returns the immediate dominator of node. The root is its own
// immediate dominator.
func (D *Dominance[T]) Idom(node T) T {
	return D.order[D.doms[D.index(node)]]
}

// Dominates reports whether a dominates b. Every node dominates itself.
func (D *Dominance[T]) Dominates(a, b T) bool {
	target := D.index(a)
	i := D.index(b)
	for i != target && i != D.doms[i] {
		i = D.doms[i]
	}
	return i == target
}

// ProperlyDominates reports whether a dominates b and a is not b.
func (D *Dominance[T]) ProperlyDominates(a, b T) bool {
	return D.index(a) != D.index(b) && D.Dominates(a, b)
}

// Frontier returns the dominance frontier of node in discovery order.
func (D *Dominance[T]) Frontier(node T) []T {
	return D.frontiers[D.index(node)]
}
