package graph

// PostOrder returns the nodes reachable from root in DFS post-order.
// Successors are visited in the order the edge relation yields them, so
// the result is deterministic for deterministic edge functions.
func (G Graph[T]) PostOrder(root T) []T {
	visited := G.mapFactory()
	order := []T{}

	var dfs func(T)
	dfs = func(node T) {
		if _, seen := visited.Get(node); seen {
			return
		}
		visited.Set(node, true)

		for _, e := range G.Edges(node) {
			dfs(e)
		}

		order = append(order, node)
	}

	dfs(root)
	return order
}
