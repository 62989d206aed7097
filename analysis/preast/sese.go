package preast

// EnsureSingleEntrySingleExitCycles rewrites the CFG so that every
// cycle has exactly one entry and one exit block. Cycles are the
// strongly connected components with an internal edge; components with
// several entry or exit blocks get a redirector in front of the
// offending side. Running it a second time finds nothing to rewrite.
func EnsureSingleEntrySingleExitCycles(cfg *CFG) {
	scc := cfg.ForwardGraph().SCC([]*Block{cfg.Entry()})

	// Components are rewritten one at a time. Redirectors created for
	// one component never belong to another, so the enumeration
	// computed up front stays valid.
	for _, component := range scc.Components {
		members := make(map[*Block]bool, len(component))
		for _, b := range component {
			members[b] = true
		}
		if !hasInternalEdge(component, members) {
			continue
		}

		var enteringEdges, exitingEdges []*Edge
		enteringSet := map[*Edge]bool{}
		entryNodes := map[*Block]bool{}
		exitNodes := map[*Block]bool{}

		addEntering := func(e *Edge) {
			if !enteringSet[e] {
				enteringSet[e] = true
				enteringEdges = append(enteringEdges, e)
			}
			entryNodes[e.To] = true
		}

		for _, b := range component {
			for _, e := range b.Preds {
				if !members[e.From] {
					addEntering(e)
				}
			}
			for _, e := range b.Succs {
				if !members[e.To] {
					exitNodes[e.To] = true
					exitingEdges = append(exitingEdges, e)
				}
			}
		}

		// Back edges can only occur inside the component, so they are
		// found with a traversal restricted to members. Each edge to a
		// member still on the traversal path is treated as another
		// entering edge, which makes the eventual loop header the single
		// entry. The
		// traversal is rooted in an existing entry block when there is
		// one; a component reached only through its back edges settles
		// for its first member.
		root := component[0]
		for _, b := range component {
			if entryNodes[b] {
				root = b
				break
			}
		}

		type frame struct {
			block *Block
			next  int
		}
		visited := map[*Block]bool{root: true}
		onStack := map[*Block]bool{root: true}
		stack := []frame{{root, 0}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.block.Succs) {
				onStack[top.block] = false
				stack = stack[:len(stack)-1]
				continue
			}
			e := top.block.Succs[top.next]
			top.next++

			switch succ := e.To; {
			case onStack[succ]:
				addEntering(e)
			case members[succ] && !visited[succ]:
				visited[succ] = true
				onStack[succ] = true
				stack = append(stack, frame{succ, 0})
			}
		}

		if len(entryNodes) > 1 {
			cfg.CreateRedirectorBlock(enteringEdges)
		}
		if len(exitNodes) > 1 {
			cfg.CreateRedirectorBlock(exitingEdges)
		}
	}
}

func hasInternalEdge(component []*Block, members map[*Block]bool) bool {
	if len(component) > 1 {
		return true
	}
	for _, e := range component[0].Succs {
		if e.To == component[0] {
			return true
		}
	}
	return false
}
