package preast

import (
	uf "github.com/spakin/disjoint"
)

// Compress merges straight-line chains of blocks. A block with a single
// unconditional successor edge absorbs the successor when that
// successor has no other predecessor, concatenating the statement
// bodies in control-flow order. The rewrite is a cosmetic
// simplification of lifted input; structurization does not depend on
// it.
func Compress(cfg *CFG) {
	elements := map[*Block]*uf.Element{}
	for _, b := range cfg.blocks {
		elements[b] = uf.NewElement()
	}

	mergeable := func(e *Edge) bool {
		return len(e.From.Succs) == 1 &&
			cfg.ctx.IsTrue(e.Condition) &&
			len(e.To.Preds) == 1 &&
			e.To != cfg.entry &&
			e.To != e.From
	}

	next := map[*Block]*Block{}
	hasPrev := map[*Block]bool{}
	for _, b := range cfg.blocks {
		for _, e := range b.Succs {
			if mergeable(e) {
				uf.Union(elements[e.From], elements[e.To])
				next[e.From] = e.To
				hasPrev[e.To] = true
			}
		}
	}
	if len(next) == 0 {
		return
	}

	classSize := map[*uf.Element]int{}
	for _, b := range cfg.blocks {
		classSize[elements[b].Find()]++
	}

	removed := map[*Block]bool{}
	for _, head := range cfg.blocks {
		if hasPrev[head] || classSize[elements[head].Find()] < 2 {
			continue
		}

		seq := head.EnsureSequence(cfg.ctx)
		tail := head
		for {
			succ, chained := next[tail]
			if !chained {
				break
			}
			if succ.Stmt != nil {
				seq.Append(succ.Stmt)
			}
			removed[succ] = true
			tail = succ
		}

		// The head takes over the tail's outgoing edges; everything in
		// between, including the chain edges, disappears with the
		// absorbed blocks.
		head.Succs = tail.Succs
		for _, e := range head.Succs {
			e.From = head
		}
	}

	kept := cfg.blocks[:0]
	for _, b := range cfg.blocks {
		if !removed[b] {
			kept = append(kept, b)
		}
	}
	cfg.blocks = kept
}
