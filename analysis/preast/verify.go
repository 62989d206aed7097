package preast

import (
	"fmt"
)

// Verify checks the structural invariants the structurizer relies on:
// a unique entry, edges registered in both adjacency lists exactly
// once, and all blocks reachable from the entry. Violations indicate a
// broken front-end or pass and are fatal.
func (cfg *CFG) Verify() {
	if cfg.entry == nil {
		panic(fmt.Errorf("control-flow graph has no entry block"))
	}

	owned := make(map[*Block]bool, len(cfg.blocks))
	for _, b := range cfg.blocks {
		owned[b] = true
	}

	count := func(edges []*Edge, e *Edge) (n int) {
		for _, o := range edges {
			if o == e {
				n++
			}
		}
		return
	}

	for _, b := range cfg.blocks {
		for _, e := range b.Succs {
			if e.From != b {
				panic(fmt.Errorf("successor edge of %v claims source %v", b, e.From))
			}
			if !owned[e.To] {
				panic(fmt.Errorf("edge %v → %v leaves the graph", b, e.To))
			}
			if count(e.To.Preds, e) != 1 {
				panic(fmt.Errorf("edge %v → %v occurs %d times in the predecessor list of %v",
					e.From, e.To, count(e.To.Preds, e), e.To))
			}
		}
		for _, e := range b.Preds {
			if e.To != b {
				panic(fmt.Errorf("predecessor edge of %v claims target %v", b, e.To))
			}
			if count(e.From.Succs, e) != 1 {
				panic(fmt.Errorf("edge %v → %v occurs %d times in the successor list of %v",
					e.From, e.To, count(e.From.Succs, e), e.From))
			}
		}
	}

	reached := 0
	cfg.ForwardGraph().BFS(cfg.entry, func(b *Block) bool {
		reached++
		return false
	})
	if reached != len(cfg.blocks) {
		panic(fmt.Errorf("only %d of %d blocks are reachable from the entry", reached, len(cfg.blocks)))
	}
}
