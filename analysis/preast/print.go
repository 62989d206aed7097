package preast

import (
	"fmt"
	"strings"

	"github.com/XVilka/fcd/ast"
)

// String renders the CFG as a diagnostic block listing with edge
// conditions. Blocks appear in creation order, successors in insertion
// order, so output is stable for a given construction sequence.
func (cfg *CFG) String() string {
	var sb strings.Builder
	for _, b := range cfg.blocks {
		marker := ""
		if b == cfg.entry {
			marker = " (entry)"
		}
		fmt.Fprintf(&sb, "%v%s:\n", b, marker)
		if b.Stmt != nil {
			for _, line := range strings.Split(strings.TrimRight(ast.Print(b.Stmt), "\n"), "\n") {
				fmt.Fprintf(&sb, "  %s\n", line)
			}
		}
		for _, e := range b.Succs {
			fmt.Fprintf(&sb, "  → %v [%v]\n", e.To, e.Condition)
		}
	}
	return sb.String()
}
