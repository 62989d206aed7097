package preast

import (
	"fmt"
	"strings"

	"github.com/XVilka/fcd/ast"
	"github.com/XVilka/fcd/utils"
	"github.com/XVilka/fcd/utils/dot"
)

var opts = utils.Opts()

// ToDotGraph builds a dot rendering of the CFG: one node per block
// (entry highlighted, statement body in the label) and one edge per
// CFG edge, labelled with its condition.
func (cfg *CFG) ToDotGraph() *dot.DotGraph {
	dg := &dot.DotGraph{
		Options: map[string]string{
			"minlen":  fmt.Sprint(opts.Minlen()),
			"nodesep": fmt.Sprint(opts.Nodesep()),
			"rankdir": "TB",
		},
	}

	nodes := map[*Block]*dot.DotNode{}
	for _, b := range cfg.blocks {
		label := b.String()
		if b.Stmt != nil {
			if body := strings.TrimRight(ast.Print(b.Stmt), "\n"); body != "" {
				label += "\n" + body
			}
		}

		attrs := dot.DotAttrs{"label": label}
		if b == cfg.entry {
			attrs["fillcolor"] = "lightblue"
		}

		node := &dot.DotNode{ID: b.String(), Attrs: attrs}
		nodes[b] = node
		dg.Nodes = append(dg.Nodes, node)
	}

	for _, b := range cfg.blocks {
		for _, e := range b.Succs {
			dg.Edges = append(dg.Edges, &dot.DotEdge{
				From:  nodes[e.From],
				To:    nodes[e.To],
				Attrs: dot.DotAttrs{"label": e.Condition.String()},
			})
		}
	}

	return dg
}

// Visualize renders the CFG to an image file next to outname, in the
// configured output format.
func (cfg *CFG) Visualize(outname string) (string, error) {
	var buf strings.Builder
	if err := cfg.ToDotGraph().WriteDot(&buf); err != nil {
		return "", err
	}
	return dot.DotToImage(outname, opts.OutputFormat(), []byte(buf.String()))
}
