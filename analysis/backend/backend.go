package backend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/XVilka/fcd/analysis/preast"
	"github.com/XVilka/fcd/analysis/region"
	"github.com/XVilka/fcd/ast"
	"github.com/XVilka/fcd/metadata"
)

// Function is a unit of lifted code: a front-end hands the back-end a
// name and a way to materialize the pre-AST CFG.
type Function interface {
	Name() string
	Build(ctx *ast.Context) *preast.CFG
}

// FunctionNode is the structured output for one function.
type FunctionNode struct {
	name    string
	address uint64
	// Body is nil for prototypes.
	Body ast.Statement
}

func (n *FunctionNode) Name() string {
	return n.name
}

func (n *FunctionNode) VirtualAddress() uint64 {
	return n.address
}

// Pseudo renders the function as pseudo-code. Prototypes print as a
// bare declaration.
func (n *FunctionNode) Pseudo() string {
	var sb strings.Builder
	if n.Body == nil {
		fmt.Fprintf(&sb, "func %s()\n", n.name)
		return sb.String()
	}

	fmt.Fprintf(&sb, "func %s() {\n", n.name)
	for _, line := range strings.Split(strings.TrimRight(ast.Print(n.Body), "\n"), "\n") {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n")
	return sb.String()
}

// ModulePass runs over all emitted function nodes after structurization.
type ModulePass func(nodes []*FunctionNode)

// BackEnd turns lifted functions into structured function nodes and
// runs registered module passes over the result.
type BackEnd struct {
	md     *metadata.Table
	passes []ModulePass
}

func New(md *metadata.Table) *BackEnd {
	return &BackEnd{md: md}
}

// RegisterPass appends a pass to run after all functions are
// structurized. Passes run in registration order.
func (be *BackEnd) RegisterPass(p ModulePass) {
	be.passes = append(be.passes, p)
}

// RunOnModule structurizes every non-prototype function and returns the
// function nodes sorted by virtual address, then by name.
func (be *BackEnd) RunOnModule(ctx *ast.Context, fns []Function) []*FunctionNode {
	nodes := make([]*FunctionNode, 0, len(fns))
	for _, f := range fns {
		node := &FunctionNode{name: f.Name(), address: be.md.Address(f.Name())}
		nodes = append(nodes, node)
		if be.md.Prototype(f.Name()) {
			continue
		}
		node.Body = RunOnFunction(ctx, f)
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].address != nodes[j].address {
			return nodes[i].address < nodes[j].address
		}
		return nodes[i].name < nodes[j].name
	})

	for _, p := range be.passes {
		p(nodes)
	}
	return nodes
}

// RunOnFunction drives the whole pipeline for a single function:
// lift, compress straight-line chains, normalize cycles to single
// entries and exits, build the region tree and structurize it.
func RunOnFunction(ctx *ast.Context, f Function) ast.Statement {
	cfg := f.Build(ctx)
	cfg.Verify()

	preast.Compress(cfg)
	preast.EnsureSingleEntrySingleExitCycles(cfg)
	cfg.Verify()

	return StructurizeFunction(cfg, region.BuildRegionTree(cfg))
}
