package lift

import (
	"fmt"
	"sort"

	"github.com/XVilka/fcd/analysis/backend"
	"github.com/XVilka/fcd/analysis/preast"
	"github.com/XVilka/fcd/ast"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Func lifts one SSA function into the pre-AST control-flow graph. The
// instruction bodies are carried as opaque printouts; only the branch
// structure is interpreted.
type Func struct {
	fun *ssa.Function
}

func Wrap(fun *ssa.Function) Func {
	return Func{fun: fun}
}

func (f Func) Name() string {
	return f.fun.Name()
}

// Build maps every reachable basic block to a pre-AST block and derives
// edge conditions from the block terminators: an If contributes the
// condition value and its negation, a Jump an unconditional edge.
// Unreachable blocks, such as deferred recover handlers, are dropped.
func (f Func) Build(ctx *ast.Context) *preast.CFG {
	cfg := preast.New(ctx)

	blocks := map[*ssa.BasicBlock]*preast.Block{}
	var reach func(bb *ssa.BasicBlock)
	reach = func(bb *ssa.BasicBlock) {
		if _, seen := blocks[bb]; seen {
			return
		}
		b := cfg.CreateBlock()
		b.Name = fmt.Sprintf("%s.%d", f.fun.Name(), bb.Index)
		b.Stmt = liftBody(ctx, bb)
		blocks[bb] = b
		for _, succ := range bb.Succs {
			reach(succ)
		}
	}
	reach(f.fun.Blocks[0])
	cfg.SetEntry(blocks[f.fun.Blocks[0]])

	for _, bb := range f.fun.Blocks {
		from, ok := blocks[bb]
		if !ok {
			continue
		}
		switch term := bb.Instrs[len(bb.Instrs)-1].(type) {
		case *ssa.If:
			cond := ctx.Var(term.Cond.Name())
			cfg.CreateEdge(from, blocks[bb.Succs[0]], cond)
			cfg.CreateEdge(from, blocks[bb.Succs[1]], ctx.Not(cond))
		case *ssa.Jump:
			cfg.CreateEdge(from, blocks[bb.Succs[0]], ctx.True())
		}
	}
	return cfg
}

// liftBody renders the block instructions as marker expressions.
// Terminators that only route control flow are dropped; their effect
// lives on the edges.
func liftBody(ctx *ast.Context, bb *ssa.BasicBlock) ast.Statement {
	seq := ctx.Sequence()
	for _, instr := range bb.Instrs {
		switch instr.(type) {
		case *ssa.Jump, *ssa.If, *ssa.DebugRef:
			continue
		}
		text := instr.String()
		if v, ok := instr.(ssa.Value); ok && v.Name() != "" {
			text = v.Name() + " = " + text
		}
		seq.Append(ctx.Expr(ctx.Var(text)))
	}
	return seq
}

// Functions lifts every function member of pkg that has a body, in name
// order.
func Functions(pkg *ssa.Package) []backend.Function {
	var fns []backend.Function
	for _, member := range pkg.Members {
		if fun, ok := member.(*ssa.Function); ok && len(fun.Blocks) > 0 {
			fns = append(fns, Wrap(fun))
		}
	}
	sort.Slice(fns, func(i, j int) bool {
		return fns[i].Name() < fns[j].Name()
	})
	return fns
}

// BuildProgram constructs the SSA form of the loaded packages.
func BuildProgram(pkgs []*packages.Package) (*ssa.Program, []*ssa.Package) {
	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.SanityCheckFunctions|ssa.InstantiateGenerics)
	prog.Build()
	return prog, ssaPkgs
}
