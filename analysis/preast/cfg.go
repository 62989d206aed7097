package preast

import (
	"fmt"

	"github.com/XVilka/fcd/ast"
	"github.com/XVilka/fcd/utils/graph"
)

// Block is a basic block of the pre-AST control-flow graph. It carries
// the statement body lifted so far and insertion-ordered edge lists in
// both directions. Blocks are owned by their CFG and stay alive for as
// long as it does.
type Block struct {
	// Index is the creation order within the CFG. It never changes,
	// which makes it usable for deterministic tie-breaking.
	Index int
	// Name is an optional label for printing and visualization.
	Name string
	// Stmt is the partial statement body. May be nil for blocks that
	// only route control flow.
	Stmt  ast.Statement
	Preds []*Edge
	Succs []*Edge
}

func (b *Block) String() string {
	if b == nil {
		return "<virtual exit>"
	}
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("b%d", b.Index)
}

// EnsureSequence normalizes the block body to an append-mutable
// sequence and returns it. A nil body becomes an empty sequence; a
// non-sequence body is wrapped.
func (b *Block) EnsureSequence(ctx *ast.Context) *ast.Sequence {
	switch s := b.Stmt.(type) {
	case *ast.Sequence:
		return s
	case nil:
		seq := ctx.Sequence()
		b.Stmt = seq
		return seq
	default:
		seq := ctx.Sequence(s)
		b.Stmt = seq
		return seq
	}
}

// removePred drops e from the predecessor list.
func (b *Block) removePred(e *Edge) {
	for i, p := range b.Preds {
		if p == e {
			b.Preds = append(b.Preds[:i], b.Preds[i+1:]...)
			return
		}
	}
	panic(fmt.Errorf("edge %v → %v is not a predecessor of %v", e.From, e.To, b))
}

// Edge is a directed connection between two blocks, taken when its
// condition holds. An edge appears in exactly one successor list and
// exactly one predecessor list.
type Edge struct {
	From, To  *Block
	Condition ast.Expression
}

// Retarget points the edge at a new destination, keeping both
// predecessor lists consistent.
func (e *Edge) Retarget(to *Block) {
	e.To.removePred(e)
	e.To = to
	to.Preds = append(to.Preds, e)
}

// CFG owns all blocks and edges of one function.
type CFG struct {
	ctx       *ast.Context
	entry     *Block
	blocks    []*Block
	selectors int
}

func New(ctx *ast.Context) *CFG {
	return &CFG{ctx: ctx}
}

func (cfg *CFG) Context() *ast.Context {
	return cfg.ctx
}

// Entry returns the unique entry block.
func (cfg *CFG) Entry() *Block {
	return cfg.entry
}

// SetEntry declares b as the function entry.
func (cfg *CFG) SetEntry(b *Block) {
	cfg.entry = b
}

// Blocks returns all blocks in creation order, including synthetic
// ones.
func (cfg *CFG) Blocks() []*Block {
	return cfg.blocks
}

// CreateBlock allocates an empty block in the CFG.
func (cfg *CFG) CreateBlock() *Block {
	b := &Block{Index: len(cfg.blocks)}
	cfg.blocks = append(cfg.blocks, b)
	return b
}

// CreateEdge connects from to to under cond and registers the edge in
// both adjacency lists.
func (cfg *CFG) CreateEdge(from, to *Block, cond ast.Expression) *Edge {
	e := &Edge{From: from, To: to, Condition: cond}
	from.Succs = append(from.Succs, e)
	to.Preds = append(to.Preds, e)
	return e
}

// CreateRedirectorBlock reroutes the given edges through a fresh
// dispatch block. Each distinct original target is assigned an integer
// selector value in first-encounter order; every redirected edge's
// source records its value into a synthesized selector variable, and
// the redirector dispatches on equality tests against it. Exactly one
// outgoing condition holds whenever the redirector is reached.
func (cfg *CFG) CreateRedirectorBlock(edges []*Edge) *Block {
	r := cfg.CreateBlock()
	sel := cfg.ctx.Var(fmt.Sprintf("sel%d", cfg.selectors))
	cfg.selectors++

	values := map[*Block]int64{}
	for _, e := range edges {
		v, seen := values[e.To]
		if !seen {
			v = int64(len(values))
			values[e.To] = v
			cfg.CreateEdge(r, e.To, cfg.ctx.Equals(sel, cfg.ctx.IntLit(v)))
		}
		e.From.EnsureSequence(cfg.ctx).Append(cfg.ctx.Assign(sel, cfg.ctx.IntLit(v)))
		e.Retarget(r)
	}
	return r
}

// ForwardGraph is the successor relation of the current edges. The
// returned graph caches adjacency, so it must be rebuilt after the CFG
// is mutated.
func (cfg *CFG) ForwardGraph() graph.Graph[*Block] {
	return graph.OfHashable(func(b *Block) []*Block {
		succs := make([]*Block, len(b.Succs))
		for i, e := range b.Succs {
			succs[i] = e.To
		}
		return succs
	})
}

// ReverseGraph is the predecessor relation, rooted in a virtual sink
// (the nil block) that succeeds every block without successors. Running
// dominance analysis over it yields post-dominance.
func (cfg *CFG) ReverseGraph() graph.Graph[*Block] {
	return graph.OfHashable(func(b *Block) []*Block {
		if b == nil {
			var exits []*Block
			for _, blk := range cfg.blocks {
				if len(blk.Succs) == 0 {
					exits = append(exits, blk)
				}
			}
			return exits
		}
		preds := make([]*Block, len(b.Preds))
		for i, e := range b.Preds {
			preds[i] = e.From
		}
		return preds
	})
}
