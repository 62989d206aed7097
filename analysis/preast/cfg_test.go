package preast

import (
	"testing"

	"github.com/XVilka/fcd/ast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlock(cfg *CFG, name string) *Block {
	b := cfg.CreateBlock()
	b.Name = name
	return b
}

// assertSESE checks that every cycle has at most one block entered from
// the outside and at most one outside block receiving internal edges.
func assertSESE(t *testing.T, cfg *CFG) {
	t.Helper()

	scc := cfg.ForwardGraph().SCC([]*Block{cfg.Entry()})
	for _, component := range scc.Components {
		members := make(map[*Block]bool, len(component))
		for _, b := range component {
			members[b] = true
		}
		if !hasInternalEdge(component, members) {
			continue
		}

		entries := map[*Block]bool{}
		exits := map[*Block]bool{}
		for _, b := range component {
			for _, e := range b.Preds {
				if !members[e.From] {
					entries[e.To] = true
				}
			}
			for _, e := range b.Succs {
				if !members[e.To] {
					exits[e.To] = true
				}
			}
		}

		assert.LessOrEqual(t, len(entries), 1, "cycle with several entry blocks")
		assert.LessOrEqual(t, len(exits), 1, "cycle with several exit blocks")
	}
}

func TestCreateEdgeRegistersBothSides(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	a, b := newBlock(cfg, "A"), newBlock(cfg, "B")
	cfg.SetEntry(a)

	e := cfg.CreateEdge(a, b, ctx.True())
	require.Len(t, a.Succs, 1)
	require.Len(t, b.Preds, 1)
	assert.Same(t, e, a.Succs[0])
	assert.Same(t, e, b.Preds[0])

	cfg.Verify()
}

func TestVerifyCatchesUnreachableBlock(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	a := newBlock(cfg, "A")
	newBlock(cfg, "B")
	cfg.SetEntry(a)

	require.Panics(t, func() { cfg.Verify() })
}

func TestVerifyCatchesHalfRegisteredEdge(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	a, b := newBlock(cfg, "A"), newBlock(cfg, "B")
	cfg.SetEntry(a)

	e := &Edge{From: a, To: b, Condition: ctx.True()}
	a.Succs = append(a.Succs, e)

	require.Panics(t, func() { cfg.Verify() })
}

func TestRedirectorBlock(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	entry := newBlock(cfg, "E")
	a, b := newBlock(cfg, "A"), newBlock(cfg, "B")
	c, d := newBlock(cfg, "C"), newBlock(cfg, "D")
	cfg.SetEntry(entry)

	p := ctx.Var("p")
	cfg.CreateEdge(entry, a, p)
	cfg.CreateEdge(entry, b, ctx.Not(p))
	toC := cfg.CreateEdge(a, c, ctx.True())
	toD := cfg.CreateEdge(b, d, ctx.True())

	r := cfg.CreateRedirectorBlock([]*Edge{toC, toD})

	// The redirected edges now terminate in the dispatch block.
	assert.Same(t, r, toC.To)
	assert.Same(t, r, toD.To)

	// One outgoing edge per distinct original target, dispatching on
	// the synthesized selector in first-encounter order.
	require.Len(t, r.Succs, 2)
	assert.Same(t, c, r.Succs[0].To)
	assert.Same(t, d, r.Succs[1].To)
	assert.Equal(t, "sel0 == 0", r.Succs[0].Condition.String())
	assert.Equal(t, "sel0 == 1", r.Succs[1].Condition.String())

	// Sources record their selector value.
	aSeq, ok := a.Stmt.(*ast.Sequence)
	require.True(t, ok)
	require.Len(t, aSeq.Statements, 1)
	assert.Equal(t, "sel0", aSeq.Statements[0].(*ast.Assignment).LHS.String())
	assert.Equal(t, "0", aSeq.Statements[0].(*ast.Assignment).RHS.String())
	bSeq := b.Stmt.(*ast.Sequence)
	assert.Equal(t, "1", bSeq.Statements[0].(*ast.Assignment).RHS.String())

	// The original targets are reached only through the dispatch.
	require.Len(t, c.Preds, 1)
	assert.Same(t, r, c.Preds[0].From)

	cfg.Verify()
}

func TestRedirectorSharesSelectorValuePerTarget(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	entry := newBlock(cfg, "E")
	a, b, c := newBlock(cfg, "A"), newBlock(cfg, "B"), newBlock(cfg, "C")
	target := newBlock(cfg, "T")
	cfg.SetEntry(entry)

	cfg.CreateEdge(entry, a, ctx.Var("p"))
	cfg.CreateEdge(entry, b, ctx.Var("q"))
	cfg.CreateEdge(entry, c, ctx.Var("r"))
	e1 := cfg.CreateEdge(a, target, ctx.True())
	e2 := cfg.CreateEdge(b, target, ctx.True())

	r := cfg.CreateRedirectorBlock([]*Edge{e1, e2})

	require.Len(t, r.Succs, 1)
	aAssign := a.Stmt.(*ast.Sequence).Statements[0].(*ast.Assignment)
	bAssign := b.Stmt.(*ast.Sequence).Statements[0].(*ast.Assignment)
	assert.Equal(t, aAssign.RHS.String(), bAssign.RHS.String())
}

// A simple while loop is already in shape and must not change.
func TestNormalizeLeavesSimpleLoopAlone(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	h, b, x := newBlock(cfg, "H"), newBlock(cfg, "B"), newBlock(cfg, "X")
	cfg.SetEntry(h)

	p := ctx.Var("p")
	cfg.CreateEdge(h, b, p)
	cfg.CreateEdge(h, x, ctx.Not(p))
	cfg.CreateEdge(b, h, ctx.True())

	EnsureSingleEntrySingleExitCycles(cfg)

	assert.Len(t, cfg.Blocks(), 3)
	assertSESE(t, cfg)
	cfg.Verify()
}

// Two entering edges into the {C, D} cycle force an entry redirector.
func TestNormalizeIrreducibleCycle(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	e := newBlock(cfg, "E")
	a, b := newBlock(cfg, "A"), newBlock(cfg, "B")
	c, d := newBlock(cfg, "C"), newBlock(cfg, "D")
	cfg.SetEntry(e)

	p, q := ctx.Var("p"), ctx.Var("q")
	cfg.CreateEdge(e, a, p)
	cfg.CreateEdge(e, b, ctx.Not(p))
	cfg.CreateEdge(a, c, ctx.True())
	cfg.CreateEdge(b, d, ctx.True())
	cfg.CreateEdge(c, d, q)
	cfg.CreateEdge(d, c, ctx.Not(q))

	EnsureSingleEntrySingleExitCycles(cfg)

	require.Len(t, cfg.Blocks(), 6, "expected exactly one redirector")
	assertSESE(t, cfg)
	cfg.Verify()

	// The cycle is now entered through the redirector alone.
	r := cfg.Blocks()[5]
	assert.Empty(t, r.Stmt)
	for _, in := range []*Block{c, d} {
		for _, edge := range in.Preds {
			if edge.From != c && edge.From != d {
				assert.Same(t, r, edge.From)
			}
		}
	}
}

// A loop leaving towards two different blocks gets an exit redirector.
func TestNormalizeMultiExitLoop(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	h, b := newBlock(cfg, "H"), newBlock(cfg, "B")
	x1, x2 := newBlock(cfg, "X1"), newBlock(cfg, "X2")
	cfg.SetEntry(h)

	p, q := ctx.Var("p"), ctx.Var("q")
	cfg.CreateEdge(h, b, p)
	cfg.CreateEdge(h, x1, ctx.Not(p))
	cfg.CreateEdge(b, h, q)
	cfg.CreateEdge(b, x2, ctx.Not(q))

	EnsureSingleEntrySingleExitCycles(cfg)

	require.Len(t, cfg.Blocks(), 5)
	assertSESE(t, cfg)
	cfg.Verify()

	r := cfg.Blocks()[4]
	require.Len(t, r.Succs, 2)
	targets := map[*Block]bool{r.Succs[0].To: true, r.Succs[1].To: true}
	assert.True(t, targets[x1] && targets[x2], "redirector must dispatch to both exits")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	build := func() *CFG {
		ctx := ast.NewContext()
		cfg := New(ctx)
		e := newBlock(cfg, "E")
		a, b := newBlock(cfg, "A"), newBlock(cfg, "B")
		c, d := newBlock(cfg, "C"), newBlock(cfg, "D")
		x := newBlock(cfg, "X")
		cfg.SetEntry(e)

		p, q := ctx.Var("p"), ctx.Var("q")
		cfg.CreateEdge(e, a, p)
		cfg.CreateEdge(e, b, ctx.Not(p))
		cfg.CreateEdge(a, c, ctx.True())
		cfg.CreateEdge(b, d, ctx.True())
		cfg.CreateEdge(c, d, q)
		cfg.CreateEdge(d, c, ctx.Not(q))
		cfg.CreateEdge(d, x, ctx.Var("r"))
		return cfg
	}

	cfg := build()
	EnsureSingleEntrySingleExitCycles(cfg)
	once := len(cfg.Blocks())

	EnsureSingleEntrySingleExitCycles(cfg)
	assert.Equal(t, once, len(cfg.Blocks()), "second run must not add blocks")
	assertSESE(t, cfg)
	cfg.Verify()
}

func TestNormalizeSelfLoop(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	a, x := newBlock(cfg, "A"), newBlock(cfg, "X")
	cfg.SetEntry(a)

	p := ctx.Var("p")
	cfg.CreateEdge(a, a, p)
	cfg.CreateEdge(a, x, ctx.Not(p))

	EnsureSingleEntrySingleExitCycles(cfg)

	assert.Len(t, cfg.Blocks(), 2)
	assertSESE(t, cfg)
	cfg.Verify()
}

func TestCompressMergesChains(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	a, b, c := newBlock(cfg, "A"), newBlock(cfg, "B"), newBlock(cfg, "C")
	x := newBlock(cfg, "X")
	cfg.SetEntry(a)

	a.Stmt = ctx.Expr(ctx.Var("a"))
	b.Stmt = ctx.Expr(ctx.Var("b"))
	c.Stmt = ctx.Expr(ctx.Var("c"))

	cfg.CreateEdge(a, b, ctx.True())
	cfg.CreateEdge(b, c, ctx.True())
	p := ctx.Var("p")
	cfg.CreateEdge(c, x, p)
	cfg.CreateEdge(c, a, ctx.Not(p))

	Compress(cfg)

	require.Len(t, cfg.Blocks(), 2)
	cfg.Verify()

	assert.Equal(t, "a\nb\nc\n", ast.Print(a.Stmt))
	require.Len(t, a.Succs, 2)
	assert.Same(t, x, a.Succs[0].To)
	assert.Same(t, a, a.Succs[1].To)
}

func TestCompressKeepsConditionalEdges(t *testing.T) {
	ctx := ast.NewContext()
	cfg := New(ctx)
	a, b, c := newBlock(cfg, "A"), newBlock(cfg, "B"), newBlock(cfg, "C")
	cfg.SetEntry(a)

	p := ctx.Var("p")
	cfg.CreateEdge(a, b, p)
	cfg.CreateEdge(a, c, ctx.Not(p))
	cfg.CreateEdge(b, c, ctx.True())

	Compress(cfg)

	// B cannot be absorbed into A (conditional edge) and C cannot be
	// absorbed into B (two predecessors).
	assert.Len(t, cfg.Blocks(), 3)
	cfg.Verify()
}
