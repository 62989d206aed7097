package backend

import (
	"container/list"
	"fmt"

	"github.com/XVilka/fcd/analysis/preast"
	"github.com/XVilka/fcd/analysis/region"
	"github.com/XVilka/fcd/ast"
)

// structurizer reduces a region tree over a normalized CFG into a
// single statement. It consumes the CFG: edges are rewired towards
// synthetic blocks as regions collapse, so the graph is not reusable
// afterwards.
type structurizer struct {
	ctx   *ast.Context
	cfg   *preast.CFG
	order *list.List
}

// StructurizeFunction folds the whole region tree of cfg into the
// function body statement.
func StructurizeFunction(cfg *preast.CFG, root *region.Region) ast.Statement {
	s := &structurizer{
		ctx:   cfg.Context(),
		cfg:   cfg,
		order: blockOrder(cfg),
	}
	return s.reduceRegion(root, s.order.Front(), nil)
}

// blockOrder lists the blocks reachable from the entry with every block
// preceding its (non-back-edge) successors, entry first. Successors are
// explored last-to-first so that sibling subtrees keep their edge
// insertion order in the final list.
func blockOrder(cfg *preast.CFG) *list.List {
	order := list.New()
	visited := map[*preast.Block]bool{}

	var visit func(*preast.Block)
	visit = func(b *preast.Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for i := len(b.Succs) - 1; i >= 0; i-- {
			visit(b.Succs[i].To)
		}
		order.PushFront(b)
	}

	visit(cfg.Entry())
	return order
}

func blockAt(elem *list.Element) *preast.Block {
	return elem.Value.(*preast.Block)
}

// reduceRegion collapses every child of r into a synthetic block and
// folds the remaining flat range [begin, end) into one statement. A nil
// end denotes the end of the block list.
func (s *structurizer) reduceRegion(r *region.Region, begin, end *list.Element) ast.Statement {
	for len(r.Children()) > 0 {
		// Taking the child whose entry comes first keeps the ranges of
		// its later siblings intact.
		child, subBegin := s.earliestChild(r, begin, end)
		exit := child.Exit()

		subEnd := end
		found := false
		for elem := subBegin; elem != end; elem = elem.Next() {
			if blockAt(elem) == exit {
				subEnd = elem
				found = true
				break
			}
		}
		if !found && !(end != nil && blockAt(end) == exit) {
			panic(fmt.Errorf("exit %v of region %v not in the block range", exit, child))
		}

		// Replace the region's block range with a single synthetic
		// block carrying its structured body. The recursive call erases
		// elements of [subBegin, subEnd), possibly subBegin itself, so
		// the range is re-anchored on the element before it.
		wasBegin := subBegin == begin
		prev := subBegin.Prev()

		n := s.cfg.CreateBlock()
		n.Stmt = s.reduceRegion(child, subBegin, subEnd)

		var nElem *list.Element
		if subEnd != nil {
			nElem = s.order.InsertBefore(n, subEnd)
		} else {
			nElem = s.order.PushBack(n)
		}
		if wasBegin {
			begin = nElem
		}

		startErase := s.order.Front()
		if prev != nil {
			startErase = prev.Next()
		}
		var erasedBlocks []*preast.Block
		erased := map[*preast.Block]bool{}
		for elem := startErase; elem != nElem; {
			next := elem.Next()
			b := blockAt(elem)
			erased[b] = true
			erasedBlocks = append(erasedBlocks, b)
			s.order.Remove(elem)
			elem = next
		}

		// The synthetic block takes over every edge entering the erased
		// range from the outside. When the region shares its entry with
		// a reduced subregion those edges point at the subregion's
		// synthetic block rather than at the entry, so all erased blocks
		// are swept, in list order to keep predecessor order stable.
		for _, b := range erasedBlocks {
			for _, e := range b.Preds {
				if !erased[e.From] {
					e.To = n
					n.Preds = append(n.Preds, e)
				}
			}
			b.Preds = nil
		}

		// Collapse the edges leaving the region into a single
		// unconditional successor edge. Edges out of blocks erased by
		// deeper reductions still linger on the exit and go too.
		kept := exit.Preds[:0]
		for _, e := range exit.Preds {
			if !erased[e.From] && !child.Contains(e.From) {
				kept = append(kept, e)
			}
		}
		exit.Preds = kept
		s.cfg.CreateEdge(n, exit, s.ctx.True())

		r.RemoveSubRegion(child)
	}

	return s.foldBasicBlocks(begin, end)
}

// earliestChild returns the child of r whose entry block appears first
// in [begin, end), together with that block's list element.
func (s *structurizer) earliestChild(r *region.Region, begin, end *list.Element) (*region.Region, *list.Element) {
	for elem := begin; elem != end; elem = elem.Next() {
		for _, child := range r.Children() {
			if child.Entry() == blockAt(elem) {
				return child, elem
			}
		}
	}
	panic(fmt.Errorf("no child entry of %v in the block range", r))
}

// foldBasicBlocks flattens the block range [begin, end), which no
// longer contains nested regions, into one statement. Every block is
// guarded by its reaching condition, the disjunction over its
// predecessor edges of the predecessor's own reaching condition
// conjoined with the edge condition. If the range contains a back-edge
// the result is wrapped in a loop and the edges towards end become
// conditional breaks.
func (s *structurizer) foldBasicBlocks(begin, end *list.Element) ast.Statement {
	out := s.ctx.Sequence()
	reach := map[*preast.Block]ast.Expression{}
	members := map[*preast.Block]bool{}

	isLoop := false
	for elem := begin; elem != end; elem = elem.Next() {
		b := blockAt(elem)
		members[b] = true
		if !isLoop {
			for _, e := range b.Succs {
				if members[e.To] {
					isLoop = true
					break
				}
			}
		}

		var cond ast.Expression
		for _, e := range b.Preds {
			// A predecessor without a reaching condition lies outside
			// the range; control from there enters unconditionally.
			var c ast.Expression
			switch parent, inRange := reach[e.From]; {
			case !inRange:
				c = s.ctx.True()
			case s.ctx.IsTrue(e.Condition):
				c = parent
			case s.ctx.IsTrue(parent):
				c = e.Condition
			default:
				c = s.ctx.NAry(ast.ShortCircuitAnd, parent, e.Condition)
			}

			if cond == nil {
				cond = c
			} else {
				cond = s.ctx.NAry(ast.ShortCircuitOr, cond, c)
			}
		}
		if cond == nil {
			cond = s.ctx.True()
		}

		// Keep the body appendable for break insertion below.
		body := b.EnsureSequence(s.ctx)
		if s.ctx.IsTrue(cond) {
			out.Append(body)
		} else {
			out.Append(s.ctx.IfElse(cond, body))
		}
		reach[b] = cond
	}

	// A loop spanning the end of the function has nowhere to break to
	// and stays as-is.
	if isLoop && end != nil {
		for _, e := range blockAt(end).Preds {
			if members[e.From] {
				e.From.EnsureSequence(s.ctx).Append(s.ctx.Break(e.Condition))
			}
		}
		return s.ctx.Loop(s.ctx.True(), ast.PreTested, out)
	}
	return out
}
