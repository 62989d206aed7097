package region

import (
	"fmt"
	"sort"

	"github.com/XVilka/fcd/analysis/preast"
	"github.com/XVilka/fcd/utils"
	"github.com/XVilka/fcd/utils/graph"

	"github.com/benbjohnson/immutable"
)

// blockSet is an immutable membership map over blocks.
type blockSet = immutable.Map[*preast.Block, struct{}]

func newBlockSet(blocks []*preast.Block) *blockSet {
	m := immutable.NewMap[*preast.Block, struct{}](utils.PointerHasher[*preast.Block]{})
	for _, b := range blocks {
		m = m.Set(b, struct{}{})
	}
	return m
}

// Region is a single-entry single-exit subgraph of the CFG, identified
// by its entry and exit blocks. The exit lies outside the region. The
// root region spans the whole function and exits into a virtual
// past-the-end block, represented as nil.
type Region struct {
	entry    *preast.Block
	exit     *preast.Block
	children []*Region
	members  *blockSet
}

func (r *Region) Entry() *preast.Block {
	return r.entry
}

// Exit returns the first block control reaches after leaving the
// region, or nil for the root region.
func (r *Region) Exit() *preast.Block {
	return r.exit
}

func (r *Region) Children() []*Region {
	return r.children
}

// Contains reports whether b is a member of the region. The exit block
// is not a member.
func (r *Region) Contains(b *preast.Block) bool {
	_, ok := r.members.Get(b)
	return ok
}

// Size is the number of member blocks.
func (r *Region) Size() int {
	return r.members.Len()
}

// RemoveSubRegion detaches child from the region.
func (r *Region) RemoveSubRegion(child *Region) {
	for i, c := range r.children {
		if c == child {
			r.children = append(r.children[:i], r.children[i+1:]...)
			return
		}
	}
	panic(fmt.Errorf("region (%v, %v) is not a child of (%v, %v)",
		child.entry, child.exit, r.entry, r.exit))
}

func (r *Region) String() string {
	return fmt.Sprintf("(%v, %v)", r.entry, r.exit)
}

// BuildRegionTree computes the canonical single-entry single-exit
// regions of a normalized CFG and nests them into a tree. A pair
// (entry, exit) forms a region when entry dominates exit, exit
// post-dominates entry, and the dominance frontiers show no control
// flow entering or leaving the enclosed subgraph anywhere else.
func BuildRegionTree(cfg *preast.CFG) *Region {
	fwd := cfg.ForwardGraph().Dominance(cfg.Entry())
	// Post-dominance falls out of dominance on the reversed CFG,
	// rooted in the virtual sink behind all exit blocks.
	rev := cfg.ReverseGraph().Dominance(nil)

	var regions []*Region
	for _, entry := range cfg.Blocks() {
		if !fwd.Reachable(entry) || !rev.Reachable(entry) {
			continue
		}
		for _, exit := range cfg.Blocks() {
			if exit == entry || !fwd.Reachable(exit) || !rev.Reachable(exit) {
				continue
			}
			if !isRegion(fwd, rev, entry, exit) {
				continue
			}

			var members []*preast.Block
			for _, b := range cfg.Blocks() {
				if fwd.Reachable(b) && fwd.Dominates(entry, b) && !fwd.Dominates(exit, b) {
					members = append(members, b)
				}
			}
			regions = append(regions, &Region{
				entry:   entry,
				exit:    exit,
				members: newBlockSet(members),
			})
		}
	}

	root := &Region{
		entry:   cfg.Entry(),
		members: newBlockSet(fwd.PostOrder()),
	}

	// Nest by size: the parent of each region is the smallest region
	// strictly containing it. Sorting ascending lets a single forward
	// scan find it.
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.Size() != b.Size() {
			return a.Size() < b.Size()
		}
		if a.entry.Index != b.entry.Index {
			return a.entry.Index < b.entry.Index
		}
		return a.exit.Index < b.exit.Index
	})

	for i, r := range regions {
		parent := root
		for _, candidate := range regions[i+1:] {
			if candidate.Size() > r.Size() && contains(candidate, r) {
				parent = candidate
				break
			}
		}
		parent.children = append(parent.children, r)
	}

	return root
}

// contains reports whether outer's members are a superset of inner's.
func contains(outer, inner *Region) bool {
	it := inner.members.Iterator()
	for !it.Done() {
		b, _, _ := it.Next()
		if !outer.Contains(b) {
			return false
		}
	}
	return true
}

func isRegion(fwd, rev *graph.Dominance[*preast.Block], entry, exit *preast.Block) bool {
	if !fwd.Dominates(entry, exit) || !rev.Dominates(exit, entry) {
		return false
	}

	// Every escape from the entry's frontier must be shared with the
	// exit and reached only from blocks the exit already covers.
	for _, s := range fwd.Frontier(entry) {
		if s == entry || s == exit {
			continue
		}
		if !inFrontier(fwd, exit, s) {
			return false
		}
		for _, e := range s.Preds {
			p := e.From
			if fwd.Reachable(p) && fwd.Dominates(entry, p) && !fwd.Dominates(exit, p) {
				return false
			}
		}
	}

	// Nothing may jump from the outside past the entry.
	for _, s := range fwd.Frontier(exit) {
		if s != exit && fwd.ProperlyDominates(entry, s) {
			return false
		}
	}

	return true
}

func inFrontier(d *graph.Dominance[*preast.Block], node, target *preast.Block) bool {
	for _, s := range d.Frontier(node) {
		if s == target {
			return true
		}
	}
	return false
}
