package graph

import (
	"fmt"
	"testing"
)

// 0 → 1 → {2, 3} → 4 → 5, the classic join-point example.
var _diamond = OfHashable(func(i int) []int {
	return map[int][]int{
		0: {1},
		1: {2, 3},
		2: {4},
		3: {4},
		4: {5},
		5: {},
	}[i]
})

// 0 → 1 → 2, 2 → {1, 3}: a single natural loop with header 1.
var _loop = OfHashable(func(i int) []int {
	return map[int][]int{
		0: {1},
		1: {2},
		2: {1, 3},
		3: {},
	}[i]
})

func TestDominanceIdom(t *testing.T) {
	D := _diamond.Dominance(0)

	for node, idom := range map[int]int{0: 0, 1: 0, 2: 1, 3: 1, 4: 1, 5: 4} {
		if got := D.Idom(node); got != idom {
			t.Errorf("idom(%d) = %d, want %d", node, got, idom)
		}
	}
}

func TestDominanceQueries(t *testing.T) {
	D := _diamond.Dominance(0)

	tests := []struct {
		a, b      int
		dominates bool
	}{
		{0, 5, true},
		{1, 4, true},
		{2, 4, false},
		{3, 4, false},
		{4, 5, true},
		{4, 4, true},
		{5, 4, false},
	}

	for _, test := range tests {
		if got := D.Dominates(test.a, test.b); got != test.dominates {
			t.Errorf("Dominates(%d, %d) = %v, want %v", test.a, test.b, got, test.dominates)
		}
	}

	if D.ProperlyDominates(4, 4) {
		t.Error("a node should not properly dominate itself")
	}
	if !D.ProperlyDominates(1, 4) {
		t.Error("1 should properly dominate 4")
	}
}

func TestDominanceFrontier(t *testing.T) {
	D := _diamond.Dominance(0)

	for node, frontier := range map[int][]int{
		0: {}, 1: {}, 2: {4}, 3: {4}, 4: {}, 5: {},
	} {
		if got := D.Frontier(node); fmt.Sprint(got) != fmt.Sprint(frontier) {
			t.Errorf("DF(%d) = %v, want %v", node, got, frontier)
		}
	}
}

func TestDominanceFrontierWithLoop(t *testing.T) {
	D := _loop.Dominance(0)

	// The loop header appears in its own frontier through the back edge.
	for node, frontier := range map[int][]int{
		1: {1}, 2: {1},
	} {
		if got := D.Frontier(node); fmt.Sprint(got) != fmt.Sprint(frontier) {
			t.Errorf("DF(%d) = %v, want %v", node, got, frontier)
		}
	}
}

func TestDominanceFrontierOfRootWithBackEdge(t *testing.T) {
	// 0 → 1, 1 → {0, 2}: a back edge into the root puts the root in the
	// frontier of the edge's source.
	g := OfHashable(func(i int) []int {
		return map[int][]int{
			0: {1},
			1: {0, 2},
			2: {},
		}[i]
	})
	D := g.Dominance(0)

	if got := D.Frontier(1); fmt.Sprint(got) != "[0]" {
		t.Errorf("DF(1) = %v, want [0]", got)
	}
}

func TestDominanceReverseGraph(t *testing.T) {
	// Post-dominance of the diamond is dominance of its reversal from 5.
	reversed := OfHashable(func(i int) []int {
		return map[int][]int{
			5: {4},
			4: {2, 3},
			2: {1},
			3: {1},
			1: {0},
			0: {},
		}[i]
	})
	P := reversed.Dominance(5)

	if !P.Dominates(4, 0) {
		t.Error("4 should post-dominate 0")
	}
	if P.Dominates(2, 1) {
		t.Error("2 should not post-dominate 1")
	}
}

func TestPostOrder(t *testing.T) {
	order := _diamond.PostOrder(0)

	want := []int{5, 4, 2, 3, 1, 0}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("post-order = %v, want %v", order, want)
	}

	if order[len(order)-1] != 0 {
		t.Error("root must be last in post-order")
	}
}

func TestDominanceReachability(t *testing.T) {
	D := _sampleGraph.Dominance(0)

	if !D.Reachable(6) {
		t.Error("6 is reachable from 0")
	}
	if D.Root() != 0 {
		t.Errorf("root = %d, want 0", D.Root())
	}
}
