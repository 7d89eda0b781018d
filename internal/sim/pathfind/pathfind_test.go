package pathfind

import (
	"math/rand"
	"testing"
)

type pt struct{ X, Y int }

type grid struct {
	w, h  int
	costs map[pt]uint32
	walls map[pt]bool
}

func (g grid) neighbors(p pt) []pt {
	var out []pt
	for _, d := range []pt{{0, 1}, {1, 0}, {0, -1}, {-1, 0}} {
		n := pt{p.X + d.X, p.Y + d.Y}
		if n.X >= 0 && n.Y >= 0 && n.X < g.w && n.Y < g.h {
			out = append(out, n)
		}
	}
	return out
}

func (g grid) cost(_, to pt) (uint32, bool) {
	if g.walls[to] {
		return 0, false
	}
	if c, ok := g.costs[to]; ok {
		return c, true
	}
	return 1, true
}

func (g grid) solver(budget uint32, preds ...Predicate[pt]) Solver[pt] {
	return Solver[pt]{Neighbors: g.neighbors, Cost: g.cost, Predicates: preds, Budget: budget}
}

func TestSolve_CostsAndBudget(t *testing.T) {
	g := grid{w: 5, h: 1, costs: map[pt]uint32{{2, 0}: 3}}
	res := g.solver(4).Solve(pt{0, 0})

	want := map[pt]uint32{{0, 0}: 0, {1, 0}: 1, {2, 0}: 4}
	if len(res.Nodes) != len(want) {
		t.Fatalf("nodes=%v", res.Nodes)
	}
	for p, c := range want {
		if res.Nodes[p].Cost != c {
			t.Fatalf("cost(%v)=%d want %d", p, res.Nodes[p].Cost, c)
		}
	}
	if res.Contains(pt{0, 0}) {
		t.Fatalf("start must not be a destination")
	}
	if len(res.Reachable) != 2 {
		t.Fatalf("reachable=%v", res.Reachable)
	}
	path, ok := res.Path(pt{2, 0})
	if !ok || len(path) != 3 || path[0] != (pt{0, 0}) || path[2] != (pt{2, 0}) {
		t.Fatalf("path=%v ok=%v", path, ok)
	}
}

func TestSolve_ImpassableAbsentEverywhere(t *testing.T) {
	g := grid{w: 3, h: 1, walls: map[pt]bool{{1, 0}: true}}
	res := g.solver(10).Solve(pt{0, 0})
	if _, ok := res.Nodes[pt{1, 0}]; ok {
		t.Fatalf("wall recorded in node map")
	}
	if _, ok := res.Nodes[pt{2, 0}]; ok {
		t.Fatalf("tile behind wall reached")
	}
}

func TestSolve_RejectedNodesStillRouteTraffic(t *testing.T) {
	g := grid{w: 3, h: 1}
	occupied := func(p pt) bool { return p != (pt{1, 0}) }
	res := g.solver(5, occupied).Solve(pt{0, 0})

	if res.Contains(pt{1, 0}) {
		t.Fatalf("rejected node reported reachable")
	}
	if !res.Contains(pt{2, 0}) {
		t.Fatalf("node behind rejected node unreachable")
	}
	if res.Nodes[pt{2, 0}].Prior != (pt{1, 0}) {
		t.Fatalf("back-pointer=%v", res.Nodes[pt{2, 0}].Prior)
	}
}

func TestSolve_TieKeepsFirstToReach(t *testing.T) {
	// (1,1) is reached at cost 2 both through (1,0) and (0,1). The neighbor order
	// is N before E, so (0,1) is settled first and wins the back-pointer.
	g := grid{w: 2, h: 2}
	res := g.solver(5).Solve(pt{0, 0})
	if got := res.Nodes[pt{1, 1}].Prior; got != (pt{0, 1}) {
		t.Fatalf("tie back-pointer=%v want (0,1)", got)
	}
	if res.Reachable[0] != (pt{0, 1}) || res.Reachable[1] != (pt{1, 0}) {
		t.Fatalf("settle order=%v", res.Reachable)
	}
}

func TestSolve_CallbackOncePerSettledNode(t *testing.T) {
	g := grid{w: 4, h: 4, costs: map[pt]uint32{{1, 1}: 5, {2, 1}: 2}}
	calls := map[pt]int{}
	s := g.solver(6)
	s.OnSettle = func(n pt, _ Node[pt]) { calls[n]++ }
	res := s.Solve(pt{0, 0})

	if len(calls) != len(res.Nodes) {
		t.Fatalf("callbacks=%d nodes=%d", len(calls), len(res.Nodes))
	}
	for n, c := range calls {
		if c != 1 {
			t.Fatalf("callback for %v ran %d times", n, c)
		}
	}
}

func TestSolve_PredicateOrderDoesNotMatter(t *testing.T) {
	g := grid{w: 6, h: 6}
	water := map[pt]bool{{1, 1}: true, {4, 2}: true, {3, 3}: true}
	forest := map[pt]bool{{2, 0}: true, {0, 4}: true, {3, 3}: true}
	noWater := func(p pt) bool { return !water[p] }
	noForest := func(p pt) bool { return !forest[p] }

	a := g.solver(6, noWater, noForest).Solve(pt{0, 0})
	b := g.solver(6, noForest, noWater).Solve(pt{0, 0})
	if len(a.Reachable) != len(b.Reachable) {
		t.Fatalf("reachable sizes differ: %d vs %d", len(a.Reachable), len(b.Reachable))
	}
	for i := range a.Reachable {
		if a.Reachable[i] != b.Reachable[i] {
			t.Fatalf("reachable differs at %d: %v vs %v", i, a.Reachable[i], b.Reachable[i])
		}
	}
}

func TestSolve_OptimalAgainstRelaxation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		g := grid{w: 7, h: 6, costs: map[pt]uint32{}, walls: map[pt]bool{}}
		for x := 0; x < g.w; x++ {
			for y := 0; y < g.h; y++ {
				switch r := rng.Intn(10); {
				case r == 0:
					g.walls[pt{x, y}] = true
				case r < 4:
					g.costs[pt{x, y}] = uint32(rng.Intn(4))
				}
			}
		}
		start := pt{0, 0}
		delete(g.walls, start)
		const budget = 9
		res := g.solver(budget).Solve(start)

		// Bellman-Ford style relaxation as the reference.
		dist := map[pt]uint32{start: 0}
		for changed := true; changed; {
			changed = false
			for p, d := range dist {
				for _, n := range g.neighbors(p) {
					c, ok := g.cost(p, n)
					if !ok || d+c > budget {
						continue
					}
					if old, seen := dist[n]; !seen || d+c < old {
						dist[n] = d + c
						changed = true
					}
				}
			}
		}
		if len(dist) != len(res.Nodes) {
			t.Fatalf("trial %d: reference=%d nodes, solver=%d", trial, len(dist), len(res.Nodes))
		}
		for p, d := range dist {
			if res.Nodes[p].Cost != d {
				t.Fatalf("trial %d: cost(%v)=%d want %d", trial, p, res.Nodes[p].Cost, d)
			}
		}

		again := g.solver(budget).Solve(start)
		for i := range res.Reachable {
			if again.Reachable[i] != res.Reachable[i] {
				t.Fatalf("trial %d: nondeterministic output", trial)
			}
		}
	}
}
