package pathfind

import "math"

// Node is the search record for one position. Prior is the back-pointer toward
// the start; Valid is false for the start and for nodes a predicate rejected.
type Node[N comparable] struct {
	Prior    N
	HasPrior bool
	Cost     uint32
	Valid    bool
}

type Result[N comparable] struct {
	Start N
	Nodes map[N]Node[N]
	// Reachable lists valid nodes in the order they were settled.
	Reachable []N
}

// CostFunc returns the cost of stepping from one node to a neighbor, or false
// when the neighbor is impassable.
type CostFunc[N comparable] func(from, to N) (uint32, bool)

// Predicate reports whether a node may be a destination.
type Predicate[N comparable] func(n N) bool

// Solver runs Dijkstra over a graph given by Neighbors. Nodes costing more than
// Budget are never recorded.
type Solver[N comparable] struct {
	Neighbors  func(n N) []N
	Cost       CostFunc[N]
	Predicates []Predicate[N]
	// OnSettle is called exactly once for every settled node, start included.
	OnSettle func(n N, node Node[N])
	Budget   uint32
}

type state[N comparable] struct {
	Node[N]
	settled bool
}

func (s Solver[N]) Solve(start N) Result[N] {
	nodes := map[N]*state[N]{start: {}}
	var q frontier[N]
	q.push(start, 0)

	var settledOrder []N
	for q.Len() > 0 {
		it := q.pop()
		cur := nodes[it.node]
		if cur.settled || it.cost != cur.Cost {
			continue
		}
		cur.settled = true
		settledOrder = append(settledOrder, it.node)
		if s.OnSettle != nil {
			s.OnSettle(it.node, cur.Node)
		}

		for _, nb := range s.Neighbors(it.node) {
			next, seen := nodes[nb]
			if seen && next.settled {
				continue
			}
			step, ok := s.Cost(it.node, nb)
			if !ok {
				continue
			}
			cand := addCost(it.cost, step)
			if cand > s.Budget {
				continue
			}
			if !seen {
				nodes[nb] = &state[N]{Node: Node[N]{Prior: it.node, HasPrior: true, Cost: cand, Valid: s.accepts(nb)}}
				q.push(nb, cand)
				continue
			}
			if cand < next.Cost {
				next.Prior = it.node
				next.Cost = cand
				q.push(nb, cand)
			}
		}
	}

	res := Result[N]{Start: start, Nodes: make(map[N]Node[N], len(nodes))}
	for n, st := range nodes {
		res.Nodes[n] = st.Node
	}
	for _, n := range settledOrder {
		if nodes[n].Valid {
			res.Reachable = append(res.Reachable, n)
		}
	}
	return res
}

func (s Solver[N]) accepts(n N) bool {
	for _, p := range s.Predicates {
		if !p(n) {
			return false
		}
	}
	return true
}

func addCost(a, b uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(sum)
}

// Contains reports whether n is a valid destination.
func (r Result[N]) Contains(n N) bool {
	nd, ok := r.Nodes[n]
	return ok && nd.Valid
}

// Path follows back-pointers from n to the start and returns the route from the
// start to n, both included.
func (r Result[N]) Path(n N) ([]N, bool) {
	nd, ok := r.Nodes[n]
	if !ok {
		return nil, false
	}
	path := []N{n}
	for nd.HasPrior {
		path = append(path, nd.Prior)
		if len(path) > len(r.Nodes) {
			return nil, false
		}
		nd = r.Nodes[nd.Prior]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}
