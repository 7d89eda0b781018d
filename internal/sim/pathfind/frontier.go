package pathfind

import "container/heap"

type entry[N comparable] struct {
	node N
	cost uint32
	seq  uint64
}

// frontier is a min-queue on (cost, insertion order).
type frontier[N comparable] struct {
	items []entry[N]
	seq   uint64
}

func (f *frontier[N]) Len() int { return len(f.items) }

func (f *frontier[N]) Less(i, j int) bool {
	if f.items[i].cost != f.items[j].cost {
		return f.items[i].cost < f.items[j].cost
	}
	return f.items[i].seq < f.items[j].seq
}

func (f *frontier[N]) Swap(i, j int) { f.items[i], f.items[j] = f.items[j], f.items[i] }

func (f *frontier[N]) Push(x any) { f.items = append(f.items, x.(entry[N])) }

func (f *frontier[N]) Pop() any {
	old := f.items
	n := len(old)
	it := old[n-1]
	f.items = old[:n-1]
	return it
}

func (f *frontier[N]) push(node N, cost uint32) {
	f.seq++
	heap.Push(f, entry[N]{node: node, cost: cost, seq: f.seq})
}

func (f *frontier[N]) pop() entry[N] {
	return heap.Pop(f).(entry[N])
}
