package mapping

import "sort"

// StackingClass is the category an occupant is accounted against in a tile's ledger.
type StackingClass string

type StackEntry struct {
	Current uint32 `json:"current"`
	Max     uint32 `json:"max"`
}

// StackingLedger maps stacking class to its current count and capacity.
// Classes absent from the ledger have no capacity.
type StackingLedger map[StackingClass]StackEntry

// NewLedger builds a ledger with current=0 for every class in the schema.
func NewLedger(schema map[StackingClass]uint32) StackingLedger {
	l := make(StackingLedger, len(schema))
	for class, max := range schema {
		l[class] = StackEntry{Max: max}
	}
	return l
}

func (l StackingLedger) HasSpace(class StackingClass) bool {
	e, ok := l[class]
	return ok && e.Current < e.Max
}

func (l StackingLedger) Count(class StackingClass) uint32 {
	return l[class].Current
}

func (l StackingLedger) increment(class StackingClass) bool {
	if !l.HasSpace(class) {
		return false
	}
	e := l[class]
	e.Current++
	l[class] = e
	return true
}

func (l StackingLedger) decrement(class StackingClass) bool {
	e, ok := l[class]
	if !ok || e.Current == 0 {
		return false
	}
	e.Current--
	l[class] = e
	return true
}

func (l StackingLedger) Clone() StackingLedger {
	out := make(StackingLedger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Classes returns the ledger classes in sorted order.
func (l StackingLedger) Classes() []StackingClass {
	out := make([]StackingClass, 0, len(l))
	for k := range l {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
