package world

import (
	"errors"
	"fmt"

	"gridtactics.dev/internal/sim/mapping"
)

// CheckInvariants verifies ledger consistency and position consistency across
// every map and object. It returns all violations joined.
func (w *World) CheckInvariants() error {
	var errs []error
	for _, mid := range w.MapIDs() {
		m := w.maps[mid]
		for _, t := range m.Tiles() {
			counts := map[mapping.StackingClass]uint32{}
			for _, oid := range t.Occupants {
				o, ok := w.objects[oid]
				if !ok {
					errs = append(errs, fmt.Errorf("tile %s%s lists missing object %s", mid, t.Pos, oid))
					continue
				}
				counts[o.Stacking]++
				if !o.Position.Placed || o.Position.Map != mid || o.Position.Tile != t.Pos {
					errs = append(errs, fmt.Errorf("object %s listed on %s%s but positioned at %+v", oid, mid, t.Pos, o.Position))
				}
			}
			for class, e := range t.Stacking {
				if e.Current > e.Max {
					errs = append(errs, fmt.Errorf("tile %s%s ledger %s over capacity %d/%d", mid, t.Pos, class, e.Current, e.Max))
				}
				if counts[class] != e.Current {
					errs = append(errs, fmt.Errorf("tile %s%s ledger %s=%d but %d occupants", mid, t.Pos, class, e.Current, counts[class]))
				}
			}
			for class, n := range counts {
				if _, ok := t.Stacking[class]; !ok && n > 0 {
					errs = append(errs, fmt.Errorf("tile %s%s holds %d occupants of unledgered class %s", mid, t.Pos, n, class))
				}
			}
		}
	}
	for _, oid := range w.ObjectIDs() {
		o := w.objects[oid]
		if !o.Position.Placed {
			continue
		}
		t, ok := w.Tile(o.Position.Map, o.Position.Tile)
		if !ok {
			errs = append(errs, fmt.Errorf("object %s positioned on missing tile %s%s", oid, o.Position.Map, o.Position.Tile))
			continue
		}
		if !t.Contains(oid) {
			errs = append(errs, fmt.Errorf("object %s not listed on its tile %s%s", oid, o.Position.Map, t.Pos))
		}
	}
	return errors.Join(errs...)
}
