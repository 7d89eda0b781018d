package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sort"

	"gridtactics.dev/internal/sim/mapping"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// Digest hashes the full world state in a deterministic order. Two worlds with the
// same digest are equal for replay purposes.
func (w *World) Digest() string { return w.digest(true) }

// EntityDigest is Digest without resources. Runners publish resources outside the
// command history, so a journal replay can only reproduce this part.
func (w *World) EntityDigest() string { return w.digest(false) }

func (w *World) digest(resources bool) string {
	h := sha256.New()
	var tmp [8]byte

	c := w.IDs.Counters()
	digestWriteU64(h, &tmp, c.LastObject)
	digestWriteU64(h, &tmp, c.LastMap)

	for _, id := range w.MapIDs() {
		digestMap(h, &tmp, w.maps[id])
	}
	for _, id := range w.ObjectIDs() {
		b, _ := json.Marshal(w.objects[id])
		digestWriteBytes(h, &tmp, b)
	}
	for _, name := range w.ResourceNames() {
		if !resources {
			break
		}
		digestWriteBytes(h, &tmp, []byte(name))
		digestWriteBytes(h, &tmp, w.resources[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestMap(h hashWriter, tmp *[8]byte, m *mapping.Map) {
	digestWriteU64(h, tmp, uint64(m.ID))
	digestWriteU64(h, tmp, uint64(m.Width))
	digestWriteU64(h, tmp, uint64(m.Height))
	h.Write([]byte{byte(m.Topology)})
	for _, t := range m.Tiles() {
		digestWriteBytes(h, tmp, []byte(t.Terrain.Name))
		digestWriteBytes(h, tmp, []byte(t.Terrain.Class))

		classes := make([]string, 0, len(t.Costs))
		for k := range t.Costs {
			classes = append(classes, string(k))
		}
		sort.Strings(classes)
		for _, k := range classes {
			digestWriteBytes(h, tmp, []byte(k))
			digestWriteU64(h, tmp, uint64(t.Costs[mapping.MovementClass(k)]))
		}
		for _, sc := range t.Stacking.Classes() {
			e := t.Stacking[sc]
			digestWriteBytes(h, tmp, []byte(sc))
			digestWriteU64(h, tmp, uint64(e.Current))
			digestWriteU64(h, tmp, uint64(e.Max))
		}
		digestWriteU64(h, tmp, uint64(len(t.Occupants)))
		for _, o := range t.Occupants {
			digestWriteU64(h, tmp, uint64(o))
		}
	}
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteBytes(h hashWriter, tmp *[8]byte, b []byte) {
	digestWriteU64(h, tmp, uint64(len(b)))
	h.Write(b)
}
