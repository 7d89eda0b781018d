package ids

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ObjectID uint64

type MapID uint64

func (id ObjectID) String() string { return FormatObjectID(id) }
func (id MapID) String() string    { return FormatMapID(id) }

// Provider hands out monotone identifiers for a single domain.
// The first issued id is 1; zero is reserved for "none".
type Provider struct {
	last uint64
}

func (p *Provider) Next() uint64 {
	if p.last < math.MaxUint64 {
		p.last++
	}
	return p.last
}

// ReleaseLast undoes the most recent Next. Only valid as the inverse of that issuance.
func (p *Provider) ReleaseLast() {
	if p.last > 0 {
		p.last--
	}
}

func (p *Provider) Last() uint64 { return p.last }

func (p *Provider) Set(last uint64) { p.last = last }

// Service groups the object and map id domains of one game instance.
// Not safe for concurrent use; callers serialize through the command log.
type Service struct {
	Objects Provider
	Maps    Provider
}

func (s *Service) NextObjectID() ObjectID { return ObjectID(s.Objects.Next()) }
func (s *Service) NextMapID() MapID       { return MapID(s.Maps.Next()) }
func (s *Service) ReleaseLastObjectID()   { s.Objects.ReleaseLast() }
func (s *Service) ReleaseLastMapID()      { s.Maps.ReleaseLast() }

type Counters struct {
	LastObject uint64 `json:"last_object"`
	LastMap    uint64 `json:"last_map"`
}

func (s *Service) Counters() Counters {
	return Counters{LastObject: s.Objects.Last(), LastMap: s.Maps.Last()}
}

func (s *Service) SetCounters(c Counters) {
	s.Objects.Set(c.LastObject)
	s.Maps.Set(c.LastMap)
}

const (
	objectPrefix = "O"
	mapPrefix    = "M"
)

func FormatObjectID(id ObjectID) string { return fmt.Sprintf("%s%d", objectPrefix, uint64(id)) }
func FormatMapID(id MapID) string       { return fmt.Sprintf("%s%d", mapPrefix, uint64(id)) }

func ParseObjectID(s string) (ObjectID, bool) {
	n, ok := ParseUintAfterPrefix(objectPrefix, s)
	if !ok || n == 0 {
		return 0, false
	}
	return ObjectID(n), true
}

func ParseMapID(s string) (MapID, bool) {
	n, ok := ParseUintAfterPrefix(mapPrefix, s)
	if !ok || n == 0 {
		return 0, false
	}
	return MapID(n), true
}

func ParseUintAfterPrefix(prefix, id string) (uint64, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(id[len(prefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
