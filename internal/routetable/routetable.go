// Package routetable implements the fixed ten-slot routing table (spec §3,
// §4.3). Destinations map one-to-one onto occupied slots; allocation is a
// first-fit scan, acceptable at the mesh's bounded size of ten nodes.
package routetable

import (
	"github.com/kadewit/lorarouting/internal/clock"
	"github.com/kadewit/lorarouting/internal/identity"
)

// Capacity is the fixed number of slots in the table (spec §3).
const Capacity = identity.MaxNodes

// Slot describes one destination reachable from this node.
type Slot struct {
	Occupied    bool
	Destination identity.NodeID
	MAC         identity.MAC
	RSSI        int16
	Cost        int32
	NextHopID   identity.NodeID
	NextHopMAC  identity.MAC
	LastUpdated clock.Millis
}

// Table is the fixed-capacity slot array.
type Table struct {
	slots [Capacity]Slot
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// FindByDestination returns the occupied slot for id, if any.
func (t *Table) FindByDestination(id identity.NodeID) (*Slot, bool) {
	for i := range t.slots {
		if t.slots[i].Occupied && t.slots[i].Destination == id {
			return &t.slots[i], true
		}
	}
	return nil, false
}

// FindOrAllocate returns the existing slot for id, or the first empty slot.
// It returns (nil, false) when no slot is available (table full).
func (t *Table) FindOrAllocate(id identity.NodeID) (*Slot, bool) {
	if s, ok := t.FindByDestination(id); ok {
		return s, true
	}
	for i := range t.slots {
		if !t.slots[i].Occupied {
			return &t.slots[i], true
		}
	}
	return nil, false
}

// Clear empties a slot in place.
func (s *Slot) Clear() {
	*s = Slot{}
}

// EvictStale clears any occupied slot older than ttlMs relative to now.
func (t *Table) EvictStale(now clock.Millis, ttlMs uint32) {
	for i := range t.slots {
		s := &t.slots[i]
		if !s.Occupied {
			continue
		}
		if clock.Since(now, s.LastUpdated) > ttlMs {
			s.Clear()
		}
	}
}

// Occupied invokes fn for each occupied slot in fixed slot order. fn must
// not mutate slot occupancy; field updates in place are fine.
func (t *Table) Occupied(fn func(*Slot)) {
	for i := range t.slots {
		if t.slots[i].Occupied {
			fn(&t.slots[i])
		}
	}
}

// Len returns the number of occupied slots.
func (t *Table) Len() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].Occupied {
			n++
		}
	}
	return n
}

// CheckInvariants validates the quantified invariants of spec §8 against
// the current table state. It is a test/diagnostic helper, not used on the
// hot path.
func (t *Table) CheckInvariants(ownID identity.NodeID, now clock.Millis) []string {
	var problems []string
	seen := map[identity.NodeID]bool{}

	for i := range t.slots {
		s := &t.slots[i]
		if !s.Occupied {
			continue
		}
		if s.Destination == ownID {
			problems = append(problems, "slot destination equals own id")
		}
		if seen[s.Destination] {
			problems = append(problems, "duplicate destination in table")
		}
		seen[s.Destination] = true
		if s.Cost < 0 {
			problems = append(problems, "negative cost")
		}
		if s.LastUpdated > now {
			problems = append(problems, "last_updated in the future")
		}
	}
	return problems
}
