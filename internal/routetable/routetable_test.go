package routetable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadewit/lorarouting/internal/identity"
)

func TestFindOrAllocateReusesExisting(t *testing.T) {
	tbl := New()

	s1, ok := tbl.FindOrAllocate(1)
	require.True(t, ok)
	s1.Occupied = true
	s1.Destination = 1

	s2, ok := tbl.FindOrAllocate(1)
	require.True(t, ok)
	require.Same(t, s1, s2)
}

func TestFindOrAllocateFull(t *testing.T) {
	tbl := New()
	for i := 0; i < Capacity; i++ {
		s, ok := tbl.FindOrAllocate(identity.NodeID(i))
		require.True(t, ok)
		s.Occupied = true
		s.Destination = identity.NodeID(i)
	}

	_, ok := tbl.FindOrAllocate(identity.NodeID(Capacity))
	require.False(t, ok, "table must report full once Capacity slots are occupied")
}

func TestEvictStale(t *testing.T) {
	tbl := New()
	s, ok := tbl.FindOrAllocate(1)
	require.True(t, ok)
	s.Occupied = true
	s.Destination = 1
	s.LastUpdated = 0

	tbl.EvictStale(30_000, 60_000)
	_, ok = tbl.FindByDestination(1)
	require.True(t, ok, "must not evict before ttl elapses")

	tbl.EvictStale(61_000, 60_000)
	_, ok = tbl.FindByDestination(1)
	require.False(t, ok, "must evict once ttl has elapsed")
}

func TestOccupiedIterationOrder(t *testing.T) {
	tbl := New()
	for _, id := range []identity.NodeID{5, 2, 8} {
		s, ok := tbl.FindOrAllocate(id)
		require.True(t, ok)
		s.Occupied = true
		s.Destination = id
	}

	var order []identity.NodeID
	tbl.Occupied(func(s *Slot) { order = append(order, s.Destination) })
	require.Equal(t, []identity.NodeID{5, 2, 8}, order, "iteration follows fixed slot (allocation) order")
}

func TestCheckInvariantsFlagsDuplicateAndSelf(t *testing.T) {
	tbl := New()
	s1, _ := tbl.FindOrAllocate(1)
	s1.Occupied = true
	s1.Destination = 0 // equals ownID below

	for i := 0; i < 2; i++ {
		s, _ := tbl.FindOrAllocate(identity.NodeID(5 + i))
		s.Occupied = true
		s.Destination = 3 // both slots claim destination 3
	}

	problems := tbl.CheckInvariants(0, 1000)
	require.NotEmpty(t, problems)
	require.Contains(t, problems, "slot destination equals own id")
	require.Contains(t, problems, "duplicate destination in table")
}
