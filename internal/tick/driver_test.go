package tick

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadewit/lorarouting/internal/clock"
	"github.com/kadewit/lorarouting/internal/engine"
	"github.com/kadewit/lorarouting/internal/identity"
	"github.com/kadewit/lorarouting/internal/radio"
	"github.com/kadewit/lorarouting/internal/routetable"
)

type stepClock struct{ now clock.Millis }

func (c *stepClock) NowMillis() clock.Millis { return c.now }
func (c *stepClock) advance(ms uint32)       { c.now += clock.Millis(ms) }

type zeroJitter struct{}

func (zeroJitter) Intn(n int) int { return 0 }

func macFor(id identity.NodeID) identity.MAC {
	return identity.MAC{0, 0, 0, 0, 0, byte(id)}
}

type staticMAC struct{ mac identity.MAC }

func (s staticMAC) ReadMAC() (identity.MAC, error) { return s.mac, nil }

func newNode(t *testing.T, medium *radio.Medium, id identity.NodeID) (*Driver, *identity.Directory, *stepClock) {
	t.Helper()
	table := make(map[identity.NodeID]identity.MAC, identity.MaxNodes)
	for i := 0; i < identity.MaxNodes; i++ {
		table[identity.NodeID(i)] = macFor(identity.NodeID(i))
	}
	dir := identity.NewDirectory(table, id, staticMAC{mac: macFor(id)})

	link := medium.Join(nameFor(id))
	fc := &stepClock{now: 0}
	eng := engine.New(dir, routetable.New(), fc, link, nil, nil)
	d := New(eng, link, fc, zeroJitter{}, dir, nil)
	return d, dir, fc
}

func nameFor(id identity.NodeID) string {
	return string(rune('a' + int(id)))
}

// End-to-end S1->S2->S3 over a simulated radio medium: HELLOs go out through
// the driver's sendHello and every received frame goes through its pollOnce
// dispatch; the vector emissions are direct engine calls.
func TestDriverEndToEndThreeNodeChain(t *testing.T) {
	medium := radio.NewMedium(nil)
	medium.SetRSSI(nameFor(0), nameFor(1), -50)
	medium.SetRSSI(nameFor(1), nameFor(2), -60)
	// 0 and 2 are out of range of each other.

	d0, _, _ := newNode(t, medium, 0)
	d1, _, _ := newNode(t, medium, 1)
	d2, _, _ := newNode(t, medium, 2)

	ctx := context.Background()
	require.NoError(t, d0.link.Init(ctx))
	require.NoError(t, d1.link.Init(ctx))
	require.NoError(t, d2.link.Init(ctx))

	// S1: HELLO exchange establishes direct neighbors. node 1's single
	// broadcast reaches both node 0 and node 2 (its only two peers in
	// range), so each drains its own inbox once.
	d1.sendHello(ctx)
	d0.pollOnce()
	d2.pollOnce()

	slot, ok := d0.eng.Table().FindByDestination(1)
	require.True(t, ok)
	require.Equal(t, int16(-50), slot.RSSI)
	require.Equal(t, int32(50), slot.Cost)

	_, ok = d2.eng.Table().FindByDestination(1)
	require.True(t, ok)

	d0.sendHello(ctx)
	d1.pollOnce()

	// S2: node 1 advertises its vector; node 0 absorbs a transitive route
	// to node 2.
	d2.sendHello(ctx)
	d1.pollOnce()

	require.NoError(t, d1.eng.BroadcastVector(ctx))
	d0.pollOnce()
	d2.pollOnce() // drain node 1's vector so it doesn't linger for later assertions

	slot, ok = d0.eng.Table().FindByDestination(2)
	require.True(t, ok)
	require.Equal(t, int32(110), slot.Cost)
	require.Equal(t, identity.NodeID(1), slot.NextHopID)

	// S3: node 0's targeted advertisement back to node 1 must suppress the
	// dest=2 entry, since its next hop is node 1.
	require.NoError(t, d0.eng.SendVectorTo(ctx, 1))
}

func TestScheduleDueAndFired(t *testing.T) {
	s := schedule{periodMs: 1000}
	now := clock.Millis(0)
	s.lastFire = now
	s.nextWait = 1000

	require.False(t, s.due(500))
	require.True(t, s.due(1000))

	s.fired(1000, zeroJitter{})
	require.Equal(t, clock.Millis(1000), s.lastFire)
	require.Equal(t, uint32(1000), s.nextWait)
}

func TestDriverRunRespectsContextCancellation(t *testing.T) {
	medium := radio.NewMedium(nil)
	d, _, _ := newNode(t, medium, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
