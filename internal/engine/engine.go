// Package engine implements the distance-vector routing engine: admission
// of inbound frames, local Bellman-Ford relaxation with split horizon,
// aging, and forwarding decisions (spec §4.4).
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kadewit/lorarouting/internal/clock"
	"github.com/kadewit/lorarouting/internal/identity"
	"github.com/kadewit/lorarouting/internal/metrics"
	"github.com/kadewit/lorarouting/internal/radio"
	"github.com/kadewit/lorarouting/internal/routetable"
	"github.com/kadewit/lorarouting/internal/wire"
)

// Staleness gates, distinct per spec §5.
const (
	ForwardStaleMs = 10_000
	EntryTTLMs     = 60_000
)

// RelaxationPasses is the fixed pass count (N-1 for N=10 nodes), per spec §4.4.
const RelaxationPasses = identity.MaxNodes - 1

// ErrRouteMissing and ErrRouteStale are the two forwarding veto outcomes
// (spec §4.4 Forwarding, §7).
var (
	ErrRouteMissing = errors.New("engine: no route to destination")
	ErrRouteStale   = errors.New("engine: route to destination is stale")
)

// Engine owns one node's routing table and drives it according to the
// distributed Bellman-Ford protocol. It is not safe for concurrent use —
// per spec §5, a single cooperative owner mutates it on the tick driver's
// goroutine.
type Engine struct {
	dir   *identity.Directory
	table *routetable.Table
	clk   clock.Clock
	link  radio.Link
	log   *zap.Logger
	mx    *metrics.Collectors
}

// New constructs an Engine. mx may be nil to disable metrics.
func New(dir *identity.Directory, table *routetable.Table, clk clock.Clock, link radio.Link, log *zap.Logger, mx *metrics.Collectors) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{dir: dir, table: table, clk: clk, link: link, log: log, mx: mx}
}

// Table exposes the underlying table for inspection (tests, diagnostics).
func (e *Engine) Table() *routetable.Table { return e.table }

func (e *Engine) occupancyGauge() {
	if e.mx != nil {
		e.mx.TableOccupancy.Set(float64(e.table.Len()))
	}
}

// AdmitHello integrates a received HELLO frame: a HELLO always refreshes
// the direct-neighbor entry; it never creates multi-hop routes (spec §4.4).
func (e *Engine) AdmitHello(mac identity.MAC, rssi int16) {
	now := e.clk.NowMillis()

	nid, ok := e.dir.MACToID(mac)
	if !ok {
		e.drop("unknown_mac")
		return
	}
	if nid == e.dir.OwnID() {
		e.drop("self_hello")
		return
	}

	slot, ok := e.table.FindOrAllocate(nid)
	if !ok {
		e.drop("table_full")
		return
	}

	slot.Occupied = true
	slot.Destination = nid
	slot.MAC = mac
	slot.RSSI = rssi
	slot.Cost = int32(-rssi)
	slot.NextHopID = nid
	slot.NextHopMAC = mac
	slot.LastUpdated = now

	e.admit("hello")
	e.log.Debug("admitted hello", zap.Uint8("neighbor", uint8(nid)), zap.Int16("rssi", rssi))
}

// AdmitRoutingID integrates a received ROUTINGID frame from rid.Sender,
// observed with the given packet RSSI (spec §4.4). rid.Entries is assumed
// already filtered by wire.ParseRoutingID (self-reference, filler, and
// non-positive-cost suppression all happen at parse time, spec §4.2).
func (e *Engine) AdmitRoutingID(senderRSSI int16, rid wire.RoutingID) {
	now := e.clk.NowMillis()
	sender := rid.Sender

	if sender == e.dir.OwnID() {
		e.drop("self_routingid")
		return
	}

	costToSender := int32(-senderRSSI)
	senderMAC, _ := e.dir.IDToMAC(sender)

	senderSlot, ok := e.table.FindOrAllocate(sender)
	if !ok {
		e.drop("table_full")
		return
	}
	senderSlot.Occupied = true
	senderSlot.Destination = sender
	senderSlot.MAC = senderMAC
	senderSlot.RSSI = senderRSSI
	senderSlot.Cost = costToSender
	senderSlot.NextHopID = sender
	senderSlot.NextHopMAC = senderMAC
	senderSlot.LastUpdated = now

	for _, entry := range rid.Entries {
		total := costToSender + entry.Cost

		if slot, ok := e.table.FindByDestination(entry.Dest); ok {
			if total < slot.Cost {
				slot.RSSI = entry.RSSI
				slot.Cost = total
				slot.NextHopID = sender
				slot.NextHopMAC = senderMAC
				slot.MAC, _ = e.dir.IDToMAC(entry.Dest)
				slot.LastUpdated = now
				e.admit("routingid_update")
			}
			continue
		}

		slot, ok := e.table.FindOrAllocate(entry.Dest)
		if !ok {
			e.drop("table_full")
			continue
		}
		destMAC, _ := e.dir.IDToMAC(entry.Dest)
		slot.Occupied = true
		slot.Destination = entry.Dest
		slot.MAC = destMAC
		slot.RSSI = entry.RSSI
		slot.Cost = total
		slot.NextHopID = sender
		slot.NextHopMAC = senderMAC
		slot.LastUpdated = now
		e.admit("routingid_new")
	}

	e.log.Debug("admitted routingid", zap.Uint8("sender", uint8(sender)), zap.Int("entries", len(rid.Entries)))
}

// RunBellmanFord runs one local relaxation: resets direct-neighbor rows to
// their link cost, then performs RelaxationPasses passes of split-horizon
// relaxation over every ordered pair of occupied rows (spec §4.4).
func (e *Engine) RunBellmanFord() {
	var rows []*routetable.Slot
	e.table.Occupied(func(s *routetable.Slot) { rows = append(rows, s) })

	for _, row := range rows {
		if row.NextHopID == row.Destination {
			row.Cost = int32(-row.RSSI)
		}
	}

	ownID := e.dir.OwnID()

	for pass := 0; pass < RelaxationPasses; pass++ {
		for i := range rows {
			for j := range rows {
				if i == j {
					continue
				}
				ri, rj := rows[i], rows[j]

				if rj.NextHopID == ownID {
					continue // split horizon: never route via a neighbor pointing back to us
				}

				linkJ := int32(-rj.RSSI)
				candidate := linkJ + rj.Cost
				if candidate < ri.Cost {
					ri.Cost = candidate
					ri.NextHopMAC = rj.MAC
					if nh, ok := e.dir.MACToID(rj.MAC); ok {
						ri.NextHopID = nh
					}
				}
			}
		}
	}

	if e.mx != nil {
		e.mx.RelaxationPasses.Inc()
	}
	e.occupancyGauge()
}

// EvictStale ages out any occupied slot older than EntryTTLMs (spec §4.5),
// logging each eviction at debug level.
func (e *Engine) EvictStale() {
	now := e.clk.NowMillis()
	e.table.Occupied(func(s *routetable.Slot) {
		if clock.Since(now, s.LastUpdated) > EntryTTLMs {
			e.log.Debug("evicting stale route", zap.Uint8("dest", uint8(s.Destination)))
		}
	})
	e.table.EvictStale(now, EntryTTLMs)
	e.occupancyGauge()
}

// Forward decides whether target_id is currently reachable and, if so,
// emits the minimal data payload through the radio (spec §4.4 Forwarding).
func (e *Engine) Forward(ctx context.Context, target identity.NodeID) error {
	now := e.clk.NowMillis()

	slot, ok := e.table.FindByDestination(target)
	if !ok {
		return ErrRouteMissing
	}
	if clock.Since(now, slot.LastUpdated) > ForwardStaleMs {
		return ErrRouteStale
	}

	payload := fmt.Sprintf("Data to NODE_%d", target)
	return e.link.Send(ctx, []byte(payload))
}

// BroadcastVector emits this node's full vector with no split-horizon
// target (spec §4.4).
func (e *Engine) BroadcastVector(ctx context.Context) error {
	return e.link.Send(ctx, []byte(e.encodeVector(identity.None)))
}

// SendVectorTo emits this node's vector to neighbor, suppressing any row
// whose next hop is neighbor itself — split horizon applied to the
// advertisement (spec §4.4).
func (e *Engine) SendVectorTo(ctx context.Context, neighbor identity.NodeID) error {
	return e.link.Send(ctx, []byte(e.encodeVector(neighbor)))
}

// encodeVector walks occupied rows in fixed slot order, skipping any row
// whose next hop equals suppress (identity.None suppresses nothing).
func (e *Engine) encodeVector(suppress identity.NodeID) string {
	var entries []wire.RouteEntry
	e.table.Occupied(func(s *routetable.Slot) {
		if suppress != identity.None && s.NextHopID == suppress {
			return
		}
		entries = append(entries, wire.RouteEntry{
			Dest:    s.Destination,
			RSSI:    s.RSSI,
			Cost:    s.Cost,
			NextHop: s.NextHopID,
		})
	})
	return wire.EncodeRoutingID(e.dir.OwnID(), entries)
}

func (e *Engine) admit(kind string) {
	if e.mx != nil {
		e.mx.FramesAdmitted.WithLabelValues(kind).Inc()
	}
	e.occupancyGauge()
}

// drop counts a silently-dropped frame (spec §7: table-full and
// self-referential admissions are dropped without logging).
func (e *Engine) drop(reason string) {
	if e.mx != nil {
		e.mx.FramesDropped.WithLabelValues(reason).Inc()
	}
}
