// Package tick implements the single cooperative driver loop: four
// independent schedules (HELLO, vector advertisement, relaxation, aging)
// plus an RX poll on every iteration (spec §4.5, §5).
package tick

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kadewit/lorarouting/internal/clock"
	"github.com/kadewit/lorarouting/internal/engine"
	"github.com/kadewit/lorarouting/internal/identity"
	"github.com/kadewit/lorarouting/internal/radio"
	"github.com/kadewit/lorarouting/internal/wire"
)

// Base periods and jitter ranges, per spec §4.5.
const (
	helloPeriodMs      = 10_000
	helloJitterMs      = 300
	vectorPeriodMs     = 9_000
	vectorJitterMs     = 3_000
	relaxationPeriodMs = 15_000
	agingPeriodMs      = 2_000
	idleDelay          = 10 * time.Millisecond
)

// schedule tracks one periodic action's own last-fire timestamp and jitter
// budget, independent of the other three (spec §4.5 table).
type schedule struct {
	periodMs uint32
	jitterMs int
	lastFire clock.Millis
	nextWait uint32
}

func (s *schedule) due(now clock.Millis) bool {
	return clock.Since(now, s.lastFire) >= s.nextWait
}

func (s *schedule) fired(now clock.Millis, jitter clock.Jitter) {
	s.lastFire = now
	s.nextWait = s.periodMs
	if s.jitterMs > 0 {
		s.nextWait += uint32(jitter.Intn(s.jitterMs))
	}
}

// Driver owns the engine, link, and clock for one node and runs the
// cooperative tick loop (spec §5: single task, no locks).
type Driver struct {
	eng    *engine.Engine
	link   radio.Link
	clk    clock.Clock
	jitter clock.Jitter
	dir    *identity.Directory
	log    *zap.Logger

	hello      schedule
	vector     schedule
	relaxation schedule
	aging      schedule
}

// New constructs a Driver. log may be nil.
func New(eng *engine.Engine, link radio.Link, clk clock.Clock, jitter clock.Jitter, dir *identity.Directory, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	now := clk.NowMillis()
	d := &Driver{eng: eng, link: link, clk: clk, jitter: jitter, dir: dir, log: log}
	d.hello = schedule{periodMs: helloPeriodMs, jitterMs: helloJitterMs, lastFire: now}
	d.vector = schedule{periodMs: vectorPeriodMs, jitterMs: vectorJitterMs, lastFire: now}
	d.relaxation = schedule{periodMs: relaxationPeriodMs, lastFire: now}
	d.aging = schedule{periodMs: agingPeriodMs, lastFire: now}
	d.hello.fired(now, jitter)
	d.vector.fired(now, jitter)
	d.relaxation.fired(now, jitter)
	d.aging.fired(now, jitter)
	return d
}

// Run drives the loop until ctx is cancelled. It is the Go-native
// replacement for the original's bare for(;;) loop: one goroutine, no
// additional concurrency, cooperative cancellation via ctx (spec §5).
func (d *Driver) Run(ctx context.Context) error {
	runID := uuid.New()
	d.log.Info("tick driver starting", zap.String("run_id", runID.String()))

	if err := d.link.Init(ctx); err != nil {
		return err // fatal per spec §7: radio init failure aborts startup
	}

	ticker := time.NewTicker(idleDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("tick driver stopping", zap.String("run_id", runID.String()))
			return ctx.Err()
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick runs one iteration: poll RX, then fire any due schedule.
func (d *Driver) tick(ctx context.Context) {
	now := d.clk.NowMillis()

	d.pollOnce()

	if d.hello.due(now) {
		d.sendHello(ctx)
		d.hello.fired(now, d.jitter)
	}
	if d.vector.due(now) {
		if err := d.eng.BroadcastVector(ctx); err != nil {
			d.log.Warn("broadcast vector failed", zap.Error(err))
		}
		d.vector.fired(now, d.jitter)
	}
	if d.relaxation.due(now) {
		d.eng.RunBellmanFord()
		d.relaxation.fired(now, d.jitter)
	}
	if d.aging.due(now) {
		d.eng.EvictStale()
		d.aging.fired(now, d.jitter)
	}
}

func (d *Driver) sendHello(ctx context.Context) {
	mac, err := d.dir.OwnMAC()
	if err != nil {
		d.log.Warn("could not read own MAC", zap.Error(err))
		return
	}
	frame := wire.EncodeHello(d.dir.OwnID(), mac)
	if err := d.link.Send(ctx, []byte(frame)); err != nil {
		d.log.Warn("send hello failed", zap.Error(err))
	}
}

// pollOnce drains at most one inbound frame per tick and dispatches it to
// the HELLO or ROUTINGID path (spec §4.5). Oversized or non-printable
// frames are dropped with a warning (spec §7); legacy ROUTING frames and
// unrecognized frames are dropped silently.
func (d *Driver) pollOnce() {
	payload, rssi, ok := radio.ReadFrame(d.link)
	if !ok {
		return
	}

	if !wire.ValidateFrame(payload) {
		d.log.Warn("dropping invalid frame", zap.Int("len", len(payload)))
		return
	}

	s := string(payload)
	switch wire.Sniff(s) {
	case wire.KindHello:
		hello, ok := wire.ParseHello(s)
		if !ok {
			return
		}
		d.eng.AdmitHello(hello.MAC, int16(rssi))

	case wire.KindRoutingID:
		rid, ok := wire.ParseRoutingID(s, d.dir.OwnID())
		if !ok {
			return // malformed header: drop entire frame, no log (spec §7)
		}
		d.eng.AdmitRoutingID(int16(rssi), rid)

	case wire.KindRoutingLegacy:
		// Recognized and silently discarded (spec §4.2).

	default:
		// Unrecognized frame: silently discarded.
	}
}
