// Package clock provides the monotonic time and jitter adapters the routing
// core is built against. The platform clock source and entropy source are
// external collaborators (see spec §1); this package only defines the
// narrow contracts the core needs and a production implementation of each.
package clock

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"time"
)

// Millis is a monotonic millisecond timestamp. It wraps around roughly every
// 49.7 days; callers must use Since, never plain subtraction, to compute
// elapsed time across a possible wrap.
type Millis uint32

// Since returns the elapsed time between last and now, correctly handling a
// single wraparound of the millisecond counter.
func Since(now, last Millis) uint32 {
	return uint32(now - last)
}

// Clock reports the current monotonic time in milliseconds since some
// arbitrary epoch fixed at process start.
type Clock interface {
	NowMillis() Millis
}

// System is the production Clock, backed by time.Now via a monotonic
// reading anchored at construction.
type System struct {
	start time.Time
}

// NewSystem returns a Clock anchored to the current instant.
func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) NowMillis() Millis {
	return Millis(uint32(time.Since(s.start).Milliseconds()))
}

// Jitter draws uniform pseudo-random integers in [0, n) for desynchronizing
// periodic broadcasts across the mesh. The draw need not be cryptographic;
// only the seed is.
type Jitter interface {
	Intn(n int) int
}

// SystemJitter is a math/rand source seeded from the platform entropy
// source at construction, per spec §9.
type SystemJitter struct {
	rng *mrand.Rand
}

// NewSystemJitter seeds a PRNG from crypto/rand. If the entropy source is
// unavailable the current time is folded in as a fallback seed so the node
// can still start.
func NewSystemJitter() *SystemJitter {
	var seedBytes [8]byte
	seed := time.Now().UnixNano()
	if _, err := rand.Read(seedBytes[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(seedBytes[:]))
	}
	return &SystemJitter{rng: mrand.New(mrand.NewSource(seed))}
}

func (j *SystemJitter) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return j.rng.Intn(n)
}
