// Package radio defines the link contract the routing core drives, and a
// simulated in-process broadcast medium used for tests and the CLI demo.
// The real SX1276/SPI/DIO driver is an external collaborator (spec §1, §6)
// and is never implemented here — only its contract is.
package radio

import "context"

// Link is the contract the routing core consumes from the radio adapter
// (spec §6). Frame payloads are ASCII printable, at most wire.MaxFrameBytes,
// with no additional framing.
type Link interface {
	// Init performs one-shot radio bring-up. A failure here is fatal to
	// node startup (spec §7).
	Init(ctx context.Context) error

	// Send broadcasts b as an atomic frame, blocking until the PHY reports
	// completion or an internal timeout (spec §5 notes ~3s) elapses.
	Send(ctx context.Context, b []byte) error

	// Poll returns a newly received frame's length and its RSSI in dBm, or
	// ok=false if nothing has arrived.
	Poll() (length int, rssi int, ok bool)

	// ReadByte drains the current received frame; called length times
	// after a successful Poll.
	ReadByte() (b byte, ok bool)
}

// ReadFrame drains one newly-arrived frame off link via Poll+ReadByte, the
// sequence spec §6 calls for at every dispatch point. ok is false when no
// frame was waiting.
func ReadFrame(link Link) (payload []byte, rssi int, ok bool) {
	length, r, present := link.Poll()
	if !present {
		return nil, 0, false
	}
	buf := make([]byte, 0, length)
	for i := 0; i < length; i++ {
		b, present := link.ReadByte()
		if !present {
			break
		}
		buf = append(buf, b)
	}
	return buf, r, true
}
