// Package wire implements the HELLO and ROUTINGID frame codec that runs
// over the radio link (spec §4.2). Frames are ASCII, bounded to 230 bytes.
package wire

import (
	"strconv"
	"strings"

	"github.com/kadewit/lorarouting/internal/identity"
)

// MaxFrameBytes is the largest frame the radio will carry (spec §4.2, §6).
const MaxFrameBytes = 230

// Kind discriminates a sniffed frame without fully parsing it, the way
// davidcoles-bgp's message interface discriminates M_OPEN/M_UPDATE/etc. via
// Type() before the body is decoded.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindHello
	KindRoutingID
	KindRoutingLegacy
)

const (
	routingIDPrefix     = "ROUTINGID|"
	routingLegacyPrefix = "ROUTING|"
	helloMarker         = "MAC:"
)

// ValidateFrame applies the framing rules common to every inbound frame:
// reject anything over MaxFrameBytes, reject anything containing a
// non-printable byte.
func ValidateFrame(b []byte) bool {
	if len(b) > MaxFrameBytes {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return true
}

// Sniff classifies a frame that has already passed ValidateFrame.
func Sniff(s string) Kind {
	switch {
	case strings.HasPrefix(s, routingIDPrefix):
		return KindRoutingID
	case strings.HasPrefix(s, routingLegacyPrefix):
		return KindRoutingLegacy
	case strings.Contains(s, helloMarker):
		return KindHello
	default:
		return KindUnknown
	}
}

// Hello is a single-hop presence beacon carrying the sender's MAC.
type Hello struct {
	MAC identity.MAC
}

// EncodeHello renders "Hello from NODE_<id> MAC: <MAC>" using the sender's
// own id and MAC.
func EncodeHello(ownID identity.NodeID, ownMAC identity.MAC) string {
	var b strings.Builder
	b.WriteString("Hello from NODE_")
	b.WriteString(strconv.Itoa(int(ownID)))
	b.WriteString(" MAC: ")
	b.WriteString(ownMAC.String())
	return b.String()
}

// ParseHello extracts the MAC from any frame containing "MAC:" followed by
// a MAC token, tolerant of surrounding text per spec §4.2.
func ParseHello(s string) (Hello, bool) {
	idx := strings.Index(s, helloMarker)
	if idx < 0 {
		return Hello{}, false
	}
	rest := strings.TrimSpace(s[idx+len(helloMarker):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Hello{}, false
	}
	token := strings.ToUpper(fields[0])
	mac, ok := identity.ParseMAC(token)
	if !ok {
		return Hello{}, false
	}
	return Hello{MAC: mac}, true
}

// RouteEntry is one advertised destination inside a ROUTINGID frame.
type RouteEntry struct {
	Dest    identity.NodeID
	RSSI    int16
	Cost    int32
	NextHop identity.NodeID
}

// RoutingID is a parsed distance-vector advertisement.
type RoutingID struct {
	Sender  identity.NodeID
	Entries []RouteEntry
}

// EncodeRoutingID serializes the header and each entry in order:
// "ROUTINGID|<sender>|<dest>,<rssi>,<cost>,<nexthop>|...".
func EncodeRoutingID(sender identity.NodeID, entries []RouteEntry) string {
	var b strings.Builder
	b.WriteString("ROUTINGID|")
	b.WriteString(strconv.Itoa(int(sender)))
	b.WriteByte('|')
	for _, e := range entries {
		b.WriteString(strconv.Itoa(int(e.Dest)))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(int(e.RSSI)))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(int(e.Cost)))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(int(e.NextHop)))
		b.WriteByte('|')
	}
	return b.String()
}

// ParseRoutingID parses a ROUTINGID frame. A malformed header (no valid
// non-negative sender id delimited by the first two pipes) drops the whole
// frame. Individual malformed entries are skipped without aborting the
// frame (spec §4.2, §7).
func ParseRoutingID(s string, ownID identity.NodeID) (RoutingID, bool) {
	if !strings.HasPrefix(s, routingIDPrefix) {
		return RoutingID{}, false
	}
	body := s[len(routingIDPrefix):]

	headerEnd := strings.IndexByte(body, '|')
	if headerEnd < 0 {
		return RoutingID{}, false
	}
	senderField := body[:headerEnd]
	rest := body[headerEnd+1:]

	senderVal, err := strconv.Atoi(senderField)
	if err != nil || senderVal < 0 {
		return RoutingID{}, false
	}
	sender := identity.NodeID(senderVal)

	out := RoutingID{Sender: sender}

	for _, group := range strings.Split(rest, "|") {
		if group == "" {
			continue // trailing empty field from the mandatory trailing pipe
		}
		entry, ok := parseEntry(group, sender, ownID)
		if !ok {
			continue
		}
		out.Entries = append(out.Entries, entry)
	}

	return out, true
}

func parseEntry(group string, sender, ownID identity.NodeID) (RouteEntry, bool) {
	fields := strings.Split(group, ",")
	if len(fields) != 4 {
		return RouteEntry{}, false
	}

	destVal, err1 := strconv.Atoi(fields[0])
	rssiVal, err2 := strconv.Atoi(fields[1])
	costVal, err3 := strconv.Atoi(fields[2])
	nhVal, err4 := strconv.Atoi(fields[3])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return RouteEntry{}, false
	}

	dest := identity.NodeID(destVal)

	if dest == ownID {
		return RouteEntry{}, false
	}

	if destVal == 0 && rssiVal == 0 && costVal == 0 && nhVal == 0 {
		// Filler suppression, unless this would be the sender's self-entry
		// (spec §4.2, §9 — accepted as harmless dead weight, not "fixed").
		if sender != 0 {
			return RouteEntry{}, false
		}
	}

	if costVal <= 0 && dest != sender {
		return RouteEntry{}, false
	}

	return RouteEntry{
		Dest:    dest,
		RSSI:    int16(rssiVal),
		Cost:    int32(costVal),
		NextHop: identity.NodeID(nhVal),
	}, true
}
