// Package identity translates between a node's small integer id (0..9) and
// its 6-byte hardware address, using a fixed compiled-in directory. There is
// no dynamic registration (spec §4.1).
package identity

import (
	"fmt"
	"strings"
)

// NodeID is a small integer identifying a node within the mesh, 0..9.
type NodeID uint8

// None is the sentinel for "no such node id".
const None NodeID = 0xFF

// MaxNodes is the size of the compiled-in mesh, per spec §1.
const MaxNodes = 10

// MAC is a 48-bit hardware address.
type MAC [6]byte

// String renders the MAC as colon-separated uppercase hex, the wire form
// used by the HELLO frame (spec §4.2).
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// ParseMAC parses a colon-separated hex MAC, case-insensitive.
func ParseMAC(s string) (MAC, bool) {
	var m MAC
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 6 {
		return m, false
	}
	for i, p := range parts {
		if len(p) != 2 {
			return m, false
		}
		var b byte
		if _, err := fmt.Sscanf(p, "%02X", &b); err != nil {
			if _, err2 := fmt.Sscanf(p, "%02x", &b); err2 != nil {
				return m, false
			}
		}
		m[i] = b
	}
	return m, true
}

// MACSource reads the running node's own hardware address from the
// platform identity source. This is an external collaborator (spec §1);
// the core only depends on this narrow contract.
type MACSource interface {
	ReadMAC() (MAC, error)
}

// entry is one row of the compiled-in directory.
type entry struct {
	id  NodeID
	mac MAC
}

// Directory is the compile-time node-id<->MAC mapping plus this node's own
// identity. It is static data; nothing is added after construction.
type Directory struct {
	entries []entry
	ownID   NodeID
	source  MACSource
	ownMAC  MAC
	cached  bool
}

// NewDirectory builds a directory from a fixed id->MAC table and the
// running node's own id. table must name ownID.
func NewDirectory(table map[NodeID]MAC, ownID NodeID, source MACSource) *Directory {
	d := &Directory{ownID: ownID, source: source}
	for id, mac := range table {
		d.entries = append(d.entries, entry{id: id, mac: mac})
	}
	return d
}

// OwnID returns this node's own id.
func (d *Directory) OwnID() NodeID {
	return d.ownID
}

// OwnMAC returns this node's own MAC, reading it from the platform identity
// source on first call and caching the result.
func (d *Directory) OwnMAC() (MAC, error) {
	if d.cached {
		return d.ownMAC, nil
	}
	mac, err := d.source.ReadMAC()
	if err != nil {
		return MAC{}, err
	}
	d.ownMAC = mac
	d.cached = true
	return mac, nil
}

// IDToMAC returns the directory entry for id. The result is undefined
// (zero MAC, false) for ids outside the compiled-in table.
func (d *Directory) IDToMAC(id NodeID) (MAC, bool) {
	for _, e := range d.entries {
		if e.id == id {
			return e.mac, true
		}
	}
	return MAC{}, false
}

// MACToID performs a linear scan of the directory for mac. MACs are compared
// as bytes; case only matters when parsing text, which ParseMAC accepts in
// either case.
func (d *Directory) MACToID(mac MAC) (NodeID, bool) {
	for _, e := range d.entries {
		if e.mac == mac {
			return e.id, true
		}
	}
	return None, false
}
