// Package wire implements the 1905 CMDU/TLV and LLDP bridge-discovery codec.
//
// Everything here is pure: no I/O, no goroutines. Callers feed it byte
// slices from a capture engine or a reassembler and get back typed records,
// or vice versa.
package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// MacAddress is a 6-octet hardware address, printed colon-separated lowercase.
type MacAddress [6]byte

// BroadcastMAC is the all-ones Ethernet broadcast address.
var BroadcastMAC = MacAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Multicast1905 is the well-known IEEE 1905.1a multicast destination.
var Multicast1905 = MacAddress{0x01, 0x80, 0xc2, 0x00, 0x00, 0x13}

// MulticastLLDP is the LLDP "nearest bridge" multicast destination used for
// 1905 bridge discovery.
var MulticastLLDP = MacAddress{0x01, 0x80, 0xc2, 0x00, 0x00, 0x0e}

func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether m is the all-zeros address.
func (m MacAddress) IsZero() bool {
	return m == MacAddress{}
}

// ParseMac parses a 6-octet slice into a MacAddress. It does not accept the
// colon-separated textual form; that is a presentation detail left to CLI
// flag parsing.
func ParseMac(b []byte) (MacAddress, error) {
	var m MacAddress
	if len(b) < 6 {
		return m, fmt.Errorf("%w: mac address needs 6 octets, got %d", ErrTruncatedFrame, len(b))
	}
	copy(m[:], b[:6])
	return m, nil
}

// ParseMacString parses the colon-separated textual form (e.g.
// "02:ee:ff:33:44:00") used by config files and CLI flags.
func ParseMacString(s string) (MacAddress, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MacAddress{}, fmt.Errorf("invalid mac address %q: %w", s, err)
	}
	return ParseMac(hw)
}

func putMac(dst []byte, m MacAddress) {
	copy(dst, m[:])
}

// MessageId is the 16-bit per-device monotonic CMDU message identifier.
// It wraps modulo 2^16 with no special handling at the wraparound boundary.
type MessageId uint16

// FragmentId identifies a fragment within a single CMDU; 0 is the first
// fragment. The codec accepts at most MaxFragments per CMDU.
type FragmentId uint8

// MaxFragments is the largest number of fragments a single CMDU may be split
// into, per spec: fragment ids 0, 1, 2.
const MaxFragments = 3

// MessageIdCounter is a strictly monotonic, wrapping 16-bit counter. The
// event loop owns the only instance and must serialize access to it.
type MessageIdCounter struct {
	next uint16
}

// Next returns the next message id and advances the counter.
func (c *MessageIdCounter) Next() MessageId {
	id := c.next
	c.next++
	return MessageId(id)
}

func be16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

func putBe16(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
