// Package forward implements the relayed-multicast retransmission step that
// runs after dispatch completes (spec.md §4.6). It is a small, stateless
// companion to pkg/dispatch: given a relay-flagged CMDU and the interface it
// arrived on, it computes the set of local interfaces it must be repeated
// on, grounded on the same type-keyed, iterate-every-interface shape the
// teacher's Stack uses when it fans a decoded packet out to its protocol
// handlers (pkg/protocols/stack.go).
package forward

import (
	"github.com/krisarmstrong/al1905d/pkg/topology"
	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// Frame is one retransmission the event loop must hand to the platform:
// the same CMDU and destination, sent out localIfaceMac with that
// interface's own MAC as the Ethernet source.
type Frame struct {
	LocalIfaceMac wire.MacAddress
	DstMac        wire.MacAddress
	Cmdu          *wire.Cmdu
}

// Relay computes the retransmission set for cmdu, received on
// receivingIfaceMac from dstMac's original multicast/unicast destination.
// It returns one Frame per local interface of dev that is secured, powered
// on or in power-save, and not the interface the CMDU arrived on. Callers
// must check cmdu.Relay before invoking this; Relay itself does not
// re-check it, since a loop-carried CMDU's relay flag does not change
// between dispatch and forwarding.
//
// Per spec, the retransmitted frame reuses the original message id,
// destination MAC, and TLV body verbatim — only the Ethernet source MAC,
// implicit in which interface it is sent out, changes.
func Relay(dev *topology.AlDevice, cmdu *wire.Cmdu, dstMac, receivingIfaceMac wire.MacAddress) []Frame {
	var out []Frame
	for _, iface := range dev.Interfaces {
		if iface.Mac == receivingIfaceMac {
			continue
		}
		if !iface.IsSecured {
			continue
		}
		if iface.PowerState != wire.PowerStateOn && iface.PowerState != wire.PowerStateSave {
			continue
		}
		out = append(out, Frame{LocalIfaceMac: iface.Mac, DstMac: dstMac, Cmdu: cmdu})
	}
	return out
}
