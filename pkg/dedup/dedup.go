// Package dedup implements the bounded duplicate-suppression filter of
// spec §4.3: a fixed-size FIFO of (mac, message-id) pairs, with an
// exception carved out for response-type CMDUs. Grounded on the teacher's
// use of a bounded hashicorp/golang-lru cache as a recency-ordered set,
// the same pattern pkg/reassembly uses for its slot table.
package dedup

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// DefaultCapacity is the FIFO size spec §4.3 calls K (K = 10).
const DefaultCapacity = 10

type key struct {
	Mac       wire.MacAddress
	MessageId wire.MessageId
}

// Filter is the duplicate-suppression FIFO. Not goroutine-safe; intended
// to be owned and called exclusively by the event loop.
type Filter struct {
	localAlMac wire.MacAddress
	seen       *lru.Cache
}

// New creates a duplicate filter for a local device identified by
// localAlMac, used to recognize loopback of the device's own relayed
// transmissions.
func New(localAlMac wire.MacAddress, capacity int) *Filter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New(capacity)
	if err != nil {
		panic(err)
	}
	return &Filter{localAlMac: localAlMac, seen: cache}
}

// Seen reports whether cmdu, received from srcMac, is a duplicate (or a
// loopback of the local device's own relayed transmission) that the
// dispatcher should drop without processing. It records the CMDU as seen
// as a side effect when it is not exempt from suppression.
func (f *Filter) Seen(cmdu *wire.Cmdu, srcMac wire.MacAddress) bool {
	if cmdu.Type.IsResponseType() {
		return false
	}

	compareMac := srcMac
	if cmdu.Relay {
		if alMac, ok := embeddedAlMac(cmdu); ok {
			if alMac == f.localAlMac {
				return true
			}
			compareMac = alMac
		}
	}

	k := key{Mac: compareMac, MessageId: cmdu.MessageId}
	if f.seen.Contains(k) {
		return true
	}
	f.seen.Add(k, struct{}{})
	return false
}

// embeddedAlMac extracts the AL-MAC-address TLV from cmdu, if present.
func embeddedAlMac(cmdu *wire.Cmdu) (wire.MacAddress, bool) {
	for _, t := range cmdu.Tlvs {
		if al, ok := t.(*wire.AlMacAddressTlv); ok {
			return al.Mac, true
		}
	}
	return wire.MacAddress{}, false
}
