// Package reassembly buffers incoming CMDU fragments and emits a complete
// CMDU once the last fragment has been seen and every earlier one is
// present. Grounded on the teacher's neighborTable aging/expiry pattern
// (pkg/protocols/neighbors.go), generalized from wall-clock TTL expiry to
// an explicit recency-ordered slot table sized per spec §4.2.
package reassembly

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// DefaultCapacity is the number of CMDUs that may be in flight
// simultaneously (spec: N = 5).
const DefaultCapacity = 5

// Key identifies one in-flight CMDU's fragment set.
type Key struct {
	Src       wire.MacAddress
	Dst       wire.MacAddress
	MessageId wire.MessageId
}

type slot struct {
	fragments    [wire.MaxFragments][]byte
	present      [wire.MaxFragments]bool
	lastFragment int // -1 until a fragment carrying the last-fragment flag is seen
}

func newSlot() *slot {
	return &slot{lastFragment: -1}
}

func (s *slot) complete() bool {
	if s.lastFragment < 0 {
		return false
	}
	for i := 0; i <= s.lastFragment; i++ {
		if !s.present[i] {
			return false
		}
	}
	return true
}

func (s *slot) orderedPayloads() [][]byte {
	out := make([][]byte, 0, s.lastFragment+1)
	for i := 0; i <= s.lastFragment; i++ {
		out = append(out, s.fragments[i])
	}
	return out
}

// Reassembler is the fixed-size slot table of spec §4.2. It is not itself
// goroutine-safe beyond the internal mutex guarding the LRU; the event loop
// is expected to be its only caller, same as the topology database.
type Reassembler struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// New creates a reassembler with the given slot capacity (at most this many
// CMDUs may be in flight before the oldest is evicted).
func New(capacity int) *Reassembler {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New(capacity)
	if err != nil {
		// lru.New only errors on capacity <= 0, excluded above.
		panic(err)
	}
	return &Reassembler{cache: cache}
}

// Anomaly describes a non-fatal problem with one fragment; the slot itself
// survives (spec §4.2 step 3: "drop the fragment, not the slot").
type Anomaly struct {
	Key    Key
	Reason string
}

func (a *Anomaly) Error() string {
	return fmt.Sprintf("fragment anomaly for %+v: %s", a.Key, a.Reason)
}

// Accept feeds one raw 1905 Ethernet payload (header + TLVs) into the
// reassembler. It returns a non-nil *wire.Cmdu once the fragment set for
// its key is complete; until then it returns (nil, nil) once the fragment
// has been filed, or (nil, *Anomaly) if the fragment itself was malformed
// enough to be dropped without disturbing its slot.
func (r *Reassembler) Accept(src, dst wire.MacAddress, payload []byte) (*wire.Cmdu, error) {
	header, _, err := wire.ParseFragmentHeader(payload)
	if err != nil {
		return nil, err
	}

	key := Key{Src: src, Dst: dst, MessageId: header.MessageId}

	r.mu.Lock()
	defer r.mu.Unlock()

	var s *slot
	if v, ok := r.cache.Get(key); ok {
		s = v.(*slot)
	} else {
		s = newSlot()
	}

	fid := int(header.FragmentId)
	if fid >= wire.MaxFragments {
		r.cache.Add(key, s)
		return nil, &Anomaly{Key: key, Reason: "fragment id out of range"}
	}
	if s.present[fid] {
		r.cache.Add(key, s)
		return nil, &Anomaly{Key: key, Reason: "duplicate fragment id"}
	}
	if header.Last && s.lastFragment >= 0 && s.lastFragment != fid {
		r.cache.Add(key, s)
		return nil, &Anomaly{Key: key, Reason: "conflicting last-fragment marker"}
	}

	// ParseCmdu expects each chunk prefixed with its own header, matching
	// what ForgeCmdu produced, so the slot stores full fragment payloads
	// rather than just their TLV bodies.
	full := make([]byte, len(payload))
	copy(full, payload)

	s.fragments[fid] = full
	s.present[fid] = true
	if header.Last {
		s.lastFragment = fid
	}

	if s.complete() {
		r.cache.Remove(key)
		return wire.ParseCmdu(s.orderedPayloads())
	}

	r.cache.Add(key, s)
	return nil, nil
}

// InFlight returns the number of CMDUs currently buffered, for diagnostics.
func (r *Reassembler) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
