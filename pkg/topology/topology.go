// Package topology is the in-memory device/interface/neighbor graph (spec
// §3.4, §4.4): a process-wide Network of AlDevices, their owned Radios and
// Interfaces, and the cross-links between Interfaces that represent
// neighbor relations. It is mutated only by the event loop; external
// readers must go through store.SnapshotFromNetwork, which copies data out, the same
// read-through discipline the teacher's neighborTable.list() uses
// (pkg/protocols/neighbors.go) — minus its internal mutex, since here a
// single owner (the event loop) is architecturally guaranteed.
package topology

import (
	"time"

	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// WifiRole identifies how a WifiInterface participates in its BSS.
type WifiRole int

const (
	WifiRoleOther WifiRole = iota
	WifiRoleAP
	WifiRoleSTA
)

// Band identifies one of the three RF bands the registrar keeps a
// pre-sized WSC credential slot for.
type Band int

const (
	Band24GHz Band = iota
	Band5GHz
	Band60GHz
	bandCount
)

// BssInfo is the BSSID/SSID pair carried in AP-operational-BSS TLVs and
// attached to WifiInterfaces in AP role.
type BssInfo struct {
	Bssid wire.MacAddress
	Ssid  string
}

// Interface is an owned-or-dangling node in the topology graph. A dangling
// interface (Owner == nil) exists purely because some other interface
// still lists it as a neighbor; it is destroyed the moment its last
// inbound edge is removed.
type Interface struct {
	Name            string // empty for remote/dangling interfaces
	Mac             wire.MacAddress
	MediaType       uint16
	MediaSpecific   []byte
	LastDiscovery   time.Time
	Owner           *AlDevice
	neighbors       map[wire.MacAddress]*Interface
	IsSecured       bool
	PowerState      wire.PowerState
	PushButtonGoing bool

	Wifi *WifiDetail // non-nil iff this is a WifiInterface
}

// WifiDetail holds the fields specific to a WifiInterface (spec's
// WifiInterface ⊂ Interface).
type WifiDetail struct {
	Role    WifiRole
	Bss     BssInfo
	Channel uint8
	Clients map[wire.MacAddress]struct{} // AP role only
}

func newInterface(mac wire.MacAddress) *Interface {
	return &Interface{Mac: mac, neighbors: make(map[wire.MacAddress]*Interface)}
}

// Neighbors returns a snapshot slice of this interface's neighbor set.
func (i *Interface) Neighbors() []*Interface {
	out := make([]*Interface, 0, len(i.neighbors))
	for _, n := range i.neighbors {
		out = append(out, n)
	}
	return out
}

func (i *Interface) hasNeighbor(mac wire.MacAddress) bool {
	_, ok := i.neighbors[mac]
	return ok
}

// Radio is one physical radio owned by an AlDevice, with the BSSes it
// currently has configured.
type Radio struct {
	Id              wire.MacAddress
	Name            string
	Index           int
	Band            Band
	Channels        []uint8
	configuredBsses []*Interface // must belong to the same AlDevice as this Radio
}

// ConfiguredBsses returns a snapshot of the radio's configured-BSS list.
func (r *Radio) ConfiguredBsses() []*Interface {
	out := make([]*Interface, len(r.configuredBsses))
	copy(out, r.configuredBsses)
	return out
}

// AlDevice is one 1905 abstraction-layer entity: the local device or a
// discovered remote one.
type AlDevice struct {
	AlMac          wire.MacAddress
	Interfaces     map[wire.MacAddress]*Interface
	Radios         map[wire.MacAddress]*Radio
	IsMultiApAgent bool
	LastSeen       time.Time
}

func newAlDevice(alMac wire.MacAddress, now time.Time) *AlDevice {
	return &AlDevice{
		AlMac:      alMac,
		Interfaces: make(map[wire.MacAddress]*Interface),
		Radios:     make(map[wire.MacAddress]*Radio),
		LastSeen:   now,
	}
}

// WscDeviceData is one registrar-held credential record (spec §3.4),
// populated from an AP-autoconfig M2's WSC blob.
type WscDeviceData struct {
	Bssid              wire.MacAddress
	DeviceName         string
	ManufacturerName   string
	ModelName          string
	SerialNumber       string
	Uuid               [16]byte
	RfBands            uint8 // bitmask over Band24GHz|Band5GHz|Band60GHz
	Ssid               string
	AuthenticationType uint16
	EncryptionType     uint16
	Key                []byte // <= 64 octets
}

// Registrar is the at-most-one controller/registrar role for the network.
type Registrar struct {
	Device     *AlDevice
	IsMultiAp  bool
	Slots      [bandCount]*WscDeviceData
}

// Network is the process-wide topology singleton.
type Network struct {
	devices map[wire.MacAddress]*AlDevice
	// dangling holds interfaces with no owning AlDevice, kept alive only
	// by inbound neighbor edges.
	dangling  map[wire.MacAddress]*Interface
	local     wire.MacAddress
	hasLocal  bool
	Registrar Registrar
}

// New creates an empty Network.
func New() *Network {
	return &Network{
		devices:  make(map[wire.MacAddress]*AlDevice),
		dangling: make(map[wire.MacAddress]*Interface),
	}
}

// SetLocal marks alMac as the local device's AL-MAC, inserting it if
// necessary.
func (n *Network) SetLocal(alMac wire.MacAddress, now time.Time) *AlDevice {
	n.local = alMac
	n.hasLocal = true
	return n.InsertDevice(alMac, now)
}

// IsLocal reports whether alMac is the local device.
func (n *Network) IsLocal(alMac wire.MacAddress) bool {
	return n.hasLocal && n.local == alMac
}

// InsertDevice is idempotent: if alMac is already known its freshness
// timestamp is refreshed and the existing AlDevice returned, otherwise a
// new one is created.
func (n *Network) InsertDevice(alMac wire.MacAddress, now time.Time) *AlDevice {
	if dev, ok := n.devices[alMac]; ok {
		dev.LastSeen = now
		return dev
	}
	dev := newAlDevice(alMac, now)
	n.devices[alMac] = dev
	return dev
}

// FindDevice looks up a known AlDevice by its AL-MAC.
func (n *Network) FindDevice(alMac wire.MacAddress) (*AlDevice, bool) {
	dev, ok := n.devices[alMac]
	return dev, ok
}

// Devices returns a snapshot slice of every known AlDevice.
func (n *Network) Devices() []*AlDevice {
	out := make([]*AlDevice, 0, len(n.devices))
	for _, d := range n.devices {
		out = append(out, d)
	}
	return out
}

// FindInterface looks up an interface owned specifically by alMac.
func (n *Network) FindInterface(alMac, ifMac wire.MacAddress) (*Interface, bool) {
	dev, ok := n.devices[alMac]
	if !ok {
		return nil, false
	}
	iface, ok := dev.Interfaces[ifMac]
	return iface, ok
}

// FindInterfaceAnywhere looks up an interface by MAC regardless of
// ownership, including dangling (unowned) interfaces that exist only as
// someone else's neighbor.
func (n *Network) FindInterfaceAnywhere(ifMac wire.MacAddress) (*Interface, bool) {
	for _, dev := range n.devices {
		if iface, ok := dev.Interfaces[ifMac]; ok {
			return iface, true
		}
	}
	if iface, ok := n.dangling[ifMac]; ok {
		return iface, true
	}
	return nil, false
}

// ensureInterface returns the interface for mac, creating it as dangling
// if it does not exist anywhere yet.
func (n *Network) ensureInterface(mac wire.MacAddress) *Interface {
	if iface, ok := n.FindInterfaceAnywhere(mac); ok {
		return iface
	}
	iface := newInterface(mac)
	n.dangling[mac] = iface
	return iface
}

// AttachInterfaceToDevice moves a dangling interface into ownership by
// dev, or creates it directly under dev if it did not exist yet.
func (n *Network) AttachInterfaceToDevice(dev *AlDevice, ifMac wire.MacAddress) *Interface {
	iface := n.ensureInterface(ifMac)
	if iface.Owner == dev {
		return iface
	}
	if iface.Owner != nil {
		delete(iface.Owner.Interfaces, ifMac)
	} else {
		delete(n.dangling, ifMac)
	}
	iface.Owner = dev
	dev.Interfaces[ifMac] = iface
	return iface
}

// AddNeighbor links a and b symmetrically. No-op if already linked. Reports
// whether the edge was newly created.
func (n *Network) AddNeighbor(aMac, bMac wire.MacAddress) bool {
	a := n.ensureInterface(aMac)
	b := n.ensureInterface(bMac)
	if a.hasNeighbor(bMac) {
		return false
	}
	a.neighbors[bMac] = b
	b.neighbors[aMac] = a
	return true
}

// RemoveNeighbor unlinks a and b symmetrically. If either side ends up
// owned by nobody and with no remaining neighbors, it is destroyed.
func (n *Network) RemoveNeighbor(aMac, bMac wire.MacAddress) {
	a, aok := n.FindInterfaceAnywhere(aMac)
	b, bok := n.FindInterfaceAnywhere(bMac)
	if aok {
		delete(a.neighbors, bMac)
		n.reapIfOrphaned(a)
	}
	if bok {
		delete(b.neighbors, aMac)
		n.reapIfOrphaned(b)
	}
}

func (n *Network) reapIfOrphaned(iface *Interface) {
	if iface.Owner != nil || len(iface.neighbors) > 0 {
		return
	}
	delete(n.dangling, iface.Mac)
}

// GcThreshold is the default freshness window the garbage collector uses
// (spec leaves the exact value to the implementation; chosen to match the
// discovery/GC timer cadence of §4.7: three missed GC cycles).
const GcThreshold = 210 * time.Second

// RunGarbageCollector drops every AlDevice (other than the local one)
// whose LastSeen predates now-threshold, cascading to its owned radios
// and interfaces, including unlinking their neighbor edges so any
// now-dangling peer interface can in turn be reaped. Reports whether
// anything was removed.
func (n *Network) RunGarbageCollector(now time.Time, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = GcThreshold
	}
	changed := false
	for alMac, dev := range n.devices {
		if n.IsLocal(alMac) {
			continue
		}
		if now.Sub(dev.LastSeen) <= threshold {
			continue
		}
		n.removeDevice(dev)
		changed = true
	}
	return changed
}

func (n *Network) removeDevice(dev *AlDevice) {
	if n.Registrar.Device == dev {
		n.Registrar.Device = nil
	}
	for ifMac, iface := range dev.Interfaces {
		for _, neighborMac := range macsOf(iface.neighbors) {
			n.RemoveNeighbor(ifMac, neighborMac)
		}
	}
	delete(n.devices, dev.AlMac)
}

func macsOf(m map[wire.MacAddress]*Interface) []wire.MacAddress {
	out := make([]wire.MacAddress, 0, len(m))
	for mac := range m {
		out = append(out, mac)
	}
	return out
}

// RemoveDevice explicitly destroys a known AlDevice and cascades, outside
// of garbage collection (e.g. explicit management action).
func (n *Network) RemoveDevice(alMac wire.MacAddress) bool {
	dev, ok := n.devices[alMac]
	if !ok {
		return false
	}
	n.removeDevice(dev)
	return true
}
