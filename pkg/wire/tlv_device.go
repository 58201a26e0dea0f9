package wire

import "fmt"

// LocalInterfaceEntry describes one local interface inside a
// DeviceInformationTlv.
type LocalInterfaceEntry struct {
	Mac           MacAddress
	MediaType     uint16
	MediaSpecific []byte // length-prefixed on the wire, at most 255 octets
}

// DeviceInformationTlv enumerates a device's AL-MAC and every local
// interface it has, including media type and media-specific info.
type DeviceInformationTlv struct {
	AlMac      MacAddress
	Interfaces []LocalInterfaceEntry
}

func (t *DeviceInformationTlv) Type() TLVType { return TLVDeviceInformation }
func (t *DeviceInformationTlv) Forge() []byte {
	w := &writer{}
	w.mac(t.AlMac)
	w.u8(uint8(len(t.Interfaces)))
	for _, iface := range t.Interfaces {
		w.mac(iface.Mac)
		w.u16(iface.MediaType)
		w.u8(uint8(len(iface.MediaSpecific)))
		w.bytes(iface.MediaSpecific)
	}
	return w.bytesOf()
}

func parseDeviceInformation(value []byte) (Tlv, error) {
	c := newCursor(value)
	alMac, err := c.mac()
	if err != nil {
		return nil, err
	}
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &DeviceInformationTlv{AlMac: alMac, Interfaces: make([]LocalInterfaceEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		mediaType, err := c.u16()
		if err != nil {
			return nil, err
		}
		specLen, err := c.u8()
		if err != nil {
			return nil, err
		}
		spec, err := c.bytes(int(specLen))
		if err != nil {
			return nil, err
		}
		t.Interfaces = append(t.Interfaces, LocalInterfaceEntry{
			Mac:           mac,
			MediaType:     mediaType,
			MediaSpecific: append([]byte(nil), spec...),
		})
	}
	return t, nil
}

// DeviceBridgingCapabilityTlv lists bridging tuples: groups of local
// interfaces that the device bridges together at L2.
type DeviceBridgingCapabilityTlv struct {
	Tuples [][]MacAddress
}

func (t *DeviceBridgingCapabilityTlv) Type() TLVType { return TLVDeviceBridgingCapability }
func (t *DeviceBridgingCapabilityTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Tuples)))
	for _, tuple := range t.Tuples {
		w.u8(uint8(len(tuple)))
		for _, mac := range tuple {
			w.mac(mac)
		}
	}
	return w.bytesOf()
}

func parseDeviceBridgingCapability(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &DeviceBridgingCapabilityTlv{Tuples: make([][]MacAddress, 0, n)}
	for i := 0; i < int(n); i++ {
		m, err := c.u8()
		if err != nil {
			return nil, err
		}
		tuple := make([]MacAddress, 0, m)
		for j := 0; j < int(m); j++ {
			mac, err := c.mac()
			if err != nil {
				return nil, err
			}
			tuple = append(tuple, mac)
		}
		t.Tuples = append(t.Tuples, tuple)
	}
	return t, nil
}

// Non1905NeighborDeviceListTlv lists neighbors discovered on a local
// interface that do not themselves speak 1905 (e.g. plain bridges).
type Non1905NeighborDeviceListTlv struct {
	LocalMac  MacAddress
	Neighbors []MacAddress
}

func (t *Non1905NeighborDeviceListTlv) Type() TLVType { return TLVNon1905NeighborDeviceList }
func (t *Non1905NeighborDeviceListTlv) Forge() []byte {
	w := &writer{}
	w.mac(t.LocalMac)
	for _, n := range t.Neighbors {
		w.mac(n)
	}
	return w.bytesOf()
}

func parseNon1905NeighborDeviceList(value []byte) (Tlv, error) {
	c := newCursor(value)
	local, err := c.mac()
	if err != nil {
		return nil, err
	}
	t := &Non1905NeighborDeviceListTlv{LocalMac: local}
	for !c.atEnd() {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		t.Neighbors = append(t.Neighbors, mac)
	}
	return t, nil
}

// NeighborEntry is one 1905 neighbor: its AL-MAC plus whether it was
// reached through an IEEE 802.1 bridge.
type NeighborEntry struct {
	AlMac        MacAddress
	IsViaBridge  bool
}

// NeighborDeviceListTlv lists 1905-capable neighbors seen on a local interface.
type NeighborDeviceListTlv struct {
	LocalMac  MacAddress
	Neighbors []NeighborEntry
}

func (t *NeighborDeviceListTlv) Type() TLVType { return TLVNeighborDeviceList }
func (t *NeighborDeviceListTlv) Forge() []byte {
	w := &writer{}
	w.mac(t.LocalMac)
	for _, n := range t.Neighbors {
		w.mac(n.AlMac)
		var flags byte
		if n.IsViaBridge {
			flags = 0x80
		}
		w.u8(flags)
	}
	return w.bytesOf()
}

func parseNeighborDeviceList(value []byte) (Tlv, error) {
	c := newCursor(value)
	local, err := c.mac()
	if err != nil {
		return nil, err
	}
	t := &NeighborDeviceListTlv{LocalMac: local}
	for !c.atEnd() {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		flags, err := c.u8()
		if err != nil {
			return nil, err
		}
		t.Neighbors = append(t.Neighbors, NeighborEntry{AlMac: mac, IsViaBridge: flags&0x80 != 0})
	}
	return t, nil
}

// L2NeighborEntry is a neighbor seen by raw L2 address learning, plus the
// set of further addresses reachable behind it.
type L2NeighborEntry struct {
	Mac        MacAddress
	BehindMacs []MacAddress
}

// L2NeighborInterfaceEntry groups L2 neighbors seen on one local interface.
type L2NeighborInterfaceEntry struct {
	Mac       MacAddress
	Neighbors []L2NeighborEntry
}

// L2NeighborDeviceTlv reports raw L2 neighbor learning, independent of the
// 1905 discovery protocol.
type L2NeighborDeviceTlv struct {
	Interfaces []L2NeighborInterfaceEntry
}

func (t *L2NeighborDeviceTlv) Type() TLVType { return TLVL2NeighborDevice }
func (t *L2NeighborDeviceTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Interfaces)))
	for _, iface := range t.Interfaces {
		w.mac(iface.Mac)
		w.u16(uint16(len(iface.Neighbors)))
		for _, n := range iface.Neighbors {
			w.mac(n.Mac)
			w.u16(uint16(len(n.BehindMacs)))
			for _, b := range n.BehindMacs {
				w.mac(b)
			}
		}
	}
	return w.bytesOf()
}

func parseL2NeighborDevice(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &L2NeighborDeviceTlv{Interfaces: make([]L2NeighborInterfaceEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		neighborCount, err := c.u16()
		if err != nil {
			return nil, err
		}
		iface := L2NeighborInterfaceEntry{Mac: mac, Neighbors: make([]L2NeighborEntry, 0, neighborCount)}
		for j := 0; j < int(neighborCount); j++ {
			nmac, err := c.mac()
			if err != nil {
				return nil, err
			}
			behindCount, err := c.u16()
			if err != nil {
				return nil, err
			}
			entry := L2NeighborEntry{Mac: nmac, BehindMacs: make([]MacAddress, 0, behindCount)}
			for k := 0; k < int(behindCount); k++ {
				bmac, err := c.mac()
				if err != nil {
					return nil, err
				}
				entry.BehindMacs = append(entry.BehindMacs, bmac)
			}
			iface.Neighbors = append(iface.Neighbors, entry)
		}
		t.Interfaces = append(t.Interfaces, iface)
	}
	if !c.atEnd() {
		return nil, fmt.Errorf("%w", ErrTrailingGarbage)
	}
	return t, nil
}
