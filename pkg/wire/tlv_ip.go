package wire

// IPv4AddressType enumerates how an interface obtained an IPv4 address.
type IPv4AddressType uint8

const (
	IPv4TypeUnknown IPv4AddressType = 0x00
	IPv4TypeDHCP    IPv4AddressType = 0x01
	IPv4TypeStatic  IPv4AddressType = 0x02
	IPv4TypeAutoIP  IPv4AddressType = 0x03
)

// Ipv4Address is one address entry: its type, value, and (for DHCP) the
// server that assigned it.
type Ipv4Address struct {
	Type       IPv4AddressType
	Addr       [4]byte
	DhcpServer [4]byte
}

// Ipv4InterfaceEntry lists the IPv4 addresses configured on one interface.
type Ipv4InterfaceEntry struct {
	Mac       MacAddress
	Addresses []Ipv4Address
}

// Ipv4Tlv reports IPv4 configuration for each of a device's interfaces.
type Ipv4Tlv struct {
	Interfaces []Ipv4InterfaceEntry
}

func (t *Ipv4Tlv) Type() TLVType { return TLVIpv4 }
func (t *Ipv4Tlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Interfaces)))
	for _, iface := range t.Interfaces {
		w.mac(iface.Mac)
		w.u8(uint8(len(iface.Addresses)))
		for _, a := range iface.Addresses {
			w.u8(uint8(a.Type))
			w.bytes(a.Addr[:])
			w.bytes(a.DhcpServer[:])
		}
	}
	return w.bytesOf()
}

func parseIpv4Tlv(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &Ipv4Tlv{Interfaces: make([]Ipv4InterfaceEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		addrCount, err := c.u8()
		if err != nil {
			return nil, err
		}
		iface := Ipv4InterfaceEntry{Mac: mac, Addresses: make([]Ipv4Address, 0, addrCount)}
		for j := 0; j < int(addrCount); j++ {
			typ, err := c.u8()
			if err != nil {
				return nil, err
			}
			addr, err := c.bytes(4)
			if err != nil {
				return nil, err
			}
			dhcp, err := c.bytes(4)
			if err != nil {
				return nil, err
			}
			var a Ipv4Address
			a.Type = IPv4AddressType(typ)
			copy(a.Addr[:], addr)
			copy(a.DhcpServer[:], dhcp)
			iface.Addresses = append(iface.Addresses, a)
		}
		t.Interfaces = append(t.Interfaces, iface)
	}
	return t, nil
}

// IPv6AddressType enumerates how an interface obtained an IPv6 address.
type IPv6AddressType uint8

const (
	IPv6TypeUnknown  IPv6AddressType = 0x00
	IPv6TypeDHCP     IPv6AddressType = 0x01
	IPv6TypeStatic   IPv6AddressType = 0x02
	IPv6TypeSLAAC    IPv6AddressType = 0x03
)

// Ipv6Address is one address entry with its originating router, if any.
type Ipv6Address struct {
	Type            IPv6AddressType
	Addr            [16]byte
	OriginIpv6Addr  [16]byte
}

// Ipv6InterfaceEntry lists the IPv6 addresses configured on one interface.
type Ipv6InterfaceEntry struct {
	Mac             MacAddress
	LinkLocalAddr   [16]byte
	Addresses       []Ipv6Address
}

// Ipv6Tlv reports IPv6 configuration for each of a device's interfaces.
type Ipv6Tlv struct {
	Interfaces []Ipv6InterfaceEntry
}

func (t *Ipv6Tlv) Type() TLVType { return TLVIpv6 }
func (t *Ipv6Tlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Interfaces)))
	for _, iface := range t.Interfaces {
		w.mac(iface.Mac)
		w.bytes(iface.LinkLocalAddr[:])
		w.u8(uint8(len(iface.Addresses)))
		for _, a := range iface.Addresses {
			w.u8(uint8(a.Type))
			w.bytes(a.Addr[:])
			w.bytes(a.OriginIpv6Addr[:])
		}
	}
	return w.bytesOf()
}

func parseIpv6Tlv(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &Ipv6Tlv{Interfaces: make([]Ipv6InterfaceEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		ll, err := c.bytes(16)
		if err != nil {
			return nil, err
		}
		addrCount, err := c.u8()
		if err != nil {
			return nil, err
		}
		iface := Ipv6InterfaceEntry{Mac: mac, Addresses: make([]Ipv6Address, 0, addrCount)}
		copy(iface.LinkLocalAddr[:], ll)
		for j := 0; j < int(addrCount); j++ {
			typ, err := c.u8()
			if err != nil {
				return nil, err
			}
			addr, err := c.bytes(16)
			if err != nil {
				return nil, err
			}
			origin, err := c.bytes(16)
			if err != nil {
				return nil, err
			}
			var a Ipv6Address
			a.Type = IPv6AddressType(typ)
			copy(a.Addr[:], addr)
			copy(a.OriginIpv6Addr[:], origin)
			iface.Addresses = append(iface.Addresses, a)
		}
		t.Interfaces = append(t.Interfaces, iface)
	}
	return t, nil
}

// PowerOffInterfaceEntry describes one local interface being powered off,
// identified for non-802.x media by OUI and variant index.
type PowerOffInterfaceEntry struct {
	Mac           MacAddress
	MediaType     uint16
	OUI           [3]byte
	VariantIndex  uint8
	MediaSpecific []byte
}

// PowerOffInterfaceTlv lists the interfaces a device is about to power off.
type PowerOffInterfaceTlv struct {
	Interfaces []PowerOffInterfaceEntry
}

func (t *PowerOffInterfaceTlv) Type() TLVType { return TLVPowerOffInterface }
func (t *PowerOffInterfaceTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Interfaces)))
	for _, iface := range t.Interfaces {
		w.mac(iface.Mac)
		w.u16(iface.MediaType)
		w.bytes(iface.OUI[:])
		w.u8(iface.VariantIndex)
		w.u8(uint8(len(iface.MediaSpecific)))
		w.bytes(iface.MediaSpecific)
	}
	return w.bytesOf()
}

func parsePowerOffInterface(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &PowerOffInterfaceTlv{Interfaces: make([]PowerOffInterfaceEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		mediaType, err := c.u16()
		if err != nil {
			return nil, err
		}
		oui, err := c.bytes(3)
		if err != nil {
			return nil, err
		}
		variantIdx, err := c.u8()
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
		var e PowerOffInterfaceEntry
		e.Mac = mac
		e.MediaType = mediaType
		copy(e.OUI[:], oui)
		e.VariantIndex = variantIdx
		e.MediaSpecific = append([]byte(nil), spec...)
		t.Interfaces = append(t.Interfaces, e)
	}
	return t, nil
}

// PowerState enumerates the possible interface power states.
type PowerState uint8

const (
	PowerStateOff PowerState = 0x00
	PowerStateOn  PowerState = 0x01
	PowerStateSave PowerState = 0x02
)

// PowerChangeRequestEntry requests a new power state for one local interface.
type PowerChangeRequestEntry struct {
	Mac   MacAddress
	State PowerState
}

// InterfacePowerChangeInformationTlv requests power-state changes.
type InterfacePowerChangeInformationTlv struct {
	Entries []PowerChangeRequestEntry
}

func (t *InterfacePowerChangeInformationTlv) Type() TLVType {
	return TLVInterfacePowerChangeInformation
}
func (t *InterfacePowerChangeInformationTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Entries)))
	for _, e := range t.Entries {
		w.mac(e.Mac)
		w.u8(uint8(e.State))
	}
	return w.bytesOf()
}

func parseInterfacePowerChangeInformation(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &InterfacePowerChangeInformationTlv{Entries: make([]PowerChangeRequestEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		state, err := c.u8()
		if err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, PowerChangeRequestEntry{Mac: mac, State: PowerState(state)})
	}
	return t, nil
}

// PowerChangeResult enumerates the outcome of a requested power change.
type PowerChangeResult uint8

const (
	PowerChangeCompleted     PowerChangeResult = 0x00
	PowerChangeNoChange      PowerChangeResult = 0x01
	PowerChangeAlternateState PowerChangeResult = 0x02
)

// PowerChangeStatusEntry reports the outcome of a power-change request for
// one interface.
type PowerChangeStatusEntry struct {
	Mac    MacAddress
	Result PowerChangeResult
}

// InterfacePowerChangeStatusTlv reports the outcome of a prior
// interface-power-change-request for each affected interface.
type InterfacePowerChangeStatusTlv struct {
	Entries []PowerChangeStatusEntry
}

func (t *InterfacePowerChangeStatusTlv) Type() TLVType { return TLVInterfacePowerChangeStatus }
func (t *InterfacePowerChangeStatusTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Entries)))
	for _, e := range t.Entries {
		w.mac(e.Mac)
		w.u8(uint8(e.Result))
	}
	return w.bytesOf()
}

func parseInterfacePowerChangeStatus(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &InterfacePowerChangeStatusTlv{Entries: make([]PowerChangeStatusEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		result, err := c.u8()
		if err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, PowerChangeStatusEntry{Mac: mac, Result: PowerChangeResult(result)})
	}
	return t, nil
}
