package wire

// TxLinkEntry reports transmitter-side metrics for one local/neighbor
// interface pair.
type TxLinkEntry struct {
	LocalIfMac            MacAddress
	NeighborIfMac         MacAddress
	MediaType             uint16
	HasBridge             bool
	PacketErrors          uint32
	TransmittedPackets    uint32
	MacThroughputCapacity uint16
	LinkAvailability      uint16
	PhyRate               uint16
}

// TransmitterLinkMetricTlv reports metrics for links rooted at the local
// device towards one neighbor AL. The codec forges whatever NeighborAlMac
// it is given; the caller (pkg/dispatch, building the TLV from topology
// data) is responsible for supplying the zero MAC when the neighbor is a
// non-1905 device, since only the topology knows that.
type TransmitterLinkMetricTlv struct {
	LocalAlMac    MacAddress
	NeighborAlMac MacAddress
	Links         []TxLinkEntry
}

func (t *TransmitterLinkMetricTlv) Type() TLVType { return TLVTransmitterLinkMetric }
func (t *TransmitterLinkMetricTlv) Forge() []byte {
	w := &writer{}
	w.mac(t.LocalAlMac)
	w.mac(t.NeighborAlMac)
	for _, l := range t.Links {
		w.mac(l.LocalIfMac)
		w.mac(l.NeighborIfMac)
		w.u16(l.MediaType)
		if l.HasBridge {
			w.u8(1)
		} else {
			w.u8(0)
		}
		w.bytes(u32be(l.PacketErrors))
		w.bytes(u32be(l.TransmittedPackets))
		w.u16(l.MacThroughputCapacity)
		w.u16(l.LinkAvailability)
		w.u16(l.PhyRate)
	}
	return w.bytesOf()
}

func parseTransmitterLinkMetric(value []byte) (Tlv, error) {
	c := newCursor(value)
	localAl, err := c.mac()
	if err != nil {
		return nil, err
	}
	neighborAl, err := c.mac()
	if err != nil {
		return nil, err
	}
	t := &TransmitterLinkMetricTlv{LocalAlMac: localAl, NeighborAlMac: neighborAl}
	for !c.atEnd() {
		localIf, err := c.mac()
		if err != nil {
			return nil, err
		}
		neighborIf, err := c.mac()
		if err != nil {
			return nil, err
		}
		mediaType, err := c.u16()
		if err != nil {
			return nil, err
		}
		bridgeFlag, err := c.u8()
		if err != nil {
			return nil, err
		}
		errs, err := c.bytes(4)
		if err != nil {
			return nil, err
		}
		txpkts, err := c.bytes(4)
		if err != nil {
			return nil, err
		}
		throughput, err := c.u16()
		if err != nil {
			return nil, err
		}
		avail, err := c.u16()
		if err != nil {
			return nil, err
		}
		phyRate, err := c.u16()
		if err != nil {
			return nil, err
		}
		t.Links = append(t.Links, TxLinkEntry{
			LocalIfMac:            localIf,
			NeighborIfMac:         neighborIf,
			MediaType:             mediaType,
			HasBridge:             bridgeFlag != 0,
			PacketErrors:          be32(errs),
			TransmittedPackets:    be32(txpkts),
			MacThroughputCapacity: throughput,
			LinkAvailability:      avail,
			PhyRate:               phyRate,
		})
	}
	return t, nil
}

// RxLinkEntry reports receiver-side metrics for one local/neighbor interface pair.
type RxLinkEntry struct {
	LocalIfMac     MacAddress
	NeighborIfMac  MacAddress
	MediaType      uint16
	PacketErrors   uint32
	PacketsReceived uint32
	Rssi           uint8
}

// ReceiverLinkMetricTlv reports metrics for links incoming from one
// neighbor AL.
type ReceiverLinkMetricTlv struct {
	LocalAlMac    MacAddress
	NeighborAlMac MacAddress
	Links         []RxLinkEntry
}

func (t *ReceiverLinkMetricTlv) Type() TLVType { return TLVReceiverLinkMetric }
func (t *ReceiverLinkMetricTlv) Forge() []byte {
	w := &writer{}
	w.mac(t.LocalAlMac)
	w.mac(t.NeighborAlMac)
	for _, l := range t.Links {
		w.mac(l.LocalIfMac)
		w.mac(l.NeighborIfMac)
		w.u16(l.MediaType)
		w.bytes(u32be(l.PacketErrors))
		w.bytes(u32be(l.PacketsReceived))
		w.u8(l.Rssi)
	}
	return w.bytesOf()
}

func parseReceiverLinkMetric(value []byte) (Tlv, error) {
	c := newCursor(value)
	localAl, err := c.mac()
	if err != nil {
		return nil, err
	}
	neighborAl, err := c.mac()
	if err != nil {
		return nil, err
	}
	t := &ReceiverLinkMetricTlv{LocalAlMac: localAl, NeighborAlMac: neighborAl}
	for !c.atEnd() {
		localIf, err := c.mac()
		if err != nil {
			return nil, err
		}
		neighborIf, err := c.mac()
		if err != nil {
			return nil, err
		}
		mediaType, err := c.u16()
		if err != nil {
			return nil, err
		}
		errs, err := c.bytes(4)
		if err != nil {
			return nil, err
		}
		rxpkts, err := c.bytes(4)
		if err != nil {
			return nil, err
		}
		rssi, err := c.u8()
		if err != nil {
			return nil, err
		}
		t.Links = append(t.Links, RxLinkEntry{
			LocalIfMac:      localIf,
			NeighborIfMac:   neighborIf,
			MediaType:       mediaType,
			PacketErrors:    be32(errs),
			PacketsReceived: be32(rxpkts),
			Rssi:            rssi,
		})
	}
	return t, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func u32be(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
