package wire

import (
	"bytes"
	"net"
	"testing"
)

func mustMac(t *testing.T, s string) MacAddress {
	t.Helper()
	hw, err := net.ParseMAC(s)
	if err != nil {
		t.Fatalf("bad test mac %q: %v", s, err)
	}
	m, err := ParseMac(hw)
	if err != nil {
		t.Fatalf("ParseMac(%q): %v", s, err)
	}
	return m
}

func roundTripTLV(t *testing.T, tlv Tlv) Tlv {
	t.Helper()
	forged := ForgeTLV(tlv)
	parsed, n, err := ParseTLV(forged)
	if err != nil {
		t.Fatalf("parse(forge(%T)) error: %v", tlv, err)
	}
	if n != len(forged) {
		t.Fatalf("parse consumed %d bytes, forge produced %d", n, len(forged))
	}
	return parsed
}

func TestRoundTripAlMacAddress(t *testing.T) {
	orig := &AlMacAddressTlv{Mac: mustMac(t, "02:ee:ff:33:44:00")}
	got := roundTripTLV(t, orig).(*AlMacAddressTlv)
	if got.Mac != orig.Mac {
		t.Fatalf("got %v, want %v", got.Mac, orig.Mac)
	}
}

func TestRoundTripDeviceInformation(t *testing.T) {
	orig := &DeviceInformationTlv{
		AlMac: mustMac(t, "02:ee:ff:33:44:00"),
		Interfaces: []LocalInterfaceEntry{
			{Mac: mustMac(t, "02:ee:ff:33:44:01"), MediaType: 0x0100, MediaSpecific: []byte{1, 2, 3}},
			{Mac: mustMac(t, "02:ee:ff:33:44:02"), MediaType: 0x0000, MediaSpecific: nil},
		},
	}
	got := roundTripTLV(t, orig).(*DeviceInformationTlv)
	if got.AlMac != orig.AlMac || len(got.Interfaces) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got.Interfaces[0].MediaType != 0x0100 || !bytes.Equal(got.Interfaces[0].MediaSpecific, []byte{1, 2, 3}) {
		t.Fatalf("interface 0 mismatch: %+v", got.Interfaces[0])
	}
}

func TestRoundTripNeighborDeviceList(t *testing.T) {
	orig := &NeighborDeviceListTlv{
		LocalMac: mustMac(t, "02:ee:ff:33:44:00"),
		Neighbors: []NeighborEntry{
			{AlMac: mustMac(t, "02:aa:bb:33:44:00"), IsViaBridge: true},
			{AlMac: mustMac(t, "02:aa:bb:33:44:01"), IsViaBridge: false},
		},
	}
	got := roundTripTLV(t, orig).(*NeighborDeviceListTlv)
	if len(got.Neighbors) != 2 || got.Neighbors[0].IsViaBridge != true || got.Neighbors[1].IsViaBridge != false {
		t.Fatalf("got %+v", got.Neighbors)
	}
}

func TestLinkMetricQueryAllNeighborsNormalizesSpecificField(t *testing.T) {
	q := &LinkMetricQueryTlv{
		NeighborType:     LinkMetricQueryAllNeighbors,
		SpecificNeighbor: mustMac(t, "02:aa:bb:33:44:00"), // should be zeroed on forge
		LinkMetricsType:  2,
	}
	got := roundTripTLV(t, q).(*LinkMetricQueryTlv)
	if !got.SpecificNeighbor.IsZero() {
		t.Fatalf("expected zeroed specific-neighbor field, got %v", got.SpecificNeighbor)
	}
	if got.NeighborType != LinkMetricQueryAllNeighbors || got.LinkMetricsType != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestLinkMetricQuerySpecificNeighborPreserved(t *testing.T) {
	mac := mustMac(t, "02:aa:bb:33:44:00")
	q := &LinkMetricQueryTlv{NeighborType: LinkMetricQuerySpecificNeighbor, SpecificNeighbor: mac, LinkMetricsType: 0}
	got := roundTripTLV(t, q).(*LinkMetricQueryTlv)
	if got.SpecificNeighbor != mac {
		t.Fatalf("got %v, want %v", got.SpecificNeighbor, mac)
	}
}

func TestUnknownTlvRoundTrips(t *testing.T) {
	orig := &UnknownTlv{TlvType: TLVType(0x7f), Value: []byte{9, 9, 9}}
	got := roundTripTLV(t, orig).(*UnknownTlv)
	if got.TlvType != orig.TlvType || !bytes.Equal(got.Value, orig.Value) {
		t.Fatalf("got %+v", got)
	}
}

func TestDeviceIdentificationFixedWidth(t *testing.T) {
	orig := &DeviceIdentificationTlv{FriendlyName: "agent-1", ManufacturerName: "acme", ModelName: "al1905d"}
	forged := ForgeTLV(orig)
	if len(forged) != 3+3*deviceIdentFieldLen {
		t.Fatalf("forged length = %d, want %d", len(forged), 3+3*deviceIdentFieldLen)
	}
	got := roundTripTLV(t, orig).(*DeviceIdentificationTlv)
	if *got != *orig {
		t.Fatalf("got %+v, want %+v", got, orig)
	}
}

func TestTransmitterLinkMetricRoundTrip(t *testing.T) {
	orig := &TransmitterLinkMetricTlv{
		LocalAlMac:    mustMac(t, "02:ee:ff:33:44:00"),
		NeighborAlMac: mustMac(t, "02:aa:bb:33:44:00"),
		Links: []TxLinkEntry{
			{
				LocalIfMac: mustMac(t, "02:ee:ff:33:44:01"), NeighborIfMac: mustMac(t, "02:aa:bb:33:44:01"),
				MediaType: 0x0100, HasBridge: true, PacketErrors: 4, TransmittedPackets: 1000,
				MacThroughputCapacity: 1200, LinkAvailability: 100, PhyRate: 300,
			},
		},
	}
	got := roundTripTLV(t, orig).(*TransmitterLinkMetricTlv)
	if len(got.Links) != 1 || got.Links[0] != orig.Links[0] {
		t.Fatalf("got %+v", got)
	}
}

func TestApOperationalBssRoundTrip(t *testing.T) {
	orig := &ApOperationalBssTlv{
		Radios: []ApRadioBsses{
			{RadioId: mustMac(t, "02:ee:ff:33:44:10"), Bsses: []BssInfo{
				{Bssid: mustMac(t, "02:ee:ff:33:44:11"), Ssid: "home-network"},
			}},
		},
	}
	got := roundTripTLV(t, orig).(*ApOperationalBssTlv)
	if len(got.Radios) != 1 || got.Radios[0].Bsses[0].Ssid != "home-network" {
		t.Fatalf("got %+v", got)
	}
}
