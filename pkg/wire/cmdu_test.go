package wire

import (
	"bytes"
	"testing"
)

func TestCmduRoundTripSingleFragment(t *testing.T) {
	cmdu := &Cmdu{
		Type:      CmduTopologyQuery,
		MessageId: 0x4225,
		Relay:     false,
		Tlvs: []Tlv{
			&AlMacAddressTlv{Mac: mustMac(t, "02:ee:ff:33:44:00")},
		},
	}
	fragments, err := ForgeCmdu(cmdu, MaxSegmentSize)
	if err != nil {
		t.Fatalf("ForgeCmdu: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}

	got, err := ParseCmdu(fragments)
	if err != nil {
		t.Fatalf("ParseCmdu: %v", err)
	}
	if got.Type != cmdu.Type || got.MessageId != cmdu.MessageId || got.Relay != cmdu.Relay {
		t.Fatalf("got %+v, want %+v", got, cmdu)
	}
	if len(got.Tlvs) != 1 {
		t.Fatalf("got %d tlvs, want 1", len(got.Tlvs))
	}
}

func TestCmduRelayClearedForDisallowedType(t *testing.T) {
	cmdu := &Cmdu{Type: CmduTopologyQuery, MessageId: 1, Relay: true}
	fragments, err := ForgeCmdu(cmdu, MaxSegmentSize)
	if err != nil {
		t.Fatalf("ForgeCmdu: %v", err)
	}
	got, err := ParseCmdu(fragments)
	if err != nil {
		t.Fatalf("ParseCmdu: %v", err)
	}
	if got.Relay {
		t.Fatalf("expected relay flag cleared for topology-query, got set")
	}
}

func TestCmduRelayPreservedForDiscovery(t *testing.T) {
	cmdu := &Cmdu{Type: CmduTopologyDiscovery, MessageId: 1, Relay: true}
	fragments, err := ForgeCmdu(cmdu, MaxSegmentSize)
	if err != nil {
		t.Fatalf("ForgeCmdu: %v", err)
	}
	got, err := ParseCmdu(fragments)
	if err != nil {
		t.Fatalf("ParseCmdu: %v", err)
	}
	if !got.Relay {
		t.Fatalf("expected relay flag preserved for topology-discovery")
	}
}

func TestCmduMultiFragmentRoundTrip(t *testing.T) {
	// Build enough vendor-specific payload to force fragmentation.
	cmdu := &Cmdu{Type: CmduVendorSpecific, MessageId: 7}
	for i := 0; i < 10; i++ {
		payload := make([]byte, 200)
		for j := range payload {
			payload[j] = byte(i)
		}
		cmdu.Tlvs = append(cmdu.Tlvs, &VendorSpecificTlv{OUI: [3]byte{0x00, 0x11, 0x22}, Payload: payload})
	}

	fragments, err := ForgeCmdu(cmdu, MaxSegmentSize)
	if err != nil {
		t.Fatalf("ForgeCmdu: %v", err)
	}
	if len(fragments) < 2 {
		t.Fatalf("expected multiple fragments, got %d", len(fragments))
	}
	if len(fragments) > MaxFragments {
		t.Fatalf("exceeded max fragments: %d", len(fragments))
	}

	for i, f := range fragments {
		last := f[7]&flagLastFragment != 0
		if i == len(fragments)-1 && !last {
			t.Fatalf("fragment %d should carry last-fragment flag", i)
		}
		if i != len(fragments)-1 && last {
			t.Fatalf("fragment %d should not carry last-fragment flag", i)
		}
		if f[6] != byte(i) {
			t.Fatalf("fragment %d has fragment-id %d", i, f[6])
		}
	}

	got, err := ParseCmdu(fragments)
	if err != nil {
		t.Fatalf("ParseCmdu: %v", err)
	}
	if len(got.Tlvs) != len(cmdu.Tlvs) {
		t.Fatalf("got %d tlvs, want %d", len(got.Tlvs), len(cmdu.Tlvs))
	}
	for i, tlv := range got.Tlvs {
		want := cmdu.Tlvs[i].(*VendorSpecificTlv)
		gotV := tlv.(*VendorSpecificTlv)
		if !bytes.Equal(gotV.Payload, want.Payload) {
			t.Fatalf("tlv %d payload mismatch", i)
		}
	}
}

func TestParseCmduRejectsMissingEndOfMessage(t *testing.T) {
	header := make([]byte, cmduHeaderLen)
	putBe16(header[2:4], uint16(CmduTopologyQuery))
	header[7] = flagLastFragment
	// no TLVs appended at all, not even end-of-message
	_, err := ParseCmdu([][]byte{header})
	if err == nil {
		t.Fatalf("expected error for missing end-of-message")
	}
}

func TestLldpBridgeDiscoveryRoundTrip(t *testing.T) {
	chassis := mustMac(t, "02:ee:ff:33:44:00")
	port := mustMac(t, "02:ee:ff:33:44:01")
	payload := BuildBridgeDiscoveryPayload(chassis, port)

	got, err := ParseLldpPayload(payload)
	if err != nil {
		t.Fatalf("ParseLldpPayload: %v", err)
	}
	if got.ChassisId != chassis || got.PortId != port || got.TTL != LldpBridgeDiscoveryTTL {
		t.Fatalf("got %+v", got)
	}
}
