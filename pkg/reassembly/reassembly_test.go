package reassembly

import (
	"testing"

	"github.com/krisarmstrong/al1905d/pkg/wire"
)

func mustMac(t *testing.T, b byte) wire.MacAddress {
	t.Helper()
	m, err := wire.ParseMac([]byte{0x02, 0xee, 0xff, 0x33, 0x44, b})
	if err != nil {
		t.Fatalf("ParseMac: %v", err)
	}
	return m
}

func TestAcceptSingleFragmentCompletesImmediately(t *testing.T) {
	src := mustMac(t, 0x01)
	dst := mustMac(t, 0x02)

	cmdu := &wire.Cmdu{Type: wire.CmduTopologyQuery, MessageId: 42}
	fragments, err := wire.ForgeCmdu(cmdu, wire.MaxSegmentSize)
	if err != nil {
		t.Fatalf("ForgeCmdu: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected a single fragment, got %d", len(fragments))
	}

	r := New(DefaultCapacity)
	got, err := r.Accept(src, dst, fragments[0])
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got == nil {
		t.Fatalf("expected completed cmdu on the only fragment")
	}
	if got.Type != cmdu.Type || got.MessageId != cmdu.MessageId {
		t.Fatalf("got %+v", got)
	}
	if r.InFlight() != 0 {
		t.Fatalf("slot should have been freed on completion")
	}
}

func TestAcceptMultiFragmentOrdersCorrectly(t *testing.T) {
	src := mustMac(t, 0x01)
	dst := mustMac(t, 0x02)

	cmdu := &wire.Cmdu{Type: wire.CmduVendorSpecific, MessageId: 99}
	for i := 0; i < 8; i++ {
		payload := make([]byte, 200)
		for j := range payload {
			payload[j] = byte(i)
		}
		cmdu.Tlvs = append(cmdu.Tlvs, &wire.VendorSpecificTlv{OUI: [3]byte{1, 2, 3}, Payload: payload})
	}
	fragments, err := wire.ForgeCmdu(cmdu, wire.MaxSegmentSize)
	if err != nil {
		t.Fatalf("ForgeCmdu: %v", err)
	}
	if len(fragments) < 2 {
		t.Fatalf("expected multiple fragments, got %d", len(fragments))
	}

	r := New(DefaultCapacity)

	// Feed fragments in reverse order: the slot must still reassemble
	// correctly once every lower index has arrived.
	var got *wire.Cmdu
	for i := len(fragments) - 1; i >= 0; i-- {
		out, err := r.Accept(src, dst, fragments[i])
		if err != nil {
			t.Fatalf("Accept fragment %d: %v", i, err)
		}
		if i == 0 {
			got = out
		} else if out != nil {
			t.Fatalf("cmdu completed early at fragment %d", i)
		}
	}
	if got == nil {
		t.Fatalf("expected completion after final fragment arrived")
	}
	if len(got.Tlvs) != len(cmdu.Tlvs) {
		t.Fatalf("got %d tlvs, want %d", len(got.Tlvs), len(cmdu.Tlvs))
	}
}

func TestAcceptDuplicateFragmentIsAnomalyNotFatal(t *testing.T) {
	src := mustMac(t, 0x01)
	dst := mustMac(t, 0x02)

	cmdu := &wire.Cmdu{Type: wire.CmduVendorSpecific, MessageId: 5}
	for i := 0; i < 8; i++ {
		payload := make([]byte, 200)
		cmdu.Tlvs = append(cmdu.Tlvs, &wire.VendorSpecificTlv{OUI: [3]byte{1, 2, 3}, Payload: payload})
	}
	fragments, err := wire.ForgeCmdu(cmdu, wire.MaxSegmentSize)
	if err != nil {
		t.Fatalf("ForgeCmdu: %v", err)
	}
	if len(fragments) < 2 {
		t.Fatalf("need at least 2 fragments for this test")
	}

	r := New(DefaultCapacity)
	if _, err := r.Accept(src, dst, fragments[0]); err != nil {
		t.Fatalf("Accept fragment 0: %v", err)
	}
	// Redeliver fragment 0: should be reported as an anomaly, and the slot
	// must still be alive to accept the remaining fragments afterward.
	_, err = r.Accept(src, dst, fragments[0])
	if err == nil {
		t.Fatalf("expected anomaly for duplicate fragment id")
	}
	if _, ok := err.(*Anomaly); !ok {
		t.Fatalf("expected *Anomaly, got %T: %v", err, err)
	}

	var got *wire.Cmdu
	for i := 1; i < len(fragments); i++ {
		out, err := r.Accept(src, dst, fragments[i])
		if err != nil {
			t.Fatalf("Accept fragment %d: %v", i, err)
		}
		if out != nil {
			got = out
		}
	}
	if got == nil {
		t.Fatalf("slot should still complete after a dropped duplicate")
	}
}

func TestAcceptSeparatesConcurrentMessageIds(t *testing.T) {
	src := mustMac(t, 0x01)
	dst := mustMac(t, 0x02)

	a := &wire.Cmdu{Type: wire.CmduTopologyQuery, MessageId: 1}
	b := &wire.Cmdu{Type: wire.CmduTopologyQuery, MessageId: 2}
	fa, err := wire.ForgeCmdu(a, wire.MaxSegmentSize)
	if err != nil {
		t.Fatalf("ForgeCmdu a: %v", err)
	}
	fb, err := wire.ForgeCmdu(b, wire.MaxSegmentSize)
	if err != nil {
		t.Fatalf("ForgeCmdu b: %v", err)
	}

	r := New(DefaultCapacity)
	gotA, err := r.Accept(src, dst, fa[0])
	if err != nil {
		t.Fatalf("Accept a: %v", err)
	}
	gotB, err := r.Accept(src, dst, fb[0])
	if err != nil {
		t.Fatalf("Accept b: %v", err)
	}
	if gotA.MessageId != 1 || gotB.MessageId != 2 {
		t.Fatalf("messages crossed: %+v %+v", gotA, gotB)
	}
}
