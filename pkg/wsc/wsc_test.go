package wsc

import "testing"

func TestNullHandlerRoundTrip(t *testing.T) {
	var h Handler = &NullHandler{Creds: Credentials{Ssid: "home-network"}}

	m1, err := h.BuildM1()
	if err != nil {
		t.Fatalf("BuildM1: %v", err)
	}
	if len(m1) != M1Size {
		t.Fatalf("M1 length = %d, want %d", len(m1), M1Size)
	}

	m2, err := h.ConsumeM1ProduceM2(m1)
	if err != nil {
		t.Fatalf("ConsumeM1ProduceM2: %v", err)
	}
	if len(m2) != M2Size {
		t.Fatalf("M2 length = %d, want %d", len(m2), M2Size)
	}

	creds, err := h.ConsumeM2(m2)
	if err != nil {
		t.Fatalf("ConsumeM2: %v", err)
	}
	if creds.Ssid != "home-network" {
		t.Fatalf("got ssid %q", creds.Ssid)
	}
}

func TestConsumeM1RejectsWrongSize(t *testing.T) {
	h := &NullHandler{}
	if _, err := h.ConsumeM1ProduceM2(make([]byte, 10)); err == nil {
		t.Fatalf("expected error for undersized M1")
	}
}
