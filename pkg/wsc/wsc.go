// Package wsc defines the boundary between the 1905 AP-autoconfiguration
// flow and the WSC (Wi-Fi Simple Configuration) cryptographic exchange,
// which is treated as an opaque byte blob per spec.md's out-of-scope note.
// pkg/dispatch calls through Handler without knowing how M1/M2 are built;
// NullHandler is the fixed-size placeholder implementation exercised by
// the end-to-end tests.
package wsc

import "fmt"

// M1 and M2 sizes match spec.md §8 scenario 2's exact byte counts so
// end-to-end tests can assert on TLV length without a real crypto stack.
const (
	M1Size = 415
	M2Size = 532
)

// Handler implements the three steps of the WSC exchange carried inside
// AP-autoconfig WSC CMDUs.
type Handler interface {
	// BuildM1 produces the registrar-request message an unconfigured AP
	// sends to its registrar.
	BuildM1() ([]byte, error)
	// ConsumeM1ProduceM2 is called by the registrar on receipt of M1; it
	// returns the M2 response carrying AP credentials.
	ConsumeM1ProduceM2(m1 []byte) ([]byte, error)
	// ConsumeM2 is called by the unconfigured AP on receipt of M2; it
	// returns the AP configuration to apply (ssid, bssid, auth, encryption
	// type, key) or an error if the blob could not be consumed.
	ConsumeM2(m2 []byte) (Credentials, error)
}

// Credentials is the AP configuration recovered from an M2 blob.
type Credentials struct {
	Ssid               string
	Bssid              [6]byte
	AuthenticationType uint16
	EncryptionType     uint16
	Key                []byte
}

// NullHandler produces and consumes fixed-size placeholder blobs without
// performing any real Diffie-Hellman/AES exchange. It exists so the
// dispatcher and agent exercise the real AP-autoconfig CMDU sequence
// end-to-end without a cryptographic dependency absent from the example
// corpus.
type NullHandler struct {
	// Creds is returned verbatim by ConsumeM2 for any well-formed M2 blob.
	Creds Credentials
}

func (h *NullHandler) BuildM1() ([]byte, error) {
	return make([]byte, M1Size), nil
}

func (h *NullHandler) ConsumeM1ProduceM2(m1 []byte) ([]byte, error) {
	if len(m1) != M1Size {
		return nil, fmt.Errorf("wsc: M1 has length %d, want %d", len(m1), M1Size)
	}
	return make([]byte, M2Size), nil
}

func (h *NullHandler) ConsumeM2(m2 []byte) (Credentials, error) {
	if len(m2) != M2Size {
		return Credentials{}, fmt.Errorf("wsc: M2 has length %d, want %d", len(m2), M2Size)
	}
	return h.Creds, nil
}
