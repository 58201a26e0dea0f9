package wire

import "fmt"

// EndOfMessageTlv is the zero-length sentinel that terminates a CMDU's TLV
// sequence. The codec strips it on parse and re-appends it on forge; it is
// defined here only so the type constant and round-trip tests have a home.
type EndOfMessageTlv struct{}

func (t *EndOfMessageTlv) Type() TLVType { return TLVEndOfMessage }
func (t *EndOfMessageTlv) Forge() []byte { return nil }

func parseEndOfMessage(value []byte) (Tlv, error) {
	if len(value) != 0 {
		return nil, &BadLengthError{Type: TLVEndOfMessage, Expected: 0, Got: len(value)}
	}
	return &EndOfMessageTlv{}, nil
}

// AlMacAddressTlv carries the AL-MAC of the CMDU's logical source device.
type AlMacAddressTlv struct {
	Mac MacAddress
}

func (t *AlMacAddressTlv) Type() TLVType { return TLVAlMacAddress }
func (t *AlMacAddressTlv) Forge() []byte {
	w := &writer{}
	w.mac(t.Mac)
	return w.bytesOf()
}

func parseAlMacAddress(value []byte) (Tlv, error) {
	if len(value) != 6 {
		return nil, &BadLengthError{Type: TLVAlMacAddress, Expected: 6, Got: len(value)}
	}
	m, _ := ParseMac(value)
	return &AlMacAddressTlv{Mac: m}, nil
}

// MacAddressTlv carries the MAC of the interface a CMDU was sent on.
type MacAddressTlv struct {
	Mac MacAddress
}

func (t *MacAddressTlv) Type() TLVType { return TLVMacAddress }
func (t *MacAddressTlv) Forge() []byte {
	w := &writer{}
	w.mac(t.Mac)
	return w.bytesOf()
}

func parseMacAddressTlv(value []byte) (Tlv, error) {
	if len(value) != 6 {
		return nil, &BadLengthError{Type: TLVMacAddress, Expected: 6, Got: len(value)}
	}
	m, _ := ParseMac(value)
	return &MacAddressTlv{Mac: m}, nil
}

// LinkMetricQueryNeighborType selects whether a link-metric-query targets
// every neighbor or one specific neighbor.
type LinkMetricQueryNeighborType uint8

const (
	LinkMetricQueryAllNeighbors      LinkMetricQueryNeighborType = 0x00
	LinkMetricQuerySpecificNeighbor  LinkMetricQueryNeighborType = 0x01
)

// LinkMetricQueryTlv requests transmitter, receiver, or both link metrics.
type LinkMetricQueryTlv struct {
	NeighborType     LinkMetricQueryNeighborType
	SpecificNeighbor MacAddress // ignored/zeroed when NeighborType == AllNeighbors
	LinkMetricsType  uint8      // 0=tx, 1=rx, 2=both
}

func (t *LinkMetricQueryTlv) Type() TLVType { return TLVLinkMetricQuery }
func (t *LinkMetricQueryTlv) Forge() []byte {
	w := &writer{}
	w.u8(byte(t.NeighborType))
	neighbor := t.SpecificNeighbor
	if t.NeighborType == LinkMetricQueryAllNeighbors {
		// Normalization rule: ALL_NEIGHBORS queries always carry a zeroed
		// specific-neighbor field regardless of what the caller set.
		neighbor = MacAddress{}
	}
	w.mac(neighbor)
	w.u8(t.LinkMetricsType)
	return w.bytesOf()
}

func parseLinkMetricQuery(value []byte) (Tlv, error) {
	c := newCursor(value)
	nt, err := c.u8()
	if err != nil {
		return nil, err
	}
	mac, err := c.mac()
	if err != nil {
		return nil, err
	}
	lmt, err := c.u8()
	if err != nil {
		return nil, err
	}
	if !c.atEnd() {
		return nil, fmt.Errorf("%w", ErrTrailingGarbage)
	}
	return &LinkMetricQueryTlv{
		NeighborType:     LinkMetricQueryNeighborType(nt),
		SpecificNeighbor: mac,
		LinkMetricsType:  lmt,
	}, nil
}

// LinkMetricResultInvalidNeighbor is the only defined LinkMetricResultCodeTlv
// value: the queried neighbor is not actually a neighbor of the responder.
const LinkMetricResultInvalidNeighbor uint8 = 0x00

// LinkMetricResultCodeTlv reports that a link-metric-query referred to a
// neighbor that is not actually a neighbor of the responder.
type LinkMetricResultCodeTlv struct {
	ResultCode uint8 // 0 = invalid neighbor
}

func (t *LinkMetricResultCodeTlv) Type() TLVType { return TLVLinkMetricResultCode }
func (t *LinkMetricResultCodeTlv) Forge() []byte { return []byte{t.ResultCode} }

func parseLinkMetricResultCode(value []byte) (Tlv, error) {
	if len(value) != 1 {
		return nil, &BadLengthError{Type: TLVLinkMetricResultCode, Expected: 1, Got: len(value)}
	}
	return &LinkMetricResultCodeTlv{ResultCode: value[0]}, nil
}

// RoleRegistrar is the single defined role value carried by SearchedRoleTlv
// and SupportedRoleTlv.
const RoleRegistrar uint8 = 0x00

// SearchedRoleTlv / SupportedRoleTlv carry the single defined role value: 0x00 = registrar.
type SearchedRoleTlv struct{ Role uint8 }

func (t *SearchedRoleTlv) Type() TLVType { return TLVSearchedRole }
func (t *SearchedRoleTlv) Forge() []byte { return []byte{t.Role} }

func parseSearchedRole(value []byte) (Tlv, error) {
	if len(value) != 1 {
		return nil, &BadLengthError{Type: TLVSearchedRole, Expected: 1, Got: len(value)}
	}
	return &SearchedRoleTlv{Role: value[0]}, nil
}

type SupportedRoleTlv struct{ Role uint8 }

func (t *SupportedRoleTlv) Type() TLVType { return TLVSupportedRole }
func (t *SupportedRoleTlv) Forge() []byte { return []byte{t.Role} }

func parseSupportedRole(value []byte) (Tlv, error) {
	if len(value) != 1 {
		return nil, &BadLengthError{Type: TLVSupportedRole, Expected: 1, Got: len(value)}
	}
	return &SupportedRoleTlv{Role: value[0]}, nil
}

// Frequency band values shared by AutoconfigFreqBandTlv and SupportedFreqBandTlv.
const (
	FreqBand24GHz uint8 = 0x00
	FreqBand5GHz  uint8 = 0x01
	FreqBand60GHz uint8 = 0x02
)

type AutoconfigFreqBandTlv struct{ Band uint8 }

func (t *AutoconfigFreqBandTlv) Type() TLVType { return TLVAutoconfigFreqBand }
func (t *AutoconfigFreqBandTlv) Forge() []byte { return []byte{t.Band} }

func parseAutoconfigFreqBand(value []byte) (Tlv, error) {
	if len(value) != 1 {
		return nil, &BadLengthError{Type: TLVAutoconfigFreqBand, Expected: 1, Got: len(value)}
	}
	return &AutoconfigFreqBandTlv{Band: value[0]}, nil
}

type SupportedFreqBandTlv struct{ Band uint8 }

func (t *SupportedFreqBandTlv) Type() TLVType { return TLVSupportedFreqBand }
func (t *SupportedFreqBandTlv) Forge() []byte { return []byte{t.Band} }

func parseSupportedFreqBand(value []byte) (Tlv, error) {
	if len(value) != 1 {
		return nil, &BadLengthError{Type: TLVSupportedFreqBand, Expected: 1, Got: len(value)}
	}
	return &SupportedFreqBandTlv{Band: value[0]}, nil
}

// ProfileVersionTlv advertises the 1905.1 profile the sender implements.
type ProfileVersionTlv struct{ Version uint8 }

func (t *ProfileVersionTlv) Type() TLVType { return TLVProfileVersion }
func (t *ProfileVersionTlv) Forge() []byte { return []byte{t.Version} }

func parseProfileVersion(value []byte) (Tlv, error) {
	if len(value) != 1 {
		return nil, &BadLengthError{Type: TLVProfileVersion, Expected: 1, Got: len(value)}
	}
	return &ProfileVersionTlv{Version: value[0]}, nil
}

// ControlUrlTlv carries a NUL-terminated URL string for out-of-band control.
type ControlUrlTlv struct{ Url string }

func (t *ControlUrlTlv) Type() TLVType { return TLVControlUrl }
func (t *ControlUrlTlv) Forge() []byte {
	return append([]byte(t.Url), 0x00)
}

func parseControlUrl(value []byte) (Tlv, error) {
	if len(value) == 0 || value[len(value)-1] != 0x00 {
		return nil, fmt.Errorf("%w: control-url not NUL-terminated", ErrBadLength)
	}
	return &ControlUrlTlv{Url: string(value[:len(value)-1])}, nil
}

// WscTlv is the opaque WSC frame exchanged during AP auto-configuration.
// The cryptographic contents are never interpreted by this codec; see
// pkg/wsc for the handler boundary.
type WscTlv struct{ Data []byte }

func (t *WscTlv) Type() TLVType { return TLVWsc }
func (t *WscTlv) Forge() []byte { return append([]byte(nil), t.Data...) }

func parseWsc(value []byte) (Tlv, error) {
	return &WscTlv{Data: append([]byte(nil), value...)}, nil
}

// VendorSpecificTlv carries a 3-octet OUI plus an opaque vendor payload,
// dispatched through the generic extension table per spec §4.5.
type VendorSpecificTlv struct {
	OUI     [3]byte
	Payload []byte
}

func (t *VendorSpecificTlv) Type() TLVType { return TLVVendorSpecific }
func (t *VendorSpecificTlv) Forge() []byte {
	w := &writer{}
	w.bytes(t.OUI[:])
	w.bytes(t.Payload)
	return w.bytesOf()
}

func parseVendorSpecific(value []byte) (Tlv, error) {
	c := newCursor(value)
	oui, err := c.bytes(3)
	if err != nil {
		return nil, err
	}
	var v VendorSpecificTlv
	copy(v.OUI[:], oui)
	v.Payload = append([]byte(nil), c.rest()...)
	return &v, nil
}

// SupportedServiceTlv / SearchedServiceTlv carry the Multi-AP service list.
const (
	ServiceMultiApController uint8 = 0x00
	ServiceMultiApAgent      uint8 = 0x01
)

type SupportedServiceTlv struct{ Services []uint8 }

func (t *SupportedServiceTlv) Type() TLVType { return TLVSupportedService }
func (t *SupportedServiceTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Services)))
	w.bytes(t.Services)
	return w.bytesOf()
}

func parseSupportedService(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	svcs, err := c.bytes(int(n))
	if err != nil {
		return nil, err
	}
	return &SupportedServiceTlv{Services: append([]byte(nil), svcs...)}, nil
}

type SearchedServiceTlv struct{ Services []uint8 }

func (t *SearchedServiceTlv) Type() TLVType { return TLVSearchedService }
func (t *SearchedServiceTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Services)))
	w.bytes(t.Services)
	return w.bytesOf()
}

func parseSearchedService(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	svcs, err := c.bytes(int(n))
	if err != nil {
		return nil, err
	}
	return &SearchedServiceTlv{Services: append([]byte(nil), svcs...)}, nil
}
