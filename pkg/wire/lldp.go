package wire

import "fmt"

// LLDP TLV types used by 1905 bridge discovery (IEEE 802.1AB, the subset
// this codec needs — full LLDP has many more).
const (
	lldpTLVEnd       = 0
	lldpTLVChassisID = 1
	lldpTLVPortID    = 2
	lldpTLVTTL       = 3
)

// LLDP chassis/port ID subtype: MAC address, the only subtype 1905 uses.
const lldpSubtypeMAC = 4

// LldpBridgeDiscoveryTTL is the fixed TTL (seconds) 1905 always advertises.
const LldpBridgeDiscoveryTTL = 180

// LldpPayload is the minimal LLDP PDU 1905 bridge discovery sends and
// expects to receive: chassis-id (AL-MAC), port-id (egress interface MAC),
// TTL, end-of-LLDPDU.
type LldpPayload struct {
	ChassisId MacAddress
	PortId    MacAddress
	TTL       uint16
}

// BuildBridgeDiscoveryPayload forges the three mandatory LLDP TLVs plus the
// end-of-LLDPDU sentinel, per spec §6.1.
func BuildBridgeDiscoveryPayload(chassisId, portId MacAddress) []byte {
	var out []byte
	out = append(out, lldpTLV(lldpTLVChassisID, append([]byte{lldpSubtypeMAC}, chassisId[:]...))...)
	out = append(out, lldpTLV(lldpTLVPortID, append([]byte{lldpSubtypeMAC}, portId[:]...))...)
	ttl := []byte{0, 0}
	putBe16(ttl, LldpBridgeDiscoveryTTL)
	out = append(out, lldpTLV(lldpTLVTTL, ttl)...)
	out = append(out, lldpTLV(lldpTLVEnd, nil)...)
	return out
}

// lldpTLV renders an LLDP TLV: 7 bits of type, 9 bits of length, big-endian
// packed into a 2-octet header, per IEEE 802.1AB.
func lldpTLV(typ uint8, value []byte) []byte {
	header := uint16(typ)<<9 | uint16(len(value))
	out := make([]byte, 2+len(value))
	putBe16(out, header)
	copy(out[2:], value)
	return out
}

// ParseLldpPayload parses the mandatory TLV sequence out of an LLDP frame's
// payload, ignoring any further optional TLVs before end-of-LLDPDU.
func ParseLldpPayload(payload []byte) (*LldpPayload, error) {
	var p LldpPayload
	var haveChassis, havePort, haveTTL bool

	for len(payload) > 0 {
		if len(payload) < 2 {
			return nil, fmt.Errorf("%w: truncated lldp tlv header", ErrTruncatedFrame)
		}
		header := be16(payload)
		typ := uint8(header >> 9)
		length := int(header & 0x1ff)
		payload = payload[2:]
		if len(payload) < length {
			return nil, fmt.Errorf("%w: truncated lldp tlv value", ErrTruncatedFrame)
		}
		value := payload[:length]
		payload = payload[length:]

		switch typ {
		case lldpTLVEnd:
			if !haveChassis || !havePort || !haveTTL {
				return nil, fmt.Errorf("%w: lldp pdu missing mandatory tlv", ErrUnknownMandatory)
			}
			return &p, nil
		case lldpTLVChassisID:
			mac, err := parseLldpMacTlv(value)
			if err != nil {
				return nil, err
			}
			p.ChassisId = mac
			haveChassis = true
		case lldpTLVPortID:
			mac, err := parseLldpMacTlv(value)
			if err != nil {
				return nil, err
			}
			p.PortId = mac
			havePort = true
		case lldpTLVTTL:
			if length != 2 {
				return nil, &BadLengthError{Expected: 2, Got: length}
			}
			p.TTL = be16(value)
			haveTTL = true
		}
	}
	return nil, fmt.Errorf("%w: lldp pdu has no end marker", ErrTruncatedFrame)
}

func parseLldpMacTlv(value []byte) (MacAddress, error) {
	if len(value) != 7 || value[0] != lldpSubtypeMAC {
		return MacAddress{}, fmt.Errorf("%w: lldp tlv is not mac-subtype", ErrUnknownMandatory)
	}
	return ParseMac(value[1:])
}
