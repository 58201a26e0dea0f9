package wire

import "fmt"

// CmduType identifies a CMDU's message type.
type CmduType uint16

const (
	CmduTopologyDiscovery           CmduType = 0x0000
	CmduTopologyNotification        CmduType = 0x0001
	CmduTopologyQuery               CmduType = 0x0002
	CmduTopologyResponse            CmduType = 0x0003
	CmduVendorSpecific              CmduType = 0x0004
	CmduLinkMetricQuery             CmduType = 0x0005
	CmduLinkMetricResponse          CmduType = 0x0006
	CmduApAutoconfigSearch          CmduType = 0x0007
	CmduApAutoconfigResponse        CmduType = 0x0008
	CmduApAutoconfigWsc             CmduType = 0x0009
	CmduApAutoconfigRenew           CmduType = 0x000A
	CmduPushButtonEventNotification CmduType = 0x000B
	CmduPushButtonJoinNotification  CmduType = 0x000C
	CmduHigherLayerQuery            CmduType = 0x000D
	CmduHigherLayerResponse         CmduType = 0x000E
	CmduInterfacePowerChangeRequest CmduType = 0x000F
	CmduInterfacePowerChangeResponse CmduType = 0x0010
	CmduGenericPhyQuery             CmduType = 0x0011
	CmduGenericPhyResponse          CmduType = 0x0012
)

var cmduTypeNames = map[CmduType]string{
	CmduTopologyDiscovery:            "topology-discovery",
	CmduTopologyNotification:         "topology-notification",
	CmduTopologyQuery:                "topology-query",
	CmduTopologyResponse:             "topology-response",
	CmduVendorSpecific:               "vendor-specific",
	CmduLinkMetricQuery:              "link-metric-query",
	CmduLinkMetricResponse:           "link-metric-response",
	CmduApAutoconfigSearch:           "ap-autoconfig-search",
	CmduApAutoconfigResponse:         "ap-autoconfig-response",
	CmduApAutoconfigWsc:              "ap-autoconfig-wsc",
	CmduApAutoconfigRenew:            "ap-autoconfig-renew",
	CmduPushButtonEventNotification:  "push-button-event-notification",
	CmduPushButtonJoinNotification:   "push-button-join-notification",
	CmduHigherLayerQuery:             "higher-layer-query",
	CmduHigherLayerResponse:          "higher-layer-response",
	CmduInterfacePowerChangeRequest:  "interface-power-change-request",
	CmduInterfacePowerChangeResponse: "interface-power-change-response",
	CmduGenericPhyQuery:              "generic-phy-query",
	CmduGenericPhyResponse:           "generic-phy-response",
}

func (t CmduType) String() string {
	if name, ok := cmduTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%04x)", uint16(t))
}

// IsResponseType reports whether t is one of the response-type CMDUs that
// the duplicate filter (§4.3) exempts from suppression.
func (t CmduType) IsResponseType() bool {
	switch t {
	case CmduTopologyResponse, CmduLinkMetricResponse, CmduApAutoconfigResponse,
		CmduHigherLayerResponse, CmduInterfacePowerChangeResponse, CmduGenericPhyResponse:
		return true
	}
	return false
}

// RelayAllowed reports whether the standard permits the relay-indicator bit
// to be set for t. Every other type has it cleared on forge (§4.1
// normalization rule).
func (t CmduType) RelayAllowed() bool {
	switch t {
	case CmduTopologyDiscovery, CmduTopologyNotification,
		CmduPushButtonEventNotification, CmduApAutoconfigRenew:
		return true
	}
	return false
}

// EtherType1905 is the Ethernet type value carrying 1905 CMDUs.
const EtherType1905 = 0x893a

// EtherTypeLLDP is the Ethernet type value carrying LLDP frames.
const EtherTypeLLDP = 0x88cc

// MaxSegmentSize is the largest CMDU payload, in octets, that fits in one
// Ethernet frame (spec §3.3): 1500 octets of payload.
const MaxSegmentSize = 1500

const cmduHeaderLen = 8 // version, reserved, type(2), mid(2), fragment, flags

const (
	flagLastFragment = 0x80
	flagRelay        = 0x40
)

// Cmdu is a fully reassembled, parsed 1905 control message.
type Cmdu struct {
	Type      CmduType
	MessageId MessageId
	Relay     bool
	Tlvs      []Tlv
}

// ParseCmduHeader validates that payload begins with a well-formed CMDU
// header (version 0, reserved 0) and is long enough to contain one.
func ParseCmduHeader(payload []byte) error {
	if len(payload) < cmduHeaderLen {
		return fmt.Errorf("%w: cmdu header needs %d bytes, got %d", ErrTruncatedFrame, cmduHeaderLen, len(payload))
	}
	return nil
}

// FragmentHeader is the decoded 1905 header of a single raw Ethernet
// payload, before its fragments have been reassembled into a Cmdu.
type FragmentHeader struct {
	Type       CmduType
	MessageId  MessageId
	FragmentId FragmentId
	Last       bool
	Relay      bool
}

// ParseFragmentHeader decodes the 8-octet CMDU header of one raw fragment
// payload. The reassembler calls this on every received frame before it has
// enough fragments to hand to ParseCmdu.
func ParseFragmentHeader(payload []byte) (FragmentHeader, []byte, error) {
	if err := ParseCmduHeader(payload); err != nil {
		return FragmentHeader{}, nil, err
	}
	if payload[0] != 0 || payload[1] != 0 {
		return FragmentHeader{}, nil, fmt.Errorf("%w: reserved header octets must be zero", ErrReservedValueUsed)
	}
	h := FragmentHeader{
		Type:       CmduType(be16(payload[2:4])),
		MessageId:  MessageId(be16(payload[4:6])),
		FragmentId: FragmentId(payload[6]),
		Last:       payload[7]&flagLastFragment != 0,
		Relay:      payload[7]&flagRelay != 0,
	}
	return h, payload[cmduHeaderLen:], nil
}

// ParseCmdu concatenates a sequence of fragment payloads (already ordered
// by fragment id by the reassembler) and parses the aggregate CMDU,
// including the embedded end-of-message sentinel which is consumed but not
// retained on Cmdu.Tlvs.
func ParseCmdu(fragments [][]byte) (*Cmdu, error) {
	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: no fragments", ErrTruncatedFrame)
	}
	first := fragments[0]
	if err := ParseCmduHeader(first); err != nil {
		return nil, err
	}
	if first[0] != 0 || first[1] != 0 {
		return nil, fmt.Errorf("%w: reserved header octets must be zero", ErrReservedValueUsed)
	}
	cmduType := CmduType(be16(first[2:4]))
	mid := MessageId(be16(first[4:6]))
	flags := first[7]

	cmdu := &Cmdu{
		Type:      cmduType,
		MessageId: mid,
		Relay:     flags&flagRelay != 0,
	}

	var body []byte
	for fi, frag := range fragments {
		if fi > 0 {
			// only the first fragment's header fields are authoritative;
			// subsequent fragments repeat the same header per spec §3.3.
			if err := ParseCmduHeader(frag); err != nil {
				return nil, err
			}
		}
		body = append(body, frag[cmduHeaderLen:]...)
	}

	sawEndOfMessage := false
	for len(body) > 0 {
		if sawEndOfMessage {
			return nil, fmt.Errorf("%w", ErrTrailingGarbage)
		}
		tlv, n, err := ParseTLV(body)
		if err != nil {
			return nil, err
		}
		if tlv.Type() == TLVEndOfMessage {
			sawEndOfMessage = true
		} else {
			cmdu.Tlvs = append(cmdu.Tlvs, tlv)
		}
		body = body[n:]
	}
	if !sawEndOfMessage {
		return nil, fmt.Errorf("%w", ErrNoEndOfMessage)
	}
	return cmdu, nil
}

// ForgeCmdu renders cmdu into one or more Ethernet-payload buffers (each
// including its own CMDU header), splitting into fragments of at most
// maxSegment octets of TLV payload when necessary. Every produced buffer
// carries a valid header; only the last carries the last-fragment flag.
//
// Per §4.1, the relay-indicator is cleared for any type the standard
// forbids relaying on, regardless of the Relay field's input value.
func ForgeCmdu(cmdu *Cmdu, maxSegment int) ([][]byte, error) {
	if maxSegment <= 0 {
		maxSegment = MaxSegmentSize
	}

	relay := cmdu.Relay && cmdu.Type.RelayAllowed()

	var tlvBytes []byte
	for _, t := range cmdu.Tlvs {
		tlvBytes = append(tlvBytes, ForgeTLV(t)...)
	}
	tlvBytes = append(tlvBytes, ForgeTLV(&EndOfMessageTlv{})...)

	budget := maxSegment - cmduHeaderLen
	if budget <= 0 {
		return nil, fmt.Errorf("max segment %d too small for cmdu header", maxSegment)
	}

	var chunks [][]byte
	for len(tlvBytes) > 0 {
		n := len(tlvBytes)
		if n > budget {
			n = budget
		}
		chunks = append(chunks, tlvBytes[:n])
		tlvBytes = tlvBytes[n:]
	}
	if len(chunks) == 0 {
		chunks = [][]byte{nil}
	}
	if len(chunks) > MaxFragments {
		return nil, fmt.Errorf("%w: cmdu needs %d fragments, max is %d", ErrTooManyFragments, len(chunks), MaxFragments)
	}

	out := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		header := make([]byte, cmduHeaderLen)
		header[0] = 0 // version
		header[1] = 0 // reserved
		putBe16(header[2:4], uint16(cmdu.Type))
		putBe16(header[4:6], uint16(cmdu.MessageId))
		header[6] = byte(i)
		var flags byte
		if i == len(chunks)-1 {
			flags |= flagLastFragment
		}
		if relay {
			flags |= flagRelay
		}
		header[7] = flags
		out = append(out, append(header, chunk...))
	}
	return out, nil
}
