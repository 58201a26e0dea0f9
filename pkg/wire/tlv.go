package wire

import "fmt"

// TLVType identifies the wire type of a TLV, per IEEE 1905.1a / Multi-AP.
type TLVType uint8

// TLV type constants. Values below 0x80 are defined by IEEE 1905.1a;
// values at or above 0x80 are the Multi-AP (WFA) extension range.
const (
	TLVEndOfMessage                          TLVType = 0x00
	TLVAlMacAddress                          TLVType = 0x01
	TLVMacAddress                            TLVType = 0x02
	TLVDeviceInformation                     TLVType = 0x03
	TLVDeviceBridgingCapability              TLVType = 0x04
	TLVNon1905NeighborDeviceList             TLVType = 0x06
	TLVNeighborDeviceList                    TLVType = 0x07
	TLVLinkMetricQuery                       TLVType = 0x08
	TLVTransmitterLinkMetric                 TLVType = 0x09
	TLVReceiverLinkMetric                    TLVType = 0x0A
	TLVVendorSpecific                        TLVType = 0x0B
	TLVLinkMetricResultCode                  TLVType = 0x0C
	TLVSearchedRole                          TLVType = 0x0D
	TLVAutoconfigFreqBand                    TLVType = 0x0E
	TLVSupportedRole                         TLVType = 0x0F
	TLVSupportedFreqBand                     TLVType = 0x10
	TLVWsc                                   TLVType = 0x11
	TLVPushButtonEventNotification           TLVType = 0x12
	TLVPushButtonJoinNotification            TLVType = 0x13
	TLVGenericPhyDeviceInformation           TLVType = 0x14
	TLVDeviceIdentification                  TLVType = 0x15
	TLVControlUrl                            TLVType = 0x16
	TLVIpv4                                  TLVType = 0x17
	TLVIpv6                                  TLVType = 0x18
	TLVPushButtonGenericPhyEventNotification TLVType = 0x19
	TLVProfileVersion                        TLVType = 0x1A
	TLVPowerOffInterface                     TLVType = 0x1B
	TLVInterfacePowerChangeInformation       TLVType = 0x1C
	TLVInterfacePowerChangeStatus            TLVType = 0x1D
	TLVL2NeighborDevice                      TLVType = 0x1E

	TLVSupportedService  TLVType = 0x80
	TLVSearchedService   TLVType = 0x81
	TLVApOperationalBss  TLVType = 0x83
	TLVAssociatedClients TLVType = 0x84
)

func (t TLVType) String() string {
	if name, ok := tlvTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(t))
}

var tlvTypeNames = map[TLVType]string{
	TLVEndOfMessage:                          "end-of-message",
	TLVAlMacAddress:                          "al-mac-address",
	TLVMacAddress:                            "mac-address",
	TLVDeviceInformation:                     "device-information",
	TLVDeviceBridgingCapability:              "device-bridging-capability",
	TLVNon1905NeighborDeviceList:             "non-1905-neighbor-device-list",
	TLVNeighborDeviceList:                    "1905-neighbor-device-list",
	TLVLinkMetricQuery:                       "link-metric-query",
	TLVTransmitterLinkMetric:                 "transmitter-link-metric",
	TLVReceiverLinkMetric:                    "receiver-link-metric",
	TLVVendorSpecific:                        "vendor-specific",
	TLVLinkMetricResultCode:                  "link-metric-result-code",
	TLVSearchedRole:                          "searched-role",
	TLVAutoconfigFreqBand:                    "autoconfig-freq-band",
	TLVSupportedRole:                         "supported-role",
	TLVSupportedFreqBand:                     "supported-freq-band",
	TLVWsc:                                   "wsc",
	TLVPushButtonEventNotification:           "push-button-event-notification",
	TLVPushButtonJoinNotification:            "push-button-join-notification",
	TLVGenericPhyDeviceInformation:           "generic-phy-device-information",
	TLVDeviceIdentification:                  "device-identification",
	TLVControlUrl:                            "control-url",
	TLVIpv4:                                  "ipv4",
	TLVIpv6:                                  "ipv6",
	TLVPushButtonGenericPhyEventNotification: "push-button-generic-phy-event-notification",
	TLVProfileVersion:                        "1905-profile-version",
	TLVPowerOffInterface:                     "power-off-interface",
	TLVInterfacePowerChangeInformation:       "interface-power-change-information",
	TLVInterfacePowerChangeStatus:            "interface-power-change-status",
	TLVL2NeighborDevice:                      "l2-neighbor-device",
	TLVSupportedService:                      "supported-service",
	TLVSearchedService:                       "searched-service",
	TLVApOperationalBss:                      "ap-operational-bss",
	TLVAssociatedClients:                     "associated-clients",
}

// Tlv is implemented by every concrete TLV type plus UnknownTlv. Forge
// returns the value bytes only; ParseTLV/ForgeTLV own the type+length header.
type Tlv interface {
	Type() TLVType
	Forge() []byte
}

// UnknownTlv preserves the bytes of a TLV type this codec does not
// recognize, so it round-trips unchanged per spec §3.2.
type UnknownTlv struct {
	TlvType TLVType
	Value   []byte
}

func (t *UnknownTlv) Type() TLVType { return t.TlvType }
func (t *UnknownTlv) Forge() []byte { return append([]byte(nil), t.Value...) }

type tlvParseFunc func(value []byte) (Tlv, error)

var tlvParsers = map[TLVType]tlvParseFunc{
	TLVEndOfMessage:                          parseEndOfMessage,
	TLVAlMacAddress:                          parseAlMacAddress,
	TLVMacAddress:                            parseMacAddressTlv,
	TLVDeviceInformation:                     parseDeviceInformation,
	TLVDeviceBridgingCapability:              parseDeviceBridgingCapability,
	TLVNon1905NeighborDeviceList:             parseNon1905NeighborDeviceList,
	TLVNeighborDeviceList:                    parseNeighborDeviceList,
	TLVLinkMetricQuery:                       parseLinkMetricQuery,
	TLVTransmitterLinkMetric:                 parseTransmitterLinkMetric,
	TLVReceiverLinkMetric:                    parseReceiverLinkMetric,
	TLVVendorSpecific:                        parseVendorSpecific,
	TLVLinkMetricResultCode:                  parseLinkMetricResultCode,
	TLVSearchedRole:                          parseSearchedRole,
	TLVAutoconfigFreqBand:                    parseAutoconfigFreqBand,
	TLVSupportedRole:                         parseSupportedRole,
	TLVSupportedFreqBand:                     parseSupportedFreqBand,
	TLVWsc:                                   parseWsc,
	TLVPushButtonEventNotification:           parsePushButtonEventNotification,
	TLVPushButtonJoinNotification:            parsePushButtonJoinNotification,
	TLVGenericPhyDeviceInformation:           parseGenericPhyDeviceInformation,
	TLVDeviceIdentification:                  parseDeviceIdentification,
	TLVControlUrl:                            parseControlUrl,
	TLVIpv4:                                  parseIpv4Tlv,
	TLVIpv6:                                  parseIpv6Tlv,
	TLVPushButtonGenericPhyEventNotification: parsePushButtonGenericPhyEventNotification,
	TLVProfileVersion:                        parseProfileVersion,
	TLVPowerOffInterface:                     parsePowerOffInterface,
	TLVInterfacePowerChangeInformation:       parseInterfacePowerChangeInformation,
	TLVInterfacePowerChangeStatus:            parseInterfacePowerChangeStatus,
	TLVL2NeighborDevice:                      parseL2NeighborDevice,
	TLVSupportedService:                      parseSupportedService,
	TLVSearchedService:                       parseSearchedService,
	TLVApOperationalBss:                      parseApOperationalBss,
	TLVAssociatedClients:                     parseAssociatedClients,
}

// ParseTLV consumes exactly 3+length bytes from b and returns the parsed
// TLV plus the number of bytes consumed.
func ParseTLV(b []byte) (Tlv, int, error) {
	c := newCursor(b)
	typ, err := c.u8()
	if err != nil {
		return nil, 0, err
	}
	length, err := c.u16()
	if err != nil {
		return nil, 0, err
	}
	value, err := c.bytes(int(length))
	if err != nil {
		return nil, 0, err
	}

	t := TLVType(typ)
	if parser, ok := tlvParsers[t]; ok {
		tlv, err := parser(value)
		if err != nil {
			return nil, 0, fmt.Errorf("parse %s: %w", t, err)
		}
		return tlv, 3 + int(length), nil
	}
	return &UnknownTlv{TlvType: t, Value: append([]byte(nil), value...)}, 3 + int(length), nil
}

// ForgeTLV renders a TLV's type+length header plus its value.
func ForgeTLV(t Tlv) []byte {
	value := t.Forge()
	out := make([]byte, 0, 3+len(value))
	out = append(out, byte(t.Type()))
	out = putBe16Slice(out, uint16(len(value)))
	out = append(out, value...)
	return out
}

func putBe16Slice(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}
