package wire

// MediaTypeEntry pairs a media type with its media-specific info, used by
// push-button event notifications to list which media the button covers.
type MediaTypeEntry struct {
	MediaType     uint16
	MediaSpecific []byte
}

// PushButtonEventNotificationTlv announces that a push-button event
// occurred for one or more media types.
type PushButtonEventNotificationTlv struct {
	MediaTypes []MediaTypeEntry
}

func (t *PushButtonEventNotificationTlv) Type() TLVType { return TLVPushButtonEventNotification }
func (t *PushButtonEventNotificationTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.MediaTypes)))
	for _, m := range t.MediaTypes {
		w.u16(m.MediaType)
		w.u8(uint8(len(m.MediaSpecific)))
		w.bytes(m.MediaSpecific)
	}
	return w.bytesOf()
}

func parsePushButtonEventNotification(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &PushButtonEventNotificationTlv{MediaTypes: make([]MediaTypeEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		mt, err := c.u16()
		if err != nil {
			return nil, err
		}
		specLen, err := c.u8()
		if err != nil {
			return nil, err
		}
		spec, err := c.bytes(int(specLen))
		if err != nil {
			return nil, err
		}
		t.MediaTypes = append(t.MediaTypes, MediaTypeEntry{MediaType: mt, MediaSpecific: append([]byte(nil), spec...)})
	}
	return t, nil
}

// PushButtonJoinNotificationTlv announces that a new device joined the
// network via push-button configuration.
type PushButtonJoinNotificationTlv struct {
	AlMac       MacAddress
	MessageId   uint16
	TxIfMac     MacAddress
	NewIfMac    MacAddress
}

func (t *PushButtonJoinNotificationTlv) Type() TLVType { return TLVPushButtonJoinNotification }
func (t *PushButtonJoinNotificationTlv) Forge() []byte {
	w := &writer{}
	w.mac(t.AlMac)
	w.u16(t.MessageId)
	w.mac(t.TxIfMac)
	w.mac(t.NewIfMac)
	return w.bytesOf()
}

func parsePushButtonJoinNotification(value []byte) (Tlv, error) {
	c := newCursor(value)
	alMac, err := c.mac()
	if err != nil {
		return nil, err
	}
	mid, err := c.u16()
	if err != nil {
		return nil, err
	}
	txIf, err := c.mac()
	if err != nil {
		return nil, err
	}
	newIf, err := c.mac()
	if err != nil {
		return nil, err
	}
	return &PushButtonJoinNotificationTlv{AlMac: alMac, MessageId: mid, TxIfMac: txIf, NewIfMac: newIf}, nil
}

// GenericPhyOUIEntry identifies one generic-PHY media variant by OUI plus
// an index distinguishing variants sharing the same OUI.
type GenericPhyOUIEntry struct {
	OUI          [3]byte
	VariantIndex uint8
}

// PushButtonGenericPhyEventNotificationTlv lists the generic-PHY media
// variants covered by a push-button event.
type PushButtonGenericPhyEventNotificationTlv struct {
	Entries []GenericPhyOUIEntry
}

func (t *PushButtonGenericPhyEventNotificationTlv) Type() TLVType {
	return TLVPushButtonGenericPhyEventNotification
}
func (t *PushButtonGenericPhyEventNotificationTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Entries)))
	for _, e := range t.Entries {
		w.bytes(e.OUI[:])
		w.u8(e.VariantIndex)
	}
	return w.bytesOf()
}

func parsePushButtonGenericPhyEventNotification(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &PushButtonGenericPhyEventNotificationTlv{Entries: make([]GenericPhyOUIEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		oui, err := c.bytes(3)
		if err != nil {
			return nil, err
		}
		idx, err := c.u8()
		if err != nil {
			return nil, err
		}
		var e GenericPhyOUIEntry
		copy(e.OUI[:], oui)
		e.VariantIndex = idx
		t.Entries = append(t.Entries, e)
	}
	return t, nil
}

// GenericPhyInterfaceEntry describes one interface using a non-802.x media
// ("generic PHY networking technology").
type GenericPhyInterfaceEntry struct {
	Mac           MacAddress
	OUI           [3]byte
	VariantIndex  uint8
	VariantName   string // fixed 32 octets on the wire
	Url           string // XML description URL, length-prefixed
	MediaSpecific []byte // length-prefixed
}

// GenericPhyDeviceInformationTlv enumerates a device's generic-PHY interfaces.
type GenericPhyDeviceInformationTlv struct {
	AlMac      MacAddress
	Interfaces []GenericPhyInterfaceEntry
}

func (t *GenericPhyDeviceInformationTlv) Type() TLVType { return TLVGenericPhyDeviceInformation }
func (t *GenericPhyDeviceInformationTlv) Forge() []byte {
	w := &writer{}
	w.mac(t.AlMac)
	w.u8(uint8(len(t.Interfaces)))
	for _, iface := range t.Interfaces {
		w.mac(iface.Mac)
		w.bytes(iface.OUI[:])
		w.u8(iface.VariantIndex)
		w.fixedString(iface.VariantName, 32)
		w.u8(uint8(len(iface.Url)))
		w.bytes([]byte(iface.Url))
		w.u8(uint8(len(iface.MediaSpecific)))
		w.bytes(iface.MediaSpecific)
	}
	return w.bytesOf()
}

func parseGenericPhyDeviceInformation(value []byte) (Tlv, error) {
	c := newCursor(value)
	alMac, err := c.mac()
	if err != nil {
		return nil, err
	}
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &GenericPhyDeviceInformationTlv{AlMac: alMac, Interfaces: make([]GenericPhyInterfaceEntry, 0, n)}
	for i := 0; i < int(n); i++ {
		mac, err := c.mac()
		if err != nil {
			return nil, err
		}
		oui, err := c.bytes(3)
		if err != nil {
			return nil, err
		}
		variantIdx, err := c.u8()
		if err != nil {
			return nil, err
		}
		variantName, err := c.fixedString(32)
		if err != nil {
			return nil, err
		}
		urlLen, err := c.u8()
		if err != nil {
			return nil, err
		}
		url, err := c.bytes(int(urlLen))
		if err != nil {
			return nil, err
		}
		specLen, err := c.u8()
		if err != nil {
			return nil, err
		}
		spec, err := c.bytes(int(specLen))
		if err != nil {
			return nil, err
		}
		var e GenericPhyInterfaceEntry
		e.Mac = mac
		copy(e.OUI[:], oui)
		e.VariantIndex = variantIdx
		e.VariantName = variantName
		e.Url = string(url)
		e.MediaSpecific = append([]byte(nil), spec...)
		t.Interfaces = append(t.Interfaces, e)
	}
	return t, nil
}

// DeviceIdentificationTlv carries human-readable device identity strings,
// each fixed at 64 octets plus a NUL terminator on the wire (65 total).
type DeviceIdentificationTlv struct {
	FriendlyName     string
	ManufacturerName string
	ModelName        string
}

const deviceIdentFieldLen = 65

func (t *DeviceIdentificationTlv) Type() TLVType { return TLVDeviceIdentification }
func (t *DeviceIdentificationTlv) Forge() []byte {
	w := &writer{}
	w.fixedString(t.FriendlyName, deviceIdentFieldLen)
	w.fixedString(t.ManufacturerName, deviceIdentFieldLen)
	w.fixedString(t.ModelName, deviceIdentFieldLen)
	return w.bytesOf()
}

func parseDeviceIdentification(value []byte) (Tlv, error) {
	if len(value) != 3*deviceIdentFieldLen {
		return nil, &BadLengthError{Type: TLVDeviceIdentification, Expected: 3 * deviceIdentFieldLen, Got: len(value)}
	}
	c := newCursor(value)
	friendly, err := c.fixedString(deviceIdentFieldLen)
	if err != nil {
		return nil, err
	}
	manufacturer, err := c.fixedString(deviceIdentFieldLen)
	if err != nil {
		return nil, err
	}
	model, err := c.fixedString(deviceIdentFieldLen)
	if err != nil {
		return nil, err
	}
	return &DeviceIdentificationTlv{FriendlyName: friendly, ManufacturerName: manufacturer, ModelName: model}, nil
}
