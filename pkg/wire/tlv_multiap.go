package wire

import "fmt"

// BssInfo is a BSSID plus its (length-prefixed, <=32 octet) SSID. Shared
// wire representation for both TLV types below and for pkg/topology's
// WifiInterface.
type BssInfo struct {
	Bssid MacAddress
	Ssid  string
}

const maxSsidLen = 32

func (b BssInfo) forge(w *writer) {
	w.mac(b.Bssid)
	w.u8(uint8(len(b.Ssid)))
	w.bytes([]byte(b.Ssid))
}

func parseBssInfo(c *cursor) (BssInfo, error) {
	var b BssInfo
	mac, err := c.mac()
	if err != nil {
		return b, err
	}
	ssidLen, err := c.u8()
	if err != nil {
		return b, err
	}
	if int(ssidLen) > maxSsidLen {
		return b, fmt.Errorf("%w: ssid length %d exceeds %d", ErrReservedValueUsed, ssidLen, maxSsidLen)
	}
	ssid, err := c.bytes(int(ssidLen))
	if err != nil {
		return b, err
	}
	b.Bssid = mac
	b.Ssid = string(ssid)
	return b, nil
}

// ApRadioBsses groups the operational BSSes of one radio.
type ApRadioBsses struct {
	RadioId MacAddress
	Bsses   []BssInfo
}

// ApOperationalBssTlv reports, per radio, the set of BSSes a Multi-AP agent
// currently has operational.
type ApOperationalBssTlv struct {
	Radios []ApRadioBsses
}

func (t *ApOperationalBssTlv) Type() TLVType { return TLVApOperationalBss }
func (t *ApOperationalBssTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Radios)))
	for _, r := range t.Radios {
		w.mac(r.RadioId)
		w.u8(uint8(len(r.Bsses)))
		for _, b := range r.Bsses {
			b.forge(w)
		}
	}
	return w.bytesOf()
}

func parseApOperationalBss(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &ApOperationalBssTlv{Radios: make([]ApRadioBsses, 0, n)}
	for i := 0; i < int(n); i++ {
		radioId, err := c.mac()
		if err != nil {
			return nil, err
		}
		bssCount, err := c.u8()
		if err != nil {
			return nil, err
		}
		radio := ApRadioBsses{RadioId: radioId, Bsses: make([]BssInfo, 0, bssCount)}
		for j := 0; j < int(bssCount); j++ {
			b, err := parseBssInfo(c)
			if err != nil {
				return nil, err
			}
			radio.Bsses = append(radio.Bsses, b)
		}
		t.Radios = append(t.Radios, radio)
	}
	return t, nil
}

// AssociatedClientEntry is one STA associated to a BSS, with the time
// (seconds) it has been associated.
type AssociatedClientEntry struct {
	Mac              MacAddress
	SecondsAssociated uint16
}

// AssociatedClientsBss groups associated clients by the BSS they're on.
type AssociatedClientsBss struct {
	Bssid   MacAddress
	Clients []AssociatedClientEntry
}

// AssociatedClientsTlv reports, per BSS, the set of currently-associated STAs.
type AssociatedClientsTlv struct {
	Bsses []AssociatedClientsBss
}

func (t *AssociatedClientsTlv) Type() TLVType { return TLVAssociatedClients }
func (t *AssociatedClientsTlv) Forge() []byte {
	w := &writer{}
	w.u8(uint8(len(t.Bsses)))
	for _, b := range t.Bsses {
		w.mac(b.Bssid)
		w.u16(uint16(len(b.Clients)))
		for _, cl := range b.Clients {
			w.mac(cl.Mac)
			w.u16(cl.SecondsAssociated)
		}
	}
	return w.bytesOf()
}

func parseAssociatedClients(value []byte) (Tlv, error) {
	c := newCursor(value)
	n, err := c.u8()
	if err != nil {
		return nil, err
	}
	t := &AssociatedClientsTlv{Bsses: make([]AssociatedClientsBss, 0, n)}
	for i := 0; i < int(n); i++ {
		bssid, err := c.mac()
		if err != nil {
			return nil, err
		}
		clientCount, err := c.u16()
		if err != nil {
			return nil, err
		}
		bss := AssociatedClientsBss{Bssid: bssid, Clients: make([]AssociatedClientEntry, 0, clientCount)}
		for j := 0; j < int(clientCount); j++ {
			mac, err := c.mac()
			if err != nil {
				return nil, err
			}
			secs, err := c.u16()
			if err != nil {
				return nil, err
			}
			bss.Clients = append(bss.Clients, AssociatedClientEntry{Mac: mac, SecondsAssociated: secs})
		}
		t.Bsses = append(t.Bsses, bss)
	}
	return t, nil
}
