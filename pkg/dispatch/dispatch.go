// Package dispatch maps each received, de-duplicated CMDU onto its
// topology side-effect and response, per spec §4.5. Grounded on the
// teacher's Stack.decodePacket (pkg/protocols/stack.go): a type-keyed
// switch routing to one handler per CMDU type, generalized from Ethernet
// ether-type routing to 1905 CMDU-type routing.
package dispatch

import (
	"time"

	"github.com/krisarmstrong/al1905d/pkg/logging"
	"github.com/krisarmstrong/al1905d/pkg/topology"
	"github.com/krisarmstrong/al1905d/pkg/wire"
	"github.com/krisarmstrong/al1905d/pkg/wsc"
)

// Result is the dispatcher's post-condition for the event loop.
type Result int

const (
	Ok Result = iota
	OkTriggerApSearch
	OkStartPushButton
	Error
)

// Outgoing is one CMDU the dispatcher wants sent, named by the local
// interface it should go out on.
type Outgoing struct {
	LocalIfaceMac wire.MacAddress
	DstMac        wire.MacAddress
	Cmdu          *wire.Cmdu
}

// Outcome is everything the event loop needs to act on after a dispatch.
type Outcome struct {
	Result    Result
	Responses []Outgoing

	// NewNeighborOnIface is set when dispatch linked a new neighbor edge
	// onto one of the local device's own interfaces, naming that
	// interface. Per spec §9, a neighbor newly appearing on one interface
	// must be announced on the others; the event loop reacts by
	// broadcasting a topology-notification everywhere else.
	NewNeighborOnIface wire.MacAddress

	// ApConfig is set when an AP-autoconfig-WSC M2 was just consumed by an
	// unconfigured local AP interface. The event loop applies it via
	// platform.IO.ConfigureAP.
	ApConfig *ApConfigRequest
}

// ApConfigRequest asks the event loop to program LocalIfaceMac with the WSC
// credentials recovered from an M2 exchange.
type ApConfigRequest struct {
	LocalIfaceMac wire.MacAddress
	Credentials   wsc.Credentials
}

// Dispatcher holds the state shared across dispatch calls: the topology
// database, the local device's identity, the message-id counter, and the
// WSC handler boundary.
type Dispatcher struct {
	Net        *topology.Network
	LocalAlMac wire.MacAddress
	Ids        *wire.MessageIdCounter
	Wsc        wsc.Handler
}

// New creates a Dispatcher bound to net, identified locally by alMac.
func New(net *topology.Network, alMac wire.MacAddress, handler wsc.Handler) *Dispatcher {
	return &Dispatcher{Net: net, LocalAlMac: alMac, Ids: &wire.MessageIdCounter{}, Wsc: handler}
}

// Handle dispatches one de-duplicated CMDU received on ingressIfaceMac
// from Ethernet source srcMac.
//
// Tie-breaks and edge cases (spec §4.5): a CMDU originating from the local
// AL-MAC is dropped before dispatch, every response re-uses the request's
// message id verbatim, and every autonomously originated CMDU allocates
// the next value of the local counter.
func (d *Dispatcher) Handle(cmdu *wire.Cmdu, ingressIfaceMac, srcMac wire.MacAddress, now time.Time) Outcome {
	if alMac, ok := embeddedAlMac(cmdu); ok && alMac == d.LocalAlMac {
		return Outcome{Result: Ok}
	}

	switch cmdu.Type {
	case wire.CmduTopologyDiscovery:
		return d.handleTopologyDiscovery(cmdu, ingressIfaceMac, srcMac, now)
	case wire.CmduTopologyNotification:
		return d.handleTopologyNotification(cmdu, srcMac, now)
	case wire.CmduTopologyQuery:
		return d.handleTopologyQuery(cmdu, ingressIfaceMac, srcMac)
	case wire.CmduTopologyResponse:
		return d.handleTopologyResponse(cmdu, srcMac, now)
	case wire.CmduLinkMetricQuery:
		return d.handleLinkMetricQuery(cmdu, ingressIfaceMac, srcMac)
	case wire.CmduLinkMetricResponse:
		return Outcome{Result: Ok} // recorded by the stats layer, no topology effect
	case wire.CmduApAutoconfigSearch:
		return d.handleApAutoconfigSearch(cmdu, ingressIfaceMac, srcMac)
	case wire.CmduApAutoconfigResponse:
		return d.handleApAutoconfigResponse(cmdu, srcMac, ingressIfaceMac, now)
	case wire.CmduApAutoconfigWsc:
		return d.handleApAutoconfigWsc(cmdu, ingressIfaceMac, srcMac)
	case wire.CmduApAutoconfigRenew:
		return Outcome{Result: OkTriggerApSearch}
	case wire.CmduPushButtonEventNotification:
		return Outcome{Result: OkStartPushButton}
	case wire.CmduPushButtonJoinNotification:
		return d.handlePushButtonJoinNotification(cmdu, srcMac)
	case wire.CmduVendorSpecific:
		logging.Event("dispatch", "unhandled vendor-specific cmdu from %s", srcMac)
		return Outcome{Result: Ok}
	default:
		logging.Infof("dispatch: no handler for cmdu type %s, ignored", cmdu.Type)
		return Outcome{Result: Ok}
	}
}

func embeddedAlMac(cmdu *wire.Cmdu) (wire.MacAddress, bool) {
	for _, t := range cmdu.Tlvs {
		if al, ok := t.(*wire.AlMacAddressTlv); ok {
			return al.Mac, true
		}
	}
	return wire.MacAddress{}, false
}

func (d *Dispatcher) nextMid() wire.MessageId {
	return d.Ids.Next()
}

func (d *Dispatcher) handleTopologyDiscovery(cmdu *wire.Cmdu, ingressIfaceMac, srcMac wire.MacAddress, now time.Time) Outcome {
	alMac, ok := embeddedAlMac(cmdu)
	if !ok {
		return Outcome{Result: Error}
	}
	_, known := d.Net.FindDevice(alMac)
	dev := d.Net.InsertDevice(alMac, now)
	d.Net.AttachInterfaceToDevice(dev, srcMac)
	isNewNeighbor := d.Net.AddNeighbor(ingressIfaceMac, srcMac)

	var newNeighborIface wire.MacAddress
	if isNewNeighbor {
		newNeighborIface = ingressIfaceMac
	}

	if known {
		return Outcome{Result: Ok, NewNeighborOnIface: newNeighborIface}
	}
	query := &wire.Cmdu{Type: wire.CmduTopologyQuery, MessageId: d.nextMid()}
	return Outcome{
		Result:             Ok,
		Responses:          []Outgoing{{LocalIfaceMac: ingressIfaceMac, DstMac: srcMac, Cmdu: query}},
		NewNeighborOnIface: newNeighborIface,
	}
}

func (d *Dispatcher) handleTopologyNotification(cmdu *wire.Cmdu, srcMac wire.MacAddress, now time.Time) Outcome {
	if alMac, ok := embeddedAlMac(cmdu); ok {
		d.Net.InsertDevice(alMac, now)
	}
	return Outcome{Result: Ok}
}

func (d *Dispatcher) handleTopologyQuery(cmdu *wire.Cmdu, ingressIfaceMac, srcMac wire.MacAddress) Outcome {
	local, ok := d.Net.FindDevice(d.LocalAlMac)
	if !ok {
		return Outcome{Result: Error}
	}
	resp := &wire.Cmdu{Type: wire.CmduTopologyResponse, MessageId: cmdu.MessageId}
	resp.Tlvs = append(resp.Tlvs, &wire.AlMacAddressTlv{Mac: d.LocalAlMac})
	resp.Tlvs = append(resp.Tlvs, buildDeviceInformationTlv(local))
	if nbrs := buildNeighborDeviceListTlv(d.Net, local); nbrs != nil {
		resp.Tlvs = append(resp.Tlvs, nbrs)
	}
	return Outcome{Result: Ok, Responses: []Outgoing{{LocalIfaceMac: ingressIfaceMac, DstMac: srcMac, Cmdu: resp}}}
}

func buildDeviceInformationTlv(dev *topology.AlDevice) *wire.DeviceInformationTlv {
	t := &wire.DeviceInformationTlv{AlMac: dev.AlMac}
	for _, iface := range dev.Interfaces {
		t.Interfaces = append(t.Interfaces, wire.LocalInterfaceEntry{
			Mac:           iface.Mac,
			MediaType:     iface.MediaType,
			MediaSpecific: iface.MediaSpecific,
		})
	}
	return t
}

func buildNeighborDeviceListTlv(net *topology.Network, dev *topology.AlDevice) *wire.NeighborDeviceListTlv {
	seen := make(map[wire.MacAddress]bool)
	t := &wire.NeighborDeviceListTlv{}
	for _, iface := range dev.Interfaces {
		for _, n := range iface.Neighbors() {
			var ownerAl wire.MacAddress
			viaBridge := false
			if n.Owner != nil {
				ownerAl = n.Owner.AlMac
			} else {
				continue
			}
			if seen[ownerAl] || ownerAl == dev.AlMac {
				continue
			}
			seen[ownerAl] = true
			t.LocalMac = iface.Mac
			t.Neighbors = append(t.Neighbors, wire.NeighborEntry{AlMac: ownerAl, IsViaBridge: viaBridge})
		}
	}
	if len(t.Neighbors) == 0 {
		return nil
	}
	return t
}

func (d *Dispatcher) handleTopologyResponse(cmdu *wire.Cmdu, srcMac wire.MacAddress, now time.Time) Outcome {
	alMac, ok := embeddedAlMac(cmdu)
	if !ok {
		return Outcome{Result: Error}
	}
	dev := d.Net.InsertDevice(alMac, now)
	for _, t := range cmdu.Tlvs {
		switch tlv := t.(type) {
		case *wire.DeviceInformationTlv:
			for _, entry := range tlv.Interfaces {
				iface := d.Net.AttachInterfaceToDevice(dev, entry.Mac)
				iface.MediaType = entry.MediaType
				iface.MediaSpecific = entry.MediaSpecific
			}
		case *wire.NeighborDeviceListTlv:
			for _, n := range tlv.Neighbors {
				d.Net.AddNeighbor(tlv.LocalMac, n.AlMac)
			}
		}
	}
	return Outcome{Result: Ok}
}

func (d *Dispatcher) handleLinkMetricQuery(cmdu *wire.Cmdu, ingressIfaceMac, srcMac wire.MacAddress) Outcome {
	var query *wire.LinkMetricQueryTlv
	for _, t := range cmdu.Tlvs {
		if q, ok := t.(*wire.LinkMetricQueryTlv); ok {
			query = q
			break
		}
	}
	if query == nil {
		return Outcome{Result: Error}
	}

	local, ok := d.Net.FindDevice(d.LocalAlMac)
	if !ok {
		return Outcome{Result: Error}
	}

	if query.NeighborType == wire.LinkMetricQuerySpecificNeighbor {
		if _, found := d.Net.FindDevice(query.SpecificNeighbor); !found {
			resp := &wire.Cmdu{
				Type:      wire.CmduLinkMetricResponse,
				MessageId: cmdu.MessageId,
				Tlvs:      []wire.Tlv{&wire.LinkMetricResultCodeTlv{ResultCode: wire.LinkMetricResultInvalidNeighbor}},
			}
			return Outcome{Result: Ok, Responses: []Outgoing{{LocalIfaceMac: ingressIfaceMac, DstMac: srcMac, Cmdu: resp}}}
		}
	}

	// One transmitter/receiver TLV pair per distinct neighbor AL-MAC:
	// a device with more than one neighbor AL must not have its links
	// merged into a single pair under the last neighbor seen.
	type group struct {
		tx *wire.TransmitterLinkMetricTlv
		rx *wire.ReceiverLinkMetricTlv
	}
	groups := make(map[wire.MacAddress]*group)
	var order []wire.MacAddress
	for _, iface := range local.Interfaces {
		for _, n := range iface.Neighbors() {
			var neighborAl wire.MacAddress
			if n.Owner != nil {
				neighborAl = n.Owner.AlMac
			}
			// non-1905 neighbor (no owning AlDevice): zero the neighbor-AL
			// field per the wire codec's forge-time normalization contract.
			g, ok := groups[neighborAl]
			if !ok {
				g = &group{
					tx: &wire.TransmitterLinkMetricTlv{LocalAlMac: local.AlMac, NeighborAlMac: neighborAl},
					rx: &wire.ReceiverLinkMetricTlv{LocalAlMac: local.AlMac, NeighborAlMac: neighborAl},
				}
				groups[neighborAl] = g
				order = append(order, neighborAl)
			}
			g.tx.Links = append(g.tx.Links, wire.TxLinkEntry{LocalIfMac: iface.Mac, NeighborIfMac: n.Mac})
			g.rx.Links = append(g.rx.Links, wire.RxLinkEntry{LocalIfMac: iface.Mac, NeighborIfMac: n.Mac})
		}
	}
	tlvs := make([]wire.Tlv, 0, 2*len(order))
	for _, al := range order {
		g := groups[al]
		tlvs = append(tlvs, g.tx, g.rx)
	}
	resp := &wire.Cmdu{Type: wire.CmduLinkMetricResponse, MessageId: cmdu.MessageId, Tlvs: tlvs}
	return Outcome{Result: Ok, Responses: []Outgoing{{LocalIfaceMac: ingressIfaceMac, DstMac: srcMac, Cmdu: resp}}}
}

func (d *Dispatcher) handleApAutoconfigSearch(cmdu *wire.Cmdu, ingressIfaceMac, srcMac wire.MacAddress) Outcome {
	if d.Net.Registrar.Device == nil || d.Net.Registrar.Device.AlMac != d.LocalAlMac {
		return Outcome{Result: Ok}
	}
	band := wire.FreqBand24GHz
	for _, t := range cmdu.Tlvs {
		if f, ok := t.(*wire.AutoconfigFreqBandTlv); ok {
			band = f.Band
			break
		}
	}
	resp := &wire.Cmdu{
		Type:      wire.CmduApAutoconfigResponse,
		MessageId: cmdu.MessageId,
		Tlvs: []wire.Tlv{
			&wire.SupportedRoleTlv{Role: wire.RoleRegistrar},
			&wire.SupportedFreqBandTlv{Band: band},
			&wire.SupportedServiceTlv{Services: []uint8{wire.ServiceMultiApController}},
		},
	}
	return Outcome{Result: Ok, Responses: []Outgoing{{LocalIfaceMac: ingressIfaceMac, DstMac: srcMac, Cmdu: resp}}}
}

func (d *Dispatcher) handleApAutoconfigResponse(cmdu *wire.Cmdu, srcMac, ingressIfaceMac wire.MacAddress, now time.Time) Outcome {
	alMac, ok := embeddedAlMac(cmdu)
	if !ok {
		alMac = srcMac
	}
	dev := d.Net.InsertDevice(alMac, now)
	d.Net.Registrar.Device = dev

	if d.Wsc == nil {
		return Outcome{Result: Ok}
	}
	m1, err := d.Wsc.BuildM1()
	if err != nil {
		logging.Warningf("wsc BuildM1 failed: %v", err)
		return Outcome{Result: Ok}
	}
	msg := &wire.Cmdu{
		Type:      wire.CmduApAutoconfigWsc,
		MessageId: d.nextMid(),
		Tlvs:      []wire.Tlv{&wire.WscTlv{Data: m1}},
	}
	return Outcome{Result: Ok, Responses: []Outgoing{{LocalIfaceMac: ingressIfaceMac, DstMac: srcMac, Cmdu: msg}}}
}

func (d *Dispatcher) handleApAutoconfigWsc(cmdu *wire.Cmdu, ingressIfaceMac, srcMac wire.MacAddress) Outcome {
	if d.Wsc == nil {
		return Outcome{Result: Ok}
	}
	var blob *wire.WscTlv
	for _, t := range cmdu.Tlvs {
		if w, ok := t.(*wire.WscTlv); ok {
			blob = w
			break
		}
	}
	if blob == nil {
		return Outcome{Result: Error}
	}

	switch len(blob.Data) {
	case wsc.M1Size:
		if d.Net.Registrar.Device == nil || d.Net.Registrar.Device.AlMac != d.LocalAlMac {
			return Outcome{Result: Ok} // not the registrar, nothing to do
		}
		m2, err := d.Wsc.ConsumeM1ProduceM2(blob.Data)
		if err != nil {
			logging.Warningf("wsc ConsumeM1ProduceM2 failed: %v", err)
			return Outcome{Result: Error}
		}
		resp := &wire.Cmdu{
			Type:      wire.CmduApAutoconfigWsc,
			MessageId: cmdu.MessageId,
			Tlvs:      []wire.Tlv{&wire.WscTlv{Data: m2}},
		}
		return Outcome{Result: Ok, Responses: []Outgoing{{LocalIfaceMac: ingressIfaceMac, DstMac: srcMac, Cmdu: resp}}}
	case wsc.M2Size:
		creds, err := d.Wsc.ConsumeM2(blob.Data)
		if err != nil {
			logging.Warningf("wsc ConsumeM2 failed: %v", err)
			return Outcome{Result: Error}
		}
		iface, ok := d.Net.FindInterfaceAnywhere(ingressIfaceMac)
		if !ok || iface.Wifi == nil || iface.Wifi.Role != topology.WifiRoleAP || iface.Wifi.Bss.Ssid != "" {
			return Outcome{Result: Ok} // not a local, unconfigured AP interface
		}
		iface.Wifi.Bss = topology.BssInfo{Bssid: wire.MacAddress(creds.Bssid), Ssid: creds.Ssid}
		return Outcome{Result: Ok, ApConfig: &ApConfigRequest{LocalIfaceMac: ingressIfaceMac, Credentials: creds}}
	default:
		logging.Infof("wsc blob of unexpected length %d, dropping", len(blob.Data))
		return Outcome{Result: Ok}
	}
}

func (d *Dispatcher) handlePushButtonJoinNotification(cmdu *wire.Cmdu, srcMac wire.MacAddress) Outcome {
	if alMac, ok := embeddedAlMac(cmdu); ok {
		d.Net.AddNeighbor(srcMac, alMac)
	}
	return Outcome{Result: Ok}
}
