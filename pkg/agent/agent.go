// Package agent runs the single-threaded cooperative event loop (spec.md
// §4.7/§5): one goroutine pulls platform.Events off a queue and drives
// them through reassembly, deduplication, dispatch, and forwarding in
// strict arrival order, the only goroutine allowed to touch the topology
// database or the duplicate filter. Grounded on the teacher's
// pkg/daemon.Daemon for component ownership and lifecycle shape, and on
// pkg/protocols.Stack's send/receive queue split for the packet path,
// generalized from a worker-pool packet stack to the single-owner loop
// spec.md requires.
package agent

import (
	"math/rand"
	"time"

	"github.com/krisarmstrong/al1905d/pkg/dedup"
	"github.com/krisarmstrong/al1905d/pkg/dispatch"
	"github.com/krisarmstrong/al1905d/pkg/forward"
	"github.com/krisarmstrong/al1905d/pkg/logging"
	"github.com/krisarmstrong/al1905d/pkg/platform"
	"github.com/krisarmstrong/al1905d/pkg/reassembly"
	"github.com/krisarmstrong/al1905d/pkg/stats"
	"github.com/krisarmstrong/al1905d/pkg/topology"
	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// DiscoveryInterval is the nominal rearm period for the discovery timer
// (spec §4.7), before ±1s jitter is applied.
const DiscoveryInterval = 60 * time.Second

// DiscoveryJitter bounds the symmetric jitter applied around
// DiscoveryInterval.
const DiscoveryJitter = 1 * time.Second

// GcInterval is the rearm period for the garbage-collector timer.
const GcInterval = 70 * time.Second

// AlmeHandler answers one ALME request with its reply payload. Both sides
// are opaque byte blobs: the concrete ALME wire format is a local
// management-interface detail outside the CMDU/TLV codec in pkg/wire.
type AlmeHandler interface {
	Handle(request []byte) []byte
}

// Agent owns every piece of per-process state the event loop touches. It
// is single-threaded: nothing outside Run's goroutine may call its methods
// or read its Net/Dedup state while Run is active.
type Agent struct {
	IO          platform.IO
	Net         *topology.Network
	Reassembler *reassembly.Reassembler
	Dedup       *dedup.Filter
	Dispatcher  *dispatch.Dispatcher
	Stats       *stats.Counters
	Alme        AlmeHandler // nil is valid: ALME requests get an empty reply

	// AfterEvent, if set, is called synchronously from within this loop's
	// own goroutine after every event is handled, so it may safely read
	// Net without any locking of its own. The management HTTP surface uses
	// this to keep a servable snapshot without ever touching Net from a
	// different goroutine.
	AfterEvent func(net *topology.Network)

	LocalAlMac wire.MacAddress

	rng *rand.Rand
}

// New wires an Agent from its components. Callers are expected to have
// already called Net.SetLocal(localAlMac, ...) so the local AlDevice
// exists before the loop starts building responses against it.
func New(io platform.IO, net *topology.Network, reasm *reassembly.Reassembler, dd *dedup.Filter, disp *dispatch.Dispatcher, st *stats.Counters, localAlMac wire.MacAddress) *Agent {
	return &Agent{
		IO:          io,
		Net:         net,
		Reassembler: reasm,
		Dedup:       dd,
		Dispatcher:  disp,
		Stats:       st,
		LocalAlMac:  localAlMac,
		rng:         rand.New(rand.NewSource(int64(localAlMac[5]) + 1)),
	}
}

// Run arms the recurring timers and then blocks, draining platform.Events
// until PollEvent returns an error (the queue has been closed, signalling
// shutdown per spec §4.7's cancellation note).
func (a *Agent) Run() error {
	a.IO.RegisterEventSource(platform.TimerDiscovery, a.jitteredDiscoveryInterval())
	a.IO.RegisterEventSource(platform.TimerGarbageCollector, GcInterval)

	for {
		ev, err := a.IO.PollEvent()
		if err != nil {
			logging.Infof("agent: event queue closed, stopping: %v", err)
			return nil
		}
		a.handle(ev)
	}
}

func (a *Agent) jitteredDiscoveryInterval() time.Duration {
	jitter := time.Duration(a.rng.Int63n(int64(2*DiscoveryJitter))) - DiscoveryJitter
	return DiscoveryInterval + jitter
}

func (a *Agent) handle(ev platform.Event) {
	switch ev.Kind {
	case platform.EventNewPacket:
		a.handleNewPacket(ev)
	case platform.EventTimerDiscovery:
		a.handleDiscoveryTimer()
	case platform.EventTimerGarbageCollector:
		a.handleGcTimer()
	case platform.EventPushButton:
		a.handlePushButton()
	case platform.EventAuthenticatedLink:
		a.handleAuthenticatedLink(ev)
	case platform.EventTopologyChange:
		a.handleTopologyChange()
	case platform.EventAlme:
		a.handleAlme(ev)
	default:
		logging.Warningf("agent: unknown event kind %d dropped", ev.Kind)
	}
	if a.AfterEvent != nil {
		a.AfterEvent(a.Net)
	}
}

func (a *Agent) handleNewPacket(ev platform.Event) {
	switch ev.EthType {
	case wire.EtherTypeLLDP:
		a.handleLldp(ev)
	case wire.EtherType1905:
		a.handle1905(ev)
	default:
		logging.Debugf("agent: dropping packet on %s with unexpected ether-type 0x%04x", ev.InterfaceMac, ev.EthType)
	}
}

func (a *Agent) handleLldp(ev platform.Event) {
	p, err := wire.ParseLldpPayload(ev.Bytes)
	if err != nil {
		logging.Debugf("agent: malformed lldp payload from %s: %v", ev.SrcMac, err)
		return
	}
	a.Net.AddNeighbor(ev.InterfaceMac, p.PortId)
}

func (a *Agent) handle1905(ev platform.Event) {
	a.Stats.IncFragmentSeen()
	cmdu, err := a.Reassembler.Accept(ev.SrcMac, ev.InterfaceMac, ev.Bytes)
	if err != nil {
		var anomaly *reassembly.Anomaly
		if asAnomaly(err, &anomaly) {
			a.Stats.IncReassemblyAnomaly()
			logging.Debugf("agent: reassembly anomaly for %+v: %s", anomaly.Key, anomaly.Reason)
			return
		}
		logging.Warningf("agent: dropping unparseable cmdu from %s: %v", ev.SrcMac, err)
		return
	}
	if cmdu == nil {
		return // fragment accepted, message not complete yet
	}
	a.Stats.IncReassemblyDone()
	a.Stats.IncCmduReceived(cmdu.Type)

	if a.Dedup.Seen(cmdu, ev.SrcMac) {
		a.Stats.IncDuplicateDropped()
		return
	}

	now := time.Now()
	outcome := a.Dispatcher.Handle(cmdu, ev.InterfaceMac, ev.SrcMac, now)
	a.sendResponses(outcome.Responses)

	switch outcome.Result {
	case dispatch.OkTriggerApSearch:
		a.sendApAutoconfigSearch()
	case dispatch.OkStartPushButton:
		a.handlePushButton()
	}

	if outcome.ApConfig != nil {
		a.applyApConfig(outcome.ApConfig)
	}
	if !outcome.NewNeighborOnIface.IsZero() {
		a.notifyNewNeighbor(outcome.NewNeighborOnIface)
	}

	if cmdu.Relay {
		if local, ok := a.Net.FindDevice(a.LocalAlMac); ok {
			frames := forward.Relay(local, cmdu, wire.Multicast1905, ev.InterfaceMac)
			a.Stats.AddForwardedFrames(len(frames))
			for _, f := range frames {
				a.sendCmdu(f.LocalIfaceMac, f.DstMac, f.Cmdu)
			}
		}
	}
}

// asAnomaly is a small indirection so handle1905 can type-assert without
// importing errors.As for a single-level check.
func asAnomaly(err error, target **reassembly.Anomaly) bool {
	a, ok := err.(*reassembly.Anomaly)
	if !ok {
		return false
	}
	*target = a
	return true
}

func (a *Agent) sendResponses(responses []dispatch.Outgoing) {
	for _, r := range responses {
		a.sendCmdu(r.LocalIfaceMac, r.DstMac, r.Cmdu)
	}
}

func (a *Agent) sendCmdu(localIfaceMac, dstMac wire.MacAddress, cmdu *wire.Cmdu) {
	iface, ok := a.Net.FindInterfaceAnywhere(localIfaceMac)
	if !ok {
		logging.Warningf("agent: cannot send on unknown local interface %s", localIfaceMac)
		return
	}
	ifName := iface.Name
	if ifName == "" {
		logging.Warningf("agent: local interface %s has no platform name, cannot send", localIfaceMac)
		return
	}
	fragments, err := wire.ForgeCmdu(cmdu, wire.MaxSegmentSize)
	if err != nil {
		logging.Warningf("agent: failed to forge cmdu %s: %v", cmdu.Type, err)
		return
	}
	if dstMac.IsZero() {
		dstMac = wire.Multicast1905
	}
	for _, fragment := range fragments {
		if err := a.IO.SendRaw(ifName, dstMac, localIfaceMac, wire.EtherType1905, fragment); err != nil {
			logging.Warningf("agent: send on %s failed: %v", ifName, err)
			return
		}
	}
	a.Stats.IncCmduSent(cmdu.Type)
}

func (a *Agent) sendApAutoconfigSearch() {
	cmdu := &wire.Cmdu{
		Type:      wire.CmduApAutoconfigSearch,
		MessageId: a.Dispatcher.Ids.Next(),
		Tlvs: []wire.Tlv{
			&wire.AlMacAddressTlv{Mac: a.LocalAlMac},
			&wire.SearchedRoleTlv{Role: wire.RoleRegistrar},
		},
	}
	local, ok := a.Net.FindDevice(a.LocalAlMac)
	if !ok {
		return
	}
	for _, iface := range local.Interfaces {
		if !authenticatedAndUp(iface) {
			continue
		}
		a.sendCmdu(iface.Mac, wire.Multicast1905, cmdu)
	}
}

func (a *Agent) handleDiscoveryTimer() {
	local, ok := a.Net.FindDevice(a.LocalAlMac)
	if !ok {
		return
	}
	mid := a.Dispatcher.Ids.Next()
	for _, iface := range local.Interfaces {
		if !authenticatedAndUp(iface) {
			continue
		}
		discovery := &wire.Cmdu{
			Type:      wire.CmduTopologyDiscovery,
			MessageId: mid,
			Tlvs:      []wire.Tlv{&wire.AlMacAddressTlv{Mac: a.LocalAlMac}, &wire.MacAddressTlv{Mac: iface.Mac}},
		}
		a.sendCmdu(iface.Mac, wire.Multicast1905, discovery)
		lldp := wire.BuildBridgeDiscoveryPayload(a.LocalAlMac, iface.Mac)
		if err := a.IO.SendRaw(iface.Name, wire.MulticastLLDP, iface.Mac, wire.EtherTypeLLDP, lldp); err != nil {
			logging.Warningf("agent: lldp send on %s failed: %v", iface.Name, err)
		}
	}
	a.IO.RegisterEventSource(platform.TimerDiscovery, a.jitteredDiscoveryInterval())
}

func (a *Agent) handleGcTimer() {
	before := len(a.Net.Devices())
	changed := a.Net.RunGarbageCollector(time.Now(), topology.GcThreshold)
	removed := before - len(a.Net.Devices())
	if removed < 0 {
		removed = 0
	}
	a.Stats.IncGcSweep(removed)
	if changed {
		a.handleTopologyChange()
	}
	a.IO.RegisterEventSource(platform.TimerGarbageCollector, GcInterval)
}

// applyApConfig programs the local AP interface an AP-autoconfig-WSC M2
// just configured, per spec §4.5.
func (a *Agent) applyApConfig(cfg *dispatch.ApConfigRequest) {
	iface, ok := a.Net.FindInterfaceAnywhere(cfg.LocalIfaceMac)
	if !ok || iface.Name == "" {
		logging.Warningf("agent: cannot configure ap on unknown local interface %s", cfg.LocalIfaceMac)
		return
	}
	creds := cfg.Credentials
	bssid := wire.MacAddress(creds.Bssid)
	if err := a.IO.ConfigureAP(iface.Name, creds.Ssid, bssid, creds.AuthenticationType, creds.EncryptionType, creds.Key); err != nil {
		logging.Warningf("agent: configuring ap on %s failed: %v", iface.Name, err)
	}
}

// notifyNewNeighbor broadcasts a topology-notification on every
// authenticated interface other than exceptIfaceMac, the interface a new
// neighbor edge just appeared on (spec §9).
func (a *Agent) notifyNewNeighbor(exceptIfaceMac wire.MacAddress) {
	local, ok := a.Net.FindDevice(a.LocalAlMac)
	if !ok {
		return
	}
	mid := a.Dispatcher.Ids.Next()
	notification := &wire.Cmdu{
		Type:      wire.CmduTopologyNotification,
		MessageId: mid,
		Tlvs:      []wire.Tlv{&wire.AlMacAddressTlv{Mac: a.LocalAlMac}},
	}
	for _, iface := range local.Interfaces {
		if iface.Mac == exceptIfaceMac || !authenticatedAndUp(iface) {
			continue
		}
		a.sendCmdu(iface.Mac, wire.Multicast1905, notification)
	}
}

func (a *Agent) handleTopologyChange() {
	local, ok := a.Net.FindDevice(a.LocalAlMac)
	if !ok {
		return
	}
	mid := a.Dispatcher.Ids.Next()
	notification := &wire.Cmdu{
		Type:      wire.CmduTopologyNotification,
		MessageId: mid,
		Tlvs:      []wire.Tlv{&wire.AlMacAddressTlv{Mac: a.LocalAlMac}},
	}
	for _, iface := range local.Interfaces {
		if !authenticatedAndUp(iface) {
			continue
		}
		a.sendCmdu(iface.Mac, wire.Multicast1905, notification)
	}
}

func (a *Agent) handlePushButton() {
	local, ok := a.Net.FindDevice(a.LocalAlMac)
	if !ok {
		return
	}
	allIdle := true
	anyUnsupported := false
	for _, iface := range local.Interfaces {
		if iface.PushButtonGoing {
			allIdle = false
		}
	}
	if allIdle {
		for _, iface := range local.Interfaces {
			if iface.Name == "" {
				anyUnsupported = true
				continue
			}
			if err := a.IO.StartPushButton(iface.Name); err != nil {
				anyUnsupported = true
			}
		}
		mid := a.Dispatcher.Ids.Next()
		notification := &wire.Cmdu{
			Type:      wire.CmduPushButtonEventNotification,
			MessageId: mid,
			Tlvs:      []wire.Tlv{&wire.AlMacAddressTlv{Mac: a.LocalAlMac}},
		}
		for _, iface := range local.Interfaces {
			if !authenticatedAndUp(iface) {
				continue
			}
			a.sendCmdu(iface.Mac, wire.Multicast1905, notification)
		}
	}
	if anyUnsupported {
		a.sendApAutoconfigSearch()
	}
}

func (a *Agent) handleAuthenticatedLink(ev platform.Event) {
	if !ev.NewPeerMac.IsZero() {
		local, ok := a.Net.FindDevice(a.LocalAlMac)
		if ok {
			mid := a.Dispatcher.Ids.Next()
			join := &wire.Cmdu{
				Type:      wire.CmduPushButtonJoinNotification,
				MessageId: mid,
				Tlvs: []wire.Tlv{
					&wire.AlMacAddressTlv{Mac: a.LocalAlMac},
					&wire.MacAddressTlv{Mac: ev.NewPeerMac},
				},
			}
			for _, iface := range local.Interfaces {
				if iface.Mac == ev.LocalMac || !authenticatedAndUp(iface) {
					continue
				}
				a.sendCmdu(iface.Mac, wire.Multicast1905, join)
			}
		}
	}
	a.sendApAutoconfigSearch()
}

func (a *Agent) handleAlme(ev platform.Event) {
	var reply []byte
	if a.Alme != nil {
		reply = a.Alme.Handle(ev.Request)
	}
	if err := a.IO.SendAlmeReply(ev.ClientId, reply); err != nil {
		logging.Warningf("agent: alme reply to %s failed: %v", ev.ClientId, err)
	}
}

func authenticatedAndUp(iface *topology.Interface) bool {
	return iface.IsSecured && (iface.PowerState == wire.PowerStateOn || iface.PowerState == wire.PowerStateSave) && iface.Name != ""
}
