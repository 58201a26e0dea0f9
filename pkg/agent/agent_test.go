package agent

import (
	"testing"
	"time"

	"github.com/krisarmstrong/al1905d/pkg/dedup"
	"github.com/krisarmstrong/al1905d/pkg/dispatch"
	"github.com/krisarmstrong/al1905d/pkg/platform"
	"github.com/krisarmstrong/al1905d/pkg/reassembly"
	"github.com/krisarmstrong/al1905d/pkg/stats"
	"github.com/krisarmstrong/al1905d/pkg/topology"
	"github.com/krisarmstrong/al1905d/pkg/wire"
	"github.com/krisarmstrong/al1905d/pkg/wsc"
)

func mac(b byte) wire.MacAddress {
	return wire.MacAddress{0x00, 0x11, 0x22, 0x33, 0x44, b}
}

// node bundles one agent and its own simulated platform, with one
// interface already attached and named so the loop can send on it.
type node struct {
	agent *Agent
	io    *platform.SimulatedIO
	alMac wire.MacAddress
	ifMac wire.MacAddress
}

func newNode(ifName string, alMac, ifMac wire.MacAddress) *node {
	io := platform.NewSimulatedIO()
	io.AddInterface(platform.InterfaceInfo{Name: ifName, Mac: ifMac, IsSecured: true, PowerState: wire.PowerStateOn})

	net := topology.New()
	now := time.Now()
	local := net.SetLocal(alMac, now)
	iface := net.AttachInterfaceToDevice(local, ifMac)
	iface.Name = ifName
	iface.IsSecured = true
	iface.PowerState = wire.PowerStateOn

	disp := dispatch.New(net, alMac, &wsc.NullHandler{})
	a := New(io, net, reassembly.New(0), dedup.New(alMac, 0), disp, stats.New(alMac, "test"), alMac)
	return &node{agent: a, io: io, alMac: alMac, ifMac: ifMac}
}

func connect(a, b *node) {
	a.io.Connect(a.ifNameOf(), b.io, b.ifNameOf())
	b.io.Connect(b.ifNameOf(), a.io, a.ifNameOf())
}

func (n *node) ifNameOf() string {
	names, _ := n.io.ListInterfaces()
	return names[0]
}

// drain processes every event currently queued on n's platform, including
// ones generated as a side effect of processing earlier ones, up to a
// generous bound so a wiring bug can't hang the test.
func (n *node) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 100; i++ {
		select {
		case ev := <-n.io.EventsForTest():
			n.agent.handle(ev)
		default:
			return
		}
	}
	t.Fatalf("drain: too many events, possible infinite loop")
}

func TestTopologyDiscoveryRoundTripPopulatesBothSides(t *testing.T) {
	a := newNode("eth0", mac(0x01), mac(0x10))
	b := newNode("eth0", mac(0x02), mac(0x20))
	connect(a, b)

	a.agent.handleDiscoveryTimer()
	a.drain(t)
	b.drain(t)
	a.drain(t)
	b.drain(t)

	if _, ok := b.agent.Net.FindDevice(a.alMac); !ok {
		t.Fatalf("b never learned about a")
	}
	if _, ok := a.agent.Net.FindDevice(b.alMac); !ok {
		t.Fatalf("a never learned about b (query/response round trip failed)")
	}
}

func TestRetransmittedCmduIsDroppedAsDuplicate(t *testing.T) {
	a := newNode("eth0", mac(0x01), mac(0x10))
	b := newNode("eth0", mac(0x02), mac(0x20))
	connect(a, b)

	a.agent.handleDiscoveryTimer()
	if len(a.io.SentFrames()) == 0 {
		t.Fatalf("discovery timer sent nothing")
	}
	frame := a.io.SentFrames()[0]
	ev := platform.Event{Kind: platform.EventNewPacket, InterfaceMac: b.ifMac, SrcMac: frame.Src, EthType: frame.EthType, Bytes: frame.Payload}

	b.agent.handle(ev)
	if b.agent.Stats.Snapshot().DuplicatesDropped != 0 {
		t.Fatalf("first delivery must not be counted as a duplicate")
	}
	b.agent.handle(ev)
	if b.agent.Stats.Snapshot().DuplicatesDropped != 1 {
		t.Fatalf("retransmitting the same cmdu must be dropped as a duplicate")
	}
}

func TestGarbageCollectorRemovesStaleRemoteDevice(t *testing.T) {
	a := newNode("eth0", mac(0x01), mac(0x10))
	remote := mac(0x02)
	a.agent.Net.InsertDevice(remote, time.Now().Add(-2*topology.GcThreshold))

	a.agent.handleGcTimer()
	if _, ok := a.agent.Net.FindDevice(remote); ok {
		t.Fatalf("stale remote device should have been garbage collected")
	}
	if a.agent.Stats.Snapshot().DevicesRemoved == 0 {
		t.Fatalf("expected gc to record a removed device")
	}
}

func TestGarbageCollectorNeverRemovesLocalDevice(t *testing.T) {
	a := newNode("eth0", mac(0x01), mac(0x10))
	a.agent.handleGcTimer()
	if _, ok := a.agent.Net.FindDevice(a.alMac); !ok {
		t.Fatalf("local device must survive garbage collection")
	}
}

func TestPushButtonStartsProcedureAndNotifiesPeer(t *testing.T) {
	a := newNode("eth0", mac(0x01), mac(0x10))
	b := newNode("eth0", mac(0x02), mac(0x20))
	connect(a, b)
	// b must know a as a neighbor for the notification to route anywhere
	// meaningful; direct the push-button handler at a, which broadcasts on
	// every authenticated local interface regardless of known peers.
	a.agent.handlePushButton()

	frames := a.io.SentFrames()
	foundNotification := false
	for _, f := range frames {
		if f.EthType == wire.EtherType1905 {
			foundNotification = true
		}
	}
	if !foundNotification {
		t.Fatalf("expected push-button-event-notification to be sent")
	}
}

func TestAuthenticatedLinkTriggersApAutoconfigSearch(t *testing.T) {
	a := newNode("eth0", mac(0x01), mac(0x10))
	ev := platform.Event{Kind: platform.EventAuthenticatedLink, LocalMac: mac(0x10), NewPeerMac: mac(0x99)}
	a.agent.handleAuthenticatedLink(ev)

	found := false
	for _, f := range a.io.SentFrames() {
		if f.EthType == wire.EtherType1905 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ap-autoconfig-search to be sent after authenticated link")
	}
}

func TestAlmeRequestRoundTripsThroughHandler(t *testing.T) {
	a := newNode("eth0", mac(0x01), mac(0x10))
	a.agent.Alme = echoAlmeHandler{}
	a.agent.handleAlme(platform.Event{Kind: platform.EventAlme, ClientId: "client-1", Request: []byte("ping")})

	reply, ok := a.io.AlmeReply("client-1")
	if !ok {
		t.Fatalf("expected an alme reply recorded for client-1")
	}
	if string(reply) != "ping" {
		t.Fatalf("reply = %q, want echoed request", reply)
	}
}

type echoAlmeHandler struct{}

func (echoAlmeHandler) Handle(request []byte) []byte { return request }
