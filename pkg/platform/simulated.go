package platform

import (
	"fmt"
	"time"

	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// SimulatedLink connects two SimulatedIO instances' interfaces so that a
// SendRaw on one delivers a NewPacket event to the other, the loopback
// wiring the teacher's pkg/capture.PlaybackEngine uses to replay traffic
// without a real NIC.
type SimulatedLink struct {
	peer   *SimulatedIO
	peerIf string
}

// SimulatedIO is an in-memory PlatformIO used by agent/dispatch tests: no
// real sockets, deterministic clock, interfaces wired to peers explicitly
// via Connect.
type SimulatedIO struct {
	ifaces map[string]*InterfaceInfo
	links  map[string]SimulatedLink
	events chan Event
	clock  int64 // ns, advanced explicitly by tests via Advance
	sent   []SentFrame

	almeReplies map[string][]byte
}

// SentFrame records one frame handed to SendRaw, for test assertions.
type SentFrame struct {
	Iface   string
	Dst     wire.MacAddress
	Src     wire.MacAddress
	EthType uint16
	Payload []byte
}

// NewSimulatedIO creates an empty simulated platform.
func NewSimulatedIO() *SimulatedIO {
	return &SimulatedIO{
		ifaces:      make(map[string]*InterfaceInfo),
		links:       make(map[string]SimulatedLink),
		events:      make(chan Event, 256),
		almeReplies: make(map[string][]byte),
	}
}

// InjectAlme pushes an EventAlme request as if it arrived from clientId.
func (s *SimulatedIO) InjectAlme(clientId string, request []byte) {
	s.events <- Event{Kind: EventAlme, ClientId: clientId, Request: request}
}

// AlmeReply returns the reply most recently delivered to clientId via
// SendAlmeReply, for test assertions.
func (s *SimulatedIO) AlmeReply(clientId string) ([]byte, bool) {
	r, ok := s.almeReplies[clientId]
	return r, ok
}

// AddInterface registers a local interface with the given identity.
func (s *SimulatedIO) AddInterface(info InterfaceInfo) {
	cp := info
	s.ifaces[info.Name] = &cp
}

// Connect wires localIface on s to peerIface on peer: frames sent on
// localIface arrive on peer as NewPacket events tagged with peerIface's
// MAC.
func (s *SimulatedIO) Connect(localIface string, peer *SimulatedIO, peerIface string) {
	s.links[localIface] = SimulatedLink{peer: peer, peerIf: peerIface}
}

// Deliver injects a raw payload as if it arrived on iface from srcMac,
// bypassing any Connect wiring — used to script a peer's CMDU directly into
// the test subject.
func (s *SimulatedIO) Deliver(iface string, srcMac wire.MacAddress, ethType uint16, payload []byte) {
	ih, ok := s.ifaces[iface]
	if !ok {
		return
	}
	s.events <- Event{
		Kind:         EventNewPacket,
		InterfaceMac: ih.Mac,
		SrcMac:       srcMac,
		EthType:      ethType,
		Bytes:        append([]byte(nil), payload...),
	}
}

// Inject pushes an arbitrary event directly onto the queue.
func (s *SimulatedIO) Inject(ev Event) {
	s.events <- ev
}

// EventsForTest exposes the raw event queue so tests can drain it with a
// non-blocking select instead of calling the blocking PollEvent.
func (s *SimulatedIO) EventsForTest() chan Event {
	return s.events
}

// Advance moves the simulated monotonic clock forward by d.
func (s *SimulatedIO) Advance(d time.Duration) {
	s.clock += int64(d)
}

// SentFrames returns every frame handed to SendRaw so far.
func (s *SimulatedIO) SentFrames() []SentFrame {
	return s.sent
}

func (s *SimulatedIO) ListInterfaces() ([]string, error) {
	out := make([]string, 0, len(s.ifaces))
	for name := range s.ifaces {
		out = append(out, name)
	}
	return out, nil
}

func (s *SimulatedIO) InterfaceInfo(name string) (InterfaceInfo, error) {
	ih, ok := s.ifaces[name]
	if !ok {
		return InterfaceInfo{}, fmt.Errorf("unknown interface %s", name)
	}
	return *ih, nil
}

func (s *SimulatedIO) SendRaw(iface string, dst, src wire.MacAddress, ethType uint16, payload []byte) error {
	if _, ok := s.ifaces[iface]; !ok {
		return fmt.Errorf("unknown interface %s", iface)
	}
	s.sent = append(s.sent, SentFrame{Iface: iface, Dst: dst, Src: src, EthType: ethType, Payload: payload})
	if link, ok := s.links[iface]; ok {
		link.peer.Deliver(link.peerIf, src, ethType, payload)
	}
	return nil
}

func (s *SimulatedIO) PollEvent() (Event, error) {
	ev, ok := <-s.events
	if !ok {
		return Event{}, fmt.Errorf("event queue closed")
	}
	return ev, nil
}

// RegisterEventSource is a no-op for the simulated platform: tests drive
// timers explicitly via Inject rather than wall-clock tickers.
func (s *SimulatedIO) RegisterEventSource(kind TimerKind, interval time.Duration) {}

func (s *SimulatedIO) StartPushButton(iface string) error {
	ih, ok := s.ifaces[iface]
	if !ok {
		return fmt.Errorf("unknown interface %s", iface)
	}
	ih.PushButtonGoing = true
	return nil
}

func (s *SimulatedIO) SetPowerMode(iface string, mode wire.PowerState) error {
	ih, ok := s.ifaces[iface]
	if !ok {
		return fmt.Errorf("unknown interface %s", iface)
	}
	ih.PowerState = mode
	return nil
}

func (s *SimulatedIO) ConfigureAP(iface string, ssid string, bssid wire.MacAddress, auth, encr uint16, key []byte) error {
	if _, ok := s.ifaces[iface]; !ok {
		return fmt.Errorf("unknown interface %s", iface)
	}
	return nil
}

func (s *SimulatedIO) SendAlmeReply(clientId string, reply []byte) error {
	s.almeReplies[clientId] = append([]byte(nil), reply...)
	return nil
}

func (s *SimulatedIO) ClockMonotonicNs() int64 {
	return s.clock
}
