package platform

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/krisarmstrong/al1905d/pkg/logging"
	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// ifaceHandle bundles one interface's live pcap handle with the metadata
// the core needs about it.
type ifaceHandle struct {
	name       string
	handle     *pcap.Handle
	mac        wire.MacAddress
	mediaType  uint16
	powerState wire.PowerState
	isSecured  bool
}

// GopacketIO is the production PlatformIO, grounded on the teacher's
// pkg/capture.Engine: one pcap.OpenLive handle per managed interface,
// promiscuous, reading into a shared event channel via one goroutine per
// interface. Per spec §5, those goroutines never touch shared state
// directly — they only push NewPacket events onto the queue the loop
// drains.
type GopacketIO struct {
	ifaces map[string]*ifaceHandle
	events chan Event
	start  time.Time

	almeReplyHandler func(clientId string, reply []byte)
}

// NewGopacketIO opens a live capture handle on every name in ifaceNames.
func NewGopacketIO(ifaceNames []string) (*GopacketIO, error) {
	io := &GopacketIO{
		ifaces: make(map[string]*ifaceHandle),
		events: make(chan Event, 64),
		start:  time.Now(),
	}
	for _, name := range ifaceNames {
		handle, err := pcap.OpenLive(name, 1600, true, pcap.BlockForever)
		if err != nil {
			return nil, fmt.Errorf("failed to open interface %s: %w", name, err)
		}
		mac, err := interfaceMac(name)
		if err != nil {
			handle.Close()
			return nil, err
		}
		ih := &ifaceHandle{name: name, handle: handle, mac: mac, isSecured: true, powerState: wire.PowerStateOn}
		io.ifaces[name] = ih
		go io.readLoop(ih)
	}
	return io, nil
}

func (io *GopacketIO) readLoop(ih *ifaceHandle) {
	src := gopacket.NewPacketSource(ih.handle, ih.handle.LinkType())
	for packet := range src.Packets() {
		eth, ok := packet.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
		if !ok {
			continue
		}
		if uint16(eth.EthernetType) != wire.EtherType1905 && uint16(eth.EthernetType) != wire.EtherTypeLLDP {
			continue
		}
		srcMac, err := wire.ParseMac(eth.SrcMAC)
		if err != nil {
			continue
		}
		io.events <- Event{
			Kind:         EventNewPacket,
			InterfaceMac: ih.mac,
			SrcMac:       srcMac,
			EthType:      uint16(eth.EthernetType),
			Bytes:        append([]byte(nil), eth.Payload...),
		}
	}
}

func interfaceMac(name string) (wire.MacAddress, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return wire.MacAddress{}, fmt.Errorf("error finding devices: %w", err)
	}
	for _, d := range devices {
		if d.Name != name {
			continue
		}
		for _, addr := range d.Addresses {
			if len(addr.Broadaddr) == 6 {
				return wire.ParseMac(addr.Broadaddr)
			}
		}
	}
	return wire.MacAddress{}, fmt.Errorf("no mac address found for interface %s", name)
}

func (io *GopacketIO) ListInterfaces() ([]string, error) {
	out := make([]string, 0, len(io.ifaces))
	for name := range io.ifaces {
		out = append(out, name)
	}
	return out, nil
}

func (io *GopacketIO) InterfaceInfo(name string) (InterfaceInfo, error) {
	ih, ok := io.ifaces[name]
	if !ok {
		return InterfaceInfo{}, fmt.Errorf("unknown interface %s", name)
	}
	return InterfaceInfo{
		Name:       ih.name,
		Mac:        ih.mac,
		MediaType:  ih.mediaType,
		PowerState: ih.powerState,
		IsSecured:  ih.isSecured,
	}, nil
}

func (io *GopacketIO) SendRaw(iface string, dst, src wire.MacAddress, ethType uint16, payload []byte) error {
	ih, ok := io.ifaces[iface]
	if !ok {
		return fmt.Errorf("unknown interface %s", iface)
	}
	eth := &layers.Ethernet{SrcMAC: src[:], DstMAC: dst[:], EthernetType: layers.EthernetType(ethType)}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("failed to serialize frame: %w", err)
	}
	if err := ih.handle.WritePacketData(buf.Bytes()); err != nil {
		logging.Warningf("send on %s failed: %v", iface, err)
		return err
	}
	return nil
}

func (io *GopacketIO) PollEvent() (Event, error) {
	ev, ok := <-io.events
	if !ok {
		return Event{}, fmt.Errorf("event queue closed")
	}
	return ev, nil
}

func (io *GopacketIO) RegisterEventSource(kind TimerKind, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for range t.C {
			switch kind {
			case TimerDiscovery:
				io.events <- Event{Kind: EventTimerDiscovery}
			case TimerGarbageCollector:
				io.events <- Event{Kind: EventTimerGarbageCollector}
			}
		}
	}()
}

func (io *GopacketIO) StartPushButton(iface string) error {
	ih, ok := io.ifaces[iface]
	if !ok {
		return fmt.Errorf("unknown interface %s", iface)
	}
	// No physical push-button procedure exists for a pcap-backed
	// interface; the start is only logged, and no push-button state is kept.
	logging.Infof("push-button started on %s", ih.name)
	return nil
}

func (io *GopacketIO) SetPowerMode(iface string, mode wire.PowerState) error {
	ih, ok := io.ifaces[iface]
	if !ok {
		return fmt.Errorf("unknown interface %s", iface)
	}
	ih.powerState = mode
	return nil
}

func (io *GopacketIO) ConfigureAP(iface string, ssid string, bssid wire.MacAddress, auth, encr uint16, key []byte) error {
	_, ok := io.ifaces[iface]
	if !ok {
		return fmt.Errorf("unknown interface %s", iface)
	}
	// Applying AP configuration to the underlying radio is platform/driver
	// specific (hostapd reload, UCI commit, …) and out of scope here; the
	// event loop only needs to know the call was accepted.
	logging.Infof("configured AP on %s: ssid=%q bssid=%s", iface, ssid, bssid)
	return nil
}

// InjectAlme queues a management request from the local ALME boundary (the
// mgmt HTTP surface, a local control socket) as an event the loop will
// dispatch like any other. clientId round-trips through SendAlmeReply so the
// caller can match the eventual reply back to this request.
func (io *GopacketIO) InjectAlme(clientId string, request []byte) {
	io.events <- Event{Kind: EventAlme, ClientId: clientId, Request: request}
}

// SetAlmeReplyHandler installs the function SendAlmeReply calls with every
// reply. Without one installed, replies are only logged — wiring a real
// transport (a UNIX control socket, an hostapd control interface) is
// platform specific; the mgmt HTTP surface installs a handler that resolves
// the pending request keyed by clientId.
func (io *GopacketIO) SetAlmeReplyHandler(fn func(clientId string, reply []byte)) {
	io.almeReplyHandler = fn
}

// SendAlmeReply delivers reply to whatever is waiting on clientId, falling
// back to a log line when nothing has installed a handler.
func (io *GopacketIO) SendAlmeReply(clientId string, reply []byte) error {
	if io.almeReplyHandler != nil {
		io.almeReplyHandler(clientId, reply)
		return nil
	}
	logging.Infof("alme reply for client %s: %d bytes", clientId, len(reply))
	return nil
}

func (io *GopacketIO) ClockMonotonicNs() int64 {
	return int64(time.Since(io.start))
}

// Close releases every open capture handle.
func (io *GopacketIO) Close() {
	for _, ih := range io.ifaces {
		ih.handle.Close()
	}
}

// ListCaptureInterfaces lists every pcap-visible interface on the host,
// grounded on the teacher's pkg/capture.ListInterfaces.
func ListCaptureInterfaces() ([]pcap.Interface, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("error finding devices: %w", err)
	}
	return devices, nil
}
