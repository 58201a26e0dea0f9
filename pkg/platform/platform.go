// Package platform defines the capability surface the event loop consumes
// to talk to the outside world (spec §6.2), and its two implementations:
// GopacketIO, a thin wrapper over pcap live capture grounded on the
// teacher's pkg/capture.Engine, and SimulatedIO, an in-memory loopback
// used by tests, grounded on the teacher's pkg/capture.PlaybackEngine
// concept of a detached packet source.
package platform

import (
	"time"

	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// InterfaceInfo describes one local network interface as the core needs
// to know it.
type InterfaceInfo struct {
	Name            string
	Mac             wire.MacAddress
	MediaType       uint16
	PowerState      wire.PowerState
	IsSecured       bool
	PushButtonGoing bool
}

// EventKind classifies one Event delivered by PollEvent.
type EventKind int

const (
	EventNewPacket EventKind = iota
	EventTimerDiscovery
	EventTimerGarbageCollector
	EventPushButton
	EventAuthenticatedLink
	EventTopologyChange
	EventAlme
)

// Event is the typed payload the event loop pulls off its queue (spec
// §4.7). Only the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// EventNewPacket
	InterfaceMac wire.MacAddress
	SrcMac       wire.MacAddress
	EthType      uint16
	Bytes        []byte

	// EventAuthenticatedLink
	LocalMac    wire.MacAddress
	NewPeerMac  wire.MacAddress
	OriginAlMac wire.MacAddress
	OriginMid   wire.MessageId

	// EventAlme
	ClientId string
	Request  []byte
}

// TimerKind identifies which of the two recurring timers is being
// (re)armed.
type TimerKind int

const (
	TimerDiscovery TimerKind = iota
	TimerGarbageCollector
)

// IO is the platform capability trait of spec §6.2. All calls are
// synchronous with respect to the event loop; PollEvent is the loop's
// only blocking suspension point besides SendRaw.
type IO interface {
	ListInterfaces() ([]string, error)
	InterfaceInfo(name string) (InterfaceInfo, error)
	SendRaw(iface string, dst, src wire.MacAddress, ethType uint16, payload []byte) error
	PollEvent() (Event, error)
	RegisterEventSource(kind TimerKind, interval time.Duration)
	StartPushButton(iface string) error
	SetPowerMode(iface string, mode wire.PowerState) error
	ConfigureAP(iface string, ssid string, bssid wire.MacAddress, auth, encr uint16, key []byte) error
	// SendAlmeReply delivers the ALME response for a prior EventAlme request
	// back to whichever management client submitted it, identified by
	// clientId.
	SendAlmeReply(clientId string, reply []byte) error
	ClockMonotonicNs() int64
}
