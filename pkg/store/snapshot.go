package store

import (
	"time"

	"github.com/krisarmstrong/al1905d/pkg/topology"
)

// SnapshotFromNetwork flattens the live topology database into a
// persistable Snapshot.
func SnapshotFromNetwork(net *topology.Network, now time.Time) Snapshot {
	snap := Snapshot{TakenAt: now}
	for _, dev := range net.Devices() {
		sd := SnapshotDevice{
			AlMac:          dev.AlMac.String(),
			IsMultiApAgent: dev.IsMultiApAgent,
			LastSeen:       dev.LastSeen,
		}
		for _, iface := range dev.Interfaces {
			sd.Interfaces = append(sd.Interfaces, iface.Mac.String())
		}
		snap.Devices = append(snap.Devices, sd)
	}
	return snap
}
