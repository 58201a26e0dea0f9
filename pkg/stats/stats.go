// Package stats collects runtime counters for the running agent: CMDU and
// fragment traffic, deduplication, garbage collection, and forwarding.
// Adapted from the teacher's pkg/stats/export.go Statistics type — a
// mutex-guarded counter struct with a lock-free Snapshot for export —
// generalized from per-protocol simulator counters to the AL daemon's own
// event classes.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/krisarmstrong/al1905d/pkg/wire"
)

// Counters holds every runtime statistic the management surface and CLI
// report. All fields are guarded by mu; use Snapshot for a lock-free copy.
type Counters struct {
	mu sync.RWMutex

	StartTime time.Time
	AlMac     wire.MacAddress
	Version   string

	CmdusReceived   map[wire.CmduType]int64
	CmdusSent       map[wire.CmduType]int64
	FragmentsSeen   int64
	ReassemblyDone  int64
	ReassemblyAnomalies int64
	DuplicatesDropped   int64
	ForwardedFrames     int64
	GcSweeps            int64
	DevicesRemoved      int64

	Uptime         time.Duration
	GoroutineCount int
	MemoryUsageMB  uint64
}

// Snapshot is a mutex-free copy of Counters suitable for JSON export or
// display in pkg/tui.
type Snapshot struct {
	StartTime time.Time       `json:"start_time"`
	AlMac     wire.MacAddress `json:"al_mac"`
	Version   string          `json:"version"`

	CmdusReceived       map[string]int64 `json:"cmdus_received"`
	CmdusSent           map[string]int64 `json:"cmdus_sent"`
	FragmentsSeen       int64            `json:"fragments_seen"`
	ReassemblyDone      int64            `json:"reassembly_done"`
	ReassemblyAnomalies int64            `json:"reassembly_anomalies"`
	DuplicatesDropped   int64            `json:"duplicates_dropped"`
	ForwardedFrames     int64            `json:"forwarded_frames"`
	GcSweeps            int64            `json:"gc_sweeps"`
	DevicesRemoved      int64            `json:"devices_removed"`

	Uptime         time.Duration `json:"uptime_seconds"`
	GoroutineCount int           `json:"goroutine_count"`
	MemoryUsageMB  uint64        `json:"memory_usage_mb"`
}

// New creates an empty counter set for alMac running the given build version.
func New(alMac wire.MacAddress, version string) *Counters {
	return &Counters{
		StartTime:     time.Now(),
		AlMac:         alMac,
		Version:       version,
		CmdusReceived: make(map[wire.CmduType]int64),
		CmdusSent:     make(map[wire.CmduType]int64),
	}
}

func (c *Counters) IncCmduReceived(t wire.CmduType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CmdusReceived[t]++
}

func (c *Counters) IncCmduSent(t wire.CmduType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CmdusSent[t]++
}

func (c *Counters) IncFragmentSeen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FragmentsSeen++
}

func (c *Counters) IncReassemblyDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReassemblyDone++
}

func (c *Counters) IncReassemblyAnomaly() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReassemblyAnomalies++
}

func (c *Counters) IncDuplicateDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DuplicatesDropped++
}

func (c *Counters) AddForwardedFrames(n int) {
	if n == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ForwardedFrames += int64(n)
}

func (c *Counters) IncGcSweep(devicesRemoved int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GcSweeps++
	c.DevicesRemoved += int64(devicesRemoved)
}

// Update refreshes the runtime-derived fields (uptime, goroutines, memory).
func (c *Counters) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Uptime = time.Since(c.StartTime)
	c.GoroutineCount = runtime.NumGoroutine()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.MemoryUsageMB = m.Alloc / 1024 / 1024
}

// Snapshot returns a lock-free copy safe to hold onto or marshal.
func (c *Counters) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rx := make(map[string]int64, len(c.CmdusReceived))
	for t, n := range c.CmdusReceived {
		rx[t.String()] = n
	}
	tx := make(map[string]int64, len(c.CmdusSent))
	for t, n := range c.CmdusSent {
		tx[t.String()] = n
	}
	return Snapshot{
		StartTime:           c.StartTime,
		AlMac:               c.AlMac,
		Version:             c.Version,
		CmdusReceived:       rx,
		CmdusSent:           tx,
		FragmentsSeen:       c.FragmentsSeen,
		ReassemblyDone:      c.ReassemblyDone,
		ReassemblyAnomalies: c.ReassemblyAnomalies,
		DuplicatesDropped:   c.DuplicatesDropped,
		ForwardedFrames:     c.ForwardedFrames,
		GcSweeps:            c.GcSweeps,
		DevicesRemoved:      c.DevicesRemoved,
		Uptime:              c.Uptime,
		GoroutineCount:      c.GoroutineCount,
		MemoryUsageMB:       c.MemoryUsageMB,
	}
}

// ExportJSON writes a snapshot to filename as indented JSON.
func (c *Counters) ExportJSON(filename string) error {
	snap := c.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write stats file: %w", err)
	}
	return nil
}
