package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/krisarmstrong/al1905d/pkg/agent"
	"github.com/krisarmstrong/al1905d/pkg/config"
	"github.com/krisarmstrong/al1905d/pkg/dedup"
	"github.com/krisarmstrong/al1905d/pkg/dispatch"
	"github.com/krisarmstrong/al1905d/pkg/logging"
	"github.com/krisarmstrong/al1905d/pkg/mgmt"
	"github.com/krisarmstrong/al1905d/pkg/platform"
	"github.com/krisarmstrong/al1905d/pkg/reassembly"
	"github.com/krisarmstrong/al1905d/pkg/stats"
	"github.com/krisarmstrong/al1905d/pkg/store"
	"github.com/krisarmstrong/al1905d/pkg/topology"
	"github.com/krisarmstrong/al1905d/pkg/wire"
	"github.com/krisarmstrong/al1905d/pkg/wsc"
)

// resolveConfig merges --config's YAML (if given) with the command-line
// flags, flags winning wherever the user explicitly set one.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg config.Config
	if runOpts.configFile != "" {
		loaded, err := config.Load(runOpts.configFile)
		if err != nil {
			return nil, withExitCode(exitInvalidArguments, err)
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("al-mac") || cfg.AlMacAddress == "" {
		cfg.AlMacAddress = runOpts.alMac
	}
	if flags.Changed("registrar-interface") || cfg.RegistrarInterfaceName == "" {
		cfg.RegistrarInterfaceName = runOpts.registrarInterface
	}
	if flags.Changed("map-whole-network") {
		cfg.MapWholeNetwork = runOpts.mapWholeNetwork
	}
	if flags.Changed("verbosity") || cfg.Verbosity == 0 {
		cfg.Verbosity = runOpts.verbosity
	}
	if flags.Changed("storage-path") || cfg.StoragePath == "" {
		cfg.StoragePath = runOpts.storagePath
	}
	if flags.Changed("management-listen-address") || cfg.ManagementListenAddress == "" {
		cfg.ManagementListenAddress = runOpts.managementListenAddress
	}

	if err := cfg.Validate(); err != nil {
		return nil, withExitCode(exitInvalidArguments, err)
	}
	return &cfg, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logging.InitColors(true)

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logging.SetLevel(cfg.LogLevel())

	alMac, err := wire.ParseMacString(cfg.AlMacAddress)
	if err != nil {
		return withExitCode(exitInvalidArguments, err)
	}

	devices, err := platform.ListCaptureInterfaces()
	if err != nil {
		return withExitCode(exitOsFailure, fmt.Errorf("listing capture interfaces: %w", err))
	}
	if len(devices) == 0 {
		return withExitCode(exitNoInterfaces, fmt.Errorf("no capture-capable interfaces found"))
	}
	ifaceNames := make([]string, 0, len(devices))
	for _, d := range devices {
		ifaceNames = append(ifaceNames, d.Name)
	}

	io, err := platform.NewGopacketIO(ifaceNames)
	if err != nil {
		return withExitCode(exitInterfaceError, err)
	}
	defer io.Close()

	net := topology.New()
	local := net.SetLocal(alMac, time.Now())
	for _, name := range ifaceNames {
		info, err := io.InterfaceInfo(name)
		if err != nil {
			logging.Warningf("al1905d: skipping interface %s: %v", name, err)
			continue
		}
		iface := net.AttachInterfaceToDevice(local, info.Mac)
		iface.Name = info.Name
		iface.MediaType = info.MediaType
		iface.IsSecured = info.IsSecured
		iface.PowerState = info.PowerState
		if cfg.RegistrarInterfaceName == name {
			logging.Infof("al1905d: %s is the WSC registrar interface", name)
		}
	}

	reasm := reassembly.New(reassembly.DefaultCapacity)
	dd := dedup.New(alMac, dedup.DefaultCapacity)
	disp := dispatch.New(net, alMac, &wsc.NullHandler{})
	st := stats.New(alMac, version)

	db, err := store.Open(cfg.StoragePath)
	if err != nil && err != store.ErrDisabled {
		return withExitCode(exitOsFailure, fmt.Errorf("opening storage: %w", err))
	}
	if db != nil {
		defer db.Close()
	}

	var bridge *almeBridge
	if cfg.ManagementListenAddress != "" {
		bridge = newAlmeBridge(io.InjectAlme)
		io.SetAlmeReplyHandler(bridge.handleReply)
	}

	// bridge is typed *almeBridge; pass it through a plain interface
	// variable rather than the nil pointer directly; boxing a nil
	// *almeBridge straight into mgmt.New's interface parameter would make
	// s.Alme == nil false inside Server and crash on first use.
	var almeSubmitter mgmt.AlmeSubmitter
	if bridge != nil {
		almeSubmitter = bridge
	}
	mgmtServer := mgmt.New(st, db, almeSubmitter)
	mgmtServer.SetSnapshot(store.SnapshotFromNetwork(net, time.Now()))
	if err := mgmtServer.Start(cfg.ManagementListenAddress); err != nil {
		return withExitCode(exitOsFailure, fmt.Errorf("starting management surface: %w", err))
	}

	ag := agent.New(io, net, reasm, dd, disp, st, alMac)
	ag.AfterEvent = func(n *topology.Network) {
		mgmtServer.SetSnapshot(store.SnapshotFromNetwork(n, time.Now()))
	}
	if bridge != nil {
		ag.Alme = bridge
	}

	logging.Infof("al1905d: starting, al-mac=%s interfaces=%v", alMac, ifaceNames)
	started := time.Now()
	errCh := make(chan error, 1)
	go func() { errCh <- ag.Run() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return withExitCode(exitProtocolExtensionFailure, err)
		}
	case <-sigChan:
		logging.Infof("al1905d: received shutdown signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mgmtServer.Shutdown(ctx); err != nil {
		logging.Warningf("al1905d: management surface shutdown: %v", err)
	}

	if db != nil {
		record := store.RunRecord{
			StartedAt:   started,
			Duration:    time.Since(started),
			AlMac:       alMac.String(),
			DeviceCount: len(net.Devices()),
			Stats:       st.Snapshot(),
		}
		if err := db.AddRun(record); err != nil {
			logging.Warningf("al1905d: failed to record run history: %v", err)
		}
		snap := store.SnapshotFromNetwork(net, time.Now())
		if err := db.PutTopologySnapshot(alMac.String(), snap); err != nil {
			logging.Warningf("al1905d: failed to persist topology snapshot: %v", err)
		}
	}

	logging.Infof("al1905d: stopped")
	return nil
}

// almeBridge turns the asynchronous platform.Event/SendAlmeReply path into
// the synchronous request/response mgmt.AlmeSubmitter needs, by holding one
// reply channel per in-flight client id.
type almeBridge struct {
	inject func(clientId string, request []byte)

	mu      sync.Mutex
	pending map[string]chan []byte
	nextId  uint64
}

func newAlmeBridge(inject func(clientId string, request []byte)) *almeBridge {
	return &almeBridge{inject: inject, pending: make(map[string]chan []byte)}
}

func (b *almeBridge) SubmitAlme(ctx context.Context, request []byte) ([]byte, error) {
	b.mu.Lock()
	b.nextId++
	clientId := fmt.Sprintf("mgmt-%d", b.nextId)
	reply := make(chan []byte, 1)
	b.pending[clientId] = reply
	b.mu.Unlock()

	b.inject(clientId, request)

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, clientId)
		b.mu.Unlock()
		return nil, ctx.Err()
	}
}

// handleReply is installed as the platform.GopacketIO's ALME reply handler
// and resolves the SubmitAlme call waiting on clientId, if any.
func (b *almeBridge) handleReply(clientId string, reply []byte) {
	b.mu.Lock()
	ch, ok := b.pending[clientId]
	delete(b.pending, clientId)
	b.mu.Unlock()
	if ok {
		ch <- reply
	}
}

// Handle implements agent.AlmeHandler: the agent loop calls it for every
// ALME request the management surface injects, and the reply it returns is
// the request bytes unchanged. Agent.Alme is set to this same bridge, so no
// second adapter type is needed.
func (b *almeBridge) Handle(request []byte) []byte {
	return request
}
