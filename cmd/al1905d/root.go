package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// Exit codes per spec §6.3.
const (
	exitOk = iota
	exitOsFailure
	exitInvalidArguments
	exitNoInterfaces
	exitInterfaceError
	exitProtocolExtensionFailure
)

// exitError carries the specific exit code a failure should produce,
// letting deep call sites (interface enumeration, config validation)
// report their own code without Execute having to re-classify a bare
// error by inspection.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

var runOpts struct {
	alMac                   string
	registrarInterface      string
	mapWholeNetwork         bool
	verbosity               int
	configFile              string
	storagePath             string
	managementListenAddress string
}

var rootCmd = &cobra.Command{
	Use:   "al1905d",
	Short: "IEEE 1905.1a Abstraction Layer daemon",
	Long: `al1905d is the local IEEE 1905.1a Abstraction Layer daemon.

It discovers neighboring 1905 devices over L2, maintains a topology
database from discovery and LLDP bridge-discovery traffic, relays CMDUs
between interfaces, and drives AP auto-configuration for unconfigured
access points.

Run with no subcommand to start the daemon; see 'al1905d interfaces' to
list capture-capable interfaces first.`,
	Version: version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("al1905d %s (commit: %s, built: %s)\n", version, commit, date))

	flags := rootCmd.Flags()
	flags.StringVar(&runOpts.alMac, "al-mac", "", "AL-MAC address identifying this device (required unless --config is set)")
	flags.StringVar(&runOpts.registrarInterface, "registrar-interface", "", "name of the local interface acting as WSC registrar")
	flags.BoolVar(&runOpts.mapWholeNetwork, "map-whole-network", false, "query every discovered neighbor's topology, not just directly attached ones")
	flags.IntVarP(&runOpts.verbosity, "verbosity", "v", 1, "log verbosity 0 (errors only) through 3 (debug)")
	flags.StringVar(&runOpts.configFile, "config", "", "YAML configuration file; flags override values it sets")
	flags.StringVar(&runOpts.storagePath, "storage-path", "al1905d.db", "path to the run-history/topology-snapshot database, 'disabled' to turn off")
	flags.StringVar(&runOpts.managementListenAddress, "management-listen-address", "", "address for the read-only management HTTP surface, empty disables it")
}

// Execute runs the root command and returns the process exit code spec §6.3
// defines, rather than calling os.Exit itself, so main stays a one-liner.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return exitOsFailure
	}
	return exitOk
}
