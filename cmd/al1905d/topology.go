package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krisarmstrong/al1905d/pkg/store"
	"github.com/krisarmstrong/al1905d/pkg/tui"
	"github.com/krisarmstrong/al1905d/pkg/wire"
)

var topologyOpts struct {
	storagePath string
	alMac       string
	interactive bool
}

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Show the last persisted topology snapshot",
	Long: `Reads the topology snapshot al1905d last persisted for --al-mac from
its storage database and prints it as JSON, or browses it interactively
with --interactive.`,
	RunE: runTopology,
}

func init() {
	rootCmd.AddCommand(topologyCmd)

	flags := topologyCmd.Flags()
	flags.StringVar(&topologyOpts.storagePath, "storage-path", "al1905d.db", "path to the run-history/topology-snapshot database")
	flags.StringVar(&topologyOpts.alMac, "al-mac", "", "AL-MAC address whose snapshot to show (required)")
	flags.BoolVar(&topologyOpts.interactive, "interactive", false, "browse the snapshot with the interactive terminal viewer")
}

func runTopology(cmd *cobra.Command, args []string) error {
	if topologyOpts.alMac == "" {
		return withExitCode(exitInvalidArguments, fmt.Errorf("--al-mac is required"))
	}
	alMac, err := wire.ParseMacString(topologyOpts.alMac)
	if err != nil {
		return withExitCode(exitInvalidArguments, err)
	}

	db, err := store.Open(topologyOpts.storagePath)
	if err != nil {
		return withExitCode(exitOsFailure, fmt.Errorf("opening storage: %w", err))
	}
	defer db.Close()

	snap, found, err := db.GetTopologySnapshot(alMac.String())
	if err != nil {
		return withExitCode(exitOsFailure, err)
	}
	if !found {
		return fmt.Errorf("no persisted snapshot for %s", alMac)
	}

	if topologyOpts.interactive {
		return tui.Run(snap)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
