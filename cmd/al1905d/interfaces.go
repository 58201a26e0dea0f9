package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krisarmstrong/al1905d/pkg/platform"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List capture-capable network interfaces",
	Long: `Lists every interface gopacket/pcap can see on this host, the
set al1905d will open a live capture handle on at startup.`,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	devices, err := platform.ListCaptureInterfaces()
	if err != nil {
		return withExitCode(exitOsFailure, err)
	}
	if len(devices) == 0 {
		return withExitCode(exitNoInterfaces, fmt.Errorf("no capture-capable interfaces found"))
	}
	for _, d := range devices {
		desc := d.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", d.Name, desc)
	}
	return nil
}
