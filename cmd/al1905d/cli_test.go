package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// resetRootFlags clears every flag's Changed bit so resolveConfig's
// "flag wins if Changed" logic doesn't see state left over from whichever
// test ran before it.
func resetRootFlags(t *testing.T) {
	t.Helper()
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	runOpts = struct {
		alMac                   string
		registrarInterface      string
		mapWholeNetwork         bool
		verbosity               int
		configFile              string
		storagePath             string
		managementListenAddress string
	}{storagePath: "al1905d.db"}
}

func TestResolveConfigMissingAlMacFails(t *testing.T) {
	resetRootFlags(t)
	if err := rootCmd.Flags().Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	_, err := resolveConfig(rootCmd)
	if err == nil {
		t.Fatalf("expected an error when --al-mac is unset")
	}
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != exitInvalidArguments {
		t.Fatalf("err = %v, want an exitInvalidArguments exitError", err)
	}
}

func TestResolveConfigFlagOverridesYaml(t *testing.T) {
	resetRootFlags(t)
	path := filepath.Join(t.TempDir(), "al1905d.yaml")
	body := "al_mac_address: \"02:ee:ff:33:44:00\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	runOpts.configFile = path
	if err := rootCmd.Flags().Parse([]string{"--al-mac=02:ee:ff:33:44:01"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := resolveConfig(rootCmd)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.AlMacAddress != "02:ee:ff:33:44:01" {
		t.Fatalf("al_mac_address = %s, want the flag value to win over the yaml file", cfg.AlMacAddress)
	}
}

func TestResolveConfigFallsBackToYamlWhenFlagUnset(t *testing.T) {
	resetRootFlags(t)
	path := filepath.Join(t.TempDir(), "al1905d.yaml")
	body := "al_mac_address: \"02:ee:ff:33:44:00\"\nverbosity: 2\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	runOpts.configFile = path
	if err := rootCmd.Flags().Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := resolveConfig(rootCmd)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.AlMacAddress != "02:ee:ff:33:44:00" {
		t.Fatalf("al_mac_address = %s, want the yaml value", cfg.AlMacAddress)
	}
}

func TestVersionCommandPrintsBanner(t *testing.T) {
	buf := &bytes.Buffer{}
	versionCmd.SetOut(buf)
	versionCmd.Run(versionCmd, nil)
	if !strings.Contains(buf.String(), "al1905d") {
		t.Fatalf("banner = %q, missing program name", buf.String())
	}
}

func TestRunTopologyRequiresAlMac(t *testing.T) {
	topologyOpts.alMac = ""
	err := runTopology(topologyCmd, nil)
	if err == nil {
		t.Fatalf("expected an error when --al-mac is unset")
	}
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != exitInvalidArguments {
		t.Fatalf("err = %v, want an exitInvalidArguments exitError", err)
	}
}

func TestRunTopologyReportsMissingSnapshot(t *testing.T) {
	topologyOpts.alMac = "02:ee:ff:33:44:00"
	topologyOpts.storagePath = filepath.Join(t.TempDir(), "al1905d.db")
	topologyOpts.interactive = false

	err := runTopology(topologyCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "no persisted snapshot") {
		t.Fatalf("err = %v, want a no-persisted-snapshot error", err)
	}
}

func TestAlmeBridgeRoundTrip(t *testing.T) {
	var b *almeBridge
	b = newAlmeBridge(func(clientId string, request []byte) {
		go b.handleReply(clientId, append([]byte("reply:"), request...))
	})

	reply, err := b.SubmitAlme(context.Background(), []byte("ping"))
	if err != nil {
		t.Fatalf("SubmitAlme: %v", err)
	}
	if string(reply) != "reply:ping" {
		t.Fatalf("reply = %q, want %q", reply, "reply:ping")
	}
}

func TestAlmeBridgeHonorsContextCancellation(t *testing.T) {
	b := newAlmeBridge(func(string, []byte) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.SubmitAlme(ctx, []byte("ping"))
	if err == nil {
		t.Fatalf("expected a context cancellation error")
	}
}
