package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/krisarmstrong/al1905d/pkg/logging"
)

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "al1905d.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadMinimalConfig(t *testing.T) {
	path := writeTemp(t, "al_mac_address: \"02:ee:ff:33:44:00\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AlMacAddress != "02:ee:ff:33:44:00" {
		t.Fatalf("al_mac_address = %q", cfg.AlMacAddress)
	}
	if cfg.MapWholeNetwork {
		t.Fatalf("map_whole_network should default to false")
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeTemp(t, `
al_mac_address: "02:ee:ff:33:44:00"
registrar_interface_name: wlan0
map_whole_network: true
verbosity: 2
storage_path: /var/lib/al1905d/al1905d.db
management_listen_address: "127.0.0.1:8905"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RegistrarInterfaceName != "wlan0" {
		t.Fatalf("registrar_interface_name = %q", cfg.RegistrarInterfaceName)
	}
	if !cfg.MapWholeNetwork {
		t.Fatalf("map_whole_network should be true")
	}
	if cfg.LogLevel() != logging.LevelInfo {
		t.Fatalf("verbosity 2 should map to LevelInfo")
	}
	if cfg.StoragePath == "" || cfg.ManagementListenAddress == "" {
		t.Fatalf("ambient fields not populated: %+v", cfg)
	}
}

func TestValidateRejectsMissingAlMac(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for missing al_mac_address")
	}
}

func TestValidateRejectsMalformedAlMac(t *testing.T) {
	cfg := &Config{AlMacAddress: "not-a-mac"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for a malformed al_mac_address")
	}
}

func TestValidateRejectsOutOfRangeVerbosity(t *testing.T) {
	cfg := &Config{AlMacAddress: "02:ee:ff:33:44:00", Verbosity: 9}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for out-of-range verbosity")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
