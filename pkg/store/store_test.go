package store

import (
	"path/filepath"
	"testing"
	"time"
)

func TestOpenDisabledReturnsErrDisabled(t *testing.T) {
	if _, err := Open("disabled"); err != ErrDisabled {
		t.Fatalf("Open(disabled) err = %v, want ErrDisabled", err)
	}
	if _, err := Open(""); err != ErrDisabled {
		t.Fatalf("Open(\"\") err = %v, want ErrDisabled", err)
	}
}

func TestAddRunAndListRunsOrdersNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "al1905d.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	first := RunRecord{StartedAt: time.Unix(100, 0), AlMac: "02:ee:ff:33:44:00"}
	second := RunRecord{StartedAt: time.Unix(200, 0), AlMac: "02:ee:ff:33:44:00"}
	if err := s.AddRun(first); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := s.AddRun(second); err != nil {
		t.Fatalf("AddRun: %v", err)
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if !runs[0].StartedAt.Equal(second.StartedAt) {
		t.Fatalf("runs[0] should be the most recently added run")
	}
}

func TestTopologySnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "al1905d.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	key := "02:ee:ff:33:44:00"
	if _, found, err := s.GetTopologySnapshot(key); err != nil || found {
		t.Fatalf("expected no snapshot yet, found=%v err=%v", found, err)
	}

	snap := Snapshot{
		TakenAt: time.Unix(1000, 0),
		Devices: []SnapshotDevice{{AlMac: key, Interfaces: []string{"02:ee:ff:33:44:10"}}},
	}
	if err := s.PutTopologySnapshot(key, snap); err != nil {
		t.Fatalf("PutTopologySnapshot: %v", err)
	}

	got, found, err := s.GetTopologySnapshot(key)
	if err != nil || !found {
		t.Fatalf("expected a snapshot, found=%v err=%v", found, err)
	}
	if len(got.Devices) != 1 || got.Devices[0].AlMac != key {
		t.Fatalf("round-tripped snapshot = %+v", got)
	}
}

func TestReopenPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "al1905d.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.AddRun(RunRecord{StartedAt: time.Unix(1, 0)}); err != nil {
		t.Fatalf("AddRun: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	runs, err := s2.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected persisted run to survive reopen, got %d", len(runs))
	}
}
