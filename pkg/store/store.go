// Package store persists topology snapshots and discovery-run history to a
// local BoltDB file. Adapted from the teacher's pkg/storage.Storage: the
// same bbolt.Open/bucket-per-record-kind shape, the run-history bucket
// kept as-is and a second bucket added for topology snapshots keyed by
// the daemon's own AL-MAC, the record this daemon actually needs.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/krisarmstrong/al1905d/pkg/stats"
)

const (
	runBucket      = "runs"
	topologyBucket = "topology_snapshots"
)

// ErrDisabled is returned by Open when path requests persistence be
// switched off (the CLI's --storage-path disabled value).
var ErrDisabled = errors.New("storage disabled")

// Store wraps a BoltDB instance for persisting al1905d run history and
// topology snapshots.
type Store struct {
	db *bbolt.DB
}

// RunRecord captures one daemon execution summary.
type RunRecord struct {
	ID          uint64        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	AlMac       string        `json:"al_mac"`
	DeviceCount int           `json:"device_count"`
	Stats       stats.Snapshot `json:"stats"`
}

// Snapshot is one view of the topology database. The daemon persists one on
// shutdown; the snapshot the management surface serves is rebuilt after
// every event the agent loop handles.
type Snapshot struct {
	TakenAt time.Time         `json:"taken_at"`
	Devices []SnapshotDevice  `json:"devices"`
}

// SnapshotDevice is one AlDevice as persisted: just the fields a later
// `al1905d topology` invocation needs to print, not a live object graph.
type SnapshotDevice struct {
	AlMac          string   `json:"al_mac"`
	Interfaces     []string `json:"interfaces"`
	IsMultiApAgent bool     `json:"is_multi_ap_agent"`
	LastSeen       time.Time `json:"last_seen"`
}

// Open opens (or creates) the store database at path. Passing "disabled"
// or an empty path returns ErrDisabled, the CLI's signal to run without
// persistence.
func Open(path string) (*Store, error) {
	if strings.EqualFold(path, "disabled") || path == "" {
		return nil, ErrDisabled
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(topologyBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database. Safe to call on a nil *Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddRun stores a run record, assigning it the bucket's next sequence id.
func (s *Store) AddRun(record RunRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runBucket))
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		record.ID = id
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put(itob(id), data)
	})
}

// ListRuns returns the most recent run records, newest first, up to limit
// (default 20 when limit <= 0).
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialised")
	}
	if limit <= 0 {
		limit = 20
	}
	records := make([]RunRecord, 0, limit)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// PutTopologySnapshot persists the current topology under key, overwriting
// any snapshot previously stored under the same key (the daemon uses its
// own AL-MAC as the key, so each daemon instance keeps exactly one
// up-to-date snapshot).
func (s *Store) PutTopologySnapshot(key string, snap Snapshot) error {
	if s == nil || s.db == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(topologyBucket)).Put([]byte(key), data)
	})
}

// GetTopologySnapshot loads the most recently persisted snapshot for key.
func (s *Store) GetTopologySnapshot(key string) (Snapshot, bool, error) {
	if s == nil || s.db == nil {
		return Snapshot{}, false, errors.New("store not initialised")
	}
	var snap Snapshot
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(topologyBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &snap)
	})
	return snap, found, err
}

func itob(v uint64) []byte {
	var b [8]byte
	for i := uint(0); i < 8; i++ {
		b[7-i] = byte(v >> (i * 8))
	}
	return b[:]
}
