package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/vhoang/agritrace/internal/core/domain"
)

var (
	bucketSnapshots = []byte("snapshots")
	bucketMeta      = []byte("meta")
	keyLatest       = []byte("latest")
)

// BoltSnapshotStore persists gob-encoded ledger state exports so the
// in-memory engine survives restarts. Snapshots are keyed by a sequence
// number; meta tracks the latest.
type BoltSnapshotStore struct {
	db *bbolt.DB
}

// OpenBoltSnapshotStore opens or creates the bbolt database at dbPath. The
// parent directory is created if it does not exist.
func OpenBoltSnapshotStore(dbPath string) (*BoltSnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("snapshot store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSnapshots, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot store: %w", err)
	}

	return &BoltSnapshotStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltSnapshotStore) Close() error { return s.db.Close() }

// Save appends a state export under the next sequence number and points
// latest at it.
func (s *BoltSnapshotStore) Save(state domain.State) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("snapshot store: encode state: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		sb := tx.Bucket(bucketSnapshots)
		seq, err := sb.NextSequence()
		if err != nil {
			return fmt.Errorf("snapshot store: next sequence: %w", err)
		}
		key := seqKey(seq)
		if err := sb.Put(key, buf.Bytes()); err != nil {
			return fmt.Errorf("snapshot store: put snapshot: %w", err)
		}
		if err := tx.Bucket(bucketMeta).Put(keyLatest, key); err != nil {
			return fmt.Errorf("snapshot store: point latest: %w", err)
		}
		return nil
	})
}

// Load returns the latest saved state, or ok=false when the store is empty.
func (s *BoltSnapshotStore) Load() (domain.State, bool, error) {
	var state domain.State
	var found bool

	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketMeta).Get(keyLatest)
		if key == nil {
			return nil
		}
		data := tx.Bucket(bucketSnapshots).Get(key)
		if data == nil {
			return fmt.Errorf("snapshot store: latest key dangling")
		}
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
			return fmt.Errorf("snapshot store: decode state: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return domain.State{}, false, err
	}
	return state, found, nil
}

// seqKey encodes a sequence number as an 8-byte big-endian key so snapshots
// sort chronologically.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
