// Package storage provides persistent data storage for the classification
// pipeline. It uses BoltDB to cache per-recording feature vectors between
// runs and to keep a history of leave-one-out evaluations.
//
// Cached vectors are keyed by extractor fingerprint, recording name and
// content hash, so a changed recording or a changed feature configuration
// is never served from a stale entry.
package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	featuresBucket    = "features"    // Bucket name for cached feature vectors
	evaluationsBucket = "evaluations" // Bucket name for evaluation history
)

// DBFile is the database file name created inside the data directory.
const DBFile = "imu-cache.db"

// Store provides persistent storage backed by BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database inside dataPath.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(featuresBucket)); err != nil {
			return fmt.Errorf("create features bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(evaluationsBucket)); err != nil {
			return fmt.Errorf("create evaluations bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is harmless.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// countPrefix counts keys in bucket starting with prefix.
func (s *Store) countPrefix(bucket string, prefix []byte) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}
