package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// FeatureRecord is one recording's cached feature vector.
type FeatureRecord struct {
	File        string             `json:"file"`
	ContentHash string             `json:"content_hash"`
	Fingerprint string             `json:"fingerprint"`
	Values      map[string]float64 `json:"values"`
	StoredAt    time.Time          `json:"stored_at"`
}

// ContentHash returns the hex SHA-256 of a recording's bytes.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// fingerprintPrefix keys all entries of one extractor configuration
// together. The fingerprint is hashed so arbitrary text is key-safe.
func fingerprintPrefix(fingerprint string) []byte {
	sum := sha256.Sum256([]byte(fingerprint))
	return []byte(hex.EncodeToString(sum[:8]) + "/")
}

func featureKey(fingerprint, file, contentHash string) []byte {
	return append(fingerprintPrefix(fingerprint), []byte(file+"/"+contentHash)...)
}

// StoreFeatures caches a feature record, replacing any entry for the same
// fingerprint, file and content.
func (s *Store) StoreFeatures(record FeatureRecord) error {
	if record.StoredAt.IsZero() {
		record.StoredAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(featuresBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal feature record: %w", err)
		}

		return b.Put(featureKey(record.Fingerprint, record.File, record.ContentHash), data)
	})
}

// GetFeatures looks up a cached record. The boolean reports a hit.
func (s *Store) GetFeatures(fingerprint, file, contentHash string) (*FeatureRecord, bool, error) {
	var record *FeatureRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(featuresBucket)).Get(featureKey(fingerprint, file, contentHash))
		if v == nil {
			return nil
		}
		var r FeatureRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return fmt.Errorf("unmarshal feature record %s: %w", file, err)
		}
		record = &r
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return record, record != nil, nil
}

// ListFeatures returns every record cached under fingerprint, ordered by
// file name.
func (s *Store) ListFeatures(fingerprint string) ([]FeatureRecord, error) {
	var records []FeatureRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(featuresBucket)).Cursor()
		prefix := fingerprintPrefix(fingerprint)

		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var r FeatureRecord
			if err := json.Unmarshal(v, &r); err != nil {
				continue // Skip malformed records
			}
			records = append(records, r)
		}
		return nil
	})

	return records, err
}

// CountFeatures returns how many records are cached under fingerprint.
func (s *Store) CountFeatures(fingerprint string) (int, error) {
	return s.countPrefix(featuresBucket, fingerprintPrefix(fingerprint))
}

// PruneFeatures deletes cached records that belong to any other extractor
// configuration and returns how many were removed.
func (s *Store) PruneFeatures(keepFingerprint string) (int, error) {
	var removed int
	keep := fingerprintPrefix(keepFingerprint)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(featuresBucket))
		var stale [][]byte
		if err := b.ForEach(func(k, _ []byte) error {
			if !bytes.HasPrefix(k, keep) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})

	return removed, err
}
