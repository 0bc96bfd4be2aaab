package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// EvaluationRecord summarizes one training run.
type EvaluationRecord struct {
	ModelVersion string    `json:"model_version"`
	ModelPath    string    `json:"model_path"`
	Timestamp    time.Time `json:"timestamp"`
	Samples      int       `json:"samples"`
	Classes      []string  `json:"classes"`
	Schema       []string  `json:"schema"`
	Accuracy     float64   `json:"accuracy"`
	MacroF1      float64   `json:"macro_f1"`
	Excluded     []string  `json:"excluded,omitempty"`
}

// Big-endian nanoseconds sort chronologically under bbolt's byte ordering.
func timeKey(ts time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(ts.UnixNano()))
	return key
}

// StoreEvaluation appends a record to the evaluation history.
func (s *Store) StoreEvaluation(record EvaluationRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(evaluationsBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal evaluation record: %w", err)
		}

		return b.Put(timeKey(record.Timestamp), data)
	})
}

// GetEvaluationsInRange returns evaluations recorded in [start, end],
// oldest first.
func (s *Store) GetEvaluationsInRange(start, end time.Time) ([]EvaluationRecord, error) {
	var records []EvaluationRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(evaluationsBucket)).Cursor()
		endNanos := uint64(end.UnixNano())

		for k, v := c.Seek(timeKey(start)); k != nil && binary.BigEndian.Uint64(k) <= endNanos; k, v = c.Next() {
			var r EvaluationRecord
			if err := json.Unmarshal(v, &r); err != nil {
				continue
			}
			records = append(records, r)
		}
		return nil
	})

	return records, err
}

// LatestEvaluation returns the most recent evaluation, or nil when the
// history is empty.
func (s *Store) LatestEvaluation() (*EvaluationRecord, error) {
	var record *EvaluationRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		_, v := tx.Bucket([]byte(evaluationsBucket)).Cursor().Last()
		if v == nil {
			return nil
		}
		var r EvaluationRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return fmt.Errorf("unmarshal evaluation record: %w", err)
		}
		record = &r
		return nil
	})

	return record, err
}
