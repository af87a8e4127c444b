// Package jobs persists the submitted-job ledger: the ordered list of
// {job key, computation id, parameters} records written by submit and
// read by watch and fetch.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Record is one submitted computation. Records are never mutated after
// being written; re-submitting the same parameters replaces the record.
type Record struct {
	Key           string            `json:"key"`
	ComputationID string            `json:"computation_id"`
	Parameters    map[string]string `json:"parameters"`
	SubmittedAt   time.Time         `json:"submitted_at"`
}

// File is the on-disk ledger. Jobs is ordered and append-only across
// submission runs.
type File struct {
	BatchID   string    `json:"batch_id"`
	UpdatedAt time.Time `json:"updated_at"`
	Jobs      []Record  `json:"jobs"`
}

// Load reads the ledger from path. A missing or unreadable file is an
// error; use LoadOrInit when a fresh ledger is acceptable.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse jobs file %s: %w", path, err)
	}
	return &f, nil
}

// LoadOrInit reads the ledger from path, or starts a new one when the
// file does not exist yet. An existing but corrupt file is still an error.
func LoadOrInit(path string) (*File, error) {
	f, err := Load(path)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return &File{BatchID: uuid.NewString()}, nil
	}
	return nil, err
}

// Append adds records to the ledger, dropping any older record with an
// identical parameter set. The newest submission for a given parameter
// combination wins; all other records keep their order.
func (f *File) Append(recs ...Record) {
	for _, rec := range recs {
		kept := f.Jobs[:0]
		for _, existing := range f.Jobs {
			if !sameParams(existing.Parameters, rec.Parameters) {
				kept = append(kept, existing)
			}
		}
		f.Jobs = append(kept, rec)
	}
}

// Save writes the ledger to path.
func (f *File) Save(path string) error {
	f.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal jobs file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write jobs file %s: %w", path, err)
	}
	return nil
}

func sameParams(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
