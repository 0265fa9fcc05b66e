// Package status persists the lifecycle record of a job as a small durable
// file in the job's working directory. It is the only component allowed to
// mutate status.json; writes are atomic (temp file + rename) so polling
// readers never observe a torn record.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mixramp/publisher/internal/model"
)

// ErrNotFound is returned when a job has no status record, typically
// because the job never existed or has been archived.
var ErrNotFound = errors.New("status record not found")

const statusFileName = "status.json"

// Store reads and writes status records under the jobs working directory.
type Store struct {
	workDir string
	mu      sync.Mutex
}

// NewStore creates a store rooted at the jobs working directory.
func NewStore(workDir string) *Store {
	return &Store{workDir: workDir}
}

func (s *Store) path(jobID string) string {
	return filepath.Join(s.workDir, jobID, statusFileName)
}

// Create writes a fresh status record for a new job.
func (s *Store) Create(jobID string, status model.JobStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &model.StatusRecord{
		JobID:     jobID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
	return s.write(jobID, record)
}

// Set transitions the job to a new status, preserving any recorded
// destination results.
func (s *Store) Set(jobID string, status model.JobStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.read(jobID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		record = &model.StatusRecord{JobID: jobID}
	}

	record.Status = status
	record.Message = message
	record.Timestamp = time.Now()
	return s.write(jobID, record)
}

// SetResults records the terminal status together with the aggregated
// per-destination results and returns the record as written.
func (s *Store) SetResults(jobID string, status model.JobStatus, message string, destinations map[model.Destination]*model.DestinationResult) (*model.StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &model.StatusRecord{
		JobID:        jobID,
		Status:       status,
		Message:      message,
		Timestamp:    time.Now(),
		Destinations: destinations,
	}
	if err := s.write(jobID, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Get returns the job's current status record.
func (s *Store) Get(jobID string) (*model.StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(jobID)
}

func (s *Store) read(jobID string) (*model.StatusRecord, error) {
	data, err := os.ReadFile(s.path(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read status record: %w", err)
	}

	var record model.StatusRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse status record: %w", err)
	}
	return &record, nil
}

// write lands the record atomically: serialize to a temp file in the same
// directory, then rename over status.json.
func (s *Store) write(jobID string, record *model.StatusRecord) error {
	dir := filepath.Join(s.workDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, statusFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp status file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write status record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path(jobID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace status record: %w", err)
	}
	return nil
}
