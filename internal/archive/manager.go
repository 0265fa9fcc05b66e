// Package archive converts a finished job's working directory into one
// durable, dated JSON record and removes the transient assets. The ordering
// invariant is absolute: the archive record is written and verified on disk
// before anything is deleted.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mixramp/publisher/internal/client"
	"github.com/mixramp/publisher/internal/model"
)

// ErrNotArchived is returned by Lookup when no archive record exists for
// the job.
var ErrNotArchived = errors.New("job not archived")

// Input carries everything the manager folds into the archive record.
type Input struct {
	JobID     string
	WorkDir   string
	Metadata  model.Metadata
	Record    *model.StatusRecord
	Tracklist []model.Song
}

// Manager writes archive records under archiveDir/{year}/ and optionally
// mirrors them to object storage.
type Manager struct {
	archiveDir string
	mirror     client.ObjectStorage
	log        *slog.Logger
}

// NewManager creates an archive manager. mirror may be nil.
func NewManager(archiveDir string, mirror client.ObjectStorage, log *slog.Logger) *Manager {
	return &Manager{
		archiveDir: archiveDir,
		mirror:     mirror,
		log:        log.With("component", "archive"),
	}
}

// Archive writes the record, then deletes the job's audio, artwork and
// working directory. If the write fails nothing is deleted and the job
// remains recoverable for a later archival attempt.
func (m *Manager) Archive(ctx context.Context, in *Input) (string, error) {
	year, fileName := m.deriveName(in.Metadata)

	yearDir := filepath.Join(m.archiveDir, year)
	if err := os.MkdirAll(yearDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	record := m.buildRecord(in)
	recordPath := filepath.Join(yearDir, fileName)

	if err := m.writeRecord(recordPath, record); err != nil {
		return "", err
	}

	// Verify the record actually landed before any deletion.
	if _, err := os.Stat(recordPath); err != nil {
		return "", fmt.Errorf("archive record missing after write: %w", err)
	}

	m.mirrorRecord(ctx, year, fileName, record)

	m.deleteTransients(in)

	m.log.Info("job archived",
		"job_id", in.JobID,
		"record", recordPath,
	)
	return recordPath, nil
}

// buildRecord folds the status record, metadata and tracklist into the
// archive document.
func (m *Manager) buildRecord(in *Input) *model.ArchiveRecord {
	summary := model.ArchiveSummary{
		JobID:       in.JobID,
		SongCount:   len(in.Tracklist),
		SubmittedAt: in.Metadata.SubmittedAt,
		ArchivedAt:  time.Now(),
	}

	var uploads map[model.Destination]*model.DestinationResult
	if in.Record != nil {
		summary.Status = in.Record.Status
		summary.Message = in.Record.Message
		uploads = in.Record.Destinations
		summary.DestinationCount = len(uploads)
		for _, result := range uploads {
			if result != nil && result.Success {
				summary.SucceededCount++
			}
		}
	}

	return &model.ArchiveRecord{
		Summary:   summary,
		Metadata:  in.Metadata,
		Uploads:   uploads,
		Tracklist: in.Tracklist,
	}
}

func (m *Manager) writeRecord(path string, record *model.ArchiveRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".archive-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp archive file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write archive record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to place archive record: %w", err)
	}
	return nil
}

// mirrorRecord uploads the record to object storage. Best effort: a mirror
// failure never fails archival.
func (m *Manager) mirrorRecord(ctx context.Context, year, fileName string, record *model.ArchiveRecord) {
	if m.mirror == nil {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		return
	}

	key := fmt.Sprintf("archive/%s/%s", year, fileName)
	url, err := m.mirror.Upload(ctx, key, strings.NewReader(string(data)), "application/json")
	if err != nil {
		m.log.Warn("archive mirror upload failed",
			"job_id", record.Summary.JobID,
			"error", err,
		)
		return
	}
	record.Summary.MirrorURL = url
}

// deleteTransients removes the large binary assets and then the working
// directory. Only reached after the archive record is verified on disk.
func (m *Manager) deleteTransients(in *Input) {
	for _, name := range []string{in.Metadata.AudioFile, in.Metadata.ArtworkFile} {
		if name == "" {
			continue
		}
		if err := os.Remove(filepath.Join(in.WorkDir, name)); err != nil && !os.IsNotExist(err) {
			m.log.Warn("failed to remove asset",
				"job_id", in.JobID,
				"asset", name,
				"error", err,
			)
		}
	}

	if err := os.RemoveAll(in.WorkDir); err != nil {
		m.log.Warn("failed to remove working directory",
			"job_id", in.JobID,
			"error", err,
		)
	}
}

// Lookup scans the archive tree for the record belonging to jobID. Used by
// the archive-status endpoint after the working directory is gone.
func (m *Manager) Lookup(jobID string) (*model.ArchiveRecord, error) {
	var found *model.ArchiveRecord

	err := filepath.WalkDir(m.archiveDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if found != nil {
			return filepath.SkipAll
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var record model.ArchiveRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil
		}
		if record.Summary.JobID == jobID {
			found = &record
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive: %w", err)
	}
	if found == nil {
		return nil, ErrNotArchived
	}
	return found, nil
}

// deriveName produces the dated file name. Incomplete metadata falls back
// to the current date and placeholder owner/title; derivation never fails.
func (m *Manager) deriveName(meta model.Metadata) (year, fileName string) {
	date := meta.BroadcastDate
	if _, err := time.Parse("2006-01-02", date); err != nil {
		date = time.Now().Format("2006-01-02")
	}
	year = date[:4]

	owner := sanitizeName(meta.Owner)
	if owner == "" {
		owner = "Unknown"
	}
	title := sanitizeName(meta.Title)
	if title == "" {
		title = "Untitled"
	}

	fileName = fmt.Sprintf("%s_%s_%s.json", date, owner, title)
	return year, fileName
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeName makes a metadata field safe for a file name: each run of
// unsafe characters collapses to a single hyphen.
func sanitizeName(s string) string {
	s = unsafeNameChars.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-.")
}
