package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/status"
)

// Asset is one submitted file: its content and original file name.
type Asset struct {
	Name   string
	Reader io.Reader
}

// IntakeService turns a submission into a populated job working directory:
// audio, optional artwork, tracklist, and the metadata record, plus the
// initial status record.
type IntakeService struct {
	workDir string
	store   *status.Store
}

// NewIntakeService creates a new intake service
func NewIntakeService(workDir string, store *status.Store) *IntakeService {
	return &IntakeService{
		workDir: workDir,
		store:   store,
	}
}

// CreateJob populates a fresh working directory and records status
// received. On any failure the partial directory is removed.
func (s *IntakeService) CreateJob(ctx context.Context, req *model.CreateJobRequest, submittedBy string, audio, tracklist Asset, artwork *Asset) (*model.CreateJobResponse, error) {
	jobID := uuid.New().String()
	dir := filepath.Join(s.workDir, jobID)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	cleanup := func() { os.RemoveAll(dir) }

	audioName := assetFileName("audio", audio.Name)
	if err := saveAsset(dir, audioName, audio.Reader); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to save audio: %w", err)
	}

	tracklistName := assetFileName("tracklist", tracklist.Name)
	if err := saveAsset(dir, tracklistName, tracklist.Reader); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to save tracklist: %w", err)
	}

	artworkName := ""
	if artwork != nil {
		artworkName = assetFileName("artwork", artwork.Name)
		if err := saveAsset(dir, artworkName, artwork.Reader); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to save artwork: %w", err)
		}
	}

	now := time.Now()
	meta := &model.Metadata{
		Title:         req.Title,
		Owner:         req.Owner,
		BroadcastDate: req.BroadcastDate,
		BroadcastTime: req.BroadcastTime,
		Genres:        req.Genres,
		Description:   req.Description,
		Destinations:  req.Destinations,
		ConfirmSongs:  req.ConfirmSongs,
		AudioFile:     audioName,
		ArtworkFile:   artworkName,
		TracklistFile: tracklistName,
		SubmittedBy:   submittedBy,
		SubmittedAt:   now,
	}
	if err := writeMetadata(dir, meta); err != nil {
		cleanup()
		return nil, err
	}

	if err := s.store.Create(jobID, model.JobStatusReceived, "submission received"); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create status record: %w", err)
	}

	return &model.CreateJobResponse{
		JobID:     jobID,
		Status:    model.JobStatusReceived,
		CreatedAt: now,
	}, nil
}

// LoadMetadata reads the job's metadata record.
func (s *IntakeService) LoadMetadata(jobID string) (*model.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.workDir, jobID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta model.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("invalid metadata record: %w", err)
	}
	return &meta, nil
}

// writeMetadata lands metadata.json atomically, same contract as the
// status store.
func writeMetadata(dir string, meta *model.Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, "metadata.json")); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to place metadata: %w", err)
	}
	return nil
}

func saveAsset(dir, name string, r io.Reader) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// assetFileName keeps the submitted extension but normalizes the base name
// so working directories have a predictable layout.
func assetFileName(base, submitted string) string {
	ext := strings.ToLower(filepath.Ext(submitted))
	if ext == "" || len(ext) > 8 {
		ext = ""
	}
	return base + ext
}
