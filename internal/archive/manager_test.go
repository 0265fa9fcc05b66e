package archive

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mixramp/publisher/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testInput(t *testing.T, workRoot string) *Input {
	t.Helper()

	workDir := filepath.Join(workRoot, "job-1")
	require.NoError(t, os.MkdirAll(workDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "audio.mp3"), []byte("audio"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "artwork.png"), []byte("art"), 0o644))

	return &Input{
		JobID:   "job-1",
		WorkDir: workDir,
		Metadata: model.Metadata{
			Title:         "Test Episode",
			Owner:         "DJ",
			BroadcastDate: "2025-05-11",
			AudioFile:     "audio.mp3",
			ArtworkFile:   "artwork.png",
			SubmittedAt:   time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC),
		},
		Record: &model.StatusRecord{
			JobID:   "job-1",
			Status:  model.JobStatusCompleted,
			Message: "published to 2/2 destinations",
			Destinations: map[model.Destination]*model.DestinationResult{
				model.DestinationAzuraCast: {Destination: model.DestinationAzuraCast, Success: true, ID: "azc-1"},
				model.DestinationMixcloud:  {Destination: model.DestinationMixcloud, Success: true, ID: "mix-1"},
			},
		},
		Tracklist: []model.Song{
			{Title: "One", Artist: "A"},
			{Title: "Two", Artist: "B"},
			{Title: "Three", Artist: "C"},
		},
	}
}

func TestArchive_WritesDatedRecordAndDeletesWorkDir(t *testing.T) {
	archiveDir := t.TempDir()
	in := testInput(t, t.TempDir())

	m := NewManager(archiveDir, nil, testLogger())
	recordPath, err := m.Archive(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(archiveDir, "2025", "2025-05-11_DJ_Test-Episode.json"), recordPath)

	data, err := os.ReadFile(recordPath)
	require.NoError(t, err)

	var record model.ArchiveRecord
	require.NoError(t, json.Unmarshal(data, &record))
	require.Equal(t, "job-1", record.Summary.JobID)
	require.Equal(t, model.JobStatusCompleted, record.Summary.Status)
	require.Equal(t, 3, record.Summary.SongCount)
	require.Equal(t, 2, record.Summary.DestinationCount)
	require.Equal(t, 2, record.Summary.SucceededCount)
	require.Len(t, record.Tracklist, 3)

	_, err = os.Stat(in.WorkDir)
	require.True(t, os.IsNotExist(err), "working directory must be removed after archival")
}

func TestArchive_WriteFailureRetainsWorkDir(t *testing.T) {
	archiveDir := t.TempDir()
	// A file where the year directory should go makes the write fail.
	require.NoError(t, os.WriteFile(filepath.Join(archiveDir, "2025"), []byte("in the way"), 0o644))

	in := testInput(t, t.TempDir())
	m := NewManager(archiveDir, nil, testLogger())

	_, err := m.Archive(context.Background(), in)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(in.WorkDir, "audio.mp3"))
	require.NoError(t, statErr, "nothing may be deleted when the record was not written")
}

func TestArchive_PartialFailureCountsSuccesses(t *testing.T) {
	archiveDir := t.TempDir()
	in := testInput(t, t.TempDir())
	in.Record.Destinations[model.DestinationMixcloud] = &model.DestinationResult{
		Destination: model.DestinationMixcloud,
		Success:     false,
		Error:       "tracklist validation failed",
	}

	m := NewManager(archiveDir, nil, testLogger())
	recordPath, err := m.Archive(context.Background(), in)
	require.NoError(t, err)

	data, err := os.ReadFile(recordPath)
	require.NoError(t, err)
	var record model.ArchiveRecord
	require.NoError(t, json.Unmarshal(data, &record))
	require.Equal(t, 2, record.Summary.DestinationCount)
	require.Equal(t, 1, record.Summary.SucceededCount)
	require.False(t, record.Uploads[model.DestinationMixcloud].Success)
}

func TestArchive_IncompleteMetadataFallsBack(t *testing.T) {
	archiveDir := t.TempDir()
	in := testInput(t, t.TempDir())
	in.Metadata.Title = ""
	in.Metadata.Owner = ""
	in.Metadata.BroadcastDate = "not-a-date"

	m := NewManager(archiveDir, nil, testLogger())
	recordPath, err := m.Archive(context.Background(), in)
	require.NoError(t, err)

	today := time.Now().Format("2006-01-02")
	require.Equal(t, filepath.Join(archiveDir, today[:4], today+"_Unknown_Untitled.json"), recordPath)
}

func TestArchive_NameSanitization(t *testing.T) {
	archiveDir := t.TempDir()
	in := testInput(t, t.TempDir())
	in.Metadata.Owner = "DJ Test / Crew"
	in.Metadata.Title = "Late Night: Episode #42"

	m := NewManager(archiveDir, nil, testLogger())
	recordPath, err := m.Archive(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, "2025-05-11_DJ-Test-Crew_Late-Night-Episode-42.json", filepath.Base(recordPath))
}

func TestLookup_FindsArchivedJob(t *testing.T) {
	archiveDir := t.TempDir()
	in := testInput(t, t.TempDir())

	m := NewManager(archiveDir, nil, testLogger())
	_, err := m.Archive(context.Background(), in)
	require.NoError(t, err)

	record, err := m.Lookup("job-1")
	require.NoError(t, err)
	require.Equal(t, "job-1", record.Summary.JobID)
	require.Equal(t, "Test Episode", record.Metadata.Title)
}

func TestLookup_UnknownJob(t *testing.T) {
	m := NewManager(t.TempDir(), nil, testLogger())

	_, err := m.Lookup("missing")
	require.ErrorIs(t, err, ErrNotArchived)
}

func TestLookup_MissingArchiveDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "never-created"), nil, testLogger())

	_, err := m.Lookup("job-1")
	require.ErrorIs(t, err, ErrNotArchived)
}
