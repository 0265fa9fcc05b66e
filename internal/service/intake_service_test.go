package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/status"
)

func testCreateJobRequest() *model.CreateJobRequest {
	return &model.CreateJobRequest{
		Title:         "Test Episode",
		Owner:         "DJ",
		BroadcastDate: "2025-05-11",
		Genres:        []string{"house", "disco"},
		Destinations:  []model.Destination{model.DestinationAzuraCast, model.DestinationMixcloud},
	}
}

func TestCreateJob_PopulatesWorkingDirectory(t *testing.T) {
	workDir := t.TempDir()
	store := status.NewStore(workDir)
	svc := NewIntakeService(workDir, store)

	resp, err := svc.CreateJob(context.Background(), testCreateJobRequest(), "user-1",
		Asset{Name: "show.mp3", Reader: strings.NewReader("audio bytes")},
		Asset{Name: "tracklist.txt", Reader: strings.NewReader("1. A - One")},
		&Asset{Name: "cover.png", Reader: strings.NewReader("image bytes")},
	)
	require.NoError(t, err)
	require.NotEmpty(t, resp.JobID)
	require.Equal(t, model.JobStatusReceived, resp.Status)

	dir := filepath.Join(workDir, resp.JobID)
	for _, name := range []string{"audio.mp3", "tracklist.txt", "artwork.png", "metadata.json", "status.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "expected %s in working directory", name)
	}

	meta, err := svc.LoadMetadata(resp.JobID)
	require.NoError(t, err)
	require.Equal(t, "Test Episode", meta.Title)
	require.Equal(t, "user-1", meta.SubmittedBy)
	require.Equal(t, "audio.mp3", meta.AudioFile)
	require.Equal(t, "artwork.png", meta.ArtworkFile)
	require.Equal(t, "tracklist.txt", meta.TracklistFile)
	require.Len(t, meta.Destinations, 2)

	record, err := store.Get(resp.JobID)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusReceived, record.Status)
}

func TestCreateJob_ArtworkIsOptional(t *testing.T) {
	workDir := t.TempDir()
	svc := NewIntakeService(workDir, status.NewStore(workDir))

	resp, err := svc.CreateJob(context.Background(), testCreateJobRequest(), "",
		Asset{Name: "show.mp3", Reader: strings.NewReader("audio")},
		Asset{Name: "songs.csv", Reader: strings.NewReader("A,One")},
		nil,
	)
	require.NoError(t, err)

	meta, err := svc.LoadMetadata(resp.JobID)
	require.NoError(t, err)
	require.Empty(t, meta.ArtworkFile)
	require.Equal(t, "tracklist.csv", meta.TracklistFile, "submitted extension is kept")
}

func TestLoadMetadata_UnknownJob(t *testing.T) {
	workDir := t.TempDir()
	svc := NewIntakeService(workDir, status.NewStore(workDir))

	_, err := svc.LoadMetadata("missing")
	require.ErrorIs(t, err, ErrJobNotFound)
}
