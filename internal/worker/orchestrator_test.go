package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mixramp/publisher/internal/archive"
	"github.com/mixramp/publisher/internal/destination"
	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/status"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubParser struct {
	songs []model.Song
	err   error
	calls atomic.Int32
}

func (p *stubParser) Parse(ctx context.Context, path string) (*model.Tracklist, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &model.Tracklist{Songs: p.songs}, nil
}

type stubAdapter struct {
	name    model.Destination
	result  *model.DestinationResult
	panicky bool
	delay   time.Duration
	calls   atomic.Int32
	seenReq atomic.Pointer[model.PublishRequest]
}

func (a *stubAdapter) Name() model.Destination { return a.name }

func (a *stubAdapter) Publish(ctx context.Context, req *model.PublishRequest) *model.DestinationResult {
	a.calls.Add(1)
	a.seenReq.Store(req)
	if a.panicky {
		panic("adapter blew up")
	}
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	return a.result
}

func successAdapter(name model.Destination) *stubAdapter {
	return &stubAdapter{
		name: name,
		result: &model.DestinationResult{
			Destination: name,
			Success:     true,
			ID:          string(name) + "-1",
			Attempts:    1,
		},
	}
}

func failureAdapter(name model.Destination, msg string) *stubAdapter {
	return &stubAdapter{
		name: name,
		result: &model.DestinationResult{
			Destination: name,
			Success:     false,
			Error:       msg,
			Attempts:    2,
		},
	}
}

// testEnv wires an orchestrator against temp directories and stubs.
type testEnv struct {
	workDir    string
	archiveDir string
	store      *status.Store
	parser     *stubParser
	adapters   map[model.Destination]destination.Adapter
	orch       *Orchestrator
}

func newTestEnv(t *testing.T, parser *stubParser, adapters map[model.Destination]destination.Adapter) *testEnv {
	t.Helper()
	workDir := t.TempDir()
	archiveDir := t.TempDir()
	store := status.NewStore(workDir)
	archiver := archive.NewManager(archiveDir, nil, testLogger())

	return &testEnv{
		workDir:    workDir,
		archiveDir: archiveDir,
		store:      store,
		parser:     parser,
		adapters:   adapters,
		orch:       NewOrchestrator(store, parser, adapters, archiver, nil, workDir, testLogger()),
	}
}

// seedJob materializes a ready-to-publish working directory.
func (e *testEnv) seedJob(t *testing.T, jobID string, meta model.Metadata, withTracklistFile bool) {
	t.Helper()
	dir := filepath.Join(e.workDir, jobID)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	if meta.AudioFile != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, meta.AudioFile), []byte("audio"), 0o644))
	}
	if meta.ArtworkFile != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, meta.ArtworkFile), []byte("art"), 0o644))
	}
	if withTracklistFile && meta.TracklistFile != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, meta.TracklistFile), []byte("1. A - One\n2. B - Two\n3. C - Three\n"), 0o644))
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, metadataFileName), data, 0o644))

	require.NoError(t, e.store.Create(jobID, model.JobStatusReceived, "submission received"))
}

func baseMetadata(destinations ...model.Destination) model.Metadata {
	return model.Metadata{
		Title:         "Test Episode",
		Owner:         "DJ",
		BroadcastDate: "2025-05-11",
		Destinations:  destinations,
		AudioFile:     "audio.mp3",
		ArtworkFile:   "artwork.png",
		TracklistFile: "tracklist.txt",
		SubmittedAt:   time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func threeSongs() []model.Song {
	return []model.Song{
		{Title: "One", Artist: "A"},
		{Title: "Two", Artist: "B"},
		{Title: "Three", Artist: "C"},
	}
}

func TestRun_PublishesAndArchives(t *testing.T) {
	azuracast := successAdapter(model.DestinationAzuraCast)
	mixcloud := successAdapter(model.DestinationMixcloud)
	env := newTestEnv(t, &stubParser{songs: threeSongs()}, map[model.Destination]destination.Adapter{
		model.DestinationAzuraCast: azuracast,
		model.DestinationMixcloud:  mixcloud,
	})
	env.seedJob(t, "j1", baseMetadata(model.DestinationAzuraCast, model.DestinationMixcloud), true)

	require.NoError(t, env.orch.Run(context.Background(), "j1"))

	require.Equal(t, int32(1), azuracast.calls.Load())
	require.Equal(t, int32(1), mixcloud.calls.Load())

	recordPath := filepath.Join(env.archiveDir, "2025", "2025-05-11_DJ_Test-Episode.json")
	data, err := os.ReadFile(recordPath)
	require.NoError(t, err)

	var record model.ArchiveRecord
	require.NoError(t, json.Unmarshal(data, &record))
	require.Equal(t, "j1", record.Summary.JobID)
	require.Equal(t, model.JobStatusCompleted, record.Summary.Status)
	require.Len(t, record.Tracklist, 3)
	require.True(t, record.Uploads[model.DestinationAzuraCast].Success)
	require.True(t, record.Uploads[model.DestinationMixcloud].Success)

	_, err = os.Stat(filepath.Join(env.workDir, "j1"))
	require.True(t, os.IsNotExist(err), "working directory must be gone after archival")
}

func TestRun_MissingTracklistFailsBeforeAdapters(t *testing.T) {
	adapter := successAdapter(model.DestinationAzuraCast)
	env := newTestEnv(t, &stubParser{songs: threeSongs()}, map[model.Destination]destination.Adapter{
		model.DestinationAzuraCast: adapter,
	})
	env.seedJob(t, "j1", baseMetadata(model.DestinationAzuraCast), false)

	err := env.orch.Run(context.Background(), "j1")
	require.Error(t, err)

	require.Equal(t, int32(0), adapter.calls.Load(), "no adapter may run without inputs")
	require.Equal(t, int32(0), env.parser.calls.Load())

	record, getErr := env.store.Get("j1")
	require.NoError(t, getErr)
	require.Equal(t, model.JobStatusError, record.Status)
	require.Contains(t, record.Message, "tracklist.txt")

	entries, readErr := os.ReadDir(env.archiveDir)
	require.NoError(t, readErr)
	require.Empty(t, entries, "no archive record for a failed job")

	_, statErr := os.Stat(filepath.Join(env.workDir, "j1"))
	require.NoError(t, statErr, "working directory is retained for recovery")
}

func TestRun_ParseFailureIsTerminal(t *testing.T) {
	adapter := successAdapter(model.DestinationAzuraCast)
	env := newTestEnv(t, &stubParser{err: errors.New("unrecognized format")}, map[model.Destination]destination.Adapter{
		model.DestinationAzuraCast: adapter,
	})
	env.seedJob(t, "j1", baseMetadata(model.DestinationAzuraCast), true)

	require.Error(t, env.orch.Run(context.Background(), "j1"))

	require.Equal(t, int32(0), adapter.calls.Load())

	record, err := env.store.Get("j1")
	require.NoError(t, err)
	require.Equal(t, model.JobStatusError, record.Status)
	require.Contains(t, record.Message, "tracklist parse failed")
}

func TestRun_PartialFailureStillCompletes(t *testing.T) {
	azuracast := successAdapter(model.DestinationAzuraCast)
	mixcloud := failureAdapter(model.DestinationMixcloud, "tracklist validation failed")
	env := newTestEnv(t, &stubParser{songs: threeSongs()}, map[model.Destination]destination.Adapter{
		model.DestinationAzuraCast: azuracast,
		model.DestinationMixcloud:  mixcloud,
	})
	env.seedJob(t, "j1", baseMetadata(model.DestinationAzuraCast, model.DestinationMixcloud), true)

	require.NoError(t, env.orch.Run(context.Background(), "j1"))

	record, err := env.orch.archiver.Lookup("j1")
	require.NoError(t, err)
	require.Equal(t, model.JobStatusCompleted, record.Summary.Status)
	require.Equal(t, "published to 1/2 destinations", record.Summary.Message)
	require.True(t, record.Uploads[model.DestinationAzuraCast].Success)
	require.False(t, record.Uploads[model.DestinationMixcloud].Success)
	require.Equal(t, "tracklist validation failed", record.Uploads[model.DestinationMixcloud].Error)
}

func TestRun_AdapterPanicIsOrchestratorFault(t *testing.T) {
	panicky := &stubAdapter{name: model.DestinationAzuraCast, panicky: true}
	env := newTestEnv(t, &stubParser{songs: threeSongs()}, map[model.Destination]destination.Adapter{
		model.DestinationAzuraCast: panicky,
	})
	env.seedJob(t, "j1", baseMetadata(model.DestinationAzuraCast), true)

	err := env.orch.Run(context.Background(), "j1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "internal fault")

	record, getErr := env.store.Get("j1")
	require.NoError(t, getErr)
	require.Equal(t, model.JobStatusError, record.Status)
}

func TestRun_UnregisteredDestinationIsFailedResult(t *testing.T) {
	azuracast := successAdapter(model.DestinationAzuraCast)
	env := newTestEnv(t, &stubParser{songs: threeSongs()}, map[model.Destination]destination.Adapter{
		model.DestinationAzuraCast: azuracast,
	})
	env.seedJob(t, "j1", baseMetadata(model.DestinationAzuraCast, model.DestinationSoundCloud), true)

	require.NoError(t, env.orch.Run(context.Background(), "j1"))

	record, err := env.orch.archiver.Lookup("j1")
	require.NoError(t, err)
	require.Equal(t, model.JobStatusCompleted, record.Summary.Status)
	require.False(t, record.Uploads[model.DestinationSoundCloud].Success)
	require.Equal(t, "no adapter registered", record.Uploads[model.DestinationSoundCloud].Error)
}

func TestRun_UnregisteredAlongsideConcurrentAdapters(t *testing.T) {
	azuracast := successAdapter(model.DestinationAzuraCast)
	azuracast.delay = 5 * time.Millisecond
	mixcloud := successAdapter(model.DestinationMixcloud)
	mixcloud.delay = 5 * time.Millisecond
	env := newTestEnv(t, &stubParser{songs: threeSongs()}, map[model.Destination]destination.Adapter{
		model.DestinationAzuraCast: azuracast,
		model.DestinationMixcloud:  mixcloud,
	})
	env.seedJob(t, "j1", baseMetadata(model.DestinationAzuraCast, model.DestinationSoundCloud, model.DestinationMixcloud), true)

	require.NoError(t, env.orch.Run(context.Background(), "j1"))

	record, err := env.orch.archiver.Lookup("j1")
	require.NoError(t, err)
	require.Equal(t, model.JobStatusCompleted, record.Summary.Status)
	require.Equal(t, "published to 2/3 destinations", record.Summary.Message)
	require.Len(t, record.Uploads, 3)
	require.True(t, record.Uploads[model.DestinationAzuraCast].Success)
	require.True(t, record.Uploads[model.DestinationMixcloud].Success)
	require.False(t, record.Uploads[model.DestinationSoundCloud].Success)
	require.Equal(t, "no adapter registered", record.Uploads[model.DestinationSoundCloud].Error)
}

func TestRun_AdaptersReceiveIndependentProjections(t *testing.T) {
	azuracast := successAdapter(model.DestinationAzuraCast)
	mixcloud := successAdapter(model.DestinationMixcloud)
	env := newTestEnv(t, &stubParser{songs: threeSongs()}, map[model.Destination]destination.Adapter{
		model.DestinationAzuraCast: azuracast,
		model.DestinationMixcloud:  mixcloud,
	})
	env.seedJob(t, "j1", baseMetadata(model.DestinationAzuraCast, model.DestinationMixcloud), true)

	require.NoError(t, env.orch.Run(context.Background(), "j1"))

	reqA := azuracast.seenReq.Load()
	reqB := mixcloud.seenReq.Load()
	require.NotSame(t, reqA, reqB)
	require.Equal(t, reqA.Meta.Tracklist, reqB.Meta.Tracklist)
	require.NotSame(t, &reqA.Meta.Tracklist[0], &reqB.Meta.Tracklist[0], "tracklist slices must not share backing arrays")
}
