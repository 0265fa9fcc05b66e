package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mixramp/publisher/internal/archive"
	"github.com/mixramp/publisher/internal/client"
	"github.com/mixramp/publisher/internal/destination"
	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/status"
	ws "github.com/mixramp/publisher/internal/websocket"
)

const metadataFileName = "metadata.json"

// ErrMissingInput marks a job rejected before any adapter was invoked
// because a required input was absent from the working directory.
var ErrMissingInput = errors.New("missing required input")

// Orchestrator drives one job from its working directory to a terminal
// state: verify inputs, parse the tracklist, fan out to the requested
// destination adapters concurrently, aggregate their results, and archive.
// A destination failure is data in the terminal record; only input errors,
// parse failures and adapter panics terminate the job with status error.
type Orchestrator struct {
	store    *status.Store
	parser   client.TracklistParser
	adapters map[model.Destination]destination.Adapter
	archiver *archive.Manager
	hub      *ws.Hub
	workDir  string
	log      *slog.Logger
}

// NewOrchestrator wires the orchestrator. hub may be nil.
func NewOrchestrator(
	store *status.Store,
	parser client.TracklistParser,
	adapters map[model.Destination]destination.Adapter,
	archiver *archive.Manager,
	hub *ws.Hub,
	workDir string,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		parser:   parser,
		adapters: adapters,
		archiver: archiver,
		hub:      hub,
		workDir:  workDir,
		log:      log.With("component", "orchestrator"),
	}
}

// Run processes the job end to end. The returned error reports terminal
// faults to the task queue; destination-level failures never surface here.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	log := o.log.With("job_id", jobID)
	dir := filepath.Join(o.workDir, jobID)

	meta, err := o.loadMetadata(dir)
	if err != nil {
		return o.fail(jobID, fmt.Sprintf("%v", err))
	}

	for _, name := range []string{meta.AudioFile, meta.TracklistFile} {
		if name == "" {
			return o.fail(jobID, fmt.Sprintf("%v: metadata names no audio or tracklist file", ErrMissingInput))
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return o.fail(jobID, fmt.Sprintf("%v: %s", ErrMissingInput, name))
		}
	}

	if err := o.store.Set(jobID, model.JobStatusProcessing, "publishing to destinations"); err != nil {
		return o.fail(jobID, fmt.Sprintf("failed to update status: %v", err))
	}

	tracklist, err := o.parser.Parse(ctx, filepath.Join(dir, meta.TracklistFile))
	if err != nil {
		return o.fail(jobID, fmt.Sprintf("tracklist parse failed: %v", err))
	}
	log.Info("tracklist parsed", "songs", len(tracklist.Songs))

	results, faultErr := o.fanOut(ctx, jobID, dir, meta, tracklist.Songs)
	if faultErr != nil {
		return o.fail(jobID, faultErr.Error())
	}

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		}
	}
	message := fmt.Sprintf("published to %d/%d destinations", succeeded, len(results))

	// Per-destination failure is data, not a pipeline fault: the job
	// completes either way. The written record is carried forward so the
	// archive document is built from the results just persisted.
	record, err := o.store.SetResults(jobID, model.JobStatusCompleted, message, results)
	if err != nil {
		return o.fail(jobID, fmt.Sprintf("failed to record results: %v", err))
	}
	o.hub.BroadcastComplete(jobID, record)
	log.Info("job completed", "succeeded", succeeded, "requested", len(results))

	o.archiveJob(ctx, jobID, dir, meta, record, tracklist.Songs)
	return nil
}

// fanOut invokes every requested adapter concurrently. Adapters share no
// mutable state: each receives its own metadata projection. A panic inside
// an adapter is captured and reported as an orchestrator fault without
// taking down the process.
func (o *Orchestrator) fanOut(
	ctx context.Context,
	jobID, dir string,
	meta *model.Metadata,
	songs []model.Song,
) (map[model.Destination]*model.DestinationResult, error) {
	results := make(map[model.Destination]*model.DestinationResult, len(meta.Destinations))
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		faults []string
	)

	// Unregistered destinations are settled before any goroutine starts so
	// the map is only written under mu once adapters are running.
	for _, dest := range meta.Destinations {
		if _, ok := o.adapters[dest]; !ok {
			results[dest] = &model.DestinationResult{
				Destination: dest,
				Success:     false,
				Error:       "no adapter registered",
			}
		}
	}

	for _, dest := range meta.Destinations {
		adapter, ok := o.adapters[dest]
		if !ok {
			continue
		}

		req := o.buildProjection(jobID, dir, meta, songs)

		wg.Add(1)
		go func(dest model.Destination, adapter destination.Adapter, req *model.PublishRequest) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					faults = append(faults, fmt.Sprintf("internal fault in %s adapter: %v", dest, r))
					mu.Unlock()
				}
			}()

			result := adapter.Publish(ctx, req)

			mu.Lock()
			results[dest] = result
			mu.Unlock()
			o.hub.BroadcastProgress(jobID, model.JobStatusProcessing, dest, result)
		}(dest, adapter, req)
	}
	wg.Wait()

	if len(faults) > 0 {
		return nil, errors.New(faults[0])
	}
	return results, nil
}

// buildProjection derives a fresh per-destination metadata projection.
// Slices are copied so retry policies can mutate them independently.
func (o *Orchestrator) buildProjection(jobID, dir string, meta *model.Metadata, songs []model.Song) *model.PublishRequest {
	artworkPath := ""
	if meta.ArtworkFile != "" {
		artworkPath = filepath.Join(dir, meta.ArtworkFile)
	}

	tracklist := make([]model.Song, len(songs))
	copy(tracklist, songs)
	genres := make([]string, len(meta.Genres))
	copy(genres, meta.Genres)

	return &model.PublishRequest{
		JobID:       jobID,
		AudioPath:   filepath.Join(dir, meta.AudioFile),
		ArtworkPath: artworkPath,
		Meta: model.DestinationMetadata{
			Title:         meta.Title,
			Artist:        meta.Owner,
			Description:   meta.Description,
			BroadcastDate: meta.BroadcastDate,
			Genres:        genres,
			Sharing:       model.SharingPublic,
			ArtworkPath:   artworkPath,
			Tracklist:     tracklist,
		},
	}
}

// archiveJob converts the working directory into the archive record. An
// archival failure leaves the directory intact; the completed status
// already stands.
func (o *Orchestrator) archiveJob(
	ctx context.Context,
	jobID, dir string,
	meta *model.Metadata,
	record *model.StatusRecord,
	songs []model.Song,
) {
	_, err := o.archiver.Archive(ctx, &archive.Input{
		JobID:     jobID,
		WorkDir:   dir,
		Metadata:  *meta,
		Record:    record,
		Tracklist: songs,
	})
	if err != nil {
		o.log.Error("archival failed, working directory retained",
			"job_id", jobID,
			"error", err,
		)
	}
}

func (o *Orchestrator) loadMetadata(dir string) (*model.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, metadataFileName)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta model.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("invalid metadata record: %w", err)
	}
	return &meta, nil
}

// fail records the terminal error status and surfaces the fault to the
// task queue.
func (o *Orchestrator) fail(jobID, message string) error {
	o.log.Error("job failed", "job_id", jobID, "message", message)
	if err := o.store.Set(jobID, model.JobStatusError, message); err != nil {
		o.log.Error("failed to record error status", "job_id", jobID, "error", err)
	}
	o.hub.BroadcastError(jobID, message)
	return errors.New(message)
}
