package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mixramp/publisher/internal/archive"
	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/status"
	"github.com/mixramp/publisher/internal/worker"
)

// TaskTypePublish is the asynq task type for running one job's orchestrator.
const TaskTypePublish = "publish:process"

// PublishService manages the publish lifecycle around the queue: the start
// signal, the songs-confirmed waypoint, and status queries that survive
// archival.
type PublishService struct {
	store       *status.Store
	intake      *IntakeService
	archiver    *archive.Manager
	asynqClient *asynq.Client
}

// NewPublishService creates a new publish service
func NewPublishService(store *status.Store, intake *IntakeService, archiver *archive.Manager, asynqClient *asynq.Client) *PublishService {
	return &PublishService{
		store:       store,
		intake:      intake,
		archiver:    archiver,
		asynqClient: asynqClient,
	}
}

// Start enqueues the orchestrator task for a received job. The task id is
// derived from the job id so a job can never have two live orchestrator
// instances.
func (s *PublishService) Start(ctx context.Context, jobID string) (*model.StartPublishResponse, error) {
	record, err := s.store.Get(jobID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	switch record.Status {
	case model.JobStatusProcessing:
		return nil, ErrAlreadyProcessing
	case model.JobStatusCompleted, model.JobStatusError:
		return nil, ErrAlreadyCompleted
	}

	meta, err := s.intake.LoadMetadata(jobID)
	if err != nil {
		return nil, err
	}
	if meta.ConfirmSongs && record.Status != model.JobStatusSongsConfirmed {
		return nil, ErrSongsNotConfirmed
	}

	task, err := newPublishTask(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue("publish"),
		asynq.MaxRetry(0), // retries live inside the adapters, not the queue
		asynq.TaskID("publish:"+jobID),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil, ErrAlreadyProcessing
		}
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.StartPublishResponse{
		JobID:    jobID,
		Status:   record.Status,
		Enqueued: true,
	}, nil
}

// ConfirmSongs records the human-in-the-loop tracklist confirmation
// waypoint for jobs that requested it.
func (s *PublishService) ConfirmSongs(ctx context.Context, jobID string) (*model.ConfirmSongsResponse, error) {
	record, err := s.store.Get(jobID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if record.Status != model.JobStatusReceived {
		return nil, ErrInvalidTransition
	}

	if err := s.store.Set(jobID, model.JobStatusSongsConfirmed, "tracklist confirmed"); err != nil {
		return nil, err
	}

	return &model.ConfirmSongsResponse{
		JobID:  jobID,
		Status: model.JobStatusSongsConfirmed,
	}, nil
}

// GetStatus returns the job's most specific known state: the live status
// record while the working directory exists, or a record synthesized from
// the archive after the job has been archived.
func (s *PublishService) GetStatus(ctx context.Context, jobID string) (*model.StatusRecord, error) {
	record, err := s.store.Get(jobID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, status.ErrNotFound) {
		return nil, err
	}

	archived, lookupErr := s.archiver.Lookup(jobID)
	if lookupErr != nil {
		if errors.Is(lookupErr, archive.ErrNotArchived) {
			return nil, ErrJobNotFound
		}
		return nil, lookupErr
	}

	return &model.StatusRecord{
		JobID:        jobID,
		Status:       archived.Summary.Status,
		Message:      "job archived",
		Timestamp:    archived.Summary.ArchivedAt,
		Destinations: archived.Uploads,
	}, nil
}

// GetArchiveStatus reports whether the job has been archived, with the
// record when it has.
func (s *PublishService) GetArchiveStatus(ctx context.Context, jobID string) (*model.ArchiveStatusResponse, error) {
	record, err := s.archiver.Lookup(jobID)
	if err != nil {
		if errors.Is(err, archive.ErrNotArchived) {
			return &model.ArchiveStatusResponse{JobID: jobID, Archived: false}, nil
		}
		return nil, err
	}

	return &model.ArchiveStatusResponse{
		JobID:    jobID,
		Archived: true,
		Record:   record,
	}, nil
}

func newPublishTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(worker.PublishPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublish, data), nil
}
