package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/status"
)

// PublishPayload is the task payload enqueued per job. Inputs live on disk;
// the task only names the job.
type PublishPayload struct {
	JobID string `json:"jobId"`
}

// PublishWorker is the asynq handler that runs one orchestrator per task.
// Each task is the job's isolated execution unit: a panic escaping the
// orchestrator is captured here and recorded as a terminal error without
// affecting other jobs or the intake API.
type PublishWorker struct {
	orch  *Orchestrator
	store *status.Store
	log   *slog.Logger
}

// NewPublishWorker creates a new publish worker
func NewPublishWorker(orch *Orchestrator, store *status.Store, log *slog.Logger) *PublishWorker {
	return &PublishWorker{
		orch:  orch,
		store: store,
		log:   log.With("component", "publish_worker"),
	}
}

// ProcessTask handles one publish task.
func (w *PublishWorker) ProcessTask(ctx context.Context, t *asynq.Task) (err error) {
	var payload PublishPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	jobID := payload.JobID

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("panic while processing job", "job_id", jobID, "panic", r)
			if setErr := w.store.Set(jobID, model.JobStatusError, fmt.Sprintf("internal fault: %v", r)); setErr != nil {
				w.log.Error("failed to record fault status", "job_id", jobID, "error", setErr)
			}
			err = fmt.Errorf("job %s: internal fault: %v", jobID, r)
		}
	}()

	w.log.Info("starting publish job", "job_id", jobID)
	return w.orch.Run(ctx, jobID)
}
