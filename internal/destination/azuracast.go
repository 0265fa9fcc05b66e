package destination

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mixramp/publisher/internal/client"
	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/retry"
)

// AzuraCastAPI is the slice of the AzuraCast client this adapter needs.
type AzuraCastAPI interface {
	UploadFile(ctx context.Context, path string, meta *model.DestinationMetadata) (*client.UploadResponse, error)
	SetMetadata(ctx context.Context, id string, meta *model.DestinationMetadata) error
	AddToPlaylist(ctx context.Context, id string) error
}

// AzuraCast publishes through the three-stage station protocol: upload,
// set metadata, add to playlist. All three stages sit inside one retry; a
// failure at any stage re-runs the sequence from the upload (re-upload is
// idempotent on the station side).
type AzuraCast struct {
	api AzuraCastAPI
	log *slog.Logger
}

// NewAzuraCast creates the AzuraCast adapter.
func NewAzuraCast(api AzuraCastAPI, log *slog.Logger) *AzuraCast {
	return &AzuraCast{api: api, log: log.With("destination", model.DestinationAzuraCast)}
}

func (a *AzuraCast) Name() model.Destination { return model.DestinationAzuraCast }

// Publish uploads the audio and wires it into the station playlist.
func (a *AzuraCast) Publish(ctx context.Context, req *model.PublishRequest) *model.DestinationResult {
	var id, path string
	attempts := 0

	op := func() error {
		attempts++
		resp, err := a.api.UploadFile(ctx, req.AudioPath, &req.Meta)
		if err != nil {
			return a.failStep(req, model.StepUpload, err)
		}
		if !resp.Success {
			return a.failStep(req, model.StepUpload, fmt.Errorf("%s", resp.Error))
		}
		id, path = resp.ID, resp.Path

		if err := a.api.SetMetadata(ctx, id, &req.Meta); err != nil {
			return a.failStep(req, model.StepMetadata, err)
		}
		if err := a.api.AddToPlaylist(ctx, id); err != nil {
			return a.failStep(req, model.StepPlaylist, err)
		}
		return nil
	}

	err := retry.Do(ctx, op, retry.Policy{
		MaxRetries:    2,
		InitialDelay:  time.Second,
		BackoffFactor: 2,
		MaxDelay:      30 * time.Second,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			a.log.Warn("retrying full upload sequence",
				"title", req.Meta.Title,
				"attempt", attempt,
				"delay", delay,
			)
		},
	})
	if err != nil {
		return &model.DestinationResult{
			Destination: model.DestinationAzuraCast,
			Success:     false,
			Error:       rootError(err),
			Step:        stepOf(err),
			Attempts:    attempts,
		}
	}

	return &model.DestinationResult{
		Destination: model.DestinationAzuraCast,
		Success:     true,
		ID:          id,
		URL:         path,
		Attempts:    attempts,
	}
}

// failStep logs the stage failure before the retry decision is made and
// returns the tagged error.
func (a *AzuraCast) failStep(req *model.PublishRequest, step string, err error) error {
	a.log.Error("step failed",
		"title", req.Meta.Title,
		"step", step,
		"error", err,
	)
	return &stepError{step: step, err: err}
}
