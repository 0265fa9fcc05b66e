package destination

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mixramp/publisher/internal/client"
	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/retry"
)

// MixcloudAPI is the slice of the Mixcloud client this adapter needs.
type MixcloudAPI interface {
	UploadFile(ctx context.Context, path string, meta *model.DestinationMetadata) (*client.UploadResponse, error)
}

// maxSimplifiedTracklist is the entry count the tracklist is truncated to
// when Mixcloud rejects the full list.
const maxSimplifiedTracklist = 5

// Mixcloud publishes in a single call with the tracklist embedded in the
// payload. Its recovery policy is degrade-once: a tracklist validation
// rejection truncates the list and retries exactly one time; any other
// failure, or a second tracklist rejection, is final.
type Mixcloud struct {
	api MixcloudAPI
	log *slog.Logger
}

// NewMixcloud creates the Mixcloud adapter.
func NewMixcloud(api MixcloudAPI, log *slog.Logger) *Mixcloud {
	return &Mixcloud{api: api, log: log.With("destination", model.DestinationMixcloud)}
}

func (m *Mixcloud) Name() model.Destination { return model.DestinationMixcloud }

// Publish uploads the audio with metadata and tracklist in one call.
func (m *Mixcloud) Publish(ctx context.Context, req *model.PublishRequest) *model.DestinationResult {
	meta := req.Meta
	simplified := false
	attempts := 0
	var resp *client.UploadResponse

	op := func() error {
		attempts++
		r, err := m.api.UploadFile(ctx, req.AudioPath, &meta)
		if err != nil {
			m.log.Error("upload failed",
				"title", meta.Title,
				"step", model.StepUpload,
				"error", err,
			)
			return err
		}
		if !r.Success {
			err := fmt.Errorf("%s", r.Error)
			m.log.Error("upload rejected",
				"title", meta.Title,
				"step", model.StepUpload,
				"error", err,
			)
			return err
		}
		resp = r
		return nil
	}

	err := retry.Do(ctx, op, retry.Policy{
		MaxRetries:    1,
		InitialDelay:  2 * time.Second,
		BackoffFactor: 2,
		MaxDelay:      30 * time.Second,
		IsRetryable: func(err error) bool {
			if simplified || !isTracklistRejection(err) {
				return false
			}
			if len(meta.Tracklist) > maxSimplifiedTracklist {
				meta.Tracklist = meta.Tracklist[:maxSimplifiedTracklist]
			}
			simplified = true
			return true
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			m.log.Warn("retrying with simplified tracklist",
				"title", meta.Title,
				"entries", len(meta.Tracklist),
				"delay", delay,
			)
		},
	})
	if err != nil {
		return &model.DestinationResult{
			Destination:        model.DestinationMixcloud,
			Success:            false,
			Error:              err.Error(),
			Step:               model.StepUpload,
			SimplifiedMetadata: simplified,
			Attempts:           attempts,
		}
	}

	return &model.DestinationResult{
		Destination:        model.DestinationMixcloud,
		Success:            true,
		ID:                 resp.ID,
		URL:                resp.URL,
		SimplifiedMetadata: simplified,
		Attempts:           attempts,
	}
}

// isTracklistRejection matches Mixcloud's tracklist validation failures.
func isTracklistRejection(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "tracklist")
}
