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

// SoundCloudAPI is the slice of the SoundCloud client this adapter needs.
type SoundCloudAPI interface {
	UploadFile(ctx context.Context, path string, meta *model.DestinationMetadata) (*client.UploadResponse, error)
	UpdateTrackMetadata(ctx context.Context, id string, meta *model.DestinationMetadata) error
}

// SoundCloud publishes in two sequential calls: upload the track, then patch
// its metadata. An upload rejected for quota, permission or artwork reasons
// is retried once with degraded settings (private sharing, placeholder
// artwork). A metadata failure after a successful upload does not fail the
// publication: the asset exists on the platform, so the result stays
// successful and carries a note instead.
type SoundCloud struct {
	api                SoundCloudAPI
	placeholderArtwork string
	log                *slog.Logger
}

// NewSoundCloud creates the SoundCloud adapter.
func NewSoundCloud(api SoundCloudAPI, placeholderArtwork string, log *slog.Logger) *SoundCloud {
	return &SoundCloud{
		api:                api,
		placeholderArtwork: placeholderArtwork,
		log:                log.With("destination", model.DestinationSoundCloud),
	}
}

func (s *SoundCloud) Name() model.Destination { return model.DestinationSoundCloud }

// Publish uploads the track and then applies the full metadata.
func (s *SoundCloud) Publish(ctx context.Context, req *model.PublishRequest) *model.DestinationResult {
	meta := req.Meta
	attempts := 0

	upload := func() (*client.UploadResponse, error) {
		attempts++
		resp, err := s.api.UploadFile(ctx, req.AudioPath, &meta)
		if err != nil {
			s.log.Error("upload failed",
				"title", meta.Title,
				"step", model.StepUpload,
				"error", err,
			)
			return nil, err
		}
		if !resp.Success {
			return nil, fmt.Errorf("%s", resp.Error)
		}
		return resp, nil
	}

	resp, err := retry.DoValue(ctx, upload, retry.Policy{
		MaxRetries:    1,
		InitialDelay:  2 * time.Second,
		BackoffFactor: 2,
		MaxDelay:      30 * time.Second,
		IsRetryable: func(err error) bool {
			if !isConstraintRejection(err) {
				return false
			}
			meta.Sharing = model.SharingPrivate
			meta.ArtworkPath = s.placeholderArtwork
			return true
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			s.log.Warn("retrying upload with degraded settings",
				"title", meta.Title,
				"sharing", meta.Sharing,
				"delay", delay,
			)
		},
	})
	if err != nil {
		return &model.DestinationResult{
			Destination: model.DestinationSoundCloud,
			Success:     false,
			Error:       err.Error(),
			Step:        model.StepUpload,
			Attempts:    attempts,
		}
	}

	result := &model.DestinationResult{
		Destination: model.DestinationSoundCloud,
		Success:     true,
		ID:          resp.ID,
		URL:         resp.URL,
		Attempts:    attempts,
	}

	// The track exists on the platform from here on; a metadata failure is
	// annotated, not fatal.
	if err := s.api.UpdateTrackMetadata(ctx, resp.ID, &meta); err != nil {
		s.log.Warn("metadata update failed after successful upload",
			"title", meta.Title,
			"step", model.StepMetadata,
			"error", err,
		)
		result.Note = fmt.Sprintf("metadata update failed: %v", err)
	}

	return result
}

// isConstraintRejection matches quota, permission and artwork rejections,
// the cases where degraded settings can get the upload through.
func isConstraintRejection(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, signature := range []string{"quota", "permission", "artwork"} {
		if strings.Contains(msg, signature) {
			return true
		}
	}
	return false
}
