// Package client holds the HTTP clients for every external collaborator:
// the destination platform APIs, the tracklist parser service, and the
// S3-compatible archive mirror. Unconfigured clients fall back to mock
// responses so the full pipeline runs in development.
package client

import (
	"context"

	"github.com/mixramp/publisher/internal/model"
)

// UploadResponse is the uniform upload result shape every destination
// client returns regardless of platform.
type UploadResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DestinationClient is the minimal contract every destination API client
// satisfies. Optional protocol stages are expressed as capability
// interfaces below.
type DestinationClient interface {
	Name() string
	IsConfigured() bool
	UploadFile(ctx context.Context, path string, meta *model.DestinationMetadata) (*UploadResponse, error)
}

// MetadataSetter is implemented by destinations with a separate
// set-metadata stage.
type MetadataSetter interface {
	SetMetadata(ctx context.Context, id string, meta *model.DestinationMetadata) error
}

// PlaylistAdder is implemented by destinations that place uploads onto a
// playlist.
type PlaylistAdder interface {
	AddToPlaylist(ctx context.Context, id string) error
}

// MetadataUpdater is implemented by destinations that patch track metadata
// after upload.
type MetadataUpdater interface {
	UpdateTrackMetadata(ctx context.Context, id string, meta *model.DestinationMetadata) error
}

// TracklistParser is the boundary to the external multi-format tracklist
// parser.
type TracklistParser interface {
	Parse(ctx context.Context, path string) (*model.Tracklist, error)
}
