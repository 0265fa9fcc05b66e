package model

import "time"

// CreateJobRequest carries the metadata fields of the multipart intake form.
type CreateJobRequest struct {
	Title         string        `json:"title" validate:"required,max=200"`
	Owner         string        `json:"owner" validate:"required,max=100"`
	BroadcastDate string        `json:"broadcastDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	BroadcastTime string        `json:"broadcastTime,omitempty"`
	Genres        []string      `json:"genres,omitempty"`
	Description   string        `json:"description,omitempty" validate:"max=4000"`
	Destinations  []Destination `json:"destinations" validate:"required,min=1,dive,oneof=azuracast mixcloud soundcloud"`
	ConfirmSongs  bool          `json:"confirmSongs,omitempty"`
}

// CreateJobResponse is returned by POST /api/jobs.
type CreateJobResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// StartPublishResponse is returned by POST /api/publish/start/:jobId.
type StartPublishResponse struct {
	JobID    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	Enqueued bool      `json:"enqueued"`
}

// ConfirmSongsResponse is returned by POST /api/jobs/:jobId/confirm-songs.
type ConfirmSongsResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

// ArchiveStatusResponse is returned by GET /api/publish/archive/:jobId.
// It lets clients recover a job's outcome after the working directory and
// its status record have been archived.
type ArchiveStatusResponse struct {
	JobID    string         `json:"jobId"`
	Archived bool           `json:"archived"`
	Record   *ArchiveRecord `json:"record,omitempty"`
}
