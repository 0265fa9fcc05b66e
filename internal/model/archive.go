package model

import "time"

// ArchiveRecord is the single durable JSON document written per job under
// archive/{year}/. Once it exists the large binary assets are deleted; the
// record plus any destination-returned remote references are the only
// evidence the job occurred.
type ArchiveRecord struct {
	Summary   ArchiveSummary                     `json:"summary"`
	Metadata  Metadata                           `json:"metadata"`
	Uploads   map[Destination]*DestinationResult `json:"uploads"`
	Tracklist []Song                             `json:"tracklist"`
}

// ArchiveSummary folds the superseded status record into the archive.
type ArchiveSummary struct {
	JobID            string    `json:"jobId"`
	Status           JobStatus `json:"status"`
	Message          string    `json:"message,omitempty"`
	SongCount        int       `json:"songCount"`
	DestinationCount int       `json:"destinationCount"`
	SucceededCount   int       `json:"succeededCount"`
	SubmittedAt      time.Time `json:"submittedAt,omitempty"`
	ArchivedAt       time.Time `json:"archivedAt"`
	MirrorURL        string    `json:"mirrorUrl,omitempty"`
}
