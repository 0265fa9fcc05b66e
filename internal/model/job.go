package model

import "time"

// Metadata is the submission record written to metadata.json in the job's
// working directory at intake. File names are relative to the working
// directory.
type Metadata struct {
	Title          string        `json:"title" validate:"required,max=200"`
	Owner          string        `json:"owner" validate:"required,max=100"`
	BroadcastDate  string        `json:"broadcastDate,omitempty"` // YYYY-MM-DD
	BroadcastTime  string        `json:"broadcastTime,omitempty"` // HH:MM
	Genres         []string      `json:"genres,omitempty"`
	Description    string        `json:"description,omitempty"`
	Destinations   []Destination `json:"destinations" validate:"required,min=1,dive,oneof=azuracast mixcloud soundcloud"`
	ConfirmSongs   bool          `json:"confirmSongs,omitempty"` // require tracklist confirmation before publishing
	AudioFile      string        `json:"audioFile"`
	ArtworkFile    string        `json:"artworkFile,omitempty"`
	TracklistFile  string        `json:"tracklistFile"`
	SubmittedBy    string        `json:"submittedBy,omitempty"` // authenticated user id
	SubmittedAt    time.Time     `json:"submittedAt"`
}

// Song is one normalized tracklist entry.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Tracklist is the parser's normalized output.
type Tracklist struct {
	Songs []Song `json:"songs"`
}

// StatusRecord is the durable lifecycle record served to polling clients.
// It is mutated only through the status store and superseded by the archive
// record once the job is archived.
type StatusRecord struct {
	JobID        string                             `json:"jobId"`
	Status       JobStatus                          `json:"status"`
	Message      string                             `json:"message,omitempty"`
	Timestamp    time.Time                          `json:"timestamp"`
	Destinations map[Destination]*DestinationResult `json:"destinations,omitempty"`
}

// PublishRequest is the per-destination projection handed to an adapter.
// Each adapter receives its own copy so retry policies can mutate metadata
// between attempts without affecting other destinations.
type PublishRequest struct {
	JobID       string
	AudioPath   string
	ArtworkPath string
	Meta        DestinationMetadata
}

// DestinationMetadata is the metadata projection sent to a destination.
type DestinationMetadata struct {
	Title         string
	Artist        string
	Description   string
	BroadcastDate string
	Genres        []string
	Sharing       Sharing
	ArtworkPath   string
	Tracklist     []Song
}
