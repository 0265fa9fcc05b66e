package model

// Job status lifecycle
type JobStatus string

const (
	JobStatusReceived       JobStatus = "received"
	JobStatusProcessing     JobStatus = "processing"
	JobStatusSongsConfirmed JobStatus = "songs_confirmed"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusError          JobStatus = "error"
)

var ValidJobStatuses = []JobStatus{
	JobStatusReceived, JobStatusProcessing, JobStatusSongsConfirmed,
	JobStatusCompleted, JobStatusError,
}

// IsTerminal reports whether the status ends the job's lifecycle.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Destination platforms
type Destination string

const (
	DestinationAzuraCast  Destination = "azuracast"
	DestinationMixcloud   Destination = "mixcloud"
	DestinationSoundCloud Destination = "soundcloud"
)

var ValidDestinations = []Destination{
	DestinationAzuraCast, DestinationMixcloud, DestinationSoundCloud,
}

// Protocol steps reported on a failed DestinationResult
const (
	StepUpload   = "upload"
	StepMetadata = "metadata"
	StepPlaylist = "playlist"
)

// Sharing visibility for destinations that support it
type Sharing string

const (
	SharingPublic  Sharing = "public"
	SharingPrivate Sharing = "private"
)
