package model

// DestinationResult is the normalized outcome reported by every adapter.
// A failed result carries the protocol step that failed; it never fails the
// job itself.
type DestinationResult struct {
	Destination        Destination `json:"destination"`
	Success            bool        `json:"success"`
	ID                 string      `json:"id,omitempty"`
	URL                string      `json:"url,omitempty"`
	Error              string      `json:"error,omitempty"`
	Step               string      `json:"step,omitempty"`
	Note               string      `json:"note,omitempty"`
	SimplifiedMetadata bool        `json:"simplifiedMetadata,omitempty"`
	Attempts           int         `json:"attempts,omitempty"`
}
