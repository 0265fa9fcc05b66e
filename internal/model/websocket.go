package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
)

// WSProgressMessage reports a per-destination publishing update.
type WSProgressMessage struct {
	Type        string             `json:"type"`
	JobID       string             `json:"jobId"`
	Status      JobStatus          `json:"status"`
	Destination Destination        `json:"destination,omitempty"`
	Result      *DestinationResult `json:"result,omitempty"`
	Step        string             `json:"step,omitempty"`
}

// WSCompleteMessage carries the terminal status record.
type WSCompleteMessage struct {
	Type   string        `json:"type"`
	JobID  string        `json:"jobId"`
	Record *StatusRecord `json:"record"`
}

// WSErrorMessage reports a terminal orchestrator fault.
type WSErrorMessage struct {
	Type    string `json:"type"`
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}
