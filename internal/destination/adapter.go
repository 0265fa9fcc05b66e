// Package destination implements the per-platform upload adapters. Each
// adapter translates the orchestrator's generic publish request into its
// platform's protocol, applies that platform's retry/recovery policy through
// the shared retry engine, and reports a normalized DestinationResult.
// Adapter failures are data, never pipeline faults.
package destination

import (
	"context"
	"errors"
	"fmt"

	"github.com/mixramp/publisher/internal/model"
)

// Adapter is what the orchestrator fans out to.
type Adapter interface {
	Name() model.Destination
	Publish(ctx context.Context, req *model.PublishRequest) *model.DestinationResult
}

// stepError tags an error with the protocol stage it originated from, so
// retry logging and the final DestinationResult can name the failing step.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string {
	return fmt.Sprintf("%s: %v", e.step, e.err)
}

func (e *stepError) Unwrap() error {
	return e.err
}

// stepOf extracts the protocol stage from an error chain.
func stepOf(err error) string {
	var se *stepError
	if errors.As(err, &se) {
		return se.step
	}
	return ""
}

// rootError strips the step tag for user-facing messages.
func rootError(err error) string {
	var se *stepError
	if errors.As(err, &se) {
		return se.err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
