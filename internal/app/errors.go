package app

import (
	"errors"
	"fmt"

	"pitchcast/pkg/domain"
)

var (
	// ErrCampaignNotFound indicates the campaign id resolves to nothing.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrVideoNotFound indicates the video id resolves to nothing.
	ErrVideoNotFound = errors.New("video not found")
)

// InvalidStageError reports a status precondition that did not hold: either a
// duplicate invocation or a caller logic error. The operation performed no
// side effects.
type InvalidStageError struct {
	Op     string
	Status domain.CampaignStatus
}

func (e *InvalidStageError) Error() string {
	return fmt.Sprintf("%s: campaign status %q does not match any runnable stage", e.Op, e.Status)
}

// AdapterError wraps an external-service failure with the provider role that
// produced it.
type AdapterError struct {
	Provider string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// StageError names the pipeline stage that failed. Earlier stages' persisted
// progress is kept.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ValidationError reports a malformed recipient row.
type ValidationError struct {
	Row   int
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: missing required field %q", e.Row, e.Field)
}
