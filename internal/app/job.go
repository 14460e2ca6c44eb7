package app

import (
	"errors"
	"fmt"
	"time"

	"decouple-tool/internal/apperr"
	"decouple-tool/internal/calibration"

	"github.com/google/uuid"
)

// Job is a single run. It lives only for the duration of the run.
type Job struct {
	ID          uuid.UUID
	Config      Config
	Started     time.Time
	Inputs      []string
	Calibration *calibration.Calibration
	Outputs     []string
	Sheet       string
}

func newJob(cfg Config) *Job {
	return &Job{
		ID:      uuid.New(),
		Config:  cfg,
		Started: time.Now(),
	}
}

// Status is how a run ended.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusDeclined
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusDeclined:
		return "declined"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a run. Exactly one is emitted per run.
type Outcome struct {
	JobID     uuid.UUID
	Status    Status
	OutputDir string
	Outputs   []string
	Sheet     string
	Elapsed   time.Duration
	Err       error
}

// Quiet reports whether the run ended without a failure worth alarming
// the user about.
func (o Outcome) Quiet() bool {
	return o.Status != StatusFailed
}

// Message returns a one-line description for status bars.
func (o Outcome) Message() string {
	switch o.Status {
	case StatusSucceeded:
		return fmt.Sprintf("Done: %d image(s) written to %s", len(o.Outputs), o.OutputDir)
	case StatusDeclined:
		return "Stopped: assignment declined"
	case StatusCancelled:
		return "Operation cancelled"
	default:
		return fmt.Sprintf("Error: %v", o.Err)
	}
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSucceeded
	case errors.Is(err, apperr.ErrCancelled):
		return StatusCancelled
	case errors.Is(err, apperr.ErrDeclined):
		return StatusDeclined
	default:
		return StatusFailed
	}
}
