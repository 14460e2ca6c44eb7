package app

import (
	"context"
	"sync"

	"decouple-tool/internal/apperr"
	"decouple-tool/internal/calibration"

	"github.com/google/uuid"
)

// ConfirmRequest is a question from the worker that the front-end must
// answer with Respond.
type ConfirmRequest struct {
	calibration.Prompt
	JobID uuid.UUID

	reply chan bool
	once  sync.Once
}

// Respond delivers the answer. Only the first call has any effect.
func (r *ConfirmRequest) Respond(ok bool) {
	r.once.Do(func() {
		r.reply <- ok
	})
}

// rendezvous hands prompts to the front-end and blocks for the answer.
type rendezvous struct {
	jobID    uuid.UUID
	requests chan<- *ConfirmRequest
}

// Confirm implements calibration.Confirmer.
func (z *rendezvous) Confirm(ctx context.Context, p calibration.Prompt) (bool, error) {
	req := &ConfirmRequest{
		Prompt: p,
		JobID:  z.jobID,
		reply:  make(chan bool, 1),
	}

	select {
	case z.requests <- req:
	case <-ctx.Done():
		return false, apperr.ErrCancelled
	}

	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, apperr.ErrCancelled
	}
}
