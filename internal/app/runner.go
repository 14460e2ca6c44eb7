package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"decouple-tool/internal/apperr"
	"decouple-tool/internal/calibration"
	"decouple-tool/internal/correction"
	"decouple-tool/internal/logger"
	"decouple-tool/internal/mosaic"
	"decouple-tool/internal/raster"

	"github.com/rs/zerolog"
)

// Progress bands for the three phases.
const (
	progressMatrix = 0
	progressBatch  = 10
	progressSheet  = 90
	progressDone   = 100
	batchSpan      = progressSheet - progressBatch
)

// EventType identifies runner events.
type EventType int

const (
	// EventProgress carries a Progress.
	EventProgress EventType = iota
	// EventFinished carries the run's Outcome.
	EventFinished
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Progress is a progress update. Percent never decreases within a run.
type Progress struct {
	JobID   string
	Percent int
	Message string
}

// Runner executes at most one job at a time. Listeners are called on the
// worker goroutine.
type Runner struct {
	mu        sync.Mutex
	listeners map[EventType][]EventListener
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}

	confirms chan *ConfirmRequest
	logger   zerolog.Logger
}

// NewRunner creates an idle Runner.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{
		listeners: make(map[EventType][]EventListener),
		confirms:  make(chan *ConfirmRequest),
		logger:    log,
	}
}

// On registers an event listener for the specified event type.
// EventFinished listeners run after the job has released the runner.
func (r *Runner) On(event EventType, listener EventListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[event] = append(r.listeners[event], listener)
}

func (r *Runner) emit(event EventType, data interface{}) {
	r.mu.Lock()
	listeners := r.listeners[event]
	r.mu.Unlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Confirmations delivers the prompts the running job is blocked on. The
// front-end must answer each with Respond or cancel the run.
func (r *Runner) Confirmations() <-chan *ConfirmRequest {
	return r.confirms
}

// Running reports whether a job is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) acquire(cancel context.CancelFunc) (chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, false
	}
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	return r.done, true
}

// finish releases the runner, notifies EventFinished listeners, then
// unblocks Wait. Listeners see Running() == false and may start a new job.
func (r *Runner) finish(done chan struct{}, out Outcome) {
	r.mu.Lock()
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	r.emit(EventFinished, out)
	close(done)
}

// Start launches cfg on a background goroutine. It fails with
// apperr.ErrBusy if a job is already running.
func (r *Runner) Start(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	done, ok := r.acquire(cancel)
	if !ok {
		cancel()
		return apperr.ErrBusy
	}
	go func() {
		out := r.run(ctx, cfg)
		cancel()
		r.finish(done, out)
	}()
	return nil
}

// Run executes cfg on the calling goroutine and returns its outcome.
func (r *Runner) Run(ctx context.Context, cfg Config) (Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done, ok := r.acquire(cancel)
	if !ok {
		return Outcome{}, apperr.ErrBusy
	}
	out := r.run(ctx, cfg)
	cancel()
	r.finish(done, out)
	return out, nil
}

// Cancel stops the running job, if any. A pending confirmation is
// abandoned and the job ends as cancelled.
func (r *Runner) Cancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current job, if any, has finished.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (r *Runner) run(ctx context.Context, cfg Config) Outcome {
	job := newJob(cfg)
	log := r.logger.With().Str("job", job.ID.String()).Logger()
	log.Info().
		Str("rgb", cfg.CalibrationDir).
		Str("input", cfg.InputDir).
		Str("output", cfg.OutputDir).
		Stringer("cache", cfg.CachePolicy).
		Msg("run started")

	tracker := &progressTracker{jobID: job.ID.String(), emit: r.emit}
	err := r.execute(ctx, job, tracker, log)

	out := Outcome{
		JobID:     job.ID,
		Status:    statusOf(err),
		OutputDir: cfg.OutputDir,
		Outputs:   job.Outputs,
		Sheet:     job.Sheet,
		Elapsed:   time.Since(job.Started),
		Err:       err,
	}
	switch out.Status {
	case StatusSucceeded:
		log.Info().Int("images", len(job.Outputs)).Dur("elapsed", out.Elapsed).Msg("run finished")
	case StatusFailed:
		log.Error().Err(err).Msg("run failed")
	default:
		log.Info().Stringer("status", out.Status).Msg("run stopped")
	}
	return out
}

func (r *Runner) execute(ctx context.Context, job *Job, p *progressTracker, log zerolog.Logger) error {
	cfg := job.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureOutputDir(); err != nil {
		return err
	}

	// Phase 1: correction matrix.
	p.report(progressMatrix, "Step 1/3: preparing correction matrix...")
	builder := calibration.NewBuilder(cfg.CachePolicy,
		&rendezvous{jobID: job.ID, requests: r.confirms},
		logger.Component(log, "matrix"))
	builder.BlackLevel = cfg.BlackLevel
	builder.OnImage = func(name string) {
		p.report(progressMatrix, fmt.Sprintf("Reading calibration image: %s ...", name))
	}
	cal, err := builder.Build(ctx, cfg.CalibrationDir)
	if err != nil {
		return err
	}
	job.Calibration = cal
	log.Debug().Bool("cached", cal.FromCache).Str("matrix", cal.Matrix.String()).Msg("matrix ready")

	// Phase 2: batch correction.
	if ctx.Err() != nil {
		return apperr.ErrCancelled
	}
	p.report(progressBatch, "Step 2/3: correcting images...")
	// Writing back into the input folder must not re-correct an earlier
	// contact sheet.
	var skip func(string) bool
	if sameDir(cfg.InputDir, cfg.OutputDir) {
		skip = mosaic.IsSheet
	}
	inputs, err := raster.ListImages(cfg.InputDir, skip)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return &apperr.EmptyInputError{Dir: cfg.InputDir}
	}
	job.Inputs = inputs

	corrector := correction.NewCorrector(cal.Matrix, cfg.BlackLevel, logger.Component(log, "batch"))
	corrector.Progress = func(done, total int, name string) {
		p.report(progressBatch+done*batchSpan/total, fmt.Sprintf("Processed: %s", name))
	}
	job.Outputs, err = corrector.Run(ctx, inputs, cfg.OutputDir)
	if err != nil {
		return err
	}

	// Phase 3: contact sheet.
	if ctx.Err() != nil {
		return apperr.ErrCancelled
	}
	p.report(progressSheet, "Step 3/3: building contact sheet...")
	compositor := mosaic.NewCompositor(logger.Component(log, "mosaic"))
	compositor.Stride = cfg.stride()
	job.Sheet, err = compositor.Compose(ctx, job.Outputs, cfg.OutputDir)
	if err != nil {
		return err
	}
	p.report(progressDone, "Done")
	return nil
}

// progressTracker keeps reported percentages non-decreasing.
type progressTracker struct {
	jobID string
	last  int
	emit  func(EventType, interface{})
}

func (t *progressTracker) report(percent int, msg string) {
	if percent < t.last {
		percent = t.last
	}
	if percent > progressDone {
		percent = progressDone
	}
	t.last = percent
	t.emit(EventProgress, Progress{JobID: t.jobID, Percent: percent, Message: msg})
}

func sameDir(a, b string) bool {
	if ai, err := os.Stat(a); err == nil {
		if bi, err := os.Stat(b); err == nil {
			return os.SameFile(ai, bi)
		}
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
