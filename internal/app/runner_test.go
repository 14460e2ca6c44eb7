package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"decouple-tool/internal/apperr"
	"decouple-tool/internal/calibration"
	"decouple-tool/internal/logger"
	"decouple-tool/internal/mosaic"
	"decouple-tool/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveFlat(t *testing.T, path string, p [3]uint16) {
	t.Helper()
	buf := raster.NewBuffer(30, 30)
	buf.Fill(p)
	require.NoError(t, raster.Save(path, buf))
}

func fixture(t *testing.T, inputs int) Config {
	t.Helper()
	root := t.TempDir()
	cfg := Config{
		CalibrationDir: filepath.Join(root, "RGB"),
		InputDir:       filepath.Join(root, "input"),
		OutputDir:      filepath.Join(root, "output", "nested"),
		CachePolicy:    calibration.Recompute,
	}
	require.NoError(t, os.MkdirAll(cfg.CalibrationDir, 0o755))
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))

	saveFlat(t, filepath.Join(cfg.CalibrationDir, "red.tif"), [3]uint16{500, 50, 50})
	saveFlat(t, filepath.Join(cfg.CalibrationDir, "green.tif"), [3]uint16{50, 500, 50})
	saveFlat(t, filepath.Join(cfg.CalibrationDir, "blue.tif"), [3]uint16{50, 50, 500})
	for i := 0; i < inputs; i++ {
		saveFlat(t, filepath.Join(cfg.InputDir, fmt.Sprintf("shot%02d.tif", i)), [3]uint16{500, 500, 500})
	}
	return cfg
}

// answer replies to every prompt with ok until ctx is done.
func answer(ctx context.Context, r *Runner, ok bool) *[]calibration.Prompt {
	var mu sync.Mutex
	seen := &[]calibration.Prompt{}
	go func() {
		for {
			select {
			case req := <-r.Confirmations():
				mu.Lock()
				*seen = append(*seen, req.Prompt)
				mu.Unlock()
				req.Respond(ok)
			case <-ctx.Done():
				return
			}
		}
	}()
	return seen
}

type recorder struct {
	mu       sync.Mutex
	progress []Progress
	outcomes []Outcome
}

func record(r *Runner) *recorder {
	rec := &recorder{}
	r.On(EventProgress, func(data interface{}) {
		rec.mu.Lock()
		rec.progress = append(rec.progress, data.(Progress))
		rec.mu.Unlock()
	})
	r.On(EventFinished, func(data interface{}) {
		rec.mu.Lock()
		rec.outcomes = append(rec.outcomes, data.(Outcome))
		rec.mu.Unlock()
	})
	return rec
}

func TestRunEndToEnd(t *testing.T) {
	cfg := fixture(t, 3)
	r := NewRunner(logger.Nop())
	rec := record(r)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	answer(ctx, r, true)

	out, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Equal(t, cfg.OutputDir, out.OutputDir)
	assert.Len(t, out.Outputs, 3)
	assert.Equal(t, filepath.Join(cfg.OutputDir, mosaic.SheetName), out.Sheet)

	got, err := raster.Load(filepath.Join(cfg.OutputDir, "shot00.tif"))
	require.NoError(t, err)
	for _, v := range got.Pixel(15, 15) {
		assert.InDelta(t, 500, int(v), 1)
	}

	require.Len(t, rec.outcomes, 1)
	require.NotEmpty(t, rec.progress)
	last := -1
	for _, p := range rec.progress {
		assert.GreaterOrEqual(t, p.Percent, last)
		last = p.Percent
	}
	assert.Equal(t, 0, rec.progress[0].Percent)
	assert.Equal(t, 100, last)
	assert.Equal(t, "Done", rec.progress[len(rec.progress)-1].Message)

	var percents []int
	for _, p := range rec.progress {
		percents = append(percents, p.Percent)
	}
	assert.Contains(t, percents, 10)
	assert.Contains(t, percents, 36)
	assert.Contains(t, percents, 63)
	assert.Contains(t, percents, 90)

	_, err = os.Stat(filepath.Join(cfg.CalibrationDir, calibration.CacheFileName))
	assert.NoError(t, err)
}

func TestRunReusesCacheWhenAsked(t *testing.T) {
	cfg := fixture(t, 2)
	r := NewRunner(logger.Nop())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	seen := answer(ctx, r, true)

	_, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, *seen, 1)

	cfg.CachePolicy = calibration.AskCaller
	out, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, out.Status)
	require.Len(t, *seen, 2)
	assert.Equal(t, calibration.PromptReuseCache, (*seen)[1].Kind)
}

func TestRunDeclined(t *testing.T) {
	cfg := fixture(t, 2)
	r := NewRunner(logger.Nop())
	rec := record(r)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	answer(ctx, r, false)

	out, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, out.Status)
	assert.ErrorIs(t, out.Err, apperr.ErrDeclined)
	assert.True(t, out.Quiet())
	assert.Len(t, rec.outcomes, 1)

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStartBusyAndCancel(t *testing.T) {
	cfg := fixture(t, 2)
	r := NewRunner(logger.Nop())
	rec := record(r)

	require.NoError(t, r.Start(context.Background(), cfg))
	assert.True(t, r.Running())

	// Nobody answers, so the job parks at the confirmation prompt.
	var req *ConfirmRequest
	select {
	case req = <-r.Confirmations():
	case <-time.After(10 * time.Second):
		t.Fatal("no confirmation request")
	}
	assert.Equal(t, calibration.PromptAssignment, req.Kind)

	assert.ErrorIs(t, r.Start(context.Background(), cfg), apperr.ErrBusy)
	_, err := r.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, apperr.ErrBusy)

	r.Cancel()
	r.Wait()
	assert.False(t, r.Running())

	// A late answer is ignored.
	req.Respond(true)

	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, StatusCancelled, rec.outcomes[0].Status)
	assert.True(t, rec.outcomes[0].Quiet())
	_, statErr := os.Stat(filepath.Join(cfg.CalibrationDir, calibration.CacheFileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFinishedListenerCanStartNextRun(t *testing.T) {
	r := NewRunner(logger.Nop())

	var (
		mu       sync.Mutex
		calls    int
		running  bool
		startErr error
	)
	r.On(EventFinished, func(interface{}) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			running = r.Running()
			startErr = r.Start(context.Background(), Config{})
		}
	})

	out, err := r.Run(context.Background(), Config{})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, running)
	assert.NoError(t, startErr)
	assert.Equal(t, 2, calls)
	assert.False(t, r.Running())
}

func TestRunCorrectsSheetNamedInputs(t *testing.T) {
	cfg := fixture(t, 2)
	saveFlat(t, filepath.Join(cfg.InputDir, "contactsheet_scan.tif"), [3]uint16{500, 500, 500})
	r := NewRunner(logger.Nop())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	answer(ctx, r, true)

	out, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.Len(t, out.Outputs, 3)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "contactsheet_scan.tif"))
}

func TestRunInPlaceSkipsOldSheet(t *testing.T) {
	cfg := fixture(t, 2)
	cfg.OutputDir = cfg.InputDir
	saveFlat(t, filepath.Join(cfg.InputDir, mosaic.SheetName), [3]uint16{1, 2, 3})
	r := NewRunner(logger.Nop())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	answer(ctx, r, true)

	out, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.Len(t, out.Outputs, 2)
}

func TestRunConfigError(t *testing.T) {
	r := NewRunner(logger.Nop())
	out, err := r.Run(context.Background(), Config{CalibrationDir: "x", InputDir: " "})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.False(t, out.Quiet())

	var cErr *apperr.ConfigError
	require.ErrorAs(t, out.Err, &cErr)
	assert.Equal(t, "input", cErr.Field)
}

func TestRunEmptyInput(t *testing.T) {
	cfg := fixture(t, 0)
	cfg.CachePolicy = calibration.Recompute
	r := NewRunner(logger.Nop())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	answer(ctx, r, true)

	out, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	var eErr *apperr.EmptyInputError
	require.ErrorAs(t, out.Err, &eErr)
	assert.Equal(t, cfg.InputDir, eErr.Dir)
	assert.Contains(t, out.Message(), "no TIFF images")
}

func TestRunSingleInputSkipsSheet(t *testing.T) {
	cfg := fixture(t, 1)
	r := NewRunner(logger.Nop())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	answer(ctx, r, true)

	out, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Empty(t, out.Sheet)
}

func TestProgressTrackerNeverDecreases(t *testing.T) {
	var got []int
	p := &progressTracker{emit: func(_ EventType, data interface{}) {
		got = append(got, data.(Progress).Percent)
	}}
	p.report(10, "")
	p.report(5, "")
	p.report(50, "")
	p.report(120, "")
	assert.Equal(t, []int{10, 10, 50, 100}, got)
}

func TestOutcomeMessage(t *testing.T) {
	assert.Equal(t, "Operation cancelled", Outcome{Status: StatusCancelled}.Message())
	assert.Contains(t, Outcome{Status: StatusSucceeded, OutputDir: "/o", Outputs: []string{"a"}}.Message(), "/o")
	assert.Equal(t, StatusDeclined, statusOf(fmt.Errorf("x: %w", apperr.ErrDeclined)))
}
