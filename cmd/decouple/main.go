// Command decouple runs the crosstalk correction from the command line.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"decouple-tool/internal/app"
	"decouple-tool/internal/calibration"
	"decouple-tool/internal/logger"
	"decouple-tool/internal/mosaic"
	"decouple-tool/internal/raster/cvdecode"
	"decouple-tool/internal/version"
	"decouple-tool/ui/prefs"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v2"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailed    = 1
	exitUsage     = 2
	exitCancelled = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	rgbDir := flag.String("rgb", "", "Calibration folder with exactly 3 TIFF images (default: last used)")
	inputDir := flag.String("input", "", "Folder of TIFF images to correct (default: last used)")
	outputDir := flag.String("output", "", "Folder for corrected images (default: last used)")
	black := flag.Float64("black", 0, "Black level subtracted from every sample")
	stride := flag.Int("stride", mosaic.DefaultStride, "Contact sheet downsampling step")
	cache := flag.String("cache", "ask", "Cached matrix policy: ask, use or recompute")
	yes := flag.Bool("yes", false, "Answer yes to every prompt")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error (default: $LOG_LEVEL)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("decouple"))
		return exitOK
	}

	level := logger.LevelFromEnv()
	if *logLevel != "" {
		level = logger.ParseLevel(*logLevel)
	}
	log := logger.NewConsole(level)

	policy, err := calibration.ParseCachePolicy(*cache)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	p := prefs.Load()
	folders := p.Folders()
	if *rgbDir != "" {
		folders.RGB = *rgbDir
	}
	if *inputDir != "" {
		folders.Input = *inputDir
	}
	if *outputDir != "" {
		folders.Output = *outputDir
	}

	cfg := app.Config{
		CalibrationDir: folders.RGB,
		InputDir:       folders.Input,
		OutputDir:      folders.Output,
		BlackLevel:     *black,
		CachePolicy:    policy,
		MosaicStride:   *stride,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	p.SetFolders(folders)
	if err := p.Save(); err != nil {
		log.Warn().Err(err).Str("path", p.Path()).Msg("could not save preferences")
	}

	cvdecode.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := app.NewRunner(log)
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("decouple"),
		progressbar.OptionSetRenderBlankState(true),
	)
	runner.On(app.EventProgress, func(data interface{}) {
		if pr, ok := data.(app.Progress); ok {
			_ = bar.Set(pr.Percent)
			log.Debug().Int("percent", pr.Percent).Msg(pr.Message)
		}
	})

	go answerPrompts(ctx, runner, os.Stdin, os.Stderr, *yes, log)

	out, err := runner.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}
	fmt.Fprintln(os.Stderr)

	switch out.Status {
	case app.StatusSucceeded:
		fmt.Println(out.Message())
		if out.Sheet != "" {
			fmt.Printf("Contact sheet: %s\n", out.Sheet)
		}
		return exitOK
	case app.StatusCancelled:
		fmt.Fprintln(os.Stderr, out.Message())
		return exitCancelled
	case app.StatusDeclined:
		fmt.Fprintln(os.Stderr, out.Message())
		return exitOK
	default:
		fmt.Fprintln(os.Stderr, out.Message())
		return exitFailed
	}
}

// answerPrompts answers the runner's confirmation requests from in, or
// with yes when assumeYes is set.
func answerPrompts(ctx context.Context, r *app.Runner, in io.Reader, out io.Writer, assumeYes bool, log zerolog.Logger) {
	reader := bufio.NewReader(in)
	for {
		select {
		case req := <-r.Confirmations():
			fmt.Fprintf(out, "\n%s\n%s\n", req.Title, req.Message)
			if assumeYes {
				fmt.Fprintln(out, "[y/N] y (-yes)")
				req.Respond(true)
				continue
			}
			fmt.Fprint(out, "[y/N] ")
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				log.Debug().Err(err).Msg("no answer on stdin")
				req.Respond(false)
				continue
			}
			answer := strings.ToLower(strings.TrimSpace(line))
			req.Respond(answer == "y" || answer == "yes")
		case <-ctx.Done():
			return
		}
	}
}
