// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"decouple-tool/internal/app"
	"decouple-tool/internal/apperr"
	"decouple-tool/internal/calibration"
	"decouple-tool/internal/logger"
	"decouple-tool/internal/mosaic"
	"decouple-tool/internal/version"
	"decouple-tool/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
)

const windowTitle = "Crosstalk Decoupler"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	runner *app.Runner
	prefs  *prefs.Prefs
	logger zerolog.Logger

	rgbEntry    *widget.Entry
	inputEntry  *widget.Entry
	outputEntry *widget.Entry
	progress    *widget.ProgressBar
	statusBar   *widget.Label
	actionBtn   *widget.Button

	running bool
	pending *dialog.ConfirmDialog
	quit    chan struct{}
}

// New creates a new main window.
func New(fyneApp fyne.App, runner *app.Runner, p *prefs.Prefs, log zerolog.Logger) *MainWindow {
	win := fyneApp.NewWindow(windowTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		runner: runner,
		prefs:  p,
		logger: logger.Component(log, "gui"),
		quit:   make(chan struct{}),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	go mw.serveConfirmations()

	mw.SetOnClosed(func() {
		mw.runner.Cancel()
		close(mw.quit)
	})
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	folders := mw.prefs.Folders()
	mw.rgbEntry = widget.NewEntry()
	mw.rgbEntry.SetText(folders.RGB)
	mw.inputEntry = widget.NewEntry()
	mw.inputEntry.SetText(folders.Input)
	mw.outputEntry = widget.NewEntry()
	mw.outputEntry.SetText(folders.Output)

	form := container.NewVBox(
		mw.folderRow("Calibration (RGB):", mw.rgbEntry),
		mw.folderRow("Input:", mw.inputEntry),
		mw.folderRow("Output:", mw.outputEntry),
	)

	mw.progress = widget.NewProgressBar()
	mw.progress.Max = 100
	mw.statusBar = widget.NewLabel("Ready")

	mw.actionBtn = widget.NewButton("Start", mw.onAction)
	mw.actionBtn.Importance = widget.HighImportance

	content := container.NewVBox(
		form,
		mw.actionBtn,
		mw.progress,
		container.NewPadded(mw.statusBar),
	)
	mw.SetContent(container.NewPadded(content))
	mw.Resize(fyne.NewSize(640, 280))
}

// folderRow lays out label | entry | Browse with the entry taking the spare width.
func (mw *MainWindow) folderRow(label string, entry *widget.Entry) fyne.CanvasObject {
	return container.NewBorder(nil, nil, widget.NewLabel(label), mw.browseButton(entry), entry)
}

// browseButton opens a folder picker that fills entry.
func (mw *MainWindow) browseButton(entry *widget.Entry) *widget.Button {
	return widget.NewButton("Browse...", func() {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			entry.SetText(uri.Path())
		}, mw.Window)
		if loc := listable(entry.Text); loc != nil {
			fd.SetLocation(loc)
		}
		fd.Show()
	})
}

// listable returns path as a ListableURI, or nil.
func listable(path string) fyne.ListableURI {
	if path == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	l, err := storage.ListerForURI(storage.NewFileURI(abs))
	if err != nil {
		return nil
	}
	return l
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Output Folder", func() { mw.openFolder(mw.outputEntry.Text) }),
	)
	toolsMenu := fyne.NewMenu("Tools",
		fyne.NewMenuItem("Rebuild Contact Sheet", mw.onRebuildSheet),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, toolsMenu, helpMenu))
}

// setupEventHandlers registers for runner events. Listeners run on the
// worker goroutine, so widget updates go through fyne.Do.
func (mw *MainWindow) setupEventHandlers() {
	mw.runner.On(app.EventProgress, func(data interface{}) {
		p, ok := data.(app.Progress)
		if !ok {
			return
		}
		fyne.Do(func() {
			mw.progress.SetValue(float64(p.Percent))
			mw.updateStatus(p.Message)
		})
	})

	mw.runner.On(app.EventFinished, func(data interface{}) {
		out, ok := data.(app.Outcome)
		if !ok {
			return
		}
		fyne.Do(func() { mw.onFinished(out) })
	})
}

// serveConfirmations shows a yes/no dialog for every prompt the worker
// blocks on.
func (mw *MainWindow) serveConfirmations() {
	for {
		select {
		case req := <-mw.runner.Confirmations():
			fyne.Do(func() {
				d := dialog.NewConfirm(req.Title, req.Message, func(ok bool) {
					mw.pending = nil
					req.Respond(ok)
				}, mw.Window)
				if req.Kind == calibration.PromptReuseCache {
					d.SetConfirmText("Use cache")
					d.SetDismissText("Recompute")
				}
				mw.pending = d
				d.Show()
			})
		case <-mw.quit:
			return
		}
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) setRunning(running bool) {
	mw.running = running
	for _, e := range []*widget.Entry{mw.rgbEntry, mw.inputEntry, mw.outputEntry} {
		if running {
			e.Disable()
		} else {
			e.Enable()
		}
	}
	mw.actionBtn.Enable()
	if running {
		mw.actionBtn.SetText("Stop")
		mw.actionBtn.Importance = widget.DangerImportance
		mw.progress.SetValue(0)
	} else {
		mw.actionBtn.SetText("Start")
		mw.actionBtn.Importance = widget.HighImportance
	}
	mw.actionBtn.Refresh()
}

func (mw *MainWindow) onAction() {
	if mw.running {
		mw.updateStatus("Stopping...")
		mw.actionBtn.Disable()
		mw.runner.Cancel()
		return
	}
	mw.onStart()
}

func (mw *MainWindow) onStart() {
	folders := prefs.Folders{
		RGB:    mw.rgbEntry.Text,
		Input:  mw.inputEntry.Text,
		Output: mw.outputEntry.Text,
	}
	cfg := app.Config{
		CalibrationDir: folders.RGB,
		InputDir:       folders.Input,
		OutputDir:      folders.Output,
		BlackLevel:     mw.prefs.FloatWithFallback(prefs.KeyBlack, 0),
		CachePolicy:    calibration.AskCaller,
	}
	if err := cfg.Validate(); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	mw.prefs.SetFolders(folders)
	if err := mw.prefs.Save(); err != nil {
		mw.logger.Warn().Err(err).Str("path", mw.prefs.Path()).Msg("could not save preferences")
	}

	if err := mw.runner.Start(context.Background(), cfg); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.setRunning(true)
}

func (mw *MainWindow) onFinished(out app.Outcome) {
	if mw.pending != nil {
		mw.pending.Hide()
		mw.pending = nil
	}
	mw.setRunning(false)

	switch out.Status {
	case app.StatusSucceeded:
		mw.updateStatus("Ready")
		dialog.ShowInformation("Done", "Processing complete.", mw.Window)
		mw.openFolder(out.OutputDir)
	case app.StatusFailed:
		mw.updateStatus("Ready")
		dialog.ShowError(fmt.Errorf("an error occurred:\n%w", out.Err), mw.Window)
	default:
		mw.updateStatus(out.Message())
	}
}

// openFolder shows dir in the platform file manager.
func (mw *MainWindow) openFolder(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return
	}
	u, err := url.Parse(storage.NewFileURI(abs).String())
	if err != nil {
		return
	}
	if err := mw.app.OpenURL(u); err != nil {
		mw.logger.Warn().Err(err).Str("dir", abs).Msg("could not open folder")
	}
}

func (mw *MainWindow) onRebuildSheet() {
	if mw.running {
		dialog.ShowError(apperr.ErrBusy, mw.Window)
		return
	}
	dir := mw.outputEntry.Text
	mw.updateStatus("Building contact sheet...")
	go func() {
		out, err := mosaic.NewCompositor(mw.logger).ComposeDir(context.Background(), dir)
		fyne.Do(func() {
			switch {
			case err != nil:
				mw.updateStatus("Ready")
				dialog.ShowError(err, mw.Window)
			case out == "":
				mw.updateStatus("Not enough images for a contact sheet")
			default:
				mw.updateStatus("Contact sheet written: " + out)
			}
		})
	}()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+windowTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"Blind colour-crosstalk correction for 16-bit TIFF images.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			windowTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
