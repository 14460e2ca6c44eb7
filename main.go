// Package main provides the entry point for the Crosstalk Decoupler desktop application.
package main

import (
	"flag"

	"decouple-tool/internal/app"
	"decouple-tool/internal/logger"
	"decouple-tool/internal/raster/cvdecode"
	"decouple-tool/internal/version"
	"decouple-tool/ui/mainwindow"
	"decouple-tool/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const appID = "io.github.decouple-tool"

func main() {
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error (default: $LOG_LEVEL)")
	flag.Parse()

	level := logger.LevelFromEnv()
	if *logLevel != "" {
		level = logger.ParseLevel(*logLevel)
	}
	log := logger.NewConsole(level)
	log.Info().Str("version", version.Version).Msg("starting")

	cvdecode.Register()

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.DecoupleTheme{})

	runner := app.NewRunner(log)
	win := mainwindow.New(fyneApp, runner, prefs.Load(), log)
	win.ShowAndRun()
}
