package main

import (
	"io"
	"os"

	"teamsync/internal/app"
	"teamsync/internal/config"
	"teamsync/internal/logging"
	"teamsync/internal/store"
)

type commandRunner interface {
	Run(args []string) error
}

type indexFactory func(cfg config.CoreConfig) (store.Repository, error)

type uiRunner func(api app.SessionAPI, opts ...app.Option) error

type commandWiring struct {
	stdout             io.Writer
	stderr             io.Writer
	stdin              io.Reader
	loadConfig         func() (config.CoreConfig, error)
	newClient          clientFactory
	openIndex          indexFactory
	newLogger          func(cfg config.CoreConfig, out io.Writer) logging.Logger
	configureUILogging func(cfg config.CoreConfig) (logging.Logger, func(), error)
	runUI              uiRunner
}

func defaultCommandWiring(stdout, stderr io.Writer, stdin io.Reader) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	return commandWiring{
		stdout:             stdout,
		stderr:             stderr,
		stdin:              stdin,
		loadConfig:         config.LoadCoreConfig,
		newClient:          newTeamsClient,
		openIndex:          openSessionIndex,
		newLogger:          newCommandLogger,
		configureUILogging: configureUILogging,
		runUI:              app.Run,
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"run":            NewRunCommand(wiring),
		"watch":          NewWatchCommand(wiring),
		"ui":             NewUICommand(wiring),
		"stop":           NewStopCommand(wiring),
		"history":        NewHistoryCommand(wiring),
		"config":         NewConfigCommand(wiring),
		"debug-messages": NewDebugMessagesCommand(wiring),
	}
}
