package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"

	"teamsync/internal/config"
	"teamsync/internal/logging"
	"teamsync/internal/session"
	"teamsync/internal/store"
	"teamsync/internal/types"
)

const (
	promptColumnWidth = 48
	historyTimeFormat = "2006-01-02 15:04"
)

var errTeamRequired = errors.New("team id is required: pass --team or set [api].team_id / TEAMSYNC_TEAM_ID")

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func newCommandLogger(cfg config.CoreConfig, out io.Writer) logging.Logger {
	level := logging.ParseLevel(cfg.LogLevel())
	if cfg.LogFormat() == "json" {
		return logging.NewJSON(out, level)
	}
	return logging.New(out, level)
}

// configureUILogging sends logs to the data dir log file while the terminal
// UI owns the screen.
func configureUILogging(cfg config.CoreConfig) (logging.Logger, func(), error) {
	logPath, err := config.LogPath()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return newCommandLogger(cfg, file), func() { _ = file.Close() }, nil
}

func openSessionIndex(cfg config.CoreConfig) (store.Repository, error) {
	path, err := cfg.ResolveSessionIndexPath()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.StoreBackend(), path)
}

// sessionRuntime is one controller with its gateway, logger and optional
// session index.
type sessionRuntime struct {
	cfg        config.CoreConfig
	gateway    commandClient
	controller *session.Controller
	logger     logging.Logger
	repo       store.Repository
	closers    []func()
}

type runtimeOptions struct {
	teamID      string
	interval    time.Duration
	requireTeam bool
	logger      logging.Logger
}

func newSessionRuntime(wiring commandWiring, opts runtimeOptions) (*sessionRuntime, error) {
	cfg, err := wiring.loadConfig()
	if err != nil {
		return nil, err
	}
	teamID := strings.TrimSpace(opts.teamID)
	if teamID == "" {
		teamID = cfg.TeamID()
	}
	if teamID == "" && opts.requireTeam {
		return nil, errTeamRequired
	}
	gateway, err := wiring.newClient(cfg)
	if err != nil {
		return nil, err
	}
	logger := opts.logger
	if logger == nil {
		logger = wiring.newLogger(cfg, wiring.stderr)
	}
	rt := &sessionRuntime{cfg: cfg, gateway: gateway, logger: logger}

	interval := opts.interval
	if interval <= 0 {
		interval = cfg.PollInterval()
	}
	controllerOpts := []session.Option{session.WithLogger(logger)}
	if cfg.SessionIndexEnabled() && wiring.openIndex != nil {
		repo, err := wiring.openIndex(cfg)
		if err != nil {
			logger.Warn("session_index_open_failed", logging.F("error", err))
		} else {
			rt.repo = repo
			controllerOpts = append(controllerOpts, session.WithRecorder(store.NewIndexRecorder(repo.SessionIndex())))
		}
	}
	rt.controller = session.NewController(gateway, teamID, interval, controllerOpts...)
	return rt, nil
}

func (r *sessionRuntime) Close() {
	if r == nil {
		return
	}
	if r.controller != nil {
		r.controller.Close()
	}
	if r.repo != nil {
		_ = r.repo.Close()
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func printHistory(output io.Writer, records []*types.SessionRecord) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "SESSION\tSTATUS\tTEAM\tCREATED\tPROMPT")
	for _, record := range records {
		status := string(record.Status)
		if status == "" {
			status = "-"
		}
		if record.Attached {
			status += "*"
		}
		team := record.TeamID
		if team == "" {
			team = "-"
		}
		created := "-"
		if !record.CreatedAt.IsZero() {
			created = record.CreatedAt.Local().Format(historyTimeFormat)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", record.SessionID, status, team, created, truncateColumn(record.Prompt, promptColumnWidth))
	}
	_ = writer.Flush()
}

// truncateColumn flattens text to one line and cuts it to width cells.
func truncateColumn(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "-"
	}
	return runewidth.Truncate(text, width, "…")
}
