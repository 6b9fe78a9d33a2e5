package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"teamsync/internal/logging"
	"teamsync/internal/store"
	"teamsync/internal/types"
)

const stopTimeout = 15 * time.Second

type StopCommand struct {
	wiring commandWiring
}

func NewStopCommand(wiring commandWiring) *StopCommand {
	return &StopCommand{wiring: wiring}
}

func (c *StopCommand) Run(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("stop requires a session id")
	}
	id := strings.TrimSpace(fs.Arg(0))

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	gateway, err := c.wiring.newClient(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := gateway.StopSession(ctx, id); err != nil {
		return err
	}

	if cfg.SessionIndexEnabled() && c.wiring.openIndex != nil {
		logger := c.wiring.newLogger(cfg, c.wiring.stderr)
		repo, err := c.wiring.openIndex(cfg)
		if err != nil {
			logger.Warn("session_index_open_failed", logging.F("error", err))
		} else {
			defer repo.Close()
			recorder := store.NewIndexRecorder(repo.SessionIndex())
			if _, ok, _ := repo.SessionIndex().GetRecord(ctx, id); ok {
				if err := recorder.RecordOutcome(ctx, id, types.RunStatusStopped, "", ""); err != nil {
					logger.Warn("session_index_update_failed", logging.F("session_id", id), logging.F("error", err))
				}
			}
		}
	}
	fmt.Fprintln(c.wiring.stdout, "ok")
	return nil
}
