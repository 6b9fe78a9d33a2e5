package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
)

type RunCommand struct {
	wiring commandWiring
}

func NewRunCommand(wiring commandWiring) *RunCommand {
	return &RunCommand{wiring: wiring}
}

func (c *RunCommand) Run(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	team := fs.String("team", "", "team id (defaults to [api].team_id)")
	interval := fs.Duration("interval", 0, "poll interval (defaults to [polling].interval)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		return errors.New("run requires a message")
	}

	rt, err := newSessionRuntime(c.wiring, runtimeOptions{teamID: *team, interval: *interval, requireTeam: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rt.controller.Start(ctx, message); err != nil {
		return err
	}
	return followSession(ctx, rt.controller, followOptions{
		out:    c.wiring.stdout,
		errOut: c.wiring.stderr,
		in:     c.wiring.stdin,
	})
}
