package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
)

type WatchCommand struct {
	wiring commandWiring
}

func NewWatchCommand(wiring commandWiring) *WatchCommand {
	return &WatchCommand{wiring: wiring}
}

func (c *WatchCommand) Run(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	interval := fs.Duration("interval", 0, "poll interval (defaults to [polling].interval)")
	readOnly := fs.Bool("read-only", false, "do not answer questions from stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("watch requires a session id")
	}
	id := strings.TrimSpace(fs.Arg(0))

	rt, err := newSessionRuntime(c.wiring, runtimeOptions{interval: *interval})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rt.controller.Attach(ctx, id); err != nil {
		return err
	}
	opts := followOptions{out: c.wiring.stdout, errOut: c.wiring.stderr}
	if !*readOnly {
		opts.in = c.wiring.stdin
	}
	return followSession(ctx, rt.controller, opts)
}
