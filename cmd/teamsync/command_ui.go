package main

import (
	"context"
	"flag"
	"strings"

	"teamsync/internal/app"
)

type UICommand struct {
	wiring commandWiring
}

func NewUICommand(wiring commandWiring) *UICommand {
	return &UICommand{wiring: wiring}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	team := fs.String("team", "", "team id (defaults to [api].team_id)")
	attach := fs.String("session", "", "follow an existing session instead of starting one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	var closers []func()
	opts := runtimeOptions{teamID: *team, requireTeam: strings.TrimSpace(*attach) == ""}
	if c.wiring.configureUILogging != nil {
		logger, closeLog, err := c.wiring.configureUILogging(cfg)
		if err == nil {
			opts.logger = logger
			closers = append(closers, closeLog)
		}
	}
	rt, err := newSessionRuntime(c.wiring, opts)
	if err != nil {
		for _, closeFn := range closers {
			closeFn()
		}
		return err
	}
	rt.closers = append(rt.closers, closers...)
	defer rt.Close()

	if id := strings.TrimSpace(*attach); id != "" {
		if err := rt.controller.Attach(context.Background(), id); err != nil {
			return err
		}
	}

	uiOpts := []app.Option{
		app.WithMarkdown(rt.cfg.MarkdownEnabled()),
		app.WithInitialMessage(message),
	}
	if rt.cfg.UI.Dark != nil {
		uiOpts = append(uiOpts, app.WithDarkBackground(rt.cfg.DarkBackground()))
	}
	return c.wiring.runUI(rt.controller, uiOpts...)
}
