package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"strings"
	"time"

	"teamsync/internal/types"
)

const debugFetchTimeout = 30 * time.Second

type DebugMessagesCommand struct {
	wiring commandWiring
}

func NewDebugMessagesCommand(wiring commandWiring) *DebugMessagesCommand {
	return &DebugMessagesCommand{wiring: wiring}
}

type debugMessagesOutput struct {
	SessionID  string                `json:"session_id"`
	TotalCount int                   `json:"total_count"`
	Messages   []types.MessageRecord `json:"messages"`
}

func (c *DebugMessagesCommand) Run(args []string) error {
	fs := flag.NewFlagSet("debug-messages", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	skip := fs.Int("skip", 0, "records to skip")
	limit := fs.Int("limit", 500, "maximum records to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("debug-messages requires a session id")
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
	ctx, cancel := context.WithTimeout(context.Background(), debugFetchTimeout)
	defer cancel()
	page, err := gateway.GetDebugMessages(ctx, id, *skip, *limit)
	if err != nil {
		return err
	}
	out := debugMessagesOutput{SessionID: id, TotalCount: page.TotalCount, Messages: page.Messages}
	if out.Messages == nil {
		out.Messages = []types.MessageRecord{}
	}
	encoder := json.NewEncoder(c.wiring.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
