package main

import (
	"context"

	"teamsync/internal/client"
	"teamsync/internal/config"
	"teamsync/internal/session"
)

var _ session.Gateway = (*client.Client)(nil)

type clientFactory func(cfg config.CoreConfig) (commandClient, error)

// commandClient is the gateway plus the extra calls the CLI makes directly.
type commandClient interface {
	session.Gateway
	GetDebugMessages(ctx context.Context, sessionID string, skip, limit int) (*client.MessagesPage, error)
}

func newTeamsClient(cfg config.CoreConfig) (commandClient, error) {
	c, err := client.New(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}
