package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"
)

type HistoryCommand struct {
	wiring commandWiring
}

func NewHistoryCommand(wiring commandWiring) *HistoryCommand {
	return &HistoryCommand{wiring: wiring}
}

func (c *HistoryCommand) Run(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	limit := fs.Int("limit", 20, "maximum rows to print (0 for all)")
	asJSON := fs.Bool("json", false, "print records as JSON")
	remove := fs.String("delete", "", "remove a session from the local index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.SessionIndexEnabled() {
		return errors.New("session index is disabled ([store].disabled)")
	}
	repo, err := c.wiring.openIndex(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := context.Background()
	if id := strings.TrimSpace(*remove); id != "" {
		if err := repo.SessionIndex().DeleteRecord(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(c.wiring.stdout, "ok")
		return nil
	}

	records, err := repo.SessionIndex().ListRecords(ctx)
	if err != nil {
		return err
	}
	if *limit > 0 && len(records) > *limit {
		records = records[:*limit]
	}
	if *asJSON {
		encoder := json.NewEncoder(c.wiring.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}
	printHistory(c.wiring.stdout, records)
	return nil
}
