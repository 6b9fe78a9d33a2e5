package main

import (
	"fmt"
	"os"
)

const usageText = `teamsync follows remote team sessions from the terminal.

Usage:
  teamsync <command> [flags]

Commands:
  run             start a session and stream its timeline
  watch           follow an existing session
  ui              run the terminal UI
  stop            stop a session
  history         list sessions recorded locally
  config          print configuration (effective or defaults)
  debug-messages  dump a session's debug message log
  help            show help

Flags:
  -h, --help   show help

Examples:
  teamsync run --team team-1 "Write a spec for a todo app"
  teamsync watch 6650f0c2
  teamsync ui "Plan a migration to Postgres"
  teamsync history --limit 10
  teamsync config --format toml
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr, os.Stdin)
	commands := buildCommands(wiring)

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
