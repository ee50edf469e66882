// taskrun - A tiny CLI todo app, with a local AI assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/taskrun/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.4.1"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdList:
		exitOnError(cli.HandleList(args))
	case cli.CmdAdd:
		exitOnError(cli.HandleAdd(args))
	case cli.CmdDone:
		exitOnError(cli.HandleDone(args))
	case cli.CmdRemove:
		exitOnError(cli.HandleRemove(args))
	case cli.CmdAsk:
		exitOnError(cli.HandleAskCommand(args))
	case cli.CmdChat:
		exitOnError(cli.HandleChatCommand(args))
	case cli.CmdStatus:
		exitOnError(cli.HandleStatus(args))
	case cli.CmdConfig:
		exitOnError(cli.HandleConfig(args))
	case cli.CmdSetup:
		exitOnError(cli.HandleSetup(args))
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		handleUnknown(args)
	}
}

// exitOnError reports a handler error on stderr and exits with the
// matching exit code. Success falls through so main returns 0.
func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(cli.GetExitCode(err))
}

// handleUnknown reports an unrecognized command, with a typo hint when
// one of the real commands is close.
func handleUnknown(args cli.Args) {
	fmt.Fprintf(os.Stderr, "Unknown command: %q\n", args.Subcommand)
	if suggestion := cli.SuggestCommand(args.Subcommand); suggestion != "" {
		fmt.Fprintf(os.Stderr, "Did you mean '%s'?\n", suggestion)
	}
	fmt.Fprintln(os.Stderr, "Run 'taskrun help' for usage.")
	os.Exit(cli.ExitUsageError)
}
