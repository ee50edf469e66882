// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for taskrun.
//
// This package implements every taskrun command: the todo CRUD surface
// (list, add, done, remove), the assistant surface (ask, chat) and the
// housekeeping commands (status, config, setup, version, help).
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - JSONResponse: Envelope for --json output so scripts get a stable shape
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdList:
//	    return cli.HandleList(args)
//	case cli.CmdAsk:
//	    return cli.HandleAskCommand(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
// Task Commands:
//   - list: Show the todo list (supports --watch and --json)
//   - add: Add a task
//   - done: Mark a task complete
//   - remove: Delete a task
//
// Assistant Commands:
//   - ask: One-shot question with the todo list as context
//   - chat: Interactive multi-turn session
//
// Housekeeping:
//   - status: Ollama, tasks and config health
//   - config: Show and edit configuration
//   - setup: First-run preparation
//
// Task output on stdout is plain text; styling and progress go to
// stderr so pipes stay clean.
package cli
