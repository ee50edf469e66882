// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for taskrun.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.4.1"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdList Command = iota
	CmdAdd
	CmdDone
	CmdRemove
	CmdAsk
	CmdChat
	CmdStatus
	CmdConfig
	CmdSetup
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet bool
	JSON  bool // Output in JSON format
	Model string

	// Command-specific
	Query       string // ask: the question text
	Description string // add: the task description
	IDArg       string // done/remove: raw task id argument
	ConfigKey   string
	ConfigVal   string
	Subcommand  string
	NoTasks     bool // ask/chat: leave the task list out of the prompt
	Chat        bool // ask --chat: switch to the interactive session
	Watch       bool // list --watch: re-render on tasks file changes

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `taskrun - A tiny CLI todo app, with a local AI assistant

Tasks live in a plain JSON file; the assistant runs against a local
Ollama server and can see your list when you ask about it.

Usage:
  taskrun                     Show the todo list
  taskrun add <description>   Add a task
  taskrun list, ls            Show the todo list
  taskrun done <id>           Mark a task as done
  taskrun remove, rm <id>     Remove a task
  taskrun ask "question"      Ask the assistant a single question
  taskrun chat                Interactive assistant session
  taskrun status, s           Show endpoint, model and tasks file status
  taskrun config [show|get|set|path]  Configuration
  taskrun setup               First-run setup
  taskrun version             Show version
  taskrun help                Show this help

List Flags:
  --json            Print the raw task array
  --watch           Keep running, re-render when the tasks file changes

Ask Flags:
  -c, --chat        Switch to the interactive session
  -m, --model NAME  Use a specific model for this question
  --no-tasks        Leave the task list out of the prompt
  -q, --quiet       Skip the stats footer

Chat Flags:
  -m, --model NAME  Use a specific model
  --no-tasks        Leave the task list out of prompts

Global Flags:
  -q, --quiet       Minimal output
  --json            Machine-readable output where supported
  --model NAME      Override the configured model

Interactive Commands (during chat):
  /help             Show available commands
  /tasks            Show the todo list
  /history          Show conversation history
  /model [name]     Show or switch model
  /status           Show session statistics
  /clear            Clear conversation history
  /quit             Exit chat (also: exit, quit, Ctrl+D)
  Ctrl+C            Cancel the response being generated

Examples:
  taskrun add Buy milk
  taskrun done 2
  taskrun ask "what should I do first?"
  echo "summarize my list" | taskrun ask
  taskrun chat --model qwen2.5:7b
  taskrun config set model llama3.2
  taskrun list --watch

Exit Codes:
  0  success           2  usage error        5  Ollama unreachable
  1  general error     3  config error       6  Ollama request failed
                                             8  timed out

Environment:
  TASKRUN_OLLAMA_URL  Override the Ollama endpoint
  TASKRUN_MODEL       Override the model
  TASKRUN_TASKS_FILE  Override the tasks file location
  TASKRUN_DEBUG       Enable debug tracing on stderr

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("taskrun version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	// Parse global flags first
	remaining, parsedArgs := parseGlobalFlags(args)

	// Bare "taskrun" shows the list
	if len(remaining) == 0 {
		return CmdList, parsedArgs
	}

	// Check first argument for command
	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "list", "ls":
		parseListArgs(&parsedArgs, remaining)
		return CmdList, parsedArgs

	case "add":
		parseAddArgs(&parsedArgs, remaining)
		return CmdAdd, parsedArgs

	case "done":
		parseIDArg(&parsedArgs, remaining)
		return CmdDone, parsedArgs

	case "remove", "rm":
		parseIDArg(&parsedArgs, remaining)
		return CmdRemove, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		parseChatArgs(&parsedArgs, remaining)
		return CmdChat, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "setup":
		return CmdSetup, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command is a usage error, not a prompt
		parsedArgs.Subcommand = cmd
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--json":
			parsedArgs.JSON = true
		case "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		default:
			// Check for --model=value format
			if strings.HasPrefix(arg, "--model=") {
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseListArgs parses list command specific arguments.
func parseListArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		if arg == "--watch" || arg == "-w" {
			args.Watch = true
		}
	}
}

// parseAddArgs parses add command specific arguments.
// Every non-flag word belongs to the description.
func parseAddArgs(args *Args, remaining []string) {
	var words []string
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			words = append(words, arg)
		}
	}
	args.Description = strings.Join(words, " ")
}

// parseIDArg captures the task id argument for done/remove.
// Validation happens in the handler so a bad id reports as a usage error.
func parseIDArg(args *Args, remaining []string) {
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			args.IDArg = arg
			return
		}
	}
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		case "-c", "--chat":
			args.Chat = true
		case "--no-tasks":
			args.NoTasks = true
		default:
			if strings.HasPrefix(arg, "--model=") {
				args.Model = strings.TrimPrefix(arg, "--model=")
			} else if !strings.HasPrefix(arg, "-") {
				query = append(query, arg)
			}
		}
		i++
	}

	args.Query = strings.Join(query, " ")
}

// parseChatArgs parses chat command specific arguments.
func parseChatArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		case "--no-tasks":
			args.NoTasks = true
		default:
			if strings.HasPrefix(arg, "--model=") {
				args.Model = strings.TrimPrefix(arg, "--model=")
			}
		}
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	var positional []string
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
		}
	}
	if len(positional) > 0 {
		args.Subcommand = positional[0]
	}
	if len(positional) > 1 {
		args.ConfigKey = positional[1]
	}
	if len(positional) > 2 {
		args.ConfigVal = strings.Join(positional[2:], " ")
	}
}

// =============================================================================
// SIMPLE COMMAND HANDLERS
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		resp := NewJSONResponse("version", data)
		resp.Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
