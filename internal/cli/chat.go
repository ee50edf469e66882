// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive assistant session for the taskrun CLI.
//
// USABILITY: Readline-style input history and line editing via liner
//
// Handles "taskrun chat" which runs a REPL against the dialogue session.
// Each turn re-reads the task list so the assistant always sees the list
// as it is right now.
//
// Examples:
//   taskrun chat                      Start a session (default model)
//   taskrun chat --model qwen2.5:7b   Use a specific model
//   taskrun chat --no-tasks           Keep the task list out of prompts
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /tasks, /t          Show the todo list
//   /clear, /c          Clear conversation history
//   /model [name]       Show or switch model
//   /status, /s         Show session statistics
//   /history            Show conversation history
//   /quit, /q           Exit chat (also: exit, quit, Ctrl+D)
//   Ctrl+C              Cancel the response being generated
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/taskrun/internal/config"
	"github.com/jeranaias/taskrun/internal/ollama"
	"github.com/jeranaias/taskrun/internal/session"
	"github.com/jeranaias/taskrun/internal/tasks"
	"github.com/jeranaias/taskrun/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	// Prompt style
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	// Welcome banner style
	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")).
			Bold(true)

	// Command feedback style
	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// Session summary header
	summaryHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the interactive
// session, persisted across runs.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with input history loaded from disk.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Non-empty lines
// join the arrow-key history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	// SECURITY: 0600, prompts can carry task descriptions
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and releases the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT STATE
// =============================================================================

// chatState carries what the REPL needs between turns.
type chatState struct {
	sess    *session.Session
	client  *ollama.Client
	store   *tasks.Store
	cfg     *config.Config
	input   *ChatCLI
	quiet   bool
	noTasks bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// setCancel publishes the cancel function for the in-flight turn.
func (c *chatState) setCancel(fn context.CancelFunc) {
	c.mu.Lock()
	c.cancel = fn
	c.mu.Unlock()
}

// takeCancel claims the in-flight cancel function, or nil when idle.
func (c *chatState) takeCancel() context.CancelFunc {
	c.mu.Lock()
	fn := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	return fn
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command.
func HandleChatCommand(args Args) error {
	// The REPL needs a terminal; piped stdin belongs to "ask"
	if !CanPrompt() {
		return NewUsageError("chat", "interactive chat requires a terminal. For piped input, use: taskrun ask")
	}

	cfg := config.Global()
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.OllamaURL,
		DefaultModel: cfg.Model,
	})

	preflightCtx, cancelPreflight := context.WithTimeout(context.Background(), cfg.ConnectTimeout())
	err := client.CheckRunning(preflightCtx)
	cancelPreflight()
	if err != nil {
		if ollama.IsTimeout(err) {
			return WrapError(err, "Ollama did not answer in time")
		}
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}

	// Model priority: CLI arg > config > client default
	model := args.Model
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = client.DefaultModel()
	}

	cs := &chatState{
		sess:    session.New(client, model),
		client:  client,
		store:   openStore(),
		cfg:     cfg,
		input:   NewChatCLI(),
		quiet:   args.Quiet,
		noTasks: args.NoTasks,
	}
	defer cs.sess.Close()
	defer cs.input.Close()

	if !cs.quiet {
		printWelcome(cs)
	}

	// Ctrl+C during generation cancels the in-flight turn. At the prompt,
	// liner owns the terminal and reports Ctrl+C as ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if cancel := cs.takeCancel(); cancel != nil {
				cancel()
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := cs.input.ReadInput(promptStyle.Render("taskrun> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				// Ctrl+C at the prompt
				fmt.Println()
				printExitSummary(cs)
				return nil
			}
			// EOF (Ctrl+D) or a broken terminal
			fmt.Println()
			printExitSummary(cs)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := handleSlashCommand(cs, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				printExitSummary(cs)
				return nil
			}
			continue
		}

		if isExitCommand(input) {
			printExitSummary(cs)
			return nil
		}

		if err := processTurn(cs, input); err != nil {
			if errors.Is(err, context.Canceled) {
				// The cancel discarded the partial turn and closed the
				// session; the signal handler already printed the note.
				printExitSummary(cs)
				return nil
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// isExitCommand reports whether the input closes the session. Matched
// case-insensitively, and never sent to the model.
func isExitCommand(input string) bool {
	return strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit")
}

// =============================================================================
// TURN PROCESSING
// =============================================================================

// processTurn runs one user turn against the session and streams the reply.
func processTurn(cs *chatState, input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	cs.setCancel(cancel)
	defer func() {
		cs.setCancel(nil)
		cancel()
	}()

	// Point-in-time snapshot; every turn sees the list as it is now
	var snapshot []tasks.Task
	if !cs.noTasks {
		snap, err := cs.store.ReadAll()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s could not read tasks: %v\n", WarningStyle.Render("[Warn]"), err)
		} else {
			snapshot = snap
		}
	}

	rendered := useMarkdown(cs.cfg)
	var reply strings.Builder

	fmt.Println() // Space before response

	err := cs.sess.RunTurn(ctx, input, snapshot,
		func(fragment string) {
			reply.WriteString(fragment)
			if !rendered {
				fmt.Print(fragment)
			}
		},
		func(warn error) {
			fmt.Fprintf(os.Stderr, "\n%s %v\n", WarningStyle.Render("[Warn]"), warn)
		})

	switch {
	case err == nil:
		if rendered {
			fmt.Print(renderMarkdown(reply.String()))
		} else {
			fmt.Println()
		}
		fmt.Println() // Extra space after response
		if !cs.quiet {
			if stats := cs.sess.LastStats(); stats != nil {
				fmt.Fprintf(os.Stderr, "%s %s\n", DimStyle.Render("[Stats]"), stats.Format())
			}
		}
		return nil

	case errors.Is(err, context.Canceled):
		fmt.Println()
		return err

	case (ollama.IsInterrupted(err) || ollama.IsTruncated(err)) && reply.Len() > 0:
		// The partial reply is committed; the conversation carries on from it.
		if rendered {
			fmt.Print(renderMarkdown(reply.String()))
		} else {
			fmt.Println()
		}
		fmt.Fprintf(os.Stderr, "%s response incomplete: %v\n", WarningStyle.Render("[Warn]"), err)
		fmt.Println()
		return nil

	default:
		return err
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (keepGoing, error) where keepGoing=false means exit.
func handleSlashCommand(cs *chatState, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	rest := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		printChatHelp()
		return true, nil

	case "/tasks", "/t":
		list, err := cs.store.Load()
		if err != nil {
			return true, err
		}
		fmt.Println(renderTaskList(list))
		return true, nil

	case "/clear", "/c":
		cs.sess.ClearHistory()
		fmt.Println(commandStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/model", "/m":
		return handleModelSwitch(cs, rest)

	case "/status", "/s":
		printChatStatus(cs)
		return true, nil

	case "/history":
		printChatHistory(cs)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	case "/":
		// Just "/" shows help
		printChatHelp()
		return true, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// handleModelSwitch handles the /model command.
func handleModelSwitch(cs *chatState, rest []string) (bool, error) {
	if len(rest) == 0 {
		fmt.Printf("%s Current model: %s\n",
			InfoStyle.Render("[Model]"),
			commandStyle.Render(cs.sess.Model()))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if models, err := cs.client.ListModels(ctx); err == nil && len(models) > 0 {
			fmt.Println(InfoStyle.Render("Available:"))
			for _, m := range models {
				fmt.Printf("  %s %s\n",
					commandStyle.Render(m.Name),
					DimStyle.Render("("+m.FormatSize()+")"))
			}
		}
		return true, nil
	}

	newModel := rest[0]

	// Warn when the model is not present locally; Ollama may still serve it
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ok, err := cs.client.HasModel(ctx, newModel); err == nil && !ok {
		fmt.Fprintf(os.Stderr, "%s Model '%s' not found locally, will attempt to use anyway\n",
			WarningStyle.Render("[Warning]"), newModel)
	}

	cs.sess.SetModel(newModel)
	fmt.Printf("%s Switched to model: %s\n", SuccessStyle.Render("[OK]"), newModel)
	return true, nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(cs *chatState) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("taskrun assistant"))
	fmt.Println(InfoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		InfoStyle.Render("Model:"),
		commandStyle.Render(cs.sess.Model()))
	fmt.Printf("%s %s\n",
		InfoStyle.Render("Endpoint:"),
		commandStyle.Render(cs.client.BaseURL()))
	if cs.noTasks {
		fmt.Printf("%s %s\n",
			InfoStyle.Render("Tasks:"),
			WarningStyle.Render("not shared with the assistant"))
	} else {
		fmt.Printf("%s %s\n",
			InfoStyle.Render("Tasks:"),
			commandStyle.Render(cs.store.Path()))
	}
	fmt.Println()
	fmt.Println(InfoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printChatHelp prints the available slash commands.
func printChatHelp() {
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Available Commands"))
	fmt.Println(InfoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/tasks, /t", "Show the todo list"},
		{"/clear, /c", "Clear conversation history"},
		{"/model [name]", "Show or switch model"},
		{"/status, /s", "Show session statistics"},
		{"/history", "Show conversation history"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			InfoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(InfoStyle.Render("Tip: Ctrl+C cancels the response being generated, Ctrl+D exits"))
	fmt.Println()
}

// printChatStatus prints session statistics.
func printChatStatus(cs *chatState) {
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session Status"))
	fmt.Println(InfoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	fmt.Printf("  %s %s\n",
		InfoStyle.Render("Session:"),
		commandStyle.Render(cs.sess.ID()))
	fmt.Printf("  %s %s\n",
		InfoStyle.Render("Model:"),
		commandStyle.Render(cs.sess.Model()))
	fmt.Printf("  %s %s\n",
		InfoStyle.Render("State:"),
		cs.sess.State().String())
	fmt.Printf("  %s %d\n",
		InfoStyle.Render("Turns:"),
		cs.sess.Turns())
	fmt.Printf("  %s %d messages\n",
		InfoStyle.Render("History:"),
		len(cs.sess.History()))
	fmt.Printf("  %s %s\n",
		InfoStyle.Render("Duration:"),
		session.FormatDuration(cs.sess.Elapsed()))
	if stats := cs.sess.LastStats(); stats != nil {
		fmt.Printf("  %s %s\n",
			InfoStyle.Render("Last turn:"),
			stats.Format())
	}

	fmt.Println()
}

// printChatHistory prints the committed conversation.
func printChatHistory(cs *chatState) {
	history := cs.sess.History()
	if len(history) == 0 {
		fmt.Println(InfoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Conversation History"))
	fmt.Println(InfoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for i, msg := range history {
		role := msg.Role
		switch role {
		case "user":
			role = promptStyle.Render("You")
		case "assistant":
			role = welcomeStyle.Render("AI")
		}

		// Width-aware so CJK content stays within one terminal row
		content := strings.ReplaceAll(msg.Content, "\n", " ")
		content = util.TruncateWidth(content, 100)

		fmt.Printf("  %d. %s: %s\n", i+1, role, content)
	}

	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(cs *chatState) {
	if cs.sess.Turns() == 0 {
		fmt.Println(InfoStyle.Render("Goodbye!"))
		return
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session Summary"))
	fmt.Println(InfoStyle.Render(strings.Repeat("─", 15)))

	fmt.Printf("  %s %d\n",
		InfoStyle.Render("Turns:"),
		cs.sess.Turns())
	fmt.Printf("  %s %s\n",
		InfoStyle.Render("Model:"),
		cs.sess.Model())
	fmt.Printf("  %s %s\n",
		InfoStyle.Render("Duration:"),
		session.FormatDuration(cs.sess.Elapsed()))

	fmt.Println()
	fmt.Println(InfoStyle.Render("Goodbye!"))
}
