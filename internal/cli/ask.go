// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command handler.
//
// USABILITY: Markdown rendering and piped-stdin input for better CLI experience
//
// Handles "taskrun ask" which sends one question to the assistant and
// streams the reply to stdout. The current task list rides along as
// context unless --no-tasks is given.
//
// Examples:
//   taskrun ask "what should I do first?"
//   echo "summarize my list" | taskrun ask
//   taskrun ask -m qwen2.5:7b "which of these can wait?"
//
// Flags:
//   -c, --chat        Switch to the interactive session
//   -m, --model NAME  Use specific model (overrides config)
//   --no-tasks        Leave the task list out of the prompt
//   -q, --quiet       Skip the stats footer
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/taskrun/internal/config"
	"github.com/jeranaias/taskrun/internal/ollama"
	"github.com/jeranaias/taskrun/internal/session"
	"github.com/jeranaias/taskrun/internal/tasks"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for markdown output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(GetTerminalWidth(), 100)),
	)
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// useMarkdown reports whether replies should be rendered rather than
// streamed raw. Rendering buffers the full reply, so it is opt-in and
// never applies to piped output.
func useMarkdown(cfg *config.Config) bool {
	return cfg.RenderMarkdown && IsStdoutTTY()
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAskCommand handles the "ask" command.
func HandleAskCommand(args Args) error {
	// --chat switches to the interactive session
	if args.Chat {
		return HandleChatCommand(args)
	}

	question := strings.TrimSpace(args.Query)

	// Piped input becomes the question when none was given on the command line
	if question == "" && IsStdinPiped() {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err == nil && len(data) > 0 {
			question = strings.TrimSpace(string(data))
			if !args.Quiet {
				fmt.Fprintf(os.Stderr, "%s Read question from stdin (%d bytes)\n",
					InfoStyle.Render("[+]"), len(data))
			}
		}
	}

	if question == "" {
		return NewUsageError("ask", "no question provided. Usage: taskrun ask \"your question\"")
	}

	cfg := config.Global()
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.OllamaURL,
		DefaultModel: cfg.Model,
	})

	// Preflight so a dead endpoint fails fast instead of hanging the stream
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

	snapshot := loadSnapshot(args)

	// Ctrl+C cancels the in-flight question
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	sess := session.New(client, model)
	defer sess.Close()

	rendered := useMarkdown(cfg)
	var reply strings.Builder

	if !args.Quiet {
		fmt.Println() // Space before response
	}

	err = sess.RunTurn(ctx, question, snapshot,
		func(fragment string) {
			reply.WriteString(fragment)
			// Rendered mode collects and formats at the end; plain mode streams
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
		if stats := sess.LastStats(); stats != nil && !args.Quiet {
			fmt.Fprintf(os.Stderr, "%s %s\n", DimStyle.Render("[Stats]"), stats.Format())
		}
		return nil

	case errors.Is(err, context.Canceled):
		// The user pulled the plug; whatever streamed stays on screen but
		// nothing else is owed.
		fmt.Println()
		fmt.Fprintln(os.Stderr, WarningStyle.Render("[Cancelled]"))
		return nil

	case (ollama.IsInterrupted(err) || ollama.IsTruncated(err)) && reply.Len() > 0:
		// Partial reply arrived before the stream broke. It was real output,
		// so show it, warn, and exit clean.
		if rendered {
			fmt.Print(renderMarkdown(reply.String()))
		} else {
			fmt.Println()
		}
		fmt.Fprintf(os.Stderr, "%s response incomplete: %v\n", WarningStyle.Render("[Warn]"), err)
		return nil

	default:
		return err
	}
}

// loadSnapshot reads the task list for prompt context. A nil snapshot means
// the assistant is told nothing about tasks at all.
func loadSnapshot(args Args) []tasks.Task {
	if args.NoTasks {
		return nil
	}

	snapshot, err := openStore().ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s could not read tasks: %v\n", WarningStyle.Render("[Warn]"), err)
		return nil
	}
	return snapshot
}
