// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run setup command for taskrun.
//
// Command: setup
//
// Examples:
//   taskrun setup                 Prepare config and check Ollama
//
// Setup walks through three non-interactive steps:
//   1. Config file:  write defaults to ~/.taskrun/config.toml if absent
//   2. Tasks file:   report where the todo list lives
//   3. Ollama:       reachability and model availability check
//
// Nothing here is destructive. An existing config is left untouched and
// an unreachable Ollama only downgrades the closing suggestions.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/taskrun/internal/config"
	"github.com/jeranaias/taskrun/internal/ollama"
	"github.com/jeranaias/taskrun/internal/tasks"
)

// ===== SETUP COMMAND =====

// HandleSetup handles the "setup" command.
func HandleSetup(args Args) error {
	cfg := config.Global()

	fmt.Println()
	fmt.Println("taskrun Setup")
	fmt.Println(strings.Repeat("=", 13))
	fmt.Println()

	fmt.Println("Step 1: Config File")
	fmt.Println(strings.Repeat("-", 19))
	configFile, err := setupConfigStep()
	if err != nil {
		return err
	}
	fmt.Println()

	fmt.Println("Step 2: Tasks File")
	fmt.Println(strings.Repeat("-", 18))
	setupTasksStep(cfg)
	fmt.Println()

	fmt.Println("Step 3: Ollama")
	fmt.Println(strings.Repeat("-", 14))
	assistantReady := setupOllamaStep(cfg)
	fmt.Println()

	fmt.Println("Setup Complete!")
	fmt.Println(strings.Repeat("=", 15))
	fmt.Printf("Config file: %s\n", configFile)
	fmt.Println()
	fmt.Println("Try:")
	fmt.Println("  taskrun add \"Buy milk\"")
	fmt.Println("  taskrun list")
	if assistantReady {
		fmt.Println("  taskrun ask \"what should I work on first?\"")
	}
	fmt.Println()

	return nil
}

// ===== SETUP STEPS =====

// setupConfigStep writes the default config if none exists yet and
// returns the config file path.
func setupConfigStep() (string, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return "", WrapError(err, "could not resolve config path")
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  Config already exists at %s\n", path)
		return path, nil
	}

	if err := config.Save(config.Default()); err != nil {
		return "", WrapError(err, "failed to write default config")
	}
	fmt.Printf("  Default config written to %s\n", path)
	return path, nil
}

// setupTasksStep reports on the todo file without creating it. The
// store creates it lazily on the first add.
func setupTasksStep(cfg *config.Config) {
	if _, err := os.Stat(cfg.TasksFile); os.IsNotExist(err) {
		fmt.Printf("  Tasks file: %s (created on first add)\n", cfg.TasksFile)
		return
	}

	list, err := tasks.NewStore(cfg.TasksFile).Load()
	if err != nil {
		fmt.Printf("  Warning: could not read %s: %v\n", cfg.TasksFile, err)
		return
	}
	fmt.Printf("  Tasks file: %s (%d tasks)\n", cfg.TasksFile, len(list))
}

// setupOllamaStep checks whether the assistant side of taskrun is
// usable: server reachable and the configured model pulled. Reports
// true when ask/chat would work right now.
func setupOllamaStep(cfg *config.Config) bool {
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.OllamaURL,
		DefaultModel: cfg.Model,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout())
	defer cancel()

	err := runSetupStep("Checking Ollama", func() error {
		return client.CheckRunning(ctx)
	})
	if err != nil {
		fmt.Println("  Ollama is not running")
		fmt.Println("  Start it with: ollama serve")
		fmt.Println("  Task commands work without it; ask and chat need it.")
		return false
	}
	fmt.Println("  Ollama is running")

	var available bool
	err = runSetupStep(fmt.Sprintf("Checking model %s", cfg.Model), func() error {
		var hmErr error
		available, hmErr = client.HasModel(ctx, cfg.Model)
		return hmErr
	})
	if err != nil {
		fmt.Printf("  Warning: could not list models: %v\n", err)
		return false
	}

	if !available {
		fmt.Printf("  Model %s is not downloaded\n", cfg.Model)
		fmt.Printf("  Pull it with: ollama pull %s\n", cfg.Model)
		return false
	}

	fmt.Printf("  Model %s is available\n", cfg.Model)
	return true
}

// ===== STEP RUNNER =====

// runSetupStep runs fn with a small spinner on a TTY, or a plain
// one-line report when output is piped.
func runSetupStep(msg string, fn func() error) error {
	if !IsStdoutTTY() {
		fmt.Printf("  %s... ", msg)
		err := fn()
		if err != nil {
			fmt.Println(RenderStatus("fail"))
		} else {
			fmt.Println(RenderStatus("ok"))
		}
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	spinChars := []rune{'|', '/', '-', '\\'}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	fmt.Printf("  %s... ", msg)
	i := 0
	for {
		select {
		case err := <-done:
			fmt.Printf("\r  %s... ", msg)
			if err != nil {
				fmt.Println(RenderStatus("fail"))
			} else {
				fmt.Println(RenderStatus("ok"))
			}
			return err
		case <-ticker.C:
			fmt.Printf("\r  %s... %c", msg, spinChars[i%len(spinChars)])
			i++
		}
	}
}
