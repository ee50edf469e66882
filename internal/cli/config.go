// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration management commands.
//
// Subcommands:
//   show    Display current configuration (default)
//   get     Print a single value, unstyled, for scripting
//   set     Update a configuration value
//   path    Show the config file location
//   reset   Restore defaults
//
// Examples:
//   taskrun config                        # Show current config
//   taskrun config get model              # Print the model name
//   taskrun config set model llama3.2     # Change the default model
//   taskrun config set render_markdown true
//   taskrun config path                   # Where the config file lives
//
// Configuration Keys:
//   ollama_url            Ollama server URL
//   model                 Default model for ask/chat
//   tasks_file            Path to the todo list JSON file
//   render_markdown       Render assistant replies as markdown
//   connect_timeout_secs  Preflight connection timeout
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/taskrun/internal/config"
)

// ===== CONFIG STYLES =====

var (
	configKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(22)

	configPathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
)

// ===== CONFIG COMMAND =====

// HandleConfig dispatches the config subcommands.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		if args.JSON {
			return handleConfigShowJSON()
		}
		return handleConfigShow()
	case "get":
		return handleConfigGet(args.ConfigKey)
	case "set":
		return handleConfigSet(args.ConfigKey, args.ConfigVal)
	case "path":
		return handleConfigPath(args.JSON)
	case "reset":
		return handleConfigReset()
	default:
		return NewUsageError("config",
			fmt.Sprintf("unknown subcommand: %s (expected show, get, set, path, or reset)", args.Subcommand))
	}
}

// handleConfigShow prints every key in a human-readable table.
func handleConfigShow() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s (using defaults)\n", err)
		cfg = config.Default()
	}

	fmt.Println(TitleStyle.Render("taskrun Configuration"))
	fmt.Println(RenderSeparator())
	fmt.Println()

	for _, key := range config.GetAllKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("  %s%s\n",
			configKeyStyle.Render(key+":"),
			HighlightStyle.Render(value))
	}

	fmt.Println()
	fmt.Println(RenderSeparator())
	fmt.Printf("Config file: %s\n", configPathStyle.Render(configPath()))
	return nil
}

// handleConfigShowJSON emits the machine-readable variant.
func handleConfigShowJSON() error {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}

	data := ConfigData{
		OllamaURL:          cfg.OllamaURL,
		Model:              cfg.Model,
		TasksFile:          cfg.TasksFile,
		RenderMarkdown:     cfg.RenderMarkdown,
		ConnectTimeoutSecs: cfg.ConnectTimeoutSecs,
		Path:               configPath(),
	}
	return NewJSONResponse("config show", data).Print()
}

// handleConfigGet prints a single raw value with no styling so that
// `model=$(taskrun config get model)` works in scripts.
func handleConfigGet(key string) error {
	if key == "" {
		return NewUsageError("config",
			"no config key provided\nUsage: taskrun config get <key>")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s (using defaults)\n", err)
		cfg = config.Default()
	}

	value, err := cfg.Get(key)
	if err != nil {
		return err
	}

	fmt.Println(value)
	return nil
}

// handleConfigSet updates a single key and persists the result.
func handleConfigSet(key, value string) error {
	if key == "" {
		return NewUsageError("config",
			"no config key provided\nUsage: taskrun config set <key> <value>")
	}
	if value == "" {
		return NewUsageError("config",
			fmt.Sprintf("no value provided for %s\nUsage: taskrun config set %s <value>", key, key))
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s (using defaults)\n", err)
		cfg = config.Default()
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(cfg); err != nil {
		return WrapError(err, "failed to save config")
	}

	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), key, value)
	return nil
}

// handleConfigPath prints where the config file lives.
func handleConfigPath(jsonMode bool) error {
	path := configPath()

	if jsonMode {
		_, err := os.Stat(path)
		data := StatusConfigInfo{Path: path, Exists: err == nil}
		return NewJSONResponse("config path", data).Print()
	}

	fmt.Println(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "%s (file does not exist - will be created on first use)\n",
			DimStyle.Render("Note"))
	}
	return nil
}

// handleConfigReset restores every key to its default value.
func handleConfigReset() error {
	if err := config.Save(config.Default()); err != nil {
		return WrapError(err, "failed to save config")
	}

	fmt.Printf("%s Configuration reset to defaults\n", SuccessStyle.Render("[OK]"))
	fmt.Printf("Config file: %s\n", configPathStyle.Render(configPath()))
	return nil
}

// configPath resolves the config file location, empty when the home
// directory cannot be determined.
func configPath() string {
	path, err := config.ConfigPath()
	if err != nil {
		return ""
	}
	return path
}
