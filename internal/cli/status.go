// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation for taskrun.
//
// Command: status
// Aliases: s
//
// Examples:
//   taskrun status                Show system status
//   taskrun s                     Show status (short alias)
//   taskrun status --json         Status in JSON format for scripting
//
// Status Sections:
//   Ollama:   Server URL, reachability, configured model availability
//   Tasks:    Todo file location and open/completed counts
//   Config:   Config file location
//
// An unreachable Ollama is reported, not treated as a failure: status
// always exits 0 so it can run in shell prompts and health checks.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/taskrun/internal/config"
	"github.com/jeranaias/taskrun/internal/ollama"
	"github.com/jeranaias/taskrun/internal/tasks"
)

// ===== STATUS COMMAND =====

// HandleStatus handles the "status" command. Every section is collected
// once and rendered either as styled text or as the JSON envelope.
func HandleStatus(args Args) error {
	cfg := config.Global()

	data := StatusData{
		Ollama: collectOllamaInfo(cfg),
		Tasks:  collectTasksInfo(cfg),
		Config: collectConfigInfo(),
	}

	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("taskrun Status"))
	fmt.Println(RenderSeparator())
	fmt.Println()

	fmt.Println(SectionStyle.Render("Ollama"))
	fmt.Println(formatOllamaSection(data.Ollama))
	fmt.Println()

	fmt.Println(SectionStyle.Render("Tasks"))
	fmt.Println(formatTasksSection(data.Tasks))
	fmt.Println()

	fmt.Println(SectionStyle.Render("Config"))
	fmt.Println(formatConfigSection(data.Config))
	fmt.Println()

	return nil
}

// ===== COLLECTORS =====

// collectOllamaInfo probes the Ollama server once: reachability first,
// then whether the configured model is actually pulled.
func collectOllamaInfo(cfg *config.Config) StatusOllamaInfo {
	info := StatusOllamaInfo{
		URL:   cfg.OllamaURL,
		Model: cfg.Model,
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.OllamaURL,
		DefaultModel: cfg.Model,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout())
	defer cancel()

	if err := client.CheckRunning(ctx); err != nil {
		info.ModelStatus = "unknown"
		return info
	}
	info.Reachable = true

	ok, err := client.HasModel(ctx, cfg.Model)
	switch {
	case err != nil:
		info.ModelStatus = "unknown"
	case ok:
		info.ModelStatus = "available"
	default:
		info.ModelStatus = "missing"
	}
	return info
}

// collectTasksInfo reads the todo file and counts entries by state.
func collectTasksInfo(cfg *config.Config) StatusTasksInfo {
	info := StatusTasksInfo{File: cfg.TasksFile}

	if _, err := os.Stat(cfg.TasksFile); err == nil {
		info.Exists = true
	}

	list, err := tasks.NewStore(cfg.TasksFile).Load()
	if err != nil {
		return info
	}

	info.Total = len(list)
	for _, t := range list {
		if t.Completed {
			info.Completed++
		} else {
			info.Open++
		}
	}
	return info
}

// collectConfigInfo reports where the config file lives and whether it
// has been written yet.
func collectConfigInfo() StatusConfigInfo {
	info := StatusConfigInfo{Path: configPath()}
	if _, err := os.Stat(info.Path); err == nil {
		info.Exists = true
	}
	return info
}

// ===== SECTION FORMATTING =====

// statusRow renders one aligned "label: value" line.
func statusRow(label, value string) string {
	return fmt.Sprintf("  %s%s", LabelStyle.Render(label), value)
}

// formatOllamaSection renders the Ollama section rows.
func formatOllamaSection(info StatusOllamaInfo) string {
	var lines []string

	lines = append(lines, statusRow("URL:", ValueStyle.Render(info.URL)))

	if info.Reachable {
		lines = append(lines, statusRow("Status:", SuccessStyle.Render("Running")))
	} else {
		lines = append(lines, statusRow("Status:", ErrorStyle.Render("Not running")))
	}

	var modelStr string
	switch info.ModelStatus {
	case "available":
		modelStr = HighlightStyle.Render(fmt.Sprintf("%s (available)", info.Model))
	case "missing":
		modelStr = WarningStyle.Render(fmt.Sprintf("%s (not downloaded)", info.Model))
	default:
		modelStr = DimStyle.Render(info.Model)
	}
	lines = append(lines, statusRow("Model:", modelStr))

	if !info.Reachable {
		lines = append(lines, statusRow("", DimStyle.Render("Start it with: ollama serve")))
	}

	return strings.Join(lines, "\n")
}

// formatTasksSection renders the Tasks section rows.
func formatTasksSection(info StatusTasksInfo) string {
	var lines []string

	fileStr := ValueStyle.Render(info.File)
	if !info.Exists {
		fileStr = DimStyle.Render(fmt.Sprintf("%s (not created yet)", info.File))
	}
	lines = append(lines, statusRow("File:", fileStr))

	lines = append(lines, statusRow("Total:", ValueStyle.Render(fmt.Sprintf("%d", info.Total))))
	lines = append(lines, statusRow("Open:", WarningStyle.Render(fmt.Sprintf("%d", info.Open))))
	lines = append(lines, statusRow("Completed:", SuccessStyle.Render(fmt.Sprintf("%d", info.Completed))))

	return strings.Join(lines, "\n")
}

// formatConfigSection renders the Config section rows.
func formatConfigSection(info StatusConfigInfo) string {
	var lines []string

	lines = append(lines, statusRow("File:", configPathStyle.Render(info.Path)))

	existsStr := SuccessStyle.Render("Yes")
	if !info.Exists {
		existsStr = DimStyle.Render("No (defaults in use)")
	}
	lines = append(lines, statusRow("Exists:", existsStr))

	return strings.Join(lines, "\n")
}
