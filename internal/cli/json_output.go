// json_output.go - JSON output support for scripting.
//
// Provides a standardized JSON envelope for commands that support --json,
// so wrappers get a stable shape to parse regardless of command.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"os"
	"time"
)

// JSONResponse is the standardized response format for --json output.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Error:     nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
// Human-readable messages should go to stderr when JSON mode is enabled.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// StatusData represents the data returned by the status command.
type StatusData struct {
	Ollama StatusOllamaInfo `json:"ollama"`
	Tasks  StatusTasksInfo  `json:"tasks"`
	Config StatusConfigInfo `json:"config"`
}

// StatusOllamaInfo describes the assistant endpoint.
type StatusOllamaInfo struct {
	URL         string `json:"url"`
	Reachable   bool   `json:"reachable"`
	Model       string `json:"model"`
	ModelStatus string `json:"model_status"` // "available", "missing", "unknown"
}

// StatusTasksInfo describes the tasks file.
type StatusTasksInfo struct {
	File      string `json:"file"`
	Exists    bool   `json:"exists"`
	Total     int    `json:"total"`
	Open      int    `json:"open"`
	Completed int    `json:"completed"`
}

// StatusConfigInfo describes the config file.
type StatusConfigInfo struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// ConfigData represents the data returned by the config show command.
type ConfigData struct {
	OllamaURL          string `json:"ollama_url"`
	Model              string `json:"model"`
	TasksFile          string `json:"tasks_file"`
	RenderMarkdown     bool   `json:"render_markdown"`
	ConnectTimeoutSecs int    `json:"connect_timeout_secs"`
	Path               string `json:"config_path"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}
