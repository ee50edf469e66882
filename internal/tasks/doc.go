// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks implements the todo list: the Task type and a file-backed
// Store that persists tasks as pretty-printed JSON.
//
// The store reads forgivingly (missing or corrupt file is an empty list)
// and writes atomically (temp file, fsync, rename), so a crash mid-save
// never leaves a torn tasks file behind.
//
// Everything above this package treats it as the single source of truth:
// the CLI commands mutate through Add/Complete/Remove, and the assistant
// reads a snapshot through ReadAll.
package tasks
