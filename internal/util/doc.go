// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the taskrun application.
//
// This package contains common helper functions used throughout the
// application for string truncation, type conversion, and file operations.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth: display-width aware truncation (CJK, emoji)
//
// Type Conversion:
//   - IntToString, Int64ToString: Numeric to string conversion
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	// Truncate long task descriptions safely for display
//	display := util.TruncateWidth(description, 50)
//
//	// Write the tasks file atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0644)
package util
