// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

// =============================================================================
// TASK TYPE
// =============================================================================

// Task is a single todo item.
type Task struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// NextID returns the ID the next task should get: one past the highest
// existing ID. Holes left by removed tasks are not reused while a higher
// ID remains, so IDs stay stable for the lifetime of the list.
func NextID(list []Task) int {
	max := 0
	for _, t := range list {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// FindByID returns the index of the task with the given ID, or -1.
func FindByID(list []Task, id int) int {
	for i, t := range list {
		if t.ID == id {
			return i
		}
	}
	return -1
}
