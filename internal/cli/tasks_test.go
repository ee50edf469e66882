// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/taskrun/internal/config"
	"github.com/jeranaias/taskrun/internal/tasks"
)

// useTempTasksFile points the global config at a throwaway tasks file
// so handlers run against it, and returns a store on the same file for
// seeding and inspection.
func useTempTasksFile(t *testing.T) *tasks.Store {
	t.Helper()

	cfg := config.Default()
	cfg.TasksFile = filepath.Join(t.TempDir(), "tasks.json")
	config.SetGlobal(cfg)
	t.Cleanup(config.ResetGlobalForTesting)

	return tasks.NewStore(cfg.TasksFile)
}

// =============================================================================
// RENDERING TESTS
// =============================================================================

// TestRenderTaskLine pins the exact line format. Scripts and muscle
// memory both depend on it.
func TestRenderTaskLine(t *testing.T) {
	open := tasks.Task{ID: 1, Description: "Buy milk"}
	require.Equal(t, "  ⬜ [1] Buy milk", renderTaskLine(open))

	done := tasks.Task{ID: 2, Description: "Walk the dog", Completed: true}
	require.Equal(t, "  ✅ [2] Walk the dog", renderTaskLine(done))
}

func TestRenderTaskList_Empty(t *testing.T) {
	require.Equal(t, "📝 No tasks yet!", renderTaskList(nil))
	require.Equal(t, "📝 No tasks yet!", renderTaskList([]tasks.Task{}))
}

func TestRenderTaskList_Lines(t *testing.T) {
	list := []tasks.Task{
		{ID: 1, Description: "Buy milk"},
		{ID: 2, Description: "Walk the dog", Completed: true},
	}

	out := renderTaskList(list)
	lines := strings.Split(out, "\n")

	require.Len(t, lines, 3)
	require.Equal(t, "🗒️  Todo List:", lines[0])
	require.Equal(t, "  ⬜ [1] Buy milk", lines[1])
	require.Equal(t, "  ✅ [2] Walk the dog", lines[2])
	require.False(t, strings.HasSuffix(out, "\n"), "caller adds the final newline")
}

// =============================================================================
// ID PARSING TESTS
// =============================================================================

func TestParseTaskID(t *testing.T) {
	id, err := parseTaskID("2", "taskrun done 2")
	require.NoError(t, err)
	require.Equal(t, 2, id)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"non-numeric", "abc"},
		{"zero", "0"},
		{"negative", "-1"},
		{"float", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTaskID(tt.raw, "taskrun done 2")
			require.Error(t, err)
			require.True(t, IsValidationError(err))
			require.Equal(t, ExitUsageError, GetExitCode(err))
		})
	}
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

func TestHandleAdd_Persists(t *testing.T) {
	store := useTempTasksFile(t)

	require.NoError(t, HandleAdd(Args{Description: "Buy milk"}))

	list, err := store.Load()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, list[0].ID)
	require.Equal(t, "Buy milk", list[0].Description)
	require.False(t, list[0].Completed)
}

func TestHandleAdd_EmptyDescriptionFails(t *testing.T) {
	useTempTasksFile(t)

	err := HandleAdd(Args{Description: "   "})
	require.Error(t, err)
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleDone_MarksComplete(t *testing.T) {
	store := useTempTasksFile(t)
	_, err := store.Add("Buy milk")
	require.NoError(t, err)

	require.NoError(t, HandleDone(Args{IDArg: "1"}))

	list, err := store.Load()
	require.NoError(t, err)
	require.True(t, list[0].Completed)
}

// TestHandleDone_MissingTaskIsNotAnError pins a deliberate choice: a
// not-found id prints a report and exits 0 so scripted cleanup loops
// do not abort.
func TestHandleDone_MissingTaskIsNotAnError(t *testing.T) {
	useTempTasksFile(t)

	require.NoError(t, HandleDone(Args{IDArg: "99"}))
}

func TestHandleDone_BadIDFails(t *testing.T) {
	useTempTasksFile(t)

	err := HandleDone(Args{IDArg: "abc"})
	require.Error(t, err)
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleRemove_Removes(t *testing.T) {
	store := useTempTasksFile(t)
	_, err := store.Add("first")
	require.NoError(t, err)
	_, err = store.Add("second")
	require.NoError(t, err)

	require.NoError(t, HandleRemove(Args{IDArg: "1"}))

	list, err := store.Load()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 2, list[0].ID, "remaining task keeps its id")
}

func TestHandleRemove_MissingIDFails(t *testing.T) {
	useTempTasksFile(t)

	err := HandleRemove(Args{})
	require.Error(t, err)
	require.Equal(t, ExitUsageError, GetExitCode(err))
}
