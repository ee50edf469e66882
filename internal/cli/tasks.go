// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tasks.go - Task CRUD commands (list, add, done, remove).
//
// Output strings are part of the CLI contract; scripts grep for them.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/taskrun/internal/config"
	"github.com/jeranaias/taskrun/internal/tasks"
)

// watchDebounce collapses event bursts from editors and atomic saves.
const watchDebounce = 250 * time.Millisecond

// openStore opens the task store at the configured path.
func openStore() *tasks.Store {
	return tasks.NewStore(config.Global().TasksFile)
}

// =============================================================================
// LIST COMMAND
// =============================================================================

// HandleList handles the "list" command (also the bare "taskrun" default).
func HandleList(args Args) error {
	store := openStore()

	if args.Watch && !args.JSON {
		return runListWatch(store)
	}

	list, err := store.Load()
	if err != nil {
		return WrapError(err, "failed to read tasks")
	}

	if args.JSON {
		return printTasksJSON(list)
	}

	fmt.Println(renderTaskList(list))
	return nil
}

// renderTaskLine renders a single task entry.
func renderTaskLine(t tasks.Task) string {
	status := "⬜"
	if t.Completed {
		status = "✅"
	}
	return fmt.Sprintf("  %s [%d] %s", status, t.ID, t.Description)
}

// renderTaskList renders the full list view, without a trailing newline.
func renderTaskList(list []tasks.Task) string {
	if len(list) == 0 {
		return "📝 No tasks yet!"
	}

	var b strings.Builder
	b.WriteString("🗒️  Todo List:")
	for _, t := range list {
		b.WriteByte('\n')
		b.WriteString(renderTaskLine(t))
	}
	return b.String()
}

// printTasksJSON prints the raw task array for scripting.
func printTasksJSON(list []tasks.Task) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

// =============================================================================
// WATCH MODE
// =============================================================================

// runListWatch re-renders the list whenever the tasks file changes, until
// interrupted.
func runListWatch(store *tasks.Store) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapError(err, "failed to start file watcher")
	}
	defer watcher.Close()

	// Watch the parent directory. Saves replace the file via temp-file
	// rename, and a watch on the old inode goes stale after the first one.
	dir := filepath.Dir(store.Path())
	if err := watcher.Add(dir); err != nil {
		return WrapError(err, "failed to watch "+dir)
	}
	target := filepath.Base(store.Path())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	printListSnapshot(store)
	fmt.Fprintln(os.Stderr, DimStyle.Render(fmt.Sprintf("[Watching %s. Ctrl+C to stop]", store.Path())))

	var pending <-chan time.Time
	for {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, DimStyle.Render("[Watch stopped]"))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", WarningStyle.Render("[Warn]"), err)

		case <-pending:
			pending = nil
			fmt.Println()
			fmt.Println(DimStyle.Render(time.Now().Format("15:04:05") + " " + target + " changed"))
			printListSnapshot(store)
		}
	}
}

// printListSnapshot renders the current list. Read failures are reported but
// do not stop a running watch.
func printListSnapshot(store *tasks.Store) {
	list, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		return
	}
	fmt.Println(renderTaskList(list))
}

// =============================================================================
// MUTATING COMMANDS
// =============================================================================

// HandleAdd handles the "add" command.
func HandleAdd(args Args) error {
	description := strings.TrimSpace(args.Description)
	if description == "" {
		return ErrMissingArgument("description", "taskrun add Buy milk")
	}

	task, err := openStore().Add(description)
	if err != nil {
		return WrapError(err, "failed to save tasks")
	}

	fmt.Printf("✅  Adding task: %s\n", task.Description)
	return nil
}

// HandleDone handles the "done" command.
func HandleDone(args Args) error {
	id, err := parseTaskID(args.IDArg, "taskrun done 2")
	if err != nil {
		return err
	}

	found, err := openStore().Complete(id)
	if err != nil {
		return WrapError(err, "failed to save tasks")
	}

	if found {
		fmt.Printf("✔️  Marked task #%d as done\n", id)
	} else {
		// Not finding the task is a report, not a failure.
		fmt.Printf("❌ Task #%d not found\n", id)
	}
	return nil
}

// HandleRemove handles the "remove" command.
func HandleRemove(args Args) error {
	id, err := parseTaskID(args.IDArg, "taskrun remove 2")
	if err != nil {
		return err
	}

	found, err := openStore().Remove(id)
	if err != nil {
		return WrapError(err, "failed to save tasks")
	}

	if found {
		fmt.Printf("🗑️  Removed task #%d\n", id)
	} else {
		fmt.Printf("❌ Task #%d not found\n", id)
	}
	return nil
}

// parseTaskID validates the raw id argument for done/remove.
func parseTaskID(raw, example string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, ErrMissingArgument("task id", example)
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, NewValidationErrorWithExample("task id", raw, "must be a positive integer", example)
	}
	return id, nil
}
