// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"

	"github.com/jeranaias/taskrun/internal/debug"
	"github.com/jeranaias/taskrun/internal/util"
)

// =============================================================================
// TASK STORE
// =============================================================================

// Store persists the task list as pretty-printed JSON in a single file.
//
// The store is deliberately forgiving on the read side: a missing or
// unparseable file is an empty list, never an error. The CLI should always
// be able to show *something*, and a half-written file from some other
// editor should not brick the tool.
type Store struct {
	path string
	log  zerolog.Logger
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		log:  debug.For("store"),
	}
}

// Path returns the file path backing this store.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load reads the task list from disk.
// Missing file → empty list. Unparseable file → empty list.
func (s *Store) Load() ([]Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug().Str("path", s.path).Msg("tasks file missing, starting empty")
			return []Task{}, nil
		}
		return nil, err
	}

	var list []Task
	if err := json.Unmarshal(data, &list); err != nil {
		s.log.Debug().Str("path", s.path).Err(err).Msg("tasks file unparseable, starting empty")
		return []Task{}, nil
	}

	s.log.Debug().Int("count", len(list)).Msg("tasks loaded")
	return list, nil
}

// ReadAll returns a point-in-time snapshot of the task list for read-only
// consumers. The assistant prompt is built from this snapshot; nothing
// downstream of it ever writes back.
func (s *Store) ReadAll() ([]Task, error) {
	return s.Load()
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save writes the task list to disk.
func (s *Store) Save(list []Task) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(s.path, data, 0644); err != nil {
		return err
	}

	s.log.Debug().Int("count", len(list)).Msg("tasks saved")
	return nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Add appends a new task with the next free ID and persists the list.
func (s *Store) Add(description string) (Task, error) {
	list, err := s.Load()
	if err != nil {
		return Task{}, err
	}

	task := Task{
		ID:          NextID(list),
		Description: description,
	}
	list = append(list, task)

	if err := s.Save(list); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Complete marks the task with the given ID as done. It reports whether the
// task was found; marking an already-completed task again is not an error.
func (s *Store) Complete(id int) (bool, error) {
	list, err := s.Load()
	if err != nil {
		return false, err
	}

	i := FindByID(list, id)
	if i < 0 {
		return false, nil
	}

	list[i].Completed = true
	if err := s.Save(list); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the task with the given ID. It reports whether anything was
// removed and only rewrites the file when the list actually changed.
func (s *Store) Remove(id int) (bool, error) {
	list, err := s.Load()
	if err != nil {
		return false, err
	}

	i := FindByID(list, id)
	if i < 0 {
		return false, nil
	}

	list = append(list[:i], list[i+1:]...)
	if err := s.Save(list); err != nil {
		return false, err
	}
	return true, nil
}
