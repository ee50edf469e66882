// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"
	"testing"

	"github.com/jeranaias/taskrun/internal/ollama"
	"github.com/jeranaias/taskrun/internal/tasks"
)

// =============================================================================
// MESSAGE ASSEMBLY TESTS
// =============================================================================

func TestBuildMessages_NewConversationWithTasks(t *testing.T) {
	snapshot := []tasks.Task{
		{ID: 1, Description: "Buy milk"},
		{ID: 2, Description: "Walk the dog", Completed: true},
	}

	messages := BuildMessages("what should I do first?", nil, snapshot)

	if len(messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(messages))
	}
	if messages[0].Role != "system" {
		t.Errorf("messages[0].Role = %q, want system", messages[0].Role)
	}
	if messages[1].Role != "user" || messages[1].Content != "what should I do first?" {
		t.Errorf("messages[1] = %+v, want the user turn last", messages[1])
	}

	// The model must be able to quote IDs and descriptions verbatim
	ctx := messages[0].Content
	if !strings.Contains(ctx, "- [ ] 1: Buy milk") {
		t.Errorf("task context missing open task line:\n%s", ctx)
	}
	if !strings.Contains(ctx, "- [x] 2: Walk the dog") {
		t.Errorf("task context missing completed task line:\n%s", ctx)
	}
}

func TestBuildMessages_NilSnapshotOmitsSystem(t *testing.T) {
	messages := BuildMessages("hello", nil, nil)

	if len(messages) != 1 {
		t.Fatalf("got %d messages, want just the user turn", len(messages))
	}
	if messages[0].Role != "user" {
		t.Errorf("messages[0].Role = %q, want user", messages[0].Role)
	}
}

func TestBuildMessages_EmptySnapshotSaysSo(t *testing.T) {
	messages := BuildMessages("hello", nil, []tasks.Task{})

	if len(messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(messages))
	}
	if !strings.Contains(messages[0].Content, "task list is empty") {
		t.Errorf("empty snapshot should say so, got:\n%s", messages[0].Content)
	}
}

func TestBuildMessages_HistoryInOrder(t *testing.T) {
	history := []ollama.Message{
		ollama.NewUserMessage("first question"),
		ollama.NewAssistantMessage("first answer"),
	}

	messages := BuildMessages("second question", history, nil)

	wantRoles := []string{"user", "assistant", "user"}
	if len(messages) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d", len(messages), len(wantRoles))
	}
	for i, want := range wantRoles {
		if messages[i].Role != want {
			t.Errorf("messages[%d].Role = %q, want %q", i, messages[i].Role, want)
		}
	}
	if messages[2].Content != "second question" {
		t.Errorf("messages[2].Content = %q, want the new turn last", messages[2].Content)
	}
}

func TestBuildMessages_DoesNotMutateHistory(t *testing.T) {
	history := []ollama.Message{
		ollama.NewUserMessage("q"),
		ollama.NewAssistantMessage("a"),
	}

	_ = BuildMessages("next", history, []tasks.Task{{ID: 1, Description: "x"}})

	if len(history) != 2 || history[0].Content != "q" || history[1].Content != "a" {
		t.Errorf("history was mutated: %+v", history)
	}
}

// =============================================================================
// TASK CONTEXT TESTS
// =============================================================================

func TestTaskContext_OneLinePerTask(t *testing.T) {
	snapshot := []tasks.Task{
		{ID: 1, Description: "Buy milk"},
		{ID: 3, Description: "Write report", Completed: true},
		{ID: 7, Description: "Call mom"},
	}

	ctx := TaskContext(snapshot)

	wantLines := []string{
		"- [ ] 1: Buy milk",
		"- [x] 3: Write report",
		"- [ ] 7: Call mom",
	}
	for _, line := range wantLines {
		if !strings.Contains(ctx, line) {
			t.Errorf("task context missing %q:\n%s", line, ctx)
		}
	}
}

func TestTaskContext_DescriptionsKeptVerbatim(t *testing.T) {
	// Descriptions are user text: punctuation, unicode and brackets pass
	// through untouched
	snapshot := []tasks.Task{{ID: 1, Description: "réserver [vol] -> Tōkyō"}}

	ctx := TaskContext(snapshot)
	if !strings.Contains(ctx, "1: réserver [vol] -> Tōkyō") {
		t.Errorf("description was altered:\n%s", ctx)
	}
}
