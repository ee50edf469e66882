// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"

	"github.com/jeranaias/taskrun/internal/ollama"
	"github.com/jeranaias/taskrun/internal/tasks"
	"github.com/jeranaias/taskrun/internal/util"
)

// =============================================================================
// PROMPT CONTEXT BUILDER
// =============================================================================

// systemPreamble anchors the assistant to its job. Kept short: small local
// models drift when the system prompt rambles.
const systemPreamble = "You are the assistant built into taskrun, a tiny command-line todo app. " +
	"Be concise. When the user asks about their tasks, refer to tasks by their ID and description."

// BuildMessages assembles the full message payload for one chat turn:
// optional task context, then the prior conversation in order, then the new
// user turn.
//
// It is a pure function: no I/O, and history is never mutated. A nil
// snapshot means tasks were not requested (no system segment at all); an
// empty non-nil snapshot tells the model the list is empty.
func BuildMessages(userText string, history []ollama.Message, snapshot []tasks.Task) []ollama.Message {
	messages := make([]ollama.Message, 0, len(history)+2)

	if snapshot != nil {
		messages = append(messages, ollama.NewSystemMessage(TaskContext(snapshot)))
	}

	messages = append(messages, history...)
	messages = append(messages, ollama.NewUserMessage(userText))

	return messages
}

// TaskContext renders a task snapshot as the system segment for the model.
// Every task appears on its own line with its literal ID and description,
// so the model can quote them back verbatim.
func TaskContext(snapshot []tasks.Task) string {
	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n\n")

	if len(snapshot) == 0 {
		sb.WriteString("The task list is empty.")
		return sb.String()
	}

	sb.WriteString("Current tasks:\n")
	for i, t := range snapshot {
		if i > 0 {
			sb.WriteString("\n")
		}
		if t.Completed {
			sb.WriteString("- [x] ")
		} else {
			sb.WriteString("- [ ] ")
		}
		sb.WriteString(util.IntToString(t.ID))
		sb.WriteString(": ")
		sb.WriteString(t.Description)
	}

	return sb.String()
}
