// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs the conversation with the assistant.
//
// A Session owns one conversation: the committed message history, the
// per-turn state machine (idle, sending, streaming), and the commit rules
// that keep history strictly alternating user/assistant. One RunTurn call
// is one turn; turns never overlap.
//
// BuildMessages is the pure half: it assembles the wire payload for a turn
// from the task snapshot, the prior history, and the new user text, without
// touching any of them.
package session
