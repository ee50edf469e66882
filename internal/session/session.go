// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/taskrun/internal/debug"
	"github.com/jeranaias/taskrun/internal/ollama"
	"github.com/jeranaias/taskrun/internal/tasks"
	"github.com/jeranaias/taskrun/internal/util"
)

// =============================================================================
// TURN STATE
// =============================================================================

// State is the per-turn phase of a session.
type State int

const (
	// StateIdle means no request is in flight.
	StateIdle State = iota
	// StateSending means a request was issued but no frame has arrived yet.
	StateSending
	// StateStreaming means reply frames are arriving.
	StateStreaming
)

// String returns the state name for logs and the /status readout.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTurnInFlight is returned when RunTurn is called while a previous
	// turn has not finished. Turns are strictly sequential.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrSessionClosed is returned when RunTurn is called after Close.
	ErrSessionClosed = errors.New("session is closed")
)

// =============================================================================
// DIALOGUE SESSION
// =============================================================================

// ChatStreamer is the one transport call a session needs.
// *ollama.Client satisfies it.
type ChatStreamer interface {
	ChatStream(ctx context.Context, model string, messages []ollama.Message, callback ollama.StreamCallback) error
}

// Session owns one conversation: the committed history, the turn state
// machine, and the alternation guarantee (history is always user,
// assistant, user, assistant, ... with exactly one pair per finished turn).
type Session struct {
	mu      sync.Mutex
	id      string
	model   string
	client  ChatStreamer
	history []ollama.Message
	state   State
	closed  bool
	turns   int
	started time.Time

	lastStats *ollama.StreamStats

	log zerolog.Logger
}

// New creates an active session speaking to the given model.
func New(client ChatStreamer, model string) *Session {
	s := &Session{
		id:      "sess_" + uuid.NewString()[:8],
		model:   model,
		client:  client,
		started: time.Now(),
		log:     debug.For("session"),
	}
	s.log.Debug().Str("id", s.id).Str("model", model).Msg("session opened")
	return s
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

// RunTurn executes one user turn: build the payload, stream the reply,
// commit the finished pair to history.
//
// onFragment receives each text fragment the moment it arrives. onWarning
// receives frame-level decode failures; the stream continues past them.
// Either callback may be nil.
//
// Commit policy:
//   - clean completion: exactly one user/assistant pair is committed;
//   - interrupted or truncated stream with partial content: the pair is
//     committed with what arrived and the error is returned so the caller
//     can warn — the session stays active;
//   - unreachable or service failure, or a break with no content: nothing
//     is committed;
//   - cancellation: nothing is committed and the session closes. An
//     interrupt is a quit, not a retry.
func (s *Session) RunTurn(ctx context.Context, userText string, snapshot []tasks.Task, onFragment func(fragment string), onWarning func(err error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.state = StateSending
	model := s.model
	history := append([]ollama.Message(nil), s.history...)
	s.mu.Unlock()

	s.log.Debug().Str("model", model).Int("history", len(history)).Msg("turn started")

	messages := BuildMessages(userText, history, snapshot)
	acc := ollama.NewStreamAccumulator()

	err := s.client.ChatStream(ctx, model, messages, func(chunk ollama.StreamChunk) {
		if chunk.Err != nil {
			s.log.Debug().Err(chunk.Err).Msg("malformed frame in turn")
			acc.Add(chunk)
			if onWarning != nil {
				onWarning(chunk.Err)
			}
			return
		}
		s.markStreaming()
		acc.Add(chunk)
		if chunk.Content != "" && onFragment != nil {
			onFragment(chunk.Content)
		}
	})

	content := acc.GetContent()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle

	switch {
	case err == nil:
		s.commitLocked(userText, content)
		if stats := acc.GetStats(); stats != nil {
			s.lastStats = stats
		}
		return nil

	case errors.Is(err, context.Canceled):
		s.closed = true
		s.log.Debug().Str("id", s.id).Msg("turn cancelled, session closed")
		return err

	case (ollama.IsInterrupted(err) || ollama.IsTruncated(err)) && content != "":
		// The stream broke mid-reply. What arrived is real; keep it so the
		// next turn carries the full exchange.
		s.commitLocked(userText, content)
		return err

	default:
		return err
	}
}

// markStreaming flips sending to streaming on the first reply frame.
func (s *Session) markStreaming() {
	s.mu.Lock()
	if s.state == StateSending {
		s.state = StateStreaming
	}
	s.mu.Unlock()
}

// commitLocked appends one finished user/assistant pair. Caller holds mu.
func (s *Session) commitLocked(userText, reply string) {
	s.history = append(s.history,
		ollama.NewUserMessage(userText),
		ollama.NewAssistantMessage(reply),
	)
	s.turns++
	s.log.Debug().Int("turns", s.turns).Int("history", len(s.history)).Msg("turn committed")
}

// =============================================================================
// LIFECYCLE AND ACCESSORS
// =============================================================================

// Close marks the session finished. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.log.Debug().Str("id", s.id).Int("turns", s.turns).Msg("session closed")
	}
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Model returns the model this session is speaking to.
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetModel switches the model for subsequent turns. History is kept; the
// new model sees the same conversation.
func (s *Session) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	s.log.Debug().Str("model", model).Msg("model switched")
}

// State returns the current turn state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns the number of committed turns.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// History returns a copy of the committed conversation.
func (s *Session) History() []ollama.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ollama.Message(nil), s.history...)
}

// ClearHistory drops the committed conversation. The turn counter and
// session clock keep running; only the context sent to the model resets.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.log.Debug().Str("id", s.id).Msg("history cleared")
}

// Elapsed returns how long the session has been open.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.started)
}

// LastStats returns the stats of the most recent completed turn, or nil.
func (s *Session) LastStats() *ollama.StreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStats
}

// FormatDuration returns a human-readable duration for the exit summary.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		secs := int(d.Seconds())
		return util.IntToString(secs) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return util.IntToString(mins) + "m"
	}
	return util.IntToString(mins) + "m " + util.IntToString(secs) + "s"
}
