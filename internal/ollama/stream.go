// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/taskrun/internal/debug"
	"github.com/jeranaias/taskrun/internal/util"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader decodes the newline-delimited JSON frames of a streaming
// response. Partial reads at network buffer boundaries are invisible to the
// caller: bufio carries bytes across reads until a full line is available,
// and a final unterminated line at EOF is still decoded.
type StreamReader struct {
	reader *bufio.Reader
	model  string
	log    zerolog.Logger
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
		log:    debug.For("stream"),
	}
}

// Process reads the stream and calls the callback for each chunk, in order,
// until the final frame arrives. Blocks until the stream completes, breaks,
// or the context is cancelled.
//
// A frame that fails to decode is delivered as a chunk with Err set and
// decoding continues; one bad line never kills the stream. Running out of
// input before the final frame returns a Truncated error; a read failure
// mid-stream returns an Interrupted error. In both cases every chunk already
// delivered stands. Caller-initiated cancellation returns ctx.Err()
// untranslated so it stays distinguishable from remote failure.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				// A cancelled context closes the body and fails the
				// read; report the cancellation, not the read error.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err == io.EOF {
					return &ClientError{
						Type:    ErrTypeTruncated,
						Message: "response stream ended before completion",
					}
				}
				return &ClientError{
					Type:    ErrTypeInterrupted,
					Message: "response stream interrupted",
					Cause:   err,
				}
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and decodes a single frame from the stream.
// Returns (nil, nil) for blank lines, a chunk with Err set for malformed
// frames, and io.EOF once input is exhausted.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		if len(line) == 0 {
			return nil, err
		}
		// A final line without a trailing newline is still a frame
	}

	// Skip blank lines between frames
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, nil
	}

	var response ChatResponse
	if err := json.Unmarshal(line, &response); err != nil {
		// A single undecodable frame is surfaced, never fatal: the
		// consumer decides whether to warn, and decoding continues.
		s.log.Debug().
			Str("line", util.TruncateRunes(string(bytes.TrimSpace(line)), 80)).
			Err(err).
			Msg("malformed frame")
		return &StreamChunk{
			Model: s.model,
			Err: &ClientError{
				Type:    ErrTypeMalformed,
				Message: "malformed frame in response stream",
				Cause:   err,
			},
		}, nil
	}

	// Track the model across frames
	if response.Model != "" {
		s.model = response.Model
	}

	chunk := &StreamChunk{
		Content:    response.Message.Content,
		Done:       response.Done,
		DoneReason: response.DoneReason,
		Model:      s.model,
	}

	// The final frame carries the statistics
	if response.Done {
		chunk.TotalDuration = time.Duration(response.TotalDuration)
		chunk.LoadDuration = time.Duration(response.LoadDuration)
		chunk.PromptEvalDuration = time.Duration(response.PromptEvalDuration)
		chunk.EvalDuration = time.Duration(response.EvalDuration)
		chunk.PromptTokens = response.PromptEvalCount
		chunk.CompletionTokens = response.EvalCount
	}

	return chunk, nil
}

// =============================================================================
// STREAM STATISTICS
// =============================================================================

// StreamStats holds statistics collected during streaming.
type StreamStats struct {
	// Timing
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Durations (from the final frame)
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration

	// Token counts
	PromptTokens     int
	CompletionTokens int

	// Computed
	TTFT            time.Duration // Time to first token
	TokensPerSecond float64
}

// NewStreamStats creates a new StreamStats with start time set.
func NewStreamStats() *StreamStats {
	return &StreamStats{
		StartTime: time.Now(),
	}
}

// RecordFirstToken marks the time of first token arrival.
func (s *StreamStats) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes final statistics from the last chunk.
func (s *StreamStats) Finalize(chunk StreamChunk) {
	s.EndTime = time.Now()
	s.TotalDuration = chunk.TotalDuration
	s.LoadDuration = chunk.LoadDuration
	s.PromptEvalDuration = chunk.PromptEvalDuration
	s.EvalDuration = chunk.EvalDuration
	s.PromptTokens = chunk.PromptTokens
	s.CompletionTokens = chunk.CompletionTokens

	// Calculate tokens per second
	if s.EvalDuration > 0 {
		seconds := s.EvalDuration.Seconds()
		s.TokensPerSecond = float64(s.CompletionTokens) / seconds
	}
}

// Format returns a formatted string representation.
func (s *StreamStats) Format() string {
	return formatStatsDuration(s.TotalDuration.Seconds()) + " | " +
		util.IntToString(s.CompletionTokens) + " tokens | " +
		util.FloatToStringPrec(s.TokensPerSecond, 1) + " tok/s | " +
		"TTFT " + util.Int64ToString(s.TTFT.Milliseconds()) + "ms"
}

// formatStatsDuration formats seconds as a compact duration string.
func formatStatsDuration(seconds float64) string {
	if seconds < 1 {
		return util.IntToString(int(seconds*1000)) + "ms"
	}
	return util.FloatToStringPrec(seconds, 1) + "s"
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects streaming chunks and builds statistics.
type StreamAccumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	content strings.Builder
	Stats   *StreamStats
	Done    bool
	// Malformed counts frames that failed to decode and were skipped over
	Malformed int
}

// NewStreamAccumulator creates a new accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		Stats: NewStreamStats(),
	}
}

// Add processes a new chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.Err != nil {
		a.Malformed++
		return
	}

	// Record first token
	if chunk.Content != "" && a.content.Len() == 0 {
		a.Stats.RecordFirstToken()
	}

	// Accumulate content
	a.content.WriteString(chunk.Content)

	// Check if done
	if chunk.Done {
		a.Done = true
		a.Stats.Finalize(chunk)
	}
}

// GetContent returns the accumulated content.
func (a *StreamAccumulator) GetContent() string {
	return a.content.String()
}

// IsDone returns whether streaming is complete.
func (a *StreamAccumulator) IsDone() bool {
	return a.Done
}

// GetStats returns the collected statistics.
func (a *StreamAccumulator) GetStats() *StreamStats {
	return a.Stats
}
