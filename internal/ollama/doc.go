// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// This package implements a streaming client for the Ollama local LLM
// server. Responses arrive as newline-delimited JSON frames and are decoded
// incrementally - the first content fragment reaches the caller as soon as
// the model produces it, with no whole-body buffering.
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - Message: Chat message with role and content
//   - ChatRequest: Request structure for chat completions
//   - StreamChunk: One decoded frame of a streaming response
//   - StreamReader: Newline-delimited JSON frame decoder
//   - ClientError: Structured error with failure classification
//
// # Usage
//
// Create a client and stream a chat completion:
//
//	client := ollama.NewClient()
//	err := client.ChatStream(ctx, "llama3.2", messages, func(chunk ollama.StreamChunk) {
//	    if chunk.Err != nil {
//	        // one frame failed to decode; the stream continues
//	        return
//	    }
//	    fmt.Print(chunk.Content)
//	})
//
// # Failure classification
//
// Errors carry a type that callers branch on with the Is* predicates:
// IsUnreachable (no connection at all), IsServiceError (non-2xx response,
// status via ServiceStatus), IsInterrupted (stream broke after it started),
// IsTruncated (stream ended without a final frame), IsMalformedFrame (one
// undecodable frame). Interrupted and Truncated streams keep everything
// already delivered.
package ollama
