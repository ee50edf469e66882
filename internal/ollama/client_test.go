// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient returns a client pointed at the given test server URL.
func newTestClient(url string) *Client {
	return NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: 5 * time.Second})
}

// =============================================================================
// CHAT STREAM TESTS
// =============================================================================

func TestChatStream_EndToEnd(t *testing.T) {
	var gotReq ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("request body did not decode: %v", err)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"model":"llama3.2","message":{"role":"assistant","content":"Hel"},"done":false}`+"\n")
		io.WriteString(w, `{"model":"llama3.2","message":{"role":"assistant","content":"lo"},"done":false}`+"\n")
		io.WriteString(w, `{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	acc := NewStreamAccumulator()

	err := client.ChatStream(context.Background(), "llama3.2",
		[]Message{NewUserMessage("say hello")},
		func(chunk StreamChunk) { acc.Add(chunk) })
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if acc.GetContent() != "Hello" {
		t.Errorf("accumulated content = %q, want 'Hello'", acc.GetContent())
	}
	if !acc.IsDone() {
		t.Error("stream should have completed")
	}

	// Request shape: exactly what the chat endpoint expects
	if gotReq.Model != "llama3.2" {
		t.Errorf("request model = %q, want 'llama3.2'", gotReq.Model)
	}
	if !gotReq.Stream {
		t.Error("request must ask for a streaming response")
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("request messages = %+v, want single user message", gotReq.Messages)
	}
}

// TestChatStream_DeliversIncrementally verifies fragments reach the callback
// while the response body is still open, not after it completes.
func TestChatStream_DeliversIncrementally(t *testing.T) {
	firstChunkSeen := make(chan struct{})
	var sawTimeout atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("test server does not support flushing")
			return
		}

		io.WriteString(w, `{"message":{"role":"assistant","content":"first"},"done":false}`+"\n")
		flusher.Flush()

		// Hold the body open until the client proves it saw the fragment
		select {
		case <-firstChunkSeen:
		case <-time.After(3 * time.Second):
			sawTimeout.Store(true)
		}

		io.WriteString(w, `{"done":true}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var once sync.Once

	err := client.ChatStream(context.Background(), "llama3.2",
		[]Message{NewUserMessage("hi")},
		func(chunk StreamChunk) {
			if chunk.Content != "" {
				once.Do(func() { close(firstChunkSeen) })
			}
		})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if sawTimeout.Load() {
		t.Error("first fragment was not delivered until the response body completed")
	}
}

func TestChatStream_ServiceError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantInMsg  string
		wantStatus int
	}{
		{
			name:       "internal error with json body",
			status:     http.StatusInternalServerError,
			body:       `{"error":"model runner has crashed"}`,
			wantInMsg:  "model runner has crashed",
			wantStatus: 500,
		},
		{
			name:       "unknown model",
			status:     http.StatusNotFound,
			body:       `{"error":"model 'nope' not found, try pulling it first"}`,
			wantInMsg:  "not found",
			wantStatus: 404,
		},
		{
			name:       "non-json error body",
			status:     http.StatusBadGateway,
			body:       `upstream exploded`,
			wantInMsg:  "502",
			wantStatus: 502,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			err := client.ChatStream(context.Background(), "nope",
				[]Message{NewUserMessage("hi")},
				func(chunk StreamChunk) { t.Error("no chunks expected on a failed request") })

			if !IsServiceError(err) {
				t.Fatalf("error = %v, want service error", err)
			}
			status, ok := ServiceStatus(err)
			if !ok || status != tt.wantStatus {
				t.Errorf("ServiceStatus = (%d, %v), want (%d, true)", status, ok, tt.wantStatus)
			}
			if !strings.Contains(err.Error(), tt.wantInMsg) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantInMsg)
			}
		})
	}
}

func TestChatStream_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	client := newTestClient(server.URL)
	err := client.ChatStream(context.Background(), "llama3.2",
		[]Message{NewUserMessage("hi")},
		func(chunk StreamChunk) { t.Error("no chunks expected when nothing is listening") })

	if !IsUnreachable(err) {
		t.Fatalf("error = %v, want unreachable", err)
	}
	if IsServiceError(err) {
		t.Error("a connection failure is not a service error")
	}
}

func TestChatStream_CancelBeforeFlight(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"done":true}`+"\n")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	err := client.ChatStream(ctx, "llama3.2",
		[]Message{NewUserMessage("hi")},
		func(chunk StreamChunk) {})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled untranslated", err)
	}
	if IsUnreachable(err) {
		t.Error("cancellation must not masquerade as an unreachable server")
	}
}

func TestChatStream_CancelMidStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		io.WriteString(w, `{"message":{"role":"assistant","content":"partial"},"done":false}`+"\n")
		flusher.Flush()
		<-r.Context().Done() // hold the stream open until the client walks away
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newTestClient(server.URL)
	var got string
	err := client.ChatStream(ctx, "llama3.2",
		[]Message{NewUserMessage("hi")},
		func(chunk StreamChunk) {
			got += chunk.Content
			cancel()
		})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled untranslated", err)
	}
	if got != "partial" {
		t.Errorf("content before cancel = %q, want 'partial'", got)
	}
}

func TestChatStream_TruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Body ends cleanly but no frame ever carried done:true
		io.WriteString(w, `{"message":{"role":"assistant","content":"cut"},"done":false}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var got string
	err := client.ChatStream(context.Background(), "llama3.2",
		[]Message{NewUserMessage("hi")},
		func(chunk StreamChunk) { got += chunk.Content })

	if !IsTruncated(err) {
		t.Fatalf("error = %v, want truncated stream", err)
	}
	if got != "cut" {
		t.Errorf("content before truncation = %q, want 'cut'", got)
	}
}

// =============================================================================
// HEALTH AND MODEL LISTING TESTS
// =============================================================================

func TestCheckRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning failed against a live server: %v", err)
	}
}

func TestCheckRunning_NotRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)
	err := client.CheckRunning(context.Background())

	if !IsNotRunning(err) {
		t.Errorf("error = %v, want not-running", err)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"models":[
			{"name":"llama3.2:latest","size":2019393189},
			{"name":"qwen2.5-coder:7b","size":4683087332}
		]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}

	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].Name != "llama3.2:latest" {
		t.Errorf("models[0].Name = %q, want 'llama3.2:latest'", models[0].Name)
	}
}

func TestHasModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"models":[{"name":"llama3.2:latest"}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{"exact tag", "llama3.2:latest", true},
		{"bare name matches latest", "llama3.2", true},
		{"missing model", "mistral", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.HasModel(context.Background(), tt.model)
			if err != nil {
				t.Fatalf("HasModel failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasModel(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

// =============================================================================
// ERROR CLASSIFICATION TESTS
// =============================================================================

func TestClientError_Classification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"unreachable", &ClientError{Type: ErrTypeUnreachable}, IsUnreachable, true},
		{"service is not unreachable", &ClientError{Type: ErrTypeService, Status: 500}, IsUnreachable, false},
		{"service", &ClientError{Type: ErrTypeService, Status: 500}, IsServiceError, true},
		{"interrupted", &ClientError{Type: ErrTypeInterrupted}, IsInterrupted, true},
		{"truncated", &ClientError{Type: ErrTypeTruncated}, IsTruncated, true},
		{"malformed", &ClientError{Type: ErrTypeMalformed}, IsMalformedFrame, true},
		{"timeout", &ClientError{Type: ErrTypeTimeout}, IsTimeout, true},
		{"nil error", nil, IsUnreachable, false},
		{"plain error", errors.New("boom"), IsServiceError, false},
		{"wrapped unreachable", fmt.Errorf("turn failed: %w", &ClientError{Type: ErrTypeUnreachable}), IsUnreachable, true},
		{"deadline exceeded counts as timeout", context.DeadlineExceeded, IsTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("classification of %v = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestServiceStatus(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &ClientError{Type: ErrTypeService, Status: 503, Message: "loading"})

	status, ok := ServiceStatus(err)
	if !ok || status != 503 {
		t.Errorf("ServiceStatus = (%d, %v), want (503, true)", status, ok)
	}

	if _, ok := ServiceStatus(&ClientError{Type: ErrTypeUnreachable}); ok {
		t.Error("ServiceStatus should not report a status for non-service errors")
	}

	if _, ok := ServiceStatus(nil); ok {
		t.Error("ServiceStatus(nil) should report no status")
	}
}

func TestClientError_Error(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &ClientError{Type: ErrTypeUnreachable, Message: "Ollama is not reachable", Cause: cause}

	if !strings.Contains(err.Error(), "Ollama is not reachable") {
		t.Errorf("Error() = %q, should carry the message", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("ClientError should unwrap to its cause")
	}
}
