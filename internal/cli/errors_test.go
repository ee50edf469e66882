// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/taskrun/internal/config"
	"github.com/jeranaias/taskrun/internal/ollama"
)

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

// TestGetExitCode covers the full exit code contract. Scripts branch on
// these values, so each category maps to exactly one code.
func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil error is success",
			err:  nil,
			want: ExitSuccess,
		},
		{
			name: "usage error",
			err:  NewUsageError("config", "unknown subcommand"),
			want: ExitUsageError,
		},
		{
			name: "validation error",
			err:  NewValidationErrorWithExample("task id", "abc", "must be a positive integer", "taskrun done 2"),
			want: ExitUsageError,
		},
		{
			name: "missing argument",
			err:  ErrMissingArgument("description", "taskrun add Buy milk"),
			want: ExitUsageError,
		},
		{
			name: "config validation error",
			err:  &config.ValidationError{Field: "ollama_url", Message: "invalid URL"},
			want: ExitConfigError,
		},
		{
			name: "unreachable server",
			err:  ollama.ErrNotRunning,
			want: ExitNetworkError,
		},
		{
			name: "request timeout",
			err:  ollama.ErrTimeout,
			want: ExitTimeoutError,
		},
		{
			name: "service rejection",
			err:  &ollama.ClientError{Type: ollama.ErrTypeService, Status: 500, Message: "model failed"},
			want: ExitServiceError,
		},
		{
			name: "flattened not-running message",
			err:  fmt.Errorf("Ollama is not running. Start it with: ollama serve"),
			want: ExitNetworkError,
		},
		{
			name: "flattened config message",
			err:  errors.New("failed to load config: bad TOML"),
			want: ExitConfigError,
		},
		{
			name: "flattened timeout message",
			err:  errors.New("dial tcp: connection timed out"),
			want: ExitTimeoutError,
		},
		{
			name: "anything else is a general error",
			err:  errors.New("disk full"),
			want: ExitGeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

// TestGetExitCode_WrappedErrorsKeepTheirCode checks that WrapError does
// not flatten a typed error into the general category.
func TestGetExitCode_WrappedErrorsKeepTheirCode(t *testing.T) {
	wrapped := WrapError(ollama.ErrTimeout, "Ollama did not answer in time")
	require.Equal(t, ExitTimeoutError, GetExitCode(wrapped))

	doubleWrapped := WrapError(wrapped, "preflight failed")
	require.Equal(t, ExitTimeoutError, GetExitCode(doubleWrapped))

	wrappedUsage := WrapError(NewUsageError("ask", "no question provided"), "bad invocation")
	require.Equal(t, ExitUsageError, GetExitCode(wrappedUsage))
}

// TestGetExitCode_TimeoutBeatsUnreachable pins the precedence: a
// preflight timeout is reported as a timeout even though the server was
// also unreachable in the everyday sense.
func TestGetExitCode_TimeoutBeatsUnreachable(t *testing.T) {
	err := &ollama.ClientError{Type: ollama.ErrTypeTimeout, Message: "Ollama is not running, request timed out"}
	require.Equal(t, ExitTimeoutError, GetExitCode(err))
}

// =============================================================================
// ERROR TYPE TESTS
// =============================================================================

func TestUsageError_Message(t *testing.T) {
	err := NewUsageError("ask", "no question provided")
	require.Equal(t, "ask: no question provided", err.Error())
	require.True(t, IsUsageError(err))
	require.False(t, IsValidationError(err))

	bare := &UsageError{Message: "bad flags"}
	require.Equal(t, "bad flags", bare.Error())
}

func TestValidationError_Message(t *testing.T) {
	err := NewValidationErrorWithExample("task id", "abc", "must be a positive integer", "taskrun done 2")
	msg := err.Error()

	require.Contains(t, msg, "invalid task id")
	require.Contains(t, msg, "got: abc")
	require.Contains(t, msg, "Example: taskrun done 2")
	require.True(t, IsValidationError(err))
}

func TestErrMissingArgument_OmitsEmptyValue(t *testing.T) {
	err := ErrMissingArgument("description", "taskrun add Buy milk")
	msg := err.Error()

	require.Contains(t, msg, "required argument missing")
	require.NotContains(t, msg, "got:", "no value line when nothing was provided")
	require.Contains(t, msg, "taskrun add Buy milk")
}

func TestWrapError(t *testing.T) {
	require.NoError(t, WrapError(nil, "context"))

	base := errors.New("boom")
	wrapped := WrapError(base, "while saving")
	require.EqualError(t, wrapped, "while saving: boom")
	require.ErrorIs(t, wrapped, base)
}
