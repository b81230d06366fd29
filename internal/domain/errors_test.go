package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Session.Start", ErrSessionStarted, "streaming")
	want := "Session.Start: streaming: session already started"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Session.Start", ErrEmptyQuery, "")
	want := "Session.Start: query is empty"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("ask", ErrMissingCursor, "errored")
	assert.ErrorIs(t, err, ErrMissingCursor)
	assert.ErrorIs(t, err, ErrTransportOpen)

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ask", de.Op)
	assert.Equal(t, CodeMissingCursor, de.Code())
}

func TestWrapOp(t *testing.T) {
	assert.NoError(t, WrapOp("op", nil))

	err := WrapOp("ChatThread.Send", ErrEmptyQuery)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, "ChatThread.Send: query is empty", err.Error())
}

func TestSentinelHierarchy(t *testing.T) {
	assert.ErrorIs(t, ErrMissingCursor, ErrTransportOpen)
	assert.ErrorIs(t, ErrFrameTooLarge, ErrStreamRead)
	assert.NotErrorIs(t, ErrFrameDecode, ErrStreamRead)
}

func TestIsTerminalError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrTransportOpen, true},
		{ErrMissingCursor, true},
		{ErrFrameTooLarge, true},
		{fmt.Errorf("read: %w", ErrStreamRead), true},
		{fmt.Errorf("%w: %w", ErrTransportOpen, ErrRateLimit), true},
		{ErrFrameDecode, false},
		{ErrSessionCanceled, false},
		{ErrRateLimit, false},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTerminalError(tt.err), "%v", tt.err)
	}
}

// --- ErrorCode tests ---

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, CodeUnknown},
		{errors.New("random"), CodeUnknown},
		{ErrTransportOpen, CodeTransportOpen},
		{ErrMissingCursor, CodeMissingCursor},
		{ErrStreamRead, CodeStreamRead},
		{ErrFrameTooLarge, CodeFrameTooLarge},
		{ErrFrameDecode, CodeFrameDecode},
		{ErrSessionStarted, CodeSessionStarted},
		{ErrSessionCanceled, CodeCanceled},
		{ErrEmptyQuery, CodeEmptyQuery},
		{ErrConfigLoad, CodeConfigLoad},
		// Status categories win over the transport sentinel they travel with.
		{fmt.Errorf("%w: %w: 429", ErrTransportOpen, ErrRateLimit), CodeRateLimit},
		{fmt.Errorf("%w: %w: 503", ErrTransportOpen, ErrServerError), CodeServerError},
		{fmt.Errorf("%w: %w", ErrTransportOpen, ErrBreakerOpen), CodeBreakerOpen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCodeOf(tt.err), "%v", tt.err)
	}
}
