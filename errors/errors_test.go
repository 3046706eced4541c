package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorTransient},
		{"connection timeout", ErrConnectionTimeout, ErrorTransient},
		{"connection lost", ErrConnectionLost, ErrorTransient},
		{"rate limited", ErrRateLimited, ErrorTransient},
		{"context deadline", context.DeadlineExceeded, ErrorTransient},
		{"invalid config", ErrInvalidConfig, ErrorFatal},
		{"resource exhausted", ErrResourceExhausted, ErrorFatal},
		{"invalid operation", ErrInvalidOperation, ErrorInvalid},
		{"unknown defaults transient", stderrors.New("something odd"), ErrorTransient},
		{"message pattern timeout", stderrors.New("dial tcp: i/o timeout"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestWrapFormat(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "driver", "Submit", "enqueue")
	require.Error(t, err)
	assert.Equal(t, "driver.Submit: enqueue failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "a", "b", "c"))
	assert.NoError(t, WrapTransient(nil, "a", "b", "c"))
	assert.NoError(t, WrapInvalid(nil, "a", "b", "c"))
	assert.NoError(t, WrapFatal(nil, "a", "b", "c"))
}

func TestClassificationPreservedThroughChain(t *testing.T) {
	err := WrapFatal(stderrors.New("disk died"), "natsobj", "Execute", "put")
	wrapped := fmt.Errorf("outer: %w", err)

	assert.True(t, IsFatal(wrapped))
	assert.False(t, IsTransient(wrapped))

	var ce *ClassifiedError
	require.True(t, stderrors.As(wrapped, &ce))
	assert.Equal(t, ErrorFatal, ce.Class)
	assert.Equal(t, "natsobj", ce.Component)
}

func TestIsTransientClassifiedWins(t *testing.T) {
	// A classified error's class wins over message patterns.
	err := WrapInvalid(stderrors.New("connection refused"), "config", "Validate", "parse")
	assert.False(t, IsTransient(err))
	assert.True(t, IsInvalid(err))
}
