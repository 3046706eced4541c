package op

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	o := New(TypeCreate, "bucket/item-0001", 4096)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, TypeCreate, o.Type)
	assert.Equal(t, "bucket/item-0001", o.ItemName)
	assert.Equal(t, int64(4096), o.Size)
	assert.Equal(t, StatusPending, o.Status())
	assert.False(t, o.Status().Terminal())
}

func TestStatusTransitions(t *testing.T) {
	o := New(TypeRead, "item", 0)

	o.MarkStarted()
	assert.Equal(t, StatusActive, o.Status())
	assert.False(t, o.Status().Terminal())

	o.MarkSucceeded()
	assert.Equal(t, StatusSucc, o.Status())
	assert.True(t, o.Status().Terminal())
	assert.True(t, o.Status().Succeeded())
}

func TestMarkFailedCoercesNonTerminal(t *testing.T) {
	o := New(TypeDelete, "item", 0)
	o.MarkFailed(StatusActive)
	assert.Equal(t, StatusFailUnknown, o.Status())

	o = New(TypeDelete, "item", 0)
	o.MarkFailed(StatusFailIO)
	assert.Equal(t, StatusFailIO, o.Status())
}

func TestDuration(t *testing.T) {
	o := New(TypeCreate, "item", 16)

	// Unfinished operations report zero duration.
	assert.Zero(t, o.Duration())
	o.MarkStarted()
	assert.Zero(t, o.Duration())

	time.Sleep(time.Millisecond)
	o.MarkSucceeded()
	require.Greater(t, o.Duration(), time.Duration(0))
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "succ", StatusSucc.String())
	assert.Equal(t, "fail_unknown", StatusFailUnknown.String())
	assert.Equal(t, "create", TypeCreate.String())
	assert.Equal(t, "unknown", Type(99).String())
	assert.Equal(t, "unknown", Status(99).String())
}
