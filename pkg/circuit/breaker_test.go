package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_InitialState(t *testing.T) {
	b := New("test")
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "test", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("test", WithFailureThreshold(3))

	useFallback, change := b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}

func TestBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	b := New("test", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)
	assert.True(t, b.IsOpen())

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New("test", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordSuccess()

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_FailureResetsSuccessCount(t *testing.T) {
	b := New("test", WithFailureThreshold(1), WithSuccessThreshold(3))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.RecordSuccess()
	b.RecordSuccess()

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestBreaker_Reset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpenCircuitReturnsFallback(t *testing.T) {
	b := New("test", WithFailureThreshold(1))

	b.RecordFailure()

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened)
}
