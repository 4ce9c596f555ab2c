package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_ConstantAcrossAttempts(t *testing.T) {
	l := NewLinear(500 * time.Millisecond)
	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, 500*time.Millisecond, l.Next(attempt))
	}
	l.Reset()
	assert.Equal(t, 500*time.Millisecond, l.Next(1))
}

func TestDefaultLinear(t *testing.T) {
	l := DefaultLinear()
	require.Equal(t, 3*time.Second, l.Next(1))
}

func TestExponential_NoJitter_MatchesClosedForm(t *testing.T) {
	e := &Exponential{
		Initial:    10 * time.Millisecond,
		Max:        1 * time.Second,
		Multiplier: 2.0,
		Jitter:     0,
	}

	want := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
	}
	for i, w := range want {
		assert.Equal(t, w, e.Next(i+1))
	}
}

func TestExponential_ClampsToMax(t *testing.T) {
	e := &Exponential{
		Initial:    1 * time.Second,
		Max:        5 * time.Second,
		Multiplier: 10.0,
		Jitter:     0,
	}
	assert.Equal(t, 5*time.Second, e.Next(10))
}

func TestExponential_JitterNeverNegative(t *testing.T) {
	e := &Exponential{
		Initial:    10 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 1.5,
		Jitter:     2.0,
	}
	for attempt := 1; attempt <= 100; attempt++ {
		d := e.Next(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0), "attempt %d produced a negative delay", attempt)
		assert.LessOrEqual(t, d, e.Max)
	}
}

func TestExponential_DefaultsMatchSpec(t *testing.T) {
	e := DefaultExponential()
	assert.Equal(t, 1*time.Second, e.Initial)
	assert.Equal(t, 30*time.Second, e.Max)
	assert.Equal(t, 1.5, e.Multiplier)
	assert.Equal(t, 0.2, e.Jitter)
}

func TestExponential_ZeroAttemptTreatedAsOne(t *testing.T) {
	e := &Exponential{Initial: 10 * time.Millisecond, Max: time.Second, Multiplier: 2, Jitter: 0}
	assert.Equal(t, e.Next(1), e.Next(0))
}
