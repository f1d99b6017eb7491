package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/minicache/keys"
)

func TestManualClock_Advance(t *testing.T) {
	var c ManualClock
	assert.Equal(t, Tick(0), c.Now())

	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, c.Now().Duration())
}

func TestMonotonicClock_NeverGoesBack(t *testing.T) {
	c := NewMonotonicClock()
	a := c.Now()
	b := c.Now()
	assert.GreaterOrEqual(t, b, a)
}

func TestNewEntry(t *testing.T) {
	k := keys.Derive("r", "o")
	e := NewEntry(k, []byte("Williams"), TickOf(time.Second))

	assert.Equal(t, int64(8), e.Size)
	assert.Equal(t, k, e.Key)
	assert.Equal(t, TickOf(2*time.Second), e.Age(TickOf(3*time.Second)))
}
