package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemNowIsUTC(t *testing.T) {
	c := New()
	got := c.Now()
	assert.Equal(t, time.UTC, got.Location())
}

func TestTestClockSetAndAdvance(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTest(base)
	assert.Equal(t, base, c.Now())

	c.Advance(100 * time.Millisecond)
	assert.Equal(t, base.Add(100*time.Millisecond), c.Now())

	other := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c.Set(other)
	assert.Equal(t, other, c.Now())
}

func TestNewTestZeroDefaultsToNow(t *testing.T) {
	c := NewTest(time.Time{})
	assert.False(t, c.Now().IsZero())
}
