package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStickyRegistry_SuppressedUntilWindowElapses(t *testing.T) {
	clk := newFakeClock()
	r := NewStickyRegistry(10*time.Second, WithStickyClock(clk.Now))

	r.Mark("k")
	marked := clk.Now()

	assert.True(t, r.Suppressed("k", marked))
	assert.True(t, r.Suppressed("k", marked.Add(9999*time.Millisecond)))
	assert.False(t, r.Suppressed("k", marked.Add(10*time.Second)))
	assert.Equal(t, 0, r.Len(), "expired entry should be purged lazily")
}

func TestStickyRegistry_MarkOverwritesTimestamp(t *testing.T) {
	clk := newFakeClock()
	r := NewStickyRegistry(10*time.Second, WithStickyClock(clk.Now))

	r.Mark("k")
	clk.Advance(8 * time.Second)
	r.Mark("k")

	assert.True(t, r.Suppressed("k", clk.Now().Add(5*time.Second)))
	assert.Equal(t, 1, r.Len())
}

func TestStickyRegistry_UnknownKeyNotSuppressed(t *testing.T) {
	r := NewStickyRegistry(time.Minute)
	assert.False(t, r.Suppressed("nope", time.Now()))
}

func TestStickyRegistry_ZeroWindowIsInert(t *testing.T) {
	r := NewStickyRegistry(0)

	r.Mark("k")
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Suppressed("k", time.Now()))
	assert.Equal(t, time.Duration(0), r.Window())
}

func TestStickyRegistry_PruneDropsOnlyExpired(t *testing.T) {
	clk := newFakeClock()
	r := NewStickyRegistry(10*time.Second, WithStickyClock(clk.Now))

	r.Mark("old")
	clk.Advance(6 * time.Second)
	r.Mark("recent")

	assert.Equal(t, 0, r.Prune(clk.Now()))
	clk.Advance(4 * time.Second)
	assert.Equal(t, 1, r.Prune(clk.Now()))
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Suppressed("recent", clk.Now()))
}
