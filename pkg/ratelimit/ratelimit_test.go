package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCheckUnderLimit(t *testing.T) {
	l := New(2, 5)
	assert.True(t, l.Check("pax@example.com"))

	l.Update("pax@example.com")
	assert.True(t, l.Check("pax@example.com"))

	l.Update("pax@example.com")
	assert.False(t, l.Check("pax@example.com"))
}

func TestDailyLimitIndependentOfHourly(t *testing.T) {
	l := New(100, 2)
	base := time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)
	l.SetClock(fixedClock(base))

	l.Update("pax@example.com")
	l.Update("pax@example.com")
	assert.False(t, l.Check("pax@example.com"))

	// Next hour: hourly bucket rolls over but the daily one still binds
	l.SetClock(fixedClock(base.Add(time.Hour)))
	assert.False(t, l.Check("pax@example.com"))

	// Next day: both windows rolled over
	l.SetClock(fixedClock(base.Add(24 * time.Hour)))
	assert.True(t, l.Check("pax@example.com"))
}

func TestHourlyBucketRollsOver(t *testing.T) {
	l := New(1, 100)
	base := time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)
	l.SetClock(fixedClock(base))

	l.Update("pax@example.com")
	assert.False(t, l.Check("pax@example.com"))

	l.SetClock(fixedClock(base.Add(time.Hour)))
	assert.True(t, l.Check("pax@example.com"))
}

func TestRecipientsAreIndependent(t *testing.T) {
	l := New(1, 10)
	l.Update("first@example.com")

	assert.False(t, l.Check("first@example.com"))
	assert.True(t, l.Check("second@example.com"))
}

func TestReset(t *testing.T) {
	l := New(1, 1)
	l.Update("pax@example.com")
	assert.False(t, l.Check("pax@example.com"))

	l.Reset("pax@example.com")
	assert.True(t, l.Check("pax@example.com"))
}

func TestSweepReclaimsStaleBuckets(t *testing.T) {
	l := New(10, 10)
	base := time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)
	l.SetClock(fixedClock(base))

	l.Update("pax@example.com")
	assert.Equal(t, 0, l.Sweep())

	// An hour later the hourly bucket is stale; a day later both are
	l.SetClock(fixedClock(base.Add(time.Hour)))
	assert.Equal(t, 1, l.Sweep())

	l.Update("pax@example.com")
	l.SetClock(fixedClock(base.Add(25 * time.Hour)))
	assert.Equal(t, 2, l.Sweep())
}

func TestConcurrentUpdatesDoNotUndercount(t *testing.T) {
	const goroutines = 50
	l := New(goroutines, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Update("pax@example.com")
		}()
	}
	wg.Wait()

	// Exactly at the limit now
	assert.False(t, l.Check("pax@example.com"))
}
