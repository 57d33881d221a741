package ratelimit

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Limiter bounds per-recipient send volume with two fixed windows.
// Counters live under time-bucketed keys (recipient + floor(now/window)), so
// a bucket expires by key mismatch once its window has passed; no timers are
// needed. Sweep reclaims the memory of stale buckets.
type Limiter struct {
	mu         sync.Mutex
	hourly     map[string]int
	daily      map[string]int
	maxPerHour int
	maxPerDay  int
	now        func() time.Time
}

// New creates a limiter with the given per-window maximums
func New(maxPerHour, maxPerDay int) *Limiter {
	return &Limiter{
		hourly:     make(map[string]int),
		daily:      make(map[string]int),
		maxPerHour: maxPerHour,
		maxPerDay:  maxPerDay,
		now:        time.Now,
	}
}

// SetClock overrides the time source, for tests
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func hourKey(recipient string, t time.Time) string {
	return fmt.Sprintf("%s:h%d", recipient, t.Unix()/3600)
}

func dayKey(recipient string, t time.Time) string {
	return fmt.Sprintf("%s:d%d", recipient, t.Unix()/86400)
}

// Check reports whether the recipient is still under both limits.
// It does not count anything; call Update after a successful send.
func (l *Limiter) Check(recipient string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	if l.hourly[hourKey(recipient, t)] >= l.maxPerHour {
		return false
	}
	if l.daily[dayKey(recipient, t)] >= l.maxPerDay {
		return false
	}
	return true
}

// Update records one send against both of the recipient's current windows
func (l *Limiter) Update(recipient string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	l.hourly[hourKey(recipient, t)]++
	l.daily[dayKey(recipient, t)]++
}

// Reset clears the recipient's current-window counters, used for
// administrative overrides and tests
func (l *Limiter) Reset(recipient string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	delete(l.hourly, hourKey(recipient, t))
	delete(l.daily, dayKey(recipient, t))
}

// Sweep drops buckets whose window has passed and returns how many were
// removed. Correctness does not depend on it; it only reclaims memory.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	hourSuffix := fmt.Sprintf(":h%d", t.Unix()/3600)
	daySuffix := fmt.Sprintf(":d%d", t.Unix()/86400)

	removed := 0
	for k := range l.hourly {
		if !strings.HasSuffix(k, hourSuffix) {
			delete(l.hourly, k)
			removed++
		}
	}
	for k := range l.daily {
		if !strings.HasSuffix(k, daySuffix) {
			delete(l.daily, k)
			removed++
		}
	}
	return removed
}
