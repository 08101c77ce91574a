package ratelimit

import (
	"sync"
	"time"
)

// CooldownLimiter lets each key through at most once per cooldown. It
// guards POST /api/process/manual so one user cannot queue runs back to
// back.
//
// Allow both checks and records, so two concurrent requests from the same
// user cannot both pass. When the guarded action turns out not to happen
// (the run could not start), the caller calls Forget and the user may try
// again at once. Keys are opaque: the handler uses "user:<id>" for signed
// in users and the client IP otherwise.
type CooldownLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCooldownLimiter starts a sweep goroutine; call Stop on shutdown. A
// zero cooldown disables the limiter.
func NewCooldownLimiter(cooldown time.Duration) *CooldownLimiter {
	cl := &CooldownLimiter{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go sweep(time.Minute, cl.stop, cl.cleanup)
	return cl
}

// Allow records the trigger when it is permitted.
func (cl *CooldownLimiter) Allow(key string) bool {
	if cl.cooldown <= 0 {
		return true
	}
	now := cl.now()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if last, ok := cl.last[key]; ok && now.Sub(last) < cl.cooldown {
		return false
	}
	cl.last[key] = now
	return true
}

// Forget clears the key, used when a permitted trigger did not start a run.
func (cl *CooldownLimiter) Forget(key string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	delete(cl.last, key)
}

// RemainingSeconds is the wait before key is allowed again, rounded up.
func (cl *CooldownLimiter) RemainingSeconds(key string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	last, ok := cl.last[key]
	if !ok {
		return 0
	}
	return ceilSeconds(cl.cooldown - cl.now().Sub(last))
}

// Stop ends the sweep goroutine.
func (cl *CooldownLimiter) Stop() {
	cl.stopOnce.Do(func() { close(cl.stop) })
}

func (cl *CooldownLimiter) cleanup() {
	now := cl.now()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	for key, last := range cl.last {
		if now.Sub(last) >= cl.cooldown {
			delete(cl.last, key)
		}
	}
}
