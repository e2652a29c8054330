package rpcnode

import (
	"sync"
	"time"
)

const (
	breakerThreshold      = 5
	breakerInitialTimeout = 60 * time.Second
	breakerMinTimeout     = 60 * time.Second
	breakerMaxTimeout     = 300 * time.Second
)

// circuitBreaker sheds load after consecutive failures. State is either
// closed or open until a deadline, decided by timestamp rather than a
// counter flag, so a waiting caller and a new caller see the same thing.
type circuitBreaker struct {
	failures  int
	timeout   time.Duration
	openUntil time.Time

	lock sync.Mutex
}

func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{
		timeout: breakerInitialTimeout,
	}
}

// openRemaining returns how long a caller must wait before attempting a
// trial request. Zero means the breaker is closed or the cooldown elapsed.
func (cb *circuitBreaker) openRemaining(now time.Time) time.Duration {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	if cb.openUntil.After(now) {
		return cb.openUntil.Sub(now)
	}
	return 0
}

// trial arms a half open attempt after the cooldown has elapsed. The
// failure count restarts so one bad trial doesn't immediately reopen.
func (cb *circuitBreaker) trial() {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	cb.openUntil = time.Time{}
	cb.failures = 0
}

// recordFailure counts a consecutive failure. It returns true when this
// failure opened the breaker.
func (cb *circuitBreaker) recordFailure(now time.Time) bool {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	cb.failures++
	if cb.failures < breakerThreshold {
		return false
	}

	cb.failures = 0
	cb.openUntil = now.Add(cb.timeout)
	return true
}

// recordSuccess closes the breaker and adapts the cooldown to the observed
// call time. Slow successes stretch the cooldown, fast ones shrink it,
// bounded to [60s, 300s].
func (cb *circuitBreaker) recordSuccess(elapsed time.Duration) {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	cb.failures = 0
	cb.openUntil = time.Time{}

	if elapsed > cb.timeout {
		cb.timeout = time.Duration(float64(cb.timeout) * 1.5)
		if cb.timeout > breakerMaxTimeout {
			cb.timeout = breakerMaxTimeout
		}
	} else if elapsed < cb.timeout/2 {
		cb.timeout = time.Duration(float64(cb.timeout) * 0.8)
		if cb.timeout < breakerMinTimeout {
			cb.timeout = breakerMinTimeout
		}
	}
}

// currentTimeout returns the adaptive cooldown value.
func (cb *circuitBreaker) currentTimeout() time.Duration {
	cb.lock.Lock()
	defer cb.lock.Unlock()
	return cb.timeout
}
