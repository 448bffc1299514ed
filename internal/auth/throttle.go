// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package auth

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Login throttle defaults.
const (
	// DefaultLoginBurst is how many attempts a fresh session may make back
	// to back.
	DefaultLoginBurst = 5

	// DefaultLoginClientBurst is how many attempts one client address may
	// make back to back across all of its sessions.
	DefaultLoginClientBurst = 20

	// DefaultLoginRefill is how long it takes to earn one more attempt.
	DefaultLoginRefill = 12 * time.Second

	// DefaultThrottleCleanupInterval is how often idle buckets are dropped.
	DefaultThrottleCleanupInterval = 5 * time.Minute

	// DefaultThrottleMaxAge is how long an untouched bucket is kept.
	DefaultThrottleMaxAge = time.Hour
)

// ThrottleConfig configures a LoginThrottle. Zero values use the defaults.
type ThrottleConfig struct {
	Burst           int
	ClientBurst     int
	Refill          time.Duration
	CleanupInterval time.Duration
	MaxAge          time.Duration
	// Clock overrides time.Now.
	Clock func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// LoginThrottle limits credential attempts with token buckets, one per
// session and a larger one per client address, so dropping the session
// cookie does not buy a fresh budget. It is safe for concurrent use. A
// background goroutine drops idle buckets; Close stops it.
type LoginThrottle struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	burst       int
	clientBurst int
	refill      time.Duration
	maxAge      time.Duration
	now         func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewLoginThrottle creates a throttle and starts its cleanup goroutine.
func NewLoginThrottle(cfg ThrottleConfig) *LoginThrottle {
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultLoginBurst
	}
	if cfg.ClientBurst <= 0 {
		cfg.ClientBurst = DefaultLoginClientBurst
	}
	if cfg.Refill <= 0 {
		cfg.Refill = DefaultLoginRefill
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultThrottleCleanupInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultThrottleMaxAge
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	t := &LoginThrottle{
		buckets:     make(map[string]*bucket),
		burst:       cfg.Burst,
		clientBurst: cfg.ClientBurst,
		refill:      cfg.Refill,
		maxAge:      cfg.MaxAge,
		now:         cfg.Clock,
		stop:        make(chan struct{}),
	}

	t.wg.Add(1)
	go t.cleanupLoop(cfg.CleanupInterval)
	return t
}

// Allow spends one attempt for the session. When none is left it reports
// how long until the next one.
func (t *LoginThrottle) Allow(sessionID ulid.ULID) (allowed bool, retryAfter time.Duration) {
	return t.AllowClient(sessionID, "")
}

// AllowClient spends one attempt for the session and one for the client
// address. The attempt goes through only when both buckets have one left,
// and then both are charged. An empty client limits the session alone.
func (t *LoginThrottle) AllowClient(sessionID ulid.ULID, client string) (allowed bool, retryAfter time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	buckets := []*bucket{t.take("session:"+sessionID.String(), t.burst, now)}
	if client != "" {
		buckets = append(buckets, t.take("client:"+client, t.clientBurst, now))
	}

	for _, b := range buckets {
		if b.tokens < 1 {
			retryAfter = max(retryAfter, time.Duration((1-b.tokens)*float64(t.refill)))
		}
	}
	if retryAfter > 0 {
		return false, retryAfter
	}
	for _, b := range buckets {
		b.tokens--
	}
	return true, 0
}

// take returns the bucket for key, refilled up to burst as of now.
func (t *LoginThrottle) take(key string, burst int, now time.Time) *bucket {
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(burst), lastCheck: now}
		t.buckets[key] = b
	}
	b.tokens += float64(now.Sub(b.lastCheck)) / float64(t.refill)
	if b.tokens > float64(burst) {
		b.tokens = float64(burst)
	}
	b.lastCheck = now
	return b
}

// Tracked returns the number of live buckets, sessions and clients alike.
func (t *LoginThrottle) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// Cleanup drops buckets untouched for longer than maxAge.
func (t *LoginThrottle) Cleanup(maxAge time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	threshold := t.now().Add(-maxAge)
	for key, b := range t.buckets {
		if b.lastCheck.Before(threshold) {
			delete(t.buckets, key)
		}
	}
}

func (t *LoginThrottle) cleanupLoop(interval time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.Cleanup(t.maxAge)
		}
	}
}

// Close stops the cleanup goroutine and waits for it. It is safe to call
// more than once.
func (t *LoginThrottle) Close() {
	t.once.Do(func() { close(t.stop) })
	t.wg.Wait()
}
