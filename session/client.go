// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielhkuo/votertag/models"
)

// MaxCheckInterval bounds how late a client notices expiry
const MaxCheckInterval = 60 * time.Second

// ClientSession is the caller's view of its own session. It is built from
// a login response, cleared on logout or expiry, and consulted before
// every request. Safe for concurrent use.
type ClientSession struct {
	mu         sync.RWMutex
	token      string
	issuedAt   time.Time
	user       models.PrincipalSummary
	mustChange bool
}

func NewClientSession() *ClientSession {
	return &ClientSession{}
}

// Start records a fresh login
func (c *ClientSession) Start(resp models.LoginResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = resp.AccessToken
	c.issuedAt = resp.IssuedAt
	c.user = resp.User
	c.mustChange = resp.MustChangePassword
}

// Clear forgets the session
func (c *ClientSession) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.issuedAt = time.Time{}
	c.user = models.PrincipalSummary{}
	c.mustChange = false
}

func (c *ClientSession) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// User returns the logged in principal, if any
func (c *ClientSession) User() (models.PrincipalSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, c.token != ""
}

func (c *ClientSession) MustChangePassword() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mustChange
}

// ExpiresAt is issued_at plus TTL, or zero without a session
func (c *ClientSession) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return time.Time{}
	}
	return c.issuedAt.Add(TTL)
}

// Expired reports whether a session is held and its TTL has elapsed
func (c *ClientSession) Expired(now time.Time) bool {
	exp := c.ExpiresAt()
	return !exp.IsZero() && !now.Before(exp)
}

// Active reports whether a session is held and still inside its TTL
func (c *ClientSession) Active(now time.Time) bool {
	exp := c.ExpiresAt()
	return !exp.IsZero() && now.Before(exp)
}

// ExpiryWatcher clears a ClientSession once its TTL elapses and calls
// onExpire exactly once. It stops on Stop, on context cancellation or
// after firing.
type ExpiryWatcher struct {
	sess     *ClientSession
	interval time.Duration
	onExpire func()
	now      func() time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewExpiryWatcher creates a watcher that checks every interval. Intervals
// above MaxCheckInterval or not positive are clamped to it.
func NewExpiryWatcher(sess *ClientSession, interval time.Duration, onExpire func()) *ExpiryWatcher {
	if interval <= 0 || interval > MaxCheckInterval {
		interval = MaxCheckInterval
	}
	return &ExpiryWatcher{
		sess:     sess,
		interval: interval,
		onExpire: onExpire,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithClock overrides the time source. Call before Start.
func (w *ExpiryWatcher) WithClock(now func() time.Time) *ExpiryWatcher {
	w.now = now
	return w
}

// Interval is the effective check interval
func (w *ExpiryWatcher) Interval() time.Duration {
	return w.interval
}

// Start launches the watcher goroutine
func (w *ExpiryWatcher) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *ExpiryWatcher) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if w.sess.Expired(w.now()) {
			w.sess.Clear()
			if w.onExpire != nil {
				w.onExpire()
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the watcher and waits for its goroutine to exit. Safe to call
// more than once and after the watcher has fired.
func (w *ExpiryWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	if w.started.Load() {
		<-w.done
	}
}

// Done is closed when the watcher goroutine has exited
func (w *ExpiryWatcher) Done() <-chan struct{} {
	return w.done
}
