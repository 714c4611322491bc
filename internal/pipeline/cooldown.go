package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const maxCooldownCleanupInterval = 10 * time.Minute

// Cooldown suppresses repeat alerts for the same user, level and description
// within a fixed window.
type Cooldown struct {
	window time.Duration
	clock  clockwork.Clock
	logger *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewCooldown creates a cooldown and starts its cleanup loop. Call Stop to
// release the loop.
func NewCooldown(window time.Duration, clock clockwork.Clock, logger *slog.Logger) *Cooldown {
	c := &Cooldown{
		window:      window,
		clock:       clock,
		logger:      logger,
		lastSent:    make(map[string]time.Time),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Allow atomically checks whether the alert is outside its cooldown window and,
// if so, starts a new window for it.
func (c *Cooldown) Allow(a domain.Alert) bool {
	key := cooldownKey(a)
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.lastSent[key]; ok && now.Sub(last) < c.window {
		return false
	}
	c.lastSent[key] = now
	return true
}

func cooldownKey(a domain.Alert) string {
	return a.UserID + "\x00" + string(a.Level) + "\x00" + a.Description
}

func (c *Cooldown) cleanupLoop() {
	ticker := c.clock.NewTicker(min(c.window, maxCooldownCleanupInterval))
	defer ticker.Stop()
	defer close(c.cleanupDone)

	for {
		select {
		case <-ticker.Chan():
			c.cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

// cleanup removes entries whose window has passed.
func (c *Cooldown) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	expired := 0
	for key, last := range c.lastSent {
		if now.Sub(last) >= c.window {
			delete(c.lastSent, key)
			expired++
		}
	}
	if expired > 0 {
		c.logger.Debug("cooldown entries expired", "expired", expired, "remaining", len(c.lastSent))
	}
}

func (c *Cooldown) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lastSent)
}

// Stop stops the cleanup loop and waits for it to exit.
func (c *Cooldown) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
	<-c.cleanupDone
}
