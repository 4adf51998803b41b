package ingest

import (
	"sync"
	"time"

	"github.com/lox/tokyotemps/internal/models"
)

// ForecastCache holds the most recent live forecast for a fixed duration.
type ForecastCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
	forecasts []models.ForecastRecord
	storedAt  time.Time
	set       bool
}

// NewForecastCache returns an empty cache. now defaults to time.Now.
func NewForecastCache(ttl time.Duration, now func() time.Time) *ForecastCache {
	if now == nil {
		now = time.Now
	}
	return &ForecastCache{ttl: ttl, now: now}
}

// Get returns the cached forecasts and when they were stored. ok is false when
// the cache is empty or expired.
func (c *ForecastCache) Get() (forecasts []models.ForecastRecord, storedAt time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set || c.expiredLocked() {
		return nil, time.Time{}, false
	}
	return c.forecasts, c.storedAt, true
}

func (c *ForecastCache) Set(forecasts []models.ForecastRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forecasts = forecasts
	c.storedAt = c.now()
	c.set = true
}

// IsExpired reports true for an empty cache.
func (c *ForecastCache) IsExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.set || c.expiredLocked()
}

func (c *ForecastCache) expiredLocked() bool {
	return c.now().Sub(c.storedAt) >= c.ttl
}
