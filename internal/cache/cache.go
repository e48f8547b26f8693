package cache

import (
	"fmt"
	"time"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// ReportCache caches a user's report chain per theocratic year. Writes to
// the ledger go through InvalidateYear so readers never see a stale chain
// for longer than one request.
type ReportCache struct {
	inner *LRUCache[[]core.MonthlyReport]
}

// NewReportCache creates a report chain cache.
func NewReportCache(maxSize int, ttl time.Duration) *ReportCache {
	return &ReportCache{inner: NewLRUCache[[]core.MonthlyReport](maxSize, ttl)}
}

func reportKey(userID string, year int) string {
	return fmt.Sprintf("%s/%d", userID, year)
}

func (c *ReportCache) Get(userID string, year int) ([]core.MonthlyReport, bool) {
	return c.inner.Get(reportKey(userID, year))
}

func (c *ReportCache) Set(userID string, year int, reports []core.MonthlyReport) {
	c.inner.Set(reportKey(userID, year), reports)
}

func (c *ReportCache) InvalidateYear(userID string, year int) {
	c.inner.Delete(reportKey(userID, year))
}

func (c *ReportCache) CleanExpired() int {
	return c.inner.CleanExpired()
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, cache := range m.caches {
				cache.CleanExpired()
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	if m.stopCleanup != nil {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}
