package cache

import (
	"testing"
	"time"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("hit on empty cache")
	}

	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}

	// "a" was touched, so "b" is the eviction candidate.
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry evicted")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry still served")
	}
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired = %d, want 1", removed)
	}
}

func TestReportCache(t *testing.T) {
	c := NewReportCache(10, time.Minute)

	reports := []core.MonthlyReport{{ID: 1, PeriodYear: 2024, MonthIndex: 0}}
	c.Set("user-1", 2024, reports)

	got, ok := c.Get("user-1", 2024)
	if !ok || len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("Get = %+v, %v", got, ok)
	}

	if _, ok := c.Get("user-1", 2023); ok {
		t.Error("hit for different year")
	}
	if _, ok := c.Get("user-2", 2024); ok {
		t.Error("hit for different user")
	}

	c.InvalidateYear("user-1", 2024)
	if _, ok := c.Get("user-1", 2024); ok {
		t.Error("hit after invalidation")
	}
}

func TestManager_Cleanup(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	m := NewManager()
	m.Register(c)
	m.StartCleanup(20 * time.Millisecond)
	defer m.Stop()

	c.Set("k", 1)
	time.Sleep(60 * time.Millisecond)

	if c.Size() != 0 {
		t.Errorf("size = %d, want 0 after periodic cleanup", c.Size())
	}
}

func TestManager_Stop(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](10, time.Minute))
	m.StartCleanup(time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
