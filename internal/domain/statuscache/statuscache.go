// Package statuscache keeps recently computed suspension statuses so check-in
// and roster views do not hit the store for every member.
package statuscache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/pkg/metrics"
)

const (
	defaultTTL     = 30 * time.Second
	defaultMaxSize = 10_000
)

type entry struct {
	status    model.SuspensionStatus
	expiresAt time.Time
	elem      *list.Element
}

// Cache is a TTL cache of suspension statuses keyed by member ID. Entries
// carry no authority: any write to a member's suspensions must Invalidate it.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // insertion order, front is newest
	ttl     time.Duration
	maxSize int
	clock   clockwork.Clock
	size    atomic.Int64

	// seq is bumped by every Invalidate and Purge. invalidated records the
	// seq at which each member was last dropped.
	seq         uint64
	invalidated map[string]uint64
	purgedAt    uint64
}

// New creates a cache with configuration options.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:     defaultTTL,
		maxSize: defaultMaxSize,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = make(map[string]*entry)
	c.invalidated = make(map[string]uint64)
	c.order = list.New()
	return c
}

// Get returns the cached status for memberID if present and fresh.
func (c *Cache) Get(_ context.Context, memberID string) (model.SuspensionStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[memberID]
	if !ok {
		metrics.RecordCacheMiss()
		return model.SuspensionStatus{}, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.removeLocked(memberID, e)
		metrics.RecordCacheMiss()
		return model.SuspensionStatus{}, false
	}
	metrics.RecordCacheHit()
	return e.status, true
}

// Generation returns a token to take before reading a status from the
// store. Pass it to PutIfCurrent once the read completes.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Put stores status under its MemberID, replacing any previous entry.
func (c *Cache) Put(_ context.Context, status model.SuspensionStatus) {
	if c.ttl <= 0 || status.MemberID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(status)
}

// PutIfCurrent stores status only if the member was not invalidated or the
// cache purged since gen was handed out. It reports whether it stored.
func (c *Cache) PutIfCurrent(_ context.Context, gen uint64, status model.SuspensionStatus) bool {
	if c.ttl <= 0 || status.MemberID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.purgedAt > gen || c.invalidated[status.MemberID] > gen {
		return false
	}
	c.putLocked(status)
	return true
}

// must be called with c.mu held
func (c *Cache) putLocked(status model.SuspensionStatus) {
	if old, ok := c.entries[status.MemberID]; ok {
		c.removeLocked(status.MemberID, old)
	}
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	e := &entry{status: status, expiresAt: c.clock.Now().Add(c.ttl)}
	e.elem = c.order.PushFront(status.MemberID)
	c.entries[status.MemberID] = e
	c.size.Add(1)
}

// Invalidate drops the given members. Unknown IDs are ignored.
func (c *Cache) Invalidate(_ context.Context, memberIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	for _, id := range memberIDs {
		c.invalidated[id] = c.seq
		if e, ok := c.entries[id]; ok {
			c.removeLocked(id, e)
		}
	}
}

// Purge drops every entry.
func (c *Cache) Purge(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.purgedAt = c.seq
	c.entries = make(map[string]*entry)
	c.invalidated = make(map[string]uint64)
	c.order.Init()
	c.size.Store(0)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache) Sweep(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			c.removeLocked(id, e)
			removed++
		}
	}
	metrics.UpdateCacheSize(len(c.entries))
	return removed
}

// Size returns the current number of entries, expired ones included.
func (c *Cache) Size() int64 {
	return c.size.Load()
}

// must be called with c.mu held
func (c *Cache) removeLocked(id string, e *entry) {
	delete(c.entries, id)
	c.order.Remove(e.elem)
	c.size.Add(-1)
}

// must be called with c.mu held
func (c *Cache) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	id, _ := back.Value.(string)
	if e, ok := c.entries[id]; ok {
		c.removeLocked(id, e)
	}
}
