package migrator

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	creatorCacheCapacity = 10000
	creatorCacheTTL      = time.Hour
)

type creatorEntry struct {
	userID   string
	storedAt time.Time
}

// CreatorCache remembers the Matrix creator of rooms so that healing and the
// reconciliation passes do not ask the admin API for every request.
type CreatorCache struct {
	mutex       sync.RWMutex
	entries     map[string]creatorEntry // roomID -> creator
	putCounter  int
	cleanupFreq int
	now         func() time.Time
}

// NewCreatorCache creates an empty cache.
func NewCreatorCache() *CreatorCache {
	return &CreatorCache{
		entries:     make(map[string]creatorEntry),
		cleanupFreq: 100,
		now:         time.Now,
	}
}

// Put records the creator of roomID. It fails when the cache is full of
// entries that have not expired yet.
func (c *CreatorCache) Put(roomID, creatorUserID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.entries[roomID]; !exists && len(c.entries) >= creatorCacheCapacity {
		c.cleanupExpired()
		if len(c.entries) >= creatorCacheCapacity {
			return errors.New("creator cache at capacity")
		}
	}

	c.entries[roomID] = creatorEntry{userID: creatorUserID, storedAt: c.now()}
	c.putCounter++

	if c.putCounter%c.cleanupFreq == 0 {
		c.cleanupExpired()
	}
	return nil
}

// Get returns the cached creator of roomID.
func (c *CreatorCache) Get(roomID string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[roomID]
	if !exists || c.now().Sub(entry.storedAt) > creatorCacheTTL {
		return "", false
	}
	return entry.userID, true
}

// Size returns the number of cached rooms.
func (c *CreatorCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

// cleanupExpired must be called with the mutex held.
func (c *CreatorCache) cleanupExpired() {
	cutoff := c.now().Add(-creatorCacheTTL)
	for roomID, entry := range c.entries {
		if entry.storedAt.Before(cutoff) {
			delete(c.entries, roomID)
		}
	}
	c.putCounter = 0
}
