// Package cache memoizes completed contact records by identity key.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/palantir/contact-enricher/internal/contact"
)

// Options bounds the cache. The zero value keeps every entry for the lifetime
// of the Cache.
type Options struct {
	// MaxEntries evicts the least recently used entry beyond this size. <=0 is unbounded.
	MaxEntries int
	// TTL expires entries this long after they were stored. <=0 never expires.
	TTL time.Duration
}

// Cache maps cache keys to enriched records, holding at most one entry per key.
// It is safe for concurrent use.
type Cache struct {
	entries *expirable.LRU[string, contact.ContactData]

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func New(opts Options) *Cache {
	size := opts.MaxEntries
	if size < 0 {
		size = 0
	}
	return &Cache{
		entries: expirable.NewLRU[string, contact.ContactData](size, nil, opts.TTL),
		locks:   make(map[string]*keyLock),
	}
}

// Get returns a copy of the record stored under key.
func (c *Cache) Get(key string) (contact.ContactData, bool) {
	rec, ok := c.entries.Get(key)
	if !ok {
		return contact.ContactData{}, false
	}
	return rec.Clone(), true
}

// Put stores a copy of rec under key, replacing any previous entry.
func (c *Cache) Put(key string, rec contact.ContactData) {
	c.entries.Add(key, rec.Clone())
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Lock serializes work on one key so a read-decide-write sequence is atomic
// with respect to other callers using the same key. Call the returned func to
// release.
func (c *Cache) Lock(key string) (unlock func()) {
	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &keyLock{}
		c.locks[key] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}
