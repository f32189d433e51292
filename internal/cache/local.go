package cache

import (
	"strings"
	"sync"
	"time"
)

// Local is the per-process cache tier: a TTL map with tag indexing and a
// janitor goroutine that evicts expired entries. Values are stored
// uncompressed; the shared tier owns compression.
type Local struct {
	mu      sync.RWMutex
	items   map[string]*localItem
	tags    map[string]map[string]struct{} // tag -> keys
	janitor *janitor
}

type localItem struct {
	value      []byte
	expiration int64 // unix nanos; 0 means no expiry
	tags       []string
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

// NewLocal creates a local tier with the given janitor interval.
func NewLocal(cleanupInterval time.Duration) *Local {
	l := &Local{
		items: make(map[string]*localItem),
		tags:  make(map[string]map[string]struct{}),
	}
	l.janitor = &janitor{
		interval: cleanupInterval,
		stop:     make(chan struct{}),
	}
	go l.janitor.run(l)
	return l
}

// Get retrieves a value if present and unexpired.
func (l *Local) Get(key string) ([]byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	item, found := l.items[key]
	if !found {
		return nil, false
	}
	if item.expiration > 0 && time.Now().UnixNano() > item.expiration {
		return nil, false
	}
	return item.value, true
}

// Set stores a value with TTL and tag registration. A zero TTL stores the
// value without expiry.
func (l *Local) Set(key string, val []byte, ttl time.Duration, tags ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	if old, ok := l.items[key]; ok {
		l.untagLocked(key, old.tags)
	}
	l.items[key] = &localItem{
		value:      append([]byte(nil), val...),
		expiration: exp,
		tags:       tags,
	}
	for _, tag := range tags {
		set, ok := l.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			l.tags[tag] = set
		}
		set[key] = struct{}{}
	}
}

// Del removes the given keys.
func (l *Local) Del(keys ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range keys {
		l.deleteLocked(key)
	}
}

// DelByTag removes every key registered under the tag.
func (l *Local) DelByTag(tag string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	set, ok := l.tags[tag]
	if !ok {
		return 0
	}
	n := 0
	for key := range set {
		l.deleteLocked(key)
		n++
	}
	delete(l.tags, tag)
	return n
}

// DelByPrefix removes every key with the given prefix.
func (l *Local) DelByPrefix(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key := range l.items {
		if strings.HasPrefix(key, prefix) {
			l.deleteLocked(key)
			n++
		}
	}
	return n
}

// Flush evicts expired entries and returns the count removed.
func (l *Local) Flush() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UnixNano()
	removed := 0
	for key, item := range l.items {
		if item.expiration > 0 && now > item.expiration {
			l.deleteLocked(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Clear drops everything.
func (l *Local) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make(map[string]*localItem)
	l.tags = make(map[string]map[string]struct{})
}

// Close stops the janitor and clears the tier.
func (l *Local) Close() {
	close(l.janitor.stop)
	l.Clear()
}

func (l *Local) deleteLocked(key string) {
	if item, ok := l.items[key]; ok {
		l.untagLocked(key, item.tags)
		delete(l.items, key)
	}
}

func (l *Local) untagLocked(key string, tags []string) {
	for _, tag := range tags {
		if set, ok := l.tags[tag]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(l.tags, tag)
			}
		}
	}
}

func (j *janitor) run(l *Local) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Flush()
		case <-j.stop:
			return
		}
	}
}
