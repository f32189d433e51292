package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemDriver is an in-memory Driver with the same tag semantics as the Redis
// driver. It backs tests and single-process deployments without a shared
// cache.
type MemDriver struct {
	mu    sync.Mutex
	items map[string]memItem
	tags  map[string]map[string]struct{}

	// FailGets simulates a shared-tier outage.
	FailGets bool
	// Err is returned for every operation when FailGets is set.
	Err error
}

type memItem struct {
	val       []byte
	expiresAt time.Time
}

// NewMemDriver creates an empty in-memory driver.
func NewMemDriver() *MemDriver {
	return &MemDriver{
		items: make(map[string]memItem),
		tags:  make(map[string]map[string]struct{}),
	}
}

func (d *MemDriver) Get(_ context.Context, key string) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailGets {
		return nil, false, d.failErr()
	}
	item, ok := d.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		delete(d.items, key)
		return nil, false, nil
	}
	out := make([]byte, len(item.val))
	copy(out, item.val)
	return out, true, nil
}

func (d *MemDriver) Set(_ context.Context, key string, val []byte, ttl time.Duration, tags ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailGets {
		return d.failErr()
	}
	item := memItem{val: append([]byte(nil), val...)}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	d.items[key] = item
	for _, tag := range tags {
		set, ok := d.tags[tag]
		if !ok {
			set = make(map[string]struct{})
			d.tags[tag] = set
		}
		set[key] = struct{}{}
	}
	return nil
}

func (d *MemDriver) Del(_ context.Context, keys ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, key := range keys {
		delete(d.items, key)
	}
	return nil
}

func (d *MemDriver) DelByTag(_ context.Context, tag string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set := d.tags[tag]
	for key := range set {
		delete(d.items, key)
	}
	n := len(set)
	delete(d.tags, tag)
	return n, nil
}

func (d *MemDriver) DelByPrefix(_ context.Context, prefix string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for key := range d.items {
		if strings.HasPrefix(key, prefix) {
			delete(d.items, key)
			n++
		}
	}
	return n, nil
}

func (d *MemDriver) Ping(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailGets {
		return d.failErr()
	}
	return nil
}

func (d *MemDriver) Close() error { return nil }

// Len reports the live entry count.
func (d *MemDriver) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

func (d *MemDriver) failErr() error {
	if d.Err != nil {
		return d.Err
	}
	return errUnavailable
}

var errUnavailable = &memErr{"shared cache unavailable"}

type memErr struct{ msg string }

func (e *memErr) Error() string { return e.msg }

var _ Driver = (*MemDriver)(nil)
