package hub

import (
	"sync"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// queued is one stored event awaiting replay.
type queued struct {
	data     []byte
	storedAt time.Time
	attempts int
}

// offlineStore holds bounded per-user event queues. When a queue is full the
// oldest entry is dropped; entries older than the TTL are discarded at drain.
type offlineStore struct {
	mu     sync.Mutex
	queues map[domain.UserID][]queued
	cap    int
	ttl    time.Duration

	drops int64
}

func newOfflineStore(cap int, ttl time.Duration) *offlineStore {
	return &offlineStore{
		queues: make(map[domain.UserID][]queued),
		cap:    cap,
		ttl:    ttl,
	}
}

// Enqueue stores an event for an offline user. Returns true when an older
// entry was evicted to make room.
func (o *offlineStore) Enqueue(userID domain.UserID, data []byte, now time.Time, attempts int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.queues[userID]
	dropped := false
	if len(q) >= o.cap {
		q = q[1:]
		o.drops++
		dropped = true
	}
	o.queues[userID] = append(q, queued{data: data, storedAt: now, attempts: attempts})
	return dropped
}

// Drain removes and returns the user's pending events, discarding expired
// entries. Returned entries keep their attempt counts for replay accounting.
func (o *offlineStore) Drain(userID domain.UserID, now time.Time) []queued {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.queues[userID]
	if len(q) == 0 {
		return nil
	}
	delete(o.queues, userID)

	fresh := q[:0]
	for _, entry := range q {
		if now.Sub(entry.storedAt) <= o.ttl {
			fresh = append(fresh, entry)
		} else {
			o.drops++
		}
	}
	out := make([]queued, len(fresh))
	copy(out, fresh)
	return out
}

// Len returns the queue depth for a user.
func (o *offlineStore) Len(userID domain.UserID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queues[userID])
}

// Drops returns the total evicted or expired entry count.
func (o *offlineStore) Drops() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.drops
}
