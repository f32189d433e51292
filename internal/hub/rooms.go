package hub

import (
	"hash/fnv"
	"sync"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

const shardCount = 16

// registry is the sharded room membership map. Fan-out snapshots members
// under a read lock so broadcasts never block connect/disconnect on other
// shards.
type registry struct {
	shards [shardCount]*shard

	umu   sync.RWMutex
	users map[domain.UserID]*Session
}

type shard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Session // room -> sessionID -> session
}

func newRegistry() *registry {
	r := &registry{users: make(map[domain.UserID]*Session)}
	for i := range r.shards {
		r.shards[i] = &shard{rooms: make(map[string]map[string]*Session)}
	}
	return r
}

func (r *registry) shardFor(room string) *shard {
	h := fnv.New32a()
	h.Write([]byte(room))
	return r.shards[h.Sum32()%shardCount]
}

// Join adds a session to a room.
func (r *registry) Join(room string, s *Session) {
	sh := r.shardFor(room)
	sh.mu.Lock()
	members, ok := sh.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		sh.rooms[room] = members
	}
	members[s.ID] = s
	sh.mu.Unlock()
	s.addRoom(room)
}

// Leave removes a session from a room.
func (r *registry) Leave(room string, s *Session) {
	sh := r.shardFor(room)
	sh.mu.Lock()
	if members, ok := sh.rooms[room]; ok {
		delete(members, s.ID)
		if len(members) == 0 {
			delete(sh.rooms, room)
		}
	}
	sh.mu.Unlock()
	s.removeRoom(room)
}

// LeaveAll removes a session from every room it joined.
func (r *registry) LeaveAll(s *Session) {
	for _, room := range s.roomList() {
		r.Leave(room, s)
	}
}

// Members snapshots the sessions in a room.
func (r *registry) Members(room string) []*Session {
	sh := r.shardFor(room)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	members := sh.rooms[room]
	out := make([]*Session, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

// Size returns the member count of a room.
func (r *registry) Size(room string) int {
	sh := r.shardFor(room)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.rooms[room])
}

// Register records the user's active session for direct addressing. A new
// connection for the same user supersedes the old one.
func (r *registry) Register(s *Session) *Session {
	r.umu.Lock()
	defer r.umu.Unlock()
	prev := r.users[s.UserID]
	r.users[s.UserID] = s
	if prev != nil && prev.ID == s.ID {
		return nil
	}
	return prev
}

// Unregister drops the user mapping if it still points at this session.
func (r *registry) Unregister(s *Session) {
	r.umu.Lock()
	defer r.umu.Unlock()
	if cur, ok := r.users[s.UserID]; ok && cur.ID == s.ID {
		delete(r.users, s.UserID)
	}
}

// User returns the user's active session, or nil when offline.
func (r *registry) User(id domain.UserID) *Session {
	r.umu.RLock()
	defer r.umu.RUnlock()
	return r.users[id]
}
