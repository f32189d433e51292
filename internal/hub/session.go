package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

const (
	maxMessageSize = 4096
	pongMultiple   = 2
)

// Session is one connected subscriber. The send channel decouples fan-out
// from socket writes; a full channel past the send timeout marks the
// subscriber offline.
type Session struct {
	ID              string
	UserID          domain.UserID
	Role            domain.Role
	HotelID         domain.HotelID
	Tier            domain.Tier
	LoyaltyEnrolled bool

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	hub  *Hub

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

func (s *Session) addRoom(room string) {
	s.mu.Lock()
	s.rooms[room] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) removeRoom(room string) {
	s.mu.Lock()
	delete(s.rooms, room)
	s.mu.Unlock()
}

func (s *Session) roomList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		out = append(out, room)
	}
	return out
}

// inRoom reports current membership; used by tests and the control handler.
func (s *Session) inRoom(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[room]
	return ok
}

// trySend queues data for the write pump. Returns false when the subscriber
// cannot keep up within the timeout or the session is closed. The send
// channel is never closed, so a sender parked here cannot panic when the
// session shuts down; the done channel unblocks it instead.
func (s *Session) trySend(data []byte, timeout time.Duration) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	select {
	case s.send <- data:
		return true
	case <-s.done:
		return false
	case <-time.After(timeout):
		return false
	}
}

// close idempotently shuts the session down. Closing done stops the write
// pump and releases any sender blocked in trySend.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// readPump consumes control messages until the socket dies.
func (s *Session) readPump() {
	defer s.hub.disconnect(s)

	s.conn.SetReadLimit(maxMessageSize)
	pongWait := s.hub.cfg.PingInterval * pongMultiple
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session", s.ID).Msg("session read failed")
			}
			return
		}
		s.hub.handleControl(s, data)
	}
}

// writePump flushes the send channel to the socket and keeps the connection
// alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.hub.disconnect(s)
	}()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.SendTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.SendTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.SendTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
