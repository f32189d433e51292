// Package hub maintains authenticated persistent channels and routes domain
// events to subscribed rooms with bounded offline queues.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/clock"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/config"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/metrics"
)

// LoyaltyDirectory answers subscriber loyalty queries without coupling the
// hub to the loyalty engine.
type LoyaltyDirectory interface {
	Status(ctx context.Context, userID domain.UserID) (map[string]any, error)
	RedemptionOptions(ctx context.Context, userID domain.UserID) ([]map[string]any, error)
}

// WatchHandler receives price-watch control payloads.
type WatchHandler func(userID domain.UserID, payload json.RawMessage) error

// prefs records a subscriber's opt-in notification preferences.
type prefs struct {
	PriceAlerts  bool
	TierUpdates  bool
	ExpiryAlerts bool
}

// Hub is the realtime fan-out core.
type Hub struct {
	registry *registry
	offline  *offlineStore
	verifier *Verifier
	cfg      config.Hub
	metrics  *metrics.Registry
	clk      clock.Clock
	upgrader websocket.Upgrader

	loyalty LoyaltyDirectory
	onWatch WatchHandler

	// onDisconnect hooks let the watch registry start expiry timers.
	onDisconnect func(userID domain.UserID)
	onConnect    func(userID domain.UserID)

	pmu   sync.RWMutex
	prefs map[domain.UserID]prefs
}

// New builds a hub.
func New(verifier *Verifier, cfg config.Hub, reg *metrics.Registry, clk clock.Clock, corsOrigin string) *Hub {
	return &Hub{
		registry: newRegistry(),
		offline:  newOfflineStore(cfg.OfflineQueueCap, cfg.OfflineQueueTTL),
		verifier: verifier,
		cfg:      cfg,
		metrics:  reg,
		clk:      clk,
		prefs:    make(map[domain.UserID]prefs),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return corsOrigin == "*" || r.Header.Get("Origin") == corsOrigin
			},
		},
	}
}

// SetLoyalty attaches the loyalty directory.
func (h *Hub) SetLoyalty(d LoyaltyDirectory) { h.loyalty = d }

// SetWatchHandler attaches the price-watch control handler.
func (h *Hub) SetWatchHandler(fn WatchHandler) { h.onWatch = fn }

// SetPresenceHooks attaches connect/disconnect callbacks.
func (h *Hub) SetPresenceHooks(onConnect, onDisconnect func(userID domain.UserID)) {
	h.onConnect = onConnect
	h.onDisconnect = onDisconnect
}

// ServeHTTP upgrades the connection and runs the session lifecycle.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	claims, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.connect(conn, claims)
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// connect registers the session, auto-joins role rooms, replays the offline
// queue, and starts the socket pumps.
func (h *Hub) connect(conn *websocket.Conn, claims *Claims) *Session {
	s := &Session{
		ID:              uuid.NewString(),
		UserID:          claims.UserID,
		Role:            claims.Role,
		HotelID:         claims.HotelID,
		Tier:            claims.Tier,
		LoyaltyEnrolled: claims.LoyaltyEnrolled,
		conn:            conn,
		send:            make(chan []byte, h.cfg.WriteBuffer),
		done:            make(chan struct{}),
		hub:             h,
		rooms:           make(map[string]struct{}),
	}

	if prev := h.registry.Register(s); prev != nil {
		h.registry.LeaveAll(prev)
		prev.close()
	}
	for _, room := range autoJoinRooms(claims) {
		h.registry.Join(room, s)
	}

	h.metrics.HubConnections.Inc()
	if h.onConnect != nil {
		h.onConnect(s.UserID)
	}

	h.replayOffline(s)

	go s.writePump()
	go s.readPump()

	log.Info().
		Str("session", s.ID).
		Str("user", string(s.UserID)).
		Str("role", string(s.Role)).
		Msg("subscriber connected")
	return s
}

// disconnect tears a session down. Idempotent: both pumps call it.
func (h *Hub) disconnect(s *Session) {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.mu.Unlock()
	if alreadyClosed {
		return
	}

	h.registry.LeaveAll(s)
	h.registry.Unregister(s)
	s.close()
	h.metrics.HubConnections.Dec()
	if h.onDisconnect != nil {
		h.onDisconnect(s.UserID)
	}
	log.Info().Str("session", s.ID).Str("user", string(s.UserID)).Msg("subscriber disconnected")
}

// replayOffline drains the user's queue into the fresh session. Entries that
// still cannot be delivered are re-queued until the attempt budget runs out.
func (h *Hub) replayOffline(s *Session) {
	now := h.clk.Now()
	for _, entry := range h.offline.Drain(s.UserID, now) {
		if s.trySend(entry.data, h.cfg.SendTimeout) {
			h.metrics.OfflineReplays.Inc()
			continue
		}
		if entry.attempts+1 >= h.cfg.ReplayAttempts {
			h.metrics.OfflineQueueDrops.Inc()
			continue
		}
		h.offline.Enqueue(s.UserID, entry.data, entry.storedAt, entry.attempts+1)
	}
}

// Emit broadcasts an event to every member of the given rooms. Delivery to a
// room preserves emission order for connected subscribers.
func (h *Hub) Emit(ev Event, rooms ...string) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Msg("event marshal failed")
		return
	}
	h.metrics.HubEvents.WithLabelValues(string(ev.Type)).Inc()

	seen := make(map[string]struct{})
	for _, room := range rooms {
		kind, arg := splitRoom(room)
		if kind == "user" && h.registry.Size(room) == 0 {
			// Offline user: park the event for replay.
			h.offline.Enqueue(domain.UserID(arg), data, h.clk.Now(), 0)
			continue
		}
		for _, s := range h.registry.Members(room) {
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			if !s.trySend(data, h.cfg.SendTimeout) {
				// Park the undelivered event for replay on reconnect.
				log.Warn().Str("session", s.ID).Str("room", room).Msg("slow subscriber, disconnecting")
				h.offline.Enqueue(s.UserID, data, h.clk.Now(), 0)
				go h.disconnect(s)
			}
		}
	}
}

// EmitUser delivers an event directly to a user, queueing it when offline.
func (h *Hub) EmitUser(userID domain.UserID, ev Event) {
	h.Emit(ev, fmt.Sprintf("user:%s", userID))
}

// MoveTierRoom migrates a connected subscriber between loyalty tier rooms on
// upgrade. No-op when the user is offline.
func (h *Hub) MoveTierRoom(userID domain.UserID, oldTier, newTier domain.Tier) {
	s := h.registry.User(userID)
	if s == nil {
		return
	}
	if oldTier != "" {
		h.registry.Leave(fmt.Sprintf("loyalty-tier:%s", oldTier), s)
	}
	h.registry.Join(fmt.Sprintf("loyalty-tier:%s", newTier), s)
	for _, tier := range domain.TierOrder {
		h.registry.Join(fmt.Sprintf("tier-benefits:%s", tier), s)
		if tier == newTier {
			break
		}
	}
	s.Tier = newTier
}

// WantsExpiryAlerts reports the user's expiry-alert preference. Users who
// never connected default to alerting on.
func (h *Hub) WantsExpiryAlerts(userID domain.UserID) bool {
	h.pmu.RLock()
	defer h.pmu.RUnlock()
	p, ok := h.prefs[userID]
	if !ok {
		return true
	}
	return p.ExpiryAlerts
}

func (h *Hub) setPref(userID domain.UserID, apply func(*prefs)) {
	h.pmu.Lock()
	defer h.pmu.Unlock()
	p, ok := h.prefs[userID]
	if !ok {
		p = prefs{PriceAlerts: true, TierUpdates: true, ExpiryAlerts: true}
	}
	apply(&p)
	h.prefs[userID] = p
}

// handleControl dispatches one client control message.
func (h *Hub) handleControl(s *Session, data []byte) {
	var msg control
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(s, "malformed control message")
		return
	}

	switch {
	case strings.HasPrefix(msg.Type, "join-"):
		h.handleJoin(s, strings.TrimPrefix(msg.Type, "join-"))
	case strings.HasPrefix(msg.Type, "leave-"):
		room := strings.TrimPrefix(msg.Type, "leave-")
		h.registry.Leave(room, s)
		h.ack(s, EvLeft, map[string]any{"room": room})
	case msg.Type == "watch-hotel-prices":
		if h.onWatch == nil {
			h.sendError(s, "price watching unavailable")
			return
		}
		if err := h.onWatch(s.UserID, msg.Payload); err != nil {
			h.sendError(s, err.Error())
			return
		}
		h.ack(s, EvJoined, map[string]any{"room": "price-watch"})
	case msg.Type == "subscribe-price-alerts":
		h.setPref(s.UserID, func(p *prefs) { p.PriceAlerts = true })
	case msg.Type == "subscribe-tier-updates":
		h.setPref(s.UserID, func(p *prefs) { p.TierUpdates = true })
	case msg.Type == "subscribe-expiry-alerts":
		h.setPref(s.UserID, func(p *prefs) { p.ExpiryAlerts = true })
	case msg.Type == "request-loyalty-status":
		h.handleLoyaltyQuery(s, EvLoyaltyStatus)
	case msg.Type == "request-redemption-options":
		h.handleLoyaltyQuery(s, EvRedemptionOptions)
	default:
		h.sendError(s, fmt.Sprintf("unknown control type %q", msg.Type))
	}
}

func (h *Hub) handleJoin(s *Session, room string) {
	claims := &Claims{
		UserID:          s.UserID,
		Role:            s.Role,
		HotelID:         s.HotelID,
		Tier:            s.Tier,
		LoyaltyEnrolled: s.LoyaltyEnrolled,
	}
	if !canJoin(claims, room) {
		h.metrics.DeniedJoins.WithLabelValues(roomKind(room)).Inc()
		h.sendError(s, fmt.Sprintf("join to %q denied", room))
		return
	}
	h.registry.Join(room, s)
	h.ack(s, EvJoined, map[string]any{"room": room})
}

func (h *Hub) handleLoyaltyQuery(s *Session, t EventType) {
	if h.loyalty == nil {
		h.sendError(s, "loyalty service unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SendTimeout)
	defer cancel()

	var payload map[string]any
	switch t {
	case EvLoyaltyStatus:
		status, err := h.loyalty.Status(ctx, s.UserID)
		if err != nil {
			h.sendError(s, "loyalty status unavailable")
			return
		}
		payload = status
	case EvRedemptionOptions:
		options, err := h.loyalty.RedemptionOptions(ctx, s.UserID)
		if err != nil {
			h.sendError(s, "redemption options unavailable")
			return
		}
		payload = map[string]any{"options": options}
	}
	h.ack(s, t, payload)
}

func (h *Hub) ack(s *Session, t EventType, payload map[string]any) {
	data, err := json.Marshal(NewEvent(t, h.clk.Now(), payload))
	if err != nil {
		return
	}
	s.trySend(data, h.cfg.SendTimeout)
}

func (h *Hub) sendError(s *Session, message string) {
	h.ack(s, EvError, map[string]any{"message": message})
}

// Run emits periodic metric snapshots to the admin dashboards until the
// context ends.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, err := h.metrics.Snapshot()
			if err != nil {
				log.Warn().Err(err).Msg("metric snapshot failed")
				continue
			}
			payload := map[string]any{"metrics": snapshot}
			now := h.clk.Now()
			h.Emit(NewEvent(EvYieldDashboard, now, payload), "yield-admin")
			h.Emit(NewEvent(EvLoyaltyDashboard, now, payload), "loyalty-admin")
		}
	}
}
