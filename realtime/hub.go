// Package realtime manages the live bidirectional connections: it
// tracks per-connection liveness, relays state-change events to every
// connected client and evicts connections that went silent.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/quizdesk/quizdesk/domain"
	"github.com/quizdesk/quizdesk/internal/metrics"
	"github.com/quizdesk/quizdesk/log"
)

const (
	maxMessageSize = 4096
	writeWait      = 10 * time.Second

	defaultStaleThreshold = 5 * time.Minute
	defaultSweepInterval  = time.Minute
	defaultPingInterval   = 25 * time.Second
	defaultPingTimeout    = 60 * time.Second
)

// Store is the slice of persistence the hub needs: both mutations
// report how many records they touched so the hub can distinguish a
// broadcastable change from a no-op.
type Store interface {
	UpdatePerformance(ctx context.Context, userID string, score float64) (int64, error)
	UpdateTestStatus(ctx context.Context, testID string, status domain.TestStatus) (int64, error)
}

// Config wires the hub.
type Config struct {
	Store          Store
	Logger         log.Logger
	StaleThreshold time.Duration
	SweepInterval  time.Duration
	PingInterval   time.Duration
	PingTimeout    time.Duration
	AllowedOrigins []string
}

// Hub owns the connection-record table. The table is shared between
// reader goroutines and the sweeper, so every mutation goes through
// the mutex.
type Hub struct {
	store  Store
	logger log.Logger

	staleThreshold time.Duration
	sweepInterval  time.Duration
	pingInterval   time.Duration
	pingTimeout    time.Duration

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*Conn

	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates the hub and starts the idle sweep loop.
func NewHub(cfg Config) *Hub {
	h := &Hub{
		store:          cfg.Store,
		logger:         cfg.Logger,
		staleThreshold: cfg.StaleThreshold,
		sweepInterval:  cfg.SweepInterval,
		pingInterval:   cfg.PingInterval,
		pingTimeout:    cfg.PingTimeout,
		conns:          make(map[string]*Conn),
		done:           make(chan struct{}),
	}
	if h.staleThreshold <= 0 {
		h.staleThreshold = defaultStaleThreshold
	}
	if h.sweepInterval <= 0 {
		h.sweepInterval = defaultSweepInterval
	}
	if h.pingInterval <= 0 {
		h.pingInterval = defaultPingInterval
	}
	if h.pingTimeout <= 0 {
		h.pingTimeout = defaultPingTimeout
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}

	go h.sweepLoop()

	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS upgrades the request and registers the connection. The new
// connection alone receives CONNECTION_SUCCESS.
func (h *Hub) ServeWS(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	conn := &Conn{
		id:           uuid.NewString(),
		ws:           ws,
		send:         make(chan Event, sendBufferSize),
		connectedAt:  time.Now(),
		lastActivity: time.Now(),
	}

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()
	metrics.WSConnectionsGauge.Inc()

	h.logger.Debug(c.Request().Context(), "realtime connection opened", map[string]interface{}{
		"connection_id": conn.id,
	})

	go conn.writePump(h)
	h.sendTo(conn, newEvent(EventConnectionSuccess, ConnectionAck{ConnectionID: conn.id}))
	go conn.readPump(h)

	return nil
}

// touch records inbound activity; it never changes connection state.
func (h *Hub) touch(c *Conn) {
	h.mu.Lock()
	c.lastActivity = time.Now()
	h.mu.Unlock()
}

// unregister removes the record and releases the writer. Safe to call
// more than once for the same connection.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	c.closed = true
	delete(h.conns, c.id)
	h.mu.Unlock()

	close(c.send)
	metrics.WSConnectionsGauge.Dec()
}

// sendTo queues an event for one connection. A full send buffer counts
// as a dead client: the connection is dropped rather than blocking the
// caller.
func (h *Hub) sendTo(c *Conn, evt Event) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	select {
	case c.send <- evt:
		h.mu.Unlock()
	default:
		h.mu.Unlock()
		h.logger.Warn(context.Background(), "realtime send buffer full, dropping connection", map[string]interface{}{
			"connection_id": c.id,
		})
		h.unregister(c)
	}
}

// Broadcast fans an event out to every currently connected client.
func (h *Hub) Broadcast(evt Event) {
	h.mu.Lock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		h.sendTo(c, evt)
	}
}

// dispatch routes one inbound event. Broadcasts only happen after the
// underlying mutation touched at least one record; a zero-row mutation
// yields a targeted error to the originator instead.
func (h *Hub) dispatch(c *Conn, evt Event) {
	ctx := context.Background()

	switch evt.Type {
	case EventUpdatePerformance:
		var upd PerformanceUpdate
		if err := json.Unmarshal(evt.Data, &upd); err != nil || upd.UserID == "" {
			h.sendTo(c, errorEvent("malformed performance update"))
			return
		}
		n, err := h.store.UpdatePerformance(ctx, upd.UserID, upd.Score)
		if err != nil {
			h.logger.Error(ctx, "performance update failed", err, map[string]interface{}{"user_id": upd.UserID})
			h.sendTo(c, errorEvent("performance update failed"))
			return
		}
		if n == 0 {
			h.sendTo(c, errorEvent("performance update affected no records"))
			return
		}
		h.Broadcast(newEvent(EventPerformanceUpdated, upd))

	case EventUpdateTestStatus:
		var upd TestStatusUpdate
		if err := json.Unmarshal(evt.Data, &upd); err != nil || upd.TestID == "" {
			h.sendTo(c, errorEvent("malformed test status update"))
			return
		}
		n, err := h.store.UpdateTestStatus(ctx, upd.TestID, upd.Status)
		if err != nil {
			h.logger.Error(ctx, "test status update failed", err, map[string]interface{}{"test_id": upd.TestID})
			h.sendTo(c, errorEvent("test status update failed"))
			return
		}
		if n == 0 {
			h.sendTo(c, errorEvent("test status update affected no records"))
			return
		}
		h.Broadcast(newEvent(EventTestStatusUpdated, upd))

	default:
		h.sendTo(c, errorEvent("unknown event type"))
	}
}

func (h *Hub) sweepLoop() {
	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweep(time.Now())
		case <-h.done:
			return
		}
	}
}

// sweep force-disconnects every connection whose last activity is
// older than the stale threshold and always removes its record.
func (h *Hub) sweep(now time.Time) int {
	h.mu.Lock()
	var stale []*Conn
	for _, c := range h.conns {
		if now.Sub(c.lastActivity) > h.staleThreshold {
			stale = append(stale, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		h.logger.Info(context.Background(), "evicting idle realtime connection", map[string]interface{}{
			"connection_id": c.id,
		})
		h.unregister(c)
		_ = c.ws.Close()
		metrics.IdleEvictionsTotal.Inc()
	}

	return len(stale)
}

// Len reports the number of tracked connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close cancels the sweep timer and closes every connection. Called on
// server shutdown so no timers or handles dangle.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		conns := make([]*Conn, 0, len(h.conns))
		for _, c := range h.conns {
			conns = append(conns, c)
		}
		h.mu.Unlock()

		for _, c := range conns {
			h.unregister(c)
			_ = c.ws.Close()
		}
	})
}
