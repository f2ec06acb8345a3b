package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdesk/quizdesk/domain"
	"github.com/quizdesk/quizdesk/log"
)

type fakeStore struct {
	mu          sync.Mutex
	perfRows    int64
	statusRows  int64
	perfCalls   int
	statusCalls int
}

func (f *fakeStore) UpdatePerformance(_ context.Context, _ string, _ float64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perfCalls++
	return f.perfRows, nil
}

func (f *fakeStore) UpdateTestStatus(_ context.Context, _ string, _ domain.TestStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.statusRows, nil
}

func newTestHub(t *testing.T, store Store) (*Hub, string) {
	t.Helper()
	hub := NewHub(Config{
		Store:          store,
		Logger:         log.NewZerolog(zerolog.Disabled, false),
		StaleThreshold: time.Hour,
		SweepInterval:  time.Hour,
		PingInterval:   time.Hour,
		PingTimeout:    2 * time.Hour,
	})
	t.Cleanup(hub.Close)

	e := echo.New()
	e.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt Event
	require.NoError(t, ws.ReadJSON(&evt))
	return evt
}

func expectNoEvent(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	var evt Event
	err := ws.ReadJSON(&evt)
	require.Error(t, err, "expected no event, got %+v", evt)
}

func TestHub_ConnectionAckGoesToNewConnectionOnly(t *testing.T) {
	hub, url := newTestHub(t, &fakeStore{})

	first := dial(t, url)
	ack := readEvent(t, first)
	assert.Equal(t, EventConnectionSuccess, ack.Type)

	var payload ConnectionAck
	require.NoError(t, json.Unmarshal(ack.Data, &payload))
	assert.NotEmpty(t, payload.ConnectionID)

	second := dial(t, url)
	readEvent(t, second) // its own ack

	// The first client must not see the second client's ack.
	expectNoEvent(t, first)

	assert.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastOnSuccessfulMutation(t *testing.T) {
	store := &fakeStore{statusRows: 1}
	_, url := newTestHub(t, store)

	clientA := dial(t, url)
	readEvent(t, clientA)
	clientB := dial(t, url)
	readEvent(t, clientB)

	update := TestStatusUpdate{TestID: "test-1", Status: domain.TestStatusReviewed}
	data, err := json.Marshal(update)
	require.NoError(t, err)
	require.NoError(t, clientA.WriteJSON(Event{Type: EventUpdateTestStatus, Data: data}))

	for _, ws := range []*websocket.Conn{clientA, clientB} {
		evt := readEvent(t, ws)
		assert.Equal(t, EventTestStatusUpdated, evt.Type)

		var got TestStatusUpdate
		require.NoError(t, json.Unmarshal(evt.Data, &got))
		assert.Equal(t, update, got)
	}
}

func TestHub_ZeroRowsYieldsTargetedErrorOnly(t *testing.T) {
	store := &fakeStore{statusRows: 0}
	_, url := newTestHub(t, store)

	clientA := dial(t, url)
	readEvent(t, clientA)
	clientB := dial(t, url)
	readEvent(t, clientB)

	data, err := json.Marshal(TestStatusUpdate{TestID: "missing", Status: domain.TestStatusReviewed})
	require.NoError(t, err)
	require.NoError(t, clientA.WriteJSON(Event{Type: EventUpdateTestStatus, Data: data}))

	evt := readEvent(t, clientA)
	assert.Equal(t, EventConnectionError, evt.Type)

	expectNoEvent(t, clientB)
}

func TestHub_PerformanceUpdateBroadcast(t *testing.T) {
	store := &fakeStore{perfRows: 1}
	_, url := newTestHub(t, store)

	clientA := dial(t, url)
	readEvent(t, clientA)

	data, err := json.Marshal(PerformanceUpdate{UserID: "u1", Score: 87.5})
	require.NoError(t, err)
	require.NoError(t, clientA.WriteJSON(Event{Type: EventUpdatePerformance, Data: data}))

	evt := readEvent(t, clientA)
	assert.Equal(t, EventPerformanceUpdated, evt.Type)

	store.mu.Lock()
	assert.Equal(t, 1, store.perfCalls)
	store.mu.Unlock()
}

func TestHub_MalformedAndUnknownEvents(t *testing.T) {
	_, url := newTestHub(t, &fakeStore{perfRows: 1})

	ws := dial(t, url)
	readEvent(t, ws)

	require.NoError(t, ws.WriteJSON(Event{Type: "BOGUS_EVENT"}))
	evt := readEvent(t, ws)
	assert.Equal(t, EventConnectionError, evt.Type)

	require.NoError(t, ws.WriteJSON(Event{Type: EventUpdatePerformance, Data: json.RawMessage(`{"score":1}`)}))
	evt = readEvent(t, ws)
	assert.Equal(t, EventConnectionError, evt.Type, "missing user id counts as malformed")
}

func TestHub_SweepEvictsIdleAndKeepsActive(t *testing.T) {
	hub, url := newTestHub(t, &fakeStore{})

	idle := dial(t, url)
	readEvent(t, idle)
	active := dial(t, url)
	readEvent(t, active)

	require.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 10*time.Millisecond)

	// Age the idle connection past the stale threshold.
	hub.mu.Lock()
	for _, c := range hub.conns {
		c.lastActivity = time.Now().Add(-2 * time.Hour)
		break
	}
	hub.mu.Unlock()

	evicted := hub.sweep(time.Now())
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, hub.Len(), "the active connection survives the sweep")

	// A second sweep is a no-op.
	assert.Equal(t, 0, hub.sweep(time.Now()))
}

func TestHub_DisconnectRemovesRecord(t *testing.T) {
	hub, url := newTestHub(t, &fakeStore{})

	ws := dial(t, url)
	readEvent(t, ws)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseShutsEverythingDown(t *testing.T) {
	hub, url := newTestHub(t, &fakeStore{})

	ws := dial(t, url)
	readEvent(t, ws)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Len())

	// The client observes the close.
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt Event
	assert.Error(t, ws.ReadJSON(&evt))
}
