package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/config"
	"skillswap/internal/room"
)

type testServer struct {
	server  *httptest.Server
	relay   *room.Relay
	manager *Manager
	metrics *config.ServerMetrics
}

func newTestServer(t *testing.T, cfg *config.ServerConfig) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultServerConfig()
	}
	metrics := config.NewServerMetrics()
	relay := room.NewRelay(metrics, nil)
	manager := NewManager(metrics, nil)
	handler := NewHandler(cfg, manager, relay, metrics, nil)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{server: srv, relay: relay, manager: manager, metrics: metrics}
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_room","roomId":"`+roomID+`"}`)))
}

func nextFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestHandler_JoinAndReceiveBroadcast(t *testing.T) {
	ts := newTestServer(t, nil)
	alice := ts.dial(t)
	bob := ts.dial(t)

	joinRoom(t, alice, "swap-1")
	joinRoom(t, bob, "swap-2")
	require.Eventually(t, func() bool {
		return ts.relay.MemberCount("swap-1") == 1 && ts.relay.MemberCount("swap-2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	ts.relay.Broadcast("swap-1", room.NewMessage{Message: map[string]any{"id": 1}})
	assert.JSONEq(t, `{"type":"new_message","message":{"id":1}}`, nextFrame(t, alice))

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err, "bob is in another room")
}

func TestHandler_MalformedFramesAreIgnored(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := ts.dial(t)

	for _, frame := range []string{
		`not json`,
		`{"type":"join_room"}`,
		`{"type":"join_room","roomId":42}`,
		`{"type":"leave_room","roomId":"swap-1"}`,
	} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	}
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}))

	require.Eventually(t, func() bool {
		return ts.metrics.GetMetrics().MalformedFrames == 5
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, ts.relay.RoomCount())

	joinRoom(t, conn, "swap-1")
	require.Eventually(t, func() bool {
		return ts.relay.MemberCount("swap-1") == 1
	}, 2*time.Second, 10*time.Millisecond, "connection survives bad frames")
}

func TestHandler_OversizedFrameIsDropped(t *testing.T) {
	cfg := config.DefaultServerConfig()
	cfg.MaxFrameSize = 64
	ts := newTestServer(t, cfg)
	conn := ts.dial(t)

	big := `{"type":"join_room","roomId":"` + strings.Repeat("x", 200) + `"}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(big)))
	require.Eventually(t, func() bool {
		return ts.metrics.GetMetrics().MalformedFrames == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, ts.relay.RoomCount())

	joinRoom(t, conn, "swap-1")
	require.Eventually(t, func() bool {
		return ts.relay.MemberCount("swap-1") == 1
	}, 2*time.Second, 10*time.Millisecond, "connection survives an oversized frame")
	assert.Equal(t, 1, ts.manager.Count())
}

func TestHandler_AnyRoomNameIsJoinable(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := ts.dial(t)

	joinRoom(t, conn, "swap 1; guitar & piano")
	require.Eventually(t, func() bool {
		return ts.relay.MemberCount("swap 1; guitar & piano") == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, ts.metrics.GetMetrics().MalformedFrames)
}

func TestReadFrame(t *testing.T) {
	data, err := readFrame(strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	r := strings.NewReader("hello world")
	_, err = readFrame(r, 5)
	assert.ErrorIs(t, err, errFrameTooLarge)
	assert.Zero(t, r.Len(), "oversized frame is drained")

	data, err = readFrame(strings.NewReader("no limit"), 0)
	require.NoError(t, err)
	assert.Equal(t, "no limit", string(data))
}

func TestHandler_CloseReleasesMembership(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := ts.dial(t)

	joinRoom(t, conn, "swap-9")
	require.Eventually(t, func() bool {
		return ts.relay.MemberCount("swap-9") == 1 && ts.manager.Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	require.Eventually(t, func() bool {
		return ts.relay.RoomCount() == 0 && ts.manager.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)

	snapshot := ts.metrics.GetMetrics()
	assert.Equal(t, int64(1), snapshot.TotalConnections)
	assert.Zero(t, snapshot.ActiveConnections)
}

func TestHandler_RejectsDisallowedOrigin(t *testing.T) {
	cfg := config.DefaultServerConfig()
	cfg.AllowedOrigins = []string{"https://skillswap.example"}
	ts := newTestServer(t, cfg)
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://skillswap.example"}})
	require.NoError(t, err)
	_ = conn.Close()
}

func TestManager_ShutdownClosesConnections(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := ts.dial(t)
	joinRoom(t, conn, "swap-3")
	require.Eventually(t, func() bool {
		return ts.relay.MemberCount("swap-3") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ts.manager.Shutdown(context.Background(), time.Second))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))

	require.Eventually(t, func() bool {
		return ts.relay.RoomCount() == 0 && ts.manager.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnection_Send(t *testing.T) {
	conn := NewConnection(nil, 1)
	assert.NotEmpty(t, conn.ID())
	assert.True(t, conn.IsOpen())

	require.NoError(t, conn.Send([]byte("first")))
	assert.ErrorIs(t, conn.Send([]byte("second")), ErrSendQueueFull)

	conn.markClosed()
	assert.False(t, conn.IsOpen())
	assert.ErrorIs(t, conn.Send([]byte("third")), ErrConnectionClosed)
}
