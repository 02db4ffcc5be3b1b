package observe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armsort/pkg/sim"
	"github.com/gwillem/armsort/pkg/sorter"
	"github.com/gwillem/armsort/pkg/world"
)

func newTestServer(t *testing.T) (*Server, *sim.Controller, *httptest.Server) {
	t.Helper()
	srv := NewServer(nil)
	ctl, err := sim.NewController(sim.Config{
		Scene:      world.DefaultLayout(),
		Motion:     sorter.DefaultOptions(),
		Seed:       1,
		Publishers: []sim.Publisher{srv},
	})
	require.NoError(t, err)
	srv.Bind(ctl)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ctl, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readScene(t *testing.T, conn *websocket.Conn) SceneMsg {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg SceneMsg
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, TypeScene, msg.Type)
	return msg
}

func TestSnapshotHandler(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msg SceneMsg
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, "idle", msg.Phase)
	assert.Len(t, msg.Objects, 12)
	assert.Len(t, msg.Zones, 4)
	assert.Equal(t, Rect{X: 600, Y: 400, W: 150, H: 130}, msg.Staging)
	assert.Equal(t, Point{X: 400, Y: 560}, msg.Arm.Base)
	assert.Equal(t, 0, msg.Total)
}

func TestHandlers_RejectRemote(t *testing.T) {
	srv := NewServer(nil)
	for _, path := range []string{"/snapshot", "/ws"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.1.2.3:5555"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}

func TestHandlers_Unbound(t *testing.T) {
	srv := NewServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWS_StreamsAndAcceptsCommands(t *testing.T) {
	srv, ctl, ts := newTestServer(t)
	conn := dial(t, ts)

	first := readScene(t, conn)
	assert.False(t, first.Running)
	assert.Equal(t, uint64(0), first.Tick)
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ControlMsg{Type: TypeControl, Action: ActionRun}))
	require.Eventually(t, ctl.Running, time.Second, 5*time.Millisecond)

	ctl.Advance(context.Background(), 1)
	next := readScene(t, conn)
	assert.True(t, next.Running)
	assert.Equal(t, uint64(1), next.Tick)
	assert.Equal(t, "moving_to_pickup", next.Phase)
	require.NotNil(t, next.Task)

	require.NoError(t, conn.WriteJSON(ControlMsg{Type: TypeControl, Action: ActionReset}))
	reset := readScene(t, conn)
	assert.False(t, reset.Running)
	assert.Equal(t, uint32(1), reset.Generation)
	assert.Equal(t, "idle", reset.Phase)
}

func TestWS_BadCommand(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dial(t, ts)
	readScene(t, conn)

	require.NoError(t, conn.WriteJSON(ControlMsg{Type: TypeControl, Action: "dance"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ErrorMsg
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Message, "dance")
}

func TestPublish_NoClients(t *testing.T) {
	srv := NewServer(nil)
	srv.Publish(sim.Snapshot{})
	assert.Equal(t, 0, srv.Clients())
}
