package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thehaigo/desktop/internal/domain/env"
	"github.com/thehaigo/desktop/internal/infrastructure/logging"
)

func setupWS(t *testing.T, opts env.Options) (*websocket.Conn, *env.Env) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	environment := env.New(opts)
	t.Cleanup(func() { environment.Close() })

	h := NewHandler(environment, logging.NewNop(), nil)
	r := gin.New()
	r.GET("/stream", h.HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	banner := readFrame(t, conn)
	require.Equal(t, "system", banner["type"])

	return conn, environment
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
}

func pollUntil(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestPingPong(t *testing.T) {
	conn, _ := setupWS(t, env.Options{})

	writeFrame(t, conn, map[string]any{"type": "ping"})
	frame := readFrame(t, conn)
	assert.Equal(t, "pong", frame["type"])
}

func TestRegisterWindow(t *testing.T) {
	conn, environment := setupWS(t, env.Options{})

	writeFrame(t, conn, map[string]any{"type": "register_window", "title": "main"})
	frame := readFrame(t, conn)

	require.Equal(t, "registered", frame["type"])
	assert.Equal(t, "main", frame["title"])

	windowID, ok := frame["window_id"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(windowID, "win_"), "window id %q should carry the win_ prefix", windowID)

	pollUntil(t, "window never appeared in the coordinator", func() bool {
		return len(environment.Windows()) == 1
	})
}

func TestConnectionDeathRemovesWindow(t *testing.T) {
	conn, environment := setupWS(t, env.Options{})

	writeFrame(t, conn, map[string]any{"type": "register_window", "title": "main"})
	readFrame(t, conn)
	pollUntil(t, "window never registered", func() bool {
		return len(environment.Windows()) == 1
	})

	conn.Close()

	pollUntil(t, "window survived its connection", func() bool {
		return len(environment.Windows()) == 0
	})
}

func TestSubscribeDeliversEvents(t *testing.T) {
	conn, environment := setupWS(t, env.Options{})

	writeFrame(t, conn, map[string]any{"type": "subscribe"})
	frame := readFrame(t, conn)
	require.Equal(t, "subscribed", frame["type"])

	environment.Publish(env.NewEvent(env.KindOpenFile, "/tmp/a.txt"))

	frame = readFrame(t, conn)
	require.Equal(t, "event", frame["type"])

	payload, ok := frame["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "open_file", payload["kind"])
	assert.Equal(t, []any{"/tmp/a.txt"}, payload["args"])
}

func TestSecondSubscribeRejected(t *testing.T) {
	conn, _ := setupWS(t, env.Options{})

	writeFrame(t, conn, map[string]any{"type": "subscribe"})
	require.Equal(t, "subscribed", readFrame(t, conn)["type"])

	writeFrame(t, conn, map[string]any{"type": "subscribe"})
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Contains(t, frame["message"], "already subscribed")
}

func TestPutGetRoundTrip(t *testing.T) {
	conn, _ := setupWS(t, env.Options{})

	writeFrame(t, conn, map[string]any{"type": "put", "key": "theme", "value": "dark"})
	frame := readFrame(t, conn)
	require.Equal(t, "value", frame["type"])
	assert.Equal(t, "theme", frame["key"])
	assert.Nil(t, frame["value"], "first put sees no previous value")

	writeFrame(t, conn, map[string]any{"type": "get", "key": "theme"})
	frame = readFrame(t, conn)
	require.Equal(t, "value", frame["type"])
	assert.Equal(t, "dark", frame["value"])

	writeFrame(t, conn, map[string]any{"type": "get", "key": "missing", "default": "en"})
	frame = readFrame(t, conn)
	require.Equal(t, "value", frame["type"])
	assert.Equal(t, "en", frame["value"])
}

func TestAwaitResolvedByPut(t *testing.T) {
	conn, environment := setupWS(t, env.Options{})

	writeFrame(t, conn, map[string]any{"type": "await", "key": "lang"})

	// The waiter has to be parked before the put resolves it.
	pollUntil(t, "await never registered", func() bool {
		return environment.Stats().Waiters == 1
	})
	environment.Put("lang", "en")

	frame := readFrame(t, conn)
	require.Equal(t, "value", frame["type"])
	assert.Equal(t, "lang", frame["key"])
	assert.Equal(t, "en", frame["value"])
}

func TestPublishFromSocket(t *testing.T) {
	conn, environment := setupWS(t, env.Options{})

	ch, err := environment.Subscribe(env.NewHandle("probe", nil))
	require.NoError(t, err)

	writeFrame(t, conn, map[string]any{
		"type": "publish",
		"kind": "open_url",
		"args": []string{"https://example.com"},
	})

	select {
	case ev := <-ch:
		assert.Equal(t, env.KindOpenURL, ev.Kind)
		assert.Equal(t, []string{"https://example.com"}, ev.Args)
	case <-time.After(2 * time.Second):
		t.Fatal("published event never reached the subscriber")
	}
}

func TestPublishInvalidKind(t *testing.T) {
	conn, _ := setupWS(t, env.Options{})

	writeFrame(t, conn, map[string]any{"type": "publish", "kind": "explode"})
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Contains(t, frame["message"], "unknown event kind")
}

func TestMalformedFrame(t *testing.T) {
	conn, _ := setupWS(t, env.Options{})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{nope")))
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Contains(t, frame["message"], "malformed")
}

func TestUnknownMessageType(t *testing.T) {
	conn, _ := setupWS(t, env.Options{})

	writeFrame(t, conn, map[string]any{"type": "teleport"})
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Contains(t, frame["message"], "unknown message type")
}
