package standalone_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oakstream/signaling/internal/adapters/signal"
	"github.com/oakstream/signaling/internal/adapters/standalone"
	"github.com/oakstream/signaling/internal/app"
	"github.com/oakstream/signaling/internal/config"
)

func startRelay(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		ReadLimit:    32768,
		PingPeriod:   20 * time.Second,
		PongWait:     30 * time.Second,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   32,
	}
	rt := app.NewRouter()
	ctl := signal.NewController(rt, cfg)
	ts := httptest.NewServer(standalone.New(ctl).Handler(ctx))
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMsg(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]any
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// The standalone relay serves websockets on any path, like the original.
func TestServesAnyPath(t *testing.T) {
	url := startRelay(t)

	for _, path := range []string{"", "/", "/signaling"} {
		ws := dial(t, url+path)
		if msg := readMsg(t, ws); msg["type"] != "connected" {
			t.Fatalf("path %q: greeting=%v, want connected", path, msg)
		}
	}
}

func TestJoinAndSignalRoundTrip(t *testing.T) {
	url := startRelay(t)

	a := dial(t, url)
	if msg := readMsg(t, a); msg["type"] != "connected" {
		t.Fatalf("greeting=%v", msg)
	}
	b := dial(t, url)
	bGreeting := readMsg(t, b)
	if bGreeting["type"] != "connected" {
		t.Fatalf("greeting=%v", bGreeting)
	}

	if err := a.WriteJSON(map[string]any{"type": "join_room", "room": "relay"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMsg(t, a); msg["type"] != "room_joined" || msg["users"] != float64(1) {
		t.Fatalf("unexpected room_joined: %v", msg)
	}
	if err := b.WriteJSON(map[string]any{"type": "join_room", "room": "relay"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMsg(t, b); msg["type"] != "room_joined" || msg["users"] != float64(2) {
		t.Fatalf("unexpected room_joined: %v", msg)
	}
	if msg := readMsg(t, a); msg["type"] != "user_joined" {
		t.Fatalf("unexpected user_joined: %v", msg)
	}

	if err := b.WriteJSON(map[string]any{"type": "answer", "answer": map[string]any{"sdp": "v=0"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	fwd := readMsg(t, a)
	if fwd["type"] != "answer" || fwd["from_user"] != bGreeting["user_id"] {
		t.Fatalf("unexpected forwarded answer: %v", fwd)
	}
}

// Binary frames carry media between bridge processes and their peers; the
// relay must skip them without disturbing the JSON protocol.
func TestBinaryFramesIgnored(t *testing.T) {
	url := startRelay(t)

	a := dial(t, url)
	if msg := readMsg(t, a); msg["type"] != "connected" {
		t.Fatalf("greeting=%v", msg)
	}

	if err := a.WriteMessage(websocket.BinaryMessage, []byte{0x00, 0x01, 0x02}); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	if err := a.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if msg := readMsg(t, a); msg["type"] != "pong" {
		t.Fatalf("got %v, want pong after binary frame", msg)
	}
}
