package http_test

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	adapterhttp "github.com/oakstream/signaling/internal/adapters/http"
	"github.com/oakstream/signaling/internal/adapters/signal"
	"github.com/oakstream/signaling/internal/app"
	"github.com/oakstream/signaling/internal/config"
	"github.com/oakstream/signaling/internal/protocol"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:         "release",
		StaticPath:   "./web",
		ReadLimit:    32768,
		PingPeriod:   20 * time.Second,
		PongWait:     30 * time.Second,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   32,
	}
}

func startServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := testConfig()
	rt := app.NewRouter()
	ctl := signal.NewController(rt, cfg)
	ts := httptest.NewServer(adapterhttp.SetupRouter(ctx, cfg, ctl))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws/signal"
	return ts, wsURL
}

func dialClient(t *testing.T, wsURL string) (*websocket.Conn, string) {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	msg := readMsg(t, ws)
	if msg["type"] != "connected" {
		t.Fatalf("greeting=%v, want connected", msg)
	}
	id, _ := msg["user_id"].(string)
	if id == "" {
		t.Fatal("connected greeting carries no user_id")
	}
	return ws, id
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

func sendMsg(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	if err := ws.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func fetchRooms(t *testing.T, ts *httptest.Server) protocol.RoomsStatus {
	t.Helper()
	resp, err := nethttp.Get(ts.URL + "/api/rooms")
	if err != nil {
		t.Fatalf("GET /api/rooms: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	var status protocol.RoomsStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return status
}

func TestRoomsDiagnosticEmpty(t *testing.T) {
	ts, _ := startServer(t)

	status := fetchRooms(t, ts)
	if len(status.Rooms) != 0 || status.TotalUsers != 0 {
		t.Fatalf("status=%+v, want empty", status)
	}
}

func TestSignalingFlowOverWebsocket(t *testing.T) {
	ts, wsURL := startServer(t)

	a, aID := dialClient(t, wsURL)
	b, _ := dialClient(t, wsURL)

	sendMsg(t, a, map[string]any{"type": "join_room", "room": "e2e"})
	joined := readMsg(t, a)
	if joined["type"] != "room_joined" || joined["users"] != float64(1) {
		t.Fatalf("unexpected room_joined: %v", joined)
	}

	sendMsg(t, b, map[string]any{"type": "join_room", "room": "e2e"})
	joined = readMsg(t, b)
	if joined["type"] != "room_joined" || joined["users"] != float64(2) {
		t.Fatalf("unexpected room_joined: %v", joined)
	}
	notice := readMsg(t, a)
	if notice["type"] != "user_joined" || notice["users"] != float64(2) {
		t.Fatalf("unexpected user_joined: %v", notice)
	}

	status := fetchRooms(t, ts)
	if status.Rooms["e2e"] != 2 || status.TotalUsers != 2 {
		t.Fatalf("diagnostic=%+v, want e2e:2 total:2", status)
	}

	sendMsg(t, a, map[string]any{"type": "offer", "offer": map[string]any{"sdp": "v=0 e2e"}})
	fwd := readMsg(t, b)
	if fwd["type"] != "offer" || fwd["from_user"] != aID {
		t.Fatalf("unexpected forwarded offer: %v", fwd)
	}
	offer, ok := fwd["offer"].(map[string]any)
	if !ok || offer["sdp"] != "v=0 e2e" {
		t.Fatalf("offer payload not preserved: %v", fwd["offer"])
	}

	// B drops without an explicit leave; A must still hear about it and the
	// directory must shrink.
	b.Close()
	notice = readMsg(t, a)
	if notice["type"] != "user_left" || notice["users"] != float64(1) {
		t.Fatalf("unexpected user_left: %v", notice)
	}
	status = fetchRooms(t, ts)
	if status.Rooms["e2e"] != 1 {
		t.Fatalf("diagnostic=%+v, want e2e:1", status)
	}

	sendMsg(t, a, map[string]any{"type": "leave_room", "room": "e2e"})
	left := readMsg(t, a)
	if left["type"] != "room_left" {
		t.Fatalf("unexpected room_left: %v", left)
	}
	status = fetchRooms(t, ts)
	if _, ok := status.Rooms["e2e"]; ok {
		t.Fatalf("room survived last leave: %+v", status)
	}
}

func TestPingPongOverWebsocket(t *testing.T) {
	_, wsURL := startServer(t)
	a, _ := dialClient(t, wsURL)

	sendMsg(t, a, map[string]any{"type": "ping"})
	if msg := readMsg(t, a); msg["type"] != "pong" {
		t.Fatalf("got %v, want pong", msg)
	}
}
