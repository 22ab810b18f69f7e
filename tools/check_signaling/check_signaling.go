// Command check_signaling runs a scripted two-client exchange against a live
// signaling relay: connect, join the same room, trade an offer/answer and a
// candidate, then leave. Useful as a smoke check after deploying either
// server variant.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

const checkRoom = "flow-check"

type client struct {
	name string
	ws   *websocket.Conn
	id   string
}

func dial(url, name string) (*client, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}
	c := &client{name: name, ws: ws}
	msg, err := c.expect("connected")
	if err != nil {
		return nil, err
	}
	c.id, _ = msg["user_id"].(string)
	return c, nil
}

func (c *client) send(v any) error {
	return c.ws.WriteJSON(v)
}

// expect reads until a message of the wanted type arrives or times out.
func (c *client) expect(msgType string) (map[string]any, error) {
	deadline := time.Now().Add(5 * time.Second)
	_ = c.ws.SetReadDeadline(deadline)
	for {
		var msg map[string]any
		if err := c.ws.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("%s waiting for %q: %w", c.name, msgType, err)
		}
		if msg["type"] == msgType {
			return msg, nil
		}
	}
}

func run(url string) error {
	a, err := dial(url, "A")
	if err != nil {
		return err
	}
	defer a.ws.Close()
	fmt.Printf("A connected as %s\n", a.id)

	b, err := dial(url, "B")
	if err != nil {
		return err
	}
	defer b.ws.Close()
	fmt.Printf("B connected as %s\n", b.id)

	if err := a.send(map[string]any{"type": "join_room", "room": checkRoom}); err != nil {
		return err
	}
	if _, err := a.expect("room_joined"); err != nil {
		return err
	}
	if err := b.send(map[string]any{"type": "join_room", "room": checkRoom}); err != nil {
		return err
	}
	joined, err := b.expect("room_joined")
	if err != nil {
		return err
	}
	if users, _ := joined["users"].(float64); users != 2 {
		return fmt.Errorf("expected 2 users in %s, got %v", checkRoom, joined["users"])
	}
	if _, err := a.expect("user_joined"); err != nil {
		return err
	}
	fmt.Println("room join ok")

	offer := map[string]any{"type": "offer", "offer": map[string]any{"sdp": "v=0 check", "type": "offer"}}
	if err := a.send(offer); err != nil {
		return err
	}
	fwd, err := b.expect("offer")
	if err != nil {
		return err
	}
	if fwd["from_user"] != a.id {
		return fmt.Errorf("offer from_user=%v, want %s", fwd["from_user"], a.id)
	}
	if err := b.send(map[string]any{"type": "answer", "answer": map[string]any{"sdp": "v=0 check", "type": "answer"}}); err != nil {
		return err
	}
	if _, err := a.expect("answer"); err != nil {
		return err
	}
	if err := a.send(map[string]any{"type": "ice_candidate", "candidate": map[string]any{"candidate": "candidate:0 1 UDP 1 127.0.0.1 9 typ host"}}); err != nil {
		return err
	}
	if _, err := b.expect("ice_candidate"); err != nil {
		return err
	}
	fmt.Println("offer/answer/candidate relay ok")

	if err := a.send(map[string]any{"type": "leave_room", "room": checkRoom}); err != nil {
		return err
	}
	if _, err := a.expect("room_left"); err != nil {
		return err
	}
	if _, err := b.expect("user_left"); err != nil {
		return err
	}
	fmt.Println("room leave ok")
	return nil
}

func main() {
	url := flag.String("url", "ws://localhost:8765", "websocket URL of the signaling relay")
	flag.Parse()

	if err := run(*url); err != nil {
		out, _ := json.Marshal(map[string]string{"result": "FAIL", "error": err.Error()})
		fmt.Println(string(out))
		os.Exit(1)
	}
	fmt.Println(`{"result":"OK"}`)
}
