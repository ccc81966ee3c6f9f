// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

func (c apiClient) dial(user, gameId string) *websocket.Conn {
	c.t.Helper()
	u := "ws" + strings.TrimPrefix(c.server.URL, "http") + "/api/ws?gameId=" + gameId
	header := http.Header{}
	if user != "" {
		header.Set("Cookie", "mock_auth_user="+user)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		c.t.Fatalf("Dial: %v", err)
	}
	resp.Body.Close()
	c.t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func writeMessage(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func TestWebSocketLiveView(t *testing.T) {
	c := newTestServer(t, Options{})
	id := c.createGame(newGameRequest())
	base := "/api/games/" + id
	started := c.view("POST", base+"/start", ownerUser, nil)

	owner := c.dial(ownerUser, id)
	writeMessage(t, owner, Message{Type: MsgTypeJoin, GameId: id})
	msg := readMessage(t, owner)
	if msg.Type != MsgTypeView || msg.View == nil || msg.View.Revision != started.Revision {
		t.Fatalf("JOIN reply = %+v, want VIEW at revision %d", msg, started.Revision)
	}
	if msg.View.Batter == nil || msg.View.Batter.Player.ID != "a1" {
		t.Errorf("batter = %+v, want a1", msg.View.Batter)
	}

	current := c.dial(ownerUser, id)
	writeMessage(t, current, Message{Type: MsgTypeJoin, GameId: id, LastRevision: started.Revision})
	if msg := readMessage(t, current); msg.Type != MsgTypeAck {
		t.Fatalf("JOIN with current revision = %+v, want ACK", msg)
	}

	stranger := c.dial(otherUser, id)
	writeMessage(t, stranger, Message{Type: MsgTypeJoin, GameId: id})
	if msg := readMessage(t, stranger); msg.Type != MsgTypeError {
		t.Fatalf("stranger JOIN = %+v, want ERROR", msg)
	}

	v := c.view("POST", base+"/at-bat", ownerUser, CommandRequest{BatterID: "a1", Outcome: scoring.Double})
	for name, conn := range map[string]*websocket.Conn{"owner": owner, "current": current} {
		msg := readMessage(t, conn)
		if msg.Type != MsgTypeView || msg.View == nil || msg.View.Revision != v.Revision {
			t.Fatalf("%s broadcast = %+v, want VIEW at revision %d", name, msg, v.Revision)
		}
		if msg.View.Bases[1] == nil || msg.View.Bases[1].ID != "a1" {
			t.Errorf("%s bases = %+v, want a1 on second", name, msg.View.Bases)
		}
	}

	// The stranger never joined, so the next thing it sees is its own PONG.
	writeMessage(t, stranger, Message{Type: MsgTypePing})
	if msg := readMessage(t, stranger); msg.Type != MsgTypePong {
		t.Errorf("stranger got %+v, want PONG", msg)
	}

	writeMessage(t, owner, Message{Type: "SHOUT"})
	if msg := readMessage(t, owner); msg.Type != MsgTypeError {
		t.Errorf("unknown type reply = %+v, want ERROR", msg)
	}

	if code, data := c.do("DELETE", base, ownerUser, nil); code != http.StatusNoContent {
		t.Fatalf("DELETE = %d %s", code, data)
	}
	if msg := readMessage(t, current); msg.Type != MsgTypeError || msg.Error != "Game deleted" {
		t.Errorf("after delete = %+v", msg)
	}
}

func TestWebSocketPublicGame(t *testing.T) {
	c := newTestServer(t, Options{})
	req := newGameRequest()
	req.Permissions = Permissions{Public: "read"}
	id := c.createGame(req)

	anon := c.dial("", id)
	writeMessage(t, anon, Message{Type: MsgTypeJoin, GameId: id})
	msg := readMessage(t, anon)
	if msg.Type != MsgTypeView || msg.View.Status != scoring.StatusSetup {
		t.Fatalf("anonymous JOIN = %+v, want setup VIEW", msg)
	}

	c.view("POST", "/api/games/"+id+"/start", ownerUser, nil)
	if msg := readMessage(t, anon); msg.Type != MsgTypeView || msg.View.Status != scoring.StatusInProgress {
		t.Errorf("broadcast = %+v, want in_progress VIEW", msg)
	}
}

func TestWebSocketErrors(t *testing.T) {
	c := newTestServer(t, Options{})

	conn := c.dial(ownerUser, makeUUID(77))
	writeMessage(t, conn, Message{Type: MsgTypeJoin, GameId: makeUUID(77)})
	if msg := readMessage(t, conn); msg.Type != MsgTypeError || msg.Error != "Game not found" {
		t.Errorf("JOIN unknown game = %+v", msg)
	}

	u := "ws" + strings.TrimPrefix(c.server.URL, "http") + "/api/ws?gameId=nope"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if !errors.Is(err, websocket.ErrBadHandshake) || resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Dial with bad gameId: err %v, resp %v", err, resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
}

func TestHubBusy(t *testing.T) {
	hm := NewHubManager(HubConfig{})
	id := makeUUID(1)
	// The hub is never started so its queue fills up.
	hub := newHub(id, hm)
	hm.hubs[id] = hub

	for i := range cap(hub.requests) {
		if err := hm.Send(id, HubRequest{Type: ReqTypeHTTPLoad}); err != nil {
			t.Fatalf("Send #%d: %v", i, err)
		}
	}
	if err := hm.Send(id, HubRequest{Type: ReqTypeHTTPLoad}); !errors.Is(err, ErrHubBusy) {
		t.Errorf("Send on full queue = %v, want %v", err, ErrHubBusy)
	}
	if _, err := hm.Do(context.Background(), id, HubRequest{Type: ReqTypeHTTPLoad}); !errors.Is(err, ErrHubBusy) {
		t.Errorf("Do on full queue = %v, want %v", err, ErrHubBusy)
	}

	if hm.removeIdle(hub) {
		t.Fatal("removeIdle removed a hub with queued requests")
	}
	for len(hub.requests) > 0 {
		<-hub.requests
	}
	if !hm.removeIdle(hub) {
		t.Fatal("removeIdle kept an empty hub")
	}
	select {
	case <-hub.done:
	default:
		t.Error("done not closed")
	}
	if n := hm.Len(); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}
