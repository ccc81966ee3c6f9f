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

package events

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

func startServer(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Port: -1, NoSigs: true, NoLog: true})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server failed to start within timeout")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns.ClientURL()
}

func TestPublishSubscribe(t *testing.T) {
	url := startServer(t)

	pub, err := Connect(url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer pub.Close()
	sub, err := Connect(url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sub.Close()

	got := make(chan PlayEvent, 4)
	s, err := sub.Subscribe("game-1", func(ev PlayEvent) { got <- ev })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer s.Unsubscribe()
	all := make(chan PlayEvent, 4)
	if _, err := sub.Subscribe("", func(ev PlayEvent) { all <- ev }); err != nil {
		t.Fatalf("Subscribe all: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	ctx := context.Background()
	want := PlayEvent{
		GameID:   "game-1",
		Revision: 3,
		Command:  "at-bat",
		Text:     "Top 1: Ada singles.",
		View:     scoring.View{GameID: "game-1", Revision: 3, Status: scoring.StatusInProgress, Score: scoring.Score{Away: 1}},
		Time:     42,
	}
	if err := pub.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Publish(ctx, PlayEvent{GameID: "game-2", Revision: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	select {
	case ev := <-got:
		if ev.GameID != want.GameID || ev.Revision != want.Revision || ev.Text != want.Text || ev.View.Score != want.View.Score {
			t.Errorf("event = %+v, want %+v", ev, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event for game-1")
	}
	select {
	case ev := <-got:
		t.Errorf("unexpected event %+v on game-1 subscription", ev)
	case <-time.After(100 * time.Millisecond):
	}

	seen := map[string]bool{}
	for range 2 {
		select {
		case ev := <-all:
			seen[ev.GameID] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("wildcard subscription saw %v", seen)
		}
	}
	if !seen["game-1"] || !seen["game-2"] {
		t.Errorf("wildcard subscription saw %v", seen)
	}
}

func TestPublishRejectsWildcardIDs(t *testing.T) {
	pub, err := Connect(startServer(t))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer pub.Close()
	for _, id := range []string{"", "a.b", "*", ">"} {
		if err := pub.Publish(context.Background(), PlayEvent{GameID: id}); err == nil {
			t.Errorf("Publish(%q) succeeded", id)
		}
	}
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	if err := p.Publish(context.Background(), PlayEvent{GameID: "x"}); err != nil {
		t.Errorf("Noop.Publish: %v", err)
	}
	p.Close()
}
