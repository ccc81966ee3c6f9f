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

// Package events fans committed plays out over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

// SubjectPrefix is prepended to the game id to form a game's subject.
const SubjectPrefix = "skorekeeper.games."

// Subject returns the subject a game's plays are published on.
func Subject(gameID string) string {
	return SubjectPrefix + gameID
}

// PlayEvent is published after every committed command.
type PlayEvent struct {
	GameID   string       `json:"gameId"`
	Revision int64        `json:"revision"`
	Command  string       `json:"command"`
	UserID   string       `json:"userId,omitempty"`
	Text     string       `json:"text,omitempty"`
	View     scoring.View `json:"view"`
	Time     int64        `json:"time"`
}

// Publisher sends play events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev PlayEvent) error
	Close()
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, PlayEvent) error { return nil }
func (Noop) Close() {}

// NATS publishes events on a NATS connection.
type NATS struct {
	nc *nats.Conn
}

var _ Publisher = (*NATS)(nil)

// Connect returns a NATS publisher for url.
func Connect(url string, opts ...nats.Option) (*NATS, error) {
	opts = append([]nats.Option{nats.Name("skorekeeper-live")}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATS{nc: nc}, nil
}

// Publish sends ev on its game's subject.
func (p *NATS) Publish(ctx context.Context, ev PlayEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(ev.GameID, ".*> \t") || ev.GameID == "" {
		return fmt.Errorf("invalid game id %q", ev.GameID)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.nc.Publish(Subject(ev.GameID), data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

// Subscribe calls fn for each event of a game, or of every game when
// gameID is empty. Malformed messages are skipped.
func (p *NATS) Subscribe(gameID string, fn func(PlayEvent)) (*nats.Subscription, error) {
	subject := SubjectPrefix + "*"
	if gameID != "" {
		subject = Subject(gameID)
	}
	return p.nc.Subscribe(subject, func(msg *nats.Msg) {
		var ev PlayEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		fn(ev)
	})
}

// Flush waits for the server to process everything published so far.
func (p *NATS) Flush() error {
	return p.nc.Flush()
}

// Close closes the NATS connection.
func (p *NATS) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}
