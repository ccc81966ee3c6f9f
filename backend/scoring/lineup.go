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

package scoring

import (
	"slices"
	"strings"
)

// MinLineupSize is the number of fielders a team must field.
const MinLineupSize = 9

// Side identifies a team within a game.
type Side int

const (
	Away Side = iota
	Home
)

func (s Side) String() string {
	if s == Home {
		return "home"
	}
	return "away"
}

// Player is a reference to a rostered player. The roster owns the record;
// the engine only carries it around.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Number string `json:"number,omitempty"`
}

// Label returns the name used in the play-by-play.
func (p Player) Label() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Number != "" {
		return "#" + p.Number
	}
	return p.ID
}

// Slot is one position in the batting order.
type Slot struct {
	Order    int    `json:"order"`
	Player   Player `json:"player"`
	Position string `json:"position"`
}

// Lineup is a team's starting batting order.
type Lineup struct {
	Team  string `json:"team,omitempty"`
	Slots []Slot `json:"slots"`

	// RosterSize bounds the lineup length when known. Zero means unknown.
	RosterSize int `json:"rosterSize,omitempty"`
}

// Extra hitters bat without taking a defensive position, so they may repeat.
var extraHitterPositions = map[string]bool{
	"EH": true,
	"DH": true,
}

// Validate checks the lineup can be bound to a batting order cursor.
func (l Lineup) Validate() error {
	if len(l.Slots) < MinLineupSize {
		return errorf(CodeLineupInvalid, "lineup has %d slots, need at least %d", len(l.Slots), MinLineupSize)
	}
	if l.RosterSize > 0 && len(l.Slots) > l.RosterSize {
		return errorf(CodeLineupInvalid, "lineup has %d slots but roster only has %d players", len(l.Slots), l.RosterSize)
	}
	orders := make(map[int]bool)
	players := make(map[string]bool)
	positions := make(map[string]bool)
	for _, s := range l.Slots {
		if s.Order < 1 {
			return errorf(CodeLineupInvalid, "invalid batting order position %d", s.Order)
		}
		if orders[s.Order] {
			return errorf(CodeLineupInvalid, "duplicate batting order position %d", s.Order)
		}
		orders[s.Order] = true

		if s.Player.ID == "" {
			return errorf(CodeLineupInvalid, "slot %d has no player", s.Order)
		}
		if players[s.Player.ID] {
			return errorf(CodeLineupInvalid, "player %s appears twice", s.Player.Label())
		}
		players[s.Player.ID] = true

		pos := strings.ToUpper(strings.TrimSpace(s.Position))
		if pos == "" {
			return errorf(CodeLineupInvalid, "slot %d has no fielding position", s.Order)
		}
		if extraHitterPositions[pos] {
			continue
		}
		if positions[pos] {
			return errorf(CodeLineupInvalid, "duplicate fielding position %s", pos)
		}
		positions[pos] = true
	}
	return nil
}

// normalized returns a copy sorted by batting order.
func (l Lineup) normalized() Lineup {
	out := l
	out.Slots = slices.Clone(l.Slots)
	slices.SortFunc(out.Slots, func(a, b Slot) int { return a.Order - b.Order })
	for i := range out.Slots {
		out.Slots[i].Position = strings.ToUpper(strings.TrimSpace(out.Slots[i].Position))
	}
	return out
}

// find returns the slot holding the player.
func (l Lineup) find(playerID string) (Slot, bool) {
	for _, s := range l.Slots {
		if s.Player.ID == playerID {
			return s, true
		}
	}
	return Slot{}, false
}
