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

import "maps"

// Base is a bag a runner can occupy.
type Base int

const (
	First  Base = 1
	Second Base = 2
	Third  Base = 3
)

// Positions along the base path. The batter starts at homePlate and a run
// is scored at scored.
const (
	homePlate = 0
	scored    = 4
)

func (b Base) valid() bool {
	return b >= First && b <= Third
}

func (b Base) String() string {
	switch b {
	case First:
		return "1st"
	case Second:
		return "2nd"
	case Third:
		return "3rd"
	}
	return "?"
}

// Bases records who occupies first, second and third. The zero value is
// empty bases. A slot whose player has no ID is empty.
type Bases [3]Player

// At returns the runner on b.
func (bs Bases) At(b Base) (Player, bool) {
	if !b.valid() || bs[b-1].ID == "" {
		return Player{}, false
	}
	return bs[b-1], true
}

// Occupied reports whether b has a runner.
func (bs Bases) Occupied(b Base) bool {
	_, ok := bs.At(b)
	return ok
}

// With returns a copy with p placed on b.
func (bs Bases) With(b Base, p Player) Bases {
	bs[b-1] = p
	return bs
}

// Runners returns the occupied bases, lead runner last.
func (bs Bases) Runners() []Base {
	var out []Base
	for _, b := range []Base{First, Second, Third} {
		if bs.Occupied(b) {
			out = append(out, b)
		}
	}
	return out
}

// Count returns the number of runners on base.
func (bs Bases) Count() int {
	return len(bs.Runners())
}

// MoveKind is what happens to a runner during a play.
type MoveKind string

const (
	MoveStay    MoveKind = "stay"
	MoveAdvance MoveKind = "advance"
	MoveScore   MoveKind = "score"
	MoveOut     MoveKind = "out"
)

// Destination is where a runner (or the batter) ends up after a play.
type Destination struct {
	Move MoveKind `json:"move"`
	To   Base     `json:"to,omitempty"`
}

// Stay keeps a runner on the base they occupy.
func Stay() Destination { return Destination{Move: MoveStay} }

// AdvanceTo moves a runner to b.
func AdvanceTo(b Base) Destination { return Destination{Move: MoveAdvance, To: b} }

// ScoreRun sends a runner home.
func ScoreRun() Destination { return Destination{Move: MoveScore} }

// Out retires a runner.
func Out() Destination { return Destination{Move: MoveOut} }

// Proposal assigns a destination to the batter and to each runner, keyed by
// the base the runner starts on.
type Proposal struct {
	Batter  Destination
	Runners map[Base]Destination
}

// Advancement is a partial, operator-supplied proposal. Any runner it
// names overrides the automatic rule; the rest keep the automatic value.
type Advancement struct {
	Batter  *Destination         `json:"batter,omitempty"`
	Runners map[Base]Destination `json:"runners,omitempty"`
}

// IsZero reports whether the advancement overrides nothing.
func (a *Advancement) IsZero() bool {
	return a == nil || (a.Batter == nil && len(a.Runners) == 0)
}

func (a *Advancement) clone() *Advancement {
	if a == nil {
		return nil
	}
	out := &Advancement{Runners: maps.Clone(a.Runners)}
	if a.Batter != nil {
		b := *a.Batter
		out.Batter = &b
	}
	return out
}

// Overlay returns p with every choice in a applied on top.
func (p Proposal) Overlay(a *Advancement) Proposal {
	out := Proposal{Batter: p.Batter, Runners: maps.Clone(p.Runners)}
	if out.Runners == nil {
		out.Runners = make(map[Base]Destination)
	}
	if a == nil {
		return out
	}
	if a.Batter != nil {
		out.Batter = *a.Batter
	}
	for b, d := range a.Runners {
		out.Runners[b] = d
	}
	return out
}

// PlayResult is the effect of applying a proposal to the bases.
type PlayResult struct {
	Bases Bases
	Runs  int
	Outs  int

	// Scored and Retired list runners (and the batter) lead runner first.
	Scored  []Player
	Retired []Player
	Reached []Reach
}

// Reach records where a runner that stayed on the bases ended up.
type Reach struct {
	Player Player
	From   int
	To     Base
}

type mover struct {
	player Player
	from   int
	dest   Destination
	to     int
}

// Apply validates p against the bases and returns the resulting state.
// batter is nil for plays between at-bats.
func (bs Bases) Apply(batter *Player, p Proposal) (PlayResult, error) {
	for b := range p.Runners {
		if !b.valid() {
			return PlayResult{}, errorf(CodeInvalidAdvancement, "unknown base %d", int(b))
		}
		if !bs.Occupied(b) {
			return PlayResult{}, errorf(CodeInvalidAdvancement, "no runner on %s", b)
		}
	}

	var movers []mover
	if batter != nil {
		movers = append(movers, mover{player: *batter, from: homePlate, dest: p.Batter})
	}
	for _, b := range bs.Runners() {
		d, ok := p.Runners[b]
		if !ok {
			d = Stay()
		}
		runner, _ := bs.At(b)
		movers = append(movers, mover{player: runner, from: int(b), dest: d})
	}

	var live []mover
	var res PlayResult
	for i := range movers {
		m := &movers[i]
		switch m.dest.Move {
		case MoveStay, "":
			if m.from == homePlate {
				return PlayResult{}, errorf(CodeInvalidAdvancement, "batter %s must reach base, score or be out", m.player.Label())
			}
			m.to = m.from
		case MoveAdvance:
			if !m.dest.To.valid() {
				return PlayResult{}, errorf(CodeInvalidAdvancement, "unknown base %d for %s", int(m.dest.To), m.player.Label())
			}
			if int(m.dest.To) < m.from {
				return PlayResult{}, errorf(CodeInvalidAdvancement, "%s cannot move back to %s", m.player.Label(), m.dest.To)
			}
			m.to = int(m.dest.To)
		case MoveScore:
			m.to = scored
		case MoveOut:
			res.Outs++
			continue
		default:
			return PlayResult{}, errorf(CodeInvalidAdvancement, "unknown move %q for %s", m.dest.Move, m.player.Label())
		}
		live = append(live, *m)
	}

	// live is ordered trailing runner first. A trailing runner must finish
	// strictly behind every runner ahead of it that is still on the bases.
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			if live[j].to == scored {
				continue
			}
			if live[i].to >= live[j].to {
				if live[i].to == live[j].to {
					return PlayResult{}, errorf(CodeInvalidAdvancement, "%s and %s both end on %s", live[i].player.Label(), live[j].player.Label(), Base(live[j].to))
				}
				return PlayResult{}, errorf(CodeInvalidAdvancement, "%s cannot pass %s", live[i].player.Label(), live[j].player.Label())
			}
		}
	}

	for i := len(movers) - 1; i >= 0; i-- {
		m := movers[i]
		if m.dest.Move == MoveOut {
			res.Retired = append(res.Retired, m.player)
		}
	}
	for i := len(live) - 1; i >= 0; i-- {
		m := live[i]
		if m.to == scored {
			res.Runs++
			res.Scored = append(res.Scored, m.player)
			continue
		}
		res.Bases = res.Bases.With(Base(m.to), m.player)
		res.Reached = append(res.Reached, Reach{Player: m.player, From: m.from, To: Base(m.to)})
	}
	return res, nil
}
