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

import "slices"

// State is everything the resolver reads and writes for one play.
type State struct {
	Inning  InningState `json:"inning"`
	Bases   Bases       `json:"bases"`
	Cursors [2]Cursor   `json:"cursors"`
	Ledger  Ledger      `json:"ledger"`
}

// NewState returns the state at first pitch for lineups of the given sizes.
func NewState(awaySize, homeSize int) State {
	return State{
		Inning:  NewInningState(),
		Cursors: [2]Cursor{NewCursor(awaySize), NewCursor(homeSize)},
	}
}

func (s State) clone() State {
	s.Ledger = slices.Clone(s.Ledger)
	return s
}

// Result describes one resolved play.
type Result struct {
	// Batter is nil for plays made between at-bats.
	Batter *Player `json:"batter,omitempty"`

	Runs      int   `json:"runs"`
	Outs      int   `json:"outs"`
	Bases     Bases `json:"bases"`
	HalfEnded bool  `json:"halfEnded"`

	// NextBatterSlot is the batting team's cursor after the play.
	NextBatterSlot int `json:"nextBatterSlot"`

	Scored  []Player `json:"scored,omitempty"`
	Retired []Player `json:"retired,omitempty"`
	Reached []Reach  `json:"reached,omitempty"`
}

// Resolve records an at-bat against s and returns the next state. s is
// never modified.
func Resolve(s State, lineups [2]Lineup, batterID string, kind OutcomeKind, manual *Advancement) (State, Result, error) {
	outcome, ok := Lookup(kind)
	if !ok {
		return s, Result{}, errorf(CodeInvalidAdvancement, "unknown outcome %q", kind)
	}
	side := s.Inning.Half.Batting()
	expected, ok := currentBatter(s, lineups, side)
	if !ok {
		return s, Result{}, errorf(CodeInvalidGameState, "no lineup bound for %s team", side)
	}
	if batterID == "" {
		return s, Result{}, errorf(CodeBatterMismatch, "no batter given, %s is due up", expected.Label())
	}
	if batterID != expected.ID {
		return s, Result{}, errorf(CodeBatterMismatch, "%s is due up, not %s", expected.Label(), batterID)
	}

	proposal := outcome.Auto(s.Bases).Overlay(manual)
	play, err := s.Bases.Apply(&expected, proposal)
	if err != nil {
		return s, Result{}, err
	}
	if play.Outs < outcome.MinOuts {
		return s, Result{}, errorf(CodeInvalidAdvancement, "%s must record %d outs, got %d", kind, outcome.MinOuts, play.Outs)
	}

	next := s.clone()
	res := finish(&next, play)
	res.Batter = &expected
	res.NextBatterSlot = next.Cursors[side].Advance()
	return next, res, nil
}

// currentBatter returns the player at the batting team's cursor.
func currentBatter(s State, lineups [2]Lineup, side Side) (Player, bool) {
	slots := lineups[side].Slots
	i := s.Cursors[side].Current()
	if i < 0 || i >= len(slots) {
		return Player{}, false
	}
	return slots[i].Player, true
}

// finish folds a validated play into next: outs are capped at the end of
// the half, the inning advances and the ledger is flushed when it ends.
func finish(next *State, play PlayResult) Result {
	outs := min(play.Outs, OutsPerHalf-next.Inning.Outs)
	res := Result{
		Runs:    play.Runs,
		Outs:    outs,
		Scored:  play.Scored,
		Retired: play.Retired,
		Reached: play.Reached,
	}
	entry, ended := next.Inning.Record(outs, play.Runs)
	if ended {
		next.Bases = Bases{}
		next.Ledger = append(next.Ledger, entry)
	} else {
		next.Bases = play.Bases
	}
	res.Bases = next.Bases
	res.HalfEnded = ended
	return res
}

// RunnerPlayKind is an event that moves runners while a batter is at the
// plate.
type RunnerPlayKind string

const (
	StolenBase            RunnerPlayKind = "stolen_base"
	CaughtStealing        RunnerPlayKind = "caught_stealing"
	Pickoff               RunnerPlayKind = "pickoff"
	WildPitch             RunnerPlayKind = "wild_pitch"
	PassedBall            RunnerPlayKind = "passed_ball"
	Balk                  RunnerPlayKind = "balk"
	DefensiveIndifference RunnerPlayKind = "defensive_indifference"
)

// RunnerPlayKinds lists every runner play.
var RunnerPlayKinds = []RunnerPlayKind{
	StolenBase, CaughtStealing, Pickoff, WildPitch, PassedBall, Balk, DefensiveIndifference,
}

type runnerPlay struct {
	// auto is nil when the operator must say which runner moved.
	auto      AdvancementRule
	needsOut  bool
	needsMove bool
	label     string
}

func lookupRunnerPlay(kind RunnerPlayKind) (runnerPlay, bool) {
	switch kind {
	case StolenBase:
		return runnerPlay{needsMove: true, label: "Stolen base"}, true
	case CaughtStealing:
		return runnerPlay{needsOut: true, label: "Caught stealing"}, true
	case Pickoff:
		return runnerPlay{needsOut: true, label: "Pickoff"}, true
	case WildPitch:
		return runnerPlay{needsMove: true, label: "Wild pitch"}, true
	case PassedBall:
		return runnerPlay{needsMove: true, label: "Passed ball"}, true
	case Balk:
		return runnerPlay{auto: advanceAll(First), needsMove: true, label: "Balk"}, true
	case DefensiveIndifference:
		return runnerPlay{needsMove: true, label: "Defensive indifference"}, true
	}
	return runnerPlay{}, false
}

// ResolveRunnerPlay records a play between pitches. The batting cursor does
// not move: the batter at the plate stays up, or leads off next time if the
// play ends the half.
func ResolveRunnerPlay(s State, kind RunnerPlayKind, manual *Advancement) (State, Result, error) {
	rp, ok := lookupRunnerPlay(kind)
	if !ok {
		return s, Result{}, errorf(CodeInvalidAdvancement, "unknown runner play %q", kind)
	}
	if s.Bases.Count() == 0 {
		return s, Result{}, errorf(CodeInvalidAdvancement, "%s with nobody on base", kind)
	}
	if manual != nil && manual.Batter != nil {
		return s, Result{}, errorf(CodeInvalidAdvancement, "%s cannot move the batter", kind)
	}
	if rp.auto == nil && manual.IsZero() {
		return s, Result{}, errorf(CodeInvalidAdvancement, "%s needs the runner movement", kind)
	}

	var base Proposal
	if rp.auto != nil {
		base = rp.auto(s.Bases)
	}
	play, err := s.Bases.Apply(nil, base.Overlay(manual))
	if err != nil {
		return s, Result{}, err
	}
	if rp.needsOut && play.Outs == 0 {
		return s, Result{}, errorf(CodeInvalidAdvancement, "%s must retire a runner", kind)
	}
	if rp.needsMove && !moved(play) {
		return s, Result{}, errorf(CodeInvalidAdvancement, "%s must advance a runner", kind)
	}

	next := s.clone()
	res := finish(&next, play)
	res.NextBatterSlot = next.Cursors[s.Inning.Half.Batting()].Current()
	return next, res, nil
}

func moved(play PlayResult) bool {
	if play.Runs > 0 {
		return true
	}
	for _, r := range play.Reached {
		if r.From != int(r.To) {
			return true
		}
	}
	return false
}
