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

// OutcomeKind is the recorded result of an at-bat.
type OutcomeKind string

const (
	Single          OutcomeKind = "single"
	Double          OutcomeKind = "double"
	Triple          OutcomeKind = "triple"
	HomeRun         OutcomeKind = "home_run"
	Walk            OutcomeKind = "walk"
	IntentionalWalk OutcomeKind = "intentional_walk"
	HitByPitch      OutcomeKind = "hit_by_pitch"
	SacrificeFly    OutcomeKind = "sacrifice_fly"
	ReachedOnError  OutcomeKind = "error"
	FieldersChoice  OutcomeKind = "fielders_choice"
	Strikeout       OutcomeKind = "strikeout"
	GroundOut       OutcomeKind = "ground_out"
	AirOut          OutcomeKind = "air_out"
	DoublePlay      OutcomeKind = "double_play"
)

// OutcomeKinds lists every outcome in the catalog.
var OutcomeKinds = []OutcomeKind{
	Single, Double, Triple, HomeRun,
	Walk, IntentionalWalk, HitByPitch,
	SacrificeFly, ReachedOnError, FieldersChoice,
	Strikeout, GroundOut, AirOut, DoublePlay,
}

// AdvancementRule proposes where everyone goes when the operator does not
// say otherwise.
type AdvancementRule func(Bases) Proposal

// Outcome is the catalog entry for an OutcomeKind.
type Outcome struct {
	Kind OutcomeKind

	// IsOut is set when the batter is retired by default.
	IsOut bool

	// OutsProduced is catalog metadata: the outs the automatic rule records
	// with a runner on first. The resolver counts outs from the resolved
	// destinations, so the real count depends on the bases.
	OutsProduced int

	IsHit   bool
	IsAtBat bool // counts as an official at-bat
	NoRBI   bool // runs scoring on the play are not credited to the batter
	Auto    AdvancementRule
	Verb    string
	MinOuts int // outs the play must record after overrides
}

// Lookup returns the catalog entry for kind.
func Lookup(kind OutcomeKind) (Outcome, bool) {
	switch kind {
	case Single:
		return Outcome{Kind: kind, IsHit: true, IsAtBat: true, Auto: advanceAll(First), Verb: "singles"}, true
	case Double:
		return Outcome{Kind: kind, IsHit: true, IsAtBat: true, Auto: advanceAll(Second), Verb: "doubles"}, true
	case Triple:
		return Outcome{Kind: kind, IsHit: true, IsAtBat: true, Auto: advanceAll(Third), Verb: "triples"}, true
	case HomeRun:
		return Outcome{Kind: kind, IsHit: true, IsAtBat: true, Auto: everyoneScores, Verb: "homers"}, true
	case Walk:
		return Outcome{Kind: kind, Auto: forceAdvance, Verb: "walks"}, true
	case IntentionalWalk:
		return Outcome{Kind: kind, Auto: forceAdvance, Verb: "is intentionally walked"}, true
	case HitByPitch:
		return Outcome{Kind: kind, Auto: forceAdvance, Verb: "is hit by a pitch"}, true
	case SacrificeFly:
		return Outcome{Kind: kind, IsOut: true, OutsProduced: 1, Auto: sacrificeFly, Verb: "hits a sacrifice fly"}, true
	case ReachedOnError:
		return Outcome{Kind: kind, IsAtBat: true, NoRBI: true, Auto: forceAdvance, Verb: "reaches on an error"}, true
	case FieldersChoice:
		return Outcome{Kind: kind, IsAtBat: true, OutsProduced: 1, Auto: fieldersChoice, Verb: "reaches on a fielder's choice"}, true
	case Strikeout:
		return Outcome{Kind: kind, IsOut: true, OutsProduced: 1, IsAtBat: true, Auto: batterOut, Verb: "strikes out"}, true
	case GroundOut:
		return Outcome{Kind: kind, IsOut: true, OutsProduced: 1, IsAtBat: true, Auto: batterOut, Verb: "grounds out"}, true
	case AirOut:
		return Outcome{Kind: kind, IsOut: true, OutsProduced: 1, IsAtBat: true, Auto: batterOut, Verb: "flies out"}, true
	case DoublePlay:
		return Outcome{Kind: kind, IsOut: true, OutsProduced: 2, IsAtBat: true, NoRBI: true, Auto: doublePlay, Verb: "grounds into a double play", MinOuts: 2}, true
	}
	return Outcome{}, false
}

// advanceAll puts the batter on to and moves every runner the same number
// of bases.
func advanceAll(to Base) AdvancementRule {
	return func(bs Bases) Proposal {
		p := Proposal{Batter: AdvanceTo(to), Runners: make(map[Base]Destination)}
		for _, b := range bs.Runners() {
			if n := b + to; n > Third {
				p.Runners[b] = ScoreRun()
			} else {
				p.Runners[b] = AdvanceTo(n)
			}
		}
		return p
	}
}

func everyoneScores(bs Bases) Proposal {
	p := Proposal{Batter: ScoreRun(), Runners: make(map[Base]Destination)}
	for _, b := range bs.Runners() {
		p.Runners[b] = ScoreRun()
	}
	return p
}

// forceAdvance puts the batter on first and moves only runners with no
// open base behind them.
func forceAdvance(bs Bases) Proposal {
	p := Proposal{Batter: AdvanceTo(First), Runners: make(map[Base]Destination)}
	for _, b := range []Base{First, Second, Third} {
		if !bs.Occupied(b) {
			break
		}
		if b == Third {
			p.Runners[b] = ScoreRun()
		} else {
			p.Runners[b] = AdvanceTo(b + 1)
		}
	}
	return p
}

func sacrificeFly(bs Bases) Proposal {
	p := Proposal{Batter: Out(), Runners: make(map[Base]Destination)}
	if bs.Occupied(Third) {
		p.Runners[Third] = ScoreRun()
	}
	return p
}

func batterOut(Bases) Proposal {
	return Proposal{Batter: Out(), Runners: make(map[Base]Destination)}
}

// fieldersChoice retires the runner forced off first, if any.
func fieldersChoice(bs Bases) Proposal {
	p := Proposal{Batter: AdvanceTo(First), Runners: make(map[Base]Destination)}
	if bs.Occupied(First) {
		p.Runners[First] = Out()
	}
	return p
}

// doublePlay retires the batter and the trailing runner.
func doublePlay(bs Bases) Proposal {
	p := Proposal{Batter: Out(), Runners: make(map[Base]Destination)}
	if runners := bs.Runners(); len(runners) > 0 {
		p.Runners[runners[0]] = Out()
	}
	return p
}
