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

// BattingLine is one player's row in the box score.
type BattingLine struct {
	Player   Player `json:"player"`
	Order    int    `json:"order"`
	Position string `json:"position"`

	PA  int `json:"pa"`
	AB  int `json:"ab"`
	H   int `json:"h"`
	R   int `json:"r"`
	RBI int `json:"rbi"`
	BB  int `json:"bb"`
	HBP int `json:"hbp"`
	K   int `json:"k"`
	HR  int `json:"hr"`
	SB  int `json:"sb"`
}

// BoxScore holds batting lines for both teams in lineup order.
type BoxScore struct {
	Away []BattingLine `json:"away"`
	Home []BattingLine `json:"home"`
}

func newBoxScore(lineups [2]Lineup) BoxScore {
	lines := func(l Lineup) []BattingLine {
		out := make([]BattingLine, 0, len(l.Slots))
		for _, s := range l.Slots {
			out = append(out, BattingLine{Player: s.Player, Order: s.Order, Position: s.Position})
		}
		return out
	}
	return BoxScore{Away: lines(lineups[Away]), Home: lines(lineups[Home])}
}

func (b BoxScore) clone() BoxScore {
	return BoxScore{Away: slices.Clone(b.Away), Home: slices.Clone(b.Home)}
}

// Side returns the batting lines of one team.
func (b BoxScore) Side(side Side) []BattingLine {
	if side == Home {
		return b.Home
	}
	return b.Away
}

func (b *BoxScore) line(side Side, playerID string) *BattingLine {
	lines := b.Away
	if side == Home {
		lines = b.Home
	}
	for i := range lines {
		if lines[i].Player.ID == playerID {
			return &lines[i]
		}
	}
	return nil
}

// recordAtBat credits the batter and any runner who scored.
func (b *BoxScore) recordAtBat(side Side, outcome Outcome, res Result) {
	b.recordRuns(side, res.Scored)
	if res.Batter == nil {
		return
	}
	line := b.line(side, res.Batter.ID)
	if line == nil {
		return
	}
	line.PA++
	if outcome.IsAtBat {
		line.AB++
	}
	if outcome.IsHit {
		line.H++
	}
	if !outcome.NoRBI {
		line.RBI += res.Runs
	}
	switch outcome.Kind {
	case Walk, IntentionalWalk:
		line.BB++
	case HitByPitch:
		line.HBP++
	case Strikeout:
		line.K++
	case HomeRun:
		line.HR++
	}
}

// recordRunnerPlay credits runs and, for steals, every runner who moved up.
func (b *BoxScore) recordRunnerPlay(side Side, kind RunnerPlayKind, res Result) {
	b.recordRuns(side, res.Scored)
	if kind != StolenBase {
		return
	}
	for _, r := range res.Reached {
		if r.From == int(r.To) {
			continue
		}
		if line := b.line(side, r.Player.ID); line != nil {
			line.SB++
		}
	}
	for _, p := range res.Scored {
		if line := b.line(side, p.ID); line != nil {
			line.SB++
		}
	}
}

func (b *BoxScore) recordRuns(side Side, scored []Player) {
	for _, p := range scored {
		if line := b.line(side, p.ID); line != nil {
			line.R++
		}
	}
}
