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

import "fmt"

// OutsPerHalf ends a half-inning.
const OutsPerHalf = 3

// Cursor points at the next batter in a lineup of Size slots.
type Cursor struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// NewCursor binds a cursor to a lineup of size slots, starting at the top.
func NewCursor(size int) Cursor {
	return Cursor{Size: size}
}

// Current returns the 0-based slot due to bat.
func (c Cursor) Current() int {
	return c.Index
}

// Advance moves to the next slot, wrapping after the last one.
func (c *Cursor) Advance() int {
	if c.Size > 0 {
		c.Index = (c.Index + 1) % c.Size
	}
	return c.Index
}

// Half is the top or bottom of an inning.
type Half string

const (
	Top    Half = "top"
	Bottom Half = "bottom"
)

// Batting returns the side at the plate during h.
func (h Half) Batting() Side {
	if h == Bottom {
		return Home
	}
	return Away
}

// Fielding returns the side in the field during h.
func (h Half) Fielding() Side {
	if h == Bottom {
		return Away
	}
	return Home
}

// HalfEntry is one committed half-inning in the score ledger.
type HalfEntry struct {
	Inning int  `json:"inning"`
	Half   Half `json:"half"`
	Runs   int  `json:"runs"`
}

// InningState tracks progress through the current half-inning.
type InningState struct {
	Inning int  `json:"inning"`
	Half   Half `json:"half"`
	Outs   int  `json:"outs"`
	Runs   int  `json:"runs"`

	// Started is set once a play has been recorded in this half.
	Started bool `json:"started,omitempty"`
}

// NewInningState returns the state at first pitch: top of the 1st, no outs.
func NewInningState() InningState {
	return InningState{Inning: 1, Half: Top}
}

func (s InningState) String() string {
	return fmt.Sprintf("%s %d", halfLabel(s.Half), s.Inning)
}

// Record adds outs and runs from one play. When the third out is reached
// the half is closed: the returned entry must be appended to the ledger and
// the caller must clear the bases.
func (s *InningState) Record(outs, runs int) (HalfEntry, bool) {
	s.Started = true
	s.Runs += runs
	s.Outs += outs
	if s.Outs < OutsPerHalf {
		return HalfEntry{}, false
	}
	entry := s.Pending()
	if s.Half == Top {
		s.Half = Bottom
	} else {
		s.Half = Top
		s.Inning++
	}
	s.Outs = 0
	s.Runs = 0
	s.Started = false
	return entry, true
}

// Pending returns the ledger entry for the half in progress.
func (s InningState) Pending() HalfEntry {
	return HalfEntry{Inning: s.Inning, Half: s.Half, Runs: s.Runs}
}

// Ledger is the append-only list of completed half-innings.
type Ledger []HalfEntry

// Total returns the runs side scored across the ledger.
func (l Ledger) Total(side Side) int {
	n := 0
	for _, e := range l {
		if e.Half.Batting() == side {
			n += e.Runs
		}
	}
	return n
}

// InningLine is one column of a line score.
type InningLine struct {
	Inning int `json:"inning"`
	Away   int `json:"away"`
	Home   int `json:"home"`

	// HomeBatted is false until the home half of the inning has started.
	HomeBatted bool `json:"homeBatted"`
}

// Line folds the ledger, plus the pending half if any, into a line score.
func (l Ledger) Line(pending *HalfEntry) []InningLine {
	entries := l
	if pending != nil {
		entries = append(entries[:len(entries):len(entries)], *pending)
	}
	var out []InningLine
	for _, e := range entries {
		if len(out) == 0 || out[len(out)-1].Inning != e.Inning {
			out = append(out, InningLine{Inning: e.Inning})
		}
		line := &out[len(out)-1]
		if e.Half == Top {
			line.Away += e.Runs
		} else {
			line.Home += e.Runs
			line.HomeBatted = true
		}
	}
	return out
}

func halfLabel(h Half) string {
	if h == Bottom {
		return "Bottom"
	}
	return "Top"
}
