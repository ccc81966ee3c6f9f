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
	"errors"
	"testing"
)

var (
	runnerA = Player{ID: "r1", Name: "Runner A"}
	runnerB = Player{ID: "r2", Name: "Runner B"}
	runnerC = Player{ID: "r3", Name: "Runner C"}
	hitter  = Player{ID: "b", Name: "Hitter"}
)

func loaded() Bases {
	return Bases{}.With(First, runnerA).With(Second, runnerB).With(Third, runnerC)
}

func TestBasesGrandSlam(t *testing.T) {
	bs := loaded()
	res, err := bs.Apply(&hitter, everyoneScores(bs))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Runs != 4 {
		t.Errorf("Runs = %d, want 4", res.Runs)
	}
	if res.Bases != (Bases{}) || res.Bases.Count() != 0 {
		t.Errorf("bases not empty after grand slam: %+v", res.Bases)
	}
	if res.Outs != 0 {
		t.Errorf("Outs = %d, want 0", res.Outs)
	}
	// Lead runner first, batter last.
	want := []string{"r3", "r2", "r1", "b"}
	if len(res.Scored) != len(want) {
		t.Fatalf("Scored = %v, want %v", res.Scored, want)
	}
	for i, id := range want {
		if res.Scored[i].ID != id {
			t.Errorf("Scored[%d] = %s, want %s", i, res.Scored[i].ID, id)
		}
	}
}

func TestBasesApplyValid(t *testing.T) {
	onFirstAndSecond := Bases{}.With(First, runnerA).With(Second, runnerB)

	tests := []struct {
		name      string
		bases     Bases
		proposal  Proposal
		wantRuns  int
		wantOuts  int
		wantBases Bases
	}{
		{
			name:      "Batter to first, runners hold",
			bases:     Bases{}.With(Third, runnerC),
			proposal:  Proposal{Batter: AdvanceTo(First)},
			wantBases: Bases{}.With(First, hitter).With(Third, runnerC),
		},
		{
			name:  "Trailing runner passes a leader who is out",
			bases: onFirstAndSecond,
			proposal: Proposal{Batter: AdvanceTo(First), Runners: map[Base]Destination{
				First:  AdvanceTo(Third),
				Second: Out(),
			}},
			wantOuts:  1,
			wantBases: Bases{}.With(First, hitter).With(Third, runnerA),
		},
		{
			name:  "Trailing runner follows a leader home",
			bases: onFirstAndSecond,
			proposal: Proposal{Batter: AdvanceTo(Second), Runners: map[Base]Destination{
				First:  ScoreRun(),
				Second: ScoreRun(),
			}},
			wantRuns:  2,
			wantBases: Bases{}.With(Second, hitter),
		},
		{
			name:     "Batter and runner out",
			bases:    Bases{}.With(First, runnerA),
			proposal: Proposal{Batter: Out(), Runners: map[Base]Destination{First: Out()}},
			wantOuts: 2,
		},
		{
			name:  "Explicit stay",
			bases: Bases{}.With(Second, runnerB),
			proposal: Proposal{Batter: AdvanceTo(First), Runners: map[Base]Destination{
				Second: Stay(),
			}},
			wantBases: Bases{}.With(First, hitter).With(Second, runnerB),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.bases.Apply(&hitter, tt.proposal)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if res.Runs != tt.wantRuns || res.Outs != tt.wantOuts {
				t.Errorf("runs/outs = %d/%d, want %d/%d", res.Runs, res.Outs, tt.wantRuns, tt.wantOuts)
			}
			if res.Bases != tt.wantBases {
				t.Errorf("Bases = %+v, want %+v", res.Bases, tt.wantBases)
			}
		})
	}
}

func TestBasesApplyRejects(t *testing.T) {
	onFirstAndSecond := Bases{}.With(First, runnerA).With(Second, runnerB)

	tests := []struct {
		name     string
		bases    Bases
		proposal Proposal
	}{
		{
			name:     "Batter stays at the plate",
			proposal: Proposal{Batter: Stay()},
		},
		{
			name:     "Destination for an empty base",
			bases:    Bases{}.With(First, runnerA),
			proposal: Proposal{Batter: AdvanceTo(First), Runners: map[Base]Destination{Second: AdvanceTo(Third)}},
		},
		{
			name:     "Unknown base",
			bases:    Bases{}.With(First, runnerA),
			proposal: Proposal{Batter: AdvanceTo(First), Runners: map[Base]Destination{Base(4): ScoreRun()}},
		},
		{
			name:     "Runner moves backward",
			bases:    Bases{}.With(Second, runnerB),
			proposal: Proposal{Batter: AdvanceTo(Third), Runners: map[Base]Destination{Second: AdvanceTo(First)}},
		},
		{
			name:     "Two runners end on the same base",
			bases:    onFirstAndSecond,
			proposal: Proposal{Batter: AdvanceTo(First), Runners: map[Base]Destination{First: AdvanceTo(Second)}},
		},
		{
			name:     "Trailing runner passes a stationary leader",
			bases:    onFirstAndSecond,
			proposal: Proposal{Batter: AdvanceTo(First), Runners: map[Base]Destination{First: AdvanceTo(Third)}},
		},
		{
			name:  "Trailing runner scores ahead of a leader left on base",
			bases: Bases{}.With(Second, runnerB).With(Third, runnerC),
			proposal: Proposal{Batter: AdvanceTo(First), Runners: map[Base]Destination{
				Second: ScoreRun(),
			}},
		},
		{
			name:     "Batter passes a runner",
			bases:    Bases{}.With(First, runnerA),
			proposal: Proposal{Batter: AdvanceTo(Second)},
		},
		{
			name:     "Unknown move",
			bases:    Bases{}.With(First, runnerA),
			proposal: Proposal{Batter: AdvanceTo(Second), Runners: map[Base]Destination{First: {Move: "teleport"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.bases.Apply(&hitter, tt.proposal)
			if !errors.Is(err, ErrInvalidAdvancement) {
				t.Errorf("Apply err = %v, want %v", err, ErrInvalidAdvancement)
			}
		})
	}
}

func TestProposalOverlay(t *testing.T) {
	auto := Proposal{Batter: AdvanceTo(First), Runners: map[Base]Destination{
		First:  AdvanceTo(Second),
		Second: AdvanceTo(Third),
	}}
	out := Out()
	got := auto.Overlay(&Advancement{Batter: &out, Runners: map[Base]Destination{First: Out()}})
	if got.Batter != Out() {
		t.Errorf("Batter = %+v, want out", got.Batter)
	}
	if got.Runners[First] != Out() {
		t.Errorf("First = %+v, want out", got.Runners[First])
	}
	if got.Runners[Second] != AdvanceTo(Third) {
		t.Errorf("Second = %+v, want automatic advance kept", got.Runners[Second])
	}
	if auto.Runners[First] != AdvanceTo(Second) {
		t.Error("Overlay modified the automatic proposal")
	}
}
