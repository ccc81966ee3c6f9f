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

import "testing"

func TestLookupCatalog(t *testing.T) {
	for _, kind := range OutcomeKinds {
		o, ok := Lookup(kind)
		if !ok {
			t.Errorf("Lookup(%s) not found", kind)
			continue
		}
		if o.Kind != kind || o.Auto == nil || o.Verb == "" {
			t.Errorf("Lookup(%s) incomplete: %+v", kind, o)
		}
		wantOuts := 0
		switch {
		case kind == DoublePlay:
			wantOuts = 2
		case o.IsOut, kind == FieldersChoice:
			wantOuts = 1
		}
		if o.OutsProduced != wantOuts {
			t.Errorf("%s OutsProduced = %d, want %d", kind, o.OutsProduced, wantOuts)
		}
	}
	if _, ok := Lookup("bunt"); ok {
		t.Error("Lookup(bunt) found an entry")
	}
}

func TestOutsProducedMatchesRule(t *testing.T) {
	countOuts := func(p Proposal) int {
		n := 0
		if p.Batter.Move == MoveOut {
			n++
		}
		for _, d := range p.Runners {
			if d.Move == MoveOut {
				n++
			}
		}
		return n
	}
	onFirst := Bases{}.With(First, Player{ID: "r1"})
	for _, kind := range OutcomeKinds {
		o, _ := Lookup(kind)
		if got := countOuts(o.Auto(onFirst)); got != o.OutsProduced {
			t.Errorf("%s with a runner on first records %d outs, catalog says %d", kind, got, o.OutsProduced)
		}
	}

	// With the bases empty a fielder's choice has no runner to retire.
	fc, _ := Lookup(FieldersChoice)
	if got := countOuts(fc.Auto(Bases{})); got != 0 {
		t.Errorf("fielder's choice on empty bases records %d outs, want 0", got)
	}
}

func TestAutomaticAdvancement(t *testing.T) {
	tests := []struct {
		name      string
		kind      OutcomeKind
		bases     Bases
		wantRuns  int
		wantOuts  int
		wantBases Bases
	}{
		{
			name:      "Single empty bases",
			kind:      Single,
			wantBases: Bases{}.With(First, hitter),
		},
		{
			name:      "Single moves every runner one base",
			kind:      Single,
			bases:     loaded(),
			wantRuns:  1,
			wantBases: Bases{}.With(First, hitter).With(Second, runnerA).With(Third, runnerB),
		},
		{
			name:      "Double scores from second",
			kind:      Double,
			bases:     Bases{}.With(First, runnerA).With(Second, runnerB),
			wantRuns:  1,
			wantBases: Bases{}.With(Second, hitter).With(Third, runnerA),
		},
		{
			name:      "Triple clears the bases",
			kind:      Triple,
			bases:     Bases{}.With(First, runnerA),
			wantRuns:  1,
			wantBases: Bases{}.With(Third, hitter),
		},
		{
			name:     "Home run",
			kind:     HomeRun,
			bases:    Bases{}.With(Second, runnerB),
			wantRuns: 2,
		},
		{
			name:      "Walk forces first and second",
			kind:      Walk,
			bases:     Bases{}.With(First, runnerA).With(Second, runnerB),
			wantBases: loaded().With(First, hitter).With(Second, runnerA).With(Third, runnerB),
		},
		{
			name:      "Walk leaves unforced runner on third",
			kind:      Walk,
			bases:     Bases{}.With(Third, runnerC),
			wantBases: Bases{}.With(First, hitter).With(Third, runnerC),
		},
		{
			name:      "Walk leaves runner on second when first is open",
			kind:      IntentionalWalk,
			bases:     Bases{}.With(Second, runnerB),
			wantBases: Bases{}.With(First, hitter).With(Second, runnerB),
		},
		{
			name:      "Hit by pitch with the bases loaded",
			kind:      HitByPitch,
			bases:     loaded(),
			wantRuns:  1,
			wantBases: Bases{}.With(First, hitter).With(Second, runnerA).With(Third, runnerB),
		},
		{
			name:      "Error forces runners",
			kind:      ReachedOnError,
			bases:     Bases{}.With(First, runnerA),
			wantBases: Bases{}.With(First, hitter).With(Second, runnerA),
		},
		{
			name:      "Fielder's choice retires the runner from first",
			kind:      FieldersChoice,
			bases:     Bases{}.With(First, runnerA).With(Third, runnerC),
			wantOuts:  1,
			wantBases: Bases{}.With(First, hitter).With(Third, runnerC),
		},
		{
			name:      "Fielder's choice with first open",
			kind:      FieldersChoice,
			bases:     Bases{}.With(Second, runnerB),
			wantBases: Bases{}.With(First, hitter).With(Second, runnerB),
		},
		{
			name:      "Sacrifice fly scores from third",
			kind:      SacrificeFly,
			bases:     Bases{}.With(Second, runnerB).With(Third, runnerC),
			wantRuns:  1,
			wantOuts:  1,
			wantBases: Bases{}.With(Second, runnerB),
		},
		{
			name:      "Ground out holds runners",
			kind:      GroundOut,
			bases:     Bases{}.With(First, runnerA),
			wantOuts:  1,
			wantBases: Bases{}.With(First, runnerA),
		},
		{
			name:      "Strikeout holds runners",
			kind:      Strikeout,
			bases:     Bases{}.With(Third, runnerC),
			wantOuts:  1,
			wantBases: Bases{}.With(Third, runnerC),
		},
		{
			name:      "Air out",
			kind:      AirOut,
			wantOuts:  1,
			wantBases: Bases{},
		},
		{
			name:      "Double play takes the trailing runner",
			kind:      DoublePlay,
			bases:     Bases{}.With(First, runnerA).With(Third, runnerC),
			wantOuts:  2,
			wantBases: Bases{}.With(Third, runnerC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := Lookup(tt.kind)
			res, err := tt.bases.Apply(&hitter, o.Auto(tt.bases))
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
