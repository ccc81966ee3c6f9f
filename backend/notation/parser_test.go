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

package notation

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

func dest(d scoring.Destination) *scoring.Destination { return &d }

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Play
	}{
		{"1B", Play{Outcome: scoring.Single}},
		{"hr", Play{Outcome: scoring.HomeRun}},
		{"E6", Play{Outcome: scoring.ReachedOnError}},
		{"KL", Play{Outcome: scoring.Strikeout}},
		{
			input: "DP r1:out",
			want: Play{Outcome: scoring.DoublePlay, Advancement: &scoring.Advancement{
				Runners: map[scoring.Base]scoring.Destination{scoring.First: scoring.Out()},
			}},
		},
		{
			input: "E b:2 r2:score r1:3",
			want: Play{Outcome: scoring.ReachedOnError, Advancement: &scoring.Advancement{
				Batter: dest(scoring.AdvanceTo(scoring.Second)),
				Runners: map[scoring.Base]scoring.Destination{
					scoring.First:  scoring.AdvanceTo(scoring.Third),
					scoring.Second: scoring.ScoreRun(),
				},
			}},
		},
		{
			input: "GO b:x r3:- batter:\"Ada Lovelace\"",
			want: Play{Outcome: scoring.GroundOut, Batter: "Ada Lovelace", Advancement: &scoring.Advancement{
				Batter:  dest(scoring.Out()),
				Runners: map[scoring.Base]scoring.Destination{scoring.Third: scoring.Stay()},
			}},
		},
		{
			input: "sb r1:2",
			want: Play{RunnerPlay: scoring.StolenBase, Advancement: &scoring.Advancement{
				Runners: map[scoring.Base]scoring.Destination{scoring.First: scoring.AdvanceTo(scoring.Second)},
			}},
		},
		{"BK", Play{RunnerPlay: scoring.Balk}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q)\ngot  %+v\nwant %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"bunt",
		"E0",
		"1B r4:h",
		"1B r1",
		"1B r1:5",
		"DP r1:out r1:stay",
		"1B b:2 b:3",
	} {
		if _, err := Parse(input); !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q) err = %v, want %v", input, err, ErrSyntax)
		}
	}
}

func TestFormat(t *testing.T) {
	for input, want := range map[string]string{
		"GDP R1:X":                 "DP r1:out",
		"e4 r3:4 b:1":              "E b:1 r3:h",
		"fo batter:'Grace Hopper'": `AO batter:"Grace Hopper"`,
		"WP r2:3 r1:2":             "WP r1:2 r2:3",
		"ibb":                      "IBB",
	} {
		p, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", input, err)
		}
		got := Format(p)
		if got != want {
			t.Errorf("Format(Parse(%q)) = %q, want %q", input, got, want)
		}
		again, err := Parse(got)
		if err != nil || !reflect.DeepEqual(again, p) {
			t.Errorf("Parse(%q) = %+v, %v; want %+v", got, again, err, p)
		}
	}
}
