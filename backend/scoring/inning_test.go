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
	"reflect"
	"testing"
)

func TestCursorWraps(t *testing.T) {
	c := NewCursor(9)
	for i := 1; i <= 20; i++ {
		if got, want := c.Advance(), i%9; got != want {
			t.Fatalf("Advance #%d = %d, want %d", i, got, want)
		}
	}
	if c.Current() != 2 {
		t.Errorf("Current = %d, want 2", c.Current())
	}
}

func TestInningTransitions(t *testing.T) {
	s := NewInningState()
	if s.Inning != 1 || s.Half != Top || s.Outs != 0 {
		t.Fatalf("initial state = %+v", s)
	}

	if _, ended := s.Record(2, 1); ended {
		t.Fatal("half ended after 2 outs")
	}
	if s.Outs != 2 || s.Runs != 1 || !s.Started {
		t.Errorf("after 2 outs: %+v", s)
	}

	entry, ended := s.Record(1, 0)
	if !ended {
		t.Fatal("half did not end at 3 outs")
	}
	if want := (HalfEntry{Inning: 1, Half: Top, Runs: 1}); entry != want {
		t.Errorf("entry = %+v, want %+v", entry, want)
	}
	if s.Inning != 1 || s.Half != Bottom || s.Outs != 0 || s.Runs != 0 || s.Started {
		t.Errorf("Top->Bottom changed inning or kept counters: %+v", s)
	}

	entry, ended = s.Record(3, 0)
	if !ended {
		t.Fatal("bottom half did not end")
	}
	if want := (HalfEntry{Inning: 1, Half: Bottom}); entry != want {
		t.Errorf("entry = %+v, want %+v", entry, want)
	}
	if s.Inning != 2 || s.Half != Top || s.Outs != 0 {
		t.Errorf("Bottom->Top: %+v, want Top 2 with no outs", s)
	}
	if got := s.String(); got != "Top 2" {
		t.Errorf("String = %q", got)
	}
}

func TestLedgerLine(t *testing.T) {
	l := Ledger{
		{Inning: 1, Half: Top, Runs: 2},
		{Inning: 1, Half: Bottom, Runs: 0},
		{Inning: 2, Half: Top, Runs: 1},
	}
	if l.Total(Away) != 3 || l.Total(Home) != 0 {
		t.Errorf("totals = %d-%d, want 3-0", l.Total(Away), l.Total(Home))
	}

	want := []InningLine{
		{Inning: 1, Away: 2, Home: 0, HomeBatted: true},
		{Inning: 2, Away: 1},
	}
	if got := l.Line(nil); !reflect.DeepEqual(got, want) {
		t.Errorf("Line(nil) = %+v, want %+v", got, want)
	}

	pending := HalfEntry{Inning: 2, Half: Bottom, Runs: 4}
	want[1].Home, want[1].HomeBatted = 4, true
	if got := l.Line(&pending); !reflect.DeepEqual(got, want) {
		t.Errorf("Line(pending) = %+v, want %+v", got, want)
	}
	if len(l) != 3 {
		t.Errorf("Line appended to the ledger: %+v", l)
	}
}
