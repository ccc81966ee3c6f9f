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

package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

var positions = []string{"P", "C", "1B", "2B", "3B", "SS", "LF", "CF", "RF"}

func lineup(prefix, team string) scoring.Lineup {
	l := scoring.Lineup{Team: team}
	for i, pos := range positions {
		l.Slots = append(l.Slots, scoring.Slot{
			Order:    i + 1,
			Player:   scoring.Player{ID: fmt.Sprintf("%s%d", prefix, i+1), Name: fmt.Sprintf("%s %d", team, i+1)},
			Position: pos,
		})
	}
	return l
}

func completedGame(t *testing.T) Game {
	t.Helper()
	ctx := context.Background()
	s := scoring.NewSession("game-1", scoring.Rules{}, nil)
	if _, err := s.Start(ctx, lineup("a", "Visitors"), lineup("h", "Hosts")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.RecordAtBat(ctx, "a1", scoring.HomeRun, nil); err != nil {
		t.Fatalf("RecordAtBat: %v", err)
	}
	if _, err := s.Complete(ctx); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	return Game{
		ID:       "game-1",
		Date:     "2026-05-01T18:00:00Z",
		Event:    "Spring League",
		Away:     "Visitors",
		Home:     "Hosts",
		Snapshot: s.Snapshot(),
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordGame(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	g := completedGame(t)

	// Recording twice replaces the first copy.
	for range 2 {
		if err := s.RecordGame(ctx, g); err != nil {
			t.Fatalf("RecordGame: %v", err)
		}
	}

	sum, err := s.Game(ctx, g.ID)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if sum.Away != "Visitors" || sum.Home != "Hosts" || sum.Event != "Spring League" {
		t.Errorf("summary = %+v", sum)
	}
	if want := (scoring.Score{Away: 1}); sum.Score != want {
		t.Errorf("score = %+v, want %+v", sum.Score, want)
	}
	if sum.Innings != 1 || sum.Revision != g.Snapshot.Revision {
		t.Errorf("innings, revision = %d, %d; want 1, %d", sum.Innings, sum.Revision, g.Snapshot.Revision)
	}

	line, err := s.LineScore(ctx, g.ID)
	if err != nil {
		t.Fatalf("LineScore: %v", err)
	}
	if want := []scoring.InningLine{{Inning: 1, Away: 1}}; !reflect.DeepEqual(line, want) {
		t.Errorf("line score = %+v, want %+v", line, want)
	}

	box, err := s.BoxScore(ctx, g.ID)
	if err != nil {
		t.Fatalf("BoxScore: %v", err)
	}
	if !reflect.DeepEqual(box, g.Snapshot.Stats) {
		t.Errorf("box score = %+v, want %+v", box, g.Snapshot.Stats)
	}
	hitter := box.Away[0]
	if hitter.HR != 1 || hitter.R != 1 || hitter.RBI != 1 {
		t.Errorf("a1 line = %+v", hitter)
	}
}

func TestRecordGameRejectsLiveGame(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	live := scoring.NewSession("game-2", scoring.Rules{}, nil)
	if err := s.RecordGame(ctx, Game{ID: "game-2", Away: "A", Home: "B", Snapshot: live.Snapshot()}); err == nil {
		t.Error("RecordGame accepted a game in setup")
	}
}

func TestGameNotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.Game(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Game(missing) err = %v, want %v", err, ErrNotFound)
	}
}

func TestClosedStore(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
	if err := s.RecordGame(context.Background(), Game{ID: "x"}); err == nil {
		t.Error("RecordGame on nil store succeeded")
	}
}

func TestForeignKeys(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	var on int
	if err := s.sqlDB.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if on != 1 {
		t.Fatalf("foreign_keys = %d, want 1", on)
	}

	g := completedGame(t)
	if err := s.RecordGame(ctx, g); err != nil {
		t.Fatalf("RecordGame: %v", err)
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM games WHERE game_id = ?`, g.ID); err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	for _, table := range []string{"line_scores", "batting_lines"} {
		var n int
		if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE game_id = ?`, g.ID).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s kept %d rows after the game was deleted", table, n)
		}
	}
}
