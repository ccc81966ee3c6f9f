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

package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c2FmZQ/storage"
	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

var positions = []string{"P", "C", "1B", "2B", "3B", "SS", "LF", "CF", "RF"}

func makeUUID(i int) string {
	return fmt.Sprintf("%08x-0000-4000-8000-000000000000", i)
}

func testLineup(prefix, team string) scoring.Lineup {
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

func newTestStores(t *testing.T) (*GameStore, *TeamStore) {
	t.Helper()
	dir := t.TempDir()
	s := storage.New(dir, nil)
	return NewGameStore(dir, s), NewTeamStore(dir, s)
}

func TestGameStore(t *testing.T) {
	store, _ := newTestStores(t)
	gameId := makeUUID(1)
	game := &Game{ID: gameId, Date: "2026-05-01T18:00:00Z", Away: "Owls", Home: "Hawks", OwnerID: "owner@example.com"}

	t.Run("SaveGame", func(t *testing.T) {
		if err := store.SaveGame(game); err != nil {
			t.Fatalf("SaveGame failed: %v", err)
		}
		for _, name := range []string{gameId + ".json", gameId + ".meta.json"} {
			if _, err := os.Stat(filepath.Join(store.DataDir, "games", name)); err != nil {
				t.Errorf("%s not created: %v", name, err)
			}
		}
		if game.SchemaVersion != CurrentSchemaVersion || game.Session.Status != scoring.StatusSetup {
			t.Errorf("SaveGame did not normalize: version %d, status %q", game.SchemaVersion, game.Session.Status)
		}
	})

	t.Run("LoadGame", func(t *testing.T) {
		loaded, err := store.LoadGame(gameId)
		if err != nil {
			t.Fatalf("LoadGame failed: %v", err)
		}
		if loaded.ID != gameId || loaded.Away != "Owls" || loaded.Session.GameID != gameId {
			t.Errorf("Loaded data mismatch: %+v", loaded)
		}
		// Callers get a private copy.
		loaded.Away = "changed"
		again, _ := store.LoadGame(gameId)
		if again.Away != "Owls" {
			t.Errorf("LoadGame returned shared state: Away = %q", again.Away)
		}
	})

	t.Run("LoadGameNotFound", func(t *testing.T) {
		if _, err := store.LoadGame(makeUUID(99)); !os.IsNotExist(err) {
			t.Errorf("Expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("LoadMetadata", func(t *testing.T) {
		m, err := store.LoadMetadata(gameId)
		if err != nil {
			t.Fatalf("LoadMetadata: %v", err)
		}
		if m.OwnerID != "owner@example.com" || m.Status != string(scoring.StatusSetup) {
			t.Errorf("LoadMetadata = %+v", m)
		}
	})

	t.Run("DeleteGame", func(t *testing.T) {
		if err := store.DeleteGame(gameId); err != nil {
			t.Fatalf("DeleteGame failed: %v", err)
		}
		loaded, err := store.LoadGame(gameId)
		if err != nil {
			t.Fatalf("LoadGame failed: %v", err)
		}
		if loaded.Status != StatusDeleted || loaded.DeletedAt == 0 {
			t.Errorf("Expected tombstone, got status %q", loaded.Status)
		}
		m, _ := store.LoadMetadata(gameId)
		if m.Status != StatusDeleted {
			t.Errorf("metadata status = %q, want deleted", m.Status)
		}
		if err := store.Commit(context.Background(), gameId, scoring.Snapshot{GameID: gameId, Revision: 1}); err == nil {
			t.Error("Commit to a deleted game succeeded")
		}
	})

	t.Run("PurgeGame", func(t *testing.T) {
		if err := store.PurgeGame(gameId); err != nil {
			t.Fatalf("PurgeGame failed: %v", err)
		}
		if _, err := store.LoadGame(gameId); !os.IsNotExist(err) {
			t.Errorf("Expected os.ErrNotExist after purge, got %v", err)
		}
	})
}

func TestGameStoreCommit(t *testing.T) {
	store, _ := newTestStores(t)
	ctx := context.Background()
	gameId := makeUUID(2)
	if err := store.SaveGame(&Game{ID: gameId, Away: "Owls", Home: "Hawks"}); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	s := scoring.NewSession(gameId, scoring.Rules{}, store)
	if _, err := s.Start(ctx, testLineup("a", "Owls"), testLineup("h", "Hawks")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.RecordAtBat(ctx, "a1", scoring.HomeRun, nil); err != nil {
		t.Fatalf("RecordAtBat: %v", err)
	}

	g, err := store.LoadGame(gameId)
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if g.Session.Revision != 2 || g.Session.Status != scoring.StatusInProgress {
		t.Errorf("stored session revision %d status %q", g.Session.Revision, g.Session.Status)
	}
	m := g.Metadata()
	if m.Score != (scoring.Score{Away: 1}) || m.Revision != 2 {
		t.Errorf("Metadata = %+v", m)
	}

	// A session restored from disk continues where it left off.
	restored := scoring.Restore(g.Session, store)
	if v := restored.View(); v.Batter == nil || v.Batter.Player.ID != "a2" {
		t.Errorf("restored batter = %+v, want a2", v.Batter)
	}

	t.Run("SameRevision", func(t *testing.T) {
		if err := store.Commit(ctx, gameId, g.Session); err != nil {
			t.Errorf("re-commit of revision %d: %v", g.Session.Revision, err)
		}
	})
	t.Run("StaleRevision", func(t *testing.T) {
		old := g.Session
		old.Revision = 1
		if err := store.Commit(ctx, gameId, old); err == nil || !strings.Contains(err.Error(), "stale") {
			t.Errorf("Commit(stale) = %v", err)
		}
	})
	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := store.Commit(cctx, gameId, g.Session); !errors.Is(err, context.Canceled) {
			t.Errorf("Commit(canceled) = %v", err)
		}
	})
	t.Run("Missing", func(t *testing.T) {
		if err := store.Commit(ctx, makeUUID(98), g.Session); !os.IsNotExist(err) {
			t.Errorf("Commit(missing) = %v", err)
		}
	})
}

func TestListAllGameMetadata(t *testing.T) {
	store, _ := newTestStores(t)
	for i := range 5 {
		if err := store.SaveGame(&Game{ID: makeUUID(i), OwnerID: "u@example.com"}); err != nil {
			t.Fatalf("SaveGame: %v", err)
		}
	}
	// A game without a sidecar is still listed.
	_, meta := gameFiles(makeUUID(3))
	if err := os.Remove(filepath.Join(store.DataDir, meta)); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	seen := make(map[string]bool)
	for m, err := range store.ListAllGameMetadata() {
		if err != nil {
			t.Fatalf("ListAllGameMetadata: %v", err)
		}
		if seen[m.ID] {
			t.Errorf("game %s listed twice", m.ID)
		}
		seen[m.ID] = true
	}
	if len(seen) != 5 {
		t.Errorf("listed %d games, want 5", len(seen))
	}
}

func TestGameLineups(t *testing.T) {
	gs, ts := newTestStores(t)
	ctx := context.Background()
	teamId := makeUUID(100)
	home := testLineup("h", "")

	roster := make([]scoring.Player, 0, len(home.Slots))
	for _, s := range home.Slots {
		roster = append(roster, s.Player)
	}
	if err := ts.SaveTeam(&Team{ID: teamId, Name: "Hawks", Roster: roster}); err != nil {
		t.Fatalf("SaveTeam: %v", err)
	}

	gameId := makeUUID(3)
	g := &Game{
		ID:         gameId,
		Away:       "Owls",
		Home:       "Hawks",
		HomeTeamID: teamId,
		Lineups:    LineupPair{Away: testLineup("a", ""), Home: home},
	}
	if err := gs.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	p := gameLineups{gs: gs, ts: ts}

	away, err := p.Lineup(ctx, gameId, scoring.Away)
	if err != nil {
		t.Fatalf("Lineup(away): %v", err)
	}
	if away.Team != "Owls" || away.RosterSize != 0 {
		t.Errorf("away lineup team %q roster %d", away.Team, away.RosterSize)
	}
	got, err := p.Lineup(ctx, gameId, scoring.Home)
	if err != nil {
		t.Fatalf("Lineup(home): %v", err)
	}
	if got.Team != "Hawks" || got.RosterSize != 9 {
		t.Errorf("home lineup team %q roster %d", got.Team, got.RosterSize)
	}

	// A player missing from the roster is rejected.
	g.Lineups.Home.Slots[0].Player.ID = "stranger"
	if err := gs.SaveGame(g); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	if _, err := p.Lineup(ctx, gameId, scoring.Home); err == nil || !strings.Contains(err.Error(), "not on the") {
		t.Errorf("Lineup with an unrostered player = %v", err)
	}
}
