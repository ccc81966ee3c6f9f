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
	"encoding/json"
	"fmt"
	"iter"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

// Permissions defines access control for a game.
type Permissions struct {
	Public string            `json:"public"` // "none", "read"
	Users  map[string]string `json:"users"`  // "email": "read"|"write"
}

// Game is a scored game as stored on disk: its metadata, the lineups it
// was created with, and the last committed scoring snapshot.
type Game struct {
	ID            string      `json:"id"`
	SchemaVersion int         `json:"schemaVersion"`
	Date          string      `json:"date,omitempty"`
	Location      string      `json:"location,omitempty"`
	Event         string      `json:"event,omitempty"`
	Away          string      `json:"away,omitempty"`
	Home          string      `json:"home,omitempty"`
	OwnerID       string      `json:"ownerId"`
	Permissions   Permissions `json:"permissions"`
	AwayTeamID    string      `json:"awayTeamId,omitempty"`
	HomeTeamID    string      `json:"homeTeamId,omitempty"`

	Lineups LineupPair       `json:"lineups"`
	Session scoring.Snapshot `json:"session"`

	// Status is only set on tombstones; the live status is Session.Status.
	Status    string `json:"status,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
	// DeletedAt is the timestamp (Unix Nano) when the game was deleted.
	DeletedAt int64 `json:"deletedAt,omitempty"`
}

func (g *Game) normalize() {
	if g.SchemaVersion == 0 {
		g.SchemaVersion = CurrentSchemaVersion
	}
	if g.Permissions.Users == nil {
		g.Permissions.Users = make(map[string]string)
	}
	if g.Session.GameID == "" {
		g.Session.GameID = g.ID
	}
	if g.Session.Status == "" {
		g.Session.Status = scoring.StatusSetup
	}
}

// TeamID returns the linked team for side, if any.
func (g *Game) TeamID(side scoring.Side) string {
	if side == scoring.Home {
		return g.HomeTeamID
	}
	return g.AwayTeamID
}

// Metadata returns the fields needed for listing and access checks.
func (g *Game) Metadata() GameMetadata {
	status := string(g.Session.Status)
	if g.Status == StatusDeleted {
		status = StatusDeleted
	}
	away, home := g.Session.Score()
	return GameMetadata{
		ID:          g.ID,
		OwnerID:     g.OwnerID,
		Permissions: g.Permissions,
		AwayTeamID:  g.AwayTeamID,
		HomeTeamID:  g.HomeTeamID,
		Date:        g.Date,
		Event:       g.Event,
		Location:    g.Location,
		Away:        g.Away,
		Home:        g.Home,
		Status:      status,
		Score:       scoring.Score{Away: away, Home: home},
		Revision:    g.Session.Revision,
		UpdatedAt:   g.UpdatedAt,
		DeletedAt:   g.DeletedAt,
	}
}

// GameMetadata contains only the fields needed for indexing.
type GameMetadata struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	Permissions Permissions   `json:"permissions"`
	AwayTeamID  string        `json:"awayTeamId,omitempty"`
	HomeTeamID  string        `json:"homeTeamId,omitempty"`
	Date        string        `json:"date,omitempty"`
	Event       string        `json:"event,omitempty"`
	Location    string        `json:"location,omitempty"`
	Away        string        `json:"away,omitempty"`
	Home        string        `json:"home,omitempty"`
	Status      string        `json:"status"`
	Score       scoring.Score `json:"score"`
	Revision    int64         `json:"revision"`
	UpdatedAt   int64         `json:"updatedAt,omitempty"`
	DeletedAt   int64         `json:"deletedAt,omitempty"`
}

// GameStore manages game persistence to disk. It is the persistence port
// of every live scoring session.
type GameStore struct {
	DataDir string
	Debug   bool
	storage *storage.Storage
	mu      sync.Map // Stores *sync.RWMutex for each gameId to protect writes and reads
	cache   sync.Map // Stores the latest []byte (JSON) for each gameId
}

var _ scoring.Committer = (*GameStore)(nil)

// NewGameStore creates a new GameStore.
func NewGameStore(dataDir string, s *storage.Storage) *GameStore {
	return &GameStore{
		DataDir: dataDir,
		storage: s,
	}
}

func gameFiles(gameId string) (data, meta string) {
	encoded := url.PathEscape(gameId)
	return filepath.Join("games", encoded+".json"), filepath.Join("games", encoded+".meta.json")
}

func (gs *GameStore) lock(gameId string) *sync.RWMutex {
	m, _ := gs.mu.LoadOrStore(gameId, &sync.RWMutex{})
	return m.(*sync.RWMutex)
}

// SaveGame saves the game data and its metadata sidecar.
func (gs *GameStore) SaveGame(game *Game) error {
	mutex := gs.lock(game.ID)
	mutex.Lock()
	defer mutex.Unlock()
	return gs.saveLocked(game)
}

func (gs *GameStore) saveLocked(game *Game) error {
	game.normalize()
	game.UpdatedAt = time.Now().UnixNano()
	if game.CreatedAt == 0 {
		game.CreatedAt = game.UpdatedAt
	}

	filename, metaFilename := gameFiles(game.ID)
	if err := gs.storage.SaveDataFile(filename, game); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}

	meta := game.Metadata()
	if err := gs.storage.SaveDataFile(metaFilename, &meta); err != nil {
		// Non-fatal, listing falls back to the main file.
		log.Printf("Warning: Failed to save metadata sidecar for game %s: %v", game.ID, err)
	}

	if jsonBytes, err := json.Marshal(game); err == nil {
		gs.cache.Store(game.ID, jsonBytes)
	}
	return nil
}

// LoadGame loads the game data by game ID. The returned Game is a private
// copy. Missing games return os.ErrNotExist.
func (gs *GameStore) LoadGame(gameId string) (*Game, error) {
	if val, ok := gs.cache.Load(gameId); ok {
		var g Game
		if err := json.Unmarshal(val.([]byte), &g); err == nil {
			if gs.Debug {
				log.Printf("[CACHE] Hit for game %s", gameId)
			}
			g.normalize()
			return &g, nil
		}
		gs.cache.Delete(gameId)
	}
	if gs.Debug {
		log.Printf("[CACHE] Miss for game %s", gameId)
	}

	mutex := gs.lock(gameId)
	mutex.RLock()
	defer mutex.RUnlock()
	return gs.loadLocked(gameId)
}

func (gs *GameStore) loadLocked(gameId string) (*Game, error) {
	filename, _ := gameFiles(gameId)
	var g Game
	if err := gs.storage.ReadDataFile(filename, &g); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	if g.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("schema version %d is newer than this server", g.SchemaVersion)
	}
	g.normalize()

	if jsonBytes, err := json.Marshal(&g); err == nil {
		gs.cache.Store(gameId, jsonBytes)
	}
	return &g, nil
}

// Commit stores a scoring snapshot for the game. Committing a revision
// that is already stored is a no-op; an older revision is rejected.
func (gs *GameStore) Commit(ctx context.Context, gameId string, snap scoring.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mutex := gs.lock(gameId)
	mutex.Lock()
	defer mutex.Unlock()

	g, err := gs.loadLocked(gameId)
	if err != nil {
		return err
	}
	if g.Status == StatusDeleted {
		return fmt.Errorf("game %s was deleted", gameId)
	}
	switch {
	case snap.Revision == g.Session.Revision:
		return nil
	case snap.Revision < g.Session.Revision:
		return fmt.Errorf("stale revision %d, stored %d", snap.Revision, g.Session.Revision)
	}
	g.Session = snap
	return gs.saveLocked(g)
}

// LoadMetadata reads the metadata sidecar, falling back to the game file.
func (gs *GameStore) LoadMetadata(gameId string) (GameMetadata, error) {
	_, metaFilename := gameFiles(gameId)
	var meta GameMetadata
	if err := gs.storage.ReadDataFile(metaFilename, &meta); err == nil {
		return meta, nil
	}
	g, err := gs.LoadGame(gameId)
	if err != nil {
		return GameMetadata{}, err
	}
	return g.Metadata(), nil
}

// DeleteGame deletes a specific game by overwriting it with a tombstone.
func (gs *GameStore) DeleteGame(gameId string) error {
	mutex := gs.lock(gameId)
	mutex.Lock()
	defer mutex.Unlock()

	g, err := gs.loadLocked(gameId)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	tombstone := &Game{
		ID:            gameId,
		SchemaVersion: CurrentSchemaVersion,
		Status:        StatusDeleted,
		OwnerID:       g.OwnerID,
		CreatedAt:     g.CreatedAt,
		DeletedAt:     time.Now().UnixNano(),
	}
	if err := gs.saveLocked(tombstone); err != nil {
		return fmt.Errorf("tombstone: %w", err)
	}
	return nil
}

// PurgeGame removes a game's files from disk.
func (gs *GameStore) PurgeGame(gameId string) error {
	mutex := gs.lock(gameId)
	mutex.Lock()
	defer mutex.Unlock()

	gs.cache.Delete(gameId)
	filename, metaFilename := gameFiles(gameId)
	if err := os.Remove(filepath.Join(gs.DataDir, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not purge game file: %w", err)
	}
	if err := os.Remove(filepath.Join(gs.DataDir, metaFilename)); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not purge meta file for game %s: %v", gameId, err)
	}
	return nil
}

// ListAllGameMetadata returns metadata for all games without loading
// their sessions when a sidecar exists.
func (gs *GameStore) ListAllGameMetadata() iter.Seq2[GameMetadata, error] {
	return func(yield func(GameMetadata, error) bool) {
		files, err := os.ReadDir(filepath.Join(gs.DataDir, "games"))
		if err != nil {
			if !os.IsNotExist(err) {
				yield(GameMetadata{}, fmt.Errorf("could not read games directory: %w", err))
			}
			return
		}

		seen := make(map[string]bool)
		for _, file := range files {
			name := file.Name()
			if file.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			encoded := strings.TrimSuffix(strings.TrimSuffix(name, ".json"), ".meta")
			id, err := url.PathUnescape(encoded)
			if err != nil || seen[id] {
				continue
			}
			seen[id] = true

			meta, err := gs.LoadMetadata(id)
			if err != nil {
				log.Printf("Warning: failed to load metadata for game %s: %v", id, err)
				continue
			}
			if !yield(meta, nil) {
				return
			}
		}
	}
}

// gameLineups serves the starting lineups stored with a game. A lineup
// linked to a team is checked against that team's roster.
type gameLineups struct {
	gs *GameStore
	ts *TeamStore
}

var _ scoring.LineupProvider = gameLineups{}

func (p gameLineups) Lineup(ctx context.Context, gameId string, side scoring.Side) (scoring.Lineup, error) {
	if err := ctx.Err(); err != nil {
		return scoring.Lineup{}, err
	}
	g, err := p.gs.LoadGame(gameId)
	if err != nil {
		return scoring.Lineup{}, err
	}
	l := g.Lineups.Side(side)
	if l.Team == "" {
		l.Team = g.Away
		if side == scoring.Home {
			l.Team = g.Home
		}
	}

	teamId := g.TeamID(side)
	if teamId == "" || p.ts == nil {
		return l, nil
	}
	t, err := p.ts.LoadTeam(teamId)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return scoring.Lineup{}, err
	}
	l.RosterSize = len(t.Roster)
	for _, slot := range l.Slots {
		if !t.OnRoster(slot.Player.ID) {
			return scoring.Lineup{}, fmt.Errorf("%s is not on the %s roster", slot.Player.Label(), t.Name)
		}
	}
	return l, nil
}
