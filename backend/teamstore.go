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

// TeamRoles defines the members of a team by their role.
type TeamRoles struct {
	Admins       []string `json:"admins"`
	Scorekeepers []string `json:"scorekeepers"`
	Spectators   []string `json:"spectators"`
}

func (r *TeamRoles) normalize() {
	if r.Admins == nil {
		r.Admins = make([]string, 0)
	}
	if r.Scorekeepers == nil {
		r.Scorekeepers = make([]string, 0)
	}
	if r.Spectators == nil {
		r.Spectators = make([]string, 0)
	}
}

// Team is a roster and the people allowed to score its games.
type Team struct {
	ID            string           `json:"id"`
	SchemaVersion int              `json:"schemaVersion"`
	Name          string           `json:"name,omitempty"`
	ShortName     string           `json:"shortName,omitempty"`
	Color         string           `json:"color,omitempty"`
	Roster        []scoring.Player `json:"roster"`
	OwnerID       string           `json:"ownerId"`
	Roles         TeamRoles        `json:"roles"`
	UpdatedAt     int64            `json:"updatedAt,omitempty"`

	// Status can be "active" (default/empty) or "deleted"
	Status string `json:"status,omitempty"`
	// DeletedAt is the timestamp (Unix Nano) when the team was deleted.
	DeletedAt int64 `json:"deletedAt,omitempty"`
}

func (t *Team) normalize() {
	if t.SchemaVersion == 0 {
		t.SchemaVersion = CurrentSchemaVersion
	}
	if t.Roster == nil {
		t.Roster = make([]scoring.Player, 0)
	}
	t.Roles.normalize()
}

// OnRoster reports whether the player is on the team's roster.
func (t *Team) OnRoster(playerID string) bool {
	for _, p := range t.Roster {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// TeamStore manages team persistence to disk.
type TeamStore struct {
	DataDir string
	storage *storage.Storage
	mu      sync.Map // Stores *sync.Mutex for each teamId to protect writes
}

// NewTeamStore creates a new TeamStore.
func NewTeamStore(dataDir string, s *storage.Storage) *TeamStore {
	return &TeamStore{
		DataDir: dataDir,
		storage: s,
	}
}

func teamFile(teamId string) string {
	return filepath.Join("teams", url.PathEscape(teamId)+".json")
}

func (ts *TeamStore) lock(teamId string) *sync.Mutex {
	m, _ := ts.mu.LoadOrStore(teamId, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// SaveTeam saves the team data atomically.
func (ts *TeamStore) SaveTeam(team *Team) error {
	mutex := ts.lock(team.ID)
	mutex.Lock()
	defer mutex.Unlock()

	team.normalize()
	team.UpdatedAt = time.Now().UnixNano()
	if err := ts.storage.SaveDataFile(teamFile(team.ID), team); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// LoadTeam loads the team data by ID. Missing and deleted teams return
// os.ErrNotExist.
func (ts *TeamStore) LoadTeam(teamId string) (*Team, error) {
	var t Team
	if err := ts.storage.ReadDataFile(teamFile(teamId), &t); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	if t.Status == StatusDeleted {
		return nil, os.ErrNotExist
	}
	t.normalize()
	return &t, nil
}

// ListTeams returns an iterator over all live teams.
func (ts *TeamStore) ListTeams() iter.Seq2[*Team, error] {
	return func(yield func(*Team, error) bool) {
		files, err := os.ReadDir(filepath.Join(ts.DataDir, "teams"))
		if err != nil {
			if !os.IsNotExist(err) {
				yield(nil, fmt.Errorf("could not read teams directory: %w", err))
			}
			return
		}

		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
				continue
			}
			teamId, err := url.PathUnescape(strings.TrimSuffix(file.Name(), ".json"))
			if err != nil {
				continue
			}
			t, err := ts.LoadTeam(teamId)
			if err != nil {
				if !os.IsNotExist(err) {
					log.Printf("Warning: could not load team '%s': %v", teamId, err)
				}
				continue
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// DeleteTeam deletes a specific team by overwriting it with a tombstone.
func (ts *TeamStore) DeleteTeam(teamId string) error {
	t, err := ts.LoadTeam(teamId)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	mutex := ts.lock(teamId)
	mutex.Lock()
	defer mutex.Unlock()

	tombstone := &Team{
		ID:            teamId,
		SchemaVersion: CurrentSchemaVersion,
		OwnerID:       t.OwnerID,
		Status:        StatusDeleted,
		DeletedAt:     time.Now().UnixNano(),
	}
	if err := ts.storage.SaveDataFile(teamFile(teamId), tombstone); err != nil {
		return fmt.Errorf("storage.SaveDataFile (tombstone): %w", err)
	}
	return nil
}
