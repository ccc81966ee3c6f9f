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
	"cmp"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ttbt-io/skorekeeper-live/backend/search"
)

const tombstoneTTL = 30 * 24 * time.Hour
const gcInterval = 12 * time.Hour

// Registry is the in-memory index of games used for listing, searching and
// quota checks. Metadata is served from an LRU cache backed by the
// GameStore sidecars.
type Registry struct {
	gameStore *GameStore
	teamStore *TeamStore

	mu  sync.RWMutex
	ids map[string]struct{}

	// Also acts as tombstone cache (Status="deleted").
	gameMetadata *lru.Cache[string, GameMetadata]

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a new Registry and indexes every stored game.
func NewRegistry(gs *GameStore, ts *TeamStore) *Registry {
	gmCache, _ := lru.New[string, GameMetadata](5000)
	r := &Registry{
		gameStore:    gs,
		teamStore:    ts,
		ids:          make(map[string]struct{}),
		gameMetadata: gmCache,
		stopChan:     make(chan struct{}),
	}
	r.Rebuild()
	return r
}

// Rebuild rescans the GameStore.
func (r *Registry) Rebuild() {
	start := time.Now()
	ids := make(map[string]struct{})
	r.gameMetadata.Purge()
	for m, err := range r.gameStore.ListAllGameMetadata() {
		if err != nil {
			log.Printf("Registry: rebuild: %v", err)
			break
		}
		ids[m.ID] = struct{}{}
		r.gameMetadata.Add(m.ID, m)
	}
	r.mu.Lock()
	r.ids = ids
	r.mu.Unlock()
	log.Printf("Registry: indexed %d games in %s", len(ids), time.Since(start).Round(time.Millisecond))
}

// StartGC starts the background tombstone garbage collector.
func (r *Registry) StartGC() {
	go func() {
		ticker := time.NewTicker(gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.PurgeOldTombstones()
			case <-r.stopChan:
				return
			}
		}
	}()
}

// StopGC stops the background tombstone garbage collector.
func (r *Registry) StopGC() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
}

// PurgeOldTombstones permanently deletes expired game tombstones.
func (r *Registry) PurgeOldTombstones() int {
	cutoff := time.Now().Add(-tombstoneTTL).UnixNano()
	var purged int
	for _, id := range r.allIDs() {
		m, ok := r.metadata(id)
		if !ok || m.Status != StatusDeleted || m.DeletedAt == 0 || m.DeletedAt >= cutoff {
			continue
		}
		if err := r.gameStore.PurgeGame(id); err != nil {
			log.Printf("Registry: purge %s: %v", id, err)
			continue
		}
		r.mu.Lock()
		delete(r.ids, id)
		r.mu.Unlock()
		r.gameMetadata.Remove(id)
		purged++
	}
	if purged > 0 {
		log.Printf("Registry: GC complete. Purged %d games.", purged)
	}
	return purged
}

// UpdateGame records new metadata for a game.
func (r *Registry) UpdateGame(m GameMetadata) {
	r.mu.Lock()
	r.ids[m.ID] = struct{}{}
	r.mu.Unlock()
	r.gameMetadata.Add(m.ID, m)
}

// DeleteGame marks a game deleted in the index.
func (r *Registry) DeleteGame(gameId string) {
	m, ok := r.metadata(gameId)
	if !ok {
		return
	}
	m.Status = StatusDeleted
	m.DeletedAt = time.Now().UnixNano()
	r.gameMetadata.Add(gameId, m)
}

// Metadata returns the indexed metadata of a live game.
func (r *Registry) Metadata(gameId string) (GameMetadata, bool) {
	m, ok := r.metadata(gameId)
	if !ok || m.Status == StatusDeleted {
		return GameMetadata{}, false
	}
	return m, true
}

func (r *Registry) metadata(gameId string) (GameMetadata, bool) {
	if m, ok := r.gameMetadata.Get(gameId); ok {
		return m, true
	}
	r.mu.RLock()
	_, known := r.ids[gameId]
	r.mu.RUnlock()
	if !known {
		return GameMetadata{}, false
	}
	m, err := r.gameStore.LoadMetadata(gameId)
	if err != nil {
		return GameMetadata{}, false
	}
	r.gameMetadata.Add(gameId, m)
	return m, true
}

func (r *Registry) allIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of indexed games, tombstones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// CountOwnedGames returns the number of live games owned by userId.
func (r *Registry) CountOwnedGames(userId string) int {
	userId = normalizeEmail(userId)
	var n int
	for _, id := range r.allIDs() {
		if m, ok := r.Metadata(id); ok && normalizeEmail(m.OwnerID) == userId {
			n++
		}
	}
	return n
}

// CountOwnedTeams returns the number of live teams owned by userId.
func (r *Registry) CountOwnedTeams(userId string) int {
	userId = normalizeEmail(userId)
	var n int
	for t, err := range r.teamStore.ListTeams() {
		if err == nil && normalizeEmail(t.OwnerID) == userId {
			n++
		}
	}
	return n
}

func gameRecord(m GameMetadata) search.Record {
	return search.Record{
		Fields: map[string][]string{
			"away":     {m.Away},
			"home":     {m.Home},
			"team":     {m.Away, m.Home},
			"event":    {m.Event},
			"location": {m.Location},
			"status":   {m.Status},
		},
		Ordered: map[string]string{"date": m.Date},
	}
}

// ListGames returns the metadata of live games readable by userId that
// match query, sorted by date, event or location.
func (r *Registry) ListGames(userId, sortBy, order, query string) []GameMetadata {
	if sortBy == "" {
		sortBy = "date"
	}
	if order == "" {
		if sortBy == "date" {
			order = "desc"
		} else {
			order = "asc"
		}
	}
	q := search.Parse(query)

	var out []GameMetadata
	for _, id := range r.allIDs() {
		m, ok := r.Metadata(id)
		if !ok || !q.Matches(gameRecord(m)) {
			continue
		}
		if GetGameAccess(userId, m, r.teamStore) < AccessRead {
			continue
		}
		out = append(out, m)
	}

	key := func(m GameMetadata) string {
		switch sortBy {
		case "event":
			return m.Event
		case "location":
			return m.Location
		case "date":
			return m.Date
		}
		return m.ID
	}
	slices.SortFunc(out, func(a, b GameMetadata) int {
		c := cmp.Or(cmp.Compare(key(a), key(b)), strings.Compare(a.ID, b.ID))
		if order == "desc" {
			return -c
		}
		return c
	})
	return out
}

// ListTeams returns the live teams visible to userId whose name matches query.
func (r *Registry) ListTeams(userId, query string) []Team {
	q := search.Parse(query)
	var out []Team
	for t, err := range r.teamStore.ListTeams() {
		if err != nil {
			log.Printf("Registry: list teams: %v", err)
			break
		}
		if GetTeamAccess(userId, *t) < AccessRead {
			continue
		}
		rec := search.Record{Fields: map[string][]string{"name": {t.Name, t.ShortName}}}
		if q.Matches(rec) {
			out = append(out, *t)
		}
	}
	slices.SortFunc(out, func(a, b Team) int {
		return cmp.Or(strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)), strings.Compare(a.ID, b.ID))
	})
	return out
}
