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
	"context"
	"slices"
	"sync"
)

// Status is the lifecycle stage of a game.
type Status string

const (
	StatusSetup      Status = "setup"
	StatusInProgress Status = "in_progress"
	StatusSuspended  Status = "suspended"
	StatusCompleted  Status = "completed"
)

// Rules configures when a game ends on its own. The zero value never ends
// a game automatically.
type Rules struct {
	RegulationInnings int `json:"regulationInnings,omitempty"`
	MercyRuns         int `json:"mercyRuns,omitempty"`
	MercyAfterInning  int `json:"mercyAfterInning,omitempty"`
}

// CommandType identifies a play in the command log.
type CommandType string

const (
	CommandAtBat      CommandType = "at_bat"
	CommandRunnerPlay CommandType = "runner_play"
)

// Command is a recorded play. Replaying the log from the starting lineups
// reproduces the game.
type Command struct {
	Type        CommandType    `json:"type"`
	BatterID    string         `json:"batterId,omitempty"`
	Outcome     OutcomeKind    `json:"outcome,omitempty"`
	RunnerPlay  RunnerPlayKind `json:"runnerPlay,omitempty"`
	Advancement *Advancement   `json:"advancement,omitempty"`
}

// Snapshot is the complete persisted form of a session.
type Snapshot struct {
	GameID   string      `json:"gameId"`
	Revision int64       `json:"revision"`
	Status   Status      `json:"status"`
	Rules    Rules       `json:"rules"`
	Lineups  [2]Lineup   `json:"lineups"`
	State    State       `json:"state"`
	Log      []Command   `json:"log,omitempty"`
	Stats    BoxScore    `json:"stats"`
	Feed     []FeedEntry `json:"feed,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	for i := range s.Lineups {
		s.Lineups[i].Slots = slices.Clone(s.Lineups[i].Slots)
	}
	s.State = s.State.clone()
	s.Log = slices.Clone(s.Log)
	for i := range s.Log {
		s.Log[i].Advancement = s.Log[i].Advancement.clone()
	}
	s.Stats = s.Stats.clone()
	s.Feed = slices.Clone(s.Feed)
	return s
}

// Committer is the persistence port. Commit must be idempotent for a given
// snapshot revision.
type Committer interface {
	Commit(ctx context.Context, gameID string, snap Snapshot) error
}

// LineupProvider supplies the starting lineups of a game.
type LineupProvider interface {
	Lineup(ctx context.Context, gameID string, side Side) (Lineup, error)
}

// Session is one live game. All methods are safe for concurrent use; every
// command is applied to a copy, committed, then swapped in.
type Session struct {
	mu   sync.Mutex
	port Committer
	snap Snapshot
}

// NewSession returns a game in Setup. port may be nil for an in-memory game.
func NewSession(gameID string, rules Rules, port Committer) *Session {
	return &Session{
		port: port,
		snap: Snapshot{GameID: gameID, Status: StatusSetup, Rules: rules},
	}
}

// Restore resumes a session from a committed snapshot.
func Restore(snap Snapshot, port Committer) *Session {
	return &Session{port: port, snap: snap.clone()}
}

// Snapshot returns a copy of the committed state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// View returns the current projection.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.View()
}

// StartWith fetches both lineups from p and starts the game.
func (s *Session) StartWith(ctx context.Context, p LineupProvider) (View, error) {
	gameID := s.GameID()
	var lineups [2]Lineup
	for _, side := range []Side{Away, Home} {
		l, err := p.Lineup(ctx, gameID, side)
		if err != nil {
			return View{}, wrapError(CodeLineupInvalid, "loading "+side.String()+" lineup", err)
		}
		lineups[side] = l
	}
	return s.Start(ctx, lineups[Away], lineups[Home])
}

// GameID returns the id the session was created with.
func (s *Session) GameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.GameID
}

// Start binds the lineups and moves the game to InProgress.
func (s *Session) Start(ctx context.Context, away, home Lineup) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Status != StatusSetup {
		return View{}, errorf(CodeInvalidGameState, "cannot start a game that is %s", s.snap.Status)
	}
	lineups := [2]Lineup{away, home}
	for _, side := range []Side{Away, Home} {
		if err := lineups[side].Validate(); err != nil {
			return View{}, wrapError(CodeLineupInvalid, side.String()+" lineup", err)
		}
	}
	for _, slot := range away.Slots {
		if _, ok := home.find(slot.Player.ID); ok {
			return View{}, errorf(CodeLineupInvalid, "player %s is in both lineups", slot.Player.Label())
		}
	}
	next := started(s.snap, [2]Lineup{away.normalized(), home.normalized()})
	return s.commit(ctx, next)
}

// started returns the first-pitch snapshot for the lineups.
func started(base Snapshot, lineups [2]Lineup) Snapshot {
	return Snapshot{
		GameID:   base.GameID,
		Revision: base.Revision,
		Status:   StatusInProgress,
		Rules:    base.Rules,
		Lineups:  lineups,
		State:    NewState(len(lineups[Away].Slots), len(lineups[Home].Slots)),
		Stats:    newBoxScore(lineups),
	}
}

// RecordAtBat resolves an at-bat for the batter due up.
func (s *Session) RecordAtBat(ctx context.Context, batterID string, kind OutcomeKind, manual *Advancement) (View, error) {
	return s.record(ctx, Command{Type: CommandAtBat, BatterID: batterID, Outcome: kind, Advancement: manual.clone()})
}

// RecordRunnerPlay resolves a steal, pickoff or other play between pitches.
func (s *Session) RecordRunnerPlay(ctx context.Context, kind RunnerPlayKind, manual *Advancement) (View, error) {
	return s.record(ctx, Command{Type: CommandRunnerPlay, RunnerPlay: kind, Advancement: manual.clone()})
}

func (s *Session) record(ctx context.Context, cmd Command) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Status != StatusInProgress {
		return View{}, errorf(CodeInvalidGameState, "cannot record a play while the game is %s", s.snap.Status)
	}
	next := s.snap.clone()
	if err := next.apply(cmd); err != nil {
		return View{}, err
	}
	return s.commit(ctx, next)
}

// Suspend pauses an in-progress game.
func (s *Session) Suspend(ctx context.Context) (View, error) {
	return s.transition(ctx, StatusInProgress, StatusSuspended)
}

// Resume continues a suspended game.
func (s *Session) Resume(ctx context.Context) (View, error) {
	return s.transition(ctx, StatusSuspended, StatusInProgress)
}

func (s *Session) transition(ctx context.Context, from, to Status) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Status != from {
		return View{}, errorf(CodeInvalidGameState, "cannot move a game that is %s to %s", s.snap.Status, to)
	}
	next := s.snap.clone()
	next.Status = to
	return s.commit(ctx, next)
}

// Complete ends an in-progress game. Runs in an unfinished half count.
func (s *Session) Complete(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Status != StatusInProgress {
		return View{}, errorf(CodeInvalidGameState, "cannot complete a game that is %s", s.snap.Status)
	}
	next := s.snap.clone()
	next.finish()
	return s.commit(ctx, next)
}

// Undo removes the last recorded play by replaying the rest of the log.
func (s *Session) Undo(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Status != StatusInProgress {
		return View{}, errorf(CodeInvalidGameState, "cannot undo while the game is %s", s.snap.Status)
	}
	if len(s.snap.Log) == 0 {
		return View{}, errorf(CodeInvalidGameState, "nothing to undo")
	}
	next, err := replay(s.snap, s.snap.Log[:len(s.snap.Log)-1])
	if err != nil {
		return View{}, err
	}
	return s.commit(ctx, next)
}

// replay rebuilds a snapshot from its lineups and a command log.
func replay(base Snapshot, log []Command) (Snapshot, error) {
	next := started(base, base.clone().Lineups)
	for _, cmd := range log {
		if err := next.apply(cmd); err != nil {
			return Snapshot{}, err
		}
	}
	return next, nil
}

// commit hands next to the port and swaps it in once the write succeeds.
// The caller holds s.mu.
func (s *Session) commit(ctx context.Context, next Snapshot) (View, error) {
	next.Revision = s.snap.Revision + 1
	if s.port != nil {
		if err := s.port.Commit(ctx, next.GameID, next.clone()); err != nil {
			return View{}, wrapError(CodePersistenceFailure, "commit failed", err)
		}
	}
	s.snap = next
	return next.View(), nil
}

// apply resolves cmd against the snapshot in place. On error the snapshot
// may be partly written and must be discarded.
func (snap *Snapshot) apply(cmd Command) error {
	before := snap.State.Inning
	side := before.Half.Batting()

	var (
		next State
		res  Result
		err  error
		text string
	)
	switch cmd.Type {
	case CommandAtBat:
		outcome, ok := Lookup(cmd.Outcome)
		if !ok {
			return errorf(CodeInvalidAdvancement, "unknown outcome %q", cmd.Outcome)
		}
		next, res, err = Resolve(snap.State, snap.Lineups, cmd.BatterID, cmd.Outcome, cmd.Advancement)
		if err != nil {
			return err
		}
		snap.Stats.recordAtBat(side, outcome, res)
		text = narrateAtBat(outcome, res)
	case CommandRunnerPlay:
		next, res, err = ResolveRunnerPlay(snap.State, cmd.RunnerPlay, cmd.Advancement)
		if err != nil {
			return err
		}
		snap.Stats.recordRunnerPlay(side, cmd.RunnerPlay, res)
		text = narrateRunnerPlay(cmd.RunnerPlay, res)
	default:
		return errorf(CodeInvalidGameState, "unknown command %q", cmd.Type)
	}

	snap.State = next
	snap.Log = append(snap.Log, cmd)
	snap.Feed = append(snap.Feed, FeedEntry{Inning: before.Inning, Half: before.Half, Text: text})
	if snap.gameOver(res.HalfEnded) {
		snap.finish()
	}
	return nil
}

// gameOver applies the regulation and mercy rules after a play.
func (snap *Snapshot) gameOver(halfEnded bool) bool {
	r := snap.Rules
	if r.RegulationInnings <= 0 {
		return false
	}
	away, home := snap.Score()
	lead := home - away

	if halfEnded {
		last := snap.State.Ledger[len(snap.State.Ledger)-1]
		switch {
		case last.Half == Top && last.Inning >= r.RegulationInnings && lead > 0:
			return true
		case last.Half == Bottom && last.Inning >= r.RegulationInnings && lead != 0:
			return true
		case r.MercyRuns > 0 && last.Inning >= r.MercyAfterInning:
			if last.Half == Bottom && abs(lead) >= r.MercyRuns {
				return true
			}
			if last.Half == Top && lead >= r.MercyRuns {
				return true
			}
		}
		return false
	}

	// Walk-off: the home team cannot be retired once it leads.
	cur := snap.State.Inning
	if cur.Half != Bottom || lead <= 0 {
		return false
	}
	if cur.Inning >= r.RegulationInnings {
		return true
	}
	return r.MercyRuns > 0 && cur.Inning >= r.MercyAfterInning && lead >= r.MercyRuns
}

// finish flushes an unfinished half into the ledger and completes the game.
func (snap *Snapshot) finish() {
	st := &snap.State
	if st.Inning.Started {
		st.Ledger = append(st.Ledger, st.Inning.Pending())
		st.Inning.Outs = 0
		st.Inning.Runs = 0
		st.Inning.Started = false
	}
	snap.Status = StatusCompleted
	away, home := snap.Score()
	entry := FeedEntry{Inning: st.Inning.Inning, Half: st.Inning.Half, Text: narrateFinal(away, home)}
	if n := len(st.Ledger); n > 0 {
		entry.Inning, entry.Half = st.Ledger[n-1].Inning, st.Ledger[n-1].Half
	}
	snap.Feed = append(snap.Feed, entry)
}

// Score returns the away and home totals, including the half in progress.
func (snap Snapshot) Score() (away, home int) {
	away = snap.State.Ledger.Total(Away)
	home = snap.State.Ledger.Total(Home)
	if snap.State.Inning.Half.Batting() == Home {
		home += snap.State.Inning.Runs
	} else {
		away += snap.State.Inning.Runs
	}
	return away, home
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
