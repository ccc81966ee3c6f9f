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

// Package archive keeps completed games in SQLite for reporting: one row
// per game, its line score, and both teams' batting lines.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a game is not in the archive.
var ErrNotFound = errors.New("archive: game not found")

// Game is a completed game handed to the archive.
type Game struct {
	ID       string
	Date     string
	Event    string
	Location string
	Away     string
	Home     string
	Snapshot scoring.Snapshot
}

// Summary is the archived header row of a game.
type Summary struct {
	ID         string        `json:"id"`
	Date       string        `json:"date,omitempty"`
	Event      string        `json:"event,omitempty"`
	Location   string        `json:"location,omitempty"`
	Away       string        `json:"away"`
	Home       string        `json:"home"`
	Score      scoring.Score `json:"score"`
	Innings    int           `json:"innings"`
	Revision   int64         `json:"revision"`
	ArchivedAt time.Time     `json:"archivedAt"`
}

// Store persists completed games in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite archive and creates its tables.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordGame writes a completed game, replacing any earlier copy.
func (s *Store) RecordGame(ctx context.Context, g Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("game id is required")
	}
	if g.Snapshot.Status != scoring.StatusCompleted {
		return fmt.Errorf("game %s is %s, not completed", g.ID, g.Snapshot.Status)
	}
	view := g.Snapshot.View()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"batting_lines", "line_scores", "games"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE game_id = ?`, g.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO games (
		   game_id, date, event, location, away_team, home_team,
		   away_runs, home_runs, innings, revision, archived_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Date, g.Event, g.Location, g.Away, g.Home,
		view.Score.Away, view.Score.Home, len(view.Line), view.Revision, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	for _, l := range view.Line {
		home := sql.NullInt64{Int64: int64(l.Home), Valid: l.HomeBatted}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO line_scores (game_id, inning, away_runs, home_runs) VALUES (?, ?, ?, ?)`,
			g.ID, l.Inning, l.Away, home,
		); err != nil {
			return fmt.Errorf("insert inning %d: %w", l.Inning, err)
		}
	}

	for _, side := range []scoring.Side{scoring.Away, scoring.Home} {
		for _, b := range g.Snapshot.Stats.Side(side) {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO batting_lines (
				   game_id, side, batting_order, player_id, player_name, player_number, position,
				   pa, ab, h, r, rbi, bb, hbp, k, hr, sb
				 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				g.ID, int(side), b.Order, b.Player.ID, b.Player.Name, b.Player.Number, b.Position,
				b.PA, b.AB, b.H, b.R, b.RBI, b.BB, b.HBP, b.K, b.HR, b.SB,
			); err != nil {
				return fmt.Errorf("insert batting line %s: %w", b.Player.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Game returns the archived header of a game.
func (s *Store) Game(ctx context.Context, gameID string) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	var (
		sum        Summary
		archivedAt int64
	)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT game_id, date, event, location, away_team, home_team,
		        away_runs, home_runs, innings, revision, archived_at
		   FROM games WHERE game_id = ?`,
		gameID,
	)
	err := row.Scan(
		&sum.ID, &sum.Date, &sum.Event, &sum.Location, &sum.Away, &sum.Home,
		&sum.Score.Away, &sum.Score.Home, &sum.Innings, &sum.Revision, &archivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, ErrNotFound
	}
	if err != nil {
		return Summary{}, fmt.Errorf("select game: %w", err)
	}
	sum.ArchivedAt = time.UnixMilli(archivedAt).UTC()
	return sum, nil
}

// LineScore returns the archived runs per inning.
func (s *Store) LineScore(ctx context.Context, gameID string) ([]scoring.InningLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT inning, away_runs, home_runs FROM line_scores WHERE game_id = ? ORDER BY inning`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("select line score: %w", err)
	}
	defer rows.Close()

	var out []scoring.InningLine
	for rows.Next() {
		var (
			l    scoring.InningLine
			home sql.NullInt64
		)
		if err := rows.Scan(&l.Inning, &l.Away, &home); err != nil {
			return nil, fmt.Errorf("scan line score: %w", err)
		}
		l.Home, l.HomeBatted = int(home.Int64), home.Valid
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line score: %w", err)
	}
	return out, nil
}

// BoxScore returns the archived batting lines in batting order.
func (s *Store) BoxScore(ctx context.Context, gameID string) (scoring.BoxScore, error) {
	if err := ctx.Err(); err != nil {
		return scoring.BoxScore{}, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT side, batting_order, player_id, player_name, player_number, position,
		        pa, ab, h, r, rbi, bb, hbp, k, hr, sb
		   FROM batting_lines WHERE game_id = ? ORDER BY side, batting_order, player_id`,
		gameID,
	)
	if err != nil {
		return scoring.BoxScore{}, fmt.Errorf("select batting lines: %w", err)
	}
	defer rows.Close()

	var box scoring.BoxScore
	for rows.Next() {
		var (
			side int
			b    scoring.BattingLine
		)
		if err := rows.Scan(
			&side, &b.Order, &b.Player.ID, &b.Player.Name, &b.Player.Number, &b.Position,
			&b.PA, &b.AB, &b.H, &b.R, &b.RBI, &b.BB, &b.HBP, &b.K, &b.HR, &b.SB,
		); err != nil {
			return scoring.BoxScore{}, fmt.Errorf("scan batting line: %w", err)
		}
		if scoring.Side(side) == scoring.Home {
			box.Home = append(box.Home, b)
		} else {
			box.Away = append(box.Away, b)
		}
	}
	if err := rows.Err(); err != nil {
		return scoring.BoxScore{}, fmt.Errorf("iterate batting lines: %w", err)
	}
	return box, nil
}
