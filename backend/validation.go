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
	"net/mail"
	"regexp"
	"time"

	"github.com/ttbt-io/skorekeeper-live/backend/notation"
	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

// uuidRegex is a regex for standard UUIDs (8-4-4-4-12 hex digits)
var uuidRegex = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

// isValidUUID checks if the string is a valid UUID.
func isValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// isValidEmail checks if the string is a valid email address.
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// validateStringLen checks if the string length is within the limit.
func validateStringLen(s string, max int, name string) error {
	if len(s) > max {
		return fmt.Errorf("%s too long (max %d chars)", name, max)
	}
	return nil
}

// LineupPair holds the starting lineups of both teams.
type LineupPair struct {
	Away scoring.Lineup `json:"away"`
	Home scoring.Lineup `json:"home"`
}

// Side returns the lineup batting for side.
func (p LineupPair) Side(side scoring.Side) scoring.Lineup {
	if side == scoring.Home {
		return p.Home
	}
	return p.Away
}

// GameRequest is the body of a create-game request.
type GameRequest struct {
	ID          string        `json:"id,omitempty"`
	Date        string        `json:"date"`
	Location    string        `json:"location,omitempty"`
	Event       string        `json:"event,omitempty"`
	Away        string        `json:"away"`
	Home        string        `json:"home"`
	AwayTeamID  string        `json:"awayTeamId,omitempty"`
	HomeTeamID  string        `json:"homeTeamId,omitempty"`
	Lineups     LineupPair    `json:"lineups"`
	Rules       scoring.Rules `json:"rules"`
	Permissions Permissions   `json:"permissions"`
}

func validateGameRequest(p GameRequest) error {
	if p.ID != "" && !isValidUUID(p.ID) {
		return fmt.Errorf("invalid game ID")
	}
	if p.Away == "" || p.Home == "" {
		return fmt.Errorf("missing team names")
	}
	for _, c := range []struct {
		val  string
		max  int
		name string
	}{
		{p.Away, 50, "away team"},
		{p.Home, 50, "home team"},
		{p.Event, 100, "event"},
		{p.Location, 100, "location"},
	} {
		if err := validateStringLen(c.val, c.max, c.name); err != nil {
			return err
		}
	}
	if _, err := time.Parse(time.RFC3339, p.Date); err != nil {
		return fmt.Errorf("invalid date format: %v", err)
	}
	for _, id := range []string{p.AwayTeamID, p.HomeTeamID} {
		if id != "" && !isValidUUID(id) {
			return fmt.Errorf("invalid team ID: %s", id)
		}
	}
	if p.Rules.RegulationInnings < 0 || p.Rules.RegulationInnings > 99 {
		return fmt.Errorf("invalid regulation innings: %d", p.Rules.RegulationInnings)
	}
	if p.Rules.MercyRuns < 0 || p.Rules.MercyAfterInning < 0 {
		return fmt.Errorf("invalid mercy rule")
	}
	if err := validatePermissions(p.Permissions); err != nil {
		return err
	}
	return validateLineups(p.Lineups)
}

func validatePermissions(p Permissions) error {
	if p.Public != "" && p.Public != "none" && p.Public != "read" {
		return fmt.Errorf("invalid public access: %s", p.Public)
	}
	for u, role := range p.Users {
		if !isValidEmail(u) {
			return fmt.Errorf("invalid user: %s", u)
		}
		if role != "read" && role != "write" {
			return fmt.Errorf("invalid role for %s: %s", u, role)
		}
	}
	return nil
}

// validateLineups checks field sizes only. Lineup rules are enforced when
// the game starts.
func validateLineups(p LineupPair) error {
	for _, l := range []scoring.Lineup{p.Away, p.Home} {
		if len(l.Slots) > 99 {
			return fmt.Errorf("too many lineup slots")
		}
		for _, s := range l.Slots {
			if err := validateStringLen(s.Player.ID, 64, "player id"); err != nil {
				return err
			}
			if err := validateStringLen(s.Player.Name, 100, "player name"); err != nil {
				return err
			}
			if err := validateStringLen(s.Position, 10, "position"); err != nil {
				return err
			}
		}
	}
	return nil
}

// CommandRequest is the body of a play or lifecycle request. Plays are
// given either as Outcome/Play with an optional Advancement, or as scorer
// shorthand in Notation.
type CommandRequest struct {
	BatterID    string                 `json:"batterId,omitempty"`
	Outcome     scoring.OutcomeKind    `json:"outcome,omitempty"`
	Play        scoring.RunnerPlayKind `json:"play,omitempty"`
	Notation    string                 `json:"notation,omitempty"`
	Advancement *scoring.Advancement   `json:"advancement,omitempty"`
	Lineups     *LineupPair            `json:"lineups,omitempty"`

	// batterName is a batter named in Notation, resolved by the Hub.
	batterName string
}

// normalizeCommand validates req for cmd and expands Notation.
func normalizeCommand(cmd string, req *CommandRequest) error {
	if err := validateStringLen(req.BatterID, 64, "batterId"); err != nil {
		return err
	}
	if err := validateStringLen(req.Notation, 200, "notation"); err != nil {
		return err
	}
	if req.Notation != "" {
		if req.Outcome != "" || req.Play != "" || req.Advancement != nil {
			return fmt.Errorf("notation cannot be combined with outcome, play or advancement")
		}
		p, err := notation.Parse(req.Notation)
		if err != nil {
			return err
		}
		req.Outcome, req.Play, req.Advancement = p.Outcome, p.RunnerPlay, p.Advancement
		req.batterName = p.Batter
	}

	switch cmd {
	case CmdAtBat:
		if req.Outcome == "" {
			return fmt.Errorf("missing outcome")
		}
		if req.Play != "" {
			return fmt.Errorf("%s is a runner play", req.Play)
		}
	case CmdRunnerPlay:
		if req.Play == "" {
			return fmt.Errorf("missing play")
		}
		if req.Outcome != "" || req.BatterID != "" || req.batterName != "" {
			return fmt.Errorf("runner plays do not take a batter or outcome")
		}
	case CmdLineups:
		if req.Lineups == nil {
			return fmt.Errorf("missing lineups")
		}
		return validateLineups(*req.Lineups)
	}
	return nil
}

// TeamRequest is the body of a save-team request.
type TeamRequest struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	ShortName string           `json:"shortName,omitempty"`
	Color     string           `json:"color,omitempty"`
	Roster    []scoring.Player `json:"roster"`
	Roles     TeamRoles        `json:"roles"`
}

func validateTeamRequest(p TeamRequest) error {
	if !isValidUUID(p.ID) {
		return fmt.Errorf("invalid team ID")
	}
	if p.Name == "" {
		return fmt.Errorf("missing team name")
	}
	if err := validateStringLen(p.Name, 50, "name"); err != nil {
		return err
	}
	if err := validateStringLen(p.ShortName, 10, "short name"); err != nil {
		return err
	}
	if err := validateStringLen(p.Color, 20, "color"); err != nil {
		return err
	}
	if len(p.Roster) > 200 {
		return fmt.Errorf("roster too large")
	}
	seen := make(map[string]bool)
	for _, pl := range p.Roster {
		if pl.ID == "" {
			return fmt.Errorf("roster player without id")
		}
		if seen[pl.ID] {
			return fmt.Errorf("duplicate roster player %s", pl.ID)
		}
		seen[pl.ID] = true
		if err := validateStringLen(pl.Name, 100, "player name"); err != nil {
			return err
		}
	}
	for _, list := range [][]string{p.Roles.Admins, p.Roles.Scorekeepers, p.Roles.Spectators} {
		for _, u := range list {
			if !isValidEmail(u) {
				return fmt.Errorf("invalid member: %s", u)
			}
		}
	}
	return nil
}
