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

// Package notation reads and writes scorer shorthand.
//
// A play is a result code followed by optional runner moves:
//
//	1B
//	DP r1:out
//	E6 b:2 r2:score
//	SB r1:2 r3:h
//	K batter:"Ada Lovelace"
//
// Runner keys are b (the batter) and r1, r2, r3 for the runner who started
// on that base. Targets are a base number, h or score, out or x, stay or -.
package notation

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
	"github.com/ttbt-io/skorekeeper-live/backend/search"
)

// ErrSyntax is returned for text that is not valid shorthand.
var ErrSyntax = errors.New("notation: syntax error")

// Play is a parsed line of shorthand. Exactly one of Outcome and RunnerPlay
// is set.
type Play struct {
	Outcome    scoring.OutcomeKind
	RunnerPlay scoring.RunnerPlayKind

	// Batter names who is at the plate, by id or name, when the scorer
	// wrote it down. Empty means the batter due up.
	Batter string

	// Advancement is nil when no runner moves were given.
	Advancement *scoring.Advancement
}

var outcomeCodes = map[string]scoring.OutcomeKind{
	"1B":  scoring.Single,
	"2B":  scoring.Double,
	"3B":  scoring.Triple,
	"HR":  scoring.HomeRun,
	"BB":  scoring.Walk,
	"IBB": scoring.IntentionalWalk,
	"HBP": scoring.HitByPitch,
	"HP":  scoring.HitByPitch,
	"SF":  scoring.SacrificeFly,
	"E":   scoring.ReachedOnError,
	"FC":  scoring.FieldersChoice,
	"K":   scoring.Strikeout,
	"KL":  scoring.Strikeout,
	"GO":  scoring.GroundOut,
	"AO":  scoring.AirOut,
	"FO":  scoring.AirOut,
	"LO":  scoring.AirOut,
	"DP":  scoring.DoublePlay,
	"GDP": scoring.DoublePlay,
}

var runnerPlayCodes = map[string]scoring.RunnerPlayKind{
	"SB": scoring.StolenBase,
	"CS": scoring.CaughtStealing,
	"PO": scoring.Pickoff,
	"WP": scoring.WildPitch,
	"PB": scoring.PassedBall,
	"BK": scoring.Balk,
	"DI": scoring.DefensiveIndifference,
}

// Parse reads one play.
func Parse(input string) (Play, error) {
	tokens := search.Tokenize(input)
	if len(tokens) == 0 {
		return Play{}, fmt.Errorf("%w: empty play", ErrSyntax)
	}

	var p Play
	code := strings.ToUpper(tokens[0])
	if kind, ok := outcomeCodes[code]; ok {
		p.Outcome = kind
	} else if kind, ok := runnerPlayCodes[code]; ok {
		p.RunnerPlay = kind
	} else if isFieldedError(code) {
		p.Outcome = scoring.ReachedOnError
	} else {
		return Play{}, fmt.Errorf("%w: unknown result %q", ErrSyntax, tokens[0])
	}

	adv := &scoring.Advancement{}
	for _, token := range tokens[1:] {
		key, val, ok := strings.Cut(token, ":")
		if !ok || val == "" {
			return Play{}, fmt.Errorf("%w: expected key:value, got %q", ErrSyntax, token)
		}
		key = strings.ToLower(key)
		if key == "batter" {
			p.Batter = search.Unquote(val)
			continue
		}
		dest, err := parseDestination(val)
		if err != nil {
			return Play{}, err
		}
		switch key {
		case "b":
			if adv.Batter != nil {
				return Play{}, fmt.Errorf("%w: batter given twice", ErrSyntax)
			}
			adv.Batter = &dest
		case "r1", "r2", "r3":
			base := scoring.Base(key[1] - '0')
			if _, dup := adv.Runners[base]; dup {
				return Play{}, fmt.Errorf("%w: runner %s given twice", ErrSyntax, key)
			}
			if adv.Runners == nil {
				adv.Runners = make(map[scoring.Base]scoring.Destination)
			}
			adv.Runners[base] = dest
		default:
			return Play{}, fmt.Errorf("%w: unknown runner %q", ErrSyntax, key)
		}
	}
	if !adv.IsZero() {
		p.Advancement = adv
	}
	return p, nil
}

// isFieldedError matches E1 through E9, the error charged to a fielder.
func isFieldedError(code string) bool {
	return len(code) == 2 && code[0] == 'E' && code[1] >= '1' && code[1] <= '9'
}

func parseDestination(s string) (scoring.Destination, error) {
	switch strings.ToLower(s) {
	case "1":
		return scoring.AdvanceTo(scoring.First), nil
	case "2":
		return scoring.AdvanceTo(scoring.Second), nil
	case "3":
		return scoring.AdvanceTo(scoring.Third), nil
	case "h", "4", "score":
		return scoring.ScoreRun(), nil
	case "out", "x":
		return scoring.Out(), nil
	case "stay", "-":
		return scoring.Stay(), nil
	}
	return scoring.Destination{}, fmt.Errorf("%w: unknown target %q", ErrSyntax, s)
}

// Format writes p in canonical shorthand that Parse reads back.
func Format(p Play) string {
	var sb strings.Builder
	if p.RunnerPlay != "" {
		sb.WriteString(codeFor(runnerPlayCodes, p.RunnerPlay))
	} else {
		sb.WriteString(codeFor(outcomeCodes, p.Outcome))
	}
	if p.Batter != "" {
		sb.WriteString(` batter:"` + p.Batter + `"`)
	}
	if a := p.Advancement; a != nil {
		if a.Batter != nil {
			sb.WriteString(" b:" + formatDestination(*a.Batter))
		}
		for _, base := range slices.Sorted(maps.Keys(a.Runners)) {
			fmt.Fprintf(&sb, " r%d:%s", int(base), formatDestination(a.Runners[base]))
		}
	}
	return sb.String()
}

// codeFor returns the shortest code for v, alphabetically first on a tie.
func codeFor[V comparable](codes map[string]V, v V) string {
	best := ""
	for code, kind := range codes {
		if kind != v {
			continue
		}
		if best == "" || len(code) < len(best) || (len(code) == len(best) && code < best) {
			best = code
		}
	}
	if best == "" {
		return fmt.Sprint(v)
	}
	return best
}

func formatDestination(d scoring.Destination) string {
	switch d.Move {
	case scoring.MoveAdvance:
		return fmt.Sprint(int(d.To))
	case scoring.MoveScore:
		return "h"
	case scoring.MoveOut:
		return "out"
	}
	return "stay"
}
