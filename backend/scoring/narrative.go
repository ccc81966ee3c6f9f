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
	"fmt"
	"strings"
)

// FeedEntry is one line of the play-by-play.
type FeedEntry struct {
	Inning int    `json:"inning"`
	Half   Half   `json:"half"`
	Text   string `json:"text"`
}

func (e FeedEntry) String() string {
	return fmt.Sprintf("%s %d: %s", halfLabel(e.Half), e.Inning, e.Text)
}

// narrateAtBat describes an at-bat, e.g. "Ada singles. Runner on 1st."
func narrateAtBat(outcome Outcome, res Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s.", res.Batter.Label(), outcome.Verb)
	narrateRunners(&sb, res, res.Batter.ID)
	return sb.String()
}

// narrateRunnerPlay describes a play between pitches, e.g.
// "Wild pitch. Bob to 3rd. Runner on 3rd."
func narrateRunnerPlay(kind RunnerPlayKind, res Result) string {
	rp, _ := lookupRunnerPlay(kind)
	var sb strings.Builder
	sb.WriteString(rp.label + ".")
	for _, r := range res.Reached {
		if r.From != int(r.To) && !res.HalfEnded {
			fmt.Fprintf(&sb, " %s to %s.", r.Player.Label(), r.To)
		}
	}
	narrateRunners(&sb, res, "")
	return sb.String()
}

func narrateRunners(sb *strings.Builder, res Result, batterID string) {
	for _, p := range res.Retired {
		if p.ID != batterID {
			fmt.Fprintf(sb, " %s out.", p.Label())
		}
	}
	for _, p := range res.Scored {
		if p.ID == batterID {
			continue
		}
		fmt.Fprintf(sb, " %s scores.", p.Label())
	}
	if res.HalfEnded {
		sb.WriteString(" Side retired.")
		return
	}
	if d := describeBases(res.Bases); d != "" {
		sb.WriteString(" " + d + ".")
	}
}

func describeBases(bs Bases) string {
	runners := bs.Runners()
	switch len(runners) {
	case 0:
		return ""
	case 1:
		return "Runner on " + runners[0].String()
	case 3:
		return "Bases loaded"
	}
	return fmt.Sprintf("Runners on %s and %s", runners[0], runners[1])
}

func narrateFinal(away, home int) string {
	return fmt.Sprintf("Game over. Final score %d-%d.", away, home)
}
