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

// Score is the running total for both teams.
type Score struct {
	Away int `json:"away"`
	Home int `json:"home"`
}

// View is the read-only projection rendered by clients.
type View struct {
	GameID   string `json:"gameId"`
	Revision int64  `json:"revision"`
	Status   Status `json:"status"`
	Inning   int    `json:"inning"`
	Half     Half   `json:"half"`
	Outs     int    `json:"outs"`

	// Bases holds first, second and third; nil means empty.
	Bases [3]*Player `json:"bases"`

	// Batter is the slot due up for the batting team. It is nil before
	// the game starts.
	Batter     *Slot        `json:"batter,omitempty"`
	BatterSlot int          `json:"batterSlot"`
	Score      Score        `json:"score"`
	Line       []InningLine `json:"line"`
	LastPlay   string       `json:"lastPlay,omitempty"`
}

// View projects the snapshot for display.
func (snap Snapshot) View() View {
	st := snap.State
	v := View{
		GameID:   snap.GameID,
		Revision: snap.Revision,
		Status:   snap.Status,
		Inning:   st.Inning.Inning,
		Half:     st.Inning.Half,
		Outs:     st.Inning.Outs,
	}
	if snap.Status == StatusSetup {
		return v
	}
	for i, b := range []Base{First, Second, Third} {
		if p, ok := st.Bases.At(b); ok {
			v.Bases[i] = &p
		}
	}
	side := st.Inning.Half.Batting()
	v.BatterSlot = st.Cursors[side].Current()
	if slots := snap.Lineups[side].Slots; v.BatterSlot < len(slots) {
		slot := slots[v.BatterSlot]
		v.Batter = &slot
	}
	v.Score.Away, v.Score.Home = snap.Score()

	var pending *HalfEntry
	if st.Inning.Started {
		p := st.Inning.Pending()
		pending = &p
	}
	v.Line = st.Ledger.Line(pending)
	if n := len(snap.Feed); n > 0 {
		v.LastPlay = snap.Feed[n-1].String()
	}
	return v
}
