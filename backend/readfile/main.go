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

// Command readfile inspects stored games and teams, checks score notation
// and follows live games.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/ttbt-io/skorekeeper-live/backend"
	"github.com/ttbt-io/skorekeeper-live/backend/events"
	"github.com/ttbt-io/skorekeeper-live/backend/notation"
)

var (
	dataDir  = flag.String("data-dir", "data", "Directory for game and team data")
	lineOnly = flag.Bool("line", false, "Print the line score and play-by-play of games instead of JSON")
	follow   = flag.String("follow", "", "Follow the plays of a game id, or of every game with '*'")
	check    = flag.String("notation", "", "Parse score notation and print its canonical form")
)

func main() {
	flag.Parse()

	if *check != "" {
		p, err := notation.Parse(*check)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(notation.Format(p))
		return
	}

	cfg, err := backend.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	if *follow != "" {
		followGames(cfg.NATSURL, strings.TrimSuffix(*follow, "*"))
		return
	}

	store, err := backend.OpenStorage(*dataDir, cfg.MasterKey)
	if err != nil {
		log.Fatal(err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, arg := range flag.Args() {
		arg = strings.TrimPrefix(arg, *dataDir)
		var obj any
		var game *backend.Game
		if strings.Contains(arg, "games") {
			game = new(backend.Game)
			obj = game
		} else {
			obj = new(backend.Team)
		}
		if err := store.ReadDataFile(arg, obj); err != nil {
			log.Printf("%s: %v", arg, err)
			continue
		}
		fmt.Printf("=========== %s ===========\n", arg)
		if *lineOnly && game != nil {
			printLine(game)
			continue
		}
		if err := enc.Encode(obj); err != nil {
			log.Printf("JSON: %s: %v", arg, err)
		}
	}
}

// printLine writes a game's line score followed by its play-by-play.
func printLine(g *backend.Game) {
	view := g.Session.View()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 1, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for _, l := range view.Line {
		fmt.Fprintf(tw, "%d\t", l.Inning)
	}
	fmt.Fprint(tw, "R\t\n")

	fmt.Fprintf(tw, "%s\t", g.Away)
	for _, l := range view.Line {
		fmt.Fprintf(tw, "%d\t", l.Away)
	}
	fmt.Fprintf(tw, "%d\t\n", view.Score.Away)

	fmt.Fprintf(tw, "%s\t", g.Home)
	for _, l := range view.Line {
		if l.HomeBatted {
			fmt.Fprintf(tw, "%d\t", l.Home)
		} else {
			fmt.Fprint(tw, "x\t")
		}
	}
	fmt.Fprintf(tw, "%d\t\n", view.Score.Home)
	tw.Flush()

	fmt.Printf("\n%s, revision %d\n", view.Status, view.Revision)
	for _, e := range g.Session.Feed {
		fmt.Println(e.String())
	}
}

func followGames(url, gameId string) {
	if url == "" {
		log.Fatal("SK_NATS_URL is not set")
	}
	nc, err := events.Connect(url)
	if err != nil {
		log.Fatal(err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(gameId, func(ev events.PlayEvent) {
		text := ev.Text
		if text == "" {
			text = ev.Command
		}
		fmt.Printf("%s #%d %s %d-%d: %s\n", ev.GameID, ev.Revision, ev.View.Status, ev.View.Score.Away, ev.View.Score.Home, text)
	})
	if err != nil {
		log.Fatal(err)
	}
	defer sub.Unsubscribe()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
