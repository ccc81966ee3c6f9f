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
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ttbt-io/skorekeeper-live/backend/archive"
	"github.com/ttbt-io/skorekeeper-live/backend/events"
	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

// hubIdleTimeout is how long a Hub without clients stays in memory.
var hubIdleTimeout = 5 * time.Minute

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Message types for WebSocket communication
const (
	MsgTypeJoin  = "JOIN"
	MsgTypeAck   = "ACK"
	MsgTypeView  = "VIEW"
	MsgTypeError = "ERROR"
	MsgTypePing  = "PING"
	MsgTypePong  = "PONG"
)

// Message represents a WebSocket message
type Message struct {
	Type         string        `json:"type"`
	GameId       string        `json:"gameId,omitempty"`
	LastRevision int64         `json:"lastRevision,omitempty"`
	View         *scoring.View `json:"view,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// HubRequest types
const (
	ReqTypeRegister    = "REGISTER"
	ReqTypeWSJoin      = "WS_JOIN"
	ReqTypeHTTPLoad    = "HTTP_LOAD"
	ReqTypeHTTPCreate  = "HTTP_CREATE"
	ReqTypeHTTPCommand = "HTTP_COMMAND"
	ReqTypeHTTPDelete  = "HTTP_DELETE"
)

// HubRequest represents a request to the Hub
type HubRequest struct {
	Type    string
	Ctx     context.Context
	Client  *wsClient      // For WS requests
	UserId  string         // For HTTP requests
	Message Message        // For WS requests
	Command string         // For HTTP_COMMAND
	Body    CommandRequest // For HTTP_COMMAND
	Game    *Game          // For HTTP_CREATE
	Rules   scoring.Rules  // For HTTP_CREATE
	Reply   chan HubResponse
}

// HubResponse represents a response from the Hub
type HubResponse struct {
	Data  []byte // JSON encoded scoring.View
	Game  *Game  // Read-only; the Hub replaces it rather than mutating it
	Error error
}

var (
	ErrHubBusy         = errors.New("hub busy")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrGameExists      = errors.New("game already exists")
	ErrLineupsLocked   = errors.New("lineups cannot change once the game has started")
	ErrUnknownCommand  = errors.New("unknown command")
)

// HubConfig holds the services shared by every Hub.
type HubConfig struct {
	GameStore *GameStore
	TeamStore *TeamStore
	Registry  *Registry
	Events    events.Publisher
	Archive   *archive.Store // Optional
	Debug     bool
}

// Hub is the single writer of one game. It owns the live scoring session
// and pushes a fresh view to its clients after every commit.
type Hub struct {
	gameId string

	// Registered clients.
	clients map[*wsClient]bool

	// Inbound requests
	requests chan HubRequest

	// Unregister requests from clients.
	unregister chan *wsClient

	// Closed when the hub goroutine exits.
	done chan struct{}

	// In-memory state, nil until loaded.
	game    *Game
	session *scoring.Session

	cfg *HubConfig
	hm  *HubManager
}

func newHub(id string, hm *HubManager) *Hub {
	return &Hub{
		gameId:     id,
		requests:   make(chan HubRequest, 64),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		clients:    make(map[*wsClient]bool),
		cfg:        hm.cfg,
		hm:         hm,
	}
}

func (h *Hub) run() {
	idleTimer := time.NewTicker(hubIdleTimeout)
	defer idleTimer.Stop()

	for {
		select {
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case req := <-h.requests:
			h.handle(req)
		case <-idleTimer.C:
			if len(h.clients) == 0 && h.hm.removeIdle(h) {
				return
			}
		}
	}
}

func (h *Hub) handle(req HubRequest) {
	ctx := req.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	switch req.Type {
	case ReqTypeRegister:
		h.clients[req.Client] = true
		return
	case ReqTypeHTTPCreate:
		h.reply(req, h.handleCreate(req))
		return
	}

	if err := h.ensureLoaded(); err != nil {
		if req.Client != nil {
			req.Client.sendJSON(Message{Type: MsgTypeError, Error: "Game not found"})
		}
		h.reply(req, HubResponse{Error: err})
		return
	}

	switch req.Type {
	case ReqTypeWSJoin:
		h.handleWSJoin(req.Client, req.Message)
	case ReqTypeHTTPLoad:
		h.reply(req, h.handleHTTPLoad(req.UserId))
	case ReqTypeHTTPCommand:
		h.reply(req, h.handleCommand(ctx, req))
	case ReqTypeHTTPDelete:
		h.reply(req, h.handleDelete(req.UserId))
	}
}

func (h *Hub) reply(req HubRequest, resp HubResponse) {
	if req.Reply != nil {
		req.Reply <- resp
	}
}

func (h *Hub) ensureLoaded() error {
	if h.game != nil {
		return nil
	}
	g, err := h.cfg.GameStore.LoadGame(h.gameId)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Hub: Error loading game %s: %v", h.gameId, err)
		}
		return err
	}
	if g.Status == StatusDeleted {
		return os.ErrNotExist
	}
	h.game = g
	h.session = scoring.Restore(g.Session, h.cfg.GameStore)
	return nil
}

func (h *Hub) authorize(userId string, need AccessLevel) error {
	if GetGameAccess(userId, h.game.Metadata(), h.cfg.TeamStore) >= need {
		return nil
	}
	log.Printf("Forbidden: User %s needs %s access to game %s", maskEmail(userId), need, h.gameId)
	if userId == "" {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

func (h *Hub) viewResponse(view scoring.View) HubResponse {
	data, err := json.Marshal(view)
	return HubResponse{Data: data, Game: h.game, Error: err}
}

func (h *Hub) handleCreate(req HubRequest) HubResponse {
	if _, err := h.cfg.GameStore.LoadMetadata(h.gameId); err == nil {
		return HubResponse{Error: ErrGameExists}
	} else if !os.IsNotExist(err) {
		return HubResponse{Error: err}
	}

	g := req.Game
	g.ID = h.gameId
	session := scoring.NewSession(g.ID, req.Rules, h.cfg.GameStore)
	g.Session = session.Snapshot()
	if err := h.cfg.GameStore.SaveGame(g); err != nil {
		return HubResponse{Error: fmt.Errorf("%w: %v", scoring.ErrPersistenceFailure, err)}
	}
	h.game, h.session = g, session
	h.cfg.Registry.UpdateGame(g.Metadata())
	log.Printf("[HUB] Game %s created by %s", g.ID, maskEmail(g.OwnerID))
	return h.viewResponse(session.View())
}

func (h *Hub) handleHTTPLoad(userId string) HubResponse {
	if err := h.authorize(userId, AccessRead); err != nil {
		return HubResponse{Error: err}
	}
	return h.viewResponse(h.session.View())
}

func (h *Hub) handleCommand(ctx context.Context, req HubRequest) HubResponse {
	if err := h.authorize(req.UserId, AccessWrite); err != nil {
		return HubResponse{Error: err}
	}
	before := h.session.View()
	start := time.Now()
	view, err := h.execute(ctx, req.Command, req.Body)
	h.hm.metrics.ObserveCommand(req.Command, time.Since(start), err)
	if err != nil {
		if h.cfg.Debug {
			log.Printf("[HUB] Game %s: %s rejected: %v", h.gameId, req.Command, err)
		}
		return HubResponse{Error: err}
	}
	if view.Revision != before.Revision {
		h.committed(ctx, req, before, view)
	}
	return h.viewResponse(view)
}

func (h *Hub) execute(ctx context.Context, cmd string, body CommandRequest) (scoring.View, error) {
	switch cmd {
	case CmdLineups:
		return h.setLineups(*body.Lineups)
	case CmdStart:
		return h.session.StartWith(ctx, gameLineups{gs: h.cfg.GameStore, ts: h.cfg.TeamStore})
	case CmdSuspend:
		return h.session.Suspend(ctx)
	case CmdResume:
		return h.session.Resume(ctx)
	case CmdComplete:
		return h.session.Complete(ctx)
	case CmdUndo:
		return h.session.Undo(ctx)
	case CmdAtBat:
		return h.session.RecordAtBat(ctx, h.batterFor(body), body.Outcome, body.Advancement)
	case CmdRunnerPlay:
		return h.session.RecordRunnerPlay(ctx, body.Play, body.Advancement)
	}
	return scoring.View{}, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

// setLineups replaces the stored lineups of a game that has not started.
func (h *Hub) setLineups(l LineupPair) (scoring.View, error) {
	view := h.session.View()
	if view.Status != scoring.StatusSetup {
		return scoring.View{}, ErrLineupsLocked
	}
	clone := *h.game
	clone.Lineups = l
	clone.Session = h.session.Snapshot()
	if err := h.cfg.GameStore.SaveGame(&clone); err != nil {
		return scoring.View{}, fmt.Errorf("%w: %v", scoring.ErrPersistenceFailure, err)
	}
	h.game = &clone
	return view, nil
}

// batterFor picks the batter id of an at-bat. A batter named in notation
// is matched by id or name against the batting lineup. An empty result is
// rejected by the session as a batter mismatch.
func (h *Hub) batterFor(body CommandRequest) string {
	if body.BatterID != "" || body.batterName == "" {
		return body.BatterID
	}
	view := h.session.View()
	snap := h.session.Snapshot()
	for _, s := range snap.Lineups[view.Half.Batting()].Slots {
		if s.Player.ID == body.batterName || strings.EqualFold(s.Player.Name, body.batterName) {
			return s.Player.ID
		}
	}
	return body.batterName
}

// committed publishes a new revision: index, clients, event stream and,
// once the game is over, the archive.
func (h *Hub) committed(ctx context.Context, req HubRequest, before, view scoring.View) {
	if g, err := h.cfg.GameStore.LoadGame(h.gameId); err == nil {
		h.game = g
	} else {
		log.Printf("Hub: reload of game %s failed: %v", h.gameId, err)
		clone := *h.game
		clone.Session = h.session.Snapshot()
		h.game = &clone
	}
	h.cfg.Registry.UpdateGame(h.game.Metadata())
	h.broadcast(Message{Type: MsgTypeView, GameId: h.gameId, View: &view})

	ev := events.PlayEvent{
		GameID:   h.gameId,
		Revision: view.Revision,
		Command:  req.Command,
		UserID:   req.UserId,
		View:     view,
		Time:     time.Now().UnixNano(),
	}
	switch req.Command {
	case CmdAtBat, CmdRunnerPlay, CmdComplete:
		ev.Text = view.LastPlay
	}
	if err := h.cfg.Events.Publish(ctx, ev); err != nil {
		log.Printf("[HUB] Game %s: publish revision %d: %v", h.gameId, view.Revision, err)
	}

	if view.Status == scoring.StatusCompleted && before.Status != scoring.StatusCompleted && h.cfg.Archive != nil {
		g := h.game
		err := h.cfg.Archive.RecordGame(ctx, archive.Game{
			ID:       g.ID,
			Date:     g.Date,
			Event:    g.Event,
			Location: g.Location,
			Away:     g.Away,
			Home:     g.Home,
			Snapshot: g.Session,
		})
		if err != nil {
			log.Printf("[ARCHIVE] Game %s: %v", g.ID, err)
		} else {
			log.Printf("[ARCHIVE] Game %s archived at revision %d", g.ID, view.Revision)
		}
	}
}

func (h *Hub) handleDelete(userId string) HubResponse {
	if err := h.authorize(userId, AccessAdmin); err != nil {
		return HubResponse{Error: err}
	}
	if err := h.cfg.GameStore.DeleteGame(h.gameId); err != nil {
		return HubResponse{Error: err}
	}
	h.cfg.Registry.DeleteGame(h.gameId)
	h.broadcast(Message{Type: MsgTypeError, GameId: h.gameId, Error: "Game deleted"})
	h.game, h.session = nil, nil
	log.Printf("[HUB] Game %s deleted by %s", h.gameId, maskEmail(userId))
	return HubResponse{}
}

func (h *Hub) handleWSJoin(c *wsClient, msg Message) {
	if c == nil || !h.clients[c] {
		return
	}
	if err := h.authorize(c.userId, AccessRead); err != nil {
		c.sendJSON(Message{Type: MsgTypeError, Error: "Forbidden: You do not have access to this game"})
		return
	}
	c.joined = true
	view := h.session.View()
	if msg.LastRevision != 0 && msg.LastRevision == view.Revision {
		c.sendJSON(Message{Type: MsgTypeAck, GameId: h.gameId})
		return
	}
	c.sendJSON(Message{Type: MsgTypeView, GameId: h.gameId, View: &view})
}

// broadcast sends msg to every joined client, dropping those that fall behind.
func (h *Hub) broadcast(msg Message) {
	for client := range h.clients {
		if !client.joined {
			continue
		}
		select {
		case client.send <- msg:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// HubManager manages hubs for different games
type HubManager struct {
	cfg     *HubConfig
	hubs    map[string]*Hub
	mu      sync.Mutex
	metrics *Metrics
}

func NewHubManager(cfg HubConfig) *HubManager {
	if cfg.Events == nil {
		cfg.Events = events.Noop{}
	}
	return &HubManager{
		cfg:     &cfg,
		hubs:    make(map[string]*Hub),
		metrics: NewMetrics(),
	}
}

// Metrics returns the command counters shared by all hubs.
func (hm *HubManager) Metrics() *Metrics {
	return hm.metrics
}

// GetHub returns the hub of a game, starting it if needed.
func (hm *HubManager) GetHub(id string) *Hub {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.getHubLocked(id)
}

func (hm *HubManager) getHubLocked(id string) *Hub {
	if hub, ok := hm.hubs[id]; ok {
		return hub
	}
	hub := newHub(id, hm)
	hm.hubs[id] = hub
	go hub.run()
	return hub
}

// Send queues req on the game's hub without blocking. It returns
// ErrHubBusy when the queue is full.
func (hm *HubManager) Send(id string, req HubRequest) error {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hub := hm.getHubLocked(id)
	if req.Client != nil {
		req.Client.hub = hub
	}
	select {
	case hub.requests <- req:
		return nil
	default:
		log.Printf("Warning: Hub channel full for game %s", id)
		return ErrHubBusy
	}
}

// Do sends req to the game's hub and waits for its reply.
func (hm *HubManager) Do(ctx context.Context, id string, req HubRequest) (HubResponse, error) {
	req.Ctx = ctx
	req.Reply = make(chan HubResponse, 1)
	if err := hm.Send(id, req); err != nil {
		return HubResponse{}, err
	}
	select {
	case resp := <-req.Reply:
		return resp, resp.Error
	case <-ctx.Done():
		return HubResponse{}, ctx.Err()
	}
}

// removeIdle drops h if nothing is queued. Senders hold hm.mu, so no
// request can reach h once it is removed.
func (hm *HubManager) removeIdle(h *Hub) bool {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	if len(h.requests) > 0 {
		return false
	}
	if hm.hubs[h.gameId] == h {
		delete(hm.hubs, h.gameId)
	}
	close(h.done)
	return true
}

// Len returns the number of live hubs.
func (hm *HubManager) Len() int {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return len(hm.hubs)
}

// wsClient is a middleman between the websocket connection and the hub.
type wsClient struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan Message

	userId string
	gameId string

	// joined is set by the hub goroutine once read access is confirmed.
	joined bool
}

// readPump pumps messages from the websocket connection to the hub.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypeJoin:
			select {
			case c.hub.requests <- HubRequest{Type: ReqTypeWSJoin, Client: c, Message: msg}:
			case <-c.hub.done:
				return
			}
		case MsgTypePing:
			c.sendJSON(Message{Type: MsgTypePong})
		default:
			log.Printf("Unknown message type: %s", msg.Type)
			c.sendJSON(Message{Type: MsgTypeError, Error: "Unknown message type"})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendJSON queues msg without blocking; it is dropped if the buffer is full.
func (c *wsClient) sendJSON(msg Message) {
	select {
	case c.send <- msg:
	default:
	}
}

// ServeWS handles websocket requests from the peer.
func ServeWS(hm *HubManager, w http.ResponseWriter, r *http.Request) {
	userId := getUserID(r)

	gameId := r.URL.Query().Get("gameId")
	if gameId == "" || !isValidUUID(gameId) {
		http.Error(w, "Invalid gameId", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan Message, 256), userId: userId, gameId: gameId}
	if err := hm.Send(gameId, HubRequest{Type: ReqTypeRegister, Client: client}); err != nil {
		conn.WriteJSON(Message{Type: MsgTypeError, Error: "Server busy, try again later"})
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
