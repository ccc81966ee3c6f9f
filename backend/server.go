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
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/google/uuid"
	"github.com/ttbt-io/skorekeeper-live/backend/archive"
	"github.com/ttbt-io/skorekeeper-live/backend/events"
	"github.com/ttbt-io/skorekeeper-live/backend/notation"
	"github.com/ttbt-io/skorekeeper-live/backend/scoring"
)

func generateETag(data []byte) string {
	return fmt.Sprintf("\"%x\"", sha256.Sum256(data))
}

func hubBusyResponse(w http.ResponseWriter, retryAfter string) {
	w.Header().Set("Retry-After", retryAfter)
	http.Error(w, "Too Many Requests: Server is busy", http.StatusTooManyRequests)
}

func parsePagination(r *http.Request) (int, int, string, string, string) {
	limit := 50
	offset := 0
	sortBy := r.URL.Query().Get("sortBy")
	order := r.URL.Query().Get("order")
	query := r.URL.Query().Get("q")

	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil {
			offset = val
		}
	}

	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset, sortBy, order, query
}

// writeJSON writes v with an ETag, answering 304 when the client has it.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, ok := v.([]byte)
	if !ok {
		var err error
		if data, err = json.Marshal(v); err != nil {
			log.Printf("Internal Server Error during JSON Marshal: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	etag := generateETag(data)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

type errorBody struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

// errorStatus maps a Hub or scoring error to an HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, ErrGameExists), errors.Is(err, ErrLineupsLocked):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, ErrUnknownCommand):
		return http.StatusNotFound, "UNKNOWN_COMMAND"
	case errors.Is(err, notation.ErrSyntax):
		return http.StatusBadRequest, "NOTATION_SYNTAX"
	}
	code := scoring.CodeOf(err)
	switch code {
	case scoring.CodeInvalidGameState, scoring.CodeBatterMismatch:
		return http.StatusConflict, string(code)
	case scoring.CodeInvalidAdvancement, scoring.CodeLineupInvalid:
		return http.StatusBadRequest, string(code)
	case scoring.CodePersistenceFailure:
		return http.StatusServiceUnavailable, string(code)
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Internal Server Error: %v", err)
		msg = "Internal Server Error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Code: code, Error: msg})
}

// Options represent server options.
type Options struct {
	Addr        string
	Cert        *tls.Certificate
	DataDir     string
	UseMockAuth bool
	Debug       bool
	GameStore   *GameStore
	TeamStore   *TeamStore
	Storage     *storage.Storage
	MasterKey   crypto.MasterKey
	Registry    *Registry
	Listener    net.Listener

	// Auth Options
	AuthCookieName string
	AuthJWKSURL    string

	// Access Control Options
	BootstrapAdmin string

	// Rules applies to new games that do not set their own.
	Rules scoring.Rules

	// Optional integrations.
	Events  events.Publisher
	Archive *archive.Store
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	registry   *Registry
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.registry.StopGC()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// StartServer starts the web server and registers the API handlers.
func StartServer(opts Options) (*Server, error) {
	handler, registry, err := NewServerHandler(opts)
	if err != nil {
		return nil, err
	}
	registry.StartGC()

	httpServer := &http.Server{
		Addr:    opts.Addr,
		Handler: handler,
	}

	if opts.Cert != nil {
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*opts.Cert},
		}
	}

	go func() {
		var err error
		if opts.Listener != nil {
			if httpServer.TLSConfig != nil {
				log.Printf("Starting HTTPS server on provided listener %s...", opts.Listener.Addr())
				err = httpServer.ServeTLS(opts.Listener, "", "")
			} else {
				log.Printf("Starting HTTP server on provided listener %s...", opts.Listener.Addr())
				err = httpServer.Serve(opts.Listener)
			}
		} else {
			log.Printf("Server starting on port %s...\n", opts.Addr)
			if opts.Cert != nil {
				err = httpServer.ListenAndServeTLS("", "")
			} else if _, statErr := os.Stat("certs/cert.pem"); statErr == nil {
				log.Println("Starting HTTPS server using certs/cert.pem...")
				err = httpServer.ListenAndServeTLS("certs/cert.pem", "certs/key.pem")
			} else {
				log.Println("Starting HTTP server...")
				err = httpServer.ListenAndServe()
			}
		}

		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{httpServer: httpServer, registry: registry}, nil
}

// api holds the services behind the HTTP handlers.
type api struct {
	opts     Options
	games    *GameStore
	teams    *TeamStore
	registry *Registry
	access   *AccessControl
	hm       *HubManager
	debugf   func(string, ...any)
}

// NewServerHandler creates and configures the HTTP handler for the server.
// The returned Registry's garbage collector is not started.
func NewServerHandler(opts Options) (http.Handler, *Registry, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Storage == nil {
		opts.Storage = storage.New(opts.DataDir, opts.MasterKey)
	}

	store := opts.GameStore
	if store == nil {
		store = NewGameStore(opts.DataDir, opts.Storage)
	}
	store.Debug = opts.Debug
	tStore := opts.TeamStore
	if tStore == nil {
		tStore = NewTeamStore(opts.DataDir, opts.Storage)
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry(store, tStore)
	}
	accessControl, err := NewAccessControl(opts.Storage, opts.BootstrapAdmin)
	if err != nil {
		return nil, nil, fmt.Errorf("access policy: %w", err)
	}

	debugf := func(string, ...any) {}
	if opts.Debug {
		debugf = func(f string, a ...any) {
			log.Printf("[DEBUG BACKEND] "+f, a...)
		}
	}

	a := &api{
		opts:     opts,
		games:    store,
		teams:    tStore,
		registry: registry,
		access:   accessControl,
		hm: NewHubManager(HubConfig{
			GameStore: store,
			TeamStore: tStore,
			Registry:  registry,
			Events:    opts.Events,
			Archive:   opts.Archive,
			Debug:     opts.Debug,
		}),
		debugf: debugf,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /api/me", a.handleMe)
	mux.HandleFunc("GET /api/admin/policy", a.handleGetPolicy)
	mux.HandleFunc("POST /api/admin/policy", a.handleSetPolicy)
	mux.HandleFunc("GET /api/admin/metrics", a.handleMetrics)

	mux.HandleFunc("POST /api/games", a.handleCreateGame)
	mux.HandleFunc("GET /api/games", a.handleListGames)
	mux.HandleFunc("GET /api/games/{id}", a.handleGetGame)
	mux.HandleFunc("DELETE /api/games/{id}", a.handleDeleteGame)
	mux.HandleFunc("GET /api/games/{id}/box", a.handleBoxScore)
	mux.HandleFunc("GET /api/games/{id}/archive", a.handleArchive)
	mux.HandleFunc("POST /api/games/{id}/{cmd}", a.handleCommand)

	mux.HandleFunc("POST /api/teams", a.handleSaveTeam)
	mux.HandleFunc("GET /api/teams", a.handleListTeams)
	mux.HandleFunc("GET /api/teams/{id}", a.handleGetTeam)
	mux.HandleFunc("DELETE /api/teams/{id}", a.handleDeleteTeam)

	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		if userId := getUserID(r); userId != "" {
			if allowed, msg := accessControl.IsAllowed(userId); !allowed {
				http.Error(w, "Forbidden: "+msg, http.StatusForbidden)
				return
			}
		}
		ServeWS(a.hm, w, r)
	})

	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		if opts.UseMockAuth {
			http.SetCookie(w, &http.Cookie{
				Name:  "mock_auth_user",
				Value: "test@example.com",
				Path:  "/",
			})
		} else if userId := getUserID(r); userId == "" || !isValidEmail(userId) {
			http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Login successful.\n"))
	})

	// Mock SSO endpoints for local development
	if opts.UseMockAuth {
		mux.HandleFunc("/.sso/{$}", ssoStatusHandler)
		mux.HandleFunc("/.sso/logout", ssoLogoutHandler)
	}

	handler := http.Handler(mux)
	if opts.UseMockAuth {
		handler = mockAuthMiddleware(opts, handler)
	} else {
		handler = jwtAuthMiddleware(opts, handler)
	}
	handler = loggingMiddleware(handler)
	handler = securityMiddleware(handler)
	handler = cacheControlMiddleware(handler)

	return handler, registry, nil
}

// authenticated returns the caller's id, or writes 403 if the caller is
// anonymous or denied by the access policy.
func (a *api) authenticated(w http.ResponseWriter, r *http.Request) (string, bool) {
	userId := getUserID(r)
	if userId == "" || !isValidEmail(userId) {
		http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
		return "", false
	}
	if allowed, msg := a.access.IsAllowed(userId); !allowed {
		http.Error(w, "Forbidden: "+msg, http.StatusForbidden)
		return "", false
	}
	return userId, true
}

// reader returns the caller's id, which may be empty for public games.
func (a *api) reader(w http.ResponseWriter, r *http.Request) (string, bool) {
	userId := getUserID(r)
	if userId == "" {
		return "", true
	}
	return a.authenticated(w, r)
}

func gameID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !isValidUUID(id) {
		http.Error(w, "Bad Request: gameId is missing or invalid", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// do runs req on the game's hub and writes any error. It reports whether
// the caller should write a response.
func (a *api) do(w http.ResponseWriter, r *http.Request, gameId string, req HubRequest, retryAfter string) (HubResponse, bool) {
	resp, err := a.hm.Do(r.Context(), gameId, req)
	switch {
	case err == nil:
		return resp, true
	case errors.Is(err, ErrHubBusy):
		hubBusyResponse(w, retryAfter)
	case r.Context().Err() != nil:
		// Client went away.
	default:
		a.debugf("%s %s on game %s: %v", req.Type, req.Command, gameId, err)
		writeError(w, err)
	}
	return HubResponse{}, false
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	userId := getUserID(r)
	if userId == "" || !isValidEmail(userId) {
		http.Error(w, "Unauthenticated", http.StatusForbidden)
		return
	}

	allowed, msg := a.access.IsAllowed(userId)
	maxGames, maxTeams := a.access.GetUserQuotas(userId)
	resp := map[string]any{
		"id":      userId,
		"allowed": allowed,
		"admin":   a.access.IsAdmin(userId),
		"message": msg,
		"quotas": map[string]int{
			"maxGames":  maxGames,
			"maxTeams":  maxTeams,
			"gamesUsed": a.registry.CountOwnedGames(userId),
			"teamsUsed": a.registry.CountOwnedTeams(userId),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (a *api) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	if !a.access.IsAdmin(getUserID(r)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	policy := a.access.GetAccessPolicy()
	if policy == nil {
		policy = &UserAccessPolicy{
			DefaultPolicy: "allow",
			Admins:        []string{},
			Users:         make(map[string]UserOverride),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(policy)
}

func (a *api) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	userId := getUserID(r)
	if !a.access.IsAdmin(userId) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	var p UserAccessPolicy
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
		return
	}
	if p.DefaultPolicy == "" {
		p.DefaultPolicy = "allow"
	}
	if err := a.access.UpdateAccessPolicy(&p); err != nil {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("[AUTH] Access policy updated by %s", maskEmail(userId))
	w.WriteHeader(http.StatusOK)
}

func (a *api) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !a.access.IsAdmin(getUserID(r)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	report := a.hm.Metrics().Report()
	report.LiveHubs = a.hm.Len()
	report.Games = a.registry.Len()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (a *api) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.authenticated(w, r)
	if !ok {
		return
	}
	var req GameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
		return
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().Format(time.RFC3339)
	}
	if err := validateGameRequest(req); err != nil {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}
	for _, teamId := range []string{req.AwayTeamID, req.HomeTeamID} {
		if teamId == "" {
			continue
		}
		if _, err := a.teams.LoadTeam(teamId); err != nil {
			http.Error(w, "Bad Request: unknown team "+teamId, http.StatusBadRequest)
			return
		}
	}
	if err := a.access.CheckGameQuota(userId, a.registry.CountOwnedGames(userId)); err != nil {
		http.Error(w, "Forbidden: "+err.Error(), http.StatusForbidden)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	rules := req.Rules
	if rules == (scoring.Rules{}) {
		rules = a.opts.Rules
	}
	if req.Lineups.Away.Team == "" {
		req.Lineups.Away.Team = req.Away
	}
	if req.Lineups.Home.Team == "" {
		req.Lineups.Home.Team = req.Home
	}
	g := &Game{
		ID:          req.ID,
		Date:        req.Date,
		Location:    req.Location,
		Event:       req.Event,
		Away:        req.Away,
		Home:        req.Home,
		AwayTeamID:  req.AwayTeamID,
		HomeTeamID:  req.HomeTeamID,
		OwnerID:     userId,
		Permissions: req.Permissions,
		Lineups:     req.Lineups,
	}
	resp, ok := a.do(w, r, req.ID, HubRequest{Type: ReqTypeHTTPCreate, UserId: userId, Game: g, Rules: rules}, retryAfterSave)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/api/games/"+req.ID)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(struct {
		ID   string          `json:"id"`
		View json.RawMessage `json:"view"`
	}{req.ID, resp.Data})
}

func (a *api) handleListGames(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.authenticated(w, r)
	if !ok {
		return
	}
	limit, offset, sortBy, order, query := parsePagination(r)
	all := a.registry.ListGames(userId, sortBy, order, query)
	total := len(all)

	page := make([]GameMetadata, 0)
	if offset < total {
		page = all[offset:min(offset+limit, total)]
	}

	respData := struct {
		Data []GameMetadata `json:"data"`
		Meta struct {
			Total  int `json:"total"`
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
		} `json:"meta"`
	}{
		Data: page,
	}
	respData.Meta.Total = total
	respData.Meta.Offset = offset
	respData.Meta.Limit = limit
	writeJSON(w, r, respData)
}

func (a *api) handleGetGame(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.reader(w, r)
	if !ok {
		return
	}
	gameId, ok := gameID(w, r)
	if !ok {
		return
	}
	resp, ok := a.do(w, r, gameId, HubRequest{Type: ReqTypeHTTPLoad, UserId: userId}, retryAfterLoad)
	if !ok {
		return
	}
	writeJSON(w, r, resp.Data)
}

func (a *api) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.authenticated(w, r)
	if !ok {
		return
	}
	gameId, ok := gameID(w, r)
	if !ok {
		return
	}
	if _, ok := a.do(w, r, gameId, HubRequest{Type: ReqTypeHTTPDelete, UserId: userId}, retryAfterSave); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BoxScoreResponse is the body of GET /api/games/{id}/box.
type BoxScoreResponse struct {
	GameID   string               `json:"gameId"`
	Revision int64                `json:"revision"`
	Status   scoring.Status       `json:"status"`
	Away     string               `json:"away"`
	Home     string               `json:"home"`
	Score    scoring.Score        `json:"score"`
	Line     []scoring.InningLine `json:"line"`
	Batting  scoring.BoxScore     `json:"batting"`
	Feed     []string             `json:"feed"`
}

func (a *api) handleBoxScore(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.reader(w, r)
	if !ok {
		return
	}
	gameId, ok := gameID(w, r)
	if !ok {
		return
	}
	resp, ok := a.do(w, r, gameId, HubRequest{Type: ReqTypeHTTPLoad, UserId: userId}, retryAfterLoad)
	if !ok {
		return
	}
	g := resp.Game
	view := g.Session.View()
	box := BoxScoreResponse{
		GameID:   g.ID,
		Revision: view.Revision,
		Status:   view.Status,
		Away:     g.Away,
		Home:     g.Home,
		Score:    view.Score,
		Line:     view.Line,
		Batting:  g.Session.Stats,
		Feed:     make([]string, 0, len(g.Session.Feed)),
	}
	for _, e := range g.Session.Feed {
		box.Feed = append(box.Feed, e.String())
	}
	writeJSON(w, r, box)
}

func (a *api) handleArchive(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.reader(w, r)
	if !ok {
		return
	}
	gameId, ok := gameID(w, r)
	if !ok {
		return
	}
	if a.opts.Archive == nil {
		http.Error(w, "Not Found: archive is disabled", http.StatusNotFound)
		return
	}
	// Access follows the live game.
	if _, ok := a.do(w, r, gameId, HubRequest{Type: ReqTypeHTTPLoad, UserId: userId}, retryAfterLoad); !ok {
		return
	}

	ctx := r.Context()
	sum, err := a.opts.Archive.Game(ctx, gameId)
	if errors.Is(err, archive.ErrNotFound) {
		http.Error(w, "Not Found: game is not archived", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[ARCHIVE] Game %s: %v", gameId, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	line, err := a.opts.Archive.LineScore(ctx, gameId)
	if err != nil {
		log.Printf("[ARCHIVE] Game %s: %v", gameId, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	box, err := a.opts.Archive.BoxScore(ctx, gameId)
	if err != nil {
		log.Printf("[ARCHIVE] Game %s: %v", gameId, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, struct {
		Game    archive.Summary      `json:"game"`
		Line    []scoring.InningLine `json:"line"`
		Batting scoring.BoxScore     `json:"batting"`
	}{sum, line, box})
}

func (a *api) handleCommand(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.authenticated(w, r)
	if !ok {
		return
	}
	gameId, ok := gameID(w, r)
	if !ok {
		return
	}
	cmd := r.PathValue("cmd")
	switch cmd {
	case CmdLineups, CmdStart, CmdSuspend, CmdResume, CmdComplete, CmdUndo, CmdAtBat, CmdRunnerPlay:
	default:
		http.Error(w, "Not Found: unknown command", http.StatusNotFound)
		return
	}

	var body CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
		return
	}
	if err := normalizeCommand(cmd, &body); err != nil {
		if errors.Is(err, notation.ErrSyntax) {
			writeError(w, err)
			return
		}
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}

	a.debugf("command %s on game %s by %s", cmd, gameId, maskEmail(userId))
	resp, ok := a.do(w, r, gameId, HubRequest{Type: ReqTypeHTTPCommand, UserId: userId, Command: cmd, Body: body}, retryAfterCommand)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(resp.Data)
}

func (a *api) handleSaveTeam(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.authenticated(w, r)
	if !ok {
		return
	}
	var req TeamRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
		return
	}
	if err := validateTeamRequest(req); err != nil {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}

	t := &Team{
		ID:        req.ID,
		Name:      req.Name,
		ShortName: req.ShortName,
		Color:     req.Color,
		Roster:    req.Roster,
		Roles:     req.Roles,
	}
	existing, err := a.teams.LoadTeam(req.ID)
	switch {
	case err == nil:
		if GetTeamAccess(userId, *existing) < AccessWrite {
			http.Error(w, "Forbidden: You do not have permission to manage this team", http.StatusForbidden)
			return
		}
		// Enforce existing ownership
		t.OwnerID = existing.OwnerID
	case errors.Is(err, os.ErrNotExist):
		t.OwnerID = userId
		if err := a.access.CheckTeamQuota(userId, a.registry.CountOwnedTeams(userId)); err != nil {
			http.Error(w, "Forbidden: "+err.Error(), http.StatusForbidden)
			return
		}
	default:
		log.Printf("Error checking existing team %s: %v", req.ID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := a.teams.SaveTeam(t); err != nil {
		log.Printf("Internal Server Error during SaveTeam: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, t)
}

func (a *api) handleListTeams(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.authenticated(w, r)
	if !ok {
		return
	}
	teams := a.registry.ListTeams(userId, r.URL.Query().Get("q"))
	if teams == nil {
		teams = []Team{}
	}
	writeJSON(w, r, struct {
		Data []Team `json:"data"`
	}{teams})
}

func (a *api) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.authenticated(w, r)
	if !ok {
		return
	}
	t, ok := a.loadTeam(w, r, userId, AccessRead)
	if !ok {
		return
	}
	writeJSON(w, r, t)
}

func (a *api) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	userId, ok := a.authenticated(w, r)
	if !ok {
		return
	}
	t, ok := a.loadTeam(w, r, userId, AccessAdmin)
	if !ok {
		return
	}
	if err := a.teams.DeleteTeam(t.ID); err != nil {
		log.Printf("Internal Server Error during DeleteTeam: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) loadTeam(w http.ResponseWriter, r *http.Request, userId string, need AccessLevel) (*Team, bool) {
	teamId := r.PathValue("id")
	if !isValidUUID(teamId) {
		http.Error(w, "Bad Request: teamId is missing or invalid", http.StatusBadRequest)
		return nil, false
	}
	t, err := a.teams.LoadTeam(teamId)
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "Not Found: Team not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Printf("Internal Server Error during LoadTeam: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if GetTeamAccess(userId, *t) < need {
		http.Error(w, "Forbidden: You do not have access to this team", http.StatusForbidden)
		return nil, false
	}
	return t, true
}

// cacheControlMiddleware keeps API responses out of shared caches.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/.sso/") {
			w.Header().Set("Cache-Control", "private, no-cache, no-transform")
		}
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// mockAuthMiddleware simulates TLSProxy by checking for a cookie and setting the UserID context.
func mockAuthMiddleware(opts Options, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("mock_auth_user")
		if err == nil && cookie.Value != "" {
			ctx := context.WithValue(r.Context(), userIDKey, normalizeEmail(cookie.Value))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ssoStatusHandler returns the current user status.
func ssoStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	userId := getUserID(r)
	if userId == "" {
		w.Write([]byte("null\n"))
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"email": userId,
		"name":  "Test User",
	})
}

// ssoLogoutHandler logs the user out (clears cookie).
func ssoLogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:    "mock_auth_user",
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
	w.WriteHeader(http.StatusOK)
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
