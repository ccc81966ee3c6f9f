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
	"log"
	"net/http"
	"strings"
)

type contextKey struct{}

// userIDKey is the context key for the authenticated user's ID (email).
// The associated value is always a string.
var userIDKey contextKey

// getUserID returns the UserID from the request context, if present.
func getUserID(r *http.Request) string {
	if val := r.Context().Value(userIDKey); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// normalizeEmail ensures consistent casing and whitespace for User IDs.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// maskEmail obscures an email address for safe logging.
// e.g. "user@example.com" -> "u***@example.com"
func maskEmail(email string) string {
	if email == "" {
		return "<empty>"
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return "****"
	}
	return local[:1] + "***@" + domain
}

type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessRead
	AccessWrite
	AccessAdmin
)

func (l AccessLevel) String() string {
	switch l {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessAdmin:
		return "admin"
	}
	return "none"
}

func containsUser(list []string, userId string) bool {
	for _, u := range list {
		if normalizeEmail(u) == userId {
			return true
		}
	}
	return false
}

// roleOf returns the access a team role grants. userId must be normalized.
func (t *Team) roleOf(userId string) AccessLevel {
	switch {
	case userId == "":
		return AccessNone
	case normalizeEmail(t.OwnerID) == userId, containsUser(t.Roles.Admins, userId):
		return AccessAdmin
	case containsUser(t.Roles.Scorekeepers, userId):
		return AccessWrite
	case containsUser(t.Roles.Spectators, userId):
		return AccessRead
	}
	return AccessNone
}

// GetGameAccess calculates the effective access level for a user on a game.
// The owner is admin, then explicit grants apply, then roles on either
// linked team, then public read access.
func GetGameAccess(userId string, game GameMetadata, tStore *TeamStore) AccessLevel {
	userId = normalizeEmail(userId)
	ownerId := normalizeEmail(game.OwnerID)
	log.Printf("[AUTH] Checking access for user=%s, gameId=%s, gameOwner=%s", maskEmail(userId), game.ID, maskEmail(ownerId))

	if userId != "" && ownerId == userId {
		return AccessAdmin
	}

	if userId != "" {
		for u, role := range game.Permissions.Users {
			if normalizeEmail(u) != userId {
				continue
			}
			switch role {
			case "write":
				return AccessWrite
			case "read":
				return AccessRead
			}
		}
	}

	level := AccessNone
	if userId != "" && tStore != nil {
		for _, teamId := range []string{game.AwayTeamID, game.HomeTeamID} {
			if teamId == "" || level == AccessAdmin {
				continue
			}
			t, err := tStore.LoadTeam(teamId)
			if err != nil {
				continue
			}
			level = max(level, t.roleOf(userId))
		}
	}
	if level > AccessNone {
		log.Printf("[AUTH] User %s has %s access through a team", maskEmail(userId), level)
		return level
	}

	if game.Permissions.Public == "read" {
		return AccessRead
	}
	return AccessNone
}

// GetTeamAccess calculates the effective access level for a user on a team.
func GetTeamAccess(userId string, team Team) AccessLevel {
	return team.roleOf(normalizeEmail(userId))
}
