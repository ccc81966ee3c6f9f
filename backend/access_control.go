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
	"os"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"
)

const policyFile = "policy.json"

// UserAccessPolicy defines global access rules and quotas.
type UserAccessPolicy struct {
	DefaultPolicy      string                  `json:"defaultPolicy"` // "allow" or "deny"
	DefaultMaxTeams    int                     `json:"defaultMaxTeams"`
	DefaultMaxGames    int                     `json:"defaultMaxGames"`
	DefaultDenyMessage string                  `json:"defaultDenyMessage"`
	Admins             []string                `json:"admins"` // List of admin emails
	Users              map[string]UserOverride `json:"users"`
}

// UserOverride defines specific access rules for a single user.
type UserOverride struct {
	Access   string `json:"access"` // "allow" or "deny"
	MaxTeams int    `json:"maxTeams"`
	MaxGames int    `json:"maxGames"`
}

func validatePolicy(p *UserAccessPolicy) error {
	if p.DefaultPolicy != "" && p.DefaultPolicy != "allow" && p.DefaultPolicy != "deny" {
		return fmt.Errorf("invalid default policy: %s", p.DefaultPolicy)
	}
	if err := validateStringLen(p.DefaultDenyMessage, 500, "deny message"); err != nil {
		return err
	}
	for _, a := range p.Admins {
		if !isValidEmail(a) {
			return fmt.Errorf("invalid admin: %s", a)
		}
	}
	for u, o := range p.Users {
		if !isValidEmail(u) {
			return fmt.Errorf("invalid user: %s", u)
		}
		if o.Access != "" && o.Access != "allow" && o.Access != "deny" {
			return fmt.Errorf("invalid access for %s: %s", u, o.Access)
		}
	}
	return nil
}

// AccessControl manages user permissions and quotas. The policy is kept
// in memory and persisted in the encrypted store.
type AccessControl struct {
	storage *storage.Storage
	// Bootstrap admin email (from flag)
	bootstrapAdmin string

	mu     sync.RWMutex
	policy *UserAccessPolicy
}

// NewAccessControl creates a new AccessControl service and loads any
// persisted policy. s may be nil for an in-memory policy.
func NewAccessControl(s *storage.Storage, bootstrapAdmin string) (*AccessControl, error) {
	ac := &AccessControl{
		storage:        s,
		bootstrapAdmin: normalizeEmail(bootstrapAdmin),
	}
	if s == nil {
		return ac, nil
	}
	var p UserAccessPolicy
	if err := s.ReadDataFile(policyFile, &p); err != nil {
		if os.IsNotExist(err) {
			return ac, nil
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	ac.policy = &p
	return ac, nil
}

// GetAccessPolicy returns the current access policy, or nil when none is set.
func (ac *AccessControl) GetAccessPolicy() *UserAccessPolicy {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.policy
}

// UpdateAccessPolicy validates, persists, then installs a new policy.
func (ac *AccessControl) UpdateAccessPolicy(p *UserAccessPolicy) error {
	if err := validatePolicy(p); err != nil {
		return err
	}
	if p.Users == nil {
		p.Users = make(map[string]UserOverride)
	}
	users := make(map[string]UserOverride, len(p.Users))
	for u, o := range p.Users {
		users[normalizeEmail(u)] = o
	}
	p.Users = users

	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.storage != nil {
		if err := ac.storage.SaveDataFile(policyFile, p); err != nil {
			return fmt.Errorf("storage.SaveDataFile: %w", err)
		}
	}
	ac.policy = p
	return nil
}

// IsAllowed checks if a user is allowed to access the service.
// Returns allowed status and a denial message (if denied).
func (ac *AccessControl) IsAllowed(email string) (bool, string) {
	if email == "" {
		return false, "Authentication required"
	}
	if ac.IsAdmin(email) {
		return true, ""
	}
	policy := ac.GetAccessPolicy()
	if policy == nil {
		// Default open.
		return true, ""
	}
	if override, ok := policy.Users[normalizeEmail(email)]; ok && override.Access != "" {
		if override.Access == "deny" {
			return false, policy.DefaultDenyMessage
		}
		return true, ""
	}
	if policy.DefaultPolicy == "deny" {
		return false, policy.DefaultDenyMessage
	}
	return true, ""
}

// IsAdmin checks if a user has admin privileges.
func (ac *AccessControl) IsAdmin(email string) bool {
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	if ac.bootstrapAdmin != "" && email == ac.bootstrapAdmin {
		return true
	}
	policy := ac.GetAccessPolicy()
	if policy == nil {
		return false
	}
	for _, admin := range policy.Admins {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

// GetUserQuotas returns the effective max games and teams for a user.
// Zero means unlimited.
func (ac *AccessControl) GetUserQuotas(email string) (maxGames, maxTeams int) {
	policy := ac.GetAccessPolicy()
	if policy == nil {
		return 0, 0
	}
	maxGames, maxTeams = policy.DefaultMaxGames, policy.DefaultMaxTeams
	if override, ok := policy.Users[normalizeEmail(email)]; ok {
		if override.MaxGames != 0 {
			maxGames = override.MaxGames
		}
		if override.MaxTeams != 0 {
			maxTeams = override.MaxTeams
		}
	}
	return
}

// CheckGameQuota verifies if a user can create a new game.
func (ac *AccessControl) CheckGameQuota(email string, currentCount int) error {
	limit, _ := ac.GetUserQuotas(email)
	// A limit of 0 means unlimited. A negative limit means none.
	if limit != 0 && currentCount >= limit {
		return fmt.Errorf("game limit reached (%d)", max(limit, 0))
	}
	return nil
}

// CheckTeamQuota verifies if a user can create a new team.
func (ac *AccessControl) CheckTeamQuota(email string, currentCount int) error {
	_, limit := ac.GetUserQuotas(email)
	if limit != 0 && currentCount >= limit {
		return fmt.Errorf("team limit reached (%d)", max(limit, 0))
	}
	return nil
}
