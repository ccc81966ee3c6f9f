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
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

const defaultAuthCookie = "skorekeeper_auth"

// jwksCache holds the signing keys of the identity provider. Unknown key
// ids trigger a refetch at most once per minRefresh.
type jwksCache struct {
	url        string
	minRefresh time.Duration

	mu          sync.RWMutex
	keys        jwk.Set
	lastRefresh time.Time
}

func newJWKSCache(url string) *jwksCache {
	return &jwksCache{url: url, minRefresh: time.Minute}
}

func (c *jwksCache) refresh() error {
	if c.url == "" {
		return fmt.Errorf("no JWKS URL provided")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	set, err := jwk.Fetch(ctx, c.url)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	c.mu.Lock()
	c.keys = set
	c.lastRefresh = time.Now()
	c.mu.Unlock()
	return nil
}

func findKey(set jwk.Set, kid string) (any, error) {
	if set == nil {
		return nil, fmt.Errorf("JWKS not initialized")
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to materialize key: %w", err)
	}
	return raw, nil
}

// keyfunc resolves the verification key of token.
func (c *jwksCache) keyfunc(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("token missing 'kid' header")
	}

	c.mu.RLock()
	keys, lastRefresh := c.keys, c.lastRefresh
	c.mu.RUnlock()

	key, err := findKey(keys, kid)
	if err == nil || time.Since(lastRefresh) <= c.minRefresh {
		return key, err
	}
	if err := c.refresh(); err != nil {
		log.Printf("Error refreshing JWKS: %v", err)
		return nil, err
	}
	c.mu.RLock()
	keys = c.keys
	c.mu.RUnlock()
	return findKey(keys, kid)
}

// userID verifies tokenString and returns its email claim.
func (c *jwksCache) userID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, c.keyfunc, jwt.WithLeeway(30*time.Second))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("token has no email claim")
	}
	return normalizeEmail(email), nil
}

// jwtAuthMiddleware handles JWT authentication using JWKS. Requests
// without a valid token proceed anonymously.
func jwtAuthMiddleware(opts Options, next http.Handler) http.Handler {
	cache := newJWKSCache(opts.AuthJWKSURL)
	if opts.AuthJWKSURL != "" {
		if err := cache.refresh(); err != nil {
			log.Printf("Warning: Failed to fetch JWKS on startup: %v", err)
		}
	} else {
		log.Println("Warning: No AuthJWKSURL provided. JWT validation will fail unless MockAuth is used.")
	}

	cookieName := opts.AuthCookieName
	if cookieName == "" {
		cookieName = defaultAuthCookie
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		userId, err := cache.userID(cookie.Value)
		if err != nil {
			if opts.Debug {
				log.Printf("JWT Validation failed: %v", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userId)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
