// Copyright (c) 2025-2026 KS Foundation
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ksfoundation/ksf-web/internal/api"
	"github.com/ksfoundation/ksf-web/internal/cache"
	"github.com/ksfoundation/ksf-web/internal/model"
)

// Session keys for the token pair and lightweight identity hints. The full
// profile is never persisted in the session; it lives in the identity cache
// keyed by token hash and is refetched from the backend after eviction.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserID       = "user_id"
	KeyUserRole     = "user_role"
	KeyCountedPosts = "counted_posts"
)

// identityTTL bounds how long a resolved profile is served from cache
// before the backend is consulted again.
const identityTTL = 5 * time.Minute

// Store binds the scs session manager to the content API: login stores the
// token pair server-side, user resolution goes through a token-hash cache,
// and expiry tears the session down.
type Store struct {
	sm       *scs.SessionManager
	client   *api.Client
	identity *cache.Typed[model.User]
}

// NewStore creates a session store. The cache backs identity resolution so
// most page loads skip the /auth/me/ round trip.
func NewStore(sm *scs.SessionManager, client *api.Client, c cache.Cache) *Store {
	return &Store{
		sm:       sm,
		client:   client,
		identity: cache.NewTyped[model.User](c, identityTTL),
	}
}

// Manager exposes the underlying session manager for middleware wiring.
func (s *Store) Manager() *scs.SessionManager { return s.sm }

// Client returns the shared API client bound to this request's session, so
// outgoing calls carry the stored access token and a 401 destroys the
// session that held it.
func (s *Store) Client(ctx context.Context) *api.Client {
	return s.client.WithTokens(s.tokens(), func(ctx context.Context) {
		s.destroy(ctx)
	})
}

// Anonymous returns the shared API client with no session binding, for
// public content fetches and pre-login calls.
func (s *Store) Anonymous() *api.Client { return s.client }

// Login exchanges credentials for a token pair and persists it in a fresh
// session. The session token is rotated to prevent fixation.
func (s *Store) Login(ctx context.Context, creds api.Credentials) (model.TokenPair, error) {
	pair, err := s.client.Login(ctx, creds)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.sm.RenewToken(ctx); err != nil {
		return model.TokenPair{}, err
	}
	s.sm.Put(ctx, KeyAccessToken, pair.Access)
	s.sm.Put(ctx, KeyRefreshToken, pair.Refresh)
	s.sm.Put(ctx, KeyUserID, pair.UserID)
	s.sm.Put(ctx, KeyUserRole, pair.Role)

	slog.Info("user logged in", "category", "auth", "user_id", pair.UserID, "role", pair.Role)
	return pair, nil
}

// Logout destroys the session and its cached identity.
func (s *Store) Logout(ctx context.Context) {
	if token := s.sm.GetString(ctx, KeyAccessToken); token != "" {
		_ = s.identity.Delete(ctx, identityKey(token))
	}
	s.destroy(ctx)
	slog.Info("user logged out", "category", "auth")
}

// LoggedIn reports whether the session holds an access token.
func (s *Store) LoggedIn(ctx context.Context) bool {
	return s.sm.GetString(ctx, KeyAccessToken) != ""
}

// FetchUser resolves the signed-in user, or nil for anonymous sessions.
// The access token is refreshed first when it has visibly expired, then the
// profile is served from the identity cache or fetched from the backend. A
// backend 401 destroys the session and resolves to anonymous.
func (s *Store) FetchUser(ctx context.Context) (*model.User, error) {
	token := s.sm.GetString(ctx, KeyAccessToken)
	if token == "" {
		return nil, nil
	}

	if tokenExpired(token) {
		refreshed, err := s.refresh(ctx)
		if err != nil {
			s.destroy(ctx)
			return nil, nil
		}
		token = refreshed
	}

	if cached, ok := s.identity.Get(ctx, identityKey(token)); ok {
		return cached, nil
	}

	user, err := s.Client(ctx).Me(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			// /auth/me/ is cascade-exempt, so the teardown happens here.
			s.destroy(ctx)
			return nil, nil
		}
		return nil, err
	}

	s.SetUser(ctx, &user)
	return &user, nil
}

// SetUser replaces the cached identity, e.g. after a profile edit, so the
// next page load reflects the change without a backend round trip.
func (s *Store) SetUser(ctx context.Context, user *model.User) {
	token := s.sm.GetString(ctx, KeyAccessToken)
	if token == "" || user == nil {
		return
	}
	if err := s.identity.Set(ctx, identityKey(token), user); err != nil {
		slog.Warn("caching identity failed", "category", "auth", "error", err)
	}
}

// PostCounted reports whether this session already counted a read for the
// given post.
func (s *Store) PostCounted(ctx context.Context, postID int64) bool {
	id := strconv.FormatInt(postID, 10)
	for _, seen := range strings.Split(s.sm.GetString(ctx, KeyCountedPosts), ",") {
		if seen == id {
			return true
		}
	}
	return false
}

// MarkPostCounted records a counted read. Callers mark only after the
// backend accepted the increment so a transient failure is retried on the
// next visit. Stored as a comma-joined string so scs needs no gob
// registration.
func (s *Store) MarkPostCounted(ctx context.Context, postID int64) {
	if s.PostCounted(ctx, postID) {
		return
	}
	id := strconv.FormatInt(postID, 10)
	counted := s.sm.GetString(ctx, KeyCountedPosts)
	if counted == "" {
		s.sm.Put(ctx, KeyCountedPosts, id)
	} else {
		s.sm.Put(ctx, KeyCountedPosts, counted+","+id)
	}
}

// refresh exchanges the stored refresh token for a new access token and
// persists it, returning the fresh token.
func (s *Store) refresh(ctx context.Context) (string, error) {
	refreshToken := s.sm.GetString(ctx, KeyRefreshToken)
	if refreshToken == "" {
		return "", api.ErrSessionExpired
	}
	pair, err := s.client.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	s.sm.Put(ctx, KeyAccessToken, pair.Access)
	if pair.Refresh != "" {
		s.sm.Put(ctx, KeyRefreshToken, pair.Refresh)
	}
	slog.Debug("access token refreshed", "category", "auth")
	return pair.Access, nil
}

func (s *Store) destroy(ctx context.Context) {
	if err := s.sm.Destroy(ctx); err != nil {
		slog.Warn("destroying session failed", "category", "auth", "error", err)
	}
}

// tokens adapts the scs session to the client's TokenSource.
func (s *Store) tokens() api.TokenSource {
	return sessionTokens{sm: s.sm}
}

type sessionTokens struct {
	sm *scs.SessionManager
}

func (t sessionTokens) Access(ctx context.Context) string {
	return t.sm.GetString(ctx, KeyAccessToken)
}

func (t sessionTokens) Clear(ctx context.Context) {
	t.sm.Remove(ctx, KeyAccessToken)
	t.sm.Remove(ctx, KeyRefreshToken)
	t.sm.Remove(ctx, KeyUserID)
	t.sm.Remove(ctx, KeyUserRole)
}

// identityKey derives the cache key from the access token. Hashing keeps
// raw tokens out of the shared cache.
func identityKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "identity:" + hex.EncodeToString(sum[:])
}

// tokenExpired inspects the access token's exp claim without verifying the
// signature; verification is the backend's job, this only decides whether a
// refresh is worth attempting before the request goes out. Unparseable
// tokens are treated as live and left for the backend to reject.
func tokenExpired(token string) bool {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	// A small skew keeps tokens from expiring mid-request.
	return time.Now().Add(30 * time.Second).After(claims.ExpiresAt.Time)
}
