package auth

import (
	"context"
	"fmt"
	"sync"

	"wcpredict/internal/adapters/outbound/api"
	"wcpredict/internal/localstore"
	"wcpredict/internal/telemetry"
)

// Session owns the bearer token and the signed-in user's profile. The token
// persists across restarts in the local store; everything else is refetched.
//
// Session satisfies the TokenSource interfaces of the REST and push clients.
type Session struct {
	store  *localstore.Store
	client *api.Client

	mu      sync.RWMutex
	token   string
	profile *api.UserProfile
}

// NewSession loads any persisted token. Attach must be called before any
// operation that talks to the server.
func NewSession(store *localstore.Store) (*Session, error) {
	s := &Session{store: store}

	token, ok, err := store.Get(localstore.KeyToken)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if ok {
		s.token = token
	}
	return s, nil
}

// Attach binds the REST client. Done after construction because the client
// itself needs the session as its token source.
func (s *Session) Attach(client *api.Client) {
	s.client = client
}

// Token returns the current bearer token, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Profile returns the cached profile, nil when not loaded.
func (s *Session) Profile() *api.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Restore validates a persisted token by loading the profile. Any failure
// clears the stored credentials; a stale token is worse than none.
func (s *Session) Restore(ctx context.Context) error {
	if !s.Authenticated() {
		return nil
	}

	profile, err := s.client.Me(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			telemetry.Infof("auth: stored token rejected, signing out")
		} else {
			telemetry.Warnf("auth: profile load failed, signing out: %v", err)
		}
		s.clear()
		return err
	}

	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	telemetry.Infof("auth: session restored for %s", profile.Email)
	return nil
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.establish(ctx, resp)
}

func (s *Session) Register(ctx context.Context, email, password string) error {
	resp, err := s.client.Register(ctx, email, password)
	if err != nil {
		return err
	}
	return s.establish(ctx, resp)
}

func (s *Session) establish(ctx context.Context, resp *api.AuthResponse) error {
	s.mu.Lock()
	s.token = resp.Token
	s.mu.Unlock()

	if err := s.store.Put(localstore.KeyToken, resp.Token); err != nil {
		telemetry.Warnf("auth: persist token: %v", err)
	}

	profile, err := s.client.Me(ctx)
	if err != nil {
		s.clear()
		return fmt.Errorf("load profile: %w", err)
	}

	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	telemetry.Infof("auth: signed in as %s", profile.Email)
	return nil
}

// Logout drops the token and profile. Purely local; the server keeps no
// session state.
func (s *Session) Logout() {
	s.clear()
	telemetry.Infof("auth: signed out")
}

func (s *Session) clear() {
	s.mu.Lock()
	s.token = ""
	s.profile = nil
	s.mu.Unlock()

	if err := s.store.Delete(localstore.KeyToken); err != nil {
		telemetry.Warnf("auth: clear token: %v", err)
	}
}

func (s *Session) UpdateScreenName(ctx context.Context, screenName string) error {
	profile, err := s.client.UpdateScreenName(ctx, screenName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	return nil
}

func (s *Session) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return s.client.ChangePassword(ctx, currentPassword, newPassword)
}

// SetPendingInvite stores a league join code to replay after sign-in.
func (s *Session) SetPendingInvite(joinCode string) error {
	return s.store.Put(localstore.KeyPendingInvite, joinCode)
}

// PendingInvite returns the stored join code, empty when none.
func (s *Session) PendingInvite() string {
	code, ok, err := s.store.Get(localstore.KeyPendingInvite)
	if err != nil {
		telemetry.Warnf("auth: read pending invite: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	return code
}

// ResumePendingInvite joins the league whose invite was stored before sign-in.
// The code is consumed on success and kept for retry on failure.
func (s *Session) ResumePendingInvite(ctx context.Context) (*api.League, error) {
	code := s.PendingInvite()
	if code == "" {
		return nil, nil
	}

	league, err := s.client.JoinLeague(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(localstore.KeyPendingInvite); err != nil {
		telemetry.Warnf("auth: clear pending invite: %v", err)
	}
	telemetry.Infof("auth: joined league %q via pending invite", league.Name)
	return league, nil
}
