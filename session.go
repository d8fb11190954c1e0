package authcode

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Status is the state of an AuthSession's current authorization attempt.
type Status int

const (
	// StatusIdle: no challenge in flight, no attempt in progress.
	StatusIdle Status = iota

	// StatusInitiated: Initiate has generated and persisted a challenge and
	// the caller holds the authorization URL.
	StatusInitiated

	// StatusCompleted: the last attempt completed and the session holds a
	// TokenSet.
	StatusCompleted

	// StatusFailed: the last attempt failed.  Terminal for that attempt
	// only; a new Initiate starts a fresh one.
	StatusFailed
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInitiated:
		return "initiated"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AuthSession drives one authorization code flow at a time: Initiate
// generates and persists challenge material and returns the URL to navigate
// the user to; Complete consumes that material, validates the redirect
// response, exchanges the code and (OIDC) verifies the id_token.  At most
// one challenge is outstanding per session; a second Initiate silently
// discards the first attempt's material ("last attempt wins").
//
// A session remains usable after a failed attempt: every failure is
// returned, never thrown, and no partially-applied token state is ever left
// behind.  An established TokenSet survives failed attempts and
// re-initiation until a later successful Complete overwrites it or Reset
// clears it.
type AuthSession struct {
	config   *Config
	provider *Provider
	store    *StateStore
	logger   hclog.Logger

	mu        sync.Mutex
	status    Status
	challenge *Challenge
	tokens    *TokenSet
	claims    json.RawMessage
}

// NewAuthSession creates a session from the provider configuration and an
// injected Storage.  For the OIDC flow, construction performs endpoint and
// signing-key discovery against the issuer; discovery failure is fatal
// (ErrDiscoveryFailed).
//
// See AuthSession.Done() which must be called to release provider resources.
// Supported options: WithLogger
func NewAuthSession(c *Config, storage Storage, opt ...Option) (*AuthSession, error) {
	const op = "authcode.NewAuthSession"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if storage == nil {
		return nil, fmt.Errorf("%s: storage is nil: %w", op, ErrNilParameter)
	}
	opts := getSessionOpts(opt...)

	provider, err := NewProvider(c, opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	store, err := NewStateStore(c.Flow, storage)
	if err != nil {
		provider.Done()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AuthSession{
		config:   c,
		provider: provider,
		store:    store,
		logger:   opts.withLogger,
		status:   StatusIdle,
	}, nil
}

// Done releases the underlying provider's background resources and must be
// called for every AuthSession created.
func (s *AuthSession) Done() {
	if s == nil {
		return
	}
	s.provider.Done()
}

// Initiate starts a fresh authorization attempt: it generates new challenge
// material, persists it, and returns the authorization URL to navigate the
// user to.  Any prior in-flight challenge is discarded; an established
// TokenSet from an earlier successful attempt is kept.
// Supported options: WithUILocales
func (s *AuthSession) Initiate(ctx context.Context, opt ...Option) (string, error) {
	const op = "AuthSession.Initiate"
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, err := NewChallenge(s.config.Flow)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.Save(challenge); err != nil {
		return "", fmt.Errorf("%s: unable to persist challenge: %w", op, err)
	}
	authURL, err := s.provider.AuthURL(challenge, opt...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.challenge = challenge
	s.status = StatusInitiated
	s.logger.Debug("authentication initiated", "flow", s.config.Flow.String())
	return authURL, nil
}

// Complete finishes the attempt with the provider's redirect response URL.
// It parses code and state from the URL, loads the persisted challenge if
// none is held in memory, validates the csrf state, exchanges the code and,
// for the OIDC flow, verifies the id_token's presence, signature, nonce
// binding and access-token hash.  Only after every check passes is the
// TokenSet committed and the session transitioned to StatusCompleted.
//
// The challenge is consumed by the attempt, success or failure: once
// Complete has taken hold of the material it is cleared from memory and
// storage, and a subsequent Complete fails with ErrNoActiveChallenge.  The
// session itself remains usable after any failure; callers retry with a
// fresh Initiate.
func (s *AuthSession) Complete(ctx context.Context, responseURL string) (*TokenSet, error) {
	const op = "AuthSession.Complete"
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := ParseAuthorizationResponse(responseURL)
	if err != nil {
		return nil, s.fail(fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err))
	}

	challenge := s.challenge
	if challenge == nil {
		loaded, err := s.store.Load()
		if err != nil {
			return nil, s.fail(fmt.Errorf("%s: %w", op, err))
		}
		challenge = loaded
	}
	// the challenge is consumed by this attempt, success or failure; it must
	// never survive into a second Complete
	s.challenge = nil
	if err := s.store.Clear(); err != nil {
		s.logger.Error("unable to clear persisted challenge", "error", err)
	}

	if challenge.State() != resp.State {
		return nil, s.fail(fmt.Errorf("%s: cross-site request forgery detected, response state does not match: %w", op, ErrCSRFMismatch))
	}

	tokens, err := s.provider.Exchange(ctx, resp.Code, challenge.Verifier())
	if err != nil {
		return nil, s.fail(fmt.Errorf("%s: %w", op, err))
	}

	var claims json.RawMessage
	if s.config.Flow == FlowOIDC {
		if tokens.IDToken() == "" {
			return nil, s.fail(fmt.Errorf("%s: the provider did not return an id_token: %w", op, ErrMissingIDToken))
		}
		claims, err = s.provider.VerifyIDToken(ctx, tokens.IDToken(), tokens.AccessToken(), challenge.Nonce())
		if err != nil {
			// a failed verification invalidates the whole exchange, even
			// though the token endpoint round trip succeeded
			return nil, s.fail(fmt.Errorf("%s: %w", op, err))
		}
	}

	s.tokens = tokens
	s.claims = claims
	s.status = StatusCompleted
	s.logger.Debug("authentication completed", "flow", s.config.Flow.String())
	return tokens, nil
}

// fail marks an in-flight attempt as failed and logs the cause.  The
// session's token state is left untouched.  Callers must hold s.mu.
func (s *AuthSession) fail(err error) error {
	if s.status == StatusInitiated {
		s.status = StatusFailed
	}
	s.logger.Error("authentication attempt failed", "error", err)
	return err
}

// Reset discards any in-flight challenge (memory and storage) along with the
// session's tokens and claims, returning the session to StatusIdle.
func (s *AuthSession) Reset() error {
	const op = "AuthSession.Reset"
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge = nil
	s.tokens = nil
	s.claims = nil
	s.status = StatusIdle
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("%s: unable to clear persisted challenge: %w", op, err)
	}
	return nil
}

// Status returns the state of the session's current attempt.
func (s *AuthSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Authenticated reports whether the session holds a TokenSet from a
// successful Complete.
func (s *AuthSession) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens != nil
}

// TokenSet returns the tokens established by the most recent successful
// Complete, or nil.  Failed attempts never clear an established TokenSet.
func (s *AuthSession) TokenSet() *TokenSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// Claims unmarshals the verified id_token claims into v.  Claims are only
// available for the OIDC flow after a successful Complete.
func (s *AuthSession) Claims(v interface{}) error {
	const op = "AuthSession.Claims"
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	if s.claims == nil {
		return fmt.Errorf("%s: no verified claims are available: %w", op, ErrInvalidParameter)
	}
	if err := json.Unmarshal(s.claims, v); err != nil {
		return fmt.Errorf("%s: unable to unmarshal claims: %w", op, err)
	}
	return nil
}
