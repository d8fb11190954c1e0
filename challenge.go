package authcode

import (
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
	"golang.org/x/oauth2"
)

// ChallengeMethodS256 is the only supported PKCE code challenge method
// (RFC 7636 section 4.2).  The plain method is intentionally not implemented.
const ChallengeMethodS256 = "S256"

// secretEntropyBytes is the number of random bytes behind the csrf state
// token and the nonce, before base64url encoding.  The PKCE verifier carries
// the same 32 bytes of entropy via oauth2.GenerateVerifier.
const secretEntropyBytes = 32

// Challenge holds the material for exactly one authorization attempt: the
// PKCE verifier and its derived S256 challenge, the csrf state token, and
// (for the OIDC flow) the nonce bound into the id_token.  A Challenge is
// created by AuthSession.Initiate and consumed by one AuthSession.Complete
// attempt; it is never reused across attempts.
type Challenge struct {
	// verifier is the PKCE code verifier.  It is persisted across the
	// redirect and presented during the code exchange.
	verifier string

	// challenge is the base64url-encoded SHA-256 digest of the verifier,
	// sent as the code_challenge parameter of the authorization request.
	challenge string

	// state is the csrf token round-tripped through the provider via the
	// "state" parameter.
	state string

	// nonce is bound into the id_token to prevent replay.  Empty for the
	// plain OAuth2 flow.
	nonce string
}

// NewChallenge generates fresh challenge material for the given flow.  The
// verifier and its S256 challenge are produced by the x/oauth2 PKCE helpers;
// the state token and (OIDC) nonce each carry 32 bytes of entropy.  The
// state and nonce can never be equal.
func NewChallenge(f Flow) (*Challenge, error) {
	const op = "authcode.NewChallenge"
	if !f.valid() {
		return nil, fmt.Errorf("%s: unknown flow %d: %w", op, f, ErrInvalidParameter)
	}
	verifier := oauth2.GenerateVerifier()
	state, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a csrf token: %w", op, err)
	}
	c := &Challenge{
		verifier:  verifier,
		challenge: oauth2.S256ChallengeFromVerifier(verifier),
		state:     state,
	}
	if f.requireNonce() {
		nonce, err := newSecret()
		if err != nil {
			return nil, fmt.Errorf("%s: unable to generate a nonce: %w", op, err)
		}
		if nonce == state {
			return nil, fmt.Errorf("%s: state and nonce cannot be equal: %w", op, ErrInvalidParameter)
		}
		c.nonce = nonce
	}
	return c, nil
}

// newSecret returns a base64url-encoded random secret suitable for a csrf
// state token or a nonce.
func newSecret() (string, error) {
	b, err := uuid.GenerateRandomBytes(secretEntropyBytes)
	if err != nil {
		return "", fmt.Errorf("unable to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Verifier returns the PKCE code verifier.
func (c *Challenge) Verifier() string { return c.verifier }

// CodeChallenge returns the base64url-encoded SHA-256 digest of the verifier.
func (c *Challenge) CodeChallenge() string { return c.challenge }

// State returns the csrf state token.
func (c *Challenge) State() string { return c.state }

// Nonce returns the nonce, which is empty for the plain OAuth2 flow.
func (c *Challenge) Nonce() string { return c.nonce }

// Serialize maps the challenge's set fields to string key/value pairs under
// the well-known storage keys.  Unset fields are omitted entirely, so saving
// a serialized challenge never clears unrelated keys in the store.
func (c *Challenge) Serialize() map[string]string {
	m := make(map[string]string, 3)
	if c.verifier != "" {
		m[StorageKeyVerifier] = c.verifier
	}
	if c.state != "" {
		m[StorageKeyCSRF] = c.state
	}
	if c.nonce != "" {
		m[StorageKeyNonce] = c.nonce
	}
	return m
}
