package authcode

import (
	"errors"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrInvalidCACert    = errors.New("invalid CA certificate")

	// ErrDiscoveryFailed is fatal to session construction: no client can be
	// built for the OIDC flow without the issuer's metadata.
	ErrDiscoveryFailed = errors.New("provider discovery failed")

	// ErrNoActiveChallenge means Complete was called with no prior (or no
	// longer persisted) Initiate.  Callers should restart the flow.
	ErrNoActiveChallenge = errors.New("no active challenge")

	// ErrIncompleteChallenge means the persisted challenge record was only
	// partially present.  The error message names the missing keys.
	ErrIncompleteChallenge = errors.New("incomplete challenge state")

	ErrEmptyResponse     = errors.New("empty authorization response")
	ErrMissingCode       = errors.New("authorization code is missing")
	ErrMissingState      = errors.New("state is missing")
	ErrMalformedResponse = errors.New("malformed authorization response")

	// ErrCSRFMismatch is a security violation: the response state did not
	// match the persisted csrf token.  The attempt is always abandoned.
	ErrCSRFMismatch = errors.New("response state and csrf token are not equal")

	// ErrExchangeFailed wraps transport failures and provider-returned error
	// bodies from the token endpoint.  The provider's error text is preserved
	// verbatim for diagnostics.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	ErrMissingIDToken            = errors.New("id_token is missing")
	ErrIDTokenVerificationFailed = errors.New("id_token verification failed")
	ErrInvalidNonce              = errors.New("invalid nonce")
	ErrInvalidAudience           = errors.New("invalid audience")

	// ErrTokenTampered means the access token returned by the provider does
	// not match the at_hash claim declared by the id_token.
	ErrTokenTampered = errors.New("access token hash and id_token at_hash are not equal")
)
