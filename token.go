package authcode

import (
	"time"

	"golang.org/x/oauth2"
)

const tokenExpirySkew = 10 * time.Second

// TokenSet holds the tokens resulting from a successful code exchange.  For
// the OIDC flow, the id_token (and the claims surfaced via
// AuthSession.Claims) are only trusted after signature, nonce and
// access-token-hash checks pass.
type TokenSet struct {
	idToken      IDToken
	accessToken  AccessToken
	refreshToken RefreshToken
	expiry       time.Time
}

func newTokenSet(t *oauth2.Token) *TokenSet {
	ts := &TokenSet{
		accessToken:  AccessToken(t.AccessToken),
		refreshToken: RefreshToken(t.RefreshToken),
		expiry:       t.Expiry,
	}
	if id, ok := t.Extra("id_token").(string); ok {
		ts.idToken = IDToken(id)
	}
	return ts
}

// IDToken returns the id_token, which is empty for the plain OAuth2 flow and
// for providers that did not return one.
func (t *TokenSet) IDToken() IDToken { return t.idToken }

// AccessToken returns the access_token.
func (t *TokenSet) AccessToken() AccessToken { return t.accessToken }

// RefreshToken returns the refresh_token, which may be empty.
func (t *TokenSet) RefreshToken() RefreshToken { return t.refreshToken }

// Expiry returns the access_token's expiration, which is the zero time when
// the provider did not report one.
func (t *TokenSet) Expiry() time.Time { return t.expiry }

// Expired reports whether the access_token is expired, with a small skew to
// account for clock drift.  Tokens without a reported expiry never expire.
func (t *TokenSet) Expired() bool {
	if t.expiry.IsZero() {
		return false
	}
	return t.expiry.Round(0).Before(time.Now().Add(tokenExpirySkew))
}

// Valid reports whether the token set holds an unexpired access_token.
func (t *TokenSet) Valid() bool {
	if t == nil {
		return false
	}
	if t.accessToken == "" {
		return false
	}
	return !t.Expired()
}
