package authcode

import (
	"fmt"
	"net/url"
)

// Query parameter names of the provider's redirect response.
const (
	responseParamCode  = "code"
	responseParamState = "state"
)

// AuthorizationResponse is the transient result of parsing the provider's
// redirect URL.  It is used once, by AuthSession.Complete.
type AuthorizationResponse struct {
	// Code is the authorization code to exchange at the token endpoint.
	Code string

	// State is the csrf token round-tripped through the provider.
	State string
}

// ParseAuthorizationResponse extracts the authorization code and state from
// the redirect URL's query component.  Any other parameters are ignored.
//
// The checks are ordered: an empty query is reported first (ErrEmptyResponse),
// then a missing code (ErrMissingCode), then a missing state
// (ErrMissingState).  This ordering is observable in error messages and is
// kept stable for deterministic diagnostics.
func ParseAuthorizationResponse(responseURL string) (*AuthorizationResponse, error) {
	const op = "authcode.ParseAuthorizationResponse"
	u, err := url.Parse(responseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse response url: %w: %w", op, ErrMalformedResponse, err)
	}
	q := u.Query()
	if len(q) == 0 {
		return nil, fmt.Errorf("%s: no response is present in the url: %w", op, ErrEmptyResponse)
	}
	code := q.Get(responseParamCode)
	if code == "" {
		return nil, fmt.Errorf("%s: no authorization code is present in the url: %w", op, ErrMissingCode)
	}
	state := q.Get(responseParamState)
	if state == "" {
		return nil, fmt.Errorf("%s: no state is present in the url: %w", op, ErrMissingState)
	}
	return &AuthorizationResponse{
		Code:  code,
		State: state,
	}, nil
}
