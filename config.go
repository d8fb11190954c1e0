package authcode

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"

	"github.com/authkit/authcode/internal/strutils"
)

// ClientSecret is the relying party secret.  Public clients (the typical
// browser-hosted PKCE case) leave it empty.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration for an authorization code flow with
// PKCE.  It is immutable once a session is constructed from it.
type Config struct {
	// Flow selects the capability set: FlowOAuth2 or FlowOIDC.
	Flow Flow

	// ClientId is the relying party id
	ClientId string

	// ClientSecret is the relying party secret.  Optional: PKCE takes its
	// place for public clients.
	ClientSecret ClientSecret

	// Scopes is a list of additional scopes to request of the provider.  The
	// required "openid" scope for the OIDC flow is requested by default and
	// should not be part of this optional list.
	Scopes []string

	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path components
	// and no query or fragment components.  Required for the OIDC flow, where
	// endpoints and signing-key metadata are discovered from it; unused by
	// the plain OAuth2 flow.
	Issuer string

	// AuthorizationEndpoint and TokenEndpoint are the provider's endpoints
	// for the plain OAuth2 flow, which has no discovery.  Unused by the OIDC
	// flow.
	AuthorizationEndpoint string
	TokenEndpoint         string

	// RedirectURL is the URL the provider redirects back to after the user
	// authenticates.  It must be registered with the provider.
	RedirectURL string

	// SupportedSigningAlgs is a list of supported signing algorithms for the
	// OIDC flow. List of currently supported algs: RS256, RS384, RS512,
	// ES256, ES384, ES512, PS256, PS384, PS512, EdDSA
	SupportedSigningAlgs []Alg

	// Audiences is an optional list of case-sensitive strings used when
	// verifying an id_token's "aud" claim
	Audiences []string

	// ProviderCA is an optional CA cert to use when sending requests to the provider.
	ProviderCA string
}

// NewOAuth2Config composes a config for the plain OAuth2 flow with explicit
// authorization and token endpoints.
// Supported options: WithClientSecret, WithScopes, WithProviderCA
func NewOAuth2Config(authorizationEndpoint, tokenEndpoint, clientId, redirectURL string, opt ...Option) (*Config, error) {
	const op = "authcode.NewOAuth2Config"
	opts := getConfigOpts(opt...)
	c := &Config{
		Flow:                  FlowOAuth2,
		AuthorizationEndpoint: authorizationEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ClientId:              clientId,
		ClientSecret:          opts.withClientSecret,
		RedirectURL:           redirectURL,
		Scopes:                opts.withScopes,
		ProviderCA:            opts.withProviderCA,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid configuration: %w", op, err)
	}
	return c, nil
}

// NewOIDCConfig composes a config for the OIDC flow.  The provider's
// endpoints are discovered from the issuer when a session is constructed.
// Supported options: WithClientSecret, WithScopes, WithAudiences,
// WithProviderCA
func NewOIDCConfig(issuer, clientId string, supported []Alg, redirectURL string, opt ...Option) (*Config, error) {
	const op = "authcode.NewOIDCConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Flow:                 FlowOIDC,
		Issuer:               issuer,
		ClientId:             clientId,
		ClientSecret:         opts.withClientSecret,
		SupportedSigningAlgs: supported,
		RedirectURL:          redirectURL,
		Scopes:               opts.withScopes,
		Audiences:            opts.withAudiences,
		ProviderCA:           opts.withProviderCA,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid configuration: %w", op, err)
	}
	return c, nil
}

// Validate the configuration.  All violations are reported at once, not just
// the first.  Among other validations, it verifies the issuer is not empty,
// but it doesn't verify the issuer is discoverable via an http request.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if !c.Flow.valid() {
		result = multierror.Append(result, fmt.Errorf("unknown flow %d: %w", c.Flow, ErrInvalidParameter))
	}
	if c.ClientId == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.RedirectURL == "" {
		result = multierror.Append(result, fmt.Errorf("redirect URL is empty: %w", ErrInvalidParameter))
	} else if err := validateEndpoint("redirect URL", c.RedirectURL); err != nil {
		result = multierror.Append(result, err)
	}

	switch c.Flow {
	case FlowOIDC:
		switch {
		case c.Issuer == "":
			result = multierror.Append(result, fmt.Errorf("discovery URL is empty: %w", ErrInvalidParameter))
		default:
			if err := validateEndpoint("issuer", c.Issuer); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if len(c.SupportedSigningAlgs) == 0 {
			result = multierror.Append(result, fmt.Errorf("supported algorithms is empty: %w", ErrInvalidParameter))
		}
		for _, a := range c.SupportedSigningAlgs {
			if !supportedAlgorithms[a] {
				result = multierror.Append(result, fmt.Errorf("unsupported algorithm %q: %w", a, ErrInvalidParameter))
			}
		}
	case FlowOAuth2:
		if c.AuthorizationEndpoint == "" {
			result = multierror.Append(result, fmt.Errorf("authorization endpoint is empty: %w", ErrInvalidParameter))
		} else if err := validateEndpoint("authorization endpoint", c.AuthorizationEndpoint); err != nil {
			result = multierror.Append(result, err)
		}
		if c.TokenEndpoint == "" {
			result = multierror.Append(result, fmt.Errorf("token endpoint is empty: %w", ErrInvalidParameter))
		} else if err := validateEndpoint("token endpoint", c.TokenEndpoint); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func validateEndpoint(name, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s %q is invalid: %w: %w", name, rawURL, ErrInvalidParameter, err)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
		return fmt.Errorf("%s %q scheme is not http or https: %w", name, rawURL, ErrInvalidParameter)
	}
	return nil
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured.  The optional ProviderCA is used when set, otherwise
// the installed system CA chain applies.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	tr := cleanhttp.DefaultPooledTransport()

	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}

	return &http.Client{
		Transport: tr,
	}, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}
