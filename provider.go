package authcode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/authkit/authcode/internal/strutils"
)

// Provider wraps the identity provider's endpoint configuration and exposes
// the two protocol operations the flow needs: building an authorization URL
// and exchanging an authorization code for tokens.  For the OIDC flow it
// additionally verifies id_tokens against the provider's signing keys, which
// are discovered once at construction and cached for the provider's
// lifetime.
type Provider struct {
	config *Config

	// client is the discovered OIDC provider.  It is nil for the plain
	// OAuth2 flow, which uses the config's explicit endpoints.
	client *oidc.Provider

	logger hclog.Logger

	mu sync.Mutex

	// backgroundCtx is the context used by the provider for background
	// activities like refreshing JWKs key sets.
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates and initializes a Provider.  For the OIDC flow this
// includes an http request to the issuer for metadata discovery; discovery
// failure is fatal (ErrDiscoveryFailed), since no client can be built
// without the provider's endpoints and signing keys.
//
// See Provider.Done() which must be called to release provider resources.
func NewProvider(c *Config, opt ...Option) (*Provider, error) {
	const op = "authcode.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	opts := getSessionOpts(opt...)

	ctx, cancel := context.WithCancel(context.Background())
	// initializing the Provider with its background ctx/cancel allows
	// p.Done() to release resources when returning errors from this function
	p := &Provider{
		config:              c,
		logger:              opts.withLogger,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}

	if c.Flow == FlowOIDC {
		client, err := c.HTTPClient()
		if err != nil {
			p.Done()
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
		// makes an http request to the issuer for discovery
		provider, err := oidc.NewProvider(HTTPClientContext(p.backgroundCtx, client), c.Issuer)
		if err != nil {
			p.Done()
			return nil, fmt.Errorf("%s: unable to discover provider metadata for issuer %q: %w: %w", op, c.Issuer, ErrDiscoveryFailed, err)
		}
		p.client = provider
	}

	return p, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// oauth2Config assembles the x/oauth2 configuration: discovered endpoints
// for the OIDC flow, the config's explicit endpoints otherwise.
func (p *Provider) oauth2Config() oauth2.Config {
	endpoint := oauth2.Endpoint{
		AuthURL:  p.config.AuthorizationEndpoint,
		TokenURL: p.config.TokenEndpoint,
	}
	if p.client != nil {
		endpoint = p.client.Endpoint()
	}
	scopes := p.config.Scopes
	if p.config.Flow == FlowOIDC {
		// "openid" is a required scope for oidc flows
		scopes = append([]string{oidc.ScopeOpenID}, scopes...)
	}
	return oauth2.Config{
		ClientID:     p.config.ClientId,
		ClientSecret: string(p.config.ClientSecret),
		RedirectURL:  p.config.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

// AuthURL generates the URL a caller can use to kick off the authorization
// code flow with the IdP for the given challenge.  The URL carries
// response_type=code, client_id, redirect_uri, the S256 code_challenge, the
// csrf state and, for the OIDC flow, the openid scope and nonce.  No network
// call is made.
// Supported options: WithUILocales
func (p *Provider) AuthURL(c *Challenge, opt ...Option) (string, error) {
	const op = "Provider.AuthURL"
	if c == nil {
		return "", fmt.Errorf("%s: challenge is nil: %w", op, ErrNilParameter)
	}
	if c.Verifier() == "" {
		return "", fmt.Errorf("%s: challenge verifier is empty: %w", op, ErrInvalidParameter)
	}
	if c.State() == "" {
		return "", fmt.Errorf("%s: challenge state is empty: %w", op, ErrInvalidParameter)
	}
	if p.config.Flow == FlowOIDC && c.Nonce() == "" {
		return "", fmt.Errorf("%s: challenge nonce is empty: %w", op, ErrInvalidParameter)
	}
	if c.Nonce() != "" && c.State() == c.Nonce() {
		return "", fmt.Errorf("%s: state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	opts := getAuthURLOpts(opt...)

	authCodeOpts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(c.Verifier()),
	}
	if p.config.Flow == FlowOIDC {
		authCodeOpts = append(authCodeOpts, oidc.Nonce(c.Nonce()))
	}
	if len(opts.withUILocales) > 0 {
		locales := make([]string, 0, len(opts.withUILocales))
		for _, l := range opts.withUILocales {
			locales = append(locales, l.String())
		}
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("ui_locales", strings.Join(locales, " ")))
	}

	oauth2Config := p.oauth2Config()
	return oauth2Config.AuthCodeURL(c.State(), authCodeOpts...), nil
}

// Exchange requests tokens from the token endpoint using the authorization
// code and the challenge's PKCE verifier.  It is a single network round
// trip; transport failures and provider-returned error bodies are wrapped in
// ErrExchangeFailed with the cause preserved verbatim for diagnostics.
//
// The returned TokenSet is unverified: for the OIDC flow the caller must
// verify the id_token via VerifyIDToken before trusting anything in it.
func (p *Provider) Exchange(ctx context.Context, authorizationCode, verifier string) (*TokenSet, error) {
	const op = "Provider.Exchange"
	if p.config == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	if verifier == "" {
		return nil, fmt.Errorf("%s: verifier is empty: %w", op, ErrInvalidParameter)
	}

	client, err := p.config.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	exchangeCtx := HTTPClientContext(ctx, client)

	oauth2Config := p.oauth2Config()
	oauth2Token, err := oauth2Config.Exchange(exchangeCtx, authorizationCode, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange authorization code with provider: %w: %w", op, ErrExchangeFailed, err)
	}
	return newTokenSet(oauth2Token), nil
}

// VerifyIDToken verifies the inbound id_token for the OIDC flow.  It
// verifies the token has been signed by the provider under one of the
// config's supported algorithms, validates the nonce binding, checks the
// optional audience allow-list and, when the claims declare an access-token
// hash, recomputes at_hash over the access token using the id_token's
// signing algorithm (mismatch is ErrTokenTampered).  On success it returns
// the verified claims as raw JSON.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func (p *Provider) VerifyIDToken(ctx context.Context, t IDToken, accessToken AccessToken, nonce string) (json.RawMessage, error) {
	const op = "Provider.VerifyIDToken"
	if p.client == nil {
		return nil, fmt.Errorf("%s: id_token verification requires the oidc flow: %w", op, ErrInvalidParameter)
	}
	if t == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if nonce == "" {
		return nil, fmt.Errorf("%s: nonce is empty: %w", op, ErrInvalidParameter)
	}
	algs := make([]string, 0, len(p.config.SupportedSigningAlgs))
	for _, a := range p.config.SupportedSigningAlgs {
		algs = append(algs, string(a))
	}
	verifier := p.client.Verifier(&oidc.Config{
		ClientID:             p.config.ClientId,
		SupportedSigningAlgs: algs,
	})

	idToken, err := verifier.Verify(ctx, string(t))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid id_token signature: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}

	if idToken.Nonce != nonce {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrIDTokenVerificationFailed, ErrInvalidNonce)
	}

	if len(p.config.Audiences) > 0 {
		found := false
		for _, v := range p.config.Audiences {
			if strutils.StrListContains(idToken.Audience, v) {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrIDTokenVerificationFailed, ErrInvalidAudience)
		}
	}

	var hashClaims struct {
		AtHash string `json:"at_hash"`
	}
	if err := idToken.Claims(&hashClaims); err != nil {
		return nil, fmt.Errorf("%s: unable to read id_token claims: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}
	if hashClaims.AtHash != "" {
		if err := idToken.VerifyAccessToken(string(accessToken)); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenTampered, err)
		}
	}

	var claims json.RawMessage
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: unable to read id_token claims: %w: %w", op, ErrIDTokenVerificationFailed, err)
	}
	return claims, nil
}
