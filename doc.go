/*
authcode is a package for implementing the client side of the OAuth2
authorization code flow with PKCE, with an optional OpenID Connect variant
that verifies id_tokens.  It is designed for hosts (browser sessions, CLIs,
SPAs) that must survive the redirect to the identity provider and back, so
all in-flight authentication material can be persisted to an injected
key-value Storage between the two halves of the flow.

Primary types provided by the package

* Challenge: the material for one authorization attempt: a PKCE code
verifier/challenge pair, the csrf state token, and (for the OIDC flow) a
nonce.  A Challenge is created by AuthSession.Initiate, persisted to Storage,
and consumed by exactly one AuthSession.Complete attempt.

* Config: the immutable provider configuration for a session (client id,
redirect URL, endpoints or issuer, supported signing algorithms, etc).

* Provider: integration with the identity provider: building the
authorization URL, exchanging an authorization code for tokens, and (OIDC)
verifying id_tokens against the provider's discovered signing keys.

* AuthSession: the flow state machine (Idle, Initiated, Completed, Failed).
Initiate generates and persists a Challenge and returns the URL to navigate
the user to; Complete parses the redirect response, validates the csrf state,
exchanges the code and, for the OIDC flow, verifies the id_token's signature,
nonce binding and access-token hash before any tokens are committed.

* TokenSet: the id_token, access_token and refresh_token resulting from a
successful Complete.  Token values redact themselves when printed or
marshaled.

The package also provides a TestProvider: a local, disposable identity
provider for writing tests against real discovery, JWKS, and token endpoints.
*/
package authcode
