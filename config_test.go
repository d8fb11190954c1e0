package authcode

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOAuth2Config(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewOAuth2Config(
			"https://idp.example/auth",
			"https://idp.example/token",
			"client-id",
			"https://app.example/cb",
			WithClientSecret("secret"),
			WithScopes("profile", "email"),
		)
		require.NoError(err)
		assert.Equal(FlowOAuth2, c.Flow)
		assert.Equal("https://idp.example/auth", c.AuthorizationEndpoint)
		assert.Equal("https://idp.example/token", c.TokenEndpoint)
		assert.Equal("client-id", c.ClientId)
		assert.Equal(ClientSecret("secret"), c.ClientSecret)
		assert.Equal([]string{"profile", "email"}, c.Scopes)
	})
	t.Run("client-secret-is-optional", func(t *testing.T) {
		require := require.New(t)
		_, err := NewOAuth2Config(
			"https://idp.example/auth",
			"https://idp.example/token",
			"client-id",
			"https://app.example/cb",
		)
		require.NoError(err)
	})
	t.Run("http-endpoints-allowed", func(t *testing.T) {
		require := require.New(t)
		_, err := NewOAuth2Config(
			"http://localhost:8080/auth",
			"http://localhost:8080/token",
			"client-id",
			"http://localhost:3000/cb",
		)
		require.NoError(err)
	})
}

func TestNewOIDCConfig(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewOIDCConfig(
			"https://issuer.example",
			"client-id",
			[]Alg{RS256, ES256},
			"https://app.example/cb",
			WithAudiences("aud1", "aud2"),
		)
		require.NoError(err)
		assert.Equal(FlowOIDC, c.Flow)
		assert.Equal("https://issuer.example", c.Issuer)
		assert.Equal([]Alg{RS256, ES256}, c.SupportedSigningAlgs)
		assert.Equal([]string{"aud1", "aud2"}, c.Audiences)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		config  *Config
		wantErr []string
	}{
		{
			name:    "nil-config",
			config:  nil,
			wantErr: []string{"config is nil"},
		},
		{
			name: "oauth2-missing-everything",
			config: &Config{
				Flow: FlowOAuth2,
			},
			wantErr: []string{
				"client id is empty",
				"redirect URL is empty",
				"authorization endpoint is empty",
				"token endpoint is empty",
			},
		},
		{
			name: "oauth2-bad-endpoint-scheme",
			config: &Config{
				Flow:                  FlowOAuth2,
				ClientId:              "abc",
				RedirectURL:           "https://app.example/cb",
				AuthorizationEndpoint: "ldap://idp.example/auth",
				TokenEndpoint:         "https://idp.example/token",
			},
			wantErr: []string{"scheme is not http or https"},
		},
		{
			name: "oidc-missing-issuer-and-algs",
			config: &Config{
				Flow:        FlowOIDC,
				ClientId:    "abc",
				RedirectURL: "https://app.example/cb",
			},
			wantErr: []string{
				"discovery URL is empty",
				"supported algorithms is empty",
			},
		},
		{
			name: "oidc-unsupported-alg",
			config: &Config{
				Flow:                 FlowOIDC,
				ClientId:             "abc",
				RedirectURL:          "https://app.example/cb",
				Issuer:               "https://issuer.example",
				SupportedSigningAlgs: []Alg{Alg("HS256")},
			},
			wantErr: []string{`unsupported algorithm "HS256"`},
		},
		{
			name: "unknown-flow",
			config: &Config{
				Flow:        Flow(42),
				ClientId:    "abc",
				RedirectURL: "https://app.example/cb",
			},
			wantErr: []string{"unknown flow"},
		},
		{
			name: "valid-oidc",
			config: &Config{
				Flow:                 FlowOIDC,
				ClientId:             "abc",
				RedirectURL:          "https://app.example/cb",
				Issuer:               "https://issuer.example",
				SupportedSigningAlgs: []Alg{ES256},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			err := tt.config.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(err)
				return
			}
			require.Error(err)
			// every violation is reported, not just the first
			for _, want := range tt.wantErr {
				assert.Contains(err.Error(), want)
			}
			if tt.config != nil {
				assert.True(errors.Is(err, ErrInvalidParameter))
			} else {
				assert.True(errors.Is(err, ErrNilParameter))
			}
		})
	}
}

func TestClientSecret_Redaction(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	secret := ClientSecret("super secret")
	assert.Equal(RedactedClientSecret, secret.String())
	assert.Equal(RedactedClientSecret, fmt.Sprintf("%s", secret))
	got, err := json.Marshal(secret)
	require.NoError(err)
	assert.Equal(fmt.Sprintf(`"%s"`, RedactedClientSecret), string(got))
}

func TestConfig_HTTPClient(t *testing.T) {
	t.Parallel()
	t.Run("no-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := &Config{}
		client, err := c.HTTPClient()
		require.NoError(err)
		assert.NotNil(client)
	})
	t.Run("invalid-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := &Config{ProviderCA: "not a pem cert"}
		client, err := c.HTTPClient()
		require.Error(err)
		assert.Nil(client)
		assert.True(errors.Is(err, ErrInvalidCACert))
	})
	t.Run("valid-ca", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		c := &Config{ProviderCA: tp.CACert()}
		_, err := c.HTTPClient()
		require.NoError(err)
	})
}
