package authcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthorizationResponse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		url       string
		want      *AuthorizationResponse
		wantIsErr error
	}{
		{
			name: "valid",
			url:  "https://app.example/cb?code=c1&state=s1",
			want: &AuthorizationResponse{Code: "c1", State: "s1"},
		},
		{
			name: "valid-extra-params-ignored",
			url:  "https://app.example/cb?code=c1&state=s1&session_state=x&iss=y",
			want: &AuthorizationResponse{Code: "c1", State: "s1"},
		},
		{
			name:      "empty-query",
			url:       "https://app.example/cb",
			wantIsErr: ErrEmptyResponse,
		},
		{
			name:      "missing-code",
			url:       "https://app.example/cb?state=s1",
			wantIsErr: ErrMissingCode,
		},
		{
			name:      "missing-state",
			url:       "https://app.example/cb?code=c1",
			wantIsErr: ErrMissingState,
		},
		{
			// a provider error response is not empty, so the code check fires
			name:      "error-param-only",
			url:       "https://app.example/cb?error=access_denied",
			wantIsErr: ErrMissingCode,
		},
		{
			name:      "unparsable-url",
			url:       "://app.example/cb",
			wantIsErr: ErrMalformedResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := ParseAuthorizationResponse(tt.url)
			if tt.wantIsErr != nil {
				require.Error(err)
				assert.Nil(got)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}
