package authcode

import (
	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/language"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// configOptions is the set of available options for the Config factories
type configOptions struct {
	withClientSecret ClientSecret
	withScopes       []string
	withAudiences    []string
	withProviderCA   string
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the config defaults and applies the opt overrides
// passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithClientSecret provides an optional client secret for confidential
// clients.  Public clients rely on PKCE and leave it unset.
func WithClientSecret(s ClientSecret) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withClientSecret = s
		}
	}
}

// WithScopes provides an optional list of additional scopes to request
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithAudiences provides an optional list of audiences for id_token
// verification
func WithAudiences(auds ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAudiences = auds
		}
	}
}

// WithProviderCA provides an optional CA cert to use when sending requests
// to the provider
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// sessionOptions is the set of available options for AuthSession and
// Provider functions
type sessionOptions struct {
	withLogger hclog.Logger
}

// sessionDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func sessionDefaults() sessionOptions {
	return sessionOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getSessionOpts gets the session defaults and applies the opt overrides
// passed in.
func getSessionOpts(opt ...Option) sessionOptions {
	opts := sessionDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.  By default nothing is logged.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withLogger = l
		}
	}
}

// authURLOptions is the set of available options for Provider.AuthURL and
// AuthSession.Initiate
type authURLOptions struct {
	withUILocales []language.Tag
}

// authURLDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func authURLDefaults() authURLOptions {
	return authURLOptions{}
}

// getAuthURLOpts gets the auth URL defaults and applies the opt overrides
// passed in.
func getAuthURLOpts(opt ...Option) authURLOptions {
	opts := authURLDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithUILocales optionally requests that the provider render its pages in
// the given languages, via the ui_locales authorization parameter.
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			o.withUILocales = locales
		}
	}
}
