package models

import "errors"

// Credential validation errors. Each misconfiguration is reported as a
// distinct error at load time so operators can tell them apart.
var (
	// ErrPasswordRequired is returned when a username is configured without a password
	ErrPasswordRequired = errors.New("a password is required when a username is provided")

	// ErrUsernameRequired is returned when a password is configured without a username
	ErrUsernameRequired = errors.New("a username is required when a password is provided")

	// ErrNoCredentials is returned when neither credential style is configured
	ErrNoCredentials = errors.New("an authentication method is required: username and password, or an API key for OIDC registries")

	// ErrAmbiguousCredentials is returned when both credential styles are configured
	ErrAmbiguousCredentials = errors.New("provide either a username and password or an API key, not all three")

	// ErrIdentityProviderRequired is returned when username/password auth lacks an identity provider realm
	ErrIdentityProviderRequired = errors.New("an identity provider is required when authenticating with username and password")
)

// Instance describes one configured API Connect management instance.
// Exactly one of APIKey or Username/Password/IdentityProvider selects the
// token grant style.
type Instance struct {
	ID               string `yaml:"name" json:"name" validate:"required"`
	URL              string `yaml:"url" json:"url" validate:"required,url"`
	ClientID         string `yaml:"clientId" json:"clientId" validate:"required"`
	ClientSecret     string `yaml:"clientSecret" json:"clientSecret" validate:"required"`
	Username         string `yaml:"username" json:"username,omitempty"`
	Password         string `yaml:"password" json:"password,omitempty"`
	IdentityProvider string `yaml:"identityProvider" json:"identityProvider,omitempty"`
	APIKey           string `yaml:"apiKey" json:"apiKey,omitempty"`
}

// ValidateCredentials enforces the mutually exclusive credential styles.
func (i Instance) ValidateCredentials() error {
	switch {
	case i.Username != "" && i.Password == "":
		return ErrPasswordRequired
	case i.Username == "" && i.Password != "":
		return ErrUsernameRequired
	case i.Username == "" && i.Password == "" && i.APIKey == "":
		return ErrNoCredentials
	case i.Username != "" && i.Password != "" && i.APIKey != "":
		return ErrAmbiguousCredentials
	case i.Username != "" && i.Password != "" && i.IdentityProvider == "":
		return ErrIdentityProviderRequired
	}
	return nil
}

// UsesAPIKey reports whether the instance authenticates with the api_key
// grant rather than the password grant.
func (i Instance) UsesAPIKey() bool {
	return i.APIKey != ""
}
