package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInstance() Instance {
	return Instance{
		ID:           "prod",
		URL:          "https://apic.example.com/api",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
}

func TestValidateCredentialsAPIKey(t *testing.T) {
	inst := validInstance()
	inst.APIKey = "key-123"

	require.NoError(t, inst.ValidateCredentials())
	assert.True(t, inst.UsesAPIKey())
}

func TestValidateCredentialsUsernamePassword(t *testing.T) {
	inst := validInstance()
	inst.Username = "admin"
	inst.Password = "secret"
	inst.IdentityProvider = "default-idp"

	require.NoError(t, inst.ValidateCredentials())
	assert.False(t, inst.UsesAPIKey())
}

func TestValidateCredentialsErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Instance)
		expected error
	}{
		{
			name:     "username without password",
			mutate:   func(i *Instance) { i.Username = "admin" },
			expected: ErrPasswordRequired,
		},
		{
			name:     "password without username",
			mutate:   func(i *Instance) { i.Password = "secret" },
			expected: ErrUsernameRequired,
		},
		{
			name:     "no credentials at all",
			mutate:   func(i *Instance) {},
			expected: ErrNoCredentials,
		},
		{
			name: "both credential styles",
			mutate: func(i *Instance) {
				i.Username = "admin"
				i.Password = "secret"
				i.APIKey = "key-123"
			},
			expected: ErrAmbiguousCredentials,
		},
		{
			name: "username and password without identity provider",
			mutate: func(i *Instance) {
				i.Username = "admin"
				i.Password = "secret"
			},
			expected: ErrIdentityProviderRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := validInstance()
			tt.mutate(&inst)
			assert.ErrorIs(t, inst.ValidateCredentials(), tt.expected)
		})
	}
}
