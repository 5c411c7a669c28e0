package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibm-apiconnect/backstage/pkg/models"
)

func writeInstancesFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "instances.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadInstances(t *testing.T) {
	path := writeInstancesFile(t, `
instances:
  - name: prod
    url: https://apic.example.com/api
    clientId: client-id
    clientSecret: client-secret
    apiKey: key-123
  - name: staging
    url: https://apic-staging.example.com/api
    clientId: client-id
    clientSecret: client-secret
    username: admin
    password: secret
    identityProvider: default-idp
`)

	instances, err := LoadInstances(path)
	require.NoError(t, err)
	require.Len(t, instances, 2)

	assert.Equal(t, "prod", instances[0].ID)
	assert.True(t, instances[0].UsesAPIKey())
	assert.Equal(t, "staging", instances[1].ID)
	assert.False(t, instances[1].UsesAPIKey())
}

func TestLoadInstancesMissingFile(t *testing.T) {
	_, err := LoadInstances(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read instances file")
}

func TestLoadInstancesBadYAML(t *testing.T) {
	path := writeInstancesFile(t, "instances: [")

	_, err := LoadInstances(path)
	assert.ErrorContains(t, err, "failed to parse instances file")
}

func TestLoadInstancesMissingRequiredField(t *testing.T) {
	path := writeInstancesFile(t, `
instances:
  - name: prod
    url: https://apic.example.com/api
    clientId: client-id
    apiKey: key-123
`)

	_, err := LoadInstances(path)
	assert.ErrorContains(t, err, `invalid instance "prod"`)
}

func TestLoadInstancesInvalidURL(t *testing.T) {
	path := writeInstancesFile(t, `
instances:
  - name: prod
    url: not-a-url
    clientId: client-id
    clientSecret: client-secret
    apiKey: key-123
`)

	_, err := LoadInstances(path)
	assert.Error(t, err)
}

func TestLoadInstancesBadCredentials(t *testing.T) {
	path := writeInstancesFile(t, `
instances:
  - name: prod
    url: https://apic.example.com/api
    clientId: client-id
    clientSecret: client-secret
    username: admin
    password: secret
`)

	_, err := LoadInstances(path)
	assert.ErrorIs(t, err, models.ErrIdentityProviderRequired)
}
