package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTags(t *testing.T) {
	document := `{
		"tags": [{"name": "Billing"}],
		"x-tagGroups": [{"name": "Core", "tags": ["Core", "billing"]}]
	}`

	tags, err := ExtractTags(document)
	require.NoError(t, err)

	// Lower-cased, direct tags first, duplicates kept.
	assert.Equal(t, []string{"billing", "core", "billing"}, tags)
}

func TestExtractTagsNoTags(t *testing.T) {
	tags, err := ExtractTags(`{"openapi": "3.0.0"}`)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestExtractTagsBadJSON(t *testing.T) {
	_, err := ExtractTags("swagger: '2.0'")
	assert.ErrorContains(t, err, "failed to parse API document")
}
