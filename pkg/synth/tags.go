package synth

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractTags pulls tags from an API document's "tags" and "x-tagGroups"
// sections. Tags are lower-cased (the consuming catalog rejects capitals)
// and duplicates are kept; direct tags come before group tags.
//
// A document that is not parseable JSON fails the extraction, which in
// turn fails the instance's whole collection run. Isolating the failure
// to the single offending API is the sharper alternative if that ever
// becomes a problem in practice.
func ExtractTags(document string) ([]string, error) {
	var parsed struct {
		Tags []struct {
			Name string `json:"name"`
		} `json:"tags"`
		TagGroups []struct {
			Tags []string `json:"tags"`
		} `json:"x-tagGroups"`
	}

	if err := json.Unmarshal([]byte(document), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse API document for tag extraction: %w", err)
	}

	var tags []string
	for _, tag := range parsed.Tags {
		tags = append(tags, strings.ToLower(tag.Name))
	}
	for _, group := range parsed.TagGroups {
		for _, tag := range group.Tags {
			tags = append(tags, strings.ToLower(tag))
		}
	}
	return tags, nil
}
