package provider

import (
	"context"

	"github.com/ibm-apiconnect/backstage/pkg/models"
)

// MutationTypeFull marks a full-snapshot replacement
const MutationTypeFull = "full"

// DefaultLocationKey tags every entity emitted by this provider
const DefaultLocationKey = "apic:default"

// LocatedEntity pairs an entity with the location key it is attributed to
type LocatedEntity struct {
	Entity      models.Entity `json:"entity"`
	LocationKey string        `json:"locationKey"`
}

// Mutation is one full-replace operation: the sink atomically substitutes
// the entire entity set attributed to this provider. Staleness is handled
// by omission, an entity absent from a new snapshot is removed.
type Mutation struct {
	Type     string          `json:"type"`
	Entities []LocatedEntity `json:"entities"`
}

// Sink is the outward interface to the consuming catalog store
type Sink interface {
	ReplaceAll(ctx context.Context, mutation Mutation) error
}
