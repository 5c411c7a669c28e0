// Package relations derives graph relations from synthesized Product
// entities and emits them to the configured collaborators.
package relations

import (
	"context"

	"github.com/ibm-apiconnect/backstage/pkg/models"
)

// Relation types emitted by the deriver.
const (
	RelationOwnedBy       = "ownedBy"
	RelationOwnerOf       = "ownerOf"
	RelationProvidesAPI   = "providesApi"
	RelationAPIProvidedBy = "apiProvidedBy"
)

// Relation is a directed typed edge between two entity references.
type Relation struct {
	Type   string           `json:"type"`
	Source models.EntityRef `json:"source"`
	Target models.EntityRef `json:"target"`
}

// Emitter receives derived relations. Implementations publish them to a
// message bus, write them as graph edges, or both.
type Emitter interface {
	EmitRelation(ctx context.Context, relation Relation) error
}

// Derive computes the relations for one Product entity: the ownership
// pair first, then one provides/provided-by pair per entry of
// providesApis in list order. A product with no APIs still yields its
// ownership pair.
func Derive(product *models.ProductEntity) ([]Relation, error) {
	productRef := product.Ref()
	ownerRef, err := models.ParseEntityRef(product.Spec.Owner)
	if err != nil {
		return nil, err
	}

	relations := []Relation{
		{Type: RelationOwnedBy, Source: productRef, Target: ownerRef},
		{Type: RelationOwnerOf, Source: ownerRef, Target: productRef},
	}

	for _, apiName := range product.Spec.ProvidesAPIs {
		apiRef := models.EntityRef{
			Kind:      "api",
			Namespace: product.Meta.Namespace,
			Name:      apiName,
		}
		relations = append(relations,
			Relation{Type: RelationProvidesAPI, Source: productRef, Target: apiRef},
			Relation{Type: RelationAPIProvidedBy, Source: apiRef, Target: productRef},
		)
	}

	return relations, nil
}
