package relations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibm-apiconnect/backstage/pkg/models"
)

func testProduct(providesAPIs ...string) *models.ProductEntity {
	return &models.ProductEntity{
		APIVersion: models.APIVersionIBM,
		Kind:       models.KindProduct,
		Meta: models.EntityMeta{
			Namespace: "prod-sandbox",
			Name:      "p123",
		},
		Spec: models.ProductSpec{
			Owner:        "system:prod/sandbox",
			ProvidesAPIs: providesAPIs,
		},
	}
}

func TestDeriveOwnershipOnly(t *testing.T) {
	rels, err := Derive(testProduct())
	require.NoError(t, err)
	require.Len(t, rels, 2)

	productRef := models.EntityRef{Kind: "product", Namespace: "prod-sandbox", Name: "p123"}
	ownerRef := models.EntityRef{Kind: "system", Namespace: "prod", Name: "sandbox"}

	assert.Equal(t, Relation{Type: RelationOwnedBy, Source: productRef, Target: ownerRef}, rels[0])
	assert.Equal(t, Relation{Type: RelationOwnerOf, Source: ownerRef, Target: productRef}, rels[1])
}

func TestDeriveAPIPairs(t *testing.T) {
	rels, err := Derive(testProduct("orders_1.0.0", "invoices_3.1.0"))
	require.NoError(t, err)

	// Two ownership relations plus a pair per API, in list order.
	require.Len(t, rels, 6)

	productRef := models.EntityRef{Kind: "product", Namespace: "prod-sandbox", Name: "p123"}
	ordersRef := models.EntityRef{Kind: "api", Namespace: "prod-sandbox", Name: "orders_1.0.0"}
	invoicesRef := models.EntityRef{Kind: "api", Namespace: "prod-sandbox", Name: "invoices_3.1.0"}

	assert.Equal(t, Relation{Type: RelationProvidesAPI, Source: productRef, Target: ordersRef}, rels[2])
	assert.Equal(t, Relation{Type: RelationAPIProvidedBy, Source: ordersRef, Target: productRef}, rels[3])
	assert.Equal(t, Relation{Type: RelationProvidesAPI, Source: productRef, Target: invoicesRef}, rels[4])
	assert.Equal(t, Relation{Type: RelationAPIProvidedBy, Source: invoicesRef, Target: productRef}, rels[5])
}

func TestDeriveSymmetry(t *testing.T) {
	rels, err := Derive(testProduct("orders_1.0.0"))
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, rel := range rels {
		counts[rel.Type]++
	}
	assert.Equal(t, counts[RelationOwnedBy], counts[RelationOwnerOf])
	assert.Equal(t, counts[RelationProvidesAPI], counts[RelationAPIProvidedBy])

	// Every pair is the same edge reversed.
	for i := 0; i < len(rels); i += 2 {
		assert.Equal(t, rels[i].Source, rels[i+1].Target)
		assert.Equal(t, rels[i].Target, rels[i+1].Source)
	}
}

func TestDeriveBadOwnerRef(t *testing.T) {
	product := testProduct()
	product.Spec.Owner = "system:prod/"

	_, err := Derive(product)
	assert.Error(t, err)
}
