package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibm-apiconnect/backstage/pkg/apic"
	"github.com/ibm-apiconnect/backstage/pkg/cache"
	"github.com/ibm-apiconnect/backstage/pkg/models"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// instanceResponses is a minimal but complete management API: one org,
// one catalog, one API and one product referencing it.
var instanceResponses = map[string]string{
	"/token": `{"access_token": "tok-abc"}`,
	"/orgs": `{"results": [{
		"id": "org-1", "name": "finance", "title": "Finance",
		"owner_url": "https://apic.example.com/users/admin-user",
		"url": "https://apic.example.com/orgs/org-1"
	}]}`,
	"/orgs/finance/catalogs": `{"results": [{
		"id": "cat-1", "name": "sandbox", "title": "Sandbox",
		"owner_url": "https://apic.example.com/users/cat-owner",
		"url": "https://apic.example.com/catalogs/cat-1"
	}]}`,
	"/catalogs/finance/sandbox/apis": `{"results": [{
		"id": "a456", "name": "orders", "version": "1.0.0", "title": "Orders",
		"state": "online", "document_specification": "openapi3"
	}]}`,
	"/catalogs/finance/sandbox/apis/orders/1.0.0/document": `{"openapi": "3.0.0", "tags": [{"name": "Orders"}]}`,
	"/catalogs/finance/sandbox/products": `{"results": [{
		"id": "p123", "name": "billing-suite", "version": "2.0.0", "title": "Billing Suite",
		"state": "published",
		"plans": [{"name": "gold", "apis": [{"name": "orders", "version": "1.0.0"}]}]
	}]}`,
	"/catalogs/finance/sandbox/settings": `{"portal": {"endpoint": "https://portal.example.com"}}`,
}

func newInstanceServer(overrides map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body, ok := overrides[r.URL.Path]; ok {
			_, _ = w.Write([]byte(body))
			return
		}
		if body, ok := instanceResponses[r.URL.Path]; ok {
			_, _ = w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func newCollector(srv *httptest.Server) (*Collector, models.Instance) {
	store := cache.NewMemoryStore()
	tokens := apic.NewTokenManager(store, srv.Client(), apic.TokenConfig{}, noopLogger())
	client := apic.NewClient(srv.Client(), tokens, store, noopLogger())

	inst := models.Instance{
		ID:           "prod",
		URL:          srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		APIKey:       "key-123",
	}
	return NewCollector(client, noopLogger()), inst
}

func TestCollectInstance(t *testing.T) {
	srv := newInstanceServer(nil)
	defer srv.Close()

	collector, inst := newCollector(srv)

	entities, err := collector.CollectInstance(context.Background(), inst)
	require.NoError(t, err)
	require.Len(t, entities, 6)

	// Root and instance domains first, then org domain, API, system, product.
	root, ok := entities[0].(*models.DomainEntity)
	require.True(t, ok)
	assert.Equal(t, "APIC-Instances", root.Meta.Name)

	instanceDomain, ok := entities[1].(*models.DomainEntity)
	require.True(t, ok)
	assert.Equal(t, "prod", instanceDomain.Meta.Name)

	orgDomain, ok := entities[2].(*models.DomainEntity)
	require.True(t, ok)
	assert.Equal(t, "finance", orgDomain.Meta.Name)
	assert.Equal(t, "admin-user", orgDomain.Spec.Owner)

	api, ok := entities[3].(*models.APIEntity)
	require.True(t, ok)
	assert.Equal(t, "orders_1.0.0", api.Meta.Name)
	assert.Equal(t, "prod-sandbox", api.Meta.Namespace)
	assert.Equal(t, "openapi", api.Spec.Type)
	assert.Contains(t, api.Spec.Definition, "\"openapi\": \"3.0.0\"")
	assert.Equal(t, []string{"orders"}, api.Meta.Tags)

	system, ok := entities[4].(*models.SystemEntity)
	require.True(t, ok)
	assert.Equal(t, "sandbox", system.Meta.Name)
	assert.Equal(t, "finance", system.Spec.Domain)

	product, ok := entities[5].(*models.ProductEntity)
	require.True(t, ok)
	assert.Equal(t, "p123", product.Meta.Name)
	assert.Equal(t, []string{"orders_1.0.0"}, product.Spec.ProvidesAPIs)
	require.Len(t, product.Meta.Links, 1)
	assert.Equal(t, "https://portal.example.com/product/billing-suite:2.0.0/api/orders:1.0.0", product.Meta.Links[0].URL)
}

func TestCollectInstanceNoOrgs(t *testing.T) {
	srv := newInstanceServer(map[string]string{"/orgs": `{"results": []}`})
	defer srv.Close()

	collector, inst := newCollector(srv)

	entities, err := collector.CollectInstance(context.Background(), inst)
	require.NoError(t, err)

	// An empty instance still yields the root and instance domains.
	require.Len(t, entities, 2)
}

func TestCollectInstanceAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	collector, inst := newCollector(srv)

	_, err := collector.CollectInstance(context.Background(), inst)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))
}

func TestCollectInstanceBadDocumentAborts(t *testing.T) {
	srv := newInstanceServer(map[string]string{
		"/catalogs/finance/sandbox/apis/orders/1.0.0/document": "swagger: '2.0'",
	})
	defer srv.Close()

	collector, inst := newCollector(srv)

	_, err := collector.CollectInstance(context.Background(), inst)
	assert.ErrorContains(t, err, "orders:1.0.0")
}
