package provider

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibm-apiconnect/backstage/pkg/models"
	"github.com/ibm-apiconnect/backstage/pkg/relations"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeCollector struct {
	entities []models.Entity
	err      error
	calls    int
}

func (f *fakeCollector) CollectInstance(_ context.Context, _ models.Instance) ([]models.Entity, error) {
	f.calls++
	return f.entities, f.err
}

type fakeSink struct {
	mu        sync.Mutex
	mutations []Mutation
}

func (f *fakeSink) ReplaceAll(_ context.Context, mutation Mutation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = append(f.mutations, mutation)
	return nil
}

type fakeEmitter struct {
	mu        sync.Mutex
	relations []relations.Relation
	err       error
}

func (f *fakeEmitter) EmitRelation(_ context.Context, rel relations.Relation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relations = append(f.relations, rel)
	return f.err
}

func singleInstanceLoader() InstanceLoader {
	return func(context.Context) ([]models.Instance, error) {
		return []models.Instance{{ID: "prod", URL: "https://apic.example.com", ClientID: "c", ClientSecret: "s", APIKey: "k"}}, nil
	}
}

func productEntity(name string, providesAPIs ...string) *models.ProductEntity {
	return &models.ProductEntity{
		APIVersion: models.APIVersionIBM,
		Kind:       models.KindProduct,
		Meta:       models.EntityMeta{Namespace: "prod-sandbox", Name: name},
		Spec:       models.ProductSpec{Owner: "system:prod/sandbox", ProvidesAPIs: providesAPIs},
	}
}

func domainEntity(name string) *models.DomainEntity {
	return &models.DomainEntity{
		APIVersion: models.APIVersionDefault,
		Kind:       models.KindDomain,
		Meta:       models.EntityMeta{Name: name},
		Spec:       models.DomainSpec{Owner: "default/apic"},
	}
}

func TestConnectTriggersFirstRun(t *testing.T) {
	collector := &fakeCollector{entities: []models.Entity{domainEntity("prod")}}
	sink := &fakeSink{}
	prov := NewProvider(singleInstanceLoader(), collector, nil, noopLogger())

	assert.Equal(t, StateIdle, prov.State())

	require.NoError(t, prov.Connect(context.Background(), sink))

	assert.Equal(t, StateConnected, prov.State())
	assert.Equal(t, 1, collector.calls)
	require.Len(t, sink.mutations, 1)
	assert.Equal(t, MutationTypeFull, sink.mutations[0].Type)
}

func TestConnectNilSink(t *testing.T) {
	prov := NewProvider(singleInstanceLoader(), &fakeCollector{}, nil, noopLogger())
	assert.ErrorIs(t, prov.Connect(context.Background(), nil), ErrNotConnected)
}

func TestRefreshWithoutConnect(t *testing.T) {
	collector := &fakeCollector{}
	prov := NewProvider(singleInstanceLoader(), collector, nil, noopLogger())

	prov.Refresh(context.Background())

	assert.Zero(t, collector.calls)
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	collector := &fakeCollector{entities: []models.Entity{domainEntity("a"), domainEntity("b"), domainEntity("c")}}
	sink := &fakeSink{}
	prov := NewProvider(singleInstanceLoader(), collector, nil, noopLogger())
	require.NoError(t, prov.Connect(context.Background(), sink))

	collector.entities = []models.Entity{domainEntity("a"), domainEntity("c"), domainEntity("d")}
	prov.Refresh(context.Background())

	require.Len(t, sink.mutations, 2)

	// Each mutation carries the complete snapshot; the sink never sees deltas.
	var names []string
	for _, located := range sink.mutations[1].Entities {
		names = append(names, located.Entity.GetMeta().Name)
		assert.Equal(t, DefaultLocationKey, located.LocationKey)
	}
	assert.Equal(t, []string{"a", "c", "d"}, names)
}

func TestRefreshFailsClosed(t *testing.T) {
	collector := &fakeCollector{entities: []models.Entity{domainEntity("a")}}
	sink := &fakeSink{}
	prov := NewProvider(singleInstanceLoader(), collector, nil, noopLogger())
	require.NoError(t, prov.Connect(context.Background(), sink))
	require.Len(t, sink.mutations, 1)

	// A failing collection must not produce any mutation at all.
	collector.err = errors.New("upstream unavailable")
	prov.Refresh(context.Background())

	assert.Len(t, sink.mutations, 1)
	assert.Equal(t, StateConnected, prov.State())
}

func TestRefreshEmitsProductRelations(t *testing.T) {
	collector := &fakeCollector{entities: []models.Entity{
		domainEntity("prod"),
		productEntity("p123", "orders_1.0.0"),
	}}
	emitter := &fakeEmitter{}
	prov := NewProvider(singleInstanceLoader(), collector, emitter, noopLogger())
	require.NoError(t, prov.Connect(context.Background(), &fakeSink{}))

	// Ownership pair plus one pair per API.
	require.Len(t, emitter.relations, 4)
	assert.Equal(t, relations.RelationOwnedBy, emitter.relations[0].Type)
	assert.Equal(t, relations.RelationOwnerOf, emitter.relations[1].Type)
	assert.Equal(t, relations.RelationProvidesAPI, emitter.relations[2].Type)
	assert.Equal(t, relations.RelationAPIProvidedBy, emitter.relations[3].Type)
}

func TestRefreshEmitterFailureNotFatal(t *testing.T) {
	collector := &fakeCollector{entities: []models.Entity{productEntity("p123")}}
	emitter := &fakeEmitter{err: errors.New("broker down")}
	sink := &fakeSink{}
	prov := NewProvider(singleInstanceLoader(), collector, emitter, noopLogger())
	require.NoError(t, prov.Connect(context.Background(), sink))

	// The mutation is committed before relation emission; emitter errors
	// never undo it.
	assert.Len(t, sink.mutations, 1)
	assert.Equal(t, StateConnected, prov.State())
}
