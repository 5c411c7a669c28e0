// Package provider orchestrates the scheduled collection runs and issues
// full-snapshot mutations to the sink.
package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/ibm-apiconnect/backstage/pkg/metrics"
	"github.com/ibm-apiconnect/backstage/pkg/models"
	"github.com/ibm-apiconnect/backstage/pkg/relations"
	"github.com/ibm-apiconnect/backstage/pkg/tracing"
)

// Name identifies this provider in logs and sink attribution
const Name = "ibm:apic"

// ErrNotConnected is returned when a refresh is requested before Connect
var ErrNotConnected = errors.New("provider is not connected")

// State is the provider lifecycle state
type State string

const (
	StateIdle      State = "idle"
	StateConnected State = "connected"
	StateRunning   State = "running"
)

// Collector produces the ordered entity set for one instance
type Collector interface {
	CollectInstance(ctx context.Context, inst models.Instance) ([]models.Entity, error)
}

// InstanceLoader produces the set of validated instance configs for a run
type InstanceLoader func(ctx context.Context) ([]models.Instance, error)

// Provider accumulates the full entity set across all configured
// instances and issues exactly one full-replace mutation per run. Any
// error inside a run is caught at the run boundary and logged; no
// mutation is sent and the sink's previous snapshot stays authoritative.
type Provider struct {
	loadInstances InstanceLoader
	collector     Collector
	emitter       relations.Emitter
	logger        ectologger.Logger

	sink  Sink
	state State

	runMu   sync.Mutex
	stateMu sync.RWMutex
}

// NewProvider creates a new snapshot provider
func NewProvider(loadInstances InstanceLoader, collector Collector, emitter relations.Emitter, logger ectologger.Logger) *Provider {
	return &Provider{
		loadInstances: loadInstances,
		collector:     collector,
		emitter:       emitter,
		logger:        logger,
		state:         StateIdle,
	}
}

// State returns the current lifecycle state
func (p *Provider) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

func (p *Provider) setState(state State) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.state = state
}

// Connect retains the sink handle and immediately triggers the first run
func (p *Provider) Connect(ctx context.Context, sink Sink) error {
	if sink == nil {
		return ErrNotConnected
	}

	p.stateMu.Lock()
	p.sink = sink
	p.state = StateConnected
	p.stateMu.Unlock()

	p.logger.WithContext(ctx).Infof("Provider %s connected", Name)

	p.Refresh(ctx)
	return nil
}

// Refresh executes one scheduled run. Runs are serialized; a trigger
// arriving while a run is in flight waits for it. Errors are logged and
// swallowed here, the scheduler is not informed beyond the log.
func (p *Provider) Refresh(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "provider.Provider.Refresh")
	defer span.End()

	p.stateMu.RLock()
	sink := p.sink
	p.stateMu.RUnlock()
	if sink == nil {
		p.logger.WithContext(ctx).WithError(ErrNotConnected).Error("Refusing provider run")
		return
	}

	p.setState(StateRunning)
	defer p.setState(StateConnected)

	p.logger.WithContext(ctx).Info("Running scheduled provider refresh")

	start := time.Now()
	entities, err := p.run(ctx, sink)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordProviderRun("failure", duration.Seconds())
		p.logger.WithContext(ctx).WithError(err).Error("Provider run failed, previous snapshot remains authoritative")
		return
	}

	metrics.RecordProviderRun("success", duration.Seconds())
	p.logger.WithContext(ctx).Infof("Provider run completed: entities=%d duration=%s", len(entities), duration)
}

// run collects every instance sequentially and issues the mutation
func (p *Provider) run(ctx context.Context, sink Sink) ([]models.Entity, error) {
	instances, err := p.loadInstances(ctx)
	if err != nil {
		return nil, err
	}

	var all []models.Entity
	for _, inst := range instances {
		p.logger.WithContext(ctx).Infof("Collecting instance %s", inst.ID)

		entities, err := p.collector.CollectInstance(ctx, inst)
		if err != nil {
			return nil, err
		}
		all = append(all, entities...)
	}

	located := make([]LocatedEntity, len(all))
	for i, entity := range all {
		located[i] = LocatedEntity{Entity: entity, LocationKey: DefaultLocationKey}
	}

	mutation := Mutation{Type: MutationTypeFull, Entities: located}
	if err := sink.ReplaceAll(ctx, mutation); err != nil {
		return nil, err
	}
	metrics.MutationEntities.Observe(float64(len(located)))

	p.emitRelations(ctx, all)
	return all, nil
}

// emitRelations runs the relation derivation pass over the snapshot's
// Product entities. Emission failures are logged, not fatal: the
// snapshot is already committed and the next run re-derives everything.
func (p *Provider) emitRelations(ctx context.Context, entities []models.Entity) {
	if p.emitter == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "provider.Provider.emitRelations")
	defer span.End()

	for _, entity := range entities {
		product, ok := entity.(*models.ProductEntity)
		if !ok {
			continue
		}

		rels, err := relations.Derive(product)
		if err != nil {
			p.logger.WithContext(ctx).WithError(err).Errorf("Failed to derive relations for product %s", product.Ref())
			continue
		}

		for _, rel := range rels {
			if err := p.emitter.EmitRelation(ctx, rel); err != nil {
				p.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s relation for product %s", rel.Type, product.Ref())
			}
		}
	}
}
