// Package collector walks one instance's resource hierarchy and
// synthesizes its full entity set.
package collector

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/ibm-apiconnect/backstage/pkg/apic"
	"github.com/ibm-apiconnect/backstage/pkg/metrics"
	"github.com/ibm-apiconnect/backstage/pkg/models"
	"github.com/ibm-apiconnect/backstage/pkg/synth"
	"github.com/ibm-apiconnect/backstage/pkg/tracing"
)

// Collector performs the depth-first traversal
// instance -> org -> catalog -> {apis, products} and converts every
// record on the way down. Any error aborts the instance's collection;
// partial entity sets are never returned.
type Collector struct {
	client *apic.Client
	logger ectologger.Logger
}

// NewCollector creates a new collector
func NewCollector(client *apic.Client, logger ectologger.Logger) *Collector {
	return &Collector{
		client: client,
		logger: logger,
	}
}

// CollectInstance returns the ordered entity sequence for one instance:
// the root and instance Domains, then org Domains, API entities, catalog
// Systems, and Product entities.
func (c *Collector) CollectInstance(ctx context.Context, inst models.Instance) ([]models.Entity, error) {
	ctx, span := tracing.StartSpan(ctx, "collector.Collector.CollectInstance")
	defer span.End()

	log := c.logger.WithContext(ctx).WithField("instance", inst.ID)

	orgs, err := c.client.ListOrgs(ctx, inst)
	if err != nil {
		return nil, err
	}
	log.Debugf("Found %d orgs", len(orgs))

	var orgDomains []*models.DomainEntity
	var systems []*models.SystemEntity
	var apiEntities []*models.APIEntity
	var products []*models.ProductEntity

	for _, org := range orgs {
		domain, err := synth.OrgDomain(org, inst.ID)
		if err != nil {
			return nil, err
		}
		orgDomains = append(orgDomains, domain)

		catalogs, err := c.client.ListCatalogs(ctx, inst, org.Name)
		if err != nil {
			return nil, err
		}

		for _, catalog := range catalogs {
			system, err := synth.CatalogSystem(catalog, org.Name, inst.ID)
			if err != nil {
				return nil, err
			}

			// APIs before products: product synthesis references API
			// entity names that must land in the same snapshot.
			catalogAPIs, err := c.collectAPIs(ctx, inst, org.Name, catalog.Name)
			if err != nil {
				return nil, err
			}
			apiEntities = append(apiEntities, catalogAPIs...)

			catalogProducts, err := c.collectProducts(ctx, inst, org.Name, catalog.Name)
			if err != nil {
				return nil, err
			}
			products = append(products, catalogProducts...)

			systems = append(systems, system)
		}
	}

	entities := make([]models.Entity, 0, 2+len(orgDomains)+len(apiEntities)+len(systems)+len(products))
	entities = append(entities, synth.APICDomain(), synth.InstanceDomain(inst.ID))
	for _, e := range orgDomains {
		entities = append(entities, e)
	}
	for _, e := range apiEntities {
		entities = append(entities, e)
	}
	for _, e := range systems {
		entities = append(entities, e)
	}
	for _, e := range products {
		entities = append(entities, e)
	}

	metrics.EntitiesSynthesizedTotal.WithLabelValues(models.KindDomain).Add(float64(2 + len(orgDomains)))
	metrics.EntitiesSynthesizedTotal.WithLabelValues(models.KindSystem).Add(float64(len(systems)))
	metrics.EntitiesSynthesizedTotal.WithLabelValues(models.KindAPI).Add(float64(len(apiEntities)))
	metrics.EntitiesSynthesizedTotal.WithLabelValues(models.KindProduct).Add(float64(len(products)))

	log.Infof("Collected %d entities", len(entities))
	return entities, nil
}

// collectAPIs lists a catalog's APIs and fetches each one's document
// concurrently. The documents are independent reads, so the fan-out is
// fire-and-await-all with index-stable collection.
func (c *Collector) collectAPIs(ctx context.Context, inst models.Instance, orgName, catalogName string) ([]*models.APIEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "collector.Collector.collectAPIs")
	defer span.End()

	apis, err := c.client.ListAPIs(ctx, inst, orgName, catalogName)
	if err != nil {
		return nil, err
	}
	if len(apis) == 0 {
		return nil, nil
	}

	entities := make([]*models.APIEntity, len(apis))
	errs := make([]error, len(apis))

	var wg sync.WaitGroup
	for i, api := range apis {
		wg.Add(1)
		go func(i int, api models.API) {
			defer wg.Done()

			document, err := c.client.GetAPIDocument(ctx, inst, orgName, catalogName, api.Name, api.Version)
			if err != nil {
				errs[i] = err
				return
			}

			portalEndpoint, err := c.client.GetPortalEndpoint(ctx, inst, orgName, catalogName)
			if err != nil {
				errs[i] = err
				return
			}

			entities[i], errs[i] = synth.API(api, document, catalogName, inst.ID, portalEndpoint)
		}(i, api)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// collectProducts lists a catalog's products and synthesizes them with
// the catalog's portal endpoint.
func (c *Collector) collectProducts(ctx context.Context, inst models.Instance, orgName, catalogName string) ([]*models.ProductEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "collector.Collector.collectProducts")
	defer span.End()

	products, err := c.client.ListProducts(ctx, inst, orgName, catalogName)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}

	portalEndpoint, err := c.client.GetPortalEndpoint(ctx, inst, orgName, catalogName)
	if err != nil {
		return nil, err
	}

	entities := make([]*models.ProductEntity, 0, len(products))
	for _, product := range products {
		entity, err := synth.Product(product, catalogName, inst.ID, portalEndpoint)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
