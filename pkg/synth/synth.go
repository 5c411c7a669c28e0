// Package synth converts raw API Connect records into catalog entities.
// Every function is pure: identity is a function of source ids and the
// instance id, so unchanged source data synthesizes byte-identical
// entities run over run.
package synth

import (
	"fmt"
	"strings"

	"github.com/ibm-apiconnect/backstage/pkg/models"
)

const (
	// RootDomainName is the name of the singleton root Domain
	RootDomainName = "APIC-Instances"

	// DefaultOwner owns the root and instance Domains
	DefaultOwner = "default/apic"
)

// APICDomain returns the singleton root Domain all instances hang off.
func APICDomain() *models.DomainEntity {
	return &models.DomainEntity{
		APIVersion: models.APIVersionDefault,
		Kind:       models.KindDomain,
		Meta: models.EntityMeta{
			ID:    "apic",
			UID:   "apic",
			Name:  RootDomainName,
			Title: "APIC Instances",
			Annotations: map[string]string{
				models.AnnotationSourceLocation: "apic:default",
				models.AnnotationLocation:       "apic:default",
				models.AnnotationOriginLocation: "apic:default",
			},
		},
		Spec: models.DomainSpec{
			Owner: DefaultOwner,
		},
	}
}

// InstanceDomain returns the Domain for one configured instance, a
// sub-domain of the root.
func InstanceDomain(instanceID string) *models.DomainEntity {
	return &models.DomainEntity{
		APIVersion: models.APIVersionDefault,
		Kind:       models.KindDomain,
		Meta: models.EntityMeta{
			ID:          instanceID,
			UID:         instanceID,
			Name:        instanceID,
			Title:       instanceID,
			Annotations: defaultAnnotations(instanceID),
		},
		Spec: models.DomainSpec{
			Owner:       DefaultOwner,
			SubdomainOf: fmt.Sprintf("domain:default/%s", RootDomainName),
		},
	}
}

// OrgDomain synthesizes a Domain from an org record. The owner is
// derived from the last path segment of the org's owner link.
func OrgDomain(org models.Org, instanceID string) (*models.DomainEntity, error) {
	annotations := defaultAnnotations(instanceID)
	annotations[models.AnnotationSourceLocation] = fmt.Sprintf("%s:%s", instanceID, org.URL)

	return models.NewDomainEntity(
		models.EntityMeta{
			Namespace:   instanceID,
			ID:          org.ID,
			UID:         org.ID,
			Name:        org.Name,
			Title:       org.Title,
			Annotations: annotations,
		},
		models.DomainSpec{
			Owner:       extractIDFromURL(org.OwnerURL),
			SubdomainOf: fmt.Sprintf("domain:default/%s", instanceID),
		},
	)
}

// CatalogSystem synthesizes a System from a catalog record. The parent
// org is identified by the fetch path rather than the record itself.
func CatalogSystem(catalog models.Catalog, orgName, instanceID string) (*models.SystemEntity, error) {
	annotations := defaultAnnotations(instanceID)
	annotations[models.AnnotationSourceLocation] = fmt.Sprintf("%s:%s", instanceID, catalog.URL)

	return models.NewSystemEntity(
		models.EntityMeta{
			Namespace:   instanceID,
			ID:          catalog.ID,
			Name:        catalog.Name,
			Title:       catalog.Title,
			Annotations: annotations,
		},
		models.SystemSpec{
			Owner:  extractIDFromURL(catalog.OwnerURL),
			Domain: orgName,
		},
	)
}

// Product synthesizes a Product entity from a product record.
func Product(product models.Product, catalogName, instanceID, portalEndpoint string) (*models.ProductEntity, error) {
	namespace := fmt.Sprintf("%s-%s", instanceID, catalogName)

	annotations := defaultAnnotations(instanceID)
	annotations[models.AnnotationSourceLocation] = fmt.Sprintf("%s:%s", instanceID, product.URL)
	annotations[fmt.Sprintf("%s/orgId", instanceID)] = extractIDFromURL(product.OrgURL)
	annotations[fmt.Sprintf("%s/catalogId", instanceID)] = extractIDFromURL(product.CatalogURL)
	annotations[fmt.Sprintf("%s/productName", instanceID)] = product.Name

	entity, err := models.NewProductEntity(
		models.EntityMeta{
			Namespace: namespace,
			ID:        product.ID,
			// The entity name is the source id: product names may exceed
			// the catalog's 63 character name limit.
			Name:        product.ID,
			Title:       product.Title,
			Description: fmt.Sprintf("Product retrieved from %s APIC Instance.", instanceID),
			Annotations: annotations,
			Links:       productLinks(product, portalEndpoint),
		},
		models.ProductSpec{
			Type:         "product",
			Lifecycle:    product.State,
			Owner:        fmt.Sprintf("system:%s/%s", instanceID, catalogName),
			Plans:        product.Plans,
			ProvidesAPIs: providesAPIs(product),
		},
	)
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// API synthesizes an API entity from an API record plus its fetched
// document and the resolved portal endpoint.
func API(api models.API, document, catalogName, instanceID, portalEndpoint string) (*models.APIEntity, error) {
	namespace := fmt.Sprintf("%s-%s", instanceID, catalogName)

	tags, err := ExtractTags(document)
	if err != nil {
		return nil, fmt.Errorf("API %s:%s: %w", api.Name, api.Version, err)
	}

	annotations := defaultAnnotations(instanceID)
	annotations[models.AnnotationSourceLocation] = fmt.Sprintf("%s:%s", instanceID, api.URL)
	annotations[fmt.Sprintf("%s/orgId", instanceID)] = extractIDFromURL(api.OrgURL)
	annotations[fmt.Sprintf("%s/catalogId", instanceID)] = extractIDFromURL(api.CatalogURL)

	specType := ""
	if strings.HasPrefix(api.DocumentSpecification, "openapi") {
		specType = "openapi"
	}

	var links []models.EntityLink
	if portalEndpoint != "" {
		links = []models.EntityLink{{
			URL:   fmt.Sprintf("%s/productselect/%s:%s", portalEndpoint, api.Name, api.Version),
			Title: fmt.Sprintf("Link to API - %s:%s", api.Name, api.Version),
			Icon:  "api",
		}}
	}

	return models.NewAPIEntity(
		models.EntityMeta{
			Namespace:   namespace,
			ID:          api.ID,
			Name:        fmt.Sprintf("%s_%s", api.Name, api.Version),
			Title:       fmt.Sprintf("%s %s", api.Title, api.Version),
			Description: api.Name,
			Annotations: annotations,
			Tags:        tags,
			Links:       links,
		},
		models.APISpec{
			Type:       specType,
			Lifecycle:  api.State,
			Owner:      fmt.Sprintf("system:%s/%s", instanceID, catalogName),
			Definition: document,
			System:     fmt.Sprintf("%s/%s", instanceID, catalogName),
		},
	)
}

// providesAPIs is the de-duplicated union of {name}_{version} across all
// plans, in plan order. Every name resolves to an API entity synthesized
// under the same namespace within the same run.
func providesAPIs(product models.Product) []string {
	var names []string
	seen := make(map[string]bool)
	for _, plan := range product.Plans {
		for _, api := range plan.APIs {
			name := fmt.Sprintf("%s_%s", api.Name, api.Version)
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// productLinks builds the portal link per plan API, de-duplicated by
// title keeping the first occurrence's URL.
func productLinks(product models.Product, portalEndpoint string) []models.EntityLink {
	var links []models.EntityLink
	seen := make(map[string]bool)
	for _, plan := range product.Plans {
		for _, api := range plan.APIs {
			title := fmt.Sprintf("%s:%s", api.Name, api.Version)
			if seen[title] {
				continue
			}
			seen[title] = true
			links = append(links, models.EntityLink{
				URL:   fmt.Sprintf("%s/product/%s:%s/api/%s:%s", portalEndpoint, product.Name, product.Version, api.Name, api.Version),
				Title: title,
				Icon:  "api",
			})
		}
	}
	return links
}

func defaultAnnotations(instanceID string) map[string]string {
	return map[string]string{
		models.AnnotationSourceLocation: fmt.Sprintf("%s:default", instanceID),
		models.AnnotationLocation:       fmt.Sprintf("%s:default", instanceID),
		models.AnnotationOriginLocation: fmt.Sprintf("%s:default", instanceID),
	}
}

// extractIDFromURL returns the last path segment of a parent link
func extractIDFromURL(url string) string {
	if url == "" {
		return ""
	}
	return url[strings.LastIndex(url, "/")+1:]
}
