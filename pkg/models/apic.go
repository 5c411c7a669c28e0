// Package models defines the raw API Connect records and the catalog
// entities synthesized from them.
package models

// Org is an organization record returned by the management API.
type Org struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	OwnerURL string `json:"owner_url"`
	URL      string `json:"url"`
}

// Catalog is a catalog record returned by the management API. Its parent
// org is implied by the fetch path rather than carried on the record.
type Catalog struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	OwnerURL string `json:"owner_url"`
	URL      string `json:"url"`
}

// PlanAPI identifies one API included in a product plan.
type PlanAPI struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Plan is one subscription plan within a product.
type Plan struct {
	Name  string    `json:"name"`
	Title string    `json:"title"`
	APIs  []PlanAPI `json:"apis"`
}

// Product is a product record returned by the management API.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Title      string `json:"title"`
	State      string `json:"state"`
	Plans      []Plan `json:"plans"`
	OrgURL     string `json:"org_url"`
	CatalogURL string `json:"catalog_url"`
	URL        string `json:"url"`
}

// API is an API record returned by the management API.
type API struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Version               string `json:"version"`
	Title                 string `json:"title"`
	State                 string `json:"state"`
	DocumentSpecification string `json:"document_specification"`
	OrgURL                string `json:"org_url"`
	CatalogURL            string `json:"catalog_url"`
	URL                   string `json:"url"`
}
