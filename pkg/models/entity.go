package models

import (
	"fmt"
	"strings"
)

// Entity kind labels as they appear on serialized entities.
const (
	KindDomain  = "Domain"
	KindSystem  = "System"
	KindProduct = "Product"
	KindAPI     = "API"
)

// API versions for synthesized entities.
const (
	APIVersionDefault = "backstage.io/v1alpha1"
	APIVersionIBM     = "ibm.com/v1beta1"
)

// Well-known annotation keys carried on every synthesized entity.
const (
	AnnotationSourceLocation = "backstage.io/source-location"
	AnnotationLocation       = "backstage.io/managed-by-location"
	AnnotationOriginLocation = "backstage.io/managed-by-origin-location"
)

// DefaultNamespace is used when a reference omits its namespace.
const DefaultNamespace = "default"

// EntityRef is a compound reference to an entity, resolvable by the
// consuming catalog's own index.
type EntityRef struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// String renders the reference as "kind:namespace/name".
func (r EntityRef) String() string {
	ns := r.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	if r.Kind == "" {
		return fmt.Sprintf("%s/%s", ns, r.Name)
	}
	return fmt.Sprintf("%s:%s/%s", strings.ToLower(r.Kind), ns, r.Name)
}

// ParseEntityRef parses a "kind:namespace/name" reference. Kind and
// namespace are optional; a missing namespace resolves to "default".
func ParseEntityRef(s string) (EntityRef, error) {
	ref := EntityRef{Namespace: DefaultNamespace}

	rest := s
	if kind, remainder, ok := strings.Cut(rest, ":"); ok {
		ref.Kind = strings.ToLower(kind)
		rest = remainder
	}
	if ns, name, ok := strings.Cut(rest, "/"); ok {
		ref.Namespace = ns
		ref.Name = name
	} else {
		ref.Name = rest
	}

	if ref.Name == "" {
		return EntityRef{}, fmt.Errorf("invalid entity reference %q: missing name", s)
	}
	return ref, nil
}

// EntityLink is an external link attached to an entity.
type EntityLink struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// EntityMeta holds the identity and descriptive metadata shared by all
// entity kinds.
type EntityMeta struct {
	Namespace   string            `json:"namespace,omitempty"`
	ID          string            `json:"id,omitempty"`
	UID         string            `json:"uid,omitempty"`
	Name        string            `json:"name"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Links       []EntityLink      `json:"links,omitempty"`
}

// Entity is implemented by the four synthesized entity kinds.
type Entity interface {
	Ref() EntityRef
	GetMeta() *EntityMeta
	Validate() error
}

// DomainSpec holds Domain-specific fields.
type DomainSpec struct {
	Owner       string `json:"owner"`
	SubdomainOf string `json:"subdomainOf,omitempty"`
}

// DomainEntity groups related systems under one organizational domain.
type DomainEntity struct {
	APIVersion string     `json:"apiVersion"`
	Kind       string     `json:"kind"`
	Meta       EntityMeta `json:"metadata"`
	Spec       DomainSpec `json:"spec"`
}

func (e *DomainEntity) Ref() EntityRef {
	return EntityRef{Kind: strings.ToLower(KindDomain), Namespace: e.Meta.Namespace, Name: e.Meta.Name}
}

func (e *DomainEntity) GetMeta() *EntityMeta { return &e.Meta }

func (e *DomainEntity) Validate() error {
	return requireFields(KindDomain, map[string]string{
		"metadata.name": e.Meta.Name,
		"spec.owner":    e.Spec.Owner,
	})
}

// NewDomainEntity builds a Domain entity, enforcing required fields.
func NewDomainEntity(meta EntityMeta, spec DomainSpec) (*DomainEntity, error) {
	e := &DomainEntity{
		APIVersion: APIVersionDefault,
		Kind:       KindDomain,
		Meta:       meta,
		Spec:       spec,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// SystemSpec holds System-specific fields.
type SystemSpec struct {
	Owner  string `json:"owner"`
	Domain string `json:"domain,omitempty"`
}

// SystemEntity represents one catalog within an organization.
type SystemEntity struct {
	APIVersion string     `json:"apiVersion"`
	Kind       string     `json:"kind"`
	Meta       EntityMeta `json:"metadata"`
	Spec       SystemSpec `json:"spec"`
}

func (e *SystemEntity) Ref() EntityRef {
	return EntityRef{Kind: strings.ToLower(KindSystem), Namespace: e.Meta.Namespace, Name: e.Meta.Name}
}

func (e *SystemEntity) GetMeta() *EntityMeta { return &e.Meta }

func (e *SystemEntity) Validate() error {
	return requireFields(KindSystem, map[string]string{
		"metadata.name": e.Meta.Name,
		"spec.owner":    e.Spec.Owner,
	})
}

// NewSystemEntity builds a System entity, enforcing required fields.
func NewSystemEntity(meta EntityMeta, spec SystemSpec) (*SystemEntity, error) {
	e := &SystemEntity{
		APIVersion: APIVersionDefault,
		Kind:       KindSystem,
		Meta:       meta,
		Spec:       spec,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// ProductSpec holds Product-specific fields.
type ProductSpec struct {
	Type         string   `json:"type"`
	Lifecycle    string   `json:"lifecycle,omitempty"`
	Owner        string   `json:"owner"`
	Plans        []Plan   `json:"plans,omitempty"`
	ProvidesAPIs []string `json:"providesApis,omitempty"`
}

// ProductEntity represents one published product within a catalog.
type ProductEntity struct {
	APIVersion string      `json:"apiVersion"`
	Kind       string      `json:"kind"`
	Meta       EntityMeta  `json:"metadata"`
	Spec       ProductSpec `json:"spec"`
}

func (e *ProductEntity) Ref() EntityRef {
	return EntityRef{Kind: strings.ToLower(KindProduct), Namespace: e.Meta.Namespace, Name: e.Meta.Name}
}

func (e *ProductEntity) GetMeta() *EntityMeta { return &e.Meta }

func (e *ProductEntity) Validate() error {
	return requireFields(KindProduct, map[string]string{
		"metadata.namespace": e.Meta.Namespace,
		"metadata.name":      e.Meta.Name,
		"spec.owner":         e.Spec.Owner,
	})
}

// NewProductEntity builds a Product entity, enforcing required fields.
func NewProductEntity(meta EntityMeta, spec ProductSpec) (*ProductEntity, error) {
	e := &ProductEntity{
		APIVersion: APIVersionIBM,
		Kind:       KindProduct,
		Meta:       meta,
		Spec:       spec,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// APISpec holds API-specific fields.
type APISpec struct {
	Type       string `json:"type"`
	Lifecycle  string `json:"lifecycle,omitempty"`
	Owner      string `json:"owner"`
	Definition string `json:"definition,omitempty"`
	System     string `json:"system,omitempty"`
}

// APIEntity represents one published API version within a catalog.
type APIEntity struct {
	APIVersion string     `json:"apiVersion"`
	Kind       string     `json:"kind"`
	Meta       EntityMeta `json:"metadata"`
	Spec       APISpec    `json:"spec"`
}

func (e *APIEntity) Ref() EntityRef {
	return EntityRef{Kind: strings.ToLower(KindAPI), Namespace: e.Meta.Namespace, Name: e.Meta.Name}
}

func (e *APIEntity) GetMeta() *EntityMeta { return &e.Meta }

func (e *APIEntity) Validate() error {
	return requireFields(KindAPI, map[string]string{
		"metadata.namespace": e.Meta.Namespace,
		"metadata.name":      e.Meta.Name,
		"spec.owner":         e.Spec.Owner,
	})
}

// NewAPIEntity builds an API entity, enforcing required fields.
func NewAPIEntity(meta EntityMeta, spec APISpec) (*APIEntity, error) {
	e := &APIEntity{
		APIVersion: APIVersionDefault,
		Kind:       KindAPI,
		Meta:       meta,
		Spec:       spec,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func requireFields(kind string, fields map[string]string) error {
	for name, value := range fields {
		if value == "" {
			return fmt.Errorf("%s entity is missing required field %s", kind, name)
		}
	}
	return nil
}
