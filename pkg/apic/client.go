// Package apic implements the token gate and hierarchical fetcher for
// the API Connect management REST API.
package apic

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/ibm-apiconnect/backstage/pkg/cache"
	"github.com/ibm-apiconnect/backstage/pkg/metrics"
	"github.com/ibm-apiconnect/backstage/pkg/models"
	"github.com/ibm-apiconnect/backstage/pkg/tracing"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// maxResponseSize is the maximum response body size (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

// NewInsecureHTTPClient builds the HTTP client used against management
// endpoints. TLS certificate validation is disabled: management APIs
// commonly serve self-signed certificates on internal networks.
func NewInsecureHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// Client executes the ordered fetch sequence against one instance. List
// endpoints are read as a single page; the management API is assumed to
// return complete result sets per call.
type Client struct {
	client *http.Client
	tokens *TokenManager
	store  cache.Store
	logger ectologger.Logger
}

// NewClient creates a new management API client
func NewClient(client *http.Client, tokens *TokenManager, store cache.Store, logger ectologger.Logger) *Client {
	return &Client{
		client: client,
		tokens: tokens,
		store:  store,
		logger: logger,
	}
}

// ListOrgs lists the instance's provider organizations
func (c *Client) ListOrgs(ctx context.Context, inst models.Instance) ([]models.Org, error) {
	ctx, span := tracing.StartSpan(ctx, "apic.Client.ListOrgs")
	defer span.End()

	var envelope struct {
		Results []models.Org `json:"results"`
	}
	url := fmt.Sprintf("%s/orgs", inst.URL)
	if err := c.getJSON(ctx, inst, url, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// ListCatalogs lists the catalogs of one org
func (c *Client) ListCatalogs(ctx context.Context, inst models.Instance, orgName string) ([]models.Catalog, error) {
	ctx, span := tracing.StartSpan(ctx, "apic.Client.ListCatalogs")
	defer span.End()

	var envelope struct {
		Results []models.Catalog `json:"results"`
	}
	url := fmt.Sprintf("%s/orgs/%s/catalogs", inst.URL, orgName)
	if err := c.getJSON(ctx, inst, url, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// ListProducts lists the products published in one catalog
func (c *Client) ListProducts(ctx context.Context, inst models.Instance, orgName, catalogName string) ([]models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "apic.Client.ListProducts")
	defer span.End()

	var envelope struct {
		Results []models.Product `json:"results"`
	}
	url := fmt.Sprintf("%s/catalogs/%s/%s/products", inst.URL, orgName, catalogName)
	if err := c.getJSON(ctx, inst, url, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// ListAPIs lists the APIs published in one catalog
func (c *Client) ListAPIs(ctx context.Context, inst models.Instance, orgName, catalogName string) ([]models.API, error) {
	ctx, span := tracing.StartSpan(ctx, "apic.Client.ListAPIs")
	defer span.End()

	var envelope struct {
		Results []models.API `json:"results"`
	}
	url := fmt.Sprintf("%s/catalogs/%s/%s/apis", inst.URL, orgName, catalogName)
	if err := c.getJSON(ctx, inst, url, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// GetAPIDocument fetches one API's document by name and version. The
// document is round-tripped through the JSON decoder and re-serialized
// indented, which is the exact form stored on the API entity.
func (c *Client) GetAPIDocument(ctx context.Context, inst models.Instance, orgName, catalogName, apiName, apiVersion string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "apic.Client.GetAPIDocument")
	defer span.End()

	url := fmt.Sprintf("%s/catalogs/%s/%s/apis/%s/%s/document", inst.URL, orgName, catalogName, apiName, apiVersion)
	body, err := c.get(ctx, inst, url)
	if err != nil {
		return "", err
	}

	var document any
	if err := json.Unmarshal(body, &document); err != nil {
		return "", fmt.Errorf("failed to parse document for API %s:%s: %w", apiName, apiVersion, err)
	}

	indented, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize document for API %s:%s: %w", apiName, apiVersion, err)
	}
	return string(indented), nil
}

// GetPortalEndpoint resolves the portal endpoint from catalog settings.
// The result is cached per (instance, org, catalog) for the run; an empty
// endpoint is cached too so link synthesis is suppressed without repeated
// settings calls.
func (c *Client) GetPortalEndpoint(ctx context.Context, inst models.Instance, orgName, catalogName string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "apic.Client.GetPortalEndpoint")
	defer span.End()

	key := portalCacheKey(inst.ID, orgName, catalogName)
	endpoint, err := c.store.Get(ctx, key)
	if err == nil {
		c.logger.WithContext(ctx).Debugf("Using cached portal endpoint for catalog %s/%s", orgName, catalogName)
		return endpoint, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		c.logger.WithContext(ctx).WithError(err).Warnf("Portal endpoint cache lookup failed for catalog %s/%s", orgName, catalogName)
	}

	var settings struct {
		Portal struct {
			Endpoint string `json:"endpoint"`
		} `json:"portal"`
	}
	url := fmt.Sprintf("%s/catalogs/%s/%s/settings", inst.URL, orgName, catalogName)
	if err := c.getJSON(ctx, inst, url, &settings); err != nil {
		return "", err
	}

	endpoint = settings.Portal.Endpoint
	if cacheErr := c.store.Set(ctx, key, endpoint, 0); cacheErr != nil {
		c.logger.WithContext(ctx).WithError(cacheErr).Warnf("Failed to cache portal endpoint for catalog %s/%s", orgName, catalogName)
	}

	return endpoint, nil
}

// getJSON performs an authenticated GET and decodes the response body
func (c *Client) getJSON(ctx context.Context, inst models.Instance, url string, out any) error {
	body, err := c.get(ctx, inst, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", url, err)
	}
	return nil
}

// get performs an authenticated GET with the instance's header set
func (c *Client) get(ctx context.Context, inst models.Instance, url string) ([]byte, error) {
	token, err := c.tokens.GetToken(ctx, inst)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setInstanceHeaders(req, inst)
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("Request to %s failed", url)
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	metrics.RecordSourceRequest(http.MethodGet, fmt.Sprintf("%d", resp.StatusCode), duration.Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := httperror.NewHTTPErrorf(resp.StatusCode, "request to instance %s returned status %d", inst.ID, resp.StatusCode)
		herr.AddMetaValue("url", url)
		return nil, herr
	}

	c.logger.WithContext(ctx).Debugf("HTTP GET %s -> %d (%s)", url, resp.StatusCode, duration)

	return body, nil
}

func portalCacheKey(instanceID, orgName, catalogName string) string {
	return fmt.Sprintf("apic:%s:portal-endpoint-%s-%s", instanceID, orgName, catalogName)
}
