package apic

import (
	"bytes"
	"context"
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
	// DefaultSettleDelay is the pause after obtaining a fresh token before
	// first use. The auth backend is eventually consistent and rejects
	// brand-new tokens for a short window.
	DefaultSettleDelay = 2 * time.Second

	// UserAgent identifies this provider to the management API
	UserAgent = "catalog-backend-module-apic"
)

// ErrEmptyToken is returned when the token endpoint responds without an access token
var ErrEmptyToken = errors.New("token response contained no access token")

// TokenConfig holds token manager configuration
type TokenConfig struct {
	// TTL is the cache TTL for stored tokens. Zero leaves expiry to the
	// cache's own policy.
	TTL time.Duration

	// SettleDelay is the pause after a fresh token grant. Negative
	// disables the delay.
	SettleDelay time.Duration
}

// DefaultTokenConfig returns the default token manager configuration
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		SettleDelay: DefaultSettleDelay,
	}
}

// TokenManager obtains and caches one bearer token per configured
// instance. All downstream fetches reuse the cached token transparently.
type TokenManager struct {
	store  cache.Store
	client *http.Client
	config TokenConfig
	logger ectologger.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(store cache.Store, client *http.Client, config TokenConfig, logger ectologger.Logger) *TokenManager {
	if config.SettleDelay < 0 {
		config.SettleDelay = 0
	}

	return &TokenManager{
		store:  store,
		client: client,
		config: config,
		logger: logger,
	}
}

type apiKeyGrant struct {
	APIKey       string `json:"api_key"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

type passwordGrant struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Password     string `json:"password"`
	Realm        string `json:"realm"`
	Username     string `json:"username"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// GetToken returns a bearer token for the instance, issuing one
// authentication request when the cache has no entry. A non-2xx response
// from the token endpoint is a hard error for the instance's run.
func (m *TokenManager) GetToken(ctx context.Context, inst models.Instance) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "apic.TokenManager.GetToken")
	defer span.End()

	key := tokenCacheKey(inst.ID)
	token, err := m.store.Get(ctx, key)
	if err == nil && token != "" {
		m.logger.WithContext(ctx).Debugf("Using cached access token for instance %s", inst.ID)
		return token, nil
	}
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		m.logger.WithContext(ctx).WithError(err).Warnf("Token cache lookup failed for instance %s", inst.ID)
	}

	token, err = m.requestToken(ctx, inst)
	if err != nil {
		metrics.RecordTokenRefresh(inst.ID, "failure")
		return "", err
	}
	metrics.RecordTokenRefresh(inst.ID, "success")

	if err := m.store.Set(ctx, key, token, m.config.TTL); err != nil {
		m.logger.WithContext(ctx).WithError(err).Warnf("Failed to cache access token for instance %s", inst.ID)
	}

	if m.config.SettleDelay > 0 {
		select {
		case <-time.After(m.config.SettleDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return token, nil
}

// InvalidateToken removes the cached token for an instance
func (m *TokenManager) InvalidateToken(ctx context.Context, instanceID string) error {
	return m.store.Del(ctx, tokenCacheKey(instanceID))
}

// requestToken issues one authentication request for the instance
func (m *TokenManager) requestToken(ctx context.Context, inst models.Instance) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "apic.TokenManager.requestToken")
	defer span.End()

	var grant any
	if inst.UsesAPIKey() {
		grant = apiKeyGrant{
			APIKey:       inst.APIKey,
			ClientID:     inst.ClientID,
			ClientSecret: inst.ClientSecret,
			GrantType:    "api_key",
		}
	} else {
		grant = passwordGrant{
			ClientID:     inst.ClientID,
			ClientSecret: inst.ClientSecret,
			GrantType:    "password",
			Password:     inst.Password,
			Realm:        fmt.Sprintf("provider/%s", inst.IdentityProvider),
			Username:     inst.Username,
		}
	}

	body, err := json.Marshal(grant)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	url := inst.URL + "/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	setInstanceHeaders(req, inst)

	m.logger.WithContext(ctx).Infof("Requesting access token for instance %s", inst.ID)

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request for instance %s failed: %w", inst.ID, err)
	}
	defer resp.Body.Close()
	metrics.RecordSourceRequest(http.MethodPost, fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := httperror.NewHTTPErrorf(resp.StatusCode, "token request for instance %s returned status %d", inst.ID, resp.StatusCode)
		herr.AddMetaValue("instance", inst.ID)
		return "", herr
	}

	var parsed tokenResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse token response for instance %s: %w", inst.ID, err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("instance %s: %w", inst.ID, ErrEmptyToken)
	}

	return parsed.AccessToken, nil
}

func tokenCacheKey(instanceID string) string {
	return fmt.Sprintf("apic:%s:access-token", instanceID)
}

// setInstanceHeaders applies the header set expected by the management API
func setInstanceHeaders(req *http.Request, inst models.Instance) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Ibm-Client-Id", inst.ClientID)
	req.Header.Set("X-Ibm-Client-Secret", inst.ClientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
}
