// Package fleet implements the HTTP client for the remote device-control
// API: token grants, site resolution, status reads, and the backup-reserve
// command.
package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/ports/driven"
)

const (
	// DefaultTimeout bounds every outbound call. Invocations are
	// short-lived; a hung call must never consume the whole budget.
	DefaultTimeout = 10 * time.Second

	// DefaultAuthBase is the token endpoint host.
	DefaultAuthBase = "https://fleet-auth.prd.vn.cloud.tesla.com"

	// DefaultAPIBaseFormat is the regional API host pattern.
	DefaultAPIBaseFormat = "https://fleet-api.prd.%s.vn.cloud.tesla.com"

	// DefaultRegion selects the regional API host.
	DefaultRegion = "eu"

	userAgent = "voltaic/1.0"
)

// Ensure Client implements the interface.
var _ driven.FleetAPI = (*Client)(nil)

// Config holds the endpoints and grant options for a Client.
type Config struct {
	// AuthBase is the token endpoint base URL.
	AuthBase string

	// APIBase is the device API base URL.
	APIBase string

	// Scope and Audience are sent on grants when non-empty.
	Scope    string
	Audience string

	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// DefaultConfig returns endpoints for the given region ("eu", "na", ...).
func DefaultConfig(region string) Config {
	if region == "" {
		region = DefaultRegion
	}
	return Config{
		AuthBase: DefaultAuthBase,
		APIBase:  fmt.Sprintf(DefaultAPIBaseFormat, region),
	}
}

// Client talks to the fleet API. It owns transport concerns only; retry
// policy belongs to the calling service.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a fleet API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(),
	}
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// tokenEndpoint is the full token URL.
func (c *Client) tokenEndpoint() string {
	return strings.TrimRight(c.cfg.AuthBase, "/") + "/oauth2/v3/token"
}

// RefreshTokens performs a refresh grant against the token endpoint.
func (c *Client) RefreshTokens(
	ctx context.Context, creds domain.CredentialPair, refreshToken string,
) (*domain.TokenExchange, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", creds.ClientID)
	data.Set("refresh_token", refreshToken)
	if creds.ClientSecret != "" {
		data.Set("client_secret", creds.ClientSecret)
	}

	exch, err := c.tokenGrant(ctx, data)
	if err != nil {
		if IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrRefreshTokenRejected, err)
		}
		return nil, err
	}

	// The endpoint may rotate the refresh token or keep the old one.
	if exch.RefreshToken == "" {
		exch.RefreshToken = refreshToken
	}
	return exch, nil
}

// ExchangeCode trades an authorization code for an initial token pair.
func (c *Client) ExchangeCode(
	ctx context.Context, creds domain.CredentialPair, code, redirectURI string,
) (*domain.TokenExchange, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", creds.ClientID)
	data.Set("client_secret", creds.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)

	return c.tokenGrant(ctx, data)
}

// tokenGrant posts a form-encoded grant and decodes the token response.
func (c *Client) tokenGrant(ctx context.Context, data url.Values) (*domain.TokenExchange, error) {
	if c.cfg.Scope != "" {
		data.Set("scope", c.cfg.Scope)
	}
	if c.cfg.Audience != "" {
		data.Set("audience", c.cfg.Audience)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.tokenEndpoint(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError("token grant", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.responseError(resp)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	exch := &domain.TokenExchange{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
	}
	if tokenResp.ExpiresIn > 0 {
		exch.Expiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}
	return exch, nil
}

// ResolveBatterySite returns the single battery site visible to the account.
func (c *Client) ResolveBatterySite(ctx context.Context, accessToken string) (*domain.Site, error) {
	var products struct {
		Response []struct {
			EnergySiteID json.Number `json:"energy_site_id"`
			SiteName     string      `json:"site_name"`
			DeviceType   string      `json:"device_type"`
			ResourceType string      `json:"resource_type"`
		} `json:"response"`
	}
	if err := c.apiGet(ctx, accessToken, "/api/1/products", &products); err != nil {
		return nil, err
	}

	var sites []domain.Site
	for _, p := range products.Response {
		if p.DeviceType == "energy" && p.ResourceType == "battery" {
			sites = append(sites, domain.Site{ID: p.EnergySiteID.String(), Name: p.SiteName})
		}
	}

	switch len(sites) {
	case 0:
		return nil, domain.ErrNoBatterySite
	case 1:
		return &sites[0], nil
	default:
		return nil, fmt.Errorf("%w: %d sites visible", domain.ErrMultipleSites, len(sites))
	}
}

// SiteInfo reads the site configuration, including the current reserve.
func (c *Client) SiteInfo(ctx context.Context, accessToken, siteID string) (*domain.SiteInfo, error) {
	var info struct {
		Response struct {
			BackupReservePercent float64 `json:"backup_reserve_percent"`
			SiteName             string  `json:"site_name"`
		} `json:"response"`
	}
	path := fmt.Sprintf("/api/1/energy_sites/%s/site_info", siteID)
	if err := c.apiGet(ctx, accessToken, path, &info); err != nil {
		return nil, err
	}
	return &domain.SiteInfo{
		BackupReservePercent: info.Response.BackupReservePercent,
		SiteName:             info.Response.SiteName,
	}, nil
}

// LiveStatus reads the instantaneous charge and power-flow figures.
func (c *Client) LiveStatus(ctx context.Context, accessToken, siteID string) (*domain.LiveStatus, error) {
	var status struct {
		Response struct {
			PercentageCharged float64 `json:"percentage_charged"`
			BatteryPower      float64 `json:"battery_power"`
			SolarPower        float64 `json:"solar_power"`
			LoadPower         float64 `json:"load_power"`
		} `json:"response"`
	}
	path := fmt.Sprintf("/api/1/energy_sites/%s/live_status", siteID)
	if err := c.apiGet(ctx, accessToken, path, &status); err != nil {
		return nil, err
	}
	return &domain.LiveStatus{
		PercentageCharged: status.Response.PercentageCharged,
		BatteryPower:      status.Response.BatteryPower,
		SolarPower:        status.Response.SolarPower,
		LoadPower:         status.Response.LoadPower,
	}, nil
}

// SetBackupReserve issues the reserve command.
func (c *Client) SetBackupReserve(
	ctx context.Context, accessToken, siteID string, percent int,
) (string, error) {
	body := map[string]int{"backup_reserve_percent": percent}

	var result struct {
		Response struct {
			RequestID string `json:"request_id"`
		} `json:"response"`
	}
	path := fmt.Sprintf("/api/1/energy_sites/%s/backup", siteID)
	if err := c.apiPost(ctx, accessToken, path, body, &result); err != nil {
		return "", err
	}
	return result.Response.RequestID, nil
}

// apiGet performs an authenticated GET and decodes the JSON response.
func (c *Client) apiGet(ctx context.Context, accessToken, path string, out any) error {
	return c.apiRequest(ctx, accessToken, http.MethodGet, path, nil, out)
}

// apiPost performs an authenticated JSON POST and decodes the response.
func (c *Client) apiPost(ctx context.Context, accessToken, path string, body, out any) error {
	return c.apiRequest(ctx, accessToken, http.MethodPost, path, body, out)
}

func (c *Client) apiRequest(
	ctx context.Context, accessToken, method, path string, body, out any,
) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, strings.TrimRight(c.cfg.APIBase, "/")+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.authedClient(ctx, accessToken).Do(req)
	if err != nil {
		return transportError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if rlErr := c.rateLimiter.CheckRateLimit(resp); rlErr != nil {
		return rlErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.responseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// authedClient wraps the base client with a bearer token source.
func (c *Client) authedClient(ctx context.Context, accessToken string) *http.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	authed := oauth2.NewClient(ctx, ts)
	authed.Timeout = c.httpClient.Timeout
	return authed
}

// responseError drains the body (truncated) into a typed APIError.
func (c *Client) responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyInError))
	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(raw)),
		URL:        resp.Request.URL.String(),
	}
}
