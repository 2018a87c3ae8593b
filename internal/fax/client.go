// Package fax wraps the Sinch Fax API. Calls never fail with an error at
// this boundary: network trouble and provider rejections both come back as
// result values so callers only ever branch on Success.
package fax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/westmount/faxbridge/internal/hosting"
)

// DefaultAPIURL is the Sinch v3 fax API base
const DefaultAPIURL = "https://fax.api.sinch.com/v3/projects"

// Config holds fax provider credentials and addressing
type Config struct {
	// APIURL is the provider base URL (project segment appended)
	APIURL string
	// AccessKey and AccessSecret form the basic-auth pair
	AccessKey    string
	AccessSecret string
	// ProjectID is the Sinch project identifier
	ProjectID string
	// CallbackURL, when set, is passed so the provider posts delivery
	// notifications back to us
	CallbackURL string
	// Timeout bounds each provider call
	Timeout time.Duration
}

// DefaultConfig returns defaults matching the production deployment
func DefaultConfig() Config {
	return Config{
		APIURL:  DefaultAPIURL,
		Timeout: 30 * time.Second,
	}
}

// DispatchResult is the outcome of one fax submission. FaxID is set only on
// success; Err is a descriptive string set only on failure. RawResponse
// keeps the provider payload verbatim for diagnosis.
type DispatchResult struct {
	Success     bool
	FaxID       string
	Destination string
	Err         string
	RawResponse map[string]interface{}
}

// StatusResult is the outcome of a fax status lookup
type StatusResult struct {
	Success bool
	Status  map[string]interface{}
	Err     string
}

// Client sends faxes through the provider
type Client struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a fax client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// faxesURL is the collection endpoint for this project
func (c *Client) faxesURL() string {
	return fmt.Sprintf("%s/%s/faxes", strings.TrimRight(c.config.APIURL, "/"), c.config.ProjectID)
}

// Submit sends the hosted document to destination. A 200/201 from the
// provider yields Success with the provider-assigned fax ID; any other
// status or transport failure yields a failed result, never an error.
func (c *Client) Submit(ctx context.Context, destination string, content *hosting.Reference) *DispatchResult {
	result := &DispatchResult{Destination: destination}

	payload := map[string]string{
		"to":         destination,
		"contentUrl": content.URL,
	}
	if c.config.CallbackURL != "" {
		payload["callbackUrl"] = c.config.CallbackURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		result.Err = fmt.Sprintf("encode request: %v", err)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.faxesURL(), bytes.NewReader(body))
	if err != nil {
		result.Err = fmt.Sprintf("build request: %v", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.AccessKey, c.config.AccessSecret)

	c.logger.Info("submitting fax",
		zap.String("destination", destination),
		zap.String("content_url", content.URL),
		zap.String("service", content.Service))

	resp, err := c.client.Do(req)
	if err != nil {
		result.Err = fmt.Sprintf("network error: %v", err)
		return result
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		result.Err = fmt.Sprintf("read response: %v", err)
		return result
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		result.Err = fmt.Sprintf("fax request failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return result
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		result.Err = fmt.Sprintf("malformed provider response: %v", err)
		return result
	}

	result.Success = true
	result.RawResponse = data
	if id, ok := data["id"].(string); ok {
		result.FaxID = id
	}

	c.logger.Info("fax accepted by provider",
		zap.String("fax_id", result.FaxID),
		zap.String("destination", destination))

	return result
}

// Status looks up a previously submitted fax. Same never-raise contract as
// Submit.
func (c *Client) Status(ctx context.Context, faxID string) *StatusResult {
	result := &StatusResult{}

	url := fmt.Sprintf("%s/%s", c.faxesURL(), faxID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Err = fmt.Sprintf("build request: %v", err)
		return result
	}
	req.SetBasicAuth(c.config.AccessKey, c.config.AccessSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		result.Err = fmt.Sprintf("network error: %v", err)
		return result
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		result.Err = fmt.Sprintf("read response: %v", err)
		return result
	}

	if resp.StatusCode != http.StatusOK {
		result.Err = fmt.Sprintf("status lookup failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return result
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		result.Err = fmt.Sprintf("malformed provider response: %v", err)
		return result
	}

	result.Success = true
	result.Status = data
	return result
}

// ValidateDestination checks that a fax number has a plausible digit count.
// Everything but digits is stripped; 7 to 15 digits pass. This is a syntax
// check, not dialing-plan validation.
func ValidateDestination(number string) bool {
	digits := 0
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}
