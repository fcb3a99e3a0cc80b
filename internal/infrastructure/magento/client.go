// Package magento looks up product pricing from the storefront's
// Magento REST API.
package magento

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/golfdiscount/wsi-automation-api/pkg/errors"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
)

const systemName = "magento"

// Config holds Magento client configuration
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	Metrics     *metrics.Metrics
}

// Client calls the Magento products API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	metrics *metrics.Metrics
}

// NewClient creates a Magento client
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: config.BaseURL,
		token:   config.AccessToken,
		http:    &http.Client{Timeout: config.Timeout},
		metrics: config.Metrics,
	}
}

type productResponse struct {
	SKU   string  `json:"sku"`
	Price float64 `json:"price"`
}

// UnitPrice returns the current unit price for a SKU
func (c *Client) UnitPrice(ctx context.Context, sku string) (float64, error) {
	start := time.Now()
	price, err := c.unitPrice(ctx, sku)
	if c.metrics != nil {
		c.metrics.ObserveExternalCall(systemName, "unit_price", start, err)
	}
	return price, err
}

func (c *Client) unitPrice(ctx context.Context, sku string) (float64, error) {
	endpoint := fmt.Sprintf("%s/rest/V1/products/%s", c.baseURL, url.PathEscape(sku))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apperrors.ErrExternalCall(systemName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, apperrors.ErrNotFound("product " + sku)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, apperrors.ErrExternalCall(systemName,
			fmt.Errorf("GET products/%s returned %d: %s", sku, resp.StatusCode, body))
	}

	var product productResponse
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return 0, fmt.Errorf("failed to decode product response: %w", err)
	}
	return product.Price, nil
}
