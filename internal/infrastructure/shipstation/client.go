// Package shipstation implements the order-management side of
// reconciliation against the ShipStation REST API.
package shipstation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	apperrors "github.com/golfdiscount/wsi-automation-api/pkg/errors"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
	"github.com/golfdiscount/wsi-automation-api/pkg/resilience"
)

const (
	defaultBaseURL = "https://ssapi.shipstation.com"
	systemName     = "shipstation"

	// ShipStation notification defaults applied to every shipment
	carrierCode        = "fedex"
	notifyCustomer     = true
	notifySalesChannel = true
)

const shipDateLayout = "2006-01-02"

// Config holds ShipStation client configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// Client calls the ShipStation API. All requests go through a circuit
// breaker so a ShipStation outage fails fast instead of piling up.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
}

// NewClient creates a ShipStation client
func NewClient(config Config, logger *slog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		http:    &http.Client{Timeout: config.Timeout},
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(systemName), logger),
		metrics: config.Metrics,
	}
}

func (c *Client) observe(operation string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.ObserveExternalCall(systemName, operation, start, err)
	}
}

type orderResponse struct {
	Orders []struct {
		OrderID     int    `json:"orderId"`
		OrderNumber string `json:"orderNumber"`
	} `json:"orders"`
}

// FindByNumber resolves an order number to a ShipStation order. The
// search endpoint matches order numbers loosely, so only an exact
// match counts; anything else is a not-found.
func (c *Client) FindByNumber(ctx context.Context, orderNumber string) (*domain.ExternalOrder, error) {
	var found *domain.ExternalOrder
	start := time.Now()

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		endpoint := fmt.Sprintf("%s/orders?orderNumber=%s", c.baseURL, url.QueryEscape(orderNumber))
		body, err := c.do(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		var resp orderResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to decode order search response: %w", err)
		}

		for _, order := range resp.Orders {
			if order.OrderNumber == orderNumber {
				found = &domain.ExternalOrder{ID: order.OrderID, Number: order.OrderNumber}
				return nil
			}
		}
		return apperrors.ErrNotFound("order " + orderNumber)
	})
	c.observe("find_order", start, err)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// MarkShipped marks one tracking number shipped for an order, with the
// standard carrier and notification settings.
func (c *Client) MarkShipped(ctx context.Context, orderID int, trackingNumber string, shipDate time.Time) error {
	payload, err := json.Marshal(map[string]any{
		"orderId":            orderID,
		"carrierCode":        carrierCode,
		"shipDate":           shipDate.Format(shipDateLayout),
		"trackingNumber":     trackingNumber,
		"notifyCustomer":     notifyCustomer,
		"notifySalesChannel": notifySalesChannel,
	})
	if err != nil {
		return fmt.Errorf("failed to encode shipment: %w", err)
	}

	start := time.Now()
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := c.do(ctx, http.MethodPost, c.baseURL+"/orders/markasshipped", payload)
		return err
	})
	c.observe("mark_shipped", start, err)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.ErrExternalCall(systemName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ErrExternalCall(systemName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.ErrExternalCall(systemName,
			fmt.Errorf("%s %s returned %d: %s", method, endpoint, resp.StatusCode, body))
	}
	return body, nil
}
