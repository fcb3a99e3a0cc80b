// Package dufferscorner fetches merchandising CSV feeds from the
// storefront media site: the expedited-eligible SKU list and the
// master SKU export.
package dufferscorner

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	apperrors "github.com/golfdiscount/wsi-automation-api/pkg/errors"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
)

const (
	systemName = "dufferscorner"

	eligibleSKUsPath = "/media/2day_skus.csv"
	masterSKUsPath   = "/media/wsi_master_skus.csv"
)

// Config holds feed client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// Client fetches CSV feeds over HTTP
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

// NewClient creates a feed client
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: config.BaseURL,
		http:    &http.Client{Timeout: config.Timeout},
		metrics: config.Metrics,
	}
}

// FetchEligibleSKUs downloads the expedited-eligible SKU list. The
// feed is a single-column CSV with a header row; SKUs may be quoted.
func (c *Client) FetchEligibleSKUs(ctx context.Context) (domain.SKUSet, error) {
	rows, err := c.fetchCSV(ctx, "eligible_skus", eligibleSKUsPath)
	if err != nil {
		return nil, err
	}

	skus := make([]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		skus = append(skus, row[0])
	}
	return domain.NewSKUSet(skus...), nil
}

// FetchMasterSKUs downloads the master SKU export as raw rows,
// skipping the header. Each row carries the twelve item-master columns
// in feed order.
func (c *Client) FetchMasterSKUs(ctx context.Context) ([][]string, error) {
	rows, err := c.fetchCSV(ctx, "master_skus", masterSKUsPath)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

func (c *Client) fetchCSV(ctx context.Context, operation, path string) (rows [][]string, err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveExternalCall(systemName, operation, start, err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.ErrExternalCall(systemName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperrors.ErrExternalCall(systemName,
			fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, body))
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	rows, err = reader.ReadAll()
	if err != nil {
		return nil, apperrors.ErrParse(fmt.Sprintf("malformed feed %s: %v", path, err))
	}
	return rows, nil
}
