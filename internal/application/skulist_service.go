package application

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	"github.com/golfdiscount/wsi-automation-api/internal/interchange"
	"github.com/golfdiscount/wsi-automation-api/pkg/logging"
)

const masterSKUFileName = "SKU.csv"

// MasterSKUSource provides the master SKU export as raw feed rows
type MasterSKUSource interface {
	FetchMasterSKUs(ctx context.Context) ([][]string, error)
}

// SKUListService pushes the item master to the warehouse so new SKUs
// exist there before their first pick ticket arrives.
type SKUListService struct {
	source    MasterSKUSource
	transport domain.Transport
	logger    *logging.Logger
}

// NewSKUListService creates a new SKUListService
func NewSKUListService(source MasterSKUSource, transport domain.Transport, logger *logging.Logger) *SKUListService {
	return &SKUListService{
		source:    source,
		transport: transport,
		logger:    logger.WithComponent("skulist-service"),
	}
}

// GenerateMasterSKUList fetches the master SKU feed, re-encodes it as
// fixed-position item records, and uploads the result. Rows that do
// not carry the full column set are skipped rather than failing the
// whole upload.
func (s *SKUListService) GenerateMasterSKUList(ctx context.Context) error {
	rows, err := s.source.FetchMasterSKUs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch master SKU feed: %w", err)
	}
	if len(rows) == 0 {
		s.logger.Warn("Master SKU feed is empty, skipping upload")
		return nil
	}

	var b strings.Builder
	skipped := 0
	for _, row := range rows {
		record, err := interchange.EncodeMasterSKURecord(row)
		if err != nil {
			skipped++
			continue
		}
		b.WriteString(record + "\n")
	}

	remotePath := path.Join(inboundDir, masterSKUFileName)
	if err := s.transport.Upload(ctx, remotePath, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}

	s.logger.WithFields(map[string]any{
		"records": len(rows) - skipped,
		"skipped": skipped,
	}).Info("Master SKU list uploaded")
	return nil
}
