package application

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	"github.com/golfdiscount/wsi-automation-api/internal/interchange"
	"github.com/golfdiscount/wsi-automation-api/internal/reconcile"
	"github.com/golfdiscount/wsi-automation-api/pkg/logging"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
)

const (
	outboundDir = "Outbound"

	confirmationFileDate = "01022006"
	skuTotalsFileDate    = "01_02_2006"
)

// ReconciliationService runs the daily shipping confirmation sweep
type ReconciliationService struct {
	transport     domain.Transport
	engine        *reconcile.Engine
	notifier      domain.Notifier
	notifications *NotificationConfig
	logger        *logging.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	transport domain.Transport,
	engine *reconcile.Engine,
	notifier domain.Notifier,
	notifications *NotificationConfig,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ReconciliationService {
	return &ReconciliationService{
		transport:     transport,
		engine:        engine,
		notifier:      notifier,
		notifications: notifications,
		logger:        logger.WithComponent("reconciliation-service"),
		metrics:       m,
		now:           time.Now,
	}
}

// RunDaily reconciles today's shipping confirmation files. It reads
// every confirmation file the warehouse dropped today, marks the
// confirmed tracking numbers shipped, and mails a failure report when
// any order could not be reconciled. The shipped SKU totals go out
// with a CSV attachment on every run, even when no files arrived.
func (s *ReconciliationService) RunDaily(ctx context.Context) (*ReconciliationResultDTO, error) {
	files, err := s.transport.ListFiles(ctx, outboundDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", outboundDir, err)
	}

	mask := s.confirmationFileMask(s.now())
	var records []domain.ConfirmationRecord
	matched := 0

	for _, file := range files {
		if !mask.MatchString(file.Name) {
			continue
		}
		matched++

		lines, err := s.transport.ReadAllLines(ctx, file.FullPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file.FullPath, err)
		}

		fileRecords, err := interchange.DecodeConfirmationRows(strings.Join(lines, "\n"))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", file.Name, err)
		}

		s.logger.WithFields(map[string]any{
			"file":    file.Name,
			"records": len(fileRecords),
		}).Info("Decoded shipping confirmation file")
		records = append(records, fileRecords...)
	}

	if matched == 0 {
		s.logger.Info("No shipping confirmation files for today")
	}

	s.metrics.ConfirmationsProcessed.Add(float64(len(records)))

	report := s.engine.Reconcile(ctx, records)
	shipped := 0
	for _, o := range report.Outcomes {
		if o.Err == "" {
			shipped++
		}
	}
	s.metrics.OrdersMarkedShipped.Add(float64(shipped))
	s.metrics.ReconciliationFailures.Add(float64(len(report.FailedOrders)))

	if report.HasFailures() {
		err := s.notifier.Send(ctx,
			s.notifications.Reconciliation.FailureRecipients,
			s.notifications.Reconciliation.FailureSubject,
			report.FailureSummary(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to send failure report: %w", err)
		}
	}

	attachment := domain.Attachment{
		Filename:    "WSI_SKUs_" + report.GeneratedAt.Format(skuTotalsFileDate) + ".csv",
		ContentType: "text/csv",
		Content:     []byte(report.SKUTotalsCSV()),
	}
	err = s.notifier.Send(ctx,
		s.notifications.Reconciliation.SKUTotalsRecipients,
		s.notifications.Reconciliation.SKUTotalsSubject,
		fmt.Sprintf("Shipped SKU totals for %s are attached.", report.GeneratedAt.Format("January 2, 2006")),
		attachment,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send SKU totals: %w", err)
	}

	return &ReconciliationResultDTO{
		FilesProcessed: matched,
		Confirmations:  len(records),
		FailedOrders:   report.FailedOrders,
	}, nil
}

// confirmationFileMask matches today's shipping confirmation files,
// named SC_<batch>_<seq>_<MMddyyyy> with an arbitrary tail.
func (s *ReconciliationService) confirmationFileMask(today time.Time) *regexp.Regexp {
	return regexp.MustCompile(`^SC_[0-9]+_[0-9]+_` + today.Format(confirmationFileDate) + `.*\.csv$`)
}
