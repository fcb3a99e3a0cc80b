// Package reconcile matches warehouse shipping confirmations against
// orders in the order management system and marks them shipped.
package reconcile

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	"github.com/golfdiscount/wsi-automation-api/pkg/logging"
)

// WarehouseOrderSuffix is appended to warehouse-originated order
// numbers when they are registered in the order management system.
// Marketplace orders keep their native numbers.
const WarehouseOrderSuffix = "_WSI"

// marketplaceOrderPattern matches marketplace order numbers, which
// already carry a channel-specific shape and get no suffix.
var marketplaceOrderPattern = regexp.MustCompile(`^\d+-\d+-\d+$`)

const defaultConcurrency = 8

// Outcome records the result of marking a single tracking number
// shipped. Err is empty on success.
type Outcome struct {
	OrderNumber    string
	SKU            string
	TrackingNumber string
	Quantity       int
	Err            string
}

// Report aggregates the results of one reconciliation run. SKU totals
// cover every confirmation record regardless of whether its order
// reconciled.
type Report struct {
	FailedOrders []string
	SKUTotals    map[string]int
	Outcomes     []Outcome
	GeneratedAt  time.Time
}

// HasFailures reports whether any order failed to reconcile
func (r *Report) HasFailures() bool {
	return len(r.FailedOrders) > 0
}

// FailureSummary renders the failed orders as a plain-text listing
// suitable for a notification body.
func (r *Report) FailureSummary() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d order(s) could not be reconciled:\n\n", len(r.FailedOrders)))
	for _, order := range r.FailedOrders {
		b.WriteString(order + "\n")
		for _, o := range r.Outcomes {
			if o.OrderNumber == order && o.Err != "" {
				b.WriteString(fmt.Sprintf("  %s / %s: %s\n", o.SKU, o.TrackingNumber, o.Err))
			}
		}
	}
	return b.String()
}

// SKUTotalsCSV renders the shipped-unit totals as a two-column CSV
// with a header row, sorted by SKU.
func (r *Report) SKUTotalsCSV() string {
	skus := make([]string, 0, len(r.SKUTotals))
	for sku := range r.SKUTotals {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	var b strings.Builder
	b.WriteString("sku,quantity\n")
	for _, sku := range skus {
		b.WriteString(fmt.Sprintf("%s,%d\n", sku, r.SKUTotals[sku]))
	}
	return b.String()
}

// Engine reconciles confirmation records against an order system
type Engine struct {
	orders      domain.OrderSystem
	logger      *logging.Logger
	concurrency int
	now         func() time.Time
}

// NewEngine creates a reconciliation engine
func NewEngine(orders domain.OrderSystem, logger *logging.Logger) *Engine {
	return &Engine{
		orders:      orders,
		logger:      logger.WithComponent("reconcile"),
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
}

// Reconcile marks every confirmed tracking number shipped in the order
// system and reports the results. Orders are processed concurrently;
// within an order, a failed tracking number does not stop the
// remaining ones. Lookup and mark failures are recorded in the report
// rather than returned, so a single bad order never aborts the run.
func (e *Engine) Reconcile(ctx context.Context, records []domain.ConfirmationRecord) *Report {
	report := &Report{
		SKUTotals:   make(map[string]int),
		GeneratedAt: e.now().UTC(),
	}

	groups := make(map[string][]domain.ConfirmationRecord)
	var orderNumbers []string
	for _, rec := range records {
		report.SKUTotals[rec.SKU] += rec.Quantity
		if _, ok := groups[rec.OrderNumber]; !ok {
			orderNumbers = append(orderNumbers, rec.OrderNumber)
		}
		groups[rec.OrderNumber] = append(groups[rec.OrderNumber], rec)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, orderNumber := range orderNumbers {
		recs := groups[orderNumber]
		g.Go(func() error {
			outcomes, failed := e.reconcileOrder(gctx, orderNumber, recs)

			mu.Lock()
			report.Outcomes = append(report.Outcomes, outcomes...)
			if failed {
				report.FailedOrders = append(report.FailedOrders, orderKey(orderNumber))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers record failures in the report instead of returning them

	sort.Strings(report.FailedOrders)
	sort.Slice(report.Outcomes, func(i, j int) bool {
		a, b := report.Outcomes[i], report.Outcomes[j]
		if a.OrderNumber != b.OrderNumber {
			return a.OrderNumber < b.OrderNumber
		}
		if a.SKU != b.SKU {
			return a.SKU < b.SKU
		}
		return a.TrackingNumber < b.TrackingNumber
	})

	e.logger.WithFields(map[string]any{
		"records":      len(records),
		"orders":       len(orderNumbers),
		"failedOrders": len(report.FailedOrders),
	}).Info("Reconciliation run complete")

	return report
}

func (e *Engine) reconcileOrder(ctx context.Context, orderNumber string, recs []domain.ConfirmationRecord) ([]Outcome, bool) {
	key := orderKey(orderNumber)

	ext, err := e.orders.FindByNumber(ctx, key)
	if err != nil {
		e.logger.WithError(err).WithFields(map[string]any{"orderNumber": orderNumber}).
			Warn("Order lookup failed")

		outcomes := make([]Outcome, 0, len(recs))
		for _, rec := range recs {
			outcomes = append(outcomes, Outcome{
				OrderNumber:    key,
				SKU:            rec.SKU,
				TrackingNumber: rec.TrackingNumber,
				Quantity:       rec.Quantity,
				Err:            fmt.Sprintf("order lookup: %v", err),
			})
		}
		return outcomes, true
	}

	shipDate := e.now().UTC()
	failed := false
	outcomes := make([]Outcome, 0, len(recs))

	// One shipment per distinct tracking number; a multi-SKU shipment
	// arrives as several records sharing a tracking number.
	shipped := make(map[string]error)
	for _, rec := range recs {
		markErr, done := shipped[rec.TrackingNumber]
		if !done {
			markErr = e.orders.MarkShipped(ctx, ext.ID, rec.TrackingNumber, shipDate)
			shipped[rec.TrackingNumber] = markErr
			if markErr != nil {
				e.logger.WithError(markErr).WithFields(map[string]any{
					"orderNumber":    key,
					"trackingNumber": rec.TrackingNumber,
				}).Warn("Failed to mark tracking number shipped")
			}
		}

		outcome := Outcome{
			OrderNumber:    key,
			SKU:            rec.SKU,
			TrackingNumber: rec.TrackingNumber,
			Quantity:       rec.Quantity,
		}
		if markErr != nil {
			outcome.Err = fmt.Sprintf("mark shipped: %v", markErr)
			failed = true
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, failed
}

// orderKey normalizes a confirmation's order number to how the order
// management system knows the order. Marketplace order numbers are
// kept as-is; everything else gets the warehouse suffix.
func orderKey(orderNumber string) string {
	if marketplaceOrderPattern.MatchString(orderNumber) {
		return orderNumber
	}
	return orderNumber + WarehouseOrderSuffix
}
