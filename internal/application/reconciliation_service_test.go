package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	"github.com/golfdiscount/wsi-automation-api/internal/reconcile"
	"github.com/golfdiscount/wsi-automation-api/pkg/logging"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
)

type fakeOrders struct {
	orders map[string]int
}

func (f *fakeOrders) FindByNumber(_ context.Context, number string) (*domain.ExternalOrder, error) {
	id, ok := f.orders[number]
	if !ok {
		return nil, errors.New("order not found")
	}
	return &domain.ExternalOrder{ID: id, Number: number}, nil
}

func (f *fakeOrders) MarkShipped(context.Context, int, string, time.Time) error {
	return nil
}

type sentMail struct {
	recipients  []string
	subject     string
	body        string
	attachments []domain.Attachment
}

type fakeNotifier struct{ sent []sentMail }

func (f *fakeNotifier) Send(_ context.Context, recipients []string, subject, body string, attachments ...domain.Attachment) error {
	f.sent = append(f.sent, sentMail{recipients: recipients, subject: subject, body: body, attachments: attachments})
	return nil
}

func confirmationRow(orderNumber, sku, tracking string, qty string) string {
	fields := make([]string, 40)
	fields[0] = "CSD"
	fields[6] = orderNumber
	fields[14] = sku
	fields[32] = tracking
	fields[35] = qty
	return strings.Join(fields, ",")
}

func reconciliationFixture(t *testing.T, orders *fakeOrders, transport *fakeTransport) (*ReconciliationService, *fakeNotifier) {
	t.Helper()
	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})
	notifier := &fakeNotifier{}

	cfg := DefaultNotificationConfig()
	cfg.Reconciliation.FailureRecipients = []string{"ops@example.com"}
	cfg.Reconciliation.SKUTotalsRecipients = []string{"merch@example.com"}

	service := NewReconciliationService(
		transport,
		reconcile.NewEngine(orders, logger),
		notifier,
		cfg,
		logger,
		metrics.New(metrics.DefaultConfig("test")),
	)
	service.now = func() time.Time {
		return time.Date(2024, 3, 7, 20, 0, 0, 0, time.UTC)
	}
	return service, notifier
}

func TestRunDailyProcessesTodaysFiles(t *testing.T) {
	transport := newFakeTransport()
	transport.files = []domain.RemoteFile{
		{Name: "SC_12_1_03072024_0001.csv", FullPath: "Outbound/SC_12_1_03072024_0001.csv"},
		{Name: "SC_12_1_03062024_0001.csv", FullPath: "Outbound/SC_12_1_03062024_0001.csv"}, // yesterday
		{Name: "inventory_snapshot.csv", FullPath: "Outbound/inventory_snapshot.csv"},
	}
	transport.lines["Outbound/SC_12_1_03072024_0001.csv"] = []string{
		confirmationRow("1000245", "DRV100XL99", "T1", "1"),
		confirmationRow("1000245", "BALL-DOZEN", "T2", "2"),
	}

	service, notifier := reconciliationFixture(t, &fakeOrders{orders: map[string]int{"1000245_WSI": 41}}, transport)

	result, err := service.RunDaily(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 2, result.Confirmations)
	assert.Empty(t, result.FailedOrders)

	// no failures, so only the SKU totals mail goes out
	require.Len(t, notifier.sent, 1)
	mail := notifier.sent[0]
	assert.Equal(t, []string{"merch@example.com"}, mail.recipients)
	require.Len(t, mail.attachments, 1)
	assert.Equal(t, "WSI_SKUs_03_07_2024.csv", mail.attachments[0].Filename)
	assert.Contains(t, string(mail.attachments[0].Content), "BALL-DOZEN,2")
	assert.Contains(t, string(mail.attachments[0].Content), "DRV100XL99,1")
}

func TestRunDailySendsFailureReport(t *testing.T) {
	transport := newFakeTransport()
	transport.files = []domain.RemoteFile{
		{Name: "SC_12_1_03072024.csv", FullPath: "Outbound/SC_12_1_03072024.csv"},
	}
	transport.lines["Outbound/SC_12_1_03072024.csv"] = []string{
		confirmationRow("1000245", "DRV100XL99", "T1", "1"),
	}

	service, notifier := reconciliationFixture(t, &fakeOrders{orders: map[string]int{}}, transport)

	result, err := service.RunDaily(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1000245_WSI"}, result.FailedOrders)

	require.Len(t, notifier.sent, 2)
	failure := notifier.sent[0]
	assert.Equal(t, []string{"ops@example.com"}, failure.recipients)
	assert.Contains(t, failure.body, "1000245_WSI")

	// SKU totals still include the failed order's units
	totals := notifier.sent[1]
	assert.Contains(t, string(totals.attachments[0].Content), "DRV100XL99,1")
}

func TestRunDailyNoFilesForToday(t *testing.T) {
	transport := newFakeTransport()
	transport.files = []domain.RemoteFile{
		{Name: "SC_12_1_03062024.csv", FullPath: "Outbound/SC_12_1_03062024.csv"},
	}

	service, notifier := reconciliationFixture(t, &fakeOrders{orders: map[string]int{}}, transport)

	result, err := service.RunDaily(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.FilesProcessed)
	assert.Empty(t, result.FailedOrders)

	// the SKU totals mail still goes out, with an empty table
	require.Len(t, notifier.sent, 1)
	mail := notifier.sent[0]
	assert.Equal(t, []string{"merch@example.com"}, mail.recipients)
	require.Len(t, mail.attachments, 1)
	assert.Equal(t, "sku,quantity\n", string(mail.attachments[0].Content))
}

func TestRunDailyMalformedFile(t *testing.T) {
	transport := newFakeTransport()
	transport.files = []domain.RemoteFile{
		{Name: "SC_12_1_03072024.csv", FullPath: "Outbound/SC_12_1_03072024.csv"},
	}
	transport.lines["Outbound/SC_12_1_03072024.csv"] = []string{"CSD,truncated,row"}

	service, notifier := reconciliationFixture(t, &fakeOrders{orders: map[string]int{}}, transport)

	_, err := service.RunDaily(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SC_12_1_03072024.csv")
	assert.Empty(t, notifier.sent)
}
