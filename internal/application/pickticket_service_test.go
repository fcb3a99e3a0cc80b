package application

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	apperrors "github.com/golfdiscount/wsi-automation-api/pkg/errors"
	"github.com/golfdiscount/wsi-automation-api/pkg/logging"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
)

type fakeRepo struct {
	tickets map[string]*domain.PickTicket
	order   []string
	failOn  string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tickets: make(map[string]*domain.PickTicket)}
}

func (f *fakeRepo) Insert(_ context.Context, ticket *domain.PickTicket) error {
	if ticket.PickTicketNumber == f.failOn {
		return assertableErr("insert failed")
	}
	if _, exists := f.tickets[ticket.PickTicketNumber]; exists {
		return apperrors.ErrDuplicateKey("pick ticket", ticket.PickTicketNumber)
	}
	f.tickets[ticket.PickTicketNumber] = ticket
	f.order = append(f.order, ticket.PickTicketNumber)
	return nil
}

func (f *fakeRepo) FindByPickTicketNumber(_ context.Context, number string) (*domain.PickTicket, error) {
	return f.tickets[number], nil
}

func (f *fakeRepo) FindByOrderNumber(_ context.Context, orderNumber string) ([]*domain.PickTicket, error) {
	var found []*domain.PickTicket
	for _, num := range f.order {
		if f.tickets[num].OrderNumber == orderNumber {
			found = append(found, f.tickets[num])
		}
	}
	return found, nil
}

func (f *fakeRepo) FindPage(_ context.Context, page, pageSize int) ([]*domain.PickTicket, error) {
	var all []*domain.PickTicket
	for _, num := range f.order {
		all = append(all, f.tickets[num])
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

type assertableErr string

func (e assertableErr) Error() string { return string(e) }

type fakeEligible struct{ skus domain.SKUSet }

func (f *fakeEligible) FetchEligibleSKUs(context.Context) (domain.SKUSet, error) {
	return f.skus, nil
}

type fakePrices struct {
	prices map[string]float64
	failOn string
}

func (f *fakePrices) UnitPrice(_ context.Context, sku string) (float64, error) {
	if sku == f.failOn {
		return 0, assertableErr("price lookup failed")
	}
	if p, ok := f.prices[sku]; ok {
		return p, nil
	}
	return 9.99, nil
}

type fakeTransport struct {
	uploads map[string][]byte
	files   []domain.RemoteFile
	lines   map[string][]string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{uploads: make(map[string][]byte), lines: make(map[string][]string)}
}

func (f *fakeTransport) Upload(_ context.Context, path string, contents []byte) error {
	f.uploads[path] = contents
	return nil
}

func (f *fakeTransport) ListFiles(_ context.Context, _ string) ([]domain.RemoteFile, error) {
	return f.files, nil
}

func (f *fakeTransport) ReadAllLines(_ context.Context, path string) ([]string, error) {
	return f.lines[path], nil
}

type publishedEvent struct {
	topic   string
	key     string
	payload any
}

type fakePublisher struct{ events []publishedEvent }

func (f *fakePublisher) PublishJSON(_ context.Context, topic, key string, payload any) error {
	f.events = append(f.events, publishedEvent{topic: topic, key: key, payload: payload})
	return nil
}

type serviceFixture struct {
	service   *PickTicketService
	repo      *fakeRepo
	transport *fakeTransport
	publisher *fakePublisher
}

func newFixture(eligibleSKUs ...string) *serviceFixture {
	repo := newFakeRepo()
	transport := newFakeTransport()
	publisher := &fakePublisher{}
	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "test", Output: io.Discard})

	service := NewPickTicketService(
		repo,
		&fakeEligible{skus: domain.NewSKUSet(eligibleSKUs...)},
		&fakePrices{prices: map[string]float64{"DRV100XL99": 399.99}},
		transport,
		publisher,
		domain.NewSplitter(),
		logger,
		metrics.New(metrics.DefaultConfig("test")),
	)
	service.now = func() time.Time {
		return time.Date(2024, 3, 7, 15, 30, 45, 0, time.UTC)
	}

	return &serviceFixture{service: service, repo: repo, transport: transport, publisher: publisher}
}

func orderCommand(orderNumber string, skus ...string) IngestOrderCommand {
	lines := make([]LineItemInput, 0, len(skus))
	for _, sku := range skus {
		lines = append(lines, LineItemInput{SKU: sku, Units: 1})
	}
	return IngestOrderCommand{
		OrderNumber: orderNumber,
		Store:       1,
		Customer: AddressInput{
			Name: "Pat Golfer", Street: "123 Fairway Dr", City: "Carlsbad",
			State: "CA", Country: "US", Zip: "92008",
		},
		Recipient: AddressInput{
			Name: "Pat Golfer", Street: "123 Fairway Dr", City: "Carlsbad",
			State: "CA", Country: "US", Zip: "92008",
		},
		ShippingMethod: "FX2D",
		OrderDate:      time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		Channel:        domain.ChannelAPI,
		LineItems:      lines,
	}
}

func TestIngestOrdersSplitsExpeditedOrder(t *testing.T) {
	f := newFixture("DRV100XL99")

	result, err := f.service.IngestOrders(context.Background(), ModeInteractive,
		[]IngestOrderCommand{orderCommand("1000245", "DRV100XL99", "BALL-DOZEN")})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1000245", "C1000245_WSIX"}, result.PickTicketNumbers)
	assert.Empty(t, result.SkippedDuplicates)

	remainder := f.repo.tickets["C1000245"]
	require.NotNil(t, remainder)
	require.Len(t, remainder.LineItems, 1)
	assert.Equal(t, "BALL-DOZEN", remainder.LineItems[0].SKU)

	expedited := f.repo.tickets["C1000245_WSIX"]
	require.NotNil(t, expedited)
	require.Len(t, expedited.LineItems, 1)
	assert.Equal(t, "DRV100XL99", expedited.LineItems[0].SKU)
	assert.Equal(t, 1, expedited.LineItems[0].LineNumber)
}

func TestIngestOrdersUploadsInterchangeFile(t *testing.T) {
	f := newFixture()

	result, err := f.service.IngestOrders(context.Background(), ModeInteractive,
		[]IngestOrderCommand{orderCommand("1000245", "DRV100XL99")})
	require.NoError(t, err)

	assert.Equal(t, "PT_WSI_03_07_2024_15_30_45.csv", result.OutboundFile)

	contents, ok := f.transport.uploads["Inbound/PT_WSI_03_07_2024_15_30_45.csv"]
	require.True(t, ok)

	text := string(contents)
	assert.Contains(t, text, "PTH,I,C1000245,1000245,C,03/07/2024")
	assert.Contains(t, text, "PTD,I,C1000245,1,A,DRV100XL99,,,,,,1,1,,,,399.99")
}

func TestIngestOrdersPublishesBatchEvent(t *testing.T) {
	f := newFixture()

	_, err := f.service.IngestOrders(context.Background(), ModeInteractive,
		[]IngestOrderCommand{orderCommand("1000245", "DRV100XL99")})
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "wsi.picktickets.outbound", f.publisher.events[0].topic)
	assert.Equal(t, "PT_WSI_03_07_2024_15_30_45.csv", f.publisher.events[0].key)
}

func TestIngestOrdersBatchModeSkipsDuplicates(t *testing.T) {
	f := newFixture()

	_, err := f.service.IngestOrders(context.Background(), ModeBatch,
		[]IngestOrderCommand{orderCommand("1000245", "DRV100XL99")})
	require.NoError(t, err)

	result, err := f.service.IngestOrders(context.Background(), ModeBatch, []IngestOrderCommand{
		orderCommand("1000245", "DRV100XL99"),
		orderCommand("1000246", "BALL-DOZEN"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1000245"}, result.SkippedDuplicates)
	assert.Equal(t, []string{"C1000246"}, result.PickTicketNumbers)
}

func TestIngestOrdersInteractiveModeFailsOnDuplicate(t *testing.T) {
	f := newFixture()

	_, err := f.service.IngestOrders(context.Background(), ModeInteractive,
		[]IngestOrderCommand{orderCommand("1000245", "DRV100XL99")})
	require.NoError(t, err)

	_, err = f.service.IngestOrders(context.Background(), ModeInteractive,
		[]IngestOrderCommand{orderCommand("1000245", "DRV100XL99")})
	require.Error(t, err)
	assert.True(t, apperrors.IsDuplicateKey(err))
}

func TestIngestOrdersPriceFailureAbortsUpload(t *testing.T) {
	f := newFixture()
	f.service.prices = &fakePrices{failOn: "DRV100XL99"}

	_, err := f.service.IngestOrders(context.Background(), ModeInteractive,
		[]IngestOrderCommand{orderCommand("1000245", "DRV100XL99")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to price DRV100XL99")

	assert.Empty(t, f.transport.uploads)
	assert.Empty(t, f.publisher.events)
}

func TestIngestOrdersBatchModePriceFailureExcludesTicket(t *testing.T) {
	f := newFixture()
	f.service.prices = &fakePrices{failOn: "BAD-SKU"}

	result, err := f.service.IngestOrders(context.Background(), ModeBatch, []IngestOrderCommand{
		orderCommand("1000245", "DRV100XL99"),
		orderCommand("1000246", "BAD-SKU"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1000245"}, result.PickTicketNumbers)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "C1000246", result.Failures[0].Unit)
	assert.Contains(t, result.Failures[0].Reason, "failed to price BAD-SKU")

	// the healthy ticket still reaches the warehouse
	contents, ok := f.transport.uploads["Inbound/PT_WSI_03_07_2024_15_30_45.csv"]
	require.True(t, ok)
	assert.Contains(t, string(contents), "C1000245")
	assert.NotContains(t, string(contents), "C1000246")
}

func TestIngestOrdersBatchModeInsertFailureDoesNotAbort(t *testing.T) {
	f := newFixture()
	f.repo.failOn = "C1000245"

	result, err := f.service.IngestOrders(context.Background(), ModeBatch, []IngestOrderCommand{
		orderCommand("1000245", "DRV100XL99"),
		orderCommand("1000246", "BALL-DOZEN"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1000246"}, result.PickTicketNumbers)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "C1000245", result.Failures[0].Unit)
	assert.Contains(t, result.Failures[0].Reason, "insert failed")
}

func TestIngestOrdersBatchModeInvalidOrderDoesNotAbort(t *testing.T) {
	f := newFixture()

	result, err := f.service.IngestOrders(context.Background(), ModeBatch, []IngestOrderCommand{
		orderCommand("1000245"), // no line items
		orderCommand("1000246", "BALL-DOZEN"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1000246"}, result.PickTicketNumbers)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "1000245", result.Failures[0].Unit)
}

func TestIngestOrdersValidationFailure(t *testing.T) {
	f := newFixture()
	cmd := orderCommand("1000245")

	_, err := f.service.IngestOrders(context.Background(), ModeInteractive, []IngestOrderCommand{cmd})
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestIngestCSV(t *testing.T) {
	f := newFixture()

	csv := strings.Join([]string{
		`PTH,I,C1000245,1000245,C,03/07/2024,,,,75,,,"Pat Golfer","123 Fairway Dr","Carlsbad",CA,US,92008,,,"Pat Golfer","123 Fairway Dr","Carlsbad",CA,US,92008,,,,,,,,,FDXH,,,,PGD,,HN,PGD,PP,,,,,,,Y,,,,,PT,,,,,,,,,,,,,`,
		"PTD,I,C1000245,1,A,BALL-DOZEN,,,,,,2,2,,,,24.99,,,,HN,PGD,,,,,,,,",
	}, "\n")

	result, err := f.service.IngestCSV(context.Background(), csv)
	require.NoError(t, err)

	assert.Equal(t, []string{"C1000245"}, result.PickTicketNumbers)

	ticket := f.repo.tickets["C1000245"]
	require.NotNil(t, ticket)
	assert.Equal(t, domain.ChannelBatch, ticket.Channel)
	require.Len(t, ticket.LineItems, 1)
	assert.Equal(t, 2, ticket.LineItems[0].Units)
}

func TestGetByOrderNumberNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.GetByOrderNumber(context.Background(), "9999999")
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
