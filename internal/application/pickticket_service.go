package application

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	"github.com/golfdiscount/wsi-automation-api/internal/interchange"
	apperrors "github.com/golfdiscount/wsi-automation-api/pkg/errors"
	"github.com/golfdiscount/wsi-automation-api/pkg/kafka"
	"github.com/golfdiscount/wsi-automation-api/pkg/logging"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
)

const (
	inboundDir = "Inbound"

	outboundFilePrefix    = "PT_WSI_"
	outboundFileTimestamp = "01_02_2006_15_04_05"
)

// EventPublisher publishes integration events. Satisfied by
// kafka.Producer.
type EventPublisher interface {
	PublishJSON(ctx context.Context, topic, key string, payload any) error
}

// PickTicketService handles pick ticket ingestion and queries
type PickTicketService struct {
	repo      domain.PickTicketRepository
	eligible  domain.EligibleSKUSource
	prices    domain.PriceSource
	transport domain.Transport
	producer  EventPublisher
	splitter  *domain.Splitter
	logger    *logging.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewPickTicketService creates a new PickTicketService
func NewPickTicketService(
	repo domain.PickTicketRepository,
	eligible domain.EligibleSKUSource,
	prices domain.PriceSource,
	transport domain.Transport,
	producer EventPublisher,
	splitter *domain.Splitter,
	logger *logging.Logger,
	m *metrics.Metrics,
) *PickTicketService {
	return &PickTicketService{
		repo:      repo,
		eligible:  eligible,
		prices:    prices,
		transport: transport,
		producer:  producer,
		splitter:  splitter,
		logger:    logger.WithComponent("pickticket-service"),
		metrics:   m,
		now:       time.Now,
	}
}

type outboundBatchEvent struct {
	File        string    `json:"file"`
	PickTickets []string  `json:"pickTickets"`
	QueuedAt    time.Time `json:"queuedAt"`
}

// IngestOrders turns incoming orders into pick tickets: each order is
// split against the current expedited-eligible SKU set, persisted, and
// the resulting tickets are encoded into one interchange file uploaded
// to the warehouse.
//
// In batch mode a bad unit never stops the run: a pick ticket number
// that already exists is skipped, and a validation, persistence, or
// pricing failure excludes the affected order or ticket while the rest
// of the batch proceeds. In interactive mode any failure aborts the
// request.
func (s *PickTicketService) IngestOrders(ctx context.Context, mode IngestMode, cmds []IngestOrderCommand) (*IngestResultDTO, error) {
	eligible, err := s.eligible.FetchEligibleSKUs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligible SKUs: %w", err)
	}

	result := &IngestResultDTO{}
	var inserted []*domain.PickTicket

	for _, cmd := range cmds {
		ticket, err := domain.NewPickTicket(
			cmd.OrderNumber,
			cmd.Store,
			addressFromInput(cmd.Customer),
			addressFromInput(cmd.Recipient),
			cmd.ShippingMethod,
			lineItemsFromInput(cmd.LineItems),
			cmd.OrderDate,
			cmd.Channel,
		)
		if err != nil {
			if mode == ModeBatch {
				s.metrics.PickTicketsIngested.WithLabelValues(s.metrics.ServiceName(), string(mode), "error").Inc()
				s.logger.WithError(err).WithFields(map[string]any{"orderNumber": cmd.OrderNumber}).
					Warn("Skipping invalid order")
				result.Failures = append(result.Failures, IngestFailureDTO{
					Unit:   cmd.OrderNumber,
					Reason: err.Error(),
				})
				continue
			}
			return nil, apperrors.ErrValidation(fmt.Sprintf("order %s: %v", cmd.OrderNumber, err))
		}

		tickets := s.splitter.Split(ticket, eligible)
		if len(tickets) > 1 {
			s.metrics.PickTicketsSplit.Inc()
			s.logger.WithFields(map[string]any{
				"orderNumber": cmd.OrderNumber,
				"tickets":     len(tickets),
			}).Info("Order split for expedited shipping")
		}

		for _, t := range tickets {
			if err := s.repo.Insert(ctx, t); err != nil {
				if apperrors.IsDuplicateKey(err) && mode == ModeBatch {
					s.metrics.PickTicketsSkipped.Inc()
					s.metrics.PickTicketsIngested.WithLabelValues(s.metrics.ServiceName(), string(mode), "skipped").Inc()
					s.logger.WithFields(map[string]any{"pickTicketNumber": t.PickTicketNumber}).
						Warn("Skipping duplicate pick ticket")
					result.SkippedDuplicates = append(result.SkippedDuplicates, t.PickTicketNumber)
					continue
				}
				s.metrics.PickTicketsIngested.WithLabelValues(s.metrics.ServiceName(), string(mode), "error").Inc()
				if mode == ModeBatch {
					s.logger.WithError(err).WithFields(map[string]any{"pickTicketNumber": t.PickTicketNumber}).
						Warn("Failed to persist pick ticket")
					result.Failures = append(result.Failures, IngestFailureDTO{
						Unit:   t.PickTicketNumber,
						Reason: err.Error(),
					})
					continue
				}
				return nil, err
			}

			s.metrics.PickTicketsIngested.WithLabelValues(s.metrics.ServiceName(), string(mode), "ok").Inc()
			inserted = append(inserted, t)
		}
	}

	var contents strings.Builder
	for _, t := range inserted {
		text, err := s.encodeTicket(ctx, t)
		if err != nil {
			if mode == ModeBatch {
				s.logger.WithError(err).WithFields(map[string]any{"pickTicketNumber": t.PickTicketNumber}).
					Warn("Failed to encode pick ticket, excluding it from the outbound file")
				result.Failures = append(result.Failures, IngestFailureDTO{
					Unit:   t.PickTicketNumber,
					Reason: err.Error(),
				})
				continue
			}
			return nil, err
		}
		contents.WriteString(text)
		result.PickTicketNumbers = append(result.PickTicketNumbers, t.PickTicketNumber)
	}

	if len(result.PickTicketNumbers) == 0 {
		return result, nil
	}

	filename := outboundFilePrefix + s.now().Format(outboundFileTimestamp) + ".csv"
	remotePath := path.Join(inboundDir, filename)
	if err := s.transport.Upload(ctx, remotePath, []byte(contents.String())); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}
	s.metrics.OutboundBatchesBuilt.Inc()
	result.OutboundFile = filename

	event := outboundBatchEvent{
		File:        filename,
		PickTickets: result.PickTicketNumbers,
		QueuedAt:    s.now().UTC(),
	}
	if err := s.producer.PublishJSON(ctx, kafka.Topics.PickTicketsOutbound, filename, event); err != nil {
		return nil, fmt.Errorf("failed to publish outbound batch event: %w", err)
	}

	s.logger.WithFields(map[string]any{
		"file":    filename,
		"tickets": len(result.PickTicketNumbers),
		"skipped": len(result.SkippedDuplicates),
		"failed":  len(result.Failures),
	}).Info("Outbound pick ticket batch uploaded")

	return result, nil
}

// encodeTicket renders the interchange rows for one pick ticket. Unit
// prices are resolved before any row is emitted; a lookup failure
// excludes the whole ticket so no partial record ever reaches the
// warehouse.
func (s *PickTicketService) encodeTicket(ctx context.Context, ticket *domain.PickTicket) (string, error) {
	var b strings.Builder
	b.WriteString(interchange.EncodeHeader(ticket) + "\n")
	for _, line := range ticket.LineItems {
		price, err := s.prices.UnitPrice(ctx, line.SKU)
		if err != nil {
			return "", fmt.Errorf("failed to price %s: %w", line.SKU, err)
		}
		b.WriteString(interchange.EncodeDetail(ticket.PickTicketNumber, line, price) + "\n")
	}
	return b.String(), nil
}

// IngestCSV ingests a batch file of pick ticket records, the format
// sales channels drop for orders placed outside the API. Decoded
// orders flow through the same split-persist-upload pipeline as
// interactive submissions, in batch mode.
func (s *PickTicketService) IngestCSV(ctx context.Context, contents string) (*IngestResultDTO, error) {
	tickets, err := interchange.DecodePickTickets(contents)
	if err != nil {
		return nil, apperrors.ErrParse(err.Error())
	}

	cmds := make([]IngestOrderCommand, 0, len(tickets))
	for _, ticket := range tickets {
		lines := make([]LineItemInput, 0, len(ticket.LineItems))
		for _, line := range ticket.LineItems {
			lines = append(lines, LineItemInput{
				SKU:         line.SKU,
				Units:       line.Units,
				UnitsToShip: line.UnitsToShip,
			})
		}
		cmds = append(cmds, IngestOrderCommand{
			OrderNumber:    ticket.OrderNumber,
			Store:          ticket.Store,
			Customer:       AddressInput(ticket.Customer),
			Recipient:      AddressInput(ticket.Recipient),
			ShippingMethod: ticket.ShippingMethod,
			OrderDate:      ticket.OrderDate,
			Channel:        domain.ChannelBatch,
			LineItems:      lines,
		})
	}

	return s.IngestOrders(ctx, ModeBatch, cmds)
}

// GetByPickTicketNumber returns one pick ticket or a not-found error
func (s *PickTicketService) GetByPickTicketNumber(ctx context.Context, pickTicketNumber string) (*PickTicketDTO, error) {
	ticket, err := s.repo.FindByPickTicketNumber(ctx, pickTicketNumber)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.ErrNotFound("pick ticket " + pickTicketNumber)
	}
	return ToPickTicketDTO(ticket), nil
}

// GetByOrderNumber returns every pick ticket for an order. A split
// order yields both halves.
func (s *PickTicketService) GetByOrderNumber(ctx context.Context, orderNumber string) ([]*PickTicketDTO, error) {
	tickets, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, apperrors.ErrNotFound("order " + orderNumber)
	}
	return ToPickTicketDTOs(tickets), nil
}

// List returns a page of pick tickets, newest first
func (s *PickTicketService) List(ctx context.Context, query ListPickTicketsQuery) ([]*PickTicketDTO, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	tickets, err := s.repo.FindPage(ctx, query.Page, query.PageSize)
	if err != nil {
		return nil, err
	}
	return ToPickTicketDTOs(tickets), nil
}
