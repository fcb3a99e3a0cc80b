// Package mongodb implements pick ticket persistence on MongoDB
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	apperrors "github.com/golfdiscount/wsi-automation-api/pkg/errors"
)

const (
	headersCollection   = "headers"
	detailsCollection   = "details"
	addressesCollection = "addresses"
)

type headerDoc struct {
	PickTicketNumber string             `bson:"pickTicketNumber"`
	OrderNumber      string             `bson:"orderNumber"`
	Action           string             `bson:"action"`
	Store            int                `bson:"store"`
	CustomerID       primitive.ObjectID `bson:"customerId"`
	RecipientID      primitive.ObjectID `bson:"recipientId"`
	ShippingMethod   string             `bson:"shippingMethod"`
	OrderDate        time.Time          `bson:"orderDate"`
	Channel          int                `bson:"channel"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

type detailDoc struct {
	PickTicketNumber string `bson:"pickTicketNumber"`
	LineNumber       int    `bson:"lineNumber"`
	Action           string `bson:"action"`
	SKU              string `bson:"sku"`
	Units            int    `bson:"units"`
	UnitsToShip      int    `bson:"unitsToShip"`
}

type addressDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Name    string             `bson:"name"`
	Street  string             `bson:"street"`
	City    string             `bson:"city"`
	State   string             `bson:"state"`
	Country string             `bson:"country"`
	Zip     string             `bson:"zip"`
}

// PickTicketRepository implements domain.PickTicketRepository using
// MongoDB. Headers, details, and addresses live in separate
// collections; addresses are deduplicated by content so repeat
// customers reference a single document.
type PickTicketRepository struct {
	db        *mongo.Database
	headers   *mongo.Collection
	details   *mongo.Collection
	addresses *mongo.Collection
}

// NewPickTicketRepository creates a new PickTicketRepository
func NewPickTicketRepository(db *mongo.Database) *PickTicketRepository {
	headers := db.Collection(headersCollection)
	details := db.Collection(detailsCollection)
	addresses := db.Collection(addressesCollection)

	// Create indexes
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = headers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pickTicketNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "orderNumber", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	})
	_, _ = details.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "pickTicketNumber", Value: 1},
			{Key: "lineNumber", Value: 1},
		},
	})
	_, _ = addresses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "name", Value: 1},
			{Key: "street", Value: 1},
			{Key: "zip", Value: 1},
		},
	})

	return &PickTicketRepository{
		db:        db,
		headers:   headers,
		details:   details,
		addresses: addresses,
	}
}

// Insert persists one pick ticket in a single transaction. An existing
// pick ticket number surfaces as a duplicate key error; nothing is
// written in that case.
func (r *PickTicketRepository) Insert(ctx context.Context, ticket *domain.PickTicket) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		customerID, err := r.upsertAddress(sessCtx, ticket.Customer)
		if err != nil {
			return nil, fmt.Errorf("failed to save customer address: %w", err)
		}

		recipientID := customerID
		if !ticket.Customer.Equal(ticket.Recipient) {
			recipientID, err = r.upsertAddress(sessCtx, ticket.Recipient)
			if err != nil {
				return nil, fmt.Errorf("failed to save recipient address: %w", err)
			}
		}

		now := time.Now().UTC()
		header := headerDoc{
			PickTicketNumber: ticket.PickTicketNumber,
			OrderNumber:      ticket.OrderNumber,
			Action:           ticket.Action,
			Store:            ticket.Store,
			CustomerID:       customerID,
			RecipientID:      recipientID,
			ShippingMethod:   ticket.ShippingMethod,
			OrderDate:        ticket.OrderDate,
			Channel:          ticket.Channel,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, err := r.headers.InsertOne(sessCtx, header); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, apperrors.ErrDuplicateKey("pick ticket", ticket.PickTicketNumber)
			}
			return nil, fmt.Errorf("failed to save header: %w", err)
		}

		docs := make([]interface{}, 0, len(ticket.LineItems))
		for _, line := range ticket.LineItems {
			docs = append(docs, detailDoc{
				PickTicketNumber: ticket.PickTicketNumber,
				LineNumber:       line.LineNumber,
				Action:           line.Action,
				SKU:              line.SKU,
				Units:            line.Units,
				UnitsToShip:      line.UnitsToShip,
			})
		}
		if len(docs) > 0 {
			if _, err := r.details.InsertMany(sessCtx, docs); err != nil {
				return nil, fmt.Errorf("failed to save details: %w", err)
			}
		}

		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		return nil, nil
	})

	if err != nil {
		if _, ok := apperrors.IsAppError(err); ok {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// FindByPickTicketNumber retrieves a pick ticket by its number.
// Returns nil when no ticket exists.
func (r *PickTicketRepository) FindByPickTicketNumber(ctx context.Context, pickTicketNumber string) (*domain.PickTicket, error) {
	var header headerDoc
	err := r.headers.FindOne(ctx, bson.M{"pickTicketNumber": pickTicketNumber}).Decode(&header)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return r.assemble(ctx, header)
}

// FindByOrderNumber retrieves every pick ticket for an order, ordered
// by pick ticket number. A split order yields more than one.
func (r *PickTicketRepository) FindByOrderNumber(ctx context.Context, orderNumber string) ([]*domain.PickTicket, error) {
	opts := options.Find().SetSort(bson.D{{Key: "pickTicketNumber", Value: 1}})
	return r.findMany(ctx, bson.M{"orderNumber": orderNumber}, opts)
}

// FindPage retrieves a page of pick tickets, newest first. Page
// numbering starts at 1.
func (r *PickTicketRepository) FindPage(ctx context.Context, page, pageSize int) ([]*domain.PickTicket, error) {
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	return r.findMany(ctx, bson.M{}, opts)
}

func (r *PickTicketRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.PickTicket, error) {
	cursor, err := r.headers.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var headers []headerDoc
	if err := cursor.All(ctx, &headers); err != nil {
		return nil, err
	}

	tickets := make([]*domain.PickTicket, 0, len(headers))
	for _, header := range headers {
		ticket, err := r.assemble(ctx, header)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func (r *PickTicketRepository) assemble(ctx context.Context, header headerDoc) (*domain.PickTicket, error) {
	customer, err := r.findAddress(ctx, header.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer address: %w", err)
	}

	recipient := customer
	if header.RecipientID != header.CustomerID {
		recipient, err = r.findAddress(ctx, header.RecipientID)
		if err != nil {
			return nil, fmt.Errorf("failed to load recipient address: %w", err)
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "lineNumber", Value: 1}})
	cursor, err := r.details.Find(ctx, bson.M{"pickTicketNumber": header.PickTicketNumber}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var details []detailDoc
	if err := cursor.All(ctx, &details); err != nil {
		return nil, err
	}

	lines := make([]domain.PickTicketDetail, 0, len(details))
	for _, d := range details {
		lines = append(lines, domain.PickTicketDetail{
			LineNumber:  d.LineNumber,
			Action:      d.Action,
			SKU:         d.SKU,
			Units:       d.Units,
			UnitsToShip: d.UnitsToShip,
		})
	}

	return &domain.PickTicket{
		PickTicketNumber: header.PickTicketNumber,
		OrderNumber:      header.OrderNumber,
		Action:           header.Action,
		Store:            header.Store,
		Customer:         customer,
		Recipient:        recipient,
		ShippingMethod:   header.ShippingMethod,
		LineItems:        lines,
		OrderDate:        header.OrderDate,
		Channel:          header.Channel,
		CreatedAt:        header.CreatedAt,
		UpdatedAt:        header.UpdatedAt,
	}, nil
}

func (r *PickTicketRepository) findAddress(ctx context.Context, id primitive.ObjectID) (domain.Address, error) {
	var doc addressDoc
	if err := r.addresses.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return domain.Address{}, err
	}
	return domain.Address{
		Name:    doc.Name,
		Street:  doc.Street,
		City:    doc.City,
		State:   doc.State,
		Country: doc.Country,
		Zip:     doc.Zip,
	}, nil
}

// upsertAddress reuses an existing address document with identical
// content, inserting one only when none exists.
func (r *PickTicketRepository) upsertAddress(ctx context.Context, addr domain.Address) (primitive.ObjectID, error) {
	filter := bson.M{
		"name":    addr.Name,
		"street":  addr.Street,
		"city":    addr.City,
		"state":   addr.State,
		"country": addr.Country,
		"zip":     addr.Zip,
	}

	var existing addressDoc
	err := r.addresses.FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, err
	}

	result, err := r.addresses.InsertOne(ctx, addressDoc{
		Name:    addr.Name,
		Street:  addr.Street,
		City:    addr.City,
		State:   addr.State,
		Country: addr.Country,
		Zip:     addr.Zip,
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return result.InsertedID.(primitive.ObjectID), nil
}
