package domain

import (
	"errors"
	"time"
)

// Errors for the PickTicket aggregate
var (
	ErrNoLineItems       = errors.New("pick ticket must have at least one line item")
	ErrMissingOrderNum   = errors.New("pick ticket must have an order number")
	ErrMissingShipMethod = errors.New("pick ticket must have a shipping method")
	ErrMissingOrderDate  = errors.New("pick ticket must have an order date")
	ErrIncompleteAddress = errors.New("address is missing required fields")
)

// Sales channels a pick ticket can originate from
const (
	ChannelBatch = 1 // CSV batch drops
	ChannelAPI   = 2 // direct API submissions
)

// ActionInsert is the action code for new records sent to the warehouse
const ActionInsert = "I"

// PickTicketPrefix is prepended to an order number to form a pick ticket number
const PickTicketPrefix = "C"

// Address represents a customer or recipient address.
// Two addresses with identical fields are the same address; the
// persistence layer may deduplicate them by content.
type Address struct {
	Name    string `bson:"name" json:"name"`
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Country string `bson:"country" json:"country"`
	Zip     string `bson:"zip" json:"zip"`
}

// Complete reports whether every required address field is populated
func (a Address) Complete() bool {
	return a.Name != "" && a.Street != "" && a.City != "" &&
		a.State != "" && a.Country != "" && a.Zip != ""
}

// Equal reports whether two addresses have identical content
func (a Address) Equal(other Address) bool {
	return a == other
}

// PickTicket is a warehouse pick/pack/ship work order derived from a
// sales order. An order may be split into multiple pick tickets.
type PickTicket struct {
	PickTicketNumber string             `bson:"pickTicketNumber" json:"pickTicketNumber"`
	OrderNumber      string             `bson:"orderNumber" json:"orderNumber"`
	Action           string             `bson:"action" json:"action"`
	Store            int                `bson:"store" json:"store"`
	Customer         Address            `bson:"customer" json:"customer"`
	Recipient        Address            `bson:"recipient" json:"recipient"`
	ShippingMethod   string             `bson:"shippingMethod" json:"shippingMethod"`
	LineItems        []PickTicketDetail `bson:"lineItems" json:"lineItems"`
	OrderDate        time.Time          `bson:"orderDate" json:"orderDate"`
	Channel          int                `bson:"channel" json:"channel"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PickTicketDetail represents one line item on a pick ticket
type PickTicketDetail struct {
	LineNumber  int    `bson:"lineNumber" json:"lineNumber"`
	Action      string `bson:"action" json:"action"`
	SKU         string `bson:"sku" json:"sku"`
	Units       int    `bson:"units" json:"units"`
	UnitsToShip int    `bson:"unitsToShip" json:"unitsToShip"`
}

// NewPickTicket creates a pick ticket for an order. The pick ticket
// number is derived from the order number.
func NewPickTicket(orderNumber string, store int, customer, recipient Address, shippingMethod string, lines []PickTicketDetail, orderDate time.Time, channel int) (*PickTicket, error) {
	ticket := &PickTicket{
		PickTicketNumber: PickTicketPrefix + orderNumber,
		OrderNumber:      orderNumber,
		Action:           ActionInsert,
		Store:            store,
		Customer:         customer,
		Recipient:        recipient,
		ShippingMethod:   shippingMethod,
		LineItems:        lines,
		OrderDate:        orderDate,
		Channel:          channel,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if err := ticket.Validate(); err != nil {
		return nil, err
	}

	ticket.RenumberLines()
	return ticket, nil
}

// Validate checks the aggregate invariants
func (p *PickTicket) Validate() error {
	if p.OrderNumber == "" {
		return ErrMissingOrderNum
	}
	if p.ShippingMethod == "" {
		return ErrMissingShipMethod
	}
	if p.OrderDate.IsZero() {
		return ErrMissingOrderDate
	}
	if len(p.LineItems) == 0 {
		return ErrNoLineItems
	}
	if !p.Customer.Complete() || !p.Recipient.Complete() {
		return ErrIncompleteAddress
	}
	return nil
}

// CloneWithoutLines copies the scalar fields of the pick ticket and
// allocates a fresh, empty line-item slice. The copy never aliases the
// original's line items.
func (p *PickTicket) CloneWithoutLines() *PickTicket {
	clone := *p
	clone.LineItems = make([]PickTicketDetail, 0, len(p.LineItems))
	return &clone
}

// RenumberLines reassigns line numbers 1..k preserving order
func (p *PickTicket) RenumberLines() {
	for i := range p.LineItems {
		p.LineItems[i].LineNumber = i + 1
	}
}
