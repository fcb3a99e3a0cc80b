package application

import "time"

// PickTicketDTO represents a pick ticket in application layer responses
type PickTicketDTO struct {
	PickTicketNumber string        `json:"pickTicketNumber"`
	OrderNumber      string        `json:"orderNumber"`
	Store            int           `json:"store"`
	Customer         AddressDTO    `json:"customer"`
	Recipient        AddressDTO    `json:"recipient"`
	ShippingMethod   string        `json:"shippingMethod"`
	LineItems        []LineItemDTO `json:"lineItems"`
	OrderDate        time.Time     `json:"orderDate"`
	Channel          int           `json:"channel"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// AddressDTO represents an address in responses
type AddressDTO struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zip     string `json:"zip"`
}

// LineItemDTO represents a line item in responses
type LineItemDTO struct {
	LineNumber  int    `json:"lineNumber"`
	SKU         string `json:"sku"`
	Units       int    `json:"units"`
	UnitsToShip int    `json:"unitsToShip"`
}

// IngestResultDTO summarizes one ingestion run. PickTicketNumbers
// holds the tickets that were persisted and made it into the outbound
// file; Failures lists the orders and tickets excluded from it.
type IngestResultDTO struct {
	PickTicketNumbers []string           `json:"pickTicketNumbers"`
	SkippedDuplicates []string           `json:"skippedDuplicates,omitempty"`
	Failures          []IngestFailureDTO `json:"failures,omitempty"`
	OutboundFile      string             `json:"outboundFile"`
}

// IngestFailureDTO records one order or pick ticket that failed during
// a batch run
type IngestFailureDTO struct {
	Unit   string `json:"unit"`
	Reason string `json:"reason"`
}

// ReconciliationResultDTO summarizes one reconciliation run
type ReconciliationResultDTO struct {
	FilesProcessed int      `json:"filesProcessed"`
	Confirmations  int      `json:"confirmations"`
	FailedOrders   []string `json:"failedOrders,omitempty"`
}
