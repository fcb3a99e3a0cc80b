package application

import "time"

// IngestMode controls how duplicate pick tickets are handled during
// ingestion. Batch files routinely contain orders seen on a previous
// run, so batch mode skips them; interactive submissions should never
// collide, so there a duplicate is an error.
type IngestMode string

const (
	ModeBatch       IngestMode = "batch"
	ModeInteractive IngestMode = "interactive"
)

// IngestOrderCommand represents one order to turn into pick tickets
type IngestOrderCommand struct {
	OrderNumber    string
	Store          int
	Customer       AddressInput
	Recipient      AddressInput
	ShippingMethod string
	OrderDate      time.Time
	Channel        int
	LineItems      []LineItemInput
}

// AddressInput represents an address in a command
type AddressInput struct {
	Name    string
	Street  string
	City    string
	State   string
	Country string
	Zip     string
}

// LineItemInput represents a line item in a command
type LineItemInput struct {
	SKU         string
	Units       int
	UnitsToShip int
}

// ListPickTicketsQuery represents a paginated pick ticket listing
type ListPickTicketsQuery struct {
	Page     int
	PageSize int
}
