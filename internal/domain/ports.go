package domain

import (
	"context"
	"time"
)

// PickTicketRepository persists pick tickets. Insert writes the
// addresses, header, and details of one ticket in a single transaction
// and reports an already-existing pick ticket number as a duplicate key
// error distinguishable via errors.IsDuplicateKey.
type PickTicketRepository interface {
	Insert(ctx context.Context, ticket *PickTicket) error
	FindByPickTicketNumber(ctx context.Context, pickTicketNumber string) (*PickTicket, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) ([]*PickTicket, error)
	FindPage(ctx context.Context, page, pageSize int) ([]*PickTicket, error)
}

// EligibleSKUSource provides the set of SKUs qualifying for expedited
// shipping, refreshed once per ingestion run.
type EligibleSKUSource interface {
	FetchEligibleSKUs(ctx context.Context) (SKUSet, error)
}

// PriceSource looks up the unit price for a SKU during detail encoding
type PriceSource interface {
	UnitPrice(ctx context.Context, sku string) (float64, error)
}

// ExternalOrder is an order as known to the external order system
type ExternalOrder struct {
	ID     int
	Number string
}

// OrderSystem is the external order-management system. FindByNumber
// resolves an order number to exactly one order or fails. MarkShipped
// applies the system's fixed carrier and notification defaults.
type OrderSystem interface {
	FindByNumber(ctx context.Context, orderNumber string) (*ExternalOrder, error)
	MarkShipped(ctx context.Context, orderID int, trackingNumber string, shipDate time.Time) error
}

// RemoteFile identifies a file on the warehouse transport
type RemoteFile struct {
	Name     string
	FullPath string
}

// Transport moves interchange files to and from the warehouse system
type Transport interface {
	Upload(ctx context.Context, path string, contents []byte) error
	ListFiles(ctx context.Context, dir string) ([]RemoteFile, error)
	ReadAllLines(ctx context.Context, path string) ([]string, error)
}

// Attachment is a file attached to an outgoing notification
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}

// Notifier delivers operational notifications
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body string, attachments ...Attachment) error
}
