package domain

// ConfirmationRecord is one line of a warehouse-produced shipping
// confirmation file: a SKU shipped under a tracking number for an
// order. Records live only within one reconciliation run and are never
// persisted.
type ConfirmationRecord struct {
	OrderNumber    string
	SKU            string
	TrackingNumber string
	Quantity       int
}
