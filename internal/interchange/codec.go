// Package interchange implements the fixed-position, comma-delimited
// flat-file format exchanged with the WSI warehouse system.
//
// Field order and padding-comma counts are part of the wire contract
// and must not change. Free-text address fields are wrapped in quotes
// but never escaped: a comma inside a name or street would corrupt the
// row. That is a limitation of the format itself, shared with every
// other producer of these files, and is deliberately not worked around
// here.
package interchange

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
)

// Record type tags
const (
	headerTag       = "PTH"
	detailTag       = "PTD"
	confirmationTag = "CSD"
)

// Fixed field positions in a shipping confirmation (CSD) row
const (
	csdOrderNumberIdx = 6
	csdSKUIdx         = 14
	csdTrackingIdx    = 32
	csdQuantityIdx    = 35

	csdMinFields = csdQuantityIdx + 1
)

// Fixed field positions in pick ticket header (PTH) rows
const (
	pthPickTicketIdx  = 2
	pthOrderNumberIdx = 3
	pthOrderDateIdx   = 5
	pthCustomerIdx    = 12 // name, street, city, state, country, zip
	pthRecipientIdx   = 20
	pthShipMethodIdx  = 34
)

// Fixed field positions in pick ticket detail (PTD) rows
const (
	ptdPickTicketIdx  = 2
	ptdSKUIdx         = 5
	ptdUnitsIdx       = 11
	ptdUnitsToShipIdx = 12
)

// orderDateLayout is the date format used in header records
const orderDateLayout = "01/02/2006"

// ParseError reports a malformed interchange row. A corrupted row
// invalidates positional assumptions for the rest of the file, so
// decoding aborts at the first one.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// EncodeHeader encodes a pick ticket header as a PTH record
func EncodeHeader(ticket *domain.PickTicket) string {
	return fmt.Sprintf(`PTH,%s,%s,%s,C,%s,,,,75,,,"%s","%s","%s",%s,%s,%s,,,"%s","%s","%s",%s,%s,%s,,,,,,,,,%s,,,,PGD,,HN,PGD,PP,,,,,,,Y,,,,,PT,,,,,,,,,,,,,`,
		ticket.Action,
		ticket.PickTicketNumber,
		ticket.OrderNumber,
		ticket.OrderDate.Format(orderDateLayout),
		ticket.Customer.Name,
		ticket.Customer.Street,
		ticket.Customer.City,
		ticket.Customer.State,
		ticket.Customer.Country,
		ticket.Customer.Zip,
		ticket.Recipient.Name,
		ticket.Recipient.Street,
		ticket.Recipient.City,
		ticket.Recipient.State,
		ticket.Recipient.Country,
		ticket.Recipient.Zip,
		ticket.ShippingMethod,
	)
}

// EncodeDetail encodes one line item as a PTD record. The unit price
// comes from the price collaborator; callers must resolve it before
// encoding so a lookup failure never emits a partial row.
func EncodeDetail(pickTicketNumber string, line domain.PickTicketDetail, unitPrice float64) string {
	return fmt.Sprintf("PTD,I,%s,%d,A,%s,,,,,,%d,%d,,,,%s,,,,HN,PGD,,,,,,,,",
		pickTicketNumber,
		line.LineNumber,
		line.SKU,
		line.Units,
		line.UnitsToShip,
		strconv.FormatFloat(unitPrice, 'f', 2, 64),
	)
}

// DecodeConfirmationRows parses shipping confirmation text into
// confirmation records. Rows whose first field is not the confirmation
// tag are ignored; a confirmation row with too few fields or a
// non-numeric quantity aborts decoding with a ParseError naming the
// offending line.
func DecodeConfirmationRows(text string) ([]domain.ConfirmationRecord, error) {
	var records []domain.ConfirmationRecord

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if fields[0] != confirmationTag {
			continue
		}

		if len(fields) < csdMinFields {
			return nil, &ParseError{
				Line:   i + 1,
				Reason: fmt.Sprintf("confirmation row has %d fields, need at least %d", len(fields), csdMinFields),
			}
		}

		quantity, err := strconv.Atoi(strings.TrimSpace(fields[csdQuantityIdx]))
		if err != nil {
			return nil, &ParseError{
				Line:   i + 1,
				Reason: fmt.Sprintf("invalid shipped quantity %q", fields[csdQuantityIdx]),
			}
		}

		records = append(records, domain.ConfirmationRecord{
			OrderNumber:    fields[csdOrderNumberIdx],
			SKU:            fields[csdSKUIdx],
			TrackingNumber: fields[csdTrackingIdx],
			Quantity:       quantity,
		})
	}

	return records, nil
}

// DecodePickTickets parses a batch of PTH/PTD records into pick
// tickets, keyed and ordered by first appearance. Quotes around
// free-text address fields are stripped. Rows with an unknown tag are
// ignored; short or malformed rows abort with a ParseError.
func DecodePickTickets(text string) ([]*domain.PickTicket, error) {
	tickets := make(map[string]*domain.PickTicket)
	var order []string

	get := func(num string) *domain.PickTicket {
		if t, ok := tickets[num]; ok {
			return t
		}
		t := &domain.PickTicket{
			PickTicketNumber: num,
			Action:           domain.ActionInsert,
			Store:            1,
			Channel:          domain.ChannelBatch,
		}
		tickets[num] = t
		order = append(order, num)
		return t
	}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ",")
		switch fields[0] {
		case headerTag:
			if len(fields) <= pthShipMethodIdx {
				return nil, &ParseError{
					Line:   i + 1,
					Reason: fmt.Sprintf("header row has %d fields, need at least %d", len(fields), pthShipMethodIdx+1),
				}
			}

			orderDate, err := time.Parse(orderDateLayout, fields[pthOrderDateIdx])
			if err != nil {
				return nil, &ParseError{
					Line:   i + 1,
					Reason: fmt.Sprintf("invalid order date %q", fields[pthOrderDateIdx]),
				}
			}

			ticket := get(fields[pthPickTicketIdx])
			ticket.OrderNumber = fields[pthOrderNumberIdx]
			ticket.OrderDate = orderDate
			ticket.Customer = decodeAddress(fields, pthCustomerIdx)
			ticket.Recipient = decodeAddress(fields, pthRecipientIdx)
			ticket.ShippingMethod = fields[pthShipMethodIdx]

		case detailTag:
			if len(fields) <= ptdUnitsToShipIdx {
				return nil, &ParseError{
					Line:   i + 1,
					Reason: fmt.Sprintf("detail row has %d fields, need at least %d", len(fields), ptdUnitsToShipIdx+1),
				}
			}

			units, err := strconv.Atoi(fields[ptdUnitsIdx])
			if err != nil {
				return nil, &ParseError{
					Line:   i + 1,
					Reason: fmt.Sprintf("invalid unit count %q", fields[ptdUnitsIdx]),
				}
			}

			unitsToShip, err := strconv.Atoi(fields[ptdUnitsToShipIdx])
			if err != nil {
				return nil, &ParseError{
					Line:   i + 1,
					Reason: fmt.Sprintf("invalid units-to-ship count %q", fields[ptdUnitsToShipIdx]),
				}
			}

			ticket := get(fields[ptdPickTicketIdx])
			ticket.LineItems = append(ticket.LineItems, domain.PickTicketDetail{
				LineNumber:  len(ticket.LineItems) + 1,
				Action:      domain.ActionInsert,
				SKU:         fields[ptdSKUIdx],
				Units:       units,
				UnitsToShip: unitsToShip,
			})
		}
	}

	result := make([]*domain.PickTicket, 0, len(order))
	for _, num := range order {
		result = append(result, tickets[num])
	}
	return result, nil
}

// EncodeMasterSKURecord re-encodes one row of the master SKU feed as a
// fixed-position SKU record for the warehouse item master.
func EncodeMasterSKURecord(tokens []string) (string, error) {
	if len(tokens) < 12 {
		return "", fmt.Errorf("master SKU row has %d columns, need 12", len(tokens))
	}

	var b strings.Builder
	b.WriteString("SKU,I,")
	b.WriteString(tokens[0] + strings.Repeat(",", 5) + tokens[1] + ",,")
	b.WriteString("HN,PGD,")
	b.WriteString(strings.Join(tokens[2:5], ","))
	b.WriteString(strings.Repeat(",", 6))
	b.WriteString("1,999,1,999,EA,PKBX,")
	b.WriteString(strings.Join(tokens[5:9], ","))
	b.WriteString(strings.Repeat(",", 5))
	b.WriteString(tokens[9])
	b.WriteString(strings.Repeat(",", 4))
	b.WriteString("N,N,N,")
	b.WriteString(tokens[10] + "," + strings.TrimSpace(tokens[11]))
	b.WriteString(strings.Repeat(",", 10))

	return b.String(), nil
}

func decodeAddress(fields []string, start int) domain.Address {
	unquote := func(s string) string {
		return strings.ReplaceAll(s, `"`, "")
	}
	return domain.Address{
		Name:    unquote(fields[start]),
		Street:  unquote(fields[start+1]),
		City:    unquote(fields[start+2]),
		State:   fields[start+3],
		Country: fields[start+4],
		Zip:     fields[start+5],
	}
}
