package interchange

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
)

func testTicket() *domain.PickTicket {
	return &domain.PickTicket{
		PickTicketNumber: "C1000245",
		OrderNumber:      "1000245",
		Action:           domain.ActionInsert,
		Store:            1,
		Customer: domain.Address{
			Name:    "Pat Golfer",
			Street:  "123 Fairway Dr",
			City:    "Carlsbad",
			State:   "CA",
			Country: "US",
			Zip:     "92008",
		},
		Recipient: domain.Address{
			Name:    "Sam Caddie",
			Street:  "9 Bunker Ln",
			City:    "Phoenix",
			State:   "AZ",
			Country: "US",
			Zip:     "85001",
		},
		ShippingMethod: "FDXH",
		OrderDate:      time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		Channel:        domain.ChannelBatch,
		LineItems: []domain.PickTicketDetail{
			{LineNumber: 1, Action: domain.ActionInsert, SKU: "DRV100XL99", Units: 1, UnitsToShip: 1},
			{LineNumber: 2, Action: domain.ActionInsert, SKU: "BALL-DOZEN", Units: 3, UnitsToShip: 3},
		},
	}
}

func TestEncodeHeader(t *testing.T) {
	got := EncodeHeader(testTicket())

	want := `PTH,I,C1000245,1000245,C,03/07/2024,,,,75,,,"Pat Golfer","123 Fairway Dr","Carlsbad",CA,US,92008,,,"Sam Caddie","9 Bunker Ln","Phoenix",AZ,US,85001,,,,,,,,,FDXH,,,,PGD,,HN,PGD,PP,,,,,,,Y,,,,,PT,,,,,,,,,,,,,`
	assert.Equal(t, want, got)
}

func TestEncodeDetail(t *testing.T) {
	line := domain.PickTicketDetail{LineNumber: 2, Action: domain.ActionInsert, SKU: "BALL-DOZEN", Units: 3, UnitsToShip: 3}

	got := EncodeDetail("C1000245", line, 24.99)

	assert.Equal(t, "PTD,I,C1000245,2,A,BALL-DOZEN,,,,,,3,3,,,,24.99,,,,HN,PGD,,,,,,,,", got)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ticket := testTicket()

	var b strings.Builder
	b.WriteString(EncodeHeader(ticket) + "\n")
	for _, line := range ticket.LineItems {
		b.WriteString(EncodeDetail(ticket.PickTicketNumber, line, 19.99) + "\n")
	}

	decoded, err := DecodePickTickets(b.String())
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	got := decoded[0]
	assert.Equal(t, ticket.PickTicketNumber, got.PickTicketNumber)
	assert.Equal(t, ticket.OrderNumber, got.OrderNumber)
	assert.True(t, ticket.OrderDate.Equal(got.OrderDate))
	assert.Equal(t, ticket.Customer, got.Customer)
	assert.Equal(t, ticket.Recipient, got.Recipient)
	assert.Equal(t, ticket.ShippingMethod, got.ShippingMethod)

	require.Len(t, got.LineItems, len(ticket.LineItems))
	for i, want := range ticket.LineItems {
		assert.Equal(t, want.SKU, got.LineItems[i].SKU)
		assert.Equal(t, want.Units, got.LineItems[i].Units)
		assert.Equal(t, want.UnitsToShip, got.LineItems[i].UnitsToShip)
		assert.Equal(t, i+1, got.LineItems[i].LineNumber)
	}
}

func TestDecodePickTicketsMultipleTickets(t *testing.T) {
	first := testTicket()
	second := testTicket()
	second.PickTicketNumber = "C1000246"
	second.OrderNumber = "1000246"
	second.LineItems = second.LineItems[:1]

	var b strings.Builder
	for _, ticket := range []*domain.PickTicket{first, second} {
		b.WriteString(EncodeHeader(ticket) + "\n")
		for _, line := range ticket.LineItems {
			b.WriteString(EncodeDetail(ticket.PickTicketNumber, line, 9.99) + "\n")
		}
	}

	decoded, err := DecodePickTickets(b.String())
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	assert.Equal(t, "C1000245", decoded[0].PickTicketNumber)
	assert.Len(t, decoded[0].LineItems, 2)
	assert.Equal(t, "C1000246", decoded[1].PickTicketNumber)
	assert.Len(t, decoded[1].LineItems, 1)
}

func TestDecodePickTicketsMalformedRows(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{
			name:   "short header",
			input:  "PTH,I,C1,1,C",
			reason: "header row",
		},
		{
			name:   "bad order date",
			input:  strings.Replace(EncodeHeader(testTicket()), "03/07/2024", "March 7", 1),
			reason: "invalid order date",
		},
		{
			name:   "short detail",
			input:  "PTD,I,C1,1,A,SKU1",
			reason: "detail row",
		},
		{
			name:   "bad unit count",
			input:  "PTD,I,C1,1,A,SKU1,,,,,,x,1,,,,9.99,,,,HN,PGD,,,,,,,,",
			reason: "invalid unit count",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodePickTickets(tc.input)
			require.Error(t, err)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, 1, parseErr.Line)
			assert.Contains(t, parseErr.Reason, tc.reason)
		})
	}
}

func csdRow(orderNumber, sku, tracking string, qty any) string {
	fields := make([]string, 40)
	fields[0] = "CSD"
	fields[csdOrderNumberIdx] = orderNumber
	fields[csdSKUIdx] = sku
	fields[csdTrackingIdx] = tracking
	fields[csdQuantityIdx] = fmt.Sprint(qty)
	return strings.Join(fields, ",")
}

func TestDecodeConfirmationRows(t *testing.T) {
	input := strings.Join([]string{
		"CSH,header,row,ignored",
		csdRow("1000245", "DRV100XL99", "794644790132", 1),
		"",
		csdRow("112-5094903-1234567", "BALL-DOZEN", "794644790133", 2),
	}, "\n")

	records, err := DecodeConfirmationRows(input)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, domain.ConfirmationRecord{
		OrderNumber:    "1000245",
		SKU:            "DRV100XL99",
		TrackingNumber: "794644790132",
		Quantity:       1,
	}, records[0])
	assert.Equal(t, "112-5094903-1234567", records[1].OrderNumber)
	assert.Equal(t, 2, records[1].Quantity)
}

func TestDecodeConfirmationRowsErrors(t *testing.T) {
	t.Run("short row", func(t *testing.T) {
		_, err := DecodeConfirmationRows("CSD,only,four,fields")

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, 1, parseErr.Line)
		assert.Contains(t, parseErr.Reason, "need at least 36")
	})

	t.Run("bad quantity", func(t *testing.T) {
		input := csdRow("1000245", "SKU1", "794644790132", 1) + "\n" +
			csdRow("1000246", "SKU2", "794644790133", "two")

		_, err := DecodeConfirmationRows(input)

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, 2, parseErr.Line)
		assert.Contains(t, parseErr.Reason, "invalid shipped quantity")
	})
}

func TestEncodeMasterSKURecord(t *testing.T) {
	tokens := []string{"DRV100XL99", "Big Driver 10.5", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j\r"}

	got, err := EncodeMasterSKURecord(tokens)
	require.NoError(t, err)

	want := "SKU,I,DRV100XL99,,,,,Big Driver 10.5,,HN,PGD,a,b,c,,,,,,1,999,1,999,EA,PKBX,d,e,f,g,,,,,h,,,,N,N,N,i,j,,,,,,,,,,"
	assert.Equal(t, want, got)
}

func TestEncodeMasterSKURecordShortRow(t *testing.T) {
	_, err := EncodeMasterSKURecord([]string{"DRV100XL99", "Big Driver"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need 12")
}
