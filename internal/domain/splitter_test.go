package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitterTicket(skus ...string) *PickTicket {
	lines := make([]PickTicketDetail, 0, len(skus))
	for i, sku := range skus {
		lines = append(lines, PickTicketDetail{
			LineNumber:  i + 1,
			Action:      ActionInsert,
			SKU:         sku,
			Units:       1,
			UnitsToShip: 1,
		})
	}
	addr := Address{
		Name: "Pat Golfer", Street: "123 Fairway Dr", City: "Carlsbad",
		State: "CA", Country: "US", Zip: "92008",
	}
	return &PickTicket{
		PickTicketNumber: "C1000245",
		OrderNumber:      "1000245",
		Action:           ActionInsert,
		Store:            1,
		Customer:         addr,
		Recipient:        addr,
		ShippingMethod:   "FDXH",
		LineItems:        lines,
		OrderDate:        time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		Channel:          ChannelAPI,
	}
}

func TestSplitMixedEligibility(t *testing.T) {
	ticket := splitterTicket("DRV100XL99", "BALL-DOZEN", "WEDGE-56")
	eligible := NewSKUSet("DRV100XL99", "WEDGE-56")

	result := NewSplitter().Split(ticket, eligible)
	require.Len(t, result, 2)

	remainder, expedited := result[0], result[1]

	assert.Equal(t, "C1000245", remainder.PickTicketNumber)
	assert.Equal(t, "FDXH", remainder.ShippingMethod)
	require.Len(t, remainder.LineItems, 1)
	assert.Equal(t, "BALL-DOZEN", remainder.LineItems[0].SKU)
	assert.Equal(t, 1, remainder.LineItems[0].LineNumber)

	assert.Equal(t, "C1000245_WSIX", expedited.PickTicketNumber)
	assert.Equal(t, ExpeditedShippingMethod, expedited.ShippingMethod)
	require.Len(t, expedited.LineItems, 2)
	assert.Equal(t, "DRV100XL99", expedited.LineItems[0].SKU)
	assert.Equal(t, "WEDGE-56", expedited.LineItems[1].SKU)
	assert.Equal(t, []int{1, 2}, []int{expedited.LineItems[0].LineNumber, expedited.LineItems[1].LineNumber})

	// both halves keep the order identity
	assert.Equal(t, "1000245", remainder.OrderNumber)
	assert.Equal(t, "1000245", expedited.OrderNumber)
}

func TestSplitAllEligible(t *testing.T) {
	ticket := splitterTicket("DRV100XL99", "WEDGE-56")
	eligible := NewSKUSet("DRV100XL99", "WEDGE-56")

	result := NewSplitter().Split(ticket, eligible)
	require.Len(t, result, 1)

	// no sibling, no suffix: the ticket just ships expedited
	assert.Equal(t, "C1000245", result[0].PickTicketNumber)
	assert.Equal(t, ExpeditedShippingMethod, result[0].ShippingMethod)
	assert.Len(t, result[0].LineItems, 2)
}

func TestSplitNoneEligible(t *testing.T) {
	ticket := splitterTicket("BALL-DOZEN")

	result := NewSplitter().Split(ticket, NewSKUSet())
	require.Len(t, result, 1)

	assert.Equal(t, "C1000245", result[0].PickTicketNumber)
	assert.Equal(t, "FDXH", result[0].ShippingMethod)
	assert.Len(t, result[0].LineItems, 1)
}

func TestSplitDoesNotMutateInput(t *testing.T) {
	ticket := splitterTicket("DRV100XL99", "BALL-DOZEN")
	eligible := NewSKUSet("DRV100XL99")

	NewSplitter().Split(ticket, eligible)

	assert.Equal(t, "C1000245", ticket.PickTicketNumber)
	assert.Equal(t, "FDXH", ticket.ShippingMethod)
	require.Len(t, ticket.LineItems, 2)
	assert.Equal(t, 1, ticket.LineItems[0].LineNumber)
	assert.Equal(t, 2, ticket.LineItems[1].LineNumber)
}

func TestSplitPartitionsLines(t *testing.T) {
	ticket := splitterTicket("A1", "B2", "C3", "D4", "E5")
	eligible := NewSKUSet("B2", "D4")

	result := NewSplitter().Split(ticket, eligible)
	require.Len(t, result, 2)

	var got []string
	for _, half := range result {
		for _, line := range half.LineItems {
			got = append(got, line.SKU)
		}
	}
	assert.ElementsMatch(t, []string{"A1", "B2", "C3", "D4", "E5"}, got)

	// relative order preserved within each half
	assert.Equal(t, "A1", result[0].LineItems[0].SKU)
	assert.Equal(t, "C3", result[0].LineItems[1].SKU)
	assert.Equal(t, "E5", result[0].LineItems[2].SKU)
	assert.Equal(t, "B2", result[1].LineItems[0].SKU)
	assert.Equal(t, "D4", result[1].LineItems[1].SKU)
}

func TestSplitIsDeterministic(t *testing.T) {
	eligible := NewSKUSet("DRV100XL99")

	first := NewSplitter().Split(splitterTicket("DRV100XL99", "BALL-DOZEN"), eligible)
	second := NewSplitter().Split(splitterTicket("DRV100XL99", "BALL-DOZEN"), eligible)

	assert.Equal(t, first, second)
}

func TestApparelHeuristicRule(t *testing.T) {
	smallTicket := splitterTicket("POLOSHIRTM", "BALL-DOZEN")
	bigTicket := splitterTicket("POLOSHIRTM", "A", "B", "C", "D")

	tests := []struct {
		name     string
		ticket   *PickTicket
		line     PickTicketDetail
		eligible SKUSet
		want     bool
	}{
		{"explicit set still wins", bigTicket, PickTicketDetail{SKU: "A"}, NewSKUSet("A"), true},
		{"ten char sku on small ticket", smallTicket, PickTicketDetail{SKU: "POLOSHIRTM"}, NewSKUSet(), true},
		{"ten char sku on big ticket", bigTicket, PickTicketDetail{SKU: "POLOSHIRTM"}, NewSKUSet(), false},
		{"short sku on small ticket", smallTicket, PickTicketDetail{SKU: "BALL-DOZEN1"}, NewSKUSet(), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ApparelHeuristicRule(tc.ticket, tc.line, tc.eligible))
		})
	}
}

func TestSplitterWithApparelRule(t *testing.T) {
	ticket := splitterTicket("POLOSHIRTM", "TEE-PACK")

	result := NewSplitterWithRule(ApparelHeuristicRule).Split(ticket, NewSKUSet())
	require.Len(t, result, 2)
	assert.Equal(t, "TEE-PACK", result[0].LineItems[0].SKU)
	assert.Equal(t, "POLOSHIRTM", result[1].LineItems[0].SKU)
}
