package application

import "github.com/golfdiscount/wsi-automation-api/internal/domain"

func addressFromInput(in AddressInput) domain.Address {
	return domain.Address{
		Name:    in.Name,
		Street:  in.Street,
		City:    in.City,
		State:   in.State,
		Country: in.Country,
		Zip:     in.Zip,
	}
}

func lineItemsFromInput(in []LineItemInput) []domain.PickTicketDetail {
	lines := make([]domain.PickTicketDetail, 0, len(in))
	for _, item := range in {
		units := item.Units
		unitsToShip := item.UnitsToShip
		if unitsToShip == 0 {
			unitsToShip = units
		}
		lines = append(lines, domain.PickTicketDetail{
			Action:      domain.ActionInsert,
			SKU:         item.SKU,
			Units:       units,
			UnitsToShip: unitsToShip,
		})
	}
	return lines
}

func toAddressDTO(addr domain.Address) AddressDTO {
	return AddressDTO{
		Name:    addr.Name,
		Street:  addr.Street,
		City:    addr.City,
		State:   addr.State,
		Country: addr.Country,
		Zip:     addr.Zip,
	}
}

// ToPickTicketDTO converts a domain pick ticket to its response shape
func ToPickTicketDTO(ticket *domain.PickTicket) *PickTicketDTO {
	lines := make([]LineItemDTO, 0, len(ticket.LineItems))
	for _, line := range ticket.LineItems {
		lines = append(lines, LineItemDTO{
			LineNumber:  line.LineNumber,
			SKU:         line.SKU,
			Units:       line.Units,
			UnitsToShip: line.UnitsToShip,
		})
	}

	return &PickTicketDTO{
		PickTicketNumber: ticket.PickTicketNumber,
		OrderNumber:      ticket.OrderNumber,
		Store:            ticket.Store,
		Customer:         toAddressDTO(ticket.Customer),
		Recipient:        toAddressDTO(ticket.Recipient),
		ShippingMethod:   ticket.ShippingMethod,
		LineItems:        lines,
		OrderDate:        ticket.OrderDate,
		Channel:          ticket.Channel,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
}

// ToPickTicketDTOs converts a slice of domain pick tickets
func ToPickTicketDTOs(tickets []*domain.PickTicket) []*PickTicketDTO {
	dtos := make([]*PickTicketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		dtos = append(dtos, ToPickTicketDTO(ticket))
	}
	return dtos
}
