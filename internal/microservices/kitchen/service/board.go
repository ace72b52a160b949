package service

import (
	"fmt"

	"restaurant-pos/internal/core/kitchen"
	"restaurant-pos/internal/microservices/kitchen/repository"
)

// Board turns stored rounds into tickets and overlays the ready rows. Later
// rounds of the same source are labelled with their round number.
func Board(orders []repository.Order) ([]kitchen.Ticket, error) {
	var lines []kitchen.QueueLine
	ready := make(map[int64][]int32, len(orders))
	for _, o := range orders {
		label := o.SourceLabel
		if o.Round > 1 {
			label = fmt.Sprintf("%s (round %d)", o.SourceLabel, o.Round)
		}
		for _, it := range o.Items {
			lines = append(lines, kitchen.QueueLine{
				OrderID:     o.ID,
				SourceLabel: label,
				CreatedAt:   o.CreatedAt,
				ItemName:    kitchen.ItemName{it.Name},
				Quantity:    it.Quantity,
				Note:        it.Note,
			})
		}
		ready[o.ID] = o.ReadyRows
	}

	tickets, err := kitchen.Aggregate(lines)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		for _, r := range ready[tickets[i].OrderID] {
			if int(r) < len(tickets[i].Rows) {
				tickets[i].Rows[r].Ready = true
			}
		}
	}
	return tickets, nil
}
