// Package notify builds the booking-confirmed message handed to the
// notification collaborator. Delivery happens through the outbox, so
// settlement never blocks on it.
package notify

import (
	"time"

	"github.com/eventgate/booking-core/internal/domain"
)

const EventBookingConfirmed = "booking.confirmed"

type TicketInfo struct {
	TicketNumber string  `json:"ticket_number"`
	HolderName   string  `json:"holder_name"`
	HolderAge    int     `json:"holder_age"`
	HolderPhone  string  `json:"holder_phone"`
	PackageName  string  `json:"package_name"`
	Price        float64 `json:"price"`
}

type Message struct {
	BookingNumber string       `json:"booking_number"`
	BuyerName     string       `json:"buyer_name"`
	BuyerEmail    string       `json:"buyer_email"`
	HostName      string       `json:"host_name"`
	HostEmail     string       `json:"host_email"`
	EventTitle    string       `json:"event_title"`
	EventDate     time.Time    `json:"event_date"`
	EventVenue    string       `json:"event_venue"`
	TotalAmount   float64      `json:"total_amount"`
	HostEarnings  float64      `json:"host_earnings"`
	Tickets       []TicketInfo `json:"tickets"`
}

func Build(b domain.Booking, buyer domain.User, ev domain.Event, tickets []domain.Ticket, hostEarnings float64) Message {
	msg := Message{
		BookingNumber: b.BookingNumber,
		BuyerName:     buyer.Name,
		BuyerEmail:    buyer.Email,
		HostName:      ev.HostName,
		HostEmail:     ev.HostEmail,
		EventTitle:    ev.Title,
		EventDate:     ev.Date,
		EventVenue:    ev.Venue,
		TotalAmount:   b.TotalAmount,
		HostEarnings:  hostEarnings,
	}
	for _, t := range tickets {
		name := ""
		if pkg, ok := ev.FindPackage(t.PackageID); ok {
			name = pkg.Name
		}
		msg.Tickets = append(msg.Tickets, TicketInfo{
			TicketNumber: t.TicketNumber,
			HolderName:   t.HolderName,
			HolderAge:    t.HolderAge,
			HolderPhone:  t.HolderPhone,
			PackageName:  name,
			Price:        t.Price,
		})
	}
	return msg
}
