package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
)

type Booking struct {
	ID             uuid.UUID
	BookingNumber  string
	Status         BookingStatus
	TicketCount    int
	TotalAmount    float64
	UserID         uuid.UUID
	EventID        uuid.UUID
	PackageID      uuid.UUID
	ReferralLinkID *uuid.UUID
	CreatedAt      time.Time
}

// TicketHolder is the raw holder data captured at checkout, before any
// Ticket row exists.
type TicketHolder struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Phone string `json:"phone"`
}

type IntentItem struct {
	PackageID uuid.UUID      `json:"package_id"`
	Quantity  int            `json:"quantity"`
	Holders   []TicketHolder `json:"holders"`
}

// TicketIntent stages holder details between booking creation and
// settlement. It is 1:1 with a PENDING booking and never outlives it.
type TicketIntent struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	Items     []IntentItem
	CreatedAt time.Time
}

type Payment struct {
	ID               uuid.UUID
	BookingID        uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Status           PaymentStatus
	Amount           float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Ticket struct {
	ID           uuid.UUID
	TicketNumber string
	QRToken      string
	HolderName   string
	HolderAge    int
	HolderPhone  string
	Price        float64
	UserID       uuid.UUID
	EventID      uuid.UUID
	PackageID    uuid.UUID
	BookingID    uuid.UUID
	CreatedAt    time.Time
}

// ReferralLink binds a shareable code to one event and the user who
// shared it.
type ReferralLink struct {
	ID         uuid.UUID
	Code       string
	EventID    uuid.UUID
	ReferrerID uuid.UUID
}

// Referral aggregates commission per (referrer, referred user, link)
// triple. Settlement increments Commission; it never inserts a second row
// for the same triple.
type Referral struct {
	ID             uuid.UUID
	ReferrerID     uuid.UUID
	ReferredUserID uuid.UUID
	ReferralLinkID uuid.UUID
	Commission     float64
	CommissionPaid bool
}

type User struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Phone         string
	WalletBalance float64
}

// Event and Package are read-only catalog inputs to the booking pipeline.
type Event struct {
	ID                 uuid.UUID
	Title              string
	Venue              string
	Date               time.Time
	HostID             uuid.UUID
	HostName           string
	HostEmail          string
	HostFeeOverride    *float64
	ReferralPercentage float64
	Packages           []Package
}

type Package struct {
	ID            uuid.UUID
	Name          string
	Price         float64
	MaxPerBooking int
}

func (e *Event) FindPackage(id uuid.UUID) (Package, bool) {
	for _, p := range e.Packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}
