// Package booking creates pending bookings, opens the matching gateway
// order, and compensates when the gateway turns the order down.
package booking

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/eventgate/booking-core/internal/domain"
	"github.com/eventgate/booking-core/internal/fees"
	"github.com/eventgate/booking-core/internal/gateway"
	"github.com/eventgate/booking-core/internal/observability"
)

type Store interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	CreateBooking(ctx context.Context, tx pgx.Tx, b domain.Booking) error
	CreateTicketIntent(ctx context.Context, tx pgx.Tx, intent domain.TicketIntent) error
	DeleteTicketIntent(ctx context.Context, bookingID uuid.UUID) error
	DeleteBooking(ctx context.Context, bookingID uuid.UUID) error
	CreatePayment(ctx context.Context, p domain.Payment) error
	GetReferralLinkByCode(ctx context.Context, code string) (*domain.ReferralLink, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetFeeSetting(ctx context.Context, key string) (string, error)
}

type Catalog interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error)
}

type Gateway interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderResult, error)
}

// Selection is one package choice at checkout. TicketHolders must match
// Quantity, one entry per issued ticket.
type Selection struct {
	PackageID     uuid.UUID
	Quantity      int
	TicketHolders []domain.TicketHolder
}

type CheckoutResult struct {
	Booking          domain.Booking
	Breakdown        fees.Breakdown
	GatewayOrderID   string
	PaymentSessionID string
}

type Service struct {
	store         Store
	catalog       Catalog
	gw            Gateway
	returnURLBase string
	logger        observability.Logger
}

func NewService(store Store, catalog Catalog, gw Gateway, returnURLBase string, logger observability.Logger) *Service {
	return &Service{
		store:         store,
		catalog:       catalog,
		gw:            gw,
		returnURLBase: returnURLBase,
		logger:        logger,
	}
}

// CreatePendingBooking validates the selections, computes the money
// breakdown and persists the Booking plus its TicketIntent as one
// transactional unit. Nothing is written when validation fails.
func (s *Service) CreatePendingBooking(ctx context.Context, userID, eventID uuid.UUID, referralCode string, selections []Selection) (domain.Booking, fees.Breakdown, *domain.ReferralLink, error) {
	if len(selections) == 0 {
		return domain.Booking{}, fees.Breakdown{}, nil, errors.Wrap(domain.ErrInvalidInput, "no packages selected")
	}

	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return domain.Booking{}, fees.Breakdown{}, nil, errors.Wrapf(err, "event %s", eventID)
	}

	var link *domain.ReferralLink
	if referralCode != "" {
		link, err = s.store.GetReferralLinkByCode(ctx, referralCode)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && link.EventID != eventID) {
			return domain.Booking{}, fees.Breakdown{}, nil, errors.Wrapf(domain.ErrInvalidReferralCode, "code %q", referralCode)
		}
		if err != nil {
			return domain.Booking{}, fees.Breakdown{}, nil, err
		}
	}

	rates, err := fees.LoadRates(ctx, s.store, ev.HostFeeOverride)
	if err != nil {
		return domain.Booking{}, fees.Breakdown{}, nil, err
	}
	if link != nil {
		rates.Referral = ev.ReferralPercentage
	}

	var lines []fees.Line
	var items []domain.IntentItem
	ticketCount := 0
	for _, sel := range selections {
		pkg, ok := ev.FindPackage(sel.PackageID)
		if !ok {
			return domain.Booking{}, fees.Breakdown{}, nil, errors.Wrapf(domain.ErrPackageNotFound, "package %s", sel.PackageID)
		}
		if sel.Quantity <= 0 {
			return domain.Booking{}, fees.Breakdown{}, nil, errors.Wrap(domain.ErrInvalidInput, "quantity must be positive")
		}
		if pkg.MaxPerBooking > 0 && sel.Quantity > pkg.MaxPerBooking {
			return domain.Booking{}, fees.Breakdown{}, nil, errors.Wrapf(domain.ErrInvalidInput, "package %s allows at most %d tickets per booking", pkg.Name, pkg.MaxPerBooking)
		}
		if len(sel.TicketHolders) != sel.Quantity {
			return domain.Booking{}, fees.Breakdown{}, nil, errors.Wrap(domain.ErrInvalidInput, "ticket holder count must match quantity")
		}
		for _, h := range sel.TicketHolders {
			if h.Name == "" {
				return domain.Booking{}, fees.Breakdown{}, nil, errors.Wrap(domain.ErrInvalidInput, "ticket holder name is required")
			}
		}
		lines = append(lines, fees.Line{Base: pkg.Price, Quantity: sel.Quantity})
		items = append(items, domain.IntentItem{PackageID: sel.PackageID, Quantity: sel.Quantity, Holders: sel.TicketHolders})
		ticketCount += sel.Quantity
	}

	breakdown := fees.Aggregate(lines, rates)

	var linkID *uuid.UUID
	if link != nil {
		linkID = &link.ID
	}
	b := domain.NewBooking(userID, eventID, selections[0].PackageID, ticketCount, fees.Round2(breakdown.UserPays), linkID)
	intent := domain.NewTicketIntent(b.ID, items)

	err = s.store.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.store.CreateBooking(ctx, tx, b); err != nil {
			return err
		}
		return s.store.CreateTicketIntent(ctx, tx, intent)
	})
	if err != nil {
		return domain.Booking{}, fees.Breakdown{}, nil, err
	}

	observability.BookingsCreated.Inc()
	return b, breakdown, link, nil
}

// Checkout is the user-facing path: pending booking, then gateway order,
// then the PENDING payment row. A gateway refusal compensates the local
// writes so no orphaned pending state survives the call.
func (s *Service) Checkout(ctx context.Context, userID, eventID uuid.UUID, referralCode string, selections []Selection) (*CheckoutResult, error) {
	buyer, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "buyer %s", userID)
	}

	b, breakdown, link, err := s.CreatePendingBooking(ctx, userID, eventID, referralCode, selections)
	if err != nil {
		return nil, err
	}

	tags := gateway.Tags{
		BookingID:      b.ID.String(),
		EventID:        b.EventID.String(),
		UserID:         b.UserID.String(),
		TicketCount:    b.TicketCount,
		UserPays:       fees.Round2(breakdown.UserPays),
		HostGets:       fees.Round2(breakdown.HostGets),
		AdminGets:      fees.Round2(breakdown.AdminGets),
		ReferralAmount: fees.Round2(breakdown.ReferralAmount),
	}
	if link != nil {
		tags.ReferralCode = link.Code
	}

	req := gateway.OrderRequest{
		OrderID:       b.BookingNumber,
		OrderAmount:   fees.Round2(breakdown.UserPays),
		OrderCurrency: "INR",
		CustomerDetails: gateway.CustomerDetails{
			CustomerID:    buyer.ID.String(),
			CustomerName:  buyer.Name,
			CustomerEmail: buyer.Email,
			CustomerPhone: buyer.Phone,
		},
		OrderTags: tags.Map(),
	}
	req.OrderMeta.ReturnURL = fmt.Sprintf("%s?booking_id=%s", s.returnURLBase, b.ID)

	res, err := s.gw.CreateOrder(ctx, req)
	if err != nil {
		s.logger.WithField("booking_id", b.ID.String()).Error("gateway order creation failed, rolling back: ", err)
		if rbErr := s.RollbackPendingBooking(ctx, b.ID); rbErr != nil {
			s.logger.WithField("booking_id", b.ID.String()).Error("compensation failed: ", rbErr)
		}
		return nil, errors.Mark(err, domain.ErrOrderCreationFailed)
	}

	payment := domain.NewPayment(b.ID, res.GatewayOrderID, fees.Round2(breakdown.UserPays))
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		s.logger.WithField("booking_id", b.ID.String()).Error("payment row creation failed, rolling back: ", err)
		if rbErr := s.RollbackPendingBooking(ctx, b.ID); rbErr != nil {
			s.logger.WithField("booking_id", b.ID.String()).Error("compensation failed: ", rbErr)
		}
		return nil, errors.Mark(err, domain.ErrOrderCreationFailed)
	}

	return &CheckoutResult{
		Booking:          b,
		Breakdown:        breakdown,
		GatewayOrderID:   res.GatewayOrderID,
		PaymentSessionID: res.PaymentSessionID,
	}, nil
}

// RollbackPendingBooking deletes the TicketIntent and then the Booking.
// Both deletes are no-ops when the rows are already gone, so repeated
// compensation is safe.
func (s *Service) RollbackPendingBooking(ctx context.Context, bookingID uuid.UUID) error {
	if err := s.store.DeleteTicketIntent(ctx, bookingID); err != nil {
		return errors.Wrap(err, "delete ticket intent")
	}
	if err := s.store.DeleteBooking(ctx, bookingID); err != nil {
		return errors.Wrap(err, "delete booking")
	}
	observability.Compensations.Inc()
	return nil
}
