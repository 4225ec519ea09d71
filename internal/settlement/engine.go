// Package settlement drives the PENDING -> CONFIRMED transition after the
// gateway verifies a payment: tickets are materialized, the staging
// intent is discarded and the money is split between host, platform and
// referrer. The whole transition runs in one SERIALIZABLE transaction and
// is safe under webhook redelivery.
package settlement

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/eventgate/booking-core/internal/adapters/crdb"
	"github.com/eventgate/booking-core/internal/domain"
	"github.com/eventgate/booking-core/internal/fees"
	"github.com/eventgate/booking-core/internal/gateway"
	"github.com/eventgate/booking-core/internal/notify"
	"github.com/eventgate/booking-core/internal/observability"
)

// fallbackHolderAge applies when a unit of quantity has no holder entry;
// the ticket is issued to the buyer instead of failing the settlement.
const fallbackHolderAge = 18

const settledCacheTTL = 24 * time.Hour

type Store interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	CompletePayment(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, gatewayPaymentID string) (bool, error)
	ConfirmBooking(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	GetTicketIntent(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*domain.TicketIntent, error)
	DeleteTicketIntentTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) error
	CreateTickets(ctx context.Context, tx pgx.Tx, tickets []domain.Ticket) error
	CreditWallet(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount float64) error
	UpsertReferral(ctx context.Context, tx pgx.Tx, ref domain.Referral) error
	GetReferralLink(ctx context.Context, id uuid.UUID) (*domain.ReferralLink, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetFeeSetting(ctx context.Context, key string) (string, error)
	InsertOutbox(ctx context.Context, tx pgx.Tx, record crdb.OutboxRecord) error
}

type Catalog interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error)
}

type Verifier interface {
	GetOrder(ctx context.Context, orderID string) (*gateway.OrderDetails, error)
}

type ReplayCache interface {
	IsSettled(ctx context.Context, bookingID string) (bool, error)
	MarkSettled(ctx context.Context, bookingID string, ttl time.Duration) error
}

type Auditor interface {
	LogSettlement(ctx context.Context, booking domain.Booking, gatewayOrderID string, hostCredit, adminCredit, referralCredit float64, duplicate bool) error
}

type Engine struct {
	store   Store
	catalog Catalog
	gw      Verifier
	cache   ReplayCache
	audit   Auditor
	adminID uuid.UUID
	logger  observability.Logger
}

func NewEngine(store Store, catalog Catalog, gw Verifier, cache ReplayCache, audit Auditor, adminID uuid.UUID, logger observability.Logger) *Engine {
	return &Engine{
		store:   store,
		catalog: catalog,
		gw:      gw,
		cache:   cache,
		audit:   audit,
		adminID: adminID,
		logger:  logger,
	}
}

// split is the resolved money distribution for one settlement.
type split struct {
	hostGets       float64
	adminGets      float64
	referralAmount float64
}

// Settle is idempotent: the conditional payment update inside the
// transaction decides a single winner per booking; every other delivery
// of the same webhook observes COMPLETED and returns success untouched.
func (e *Engine) Settle(ctx context.Context, gatewayOrderID, gatewayPaymentID string, bookingID uuid.UUID) error {
	log := e.logger.WithField("booking_id", bookingID.String())

	if e.cache != nil {
		if done, err := e.cache.IsSettled(ctx, bookingID.String()); err == nil && done {
			observability.DuplicateSettlements.Inc()
			log.Info("settlement replayed, already completed")
			return nil
		}
	}

	b, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return errors.Wrapf(err, "booking %s", bookingID)
	}

	// Catalog and buyer live in different stores; load them in parallel.
	// The event must still exist: without it there is no host to credit.
	var (
		ev    *domain.Event
		buyer *domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ev, err = e.catalog.GetEvent(gctx, b.EventID)
		return errors.Wrapf(err, "event %s no longer resolvable", b.EventID)
	})
	g.Go(func() error {
		var err error
		buyer, err = e.store.GetUser(gctx, b.UserID)
		return errors.Wrapf(err, "buyer %s", b.UserID)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	rates, err := fees.LoadRates(ctx, e.store, ev.HostFeeOverride)
	if err != nil {
		return err
	}
	if b.ReferralLinkID != nil {
		rates.Referral = ev.ReferralPercentage
	}

	duplicate := false
	var sp split

	err = e.store.WithTx(ctx, func(tx pgx.Tx) error {
		completed, err := e.store.CompletePayment(ctx, tx, b.ID, gatewayPaymentID)
		if err != nil {
			return errors.Wrap(err, "complete payment")
		}
		if !completed {
			duplicate = true
			return nil
		}

		if err := e.store.ConfirmBooking(ctx, tx, b.ID); err != nil {
			return errors.Wrap(err, "confirm booking")
		}

		intent, err := e.store.GetTicketIntent(ctx, tx, b.ID)
		if err != nil {
			return errors.Wrap(err, "load ticket intent")
		}

		sp, err = e.resolveSplit(ctx, *b, *ev, *intent, rates, gatewayOrderID)
		if err != nil {
			return err
		}

		tickets := e.materializeTickets(*b, *ev, *intent, *buyer, rates)
		if err := e.store.CreateTickets(ctx, tx, tickets); err != nil {
			return errors.Wrap(err, "create tickets")
		}
		if err := e.store.DeleteTicketIntentTx(ctx, tx, b.ID); err != nil {
			return errors.Wrap(err, "delete ticket intent")
		}

		if err := e.store.CreditWallet(ctx, tx, ev.HostID, sp.hostGets); err != nil {
			return errors.Wrap(err, "credit host")
		}
		if err := e.store.CreditWallet(ctx, tx, e.adminID, sp.adminGets); err != nil {
			return errors.Wrap(err, "credit platform")
		}
		if b.ReferralLinkID != nil && sp.referralAmount > 0 {
			link, err := e.store.GetReferralLink(ctx, *b.ReferralLinkID)
			if err != nil {
				return errors.Wrap(err, "referral link")
			}
			if err := e.store.CreditWallet(ctx, tx, link.ReferrerID, sp.referralAmount); err != nil {
				return errors.Wrap(err, "credit referrer")
			}
			ref := domain.Referral{
				ID:             uuid.New(),
				ReferrerID:     link.ReferrerID,
				ReferredUserID: b.UserID,
				ReferralLinkID: link.ID,
				Commission:     sp.referralAmount,
				CommissionPaid: true,
			}
			if err := e.store.UpsertReferral(ctx, tx, ref); err != nil {
				return errors.Wrap(err, "upsert referral")
			}
		}

		payload, err := json.Marshal(notify.Build(*b, *buyer, *ev, tickets, sp.hostGets))
		if err != nil {
			return err
		}
		return e.store.InsertOutbox(ctx, tx, crdb.NewOutboxRecord(b.ID, notify.EventBookingConfirmed, payload))
	})
	if err != nil {
		observability.Settlements.WithLabelValues("error").Inc()
		return err
	}

	if duplicate {
		observability.DuplicateSettlements.Inc()
		log.Info("duplicate settlement delivery, no-op")
		return nil
	}

	if e.cache != nil {
		if err := e.cache.MarkSettled(ctx, bookingID.String(), settledCacheTTL); err != nil {
			log.Warn("failed to cache settled marker: ", err)
		}
	}
	if e.audit != nil {
		if err := e.audit.LogSettlement(ctx, *b, gatewayOrderID, sp.hostGets, sp.adminGets, sp.referralAmount, false); err != nil {
			log.Warn("settlement audit write failed: ", err)
		}
	}

	observability.Settlements.WithLabelValues("ok").Inc()
	log.WithField("host_credit", sp.hostGets).WithField("admin_credit", sp.adminGets).Info("booking settled")
	return nil
}

// resolveSplit recomputes the distribution from first principles and only
// falls back to the gateway's metadata bag when recomputation no longer
// matches what was charged (a fee-configuration change or a package
// removed since order creation).
func (e *Engine) resolveSplit(ctx context.Context, b domain.Booking, ev domain.Event, intent domain.TicketIntent, rates fees.Rates, gatewayOrderID string) (split, error) {
	var lines []fees.Line
	recomputable := true
	for _, item := range intent.Items {
		pkg, ok := ev.FindPackage(item.PackageID)
		if !ok {
			recomputable = false
			break
		}
		lines = append(lines, fees.Line{Base: pkg.Price, Quantity: item.Quantity})
	}

	if recomputable {
		agg := fees.Aggregate(lines, rates)
		if math.Abs(fees.Round2(agg.UserPays)-b.TotalAmount) < 0.01 {
			return split{
				hostGets:       fees.Round2(agg.HostGets),
				adminGets:      fees.Round2(agg.AdminGets),
				referralAmount: fees.Round2(agg.ReferralAmount),
			}, nil
		}
		e.logger.WithField("booking_id", b.ID.String()).
			WithField("recomputed_user_pays", fees.Round2(agg.UserPays)).
			WithField("charged", b.TotalAmount).
			Warn("recomputed amounts diverge from charged total, falling back to gateway metadata")
	}

	details, err := e.gw.GetOrder(ctx, gatewayOrderID)
	if err != nil {
		return split{}, errors.Wrap(err, "recover gateway order metadata")
	}
	tags, err := gateway.ParseTags(details.OrderTags)
	if err != nil {
		return split{}, errors.Wrap(err, "parse gateway order metadata")
	}
	return split{
		hostGets:       tags.HostGets,
		adminGets:      tags.AdminGets,
		referralAmount: tags.ReferralAmount,
	}, nil
}

// materializeTickets turns the staged intent into one Ticket row per unit
// of quantity. A missing or nameless holder entry defaults to the buyer's
// identity rather than failing the whole settlement.
func (e *Engine) materializeTickets(b domain.Booking, ev domain.Event, intent domain.TicketIntent, buyer domain.User, rates fees.Rates) []domain.Ticket {
	var tickets []domain.Ticket
	seq := 1
	for _, item := range intent.Items {
		price := fees.Round2(b.TotalAmount / float64(b.TicketCount))
		if pkg, ok := ev.FindPackage(item.PackageID); ok {
			// The holder-facing price is all-in: base plus user fee plus tax.
			price = fees.Round2(fees.Calculate(pkg.Price, rates).UserPays)
		}
		for i := 0; i < item.Quantity; i++ {
			holder := domain.TicketHolder{Name: buyer.Name, Age: fallbackHolderAge, Phone: buyer.Phone}
			if i < len(item.Holders) && item.Holders[i].Name != "" {
				holder = item.Holders[i]
			}
			tickets = append(tickets, domain.NewTicket(b, item.PackageID, holder, seq, price))
			seq++
		}
	}
	return tickets
}
